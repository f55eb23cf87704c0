package promo

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/foodflow/pos-api/internal/money"
)

func TestTriggerCodecRoundTrip(t *testing.T) {
	temporal, err := NewTemporalTrigger(TemporalTrigger{
		Weekdays:    []time.Weekday{time.Friday},
		WindowFrom:  &TimeOfDay{Hour: 22},
		WindowUntil: &TimeOfDay{Hour: 2},
	})
	require.NoError(t, err)
	required, err := NewRequiredContentTrigger([]uuid.UUID{uuid.New()})
	require.NoError(t, err)
	minimum, err := NewMinimumAmountTrigger(money.MustFromString("15.00"))
	require.NoError(t, err)

	data, err := EncodeTriggers([]Trigger{temporal, required, minimum})
	require.NoError(t, err)

	decoded, err := DecodeTriggers(data)
	require.NoError(t, err)
	require.Len(t, decoded, 3)
	require.Equal(t, TriggerTemporal, decoded[0].Kind())
	require.Equal(t, TriggerRequiredContent, decoded[1].Kind())
	require.Equal(t, TriggerMinimumAmount, decoded[2].Kind())

	got, ok := decoded[2].(MinimumAmountTrigger)
	require.True(t, ok)
	require.True(t, got.Threshold.Equal(money.MustFromString("15.00")))
}

func TestTriggerCodecRejectsUnknownKind(t *testing.T) {
	_, err := DecodeTriggers([]byte(`[{"kind":"LOYALTY_TIER","params":{}}]`))
	require.ErrorIs(t, err, ErrInvalidTrigger)
}

func TestTriggerCodecRevalidatesParams(t *testing.T) {
	// A hand-edited row with an empty product list must not load.
	_, err := DecodeTriggers([]byte(`[{"kind":"REQUIRED_CONTENT","params":{"product_ids":[]}}]`))
	require.ErrorIs(t, err, ErrInvalidTrigger)

	_, err = DecodeTriggers([]byte(`[{"kind":"MINIMUM_AMOUNT","params":{"threshold":"-5.00"}}]`))
	require.ErrorIs(t, err, ErrInvalidTrigger)
}

func TestTriggerCodecEmptyInput(t *testing.T) {
	decoded, err := DecodeTriggers(nil)
	require.NoError(t, err)
	require.Nil(t, decoded)
}

func TestStrategyCodecRoundTrips(t *testing.T) {
	percent, err := NewDirectPercentDiscount(money.MustPercent("12.5"))
	require.NoError(t, err)
	amount, err := NewDirectAmountDiscount(money.MustFromString("4.00"))
	require.NoError(t, err)
	nxm, err := NewFixedQuantity(3, 2)
	require.NoError(t, err)
	combo, err := NewConditionalCombo(2, money.MustPercent("50"))
	require.NoError(t, err)
	pack, err := NewFixedPricePerQuantity(4, money.MustFromString("20.00"))
	require.NoError(t, err)

	for _, s := range []Strategy{percent, amount, nxm, combo, pack} {
		data, err := EncodeStrategy(s)
		require.NoError(t, err)
		decoded, err := DecodeStrategy(data)
		require.NoError(t, err)
		require.Equal(t, s.Kind(), decoded.Kind())
		require.Equal(t, s, decoded)
	}
}

func TestStrategyCodecRejectsUnknownKind(t *testing.T) {
	_, err := DecodeStrategy([]byte(`{"kind":"CASHBACK","params":{}}`))
	require.ErrorIs(t, err, ErrInvalidStrategy)
}

func TestStrategyCodecRevalidatesParams(t *testing.T) {
	_, err := DecodeStrategy([]byte(`{"kind":"FIXED_QUANTITY","params":{"buy_qty":1,"pay_qty":1}}`))
	require.ErrorIs(t, err, ErrInvalidStrategy)

	_, err = DecodeStrategy([]byte(`{"kind":"DIRECT_DISCOUNT","params":{"mode":"PERCENTAGE","percent":"0"}}`))
	require.ErrorIs(t, err, ErrInvalidStrategy)
}

func TestStrategyCodecNilStrategy(t *testing.T) {
	_, err := EncodeStrategy(nil)
	require.ErrorIs(t, err, ErrNilStrategy)
}
