package promo

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/foodflow/pos-api/internal/money"
)

func units(productID uuid.UUID, prices ...string) []Unit {
	out := make([]Unit, 0, len(prices))
	for i, p := range prices {
		out = append(out, Unit{
			ItemID:    uuid.New(),
			ProductID: productID,
			UnitPrice: money.MustFromString(p),
			LineIndex: i,
		})
	}
	return out
}

func TestDirectPercentDiscount(t *testing.T) {
	s, err := NewDirectPercentDiscount(money.MustPercent("10"))
	require.NoError(t, err)

	res, err := s.Apply(Match{Target: units(uuid.New(), "600.00", "600.00")})
	require.NoError(t, err)
	require.Equal(t, "120.00", res.Value.String())
	require.Len(t, res.Contributing, 2)
}

func TestDirectAmountDiscountCapsAtBase(t *testing.T) {
	s, err := NewDirectAmountDiscount(money.MustFromString("50.00"))
	require.NoError(t, err)

	res, err := s.Apply(Match{Target: units(uuid.New(), "30.00")})
	require.NoError(t, err)
	require.Equal(t, "30.00", res.Value.String())

	res, err = s.Apply(Match{Target: units(uuid.New(), "80.00")})
	require.NoError(t, err)
	require.Equal(t, "50.00", res.Value.String())
}

func TestDirectDiscountEmptyTarget(t *testing.T) {
	s, err := NewDirectPercentDiscount(money.MustPercent("25"))
	require.NoError(t, err)

	res, err := s.Apply(Match{})
	require.NoError(t, err)
	require.True(t, res.Value.IsZero())
	require.Empty(t, res.Contributing)
}

func TestDirectDiscountValidation(t *testing.T) {
	_, err := NewDirectPercentDiscount(money.Percent{})
	require.ErrorIs(t, err, ErrInvalidStrategy)
	_, err = NewDirectAmountDiscount(money.Zero())
	require.ErrorIs(t, err, ErrInvalidStrategy)
}

func TestFixedQuantityTwoForOne(t *testing.T) {
	s, err := NewFixedQuantity(2, 1)
	require.NoError(t, err)

	res, err := s.Apply(Match{Target: units(uuid.New(), "500.00", "500.00")})
	require.NoError(t, err)
	require.Equal(t, "500.00", res.Value.String())
	require.Len(t, res.Contributing, 1)
}

func TestFixedQuantityPartialGroupEarnsNothing(t *testing.T) {
	s, err := NewFixedQuantity(3, 2)
	require.NoError(t, err)

	res, err := s.Apply(Match{Target: units(uuid.New(), "4.00", "4.00")})
	require.NoError(t, err)
	require.True(t, res.Value.IsZero())
}

func TestFixedQuantityFreesCheapestUnits(t *testing.T) {
	s, err := NewFixedQuantity(3, 2)
	require.NoError(t, err)

	// One complete group of three: the single free unit is the cheapest.
	res, err := s.Apply(Match{Target: units(uuid.New(), "9.00", "5.00", "7.00")})
	require.NoError(t, err)
	require.Equal(t, "5.00", res.Value.String())
	require.Len(t, res.Contributing, 1)
}

func TestFixedQuantityGroupsPerProduct(t *testing.T) {
	s, err := NewFixedQuantity(2, 1)
	require.NoError(t, err)

	cola := uuid.New()
	beer := uuid.New()
	target := append(units(cola, "3.00", "3.00"), units(beer, "4.00")...)

	// Two colas form a group; the lone beer never joins it.
	res, err := s.Apply(Match{Target: target})
	require.NoError(t, err)
	require.Equal(t, "3.00", res.Value.String())
}

func TestFixedQuantityMultipleGroups(t *testing.T) {
	s, err := NewFixedQuantity(2, 1)
	require.NoError(t, err)

	res, err := s.Apply(Match{Target: units(uuid.New(), "2.50", "2.50", "2.50", "2.50", "2.50")})
	require.NoError(t, err)
	require.Equal(t, "5.00", res.Value.String())
	require.Len(t, res.Contributing, 2)
}

func TestFixedQuantityValidation(t *testing.T) {
	_, err := NewFixedQuantity(1, 1)
	require.ErrorIs(t, err, ErrInvalidStrategy)
	_, err = NewFixedQuantity(2, 0)
	require.ErrorIs(t, err, ErrInvalidStrategy)
}

func TestConditionalComboQuantityGate(t *testing.T) {
	s, err := NewConditionalCombo(2, money.MustPercent("50"))
	require.NoError(t, err)

	trigger := units(uuid.New(), "12.00")
	target := units(uuid.New(), "6.00")

	res, err := s.Apply(Match{Trigger: trigger, Target: target})
	require.NoError(t, err)
	require.True(t, res.Value.IsZero())

	trigger = units(uuid.New(), "12.00", "12.00")
	res, err = s.Apply(Match{Trigger: trigger, Target: target})
	require.NoError(t, err)
	require.Equal(t, "3.00", res.Value.String())
}

func TestConditionalComboEmptyTarget(t *testing.T) {
	s, err := NewConditionalCombo(1, money.MustPercent("50"))
	require.NoError(t, err)

	res, err := s.Apply(Match{Trigger: units(uuid.New(), "12.00")})
	require.NoError(t, err)
	require.True(t, res.Value.IsZero())
}

func TestConditionalComboValidation(t *testing.T) {
	_, err := NewConditionalCombo(0, money.MustPercent("50"))
	require.ErrorIs(t, err, ErrInvalidStrategy)
	_, err = NewConditionalCombo(1, money.Percent{})
	require.ErrorIs(t, err, ErrInvalidStrategy)
}

func TestFixedPricePerQuantityPacksCheapestUnits(t *testing.T) {
	s, err := NewFixedPricePerQuantity(4, money.MustFromString("20.00"))
	require.NoError(t, err)

	// Five beers at mixed prices: the pack takes the four cheapest
	// (5.50+5.50+6.00+6.00 = 23.00) for 20.00, the fifth stays full price.
	res, err := s.Apply(Match{Target: units(uuid.New(), "7.00", "6.00", "5.50", "6.00", "5.50")})
	require.NoError(t, err)
	require.Equal(t, "3.00", res.Value.String())
	require.Len(t, res.Contributing, 4)
}

func TestFixedPricePerQuantityBelowActivation(t *testing.T) {
	s, err := NewFixedPricePerQuantity(4, money.MustFromString("20.00"))
	require.NoError(t, err)

	res, err := s.Apply(Match{Target: units(uuid.New(), "6.00", "6.00", "6.00")})
	require.NoError(t, err)
	require.True(t, res.Value.IsZero())
}

func TestFixedPricePerQuantityNeverNegative(t *testing.T) {
	s, err := NewFixedPricePerQuantity(2, money.MustFromString("20.00"))
	require.NoError(t, err)

	// Pack price above the units' natural cost yields zero, not a surcharge.
	res, err := s.Apply(Match{Target: units(uuid.New(), "5.00", "5.00")})
	require.NoError(t, err)
	require.True(t, res.Value.IsZero())
}

func TestFixedPricePerQuantityValidation(t *testing.T) {
	_, err := NewFixedPricePerQuantity(1, money.MustFromString("10.00"))
	require.ErrorIs(t, err, ErrInvalidStrategy)
	_, err = NewFixedPricePerQuantity(2, money.MustFromString("-1.00"))
	require.ErrorIs(t, err, ErrInvalidStrategy)
}
