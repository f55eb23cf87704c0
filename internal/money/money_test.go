package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestApplyPercentRoundsHalfUp(t *testing.T) {
	base := MustFromString("10.01")
	// 10.01 * 2.5% = 0.25025 -> rounds to 0.25
	got := base.ApplyPercent(MustPercent("2.5"))
	require.Equal(t, "0.25", got.String())

	// 0.05 * 50% = 0.025 -> half-up to 0.03
	got = MustFromString("0.05").ApplyPercent(MustPercent("50"))
	require.Equal(t, "0.03", got.String())
}

func TestPercentRange(t *testing.T) {
	_, err := NewPercent(decimal.NewFromInt(101))
	require.ErrorIs(t, err, ErrPercentOutOfRange)

	_, err = NewPercent(decimal.NewFromInt(-1))
	require.ErrorIs(t, err, ErrPercentOutOfRange)

	p, err := NewPercent(decimal.NewFromInt(100))
	require.NoError(t, err)
	require.Equal(t, "100", p.String())

	_, err = NewPercent(decimal.Zero)
	require.NoError(t, err)
}

func TestClampNonNegative(t *testing.T) {
	neg := Zero().Sub(MustFromString("5.00"))
	require.True(t, neg.IsNegative())
	require.True(t, neg.ClampNonNegative().IsZero())
	require.Equal(t, "1.50", MustFromString("1.50").ClampNonNegative().String())
}

func TestArithmetic(t *testing.T) {
	a := MustFromString("1000.00")
	require.Equal(t, "2000.00", a.MulInt(2).String())
	require.Equal(t, "1500.00", a.Add(MustFromString("500.00")).String())
	require.Equal(t, "500.00", a.Sub(MustFromString("500.00")).String())
	require.Equal(t, "500.00", a.Min(MustFromString("500.00")).String())
	require.Equal(t, 1, a.Cmp(Zero()))
}

func TestJSONRoundTrip(t *testing.T) {
	m := MustFromString("12.30")
	data, err := m.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, `"12.30"`, string(data))

	var parsed Money
	require.NoError(t, parsed.UnmarshalJSON(data))
	require.True(t, parsed.Equal(m))

	require.NoError(t, parsed.UnmarshalJSON([]byte("7.5")))
	require.Equal(t, "7.50", parsed.String())
}

func TestFromCents(t *testing.T) {
	require.Equal(t, "12.34", FromCents(1234).String())
	require.Equal(t, "-0.05", FromCents(-5).String())
}
