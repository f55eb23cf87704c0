// Package money provides exact-decimal monetary and percentage primitives.
//
// Every monetary computation in the system goes through this package so that
// rounding happens in exactly one place: half-up, two fractional digits,
// applied at every computation boundary. Amounts are never represented as
// binary floating point.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the fixed number of fractional digits carried by Money.
const Scale = 2

// ErrPercentOutOfRange is returned when a percentage falls outside [0, 100].
var ErrPercentOutOfRange = errors.New("percent out of range [0, 100]")

var hundred = decimal.NewFromInt(100)

// Money is a fixed-scale decimal amount. The zero value is zero currency units.
type Money struct {
	d decimal.Decimal
}

// Zero returns a zero amount.
func Zero() Money {
	return Money{}
}

// FromDecimal builds a Money from a decimal, rounding half-up to cents.
func FromDecimal(d decimal.Decimal) Money {
	return Money{d: d.Round(Scale)}
}

// FromString parses a decimal string such as "1299.50".
func FromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Money{d: d.Round(Scale)}, nil
}

// MustFromString parses a decimal string and panics on failure. Test helper.
func MustFromString(s string) Money {
	m, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromCents builds a Money from an amount expressed in minor units.
func FromCents(cents int64) Money {
	return Money{d: decimal.New(cents, -Scale)}
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{d: m.d.Add(other.d)}
}

// Sub returns m - other. The result may be negative; callers that must not go
// below zero use ClampNonNegative.
func (m Money) Sub(other Money) Money {
	return Money{d: m.d.Sub(other.d)}
}

// MulInt returns m multiplied by an integer quantity.
func (m Money) MulInt(qty int) Money {
	return Money{d: m.d.Mul(decimal.NewFromInt(int64(qty)))}
}

// ApplyPercent returns p% of m, rounded half-up to cents.
func (m Money) ApplyPercent(p Percent) Money {
	return Money{d: m.d.Mul(p.value).Div(hundred).Round(Scale)}
}

// Cmp compares two amounts: -1 if m < other, 0 if equal, +1 if m > other.
func (m Money) Cmp(other Money) int {
	return m.d.Cmp(other.d)
}

// Equal reports whether two amounts are numerically equal.
func (m Money) Equal(other Money) bool {
	return m.d.Cmp(other.d) == 0
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.d.IsZero()
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.d.IsNegative()
}

// Min returns the smaller of the two amounts.
func (m Money) Min(other Money) Money {
	if m.d.Cmp(other.d) <= 0 {
		return m
	}
	return other
}

// ClampNonNegative floors the amount at zero.
func (m Money) ClampNonNegative() Money {
	if m.d.IsNegative() {
		return Zero()
	}
	return m
}

// Decimal exposes the underlying decimal for persistence mapping.
func (m Money) Decimal() decimal.Decimal {
	return m.d
}

// String renders the amount with exactly two fractional digits.
func (m Money) String() string {
	return m.d.StringFixed(Scale)
}

// MarshalJSON renders the amount as a JSON string to avoid float coercion.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts either a JSON string or a bare number.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := FromString(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Percent is a percentage validated to the inclusive range [0, 100].
type Percent struct {
	value decimal.Decimal
}

// NewPercent validates and builds a Percent.
func NewPercent(d decimal.Decimal) (Percent, error) {
	if d.IsNegative() || d.Cmp(hundred) > 0 {
		return Percent{}, fmt.Errorf("%w: %s", ErrPercentOutOfRange, d)
	}
	return Percent{value: d}, nil
}

// PercentFromString parses and validates a percentage string.
func PercentFromString(s string) (Percent, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Percent{}, fmt.Errorf("parse percent %q: %w", s, err)
	}
	return NewPercent(d)
}

// MustPercent parses a percentage string and panics on failure. Test helper.
func MustPercent(s string) Percent {
	p, err := PercentFromString(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Decimal exposes the underlying decimal value.
func (p Percent) Decimal() decimal.Decimal {
	return p.value
}

// IsZero reports whether the percentage is exactly zero.
func (p Percent) IsZero() bool {
	return p.value.IsZero()
}

// String renders the percentage without a trailing symbol.
func (p Percent) String() string {
	return p.value.String()
}

// MarshalJSON renders the percentage as a JSON string.
func (p Percent) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// UnmarshalJSON accepts either a JSON string or a bare number and revalidates
// the [0, 100] range.
func (p *Percent) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := PercentFromString(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
