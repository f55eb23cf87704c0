package promo

import (
	"errors"
	"fmt"
	"sort"

	"github.com/foodflow/pos-api/internal/money"
)

// StrategyKind tags the closed set of benefit strategies.
type StrategyKind string

const (
	StrategyDirectDiscount        StrategyKind = "DIRECT_DISCOUNT"
	StrategyFixedQuantity         StrategyKind = "FIXED_QUANTITY"
	StrategyConditionalCombo      StrategyKind = "CONDITIONAL_COMBO"
	StrategyFixedPricePerQuantity StrategyKind = "FIXED_PRICE_PER_QUANTITY"
)

// DiscountMode selects between percentage and fixed-amount direct discounts.
type DiscountMode string

const (
	ModePercentage  DiscountMode = "PERCENTAGE"
	ModeFixedAmount DiscountMode = "FIXED_AMOUNT"
)

// ErrInvalidStrategy is returned for malformed strategy parameters.
var ErrInvalidStrategy = errors.New("invalid strategy configuration")

// Result is a computed benefit: the discount value and the matched units
// that earned it. The engine uses the contributing units to decide whether
// the discount attributes to a single item line or to the order total.
type Result struct {
	Value        money.Money
	Contributing []Unit
}

// Strategy computes a discount amount from a promotion's resolved scope.
// The implementation set is closed, mirroring the fixed strategy catalog.
type Strategy interface {
	Kind() StrategyKind
	Apply(m Match) (Result, error)
	sealedStrategy()
}

// DirectDiscount takes a percentage or a one-time fixed amount off the
// target items' subtotal.
type DirectDiscount struct {
	Mode    DiscountMode  `json:"mode"`
	Percent money.Percent `json:"percent,omitzero"`
	Amount  money.Money   `json:"amount,omitzero"`
}

// NewDirectPercentDiscount builds a PERCENTAGE-mode direct discount.
func NewDirectPercentDiscount(p money.Percent) (DirectDiscount, error) {
	if p.IsZero() {
		return DirectDiscount{}, fmt.Errorf("%w: zero percent grants no benefit", ErrInvalidStrategy)
	}
	return DirectDiscount{Mode: ModePercentage, Percent: p}, nil
}

// NewDirectAmountDiscount builds a FIXED_AMOUNT-mode direct discount.
func NewDirectAmountDiscount(amount money.Money) (DirectDiscount, error) {
	if amount.IsNegative() || amount.IsZero() {
		return DirectDiscount{}, fmt.Errorf("%w: fixed amount must be positive", ErrInvalidStrategy)
	}
	return DirectDiscount{Mode: ModeFixedAmount, Amount: amount}, nil
}

// Kind implements Strategy.
func (s DirectDiscount) Kind() StrategyKind { return StrategyDirectDiscount }

func (s DirectDiscount) sealedStrategy() {}

// Apply implements Strategy.
func (s DirectDiscount) Apply(m Match) (Result, error) {
	base := unitSubtotal(m.Target)
	if base.IsZero() {
		return Result{Value: money.Zero()}, nil
	}
	var value money.Money
	switch s.Mode {
	case ModePercentage:
		value = base.ApplyPercent(s.Percent)
	case ModeFixedAmount:
		value = s.Amount.Min(base)
	default:
		return Result{}, fmt.Errorf("%w: unknown discount mode %q", ErrInvalidStrategy, s.Mode)
	}
	return Result{Value: value.ClampNonNegative(), Contributing: m.Target}, nil
}

// FixedQuantity is the NxM promotion (buy 2 pay 1). Identical target
// products are grouped with units ordered by unit price descending, ties
// broken by insertion order; every complete group of BuyQty units makes the
// cheapest BuyQty-PayQty units free. Partial groups earn nothing.
type FixedQuantity struct {
	BuyQty int `json:"buy_qty"`
	PayQty int `json:"pay_qty"`
}

// NewFixedQuantity validates BuyQty > PayQty > 0.
func NewFixedQuantity(buyQty, payQty int) (FixedQuantity, error) {
	if payQty <= 0 || buyQty <= payQty {
		return FixedQuantity{}, fmt.Errorf("%w: need buy qty > pay qty > 0, got %dx%d", ErrInvalidStrategy, buyQty, payQty)
	}
	return FixedQuantity{BuyQty: buyQty, PayQty: payQty}, nil
}

// Kind implements Strategy.
func (s FixedQuantity) Kind() StrategyKind { return StrategyFixedQuantity }

func (s FixedQuantity) sealedStrategy() {}

// Apply implements Strategy.
func (s FixedQuantity) Apply(m Match) (Result, error) {
	value := money.Zero()
	var contributing []Unit
	for _, units := range groupByProduct(m.Target) {
		sorted := make([]Unit, len(units))
		copy(sorted, units)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].UnitPrice.Cmp(sorted[j].UnitPrice) > 0
		})
		groups := len(sorted) / s.BuyQty
		for g := 0; g < groups; g++ {
			chunk := sorted[g*s.BuyQty : (g+1)*s.BuyQty]
			// Within a price-descending chunk the cheapest units sit at the tail.
			free := chunk[s.PayQty:]
			for _, u := range free {
				value = value.Add(u.UnitPrice)
				contributing = append(contributing, u)
			}
		}
	}
	return Result{Value: value, Contributing: contributing}, nil
}

// ConditionalCombo grants a percentage off the target subtotal once the
// trigger-scope items collectively reach a minimum unit count.
type ConditionalCombo struct {
	MinTriggerQty  int           `json:"min_trigger_qty"`
	BenefitPercent money.Percent `json:"benefit_percent"`
}

// NewConditionalCombo validates the trigger quantity and benefit percentage.
func NewConditionalCombo(minTriggerQty int, benefit money.Percent) (ConditionalCombo, error) {
	if minTriggerQty < 1 {
		return ConditionalCombo{}, fmt.Errorf("%w: min trigger qty must be at least 1", ErrInvalidStrategy)
	}
	if benefit.IsZero() {
		return ConditionalCombo{}, fmt.Errorf("%w: zero benefit percent", ErrInvalidStrategy)
	}
	return ConditionalCombo{MinTriggerQty: minTriggerQty, BenefitPercent: benefit}, nil
}

// Kind implements Strategy.
func (s ConditionalCombo) Kind() StrategyKind { return StrategyConditionalCombo }

func (s ConditionalCombo) sealedStrategy() {}

// Apply implements Strategy.
func (s ConditionalCombo) Apply(m Match) (Result, error) {
	if len(m.Trigger) < s.MinTriggerQty {
		return Result{Value: money.Zero()}, nil
	}
	base := unitSubtotal(m.Target)
	if base.IsZero() {
		return Result{Value: money.Zero()}, nil
	}
	return Result{Value: base.ApplyPercent(s.BenefitPercent), Contributing: m.Target}, nil
}

// FixedPricePerQuantity is the pack-price promotion: once the target scope
// reaches ActivationQty units, the cheapest ActivationQty units are sold for
// PackPrice in total. Units beyond the activation count are priced normally.
type FixedPricePerQuantity struct {
	ActivationQty int         `json:"activation_qty"`
	PackPrice     money.Money `json:"pack_price"`
}

// NewFixedPricePerQuantity validates ActivationQty >= 2 and a non-negative pack price.
func NewFixedPricePerQuantity(activationQty int, packPrice money.Money) (FixedPricePerQuantity, error) {
	if activationQty < 2 {
		return FixedPricePerQuantity{}, fmt.Errorf("%w: activation qty must be at least 2", ErrInvalidStrategy)
	}
	if packPrice.IsNegative() {
		return FixedPricePerQuantity{}, fmt.Errorf("%w: pack price cannot be negative", ErrInvalidStrategy)
	}
	return FixedPricePerQuantity{ActivationQty: activationQty, PackPrice: packPrice}, nil
}

// Kind implements Strategy.
func (s FixedPricePerQuantity) Kind() StrategyKind { return StrategyFixedPricePerQuantity }

func (s FixedPricePerQuantity) sealedStrategy() {}

// Apply implements Strategy.
func (s FixedPricePerQuantity) Apply(m Match) (Result, error) {
	if len(m.Target) < s.ActivationQty {
		return Result{Value: money.Zero()}, nil
	}
	sorted := make([]Unit, len(m.Target))
	copy(sorted, m.Target)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UnitPrice.Cmp(sorted[j].UnitPrice) < 0
	})
	pack := sorted[:s.ActivationQty]
	value := unitSubtotal(pack).Sub(s.PackPrice).ClampNonNegative()
	return Result{Value: value, Contributing: pack}, nil
}

func unitSubtotal(units []Unit) money.Money {
	total := money.Zero()
	for _, u := range units {
		total = total.Add(u.UnitPrice)
	}
	return total
}

// groupByProduct preserves first-seen product order so tie-breaking stays
// deterministic across passes.
func groupByProduct(units []Unit) [][]Unit {
	index := make(map[string]int, len(units))
	var groups [][]Unit
	for _, u := range units {
		key := u.ProductID.String()
		if i, ok := index[key]; ok {
			groups[i] = append(groups[i], u)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, []Unit{u})
	}
	return groups
}
