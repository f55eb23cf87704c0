package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/foodflow/pos-api/internal/money"
)

// Origin distinguishes automatic promotion discounts from manual ones.
type Origin string

// Scope tells whether a discount is attributed to one item line or the total.
type Scope string

const (
	OriginPromotion Origin = "PROMOTION"
	OriginManual    Origin = "MANUAL"

	ScopeItem  Scope = "ITEM"
	ScopeTotal Scope = "TOTAL"
)

var (
	// ErrDiscountOrder is returned when a discount lacks its owning order.
	ErrDiscountOrder = errors.New("discount requires an owning order")
	// ErrDiscountPromotionRef enforces "promotion ref present iff origin is PROMOTION".
	ErrDiscountPromotionRef = errors.New("promotion reference must be set exactly when origin is PROMOTION")
	// ErrDiscountItemRef enforces "item ref present iff scope is ITEM".
	ErrDiscountItemRef = errors.New("item reference must be set exactly when scope is ITEM")
	// ErrDiscountActor is returned when a manual discount has no acting user.
	ErrDiscountActor = errors.New("manual discount requires the acting user")
	// ErrDiscountValue is returned for a negative frozen discount amount.
	ErrDiscountValue = errors.New("discount amount cannot be negative")
)

// Discount unifies every negative adjustment to an order's total. The Value
// field is the frozen monetary amount captured at application time; it is
// stored explicitly and never re-derived, so later edits to the promotion
// that produced it cannot rewrite history.
type Discount struct {
	ID          uuid.UUID    `json:"id"`
	OrderID     uuid.UUID    `json:"order_id"`
	Origin      Origin       `json:"origin"`
	Scope       Scope        `json:"scope"`
	PromotionID *uuid.UUID   `json:"promotion_id,omitempty"`
	ItemID      *uuid.UUID   `json:"item_id,omitempty"`
	Percent     *money.Percent `json:"percent,omitempty"`
	Amount      *money.Money `json:"amount,omitempty"`
	Value       money.Money  `json:"value"`
	AppliedAt   time.Time    `json:"applied_at"`
	AppliedBy   *uuid.UUID   `json:"applied_by,omitempty"`
	Reason      string       `json:"reason,omitempty"`
}

func (d Discount) validate() error {
	if d.OrderID == uuid.Nil {
		return ErrDiscountOrder
	}
	switch d.Origin {
	case OriginPromotion:
		if d.PromotionID == nil || *d.PromotionID == uuid.Nil {
			return ErrDiscountPromotionRef
		}
	case OriginManual:
		if d.PromotionID != nil {
			return ErrDiscountPromotionRef
		}
		if d.AppliedBy == nil || *d.AppliedBy == uuid.Nil {
			return ErrDiscountActor
		}
	default:
		return fmt.Errorf("unknown discount origin %q", d.Origin)
	}
	switch d.Scope {
	case ScopeItem:
		if d.ItemID == nil || *d.ItemID == uuid.Nil {
			return ErrDiscountItemRef
		}
	case ScopeTotal:
		if d.ItemID != nil {
			return ErrDiscountItemRef
		}
	default:
		return fmt.Errorf("unknown discount scope %q", d.Scope)
	}
	if d.Value.IsNegative() {
		return ErrDiscountValue
	}
	if d.Amount != nil && d.Amount.IsNegative() {
		return ErrDiscountValue
	}
	return nil
}

// NewPromotionDiscount freezes an automatic discount produced by the
// evaluation engine. itemID is nil for TOTAL-scope discounts.
func NewPromotionDiscount(orderID, promotionID uuid.UUID, itemID *uuid.UUID, value money.Money, appliedAt time.Time) (Discount, error) {
	scope := ScopeTotal
	if itemID != nil {
		scope = ScopeItem
	}
	d := Discount{
		ID:          uuid.New(),
		OrderID:     orderID,
		Origin:      OriginPromotion,
		Scope:       scope,
		PromotionID: &promotionID,
		ItemID:      itemID,
		Value:       value,
		AppliedAt:   appliedAt,
	}
	if err := d.validate(); err != nil {
		return Discount{}, err
	}
	return d, nil
}

// ManualSpec carries the caller-supplied parameters of a manual discount.
// Exactly one of Percent or Amount must be set.
type ManualSpec struct {
	Percent   *money.Percent
	Amount    *money.Money
	AppliedBy uuid.UUID
	Reason    string
}

// NewManualDiscount validates and builds a MANUAL-origin, TOTAL-scope
// discount. Its frozen Value is computed later by the pricing service
// against the post-promotion base, so it starts at zero here.
func NewManualDiscount(orderID uuid.UUID, spec ManualSpec, appliedAt time.Time) (Discount, error) {
	if (spec.Percent == nil) == (spec.Amount == nil) {
		return Discount{}, errors.New("manual discount requires exactly one of percent or amount")
	}
	actor := spec.AppliedBy
	d := Discount{
		ID:        uuid.New(),
		OrderID:   orderID,
		Origin:    OriginManual,
		Scope:     ScopeTotal,
		Percent:   spec.Percent,
		Amount:    spec.Amount,
		AppliedAt: appliedAt,
		AppliedBy: &actor,
		Reason:    spec.Reason,
	}
	if err := d.validate(); err != nil {
		return Discount{}, err
	}
	return d, nil
}
