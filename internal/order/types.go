// Package order defines the order-side domain types consumed by pricing:
// line items with immutable price snapshots, discounts, and the read-only
// snapshot handed to the promotion engine.
package order

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/foodflow/pos-api/internal/money"
)

var (
	// ErrInvalidQuantity is returned for non-positive line item quantities.
	ErrInvalidQuantity = errors.New("line item quantity must be positive")
	// ErrNegativePrice is returned when a snapshot price is below zero.
	ErrNegativePrice = errors.New("snapshot price cannot be negative")
)

// Extra is an add-on attached to a line item. Its unit price is a snapshot
// captured when the extra was added and never changes afterwards.
type Extra struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	UnitPrice money.Money `json:"unit_price"`
}

// LineItem is a snapshot-priced entry in an order. UnitPrice and the extras'
// prices are frozen at creation time regardless of later catalog edits; that
// freeze is what keeps historical totals auditable.
type LineItem struct {
	ID          uuid.UUID   `json:"id"`
	ProductID   uuid.UUID   `json:"product_id"`
	CategoryID  uuid.UUID   `json:"category_id"`
	ProductName string      `json:"product_name"`
	Quantity    int         `json:"quantity"`
	UnitPrice   money.Money `json:"unit_price"`
	Note        string      `json:"note,omitempty"`
	Extras      []Extra     `json:"extras,omitempty"`
}

// Validate checks the structural invariants of the snapshot line.
func (li LineItem) Validate() error {
	if li.Quantity <= 0 {
		return fmt.Errorf("item %s: %w", li.ID, ErrInvalidQuantity)
	}
	if li.UnitPrice.IsNegative() {
		return fmt.Errorf("item %s: %w", li.ID, ErrNegativePrice)
	}
	for _, ex := range li.Extras {
		if ex.UnitPrice.IsNegative() {
			return fmt.Errorf("item %s extra %s: %w", li.ID, ex.ID, ErrNegativePrice)
		}
	}
	return nil
}

// BaseTotal is the item's product subtotal excluding extras. Promotions only
// ever see this figure; extras are isolated from discounting.
func (li LineItem) BaseTotal() money.Money {
	return li.UnitPrice.MulInt(li.Quantity)
}

// ExtrasTotal is the per-line cost of the extras, multiplied by quantity.
func (li LineItem) ExtrasTotal() money.Money {
	total := money.Zero()
	for _, ex := range li.Extras {
		total = total.Add(ex.UnitPrice)
	}
	return total.MulInt(li.Quantity)
}

// LineTotal is base plus extras.
func (li LineItem) LineTotal() money.Money {
	return li.BaseTotal().Add(li.ExtrasTotal())
}

// Snapshot is the read-only pricing input: the order's items in insertion
// order plus any manual discounts already applied.
type Snapshot struct {
	OrderID         uuid.UUID
	LocalID         uuid.UUID
	Items           []LineItem
	ManualDiscounts []Discount
}

// Validate rejects malformed snapshots before any pricing runs.
func (s Snapshot) Validate() error {
	for _, li := range s.Items {
		if err := li.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Subtotal recomputes the pre-discount order subtotal from item truth,
// including extras. It is never read from a stored column.
func (s Snapshot) Subtotal() money.Money {
	total := money.Zero()
	for _, li := range s.Items {
		total = total.Add(li.LineTotal())
	}
	return total
}

// ItemsSubtotal is the subtotal excluding extras, used for promotion
// eligibility thresholds so add-ons never change a promotion's behaviour.
func (s Snapshot) ItemsSubtotal() money.Money {
	total := money.Zero()
	for _, li := range s.Items {
		total = total.Add(li.BaseTotal())
	}
	return total
}

// QuantityOf sums the quantity of the given product across all lines.
func (s Snapshot) QuantityOf(productID uuid.UUID) int {
	var qty int
	for _, li := range s.Items {
		if li.ProductID == productID {
			qty += li.Quantity
		}
	}
	return qty
}
