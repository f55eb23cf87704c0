package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/foodflow/pos-api/internal/money"
)

// Status is the order lifecycle state.
type Status string

// PaymentMethod is how a closed order was settled.
type PaymentMethod string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"

	PaymentCash     PaymentMethod = "CASH"
	PaymentCard     PaymentMethod = "CARD"
	PaymentTransfer PaymentMethod = "TRANSFER"
	PaymentQR       PaymentMethod = "QR"
)

var (
	// ErrOrderClosed is returned when mutating an order that is not open.
	ErrOrderClosed = errors.New("order is closed")
	// ErrOrderOpen is returned when an operation requires a closed order.
	ErrOrderOpen = errors.New("order is still open")
	// ErrItemNotFound is returned when an item id is not part of the order.
	ErrItemNotFound = errors.New("item not found in order")
)

// Order is the aggregate holding one dining session's items and discounts.
// Items are ground truth; discounts are layers on top; the live total is
// always a pure function of both. Closing freezes an accounting snapshot so
// closed orders stay immutable even if catalog or promotion rules change.
type Order struct {
	ID       uuid.UUID `json:"id"`
	LocalID  uuid.UUID `json:"local_id"`
	TableID  uuid.UUID `json:"table_id"`
	Number   int       `json:"number"`
	Status   Status    `json:"status"`
	OpenedAt time.Time `json:"opened_at"`
	ClosedAt *time.Time `json:"closed_at,omitempty"`
	Payment  *PaymentMethod `json:"payment,omitempty"`

	Items           []LineItem `json:"items"`
	ManualDiscounts []Discount `json:"manual_discounts"`

	// Frozen on close; nil while open.
	FinalSubtotal *money.Money `json:"final_subtotal,omitempty"`
	FinalDiscount *money.Money `json:"final_discount,omitempty"`
	FinalTotal    *money.Money `json:"final_total,omitempty"`
}

// Open starts a new order for a table with a per-local sequential number.
func Open(localID, tableID uuid.UUID, number int, openedAt time.Time) (*Order, error) {
	if number <= 0 {
		return nil, fmt.Errorf("order number must be positive, got %d", number)
	}
	return &Order{
		ID:       uuid.New(),
		LocalID:  localID,
		TableID:  tableID,
		Number:   number,
		Status:   StatusOpen,
		OpenedAt: openedAt,
	}, nil
}

// EnsureOpen guards mutations: only open orders accept changes.
func (o *Order) EnsureOpen() error {
	if o.Status != StatusOpen {
		return fmt.Errorf("order %d: %w", o.Number, ErrOrderClosed)
	}
	return nil
}

// AddItem appends a snapshot-priced line. The same product may appear on
// multiple lines when notes or extras differ.
func (o *Order) AddItem(item LineItem) error {
	if err := o.EnsureOpen(); err != nil {
		return err
	}
	if err := item.Validate(); err != nil {
		return err
	}
	o.Items = append(o.Items, item)
	return nil
}

// SetItemQuantity updates a line's quantity. Zero removes the line. The
// caller must reprice afterwards; stored promotion discounts for the order
// are recomputed from scratch on every pass.
func (o *Order) SetItemQuantity(itemID uuid.UUID, qty int) error {
	if err := o.EnsureOpen(); err != nil {
		return err
	}
	if qty < 0 {
		return fmt.Errorf("quantity cannot be negative, got %d", qty)
	}
	for i := range o.Items {
		if o.Items[i].ID != itemID {
			continue
		}
		if qty == 0 {
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			return nil
		}
		o.Items[i].Quantity = qty
		return nil
	}
	return fmt.Errorf("item %s: %w", itemID, ErrItemNotFound)
}

// RemoveItem deletes a line from the order.
func (o *Order) RemoveItem(itemID uuid.UUID) error {
	return o.SetItemQuantity(itemID, 0)
}

// AddExtra attaches an add-on to an existing line.
func (o *Order) AddExtra(itemID uuid.UUID, extra Extra) error {
	if err := o.EnsureOpen(); err != nil {
		return err
	}
	if extra.UnitPrice.IsNegative() {
		return ErrNegativePrice
	}
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			o.Items[i].Extras = append(o.Items[i].Extras, extra)
			return nil
		}
	}
	return fmt.Errorf("item %s: %w", itemID, ErrItemNotFound)
}

// ApplyManualDiscount records a manual discount layer on the order.
func (o *Order) ApplyManualDiscount(d Discount) error {
	if err := o.EnsureOpen(); err != nil {
		return err
	}
	if d.Origin != OriginManual {
		return errors.New("only manual discounts may be applied directly to an order")
	}
	o.ManualDiscounts = append(o.ManualDiscounts, d)
	return nil
}

// Snapshot produces the read-only pricing input for the current state.
func (o *Order) Snapshot() Snapshot {
	items := make([]LineItem, len(o.Items))
	copy(items, o.Items)
	manual := make([]Discount, len(o.ManualDiscounts))
	copy(manual, o.ManualDiscounts)
	return Snapshot{
		OrderID:         o.ID,
		LocalID:         o.LocalID,
		Items:           items,
		ManualDiscounts: manual,
	}
}

// Close settles the order, freezing the accounting snapshot.
func (o *Order) Close(subtotal, discount, total money.Money, payment PaymentMethod, closedAt time.Time) error {
	if err := o.EnsureOpen(); err != nil {
		return err
	}
	o.Status = StatusClosed
	o.ClosedAt = &closedAt
	o.Payment = &payment
	o.FinalSubtotal = &subtotal
	o.FinalDiscount = &discount
	o.FinalTotal = &total
	return nil
}

// Reopen reverts a closed order to the open state, discarding the frozen
// snapshot. Used for same-day corrections; the caller audits the action.
func (o *Order) Reopen() error {
	if o.Status != StatusClosed {
		return ErrOrderOpen
	}
	o.Status = StatusOpen
	o.ClosedAt = nil
	o.Payment = nil
	o.FinalSubtotal = nil
	o.FinalDiscount = nil
	o.FinalTotal = nil
	return nil
}
