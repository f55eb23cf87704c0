package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/foodflow/pos-api/internal/money"
	"github.com/foodflow/pos-api/internal/order"
)

// OrdersRepo persists the order aggregate. Mutations run inside a
// transaction holding a row lock on the orders row, so concurrent edits to
// the same session serialize and each one reprices against committed truth.
type OrdersRepo struct {
	DB Querier
}

// Two unique constraints can reject an insert into orders: the per-venue
// order number and the partial index allowing one open session per table.
// Only the second one is a real conflict; a number collision means another
// open on a different table won the race for MAX(number)+1 and the insert
// just needs another attempt.
const (
	orderNumberConstraint = "orders_local_id_number_key"
	openTableConstraint   = "idx_orders_open_table"

	openNumberRetries = 3
)

// Open inserts a new order taking the next per-local sequential number.
// Returns ErrConflict when the table already has an open session.
func (r OrdersRepo) Open(ctx context.Context, tableID uuid.UUID, openedAt time.Time) (*order.Order, error) {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id := uuid.New()
	var lastErr error
	for attempt := 0; attempt <= openNumberRetries; attempt++ {
		var number int
		row := r.DB.QueryRow(ctx, `
			INSERT INTO orders (id, local_id, table_id, number, status, opened_at)
			VALUES ($1, $2, $3,
				(SELECT COALESCE(MAX(number), 0) + 1 FROM orders WHERE local_id = $2),
				'OPEN', $4)
			RETURNING number`,
			pgUUID(id), lid, pgUUID(tableID), openedAt)
		if err := row.Scan(&number); err != nil {
			switch uniqueConstraint(err) {
			case orderNumberConstraint:
				lastErr = err
				continue
			case "":
				return nil, err
			default:
				return nil, ErrConflict
			}
		}
		return &order.Order{
			ID:       id,
			LocalID:  fromPGUUID(lid),
			TableID:  tableID,
			Number:   number,
			Status:   order.StatusOpen,
			OpenedAt: openedAt,
		}, nil
	}
	return nil, fmt.Errorf("allocate order number: %w", lastErr)
}

// Get loads the full aggregate without locking.
func (r OrdersRepo) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.load(ctx, id, false)
}

// GetForUpdate loads the aggregate holding a row lock for the enclosing
// transaction. Callers must be inside pgx.BeginFunc.
func (r OrdersRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.load(ctx, id, true)
}

func (r OrdersRepo) load(ctx context.Context, id uuid.UUID, forUpdate bool) (*order.Order, error) {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	q := `
		SELECT table_id, number, status, opened_at, closed_at, payment,
		       final_subtotal, final_discount, final_total
		FROM orders
		WHERE id = $1 AND local_id = $2`
	if forUpdate {
		q += " FOR UPDATE"
	}

	o := &order.Order{ID: id, LocalID: fromPGUUID(lid)}
	var (
		tableID                pgtype.UUID
		status                 string
		closedAt               pgtype.Timestamptz
		payment                *string
		subtotal, disc, total  pgtype.Numeric
	)
	row := r.DB.QueryRow(ctx, q, pgUUID(id), lid)
	if err := row.Scan(&tableID, &o.Number, &status, &o.OpenedAt, &closedAt, &payment, &subtotal, &disc, &total); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	o.TableID = fromPGUUID(tableID)
	o.Status = order.Status(status)
	if closedAt.Valid {
		t := closedAt.Time
		o.ClosedAt = &t
	}
	if payment != nil {
		p := order.PaymentMethod(*payment)
		o.Payment = &p
	}
	if o.FinalSubtotal, err = numericToMoneyPtr(subtotal); err != nil {
		return nil, err
	}
	if o.FinalDiscount, err = numericToMoneyPtr(disc); err != nil {
		return nil, err
	}
	if o.FinalTotal, err = numericToMoneyPtr(total); err != nil {
		return nil, err
	}

	if o.Items, err = r.loadItems(ctx, id); err != nil {
		return nil, err
	}
	discounts, err := r.ListDiscounts(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, d := range discounts {
		if d.Origin == order.OriginManual {
			o.ManualDiscounts = append(o.ManualDiscounts, d)
		}
	}
	return o, nil
}

// loadItems returns lines ordered by seq, the identity column assigned at
// insert. Line order is part of the aggregate: strategies break price ties by
// insertion order, so a reload must see the same sequence every pass saw.
func (r OrdersRepo) loadItems(ctx context.Context, orderID uuid.UUID) ([]order.LineItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT i.id, i.product_id, i.category_id, i.product_name, i.quantity, i.unit_price, i.note,
		       e.id, e.name, e.unit_price
		FROM order_items i
		LEFT JOIN order_item_extras e ON e.item_id = i.id
		WHERE i.order_id = $1
		ORDER BY i.seq, e.id`, pgUUID(orderID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []order.LineItem
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			itemID, productID, categoryID pgtype.UUID
			name, note                    string
			qty                           int
			unitPrice                     pgtype.Numeric
			extraID                       pgtype.UUID
			extraName                     *string
			extraPrice                    pgtype.Numeric
		)
		if err := rows.Scan(&itemID, &productID, &categoryID, &name, &qty, &unitPrice, &note,
			&extraID, &extraName, &extraPrice); err != nil {
			return nil, err
		}
		id := fromPGUUID(itemID)
		pos, seen := index[id]
		if !seen {
			price, err := numericToMoney(unitPrice)
			if err != nil {
				return nil, err
			}
			items = append(items, order.LineItem{
				ID:          id,
				ProductID:   fromPGUUID(productID),
				CategoryID:  fromPGUUID(categoryID),
				ProductName: name,
				Quantity:    qty,
				UnitPrice:   price,
				Note:        note,
			})
			pos = len(items) - 1
			index[id] = pos
		}
		if extraID.Valid && extraName != nil {
			price, err := numericToMoney(extraPrice)
			if err != nil {
				return nil, err
			}
			items[pos].Extras = append(items[pos].Extras, order.Extra{
				ID:        fromPGUUID(extraID),
				Name:      *extraName,
				UnitPrice: price,
			})
		}
	}
	return items, rows.Err()
}

// InsertItem appends a line to an order.
func (r OrdersRepo) InsertItem(ctx context.Context, orderID uuid.UUID, item order.LineItem) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO order_items (id, order_id, product_id, category_id, product_name, quantity, unit_price, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		pgUUID(item.ID), pgUUID(orderID), pgUUID(item.ProductID), pgUUID(item.CategoryID),
		item.ProductName, item.Quantity, moneyParam(item.UnitPrice), item.Note)
	return err
}

// UpdateItemQuantity rewrites a line's quantity.
func (r OrdersRepo) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, qty int) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE order_items SET quantity = $2 WHERE id = $1`, pgUUID(itemID), qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteItem removes a line; extras cascade.
func (r OrdersRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, `
		DELETE FROM order_items WHERE id = $1`, pgUUID(itemID))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertExtra attaches an add-on row to a line.
func (r OrdersRepo) InsertExtra(ctx context.Context, itemID uuid.UUID, extra order.Extra) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO order_item_extras (id, item_id, name, unit_price)
		VALUES ($1, $2, $3, $4)`,
		pgUUID(extra.ID), pgUUID(itemID), extra.Name, moneyParam(extra.UnitPrice))
	return err
}

// ReplaceDiscounts rewrites the order's full discount set. Repricing always
// recomputes every layer, so the stored rows are replaced wholesale.
func (r OrdersRepo) ReplaceDiscounts(ctx context.Context, orderID uuid.UUID, discounts []order.Discount) error {
	if _, err := r.DB.Exec(ctx, `
		DELETE FROM order_discounts WHERE order_id = $1`, pgUUID(orderID)); err != nil {
		return err
	}
	for _, d := range discounts {
		var percent, amount *string
		if d.Percent != nil {
			s := d.Percent.String()
			percent = &s
		}
		if d.Amount != nil {
			s := d.Amount.String()
			amount = &s
		}
		if _, err := r.DB.Exec(ctx, `
			INSERT INTO order_discounts (id, order_id, origin, scope, promotion_id, item_id, percent, amount, value, applied_at, applied_by, reason)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			pgUUID(d.ID), pgUUID(orderID), string(d.Origin), string(d.Scope),
			pgUUIDPtr(d.PromotionID), pgUUIDPtr(d.ItemID), percent, amount,
			moneyParam(d.Value), d.AppliedAt, pgUUIDPtr(d.AppliedBy), d.Reason); err != nil {
			return fmt.Errorf("insert discount %s: %w", d.ID, err)
		}
	}
	return nil
}

// ListDiscounts returns the order's stored discount rows, oldest first.
func (r OrdersRepo) ListDiscounts(ctx context.Context, orderID uuid.UUID) ([]order.Discount, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, origin, scope, promotion_id, item_id, percent, amount, value, applied_at, applied_by, reason
		FROM order_discounts
		WHERE order_id = $1
		ORDER BY applied_at, id`, pgUUID(orderID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []order.Discount
	for rows.Next() {
		var (
			id, promotionID, itemID, appliedBy pgtype.UUID
			origin, scope, reason              string
			percent, amount, value             pgtype.Numeric
			d                                  order.Discount
		)
		if err := rows.Scan(&id, &origin, &scope, &promotionID, &itemID, &percent, &amount, &value, &d.AppliedAt, &appliedBy, &reason); err != nil {
			return nil, err
		}
		d.ID = fromPGUUID(id)
		d.OrderID = orderID
		d.Origin = order.Origin(origin)
		d.Scope = order.Scope(scope)
		d.PromotionID = fromPGUUIDPtr(promotionID)
		d.ItemID = fromPGUUIDPtr(itemID)
		d.AppliedBy = fromPGUUIDPtr(appliedBy)
		d.Reason = reason
		if percent.Valid {
			m, err := numericToMoney(percent)
			if err != nil {
				return nil, err
			}
			p, err := money.NewPercent(m.Decimal())
			if err != nil {
				return nil, err
			}
			d.Percent = &p
		}
		if d.Amount, err = numericToMoneyPtr(amount); err != nil {
			return nil, err
		}
		if d.Value, err = numericToMoney(value); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Close freezes the accounting snapshot on the orders row.
func (r OrdersRepo) Close(ctx context.Context, o *order.Order) error {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return err
	}
	tag, err := r.DB.Exec(ctx, `
		UPDATE orders
		SET status = 'CLOSED', closed_at = $3, payment = $4,
		    final_subtotal = $5, final_discount = $6, final_total = $7
		WHERE id = $1 AND local_id = $2 AND status = 'OPEN'`,
		pgUUID(o.ID), lid, o.ClosedAt, string(*o.Payment),
		moneyParam(*o.FinalSubtotal), moneyParam(*o.FinalDiscount), moneyParam(*o.FinalTotal))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Reopen reverts a closed order to OPEN, clearing the frozen snapshot.
func (r OrdersRepo) Reopen(ctx context.Context, id uuid.UUID) error {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return err
	}
	tag, err := r.DB.Exec(ctx, `
		UPDATE orders
		SET status = 'OPEN', closed_at = NULL, payment = NULL,
		    final_subtotal = NULL, final_discount = NULL, final_total = NULL
		WHERE id = $1 AND local_id = $2 AND status = 'CLOSED'`, pgUUID(id), lid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByTable returns summaries of orders for a table, newest first.
func (r OrdersRepo) ListByTable(ctx context.Context, tableID uuid.UUID, limit int) ([]*order.Order, error) {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id FROM orders
		WHERE local_id = $1 AND table_id = $2
		ORDER BY opened_at DESC
		LIMIT $3`, lid, pgUUID(tableID), limit)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, limit)
	for rows.Next() {
		var id pgtype.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, fromPGUUID(id))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*order.Order, 0, len(ids))
	for _, id := range ids {
		o, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}
