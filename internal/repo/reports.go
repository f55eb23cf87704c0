package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/foodflow/pos-api/internal/money"
)

// DailyTotals aggregates the closed orders of one business day.
type DailyTotals struct {
	OrdersClosed  int
	GrossSubtotal money.Money
	TotalDiscount money.Money
	NetTotal      money.Money
}

// PaymentBucket is the settled amount for one payment method.
type PaymentBucket struct {
	Method string
	Orders int
	Total  money.Money
}

// DiscountBucket is the discount volume for one origin.
type DiscountBucket struct {
	Origin string
	Count  int
	Total  money.Money
}

// ReportsRepo runs read-only aggregate queries over closed orders.
type ReportsRepo struct {
	DB Querier
}

// Totals sums the frozen accounting snapshots of orders closed in [from, to).
func (r ReportsRepo) Totals(ctx context.Context, from, to time.Time) (DailyTotals, error) {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return DailyTotals{}, err
	}
	var (
		count                 int
		subtotal, disc, total pgtype.Numeric
	)
	row := r.DB.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(final_subtotal), 0),
		       COALESCE(SUM(final_discount), 0),
		       COALESCE(SUM(final_total), 0)
		FROM orders
		WHERE local_id = $1 AND status = 'CLOSED'
		  AND closed_at >= $2 AND closed_at < $3`, lid, from, to)
	if err := row.Scan(&count, &subtotal, &disc, &total); err != nil {
		return DailyTotals{}, err
	}
	out := DailyTotals{OrdersClosed: count}
	if out.GrossSubtotal, err = numericToMoney(subtotal); err != nil {
		return DailyTotals{}, err
	}
	if out.TotalDiscount, err = numericToMoney(disc); err != nil {
		return DailyTotals{}, err
	}
	if out.NetTotal, err = numericToMoney(total); err != nil {
		return DailyTotals{}, err
	}
	return out, nil
}

// ByPayment splits the day's settled totals per payment method.
func (r ReportsRepo) ByPayment(ctx context.Context, from, to time.Time) ([]PaymentBucket, error) {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.Query(ctx, `
		SELECT payment, COUNT(*), COALESCE(SUM(final_total), 0)
		FROM orders
		WHERE local_id = $1 AND status = 'CLOSED'
		  AND closed_at >= $2 AND closed_at < $3
		GROUP BY payment
		ORDER BY payment`, lid, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PaymentBucket
	for rows.Next() {
		var (
			b     PaymentBucket
			total pgtype.Numeric
		)
		if err := rows.Scan(&b.Method, &b.Orders, &total); err != nil {
			return nil, err
		}
		if b.Total, err = numericToMoney(total); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ByDiscountOrigin splits the day's granted discounts between promotions and
// manual adjustments.
func (r ReportsRepo) ByDiscountOrigin(ctx context.Context, from, to time.Time) ([]DiscountBucket, error) {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.Query(ctx, `
		SELECT d.origin, COUNT(*), COALESCE(SUM(d.value), 0)
		FROM order_discounts d
		JOIN orders o ON o.id = d.order_id
		WHERE o.local_id = $1 AND o.status = 'CLOSED'
		  AND o.closed_at >= $2 AND o.closed_at < $3
		GROUP BY d.origin
		ORDER BY d.origin`, lid, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DiscountBucket
	for rows.Next() {
		var (
			b     DiscountBucket
			total pgtype.Numeric
		)
		if err := rows.Scan(&b.Origin, &b.Count, &total); err != nil {
			return nil, err
		}
		if b.Total, err = numericToMoney(total); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
