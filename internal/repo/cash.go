package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/foodflow/pos-api/internal/money"
)

// Expense is one cash outflow row (supplies, repairs, tips paid out).
type Expense struct {
	ID          uuid.UUID
	Amount      money.Money
	Description string
	Voucher     string
	OccurredAt  time.Time
}

// CashDay is the immutable accounting snapshot persisted when a business day
// is closed out.
type CashDay struct {
	ID            uuid.UUID
	BusinessDate  string
	ClosedAt      time.Time
	TotalSales    money.Money
	TotalDiscount money.Money
	TotalExpenses money.Money
	CashBalance   money.Money
	OrdersClosed  int
}

// CashRepo persists expenses and closed business days.
type CashRepo struct {
	DB Querier
}

// CashDeskRepo joins the read-only report queries with the cash ledger so the
// reporting service sees one store.
type CashDeskRepo struct {
	ReportsRepo
	CashRepo
}

// NewCashDeskRepo builds both halves over the same Querier.
func NewCashDeskRepo(db Querier) CashDeskRepo {
	return CashDeskRepo{ReportsRepo{DB: db}, CashRepo{DB: db}}
}

// InsertExpense records a cash outflow.
func (r CashRepo) InsertExpense(ctx context.Context, e Expense) error {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, `
		INSERT INTO cash_movements (id, local_id, amount, description, voucher, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		pgUUID(e.ID), lid, moneyParam(e.Amount), e.Description, e.Voucher, e.OccurredAt)
	return err
}

// SumExpenses totals the cash outflows recorded in [from, to).
func (r CashRepo) SumExpenses(ctx context.Context, from, to time.Time) (money.Money, error) {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return money.Zero(), err
	}
	var total pgtype.Numeric
	row := r.DB.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM cash_movements
		WHERE local_id = $1 AND occurred_at >= $2 AND occurred_at < $3`, lid, from, to)
	if err := row.Scan(&total); err != nil {
		return money.Zero(), err
	}
	return numericToMoney(total)
}

// ListExpenses returns the cash outflows recorded in [from, to), oldest first.
func (r CashRepo) ListExpenses(ctx context.Context, from, to time.Time) ([]Expense, error) {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, amount, description, voucher, occurred_at
		FROM cash_movements
		WHERE local_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		ORDER BY occurred_at, id`, lid, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Expense
	for rows.Next() {
		var (
			e      Expense
			id     pgtype.UUID
			amount pgtype.Numeric
		)
		if err := rows.Scan(&id, &amount, &e.Description, &e.Voucher, &e.OccurredAt); err != nil {
			return nil, err
		}
		e.ID = fromPGUUID(id)
		if e.Amount, err = numericToMoney(amount); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountOpenOrders reports how many order sessions are still open for the
// local. Closing a business day requires this to be zero.
func (r CashRepo) CountOpenOrders(ctx context.Context) (int, error) {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return 0, err
	}
	var count int
	row := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM orders WHERE local_id = $1 AND status = 'OPEN'`, lid)
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// InsertCashDay persists a closed business day. The unique constraint on
// (local_id, business_date) rejects a second close of the same date as
// ErrConflict.
func (r CashRepo) InsertCashDay(ctx context.Context, d CashDay) error {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, `
		INSERT INTO cash_days (id, local_id, business_date, closed_at, total_sales, total_discount, total_expenses, cash_balance, orders_closed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		pgUUID(d.ID), lid, d.BusinessDate, d.ClosedAt, moneyParam(d.TotalSales),
		moneyParam(d.TotalDiscount), moneyParam(d.TotalExpenses), moneyParam(d.CashBalance), d.OrdersClosed)
	if err != nil && isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

// ListCashDays returns closed business days in [from, to] inclusive, newest
// first. Dates are YYYY-MM-DD strings.
func (r CashRepo) ListCashDays(ctx context.Context, from, to string) ([]CashDay, error) {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, to_char(business_date, 'YYYY-MM-DD'), closed_at, total_sales, total_discount, total_expenses, cash_balance, orders_closed
		FROM cash_days
		WHERE local_id = $1 AND business_date >= $2::date AND business_date <= $3::date
		ORDER BY business_date DESC`, lid, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CashDay
	for rows.Next() {
		var (
			d                              CashDay
			id                             pgtype.UUID
			sales, disc, expenses, balance pgtype.Numeric
		)
		if err := rows.Scan(&id, &d.BusinessDate, &d.ClosedAt, &sales, &disc, &expenses, &balance, &d.OrdersClosed); err != nil {
			return nil, err
		}
		d.ID = fromPGUUID(id)
		if d.TotalSales, err = numericToMoney(sales); err != nil {
			return nil, err
		}
		if d.TotalDiscount, err = numericToMoney(disc); err != nil {
			return nil, err
		}
		if d.TotalExpenses, err = numericToMoney(expenses); err != nil {
			return nil, err
		}
		if d.CashBalance, err = numericToMoney(balance); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
