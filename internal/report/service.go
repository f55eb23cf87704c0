// Package report covers the cash desk: expense registration, the daily
// summary, and the end-of-day close that freezes a business date into an
// immutable audit row. Nothing here recomputes prices; order numbers are the
// ones frozen when each order closed.
//
// A business day is never opened. The day's figures accumulate naturally
// from closed orders and recorded expenses, and closing it only snapshots
// them. Days run 06:00 to 06:00 so night shifts settle under the evening
// they belong to.
package report

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/foodflow/pos-api/internal/common"
	"github.com/foodflow/pos-api/internal/money"
	"github.com/foodflow/pos-api/internal/order"
	"github.com/foodflow/pos-api/internal/repo"
)

// historyRangeMaxDays bounds history queries so a single request cannot scan
// years of rows.
const historyRangeMaxDays = 365

// Store is the aggregate query surface the service needs.
type Store interface {
	Totals(ctx context.Context, from, to time.Time) (repo.DailyTotals, error)
	ByPayment(ctx context.Context, from, to time.Time) ([]repo.PaymentBucket, error)
	ByDiscountOrigin(ctx context.Context, from, to time.Time) ([]repo.DiscountBucket, error)
	CountOpenOrders(ctx context.Context) (int, error)
	InsertExpense(ctx context.Context, e repo.Expense) error
	SumExpenses(ctx context.Context, from, to time.Time) (money.Money, error)
	ListExpenses(ctx context.Context, from, to time.Time) ([]repo.Expense, error)
	InsertCashDay(ctx context.Context, d repo.CashDay) error
	ListCashDays(ctx context.Context, from, to string) ([]repo.CashDay, error)
}

// Service runs the cash desk operations.
type Service struct {
	store    Store
	location *time.Location
	now      func() time.Time
}

// NewService constructs a Service. Business days are bounded in the venue's
// operating timezone; now is the injected clock reading.
func NewService(store Store, location *time.Location, now func() time.Time) *Service {
	if location == nil {
		location = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, location: location, now: now}
}

// Daily is the report payload for one business day.
type Daily struct {
	Date          string               `json:"date"`
	OrdersClosed  int                  `json:"orders_closed"`
	GrossSubtotal string               `json:"gross_subtotal"`
	TotalDiscount string               `json:"total_discount"`
	NetTotal      string               `json:"net_total"`
	TotalExpenses string               `json:"total_expenses"`
	CashBalance   string               `json:"cash_balance"`
	ByPayment     []PaymentLine        `json:"by_payment"`
	ByDiscount    []DiscountOriginLine `json:"by_discount_origin"`
	Expenses      []ExpenseDTO         `json:"expenses"`
}

// PaymentLine is one payment method's share of the day.
type PaymentLine struct {
	Method string `json:"method"`
	Orders int    `json:"orders"`
	Total  string `json:"total"`
}

// DiscountOriginLine splits granted discounts by origin.
type DiscountOriginLine struct {
	Origin string `json:"origin"`
	Count  int    `json:"count"`
	Total  string `json:"total"`
}

// ExpenseDTO is one recorded cash outflow.
type ExpenseDTO struct {
	ID          uuid.UUID `json:"id"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	Voucher     string    `json:"voucher"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// CashDayDTO is one closed business day.
type CashDayDTO struct {
	ID            uuid.UUID `json:"id"`
	BusinessDate  string    `json:"business_date"`
	ClosedAt      time.Time `json:"closed_at"`
	TotalSales    string    `json:"total_sales"`
	TotalDiscount string    `json:"total_discount"`
	TotalExpenses string    `json:"total_expenses"`
	CashBalance   string    `json:"cash_balance"`
	OrdersClosed  int       `json:"orders_closed"`
}

// ExpenseInput is the request body for registering an expense.
type ExpenseInput struct {
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

// DailyReport builds the summary for the business day given as YYYY-MM-DD.
func (s *Service) DailyReport(ctx context.Context, date string) (Daily, error) {
	from, to, err := businessDayBounds(date, s.location)
	if err != nil {
		return Daily{}, common.NewAppError("VALIDATION", "date must be YYYY-MM-DD", http.StatusBadRequest, err)
	}

	totals, err := s.store.Totals(ctx, from, to)
	if err != nil {
		return Daily{}, storeError(err)
	}
	payments, err := s.store.ByPayment(ctx, from, to)
	if err != nil {
		return Daily{}, storeError(err)
	}
	discounts, err := s.store.ByDiscountOrigin(ctx, from, to)
	if err != nil {
		return Daily{}, storeError(err)
	}
	expenses, err := s.store.ListExpenses(ctx, from, to)
	if err != nil {
		return Daily{}, storeError(err)
	}

	totalExpenses := money.Zero()
	for _, e := range expenses {
		totalExpenses = totalExpenses.Add(e.Amount)
	}

	out := Daily{
		Date:          date,
		OrdersClosed:  totals.OrdersClosed,
		GrossSubtotal: totals.GrossSubtotal.String(),
		TotalDiscount: totals.TotalDiscount.String(),
		NetTotal:      totals.NetTotal.String(),
		TotalExpenses: totalExpenses.String(),
		CashBalance:   cashBalance(payments, totalExpenses).String(),
		Expenses:      make([]ExpenseDTO, 0, len(expenses)),
	}
	for _, p := range payments {
		out.ByPayment = append(out.ByPayment, PaymentLine{Method: p.Method, Orders: p.Orders, Total: p.Total.String()})
	}
	for _, d := range discounts {
		out.ByDiscount = append(out.ByDiscount, DiscountOriginLine{Origin: d.Origin, Count: d.Count, Total: d.Total.String()})
	}
	for _, e := range expenses {
		out.Expenses = append(out.Expenses, expenseDTO(e))
	}
	return out, nil
}

// RegisterExpense records a cash outflow and issues its voucher number.
func (s *Service) RegisterExpense(ctx context.Context, in ExpenseInput) (ExpenseDTO, error) {
	amount, err := money.FromString(in.Amount)
	if err != nil {
		return ExpenseDTO{}, common.NewAppError("VALIDATION", "amount must be a decimal string", http.StatusBadRequest, err)
	}
	if amount.IsZero() || amount.IsNegative() {
		return ExpenseDTO{}, common.NewAppError("VALIDATION", "amount must be positive", http.StatusBadRequest, nil)
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return ExpenseDTO{}, common.NewAppError("VALIDATION", "description is required", http.StatusBadRequest, nil)
	}

	now := s.now()
	e := repo.Expense{
		ID:          uuid.New(),
		Amount:      amount,
		Description: description,
		OccurredAt:  now,
	}
	e.Voucher = expenseVoucher(e.ID, now.In(s.location))
	if err := s.store.InsertExpense(ctx, e); err != nil {
		return ExpenseDTO{}, storeError(err)
	}
	return expenseDTO(e), nil
}

// CloseDay freezes the current business date into an immutable cash-day row.
// It refuses while any order session is open and rejects a second close of
// the same date.
func (s *Service) CloseDay(ctx context.Context) (CashDayDTO, error) {
	now := s.now()

	open, err := s.store.CountOpenOrders(ctx)
	if err != nil {
		return CashDayDTO{}, storeError(err)
	}
	if open > 0 {
		return CashDayDTO{}, common.NewAppError("TABLES_OPEN",
			fmt.Sprintf("%d order sessions are still open", open), http.StatusBadRequest, nil)
	}

	date := BusinessDate(now, s.location)
	from, to, err := businessDayBounds(date, s.location)
	if err != nil {
		return CashDayDTO{}, err
	}

	totals, err := s.store.Totals(ctx, from, to)
	if err != nil {
		return CashDayDTO{}, storeError(err)
	}
	payments, err := s.store.ByPayment(ctx, from, to)
	if err != nil {
		return CashDayDTO{}, storeError(err)
	}
	expenses, err := s.store.SumExpenses(ctx, from, to)
	if err != nil {
		return CashDayDTO{}, storeError(err)
	}

	d := repo.CashDay{
		ID:            uuid.New(),
		BusinessDate:  date,
		ClosedAt:      now,
		TotalSales:    totals.NetTotal,
		TotalDiscount: totals.TotalDiscount,
		TotalExpenses: expenses,
		CashBalance:   cashBalance(payments, expenses),
		OrdersClosed:  totals.OrdersClosed,
	}
	if err := s.store.InsertCashDay(ctx, d); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return CashDayDTO{}, common.NewAppError("DAY_CLOSED",
				fmt.Sprintf("business day %s is already closed", date), http.StatusConflict, err)
		}
		return CashDayDTO{}, storeError(err)
	}
	return cashDayDTO(d), nil
}

// History lists closed business days in [from, to] inclusive, newest first.
func (s *Service) History(ctx context.Context, from, to string) ([]CashDayDTO, error) {
	fromDay, err := time.ParseInLocation("2006-01-02", from, s.location)
	if err != nil {
		return nil, common.NewAppError("VALIDATION", "from must be YYYY-MM-DD", http.StatusBadRequest, err)
	}
	toDay, err := time.ParseInLocation("2006-01-02", to, s.location)
	if err != nil {
		return nil, common.NewAppError("VALIDATION", "to must be YYYY-MM-DD", http.StatusBadRequest, err)
	}
	if fromDay.After(toDay) {
		return nil, common.NewAppError("VALIDATION", "from must not be after to", http.StatusBadRequest, nil)
	}
	if toDay.Sub(fromDay) > historyRangeMaxDays*24*time.Hour {
		return nil, common.NewAppError("VALIDATION",
			fmt.Sprintf("range must not exceed %d days", historyRangeMaxDays), http.StatusBadRequest, nil)
	}

	days, err := s.store.ListCashDays(ctx, from, to)
	if err != nil {
		return nil, storeError(err)
	}
	out := make([]CashDayDTO, 0, len(days))
	for _, d := range days {
		out = append(out, cashDayDTO(d))
	}
	return out, nil
}

// cashBalance is cash taken at the till minus cash paid out.
func cashBalance(payments []repo.PaymentBucket, expenses money.Money) money.Money {
	cashIn := money.Zero()
	for _, p := range payments {
		if p.Method == string(order.PaymentCash) {
			cashIn = cashIn.Add(p.Total)
		}
	}
	return cashIn.Sub(expenses)
}

func expenseDTO(e repo.Expense) ExpenseDTO {
	return ExpenseDTO{
		ID:          e.ID,
		Amount:      e.Amount.String(),
		Description: e.Description,
		Voucher:     e.Voucher,
		OccurredAt:  e.OccurredAt,
	}
}

func cashDayDTO(d repo.CashDay) CashDayDTO {
	return CashDayDTO{
		ID:            d.ID,
		BusinessDate:  d.BusinessDate,
		ClosedAt:      d.ClosedAt,
		TotalSales:    d.TotalSales.String(),
		TotalDiscount: d.TotalDiscount.String(),
		TotalExpenses: d.TotalExpenses.String(),
		CashBalance:   d.CashBalance.String(),
		OrdersClosed:  d.OrdersClosed,
	}
}

func storeError(err error) error {
	if errors.Is(err, repo.ErrLocalMissing) {
		return common.NewAppError("LOCAL_REQUIRED", "missing local scope", http.StatusBadRequest, err)
	}
	return err
}
