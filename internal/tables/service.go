// Package tables runs the dining sessions: open a table, take items, apply
// manual discounts, close with a frozen accounting snapshot, and reopen for
// same-day corrections. Every mutation runs in one transaction holding a row
// lock on the order, reprices the whole order, and swaps the stored discount
// set before commit.
package tables

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/foodflow/pos-api/internal/common"
	"github.com/foodflow/pos-api/internal/money"
	"github.com/foodflow/pos-api/internal/obs"
	"github.com/foodflow/pos-api/internal/order"
	"github.com/foodflow/pos-api/internal/pricing"
	"github.com/foodflow/pos-api/internal/repo"
)

// Service coordinates table sessions and order mutations.
type Service struct {
	pool     *pgxpool.Pool
	pricer   *pricing.Service
	validate *validator.Validate
	logger   zerolog.Logger
	now      func() time.Time
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Pool   *pgxpool.Pool
	Pricer *pricing.Service
	Logger zerolog.Logger
	Now    func() time.Time
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		pool:     cfg.Pool,
		pricer:   cfg.Pricer,
		validate: validator.New(),
		logger:   cfg.Logger,
		now:      now,
	}
}

// TableDTO is the public table payload.
type TableDTO struct {
	ID          uuid.UUID  `json:"id"`
	Label       string     `json:"label"`
	Active      bool       `json:"active"`
	OpenOrderID *uuid.UUID `json:"open_order_id,omitempty"`
}

// OrderView is an order plus its live (or frozen) price breakdown.
type OrderView struct {
	Order     *order.Order      `json:"order"`
	Breakdown pricing.Breakdown `json:"breakdown"`
}

// ItemInput adds a line to an order.
type ItemInput struct {
	ProductID uuid.UUID    `json:"product_id" validate:"required"`
	Quantity  int          `json:"quantity" validate:"required,gt=0"`
	Note      string       `json:"note" validate:"max=300"`
	Extras    []ExtraInput `json:"extras" validate:"dive"`
}

// ExtraInput is an add-on in an item payload.
type ExtraInput struct {
	Name      string `json:"name" validate:"required,min=1,max=120"`
	UnitPrice string `json:"unit_price" validate:"required"`
}

// ItemPatch updates a line's quantity; zero removes the line.
type ItemPatch struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

// DiscountInput applies a manual discount. Exactly one of percent or amount.
type DiscountInput struct {
	Percent   *string   `json:"percent"`
	Amount    *string   `json:"amount"`
	AppliedBy uuid.UUID `json:"applied_by" validate:"required"`
	Reason    string    `json:"reason" validate:"max=300"`
}

// CloseInput settles an order.
type CloseInput struct {
	Payment order.PaymentMethod `json:"payment" validate:"required,oneof=CASH CARD TRANSFER QR"`
}

// CreateTable registers a new table label.
func (s *Service) CreateTable(ctx context.Context, label string) (TableDTO, error) {
	if label == "" {
		return TableDTO{}, common.NewAppError("VALIDATION", "label is required", http.StatusBadRequest, nil)
	}
	t, err := repo.TablesRepo{DB: s.pool}.Create(ctx, label)
	if err != nil {
		return TableDTO{}, storeError(err, "table")
	}
	return tableDTO(t), nil
}

// ListTables returns the venue's tables with open-session markers.
func (s *Service) ListTables(ctx context.Context) ([]TableDTO, error) {
	rows, err := repo.TablesRepo{DB: s.pool}.List(ctx)
	if err != nil {
		return nil, storeError(err, "table")
	}
	out := make([]TableDTO, 0, len(rows))
	for _, t := range rows {
		out = append(out, tableDTO(t))
	}
	return out, nil
}

// OrderSummary is one row of a table's session history.
type OrderSummary struct {
	ID         uuid.UUID            `json:"id"`
	Number     int                  `json:"number"`
	Status     order.Status         `json:"status"`
	OpenedAt   time.Time            `json:"opened_at"`
	ClosedAt   *time.Time           `json:"closed_at,omitempty"`
	Payment    *order.PaymentMethod `json:"payment,omitempty"`
	FinalTotal *money.Money         `json:"final_total,omitempty"`
}

// TableOrders returns a table's recent sessions, newest first.
func (s *Service) TableOrders(ctx context.Context, tableID uuid.UUID, limit int) ([]OrderSummary, error) {
	if _, err := (repo.TablesRepo{DB: s.pool}).Get(ctx, tableID); err != nil {
		return nil, storeError(err, "table")
	}
	rows, err := repo.OrdersRepo{DB: s.pool}.ListByTable(ctx, tableID, limit)
	if err != nil {
		return nil, storeError(err, "order")
	}
	out := make([]OrderSummary, 0, len(rows))
	for _, o := range rows {
		out = append(out, OrderSummary{
			ID:         o.ID,
			Number:     o.Number,
			Status:     o.Status,
			OpenedAt:   o.OpenedAt,
			ClosedAt:   o.ClosedAt,
			Payment:    o.Payment,
			FinalTotal: o.FinalTotal,
		})
	}
	return out, nil
}

// OpenTable starts a new order on a table.
func (s *Service) OpenTable(ctx context.Context, tableID uuid.UUID) (*order.Order, error) {
	t, err := repo.TablesRepo{DB: s.pool}.Get(ctx, tableID)
	if err != nil {
		return nil, storeError(err, "table")
	}
	if !t.Active {
		return nil, common.NewAppError("CONFLICT", "table is retired", http.StatusConflict, nil)
	}
	o, err := repo.OrdersRepo{DB: s.pool}.Open(ctx, tableID, s.now())
	if err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, common.NewAppError("CONFLICT", "table already has an open order", http.StatusConflict, err)
		}
		return nil, err
	}
	s.logger.Info().Str("order_id", o.ID.String()).Int("number", o.Number).Msg("table opened")
	return o, nil
}

// GetOrder returns the aggregate with its breakdown: the frozen one for
// closed orders, a fresh repricing pass for open ones.
func (s *Service) GetOrder(ctx context.Context, orderID uuid.UUID) (OrderView, error) {
	orders := repo.OrdersRepo{DB: s.pool}
	o, err := orders.Get(ctx, orderID)
	if err != nil {
		return OrderView{}, storeError(err, "order")
	}
	if o.Status == order.StatusClosed {
		b, err := s.frozenBreakdown(ctx, orders, o)
		if err != nil {
			return OrderView{}, err
		}
		return OrderView{Order: o, Breakdown: b}, nil
	}
	catalog, err := repo.PromotionsRepo{DB: s.pool}.ListActive(ctx)
	if err != nil {
		return OrderView{}, err
	}
	b, err := s.pricer.Reprice(ctx, o.Snapshot(), catalog)
	if err != nil {
		return OrderView{}, priceError(err)
	}
	return OrderView{Order: o, Breakdown: b}, nil
}

func (s *Service) frozenBreakdown(ctx context.Context, orders repo.OrdersRepo, o *order.Order) (pricing.Breakdown, error) {
	discounts, err := orders.ListDiscounts(ctx, o.ID)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	b := pricing.Breakdown{}
	if o.FinalSubtotal != nil {
		b.Subtotal = *o.FinalSubtotal
	}
	if o.FinalDiscount != nil {
		b.TotalDiscount = *o.FinalDiscount
	}
	if o.FinalTotal != nil {
		b.Total = *o.FinalTotal
	}
	for _, d := range discounts {
		if d.Origin == order.OriginPromotion {
			b.PromotionDiscounts = append(b.PromotionDiscounts, d)
		} else {
			b.ManualDiscounts = append(b.ManualDiscounts, d)
		}
	}
	return b, nil
}

// AddItem snapshots the product and appends a line.
func (s *Service) AddItem(ctx context.Context, orderID uuid.UUID, in ItemInput) (OrderView, error) {
	if err := s.validate.Struct(in); err != nil {
		return OrderView{}, common.NewAppError("VALIDATION", "invalid payload", http.StatusBadRequest, err)
	}
	product, err := (repo.CatalogRepo{DB: s.pool}).GetProduct(ctx, in.ProductID)
	if err != nil {
		return OrderView{}, storeError(err, "product")
	}
	if !product.Active {
		return OrderView{}, common.NewAppError("CONFLICT", "product is not on the menu", http.StatusConflict, nil)
	}
	extras := make([]order.Extra, 0, len(in.Extras))
	for _, e := range in.Extras {
		price, err := money.FromString(e.UnitPrice)
		if err != nil || price.IsNegative() {
			return OrderView{}, common.NewAppError("VALIDATION", "invalid extra price", http.StatusBadRequest, err)
		}
		extras = append(extras, order.Extra{ID: uuid.New(), Name: e.Name, UnitPrice: price})
	}
	item := order.LineItem{
		ID:          uuid.New(),
		ProductID:   product.ID,
		CategoryID:  product.CategoryID,
		ProductName: product.Name,
		Quantity:    in.Quantity,
		UnitPrice:   product.Price,
		Note:        in.Note,
		Extras:      extras,
	}
	return s.mutate(ctx, orderID, func(o *order.Order, orders repo.OrdersRepo) error {
		if err := o.AddItem(item); err != nil {
			return err
		}
		if err := orders.InsertItem(ctx, orderID, item); err != nil {
			return err
		}
		for _, e := range extras {
			if err := orders.InsertExtra(ctx, item.ID, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddExtra attaches an add-on to an existing line and reprices.
func (s *Service) AddExtra(ctx context.Context, orderID, itemID uuid.UUID, in ExtraInput) (OrderView, error) {
	if err := s.validate.Struct(in); err != nil {
		return OrderView{}, common.NewAppError("VALIDATION", "invalid payload", http.StatusBadRequest, err)
	}
	price, err := money.FromString(in.UnitPrice)
	if err != nil || price.IsNegative() {
		return OrderView{}, common.NewAppError("VALIDATION", "invalid extra price", http.StatusBadRequest, err)
	}
	extra := order.Extra{ID: uuid.New(), Name: in.Name, UnitPrice: price}
	return s.mutate(ctx, orderID, func(o *order.Order, orders repo.OrdersRepo) error {
		if err := o.AddExtra(itemID, extra); err != nil {
			return err
		}
		return orders.InsertExtra(ctx, itemID, extra)
	})
}

// PatchItem changes a line's quantity; zero removes it.
func (s *Service) PatchItem(ctx context.Context, orderID, itemID uuid.UUID, in ItemPatch) (OrderView, error) {
	if err := s.validate.Struct(in); err != nil {
		return OrderView{}, common.NewAppError("VALIDATION", "invalid payload", http.StatusBadRequest, err)
	}
	return s.mutate(ctx, orderID, func(o *order.Order, orders repo.OrdersRepo) error {
		if err := o.SetItemQuantity(itemID, in.Quantity); err != nil {
			return err
		}
		if in.Quantity == 0 {
			return orders.DeleteItem(ctx, itemID)
		}
		return orders.UpdateItemQuantity(ctx, itemID, in.Quantity)
	})
}

// RemoveItem deletes a line.
func (s *Service) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) (OrderView, error) {
	return s.PatchItem(ctx, orderID, itemID, ItemPatch{Quantity: 0})
}

// AddManualDiscount layers a manual discount on the order.
func (s *Service) AddManualDiscount(ctx context.Context, orderID uuid.UUID, in DiscountInput) (OrderView, error) {
	if err := s.validate.Struct(in); err != nil {
		return OrderView{}, common.NewAppError("VALIDATION", "invalid payload", http.StatusBadRequest, err)
	}
	spec := order.ManualSpec{AppliedBy: in.AppliedBy, Reason: in.Reason}
	if in.Percent != nil {
		p, err := money.PercentFromString(*in.Percent)
		if err != nil {
			return OrderView{}, common.NewAppError("VALIDATION", "invalid percent", http.StatusBadRequest, err)
		}
		spec.Percent = &p
	}
	if in.Amount != nil {
		a, err := money.FromString(*in.Amount)
		if err != nil || a.IsNegative() {
			return OrderView{}, common.NewAppError("VALIDATION", "invalid amount", http.StatusBadRequest, err)
		}
		spec.Amount = &a
	}
	return s.mutate(ctx, orderID, func(o *order.Order, orders repo.OrdersRepo) error {
		d, err := order.NewManualDiscount(orderID, spec, s.now())
		if err != nil {
			return common.NewAppError("VALIDATION", err.Error(), http.StatusBadRequest, err)
		}
		return o.ApplyManualDiscount(d)
	})
}

// CloseTable settles the open order on a table, freezing the breakdown.
func (s *Service) CloseTable(ctx context.Context, tableID uuid.UUID, in CloseInput) (OrderView, error) {
	if err := s.validate.Struct(in); err != nil {
		return OrderView{}, common.NewAppError("VALIDATION", "invalid payload", http.StatusBadRequest, err)
	}
	t, err := repo.TablesRepo{DB: s.pool}.Get(ctx, tableID)
	if err != nil {
		return OrderView{}, storeError(err, "table")
	}
	if t.OpenOrderID == nil {
		return OrderView{}, common.NewAppError("CONFLICT", "table has no open order", http.StatusConflict, nil)
	}
	orderID := *t.OpenOrderID

	var view OrderView
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		orders := repo.OrdersRepo{DB: tx}
		o, err := orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return storeError(err, "order")
		}
		catalog, err := (repo.PromotionsRepo{DB: tx}).ListActive(ctx)
		if err != nil {
			return err
		}
		b, err := s.pricer.Reprice(ctx, o.Snapshot(), catalog)
		if err != nil {
			return priceError(err)
		}
		if err := o.Close(b.Subtotal, b.TotalDiscount, b.Total, in.Payment, s.now()); err != nil {
			return lifecycleError(err)
		}
		if err := orders.ReplaceDiscounts(ctx, orderID, append(b.PromotionDiscounts, b.ManualDiscounts...)); err != nil {
			return err
		}
		if err := orders.Close(ctx, o); err != nil {
			return err
		}
		view = OrderView{Order: o, Breakdown: b}
		return nil
	})
	if err != nil {
		return OrderView{}, err
	}
	if obs.OrdersClosedTotal != nil {
		obs.OrdersClosedTotal.WithLabelValues(string(in.Payment)).Inc()
	}
	s.logger.Info().Str("order_id", orderID.String()).Str("payment", string(in.Payment)).
		Str("total", view.Breakdown.Total.String()).Msg("order closed")
	return view, nil
}

// ReopenOrder reverts a closed order for correction. The frozen snapshot is
// discarded; the next mutation reprices against the current rule catalog.
func (s *Service) ReopenOrder(ctx context.Context, orderID uuid.UUID) (OrderView, error) {
	orders := repo.OrdersRepo{DB: s.pool}
	o, err := orders.Get(ctx, orderID)
	if err != nil {
		return OrderView{}, storeError(err, "order")
	}
	if err := o.Reopen(); err != nil {
		return OrderView{}, lifecycleError(err)
	}
	if err := orders.Reopen(ctx, orderID); err != nil {
		return OrderView{}, storeError(err, "order")
	}
	s.logger.Info().Str("order_id", orderID.String()).Msg("order reopened")
	return s.GetOrder(ctx, orderID)
}

// mutate is the shared transaction path: lock the order, apply the change to
// both the aggregate and its rows, reprice, and replace the discount set.
func (s *Service) mutate(ctx context.Context, orderID uuid.UUID, apply func(*order.Order, repo.OrdersRepo) error) (OrderView, error) {
	var view OrderView
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		orders := repo.OrdersRepo{DB: tx}
		o, err := orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return storeError(err, "order")
		}
		if err := apply(o, orders); err != nil {
			return lifecycleError(err)
		}
		catalog, err := (repo.PromotionsRepo{DB: tx}).ListActive(ctx)
		if err != nil {
			return err
		}
		b, err := s.pricer.Reprice(ctx, o.Snapshot(), catalog)
		if err != nil {
			return priceError(err)
		}
		if err := orders.ReplaceDiscounts(ctx, orderID, append(b.PromotionDiscounts, b.ManualDiscounts...)); err != nil {
			return err
		}
		view = OrderView{Order: o, Breakdown: b}
		return nil
	})
	if err != nil {
		return OrderView{}, err
	}
	return view, nil
}

func tableDTO(t repo.Table) TableDTO {
	return TableDTO{ID: t.ID, Label: t.Label, Active: t.Active, OpenOrderID: t.OpenOrderID}
}

func lifecycleError(err error) error {
	switch {
	case err == nil:
		return nil
	case common.IsAppError(err):
		return err
	case errors.Is(err, order.ErrOrderClosed):
		return common.NewAppError("ORDER_CLOSED", "order is closed", http.StatusConflict, err)
	case errors.Is(err, order.ErrOrderOpen):
		return common.NewAppError("ORDER_OPEN", "order is not closed", http.StatusConflict, err)
	case errors.Is(err, order.ErrItemNotFound):
		return common.NewAppError("NOT_FOUND", "item not found", http.StatusNotFound, err)
	case errors.Is(err, repo.ErrNotFound):
		return common.NewAppError("NOT_FOUND", "not found", http.StatusNotFound, err)
	default:
		return err
	}
}

func priceError(err error) error {
	if errors.Is(err, pricing.ErrMalformedSnapshot) || errors.Is(err, pricing.ErrInvalidManualDiscount) {
		return common.NewAppError("UNPRICEABLE", err.Error(), http.StatusUnprocessableEntity, err)
	}
	return err
}

func storeError(err error, entity string) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return common.NewAppError("NOT_FOUND", entity+" not found", http.StatusNotFound, err)
	case errors.Is(err, repo.ErrConflict):
		return common.NewAppError("CONFLICT", entity+" conflict", http.StatusConflict, err)
	case errors.Is(err, repo.ErrLocalMissing):
		return common.NewAppError("LOCAL_REQUIRED", "missing local scope", http.StatusBadRequest, err)
	default:
		return err
	}
}
