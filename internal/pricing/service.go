// Package pricing is the single entry point for computing an order's price
// breakdown. It is the only place in the system permitted to compute a
// total: the order aggregate, the HTTP layer, and reporting all consume the
// Breakdown it returns.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/foodflow/pos-api/internal/money"
	"github.com/foodflow/pos-api/internal/obs"
	"github.com/foodflow/pos-api/internal/order"
	"github.com/foodflow/pos-api/internal/promo"
)

var (
	// ErrMalformedSnapshot is returned when the item snapshot cannot be
	// priced at all; the caller must refuse the triggering mutation and keep
	// the order in its last consistent state.
	ErrMalformedSnapshot = errors.New("malformed order snapshot")
	// ErrInvalidManualDiscount is returned for a manual discount that fails
	// independent validation.
	ErrInvalidManualDiscount = errors.New("invalid manual discount")
)

// Breakdown is the complete result of a repricing pass. Subtotal is always
// recomputed from items; Total is always Subtotal minus TotalDiscount. None
// of these fields is ever read back from storage as input.
type Breakdown struct {
	Subtotal           money.Money      `json:"subtotal"`
	PromotionDiscounts []order.Discount `json:"promotion_discounts"`
	ManualDiscounts    []order.Discount `json:"manual_discounts"`
	TotalDiscount      money.Money      `json:"total_discount"`
	Total              money.Money      `json:"total"`
}

// Service computes price breakdowns. It is stateless and safe for
// concurrent use across orders; callers serialize mutations per order.
type Service struct {
	Engine promo.Engine
	Logger zerolog.Logger
	Now    func() time.Time
}

// Reprice recomputes the full breakdown for the snapshot: automatic
// discounts from the promotion catalog first, then the order's manual
// discounts layered on the post-promotion remainder. The clock is read
// exactly once so every trigger in the pass agrees on "now". Idempotent
// given the same inputs; no side effects beyond metrics and logs.
func (s *Service) Reprice(ctx context.Context, snap order.Snapshot, catalog []promo.Promotion) (Breakdown, error) {
	start := time.Now()
	b, err := s.reprice(snap, catalog)
	if obs.RepricingDuration != nil {
		obs.RepricingDuration.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}
	if obs.RepricingTotal != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		obs.RepricingTotal.WithLabelValues(result).Inc()
	}
	if err != nil {
		s.Logger.Warn().Err(err).Str("order_id", snap.OrderID.String()).Msg("repricing refused")
		return Breakdown{}, err
	}
	return b, nil
}

func (s *Service) reprice(snap order.Snapshot, catalog []promo.Promotion) (Breakdown, error) {
	if err := snap.Validate(); err != nil {
		return Breakdown{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}

	now := s.now()
	subtotal := snap.Subtotal()

	autos := s.Engine.Evaluate(snap, catalog, now)
	promoTotal := money.Zero()
	for _, d := range autos {
		promoTotal = promoTotal.Add(d.Value)
	}
	promoTotal = promoTotal.Min(subtotal)

	// Manual discounts layer on top of the post-promotion remainder:
	// percentages re-base against what is left, fixed amounts cap at it.
	remaining := subtotal.Sub(promoTotal).ClampNonNegative()
	manual := make([]order.Discount, 0, len(snap.ManualDiscounts))
	for _, d := range snap.ManualDiscounts {
		value, err := manualValue(d, remaining)
		if err != nil {
			return Breakdown{}, err
		}
		frozen := d
		frozen.Value = value
		manual = append(manual, frozen)
		remaining = remaining.Sub(value).ClampNonNegative()
	}

	totalDiscount := subtotal.Sub(remaining).Min(subtotal)
	return Breakdown{
		Subtotal:           subtotal,
		PromotionDiscounts: autos,
		ManualDiscounts:    manual,
		TotalDiscount:      totalDiscount,
		Total:              subtotal.Sub(totalDiscount).ClampNonNegative(),
	}, nil
}

func manualValue(d order.Discount, base money.Money) (money.Money, error) {
	if d.Origin != order.OriginManual {
		return money.Money{}, fmt.Errorf("%w: origin %q", ErrInvalidManualDiscount, d.Origin)
	}
	switch {
	case d.Percent != nil && d.Amount == nil:
		return base.ApplyPercent(*d.Percent), nil
	case d.Amount != nil && d.Percent == nil:
		if d.Amount.IsNegative() {
			return money.Money{}, fmt.Errorf("%w: negative amount", ErrInvalidManualDiscount)
		}
		return d.Amount.Min(base), nil
	default:
		return money.Money{}, fmt.Errorf("%w: requires exactly one of percent or amount", ErrInvalidManualDiscount)
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
