package promo

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/foodflow/pos-api/internal/obs"
	"github.com/foodflow/pos-api/internal/order"
)

// Engine evaluates a promotion catalog against an order snapshot. It holds
// no state between passes; the discounts it returns are the only record of
// what fired, so every repricing request recomputes from scratch.
type Engine struct {
	Logger zerolog.Logger
}

// Evaluate runs one full pass: active promotions sorted by priority
// ascending (creation order breaks ties), each evaluated against the
// original item subtotal so discounts compose additively and never compound.
// A promotion applies at most once per pass. A malformed promotion or a
// strategy failure is logged and contributes zero, isolating failures from
// the rest of the pass.
func (e Engine) Evaluate(snap order.Snapshot, catalog []Promotion, now time.Time) []order.Discount {
	ctx := EvalContext{Now: now, Snapshot: snap}

	ordered := make([]Promotion, 0, len(catalog))
	for _, p := range catalog {
		if p.Active {
			ordered = append(ordered, p)
		}
	}
	SortForEvaluation(ordered)

	var discounts []order.Discount
	for _, p := range ordered {
		d, ok := e.evaluateOne(ctx, p, now)
		if ok {
			discounts = append(discounts, d)
		}
	}
	return discounts
}

func (e Engine) evaluateOne(ctx EvalContext, p Promotion, now time.Time) (order.Discount, bool) {
	if p.Strategy == nil || len(p.Triggers) == 0 || !p.HasTargets() {
		e.Logger.Warn().
			Str("promotion_id", p.ID.String()).
			Str("promotion", p.Name).
			Msg("skipping malformed promotion")
		return order.Discount{}, false
	}
	if !p.Eligible(ctx) {
		return order.Discount{}, false
	}

	match := ResolveScope(p.Scope, ctx.Snapshot.Items)
	result, err := p.Strategy.Apply(match)
	if err != nil {
		e.Logger.Warn().Err(err).
			Str("promotion_id", p.ID.String()).
			Str("promotion", p.Name).
			Msg("promotion evaluation failed, contributing zero")
		if obs.PromotionEvalFailures != nil {
			obs.PromotionEvalFailures.Inc()
		}
		return order.Discount{}, false
	}
	if result.Value.IsZero() || result.Value.IsNegative() {
		return order.Discount{}, false
	}
	// Each layer is clamped to what it discounts: never more than the
	// matched target base.
	value := result.Value.Min(unitSubtotal(match.Target))

	d, err := order.NewPromotionDiscount(ctx.Snapshot.OrderID, p.ID, singleItemRef(result.Contributing), value, now)
	if err != nil {
		e.Logger.Warn().Err(err).
			Str("promotion_id", p.ID.String()).
			Msg("discarding invalid promotion discount")
		return order.Discount{}, false
	}
	if obs.PromotionAppliedTotal != nil {
		obs.PromotionAppliedTotal.WithLabelValues(string(p.Strategy.Kind())).Inc()
	}
	return d, true
}

// singleItemRef returns the item id when every contributing unit belongs to
// one line, which makes the discount ITEM-scoped; otherwise the benefit is
// attributed to the order total.
func singleItemRef(units []Unit) *uuid.UUID {
	if len(units) == 0 {
		return nil
	}
	first := units[0].ItemID
	for _, u := range units[1:] {
		if u.ItemID != first {
			return nil
		}
	}
	return &first
}
