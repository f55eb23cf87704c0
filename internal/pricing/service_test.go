package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/foodflow/pos-api/internal/money"
	"github.com/foodflow/pos-api/internal/order"
	"github.com/foodflow/pos-api/internal/promo"
)

var noon = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

func newService() *Service {
	return &Service{
		Engine: promo.Engine{Logger: zerolog.Nop()},
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return noon },
	}
}

func item(productID uuid.UUID, qty int, price string) order.LineItem {
	return order.LineItem{
		ID:          uuid.New(),
		ProductID:   productID,
		CategoryID:  uuid.New(),
		ProductName: "item",
		Quantity:    qty,
		UnitPrice:   money.MustFromString(price),
	}
}

func snapshot(items ...order.LineItem) order.Snapshot {
	return order.Snapshot{OrderID: uuid.New(), LocalID: uuid.New(), Items: items}
}

func anyOrderTrigger(t *testing.T) []promo.Trigger {
	t.Helper()
	trig, err := promo.NewMinimumAmountTrigger(money.FromCents(1))
	require.NoError(t, err)
	return []promo.Trigger{trig}
}

func promotion(t *testing.T, localID uuid.UUID, name string, priority int, s promo.Strategy, triggers []promo.Trigger, scope []promo.ScopeEntry) promo.Promotion {
	t.Helper()
	p, err := promo.New(promo.Config{
		LocalID:  localID,
		Name:     name,
		Priority: priority,
		Active:   true,
		Strategy: s,
		Triggers: triggers,
		Scope:    scope,
	})
	require.NoError(t, err)
	return p
}

func manualPercent(t *testing.T, orderID uuid.UUID, pct string) order.Discount {
	t.Helper()
	p := money.MustPercent(pct)
	actor := uuid.New()
	d, err := order.NewManualDiscount(orderID, order.ManualSpec{Percent: &p, AppliedBy: actor}, noon)
	require.NoError(t, err)
	return d
}

func manualAmount(t *testing.T, orderID uuid.UUID, amount string) order.Discount {
	t.Helper()
	m := money.MustFromString(amount)
	actor := uuid.New()
	d, err := order.NewManualDiscount(orderID, order.ManualSpec{Amount: &m, AppliedBy: actor}, noon)
	require.NoError(t, err)
	return d
}

func TestRepriceNoPromotions(t *testing.T) {
	svc := newService()
	snap := snapshot(item(uuid.New(), 2, "1000.00"))

	b, err := svc.Reprice(context.Background(), snap, nil)
	require.NoError(t, err)
	require.Equal(t, "2000.00", b.Subtotal.String())
	require.True(t, b.TotalDiscount.IsZero())
	require.Equal(t, "2000.00", b.Total.String())
	require.Empty(t, b.PromotionDiscounts)
	require.Empty(t, b.ManualDiscounts)
}

func TestRepriceTwoForOne(t *testing.T) {
	svc := newService()
	cola := uuid.New()
	snap := snapshot(item(cola, 2, "500.00"))

	strategy, err := promo.NewFixedQuantity(2, 1)
	require.NoError(t, err)
	p := promotion(t, snap.LocalID, "2x1", 1, strategy, anyOrderTrigger(t),
		[]promo.ScopeEntry{{RefID: cola, Kind: promo.RefProduct, Role: promo.RoleTarget}})

	b, err := svc.Reprice(context.Background(), snap, []promo.Promotion{p})
	require.NoError(t, err)
	require.Equal(t, "1000.00", b.Subtotal.String())
	require.Equal(t, "500.00", b.TotalDiscount.String())
	require.Equal(t, "500.00", b.Total.String())
	require.Len(t, b.PromotionDiscounts, 1)
}

func TestRepriceCategoryPercent(t *testing.T) {
	svc := newService()
	drinks := uuid.New()
	a := item(uuid.New(), 1, "700.00")
	a.CategoryID = drinks
	b2 := item(uuid.New(), 1, "500.00")
	b2.CategoryID = drinks
	snap := snapshot(a, b2)

	strategy, err := promo.NewDirectPercentDiscount(money.MustPercent("10"))
	require.NoError(t, err)
	p := promotion(t, snap.LocalID, "drinks 10", 1, strategy, anyOrderTrigger(t),
		[]promo.ScopeEntry{{RefID: drinks, Kind: promo.RefCategory, Role: promo.RoleTarget}})

	b, err := svc.Reprice(context.Background(), snap, []promo.Promotion{p})
	require.NoError(t, err)
	require.Equal(t, "1200.00", b.Subtotal.String())
	require.Equal(t, "120.00", b.TotalDiscount.String())
	require.Equal(t, "1080.00", b.Total.String())
}

func TestRepriceManualPercentRebasesOnRemainder(t *testing.T) {
	svc := newService()
	cola := uuid.New()
	snap := snapshot(item(cola, 1, "100.00"))

	strategy, err := promo.NewDirectPercentDiscount(money.MustPercent("20"))
	require.NoError(t, err)
	p := promotion(t, snap.LocalID, "20 off", 1, strategy, anyOrderTrigger(t),
		[]promo.ScopeEntry{{RefID: cola, Kind: promo.RefProduct, Role: promo.RoleTarget}})
	snap.ManualDiscounts = []order.Discount{manualPercent(t, snap.OrderID, "15")}

	b, err := svc.Reprice(context.Background(), snap, []promo.Promotion{p})
	require.NoError(t, err)
	// Promotion takes 20.00 off 100.00; the manual 15% applies to the 80.00
	// remainder, not the original subtotal.
	require.Equal(t, "100.00", b.Subtotal.String())
	require.Len(t, b.ManualDiscounts, 1)
	require.Equal(t, "12.00", b.ManualDiscounts[0].Value.String())
	require.Equal(t, "32.00", b.TotalDiscount.String())
	require.Equal(t, "68.00", b.Total.String())
}

func TestRepriceManualAmountCapsAtRemainder(t *testing.T) {
	svc := newService()
	snap := snapshot(item(uuid.New(), 1, "10.00"))
	snap.ManualDiscounts = []order.Discount{manualAmount(t, snap.OrderID, "25.00")}

	b, err := svc.Reprice(context.Background(), snap, nil)
	require.NoError(t, err)
	require.Equal(t, "10.00", b.ManualDiscounts[0].Value.String())
	require.Equal(t, "10.00", b.TotalDiscount.String())
	require.True(t, b.Total.IsZero())
}

func TestRepriceSequentialManualDiscounts(t *testing.T) {
	svc := newService()
	snap := snapshot(item(uuid.New(), 1, "100.00"))
	snap.ManualDiscounts = []order.Discount{
		manualPercent(t, snap.OrderID, "50"),
		manualAmount(t, snap.OrderID, "30.00"),
		manualAmount(t, snap.OrderID, "40.00"),
	}

	b, err := svc.Reprice(context.Background(), snap, nil)
	require.NoError(t, err)
	// 50% of 100.00, then 30.00 off the 50.00 left, then 40.00 capped at
	// the remaining 20.00.
	require.Equal(t, "50.00", b.ManualDiscounts[0].Value.String())
	require.Equal(t, "30.00", b.ManualDiscounts[1].Value.String())
	require.Equal(t, "20.00", b.ManualDiscounts[2].Value.String())
	require.Equal(t, "100.00", b.TotalDiscount.String())
	require.True(t, b.Total.IsZero())
}

func TestRepricePromotionsComposeAdditively(t *testing.T) {
	svc := newService()
	cola := uuid.New()
	snap := snapshot(item(cola, 1, "100.00"))
	scope := []promo.ScopeEntry{{RefID: cola, Kind: promo.RefProduct, Role: promo.RoleTarget}}

	ten, err := promo.NewDirectPercentDiscount(money.MustPercent("10"))
	require.NoError(t, err)
	twenty, err := promo.NewDirectPercentDiscount(money.MustPercent("20"))
	require.NoError(t, err)

	catalog := []promo.Promotion{
		promotion(t, snap.LocalID, "first", 1, ten, anyOrderTrigger(t), scope),
		promotion(t, snap.LocalID, "second", 2, twenty, anyOrderTrigger(t), scope),
	}

	b, err := svc.Reprice(context.Background(), snap, catalog)
	require.NoError(t, err)
	// 10.00 + 20.00 against the original subtotal, not 10% then 20% of a
	// shrinking base.
	require.Equal(t, "30.00", b.TotalDiscount.String())
	require.Equal(t, "70.00", b.Total.String())
}

func TestRepriceTotalNeverNegative(t *testing.T) {
	svc := newService()
	cola := uuid.New()
	snap := snapshot(item(cola, 1, "10.00"))
	scope := []promo.ScopeEntry{{RefID: cola, Kind: promo.RefProduct, Role: promo.RoleTarget}}

	big, err := promo.NewDirectAmountDiscount(money.MustFromString("8.00"))
	require.NoError(t, err)
	catalog := []promo.Promotion{
		promotion(t, snap.LocalID, "a", 1, big, anyOrderTrigger(t), scope),
		promotion(t, snap.LocalID, "b", 2, big, anyOrderTrigger(t), scope),
	}
	snap.ManualDiscounts = []order.Discount{manualAmount(t, snap.OrderID, "50.00")}

	b, err := svc.Reprice(context.Background(), snap, catalog)
	require.NoError(t, err)
	require.True(t, b.TotalDiscount.Cmp(b.Subtotal) <= 0)
	require.False(t, b.Total.IsNegative())
	require.True(t, b.Total.Equal(b.Subtotal.Sub(b.TotalDiscount)))
}

func TestRepriceExtrasCountTowardSubtotalNotPromotions(t *testing.T) {
	svc := newService()
	burger := uuid.New()
	li := item(burger, 2, "10.00")
	li.Extras = []order.Extra{{ID: uuid.New(), Name: "cheese", UnitPrice: money.MustFromString("1.50")}}
	snap := snapshot(li)

	strategy, err := promo.NewDirectPercentDiscount(money.MustPercent("50"))
	require.NoError(t, err)
	p := promotion(t, snap.LocalID, "half off", 1, strategy, anyOrderTrigger(t),
		[]promo.ScopeEntry{{RefID: burger, Kind: promo.RefProduct, Role: promo.RoleTarget}})

	b, err := svc.Reprice(context.Background(), snap, []promo.Promotion{p})
	require.NoError(t, err)
	// Subtotal includes the extras (20.00 + 3.00); the promotion discounts
	// only the 20.00 product base.
	require.Equal(t, "23.00", b.Subtotal.String())
	require.Equal(t, "10.00", b.TotalDiscount.String())
	require.Equal(t, "13.00", b.Total.String())
}

func TestRepriceIdempotent(t *testing.T) {
	svc := newService()
	cola := uuid.New()
	snap := snapshot(item(cola, 3, "4.50"))

	strategy, err := promo.NewFixedQuantity(3, 2)
	require.NoError(t, err)
	p := promotion(t, snap.LocalID, "3x2", 1, strategy, anyOrderTrigger(t),
		[]promo.ScopeEntry{{RefID: cola, Kind: promo.RefProduct, Role: promo.RoleTarget}})
	snap.ManualDiscounts = []order.Discount{manualPercent(t, snap.OrderID, "10")}

	first, err := svc.Reprice(context.Background(), snap, []promo.Promotion{p})
	require.NoError(t, err)
	second, err := svc.Reprice(context.Background(), snap, []promo.Promotion{p})
	require.NoError(t, err)

	require.True(t, first.Subtotal.Equal(second.Subtotal))
	require.True(t, first.TotalDiscount.Equal(second.TotalDiscount))
	require.True(t, first.Total.Equal(second.Total))
	require.Equal(t, len(first.PromotionDiscounts), len(second.PromotionDiscounts))
}

func TestRepriceRejectsMalformedSnapshot(t *testing.T) {
	svc := newService()
	bad := item(uuid.New(), 0, "5.00")
	snap := snapshot(bad)

	_, err := svc.Reprice(context.Background(), snap, nil)
	require.ErrorIs(t, err, ErrMalformedSnapshot)
}

func TestRepriceRejectsInvalidManualDiscount(t *testing.T) {
	svc := newService()
	snap := snapshot(item(uuid.New(), 1, "5.00"))

	// A promotion-origin discount smuggled into the manual list is refused.
	promoID := uuid.New()
	itemless, err := order.NewPromotionDiscount(snap.OrderID, promoID, nil, money.MustFromString("1.00"), noon)
	require.NoError(t, err)
	snap.ManualDiscounts = []order.Discount{itemless}

	_, err = svc.Reprice(context.Background(), snap, nil)
	require.ErrorIs(t, err, ErrInvalidManualDiscount)
}

func TestRepriceEmptyOrder(t *testing.T) {
	svc := newService()
	b, err := svc.Reprice(context.Background(), snapshot(), nil)
	require.NoError(t, err)
	require.True(t, b.Subtotal.IsZero())
	require.True(t, b.Total.IsZero())
}
