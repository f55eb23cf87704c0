package promo

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/foodflow/pos-api/internal/money"
	"github.com/foodflow/pos-api/internal/order"
)

func alwaysOn(t *testing.T) []Trigger {
	t.Helper()
	trig, err := NewMinimumAmountTrigger(money.FromCents(1))
	require.NoError(t, err)
	return []Trigger{trig}
}

func mustPromotion(t *testing.T, cfg Config) Promotion {
	t.Helper()
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func TestEngineSingleLineDiscountIsItemScoped(t *testing.T) {
	e := Engine{Logger: zerolog.Nop()}
	cola := uuid.New()
	item := line(cola, 2, "500.00")
	snap := snapshotWith(item)

	strategy, err := NewFixedQuantity(2, 1)
	require.NoError(t, err)
	p := mustPromotion(t, Config{
		LocalID:  snap.LocalID,
		Name:     "2x1",
		Priority: 1,
		Active:   true,
		Strategy: strategy,
		Triggers: alwaysOn(t),
		Scope:    []ScopeEntry{{RefID: cola, Kind: RefProduct, Role: RoleTarget}},
	})

	discounts := e.Evaluate(snap, []Promotion{p}, at(12, 0))
	require.Len(t, discounts, 1)
	d := discounts[0]
	require.Equal(t, order.OriginPromotion, d.Origin)
	require.Equal(t, order.ScopeItem, d.Scope)
	require.NotNil(t, d.ItemID)
	require.Equal(t, item.ID, *d.ItemID)
	require.Equal(t, "500.00", d.Value.String())
}

func TestEngineMultiLineDiscountIsTotalScoped(t *testing.T) {
	e := Engine{Logger: zerolog.Nop()}
	drinks := uuid.New()
	a := line(uuid.New(), 1, "600.00")
	a.CategoryID = drinks
	b := line(uuid.New(), 1, "600.00")
	b.CategoryID = drinks
	snap := snapshotWith(a, b)

	strategy, err := NewDirectPercentDiscount(money.MustPercent("10"))
	require.NoError(t, err)
	p := mustPromotion(t, Config{
		LocalID:  snap.LocalID,
		Name:     "drinks 10 off",
		Priority: 1,
		Active:   true,
		Strategy: strategy,
		Triggers: alwaysOn(t),
		Scope:    []ScopeEntry{{RefID: drinks, Kind: RefCategory, Role: RoleTarget}},
	})

	discounts := e.Evaluate(snap, []Promotion{p}, at(12, 0))
	require.Len(t, discounts, 1)
	require.Equal(t, order.ScopeTotal, discounts[0].Scope)
	require.Nil(t, discounts[0].ItemID)
	require.Equal(t, "120.00", discounts[0].Value.String())
}

func TestEngineSkipsInactivePromotions(t *testing.T) {
	e := Engine{Logger: zerolog.Nop()}
	cola := uuid.New()
	snap := snapshotWith(line(cola, 2, "3.00"))

	strategy, err := NewFixedQuantity(2, 1)
	require.NoError(t, err)
	p := mustPromotion(t, Config{
		LocalID:  snap.LocalID,
		Name:     "dormant",
		Priority: 1,
		Active:   false,
		Strategy: strategy,
		Triggers: alwaysOn(t),
		Scope:    []ScopeEntry{{RefID: cola, Kind: RefProduct, Role: RoleTarget}},
	})

	require.Empty(t, e.Evaluate(snap, []Promotion{p}, at(12, 0)))
}

func TestEngineSkipsUnmetTriggers(t *testing.T) {
	e := Engine{Logger: zerolog.Nop()}
	cola := uuid.New()
	snap := snapshotWith(line(cola, 2, "3.00"))

	trig, err := NewMinimumAmountTrigger(money.MustFromString("100.00"))
	require.NoError(t, err)
	strategy, err := NewFixedQuantity(2, 1)
	require.NoError(t, err)
	p := mustPromotion(t, Config{
		LocalID:  snap.LocalID,
		Name:     "big spender",
		Priority: 1,
		Active:   true,
		Strategy: strategy,
		Triggers: []Trigger{trig},
		Scope:    []ScopeEntry{{RefID: cola, Kind: RefProduct, Role: RoleTarget}},
	})

	require.Empty(t, e.Evaluate(snap, []Promotion{p}, at(12, 0)))
}

func TestEnginePriorityOrdering(t *testing.T) {
	e := Engine{Logger: zerolog.Nop()}
	cola := uuid.New()
	snap := snapshotWith(line(cola, 1, "100.00"))

	tenOff, err := NewDirectPercentDiscount(money.MustPercent("10"))
	require.NoError(t, err)
	fiveOff, err := NewDirectAmountDiscount(money.MustFromString("5.00"))
	require.NoError(t, err)
	scope := []ScopeEntry{{RefID: cola, Kind: RefProduct, Role: RoleTarget}}

	second := mustPromotion(t, Config{
		LocalID: snap.LocalID, Name: "later", Priority: 20, Active: true,
		Strategy: fiveOff, Triggers: alwaysOn(t), Scope: scope,
	})
	first := mustPromotion(t, Config{
		LocalID: snap.LocalID, Name: "earlier", Priority: 10, Active: true,
		Strategy: tenOff, Triggers: alwaysOn(t), Scope: scope,
	})

	discounts := e.Evaluate(snap, []Promotion{second, first}, at(12, 0))
	require.Len(t, discounts, 2)
	require.Equal(t, first.ID, *discounts[0].PromotionID)
	require.Equal(t, second.ID, *discounts[1].PromotionID)

	// Both computed against the original subtotal: 10.00 then 5.00, never
	// 10% of an already reduced figure.
	require.Equal(t, "10.00", discounts[0].Value.String())
	require.Equal(t, "5.00", discounts[1].Value.String())
}

func TestEngineSkipsMalformedPromotion(t *testing.T) {
	e := Engine{Logger: zerolog.Nop()}
	cola := uuid.New()
	snap := snapshotWith(line(cola, 2, "3.00"))

	strategy, err := NewFixedQuantity(2, 1)
	require.NoError(t, err)
	good := mustPromotion(t, Config{
		LocalID: snap.LocalID, Name: "good", Priority: 2, Active: true,
		Strategy: strategy, Triggers: alwaysOn(t),
		Scope: []ScopeEntry{{RefID: cola, Kind: RefProduct, Role: RoleTarget}},
	})
	// A promotion stored without a strategy must not poison the whole pass.
	broken := good
	broken.ID = uuid.New()
	broken.Name = "broken"
	broken.Priority = 1
	broken.Strategy = nil

	discounts := e.Evaluate(snap, []Promotion{broken, good}, at(12, 0))
	require.Len(t, discounts, 1)
	require.Equal(t, good.ID, *discounts[0].PromotionID)
}

func TestEngineClampsToTargetBase(t *testing.T) {
	e := Engine{Logger: zerolog.Nop()}
	cola := uuid.New()
	snap := snapshotWith(line(cola, 1, "8.00"))

	bigAmount, err := NewDirectAmountDiscount(money.MustFromString("50.00"))
	require.NoError(t, err)
	p := mustPromotion(t, Config{
		LocalID: snap.LocalID, Name: "oversized", Priority: 1, Active: true,
		Strategy: bigAmount, Triggers: alwaysOn(t),
		Scope: []ScopeEntry{{RefID: cola, Kind: RefProduct, Role: RoleTarget}},
	})

	discounts := e.Evaluate(snap, []Promotion{p}, at(12, 0))
	require.Len(t, discounts, 1)
	require.Equal(t, "8.00", discounts[0].Value.String())
}

func TestEngineZeroValueProducesNoDiscount(t *testing.T) {
	e := Engine{Logger: zerolog.Nop()}
	cola := uuid.New()
	snap := snapshotWith(line(cola, 1, "3.00"))

	strategy, err := NewFixedQuantity(2, 1)
	require.NoError(t, err)
	p := mustPromotion(t, Config{
		LocalID: snap.LocalID, Name: "needs two", Priority: 1, Active: true,
		Strategy: strategy, Triggers: alwaysOn(t),
		Scope: []ScopeEntry{{RefID: cola, Kind: RefProduct, Role: RoleTarget}},
	})

	require.Empty(t, e.Evaluate(snap, []Promotion{p}, at(12, 0)))
}

func TestSortForEvaluationBreaksTiesByCreation(t *testing.T) {
	strategy, err := NewDirectPercentDiscount(money.MustPercent("5"))
	require.NoError(t, err)
	trig, err := NewMinimumAmountTrigger(money.FromCents(1))
	require.NoError(t, err)

	older := Promotion{ID: uuid.New(), Name: "older", Priority: 5, Active: true,
		Strategy: strategy, Triggers: []Trigger{trig}, CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	newer := older
	newer.ID = uuid.New()
	newer.Name = "newer"
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)

	ps := []Promotion{newer, older}
	SortForEvaluation(ps)
	require.Equal(t, "older", ps[0].Name)
	require.Equal(t, "newer", ps[1].Name)
}
