// Seeder loads a demo venue: a small menu, a few tables, and one promotion
// of each strategy so a fresh environment has something to price.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/foodflow/pos-api/internal/local"
	"github.com/foodflow/pos-api/internal/money"
	"github.com/foodflow/pos-api/internal/promo"
	"github.com/foodflow/pos-api/internal/repo"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	if err := repo.Bootstrap(ctx, pool); err != nil {
		log.Fatalf("bootstrap schema: %v", err)
	}

	localID := demoLocalID()
	ctx = local.With(ctx, localID)
	log.Printf("seeding local %s", localID)

	catalog := repo.CatalogRepo{DB: pool}
	tablesRepo := repo.TablesRepo{DB: pool}
	promosRepo := repo.PromotionsRepo{DB: pool}

	drinks := mustCategory(ctx, catalog, "Drinks")
	burgers := mustCategory(ctx, catalog, "Burgers")
	desserts := mustCategory(ctx, catalog, "Desserts")

	cola := mustProduct(ctx, catalog, drinks.ID, "Cola", "3.50")
	beer := mustProduct(ctx, catalog, drinks.ID, "Craft Beer", "6.00")
	classic := mustProduct(ctx, catalog, burgers.ID, "Classic Burger", "12.00")
	mustProduct(ctx, catalog, burgers.ID, "Double Bacon", "16.50")
	brownie := mustProduct(ctx, catalog, desserts.ID, "Brownie", "7.00")

	for _, label := range []string{"T1", "T2", "T3", "Bar 1"} {
		if _, err := tablesRepo.Create(ctx, label); err != nil && err != repo.ErrConflict {
			log.Fatalf("seed table %s: %v", label, err)
		}
	}

	now := time.Now()
	seedPromotion(ctx, promosRepo, promo.Config{
		Name:     "Happy Hour Drinks",
		Priority: 1,
		Active:   true,
		Strategy: must(promo.NewDirectPercentDiscount(money.MustPercent("20"))),
		Triggers: []promo.Trigger{mustTrigger(promo.NewTemporalTrigger(promo.TemporalTrigger{
			WindowFrom:  &promo.TimeOfDay{Hour: 18},
			WindowUntil: &promo.TimeOfDay{Hour: 20},
		}))},
		Scope: []promo.ScopeEntry{
			{RefID: drinks.ID, Kind: promo.RefCategory, Role: promo.RoleTarget},
		},
		CreatedAt: now,
	})
	seedPromotion(ctx, promosRepo, promo.Config{
		Name:     "2x1 Cola",
		Priority: 2,
		Active:   true,
		Strategy: must(promo.NewFixedQuantity(2, 1)),
		Triggers: []promo.Trigger{mustTrigger(promo.NewRequiredContentTrigger([]uuid.UUID{cola.ID}))},
		Scope: []promo.ScopeEntry{
			{RefID: cola.ID, Kind: promo.RefProduct, Role: promo.RoleTarget},
		},
		CreatedAt: now,
	})
	seedPromotion(ctx, promosRepo, promo.Config{
		Name:     "Burger Combo",
		Priority: 3,
		Active:   true,
		Strategy: must(promo.NewConditionalCombo(1, money.MustPercent("50"))),
		Triggers: []promo.Trigger{mustTrigger(promo.NewMinimumAmountTrigger(money.MustFromString("15.00")))},
		Scope: []promo.ScopeEntry{
			{RefID: classic.ID, Kind: promo.RefProduct, Role: promo.RoleTrigger},
			{RefID: brownie.ID, Kind: promo.RefProduct, Role: promo.RoleTarget},
		},
		CreatedAt: now,
	})
	seedPromotion(ctx, promosRepo, promo.Config{
		Name:     "Beer Bucket",
		Priority: 4,
		Active:   true,
		Strategy: must(promo.NewFixedPricePerQuantity(4, money.MustFromString("20.00"))),
		Triggers: []promo.Trigger{mustTrigger(promo.NewRequiredContentTrigger([]uuid.UUID{beer.ID}))},
		Scope: []promo.ScopeEntry{
			{RefID: beer.ID, Kind: promo.RefProduct, Role: promo.RoleTarget},
		},
		CreatedAt: now,
	})

	log.Println("seeding completed")
	log.Printf("use header %s: %s", local.HeaderName, localID)
}

func demoLocalID() uuid.UUID {
	if raw := os.Getenv("POS_SEED_LOCAL_ID"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			log.Fatalf("POS_SEED_LOCAL_ID: %v", err)
		}
		return id
	}
	return uuid.MustParse("11111111-1111-1111-1111-111111111111")
}

func mustCategory(ctx context.Context, r repo.CatalogRepo, name string) repo.Category {
	c, err := r.CreateCategory(ctx, name, true)
	if err == repo.ErrConflict {
		for _, existing := range mustList(r.ListCategories(ctx)) {
			if existing.Name == name {
				return existing
			}
		}
	}
	if err != nil {
		log.Fatalf("seed category %s: %v", name, err)
	}
	return c
}

func mustProduct(ctx context.Context, r repo.CatalogRepo, categoryID uuid.UUID, name, price string) repo.Product {
	p, err := r.CreateProduct(ctx, categoryID, name, money.MustFromString(price), true)
	if err == repo.ErrConflict {
		for _, existing := range mustList(r.ListProducts(ctx, &categoryID, false)) {
			if existing.Name == name {
				return existing
			}
		}
	}
	if err != nil {
		log.Fatalf("seed product %s: %v", name, err)
	}
	return p
}

func seedPromotion(ctx context.Context, r repo.PromotionsRepo, cfg promo.Config) {
	p, err := promo.New(cfg)
	if err != nil {
		log.Fatalf("build promotion %s: %v", cfg.Name, err)
	}
	if err := r.Create(ctx, p); err != nil && err != repo.ErrConflict {
		log.Fatalf("seed promotion %s: %v", cfg.Name, err)
	}
}

func must[T promo.Strategy](s T, err error) promo.Strategy {
	if err != nil {
		log.Fatalf("build strategy: %v", err)
	}
	return s
}

func mustTrigger[T promo.Trigger](t T, err error) promo.Trigger {
	if err != nil {
		log.Fatalf("build trigger: %v", err)
	}
	return t
}

func mustList[T any](items []T, err error) []T {
	if err != nil {
		log.Fatalf("list: %v", err)
	}
	return items
}
