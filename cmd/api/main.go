package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"

	"github.com/foodflow/pos-api/internal/catalog"
	"github.com/foodflow/pos-api/internal/clock"
	"github.com/foodflow/pos-api/internal/common"
	"github.com/foodflow/pos-api/internal/config"
	"github.com/foodflow/pos-api/internal/health"
	"github.com/foodflow/pos-api/internal/local"
	"github.com/foodflow/pos-api/internal/obs"
	"github.com/foodflow/pos-api/internal/pricing"
	"github.com/foodflow/pos-api/internal/promo"
	"github.com/foodflow/pos-api/internal/promotions"
	"github.com/foodflow/pos-api/internal/ratelimit"
	"github.com/foodflow/pos-api/internal/repo"
	"github.com/foodflow/pos-api/internal/report"
	"github.com/foodflow/pos-api/internal/security"
	"github.com/foodflow/pos-api/internal/tables"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{Logger: logger}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "pos-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	if err := repo.Bootstrap(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("bootstrap schema")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	posClock := clock.New(cfg.Timezone, cfg.DevClockEnabled)

	pricer := &pricing.Service{
		Engine: promo.Engine{Logger: logger},
		Logger: logger,
		Now:    posClock.Now,
	}

	catalogService := catalog.NewService(catalog.ServiceConfig{
		Store:  repo.CatalogRepo{DB: pool},
		Cache:  catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		Logger: logger,
	})
	catalogHandler := catalog.NewHandler(catalogService)

	promotionsService := promotions.NewService(promotions.ServiceConfig{
		Store:  repo.PromotionsRepo{DB: pool},
		Logger: logger,
		Now:    posClock.Now,
	})
	promotionsHandler := promotions.NewHandler(promotionsService)

	tablesService := tables.NewService(tables.ServiceConfig{
		Pool:   pool,
		Pricer: pricer,
		Logger: logger,
		Now:    posClock.Now,
	})
	tablesHandler := tables.NewHandler(tablesService)

	reportService := report.NewService(repo.NewCashDeskRepo(pool), cfg.Timezone, posClock.Now)
	reportHandler := report.NewHandler(reportService)

	httpMetrics := obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.HTTPBucketsCSV), nil)
	idem := common.Idem{R: redisClient, TTL: 24 * time.Hour}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers{}.Middleware)
	r.Use(security.MaxBody{Bytes: 1 << 20}.Middleware)
	r.Use(obs.RoutePatternMiddleware)
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key", local.HeaderName},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	healthHandler := health.Handler{
		Checker: readinessChecker{db: pool, redis: redisClient},
	}
	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		if cfg.DevClockEnabled {
			v.Post("/dev/clock", clock.Handler{Clock: posClock}.SetOffset)
		}

		v.Group(func(scoped chi.Router) {
			scoped.Use(local.Require)
			scoped.Use(ratelimit.Middleware{
				Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "ratelimit:"},
				Window:  time.Minute,
				Max:     600,
				Logger:  logger,
			}.Handler)
			catalogHandler.Routes(scoped)
			promotionsHandler.Routes(scoped)
			reportHandler.Routes(scoped)

			scoped.Group(func(mut chi.Router) {
				mut.Use(idem.Middleware)
				tablesHandler.Routes(mut)
			})
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		logger.Info().Msg("shutting down")
		health.SetReady(false)
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Str("timezone", cfg.Timezone.String()).
		Bool("dev_clock", cfg.DevClockEnabled).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	for i, origin := range cfg.CORSAllowedOrigins {
		cfg.CORSAllowedOrigins[i] = strings.TrimSpace(origin)
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}
