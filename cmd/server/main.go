package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appbilling "github.com/buildingledger/backend/internal/application/billing"
	"github.com/buildingledger/backend/internal/domain/billing"
	"github.com/buildingledger/backend/internal/infrastructure/cache"
	"github.com/buildingledger/backend/internal/infrastructure/config"
	"github.com/buildingledger/backend/internal/infrastructure/lock"
	"github.com/buildingledger/backend/internal/infrastructure/logger"
	"github.com/buildingledger/backend/internal/infrastructure/migration"
	"github.com/buildingledger/backend/internal/infrastructure/persistence"
	"github.com/buildingledger/backend/internal/infrastructure/scheduler"
	"github.com/buildingledger/backend/internal/infrastructure/telemetry"
	"github.com/buildingledger/backend/internal/interfaces/http/handler"
	"github.com/buildingledger/backend/internal/interfaces/http/middleware"
	"github.com/buildingledger/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//	@title			Building Ledger API
//	@version		1.0
//	@description	Invoice distribution, payment allocation and balance reconciliation for residential buildings.

//	@host		localhost:8080
//	@BasePath	/api/v1

const (
	version = "1.0.0"

	// recompute endpoints rewrite every link of a unit or building
	recomputeLimit  = 6
	recomputePeriod = time.Minute

	shutdownTimeout = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx := context.Background()

	// Telemetry: traces, metrics, and zap mirrored to the OTLP log pipeline
	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:     cfg.Telemetry.ServiceName,
		ServiceVersion:  version,
		Endpoint:        cfg.Telemetry.CollectorEndpoint,
		Insecure:        cfg.Telemetry.Insecure,
		Traces:          cfg.Telemetry.Enabled,
		Metrics:         cfg.Telemetry.MetricsEnabled,
		Logs:            cfg.Telemetry.LogsEnabled,
		SamplingRatio:   cfg.Telemetry.SamplingRatio,
		MetricsInterval: cfg.Telemetry.MetricsInterval,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log = tel.Bridge(log, zapcore.InfoLevel)

	log.Info("Starting Building Ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("database", cfg.Database.Driver),
		zap.String("lock_provider", cfg.Lock.Provider),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	dbOpts := []persistence.Option{persistence.WithLogger(gormLog)}
	if cfg.Telemetry.DBTraceEnabled {
		dbOpts = append(dbOpts, persistence.WithTracing(cfg.Telemetry.DBLogFullSQL))
	}
	db, err := persistence.NewDatabase(&cfg.Database, dbOpts...)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := prepareSchema(cfg, db, log); err != nil {
		log.Fatal("Failed to prepare schema", zap.Error(err))
	}

	// Building lock
	var redisClient *redis.Client
	if cfg.Lock.Provider == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			_ = redisClient.Close()
		}()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("Failed to connect to redis", zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
		}
	}
	locker, err := lock.New(cfg.Lock, redisClient, log)
	if err != nil {
		log.Fatal("Failed to initialize building lock", zap.Error(err))
	}

	// Reconciliation engine and services
	ledgerMetrics, err := telemetry.NewLedgerMetrics(tel.Meter(telemetry.LedgerMeterName))
	if err != nil {
		log.Fatal("Failed to initialize ledger metrics", zap.Error(err))
	}
	planner := billing.NewAllocationPlanner(billing.GroupBoundaryPolicy(cfg.Allocation.GroupBoundary))
	engine := appbilling.NewAllocationEngine(planner, log).WithMetrics(ledgerMetrics)
	aggregator := appbilling.NewBalanceAggregator(engine, log)
	scope := persistence.NewGormTransactionScope(db.DB)

	properties := appbilling.NewPropertyService(scope, locker, aggregator, log)
	invoices := appbilling.NewInvoiceService(scope, locker, aggregator, log)
	transactions := appbilling.NewTransactionService(scope, locker, aggregator, log)
	balances := appbilling.NewBalanceService(scope, locker, aggregator, log)

	// Nightly reconcile sweep
	var reconcile *scheduler.CronTrigger
	if cfg.Reconcile.Enabled {
		hour, minute, _ := cfg.Reconcile.Clock()
		triggerCfg := scheduler.DefaultCronTriggerConfig()
		triggerCfg.DailyHour = hour
		triggerCfg.DailyMinute = minute
		triggerCfg.CheckInterval = cfg.Reconcile.CheckInterval
		reconcile, err = scheduler.NewCronTrigger(triggerCfg, properties, balances, log)
		if err != nil {
			log.Fatal("Failed to initialize reconcile trigger", zap.Error(err))
		}
		reconcile.SetRecorder(ledgerMetrics)
		if err := reconcile.Start(ctx); err != nil {
			log.Fatal("Failed to start reconcile trigger", zap.Error(err))
		}
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSOrigins
	securityConfig := middleware.DefaultSecurityConfig()
	securityConfig.HSTSEnabled = cfg.HTTP.HSTS

	ginEngine := gin.New()
	if err := ginEngine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}
	ginEngine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.SpanAttributes(),
		middleware.SpanErrorMarker(),
		middleware.HTTPMetrics(tel.Meter("http.server")),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Timeout(cfg.HTTP.WriteTimeout),
		middleware.CORS(corsConfig),
		middleware.Secure(securityConfig),
	)

	idempotencyStore := cache.NewIdempotencyStore(redisClient, log)
	defer func() {
		_ = idempotencyStore.Close()
	}()

	recomputeLimiter := middleware.NewRateLimiter(recomputeLimit, recomputePeriod)
	defer recomputeLimiter.Stop()
	recompute := func(param string) gin.HandlerFunc {
		return middleware.RateLimitByParam(recomputeLimiter, param)
	}

	r := router.NewRouter(ginEngine)
	groups := handler.LedgerRoutes(handler.Handlers{
		Property:    handler.NewPropertyHandler(properties),
		Invoice:     handler.NewInvoiceHandler(invoices),
		Transaction: handler.NewTransactionHandler(transactions),
		Balance:     handler.NewBalanceHandler(balances),
		System:      handler.NewSystemHandler(version, healthChecks(db, redisClient)),
		Idempotency: middleware.Idempotency(idempotencyStore, cfg.HTTP.IdempotencyTTL),
	}, recompute)
	routes := r.Register(groups...).Setup()
	for _, route := range routes {
		log.Debug("Route registered",
			zap.String("group", route.Group),
			zap.String("method", route.Method),
			zap.String("path", route.Path),
		)
	}
	log.Info("Routes registered", zap.Int("count", len(routes)))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        ginEngine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if reconcile != nil {
		if err := reconcile.Stop(shutdownCtx); err != nil {
			log.Error("Reconcile trigger shutdown failed", zap.Error(err))
		}
	}
	// Flush telemetry after the last request has finished
	if err := tel.Shutdown(shutdownCtx); err != nil {
		log.Error("Telemetry shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// prepareSchema creates the sqlite schema from the models on every start and
// applies pending versioned migrations to postgres outside production.
// Production postgres is migrated by cmd/migrate.
func prepareSchema(cfg *config.Config, db *persistence.Database, log *zap.Logger) error {
	if cfg.Database.Driver == "sqlite" {
		return db.Migrate()
	}
	if cfg.App.Env == "production" {
		return nil
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, nil, log)
	if err != nil {
		return err
	}
	// Closing the migrator would close the shared *sql.DB as well
	return m.Up()
}

// healthChecks probes the database and, when configured, Redis
func healthChecks(db *persistence.Database, redisClient *redis.Client) map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{"database": db.Ping}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	return checks
}
