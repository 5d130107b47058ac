package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	inventoryapp "github.com/larder/backend/internal/application/inventory"
	"github.com/larder/backend/internal/domain/inventory"
	"github.com/larder/backend/internal/domain/shared"
	"github.com/larder/backend/internal/domain/shared/valueobject"
	"github.com/larder/backend/internal/infrastructure/auth"
	"github.com/larder/backend/internal/infrastructure/cache"
	"github.com/larder/backend/internal/infrastructure/config"
	"github.com/larder/backend/internal/infrastructure/event"
	"github.com/larder/backend/internal/infrastructure/logger"
	"github.com/larder/backend/internal/infrastructure/migration"
	"github.com/larder/backend/internal/infrastructure/persistence"
	"github.com/larder/backend/internal/infrastructure/strategy"
	"github.com/larder/backend/internal/infrastructure/telemetry"
	"github.com/larder/backend/internal/interfaces/http/handler"
	"github.com/larder/backend/internal/interfaces/http/middleware"
	"github.com/larder/backend/internal/interfaces/http/router"
	"github.com/larder/backend/migrations"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}

	// Log export needs a logger to report its own setup, so the process
	// logger is rebuilt with the bridge core once the provider exists.
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       serviceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	if logProvider.IsEnabled() {
		if log, err = logger.New(logCfg, logProvider.ZapCore(logger.ParseLevel(cfg.Log.Level))); err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting larder",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       serviceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       serviceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	defer shutdownTelemetry(log, logProvider, meterProvider, tracerProvider)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
	)
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := migrateSchema(cfg, db, log); err != nil {
		log.Fatal("Failed to migrate schema", zap.Error(err))
	}

	if err := telemetry.RegisterOtelGorm(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to get sql.DB", zap.Error(err))
	}
	dbMetrics, err := telemetry.NewDBMetrics(meterProvider.Meter("github.com/larder/backend/database"), sqlDB, telemetry.DBMetricsConfig{
		Enabled:            meterProvider.IsEnabled(),
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize database metrics", zap.Error(err))
	}
	defer func() { _ = dbMetrics.Stop() }()
	if err := dbMetrics.RegisterCallbacks(db.DB); err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}

	// Events go to the log always and to Kafka when brokers are configured
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewLogHandler(log))
	if cfg.Kafka.Enabled() {
		kafkaSink := event.NewKafkaEventSink(event.NewKafkaWriter(event.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		}), cfg.Kafka.WriteTimeout, log)
		defer func() {
			if err := kafkaSink.Close(); err != nil {
				log.Error("Error closing Kafka writer", zap.Error(err))
			}
		}()
		bus.Subscribe(kafkaSink)
		log.Info("Publishing events to Kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	idempotency, err := cache.NewIdempotencyStore(ctx, cfg.Idempotency, cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	if closer, ok := idempotency.(interface{ Close() error }); ok {
		defer func() { _ = closer.Close() }()
	}

	policy, err := inventory.ParseQuantityPolicy(cfg.Ledger.NonPositivePolicy, cfg.Ledger.OverDecrementPolicy)
	if err != nil {
		log.Fatal("Invalid ledger policy", zap.Error(err))
	}
	ledgerMetrics, err := telemetry.NewLedgerMetrics(meterProvider.Meter(telemetry.LedgerMeterName))
	if err != nil {
		log.Fatal("Failed to initialize ledger metrics", zap.Error(err))
	}

	inventoryService := inventoryapp.NewInventoryService(inventoryapp.InventoryServiceDeps{
		Scope:      persistence.NewGormTransactionScope(db.DB),
		Reads:      persistence.NewGormRepositories(db.DB),
		Locations:  persistence.NewGormLocationRepository(db.DB),
		Vendors:    persistence.NewGormVendorRepository(db.DB),
		Strategies: strategy.MustNewRegistryWithDefaults(),
		Policy:     policy,
		Clock:      shared.SystemClock{},
		Sink:       bus,
		Metrics:    ledgerMetrics,
		Currency:   valueobject.Currency(cfg.Ledger.Currency),
		Planning: inventory.PlanningConfig{
			UsageLookbackDays: cfg.Planning.UsageLookbackDays,
			MinLeadTimeDays:   cfg.Planning.MinLeadTimeDays,
			SafetyFactor:      decimal.NewFromFloat(cfg.Planning.SafetyFactor),
		},
		Logger:           log,
		Idempotency:      idempotency,
		IdempotencyTTL:   cfg.Idempotency.TTL,
		ConflictRetries:  cfg.Ledger.ConflictRetries,
		ExpiryWindowDays: cfg.Planning.ExpiryWindowDays,
	})

	if meterProvider.IsEnabled() {
		registration, err := telemetry.ObserveStock(meterProvider.Meter(telemetry.LedgerMeterName), inventoryService.StockSnapshot)
		if err != nil {
			log.Fatal("Failed to register stock gauges", zap.Error(err))
		}
		defer func() { _ = registration.Unregister() }()
	}

	var maintenance *inventoryapp.MaintenanceService
	if cfg.Reconciliation.Enabled {
		maintenance = inventoryapp.NewMaintenanceService(inventoryService, inventoryapp.MaintenanceConfig{
			Interval:   cfg.Reconciliation.Interval,
			RunOnStart: true,
		}, log)
		if err := maintenance.Start(ctx); err != nil {
			log.Fatal("Failed to start maintenance", zap.Error(err))
		}
	}

	middleware.SetupValidator()
	engine, err := router.NewEngine(router.EngineConfig{
		ServiceName: serviceName,
		HTTP:        cfg.HTTP,
		Logger:      log,
		Meter:       meterProvider.Meter("github.com/larder/backend/http"),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT)
	var opts []router.RouterOption
	if mw := router.AuthMiddleware(jwtService, log); mw != nil {
		opts = append(opts, router.WithAPIMiddleware(mw))
	} else {
		log.Warn("JWT secret not configured, API is unauthenticated")
	}

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version).
		AddCheck("database", func(ctx context.Context) error {
			return sqlDB.PingContext(ctx)
		})

	r := router.NewRouter(engine, opts...)
	r.Register(router.SystemRoutes(engine, systemHandler))
	r.Register(router.InventoryRoutes(handler.NewInventoryHandler(inventoryService, maintenance))...)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
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

	shutdownTimeout := cfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if maintenance != nil {
		if err := maintenance.Stop(shutdownCtx); err != nil {
			log.Error("Maintenance did not stop cleanly", zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}

// migrateSchema applies the embedded SQL migrations, or gorm AutoMigrate when
// configured for local development
func migrateSchema(cfg *config.Config, db *persistence.Database, log *zap.Logger) error {
	if cfg.Database.AutoMigrate {
		log.Info("Running gorm AutoMigrate")
		return db.AutoMigrate()
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, migrations.FS, log)
	if err != nil {
		return err
	}
	// Closing the migrator would close sqlDB, which the server still uses
	return m.Up()
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// shutdownTelemetry flushes providers in reverse order of creation
func shutdownTelemetry(log *zap.Logger, providers ...shutdowner) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, p := range providers {
		if err := p.Shutdown(ctx); err != nil {
			log.Error("Telemetry shutdown failed", zap.Error(err))
		}
	}
}
