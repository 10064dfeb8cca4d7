package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	accountingapp "github.com/erp/accounting/internal/application/accounting"
	eventapp "github.com/erp/accounting/internal/application/event"
	financeapp "github.com/erp/accounting/internal/application/finance"
	"github.com/erp/accounting/internal/domain/shared"
	"github.com/erp/accounting/internal/infrastructure/cache"
	"github.com/erp/accounting/internal/infrastructure/config"
	"github.com/erp/accounting/internal/infrastructure/event"
	"github.com/erp/accounting/internal/infrastructure/logger"
	"github.com/erp/accounting/internal/infrastructure/migration"
	"github.com/erp/accounting/internal/infrastructure/persistence"
	"github.com/erp/accounting/internal/infrastructure/telemetry"
	"github.com/erp/accounting/internal/interfaces/http/handler"
	"github.com/erp/accounting/internal/interfaces/http/middleware"
	"github.com/erp/accounting/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"
)

// Version is overridden at build time with -ldflags "-X main.Version=..."
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// OpenTelemetry providers. Each one is a no-op when disabled.
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	if loggerProvider.IsEnabled() {
		// Rebuild the logger so every entry is also exported over OTLP
		log, err = logger.New(logCfg, logger.WithCore(loggerProvider.NewZapCore(logger.ParseLevel(cfg.Log.Level))))
		if err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting accounting service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", Version),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTracing,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBName:          cfg.Database.DBName,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	if cfg.Database.MigrateOnStart {
		if err := runMigrations(db, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	// Metrics
	accountingMetrics, err := telemetry.NewAccountingMetrics(telemetry.AccountingMetricsConfig{
		Meter:  meterProvider.Meter("accounting"),
		Logger: log,
	})
	if err != nil {
		log.Fatal("Failed to create accounting metrics", zap.Error(err))
	}
	defer accountingMetrics.Stop()

	// Event serialization and the transactional outbox
	eventSerializer := event.NewEventSerializer()
	event.RegisterAllEvents(eventSerializer)
	outboxRepo := event.NewGormOutboxRepository(db.DB)
	outboxPublisher := event.NewOutboxPublisher(eventSerializer, cfg.Event.OutboxMaxRetries)

	// Repositories
	ruleRepo := persistence.NewGormAccountDeterminationRepository(db.DB)
	journalRepo := persistence.NewGormJournalEntryRepository(db.DB)
	journalRepo.SetOutboxEventSaver(outboxPublisher)
	ledgerReportRepo := persistence.NewGormLedgerReportRepository(db.DB)
	payableRepo := persistence.NewGormAccountPayableRepository(db.DB)
	payableRepo.SetOutboxEventSaver(outboxPublisher)
	receivableRepo := persistence.NewGormAccountReceivableRepository(db.DB)
	receivableRepo.SetOutboxEventSaver(outboxPublisher)

	// Application services
	integrationService := accountingapp.NewIntegrationService(ruleRepo, journalRepo, log,
		accountingapp.WithMetrics(accountingMetrics),
		accountingapp.WithPostedBy(cfg.Accounting.PostedBy),
	)
	ledgerQueryService := accountingapp.NewLedgerQueryService(journalRepo, ledgerReportRepo, log)
	payableService := financeapp.NewPayableService(payableRepo, log)
	receivableService := financeapp.NewReceivableService(receivableRepo, log)
	outboxService := eventapp.NewOutboxService(outboxRepo, log)

	// Event bus. The accounting handler runs behind the idempotency guard so
	// redelivered events never post twice.
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Event.IdempotencyBackend, cfg.Redis,
		cache.WithLogger(log),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	eventBus := event.NewInMemoryEventBus(log)
	accountingHandler := accountingapp.NewAccountingEventHandler(integrationService, log)
	eventBus.Subscribe(event.NewIdempotentHandler(accountingHandler, idempotencyStore, log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{
			Enabled: cfg.Event.IdempotencyEnabled,
			TTL:     cfg.Event.IdempotencyTTL,
		}),
	), accountingHandler.EventTypes()...)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	var outboxProcessor *event.OutboxProcessor
	if cfg.Event.OutboxEnabled {
		outboxProcessor = event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, event.OutboxProcessorConfig{
			BatchSize:        cfg.Event.OutboxBatchSize,
			PollInterval:     cfg.Event.OutboxPollInterval,
			CleanupEnabled:   true,
			CleanupRetention: cfg.Event.OutboxRetention,
		}, log)
		if err := outboxProcessor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		log.Info("Outbox processor started",
			zap.Int("batch_size", cfg.Event.OutboxBatchSize),
			zap.Duration("poll_interval", cfg.Event.OutboxPollInterval),
		)
	}
	accountingMetrics.StartOutboxCollection(ctx, outboxRepo, cfg.Telemetry.MetricsInterval)

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	var rateLimiter *limiter.Limiter
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter, err = middleware.NewRateLimiter(cfg.HTTP.RateLimit)
		if err != nil {
			log.Fatal("Invalid rate limit", zap.String("rate", cfg.HTTP.RateLimit), zap.Error(err))
		}
	}

	checks := map[string]handler.HealthChecker{
		"database": handler.HealthCheckerFunc(db.Ping),
	}
	if pinger, ok := idempotencyStore.(handler.HealthChecker); ok {
		checks["redis"] = pinger
	}

	engine := router.NewEngine(router.EngineOptions{
		Logger: log,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		CORS:         middleware.CORSConfig{AllowOrigins: cfg.HTTP.CORSAllowedOrigins, MaxAge: 12 * time.Hour},
		Security:     middleware.SecurityConfig{HSTSEnabled: cfg.IsProduction(), HSTSMaxAge: 31536000},
		RateLimiter:  rateLimiter,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
	}, router.Handlers{
		Accounting:  handler.NewAccountingHandler(eventSerializer, eventBus, ledgerQueryService),
		Payables:    handler.NewObligationHandler(payableService),
		Receivables: handler.NewObligationHandler(receivableService),
		Outbox:      handler.NewOutboxHandler(outboxService),
		System:      handler.NewSystemHandler(cfg.App.Name, Version, checks),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if outboxProcessor != nil {
		if err := outboxProcessor.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping outbox processor", zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func runMigrations(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, "", log)
	if err != nil {
		return err
	}
	// Closing the migrator would close the shared connection pool.
	return m.Up()
}
