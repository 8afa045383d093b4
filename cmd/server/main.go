package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appaccounting "github.com/erp/fiscal/internal/application/accounting"
	appfiscal "github.com/erp/fiscal/internal/application/fiscal"
	"github.com/erp/fiscal/internal/domain/fiscal"
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/erp/fiscal/internal/infrastructure/auth"
	"github.com/erp/fiscal/internal/infrastructure/cache"
	"github.com/erp/fiscal/internal/infrastructure/config"
	"github.com/erp/fiscal/internal/infrastructure/event"
	"github.com/erp/fiscal/internal/infrastructure/logger"
	"github.com/erp/fiscal/internal/infrastructure/migration"
	"github.com/erp/fiscal/internal/infrastructure/persistence"
	"github.com/erp/fiscal/internal/infrastructure/scheduler"
	"github.com/erp/fiscal/internal/infrastructure/storage"
	"github.com/erp/fiscal/internal/infrastructure/telemetry"
	"github.com/erp/fiscal/internal/interfaces/http/handler"
	"github.com/erp/fiscal/internal/interfaces/http/middleware"
	"github.com/erp/fiscal/internal/interfaces/http/router"
	"github.com/erp/fiscal/migrations"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx := context.Background()

	// Telemetry first, so the OTLP log bridge can be teed into the logger
	bootLog := logger.New(logger.FromAppConfig(cfg.Log))
	providers, err := telemetry.Setup(ctx, telemetry.ConfigFrom(cfg.Telemetry, version), bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			bootLog.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	minLevel, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		minLevel = zapcore.InfoLevel
	}
	log := logger.New(logger.FromAppConfig(cfg.Log), providers.Logs.ZapCore(cfg.App.Name, minLevel))
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting fiscal ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Database with zap backed GORM logging and otelgorm tracing
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithGormLogger(gormLog),
		persistence.WithPlugin(telemetry.NewDBTracingPlugin(telemetry.DBTracingConfigFrom(cfg.Telemetry, cfg.Database))),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := runMigrations(&cfg.Database, log); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to get database handle", zap.Error(err))
	}

	// Redis is optional; without it the stores live in process memory
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing redis", zap.Error(err))
			}
		}()
	}
	stores := cache.NewStores(redisClient, log)

	// Repositories
	accountRepo := persistence.NewGormAccountRepository(db.DB)
	journalRepo := persistence.NewGormJournalEntryRepository(db.DB)
	periodRepo := persistence.NewGormAccountingPeriodRepository(db.DB)
	recurringRepo := persistence.NewGormRecurringEntryRepository(db.DB)
	salesBookRepo := persistence.NewGormSalesBookRepository(db.DB)
	purchaseBookRepo := persistence.NewGormPurchaseBookRepository(db.DB)
	ivaWithholdingRepo := persistence.NewGormIVAWithholdingRepository(db.DB)
	islrWithholdingRepo := persistence.NewGormISLRWithholdingRepository(db.DB)
	declarationRepo := persistence.NewGormIVADeclarationRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Application services
	poster := appaccounting.NewJournalPoster(log)
	accountService := appaccounting.NewAccountService(accountRepo, log)
	journalService := appaccounting.NewJournalService(accountRepo, journalRepo, txScope, poster, log)
	periodService := appaccounting.NewPeriodService(periodRepo, journalRepo, txScope, poster, log)
	recurringService := appaccounting.NewRecurringService(recurringRepo, accountRepo, txScope, poster, log)
	withholdingService := appfiscal.NewWithholdingService(ivaWithholdingRepo, islrWithholdingRepo, txScope.Fiscal(), poster, log)
	bookService := appfiscal.NewBookService(salesBookRepo, purchaseBookRepo, fiscal.SyncOptions{
		Tolerance:         cfg.Fiscal.SyncTolerance,
		DefaultPersonType: cfg.Fiscal.PersonType(),
	}, log)
	declarationService := appfiscal.NewDeclarationService(declarationRepo, txScope.Fiscal(), log)
	bookService.SetDocumentResolver(stores.Documents)

	// Event bus: billing documents feed the sales book and the journal
	eventBus := event.NewInMemoryEventBus(log, event.WithHandlerTimeout(cfg.Event.HandlerTimeout))
	postingHandler := appaccounting.NewBillingPostingHandler(txScope, poster, log)
	postingHandler.SetEventPublisher(eventBus)
	billingHandlers := event.WrapHandlersWithIdempotency(
		[]shared.EventHandler{
			appfiscal.NewBillingSyncHandler(bookService, log),
			postingHandler,
		},
		stores.Idempotency,
		log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{TTL: cfg.Event.IdempotencyTTL, Enabled: true}),
	)
	for _, h := range billingHandlers {
		eventBus.Subscribe(h, h.EventTypes()...)
	}
	for _, svc := range []interface {
		SetEventPublisher(shared.EventPublisher)
	}{accountService, journalService, periodService, recurringService, withholdingService, bookService, declarationService} {
		svc.SetEventPublisher(eventBus)
	}
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := eventBus.Stop(stopCtx); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()
	log.Info("Event bus started", zap.Int("billing_handlers", len(billingHandlers)))

	// Prometheus fiscal counters
	registry := telemetry.NewPrometheusRegistry(sqlDB, cfg.Database.DBName)
	if cfg.Metrics.Enabled {
		recorder, err := telemetry.NewPrometheusRecorder(registry, cfg.Metrics.Namespace)
		if err != nil {
			log.Fatal("Failed to register fiscal metrics", zap.Error(err))
		}
		bookService.SetRecorder(recorder)
		withholdingService.SetRecorder(recorder)
	}

	// Export archive on S3 compatible storage
	var exportHandler *handler.ExportHandler
	if cfg.Storage.Enabled() {
		archive, err := storage.NewS3ObjectStorage(&cfg.Storage,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.Storage.DownloadTTL),
		)
		if err != nil {
			log.Fatal("Failed to initialize export archive", zap.Error(err))
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare export bucket", zap.Error(err))
		}
		bookService.SetArchiver(archive)
		withholdingService.SetArchiver(archive)
		exportHandler = handler.NewExportHandler(archive, cfg.Storage.DownloadTTL)
		log.Info("Export archive enabled", zap.String("bucket", archive.GetBucket()))
	}

	// Recurring entry scheduler
	var recurringTrigger handler.RecurringTrigger
	if cfg.Scheduler.Enabled {
		trigger, stop := startScheduler(ctx, cfg, recurringService, stores.Idempotency, log)
		defer stop()
		recurringTrigger = trigger
	}

	// Authentication
	jwtService := auth.NewJWTService(cfg.JWT)
	var blacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	if redisClient != nil {
		blacklist = auth.NewRedisTokenBlacklist(redisClient)
	}
	apiKeys, err := auth.NewAPIKeyVerifier(cfg.JWT.InternalAPIKeyHash)
	if err != nil {
		log.Fatal("Invalid internal API key hash", zap.Error(err))
	}
	if !apiKeys.Enabled() {
		log.Warn("Internal API key not configured, /internal endpoints are disabled")
	}

	// HTTP handlers
	handlers := router.LedgerHandlers{
		Accounts:     handler.NewAccountHandler(accountService),
		Journal:      handler.NewJournalHandler(journalService),
		Periods:      handler.NewPeriodHandler(periodService),
		Recurring:    handler.NewRecurringHandler(recurringService),
		Withholdings: handler.NewWithholdingHandler(withholdingService),
		Books:        handler.NewBookHandler(bookService),
		Declarations: handler.NewDeclarationHandler(declarationService),
		Exports:      exportHandler,
		System:       handler.NewSystemHandler(cfg.App.Name, version),
	}
	handlers.System.AddCheck("database", db.Ping)
	if redisClient != nil {
		handlers.System.AddCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	internalHandler := handler.NewInternalHandler(eventBus, stores.Documents, recurringTrigger)

	// Gin engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORSWithConfig(middleware.CORSConfigFrom(cfg.HTTP)),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.SpanErrorMarker(),
		middleware.HTTPMetrics(providers.Meter),
	)

	engine.GET("/health", handlers.System.Health)
	engine.GET("/ready", handlers.System.Ready)
	if cfg.Metrics.Enabled {
		engine.GET(cfg.Metrics.Path, gin.WrapH(telemetry.PrometheusHandler(registry)))
	}

	r := router.NewRouter(engine)
	r.Use(
		middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			JWTService:     jwtService,
			TokenBlacklist: blacklist,
			Logger:         log,
		}),
		middleware.SpanIdentity(),
	)
	if cfg.HTTP.RateLimitEnabled {
		r.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)))
	}
	r.Register(
		router.AccountingRoutes(handlers),
		router.FiscalRoutes(handlers),
		router.SystemRoutes(handlers),
	)
	r.Setup()
	router.InternalRoutes(engine, internalHandler, middleware.APIKeyAuth(apiKeys, log))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// runMigrations applies the embedded ledger schema before serving. The
// migrator gets its own connection because closing it closes the handle.
func runMigrations(cfg *config.DatabaseConfig, log *zap.Logger) error {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return err
	}
	m, err := migration.NewFromFS(db, migrations.FS, log)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Error closing migrator", zap.Error(err))
		}
	}()
	return m.Up()
}

// startScheduler runs the recurring entry worker pool and its daily trigger.
// The returned stop function shuts both down.
func startScheduler(
	ctx context.Context,
	cfg *config.Config,
	runner scheduler.RecurringRunner,
	locks shared.IdempotencyStore,
	log *zap.Logger,
) (*scheduler.CronTrigger, func()) {
	sched, err := scheduler.NewScheduler(
		scheduler.OptionsFromConfig(cfg.Scheduler),
		scheduler.NewRecurringJobExecutor(runner, log),
		log,
	)
	if err != nil {
		log.Fatal("Failed to create scheduler", zap.Error(err))
	}
	if err := sched.Start(ctx); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	triggerCfg, err := scheduler.CronTriggerConfigFrom(cfg.Scheduler)
	if err != nil {
		log.Fatal("Invalid scheduler configuration", zap.Error(err))
	}
	trigger := scheduler.NewCronTrigger(triggerCfg, sched, locks, log)
	if err := trigger.Start(ctx); err != nil {
		log.Fatal("Failed to start recurring trigger", zap.Error(err))
	}
	log.Info("Recurring entry scheduler started",
		zap.Int("run_hour", cfg.Scheduler.RunHour),
		zap.Int("run_minute", cfg.Scheduler.RunMinute),
		zap.String("location", cfg.Scheduler.Location),
	)

	return trigger, func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := trigger.Stop(stopCtx); err != nil {
			log.Error("Error stopping recurring trigger", zap.Error(err))
		}
		if err := sched.Stop(stopCtx); err != nil {
			log.Error("Error stopping scheduler", zap.Error(err))
		}
	}
}
