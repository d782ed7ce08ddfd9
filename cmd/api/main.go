package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dealflow_backend/internal/adapters"
	"dealflow_backend/internal/analyzers"
	"dealflow_backend/internal/auth"
	"dealflow_backend/internal/buyers"
	"dealflow_backend/internal/email"
	"dealflow_backend/internal/events"
	"dealflow_backend/internal/exports"
	apphttp "dealflow_backend/internal/http"
	"dealflow_backend/internal/http/router"
	"dealflow_backend/internal/ingest"
	ingestservice "dealflow_backend/internal/ingest/service"
	"dealflow_backend/internal/leads"
	"dealflow_backend/internal/notification"
	"dealflow_backend/internal/properties"
	"dealflow_backend/internal/scheduler"
	"dealflow_backend/internal/skiptrace"
	"dealflow_backend/internal/sms"
	smsservice "dealflow_backend/internal/sms/service"
	"dealflow_backend/internal/storage"
	"dealflow_backend/platform/config"
	"dealflow_backend/platform/db"
	"dealflow_backend/platform/logger"
	"dealflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	queueClient, closeQueue := initTaskQueue(cfg, log)
	if closeQueue != nil {
		defer closeQueue()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// Object storage for import snapshots and export archives (MinIO)
	storageSvc, err := storage.New(cfg, log)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	if err := withRetry(ctx, log, "ensure storage buckets", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBuckets(ctx)
	}); err != nil {
		log.Error("failed to ensure storage buckets exist", "error", err)
		panic("failed to ensure storage buckets exist: " + err.Error())
	}
	log.Info(
		"storage service initialized",
		"importSnapshotsBucket", cfg.GetMinioBucketImportSnapshots(),
		"exportArchivesBucket", cfg.GetMinioBucketExportArchives(),
	)

	smtpSender := email.NewSMTPSender(cfg)
	if smtpSender == nil {
		log.Warn("email delivery disabled; alert and digest emails will be skipped")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events and serves the feed API
	var sender notification.EmailSender
	if smtpSender != nil {
		sender = smtpSender
	}
	notificationModule := notification.New(pool, sender, log)
	notificationModule.RegisterHandlers(eventBus)
	defer notificationModule.Close()

	// Initialize domain modules
	authModule, err := auth.NewModule(pool, cfg, eventBus, val, log)
	if err != nil {
		log.Error("failed to initialize auth module", "error", err)
		panic("failed to initialize auth module: " + err.Error())
	}
	propertiesModule := properties.NewModule(pool, val, log)

	propertyReader := adapters.NewPropertyReader(propertiesModule.Service())
	leadsModule := leads.NewModule(pool, propertyReader, eventBus, val, log, cfg.GetHotLeadThreshold())

	buyersModule := buyers.NewModule(pool, val, log)

	// Analyzer results land on the lead activity timeline
	activityRecorder := adapters.NewAnalyzersActivityRecorder(leadsModule.Service())
	analyzersModule := analyzers.NewModule(cfg.GetRepairCostTablePath(), activityRecorder, val, log)

	var smsEnqueuer smsservice.Enqueuer
	var ingestEnqueuer ingestservice.Enqueuer
	if queueClient != nil {
		smsEnqueuer = queueClient
		ingestEnqueuer = queueClient
	}

	smsDirectory := adapters.NewSMSLeadDirectory(leadsModule.Service(), leadsModule.Repository(), propertiesModule.Service())
	smsModule := sms.NewModule(pool, cfg, smsDirectory, smsEnqueuer, eventBus, val, log)

	traceDirectory := adapters.NewSkipTraceLeadDirectory(leadsModule.Service(), propertiesModule.Service())
	skiptraceModule := skiptrace.NewModule(pool, cfg, traceDirectory, eventBus, val, log)

	propertyCatalog := adapters.NewIngestPropertyCatalog(propertiesModule.Service())
	leadCreator := adapters.NewIngestLeadCreator(leadsModule.Service())
	snapshotArchiver := adapters.NewIngestSnapshotArchiver(storageSvc)
	ingestModule := ingest.NewModule(pool, cfg, propertyCatalog, leadCreator,
		snapshotArchiver, ingestEnqueuer, eventBus, val, log)

	exportsModule := exports.NewModule(pool, val, log)
	exportsModule.SetArchiver(storageSvc)

	// Wire notification recipients and the digest reporter after the auth and
	// leads modules exist (the notification module subscribes first).
	notificationModule.SetAgentDirectory(adapters.NewAgentDirectory(authModule.Service()))
	notificationModule.SetLeadReporter(leadsModule.Service())

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			propertiesModule,
			leadsModule,
			buyersModule,
			analyzersModule,
			smsModule,
			skiptraceModule,
			ingestModule,
			notificationModule,
			exportsModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initTaskQueue builds the asynq client used to enqueue campaign dispatches
// and source runs. Returns nil when Redis is not configured; those endpoints
// then report the queue as unavailable.
func initTaskQueue(cfg config.RedisConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; background task queue disabled")
		return nil, nil
	}

	queueClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task queue client", "error", err)
		return nil, nil
	}

	return queueClient, func() {
		_ = queueClient.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
