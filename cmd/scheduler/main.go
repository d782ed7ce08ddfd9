// The scheduler binary runs the background task worker and the cron
// scheduler: SMS campaign dispatch, data source imports, the nightly rescore
// sweep, and the daily digest.
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
	"dealflow_backend/internal/auth"
	"dealflow_backend/internal/email"
	"dealflow_backend/internal/events"
	"dealflow_backend/internal/ingest"
	"dealflow_backend/internal/leads"
	"dealflow_backend/internal/notification"
	"dealflow_backend/internal/properties"
	"dealflow_backend/internal/scheduler"
	"dealflow_backend/internal/sms"
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

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	if cfg.GetRedisURL() == "" {
		panic("REDIS_URL must be configured for the scheduler")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	queueClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task queue client", "error", err)
		panic("failed to initialize task queue client: " + err.Error())
	}
	defer func() { _ = queueClient.Close() }()

	storageSvc, err := storage.New(cfg, log)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}

	smtpSender := email.NewSMTPSender(cfg)
	var sender notification.EmailSender
	if smtpSender != nil {
		sender = smtpSender
	}
	notificationModule := notification.New(pool, sender, log)
	notificationModule.RegisterHandlers(eventBus)
	defer notificationModule.Close()

	authModule, err := auth.NewModule(pool, cfg, eventBus, val, log)
	if err != nil {
		log.Error("failed to initialize auth module", "error", err)
		panic("failed to initialize auth module: " + err.Error())
	}

	propertiesModule := properties.NewModule(pool, val, log)
	propertyReader := adapters.NewPropertyReader(propertiesModule.Service())
	leadsModule := leads.NewModule(pool, propertyReader, eventBus, val, log, cfg.GetHotLeadThreshold())

	smsDirectory := adapters.NewSMSLeadDirectory(leadsModule.Service(), leadsModule.Repository(), propertiesModule.Service())
	smsModule := sms.NewModule(pool, cfg, smsDirectory, queueClient, eventBus, val, log)

	propertyCatalog := adapters.NewIngestPropertyCatalog(propertiesModule.Service())
	leadCreator := adapters.NewIngestLeadCreator(leadsModule.Service())
	snapshotArchiver := adapters.NewIngestSnapshotArchiver(storageSvc)
	ingestModule := ingest.NewModule(pool, cfg, propertyCatalog, leadCreator,
		snapshotArchiver, queueClient, eventBus, val, log)

	notificationModule.SetAgentDirectory(adapters.NewAgentDirectory(authModule.Service()))
	notificationModule.SetLeadReporter(leadsModule.Service())

	worker, err := scheduler.NewWorker(cfg, smsModule.Service(), ingestModule.Service(),
		leadsModule.Service(), notificationModule, log)
	if err != nil {
		log.Error("failed to initialize task worker", "error", err)
		panic("failed to initialize task worker: " + err.Error())
	}

	periodic, err := scheduler.NewPeriodic(cfg, ingestModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}
	if err := periodic.Register(ctx); err != nil {
		log.Error("failed to register periodic tasks", "error", err)
		panic("failed to register periodic tasks: " + err.Error())
	}

	go func() {
		if err := periodic.Run(); err != nil {
			log.Error("periodic scheduler stopped", "error", err)
		}
	}()
	defer periodic.Shutdown()

	log.Info("scheduler running")
	worker.Run(ctx)
	log.Info("scheduler stopped")
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
