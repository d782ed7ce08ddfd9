package scheduler

import (
	"context"

	"github.com/hibiken/asynq"

	ingestrepo "dealflow_backend/internal/ingest/repository"
	"dealflow_backend/platform/config"
	"dealflow_backend/platform/logger"
)

// Built-in maintenance schedules.
const (
	cronRescoreSweep = "0 3 * * *"
	cronDailyDigest  = "0 7 * * *"
)

// SourceLister reads configured data sources. Implemented by the ingest
// service.
type SourceLister interface {
	ListSources(ctx context.Context, activeOnly bool) ([]ingestrepo.DataSource, error)
}

// Periodic registers cron entries on the asynq scheduler: per-source import
// schedules plus the built-in maintenance tasks.
type Periodic struct {
	scheduler *asynq.Scheduler
	sources   SourceLister
	log       *logger.Logger
}

// NewPeriodic creates a new periodic task scheduler.
func NewPeriodic(cfg config.RedisConfig, sources SourceLister, log *logger.Logger) (*Periodic, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}

	return &Periodic{
		scheduler: asynq.NewScheduler(opt, &asynq.SchedulerOpts{}),
		sources:   sources,
		log:       log,
	}, nil
}

// Register sets up cron entries from the active data sources and the built-in
// schedules. Sources without a schedule are skipped; they run on demand only.
func (p *Periodic) Register(ctx context.Context) error {
	if _, err := p.scheduler.Register(cronRescoreSweep, NewRescoreSweepTask(), asynq.Queue(defaultQueue)); err != nil {
		return err
	}
	if _, err := p.scheduler.Register(cronDailyDigest, NewDailyDigestTask(), asynq.Queue(defaultQueue)); err != nil {
		return err
	}

	sources, err := p.sources.ListSources(ctx, true)
	if err != nil {
		return err
	}
	for _, source := range sources {
		if source.Schedule == "" {
			continue
		}
		task, err := NewSourceRunTask(SourceRunPayload{SourceKey: source.Key})
		if err != nil {
			return err
		}
		if _, err := p.scheduler.Register(source.Schedule, task, asynq.Queue(defaultQueue)); err != nil {
			p.log.Error("register source schedule failed",
				"source", source.Key, "schedule", source.Schedule, "error", err)
			continue
		}
		p.log.Info("registered source schedule", "source", source.Key, "schedule", source.Schedule)
	}
	return nil
}

// Run serves the registered schedules until shutdown.
func (p *Periodic) Run() error {
	return p.scheduler.Run()
}

// Shutdown stops the scheduler.
func (p *Periodic) Shutdown() {
	p.scheduler.Shutdown()
}
