package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	ingestrepo "dealflow_backend/internal/ingest/repository"
	leadstransport "dealflow_backend/internal/leads/transport"
	smstransport "dealflow_backend/internal/sms/transport"
	"dealflow_backend/platform/config"
	"dealflow_backend/platform/logger"
)

const workerConcurrency = 10

// CampaignDispatcher sends a queued SMS campaign. Implemented by the sms
// service.
type CampaignDispatcher interface {
	DispatchCampaign(ctx context.Context, campaignID uuid.UUID) (smstransport.DispatchResult, error)
}

// SourceRunner executes a data source import. Implemented by the ingest
// service.
type SourceRunner interface {
	RunSource(ctx context.Context, sourceKey string) (ingestrepo.ImportRun, error)
}

// RescoreSweeper recomputes scores for all open leads. Implemented by the
// leads service.
type RescoreSweeper interface {
	RescoreAll(ctx context.Context) (leadstransport.SweepResponse, error)
}

// DigestSender assembles and sends the daily digest. Implemented by the
// notification service.
type DigestSender interface {
	SendDailyDigest(ctx context.Context) error
}

// Worker consumes background tasks from the asynq queue.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	campaigns CampaignDispatcher
	sources   SourceRunner
	rescorer  RescoreSweeper
	digests   DigestSender
	log       *logger.Logger
}

// NewWorker creates a new task worker.
func NewWorker(cfg config.RedisConfig, campaigns CampaignDispatcher, sources SourceRunner,
	rescorer RescoreSweeper, digests DigestSender, log *logger.Logger) (*Worker, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: workerConcurrency,
		Queues: map[string]int{
			defaultQueue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		campaigns: campaigns,
		sources:   sources,
		rescorer:  rescorer,
		digests:   digests,
		log:       log,
	}

	mux.HandleFunc(TaskCampaignDispatch, w.handleCampaignDispatch)
	mux.HandleFunc(TaskSourceRun, w.handleSourceRun)
	mux.HandleFunc(TaskRescoreSweep, w.handleRescoreSweep)
	mux.HandleFunc(TaskDailyDigest, w.handleDailyDigest)

	return w, nil
}

// Run serves tasks until the context is canceled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("task worker stopped", "error", err)
	}
}

func (w *Worker) handleCampaignDispatch(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCampaignDispatchPayload(task)
	if err != nil {
		return err
	}
	campaignID, err := uuid.Parse(payload.CampaignID)
	if err != nil {
		return fmt.Errorf("invalid campaign id %q: %w", payload.CampaignID, err)
	}

	result, err := w.campaigns.DispatchCampaign(ctx, campaignID)
	if err != nil {
		return err
	}
	w.log.Info("campaign dispatched",
		"campaign_id", campaignID, "sent", result.Sent, "failed", result.Failed, "skipped", result.Skipped)
	return nil
}

func (w *Worker) handleSourceRun(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSourceRunPayload(task)
	if err != nil {
		return err
	}

	run, err := w.sources.RunSource(ctx, payload.SourceKey)
	if err != nil {
		return err
	}
	w.log.Info("source import finished", "source", payload.SourceKey, "run_id", run.ID, "status", run.Status)
	return nil
}

func (w *Worker) handleRescoreSweep(ctx context.Context, _ *asynq.Task) error {
	result, err := w.rescorer.RescoreAll(ctx)
	if err != nil {
		return err
	}
	w.log.Info("rescore sweep finished",
		"scanned", result.Scanned, "changed", result.Changed, "failed", result.Failed)
	return nil
}

func (w *Worker) handleDailyDigest(ctx context.Context, _ *asynq.Task) error {
	if w.digests == nil {
		return nil
	}
	return w.digests.SendDailyDigest(ctx)
}
