// Package service implements skip trace lookups: single and batch owner
// contact discovery with result storage and lead contact merging.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"dealflow_backend/internal/events"
	"dealflow_backend/internal/skiptrace/client"
	"dealflow_backend/internal/skiptrace/repository"
	"dealflow_backend/internal/skiptrace/transport"
	"dealflow_backend/platform/apperr"
	"dealflow_backend/platform/logger"
	"dealflow_backend/platform/phone"
)

const (
	providerName = "batchdata"

	// Results newer than this are reused instead of re-billing the provider.
	resultCacheTTL = 30 * 24 * time.Hour

	defaultConcurrency = 4
)

// TraceTarget is the owner and property info the provider needs.
type TraceTarget struct {
	LeadID    uuid.UUID
	OwnerName string
	Address   string
	City      string
	State     string
	Zip       string
}

// LeadDirectory provides lead and property access owned by another module.
type LeadDirectory interface {
	TraceTarget(ctx context.Context, leadID uuid.UUID) (TraceTarget, error)
	MergeContactInfo(ctx context.Context, leadID uuid.UUID, phones, emails []string, note string) error
}

// Tracer performs one provider lookup. Implemented by the skip trace client.
type Tracer interface {
	Trace(ctx context.Context, lookup client.Lookup) (client.Result, error)
}

// Service implements skip trace operations.
type Service struct {
	repo        repository.Repository
	tracer      Tracer
	leads       LeadDirectory
	bus         events.Bus
	log         *logger.Logger
	concurrency int
	now         func() time.Time
}

// New creates a new skiptrace service. tracer may be nil when the provider is
// not configured; lookups then fail with an unavailable error.
func New(repo repository.Repository, tracer Tracer, leads LeadDirectory, bus events.Bus, log *logger.Logger, concurrency int) *Service {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &Service{
		repo:        repo,
		tracer:      tracer,
		leads:       leads,
		bus:         bus,
		log:         log,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Trace runs a skip trace lookup for one lead. A recent stored result is
// reused unless force is set.
func (s *Service) Trace(ctx context.Context, leadID uuid.UUID, force bool) (transport.TraceResult, error) {
	if !force {
		latest, err := s.repo.LatestByLead(ctx, leadID)
		if err == nil && s.now().Sub(latest.CreatedAt) < resultCacheTTL {
			return transport.TraceResult{
				LeadID:      leadID,
				PhonesFound: len(latest.Phones),
				EmailsFound: len(latest.Emails),
				CostCents:   latest.CostCents,
				Cached:      true,
			}, nil
		}
	}

	if s.tracer == nil {
		return transport.TraceResult{}, apperr.Unavailable("skip trace is not configured")
	}

	target, err := s.leads.TraceTarget(ctx, leadID)
	if err != nil {
		return transport.TraceResult{}, err
	}

	found, err := s.tracer.Trace(ctx, client.Lookup{
		OwnerName: target.OwnerName,
		Address:   target.Address,
		City:      target.City,
		State:     target.State,
		Zip:       target.Zip,
	})
	if err != nil {
		return transport.TraceResult{}, err
	}

	stored, err := s.repo.Create(ctx, repository.Result{
		LeadID:    leadID,
		Provider:  providerName,
		Phones:    phoneRecords(found.Phones),
		Emails:    found.Emails,
		CostCents: found.CostCents,
	})
	if err != nil {
		return transport.TraceResult{}, err
	}

	numbers := normalizedNumbers(found.Phones)
	note := fmt.Sprintf("Skip trace found %d phones, %d emails (cost $%.2f)",
		len(numbers), len(found.Emails), float64(found.CostCents)/100)
	if err := s.leads.MergeContactInfo(ctx, leadID, numbers, found.Emails, note); err != nil {
		s.log.Warn("merge skip trace contacts failed", "lead_id", leadID, "error", err)
	}

	s.bus.Publish(ctx, events.SkipTraceCompleted{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      leadID,
		PhonesFound: len(numbers),
		EmailsFound: len(found.Emails),
		CostCents:   found.CostCents,
	})

	return transport.TraceResult{
		LeadID:      leadID,
		PhonesFound: len(stored.Phones),
		EmailsFound: len(stored.Emails),
		CostCents:   stored.CostCents,
	}, nil
}

// TraceBatch runs lookups for a set of leads with bounded concurrency.
// Per-lead failures are collected, not fatal.
func (s *Service) TraceBatch(ctx context.Context, req transport.BatchTraceRequest) (transport.BatchResult, error) {
	if s.tracer == nil {
		return transport.BatchResult{}, apperr.Unavailable("skip trace is not configured")
	}

	result := transport.BatchResult{Requested: len(req.LeadIDs)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, leadID := range req.LeadIDs {
		g.Go(func() error {
			traced, err := s.Trace(gctx, leadID, req.Force)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("lead %s: %v", leadID, err))
				return nil
			}
			result.Succeeded++
			result.Results = append(result.Results, traced)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}

	s.log.Info("skip trace batch finished",
		"requested", result.Requested, "succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}

// Results returns all stored lookups for a lead, newest first.
func (s *Service) Results(ctx context.Context, leadID uuid.UUID) ([]repository.Result, error) {
	return s.repo.ListByLead(ctx, leadID)
}

func phoneRecords(phones []client.Phone) []repository.PhoneRecord {
	records := make([]repository.PhoneRecord, 0, len(phones))
	for _, p := range phones {
		records = append(records, repository.PhoneRecord{
			Number:     p.Number,
			Type:       p.Type,
			Confidence: p.Confidence,
		})
	}
	return records
}

func normalizedNumbers(phones []client.Phone) []string {
	seen := map[string]bool{}
	var numbers []string
	for _, p := range phones {
		normalized := phone.NormalizeE164(p.Number)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		numbers = append(numbers, normalized)
	}
	return numbers
}
