package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"dealflow_backend/internal/events"
	"dealflow_backend/internal/skiptrace/client"
	"dealflow_backend/internal/skiptrace/repository"
	"dealflow_backend/internal/skiptrace/transport"
	"dealflow_backend/platform/apperr"
	"dealflow_backend/platform/logger"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

type fakeRepo struct {
	mu      sync.Mutex
	results []repository.Result
}

func (f *fakeRepo) Create(_ context.Context, r repository.Result) (repository.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = uuid.New()
	r.CreatedAt = testNow
	f.results = append(f.results, r)
	return r, nil
}

func (f *fakeRepo) LatestByLead(_ context.Context, leadID uuid.UUID) (repository.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.results) - 1; i >= 0; i-- {
		if f.results[i].LeadID == leadID {
			return f.results[i], nil
		}
	}
	return repository.Result{}, apperr.NotFound("no skip trace result for lead")
}

func (f *fakeRepo) ListByLead(_ context.Context, leadID uuid.UUID) ([]repository.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Result
	for _, r := range f.results {
		if r.LeadID == leadID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeTracer struct {
	mu      sync.Mutex
	calls   int
	results map[string]client.Result
	failFor map[string]bool
}

func (f *fakeTracer) Trace(_ context.Context, lookup client.Lookup) (client.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failFor[lookup.OwnerName] {
		return client.Result{}, errors.New("provider timeout")
	}
	if r, ok := f.results[lookup.OwnerName]; ok {
		return r, nil
	}
	return client.Result{CostCents: 12}, nil
}

type fakeLeads struct {
	mu      sync.Mutex
	targets map[uuid.UUID]TraceTarget
	merged  map[uuid.UUID][]string
	notes   []string
}

func newFakeLeads() *fakeLeads {
	return &fakeLeads{
		targets: map[uuid.UUID]TraceTarget{},
		merged:  map[uuid.UUID][]string{},
	}
}

func (f *fakeLeads) TraceTarget(_ context.Context, leadID uuid.UUID) (TraceTarget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	target, ok := f.targets[leadID]
	if !ok {
		return TraceTarget{}, apperr.NotFound("lead not found")
	}
	return target, nil
}

func (f *fakeLeads) MergeContactInfo(_ context.Context, leadID uuid.UUID, phones, emails []string, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merged[leadID] = append(f.merged[leadID], phones...)
	f.merged[leadID] = append(f.merged[leadID], emails...)
	f.notes = append(f.notes, note)
	return nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func newTestService(repo *fakeRepo, tracer Tracer, leads *fakeLeads, bus *recordingBus) *Service {
	svc := New(repo, tracer, leads, bus, logger.New("test"), 2)
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestTraceStoresMergesAndPublishes(t *testing.T) {
	repo := &fakeRepo{}
	leads := newFakeLeads()
	leadID := uuid.New()
	leads.targets[leadID] = TraceTarget{
		LeadID: leadID, OwnerName: "JOHN SMITH",
		Address: "123 Main St", City: "Phoenix", State: "AZ", Zip: "85001",
	}

	tracer := &fakeTracer{results: map[string]client.Result{
		"JOHN SMITH": {
			Phones: []client.Phone{
				{Number: "(555) 123-4567", Type: "mobile", Confidence: 0.9},
				{Number: "555-123-4567", Type: "landline", Confidence: 0.4},
			},
			Emails:    []string{"jsmith@example.com"},
			CostCents: 25,
		},
	}}
	bus := &recordingBus{}
	svc := newTestService(repo, tracer, leads, bus)

	result, err := svc.Trace(context.Background(), leadID, false)
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	if result.Cached {
		t.Fatalf("first lookup should not be cached")
	}
	if result.CostCents != 25 {
		t.Fatalf("cost = %d, want 25", result.CostCents)
	}

	if len(repo.results) != 1 || repo.results[0].Provider == "" {
		t.Fatalf("result should be stored with provider name")
	}

	// Both formats normalize to the same E.164 number.
	merged := leads.merged[leadID]
	phoneCount := 0
	for _, v := range merged {
		if strings.HasPrefix(v, "+1") {
			phoneCount++
		}
	}
	if phoneCount != 1 {
		t.Fatalf("expected one deduplicated phone merged, got %v", merged)
	}
	if len(leads.notes) != 1 || !strings.Contains(leads.notes[0], "$0.25") {
		t.Fatalf("expected a skip trace note with cost, got %v", leads.notes)
	}

	var completed *events.SkipTraceCompleted
	for _, e := range bus.events {
		if st, ok := e.(events.SkipTraceCompleted); ok {
			completed = &st
		}
	}
	if completed == nil {
		t.Fatalf("expected a SkipTraceCompleted event")
	}
	if completed.PhonesFound != 1 || completed.EmailsFound != 1 || completed.CostCents != 25 {
		t.Fatalf("unexpected event payload: %+v", completed)
	}
}

func TestTraceReusesRecentResult(t *testing.T) {
	repo := &fakeRepo{}
	leads := newFakeLeads()
	leadID := uuid.New()
	leads.targets[leadID] = TraceTarget{LeadID: leadID, OwnerName: "JANE DOE"}

	tracer := &fakeTracer{}
	svc := newTestService(repo, tracer, leads, &recordingBus{})

	if _, err := svc.Trace(context.Background(), leadID, false); err != nil {
		t.Fatalf("first trace: %v", err)
	}
	second, err := svc.Trace(context.Background(), leadID, false)
	if err != nil {
		t.Fatalf("second trace: %v", err)
	}

	if !second.Cached {
		t.Fatalf("second lookup should reuse the stored result")
	}
	if tracer.calls != 1 {
		t.Fatalf("provider called %d times, want 1", tracer.calls)
	}

	// Force bypasses the cache.
	forced, err := svc.Trace(context.Background(), leadID, true)
	if err != nil {
		t.Fatalf("forced trace: %v", err)
	}
	if forced.Cached || tracer.calls != 2 {
		t.Fatalf("force should hit the provider again, calls=%d", tracer.calls)
	}
}

func TestTraceWithoutProviderUnavailable(t *testing.T) {
	svc := newTestService(&fakeRepo{}, nil, newFakeLeads(), &recordingBus{})

	_, err := svc.Trace(context.Background(), uuid.New(), false)
	if apperr.GetKind(err) != apperr.KindUnavailable {
		t.Fatalf("expected unavailable when provider is not configured, got %v", err)
	}
}

func TestTraceBatchCollectsFailures(t *testing.T) {
	repo := &fakeRepo{}
	leads := newFakeLeads()

	good1, good2, bad := uuid.New(), uuid.New(), uuid.New()
	leads.targets[good1] = TraceTarget{LeadID: good1, OwnerName: "OWNER ONE"}
	leads.targets[good2] = TraceTarget{LeadID: good2, OwnerName: "OWNER TWO"}
	leads.targets[bad] = TraceTarget{LeadID: bad, OwnerName: "OWNER BAD"}

	tracer := &fakeTracer{failFor: map[string]bool{"OWNER BAD": true}}
	svc := newTestService(repo, tracer, leads, &recordingBus{})

	result, err := svc.TraceBatch(context.Background(), transport.BatchTraceRequest{
		LeadIDs: []uuid.UUID{good1, good2, bad},
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}

	if result.Requested != 3 || result.Succeeded != 2 || result.Failed != 1 {
		t.Fatalf("unexpected counters: %+v", result)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], bad.String()) {
		t.Fatalf("expected one error naming the failed lead, got %v", result.Errors)
	}
	if len(repo.results) != 2 {
		t.Fatalf("only successful lookups should be stored, got %d", len(repo.results))
	}
}
