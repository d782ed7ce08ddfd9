package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"dealflow_backend/internal/events"
	"dealflow_backend/internal/leads/repository"
	"dealflow_backend/internal/leads/transport"
	"dealflow_backend/platform/apperr"
	"dealflow_backend/platform/logger"
)

// fakeRepo is an in-memory repository covering the methods the service tests
// exercise. Unused interface methods panic via the embedded nil interface.
type fakeRepo struct {
	repository.Repository

	mu         sync.Mutex
	leads      map[uuid.UUID]repository.Lead
	activities []repository.Activity
	stats      map[uuid.UUID]repository.ResponseStats
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		leads: map[uuid.UUID]repository.Lead{},
		stats: map[uuid.UUID]repository.ResponseStats{},
	}
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, nil
}

func (f *fakeRepo) GetOpenByPropertyID(_ context.Context, propertyID uuid.UUID) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, lead := range f.leads {
		if lead.PropertyID == propertyID && lead.Status != repository.StatusClosed && lead.Status != repository.StatusDead {
			return lead, nil
		}
	}
	return repository.Lead{}, apperr.NotFound("lead not found")
}

func (f *fakeRepo) Create(_ context.Context, lead repository.Lead) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.leads {
		if existing.PropertyID == lead.PropertyID && existing.Status != repository.StatusClosed && existing.Status != repository.StatusDead {
			return repository.Lead{}, apperr.Conflict("property already has an open lead")
		}
	}
	lead.ID = uuid.New()
	lead.CreatedAt = time.Now()
	f.leads[lead.ID] = lead
	return lead, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[id]
	if !ok {
		return apperr.NotFound("lead not found")
	}
	lead.Status = status
	f.leads[id] = lead
	return nil
}

func (f *fakeRepo) Assign(_ context.Context, id uuid.UUID, agentID *uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[id]
	if !ok {
		return apperr.NotFound("lead not found")
	}
	lead.AssignedAgentID = agentID
	f.leads[id] = lead
	return nil
}

func (f *fakeRepo) UpdateScore(_ context.Context, id uuid.UUID, update repository.ScoreUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[id]
	if !ok {
		return apperr.NotFound("lead not found")
	}
	lead.Score = update.Score
	lead.Classification = update.Classification
	lead.DominantDistress = update.DominantDistress
	f.leads[id] = lead
	return nil
}

func (f *fakeRepo) ListIDs(_ context.Context, statuses []string) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uuid.UUID
	for id, lead := range f.leads {
		for _, status := range statuses {
			if lead.Status == status {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids, nil
}

func (f *fakeRepo) AddActivity(_ context.Context, a repository.Activity) (repository.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	f.activities = append(f.activities, a)
	return a, nil
}

func (f *fakeRepo) GetResponseStats(_ context.Context, leadID uuid.UUID) (repository.ResponseStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats[leadID], nil
}

type fakePropertyReader struct {
	snapshot   PropertySnapshot
	indicators []PropertyIndicator
	err        error
}

func (f *fakePropertyReader) GetSnapshot(context.Context, uuid.UUID) (PropertySnapshot, error) {
	if f.err != nil {
		return PropertySnapshot{}, f.err
	}
	return f.snapshot, nil
}

func (f *fakePropertyReader) ListIndicators(context.Context, uuid.UUID) ([]PropertyIndicator, error) {
	return f.indicators, nil
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

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, e := range b.events {
		out = append(out, e.EventName())
	}
	return out
}

func newTestService(repo *fakeRepo, props PropertyReader, bus events.Bus) *Service {
	return New(repo, props, bus, logger.New("test"), 80)
}

func TestCreateScoresAndPublishes(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	props := &fakePropertyReader{
		snapshot: PropertySnapshot{
			Address:             "123 Main St, Springfield",
			EquityPercent:       75,
			HasEquityData:       true,
			Absentee:            true,
			YearBuilt:           1950,
			EstimatedValueCents: 18_000_000,
		},
		indicators: []PropertyIndicator{
			{Type: "pre_foreclosure", Severity: 9},
			{Type: "tax_lien", Severity: 7},
		},
	}
	svc := newTestService(repo, props, bus)

	created, err := svc.Create(context.Background(), transport.CreateLeadRequest{
		PropertyID: uuid.New(),
		OwnerName:  "Jane Homeowner",
		Phones:     []string{"(555) 123-4567", "555-123-4567"},
	}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if created.Status != repository.StatusNew {
		t.Fatalf("expected status new, got %q", created.Status)
	}
	if created.Score <= 50 {
		t.Fatalf("distressed high-equity absentee lead should score above base, got %d", created.Score)
	}
	if created.DominantDistress != "pre_foreclosure" {
		t.Fatalf("expected dominant distress pre_foreclosure, got %q", created.DominantDistress)
	}
	if len(created.Phones) != 1 {
		t.Fatalf("duplicate phones should collapse after normalization, got %v", created.Phones)
	}

	names := bus.names()
	if len(names) == 0 || names[0] != "leads.lead.created" {
		t.Fatalf("expected leads.lead.created event, got %v", names)
	}
}

func TestCreateRejectsSecondOpenLead(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakePropertyReader{}, &recordingBus{})
	propertyID := uuid.New()

	if _, err := svc.Create(context.Background(), transport.CreateLeadRequest{
		PropertyID: propertyID,
		OwnerName:  "First",
	}, nil); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := svc.Create(context.Background(), transport.CreateLeadRequest{
		PropertyID: propertyID,
		OwnerName:  "Second",
	}, nil)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateFromIngestReusesOpenLead(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakePropertyReader{}, &recordingBus{})
	propertyID := uuid.New()

	first, created, err := svc.CreateFromIngest(context.Background(), propertyID, "Owner", "county_tax")
	if err != nil {
		t.Fatalf("first ingest create: %v", err)
	}
	if !created {
		t.Fatalf("expected first call to create a lead")
	}

	second, created, err := svc.CreateFromIngest(context.Background(), propertyID, "Owner", "county_tax")
	if err != nil {
		t.Fatalf("second ingest create: %v", err)
	}
	if created {
		t.Fatalf("expected second call to reuse the open lead")
	}
	if second.ID != first.ID {
		t.Fatalf("expected the same lead back, got %s and %s", first.ID, second.ID)
	}
}

func TestChangeStatusTransitions(t *testing.T) {
	cases := []struct {
		from    string
		to      string
		allowed bool
	}{
		{repository.StatusNew, repository.StatusContacted, true},
		{repository.StatusNew, repository.StatusResponded, true},
		{repository.StatusContacted, repository.StatusNegotiating, true},
		{repository.StatusUnderContract, repository.StatusClosed, true},
		{repository.StatusNew, repository.StatusDead, true},
		{repository.StatusNegotiating, repository.StatusDead, true},
		{repository.StatusDead, repository.StatusNew, true},

		{repository.StatusContacted, repository.StatusNew, false},
		{repository.StatusNegotiating, repository.StatusContacted, false},
		{repository.StatusNew, repository.StatusClosed, false},
		{repository.StatusResponded, repository.StatusClosed, false},
		{repository.StatusClosed, repository.StatusDead, false},
		{repository.StatusDead, repository.StatusContacted, false},
	}

	for _, tc := range cases {
		repo := newFakeRepo()
		bus := &recordingBus{}
		svc := newTestService(repo, &fakePropertyReader{}, bus)

		lead, _ := repo.Create(context.Background(), repository.Lead{
			PropertyID: uuid.New(),
			OwnerName:  "Owner",
			Status:     tc.from,
		})

		_, err := svc.ChangeStatus(context.Background(), lead.ID, transport.ChangeStatusRequest{Status: tc.to}, nil)
		if tc.allowed && err != nil {
			t.Errorf("%s -> %s should be allowed, got %v", tc.from, tc.to, err)
		}
		if !tc.allowed && apperr.GetKind(err) != apperr.KindValidation {
			t.Errorf("%s -> %s should be rejected, got %v", tc.from, tc.to, err)
		}
	}
}

func TestChangeStatusRecordsActivityAndEvent(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	svc := newTestService(repo, &fakePropertyReader{}, bus)

	lead, _ := repo.Create(context.Background(), repository.Lead{
		PropertyID: uuid.New(),
		OwnerName:  "Owner",
		Status:     repository.StatusNew,
	})

	actor := uuid.New()
	updated, err := svc.ChangeStatus(context.Background(), lead.ID, transport.ChangeStatusRequest{
		Status: repository.StatusContacted,
		Note:   "left a voicemail",
	}, &actor)
	if err != nil {
		t.Fatalf("change status: %v", err)
	}
	if updated.Status != repository.StatusContacted {
		t.Fatalf("expected status contacted, got %q", updated.Status)
	}

	if len(repo.activities) != 1 {
		t.Fatalf("expected one status_change activity, got %d", len(repo.activities))
	}
	if repo.activities[0].Type != repository.ActivityStatusChange {
		t.Fatalf("expected status_change activity, got %q", repo.activities[0].Type)
	}

	names := bus.names()
	if len(names) != 1 || names[0] != "leads.lead.status_changed" {
		t.Fatalf("expected status_changed event, got %v", names)
	}
}

func TestChangeStatusSameStatusIsNoop(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	svc := newTestService(repo, &fakePropertyReader{}, bus)

	lead, _ := repo.Create(context.Background(), repository.Lead{
		PropertyID: uuid.New(),
		OwnerName:  "Owner",
		Status:     repository.StatusContacted,
	})

	if _, err := svc.ChangeStatus(context.Background(), lead.ID, transport.ChangeStatusRequest{
		Status: repository.StatusContacted,
	}, nil); err != nil {
		t.Fatalf("same-status change: %v", err)
	}
	if len(repo.activities) != 0 {
		t.Fatalf("no activity expected for a same-status change")
	}
	if len(bus.names()) != 0 {
		t.Fatalf("no event expected for a same-status change")
	}
}

func TestRescorePublishesHotLeadOnce(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	auction := time.Now().AddDate(0, 0, 10)
	props := &fakePropertyReader{
		snapshot: PropertySnapshot{
			EquityPercent:       80,
			HasEquityData:       true,
			Absentee:            true,
			YearBuilt:           1945,
			EstimatedValueCents: 20_000_000,
		},
		indicators: []PropertyIndicator{
			{Type: "pre_foreclosure", Severity: 10, AuctionDate: &auction},
			{Type: "tax_lien", Severity: 9},
		},
	}
	svc := newTestService(repo, props, bus)

	lead, _ := repo.Create(context.Background(), repository.Lead{
		PropertyID: uuid.New(),
		OwnerName:  "Owner",
		Status:     repository.StatusNew,
		Score:      40,
	})
	repo.stats[lead.ID] = repository.ResponseStats{InboundMessages: 3, LastInboundAt: &auction}

	res, err := svc.Rescore(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("rescore: %v", err)
	}
	if res.NewScore < 80 {
		t.Fatalf("expected a hot score, got %d", res.NewScore)
	}

	hot := 0
	for _, name := range bus.names() {
		if name == "leads.lead.hot_detected" {
			hot++
		}
	}
	if hot != 1 {
		t.Fatalf("expected one hot_detected event, got %d", hot)
	}

	// A second rescore from an already-hot score stays quiet.
	bus.events = nil
	if _, err := svc.Rescore(context.Background(), lead.ID); err != nil {
		t.Fatalf("second rescore: %v", err)
	}
	for _, name := range bus.names() {
		if name == "leads.lead.hot_detected" {
			t.Fatalf("hot_detected should not fire again for an already-hot lead")
		}
	}
}

func TestRescoreAllCountsChanges(t *testing.T) {
	repo := newFakeRepo()
	props := &fakePropertyReader{
		snapshot: PropertySnapshot{EquityPercent: 60, HasEquityData: true},
		indicators: []PropertyIndicator{
			{Type: "tax_lien", Severity: 8},
		},
	}
	svc := newTestService(repo, props, &recordingBus{})

	for range 3 {
		_, _ = repo.Create(context.Background(), repository.Lead{
			PropertyID: uuid.New(),
			OwnerName:  "Owner",
			Status:     repository.StatusNew,
			Score:      1,
		})
	}
	_, _ = repo.Create(context.Background(), repository.Lead{
		PropertyID: uuid.New(),
		OwnerName:  "Done",
		Status:     repository.StatusClosed,
	})

	out, err := svc.RescoreAll(context.Background())
	if err != nil {
		t.Fatalf("rescore all: %v", err)
	}
	if out.Scanned != 3 {
		t.Fatalf("expected 3 open leads scanned, got %d", out.Scanned)
	}
	if out.Changed != 3 {
		t.Fatalf("expected all scores to change from 1, got %d", out.Changed)
	}
}

func TestSetFollowUpValidation(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakePropertyReader{}, &recordingBus{})

	past := time.Now().AddDate(0, 0, -1).Format(time.RFC3339)
	err := svc.SetFollowUp(context.Background(), uuid.New(), transport.FollowUpRequest{At: &past})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for past follow-up, got %v", err)
	}

	garbage := "next tuesday"
	err = svc.SetFollowUp(context.Background(), uuid.New(), transport.FollowUpRequest{At: &garbage})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for malformed time, got %v", err)
	}
}
