package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"dealflow_backend/internal/events"
	"dealflow_backend/internal/sms/repository"
	"dealflow_backend/internal/sms/transport"
	"dealflow_backend/platform/apperr"
	"dealflow_backend/platform/logger"
)

type fakeRepo struct {
	repository.Repository

	mu        sync.Mutex
	messages  []repository.Message
	templates map[uuid.UUID]repository.Template
	campaigns map[uuid.UUID]repository.Campaign
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		templates: map[uuid.UUID]repository.Template{},
		campaigns: map[uuid.UUID]repository.Campaign{},
	}
}

func (f *fakeRepo) CreateMessage(_ context.Context, m repository.Message) (repository.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = uuid.New()
	f.messages = append(f.messages, m)
	return m, nil
}

func (f *fakeRepo) GetTemplate(_ context.Context, id uuid.UUID) (repository.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.templates[id]
	if !ok {
		return repository.Template{}, apperr.NotFound("template not found")
	}
	return t, nil
}

func (f *fakeRepo) GetCampaign(_ context.Context, id uuid.UUID) (repository.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return repository.Campaign{}, apperr.NotFound("campaign not found")
	}
	return c, nil
}

func (f *fakeRepo) MarkCampaignStarted(_ context.Context, id uuid.UUID, total int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.campaigns[id]
	c.Status = repository.CampaignSending
	c.TotalRecipients = total
	f.campaigns[id] = c
	return nil
}

func (f *fakeRepo) MarkCampaignCompleted(_ context.Context, id uuid.UUID, sent, failed int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.campaigns[id]
	c.Status = repository.CampaignCompleted
	c.SentCount = sent
	c.FailedCount = failed
	f.campaigns[id] = c
	return nil
}

func (f *fakeRepo) SetCampaignStatus(_ context.Context, id uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.campaigns[id]
	c.Status = status
	f.campaigns[id] = c
	return nil
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []string
	failOn map[string]bool
}

func (f *fakeSender) Send(_ context.Context, to, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[to] {
		return "", errors.New("provider rejected")
	}
	f.sent = append(f.sent, to+": "+body)
	return "SM" + uuid.NewString(), nil
}

type fakeLeads struct {
	mu       sync.Mutex
	leads    map[uuid.UUID]*LeadContact
	byPhone  map[string]uuid.UUID
	audience []LeadContact
	activity []string
}

func newFakeLeads() *fakeLeads {
	return &fakeLeads{
		leads:   map[uuid.UUID]*LeadContact{},
		byPhone: map[string]uuid.UUID{},
	}
}

func (f *fakeLeads) add(lead LeadContact) {
	f.leads[lead.ID] = &lead
	for _, p := range lead.Phones {
		f.byPhone[p] = lead.ID
	}
}

func (f *fakeLeads) GetLead(_ context.Context, id uuid.UUID) (LeadContact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[id]
	if !ok {
		return LeadContact{}, apperr.NotFound("lead not found")
	}
	return *lead, nil
}

func (f *fakeLeads) FindLeadByPhone(_ context.Context, phoneNumber string) (LeadContact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byPhone[phoneNumber]
	if !ok {
		return LeadContact{}, apperr.NotFound("lead not found")
	}
	return *f.leads[id], nil
}

func (f *fakeLeads) SelectAudience(context.Context, transport.AudienceFilter) ([]LeadContact, error) {
	return f.audience, nil
}

func (f *fakeLeads) SetOptOut(_ context.Context, leadID uuid.UUID, optedOut bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lead, ok := f.leads[leadID]; ok {
		lead.OptedOut = optedOut
	}
	return nil
}

func (f *fakeLeads) TouchLastContacted(context.Context, uuid.UUID) error { return nil }

func (f *fakeLeads) RecordActivity(_ context.Context, leadID uuid.UUID, activityType, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activity = append(f.activity, activityType+": "+body)
	return nil
}

func (f *fakeLeads) PropertyFields(context.Context, uuid.UUID) (map[string]string, error) {
	return map[string]string{"address": "123 Main St", "city": "Phoenix"}, nil
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

type fakeEnqueuer struct {
	enqueued []uuid.UUID
	err      error
}

func (f *fakeEnqueuer) EnqueueCampaignDispatch(_ context.Context, id uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, id)
	return nil
}

func newTestService(repo *fakeRepo, sender Sender, leads *fakeLeads, enq *fakeEnqueuer, bus *recordingBus) *Service {
	return New(repo, sender, leads, enq, bus, logger.New("test"))
}

func TestSendToLeadRefusesOptedOut(t *testing.T) {
	repo := newFakeRepo()
	leads := newFakeLeads()
	lead := LeadContact{ID: uuid.New(), Phones: []string{"+15551234567"}, OptedOut: true}
	leads.add(lead)
	svc := newTestService(repo, &fakeSender{}, leads, &fakeEnqueuer{}, &recordingBus{})

	_, err := svc.SendToLead(context.Background(), transport.SendMessageRequest{
		LeadID: lead.ID,
		Body:   "hello",
	})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for opted-out lead, got %v", err)
	}
	if len(repo.messages) != 0 {
		t.Fatalf("no message should be recorded for a refused send")
	}
}

func TestSendToLeadRendersTemplate(t *testing.T) {
	repo := newFakeRepo()
	tmplID := uuid.New()
	repo.templates[tmplID] = repository.Template{
		ID:   tmplID,
		Body: "Hi {{first_name}}, selling {{address}}?",
	}

	leads := newFakeLeads()
	lead := LeadContact{ID: uuid.New(), OwnerName: "SMITH, JOHN", Phones: []string{"+15551234567"}}
	leads.add(lead)

	sender := &fakeSender{}
	svc := newTestService(repo, sender, leads, &fakeEnqueuer{}, &recordingBus{})

	msg, err := svc.SendToLead(context.Background(), transport.SendMessageRequest{
		LeadID:     lead.ID,
		TemplateID: &tmplID,
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.Body != "Hi John, selling 123 Main St?" {
		t.Fatalf("unexpected rendered body: %q", msg.Body)
	}
	if msg.Status != repository.StatusSent {
		t.Fatalf("expected sent status, got %q", msg.Status)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one provider send, got %d", len(sender.sent))
	}
}

func TestSendToLeadWithoutSenderUnavailable(t *testing.T) {
	repo := newFakeRepo()
	leads := newFakeLeads()
	lead := LeadContact{ID: uuid.New(), Phones: []string{"+15551234567"}}
	leads.add(lead)
	svc := newTestService(repo, nil, leads, &fakeEnqueuer{}, &recordingBus{})

	_, err := svc.SendToLead(context.Background(), transport.SendMessageRequest{LeadID: lead.ID, Body: "hi"})
	if apperr.GetKind(err) != apperr.KindUnavailable {
		t.Fatalf("expected unavailable when sms is not configured, got %v", err)
	}
}

func TestHandleInboundStopOptsOut(t *testing.T) {
	repo := newFakeRepo()
	leads := newFakeLeads()
	lead := LeadContact{ID: uuid.New(), Phones: []string{"+15551234567"}}
	leads.add(lead)
	bus := &recordingBus{}
	svc := newTestService(repo, &fakeSender{}, leads, &fakeEnqueuer{}, bus)

	err := svc.HandleInbound(context.Background(), transport.InboundMessageRequest{
		MessageSID: "SM123",
		From:       "+15551234567",
		Body:       "STOP",
	})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}

	if !leads.leads[lead.ID].OptedOut {
		t.Fatalf("STOP should opt the lead out")
	}
	if len(repo.messages) != 1 || repo.messages[0].Direction != repository.DirectionInbound {
		t.Fatalf("inbound message should be recorded")
	}

	var received *events.MessageReceived
	for _, e := range bus.events {
		if m, ok := e.(events.MessageReceived); ok {
			received = &m
		}
	}
	if received == nil || !received.OptOut {
		t.Fatalf("expected a MessageReceived event flagged as opt-out")
	}

	// START opts back in.
	if err := svc.HandleInbound(context.Background(), transport.InboundMessageRequest{
		MessageSID: "SM124",
		From:       "+15551234567",
		Body:       "start",
	}); err != nil {
		t.Fatalf("opt back in: %v", err)
	}
	if leads.leads[lead.ID].OptedOut {
		t.Fatalf("START should opt the lead back in")
	}
}

func TestHandleInboundUnknownNumberDropped(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeSender{}, newFakeLeads(), &fakeEnqueuer{}, &recordingBus{})

	if err := svc.HandleInbound(context.Background(), transport.InboundMessageRequest{
		From: "+19998887777",
		Body: "who is this",
	}); err != nil {
		t.Fatalf("unknown numbers should not error, got %v", err)
	}
	if len(repo.messages) != 0 {
		t.Fatalf("no message should be recorded for an unknown number")
	}
}

func TestDispatchCampaignContinuesPastFailures(t *testing.T) {
	repo := newFakeRepo()
	tmplID := uuid.New()
	repo.templates[tmplID] = repository.Template{ID: tmplID, Body: "Hi {{first_name}}"}

	campaignID := uuid.New()
	audience, _ := json.Marshal(transport.AudienceFilter{MinScore: 60})
	repo.campaigns[campaignID] = repository.Campaign{
		ID: campaignID, Name: "spring blast", TemplateID: tmplID,
		Status: repository.CampaignQueued, Audience: audience,
	}

	leads := newFakeLeads()
	ok1 := LeadContact{ID: uuid.New(), OwnerName: "Ann Ok", Phones: []string{"+15550000001"}}
	failing := LeadContact{ID: uuid.New(), OwnerName: "Bob Fail", Phones: []string{"+15550000002"}}
	optedOut := LeadContact{ID: uuid.New(), OwnerName: "Carl Out", Phones: []string{"+15550000003"}, OptedOut: true}
	noPhone := LeadContact{ID: uuid.New(), OwnerName: "Dana None"}
	leads.add(ok1)
	leads.add(failing)
	leads.add(optedOut)
	leads.add(noPhone)
	leads.audience = []LeadContact{ok1, failing, optedOut, noPhone}

	sender := &fakeSender{failOn: map[string]bool{"+15550000002": true}}
	bus := &recordingBus{}
	svc := newTestService(repo, sender, leads, &fakeEnqueuer{}, bus)

	result, err := svc.DispatchCampaign(context.Background(), campaignID)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if result.Sent != 1 || result.Failed != 1 || result.Skipped != 2 {
		t.Fatalf("unexpected counters: sent=%d failed=%d skipped=%d",
			result.Sent, result.Failed, result.Skipped)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], failing.ID.String()) {
		t.Fatalf("expected one per-recipient error, got %v", result.Errors)
	}

	campaign := repo.campaigns[campaignID]
	if campaign.Status != repository.CampaignCompleted {
		t.Fatalf("campaign should complete, got %q", campaign.Status)
	}
	if campaign.SentCount != 1 || campaign.FailedCount != 1 {
		t.Fatalf("campaign counters not recorded: %+v", campaign)
	}

	var completed bool
	for _, e := range bus.events {
		if _, ok := e.(events.CampaignCompleted); ok {
			completed = true
		}
	}
	if !completed {
		t.Fatalf("expected a CampaignCompleted event")
	}
}

func TestStartCampaignRollsBackOnEnqueueFailure(t *testing.T) {
	repo := newFakeRepo()
	tmplID := uuid.New()
	repo.templates[tmplID] = repository.Template{ID: tmplID, Body: "hi"}
	campaignID := uuid.New()
	repo.campaigns[campaignID] = repository.Campaign{
		ID: campaignID, TemplateID: tmplID, Status: repository.CampaignDraft,
	}

	enq := &fakeEnqueuer{err: errors.New("queue down")}
	svc := newTestService(repo, &fakeSender{}, newFakeLeads(), enq, &recordingBus{})

	if err := svc.StartCampaign(context.Background(), campaignID); err == nil {
		t.Fatalf("expected enqueue failure to surface")
	}
	if repo.campaigns[campaignID].Status != repository.CampaignDraft {
		t.Fatalf("campaign should roll back to draft, got %q", repo.campaigns[campaignID].Status)
	}
}
