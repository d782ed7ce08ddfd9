package notification

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"dealflow_backend/internal/email"
	"dealflow_backend/internal/events"
	leadstransport "dealflow_backend/internal/leads/transport"
	"dealflow_backend/internal/notification/inapp"
	"dealflow_backend/internal/notification/sse"
	"dealflow_backend/platform/logger"
)

var testNow = time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

type fakeFeed struct {
	entries []inapp.SendParams
}

func (f *fakeFeed) Send(_ context.Context, p inapp.SendParams) error {
	f.entries = append(f.entries, p)
	return nil
}

type sentEmail struct {
	kind   string
	to     string
	digest email.Digest
}

type fakeSender struct {
	sent   []sentEmail
	failOn map[string]bool
}

func (f *fakeSender) SendHotLeadAlert(_ context.Context, toEmail, _ string, _ int) error {
	if f.failOn[toEmail] {
		return fmt.Errorf("smtp send: connection refused")
	}
	f.sent = append(f.sent, sentEmail{kind: "hot_lead", to: toEmail})
	return nil
}

func (f *fakeSender) SendCampaignSummary(_ context.Context, toEmail, _ string, _, _ int) error {
	if f.failOn[toEmail] {
		return fmt.Errorf("smtp send: connection refused")
	}
	f.sent = append(f.sent, sentEmail{kind: "campaign_summary", to: toEmail})
	return nil
}

func (f *fakeSender) SendDailyDigest(_ context.Context, toEmail string, digest email.Digest) error {
	if f.failOn[toEmail] {
		return fmt.Errorf("smtp send: connection refused")
	}
	f.sent = append(f.sent, sentEmail{kind: "daily_digest", to: toEmail, digest: digest})
	return nil
}

type fakeDirectory struct {
	recipients []Recipient
}

func (f *fakeDirectory) GetRecipient(_ context.Context, userID uuid.UUID) (Recipient, error) {
	for _, r := range f.recipients {
		if r.ID == userID {
			return r, nil
		}
	}
	return Recipient{}, fmt.Errorf("user %s not found", userID)
}

func (f *fakeDirectory) ListNotifiable(context.Context) ([]Recipient, error) {
	return f.recipients, nil
}

type fakeReporter struct {
	snapshot leadstransport.DigestSnapshot
	since    time.Time
}

func (f *fakeReporter) DigestSnapshot(_ context.Context, since time.Time) (leadstransport.DigestSnapshot, error) {
	f.since = since
	return f.snapshot, nil
}

func newTestModule(feed *fakeFeed, sender *fakeSender, agents *fakeDirectory, reporter *fakeReporter) *Module {
	log := logger.New("test")
	m := &Module{
		feed:   feed,
		sse:    sse.New(log),
		agents: agents,
		log:    log,
		now:    func() time.Time { return testNow },
	}
	if sender != nil {
		m.sender = sender
	}
	if reporter != nil {
		m.reporter = reporter
	}
	return m
}

func TestHotLeadNotifiesAssignedAgent(t *testing.T) {
	agent := Recipient{ID: uuid.New(), Name: "Dana", Email: "dana@example.com"}
	other := Recipient{ID: uuid.New(), Name: "Lee", Email: "lee@example.com"}
	feed := &fakeFeed{}
	sender := &fakeSender{}
	m := newTestModule(feed, sender, &fakeDirectory{recipients: []Recipient{agent, other}}, nil)

	agentID := agent.ID
	err := m.Handle(context.Background(), events.HotLeadDetected{
		LeadID:        uuid.New(),
		Score:         88,
		Address:       "123 Main St",
		AssignedAgent: &agentID,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(feed.entries) != 1 {
		t.Fatalf("got %d feed entries, want 1", len(feed.entries))
	}
	if feed.entries[0].UserID != agent.ID {
		t.Fatalf("feed entry for %s, want assigned agent", feed.entries[0].UserID)
	}
	if feed.entries[0].Category != "warning" {
		t.Fatalf("category = %q", feed.entries[0].Category)
	}
	if len(sender.sent) != 1 || sender.sent[0].to != agent.Email {
		t.Fatalf("unexpected emails: %+v", sender.sent)
	}
}

func TestHotLeadUnassignedNotifiesEveryone(t *testing.T) {
	agents := []Recipient{
		{ID: uuid.New(), Email: "a@example.com"},
		{ID: uuid.New(), Email: "b@example.com"},
	}
	feed := &fakeFeed{}
	sender := &fakeSender{}
	m := newTestModule(feed, sender, &fakeDirectory{recipients: agents}, nil)

	err := m.Handle(context.Background(), events.HotLeadDetected{
		LeadID:  uuid.New(),
		Score:   91,
		Address: "44 Elm Ave",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(feed.entries) != 2 {
		t.Fatalf("got %d feed entries, want 2", len(feed.entries))
	}
	if len(sender.sent) != 2 {
		t.Fatalf("got %d emails, want 2", len(sender.sent))
	}
}

func TestHotLeadEmailFailureDoesNotStopFanout(t *testing.T) {
	agents := []Recipient{
		{ID: uuid.New(), Email: "broken@example.com"},
		{ID: uuid.New(), Email: "ok@example.com"},
	}
	feed := &fakeFeed{}
	sender := &fakeSender{failOn: map[string]bool{"broken@example.com": true}}
	m := newTestModule(feed, sender, &fakeDirectory{recipients: agents}, nil)

	err := m.Handle(context.Background(), events.HotLeadDetected{
		LeadID:  uuid.New(),
		Score:   85,
		Address: "9 Oak Ct",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(feed.entries) != 2 {
		t.Fatalf("got %d feed entries, want 2", len(feed.entries))
	}
	if len(sender.sent) != 1 || sender.sent[0].to != "ok@example.com" {
		t.Fatalf("unexpected emails: %+v", sender.sent)
	}
}

func TestLeadAssignedNotifiesNewAgent(t *testing.T) {
	feed := &fakeFeed{}
	m := newTestModule(feed, nil, &fakeDirectory{}, nil)

	newAgent := uuid.New()
	err := m.Handle(context.Background(), events.LeadAssigned{
		LeadID:       uuid.New(),
		NewAgent:     &newAgent,
		AssignedByID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(feed.entries) != 1 || feed.entries[0].UserID != newAgent {
		t.Fatalf("unexpected feed entries: %+v", feed.entries)
	}
}

func TestLeadSelfAssignmentSkipped(t *testing.T) {
	feed := &fakeFeed{}
	m := newTestModule(feed, nil, &fakeDirectory{}, nil)

	agent := uuid.New()
	err := m.Handle(context.Background(), events.LeadAssigned{
		LeadID:       uuid.New(),
		NewAgent:     &agent,
		AssignedByID: agent,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(feed.entries) != 0 {
		t.Fatalf("got %d feed entries, want 0", len(feed.entries))
	}
}

func TestCampaignCompletedSendsSummaries(t *testing.T) {
	agents := []Recipient{{ID: uuid.New(), Email: "a@example.com"}}
	feed := &fakeFeed{}
	sender := &fakeSender{}
	m := newTestModule(feed, sender, &fakeDirectory{recipients: agents}, nil)

	err := m.Handle(context.Background(), events.CampaignCompleted{
		CampaignID: uuid.New(),
		Name:       "March absentee blast",
		Sent:       240,
		Failed:     3,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(feed.entries) != 1 || feed.entries[0].ResourceType != "campaign" {
		t.Fatalf("unexpected feed entries: %+v", feed.entries)
	}
	if len(sender.sent) != 1 || sender.sent[0].kind != "campaign_summary" {
		t.Fatalf("unexpected emails: %+v", sender.sent)
	}
}

func TestSendDailyDigest(t *testing.T) {
	agents := []Recipient{
		{ID: uuid.New(), Email: "a@example.com"},
		{ID: uuid.New(), Email: "b@example.com"},
	}
	reporter := &fakeReporter{snapshot: leadstransport.DigestSnapshot{
		NewLeads: 7,
		HotLeads: []leadstransport.DigestLead{
			{Address: "123 Main St", OwnerName: "John Smith", Score: 91, Status: "new"},
		},
		FollowUpsDue: []leadstransport.DigestLead{
			{Address: "44 Elm Ave", OwnerName: "Ada Park", Score: 60, Status: "contacted"},
		},
	}}
	sender := &fakeSender{}
	m := newTestModule(&fakeFeed{}, sender, &fakeDirectory{recipients: agents}, reporter)

	if err := m.SendDailyDigest(context.Background()); err != nil {
		t.Fatalf("send digest: %v", err)
	}

	wantSince := testNow.Add(-24 * time.Hour)
	if !reporter.since.Equal(wantSince) {
		t.Fatalf("since = %v, want %v", reporter.since, wantSince)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("got %d emails, want 2", len(sender.sent))
	}
	digest := sender.sent[0].digest
	if digest.Date != "2026-03-02" {
		t.Fatalf("digest date = %q", digest.Date)
	}
	if digest.NewLeads != 7 || len(digest.HotLeads) != 1 || len(digest.FollowUpsDue) != 1 {
		t.Fatalf("unexpected digest: %+v", digest)
	}
	if digest.HotLeads[0].Address != "123 Main St" {
		t.Fatalf("hot lead address = %q", digest.HotLeads[0].Address)
	}
}

func TestSendDailyDigestAllFailuresErrors(t *testing.T) {
	agents := []Recipient{{ID: uuid.New(), Email: "broken@example.com"}}
	sender := &fakeSender{failOn: map[string]bool{"broken@example.com": true}}
	m := newTestModule(&fakeFeed{}, sender, &fakeDirectory{recipients: agents}, &fakeReporter{})

	if err := m.SendDailyDigest(context.Background()); err == nil {
		t.Fatalf("expected error when every recipient fails")
	}
}

func TestSendDailyDigestUnconfiguredIsNoop(t *testing.T) {
	m := newTestModule(&fakeFeed{}, nil, &fakeDirectory{}, nil)

	if err := m.SendDailyDigest(context.Background()); err != nil {
		t.Fatalf("send digest: %v", err)
	}
}
