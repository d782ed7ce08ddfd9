// Package notification fans domain events out to agents: feed entries,
// SSE pushes, and email alerts. It subscribes to events so the domain
// modules never have to know about delivery channels.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"dealflow_backend/internal/email"
	"dealflow_backend/internal/events"
	apphttp "dealflow_backend/internal/http"
	leadstransport "dealflow_backend/internal/leads/transport"
	notifhandler "dealflow_backend/internal/notification/handler"
	"dealflow_backend/internal/notification/inapp"
	"dealflow_backend/internal/notification/sse"
	"dealflow_backend/platform/logger"
)

// digestWindow is how far back the daily digest looks for new leads.
const digestWindow = 24 * time.Hour

// Recipient is an agent that can receive notifications.
type Recipient struct {
	ID    uuid.UUID
	Name  string
	Email string
}

// AgentDirectory resolves notification recipients. Implemented by the auth
// module.
type AgentDirectory interface {
	GetRecipient(ctx context.Context, userID uuid.UUID) (Recipient, error)
	ListNotifiable(ctx context.Context) ([]Recipient, error)
}

// LeadReporter assembles the pipeline numbers for the daily digest.
// Implemented by the leads service.
type LeadReporter interface {
	DigestSnapshot(ctx context.Context, since time.Time) (leadstransport.DigestSnapshot, error)
}

// EmailSender delivers notification email. Implemented by email.SMTPSender.
type EmailSender interface {
	SendHotLeadAlert(ctx context.Context, toEmail, address string, score int) error
	SendCampaignSummary(ctx context.Context, toEmail, campaignName string, sent, failed int) error
	SendDailyDigest(ctx context.Context, toEmail string, digest email.Digest) error
}

// Feed writes entries into the per-agent notification feed.
type Feed interface {
	Send(ctx context.Context, p inapp.SendParams) error
}

// Module handles all notification-related event subscriptions and the
// notification feed API.
type Module struct {
	feed     Feed
	sse      *sse.Service
	sender   EmailSender
	agents   AgentDirectory
	reporter LeadReporter
	handler  *notifhandler.HTTPHandler
	log      *logger.Logger
	now      func() time.Time
}

// New creates a new notification module.
func New(pool *pgxpool.Pool, sender EmailSender, log *logger.Logger) *Module {
	sseSvc := sse.New(log)
	feedRepo := inapp.NewRepository(pool)
	feedSvc := inapp.NewService(feedRepo, log)
	feedSvc.SetSSE(sseSvc)

	return &Module{
		feed:    feedSvc,
		sse:     sseSvc,
		sender:  sender,
		handler: notifhandler.NewHTTPHandler(feedSvc),
		log:     log,
		now:     time.Now,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// RegisterRoutes registers the feed and SSE stream routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	notifications := ctx.Protected.Group("/notifications")
	m.handler.RegisterRoutes(notifications)
	notifications.GET("/stream", m.sse.Handler())
}

// SetAgentDirectory injects the recipient resolver (wired after the auth
// module is constructed).
func (m *Module) SetAgentDirectory(agents AgentDirectory) { m.agents = agents }

// SetLeadReporter injects the digest data source.
func (m *Module) SetLeadReporter(reporter LeadReporter) { m.reporter = reporter }

// Close shuts down open SSE streams.
func (m *Module) Close() {
	m.sse.Close()
}

// RegisterHandlers subscribes to the domain events this module fans out.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.HotLeadDetected{}.EventName(), m)
	bus.Subscribe(events.LeadAssigned{}.EventName(), m)
	bus.Subscribe(events.CampaignCompleted{}.EventName(), m)
	bus.Subscribe(events.ImportRunCompleted{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.HotLeadDetected:
		return m.handleHotLeadDetected(ctx, e)
	case events.LeadAssigned:
		return m.handleLeadAssigned(ctx, e)
	case events.CampaignCompleted:
		return m.handleCampaignCompleted(ctx, e)
	case events.ImportRunCompleted:
		return m.handleImportRunCompleted(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

// resolveRecipients returns the assigned agent when set, or every
// notifiable agent otherwise.
func (m *Module) resolveRecipients(ctx context.Context, assigned *uuid.UUID) ([]Recipient, error) {
	if m.agents == nil {
		return nil, nil
	}
	if assigned != nil && *assigned != uuid.Nil {
		recipient, err := m.agents.GetRecipient(ctx, *assigned)
		if err != nil {
			return nil, err
		}
		return []Recipient{recipient}, nil
	}
	return m.agents.ListNotifiable(ctx)
}

func (m *Module) handleHotLeadDetected(ctx context.Context, e events.HotLeadDetected) error {
	recipients, err := m.resolveRecipients(ctx, e.AssignedAgent)
	if err != nil {
		return err
	}

	leadID := e.LeadID
	content := fmt.Sprintf("%s scored %d and should be contacted today.", e.Address, e.Score)

	for _, r := range recipients {
		if err := m.feed.Send(ctx, inapp.SendParams{
			UserID:       r.ID,
			Title:        "Hot lead detected",
			Content:      content,
			ResourceID:   &leadID,
			ResourceType: "lead",
			Category:     "warning",
		}); err != nil {
			m.log.Error("hot lead feed entry failed", "lead_id", e.LeadID, "user_id", r.ID, "error", err)
		}

		if m.sender != nil {
			if err := m.sender.SendHotLeadAlert(ctx, r.Email, e.Address, e.Score); err != nil {
				m.log.Error("hot lead alert email failed", "lead_id", e.LeadID, "email", r.Email, "error", err)
			}
		}
	}

	m.sse.Broadcast(sse.Event{
		Type:    sse.EventHotLead,
		LeadID:  e.LeadID,
		Message: content,
	})
	return nil
}

func (m *Module) handleLeadAssigned(ctx context.Context, e events.LeadAssigned) error {
	if e.NewAgent == nil || *e.NewAgent == uuid.Nil {
		return nil
	}
	// Self-assignment needs no notification.
	if *e.NewAgent == e.AssignedByID {
		return nil
	}

	leadID := e.LeadID
	return m.feed.Send(ctx, inapp.SendParams{
		UserID:       *e.NewAgent,
		Title:        "Lead assigned to you",
		Content:      "A lead was added to your queue.",
		ResourceID:   &leadID,
		ResourceType: "lead",
	})
}

func (m *Module) handleCampaignCompleted(ctx context.Context, e events.CampaignCompleted) error {
	recipients, err := m.resolveRecipients(ctx, nil)
	if err != nil {
		return err
	}

	campaignID := e.CampaignID
	content := fmt.Sprintf("Campaign %q finished: %d sent, %d failed.", e.Name, e.Sent, e.Failed)

	for _, r := range recipients {
		if err := m.feed.Send(ctx, inapp.SendParams{
			UserID:       r.ID,
			Title:        "Campaign finished",
			Content:      content,
			ResourceID:   &campaignID,
			ResourceType: "campaign",
			Category:     "success",
		}); err != nil {
			m.log.Error("campaign feed entry failed", "campaign_id", e.CampaignID, "user_id", r.ID, "error", err)
		}

		if m.sender != nil {
			if err := m.sender.SendCampaignSummary(ctx, r.Email, e.Name, e.Sent, e.Failed); err != nil {
				m.log.Error("campaign summary email failed", "campaign_id", e.CampaignID, "email", r.Email, "error", err)
			}
		}
	}

	m.sse.Broadcast(sse.Event{
		Type:    sse.EventCampaignCompleted,
		Message: content,
	})
	return nil
}

func (m *Module) handleImportRunCompleted(ctx context.Context, e events.ImportRunCompleted) error {
	recipients, err := m.resolveRecipients(ctx, nil)
	if err != nil {
		return err
	}

	runID := e.RunID
	content := fmt.Sprintf("Import %s finished: %d found, %d new, %d updated, %d failed.",
		e.SourceKey, e.RecordsFound, e.RecordsCreated, e.RecordsUpdated, e.RecordsFailed)

	for _, r := range recipients {
		if err := m.feed.Send(ctx, inapp.SendParams{
			UserID:       r.ID,
			Title:        "Import finished",
			Content:      content,
			ResourceID:   &runID,
			ResourceType: "import_run",
		}); err != nil {
			m.log.Error("import feed entry failed", "run_id", e.RunID, "user_id", r.ID, "error", err)
		}
	}

	m.sse.Broadcast(sse.Event{
		Type:    sse.EventImportCompleted,
		Message: content,
	})
	return nil
}

// SendDailyDigest assembles the morning digest and emails it to every
// notifiable agent. Wired to the scheduler's daily digest task.
func (m *Module) SendDailyDigest(ctx context.Context) error {
	if m.sender == nil || m.reporter == nil || m.agents == nil {
		m.log.Debug("daily digest skipped: sender, reporter, or directory not configured")
		return nil
	}

	snapshot, err := m.reporter.DigestSnapshot(ctx, m.now().Add(-digestWindow))
	if err != nil {
		return fmt.Errorf("digest snapshot: %w", err)
	}

	recipients, err := m.agents.ListNotifiable(ctx)
	if err != nil {
		return fmt.Errorf("list digest recipients: %w", err)
	}

	digest := buildDigest(m.now(), snapshot)
	var failed int
	for _, r := range recipients {
		if err := m.sender.SendDailyDigest(ctx, r.Email, digest); err != nil {
			m.log.Error("daily digest email failed", "email", r.Email, "error", err)
			failed++
		}
	}

	m.log.Info("daily digest sent",
		"recipients", len(recipients), "failed", failed,
		"new_leads", snapshot.NewLeads, "hot_leads", len(snapshot.HotLeads))
	if failed > 0 && failed == len(recipients) {
		return fmt.Errorf("daily digest failed for all %d recipients", failed)
	}
	return nil
}

func buildDigest(now time.Time, snapshot leadstransport.DigestSnapshot) email.Digest {
	digest := email.Digest{
		Date:     now.Format("2006-01-02"),
		NewLeads: snapshot.NewLeads,
	}
	for _, lead := range snapshot.HotLeads {
		digest.HotLeads = append(digest.HotLeads, digestLead(lead))
	}
	for _, lead := range snapshot.FollowUpsDue {
		digest.FollowUpsDue = append(digest.FollowUpsDue, digestLead(lead))
	}
	return digest
}

func digestLead(lead leadstransport.DigestLead) email.DigestLead {
	return email.DigestLead{
		Address:   lead.Address,
		OwnerName: lead.OwnerName,
		Score:     lead.Score,
		Status:    lead.Status,
	}
}
