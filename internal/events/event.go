// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"dealflow_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event     = events.Event
	Bus       = events.Bus
	Handler   = events.Handler
	BaseEvent = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Auth Domain Events
// =============================================================================

// UserRegistered is published when an admin creates a new agent account.
type UserRegistered struct {
	BaseEvent
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
}

func (e UserRegistered) EventName() string { return "auth.user.registered" }

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead is created, either manually
// or automatically by the ingest pipeline.
type LeadCreated struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	PropertyID uuid.UUID `json:"propertyId"`
	Source     string    `json:"source"`
	Score      int       `json:"score"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadScored is published after the scoring engine recomputes a lead's
// motivation score.
type LeadScored struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	PropertyID     uuid.UUID `json:"propertyId"`
	OldScore       int       `json:"oldScore"`
	NewScore       int       `json:"newScore"`
	Classification string    `json:"classification"`
	ScoreVersion   string    `json:"scoreVersion"`
}

func (e LeadScored) EventName() string { return "leads.lead.scored" }

// LeadStatusChanged is published when a lead moves through the pipeline.
type LeadStatusChanged struct {
	BaseEvent
	LeadID    uuid.UUID  `json:"leadId"`
	OldStatus string     `json:"oldStatus"`
	NewStatus string     `json:"newStatus"`
	ActorID   *uuid.UUID `json:"actorId,omitempty"`
}

func (e LeadStatusChanged) EventName() string { return "leads.lead.status_changed" }

// LeadAssigned is published when a lead is assigned to an agent.
type LeadAssigned struct {
	BaseEvent
	LeadID        uuid.UUID  `json:"leadId"`
	PreviousAgent *uuid.UUID `json:"previousAgent,omitempty"`
	NewAgent      *uuid.UUID `json:"newAgent,omitempty"`
	AssignedByID  uuid.UUID  `json:"assignedById"`
}

func (e LeadAssigned) EventName() string { return "leads.lead.assigned" }

// HotLeadDetected is published when a lead's score crosses the hot threshold.
// The notification module subscribes to alert the assigned agent.
type HotLeadDetected struct {
	BaseEvent
	LeadID        uuid.UUID  `json:"leadId"`
	PropertyID    uuid.UUID  `json:"propertyId"`
	Score         int        `json:"score"`
	Address       string     `json:"address"`
	AssignedAgent *uuid.UUID `json:"assignedAgent,omitempty"`
}

func (e HotLeadDetected) EventName() string { return "leads.lead.hot_detected" }

// =============================================================================
// Outreach Domain Events
// =============================================================================

// MessageSent is published when an outbound SMS is accepted by the provider.
type MessageSent struct {
	BaseEvent
	MessageID  uuid.UUID  `json:"messageId"`
	LeadID     uuid.UUID  `json:"leadId"`
	CampaignID *uuid.UUID `json:"campaignId,omitempty"`
	Phone      string     `json:"phone"`
}

func (e MessageSent) EventName() string { return "outreach.message.sent" }

// MessageReceived is published when an inbound SMS reply is recorded.
type MessageReceived struct {
	BaseEvent
	MessageID uuid.UUID `json:"messageId"`
	LeadID    uuid.UUID `json:"leadId"`
	Phone     string    `json:"phone"`
	Body      string    `json:"body"`
	OptOut    bool      `json:"optOut"`
}

func (e MessageReceived) EventName() string { return "outreach.message.received" }

// CampaignCompleted is published when a campaign dispatch run finishes.
type CampaignCompleted struct {
	BaseEvent
	CampaignID uuid.UUID `json:"campaignId"`
	Name       string    `json:"name"`
	Sent       int       `json:"sent"`
	Failed     int       `json:"failed"`
}

func (e CampaignCompleted) EventName() string { return "outreach.campaign.completed" }

// =============================================================================
// Enrichment Domain Events
// =============================================================================

// SkipTraceCompleted is published when a skip trace lookup finishes for a lead.
type SkipTraceCompleted struct {
	BaseEvent
	LeadID      uuid.UUID `json:"leadId"`
	PhonesFound int       `json:"phonesFound"`
	EmailsFound int       `json:"emailsFound"`
	CostCents   int64     `json:"costCents"`
}

func (e SkipTraceCompleted) EventName() string { return "enrichment.skip_trace.completed" }

// PropertyEnriched is published when external property data is merged
// into a property record.
type PropertyEnriched struct {
	BaseEvent
	PropertyID uuid.UUID `json:"propertyId"`
	Source     string    `json:"source"`
}

func (e PropertyEnriched) EventName() string { return "enrichment.property.enriched" }

// =============================================================================
// Ingest Domain Events
// =============================================================================

// ImportRunCompleted is published when a data source import run finishes.
type ImportRunCompleted struct {
	BaseEvent
	RunID          uuid.UUID `json:"runId"`
	SourceKey      string    `json:"sourceKey"`
	RecordsFound   int       `json:"recordsFound"`
	RecordsCreated int       `json:"recordsCreated"`
	RecordsUpdated int       `json:"recordsUpdated"`
	RecordsFailed  int       `json:"recordsFailed"`
}

func (e ImportRunCompleted) EventName() string { return "ingest.run.completed" }
