package repository

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Lead statuses form a linear pipeline; dead is reachable from anywhere.
const (
	StatusNew           = "new"
	StatusContacted     = "contacted"
	StatusResponded     = "responded"
	StatusNegotiating   = "negotiating"
	StatusUnderContract = "under_contract"
	StatusClosed        = "closed"
	StatusDead          = "dead"
)

// Activity types recorded on a lead's timeline.
const (
	ActivityCall         = "call"
	ActivitySMS          = "sms"
	ActivityEmail        = "email"
	ActivityNote         = "note"
	ActivityStatusChange = "status_change"
	ActivityOffer        = "offer"
	ActivitySkipTrace    = "skip_trace"
	ActivityAnalysis     = "analysis"
)

// Lead is an owner contact attached to a property, moving through the
// acquisition pipeline.
type Lead struct {
	ID               uuid.UUID       `json:"id"`
	PropertyID       uuid.UUID       `json:"propertyId"`
	OwnerName        string          `json:"ownerName"`
	Phones           []string        `json:"phones"`
	Emails           []string        `json:"emails"`
	Status           string          `json:"status"`
	Score            int             `json:"score"`
	Classification   string          `json:"classification"`
	DominantDistress string          `json:"dominantDistress,omitempty"`
	ScoreFactors     json.RawMessage `json:"scoreFactors,omitempty"`
	ScoreVersion     string          `json:"scoreVersion,omitempty"`
	ScoredAt         *time.Time      `json:"scoredAt,omitempty"`
	AssignedAgentID  *uuid.UUID      `json:"assignedAgentId,omitempty"`
	OptedOut         bool            `json:"optedOut"`
	Source           string          `json:"source"`
	LastContactedAt  *time.Time      `json:"lastContactedAt,omitempty"`
	NextFollowUpAt   *time.Time      `json:"nextFollowUpAt,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// Activity is a timeline entry on a lead.
type Activity struct {
	ID        uuid.UUID       `json:"id"`
	LeadID    uuid.UUID       `json:"leadId"`
	Type      string          `json:"type"`
	Body      string          `json:"body"`
	ActorID   *uuid.UUID      `json:"actorId,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ResponseStats aggregates a lead's SMS conversation for scoring.
type ResponseStats struct {
	InboundMessages  int
	OutboundMessages int
	LastInboundAt    *time.Time
	ActivityCount    int
}

// ScoreUpdate carries the fields persisted after a rescore.
type ScoreUpdate struct {
	Score            int
	Classification   string
	DominantDistress string
	FactorsJSON      []byte
	Version          string
	ScoredAt         time.Time
}

// ListParams carries filter, pagination, and sorting options.
type ListParams struct {
	Status          string
	Classification  string
	AssignedAgentID *uuid.UUID
	MinScore        *int
	MaxScore        *int
	Source          string
	Search          string
	SortBy          string
	SortOrder       string
	Limit           int
	Offset          int
}

// BoardColumn is one pipeline column for the Kanban view.
type BoardColumn struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
	Leads  []Lead `json:"leads"`
}

// ValidStatus reports whether the given status is a known pipeline status.
func ValidStatus(s string) bool {
	switch s {
	case StatusNew, StatusContacted, StatusResponded, StatusNegotiating,
		StatusUnderContract, StatusClosed, StatusDead:
		return true
	}
	return false
}

// PipelineOrder lists the statuses in board order.
var PipelineOrder = []string{
	StatusNew, StatusContacted, StatusResponded, StatusNegotiating,
	StatusUnderContract, StatusClosed, StatusDead,
}
