package repository

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message directions.
const (
	DirectionOutbound = "outbound"
	DirectionInbound  = "inbound"
)

// Message statuses. Outbound messages move queued -> sent -> delivered (or
// failed/undelivered via the status callback); inbound messages are received.
const (
	StatusQueued      = "queued"
	StatusSent        = "sent"
	StatusDelivered   = "delivered"
	StatusFailed      = "failed"
	StatusUndelivered = "undelivered"
	StatusReceived    = "received"
)

// Campaign statuses.
const (
	CampaignDraft     = "draft"
	CampaignQueued    = "queued"
	CampaignSending   = "sending"
	CampaignCompleted = "completed"
	CampaignCanceled  = "canceled"
)

// Message is one SMS on a lead's conversation record.
type Message struct {
	ID           uuid.UUID  `json:"id"`
	LeadID       uuid.UUID  `json:"leadId"`
	CampaignID   *uuid.UUID `json:"campaignId,omitempty"`
	Direction    string     `json:"direction"`
	Phone        string     `json:"phone"`
	Body         string     `json:"body"`
	Status       string     `json:"status"`
	ProviderSID  string     `json:"providerSid,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Template is a reusable outreach message with placeholders.
type Template struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Body      string    `json:"body"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Campaign is a templated send to a filtered audience of leads.
type Campaign struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	TemplateID      uuid.UUID       `json:"templateId"`
	Status          string          `json:"status"`
	Audience        json.RawMessage `json:"audience"`
	TotalRecipients int             `json:"totalRecipients"`
	SentCount       int             `json:"sentCount"`
	FailedCount     int             `json:"failedCount"`
	StartedAt       *time.Time      `json:"startedAt,omitempty"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
