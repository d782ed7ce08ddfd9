package repository

import (
	"time"

	"github.com/google/uuid"
)

// PhoneRecord is one discovered phone number with provider metadata.
type PhoneRecord struct {
	Number     string  `json:"number"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// Result is a stored skip trace lookup outcome for a lead.
type Result struct {
	ID        uuid.UUID     `json:"id"`
	LeadID    uuid.UUID     `json:"leadId"`
	Provider  string        `json:"provider"`
	Phones    []PhoneRecord `json:"phones"`
	Emails    []string      `json:"emails"`
	CostCents int64         `json:"costCents"`
	CreatedAt time.Time     `json:"createdAt"`
}
