// Package transport defines request/response DTOs for the sms module.
package transport

import "github.com/google/uuid"

// SendMessageRequest sends a one-off SMS to a lead.
type SendMessageRequest struct {
	LeadID     uuid.UUID  `json:"leadId" validate:"required"`
	Body       string     `json:"body" validate:"required_without=TemplateID,max=1600"`
	TemplateID *uuid.UUID `json:"templateId"`
	Phone      string     `json:"phone" validate:"omitempty,max=30"`
}

// UpsertTemplateRequest creates or updates a message template.
type UpsertTemplateRequest struct {
	Name   string `json:"name" validate:"required,max=120"`
	Body   string `json:"body" validate:"required,max=1600"`
	Active *bool  `json:"active"`
}

// AudienceFilter selects the leads a campaign goes to.
type AudienceFilter struct {
	Status         string `json:"status" validate:"omitempty,oneof=new contacted responded negotiating under_contract"`
	Classification string `json:"classification" validate:"omitempty,oneof=hot warm lukewarm cold"`
	MinScore       int    `json:"minScore" validate:"gte=0,lte=100"`
	Source         string `json:"source" validate:"omitempty,max=60"`
	Limit          int    `json:"limit" validate:"gte=0,lte=5000"`
}

// CreateCampaignRequest creates a campaign in draft status.
type CreateCampaignRequest struct {
	Name       string         `json:"name" validate:"required,max=200"`
	TemplateID uuid.UUID      `json:"templateId" validate:"required"`
	Audience   AudienceFilter `json:"audience"`
}

// StatusCallbackRequest is Twilio's delivery status webhook payload.
type StatusCallbackRequest struct {
	MessageSID    string `form:"MessageSid"`
	MessageStatus string `form:"MessageStatus"`
	ErrorCode     string `form:"ErrorCode"`
}

// InboundMessageRequest is Twilio's incoming-message webhook payload.
type InboundMessageRequest struct {
	MessageSID string `form:"MessageSid"`
	From       string `form:"From"`
	To         string `form:"To"`
	Body       string `form:"Body"`
}

// DispatchResult summarizes a campaign dispatch run.
type DispatchResult struct {
	CampaignID uuid.UUID `json:"campaignId"`
	Recipients int       `json:"recipients"`
	Sent       int       `json:"sent"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Errors     []string  `json:"errors,omitempty"`
}

// ListResponse wraps a paginated collection.
type ListResponse[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}
