// Package transport defines request/response DTOs for the leads module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateLeadRequest is the payload for manually creating a lead.
type CreateLeadRequest struct {
	PropertyID      uuid.UUID  `json:"propertyId" validate:"required"`
	OwnerName       string     `json:"ownerName" validate:"required,max=200"`
	Phones          []string   `json:"phones" validate:"max=10,dive,max=30"`
	Emails          []string   `json:"emails" validate:"max=10,dive,email"`
	AssignedAgentID *uuid.UUID `json:"assignedAgentId"`
	Source          string     `json:"source" validate:"omitempty,max=60"`
}

// UpdateContactRequest overwrites the lead's owner contact details.
type UpdateContactRequest struct {
	OwnerName string   `json:"ownerName" validate:"required,max=200"`
	Phones    []string `json:"phones" validate:"max=10,dive,max=30"`
	Emails    []string `json:"emails" validate:"max=10,dive,email"`
}

// ChangeStatusRequest moves a lead through the pipeline.
type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"max=2000"`
}

// AssignRequest sets or clears the assigned agent.
type AssignRequest struct {
	AgentID *uuid.UUID `json:"agentId"`
}

// FollowUpRequest schedules or clears the next follow-up.
type FollowUpRequest struct {
	At *string `json:"at" validate:"omitempty"`
}

// AddActivityRequest appends a timeline entry.
type AddActivityRequest struct {
	Type string `json:"type" validate:"required,oneof=call sms email note offer"`
	Body string `json:"body" validate:"required,max=5000"`
}

// ListLeadsRequest carries the query filters for listing leads.
type ListLeadsRequest struct {
	Status         string     `form:"status"`
	Classification string     `form:"classification"`
	AgentID        *uuid.UUID `form:"agentId"`
	MinScore       *int       `form:"minScore"`
	MaxScore       *int       `form:"maxScore"`
	Source         string     `form:"source"`
	Search         string     `form:"search"`
	SortBy         string     `form:"sortBy"`
	SortOrder      string     `form:"sortOrder"`
	Page           int        `form:"page"`
	PageSize       int        `form:"pageSize"`
}

// ListResponse wraps a paginated collection.
type ListResponse[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// RescoreResponse reports the outcome of a rescore.
type RescoreResponse struct {
	LeadID         uuid.UUID `json:"leadId"`
	OldScore       int       `json:"oldScore"`
	NewScore       int       `json:"newScore"`
	Classification string    `json:"classification"`
	ScoreVersion   string    `json:"scoreVersion"`
}

// SweepResponse reports the outcome of a batch rescore.
type SweepResponse struct {
	Scanned int `json:"scanned"`
	Changed int `json:"changed"`
	Failed  int `json:"failed"`
}

// DigestLead is one lead row in the daily digest.
type DigestLead struct {
	LeadID     uuid.UUID  `json:"leadId"`
	Address    string     `json:"address"`
	OwnerName  string     `json:"ownerName"`
	Score      int        `json:"score"`
	Status     string     `json:"status"`
	FollowUpAt *time.Time `json:"followUpAt,omitempty"`
}

// DigestSnapshot summarizes pipeline activity for the daily digest email.
type DigestSnapshot struct {
	Since        time.Time    `json:"since"`
	NewLeads     int          `json:"newLeads"`
	HotLeads     []DigestLead `json:"hotLeads"`
	FollowUpsDue []DigestLead `json:"followUpsDue"`
}
