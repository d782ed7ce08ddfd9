// Package transport defines request and response shapes for the skiptrace module.
package transport

import "github.com/google/uuid"

// TraceRequest controls a single skip trace lookup.
type TraceRequest struct {
	Force bool `json:"force"`
}

// BatchTraceRequest runs lookups for a set of leads.
type BatchTraceRequest struct {
	LeadIDs []uuid.UUID `json:"leadIds" validate:"required,min=1,max=500"`
	Force   bool        `json:"force"`
}

// TraceResult summarizes one completed lookup.
type TraceResult struct {
	LeadID      uuid.UUID `json:"leadId"`
	PhonesFound int       `json:"phonesFound"`
	EmailsFound int       `json:"emailsFound"`
	CostCents   int64     `json:"costCents"`
	Cached      bool      `json:"cached"`
}

// BatchResult aggregates a batch run.
type BatchResult struct {
	Requested int           `json:"requested"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Results   []TraceResult `json:"results"`
	Errors    []string      `json:"errors,omitempty"`
}
