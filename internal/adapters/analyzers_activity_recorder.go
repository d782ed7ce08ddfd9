package adapters

import (
	"context"

	"github.com/google/uuid"

	analyzersservice "dealflow_backend/internal/analyzers/service"
	leadsrepo "dealflow_backend/internal/leads/repository"
	leadsservice "dealflow_backend/internal/leads/service"
)

// Compile-time check that the adapter satisfies the analyzers port.
var _ analyzersservice.ActivityRecorder = (*AnalyzersActivityRecorder)(nil)

// AnalyzersActivityRecorder adapts the leads service to the analyzers
// module's ActivityRecorder port.
type AnalyzersActivityRecorder struct {
	leads *leadsservice.Service
}

// NewAnalyzersActivityRecorder creates a new adapter wrapping the leads
// service.
func NewAnalyzersActivityRecorder(leads *leadsservice.Service) *AnalyzersActivityRecorder {
	return &AnalyzersActivityRecorder{leads: leads}
}

func (a *AnalyzersActivityRecorder) RecordAnalysis(ctx context.Context, leadID uuid.UUID, kind, summary string) error {
	_, err := a.leads.RecordActivity(ctx, leadsrepo.Activity{
		LeadID: leadID,
		Type:   leadsrepo.ActivityAnalysis,
		Body:   kind + ": " + summary,
	})
	return err
}
