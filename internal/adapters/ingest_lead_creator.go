package adapters

import (
	"context"

	"github.com/google/uuid"

	ingestservice "dealflow_backend/internal/ingest/service"
	leadsservice "dealflow_backend/internal/leads/service"
)

// Compile-time check that the adapter satisfies the ingest port.
var _ ingestservice.LeadCreator = (*IngestLeadCreator)(nil)

// IngestLeadCreator adapts the leads service to the ingest module's
// LeadCreator port.
type IngestLeadCreator struct {
	leads *leadsservice.Service
}

// NewIngestLeadCreator creates a new adapter wrapping the leads service.
func NewIngestLeadCreator(leads *leadsservice.Service) *IngestLeadCreator {
	return &IngestLeadCreator{leads: leads}
}

func (a *IngestLeadCreator) PreviewScore(ctx context.Context, propertyID uuid.UUID) (int, error) {
	return a.leads.PreviewScore(ctx, propertyID)
}

func (a *IngestLeadCreator) CreateFromIngest(ctx context.Context, propertyID uuid.UUID, ownerName, source string) (bool, error) {
	_, created, err := a.leads.CreateFromIngest(ctx, propertyID, ownerName, source)
	return created, err
}
