package adapters

import (
	"context"

	"github.com/google/uuid"

	leadsservice "dealflow_backend/internal/leads/service"
	propsservice "dealflow_backend/internal/properties/service"
	skipservice "dealflow_backend/internal/skiptrace/service"
)

// Compile-time check that the adapter satisfies the skip trace port.
var _ skipservice.LeadDirectory = (*SkipTraceLeadDirectory)(nil)

// SkipTraceLeadDirectory adapts the leads and properties modules to the
// skip trace module's LeadDirectory port.
type SkipTraceLeadDirectory struct {
	leads *leadsservice.Service
	props *propsservice.Service
}

// NewSkipTraceLeadDirectory creates a new adapter over the leads and
// properties services.
func NewSkipTraceLeadDirectory(leads *leadsservice.Service, props *propsservice.Service) *SkipTraceLeadDirectory {
	return &SkipTraceLeadDirectory{leads: leads, props: props}
}

func (a *SkipTraceLeadDirectory) TraceTarget(ctx context.Context, leadID uuid.UUID) (skipservice.TraceTarget, error) {
	lead, err := a.leads.GetByID(ctx, leadID)
	if err != nil {
		return skipservice.TraceTarget{}, err
	}
	prop, err := a.props.GetByID(ctx, lead.PropertyID)
	if err != nil {
		return skipservice.TraceTarget{}, err
	}

	return skipservice.TraceTarget{
		LeadID:    lead.ID,
		OwnerName: lead.OwnerName,
		Address:   prop.AddressLine,
		City:      prop.City,
		State:     prop.State,
		Zip:       prop.Zip,
	}, nil
}

func (a *SkipTraceLeadDirectory) MergeContactInfo(ctx context.Context, leadID uuid.UUID, phones, emails []string, note string) error {
	_, err := a.leads.MergeContactInfo(ctx, leadID, phones, emails, note)
	return err
}
