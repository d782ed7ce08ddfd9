package adapters

import (
	"context"

	"github.com/google/uuid"

	leadsrepo "dealflow_backend/internal/leads/repository"
	leadsservice "dealflow_backend/internal/leads/service"
	propsservice "dealflow_backend/internal/properties/service"
	smsservice "dealflow_backend/internal/sms/service"
	smstransport "dealflow_backend/internal/sms/transport"
)

// Compile-time check that the adapter satisfies the sms port.
var _ smsservice.LeadDirectory = (*SMSLeadDirectory)(nil)

// SMSLeadDirectory adapts the leads and properties modules to the sms
// module's LeadDirectory port.
type SMSLeadDirectory struct {
	leads *leadsservice.Service
	repo  leadsrepo.Repository
	props *propsservice.Service
}

// NewSMSLeadDirectory creates a new adapter wrapping the leads and
// properties services.
func NewSMSLeadDirectory(leads *leadsservice.Service, repo leadsrepo.Repository, props *propsservice.Service) *SMSLeadDirectory {
	return &SMSLeadDirectory{leads: leads, repo: repo, props: props}
}

func (a *SMSLeadDirectory) GetLead(ctx context.Context, id uuid.UUID) (smsservice.LeadContact, error) {
	lead, err := a.leads.GetByID(ctx, id)
	if err != nil {
		return smsservice.LeadContact{}, err
	}
	return toLeadContact(lead), nil
}

func (a *SMSLeadDirectory) FindLeadByPhone(ctx context.Context, phoneNumber string) (smsservice.LeadContact, error) {
	lead, err := a.leads.FindByPhone(ctx, phoneNumber)
	if err != nil {
		return smsservice.LeadContact{}, err
	}
	return toLeadContact(lead), nil
}

func (a *SMSLeadDirectory) SelectAudience(ctx context.Context, filter smstransport.AudienceFilter) ([]smsservice.LeadContact, error) {
	params := leadsrepo.ListParams{
		Status:         filter.Status,
		Classification: filter.Classification,
		Source:         filter.Source,
		SortBy:         "score",
		SortOrder:      "desc",
		Limit:          filter.Limit,
	}
	if filter.MinScore > 0 {
		minScore := filter.MinScore
		params.MinScore = &minScore
	}

	leads, _, err := a.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	contacts := make([]smsservice.LeadContact, 0, len(leads))
	for _, lead := range leads {
		contacts = append(contacts, toLeadContact(lead))
	}
	return contacts, nil
}

func (a *SMSLeadDirectory) SetOptOut(ctx context.Context, leadID uuid.UUID, optedOut bool) error {
	return a.leads.SetOptOut(ctx, leadID, optedOut)
}

func (a *SMSLeadDirectory) TouchLastContacted(ctx context.Context, leadID uuid.UUID) error {
	return a.leads.TouchLastContacted(ctx, leadID)
}

func (a *SMSLeadDirectory) RecordActivity(ctx context.Context, leadID uuid.UUID, activityType, body string) error {
	_, err := a.leads.RecordActivity(ctx, leadsrepo.Activity{
		LeadID: leadID,
		Type:   activityType,
		Body:   body,
	})
	return err
}

// PropertyFields returns the template placeholder values for a lead's
// property.
func (a *SMSLeadDirectory) PropertyFields(ctx context.Context, propertyID uuid.UUID) (map[string]string, error) {
	p, err := a.props.GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"address": p.AddressLine,
		"city":    p.City,
		"state":   p.State,
		"zip":     p.Zip,
	}, nil
}

func toLeadContact(lead leadsrepo.Lead) smsservice.LeadContact {
	return smsservice.LeadContact{
		ID:         lead.ID,
		PropertyID: lead.PropertyID,
		OwnerName:  lead.OwnerName,
		Phones:     lead.Phones,
		OptedOut:   lead.OptedOut,
	}
}
