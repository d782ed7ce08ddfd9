package adapters

import (
	"context"

	"github.com/google/uuid"

	ingestservice "dealflow_backend/internal/ingest/service"
	propsrepo "dealflow_backend/internal/properties/repository"
	propsservice "dealflow_backend/internal/properties/service"
	propstransport "dealflow_backend/internal/properties/transport"
)

// Compile-time check that the adapter satisfies the ingest port.
var _ ingestservice.PropertyCatalog = (*IngestPropertyCatalog)(nil)

// IngestPropertyCatalog adapts the properties service to the ingest
// module's PropertyCatalog port.
type IngestPropertyCatalog struct {
	props *propsservice.Service
}

// NewIngestPropertyCatalog creates a new adapter wrapping the properties
// service.
func NewIngestPropertyCatalog(props *propsservice.Service) *IngestPropertyCatalog {
	return &IngestPropertyCatalog{props: props}
}

func (a *IngestPropertyCatalog) Upsert(ctx context.Context, record ingestservice.PropertyRecord) (uuid.UUID, bool, error) {
	prop, created, err := a.props.Upsert(ctx, propsrepo.UpsertInput{
		AddressLine:          record.AddressLine,
		City:                 record.City,
		State:                record.State,
		Zip:                  record.Zip,
		County:               record.County,
		APN:                  record.APN,
		PropertyType:         record.PropertyType,
		Beds:                 record.Beds,
		Baths:                record.Baths,
		Sqft:                 record.Sqft,
		LotSqft:              record.LotSqft,
		YearBuilt:            record.YearBuilt,
		AssessedValueCents:   record.AssessedValueCents,
		EstimatedValueCents:  record.EstimatedValueCents,
		MortgageBalanceCents: record.MortgageBalanceCents,
		LastSaleDate:         record.LastSaleDate,
		LastSalePriceCents:   record.LastSalePriceCents,
		OwnerName:            record.OwnerName,
		OwnerMailingAddress:  record.OwnerMailingAddress,
		OwnerOccupied:        record.OwnerOccupied,
		Source:               record.Source,
		AttomID:              record.AttomID,
	})
	if err != nil {
		return uuid.Nil, false, err
	}
	return prop.ID, created, nil
}

func (a *IngestPropertyCatalog) AddIndicator(ctx context.Context, propertyID uuid.UUID, ind ingestservice.Indicator) error {
	req := propstransport.AddIndicatorRequest{
		Type:     ind.Type,
		Severity: ind.Severity,
		Source:   ind.Source,
		Details:  ind.Details,
	}
	if ind.AuctionDate != nil {
		req.AuctionDate = ind.AuctionDate.Format("2006-01-02")
	}

	_, err := a.props.AddIndicator(ctx, propertyID, req)
	return err
}

func (a *IngestPropertyCatalog) ListUnenriched(ctx context.Context, limit int) ([]ingestservice.EnrichTarget, error) {
	props, err := a.props.ListUnenriched(ctx, limit)
	if err != nil {
		return nil, err
	}

	targets := make([]ingestservice.EnrichTarget, 0, len(props))
	for _, p := range props {
		targets = append(targets, ingestservice.EnrichTarget{
			ID:          p.ID,
			AddressLine: p.AddressLine,
			City:        p.City,
			State:       p.State,
			Zip:         p.Zip,
			County:      p.County,
			APN:         p.APN,
		})
	}
	return targets, nil
}
