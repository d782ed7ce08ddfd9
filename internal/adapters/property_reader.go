// Package adapters contains adapters that bridge bounded contexts. Each
// adapter implements an interface defined by a consuming module while
// wrapping the service of the providing module.
package adapters

import (
	"context"

	"github.com/google/uuid"

	leadsservice "dealflow_backend/internal/leads/service"
	propsservice "dealflow_backend/internal/properties/service"
)

// Compile-time check that the adapter satisfies the leads port.
var _ leadsservice.PropertyReader = (*PropertyReader)(nil)

// PropertyReader adapts the properties service to the leads module's
// PropertyReader port.
type PropertyReader struct {
	props *propsservice.Service
}

// NewPropertyReader creates a new adapter wrapping the properties service.
func NewPropertyReader(props *propsservice.Service) *PropertyReader {
	return &PropertyReader{props: props}
}

func (a *PropertyReader) GetSnapshot(ctx context.Context, propertyID uuid.UUID) (leadsservice.PropertySnapshot, error) {
	p, err := a.props.GetByID(ctx, propertyID)
	if err != nil {
		return leadsservice.PropertySnapshot{}, err
	}

	address := p.AddressLine + ", " + p.City + ", " + p.State + " " + p.Zip
	return leadsservice.PropertySnapshot{
		Address:             address,
		OwnerName:           p.OwnerName,
		EquityPercent:       p.EquityPercent,
		HasEquityData:       p.EstimatedValueCents > 0,
		Absentee:            p.Absentee,
		OwnerOccupied:       p.OwnerOccupied,
		YearBuilt:           p.YearBuilt,
		EstimatedValueCents: p.EstimatedValueCents,
	}, nil
}

func (a *PropertyReader) ListIndicators(ctx context.Context, propertyID uuid.UUID) ([]leadsservice.PropertyIndicator, error) {
	indicators, err := a.props.ListIndicators(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	out := make([]leadsservice.PropertyIndicator, 0, len(indicators))
	for _, ind := range indicators {
		out = append(out, leadsservice.PropertyIndicator{
			Type:        ind.Type,
			Severity:    ind.Severity,
			AuctionDate: ind.AuctionDate,
		})
	}
	return out, nil
}
