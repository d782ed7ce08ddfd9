// Package service implements property management business logic.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"dealflow_backend/internal/properties/repository"
	"dealflow_backend/internal/properties/transport"
	"dealflow_backend/platform/apperr"
	"dealflow_backend/platform/logger"
	"dealflow_backend/platform/sanitize"
)

const defaultPageSize = 25
const maxPageSize = 200

// Service implements property operations on top of the repository.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new properties service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// GetByID returns a single property.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (repository.Property, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a filtered page of properties.
func (s *Service) List(ctx context.Context, req transport.ListPropertiesRequest) (transport.ListResponse[repository.Property], error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items, total, err := s.repo.List(ctx, repository.ListParams{
		County:           req.County,
		Zip:              req.Zip,
		State:            strings.ToUpper(req.State),
		DistressType:     req.DistressType,
		Absentee:         req.Absentee,
		MinEquityPercent: req.MinEquity,
		MaxEquityPercent: req.MaxEquity,
		MinValueCents:    req.MinValue,
		MaxValueCents:    req.MaxValue,
		Search:           req.Search,
		SortBy:           req.SortBy,
		SortOrder:        req.SortOrder,
		Limit:            pageSize,
		Offset:           (page - 1) * pageSize,
	})
	if err != nil {
		return transport.ListResponse[repository.Property]{}, err
	}

	return transport.ListResponse[repository.Property]{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// Create adds a property from a manual request and derives its equity
// and absentee fields.
func (s *Service) Create(ctx context.Context, req transport.CreatePropertyRequest) (repository.Property, error) {
	input := inputFromRequest(req)

	created, err := s.repo.Create(ctx, input)
	if err != nil {
		return repository.Property{}, err
	}

	return s.refreshDerived(ctx, created)
}

// Update overwrites a property and recomputes derived fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdatePropertyRequest) (repository.Property, error) {
	updated, err := s.repo.Update(ctx, id, inputFromRequest(req))
	if err != nil {
		return repository.Property{}, err
	}

	return s.refreshDerived(ctx, updated)
}

// Upsert merges an ingested property record by (county, apn). Used by the
// ingest pipeline. Returns the stored property and whether it was created.
func (s *Service) Upsert(ctx context.Context, input repository.UpsertInput) (repository.Property, bool, error) {
	if input.County == "" || input.APN == "" {
		return repository.Property{}, false, apperr.Validation("county and apn are required")
	}

	stored, created, err := s.repo.Upsert(ctx, input)
	if err != nil {
		return repository.Property{}, false, err
	}

	refreshed, err := s.refreshDerived(ctx, stored)
	if err != nil {
		return repository.Property{}, false, err
	}
	return refreshed, created, nil
}

// ListUnenriched returns properties still waiting for external enrichment.
// Used by the ingest pipeline.
func (s *Service) ListUnenriched(ctx context.Context, limit int) ([]repository.Property, error) {
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListUnenriched(ctx, limit)
}

// Delete removes a property.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// AddIndicator records a distress indicator for a property.
func (s *Service) AddIndicator(ctx context.Context, propertyID uuid.UUID, req transport.AddIndicatorRequest) (repository.DistressIndicator, error) {
	if !repository.ValidDistressType(req.Type) {
		return repository.DistressIndicator{}, apperr.Validation("unknown distress indicator type")
	}

	if _, err := s.repo.GetByID(ctx, propertyID); err != nil {
		return repository.DistressIndicator{}, err
	}

	recordedAt := time.Now()
	if req.RecordedAt != "" {
		parsed, err := time.Parse("2006-01-02", req.RecordedAt)
		if err != nil {
			return repository.DistressIndicator{}, apperr.Validation("invalid recordedAt date")
		}
		recordedAt = parsed
	}

	var auctionDate *time.Time
	if req.AuctionDate != "" {
		parsed, err := time.Parse("2006-01-02", req.AuctionDate)
		if err != nil {
			return repository.DistressIndicator{}, apperr.Validation("invalid auctionDate date")
		}
		auctionDate = &parsed
	}

	return s.repo.AddIndicator(ctx, repository.DistressIndicator{
		PropertyID:  propertyID,
		Type:        req.Type,
		Severity:    req.Severity,
		RecordedAt:  recordedAt,
		AuctionDate: auctionDate,
		Source:      req.Source,
		Details:     sanitize.Text(req.Details),
	})
}

// ListIndicators returns a property's distress indicators.
func (s *Service) ListIndicators(ctx context.Context, propertyID uuid.UUID) ([]repository.DistressIndicator, error) {
	if _, err := s.repo.GetByID(ctx, propertyID); err != nil {
		return nil, err
	}
	return s.repo.ListIndicators(ctx, propertyID)
}

// RemoveIndicator deletes a distress indicator.
func (s *Service) RemoveIndicator(ctx context.Context, propertyID, indicatorID uuid.UUID) error {
	return s.repo.RemoveIndicator(ctx, propertyID, indicatorID)
}

// refreshDerived recomputes equity percent and the absentee flag and persists
// them when they changed.
func (s *Service) refreshDerived(ctx context.Context, p repository.Property) (repository.Property, error) {
	equity := EquityPercent(p.EstimatedValueCents, p.MortgageBalanceCents)
	absentee := IsAbsentee(p.AddressLine, p.City, p.OwnerMailingAddress, p.OwnerOccupied)

	if equity == p.EquityPercent && absentee == p.Absentee {
		return p, nil
	}

	if err := s.repo.SetEquityPercent(ctx, p.ID, equity, absentee); err != nil {
		return repository.Property{}, err
	}
	p.EquityPercent = equity
	p.Absentee = absentee
	return p, nil
}

// EquityPercent computes the owner's equity as a percentage of estimated
// value. Unknown values yield 0; negative equity is reported as negative.
func EquityPercent(estimatedValueCents, mortgageBalanceCents int64) float64 {
	if estimatedValueCents <= 0 {
		return 0
	}
	equity := float64(estimatedValueCents-mortgageBalanceCents) / float64(estimatedValueCents) * 100
	if equity > 100 {
		equity = 100
	}
	if equity < -100 {
		equity = -100
	}
	return equity
}

// IsAbsentee reports whether the owner's mailing address differs from the
// property address. An owner-occupied flag from the assessor overrides.
func IsAbsentee(addressLine, city, mailingAddress string, ownerOccupied bool) bool {
	if ownerOccupied {
		return false
	}
	mailing := normalizeAddress(mailingAddress)
	if mailing == "" {
		return false
	}
	situs := normalizeAddress(addressLine)
	if situs == "" {
		return false
	}
	if !strings.Contains(mailing, situs) {
		return true
	}
	// Same street line in a different city is still absentee.
	situsCity := normalizeAddress(city)
	if situsCity != "" && !strings.Contains(mailing, situsCity) {
		return true
	}
	return false
}

func normalizeAddress(addr string) string {
	s := strings.ToUpper(strings.TrimSpace(addr))
	replacer := strings.NewReplacer(
		".", "", ",", "",
		" STREET", " ST", " AVENUE", " AVE", " DRIVE", " DR",
		" ROAD", " RD", " LANE", " LN", " BOULEVARD", " BLVD",
		" COURT", " CT", " PLACE", " PL",
	)
	s = replacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

func inputFromRequest(req transport.CreatePropertyRequest) repository.UpsertInput {
	source := req.Source
	if source == "" {
		source = "manual"
	}
	return repository.UpsertInput{
		AddressLine:          strings.TrimSpace(req.AddressLine),
		City:                 strings.TrimSpace(req.City),
		State:                strings.ToUpper(strings.TrimSpace(req.State)),
		Zip:                  strings.TrimSpace(req.Zip),
		County:               strings.TrimSpace(req.County),
		APN:                  strings.TrimSpace(req.APN),
		PropertyType:         req.PropertyType,
		Beds:                 req.Beds,
		Baths:                req.Baths,
		Sqft:                 req.Sqft,
		LotSqft:              req.LotSqft,
		YearBuilt:            req.YearBuilt,
		AssessedValueCents:   req.AssessedValueCents,
		EstimatedValueCents:  req.EstimatedValueCents,
		MortgageBalanceCents: req.MortgageBalanceCents,
		OwnerName:            strings.TrimSpace(req.OwnerName),
		OwnerMailingAddress:  strings.TrimSpace(req.OwnerMailingAddress),
		OwnerOccupied:        req.OwnerOccupied,
		Source:               source,
	}
}
