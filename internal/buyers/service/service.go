// Package service implements buyer list management and deal-to-buyer
// matching.
package service

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"dealflow_backend/internal/buyers/repository"
	"dealflow_backend/internal/buyers/transport"
	"dealflow_backend/platform/apperr"
	"dealflow_backend/platform/logger"
	"dealflow_backend/platform/phone"
	"dealflow_backend/platform/sanitize"
)

const (
	defaultPageSize  = 25
	maxPageSize      = 200
	defaultMatchSize = 20
)

// Service implements buyer operations on top of the repository.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new buyers service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// GetByID returns a single buyer.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (repository.Buyer, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a filtered page of buyers.
func (s *Service) List(ctx context.Context, req transport.ListBuyersRequest) (transport.ListResponse[repository.Buyer], error) {
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
		County:   req.County,
		Zip:      req.Zip,
		Active:   req.Active,
		Verified: req.Verified,
		Search:   req.Search,
		Limit:    pageSize,
		Offset:   (page - 1) * pageSize,
	})
	if err != nil {
		return transport.ListResponse[repository.Buyer]{}, err
	}

	return transport.ListResponse[repository.Buyer]{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// Create adds a buyer to the dispo list.
func (s *Service) Create(ctx context.Context, req transport.UpsertBuyerRequest) (repository.Buyer, error) {
	return s.repo.Create(ctx, buyerFromRequest(req))
}

// Update overwrites a buyer's editable fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpsertBuyerRequest) (repository.Buyer, error) {
	return s.repo.Update(ctx, id, buyerFromRequest(req))
}

// Delete removes a buyer.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// RecordDealClosed bumps the buyer's closed-deal counter.
func (s *Service) RecordDealClosed(ctx context.Context, id uuid.UUID) error {
	return s.repo.RecordDealClosed(ctx, id)
}

// Match ranks active buyers against a deal by criteria overlap.
func (s *Service) Match(ctx context.Context, req transport.MatchRequest) ([]transport.BuyerMatch, error) {
	if req.County == "" {
		return nil, apperr.Validation("county is required")
	}

	buyers, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultMatchSize
	}

	matches := RankBuyers(buyers, req)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// RankBuyers scores each buyer against the deal and returns matches sorted
// best first. Buyers with no overlap at all are dropped.
func RankBuyers(buyers []repository.Buyer, deal transport.MatchRequest) []transport.BuyerMatch {
	matches := make([]transport.BuyerMatch, 0, len(buyers))
	for _, b := range buyers {
		match, ok := scoreBuyer(b, deal)
		if !ok {
			continue
		}
		matches = append(matches, match)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// scoreBuyer computes criteria overlap. Location is the gatekeeper: a buyer
// who doesn't cover the county or zip is not a match at all.
func scoreBuyer(b repository.Buyer, deal transport.MatchRequest) (transport.BuyerMatch, bool) {
	factors := map[string]float64{}
	var reasons []string
	score := 0.0

	countyMatch := len(b.Counties) == 0 || containsFold(b.Counties, deal.County)
	zipMatch := deal.Zip != "" && containsFold(b.Zips, deal.Zip)

	if !countyMatch && !zipMatch {
		return transport.BuyerMatch{}, false
	}

	if zipMatch {
		factors["zip"] = 30
		score += 30
		reasons = append(reasons, "buys in zip "+deal.Zip)
	} else if containsFold(b.Counties, deal.County) {
		factors["county"] = 25
		score += 25
		reasons = append(reasons, "buys in "+deal.County)
	} else {
		// No stated counties: open to anywhere, weaker signal.
		factors["county"] = 10
		score += 10
	}

	if deal.PropertyType != "" {
		if len(b.PropertyTypes) == 0 || containsFold(b.PropertyTypes, deal.PropertyType) {
			factors["property_type"] = 15
			score += 15
		} else {
			factors["property_type"] = -20
			score -= 20
		}
	}

	if deal.PriceCents > 0 {
		switch {
		case priceInRange(b, deal.PriceCents):
			factors["price"] = 20
			score += 20
			reasons = append(reasons, "price in buy box")
		case b.MaxPriceCents > 0 && deal.PriceCents > b.MaxPriceCents:
			factors["price"] = -15
			score -= 15
		case b.MinPriceCents > 0 && deal.PriceCents < b.MinPriceCents:
			factors["price"] = -10
			score -= 10
		}
	}

	if deal.Beds > 0 && b.MinBeds > 0 {
		if deal.Beds >= b.MinBeds {
			factors["beds"] = 5
			score += 5
		} else {
			factors["beds"] = -10
			score -= 10
		}
	}

	if b.Verified {
		factors["verified"] = 10
		score += 10
		reasons = append(reasons, "verified buyer")
	}

	switch {
	case b.DealsClosed >= 10:
		factors["track_record"] = 10
		score += 10
		reasons = append(reasons, "10+ deals closed")
	case b.DealsClosed >= 3:
		factors["track_record"] = 6
		score += 6
	case b.DealsClosed >= 1:
		factors["track_record"] = 3
		score += 3
	}

	if score <= 0 {
		return transport.BuyerMatch{}, false
	}

	return transport.BuyerMatch{
		Buyer:   b,
		Score:   score,
		Reasons: reasons,
		Factors: factors,
	}, true
}

func priceInRange(b repository.Buyer, priceCents int64) bool {
	if b.MinPriceCents > 0 && priceCents < b.MinPriceCents {
		return false
	}
	if b.MaxPriceCents > 0 && priceCents > b.MaxPriceCents {
		return false
	}
	return b.MinPriceCents > 0 || b.MaxPriceCents > 0
}

func containsFold(haystack []string, needle string) bool {
	for _, v := range haystack {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(needle)) {
			return true
		}
	}
	return false
}

func buyerFromRequest(req transport.UpsertBuyerRequest) repository.Buyer {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return repository.Buyer{
		Name:          strings.TrimSpace(req.Name),
		Company:       strings.TrimSpace(req.Company),
		Phone:         phone.NormalizeE164(req.Phone),
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		Counties:      trimAll(req.Counties),
		Zips:          trimAll(req.Zips),
		PropertyTypes: trimAll(req.PropertyTypes),
		MinPriceCents: req.MinPriceCents,
		MaxPriceCents: req.MaxPriceCents,
		MinBeds:       req.MinBeds,
		Verified:      req.Verified,
		Notes:         sanitize.Text(req.Notes),
		Active:        active,
	}
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
