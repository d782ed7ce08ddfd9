package repository

import (
	"time"

	"github.com/google/uuid"
)

// Distress indicator types tracked against a property.
const (
	DistressPreForeclosure = "pre_foreclosure"
	DistressTaxLien        = "tax_lien"
	DistressCodeViolation  = "code_violation"
	DistressProbate        = "probate"
	DistressDivorce        = "divorce"
	DistressVacancy        = "vacancy"
	DistressBankruptcy     = "bankruptcy"
	DistressEviction       = "eviction"
)

// ValidDistressType reports whether the given type is a known indicator type.
func ValidDistressType(t string) bool {
	switch t {
	case DistressPreForeclosure, DistressTaxLien, DistressCodeViolation,
		DistressProbate, DistressDivorce, DistressVacancy,
		DistressBankruptcy, DistressEviction:
		return true
	}
	return false
}

// Property is a tracked property with owner and valuation data.
type Property struct {
	ID                  uuid.UUID  `json:"id"`
	AddressLine         string     `json:"addressLine"`
	City                string     `json:"city"`
	State               string     `json:"state"`
	Zip                 string     `json:"zip"`
	County              string     `json:"county"`
	APN                 string     `json:"apn"`
	PropertyType        string     `json:"propertyType"`
	Beds                int        `json:"beds"`
	Baths               float64    `json:"baths"`
	Sqft                int        `json:"sqft"`
	LotSqft             int        `json:"lotSqft"`
	YearBuilt           int        `json:"yearBuilt"`
	AssessedValueCents  int64      `json:"assessedValueCents"`
	EstimatedValueCents int64      `json:"estimatedValueCents"`
	MortgageBalanceCents int64     `json:"mortgageBalanceCents"`
	EquityPercent       float64    `json:"equityPercent"`
	LastSaleDate        *time.Time `json:"lastSaleDate,omitempty"`
	LastSalePriceCents  int64      `json:"lastSalePriceCents"`
	OwnerName           string     `json:"ownerName"`
	OwnerMailingAddress string     `json:"ownerMailingAddress"`
	OwnerOccupied       bool       `json:"ownerOccupied"`
	Absentee            bool       `json:"absentee"`
	Source              string     `json:"source"`
	AttomID             string     `json:"attomId,omitempty"`
	CreatedAt           string     `json:"createdAt"`
	UpdatedAt           string     `json:"updatedAt"`
}

// DistressIndicator is a recorded signal of owner distress on a property.
type DistressIndicator struct {
	ID          uuid.UUID  `json:"id"`
	PropertyID  uuid.UUID  `json:"propertyId"`
	Type        string     `json:"type"`
	Severity    int        `json:"severity"`
	RecordedAt  time.Time  `json:"recordedAt"`
	AuctionDate *time.Time `json:"auctionDate,omitempty"`
	Source      string     `json:"source"`
	Details     string     `json:"details,omitempty"`
	CreatedAt   string     `json:"createdAt"`
}

// UpsertInput carries the fields the ingest pipeline writes for a property.
// Properties are keyed by (county, apn); repeated imports update in place.
type UpsertInput struct {
	AddressLine          string
	City                 string
	State                string
	Zip                  string
	County               string
	APN                  string
	PropertyType         string
	Beds                 int
	Baths                float64
	Sqft                 int
	LotSqft              int
	YearBuilt            int
	AssessedValueCents   int64
	EstimatedValueCents  int64
	MortgageBalanceCents int64
	LastSaleDate         *time.Time
	LastSalePriceCents   int64
	OwnerName            string
	OwnerMailingAddress  string
	OwnerOccupied        bool
	Source               string
	AttomID              string
}

// ListParams carries the filter, pagination, and sorting options for listing.
type ListParams struct {
	County           string
	Zip              string
	State            string
	DistressType     string
	Absentee         *bool
	MinEquityPercent *float64
	MaxEquityPercent *float64
	MinValueCents    *int64
	MaxValueCents    *int64
	Search           string
	SortBy           string
	SortOrder        string
	Limit            int
	Offset           int
}
