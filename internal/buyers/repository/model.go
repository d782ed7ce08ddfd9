package repository

import (
	"time"

	"github.com/google/uuid"
)

// Buyer is a cash buyer on the dispo list.
type Buyer struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Company       string     `json:"company,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	Email         string     `json:"email,omitempty"`
	Counties      []string   `json:"counties"`
	Zips          []string   `json:"zips"`
	PropertyTypes []string   `json:"propertyTypes"`
	MinPriceCents int64      `json:"minPriceCents"`
	MaxPriceCents int64      `json:"maxPriceCents"`
	MinBeds       int        `json:"minBeds"`
	Verified      bool       `json:"verified"`
	DealsClosed   int        `json:"dealsClosed"`
	Notes         string     `json:"notes,omitempty"`
	Active        bool       `json:"active"`
	LastDealAt    *time.Time `json:"lastDealAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// ListParams carries filter and pagination options for listing buyers.
type ListParams struct {
	County   string
	Zip      string
	Active   *bool
	Verified *bool
	Search   string
	Limit    int
	Offset   int
}
