// Package transport defines request/response DTOs for the buyers module.
package transport

import "dealflow_backend/internal/buyers/repository"

// UpsertBuyerRequest is the payload for creating or updating a buyer.
type UpsertBuyerRequest struct {
	Name          string   `json:"name" validate:"required,max=200"`
	Company       string   `json:"company" validate:"max=200"`
	Phone         string   `json:"phone" validate:"max=30"`
	Email         string   `json:"email" validate:"omitempty,email"`
	Counties      []string `json:"counties" validate:"max=50,dive,max=100"`
	Zips          []string `json:"zips" validate:"max=100,dive,max=10"`
	PropertyTypes []string `json:"propertyTypes" validate:"max=10,dive,oneof=single_family multi_family condo townhouse mobile land"`
	MinPriceCents int64    `json:"minPriceCents" validate:"gte=0"`
	MaxPriceCents int64    `json:"maxPriceCents" validate:"gte=0"`
	MinBeds       int      `json:"minBeds" validate:"gte=0,lte=20"`
	Verified      bool     `json:"verified"`
	Notes         string   `json:"notes" validate:"max=5000"`
	Active        *bool    `json:"active"`
}

// ListBuyersRequest carries the query filters for listing buyers.
type ListBuyersRequest struct {
	County   string `form:"county"`
	Zip      string `form:"zip"`
	Active   *bool  `form:"active"`
	Verified *bool  `form:"verified"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// MatchRequest describes a deal to match buyers against.
type MatchRequest struct {
	County       string `json:"county" validate:"required,max=100"`
	Zip          string `json:"zip" validate:"max=10"`
	PropertyType string `json:"propertyType" validate:"omitempty,oneof=single_family multi_family condo townhouse mobile land"`
	PriceCents   int64  `json:"priceCents" validate:"gte=0"`
	Beds         int    `json:"beds" validate:"gte=0,lte=20"`
	Limit        int    `json:"limit" validate:"gte=0,lte=100"`
}

// BuyerMatch is one ranked match result.
type BuyerMatch struct {
	Buyer   repository.Buyer   `json:"buyer"`
	Score   float64            `json:"score"`
	Reasons []string           `json:"reasons"`
	Factors map[string]float64 `json:"factors"`
}

// ListResponse wraps a paginated collection.
type ListResponse[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}
