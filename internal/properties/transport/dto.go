// Package transport defines request/response DTOs for the properties module.
package transport

// CreatePropertyRequest is the payload for manually adding a property.
type CreatePropertyRequest struct {
	AddressLine          string  `json:"addressLine" validate:"required,max=255"`
	City                 string  `json:"city" validate:"required,max=100"`
	State                string  `json:"state" validate:"required,len=2"`
	Zip                  string  `json:"zip" validate:"required,min=5,max=10"`
	County               string  `json:"county" validate:"required,max=100"`
	APN                  string  `json:"apn" validate:"required,max=60"`
	PropertyType         string  `json:"propertyType" validate:"omitempty,oneof=single_family multi_family condo townhouse mobile land"`
	Beds                 int     `json:"beds" validate:"gte=0,lte=50"`
	Baths                float64 `json:"baths" validate:"gte=0,lte=50"`
	Sqft                 int     `json:"sqft" validate:"gte=0"`
	LotSqft              int     `json:"lotSqft" validate:"gte=0"`
	YearBuilt            int     `json:"yearBuilt" validate:"omitempty,gte=1800,lte=2100"`
	AssessedValueCents   int64   `json:"assessedValueCents" validate:"gte=0"`
	EstimatedValueCents  int64   `json:"estimatedValueCents" validate:"gte=0"`
	MortgageBalanceCents int64   `json:"mortgageBalanceCents" validate:"gte=0"`
	OwnerName            string  `json:"ownerName" validate:"max=200"`
	OwnerMailingAddress  string  `json:"ownerMailingAddress" validate:"max=255"`
	OwnerOccupied        bool    `json:"ownerOccupied"`
	Source               string  `json:"source" validate:"omitempty,max=60"`
}

// UpdatePropertyRequest mirrors CreatePropertyRequest for full updates.
type UpdatePropertyRequest = CreatePropertyRequest

// ListPropertiesRequest carries the query filters for listing properties.
type ListPropertiesRequest struct {
	County       string   `form:"county"`
	Zip          string   `form:"zip"`
	State        string   `form:"state"`
	DistressType string   `form:"distressType"`
	Absentee     *bool    `form:"absentee"`
	MinEquity    *float64 `form:"minEquity"`
	MaxEquity    *float64 `form:"maxEquity"`
	MinValue     *int64   `form:"minValueCents"`
	MaxValue     *int64   `form:"maxValueCents"`
	Search       string   `form:"search"`
	SortBy       string   `form:"sortBy"`
	SortOrder    string   `form:"sortOrder"`
	Page         int      `form:"page"`
	PageSize     int      `form:"pageSize"`
}

// AddIndicatorRequest is the payload for recording a distress indicator.
type AddIndicatorRequest struct {
	Type        string `json:"type" validate:"required"`
	Severity    int    `json:"severity" validate:"required,gte=1,lte=10"`
	RecordedAt  string `json:"recordedAt" validate:"omitempty,datetime=2006-01-02"`
	AuctionDate string `json:"auctionDate" validate:"omitempty,datetime=2006-01-02"`
	Source      string `json:"source" validate:"required,max=60"`
	Details     string `json:"details" validate:"max=2000"`
}

// ListResponse wraps a paginated collection.
type ListResponse[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}
