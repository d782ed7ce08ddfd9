// Package transport defines request and response shapes for the ingest module.
package transport

// CreateSourceRequest is the payload for registering a data source.
type CreateSourceRequest struct {
	Key      string `json:"key" validate:"required,max=60"`
	Name     string `json:"name" validate:"required,max=120"`
	Type     string `json:"type" validate:"required,oneof=county_tax foreclosure attom"`
	URL      string `json:"url" validate:"omitempty,url,max=500"`
	County   string `json:"county" validate:"required,max=60"`
	Schedule string `json:"schedule" validate:"omitempty,max=60"`
	Active   *bool  `json:"active"`
}

// UpdateSourceRequest is the payload for updating a data source. The key is
// immutable.
type UpdateSourceRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Type     string `json:"type" validate:"required,oneof=county_tax foreclosure attom"`
	URL      string `json:"url" validate:"omitempty,url,max=500"`
	County   string `json:"county" validate:"required,max=60"`
	Schedule string `json:"schedule" validate:"omitempty,max=60"`
	Active   *bool  `json:"active"`
}

// ListResponse wraps a paginated collection.
type ListResponse[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}
