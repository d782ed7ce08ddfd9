package repository

import (
	"time"

	"github.com/google/uuid"
)

// Data source types the pipeline knows how to run.
const (
	SourceCountyTax   = "county_tax"
	SourceForeclosure = "foreclosure"
	SourceAttom       = "attom"
)

// ValidSourceType reports whether the given type is a known source type.
func ValidSourceType(t string) bool {
	switch t {
	case SourceCountyTax, SourceForeclosure, SourceAttom:
		return true
	}
	return false
}

// Import run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// DataSource is a configured ingest source.
type DataSource struct {
	ID        uuid.UUID  `json:"id"`
	Key       string     `json:"key"`
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	URL       string     `json:"url,omitempty"`
	County    string     `json:"county"`
	Schedule  string     `json:"schedule,omitempty"`
	Active    bool       `json:"active"`
	LastRunAt *time.Time `json:"lastRunAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// ImportRun is one execution of a data source import.
type ImportRun struct {
	ID             uuid.UUID  `json:"id"`
	SourceKey      string     `json:"sourceKey"`
	Status         string     `json:"status"`
	RecordsFound   int        `json:"recordsFound"`
	RecordsCreated int        `json:"recordsCreated"`
	RecordsUpdated int        `json:"recordsUpdated"`
	RecordsFailed  int        `json:"recordsFailed"`
	LeadsCreated   int        `json:"leadsCreated"`
	Errors         []string   `json:"errors,omitempty"`
	SnapshotObject string     `json:"snapshotObject,omitempty"`
	StartedAt      time.Time  `json:"startedAt"`
	FinishedAt     *time.Time `json:"finishedAt,omitempty"`
}
