// Package repository provides PostgreSQL persistence for skip trace results.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dealflow_backend/platform/apperr"
)

// Repository defines persistence operations for the skiptrace module.
type Repository interface {
	Create(ctx context.Context, r Result) (Result, error)
	LatestByLead(ctx context.Context, leadID uuid.UUID) (Result, error)
	ListByLead(ctx context.Context, leadID uuid.UUID) ([]Result, error)
}

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new skiptrace repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

const resultColumns = `
	id, lead_id, provider, phones, emails, cost_cents, created_at`

func scanResult(row pgx.Row) (Result, error) {
	var r Result
	err := row.Scan(&r.ID, &r.LeadID, &r.Provider, &r.Phones, &r.Emails, &r.CostCents, &r.CreatedAt)
	return r, err
}

// Create inserts a skip trace result.
func (r *Repo) Create(ctx context.Context, result Result) (Result, error) {
	query := `
		INSERT INTO skip_trace_results (id, lead_id, provider, phones, emails, cost_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + resultColumns

	created, err := scanResult(r.pool.QueryRow(ctx, query,
		uuid.New(), result.LeadID, result.Provider, result.Phones, result.Emails, result.CostCents,
	))
	if err != nil {
		return Result{}, fmt.Errorf("create skip trace result: %w", err)
	}
	return created, nil
}

// LatestByLead returns the most recent result for a lead.
func (r *Repo) LatestByLead(ctx context.Context, leadID uuid.UUID) (Result, error) {
	query := `
		SELECT ` + resultColumns + `
		FROM skip_trace_results
		WHERE lead_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	result, err := scanResult(r.pool.QueryRow(ctx, query, leadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Result{}, apperr.NotFound("no skip trace result for lead")
		}
		return Result{}, fmt.Errorf("get latest skip trace result: %w", err)
	}
	return result, nil
}

// ListByLead returns all results for a lead, newest first.
func (r *Repo) ListByLead(ctx context.Context, leadID uuid.UUID) ([]Result, error) {
	query := `
		SELECT ` + resultColumns + `
		FROM skip_trace_results
		WHERE lead_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, leadID)
	if err != nil {
		return nil, fmt.Errorf("list skip trace results: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan skip trace result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}
