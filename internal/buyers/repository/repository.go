// Package repository provides PostgreSQL persistence for the cash buyer list.
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

const buyerNotFoundMessage = "buyer not found"

// Repository defines persistence operations for the buyers module.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Buyer, error)
	List(ctx context.Context, params ListParams) ([]Buyer, int, error)
	ListActive(ctx context.Context) ([]Buyer, error)
	Create(ctx context.Context, b Buyer) (Buyer, error)
	Update(ctx context.Context, id uuid.UUID, b Buyer) (Buyer, error)
	Delete(ctx context.Context, id uuid.UUID) error
	RecordDealClosed(ctx context.Context, id uuid.UUID) error
}

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new buyers repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

const buyerColumns = `
	id, name, company, phone, email, counties, zips, property_types,
	min_price_cents, max_price_cents, min_beds, verified, deals_closed,
	notes, active, last_deal_at, created_at, updated_at`

func scanBuyer(row pgx.Row) (Buyer, error) {
	var b Buyer
	err := row.Scan(
		&b.ID, &b.Name, &b.Company, &b.Phone, &b.Email, &b.Counties, &b.Zips, &b.PropertyTypes,
		&b.MinPriceCents, &b.MaxPriceCents, &b.MinBeds, &b.Verified, &b.DealsClosed,
		&b.Notes, &b.Active, &b.LastDealAt, &b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

// GetByID retrieves a buyer by ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Buyer, error) {
	b, err := scanBuyer(r.pool.QueryRow(ctx, `SELECT `+buyerColumns+` FROM buyers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Buyer{}, apperr.NotFound(buyerNotFoundMessage)
		}
		return Buyer{}, fmt.Errorf("get buyer by id: %w", err)
	}
	return b, nil
}

// List retrieves buyers with filters and pagination.
func (r *Repo) List(ctx context.Context, params ListParams) ([]Buyer, int, error) {
	var countyParam, zipParam, searchParam, activeParam, verifiedParam any
	if params.County != "" {
		countyParam = params.County
	}
	if params.Zip != "" {
		zipParam = params.Zip
	}
	if params.Search != "" {
		searchParam = "%" + params.Search + "%"
	}
	if params.Active != nil {
		activeParam = *params.Active
	}
	if params.Verified != nil {
		verifiedParam = *params.Verified
	}

	filter := `
		WHERE ($1::text IS NULL OR $1 = ANY(counties))
			AND ($2::text IS NULL OR $2 = ANY(zips))
			AND ($3::bool IS NULL OR active = $3)
			AND ($4::bool IS NULL OR verified = $4)
			AND ($5::text IS NULL OR name ILIKE $5 OR company ILIKE $5)`

	args := []any{countyParam, zipParam, activeParam, verifiedParam, searchParam}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM buyers`+filter, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count buyers: %w", err)
	}

	query := `SELECT ` + buyerColumns + ` FROM buyers` + filter + `
		ORDER BY verified DESC, deals_closed DESC, created_at DESC
		LIMIT $6 OFFSET $7`

	rows, err := r.pool.Query(ctx, query, append(args, params.Limit, params.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list buyers: %w", err)
	}
	defer rows.Close()

	buyers, err := collectBuyers(rows)
	if err != nil {
		return nil, 0, err
	}
	return buyers, total, nil
}

// ListActive returns all active buyers. Used by the matcher.
func (r *Repo) ListActive(ctx context.Context) ([]Buyer, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+buyerColumns+` FROM buyers WHERE active ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list active buyers: %w", err)
	}
	defer rows.Close()

	return collectBuyers(rows)
}

// Create inserts a new buyer.
func (r *Repo) Create(ctx context.Context, b Buyer) (Buyer, error) {
	query := `
		INSERT INTO buyers (id, name, company, phone, email, counties, zips, property_types,
			min_price_cents, max_price_cents, min_beds, verified, notes, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + buyerColumns

	created, err := scanBuyer(r.pool.QueryRow(ctx, query,
		uuid.New(), b.Name, b.Company, b.Phone, b.Email, b.Counties, b.Zips, b.PropertyTypes,
		b.MinPriceCents, b.MaxPriceCents, b.MinBeds, b.Verified, b.Notes, b.Active,
	))
	if err != nil {
		return Buyer{}, fmt.Errorf("create buyer: %w", err)
	}
	return created, nil
}

// Update overwrites a buyer's editable fields.
func (r *Repo) Update(ctx context.Context, id uuid.UUID, b Buyer) (Buyer, error) {
	query := `
		UPDATE buyers SET
			name = $2, company = $3, phone = $4, email = $5,
			counties = $6, zips = $7, property_types = $8,
			min_price_cents = $9, max_price_cents = $10, min_beds = $11,
			verified = $12, notes = $13, active = $14, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + buyerColumns

	updated, err := scanBuyer(r.pool.QueryRow(ctx, query,
		id, b.Name, b.Company, b.Phone, b.Email,
		b.Counties, b.Zips, b.PropertyTypes,
		b.MinPriceCents, b.MaxPriceCents, b.MinBeds,
		b.Verified, b.Notes, b.Active,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Buyer{}, apperr.NotFound(buyerNotFoundMessage)
		}
		return Buyer{}, fmt.Errorf("update buyer: %w", err)
	}
	return updated, nil
}

// Delete removes a buyer.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM buyers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete buyer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(buyerNotFoundMessage)
	}
	return nil
}

// RecordDealClosed bumps the buyer's closed-deal counter.
func (r *Repo) RecordDealClosed(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE buyers SET deals_closed = deals_closed + 1, last_deal_at = NOW(), updated_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("record deal closed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(buyerNotFoundMessage)
	}
	return nil
}

func collectBuyers(rows pgx.Rows) ([]Buyer, error) {
	var items []Buyer
	for rows.Next() {
		b, err := scanBuyer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan buyer: %w", err)
		}
		items = append(items, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buyers: %w", err)
	}
	return items, nil
}
