// Package repository provides PostgreSQL persistence for properties and
// their distress indicators.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dealflow_backend/platform/apperr"
)

const propertyNotFoundMessage = "property not found"

// Repository defines persistence operations for the properties module.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Property, error)
	GetByCountyAPN(ctx context.Context, county, apn string) (Property, error)
	List(ctx context.Context, params ListParams) ([]Property, int, error)
	Create(ctx context.Context, input UpsertInput) (Property, error)
	Update(ctx context.Context, id uuid.UUID, input UpsertInput) (Property, error)
	Upsert(ctx context.Context, input UpsertInput) (Property, bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetEquityPercent(ctx context.Context, id uuid.UUID, equity float64, absentee bool) error

	ListUnenriched(ctx context.Context, limit int) ([]Property, error)

	AddIndicator(ctx context.Context, ind DistressIndicator) (DistressIndicator, error)
	ListIndicators(ctx context.Context, propertyID uuid.UUID) ([]DistressIndicator, error)
	RemoveIndicator(ctx context.Context, propertyID, indicatorID uuid.UUID) error
}

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new properties repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

const propertyColumns = `
	id, address_line, city, state, zip, county, apn, property_type,
	beds, baths, sqft, lot_sqft, year_built,
	assessed_value_cents, estimated_value_cents, mortgage_balance_cents, equity_percent,
	last_sale_date, last_sale_price_cents,
	owner_name, owner_mailing_address, owner_occupied, absentee,
	source, attom_id, created_at, updated_at`

func scanProperty(row pgx.Row) (Property, error) {
	var p Property
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&p.ID, &p.AddressLine, &p.City, &p.State, &p.Zip, &p.County, &p.APN, &p.PropertyType,
		&p.Beds, &p.Baths, &p.Sqft, &p.LotSqft, &p.YearBuilt,
		&p.AssessedValueCents, &p.EstimatedValueCents, &p.MortgageBalanceCents, &p.EquityPercent,
		&p.LastSaleDate, &p.LastSalePriceCents,
		&p.OwnerName, &p.OwnerMailingAddress, &p.OwnerOccupied, &p.Absentee,
		&p.Source, &p.AttomID, &createdAt, &updatedAt,
	)
	if err != nil {
		return Property{}, err
	}

	p.CreatedAt = createdAt.Format(time.RFC3339)
	p.UpdatedAt = updatedAt.Format(time.RFC3339)
	return p, nil
}

// GetByID retrieves a property by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1`

	p, err := scanProperty(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Property{}, apperr.NotFound(propertyNotFoundMessage)
		}
		return Property{}, fmt.Errorf("get property by id: %w", err)
	}
	return p, nil
}

// GetByCountyAPN retrieves a property by its (county, apn) key.
func (r *Repo) GetByCountyAPN(ctx context.Context, county, apn string) (Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE county = $1 AND apn = $2`

	p, err := scanProperty(r.pool.QueryRow(ctx, query, county, apn))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Property{}, apperr.NotFound(propertyNotFoundMessage)
		}
		return Property{}, fmt.Errorf("get property by county/apn: %w", err)
	}
	return p, nil
}

// ListUnenriched returns properties that have not been enriched with external
// data yet, oldest first.
func (r *Repo) ListUnenriched(ctx context.Context, limit int) ([]Property, error) {
	query := `
		SELECT ` + propertyColumns + `
		FROM properties
		WHERE attom_id = ''
		ORDER BY created_at
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list unenriched properties: %w", err)
	}
	defer rows.Close()

	var properties []Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		properties = append(properties, p)
	}
	return properties, rows.Err()
}

// List retrieves properties with filters, pagination, and sorting.
func (r *Repo) List(ctx context.Context, params ListParams) ([]Property, int, error) {
	sortBy := "createdAt"
	if params.SortBy != "" {
		switch params.SortBy {
		case "createdAt", "estimatedValue", "equityPercent", "city", "county":
			sortBy = params.SortBy
		default:
			return nil, 0, apperr.BadRequest("invalid sort field")
		}
	}

	sortOrder := "desc"
	if params.SortOrder != "" {
		switch params.SortOrder {
		case "asc", "desc":
			sortOrder = params.SortOrder
		default:
			return nil, 0, apperr.BadRequest("invalid sort order")
		}
	}

	var searchParam any
	if params.Search != "" {
		searchParam = "%" + params.Search + "%"
	}
	var countyParam any
	if params.County != "" {
		countyParam = params.County
	}
	var zipParam any
	if params.Zip != "" {
		zipParam = params.Zip
	}
	var stateParam any
	if params.State != "" {
		stateParam = params.State
	}
	var distressParam any
	if params.DistressType != "" {
		if !ValidDistressType(params.DistressType) {
			return nil, 0, apperr.BadRequest("invalid distress type")
		}
		distressParam = params.DistressType
	}
	var absenteeParam any
	if params.Absentee != nil {
		absenteeParam = *params.Absentee
	}
	var minEquity, maxEquity any
	if params.MinEquityPercent != nil {
		minEquity = *params.MinEquityPercent
	}
	if params.MaxEquityPercent != nil {
		maxEquity = *params.MaxEquityPercent
	}
	var minValue, maxValue any
	if params.MinValueCents != nil {
		minValue = *params.MinValueCents
	}
	if params.MaxValueCents != nil {
		maxValue = *params.MaxValueCents
	}

	filter := `
		WHERE ($1::text IS NULL OR county = $1)
			AND ($2::text IS NULL OR zip = $2)
			AND ($3::text IS NULL OR state = $3)
			AND ($4::boolean IS NULL OR absentee = $4)
			AND ($5::numeric IS NULL OR equity_percent >= $5)
			AND ($6::numeric IS NULL OR equity_percent <= $6)
			AND ($7::bigint IS NULL OR estimated_value_cents >= $7)
			AND ($8::bigint IS NULL OR estimated_value_cents <= $8)
			AND ($9::text IS NULL OR address_line ILIKE $9 OR owner_name ILIKE $9 OR apn ILIKE $9)
			AND ($10::text IS NULL OR EXISTS (
				SELECT 1 FROM distress_indicators di
				WHERE di.property_id = properties.id AND di.type = $10))`

	args := []any{
		countyParam, zipParam, stateParam, absenteeParam,
		minEquity, maxEquity, minValue, maxValue,
		searchParam, distressParam,
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM properties` + filter
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count properties: %w", err)
	}

	query := `SELECT ` + propertyColumns + ` FROM properties` + filter + `
		ORDER BY
			CASE WHEN $11 = 'createdAt' AND $12 = 'asc' THEN created_at END ASC,
			CASE WHEN $11 = 'createdAt' AND $12 = 'desc' THEN created_at END DESC,
			CASE WHEN $11 = 'estimatedValue' AND $12 = 'asc' THEN estimated_value_cents END ASC,
			CASE WHEN $11 = 'estimatedValue' AND $12 = 'desc' THEN estimated_value_cents END DESC,
			CASE WHEN $11 = 'equityPercent' AND $12 = 'asc' THEN equity_percent END ASC,
			CASE WHEN $11 = 'equityPercent' AND $12 = 'desc' THEN equity_percent END DESC,
			CASE WHEN $11 = 'city' AND $12 = 'asc' THEN city END ASC,
			CASE WHEN $11 = 'city' AND $12 = 'desc' THEN city END DESC,
			CASE WHEN $11 = 'county' AND $12 = 'asc' THEN county END ASC,
			CASE WHEN $11 = 'county' AND $12 = 'desc' THEN county END DESC,
			created_at DESC
		LIMIT $13 OFFSET $14`

	args = append(args, sortBy, sortOrder, params.Limit, params.Offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	var items []Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan property: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate properties: %w", err)
	}

	return items, total, nil
}

// Create inserts a new property.
func (r *Repo) Create(ctx context.Context, input UpsertInput) (Property, error) {
	query := `
		INSERT INTO properties (
			id, address_line, city, state, zip, county, apn, property_type,
			beds, baths, sqft, lot_sqft, year_built,
			assessed_value_cents, estimated_value_cents, mortgage_balance_cents,
			last_sale_date, last_sale_price_cents,
			owner_name, owner_mailing_address, owner_occupied,
			source, attom_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13,
			$14, $15, $16,
			$17, $18,
			$19, $20, $21,
			$22, $23
		)
		RETURNING ` + propertyColumns

	p, err := scanProperty(r.pool.QueryRow(ctx, query,
		uuid.New(), input.AddressLine, input.City, input.State, input.Zip,
		input.County, input.APN, input.PropertyType,
		input.Beds, input.Baths, input.Sqft, input.LotSqft, input.YearBuilt,
		input.AssessedValueCents, input.EstimatedValueCents, input.MortgageBalanceCents,
		input.LastSaleDate, input.LastSalePriceCents,
		input.OwnerName, input.OwnerMailingAddress, input.OwnerOccupied,
		input.Source, input.AttomID,
	))
	if err != nil {
		return Property{}, fmt.Errorf("create property: %w", err)
	}
	return p, nil
}

// Update overwrites a property's mutable fields.
func (r *Repo) Update(ctx context.Context, id uuid.UUID, input UpsertInput) (Property, error) {
	query := `
		UPDATE properties SET
			address_line = $2, city = $3, state = $4, zip = $5,
			county = $6, apn = $7, property_type = $8,
			beds = $9, baths = $10, sqft = $11, lot_sqft = $12, year_built = $13,
			assessed_value_cents = $14, estimated_value_cents = $15, mortgage_balance_cents = $16,
			last_sale_date = $17, last_sale_price_cents = $18,
			owner_name = $19, owner_mailing_address = $20, owner_occupied = $21,
			source = $22, attom_id = NULLIF($23, ''),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + propertyColumns

	p, err := scanProperty(r.pool.QueryRow(ctx, query,
		id, input.AddressLine, input.City, input.State, input.Zip,
		input.County, input.APN, input.PropertyType,
		input.Beds, input.Baths, input.Sqft, input.LotSqft, input.YearBuilt,
		input.AssessedValueCents, input.EstimatedValueCents, input.MortgageBalanceCents,
		input.LastSaleDate, input.LastSalePriceCents,
		input.OwnerName, input.OwnerMailingAddress, input.OwnerOccupied,
		input.Source, input.AttomID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Property{}, apperr.NotFound(propertyNotFoundMessage)
		}
		return Property{}, fmt.Errorf("update property: %w", err)
	}
	return p, nil
}

// Upsert inserts a property keyed by (county, apn) or merges into the existing
// row. Existing non-empty values win over blank incoming ones so enrichment
// never erases data. Returns the stored property and whether it was created.
func (r *Repo) Upsert(ctx context.Context, input UpsertInput) (Property, bool, error) {
	query := `
		INSERT INTO properties (
			id, address_line, city, state, zip, county, apn, property_type,
			beds, baths, sqft, lot_sqft, year_built,
			assessed_value_cents, estimated_value_cents, mortgage_balance_cents,
			last_sale_date, last_sale_price_cents,
			owner_name, owner_mailing_address, owner_occupied,
			source, attom_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13,
			$14, $15, $16,
			$17, $18,
			$19, $20, $21,
			$22, $23
		)
		ON CONFLICT (county, apn) DO UPDATE SET
			address_line = COALESCE(NULLIF(EXCLUDED.address_line, ''), properties.address_line),
			city = COALESCE(NULLIF(EXCLUDED.city, ''), properties.city),
			state = COALESCE(NULLIF(EXCLUDED.state, ''), properties.state),
			zip = COALESCE(NULLIF(EXCLUDED.zip, ''), properties.zip),
			property_type = COALESCE(NULLIF(EXCLUDED.property_type, ''), properties.property_type),
			beds = GREATEST(EXCLUDED.beds, properties.beds),
			baths = GREATEST(EXCLUDED.baths, properties.baths),
			sqft = GREATEST(EXCLUDED.sqft, properties.sqft),
			lot_sqft = GREATEST(EXCLUDED.lot_sqft, properties.lot_sqft),
			year_built = GREATEST(EXCLUDED.year_built, properties.year_built),
			assessed_value_cents = GREATEST(EXCLUDED.assessed_value_cents, properties.assessed_value_cents),
			estimated_value_cents = GREATEST(EXCLUDED.estimated_value_cents, properties.estimated_value_cents),
			mortgage_balance_cents = GREATEST(EXCLUDED.mortgage_balance_cents, properties.mortgage_balance_cents),
			last_sale_date = COALESCE(EXCLUDED.last_sale_date, properties.last_sale_date),
			last_sale_price_cents = GREATEST(EXCLUDED.last_sale_price_cents, properties.last_sale_price_cents),
			owner_name = COALESCE(NULLIF(EXCLUDED.owner_name, ''), properties.owner_name),
			owner_mailing_address = COALESCE(NULLIF(EXCLUDED.owner_mailing_address, ''), properties.owner_mailing_address),
			owner_occupied = EXCLUDED.owner_occupied,
			attom_id = COALESCE(NULLIF(EXCLUDED.attom_id, ''), properties.attom_id),
			updated_at = NOW()
		RETURNING ` + propertyColumns + `, (xmax = 0) AS inserted`

	var p Property
	var createdAt, updatedAt time.Time
	var inserted bool

	err := r.pool.QueryRow(ctx, query,
		uuid.New(), input.AddressLine, input.City, input.State, input.Zip,
		input.County, input.APN, input.PropertyType,
		input.Beds, input.Baths, input.Sqft, input.LotSqft, input.YearBuilt,
		input.AssessedValueCents, input.EstimatedValueCents, input.MortgageBalanceCents,
		input.LastSaleDate, input.LastSalePriceCents,
		input.OwnerName, input.OwnerMailingAddress, input.OwnerOccupied,
		input.Source, input.AttomID,
	).Scan(
		&p.ID, &p.AddressLine, &p.City, &p.State, &p.Zip, &p.County, &p.APN, &p.PropertyType,
		&p.Beds, &p.Baths, &p.Sqft, &p.LotSqft, &p.YearBuilt,
		&p.AssessedValueCents, &p.EstimatedValueCents, &p.MortgageBalanceCents, &p.EquityPercent,
		&p.LastSaleDate, &p.LastSalePriceCents,
		&p.OwnerName, &p.OwnerMailingAddress, &p.OwnerOccupied, &p.Absentee,
		&p.Source, &p.AttomID, &createdAt, &updatedAt,
		&inserted,
	)
	if err != nil {
		return Property{}, false, fmt.Errorf("upsert property: %w", err)
	}

	p.CreatedAt = createdAt.Format(time.RFC3339)
	p.UpdatedAt = updatedAt.Format(time.RFC3339)
	return p, inserted, nil
}

// Delete removes a property and its indicators (cascade).
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete property: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(propertyNotFoundMessage)
	}
	return nil
}

// SetEquityPercent stores the computed equity percentage and absentee flag.
func (r *Repo) SetEquityPercent(ctx context.Context, id uuid.UUID, equity float64, absentee bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE properties SET equity_percent = $2, absentee = $3, updated_at = NOW() WHERE id = $1`,
		id, equity, absentee,
	)
	if err != nil {
		return fmt.Errorf("set equity percent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(propertyNotFoundMessage)
	}
	return nil
}

// AddIndicator records a distress indicator against a property.
func (r *Repo) AddIndicator(ctx context.Context, ind DistressIndicator) (DistressIndicator, error) {
	query := `
		INSERT INTO distress_indicators (id, property_id, type, severity, recorded_at, auction_date, source, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (property_id, type, source) DO UPDATE SET
			severity = EXCLUDED.severity,
			recorded_at = EXCLUDED.recorded_at,
			auction_date = EXCLUDED.auction_date,
			details = EXCLUDED.details
		RETURNING id, property_id, type, severity, recorded_at, auction_date, source, details, created_at`

	var out DistressIndicator
	var createdAt time.Time
	err := r.pool.QueryRow(ctx, query,
		uuid.New(), ind.PropertyID, ind.Type, ind.Severity, ind.RecordedAt, ind.AuctionDate, ind.Source, ind.Details,
	).Scan(
		&out.ID, &out.PropertyID, &out.Type, &out.Severity, &out.RecordedAt,
		&out.AuctionDate, &out.Source, &out.Details, &createdAt,
	)
	if err != nil {
		return DistressIndicator{}, fmt.Errorf("add distress indicator: %w", err)
	}

	out.CreatedAt = createdAt.Format(time.RFC3339)
	return out, nil
}

// ListIndicators returns all distress indicators for a property, newest first.
func (r *Repo) ListIndicators(ctx context.Context, propertyID uuid.UUID) ([]DistressIndicator, error) {
	query := `
		SELECT id, property_id, type, severity, recorded_at, auction_date, source, details, created_at
		FROM distress_indicators
		WHERE property_id = $1
		ORDER BY recorded_at DESC`

	rows, err := r.pool.Query(ctx, query, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list distress indicators: %w", err)
	}
	defer rows.Close()

	var items []DistressIndicator
	for rows.Next() {
		var ind DistressIndicator
		var createdAt time.Time
		if err := rows.Scan(
			&ind.ID, &ind.PropertyID, &ind.Type, &ind.Severity, &ind.RecordedAt,
			&ind.AuctionDate, &ind.Source, &ind.Details, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan distress indicator: %w", err)
		}
		ind.CreatedAt = createdAt.Format(time.RFC3339)
		items = append(items, ind)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distress indicators: %w", err)
	}

	return items, nil
}

// RemoveIndicator deletes a distress indicator from a property.
func (r *Repo) RemoveIndicator(ctx context.Context, propertyID, indicatorID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM distress_indicators WHERE id = $1 AND property_id = $2`,
		indicatorID, propertyID,
	)
	if err != nil {
		return fmt.Errorf("remove distress indicator: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("distress indicator not found")
	}
	return nil
}
