// Package repository provides PostgreSQL persistence for ingest sources and
// import runs.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"dealflow_backend/platform/apperr"
)

// Repository defines persistence operations for the ingest module.
type Repository interface {
	CreateSource(ctx context.Context, s DataSource) (DataSource, error)
	GetSource(ctx context.Context, id uuid.UUID) (DataSource, error)
	GetSourceByKey(ctx context.Context, key string) (DataSource, error)
	ListSources(ctx context.Context, activeOnly bool) ([]DataSource, error)
	UpdateSource(ctx context.Context, id uuid.UUID, s DataSource) (DataSource, error)
	DeleteSource(ctx context.Context, id uuid.UUID) error
	TouchLastRun(ctx context.Context, key string) error

	CreateRun(ctx context.Context, sourceKey string) (ImportRun, error)
	FinishRun(ctx context.Context, run ImportRun) (ImportRun, error)
	GetRun(ctx context.Context, id uuid.UUID) (ImportRun, error)
	ListRuns(ctx context.Context, sourceKey string, limit, offset int) ([]ImportRun, int, error)
}

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new ingest repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

const sourceColumns = `
	id, key, name, type, url, county, schedule, active, last_run_at, created_at, updated_at`

func scanSource(row pgx.Row) (DataSource, error) {
	var s DataSource
	err := row.Scan(&s.ID, &s.Key, &s.Name, &s.Type, &s.URL, &s.County, &s.Schedule,
		&s.Active, &s.LastRunAt, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// CreateSource inserts a data source.
func (r *Repo) CreateSource(ctx context.Context, s DataSource) (DataSource, error) {
	query := `
		INSERT INTO data_sources (id, key, name, type, url, county, schedule, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + sourceColumns

	created, err := scanSource(r.pool.QueryRow(ctx, query,
		uuid.New(), s.Key, s.Name, s.Type, s.URL, s.County, s.Schedule, s.Active,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return DataSource{}, apperr.Conflict("a source with this key already exists")
		}
		return DataSource{}, fmt.Errorf("create data source: %w", err)
	}
	return created, nil
}

// GetSource returns a data source by ID.
func (r *Repo) GetSource(ctx context.Context, id uuid.UUID) (DataSource, error) {
	query := `SELECT ` + sourceColumns + ` FROM data_sources WHERE id = $1`

	source, err := scanSource(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DataSource{}, apperr.NotFound("data source not found")
		}
		return DataSource{}, fmt.Errorf("get data source: %w", err)
	}
	return source, nil
}

// GetSourceByKey returns a data source by its unique key.
func (r *Repo) GetSourceByKey(ctx context.Context, key string) (DataSource, error) {
	query := `SELECT ` + sourceColumns + ` FROM data_sources WHERE key = $1`

	source, err := scanSource(r.pool.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DataSource{}, apperr.NotFound("data source not found")
		}
		return DataSource{}, fmt.Errorf("get data source by key: %w", err)
	}
	return source, nil
}

// ListSources returns data sources, optionally only active ones.
func (r *Repo) ListSources(ctx context.Context, activeOnly bool) ([]DataSource, error) {
	query := `
		SELECT ` + sourceColumns + `
		FROM data_sources
		WHERE NOT $1 OR active
		ORDER BY key`

	rows, err := r.pool.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list data sources: %w", err)
	}
	defer rows.Close()

	var sources []DataSource
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan data source: %w", err)
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

// UpdateSource overwrites a data source's mutable fields.
func (r *Repo) UpdateSource(ctx context.Context, id uuid.UUID, s DataSource) (DataSource, error) {
	query := `
		UPDATE data_sources
		SET name = $2, type = $3, url = $4, county = $5, schedule = $6, active = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + sourceColumns

	updated, err := scanSource(r.pool.QueryRow(ctx, query,
		id, s.Name, s.Type, s.URL, s.County, s.Schedule, s.Active,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DataSource{}, apperr.NotFound("data source not found")
		}
		return DataSource{}, fmt.Errorf("update data source: %w", err)
	}
	return updated, nil
}

// DeleteSource removes a data source.
func (r *Repo) DeleteSource(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM data_sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete data source: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("data source not found")
	}
	return nil
}

// TouchLastRun stamps a source's last run time.
func (r *Repo) TouchLastRun(ctx context.Context, key string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE data_sources SET last_run_at = NOW(), updated_at = NOW() WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("touch data source last run: %w", err)
	}
	return nil
}

const runColumns = `
	id, source_key, status, records_found, records_created, records_updated,
	records_failed, leads_created, errors, snapshot_object, started_at, finished_at`

func scanRun(row pgx.Row) (ImportRun, error) {
	var run ImportRun
	err := row.Scan(&run.ID, &run.SourceKey, &run.Status,
		&run.RecordsFound, &run.RecordsCreated, &run.RecordsUpdated,
		&run.RecordsFailed, &run.LeadsCreated, &run.Errors, &run.SnapshotObject,
		&run.StartedAt, &run.FinishedAt)
	return run, err
}

// CreateRun inserts a running import run.
func (r *Repo) CreateRun(ctx context.Context, sourceKey string) (ImportRun, error) {
	query := `
		INSERT INTO import_runs (id, source_key, status)
		VALUES ($1, $2, $3)
		RETURNING ` + runColumns

	run, err := scanRun(r.pool.QueryRow(ctx, query, uuid.New(), sourceKey, RunRunning))
	if err != nil {
		return ImportRun{}, fmt.Errorf("create import run: %w", err)
	}
	return run, nil
}

// FinishRun records a run's final status and counters.
func (r *Repo) FinishRun(ctx context.Context, run ImportRun) (ImportRun, error) {
	query := `
		UPDATE import_runs
		SET status = $2, records_found = $3, records_created = $4, records_updated = $5,
		    records_failed = $6, leads_created = $7, errors = $8, snapshot_object = $9,
		    finished_at = NOW()
		WHERE id = $1
		RETURNING ` + runColumns

	finished, err := scanRun(r.pool.QueryRow(ctx, query,
		run.ID, run.Status, run.RecordsFound, run.RecordsCreated, run.RecordsUpdated,
		run.RecordsFailed, run.LeadsCreated, run.Errors, run.SnapshotObject,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ImportRun{}, apperr.NotFound("import run not found")
		}
		return ImportRun{}, fmt.Errorf("finish import run: %w", err)
	}
	return finished, nil
}

// GetRun returns an import run by ID.
func (r *Repo) GetRun(ctx context.Context, id uuid.UUID) (ImportRun, error) {
	query := `SELECT ` + runColumns + ` FROM import_runs WHERE id = $1`

	run, err := scanRun(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ImportRun{}, apperr.NotFound("import run not found")
		}
		return ImportRun{}, fmt.Errorf("get import run: %w", err)
	}
	return run, nil
}

// ListRuns returns import runs, newest first, optionally for one source.
func (r *Repo) ListRuns(ctx context.Context, sourceKey string, limit, offset int) ([]ImportRun, int, error) {
	query := `
		SELECT ` + runColumns + `, COUNT(*) OVER() AS total
		FROM import_runs
		WHERE $1 = '' OR source_key = $1
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, sourceKey, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list import runs: %w", err)
	}
	defer rows.Close()

	var runs []ImportRun
	var total int
	for rows.Next() {
		var run ImportRun
		if err := rows.Scan(&run.ID, &run.SourceKey, &run.Status,
			&run.RecordsFound, &run.RecordsCreated, &run.RecordsUpdated,
			&run.RecordsFailed, &run.LeadsCreated, &run.Errors, &run.SnapshotObject,
			&run.StartedAt, &run.FinishedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan import run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, total, rows.Err()
}
