// Package repository provides PostgreSQL persistence for leads and their
// activity timeline.
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

const leadNotFoundMessage = "lead not found"

// Repository defines persistence operations for the leads module.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	GetOpenByPropertyID(ctx context.Context, propertyID uuid.UUID) (Lead, error)
	FindByPhone(ctx context.Context, phone string) (Lead, error)
	List(ctx context.Context, params ListParams) ([]Lead, int, error)
	ListIDs(ctx context.Context, statuses []string) ([]uuid.UUID, error)
	Board(ctx context.Context, perColumn int) ([]BoardColumn, error)
	FollowUpsDue(ctx context.Context, by time.Time, limit int) ([]Lead, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
	Create(ctx context.Context, lead Lead) (Lead, error)
	UpdateContact(ctx context.Context, id uuid.UUID, ownerName string, phones, emails []string) (Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Assign(ctx context.Context, id uuid.UUID, agentID *uuid.UUID) error
	SetOptOut(ctx context.Context, id uuid.UUID, optedOut bool) error
	SetFollowUp(ctx context.Context, id uuid.UUID, at *time.Time) error
	TouchLastContacted(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateScore(ctx context.Context, id uuid.UUID, update ScoreUpdate) error
	MergeContactInfo(ctx context.Context, id uuid.UUID, phones, emails []string) (Lead, error)

	AddActivity(ctx context.Context, a Activity) (Activity, error)
	ListActivities(ctx context.Context, leadID uuid.UUID, limit, offset int) ([]Activity, int, error)
	GetResponseStats(ctx context.Context, leadID uuid.UUID) (ResponseStats, error)
}

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new leads repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

const leadColumns = `
	id, property_id, owner_name, phones, emails, status,
	score, classification, dominant_distress, score_factors, score_version, scored_at,
	assigned_agent_id, opted_out, source,
	last_contacted_at, next_follow_up_at, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.PropertyID, &l.OwnerName, &l.Phones, &l.Emails, &l.Status,
		&l.Score, &l.Classification, &l.DominantDistress, &l.ScoreFactors, &l.ScoreVersion, &l.ScoredAt,
		&l.AssignedAgentID, &l.OptedOut, &l.Source,
		&l.LastContactedAt, &l.NextFollowUpAt, &l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

// GetByID retrieves a lead by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	l, err := scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("get lead by id: %w", err)
	}
	return l, nil
}

// GetOpenByPropertyID returns the open (non-terminal) lead for a property.
func (r *Repo) GetOpenByPropertyID(ctx context.Context, propertyID uuid.UUID) (Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads
		WHERE property_id = $1 AND status NOT IN ('closed', 'dead')`

	l, err := scanLead(r.pool.QueryRow(ctx, query, propertyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("get open lead by property: %w", err)
	}
	return l, nil
}

// FindByPhone locates a lead whose phone list contains the given E.164 number.
// Used by the inbound SMS webhook.
func (r *Repo) FindByPhone(ctx context.Context, phone string) (Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads
		WHERE $1 = ANY(phones)
		ORDER BY created_at DESC
		LIMIT 1`

	l, err := scanLead(r.pool.QueryRow(ctx, query, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("find lead by phone: %w", err)
	}
	return l, nil
}

// List retrieves leads with filters, pagination, and sorting.
func (r *Repo) List(ctx context.Context, params ListParams) ([]Lead, int, error) {
	sortBy := "score"
	if params.SortBy != "" {
		switch params.SortBy {
		case "score", "createdAt", "lastContactedAt", "nextFollowUpAt":
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

	var statusParam, classParam, sourceParam, searchParam any
	if params.Status != "" {
		if !ValidStatus(params.Status) {
			return nil, 0, apperr.BadRequest("invalid status filter")
		}
		statusParam = params.Status
	}
	if params.Classification != "" {
		classParam = params.Classification
	}
	if params.Source != "" {
		sourceParam = params.Source
	}
	if params.Search != "" {
		searchParam = "%" + params.Search + "%"
	}
	var agentParam any
	if params.AssignedAgentID != nil {
		agentParam = *params.AssignedAgentID
	}
	var minScore, maxScore any
	if params.MinScore != nil {
		minScore = *params.MinScore
	}
	if params.MaxScore != nil {
		maxScore = *params.MaxScore
	}

	filter := `
		WHERE ($1::text IS NULL OR status = $1)
			AND ($2::text IS NULL OR classification = $2)
			AND ($3::uuid IS NULL OR assigned_agent_id = $3)
			AND ($4::int IS NULL OR score >= $4)
			AND ($5::int IS NULL OR score <= $5)
			AND ($6::text IS NULL OR source = $6)
			AND ($7::text IS NULL OR owner_name ILIKE $7)`

	args := []any{statusParam, classParam, agentParam, minScore, maxScore, sourceParam, searchParam}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads`+filter, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	query := `SELECT ` + leadColumns + ` FROM leads` + filter + `
		ORDER BY
			CASE WHEN $8 = 'score' AND $9 = 'asc' THEN score END ASC,
			CASE WHEN $8 = 'score' AND $9 = 'desc' THEN score END DESC,
			CASE WHEN $8 = 'createdAt' AND $9 = 'asc' THEN created_at END ASC,
			CASE WHEN $8 = 'createdAt' AND $9 = 'desc' THEN created_at END DESC,
			CASE WHEN $8 = 'lastContactedAt' AND $9 = 'asc' THEN last_contacted_at END ASC,
			CASE WHEN $8 = 'lastContactedAt' AND $9 = 'desc' THEN last_contacted_at END DESC,
			CASE WHEN $8 = 'nextFollowUpAt' AND $9 = 'asc' THEN next_follow_up_at END ASC,
			CASE WHEN $8 = 'nextFollowUpAt' AND $9 = 'desc' THEN next_follow_up_at END DESC,
			score DESC
		LIMIT $10 OFFSET $11`

	args = append(args, sortBy, sortOrder, params.Limit, params.Offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads, err := collectLeads(rows)
	if err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

// ListIDs returns the IDs of all leads in the given statuses.
// Used by the nightly rescore sweep.
func (r *Repo) ListIDs(ctx context.Context, statuses []string) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM leads WHERE status = ANY($1) ORDER BY created_at`, statuses)
	if err != nil {
		return nil, fmt.Errorf("list lead ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan lead id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Board returns the Kanban view: per-status counts plus the top leads of
// each column ordered by score.
func (r *Repo) Board(ctx context.Context, perColumn int) ([]BoardColumn, error) {
	query := `SELECT ` + leadColumns + ` FROM (
			SELECT *, ROW_NUMBER() OVER (PARTITION BY status ORDER BY score DESC, created_at DESC) AS rn
			FROM leads
		) ranked
		WHERE rn <= $1`

	rows, err := r.pool.Query(ctx, query, perColumn)
	if err != nil {
		return nil, fmt.Errorf("board leads: %w", err)
	}
	defer rows.Close()

	byStatus := map[string][]Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan board lead: %w", err)
		}
		byStatus[l.Status] = append(byStatus[l.Status], l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate board leads: %w", err)
	}

	countRows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM leads GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("board counts: %w", err)
	}
	defer countRows.Close()

	counts := map[string]int{}
	for countRows.Next() {
		var status string
		var count int
		if err := countRows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan board count: %w", err)
		}
		counts[status] = count
	}
	if err := countRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate board counts: %w", err)
	}

	columns := make([]BoardColumn, 0, len(PipelineOrder))
	for _, status := range PipelineOrder {
		leads := byStatus[status]
		if leads == nil {
			leads = []Lead{}
		}
		columns = append(columns, BoardColumn{Status: status, Count: counts[status], Leads: leads})
	}
	return columns, nil
}

// FollowUpsDue returns open leads whose follow-up time has passed.
func (r *Repo) FollowUpsDue(ctx context.Context, by time.Time, limit int) ([]Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads
		WHERE next_follow_up_at IS NOT NULL
			AND next_follow_up_at <= $1
			AND status NOT IN ('closed', 'dead')
		ORDER BY next_follow_up_at ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, by, limit)
	if err != nil {
		return nil, fmt.Errorf("follow-ups due: %w", err)
	}
	defer rows.Close()

	return collectLeads(rows)
}

// CountCreatedSince returns the number of leads created at or after the
// given time. Used by the daily digest.
func (r *Repo) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM leads WHERE created_at >= $1`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count leads created since: %w", err)
	}
	return count, nil
}

// Create inserts a new lead. The partial unique index on open leads per
// property surfaces as a conflict here.
func (r *Repo) Create(ctx context.Context, lead Lead) (Lead, error) {
	query := `
		INSERT INTO leads (id, property_id, owner_name, phones, emails, status,
			score, classification, dominant_distress, score_factors, score_version, scored_at,
			assigned_agent_id, source, next_follow_up_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING ` + leadColumns

	created, err := scanLead(r.pool.QueryRow(ctx, query,
		uuid.New(), lead.PropertyID, lead.OwnerName, lead.Phones, lead.Emails, lead.Status,
		lead.Score, lead.Classification, lead.DominantDistress, lead.ScoreFactors, lead.ScoreVersion, lead.ScoredAt,
		lead.AssignedAgentID, lead.Source, lead.NextFollowUpAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return Lead{}, apperr.Conflict("property already has an open lead")
		}
		return Lead{}, fmt.Errorf("create lead: %w", err)
	}
	return created, nil
}

// UpdateContact overwrites the lead's owner contact fields.
func (r *Repo) UpdateContact(ctx context.Context, id uuid.UUID, ownerName string, phones, emails []string) (Lead, error) {
	query := `UPDATE leads SET owner_name = $2, phones = $3, emails = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + leadColumns

	l, err := scanLead(r.pool.QueryRow(ctx, query, id, ownerName, phones, emails))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("update lead contact: %w", err)
	}
	return l, nil
}

// UpdateStatus sets the pipeline status.
func (r *Repo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE leads SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMessage)
	}
	return nil
}

// Assign sets or clears the assigned agent.
func (r *Repo) Assign(ctx context.Context, id uuid.UUID, agentID *uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE leads SET assigned_agent_id = $2, updated_at = NOW() WHERE id = $1`, id, agentID)
	if err != nil {
		return fmt.Errorf("assign lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMessage)
	}
	return nil
}

// SetOptOut records the SMS opt-out flag.
func (r *Repo) SetOptOut(ctx context.Context, id uuid.UUID, optedOut bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE leads SET opted_out = $2, updated_at = NOW() WHERE id = $1`, id, optedOut)
	if err != nil {
		return fmt.Errorf("set lead opt-out: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMessage)
	}
	return nil
}

// SetFollowUp sets or clears the follow-up reminder time.
func (r *Repo) SetFollowUp(ctx context.Context, id uuid.UUID, at *time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE leads SET next_follow_up_at = $2, updated_at = NOW() WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("set lead follow-up: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMessage)
	}
	return nil
}

// TouchLastContacted records the time of the latest outreach touch.
func (r *Repo) TouchLastContacted(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE leads SET last_contacted_at = $2, updated_at = NOW() WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("touch last contacted: %w", err)
	}
	return nil
}

// UpdateScore persists a rescore result.
func (r *Repo) UpdateScore(ctx context.Context, id uuid.UUID, update ScoreUpdate) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			score = $2, classification = $3, dominant_distress = $4,
			score_factors = $5, score_version = $6, scored_at = $7, updated_at = NOW()
		WHERE id = $1`,
		id, update.Score, update.Classification, update.DominantDistress,
		update.FactorsJSON, update.Version, update.ScoredAt,
	)
	if err != nil {
		return fmt.Errorf("update lead score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMessage)
	}
	return nil
}

// MergeContactInfo unions newly discovered phones/emails into the lead.
// Used by skip tracing.
func (r *Repo) MergeContactInfo(ctx context.Context, id uuid.UUID, phones, emails []string) (Lead, error) {
	query := `UPDATE leads SET
			phones = ARRAY(SELECT DISTINCT unnest(phones || $2::text[])),
			emails = ARRAY(SELECT DISTINCT unnest(emails || $3::text[])),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + leadColumns

	l, err := scanLead(r.pool.QueryRow(ctx, query, id, phones, emails))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("merge lead contact info: %w", err)
	}
	return l, nil
}

// AddActivity appends a timeline entry.
func (r *Repo) AddActivity(ctx context.Context, a Activity) (Activity, error) {
	query := `
		INSERT INTO lead_activities (id, lead_id, type, body, actor_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, lead_id, type, body, actor_id, metadata, created_at`

	var out Activity
	err := r.pool.QueryRow(ctx, query,
		uuid.New(), a.LeadID, a.Type, a.Body, a.ActorID, a.Metadata,
	).Scan(&out.ID, &out.LeadID, &out.Type, &out.Body, &out.ActorID, &out.Metadata, &out.CreatedAt)
	if err != nil {
		return Activity{}, fmt.Errorf("add lead activity: %w", err)
	}
	return out, nil
}

// ListActivities returns a lead's timeline, newest first.
func (r *Repo) ListActivities(ctx context.Context, leadID uuid.UUID, limit, offset int) ([]Activity, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM lead_activities WHERE lead_id = $1`, leadID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count lead activities: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, type, body, actor_id, metadata, created_at
		FROM lead_activities
		WHERE lead_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, leadID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list lead activities: %w", err)
	}
	defer rows.Close()

	var items []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.LeadID, &a.Type, &a.Body, &a.ActorID, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan lead activity: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate lead activities: %w", err)
	}

	return items, total, nil
}

// GetResponseStats aggregates conversation counters for the scorer.
func (r *Repo) GetResponseStats(ctx context.Context, leadID uuid.UUID) (ResponseStats, error) {
	var stats ResponseStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE direction = 'inbound'),
			COUNT(*) FILTER (WHERE direction = 'outbound'),
			MAX(created_at) FILTER (WHERE direction = 'inbound')
		FROM sms_messages
		WHERE lead_id = $1`, leadID).Scan(&stats.InboundMessages, &stats.OutboundMessages, &stats.LastInboundAt)
	if err != nil {
		return ResponseStats{}, fmt.Errorf("get response stats: %w", err)
	}

	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM lead_activities WHERE lead_id = $1`, leadID).Scan(&stats.ActivityCount); err != nil {
		return ResponseStats{}, fmt.Errorf("get activity count: %w", err)
	}

	return stats, nil
}

func collectLeads(rows pgx.Rows) ([]Lead, error) {
	var items []Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		items = append(items, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return items, nil
}

func isUniqueViolation(err error) bool {
	// 23505 is Postgres unique_violation.
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
