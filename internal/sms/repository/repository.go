// Package repository provides PostgreSQL persistence for SMS messages,
// outreach templates, and campaigns.
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

// Repository defines persistence operations for the sms module.
type Repository interface {
	CreateMessage(ctx context.Context, m Message) (Message, error)
	GetMessageBySID(ctx context.Context, providerSID string) (Message, error)
	UpdateMessageStatus(ctx context.Context, id uuid.UUID, status, errorMessage string) error
	ListMessagesByLead(ctx context.Context, leadID uuid.UUID, limit, offset int) ([]Message, int, error)

	CreateTemplate(ctx context.Context, t Template) (Template, error)
	GetTemplate(ctx context.Context, id uuid.UUID) (Template, error)
	ListTemplates(ctx context.Context, activeOnly bool) ([]Template, error)
	UpdateTemplate(ctx context.Context, id uuid.UUID, t Template) (Template, error)
	DeleteTemplate(ctx context.Context, id uuid.UUID) error

	CreateCampaign(ctx context.Context, c Campaign) (Campaign, error)
	GetCampaign(ctx context.Context, id uuid.UUID) (Campaign, error)
	ListCampaigns(ctx context.Context, limit, offset int) ([]Campaign, int, error)
	SetCampaignStatus(ctx context.Context, id uuid.UUID, status string) error
	MarkCampaignStarted(ctx context.Context, id uuid.UUID, totalRecipients int) error
	MarkCampaignCompleted(ctx context.Context, id uuid.UUID, sent, failed int) error
}

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new sms repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

const messageColumns = `
	id, lead_id, campaign_id, direction, phone, body, status,
	provider_sid, error_message, created_at, updated_at`

func scanMessage(row pgx.Row) (Message, error) {
	var m Message
	err := row.Scan(
		&m.ID, &m.LeadID, &m.CampaignID, &m.Direction, &m.Phone, &m.Body, &m.Status,
		&m.ProviderSID, &m.ErrorMessage, &m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}

// CreateMessage inserts a message record.
func (r *Repo) CreateMessage(ctx context.Context, m Message) (Message, error) {
	query := `
		INSERT INTO sms_messages (id, lead_id, campaign_id, direction, phone, body, status, provider_sid, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + messageColumns

	created, err := scanMessage(r.pool.QueryRow(ctx, query,
		uuid.New(), m.LeadID, m.CampaignID, m.Direction, m.Phone, m.Body, m.Status, m.ProviderSID, m.ErrorMessage,
	))
	if err != nil {
		return Message{}, fmt.Errorf("create sms message: %w", err)
	}
	return created, nil
}

// GetMessageBySID finds a message by its provider SID. Used by the status
// callback webhook.
func (r *Repo) GetMessageBySID(ctx context.Context, providerSID string) (Message, error) {
	m, err := scanMessage(r.pool.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM sms_messages WHERE provider_sid = $1`, providerSID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Message{}, apperr.NotFound("message not found")
		}
		return Message{}, fmt.Errorf("get message by sid: %w", err)
	}
	return m, nil
}

// UpdateMessageStatus records a delivery status change.
func (r *Repo) UpdateMessageStatus(ctx context.Context, id uuid.UUID, status, errorMessage string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sms_messages SET status = $2, error_message = $3, updated_at = NOW() WHERE id = $1`,
		id, status, errorMessage)
	if err != nil {
		return fmt.Errorf("update message status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("message not found")
	}
	return nil
}

// ListMessagesByLead returns a lead's conversation, newest first.
func (r *Repo) ListMessagesByLead(ctx context.Context, leadID uuid.UUID, limit, offset int) ([]Message, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM sms_messages WHERE lead_id = $1`, leadID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count lead messages: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM sms_messages
		WHERE lead_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, leadID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list lead messages: %w", err)
	}
	defer rows.Close()

	var items []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan message: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate messages: %w", err)
	}
	return items, total, nil
}

const templateColumns = `id, name, body, active, created_at, updated_at`

func scanTemplate(row pgx.Row) (Template, error) {
	var t Template
	err := row.Scan(&t.ID, &t.Name, &t.Body, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// CreateTemplate inserts a message template.
func (r *Repo) CreateTemplate(ctx context.Context, t Template) (Template, error) {
	created, err := scanTemplate(r.pool.QueryRow(ctx, `
		INSERT INTO sms_templates (id, name, body, active)
		VALUES ($1, $2, $3, $4)
		RETURNING `+templateColumns,
		uuid.New(), t.Name, t.Body, t.Active))
	if err != nil {
		return Template{}, fmt.Errorf("create template: %w", err)
	}
	return created, nil
}

// GetTemplate retrieves a template by ID.
func (r *Repo) GetTemplate(ctx context.Context, id uuid.UUID) (Template, error) {
	t, err := scanTemplate(r.pool.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM sms_templates WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, apperr.NotFound("template not found")
		}
		return Template{}, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

// ListTemplates returns templates, optionally only active ones.
func (r *Repo) ListTemplates(ctx context.Context, activeOnly bool) ([]Template, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+templateColumns+` FROM sms_templates
		WHERE NOT $1 OR active
		ORDER BY name`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var items []Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

// UpdateTemplate overwrites a template.
func (r *Repo) UpdateTemplate(ctx context.Context, id uuid.UUID, t Template) (Template, error) {
	updated, err := scanTemplate(r.pool.QueryRow(ctx, `
		UPDATE sms_templates SET name = $2, body = $3, active = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+templateColumns,
		id, t.Name, t.Body, t.Active))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, apperr.NotFound("template not found")
		}
		return Template{}, fmt.Errorf("update template: %w", err)
	}
	return updated, nil
}

// DeleteTemplate removes a template.
func (r *Repo) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sms_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("template not found")
	}
	return nil
}

const campaignColumns = `
	id, name, template_id, status, audience, total_recipients,
	sent_count, failed_count, started_at, completed_at, created_at, updated_at`

func scanCampaign(row pgx.Row) (Campaign, error) {
	var c Campaign
	err := row.Scan(
		&c.ID, &c.Name, &c.TemplateID, &c.Status, &c.Audience, &c.TotalRecipients,
		&c.SentCount, &c.FailedCount, &c.StartedAt, &c.CompletedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

// CreateCampaign inserts a campaign in draft status.
func (r *Repo) CreateCampaign(ctx context.Context, c Campaign) (Campaign, error) {
	created, err := scanCampaign(r.pool.QueryRow(ctx, `
		INSERT INTO sms_campaigns (id, name, template_id, status, audience)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+campaignColumns,
		uuid.New(), c.Name, c.TemplateID, c.Status, c.Audience))
	if err != nil {
		return Campaign{}, fmt.Errorf("create campaign: %w", err)
	}
	return created, nil
}

// GetCampaign retrieves a campaign by ID.
func (r *Repo) GetCampaign(ctx context.Context, id uuid.UUID) (Campaign, error) {
	c, err := scanCampaign(r.pool.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM sms_campaigns WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Campaign{}, apperr.NotFound("campaign not found")
		}
		return Campaign{}, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

// ListCampaigns returns campaigns, newest first.
func (r *Repo) ListCampaigns(ctx context.Context, limit, offset int) ([]Campaign, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sms_campaigns`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+campaignColumns+` FROM sms_campaigns
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var items []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan campaign: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate campaigns: %w", err)
	}
	return items, total, nil
}

// SetCampaignStatus updates the campaign's status.
func (r *Repo) SetCampaignStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sms_campaigns SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set campaign status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("campaign not found")
	}
	return nil
}

// MarkCampaignStarted moves a campaign to sending with its recipient count.
func (r *Repo) MarkCampaignStarted(ctx context.Context, id uuid.UUID, totalRecipients int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sms_campaigns SET status = $2, total_recipients = $3, started_at = $4, updated_at = NOW()
		WHERE id = $1`,
		id, CampaignSending, totalRecipients, time.Now())
	if err != nil {
		return fmt.Errorf("mark campaign started: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("campaign not found")
	}
	return nil
}

// MarkCampaignCompleted records the final counters.
func (r *Repo) MarkCampaignCompleted(ctx context.Context, id uuid.UUID, sent, failed int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sms_campaigns SET status = $2, sent_count = $3, failed_count = $4, completed_at = $5, updated_at = NOW()
		WHERE id = $1`,
		id, CampaignCompleted, sent, failed, time.Now())
	if err != nil {
		return fmt.Errorf("mark campaign completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("campaign not found")
	}
	return nil
}
