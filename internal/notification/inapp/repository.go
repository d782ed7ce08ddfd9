// Package inapp persists the per-agent notification feed.
package inapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"dealflow_backend/platform/apperr"
)

const errUserIDRequired = "userId is required"

// Notification is one entry in an agent's feed.
type Notification struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"userId"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	ResourceID   *uuid.UUID `json:"resourceId,omitempty"`
	ResourceType *string    `json:"resourceType,omitempty"`
	Category     string     `json:"category"`
	IsRead       bool       `json:"isRead"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// CreateParams carries the fields for a new feed entry.
type CreateParams struct {
	UserID       uuid.UUID
	Title        string
	Content      string
	ResourceID   *uuid.UUID
	ResourceType *string
	Category     string
}

// Repository stores notifications in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new in-app notification repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a feed entry for a user.
func (r *Repository) Create(ctx context.Context, p CreateParams) (Notification, error) {
	if p.UserID == uuid.Nil {
		return Notification{}, apperr.Validation(errUserIDRequired)
	}
	if p.Title == "" || p.Content == "" {
		return Notification{}, apperr.Validation("title and content are required")
	}

	category := p.Category
	if category == "" {
		category = "info"
	}

	var n Notification
	err := r.pool.QueryRow(ctx, `
		INSERT INTO in_app_notifications
			(user_id, title, content, resource_id, resource_type, category)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, user_id, title, content, resource_id, resource_type, category, is_read, created_at
	`, p.UserID, p.Title, p.Content, p.ResourceID, p.ResourceType, category).Scan(
		&n.ID, &n.UserID, &n.Title, &n.Content, &n.ResourceID, &n.ResourceType, &n.Category, &n.IsRead, &n.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Notification{}, apperr.Validation("invalid userId")
		}
		return Notification{}, fmt.Errorf("create notification: %w", err)
	}

	return n, nil
}

// List returns a page of a user's notifications, newest first, with the
// total count.
func (r *Repository) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Notification, int, error) {
	if userID == uuid.Nil {
		return nil, 0, apperr.Validation(errUserIDRequired)
	}

	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM in_app_notifications WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, title, content, resource_id, resource_type, category, is_read, created_at
		FROM in_app_notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := make([]Notification, 0, limit)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.ResourceID, &n.ResourceType, &n.Category, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate notifications: %w", err)
	}

	return items, total, nil
}

// CountUnread returns the number of unread notifications for a user.
func (r *Repository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, apperr.Validation(errUserIDRequired)
	}

	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM in_app_notifications
		WHERE user_id = $1 AND is_read = FALSE
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}

	return count, nil
}

// MarkRead marks one of the user's notifications as read.
func (r *Repository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if userID == uuid.Nil || notificationID == uuid.Nil {
		return apperr.Validation("userId and notificationId are required")
	}

	_, err := r.pool.Exec(ctx, `
		UPDATE in_app_notifications
		SET is_read = TRUE, read_at = now()
		WHERE id = $1 AND user_id = $2
	`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	return nil
}

// MarkAllRead marks all of the user's unread notifications as read.
func (r *Repository) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return apperr.Validation(errUserIDRequired)
	}

	_, err := r.pool.Exec(ctx, `
		UPDATE in_app_notifications
		SET is_read = TRUE, read_at = now()
		WHERE user_id = $1 AND is_read = FALSE
	`, userID)
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}

	return nil
}

// Delete removes one of the user's notifications.
func (r *Repository) Delete(ctx context.Context, userID, notificationID uuid.UUID) error {
	if userID == uuid.Nil || notificationID == uuid.Nil {
		return apperr.Validation("userId and notificationId are required")
	}

	_, err := r.pool.Exec(ctx, `
		DELETE FROM in_app_notifications
		WHERE id = $1 AND user_id = $2
	`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}

	return nil
}
