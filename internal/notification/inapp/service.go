package inapp

import (
	"context"

	"github.com/google/uuid"

	"dealflow_backend/internal/notification/sse"
	"dealflow_backend/platform/logger"
)

// Service layers feed business rules over the repository and pushes new
// entries to connected clients over SSE.
type Service struct {
	repo *Repository
	sse  *sse.Service
	log  *logger.Logger
}

// NewService creates a new in-app notification service.
func NewService(repo *Repository, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

// SetSSE injects the SSE service (circular dependency avoidance).
func (s *Service) SetSSE(sseSvc *sse.Service) {
	s.sse = sseSvc
}

// SendParams carries the fields for a new feed entry.
type SendParams struct {
	UserID       uuid.UUID
	Title        string
	Content      string
	ResourceID   *uuid.UUID
	ResourceType string
	Category     string // "info", "success", "warning", "error"
}

// Send persists the notification and pushes it via SSE if the user is online.
func (s *Service) Send(ctx context.Context, p SendParams) error {
	if p.Category == "" {
		p.Category = "info"
	}

	var resourceType *string
	if p.ResourceType != "" {
		resourceType = &p.ResourceType
	}

	notif, err := s.repo.Create(ctx, CreateParams{
		UserID:       p.UserID,
		Title:        p.Title,
		Content:      p.Content,
		ResourceID:   p.ResourceID,
		ResourceType: resourceType,
		Category:     p.Category,
	})
	if err != nil {
		s.log.Error("persist in-app notification failed", "error", err, "user_id", p.UserID)
		return err
	}

	if s.sse != nil {
		s.sse.Publish(p.UserID, sse.Event{
			Type:    sse.EventInAppNotification,
			Message: p.Title,
			Data:    notif,
		})
	}

	return nil
}

// List returns a page of the user's notifications.
func (s *Service) List(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	offset := (page - 1) * pageSize
	return s.repo.List(ctx, userID, pageSize, offset)
}

// CountUnread returns the user's unread notification count.
func (s *Service) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead marks a single notification as read.
func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, userID, id)
}

// MarkAllRead marks all of the user's notifications as read.
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID)
}

// Delete removes a notification from the user's feed.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.Delete(ctx, userID, id)
}
