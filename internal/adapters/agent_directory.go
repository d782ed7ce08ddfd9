package adapters

import (
	"context"

	"github.com/google/uuid"

	authservice "dealflow_backend/internal/auth/service"
	"dealflow_backend/internal/notification"
)

// Compile-time check that the adapter satisfies the notification port.
var _ notification.AgentDirectory = (*AgentDirectory)(nil)

// AgentDirectory adapts the auth service to the notification module's
// AgentDirectory port.
type AgentDirectory struct {
	auth *authservice.Service
}

// NewAgentDirectory creates a new adapter wrapping the auth service.
func NewAgentDirectory(auth *authservice.Service) *AgentDirectory {
	return &AgentDirectory{auth: auth}
}

func (a *AgentDirectory) GetRecipient(ctx context.Context, userID uuid.UUID) (notification.Recipient, error) {
	user, err := a.auth.GetByID(ctx, userID)
	if err != nil {
		return notification.Recipient{}, err
	}
	return notification.Recipient{ID: user.ID, Name: user.Name, Email: user.Email}, nil
}

func (a *AgentDirectory) ListNotifiable(ctx context.Context) ([]notification.Recipient, error) {
	users, err := a.auth.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	recipients := make([]notification.Recipient, 0, len(users))
	for _, user := range users {
		recipients = append(recipients, notification.Recipient{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
		})
	}
	return recipients, nil
}
