// Package transport defines the request and response types for the auth API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// RegisterRequest creates a new agent or admin account. Admin only.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,strongpassword"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Role     string `json:"role" validate:"omitempty,oneof=admin agent"`
}

// LoginRequest exchanges credentials for a token pair.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest rotates a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// LogoutRequest revokes a refresh token.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// SetActiveRequest enables or disables an account. Admin only.
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// ChangePasswordRequest replaces the caller's own password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,strongpassword"`
}

// TokenResponse carries a fresh access and refresh token pair.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// UserResponse is the public shape of an account.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}
