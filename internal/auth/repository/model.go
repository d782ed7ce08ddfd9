package repository

import (
	"time"

	"github.com/google/uuid"
)

// User roles. Admins manage agents and data sources; agents work leads.
const (
	RoleAdmin = "admin"
	RoleAgent = "agent"
)

// User is an account that can sign in to the CRM.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ValidRole reports whether the given role is known.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleAgent
}
