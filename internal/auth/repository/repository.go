// Package repository provides PostgreSQL persistence for user accounts and
// refresh tokens.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"dealflow_backend/platform/apperr"
)

const userNotFoundMessage = "user not found"

// Repository defines persistence operations for the auth module.
type Repository interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	ListActive(ctx context.Context) ([]User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error

	CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, userID uuid.UUID) error
}

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new auth repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

const userColumns = `id, email, password_hash, name, role, active, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// CreateUser inserts a new account. The unique email index surfaces as a
// conflict here.
func (r *Repo) CreateUser(ctx context.Context, user User) (User, error) {
	query := `INSERT INTO users (email, password_hash, name, role, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns

	created, err := scanUser(r.pool.QueryRow(ctx, query,
		user.Email, user.PasswordHash, user.Name, user.Role, user.Active))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, apperr.Conflict("email already registered")
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

// GetByEmail retrieves an account by email.
func (r *Repo) GetByEmail(ctx context.Context, email string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperr.NotFound(userNotFoundMessage)
	}
	if err != nil {
		return User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// GetByID retrieves an account by ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperr.NotFound(userNotFoundMessage)
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ListUsers returns all accounts ordered by email.
func (r *Repo) ListUsers(ctx context.Context) ([]User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY email`)
}

// ListActive returns active accounts ordered by email.
func (r *Repo) ListActive(ctx context.Context) ([]User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users WHERE active ORDER BY email`)
}

func (r *Repo) list(ctx context.Context, query string) ([]User, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdatePassword replaces an account's password hash.
func (r *Repo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
		id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(userNotFoundMessage)
	}
	return nil
}

// SetActive enables or disables an account.
func (r *Repo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET active = $2, updated_at = now() WHERE id = $1`,
		id, active)
	if err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(userNotFoundMessage)
	}
	return nil
}

// CreateRefreshToken stores a hashed refresh token.
func (r *Repo) CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
	`, userID, tokenHash, expiresAt)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken resolves an unrevoked refresh token hash to its user and
// expiry.
func (r *Repo) GetRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error) {
	var userID uuid.UUID
	var expiresAt time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, expires_at FROM refresh_tokens
		WHERE token_hash = $1 AND revoked_at IS NULL
	`, tokenHash).Scan(&userID, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, time.Time{}, apperr.NotFound("refresh token not found")
	}
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("get refresh token: %w", err)
	}
	return userID, expiresAt, nil
}

// RevokeRefreshToken marks a refresh token as revoked.
func (r *Repo) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE token_hash = $1 AND revoked_at IS NULL
	`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllRefreshTokens revokes every live refresh token for a user.
func (r *Repo) RevokeAllRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE user_id = $1 AND revoked_at IS NULL
	`, userID)
	if err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}
