// Package service implements authentication: credential checks, JWT
// issuance, and refresh token rotation.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"dealflow_backend/internal/auth/repository"
	"dealflow_backend/internal/auth/token"
	"dealflow_backend/internal/auth/transport"
	"dealflow_backend/internal/events"
	"dealflow_backend/platform/apperr"
	"dealflow_backend/platform/config"
	"dealflow_backend/platform/logger"
)

const refreshTokenBytes = 32

const invalidCredentialsMessage = "invalid email or password"

// Service orchestrates all auth flows.
type Service struct {
	repo repository.Repository
	cfg  config.AuthServiceConfig
	bus  events.Bus
	log  *logger.Logger
	now  func() time.Time
}

// New creates the auth service.
func New(repo repository.Repository, cfg config.AuthServiceConfig, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		cfg:  cfg,
		bus:  bus,
		log:  log,
		now:  time.Now,
	}
}

// Register creates a new account. Accounts are admin-created; there is no
// public signup.
func (s *Service) Register(ctx context.Context, req transport.RegisterRequest) (repository.User, error) {
	role := req.Role
	if role == "" {
		role = repository.RoleAgent
	}
	if !repository.ValidRole(role) {
		return repository.User{}, apperr.Validation("unknown role")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return repository.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, repository.User{
		Email:        normalizeEmail(req.Email),
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(req.Name),
		Role:         role,
		Active:       true,
	})
	if err != nil {
		return repository.User{}, err
	}

	s.log.Info("user registered", "user_id", user.ID, "role", user.Role)
	s.bus.Publish(ctx, events.UserRegistered{
		BaseEvent: events.NewBaseEvent(),
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
	})
	return user, nil
}

// Login verifies credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, email, password string) (transport.TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		// Same response for unknown email and wrong password.
		return transport.TokenResponse{}, apperr.Unauthorized(invalidCredentialsMessage)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return transport.TokenResponse{}, apperr.Unauthorized(invalidCredentialsMessage)
	}
	if !user.Active {
		return transport.TokenResponse{}, apperr.Forbidden("account is disabled")
	}

	return s.issueTokens(ctx, user)
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (transport.TokenResponse, error) {
	hash := token.HashSHA256(refreshToken)
	userID, expiresAt, err := s.repo.GetRefreshToken(ctx, hash)
	if err != nil {
		return transport.TokenResponse{}, apperr.Unauthorized("invalid refresh token")
	}
	if s.now().After(expiresAt) {
		_ = s.repo.RevokeRefreshToken(ctx, hash)
		return transport.TokenResponse{}, apperr.Unauthorized("refresh token expired")
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return transport.TokenResponse{}, apperr.Unauthorized("invalid refresh token")
	}
	if !user.Active {
		return transport.TokenResponse{}, apperr.Forbidden("account is disabled")
	}

	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil {
		return transport.TokenResponse{}, err
	}
	return s.issueTokens(ctx, user)
}

// Logout revokes the presented refresh token. Revoking an already-revoked or
// unknown token is not an error.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.repo.RevokeRefreshToken(ctx, token.HashSHA256(refreshToken))
}

// GetByID returns a single account.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (repository.User, error) {
	return s.repo.GetByID(ctx, id)
}

// ListUsers returns all accounts.
func (s *Service) ListUsers(ctx context.Context) ([]repository.User, error) {
	return s.repo.ListUsers(ctx)
}

// ListActive returns the accounts that can currently sign in.
func (s *Service) ListActive(ctx context.Context) ([]repository.User, error) {
	return s.repo.ListActive(ctx)
}

// SetActive enables or disables an account. Disabling also revokes every
// live refresh token so the session ends at access token expiry.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	if !active {
		if err := s.repo.RevokeAllRefreshTokens(ctx, id); err != nil {
			return err
		}
	}
	s.log.Info("user active flag changed", "user_id", id, "active", active)
	return nil
}

// ChangePassword replaces the caller's password after verifying the current
// one, and revokes all refresh tokens.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)) != nil {
		return apperr.Unauthorized("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}
	return s.repo.RevokeAllRefreshTokens(ctx, userID)
}

func (s *Service) issueTokens(ctx context.Context, user repository.User) (transport.TokenResponse, error) {
	accessTTL := s.cfg.GetAccessTokenTTL()
	accessToken, err := s.signAccessToken(user, accessTTL)
	if err != nil {
		return transport.TokenResponse{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err := token.GenerateRandomToken(refreshTokenBytes)
	if err != nil {
		return transport.TokenResponse{}, fmt.Errorf("generate refresh token: %w", err)
	}
	expiresAt := s.now().Add(s.cfg.GetRefreshTokenTTL())
	if err := s.repo.CreateRefreshToken(ctx, user.ID, token.HashSHA256(refreshToken), expiresAt); err != nil {
		return transport.TokenResponse{}, err
	}

	return transport.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(accessTTL.Seconds()),
	}, nil
}

func (s *Service) signAccessToken(user repository.User, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"type":  "access",
		"roles": []string{user.Role},
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ToUserResponse converts a stored account into its API shape.
func ToUserResponse(user repository.User) transport.UserResponse {
	return transport.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		Active:    user.Active,
		CreatedAt: user.CreatedAt,
	}
}
