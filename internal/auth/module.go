// Package auth provides the authentication bounded context module.
// It owns user accounts, login, JWT issuance, and refresh token rotation.
package auth

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"dealflow_backend/internal/auth/handler"
	"dealflow_backend/internal/auth/repository"
	"dealflow_backend/internal/auth/service"
	authvalidator "dealflow_backend/internal/auth/validator"
	"dealflow_backend/internal/events"
	apphttp "dealflow_backend/internal/http"
	"dealflow_backend/platform/config"
	"dealflow_backend/platform/logger"
	"dealflow_backend/platform/validator"
)

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the auth module with all its dependencies.
func NewModule(pool *pgxpool.Pool, cfg config.AuthServiceConfig, bus events.Bus, val *validator.Validator, log *logger.Logger) (*Module, error) {
	if err := authvalidator.Register(val); err != nil {
		return nil, fmt.Errorf("register auth validations: %w", err)
	}

	repo := repository.New(pool)
	svc := service.New(repo, cfg, bus, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts auth routes on the provided router context.
// Login and refresh sit behind the stricter per-IP rate limiter.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	public := ctx.V1.Group("/auth")
	public.Use(ctx.AuthRateLimiter.RateLimit())
	public.POST("/login", m.handler.Login)
	public.POST("/refresh", m.handler.Refresh)
	public.POST("/logout", m.handler.Logout)

	me := ctx.Protected.Group("/auth")
	me.GET("/me", m.handler.Me)
	me.POST("/change-password", m.handler.ChangePassword)

	users := ctx.Admin.Group("/users")
	users.POST("", m.handler.Register)
	users.GET("", m.handler.ListUsers)
	users.PATCH("/:id/active", m.handler.SetActive)
}
