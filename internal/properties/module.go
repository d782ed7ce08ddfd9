// Package properties provides the property inventory bounded context module.
// It tracks properties, owner data, valuations, and distress indicators.
package properties

import (
	apphttp "dealflow_backend/internal/http"
	"dealflow_backend/internal/properties/handler"
	"dealflow_backend/internal/properties/repository"
	"dealflow_backend/internal/properties/service"
	"dealflow_backend/platform/logger"
	"dealflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the properties bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the properties module with all its dependencies.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "properties"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts property routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/properties")
	group.GET("", m.handler.List)
	group.POST("", m.handler.Create)
	group.GET("/:id", m.handler.GetByID)
	group.PUT("/:id", m.handler.Update)
	group.DELETE("/:id", m.handler.Delete)
	group.GET("/:id/indicators", m.handler.ListIndicators)
	group.POST("/:id/indicators", m.handler.AddIndicator)
	group.DELETE("/:id/indicators/:indicatorId", m.handler.RemoveIndicator)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
