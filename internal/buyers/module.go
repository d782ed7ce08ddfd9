// Package buyers provides the cash buyer list bounded context module,
// including deal-to-buyer matching for disposition.
package buyers

import (
	"dealflow_backend/internal/buyers/handler"
	"dealflow_backend/internal/buyers/repository"
	"dealflow_backend/internal/buyers/service"
	apphttp "dealflow_backend/internal/http"
	"dealflow_backend/platform/logger"
	"dealflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the buyers bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the buyers module with all its dependencies.
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
	return "buyers"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts buyer routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/buyers")
	group.GET("", m.handler.List)
	group.POST("", m.handler.Create)
	group.POST("/match", m.handler.Match)
	group.GET("/:id", m.handler.GetByID)
	group.PUT("/:id", m.handler.Update)
	group.DELETE("/:id", m.handler.Delete)
	group.POST("/:id/deals", m.handler.RecordDealClosed)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
