// Package skiptrace provides the owner contact discovery bounded context
// module.
package skiptrace

import (
	"dealflow_backend/internal/events"
	apphttp "dealflow_backend/internal/http"
	"dealflow_backend/internal/skiptrace/client"
	"dealflow_backend/internal/skiptrace/handler"
	"dealflow_backend/internal/skiptrace/repository"
	"dealflow_backend/internal/skiptrace/service"
	"dealflow_backend/platform/config"
	"dealflow_backend/platform/logger"
	"dealflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the skiptrace bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the skiptrace module. The LeadDirectory
// is an adapter wired in the composition root.
func NewModule(pool *pgxpool.Pool, cfg config.SkipTraceConfig, leads service.LeadDirectory, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)

	var tracer service.Tracer
	if c := client.New(cfg, log); c != nil {
		tracer = c
	}
	svc := service.New(repo, tracer, leads, bus, log, cfg.GetSkipTraceConcurrency())

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "skiptrace"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts skiptrace routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/skip-trace")
	group.POST("/leads/:leadId", m.handler.Trace)
	group.GET("/leads/:leadId/results", m.handler.Results)
	group.POST("/batch", m.handler.TraceBatch)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
