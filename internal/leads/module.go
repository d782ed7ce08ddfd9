// Package leads provides the lead pipeline bounded context module.
// It tracks owner contacts through the acquisition funnel and keeps
// each lead's motivation score current.
package leads

import (
	"dealflow_backend/internal/events"
	apphttp "dealflow_backend/internal/http"
	"dealflow_backend/internal/leads/handler"
	"dealflow_backend/internal/leads/repository"
	"dealflow_backend/internal/leads/service"
	"dealflow_backend/platform/logger"
	"dealflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the leads module with all its dependencies.
// The PropertyReader is an adapter over the properties module, wired in the
// composition root.
func NewModule(pool *pgxpool.Pool, props service.PropertyReader, bus events.Bus, val *validator.Validator, log *logger.Logger, hotThreshold int) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, props, bus, log, hotThreshold)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts lead routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/leads")
	group.GET("", m.handler.List)
	group.POST("", m.handler.Create)
	group.GET("/board", m.handler.Board)
	group.GET("/follow-ups", m.handler.FollowUpsDue)
	group.GET("/:id", m.handler.GetByID)
	group.PUT("/:id/contact", m.handler.UpdateContact)
	group.PUT("/:id/status", m.handler.ChangeStatus)
	group.PUT("/:id/assign", m.handler.Assign)
	group.PUT("/:id/follow-up", m.handler.SetFollowUp)
	group.GET("/:id/activities", m.handler.ListActivities)
	group.POST("/:id/activities", m.handler.AddActivity)
	group.POST("/:id/rescore", m.handler.Rescore)

	ctx.Admin.POST("/leads/rescore", m.handler.RescoreAll)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
