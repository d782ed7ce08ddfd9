// Package analyzers provides the deal analysis bounded context module:
// ARV, repair estimate, maximum allowable offer, rental cash flow, and
// the composite deal score.
package analyzers

import (
	"dealflow_backend/internal/analyzers/handler"
	"dealflow_backend/internal/analyzers/service"
	apphttp "dealflow_backend/internal/http"
	"dealflow_backend/platform/logger"
	"dealflow_backend/platform/validator"
)

// Module is the analyzers bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the analyzers module. The ActivityRecorder
// is an adapter over the leads module, wired in the composition root.
func NewModule(costTablePath string, activities service.ActivityRecorder, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(costTablePath, activities, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "analyzers"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts analyzer routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/analyzers")
	group.POST("/arv", m.handler.ARV)
	group.POST("/repair", m.handler.Repair)
	group.POST("/mao", m.handler.MAO)
	group.POST("/cash-flow", m.handler.CashFlow)
	group.POST("/deal-score", m.handler.DealScore)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
