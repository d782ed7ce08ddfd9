// Package sms provides the outreach bounded context module: one-off sends,
// templates, campaigns, and the provider webhooks.
package sms

import (
	"dealflow_backend/internal/events"
	apphttp "dealflow_backend/internal/http"
	"dealflow_backend/internal/sms/handler"
	"dealflow_backend/internal/sms/repository"
	"dealflow_backend/internal/sms/service"
	"dealflow_backend/internal/sms/twilio"
	"dealflow_backend/platform/config"
	"dealflow_backend/platform/logger"
	"dealflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the sms bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	client  *twilio.Client
}

// NewModule creates and initializes the sms module. The LeadDirectory and
// Enqueuer are adapters wired in the composition root. The Twilio client is
// nil when the provider is not configured.
func NewModule(pool *pgxpool.Pool, cfg config.TwilioConfig, leads service.LeadDirectory, enqueuer service.Enqueuer, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	client := twilio.NewClient(cfg, log)
	repo := repository.New(pool)

	var sender service.Sender
	if client != nil {
		sender = client
	}
	svc := service.New(repo, sender, leads, enqueuer, bus, log)
	h := handler.New(svc, client, val)

	return &Module{
		handler: h,
		service: svc,
		client:  client,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "sms"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts sms routes on the provided router context. Webhooks
// are public; the Twilio signature check stands in for auth there.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/sms")
	group.POST("/messages", m.handler.Send)
	group.GET("/leads/:leadId/messages", m.handler.ListMessages)
	group.GET("/templates", m.handler.ListTemplates)
	group.POST("/templates", m.handler.CreateTemplate)
	group.GET("/templates/:id", m.handler.GetTemplate)
	group.PUT("/templates/:id", m.handler.UpdateTemplate)
	group.DELETE("/templates/:id", m.handler.DeleteTemplate)
	group.GET("/campaigns", m.handler.ListCampaigns)
	group.POST("/campaigns", m.handler.CreateCampaign)
	group.GET("/campaigns/:id", m.handler.GetCampaign)
	group.POST("/campaigns/:id/start", m.handler.StartCampaign)
	group.POST("/campaigns/:id/cancel", m.handler.CancelCampaign)

	webhooks := ctx.V1.Group("/sms/webhooks")
	webhooks.POST("/status", m.handler.StatusCallback)
	webhooks.POST("/inbound", m.handler.Inbound)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
