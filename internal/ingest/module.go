// Package ingest provides the property data ingestion bounded context
// module: county tax and foreclosure imports, external enrichment, and
// data source administration.
package ingest

import (
	"dealflow_backend/internal/events"
	apphttp "dealflow_backend/internal/http"
	"dealflow_backend/internal/ingest/attom"
	"dealflow_backend/internal/ingest/handler"
	"dealflow_backend/internal/ingest/repository"
	"dealflow_backend/internal/ingest/scrape"
	"dealflow_backend/internal/ingest/service"
	"dealflow_backend/platform/config"
	"dealflow_backend/platform/logger"
	"dealflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config is the slice of application config the ingest module needs.
type Config interface {
	config.IngestConfig
	config.AttomConfig
}

// Module is the ingest bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the ingest module. The catalog, lead
// creator, archiver, and enqueuer are adapters wired in the composition root.
func NewModule(pool *pgxpool.Pool, cfg Config, props service.PropertyCatalog,
	leads service.LeadCreator, archiver service.SnapshotArchiver, enqueuer service.Enqueuer,
	bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)

	taxes := scrape.NewCountyTaxScraper(cfg.GetCountyPortalURL(), log)
	filings := scrape.NewForeclosureScraper(cfg.GetForeclosureFeedURL(), log)

	var enricher service.Enricher
	if client := attom.New(cfg, log); client != nil {
		enricher = client
	}

	svc := service.New(repo, props, leads, taxes, filings, enricher, archiver,
		enqueuer, bus, log, cfg.GetAutoLeadScoreThreshold())

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "ingest"
}

// Service returns the service layer for the worker and CLI wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts ingest admin routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Admin.Group("/ingest")
	group.GET("/sources", m.handler.ListSources)
	group.POST("/sources", m.handler.CreateSource)
	group.GET("/sources/:id", m.handler.GetSource)
	group.PUT("/sources/:id", m.handler.UpdateSource)
	group.DELETE("/sources/:id", m.handler.DeleteSource)
	group.POST("/sources/:id/run", m.handler.Run)
	group.GET("/runs", m.handler.ListRuns)
	group.GET("/runs/:id", m.handler.GetRun)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
