// The lead-rescore binary recomputes scores for every open lead. Run it
// after a scoring model change to backfill the new version.
package main

import (
	"context"

	"dealflow_backend/internal/adapters"
	"dealflow_backend/internal/events"
	"dealflow_backend/internal/leads"
	"dealflow_backend/internal/properties"
	"dealflow_backend/platform/config"
	"dealflow_backend/platform/db"
	"dealflow_backend/platform/logger"
	"dealflow_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting lead rescore sweep")

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	propertiesModule := properties.NewModule(pool, val, log)
	propertyReader := adapters.NewPropertyReader(propertiesModule.Service())
	leadsModule := leads.NewModule(pool, propertyReader, eventBus, val, log, cfg.GetHotLeadThreshold())

	result, err := leadsModule.Service().RescoreAll(ctx)
	if err != nil {
		log.Error("rescore sweep failed", "error", err)
		panic("rescore sweep failed: " + err.Error())
	}

	log.Info("rescore sweep complete",
		"scanned", result.Scanned, "changed", result.Changed, "failed", result.Failed)
}
