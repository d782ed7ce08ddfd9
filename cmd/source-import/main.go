// The source-import binary runs a single data source import by key, for
// manual backfills and for testing new source configurations.
package main

import (
	"context"
	"flag"

	"dealflow_backend/internal/adapters"
	"dealflow_backend/internal/events"
	"dealflow_backend/internal/ingest"
	"dealflow_backend/internal/leads"
	"dealflow_backend/internal/properties"
	"dealflow_backend/internal/storage"
	"dealflow_backend/platform/config"
	"dealflow_backend/platform/db"
	"dealflow_backend/platform/logger"
	"dealflow_backend/platform/validator"
)

func main() {
	sourceKey := flag.String("source", "", "key of the data source to run")
	flag.Parse()
	if *sourceKey == "" {
		panic("usage: source-import -source <source-key>")
	}

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting source import", "source", *sourceKey)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	storageSvc, err := storage.New(cfg, log)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}

	propertiesModule := properties.NewModule(pool, val, log)
	propertyReader := adapters.NewPropertyReader(propertiesModule.Service())
	leadsModule := leads.NewModule(pool, propertyReader, eventBus, val, log, cfg.GetHotLeadThreshold())

	propertyCatalog := adapters.NewIngestPropertyCatalog(propertiesModule.Service())
	leadCreator := adapters.NewIngestLeadCreator(leadsModule.Service())
	snapshotArchiver := adapters.NewIngestSnapshotArchiver(storageSvc)
	ingestModule := ingest.NewModule(pool, cfg, propertyCatalog, leadCreator,
		snapshotArchiver, nil, eventBus, val, log)

	run, err := ingestModule.Service().RunSource(ctx, *sourceKey)
	if err != nil {
		log.Error("source import failed", "source", *sourceKey, "error", err)
		panic("source import failed: " + err.Error())
	}

	log.Info("source import complete",
		"source", run.SourceKey,
		"status", run.Status,
		"found", run.RecordsFound,
		"created", run.RecordsCreated,
		"updated", run.RecordsUpdated,
		"failed", run.RecordsFailed,
		"leads", run.LeadsCreated,
	)
}
