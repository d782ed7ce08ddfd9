package adapters

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	ingestservice "dealflow_backend/internal/ingest/service"
	"dealflow_backend/internal/storage"
)

// Compile-time check that the adapter satisfies the ingest port.
var _ ingestservice.SnapshotArchiver = (*IngestSnapshotArchiver)(nil)

// IngestSnapshotArchiver adapts the storage service to the ingest module's
// SnapshotArchiver port.
type IngestSnapshotArchiver struct {
	store *storage.Service
}

// NewIngestSnapshotArchiver creates a new adapter wrapping the storage
// service.
func NewIngestSnapshotArchiver(store *storage.Service) *IngestSnapshotArchiver {
	return &IngestSnapshotArchiver{store: store}
}

func (a *IngestSnapshotArchiver) ArchiveSnapshot(ctx context.Context, runID uuid.UUID, sourceKey string, payload []byte) (string, error) {
	key := fmt.Sprintf("imports/%s/%s.json", sourceKey, runID)
	return a.store.PutImportSnapshot(ctx, key, payload)
}
