package store

import (
	"context"
	"time"

	"snapvault/internal/models"
)

// SnapshotStore is the metadata surface the snapshot engine depends on.
type SnapshotStore interface {
	BeginSnapshot(ctx context.Context, root string, at time.Time) (*SnapshotWriter, error)
	GetSnapshot(ctx context.Context, id int64) (*models.Snapshot, error)
	ListSnapshotEntries(ctx context.Context, id int64) ([]models.SnapshotEntry, error)
	ListSnapshotSummaries(ctx context.Context) ([]models.SnapshotSummary, error)
	PruneSnapshot(ctx context.Context, id int64) (PruneOutcome, error)

	GetBlobByHash(ctx context.Context, hash string) (*models.Blob, error)
	ListBlobs(ctx context.Context, afterID int64, limit int) ([]models.Blob, error)
	BlobKeyInUse(ctx context.Context, backend models.StorageBackend, key string) (bool, error)

	ListReclaims(ctx context.Context, afterID int64, limit int) ([]models.Reclaim, error)
	CompleteReclaim(ctx context.Context, id int64) error
	FailReclaim(ctx context.Context, id int64, reason string) error

	GetSetting(ctx context.Context, key string) (string, bool, error)
	EnsureSetting(ctx context.Context, key, value string) (string, error)
	StoreInfo(ctx context.Context) (*StoreInfo, error)
	Footprint() (int64, error)
}

var _ SnapshotStore = (*Store)(nil)
