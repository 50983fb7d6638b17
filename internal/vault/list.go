package vault

import (
	"context"

	"snapvault/internal/models"
	"snapvault/internal/store"
)

// ListResult is every snapshot plus the on-disk size of the metadata store.
type ListResult struct {
	Snapshots  []models.SnapshotSummary `json:"snapshots" yaml:"snapshots"`
	StoreBytes int64                    `json:"store_bytes" yaml:"store_bytes"`
}

// List returns all snapshots in id order. An empty store yields an empty list.
func (e *Engine) List(ctx context.Context) (*ListResult, error) {
	summaries, err := e.store.ListSnapshotSummaries(ctx)
	if err != nil {
		return nil, storeFailure("list snapshots", err)
	}
	footprint, err := e.store.Footprint()
	if err != nil {
		return nil, ioError(err)
	}
	return &ListResult{Snapshots: summaries, StoreBytes: footprint}, nil
}

// Info describes the store and how this engine writes to it.
type Info struct {
	store.StoreInfo `yaml:",inline"`

	StorageMode models.StorageMode   `json:"storage_mode" yaml:"storage_mode"`
	Configured  models.HashAlgorithm `json:"configured_hash_algorithm" yaml:"configured_hash_algorithm"`
	StoreBytes  int64                `json:"store_bytes" yaml:"store_bytes"`
}

// Info returns store statistics.
func (e *Engine) Info(ctx context.Context) (*Info, error) {
	stats, err := e.store.StoreInfo(ctx)
	if err != nil {
		return nil, storeFailure("store info", err)
	}
	footprint, err := e.store.Footprint()
	if err != nil {
		return nil, ioError(err)
	}
	return &Info{
		StoreInfo:   *stats,
		StorageMode: e.mode,
		Configured:  e.hasher.Algorithm(),
		StoreBytes:  footprint,
	}, nil
}
