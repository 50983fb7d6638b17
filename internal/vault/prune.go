package vault

import (
	"context"
	"fmt"

	"snapvault/internal/models"
)

// PruneResult reports one prune: the metadata removed and the sweep that
// followed it.
type PruneResult struct {
	SnapshotID    int64        `json:"snapshot_id" yaml:"snapshot_id"`
	Links         int64        `json:"links" yaml:"links"`
	OrphanedBlobs []string     `json:"orphaned_blobs" yaml:"orphaned_blobs"`
	Sweep         *SweepResult `json:"sweep,omitempty" yaml:"sweep,omitempty"`
}

// SweepResult reports one pass over the reclaim queue.
type SweepResult struct {
	Candidates int `json:"candidates" yaml:"candidates"`
	Deleted    int `json:"deleted" yaml:"deleted"`
	// Skipped entries point at bytes a live blob or snapshot still uses.
	Skipped    int `json:"skipped" yaml:"skipped"`
	Failed     int `json:"failed" yaml:"failed"`
}

// Prune deletes snapshot id and every blob no remaining snapshot links,
// then sweeps the reclaim queue. The metadata change is atomic; bytes that
// fail to delete stay queued for the next sweep.
func (e *Engine) Prune(ctx context.Context, id int64) (*PruneResult, error) {
	outcome, err := e.store.PruneSnapshot(ctx, id)
	if err != nil {
		return nil, storeFailure("prune snapshot", err)
	}
	if !outcome.Found {
		return nil, notFoundCode(fmt.Errorf("snapshot %d not found", id), ErrCodeSnapshotNotFound)
	}

	result := &PruneResult{
		SnapshotID:    id,
		Links:         outcome.Links,
		OrphanedBlobs: make([]string, 0, len(outcome.Orphaned)),
	}
	for _, blob := range outcome.Orphaned {
		result.OrphanedBlobs = append(result.OrphanedBlobs, blob.Hash)
	}
	e.log().Info("snapshot pruned", "snapshot_id", id, "links", outcome.Links, "orphaned_blobs", len(outcome.Orphaned))

	sweep, err := e.Sweep(ctx)
	result.Sweep = sweep
	if err != nil {
		return result, err
	}
	return result, nil
}

// Sweep deletes the bytes of queued reclaims. It is safe to run at any time
// and as often as needed.
func (e *Engine) Sweep(ctx context.Context) (*SweepResult, error) {
	result := &SweepResult{}
	var afterID int64
	for {
		batch, err := e.store.ListReclaims(ctx, afterID, e.batchSize)
		if err != nil {
			return result, storeFailure("list reclaim queue", err)
		}
		if len(batch) == 0 {
			break
		}
		for _, reclaim := range batch {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			afterID = reclaim.ID
			result.Candidates++
			if err := e.reclaim(ctx, reclaim, result); err != nil {
				return result, err
			}
		}
	}

	if result.Candidates > 0 {
		e.log().Info("reclaim sweep finished",
			"candidates", result.Candidates,
			"deleted", result.Deleted,
			"skipped", result.Skipped,
			"failed", result.Failed,
		)
	}
	return result, nil
}

// reclaim handles one queue entry. Only store failures are returned; delete
// failures are recorded on the entry.
func (e *Engine) reclaim(ctx context.Context, reclaim models.Reclaim, result *SweepResult) error {
	inUse, err := e.store.BlobKeyInUse(ctx, reclaim.StorageBackend, reclaim.BlobKey)
	if err != nil {
		return storeFailure("check blob key", err)
	}
	if inUse {
		if err := e.store.CompleteReclaim(ctx, reclaim.ID); err != nil {
			return storeFailure("complete reclaim", err)
		}
		result.Skipped++
		return nil
	}

	deleteErr := e.deleteBytes(ctx, reclaim)
	if deleteErr != nil {
		e.log().Warn("reclaim failed",
			"hash", reclaim.BlobHash,
			"backend", reclaim.StorageBackend,
			"blob_key", reclaim.BlobKey,
			"attempts", reclaim.Attempts+1,
			"error", deleteErr,
		)
		if err := e.store.FailReclaim(ctx, reclaim.ID, deleteErr.Error()); err != nil {
			return storeFailure("record reclaim failure", err)
		}
		result.Failed++
		return nil
	}

	if err := e.store.CompleteReclaim(ctx, reclaim.ID); err != nil {
		return storeFailure("complete reclaim", err)
	}
	result.Deleted++
	return nil
}

func (e *Engine) deleteBytes(ctx context.Context, reclaim models.Reclaim) error {
	bs, err := e.backends.Lookup(reclaim.StorageBackend)
	if err != nil {
		return err
	}
	return bs.Delete(ctx, reclaim.BlobKey)
}
