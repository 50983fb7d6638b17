package vault

import (
	"context"
	"errors"
	"io/fs"

	"snapvault/internal/models"
)

// CheckResult reports one integrity pass over every blob.
type CheckResult struct {
	Total     int          `json:"total" yaml:"total"`
	OK        int          `json:"ok" yaml:"ok"`
	Missing   int          `json:"missing" yaml:"missing"`
	Corrupted int          `json:"corrupted" yaml:"corrupted"`
	Issues    []CheckIssue `json:"issues,omitempty" yaml:"issues,omitempty"`
}

// CheckIssue is one blob whose content is gone or no longer matches.
type CheckIssue struct {
	Hash           string                `json:"hash" yaml:"hash"`
	SourcePath     string                `json:"source_path" yaml:"source_path"`
	StorageBackend models.StorageBackend `json:"storage_backend" yaml:"storage_backend"`
	BlobKey        string                `json:"blob_key" yaml:"blob_key"`
	Status         models.CheckStatus    `json:"status" yaml:"status"`
	ActualHash     string                `json:"actual_hash,omitempty" yaml:"actual_hash,omitempty"`
	Error          string                `json:"error,omitempty" yaml:"error,omitempty"`
}

// Healthy reports whether every blob checked out.
func (r *CheckResult) Healthy() bool {
	return r.Missing == 0 && r.Corrupted == 0
}

// Check re-hashes the content of every blob and compares it with the
// recorded digest. Problems are reported, never repaired.
func (e *Engine) Check(ctx context.Context) (*CheckResult, error) {
	if err := e.checkHashAlgorithm(ctx); err != nil {
		return nil, err
	}

	result := &CheckResult{}
	var afterID int64
	for {
		blobs, err := e.store.ListBlobs(ctx, afterID, e.batchSize)
		if err != nil {
			return result, storeFailure("list blobs", err)
		}
		if len(blobs) == 0 {
			break
		}
		for _, blob := range blobs {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			afterID = blob.ID
			result.Total++

			issue := e.checkBlob(ctx, blob)
			if issue == nil {
				result.OK++
				continue
			}
			switch issue.Status {
			case models.CheckCorrupted:
				result.Corrupted++
			default:
				result.Missing++
			}
			e.log().Warn("blob failed check", "hash", blob.Hash, "source_path", blob.SourcePath, "status", issue.Status, "error", issue.Error)
			result.Issues = append(result.Issues, *issue)
		}
	}

	e.log().Info("check finished", "total", result.Total, "missing", result.Missing, "corrupted", result.Corrupted)
	return result, nil
}

func (e *Engine) checkBlob(ctx context.Context, blob models.Blob) *CheckIssue {
	issue := &CheckIssue{
		Hash:           blob.Hash,
		SourcePath:     blob.SourcePath,
		StorageBackend: blob.StorageBackend,
		BlobKey:        blob.BlobKey,
		Status:         models.CheckMissing,
	}

	bs, err := e.backends.Lookup(blob.StorageBackend)
	if err != nil {
		issue.Error = err.Error()
		return issue
	}
	rc, err := bs.Open(ctx, blob.BlobKey)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			issue.Error = err.Error()
		}
		return issue
	}
	defer rc.Close()

	digest, _, err := e.hasher.Reader(rc)
	if err != nil {
		issue.Error = err.Error()
		return issue
	}
	if digest != blob.Hash {
		issue.Status = models.CheckCorrupted
		issue.ActualHash = digest
		return issue
	}
	return nil
}
