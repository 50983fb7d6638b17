package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"snapvault/internal/models"
)

// RestoreResult reports one restore run. Failed entries do not fail the run.
type RestoreResult struct {
	SnapshotID int64            `json:"snapshot_id" yaml:"snapshot_id"`
	OutputDir  string           `json:"output_dir" yaml:"output_dir"`
	Restored   int              `json:"restored" yaml:"restored"`
	Bytes      int64            `json:"bytes" yaml:"bytes"`
	Failed     []RestoreFailure `json:"failed,omitempty" yaml:"failed,omitempty"`
	Warnings   []string         `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// RestoreFailure is one file that could not be written.
type RestoreFailure struct {
	Path  string `json:"path" yaml:"path"`
	Hash  string `json:"hash" yaml:"hash"`
	Error string `json:"error" yaml:"error"`
}

// Restore writes every file of snapshot id below outputDir, mirroring the
// layout under the snapshot root. Content is read from the blob's backend
// and is not re-hashed.
func (e *Engine) Restore(ctx context.Context, id int64, outputDir string) (*RestoreResult, error) {
	snap, err := e.store.GetSnapshot(ctx, id)
	if err != nil {
		return nil, storeFailure("get snapshot", err)
	}
	if snap == nil {
		return nil, notFoundCode(fmt.Errorf("snapshot %d not found", id), ErrCodeSnapshotNotFound)
	}

	outputDir = strings.TrimSpace(outputDir)
	if outputDir == "" {
		return nil, invalidArgument(fmt.Errorf("output directory is required"), ErrCodeInvalidPath)
	}
	out, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, invalidArgument(err, ErrCodeInvalidPath)
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, ioError(err)
	}

	entries, err := e.store.ListSnapshotEntries(ctx, id)
	if err != nil {
		return nil, storeFailure("list snapshot entries", err)
	}

	result := &RestoreResult{SnapshotID: id, OutputDir: out}
	if len(entries) == 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("snapshot %d has no files", id))
		e.log().Warn("snapshot has no files", "snapshot_id", id)
		return result, nil
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		n, err := e.restoreEntry(ctx, snap, entry, out)
		if err != nil {
			e.log().Warn("restore failed", "path", entry.Path, "hash", entry.Blob.Hash, "error", err)
			result.Failed = append(result.Failed, RestoreFailure{
				Path:  entry.Path,
				Hash:  entry.Blob.Hash,
				Error: err.Error(),
			})
			continue
		}
		result.Restored++
		result.Bytes += n
	}

	e.log().Info("snapshot restored",
		"snapshot_id", id,
		"output_dir", out,
		"restored", result.Restored,
		"failed", len(result.Failed),
	)
	return result, nil
}

func (e *Engine) restoreEntry(ctx context.Context, snap *models.Snapshot, entry models.SnapshotEntry, out string) (int64, error) {
	dest, err := destinationPath(out, entry.Path)
	if err != nil {
		return 0, err
	}
	src, err := e.openEntry(ctx, snap, entry)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, err
	}
	return writeFileAtomic(dest, src)
}

// openEntry opens the content of entry. Index-mode blobs whose recorded
// source path is gone fall back to the path this snapshot observed.
func (e *Engine) openEntry(ctx context.Context, snap *models.Snapshot, entry models.SnapshotEntry) (io.ReadCloser, error) {
	bs, err := e.backends.Lookup(entry.Blob.StorageBackend)
	if err != nil {
		return nil, err
	}
	rc, err := bs.Open(ctx, entry.Blob.BlobKey)
	if err == nil || entry.Blob.StorageBackend != models.BackendSource || !errors.Is(err, fs.ErrNotExist) {
		return rc, err
	}

	observed := filepath.Join(snap.RootPath, filepath.FromSlash(entry.Path))
	if observed == entry.Blob.BlobKey {
		return nil, err
	}
	rc, fallbackErr := bs.Open(ctx, observed)
	if fallbackErr != nil {
		return nil, err
	}
	e.log().Debug("restoring from observed path", "path", observed, "source_path", entry.Blob.SourcePath)
	return rc, nil
}

// destinationPath joins a root-relative link path onto out, refusing paths
// that would land outside it.
func destinationPath(out, rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return "", fmt.Errorf("link path is required")
	}
	native := filepath.FromSlash(rel)
	if filepath.IsAbs(native) {
		return "", fmt.Errorf("link path %q must be relative", rel)
	}
	clean := filepath.Clean(native)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("link path %q escapes the output directory", rel)
	}
	return filepath.Join(out, clean), nil
}

// writeFileAtomic copies r into a temp file next to dest and renames it into
// place, so dest is either absent or complete.
func writeFileAtomic(dest string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	n, err := io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return 0, err
	}
	if err := tmp.Chmod(0o644); err != nil {
		cleanup()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}
	return n, nil
}
