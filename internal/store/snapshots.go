package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"snapvault/internal/models"
)

// SnapshotWriter records one snapshot inside a single transaction. Nothing it
// writes is visible to other readers until Commit.
type SnapshotWriter struct {
	tx       *sql.Tx
	snapshot models.Snapshot
	done     bool
}

// PruneOutcome reports the metadata side of one prune.
type PruneOutcome struct {
	Found    bool            `json:"found" yaml:"found"`
	Snapshot models.Snapshot `json:"snapshot" yaml:"snapshot"`
	Links    int64           `json:"links" yaml:"links"`
	Orphaned []models.Blob   `json:"orphaned" yaml:"orphaned"`
}

// BeginSnapshot opens the build transaction and inserts the snapshot row.
func (s *Store) BeginSnapshot(ctx context.Context, root string, at time.Time) (*SnapshotWriter, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("snapshot root is required")
	}
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, "INSERT INTO snapshots (timestamp, root_path) VALUES (?, ?)", dbFormatTime(at), root)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	return &SnapshotWriter{
		tx:       tx,
		snapshot: models.Snapshot{ID: id, Timestamp: at, RootPath: root},
	}, nil
}

// Snapshot returns the row being built.
func (w *SnapshotWriter) Snapshot() models.Snapshot {
	return w.snapshot
}

// FindBlob returns the blob with hash, or nil when the content is new.
func (w *SnapshotWriter) FindBlob(ctx context.Context, hash string) (*models.Blob, error) {
	row := w.tx.QueryRowContext(ctx, `SELECT `+blobColumns+` FROM blobs WHERE hash = ?`, normalizeHash(hash))
	return scanBlob(row)
}

// AddBlob inserts blob unless its hash is already known and returns the
// canonical row. An existing row keeps its original source path.
func (w *SnapshotWriter) AddBlob(ctx context.Context, blob *models.Blob) (*models.Blob, bool, error) {
	if blob == nil {
		return nil, false, fmt.Errorf("blob is required")
	}
	blob.Hash = normalizeHash(blob.Hash)
	if blob.Hash == "" {
		return nil, false, fmt.Errorf("hash is required")
	}
	if strings.TrimSpace(blob.SourcePath) == "" {
		return nil, false, fmt.Errorf("source_path is required")
	}
	if strings.TrimSpace(blob.BlobKey) == "" {
		return nil, false, fmt.Errorf("blob_key is required")
	}
	if blob.SizeBytes < 0 {
		return nil, false, fmt.Errorf("size_bytes must be >= 0")
	}
	if blob.StorageBackend == "" {
		blob.StorageBackend = models.BackendSource
	}
	if blob.CreatedAt.IsZero() {
		blob.CreatedAt = time.Now().UTC()
	}

	res, err := w.tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO blobs (hash, source_path, size_bytes, storage_backend, blob_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, blob.Hash, blob.SourcePath, blob.SizeBytes, string(blob.StorageBackend), blob.BlobKey, dbFormatTime(blob.CreatedAt))
	if err != nil {
		return nil, false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	canonical, err := w.FindBlob(ctx, blob.Hash)
	if err != nil {
		return nil, false, err
	}
	if canonical == nil {
		return nil, false, fmt.Errorf("blob not found after upsert")
	}
	return canonical, affected > 0, nil
}

// Link associates the snapshot with blobID at the root-relative path.
func (w *SnapshotWriter) Link(ctx context.Context, blobID int64, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("link path is required")
	}
	_, err := w.tx.ExecContext(ctx, "INSERT INTO snapshot_blobs (snapshot_id, blob_id, path) VALUES (?, ?, ?)", w.snapshot.ID, blobID, path)
	return err
}

// EnsureSetting is Store.EnsureSetting inside the build transaction, so a
// rolled back snapshot leaves no setting behind.
func (w *SnapshotWriter) EnsureSetting(ctx context.Context, key, value string) (string, error) {
	return ensureSetting(ctx, w.tx, key, value)
}

// Commit makes the snapshot visible.
func (w *SnapshotWriter) Commit() error {
	if w.done {
		return fmt.Errorf("snapshot %d already finished", w.snapshot.ID)
	}
	w.done = true
	return w.tx.Commit()
}

// Rollback discards the snapshot. It is a no-op after Commit.
func (w *SnapshotWriter) Rollback() error {
	if w.done {
		return nil
	}
	w.done = true
	return w.tx.Rollback()
}

// GetSnapshot returns a snapshot by id, or nil when absent.
func (s *Store) GetSnapshot(ctx context.Context, id int64) (*models.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, timestamp, root_path FROM snapshots WHERE id = ?", id)
	return scanSnapshot(row)
}

// ListSnapshotEntries returns every link of a snapshot with its blob, ordered by path.
func (s *Store) ListSnapshotEntries(ctx context.Context, id int64) ([]models.SnapshotEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sb.path, b.id, b.hash, b.source_path, b.size_bytes, b.storage_backend, b.blob_key, b.created_at
		FROM snapshot_blobs sb
		JOIN blobs b ON b.id = sb.blob_id
		WHERE sb.snapshot_id = ?
		ORDER BY sb.path ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.SnapshotEntry{}
	for rows.Next() {
		var entry models.SnapshotEntry
		var backend, createdAt string
		if err := rows.Scan(&entry.Path, &entry.Blob.ID, &entry.Blob.Hash, &entry.Blob.SourcePath, &entry.Blob.SizeBytes, &backend, &entry.Blob.BlobKey, &createdAt); err != nil {
			return nil, err
		}
		entry.Blob.StorageBackend = models.StorageBackend(backend)
		if entry.Blob.CreatedAt, err = dbParseTime(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ListSnapshotSummaries lists all snapshots in id order with per-snapshot totals.
func (s *Store) ListSnapshotSummaries(ctx context.Context) ([]models.SnapshotSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.timestamp, s.root_path,
			COUNT(sb.blob_id),
			COALESCE(SUM(LENGTH(b.source_path)), 0),
			COALESCE(SUM(b.size_bytes), 0)
		FROM snapshots s
		LEFT JOIN snapshot_blobs sb ON sb.snapshot_id = s.id
		LEFT JOIN blobs b ON b.id = sb.blob_id
		GROUP BY s.id, s.timestamp, s.root_path
		ORDER BY s.id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []models.SnapshotSummary{}
	for rows.Next() {
		var summary models.SnapshotSummary
		var timestamp string
		if err := rows.Scan(&summary.ID, &timestamp, &summary.RootPath, &summary.Files, &summary.ApproxSize, &summary.ContentBytes); err != nil {
			return nil, err
		}
		if summary.Timestamp, err = dbParseTime(timestamp); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// PruneSnapshot deletes a snapshot and its links, then moves every blob left
// without links into the reclaim queue and deletes its row, all in one
// transaction. Physical bytes are untouched; see ListReclaims.
func (s *Store) PruneSnapshot(ctx context.Context, id int64) (_ PruneOutcome, err error) {
	var out PruneOutcome

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return out, err
	}
	defer func() {
		if err != nil || !out.Found {
			_ = tx.Rollback()
		}
	}()

	snap, err := scanSnapshot(tx.QueryRowContext(ctx, "SELECT id, timestamp, root_path FROM snapshots WHERE id = ?", id))
	if err != nil {
		return out, err
	}
	if snap == nil {
		return out, nil
	}

	if err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshot_blobs WHERE snapshot_id = ?", id).Scan(&out.Links); err != nil {
		return out, err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM snapshots WHERE id = ?", id); err != nil {
		return out, err
	}

	orphaned, err := listOrphanedBlobsTx(ctx, tx)
	if err != nil {
		return out, err
	}

	queuedAt := dbFormatTime(time.Now().UTC())
	for _, blob := range orphaned {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO reclaim_queue (blob_hash, storage_backend, blob_key, attempts, queued_at)
			VALUES (?, ?, ?, 0, ?)
		`, blob.Hash, string(blob.StorageBackend), blob.BlobKey, queuedAt); err != nil {
			return out, err
		}
		if _, err = tx.ExecContext(ctx, "DELETE FROM blobs WHERE id = ?", blob.ID); err != nil {
			return out, err
		}
	}

	if err = tx.Commit(); err != nil {
		return out, err
	}

	out.Found = true
	out.Snapshot = *snap
	out.Orphaned = orphaned
	return out, nil
}

func listOrphanedBlobsTx(ctx context.Context, tx *sql.Tx) ([]models.Blob, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT b.id, b.hash, b.source_path, b.size_bytes, b.storage_backend, b.blob_key, b.created_at
		FROM blobs b
		LEFT JOIN snapshot_blobs sb ON sb.blob_id = b.id
		WHERE sb.blob_id IS NULL
		ORDER BY b.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blobs := []models.Blob{}
	for rows.Next() {
		blob, err := scanBlob(rows)
		if err != nil {
			return nil, err
		}
		if blob != nil {
			blobs = append(blobs, *blob)
		}
	}
	return blobs, rows.Err()
}

func scanSnapshot(scanner interface {
	Scan(dest ...any) error
}) (*models.Snapshot, error) {
	snap := models.Snapshot{}
	var timestamp string
	if err := scanner.Scan(&snap.ID, &timestamp, &snap.RootPath); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	parsed, err := dbParseTime(timestamp)
	if err != nil {
		return nil, err
	}
	snap.Timestamp = parsed
	return &snap, nil
}
