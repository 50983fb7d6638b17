package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"

	"snapvault/internal/models"
)

const blobColumns = "id, hash, source_path, size_bytes, storage_backend, blob_key, created_at"

// GetBlobByHash returns one blob by digest, or nil when absent.
func (s *Store) GetBlobByHash(ctx context.Context, hash string) (*models.Blob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+blobColumns+` FROM blobs WHERE hash = ?`, normalizeHash(hash))
	return scanBlob(row)
}

// ListBlobs pages through blobs in id order, starting after afterID.
// A non-positive limit returns every remaining row.
func (s *Store) ListBlobs(ctx context.Context, afterID int64, limit int) ([]models.Blob, error) {
	query := `SELECT ` + blobColumns + ` FROM blobs WHERE id > ? ORDER BY id ASC`
	args := []any{afterID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return blobs, nil
}

// BlobKeyInUse reports whether backend/key is still needed: a live blob row
// reads from it, or, for source keys, a surviving snapshot observed a file at
// that path and restore may fall back to it.
func (s *Store) BlobKeyInUse(ctx context.Context, backend models.StorageBackend, key string) (bool, error) {
	query := "SELECT EXISTS (SELECT 1 FROM blobs WHERE storage_backend = ? AND blob_key = ?)"
	args := []any{string(backend), key}
	if backend == models.BackendSource {
		query += ` OR EXISTS (
			SELECT 1 FROM snapshot_blobs sb
			JOIN snapshots s ON s.id = sb.snapshot_id
			WHERE ` + observedPathSQL + ` = ?)`
		args = append(args, filepath.ToSlash(key))
	}

	var inUse bool
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&inUse); err != nil {
		return false, err
	}
	return inUse, nil
}

// observedPathSQL rebuilds the absolute slash-separated path a link was
// captured from.
const observedPathSQL = `CASE WHEN RTRIM(REPLACE(s.root_path, '\', '/'), '/') = ''
	THEN '/' || sb.path
	ELSE RTRIM(REPLACE(s.root_path, '\', '/'), '/') || '/' || sb.path END`

func scanBlob(scanner interface {
	Scan(dest ...any) error
}) (*models.Blob, error) {
	blob := models.Blob{}
	var backend, createdAt string

	err := scanner.Scan(&blob.ID, &blob.Hash, &blob.SourcePath, &blob.SizeBytes, &backend, &blob.BlobKey, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	blob.StorageBackend = models.StorageBackend(backend)

	parsedCreated, err := dbParseTime(createdAt)
	if err != nil {
		return nil, err
	}
	blob.CreatedAt = parsedCreated

	return &blob, nil
}

func normalizeHash(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}
