package store

import (
	"context"
	"database/sql"

	"snapvault/internal/models"
)

// ListReclaims pages through queued physical deletions in id order.
func (s *Store) ListReclaims(ctx context.Context, afterID int64, limit int) ([]models.Reclaim, error) {
	query := `SELECT id, blob_hash, storage_backend, blob_key, attempts, last_error, queued_at
		FROM reclaim_queue WHERE id > ? ORDER BY id ASC`
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

	out := []models.Reclaim{}
	for rows.Next() {
		var r models.Reclaim
		var backend, queuedAt string
		var lastError sql.NullString
		if err := rows.Scan(&r.ID, &r.BlobHash, &backend, &r.BlobKey, &r.Attempts, &lastError, &queuedAt); err != nil {
			return nil, err
		}
		r.StorageBackend = models.StorageBackend(backend)
		r.LastError = lastError.String
		if r.QueuedAt, err = dbParseTime(queuedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CompleteReclaim removes a queue entry once its bytes are gone.
func (s *Store) CompleteReclaim(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM reclaim_queue WHERE id = ?", id)
	return err
}

// FailReclaim records a failed deletion attempt; the entry stays queued.
func (s *Store) FailReclaim(ctx context.Context, id int64, reason string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE reclaim_queue SET attempts = attempts + 1, last_error = ? WHERE id = ?", nullIfEmpty(reason), id)
	return err
}
