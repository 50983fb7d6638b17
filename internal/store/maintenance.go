package store

import (
	"context"
	"fmt"
	"time"
)

// StoreInfo summarizes the metadata store.
type StoreInfo struct {
	SchemaVersion   int    `json:"schema_version" yaml:"schema_version"`
	HashAlgorithm   string `json:"hash_algorithm,omitempty" yaml:"hash_algorithm,omitempty"`
	Snapshots       int64  `json:"snapshots" yaml:"snapshots"`
	Blobs           int64  `json:"blobs" yaml:"blobs"`
	Links           int64  `json:"links" yaml:"links"`
	PendingReclaims int64  `json:"pending_reclaims" yaml:"pending_reclaims"`
}

// StoreInfo returns schema version and row counts.
func (s *Store) StoreInfo(ctx context.Context) (*StoreInfo, error) {
	info := &StoreInfo{}
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&info.SchemaVersion); err != nil {
		return nil, err
	}

	counts := []struct {
		table string
		dest  *int64
	}{
		{"snapshots", &info.Snapshots},
		{"blobs", &info.Blobs},
		{"snapshot_blobs", &info.Links},
		{"reclaim_queue", &info.PendingReclaims},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", c.table)).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("count %s: %w", c.table, err)
		}
	}

	algo, ok, err := s.GetSetting(ctx, SettingHashAlgorithm)
	if err != nil {
		return nil, err
	}
	if ok {
		info.HashAlgorithm = algo
	}
	return info, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func dbFormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func dbParseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}
