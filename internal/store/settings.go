package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SettingHashAlgorithm pins the digest algorithm a store was created with.
const SettingHashAlgorithm = "hash_algorithm"

// GetSetting returns a stored setting and whether it exists.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM store_settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// EnsureSetting stores value for key unless a value is already recorded, and
// returns the value in effect.
func (s *Store) EnsureSetting(ctx context.Context, key, value string) (string, error) {
	return ensureSetting(ctx, s.db, key, value)
}

type execQueryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func ensureSetting(ctx context.Context, db execQueryer, key, value string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("setting key is required")
	}
	if _, err := db.ExecContext(ctx, "INSERT OR IGNORE INTO store_settings (key, value) VALUES (?, ?)", key, value); err != nil {
		return "", err
	}
	var stored string
	if err := db.QueryRowContext(ctx, "SELECT value FROM store_settings WHERE key = ?", key).Scan(&stored); err != nil {
		return "", fmt.Errorf("read setting %s: %w", key, err)
	}
	return stored, nil
}
