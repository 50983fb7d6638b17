package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"snapvault/internal/blobstore"
	"snapvault/internal/config"
	"snapvault/internal/models"
	"snapvault/internal/store"
	"snapvault/internal/vault"
)

// withEngine opens the store named by cfg, wires the blob backends and runs fn.
func withEngine(cfg *config.Config, fn func(*vault.Engine) error) error {
	if cfg == nil {
		return fmt.Errorf("config not initialized")
	}
	if cfg.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	mode, err := cfg.StorageMode()
	if err != nil {
		return err
	}
	algo, err := cfg.HashAlgorithm()
	if err != nil {
		return err
	}

	logger := slog.Default().With("component", "vault")

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return err
	}
	logger.Debug("opening database", "path", cfg.DBPath)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store %s: %w", cfg.DBPath, err)
	}
	defer st.Close()

	backends, err := openBackends(cfg, mode, algo)
	if err != nil {
		return err
	}

	engine, err := vault.New(st, backends, vault.Options{
		Mode:          mode,
		HashAlgorithm: algo,
		ChunkSize:     cfg.Storage.HashChunkBytes,
		BatchSize:     cfg.Prune.SweepBatchSize,
		Exclude:       excludedPaths(cfg),
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	return fn(engine)
}

// openBackends always registers the source backend. The CAS is registered
// when it is the write target or already holds objects from an earlier run.
func openBackends(cfg *config.Config, mode models.StorageMode, algo models.HashAlgorithm) (blobstore.Registry, error) {
	backends := blobstore.Registry{
		models.BackendSource: blobstore.NewSourceFiles(),
	}

	casRoot := cfg.CASRoot()
	_, statErr := os.Stat(casRoot)
	if mode == models.StorageModeCAS || statErr == nil {
		cas, err := blobstore.NewLocalCAS(casRoot, algo)
		if err != nil {
			return nil, fmt.Errorf("open blob store %s: %w", casRoot, err)
		}
		backends[models.BackendLocalCAS] = cas
	}
	return backends, nil
}

// excludedPaths keeps the store's own files out of snapshots of a tree
// that contains them.
func excludedPaths(cfg *config.Config) []string {
	return []string{
		cfg.DBPath,
		cfg.DBPath + "-wal",
		cfg.DBPath + "-shm",
		cfg.DBPath + "-journal",
		cfg.CASRoot(),
	}
}

func parseSnapshotID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid snapshot id %q", raw)
	}
	return id, nil
}
