// Package vault implements the snapshot engine: building, restoring,
// listing, pruning and checking content-addressed snapshots.
package vault

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"snapvault/internal/blobstore"
	"snapvault/internal/hasher"
	"snapvault/internal/models"
	"snapvault/internal/store"
)

const defaultBatchSize = 500

// Options configures an Engine.
type Options struct {
	Mode          models.StorageMode
	HashAlgorithm models.HashAlgorithm
	ChunkSize     int
	// BatchSize bounds each page read while sweeping or checking.
	BatchSize     int
	// Exclude lists paths never indexed, e.g. the database and CAS tree.
	Exclude       []string
	Logger        *slog.Logger
	Now           func() time.Time
}

// Engine runs the five snapshot operations against one metadata store.
type Engine struct {
	store    store.SnapshotStore
	backends blobstore.Registry
	writer   blobstore.Writer
	hasher   *hasher.Hasher

	mode      models.StorageMode
	batchSize int
	exclude   map[string]struct{}
	logger    *slog.Logger
	now       func() time.Time
}

// New constructs an Engine. backends must contain the backend new blobs are
// written to in opts.Mode; in cas mode that backend must be a blobstore.Writer.
func New(st store.SnapshotStore, backends blobstore.Registry, opts Options) (*Engine, error) {
	if st == nil {
		return nil, internalError(fmt.Errorf("snapshot store is required"))
	}
	if opts.Mode == "" {
		opts.Mode = models.StorageModeIndex
	}
	if !models.IsValidStorageMode(opts.Mode) {
		return nil, invalidArgument(fmt.Errorf("invalid storage mode %q", opts.Mode), ErrCodeInvalidArgument)
	}
	if opts.HashAlgorithm == "" {
		opts.HashAlgorithm = models.DefaultHashAlgorithm
	}
	h, err := hasher.New(opts.HashAlgorithm, opts.ChunkSize)
	if err != nil {
		return nil, invalidArgument(err, ErrCodeInvalidArgument)
	}

	e := &Engine{
		store:     st,
		backends:  backends,
		hasher:    h,
		mode:      opts.Mode,
		batchSize: opts.BatchSize,
		exclude:   map[string]struct{}{},
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if e.batchSize <= 0 {
		e.batchSize = defaultBatchSize
	}
	if e.now == nil {
		e.now = time.Now
	}
	for _, p := range opts.Exclude {
		if p = canonicalPath(p); p != "" {
			e.exclude[p] = struct{}{}
		}
	}

	bs, err := backends.Lookup(opts.Mode.Backend())
	if err != nil {
		return nil, invalidArgument(err, ErrCodeInvalidArgument)
	}
	if opts.Mode == models.StorageModeCAS {
		w, ok := bs.(blobstore.Writer)
		if !ok {
			return nil, invalidArgument(fmt.Errorf("backend %q does not accept writes", opts.Mode.Backend()), ErrCodeInvalidArgument)
		}
		e.writer = w
	}
	return e, nil
}

// Mode reports the storage mode new blobs are written with.
func (e *Engine) Mode() models.StorageMode {
	return e.mode
}

// HashAlgorithm reports the configured digest.
func (e *Engine) HashAlgorithm() models.HashAlgorithm {
	return e.hasher.Algorithm()
}

func (e *Engine) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return slog.Default().With("component", "vault")
}

// checkHashAlgorithm refuses to work on a store created with another digest.
// A store without a recorded algorithm passes.
func (e *Engine) checkHashAlgorithm(ctx context.Context) error {
	stored, ok, err := e.store.GetSetting(ctx, store.SettingHashAlgorithm)
	if err != nil {
		return storeFailure("read store settings", err)
	}
	if !ok {
		return nil
	}
	return e.compareHashAlgorithm(stored)
}

// pinHashAlgorithm records the configured algorithm on a store that has none,
// as part of the snapshot being built.
func (e *Engine) pinHashAlgorithm(ctx context.Context, w *store.SnapshotWriter) error {
	stored, err := w.EnsureSetting(ctx, store.SettingHashAlgorithm, string(e.hasher.Algorithm()))
	if err != nil {
		return storeFailure("pin hash algorithm", err)
	}
	return e.compareHashAlgorithm(stored)
}

func (e *Engine) compareHashAlgorithm(stored string) error {
	configured := string(e.hasher.Algorithm())
	if stored != configured {
		return invalidArgument(fmt.Errorf("store uses hash algorithm %s but %s is configured", stored, configured), ErrCodeHashAlgorithmMismatch)
	}
	return nil
}

func (e *Engine) isExcluded(path string) bool {
	if len(e.exclude) == 0 {
		return false
	}
	_, ok := e.exclude[filepath.Clean(path)]
	return ok
}

// canonicalPath returns an absolute, symlink-free form of p when possible.
func canonicalPath(p string) string {
	if p == "" {
		return ""
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	// Not created yet: resolve the parent so it still matches walked paths.
	if parent, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(parent, filepath.Base(abs))
	}
	return abs
}

func statDir(path string) (string, error) {
	root := canonicalPath(path)
	if root == "" {
		return "", invalidArgument(fmt.Errorf("invalid directory %q", path), ErrCodeInvalidPath)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", invalidArgument(fmt.Errorf("snapshot root: %w", err), ErrCodeInvalidPath)
	}
	if !info.IsDir() {
		return "", invalidArgument(fmt.Errorf("snapshot root %s is not a directory", root), ErrCodeInvalidPath)
	}
	return root, nil
}
