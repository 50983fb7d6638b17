package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// SourceFiles reads blob bytes straight from the live filesystem path they
// were indexed at. Keys are absolute paths.
//
// Nothing is copied, so Delete removes the user's original file.
type SourceFiles struct{}

// NewSourceFiles returns the index-only backend.
func NewSourceFiles() *SourceFiles {
	return &SourceFiles{}
}

// Open opens the file at key.
func (s *SourceFiles) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := sourcePath(key)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Delete removes the file at key. Missing files are ignored.
func (s *SourceFiles) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := sourcePath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func sourcePath(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("blob key is required")
	}
	if !filepath.IsAbs(key) {
		return "", fmt.Errorf("source blob key must be absolute: %s", key)
	}
	return filepath.Clean(key), nil
}

var _ BlobStore = (*SourceFiles)(nil)
