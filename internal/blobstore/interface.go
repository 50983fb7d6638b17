package blobstore

import (
	"context"
	"fmt"
	"io"

	"snapvault/internal/models"
)

// BlobPutResult describes one persisted blob payload.
type BlobPutResult struct {
	Digest    string
	SizeBytes int64
	BlobKey   string
	// Created is false when the object was already stored.
	Created bool
}

// BlobStore reads and removes blob bytes by key.
type BlobStore interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Writer is a BlobStore that also accepts new content.
type Writer interface {
	BlobStore
	Put(ctx context.Context, r io.Reader) (BlobPutResult, error)
}

// Registry resolves the backend recorded on a blob row.
type Registry map[models.StorageBackend]BlobStore

// Lookup returns the store registered for backend.
func (r Registry) Lookup(backend models.StorageBackend) (BlobStore, error) {
	bs, ok := r[backend]
	if !ok || bs == nil {
		return nil, fmt.Errorf("storage backend %q is not configured", backend)
	}
	return bs, nil
}
