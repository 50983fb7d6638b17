package models

import "time"

// Blob is one distinct content instance, identified by its digest.
//
// SourcePath is the first path ever observed with this content and is never
// updated afterwards, even when later snapshots see the same bytes elsewhere.
type Blob struct {
	ID             int64          `json:"id" yaml:"id"`
	Hash           string         `json:"hash" yaml:"hash"`
	SourcePath     string         `json:"source_path" yaml:"source_path"`
	SizeBytes      int64          `json:"size_bytes" yaml:"size_bytes"`
	StorageBackend StorageBackend `json:"storage_backend" yaml:"storage_backend"`
	BlobKey        string         `json:"blob_key" yaml:"blob_key"`
	CreatedAt      time.Time      `json:"created_at" yaml:"created_at"`
}
