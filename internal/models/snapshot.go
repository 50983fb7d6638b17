package models

import "time"

// Snapshot is a point-in-time capture of a directory tree.
type Snapshot struct {
	ID        int64     `json:"id" yaml:"id"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	RootPath  string    `json:"root_path" yaml:"root_path"`
}

// SnapshotEntry is one file of a snapshot: a link plus the blob it resolves to.
type SnapshotEntry struct {
	// Path is slash-separated and relative to the snapshot root.
	Path string `json:"path" yaml:"path"`
	Blob Blob   `json:"blob" yaml:"blob"`
}

// SnapshotSummary is one listing row.
type SnapshotSummary struct {
	Snapshot `yaml:",inline"`

	Files        int64 `json:"files" yaml:"files"`
	// ApproxSize sums the recorded source path lengths of the linked blobs.
	// It is a proxy, not a content byte count.
	ApproxSize   int64 `json:"approx_size" yaml:"approx_size"`
	ContentBytes int64 `json:"content_bytes" yaml:"content_bytes"`
}

// Reclaim is one queued physical deletion left behind by a prune.
type Reclaim struct {
	ID             int64          `json:"id" yaml:"id"`
	BlobHash       string         `json:"blob_hash" yaml:"blob_hash"`
	StorageBackend StorageBackend `json:"storage_backend" yaml:"storage_backend"`
	BlobKey        string         `json:"blob_key" yaml:"blob_key"`
	Attempts       int            `json:"attempts" yaml:"attempts"`
	LastError      string         `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	QueuedAt       time.Time      `json:"queued_at" yaml:"queued_at"`
}
