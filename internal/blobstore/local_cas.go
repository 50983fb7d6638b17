package blobstore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"snapvault/internal/hasher"
	"snapvault/internal/models"
)

// LocalCAS stores blob bytes in a local content-addressed tree.
type LocalCAS struct {
	root string
	algo models.HashAlgorithm
}

// NewLocalCAS creates a local CAS rooted at root, keyed by algo digests.
func NewLocalCAS(root string, algo models.HashAlgorithm) (*LocalCAS, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("local cas root is required")
	}
	if !models.IsValidHashAlgorithm(algo) {
		return nil, fmt.Errorf("unsupported hash algorithm %q", algo)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, "tmp"), 0o755); err != nil {
		return nil, err
	}
	return &LocalCAS{root: abs, algo: algo}, nil
}

// Root returns the absolute CAS directory.
func (c *LocalCAS) Root() string {
	return c.root
}

// Put spools r into the CAS temp area while hashing it, then moves the file
// to its digest key. Content already present is left untouched.
func (c *LocalCAS) Put(ctx context.Context, r io.Reader) (BlobPutResult, error) {
	if c == nil {
		return BlobPutResult{}, fmt.Errorf("blob store is not configured")
	}
	if r == nil {
		return BlobPutResult{}, fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return BlobPutResult{}, err
	}

	tmpPath, digest, size, err := c.spool(r)
	if err != nil {
		return BlobPutResult{}, err
	}
	defer os.Remove(tmpPath)

	result := BlobPutResult{Digest: digest, SizeBytes: size, BlobKey: c.keyFromDigest(digest)}
	created, err := c.place(tmpPath, result.BlobKey)
	if err != nil {
		return BlobPutResult{}, err
	}
	result.Created = created
	return result, nil
}

// spool copies r into a synced temp file and returns its path and digest.
func (c *LocalCAS) spool(r io.Reader) (string, string, int64, error) {
	tmp, err := os.CreateTemp(filepath.Join(c.root, "tmp"), "put-*")
	if err != nil {
		return "", "", 0, err
	}
	fail := func(err error) (string, string, int64, error) {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", "", 0, err
	}

	h := hasher.NewDigest(c.algo)
	n, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		return fail(err)
	}
	return tmp.Name(), hex.EncodeToString(h.Sum(nil)), n, nil
}

// place renames tmpPath to key as a read-only object. It reports false when
// an object with that key already exists.
func (c *LocalCAS) place(tmpPath, key string) (bool, error) {
	dst := filepath.Join(c.root, filepath.FromSlash(key))
	switch _, err := os.Stat(dst); {
	case err == nil:
		return false, nil
	case !errors.Is(err, os.ErrNotExist):
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return false, err
	}
	if err := os.Chmod(tmpPath, 0o444); err != nil {
		return false, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		if _, statErr := os.Stat(dst); statErr == nil {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Open returns a reader for blob key content.
func (c *LocalCAS) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if c == nil {
		return nil, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := c.pathFromKey(key)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Delete removes a blob object. Missing files are ignored.
func (c *LocalCAS) Delete(ctx context.Context, key string) error {
	if c == nil {
		return fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := c.pathFromKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (c *LocalCAS) keyFromDigest(digest string) string {
	return fmt.Sprintf("%s/%s/%s/%s", c.algo, digest[0:2], digest[2:4], digest)
}

func (c *LocalCAS) pathFromKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("blob key is required")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("blob key must be relative")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || strings.Contains(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid blob key")
	}
	return filepath.Join(c.root, clean), nil
}

var _ Writer = (*LocalCAS)(nil)
