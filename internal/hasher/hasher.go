// Package hasher streams file content through a 256-bit digest.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"

	"snapvault/internal/models"
)

// DefaultChunkSize bounds each read from the underlying stream.
const DefaultChunkSize = 64 * 1024

// Hasher computes hex digests with one algorithm and a bounded read buffer.
type Hasher struct {
	algo      models.HashAlgorithm
	chunkSize int
}

// New returns a Hasher for algo. A non-positive chunkSize uses DefaultChunkSize.
func New(algo models.HashAlgorithm, chunkSize int) (*Hasher, error) {
	if !models.IsValidHashAlgorithm(algo) {
		return nil, fmt.Errorf("unsupported hash algorithm %q", algo)
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Hasher{algo: algo, chunkSize: chunkSize}, nil
}

// Algorithm reports the digest algorithm in use.
func (h *Hasher) Algorithm() models.HashAlgorithm {
	return h.algo
}

// NewDigest returns a fresh running digest for the configured algorithm.
func (h *Hasher) NewDigest() hash.Hash {
	return NewDigest(h.algo)
}

// Reader hashes r to EOF and returns the lowercase hex digest and byte count.
func (h *Hasher) Reader(r io.Reader) (string, int64, error) {
	d := h.NewDigest()
	buf := make([]byte, h.chunkSize)
	n, err := io.CopyBuffer(d, r, buf)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(d.Sum(nil)), n, nil
}

// File hashes the content at path. Only bytes matter; mode, times and the
// path itself do not influence the digest.
func (h *Hasher) File(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	digest, n, err := h.Reader(f)
	if err != nil {
		return "", n, fmt.Errorf("read %s: %w", path, err)
	}
	return digest, n, nil
}

// NewDigest returns a running digest for algo, defaulting to SHA-256.
func NewDigest(algo models.HashAlgorithm) hash.Hash {
	switch algo {
	case models.HashBLAKE2b256:
		// blake2b.New256 only fails for oversized keys.
		d, _ := blake2b.New256(nil)
		return d
	default:
		return sha256.New()
	}
}
