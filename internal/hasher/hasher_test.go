package hasher

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapvault/internal/models"
)

func TestFileKnownDigests(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("Hello, World!"), 0o644))

	tests := []struct {
		algo models.HashAlgorithm
		want string
	}{
		{algo: models.HashSHA256, want: "dffd6021bb2bd5b0af676290809ec3a53191dd81c7f70a4b28688a362182986f"},
		{algo: models.HashBLAKE2b256, want: "511bc81dde11180838c562c82bb35f3223f46061ebde4a955c27b3f489cf1e03"},
	}
	for _, tt := range tests {
		t.Run(string(tt.algo), func(t *testing.T) {
			h, err := New(tt.algo, 0)
			require.NoError(t, err)

			digest, n, err := h.File(path)
			require.NoError(t, err)
			assert.Equal(t, int64(13), n)
			assert.Equal(t, tt.want, digest)
		})
	}
}

func TestDigestIgnoresMetadata(t *testing.T) {
	dir := t.TempDir()
	payload := make([]byte, 256)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	first := filepath.Join(dir, "one.bin")
	second := filepath.Join(dir, "nested", "two.bin")
	require.NoError(t, os.MkdirAll(filepath.Dir(second), 0o755))
	require.NoError(t, os.WriteFile(first, payload, 0o644))
	require.NoError(t, os.WriteFile(second, payload, 0o600))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(second, old, old))

	h, err := New(models.HashSHA256, 7)
	require.NoError(t, err)

	a, _, err := h.File(first)
	require.NoError(t, err)
	b, _, err := h.File(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, n, err := h.Reader(bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, a, c)
	assert.Equal(t, int64(len(payload)), n)
}

func TestFileMissing(t *testing.T) {
	h, err := New(models.HashSHA256, 0)
	require.NoError(t, err)

	_, _, err = h.File(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewRejectsUnknownAlgorithm(t *testing.T) {
	_, err := New("md5", 0)
	require.Error(t, err)
}
