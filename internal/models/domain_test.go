package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStorageMode(t *testing.T) {
	got, err := ParseStorageMode(" CAS ")
	require.NoError(t, err)
	assert.Equal(t, StorageModeCAS, got)

	got, err = ParseStorageMode("")
	require.NoError(t, err)
	assert.Equal(t, StorageModeIndex, got, "empty selects the default")

	_, err = ParseStorageMode("s3")
	assert.Error(t, err)
}

func TestParseHashAlgorithm(t *testing.T) {
	got, err := ParseHashAlgorithm("BLAKE2b-256")
	require.NoError(t, err)
	assert.Equal(t, HashBLAKE2b256, got)

	got, err = ParseHashAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, DefaultHashAlgorithm, got)

	_, err = ParseHashAlgorithm("md5")
	assert.Error(t, err)
}

func TestStorageModeBackend(t *testing.T) {
	assert.Equal(t, BackendSource, StorageModeIndex.Backend())
	assert.Equal(t, BackendLocalCAS, StorageModeCAS.Backend())
}
