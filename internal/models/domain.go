package models

import (
	"fmt"
	"strings"
)

// StorageMode selects where blob bytes live.
type StorageMode string

const (
	// StorageModeIndex records the live source path only; no bytes are copied.
	StorageModeIndex StorageMode = "index"
	// StorageModeCAS copies bytes into a managed content-addressed tree.
	StorageModeCAS StorageMode = "cas"
)

// StorageBackend names the backend a blob row reads its bytes from.
type StorageBackend string

const (
	BackendSource   StorageBackend = "source"
	BackendLocalCAS StorageBackend = "local_cas"
)

// HashAlgorithm names a supported 256-bit content digest.
type HashAlgorithm string

const (
	HashSHA256     HashAlgorithm = "sha256"
	HashBLAKE2b256 HashAlgorithm = "blake2b-256"

	DefaultHashAlgorithm = HashSHA256
)

// CheckStatus classifies one blob during an integrity check.
type CheckStatus string

const (
	CheckOK        CheckStatus = "ok"
	CheckMissing   CheckStatus = "missing"
	CheckCorrupted CheckStatus = "corrupted"
)

var validStorageModes = map[StorageMode]StorageBackend{
	StorageModeIndex: BackendSource,
	StorageModeCAS:   BackendLocalCAS,
}

var validHashAlgorithms = map[HashAlgorithm]struct{}{
	HashSHA256:     {},
	HashBLAKE2b256: {},
}

func IsValidStorageMode(mode StorageMode) bool {
	_, ok := validStorageModes[mode]
	return ok
}

func IsValidHashAlgorithm(algo HashAlgorithm) bool {
	_, ok := validHashAlgorithms[algo]
	return ok
}

func ParseStorageMode(raw string) (StorageMode, error) {
	value := StorageMode(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return StorageModeIndex, nil
	}
	if !IsValidStorageMode(value) {
		return "", fmt.Errorf("invalid storage mode: %s", value)
	}
	return value, nil
}

func ParseHashAlgorithm(raw string) (HashAlgorithm, error) {
	value := HashAlgorithm(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return DefaultHashAlgorithm, nil
	}
	if !IsValidHashAlgorithm(value) {
		return "", fmt.Errorf("invalid hash algorithm: %s", value)
	}
	return value, nil
}

// Backend returns the storage backend new blobs are written to in this mode.
func (m StorageMode) Backend() StorageBackend {
	return validStorageModes[m]
}
