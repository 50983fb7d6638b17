package vault

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument       = 1000
	ErrCodeInvalidPath           = 1001
	ErrCodeHashAlgorithmMismatch = 1002

	// Domain state (2xxx)
	ErrCodeSnapshotNotFound = 2001

	// Internal/system (4xxx)
	ErrCodeInternal     = 4001
	ErrCodeStoreFailure = 4002
	ErrCodeIO           = 4101
)
