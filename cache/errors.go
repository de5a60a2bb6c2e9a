package cache

import "errors"

var (
	// ErrBackendRequired is returned when a constructor is missing its backend.
	ErrBackendRequired = errors.New("data backend required")

	// ErrEngineRequired is returned when a constructor is missing its engine.
	ErrEngineRequired = errors.New("transform engine required")

	// ErrPreparerRequired is returned when a constructor is missing its preparer.
	ErrPreparerRequired = errors.New("image preparer required")

	// ErrResolverRequired is returned when a constructor is missing its key resolver.
	ErrResolverRequired = errors.New("key resolver required")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrBatchMismatch indicates keys and embeddings of different lengths
	// were passed to the writer.
	ErrBatchMismatch = errors.New("keys and embeddings length mismatch")

	// ErrWorkerIndexRange indicates a worker index outside [0, workerCount).
	ErrWorkerIndexRange = errors.New("worker index out of range")
)
