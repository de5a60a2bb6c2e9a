package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/latentcache/core"
	"github.com/poiesic/latentcache/storage"
)

// Writer persists batches of (cache key, embedding) pairs to the backend.
// A batch is one logical operation for efficiency, not an atomic unit:
// partial writes are acceptable because a later run rediscovers and
// rewrites the missing keys.
type Writer struct {
	backend    storage.DataBackend
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewWriter creates a batch writer with bounded retry at the storage
// boundary.
func NewWriter(backend storage.DataBackend, maxRetries int, retryDelay time.Duration, logger *slog.Logger) (*Writer, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		backend:    backend,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		logger:     logger.With("component", "writer"),
	}, nil
}

// WriteBatch serializes and persists all pairs, preserving the key/
// embedding pairing by index. The backend call is retried with backoff;
// if all attempts fail the error propagates so the caller can surface it.
func (w *Writer) WriteBatch(ctx context.Context, keys []string, embeddings []core.Embedding) error {
	if len(keys) != len(embeddings) {
		return fmt.Errorf("%w: %d keys, %d embeddings", ErrBatchMismatch, len(keys), len(embeddings))
	}
	if len(keys) == 0 {
		return nil
	}

	payloads := storage.MarshalEmbeddings(embeddings)

	err := RetryWithBackoff(ctx, func() error {
		return w.backend.WriteBatch(ctx, keys, payloads)
	}, w.maxRetries, w.retryDelay)
	if err != nil {
		return fmt.Errorf("failed to persist batch of %d entries after %d attempts: %w", len(keys), w.maxRetries, err)
	}

	w.logger.Debug("batch persisted", "entries", len(keys))
	return nil
}
