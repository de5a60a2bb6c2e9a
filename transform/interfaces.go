package transform

import (
	"context"

	"github.com/poiesic/latentcache/core"
)

// Engine converts batches of prepared image tensors into latent embeddings.
// Implementations must be thread-safe for concurrent use.
type Engine interface {
	// EncodeBatch runs the expensive transform over a whole batch in one
	// call. The returned embeddings are in the same order as the input
	// tensors and are NOT yet scaled; callers apply ScalingFactor.
	// Returns an error if the batched computation fails as a whole.
	EncodeBatch(ctx context.Context, batch []core.Tensor) ([]core.Embedding, error)

	// ScalingFactor returns the fixed scalar applied to every embedding
	// after encoding, before persistence.
	ScalingFactor() float32
}

// Preparer converts raw image bytes into the tensor layout the engine
// expects. Implementations must be deterministic: the same bytes always
// produce the same tensor.
type Preparer interface {
	Prepare(data []byte) (core.Tensor, error)
}
