package mock

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
	"sync"

	"github.com/poiesic/latentcache/core"
)

// DefaultLatentShape is the embedding shape produced by the default
// deterministic behavior.
var DefaultLatentShape = []int{4, 8, 8}

// MockEngine is a test double for transform.Engine.
// It allows custom behavior injection via function fields.
type MockEngine struct {
	// EncodeBatchFunc is called by EncodeBatch if set.
	// If nil, uses default deterministic behavior.
	EncodeBatchFunc func(ctx context.Context, batch []core.Tensor) ([]core.Embedding, error)

	// Scaling is returned by ScalingFactor. Defaults to 1.0 when zero.
	Scaling float32

	mu         sync.Mutex
	callCount  int
	itemsSeen  int
	batchSizes []int
}

// NewMockEngine creates a mock engine with default deterministic behavior.
func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

// EncodeBatch generates deterministic embeddings derived from each input
// tensor's content, so the same image bytes always yield the same latent.
func (m *MockEngine) EncodeBatch(ctx context.Context, batch []core.Tensor) ([]core.Embedding, error) {
	m.mu.Lock()
	m.callCount++
	m.itemsSeen += len(batch)
	m.batchSizes = append(m.batchSizes, len(batch))
	m.mu.Unlock()

	if m.EncodeBatchFunc != nil {
		return m.EncodeBatchFunc(ctx, batch)
	}

	embeddings := make([]core.Embedding, len(batch))
	for i, tensor := range batch {
		embeddings[i] = deterministicLatent(tensor)
	}
	return embeddings, nil
}

// ScalingFactor returns the configured scaling, defaulting to 1.0.
func (m *MockEngine) ScalingFactor() float32 {
	if m.Scaling == 0 {
		return 1.0
	}
	return m.Scaling
}

// CallCount returns the number of EncodeBatch invocations.
func (m *MockEngine) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// ItemsSeen returns the total number of tensors passed across all calls.
func (m *MockEngine) ItemsSeen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.itemsSeen
}

// BatchSizes returns the size of each EncodeBatch call in order.
func (m *MockEngine) BatchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	sizes := make([]int, len(m.batchSizes))
	copy(sizes, m.batchSizes)
	return sizes
}

// Reset clears recorded calls and injected behavior.
func (m *MockEngine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.itemsSeen = 0
	m.batchSizes = nil
	m.EncodeBatchFunc = nil
}

// deterministicLatent creates a latent tensor seeded from the input data.
// It uses FNV hashing so the same input always produces the same output.
func deterministicLatent(tensor core.Tensor) core.Embedding {
	h := fnv.New32a()
	var scratch [4]byte
	for _, v := range tensor.Data {
		binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(v))
		h.Write(scratch[:])
	}
	seed := h.Sum32()

	n := 1
	for _, d := range DefaultLatentShape {
		n *= d
	}

	latent := core.Embedding{
		Shape: append([]int{}, DefaultLatentShape...),
		Data:  make([]float32, n),
	}
	for i := 0; i < n; i++ {
		// Simple pseudo-random generation based on seed and index
		seed = seed*1664525 + 1013904223 // LCG constants
		latent.Data[i] = float32(seed%2000)/1000.0 - 1.0
	}
	return latent
}
