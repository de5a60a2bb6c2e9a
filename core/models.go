package core

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Tensor is a fixed-shape numeric tensor: a shape vector plus the flattened
// element data in row-major order.
type Tensor struct {
	Shape []int
	Data  []float32
}

// Embedding is the latent tensor produced by the transform engine for one
// source image, scaled by the engine's scaling factor at write time.
type Embedding = Tensor

// NumElements returns the number of elements implied by the shape.
// An empty shape yields 0.
func (t Tensor) NumElements() int {
	if len(t.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Clone returns a deep copy of the tensor.
func (t Tensor) Clone() Tensor {
	out := Tensor{
		Shape: make([]int, len(t.Shape)),
		Data:  make([]float32, len(t.Data)),
	}
	copy(out.Shape, t.Shape)
	copy(out.Data, t.Data)
	return out
}

// Scale multiplies every element by factor in place and returns the tensor.
func (t Tensor) Scale(factor float32) Tensor {
	for i := range t.Data {
		t.Data[i] *= factor
	}
	return t
}

// IdentityHash returns a short deterministic digest of a source identity
// using BLAKE2b hashing. Identical identities always produce identical
// digests, so the hash can be folded into cache keys to disambiguate
// same-named files from different source directories.
func IdentityHash(identity string) string {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(identity))
	return hex.EncodeToString(h.Sum(nil))
}

// FailureRecord captures one source item the pipeline could not process.
type FailureRecord struct {
	Identity string
	Reason   string
	Deleted  bool // whether the source item was removed from the backend
	At       time.Time
}

// RunReport summarizes one pipeline run over a source root.
type RunReport struct {
	Discovered int // backlog size at discovery time
	Assigned   int // items assigned to this worker after the secondary scan
	Skipped    int // items found already cached during the encode loop
	Encoded    int // embeddings computed and persisted
	Flushes    int // batch flush operations performed
	Failures   []FailureRecord
	Elapsed    time.Duration
}
