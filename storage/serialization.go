// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"errors"
	"fmt"

	"github.com/poiesic/latentcache/core"
)

// MarshalEmbedding serializes an Embedding to bytes.
func MarshalEmbedding(e core.Embedding) []byte {
	buf := make([]byte, core.TensorMUS.Size(e))
	core.TensorMUS.Marshal(e, buf)
	return buf
}

// UnmarshalEmbedding deserializes an Embedding from bytes. A payload
// whose length prefixes outrun the buffer reports ErrTruncatedData in
// addition to ErrSerializationFailed.
func UnmarshalEmbedding(data []byte) (core.Embedding, error) {
	e, n, err := core.TensorMUS.Unmarshal(data)
	if err != nil {
		if errors.Is(err, core.ErrTruncatedBuffer) {
			return core.Embedding{}, fmt.Errorf("%w: %w: %w", ErrSerializationFailed, ErrTruncatedData, err)
		}
		return core.Embedding{}, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if n != len(data) {
		return core.Embedding{}, fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, len(data)-n)
	}
	return e, nil
}

// MarshalEmbeddings serializes a slice of embeddings, one payload per
// embedding, preserving order. Used to prepare a batch for WriteBatch.
func MarshalEmbeddings(embeddings []core.Embedding) [][]byte {
	payloads := make([][]byte, len(embeddings))
	for i, e := range embeddings {
		payloads[i] = MarshalEmbedding(e)
	}
	return payloads
}
