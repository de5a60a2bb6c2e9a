package storage

import (
	"errors"
	"testing"

	"github.com/poiesic/latentcache/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalEmbedding(t *testing.T) {
	tests := []struct {
		name      string
		embedding core.Embedding
	}{
		{"latent tensor", core.Embedding{Shape: []int{4, 2, 2}, Data: []float32{
			0.5, -0.25, 1.0, 0.0, 2.5, -3.75, 0.125, 8.0,
			-0.5, 0.25, -1.0, 0.0, -2.5, 3.75, -0.125, -8.0,
		}}},
		{"flat vector", core.Embedding{Shape: []int{3}, Data: []float32{1, 2, 3}}},
		{"empty dimension", core.Embedding{Shape: []int{0}, Data: []float32{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalEmbedding(tt.embedding)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalEmbedding(data)
			require.NoError(t, err)
			assert.Equal(t, tt.embedding.Shape, decoded.Shape)
			assert.Equal(t, tt.embedding.Data, decoded.Data)
		})
	}
}

func TestUnmarshalEmbedding_Invalid(t *testing.T) {
	full := MarshalEmbedding(core.Embedding{Shape: []int{4}, Data: []float32{1, 2, 3, 4}})

	tests := []struct {
		name string
		data []byte
	}{
		{"truncated", full[:len(full)/2]},
		{"trailing garbage", append(append([]byte{}, full...), 0xFF)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalEmbedding(tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSerializationFailed))
		})
	}
}

func TestUnmarshalEmbedding_CorruptLengthPrefix(t *testing.T) {
	// Shape declares 1<<20 dimensions but the buffer ends right after the
	// prefix; decoding must fail as truncated, not allocate the slice.
	data := []byte{0x80, 0x80, 0x40}

	_, err := UnmarshalEmbedding(data)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSerializationFailed))
	assert.True(t, errors.Is(err, ErrTruncatedData))
}

func TestMarshalEmbeddings_PreservesOrder(t *testing.T) {
	batch := []core.Embedding{
		{Shape: []int{1}, Data: []float32{1}},
		{Shape: []int{1}, Data: []float32{2}},
		{Shape: []int{1}, Data: []float32{3}},
	}

	payloads := MarshalEmbeddings(batch)
	require.Len(t, payloads, 3)

	for i, payload := range payloads {
		decoded, err := UnmarshalEmbedding(payload)
		require.NoError(t, err)
		assert.Equal(t, batch[i].Data, decoded.Data)
	}
}
