package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/latentcache/core"
)

func TestNewEngine_RequiresHost(t *testing.T) {
	_, err := NewEngine("", 0.18215)
	assert.ErrorIs(t, err, ErrEncodeRequest)
}

func TestEngine_EncodeBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/encode", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var request encodeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))

		response := encodeResponse{Embeddings: make([]tensorPayload, len(request.Tensors))}
		for i := range request.Tensors {
			response.Embeddings[i] = tensorPayload{Shape: []int{2}, Data: []float32{float32(i), float32(i + 1)}}
		}
		require.NoError(t, json.NewEncoder(w).Encode(response))
	}))
	defer server.Close()

	engine, err := NewEngine(server.URL, 0.18215)
	require.NoError(t, err)

	batch := []core.Tensor{
		{Shape: []int{1, 2}, Data: []float32{1, 2}},
		{Shape: []int{1, 2}, Data: []float32{3, 4}},
	}
	embeddings, err := engine.EncodeBatch(context.Background(), batch)
	require.NoError(t, err)
	require.Len(t, embeddings, 2)
	assert.Equal(t, []float32{0, 1}, embeddings[0].Data)
	assert.Equal(t, []float32{1, 2}, embeddings[1].Data)
	assert.InDelta(t, 0.18215, engine.ScalingFactor(), 1e-6)
}

func TestEngine_EncodeBatch_Empty(t *testing.T) {
	engine, err := NewEngine("http://localhost:1", 1.0)
	require.NoError(t, err)

	embeddings, err := engine.EncodeBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, embeddings)
}

func TestEngine_EncodeBatch_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	engine, err := NewEngine(server.URL, 1.0)
	require.NoError(t, err)

	_, err = engine.EncodeBatch(context.Background(), []core.Tensor{{Shape: []int{1}, Data: []float32{1}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncodeRequest)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestEngine_EncodeBatch_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := encodeResponse{Embeddings: []tensorPayload{{Shape: []int{1}, Data: []float32{1}}}}
		require.NoError(t, json.NewEncoder(w).Encode(response))
	}))
	defer server.Close()

	engine, err := NewEngine(server.URL, 1.0)
	require.NoError(t, err)

	batch := []core.Tensor{
		{Shape: []int{1}, Data: []float32{1}},
		{Shape: []int{1}, Data: []float32{2}},
	}
	_, err = engine.EncodeBatch(context.Background(), batch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "received 1 embeddings")
}

func TestEngine_EncodeBatch_InvalidEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Shape says two elements, data has one.
		response := encodeResponse{Embeddings: []tensorPayload{{Shape: []int{2}, Data: []float32{1}}}}
		require.NoError(t, json.NewEncoder(w).Encode(response))
	}))
	defer server.Close()

	engine, err := NewEngine(server.URL, 1.0)
	require.NoError(t, err)

	_, err = engine.EncodeBatch(context.Background(), []core.Tensor{{Shape: []int{1}, Data: []float32{1}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncodeRequest)
}

func TestEngine_EncodeBatch_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	engine, err := NewEngine(server.URL, 1.0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = engine.EncodeBatch(ctx, []core.Tensor{{Shape: []int{1}, Data: []float32{1}}})
	require.Error(t, err)
}
