package cache

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/latentcache/core"
	"github.com/poiesic/latentcache/storage"
)

func TestIsImage(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"photo.png", true},
		{"photo.jpg", true},
		{"photo.jpeg", true},
		{"PHOTO.PNG", true},
		{"photo.JpG", true},
		{"photo.gif", false},
		{"photo.png.txt", false},
		{"notes.txt", false},
		{"photo", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsImage(tt.name), tt.name)
	}
}

func newTestDiscoverer(t *testing.T, backend storage.DataBackend) *Discoverer {
	t.Helper()
	discoverer, err := NewDiscoverer(backend, NewKeyResolver("vae_cache", false), slog.Default())
	require.NoError(t, err)
	return discoverer
}

func TestNewDiscoverer_Validation(t *testing.T) {
	backend := setupBackend(t)
	resolver := NewKeyResolver("vae_cache", false)

	_, err := NewDiscoverer(nil, resolver, nil)
	assert.ErrorIs(t, err, ErrBackendRequired)

	_, err = NewDiscoverer(backend, nil, nil)
	assert.ErrorIs(t, err, ErrResolverRequired)
}

func TestDiscoverer_ListSourceImages(t *testing.T) {
	backend := setupBackend(t)
	discoverer := newTestDiscoverer(t, backend)
	ctx := context.Background()

	require.NoError(t, backend.WriteBatch(ctx,
		[]string{"images/b.png", "images/a.jpg", "images/notes.txt", "images/sub/c.jpeg"},
		[][]byte{{1}, {2}, {3}, {4}}))

	identities, err := discoverer.ListSourceImages(ctx, "images")
	require.NoError(t, err)

	assert.Equal(t, []string{"images/a.jpg", "images/b.png", "images/sub/c.jpeg"}, identities)
}

func TestDiscoverer_Discover(t *testing.T) {
	backend := setupBackend(t)
	discoverer := newTestDiscoverer(t, backend)
	ctx := context.Background()

	require.NoError(t, backend.WriteBatch(ctx,
		[]string{"images/a.png", "images/b.png", "images/c.png"},
		[][]byte{{1}, {2}, {3}}))

	t.Run("empty cache yields full backlog", func(t *testing.T) {
		backlog, err := discoverer.Discover(ctx, "images")
		require.NoError(t, err)
		assert.Equal(t, []string{"images/a.png", "images/b.png", "images/c.png"}, backlog)
	})

	t.Run("cached items are excluded", func(t *testing.T) {
		key, _ := discoverer.resolver.Resolve("images/b.png")
		payload := storage.MarshalEmbedding(core.Embedding{Shape: []int{1}, Data: []float32{1}})
		require.NoError(t, backend.WriteBatch(ctx, []string{key}, [][]byte{payload}))

		backlog, err := discoverer.Discover(ctx, "images")
		require.NoError(t, err)
		assert.Equal(t, []string{"images/a.png", "images/c.png"}, backlog)
	})

	t.Run("fully cached yields empty backlog", func(t *testing.T) {
		for _, identity := range []string{"images/a.png", "images/c.png"} {
			key, _ := discoverer.resolver.Resolve(identity)
			payload := storage.MarshalEmbedding(core.Embedding{Shape: []int{1}, Data: []float32{1}})
			require.NoError(t, backend.WriteBatch(ctx, []string{key}, [][]byte{payload}))
		}

		backlog, err := discoverer.Discover(ctx, "images")
		require.NoError(t, err)
		assert.Empty(t, backlog)
	})
}

// Discover and Cached must agree: an identity is in the backlog exactly
// when Cached reports false for it.
func TestDiscoverer_CachedAgreesWithDiscover(t *testing.T) {
	backend := setupBackend(t)
	discoverer := newTestDiscoverer(t, backend)
	ctx := context.Background()

	identities := []string{"images/a.png", "images/b.png", "images/c.png", "images/d.png"}
	payloads := [][]byte{{1}, {2}, {3}, {4}}
	require.NoError(t, backend.WriteBatch(ctx, identities, payloads))

	key, _ := discoverer.resolver.Resolve("images/c.png")
	payload := storage.MarshalEmbedding(core.Embedding{Shape: []int{1}, Data: []float32{1}})
	require.NoError(t, backend.WriteBatch(ctx, []string{key}, [][]byte{payload}))

	backlog, err := discoverer.Discover(ctx, "images")
	require.NoError(t, err)

	inBacklog := make(map[string]bool)
	for _, identity := range backlog {
		inBacklog[identity] = true
	}

	for _, identity := range identities {
		cached, err := discoverer.Cached(ctx, identity)
		require.NoError(t, err)
		assert.Equal(t, !cached, inBacklog[identity], identity)
	}
}

func TestDiscoverer_EmptySource(t *testing.T) {
	backend := setupBackend(t)
	discoverer := newTestDiscoverer(t, backend)

	backlog, err := discoverer.Discover(context.Background(), "images")
	require.NoError(t, err)
	assert.Empty(t, backlog)
}
