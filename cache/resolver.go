package cache

import (
	"path"
	"strings"

	"github.com/poiesic/latentcache/core"
)

// CacheEntrySuffix marks a stored item as a cached-embedding record.
const CacheEntrySuffix = ".emb"

// KeyResolver derives the cache key for a source identity. Resolution is
// pure and total: it depends only on the identity string and the configured
// cache namespace, never on item content or call order.
type KeyResolver struct {
	cacheDir       string
	hashIdentities bool
}

// NewKeyResolver creates a resolver placing keys under cacheDir.
// With hashIdentities set, a digest of the full identity is folded into
// the key so same-named files from different directories stop colliding.
func NewKeyResolver(cacheDir string, hashIdentities bool) *KeyResolver {
	return &KeyResolver{
		cacheDir:       cacheDir,
		hashIdentities: hashIdentities,
	}
}

// CacheDir returns the cache namespace this resolver writes under.
func (r *KeyResolver) CacheDir() string {
	return r.cacheDir
}

// Resolve returns the full cache key and the entry's base name for a
// source identity. The base name is the identity's file name with its
// directory and extension stripped and the cache-entry suffix appended.
// Two identities with identical base names collapse to the same key
// unless identity hashing is enabled.
func (r *KeyResolver) Resolve(identity string) (cacheKey, baseName string) {
	name := path.Base(strings.ReplaceAll(identity, "\\", "/"))
	if ext := path.Ext(name); ext != "" {
		name = name[:len(name)-len(ext)]
	}
	if r.hashIdentities {
		name += "-" + core.IdentityHash(identity)
	}
	baseName = name + CacheEntrySuffix
	return path.Join(r.cacheDir, baseName), baseName
}
