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


package cache

import (
	"context"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/poiesic/latentcache/storage"
)

// EntryPattern is the backend listing glob for cache entries.
const EntryPattern = "*" + CacheEntrySuffix

var imageExtensions = []string{".png", ".jpg", ".jpeg"}

// IsImage reports whether a file name carries an accepted image
// extension, case-insensitively.
func IsImage(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Discoverer computes the backlog: source identities with no corresponding
// cache entry. All methods are pure reads and safe to call repeatedly.
type Discoverer struct {
	backend  storage.DataBackend
	resolver *KeyResolver
	logger   *slog.Logger
}

// NewDiscoverer creates a discoverer over the given backend and resolver.
func NewDiscoverer(backend storage.DataBackend, resolver *KeyResolver, logger *slog.Logger) (*Discoverer, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	if resolver == nil {
		return nil, ErrResolverRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{
		backend:  backend,
		resolver: resolver,
		logger:   logger.With("component", "discoverer"),
	}, nil
}

// ListSourceImages enumerates all accepted source image identities under
// sourceRoot, sorted for deterministic downstream partitioning. Extension
// filtering happens here, with IsImage, so every backend lists the same
// set regardless of its glob dialect.
func (d *Discoverer) ListSourceImages(ctx context.Context, sourceRoot string) ([]string, error) {
	groups, err := d.backend.ListFiles(ctx, sourceRoot, "*")
	if err != nil {
		return nil, err
	}

	var identities []string
	for _, group := range groups {
		for _, name := range group.Files {
			if !IsImage(name) {
				continue
			}
			identities = append(identities, path.Join(group.Subdir, name))
		}
	}
	sort.Strings(identities)
	return identities, nil
}

// CachedKeys returns the set of cache keys currently present under the
// cache namespace. Tolerates an empty or missing namespace (first run).
func (d *Discoverer) CachedKeys(ctx context.Context) (map[string]struct{}, error) {
	d.logger.Debug("retrieving cache entry list", "cacheDir", d.resolver.CacheDir())

	groups, err := d.backend.ListFiles(ctx, d.resolver.CacheDir(), EntryPattern)
	if err != nil {
		return nil, err
	}

	keys := make(map[string]struct{})
	for _, group := range groups {
		for _, name := range group.Files {
			keys[path.Join(group.Subdir, name)] = struct{}{}
		}
	}
	return keys, nil
}

// Cached reports whether the identity already has a cache entry. This is
// the single membership predicate the whole pipeline uses: it resolves
// the key exactly as discovery does and asks the backend directly, so the
// in-loop re-check and the bulk discovery scan can never disagree on key
// derivation.
func (d *Discoverer) Cached(ctx context.Context, identity string) (bool, error) {
	cacheKey, _ := d.resolver.Resolve(identity)
	return d.backend.Exists(ctx, cacheKey)
}

// Discover returns the backlog for sourceRoot: every accepted source
// identity whose resolved cache key has no entry. Runs in
// O(|source| + |cache|) using a set membership test.
func (d *Discoverer) Discover(ctx context.Context, sourceRoot string) ([]string, error) {
	identities, err := d.ListSourceImages(ctx, sourceRoot)
	if err != nil {
		return nil, err
	}

	cached, err := d.CachedKeys(ctx)
	if err != nil {
		return nil, err
	}

	backlog := make([]string, 0, len(identities))
	for _, identity := range identities {
		cacheKey, _ := d.resolver.Resolve(identity)
		if _, ok := cached[cacheKey]; ok {
			continue
		}
		backlog = append(backlog, identity)
	}

	d.logger.Debug("backlog discovered",
		"source", len(identities), "cached", len(cached), "backlog", len(backlog))
	return backlog, nil
}
