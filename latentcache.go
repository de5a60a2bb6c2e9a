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


package latentcache

import (
	"context"
	"io"
	"log/slog"

	"github.com/poiesic/latentcache/cache"
	"github.com/poiesic/latentcache/core"
	"github.com/poiesic/latentcache/storage"
	"github.com/poiesic/latentcache/transform"
)

// Cache ties a data backend, a transform engine, and an image preparer
// into the embedding cache pipeline. It is the package's public entry
// point for training-loop collaborators.
type Cache struct {
	backend storage.DataBackend
	encoder *cache.Encoder
	config  *cache.Config
	logger  *slog.Logger
}

// CacheOption configures a Cache.
type CacheOption func(*cacheOptions)

type cacheOptions struct {
	config   *cache.Config
	progress io.Writer
	logger   *slog.Logger
}

// WithConfig supplies a pipeline configuration. Defaults to
// cache.DefaultConfig().
func WithConfig(config *cache.Config) CacheOption {
	return func(o *cacheOptions) {
		o.config = config
	}
}

// WithProgress sets where run progress is written, typically os.Stderr.
func WithProgress(w io.Writer) CacheOption {
	return func(o *cacheOptions) {
		o.progress = w
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) CacheOption {
	return func(o *cacheOptions) {
		o.logger = logger
	}
}

// NewCache creates a cache over the given collaborators.
func NewCache(backend storage.DataBackend, engine transform.Engine, preparer transform.Preparer, opts ...CacheOption) (*Cache, error) {
	options := &cacheOptions{
		config:   cache.DefaultConfig(),
		progress: io.Discard,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	encoder, err := cache.NewEncoder(backend, engine, preparer, options.config,
		cache.WithLogger(options.logger),
		cache.WithProgress(options.progress))
	if err != nil {
		return nil, err
	}

	return &Cache{
		backend: backend,
		encoder: encoder,
		config:  options.config,
		logger:  options.logger,
	}, nil
}

// Encode computes (or loads, if already cached) the embedding for one
// source identity. Nothing is persisted.
func (c *Cache) Encode(ctx context.Context, identity string) (core.Embedding, error) {
	return c.encoder.Encode(ctx, identity)
}

// EncodeBatch computes embeddings for the given identities in one engine
// call, returning cache keys and embeddings in input order. Existing
// cache entries win over recomputed values. Nothing is persisted.
func (c *Cache) EncodeBatch(ctx context.Context, identities []string) ([]string, []core.Embedding, error) {
	return c.encoder.EncodeBatch(ctx, identities)
}

// PrepareBacklog discovers the backlog under sourceRoot and returns this
// worker's partition of it. The returned slice is immutable run state:
// produced once, passed to Run, never mutated thereafter.
func (c *Cache) PrepareBacklog(ctx context.Context, sourceRoot string) ([]string, error) {
	backlog, err := c.encoder.Discoverer().Discover(ctx, sourceRoot)
	if err != nil {
		return nil, err
	}
	return cache.PartitionForWorker(backlog, c.config.WorkerCount, c.config.WorkerIndex)
}

// RunToCompletion discovers, partitions, and encodes everything this
// worker is responsible for under sourceRoot. Safe to re-run: a second
// pass over an unchanged source set finds an empty backlog and performs
// no engine invocations.
func (c *Cache) RunToCompletion(ctx context.Context, sourceRoot string) (*core.RunReport, error) {
	backlog, err := c.encoder.Discoverer().Discover(ctx, sourceRoot)
	if err != nil {
		return nil, err
	}

	partition, err := cache.PartitionForWorker(backlog, c.config.WorkerCount, c.config.WorkerIndex)
	if err != nil {
		return nil, err
	}

	report, err := c.encoder.Run(ctx, sourceRoot, partition)
	if report != nil {
		report.Discovered = len(backlog)
	}
	return report, err
}

// Backend returns the underlying data backend.
func (c *Cache) Backend() storage.DataBackend {
	return c.backend
}

// Close closes the underlying backend.
func (c *Cache) Close() error {
	return c.backend.Close()
}
