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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/poiesic/latentcache/core"
	"github.com/poiesic/latentcache/storage"
	"github.com/poiesic/latentcache/transform"
)

// Encoder runs the batched encode-and-persist loop over a worker's
// partition of the backlog.
type Encoder struct {
	backend    storage.DataBackend
	engine     transform.Engine
	preparer   transform.Preparer
	resolver   *KeyResolver
	discoverer *Discoverer
	policy     *FailurePolicy
	writer     *Writer
	config     *Config
	progress   io.Writer
	logger     *slog.Logger
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Encoder) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithProgress sets where progress output is written. Default is io.Discard.
func WithProgress(w io.Writer) Option {
	return func(e *Encoder) {
		if w != nil {
			e.progress = w
		}
	}
}

// NewEncoder creates an encoder over the given backend, engine, and
// preparer. The configuration is validated up front; a bad configuration
// is fatal, never discovered mid-run.
func NewEncoder(backend storage.DataBackend, engine transform.Engine, preparer transform.Preparer, config *Config, opts ...Option) (*Encoder, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	if engine == nil {
		return nil, ErrEngineRequired
	}
	if preparer == nil {
		return nil, ErrPreparerRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	e := &Encoder{
		backend:  backend,
		engine:   engine,
		preparer: preparer,
		config:   config,
		progress: io.Discard,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.resolver = NewKeyResolver(config.CacheDir, config.HashIdentities)

	discoverer, err := NewDiscoverer(backend, e.resolver, e.logger)
	if err != nil {
		return nil, err
	}
	e.discoverer = discoverer

	policy, err := NewFailurePolicy(backend, config.DeleteProblematicImages, e.logger)
	if err != nil {
		return nil, err
	}
	e.policy = policy

	writer, err := NewWriter(backend, config.MaxRetries, config.RetryDelay, e.logger)
	if err != nil {
		return nil, err
	}
	e.writer = writer

	return e, nil
}

// Resolver returns the encoder's key resolver.
func (e *Encoder) Resolver() *KeyResolver {
	return e.resolver
}

// Discoverer returns the encoder's backlog discoverer.
func (e *Encoder) Discoverer() *Discoverer {
	return e.discoverer
}

// Run processes a worker's partition against sourceRoot. The partition is
// first merged with any additional uncached items found by a fresh scan,
// keeping files created since discovery eligible within the same run. The
// merged list is shuffled and encoded in batches of WriteBatchSize, with
// a final partial flush for the remainder. Every item ends with exactly
// one cache entry or a recorded failure.
func (e *Encoder) Run(ctx context.Context, sourceRoot string, partition []string) (*core.RunReport, error) {
	startTime := time.Now()
	report := &core.RunReport{}
	e.policy.Reset()

	if err := e.backend.CreateDirectory(ctx, e.config.CacheDir); err != nil {
		return nil, fmt.Errorf("failed to create cache namespace: %w", err)
	}

	e.logger.Debug("beginning cache warm", "target", e.backend.DisplayName(), "sourceRoot", sourceRoot)

	items, err := e.mergeSecondaryScan(ctx, sourceRoot, partition)
	if err != nil {
		return nil, err
	}
	report.Assigned = len(items)

	e.shuffle(items)

	tracker := NewProgressTracker(e.progress, len(items), e.config.ReportInterval)
	tracker.Start()

	// Cancellation scoped to this run: an early return below must unblock
	// the prefetch workers and release their pool, not strand them on a
	// channel nobody drains.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prepared, err := e.startPrefetch(ctx, items)
	if err != nil {
		return nil, err
	}

	batchKeys := make([]string, 0, e.config.WriteBatchSize)
	batchTensors := make([]core.Tensor, 0, e.config.WriteBatchSize)

	for item := range prepared {
		tracker.Increment(1)

		if item.err != nil {
			e.policy.Handle(ctx, item.identity, item.err)
			continue
		}
		if item.cached {
			report.Skipped++
			continue
		}

		batchKeys = append(batchKeys, item.cacheKey)
		batchTensors = append(batchTensors, item.tensor)

		if len(batchTensors) == e.config.WriteBatchSize {
			if err := e.flush(ctx, batchKeys, batchTensors, report); err != nil {
				return report, err
			}
			batchKeys = batchKeys[:0]
			batchTensors = batchTensors[:0]
		}
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}

	// Flush the partial remainder exactly once.
	if len(batchTensors) > 0 {
		if err := e.flush(ctx, batchKeys, batchTensors, report); err != nil {
			return report, err
		}
	}

	tracker.Finish()
	report.Failures = e.policy.Records()
	report.Elapsed = time.Since(startTime)

	e.logger.Info("cache warm complete",
		"target", e.backend.DisplayName(),
		"assigned", report.Assigned,
		"encoded", report.Encoded,
		"skipped", report.Skipped,
		"failures", len(report.Failures),
		"elapsed", report.Elapsed.Round(time.Millisecond))
	return report, nil
}

// EncodeBatch prepares and encodes the given identities in one engine
// call, returning cache keys and scaled embeddings in input order. For
// any identity whose cache entry already exists, the stored value
// replaces the recomputed one, making concurrent writes of the same key
// idempotent and order-independent. Nothing is persisted.
func (e *Encoder) EncodeBatch(ctx context.Context, identities []string) ([]string, []core.Embedding, error) {
	if len(identities) == 0 {
		return nil, nil, nil
	}

	keys := make([]string, len(identities))
	tensors := make([]core.Tensor, len(identities))
	for i, identity := range identities {
		keys[i], _ = e.resolver.Resolve(identity)

		data, err := e.backend.ReadBinary(ctx, identity)
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", identity, err)
		}
		tensors[i], err = e.preparer.Prepare(data)
		if err != nil {
			return nil, nil, fmt.Errorf("preparing %s: %w", identity, err)
		}
	}

	embeddings, err := e.encodeTensors(ctx, tensors)
	if err != nil {
		return nil, nil, err
	}
	e.reconcileExisting(ctx, keys, embeddings)

	return keys, embeddings, nil
}

// Encode is the single-item convenience wrapping the batch path with a
// batch of one.
func (e *Encoder) Encode(ctx context.Context, identity string) (core.Embedding, error) {
	_, embeddings, err := e.EncodeBatch(ctx, []string{identity})
	if err != nil {
		return core.Embedding{}, err
	}
	return embeddings[0], nil
}

// mergeSecondaryScan combines the assigned partition with any uncached
// items a fresh filesystem scan turns up, deduplicated. Extra items may
// race with other workers; the existence re-check and existing-entry-wins
// rule make that harmless.
func (e *Encoder) mergeSecondaryScan(ctx context.Context, sourceRoot string, partition []string) ([]string, error) {
	seen := make(map[string]struct{}, len(partition))
	items := make([]string, 0, len(partition))
	for _, identity := range partition {
		if _, ok := seen[identity]; ok {
			continue
		}
		seen[identity] = struct{}{}
		items = append(items, identity)
	}

	backlog, err := e.discoverer.Discover(ctx, sourceRoot)
	if err != nil {
		return nil, fmt.Errorf("secondary backlog scan failed: %w", err)
	}
	for _, identity := range backlog {
		if _, ok := seen[identity]; ok {
			continue
		}
		seen[identity] = struct{}{}
		items = append(items, identity)
	}
	return items, nil
}

// shuffle randomizes processing order so workers racing on shared storage
// spread their reads instead of marching through the same prefix.
// Ordering is irrelevant to correctness.
func (e *Encoder) shuffle(items []string) {
	seed := e.config.ShuffleSeed
	if seed == 0 {
		seed = time.Now().UnixNano() + int64(e.config.WorkerIndex)
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}

// encodeTensors invokes the engine once for the whole batch and applies
// the scaling factor. A failed batch is retried once, since batched
// failures correlate with transient systemic conditions rather than a
// single item; a second failure aborts the enclosing batch.
func (e *Encoder) encodeTensors(ctx context.Context, tensors []core.Tensor) ([]core.Embedding, error) {
	var embeddings []core.Embedding
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = e.engine.EncodeBatch(ctx, tensors)
		return err
	}, 2, e.config.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("transform engine failed for batch of %d: %w", len(tensors), err)
	}

	if len(embeddings) != len(tensors) {
		return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(tensors), len(embeddings))
	}

	factor := e.engine.ScalingFactor()
	for i := range embeddings {
		embeddings[i] = embeddings[i].Scale(factor)
	}
	return embeddings, nil
}

// reconcileExisting overwrites recomputed values with on-disk values for
// any key that gained a cache entry mid-batch: existing entries win over
// recomputation, so the eventual stored value for a raced key is whichever
// was written first.
func (e *Encoder) reconcileExisting(ctx context.Context, keys []string, embeddings []core.Embedding) {
	for i, key := range keys {
		exists, err := e.backend.Exists(ctx, key)
		if err != nil || !exists {
			continue
		}
		data, err := e.backend.ReadBinary(ctx, key)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				e.logger.Warn("failed to read existing cache entry, keeping recomputed value", "key", key, "err", err)
			}
			continue
		}
		existing, err := storage.UnmarshalEmbedding(data)
		if err != nil {
			e.logger.Warn("failed to decode existing cache entry, keeping recomputed value", "key", key, "err", err)
			continue
		}
		embeddings[i] = existing
	}
}

// flush encodes one accumulated batch and persists it.
func (e *Encoder) flush(ctx context.Context, keys []string, tensors []core.Tensor, report *core.RunReport) error {
	embeddings, err := e.encodeTensors(ctx, tensors)
	if err != nil {
		return err
	}

	e.reconcileExisting(ctx, keys, embeddings)

	if err := e.writer.WriteBatch(ctx, keys, embeddings); err != nil {
		return err
	}

	report.Flushes++
	report.Encoded += len(keys)
	return nil
}
