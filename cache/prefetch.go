package cache

import (
	"context"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/latentcache/core"
)

// preparedItem is the unit flowing from the prefetch stage into the
// encode loop: an identity with either its prepared tensor, a cached
// marker, or the error that stopped its preparation.
type preparedItem struct {
	identity string
	cacheKey string
	tensor   core.Tensor
	cached   bool
	err      error
}

// startPrefetch reads and prepares items concurrently, delivering results
// over a bounded channel. This overlaps backend I/O and decode work with
// the engine's compute; correctness never depends on it. The channel is
// closed once every item has been delivered or the context is done.
func (e *Encoder) startPrefetch(ctx context.Context, items []string) (<-chan preparedItem, error) {
	pool, err := ants.NewPool(e.config.PrefetchWorkers)
	if err != nil {
		return nil, err
	}

	out := make(chan preparedItem, 2*e.config.WriteBatchSize)

	go func() {
		defer close(out)
		defer pool.Release()

		var wg sync.WaitGroup
		for _, identity := range items {
			if ctx.Err() != nil {
				break
			}

			wg.Add(1)
			submitErr := pool.Submit(func() {
				defer wg.Done()
				select {
				case out <- e.prepareOne(ctx, identity):
				case <-ctx.Done():
				}
			})
			if submitErr != nil {
				wg.Done()
				select {
				case out <- preparedItem{identity: identity, err: submitErr}:
				case <-ctx.Done():
				}
			}
		}
		wg.Wait()
	}()

	return out, nil
}

// prepareOne re-checks the cache, reads the source bytes, and decodes
// them into the engine's input tensor. The cheap existence re-check
// catches entries written by a concurrent worker or a previous partial
// run since discovery time.
func (e *Encoder) prepareOne(ctx context.Context, identity string) preparedItem {
	cacheKey, _ := e.resolver.Resolve(identity)
	item := preparedItem{identity: identity, cacheKey: cacheKey}

	cached, err := e.discoverer.Cached(ctx, identity)
	if err != nil {
		item.err = err
		return item
	}
	if cached {
		item.cached = true
		return item
	}

	data, err := e.backend.ReadBinary(ctx, identity)
	if err != nil {
		item.err = err
		return item
	}

	tensor, err := e.preparer.Prepare(data)
	if err != nil {
		item.err = err
		return item
	}

	item.tensor = tensor
	return item
}
