package cache

import (
	"fmt"
	"time"

	"github.com/poiesic/latentcache/core"
)

const (
	// DefaultCacheDir is the default cache namespace within the backend.
	DefaultCacheDir = "vae_cache"

	// DefaultWriteBatchSize is the default number of embeddings computed
	// and persisted per transform-engine invocation.
	DefaultWriteBatchSize = 25
)

// Config holds configuration for the cache pipeline.
type Config struct {
	// CacheDir is the cache namespace: the backend directory or key
	// prefix under which all cache entries are stored.
	CacheDir string

	// WriteBatchSize is the number of images encoded and persisted per
	// transform-engine invocation.
	WriteBatchSize int

	// WorkerCount and WorkerIndex identify this process's slice of the
	// backlog. Both are supplied by the external process group.
	WorkerCount int
	WorkerIndex int

	// DeleteProblematicImages removes source items from the backend when
	// they cannot be decoded, so future runs do not re-attempt them.
	DeleteProblematicImages bool

	// HashIdentities folds a digest of the full source identity into each
	// cache key, disambiguating same-named files from different source
	// directories at the cost of key stability across dataset moves.
	HashIdentities bool

	// PrefetchWorkers is the number of concurrent read/decode workers
	// feeding the encode loop. Throughput only; correctness never depends
	// on it.
	PrefetchWorkers int

	// MaxRetries is the maximum number of attempts for storage writes
	// (and one extra attempt is always given to a failed engine batch).
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// ReportInterval is how often to report progress (number of items)
	ReportInterval int

	// ShuffleSeed seeds the processing-order shuffle. Zero means derive a
	// seed from the clock and worker index.
	ShuffleSeed int64
}

// DefaultConfig returns a Config with sensible defaults for a single worker.
func DefaultConfig() *Config {
	return &Config{
		CacheDir:        DefaultCacheDir,
		WriteBatchSize:  DefaultWriteBatchSize,
		WorkerCount:     1,
		WorkerIndex:     0,
		PrefetchWorkers: 4,
		MaxRetries:      3,
		RetryDelay:      1 * time.Second,
		ReportInterval:  100,
	}
}

// Validate checks the configuration. Errors wrap core.ErrInvalidConfig and
// are fatal at startup; the pipeline never starts with a bad config.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", core.ErrInvalidConfig)
	}
	if c.CacheDir == "" {
		return fmt.Errorf("%w: cache directory required", core.ErrInvalidConfig)
	}
	if c.WriteBatchSize <= 0 {
		return fmt.Errorf("%w: write batch size must be greater than 0", core.ErrInvalidConfig)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("%w: worker count must be greater than 0", core.ErrInvalidConfig)
	}
	if c.WorkerIndex < 0 || c.WorkerIndex >= c.WorkerCount {
		return fmt.Errorf("%w: worker index %d out of range [0,%d)", core.ErrInvalidConfig, c.WorkerIndex, c.WorkerCount)
	}
	if c.PrefetchWorkers <= 0 {
		return fmt.Errorf("%w: prefetch workers must be greater than 0", core.ErrInvalidConfig)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("%w: max retries must be greater than 0", core.ErrInvalidConfig)
	}
	return nil
}
