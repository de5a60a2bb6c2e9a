package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/latentcache/cache"
)

// fileConfig mirrors the warm command's flags for latentcache.toml. Flags
// set on the command line always win over file values.
type fileConfig struct {
	Backend        string        `toml:"backend"`
	DataDir        string        `toml:"data_dir"`
	SourceRoot     string        `toml:"source_root"`
	CacheDir       string        `toml:"cache_dir"`
	BatchSize      int           `toml:"batch_size"`
	WorkerCount    int           `toml:"worker_count"`
	WorkerIndex    int           `toml:"worker_index"`
	DeleteCorrupt  bool          `toml:"delete_problematic"`
	HashIdentities bool          `toml:"hash_identities"`
	Resolution     int           `toml:"resolution"`
	Prefetch       int           `toml:"prefetch_workers"`
	MaxRetries     int           `toml:"max_retries"`
	RetryDelay     time.Duration `toml:"retry_delay"`
	ReportInterval int           `toml:"report_interval"`
	ShuffleSeed    int64         `toml:"shuffle_seed"`
	EngineHost     string        `toml:"engine_host"`
	ScalingFactor  float64       `toml:"scaling_factor"`
}

func loadFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg fileConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// resolveString returns the flag value when set, then the file value,
// then the flag default.
func resolveString(c *cli.Context, name, fileValue string) string {
	if c.IsSet(name) || fileValue == "" {
		return c.String(name)
	}
	return fileValue
}

func resolveInt(c *cli.Context, name string, fileValue int) int {
	if c.IsSet(name) || fileValue == 0 {
		return c.Int(name)
	}
	return fileValue
}

func resolveBool(c *cli.Context, name string, fileValue bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return fileValue || c.Bool(name)
}

func resolveDuration(c *cli.Context, name string, fileValue time.Duration) time.Duration {
	if c.IsSet(name) || fileValue == 0 {
		return c.Duration(name)
	}
	return fileValue
}

func resolveFloat(c *cli.Context, name string, fileValue float64) float64 {
	if c.IsSet(name) || fileValue == 0 {
		return c.Float64(name)
	}
	return fileValue
}

// buildPipelineConfig merges flags and an optional config file into a
// validated pipeline configuration.
func buildPipelineConfig(c *cli.Context, file *fileConfig) *cache.Config {
	if file == nil {
		file = &fileConfig{}
	}

	config := cache.DefaultConfig()
	config.CacheDir = resolveString(c, "cache-dir", file.CacheDir)
	config.WriteBatchSize = resolveInt(c, "batch-size", file.BatchSize)
	config.WorkerCount = resolveInt(c, "worker-count", file.WorkerCount)
	config.DeleteProblematicImages = resolveBool(c, "delete-problematic", file.DeleteCorrupt)
	config.HashIdentities = resolveBool(c, "hash-identities", file.HashIdentities)
	config.PrefetchWorkers = resolveInt(c, "prefetch-workers", file.Prefetch)
	config.MaxRetries = resolveInt(c, "max-retries", file.MaxRetries)
	config.RetryDelay = resolveDuration(c, "retry-delay", file.RetryDelay)
	config.ReportInterval = resolveInt(c, "report-interval", file.ReportInterval)

	if c.IsSet("worker-index") {
		config.WorkerIndex = c.Int("worker-index")
	} else {
		config.WorkerIndex = file.WorkerIndex
	}
	if c.IsSet("shuffle-seed") {
		config.ShuffleSeed = c.Int64("shuffle-seed")
	} else {
		config.ShuffleSeed = file.ShuffleSeed
	}

	return config
}
