package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/latentcache/cache"
)

func writeTOML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "latentcache.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFileConfig(t *testing.T) {
	path := writeTOML(t, `
backend = "badger"
cache_dir = "latents"
batch_size = 64
worker_count = 4
worker_index = 2
delete_problematic = true
engine_host = "http://encoder:8090"
scaling_factor = 0.13025
`)

	cfg, err := loadFileConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "badger", cfg.Backend)
	assert.Equal(t, "latents", cfg.CacheDir)
	assert.Equal(t, 64, cfg.BatchSize)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 2, cfg.WorkerIndex)
	assert.True(t, cfg.DeleteCorrupt)
	assert.Equal(t, "http://encoder:8090", cfg.EngineHost)
	assert.InDelta(t, 0.13025, cfg.ScalingFactor, 1e-9)
}

func TestLoadFileConfig_Missing(t *testing.T) {
	_, err := loadFileConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoadFileConfig_Malformed(t *testing.T) {
	path := writeTOML(t, "batch_size = [not toml")
	_, err := loadFileConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

// runBuildConfig executes the warm command's flag set against args and
// returns the merged pipeline config.
func runBuildConfig(t *testing.T, file *fileConfig, args ...string) *cache.Config {
	t.Helper()
	var built *cache.Config
	app := &cli.App{
		Name: "latentcache",
		Commands: []*cli.Command{
			{
				Name: "warm",
				Flags: append(backendFlags(),
					&cli.IntFlag{Name: "batch-size", Value: cache.DefaultWriteBatchSize},
					&cli.BoolFlag{Name: "delete-problematic"},
					&cli.IntFlag{Name: "prefetch-workers", Value: 4},
					&cli.IntFlag{Name: "max-retries", Value: 3},
					&cli.DurationFlag{Name: "retry-delay", Value: time.Second},
					&cli.IntFlag{Name: "report-interval", Value: 100},
					&cli.Int64Flag{Name: "shuffle-seed"},
				),
				Action: func(c *cli.Context) error {
					built = buildPipelineConfig(c, file)
					return nil
				},
			},
		},
	}
	require.NoError(t, app.Run(append([]string{"latentcache", "warm", "--data", "/tmp/x"}, args...)))
	require.NotNil(t, built)
	return built
}

func TestBuildPipelineConfig_Defaults(t *testing.T) {
	config := runBuildConfig(t, nil)

	assert.Equal(t, cache.DefaultCacheDir, config.CacheDir)
	assert.Equal(t, cache.DefaultWriteBatchSize, config.WriteBatchSize)
	assert.Equal(t, 1, config.WorkerCount)
	assert.Equal(t, 0, config.WorkerIndex)
	assert.NoError(t, config.Validate())
}

func TestBuildPipelineConfig_FileValues(t *testing.T) {
	file := &fileConfig{
		CacheDir:    "latents",
		BatchSize:   64,
		WorkerCount: 4,
		WorkerIndex: 2,
	}
	config := runBuildConfig(t, file)

	assert.Equal(t, "latents", config.CacheDir)
	assert.Equal(t, 64, config.WriteBatchSize)
	assert.Equal(t, 4, config.WorkerCount)
	assert.Equal(t, 2, config.WorkerIndex)
}

func TestBuildPipelineConfig_FlagsBeatFile(t *testing.T) {
	file := &fileConfig{CacheDir: "latents", BatchSize: 64}
	config := runBuildConfig(t, file, "--cache-dir", "override", "--batch-size", "8")

	assert.Equal(t, "override", config.CacheDir)
	assert.Equal(t, 8, config.WriteBatchSize)
}
