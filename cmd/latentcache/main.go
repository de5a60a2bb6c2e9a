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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/latentcache"
	"github.com/poiesic/latentcache/cache"
	"github.com/poiesic/latentcache/storage"
	"github.com/poiesic/latentcache/storage/badger"
	"github.com/poiesic/latentcache/storage/local"
	"github.com/poiesic/latentcache/transform"
	"github.com/poiesic/latentcache/transform/remote"
)

func main() {
	app := &cli.App{
		Name:  "latentcache",
		Usage: "Precompute and cache image latent embeddings for training",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "warm",
				Usage:  "Encode every uncached source image and persist the embeddings",
				Action: warmCommand,
				Flags: append(backendFlags(),
					&cli.StringFlag{
						Name:  "config",
						Usage: "Path to a latentcache.toml config file",
					},
					&cli.StringFlag{
						Name:     "engine-host",
						Usage:    "Encode service host URL",
						Required: true,
					},
					&cli.Float64Flag{
						Name:  "scaling-factor",
						Usage: "Latent scaling factor of the encode model",
						Value: 0.18215,
					},
					&cli.IntFlag{
						Name:  "resolution",
						Usage: "Square resolution images are cropped and resized to",
						Value: 512,
					},
					&cli.IntFlag{
						Name:    "batch-size",
						Aliases: []string{"b"},
						Usage:   "Number of images encoded and persisted per engine call",
						Value:   cache.DefaultWriteBatchSize,
					},
					&cli.BoolFlag{
						Name:  "delete-problematic",
						Usage: "Delete source images that cannot be decoded",
					},
					&cli.IntFlag{
						Name:  "prefetch-workers",
						Usage: "Concurrent read/decode workers feeding the encoder",
						Value: 4,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for storage writes",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N images",
						Value: 100,
					},
					&cli.Int64Flag{
						Name:  "shuffle-seed",
						Usage: "Seed for the processing-order shuffle (0 derives one)",
					},
				),
			},
			{
				Name:   "backlog",
				Usage:  "Report how many source images still need encoding",
				Action: backlogCommand,
				Flags:  backendFlags(),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// backendFlags are shared by every command that opens a data backend.
func backendFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Data backend type (local or badger)",
			Value: "local",
		},
		&cli.StringFlag{
			Name:     "data",
			Aliases:  []string{"d"},
			Usage:    "Backend location: base directory (local) or database directory (badger)",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "source-root",
			Usage: "Directory of source images, relative to the backend",
			Value: "images",
		},
		&cli.StringFlag{
			Name:  "cache-dir",
			Usage: "Cache namespace within the backend",
			Value: cache.DefaultCacheDir,
		},
		&cli.IntFlag{
			Name:  "worker-count",
			Usage: "Total workers sharing the backlog",
			Value: 1,
		},
		&cli.IntFlag{
			Name:  "worker-index",
			Usage: "This worker's index in [0, worker-count)",
		},
		&cli.BoolFlag{
			Name:  "hash-identities",
			Usage: "Fold a digest of the full source path into each cache key",
		},
	}
}

func openBackend(c *cli.Context) (storage.DataBackend, error) {
	dataPath := c.String("data")
	switch c.String("backend") {
	case "local":
		return local.NewBackend(dataPath)
	case "badger":
		return badger.OpenBackend(dataPath, false)
	default:
		return nil, fmt.Errorf("unknown backend %q: must be local or badger", c.String("backend"))
	}
}

func warmCommand(c *cli.Context) error {
	ctx := context.Background()

	var fileCfg *fileConfig
	if path := c.String("config"); path != "" {
		var err error
		fileCfg, err = loadFileConfig(path)
		if err != nil {
			return err
		}
	}

	config := buildPipelineConfig(c, fileCfg)
	if err := config.Validate(); err != nil {
		return err
	}

	backend, err := openBackend(c)
	if err != nil {
		return fmt.Errorf("failed to open backend: %w", err)
	}
	defer backend.Close()

	engineHost := c.String("engine-host")
	if fileCfg != nil && !c.IsSet("engine-host") && fileCfg.EngineHost != "" {
		engineHost = fileCfg.EngineHost
	}
	scalingFactor := c.Float64("scaling-factor")
	if fileCfg != nil {
		scalingFactor = resolveFloat(c, "scaling-factor", fileCfg.ScalingFactor)
	}

	engine, err := remote.NewEngine(engineHost, float32(scalingFactor))
	if err != nil {
		return fmt.Errorf("failed to create encode engine: %w", err)
	}

	preparer, err := transform.NewStandardPreparer(c.Int("resolution"))
	if err != nil {
		return fmt.Errorf("failed to create preparer: %w", err)
	}

	lc, err := latentcache.NewCache(backend, engine, preparer,
		latentcache.WithConfig(config),
		latentcache.WithProgress(os.Stderr))
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Backend: %s\n", backend.DisplayName())
	fmt.Fprintf(os.Stderr, "Encode host: %s\n", engineHost)
	fmt.Fprintf(os.Stderr, "Worker: %d of %d\n", config.WorkerIndex, config.WorkerCount)
	fmt.Fprintln(os.Stderr)

	report, err := lc.RunToCompletion(ctx, c.String("source-root"))
	if err != nil {
		return fmt.Errorf("cache warm failed: %w", err)
	}

	printSummary(report.Discovered, report.Assigned, report.Encoded, report.Skipped,
		len(report.Failures), report.Elapsed)
	return nil
}

func backlogCommand(c *cli.Context) error {
	ctx := context.Background()

	backend, err := openBackend(c)
	if err != nil {
		return fmt.Errorf("failed to open backend: %w", err)
	}
	defer backend.Close()

	resolver := cache.NewKeyResolver(c.String("cache-dir"), c.Bool("hash-identities"))
	discoverer, err := cache.NewDiscoverer(backend, resolver, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create discoverer: %w", err)
	}

	sourceRoot := c.String("source-root")
	identities, err := discoverer.ListSourceImages(ctx, sourceRoot)
	if err != nil {
		return fmt.Errorf("failed to list source images: %w", err)
	}

	backlog, err := discoverer.Discover(ctx, sourceRoot)
	if err != nil {
		return fmt.Errorf("failed to discover backlog: %w", err)
	}

	partition, err := cache.PartitionForWorker(backlog, c.Int("worker-count"), c.Int("worker-index"))
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	fmt.Printf("Backend:      %s\n", backend.DisplayName())
	fmt.Printf("Source items: %d\n", len(identities))
	green.Printf("Cached:       %d\n", len(identities)-len(backlog))
	yellow.Printf("Backlog:      %d\n", len(backlog))
	if c.Int("worker-count") > 1 {
		fmt.Printf("This worker:  %d\n", len(partition))
	}
	return nil
}

func printSummary(discovered, assigned, encoded, skipped, failures int, elapsed time.Duration) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	fmt.Println()
	fmt.Printf("Discovered: %d\n", discovered)
	fmt.Printf("Assigned:   %d\n", assigned)
	green.Printf("Encoded:    %d\n", encoded)
	fmt.Printf("Skipped:    %d\n", skipped)
	if failures > 0 {
		red.Printf("Failures:   %d\n", failures)
	} else {
		fmt.Printf("Failures:   0\n")
	}
	fmt.Printf("Elapsed:    %s\n", elapsed.Round(time.Millisecond))
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
