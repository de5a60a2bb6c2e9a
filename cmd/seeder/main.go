// Seeder generates a synthetic PNG dataset for smoke-testing the cache
// pipeline without a real image collection.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math/rand"
	"os"

	"github.com/poiesic/latentcache/storage/local"
)

var (
	outDir = flag.String("out", "./dataset", "backend base directory to seed")
	count  = flag.Int("count", 100, "number of images to generate")
	size   = flag.Int("size", 64, "square pixel size of each image")
	seed   = flag.Int64("seed", 1, "random seed for image content")
	batch  = flag.Int("batch", 25, "images written per backend batch")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// renderImage draws a noisy gradient so every image decodes to a
// distinct tensor.
func renderImage(rng *rand.Rand, size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	baseR := uint8(rng.Intn(256))
	baseG := uint8(rng.Intn(256))
	baseB := uint8(rng.Intn(256))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, color.RGBA{
				R: baseR + uint8(x*255/size),
				G: baseG + uint8(y*255/size),
				B: baseB + uint8(rng.Intn(32)),
				A: 255,
			})
		}
	}
	return img
}

func flush(ctx context.Context, backend *local.Backend, identities []string, payloads [][]byte) error {
	if len(identities) == 0 {
		return nil
	}
	return backend.WriteBatch(ctx, identities, payloads)
}

func main() {
	backend, err := local.NewBackend(*outDir)
	if err != nil {
		slog.Error("failed to open backend", "err", err)
		os.Exit(1)
	}
	defer backend.Close()

	ctx := context.Background()
	rng := rand.New(rand.NewSource(*seed))

	identities := make([]string, 0, *batch)
	payloads := make([][]byte, 0, *batch)
	written := 0

	for i := 0; i < *count; i++ {
		var buf bytes.Buffer
		if err := png.Encode(&buf, renderImage(rng, *size)); err != nil {
			slog.Error("failed to encode image", "err", err)
			os.Exit(1)
		}

		identities = append(identities, fmt.Sprintf("images/seed%05d.png", i))
		payloads = append(payloads, buf.Bytes())

		if len(identities) == *batch {
			if err := flush(ctx, backend, identities, payloads); err != nil {
				slog.Error("failed to write batch", "err", err)
				os.Exit(1)
			}
			written += len(identities)
			identities = identities[:0]
			payloads = payloads[:0]
		}
	}

	if err := flush(ctx, backend, identities, payloads); err != nil {
		slog.Error("failed to write batch", "err", err)
		os.Exit(1)
	}
	written += len(identities)

	slog.Info("dataset seeded", "dir", *outDir, "images", written, "size", *size)
}
