// Package transform defines the expensive image-to-embedding computation
// consumed by the cache pipeline.
//
// The Engine interface wraps the batched encoder (in production an
// autoencoder on an accelerator, reached over whatever transport the
// deployment uses). The Preparer interface covers the cheap decode side:
// turning raw image bytes into the fixed-shape normalized tensor the
// engine expects.
//
// StandardPreparer implements the conventional preparation step: center
// crop to square, resize to the configured resolution, and convert to a
// CHW float32 tensor scaled to [-1, 1].
package transform
