// Package cache implements the embedding cache pipeline: cache-key
// derivation, backlog discovery, deterministic work partitioning across
// cooperating workers, batched encoding through the transform engine, and
// batched persistence of results.
//
// The pipeline is idempotent and restartable. A cache entry only exists
// once its embedding was fully computed and written, so killing a worker
// between batch flushes loses at most one in-flight batch, which a later
// run rediscovers and redoes. Workers never coordinate directly: safety
// under concurrent access relies on disjoint partitions plus idempotent
// overwrite semantics, with existing cache entries winning over values
// recomputed mid-batch.
//
// Per-item decode failures are classified and absorbed by a FailurePolicy
// so a single corrupt source image never halts a long unattended run.
package cache
