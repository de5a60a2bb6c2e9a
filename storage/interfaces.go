package storage

import (
	"context"
)

// FileGroup is one directory's worth of listing results: the subdirectory
// relative to the listing root, and the file names found directly in it.
type FileGroup struct {
	Subdir string
	Files  []string
}

// DataBackend abstracts a filesystem or object store holding source images
// and cache entries. Items are addressed by path-like keys; backends are
// free to map them to files, object keys, or database keys.
// Implementations must be thread-safe and support concurrent access.
type DataBackend interface {
	// DisplayName returns a human-readable label for this backend,
	// suitable for log output (e.g. "local:/data/images").
	DisplayName() string

	// CreateDirectory ensures the given directory or key prefix exists.
	// Creating an existing directory is not an error.
	CreateDirectory(ctx context.Context, path string) error

	// ListFiles enumerates files under root whose base name matches the
	// glob pattern, grouped by subdirectory relative to root.
	// Returns an empty slice if root does not exist.
	ListFiles(ctx context.Context, root, pattern string) ([]FileGroup, error)

	// Exists reports whether an item is present at the given path.
	Exists(ctx context.Context, path string) (bool, error)

	// ReadBinary reads the full content of the item at path.
	// Returns ErrNotFound if no item exists there.
	ReadBinary(ctx context.Context, path string) ([]byte, error)

	// WriteBatch persists all (path, payload) pairs as one logical
	// operation. Pairs are matched by index; paths and payloads must have
	// equal length. The batch is not atomic: a failure may leave a prefix
	// of the pairs written, which callers must tolerate by re-running.
	WriteBatch(ctx context.Context, paths []string, payloads [][]byte) error

	// Delete removes the item at path.
	// Deleting a missing item returns ErrNotFound.
	Delete(ctx context.Context, path string) error

	// Close releases resources held by the backend.
	Close() error
}
