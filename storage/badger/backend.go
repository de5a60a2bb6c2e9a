package badger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/latentcache/storage"
)

// Backend implements storage.DataBackend on a BadgerDB key/value store.
// Item paths are used directly as keys, which makes the backend a drop-in
// stand-in for a flat object store: there is no real directory tree, only
// key prefixes.
type Backend struct {
	db     *badger.DB
	name   string
	logger *slog.Logger
}

var _ storage.DataBackend = (*Backend)(nil)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBackend opens a BadgerDB-backed store at the specified path.
// Creates the directory if it doesn't exist.
func OpenBackend(filePath string, inMemory bool) (*Backend, error) {
	var opts badger.Options
	name := "badger:" + filePath

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
		name = "badger:memory"
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(filePath, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(filePath)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Backend{
		db:     db,
		name:   name,
		logger: slog.Default(),
	}, nil
}

// NewMemoryBackend opens an in-memory backend for testing.
func NewMemoryBackend() (*Backend, error) {
	return OpenBackend("", true)
}

// DisplayName returns "badger:<path>" or "badger:memory".
func (b *Backend) DisplayName() string {
	return b.name
}

// Close closes the underlying BadgerDB database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction.
// The transaction is automatically discarded if fn returns an error.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	if b.db.IsClosed() {
		return storage.ErrBackendClosed
	}
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// CreateDirectory is a no-op: a key/value store has no directories.
func (b *Backend) CreateDirectory(ctx context.Context, dirPath string) error {
	return ctx.Err()
}

// ListFiles enumerates keys under root whose base name matches pattern,
// grouped by the key's directory component. Results are sorted for
// deterministic listings.
func (b *Backend) ListFiles(ctx context.Context, root, pattern string) ([]storage.FileGroup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := root
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	groups := make(map[string][]string)
	err := b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := string(iter.Item().Key())
			name := path.Base(key)
			match, err := path.Match(pattern, name)
			if err != nil {
				return err
			}
			if !match {
				continue
			}
			subdir := path.Dir(key)
			if subdir == "." {
				subdir = ""
			}
			groups[subdir] = append(groups[subdir], name)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	subdirs := make([]string, 0, len(groups))
	for subdir := range groups {
		subdirs = append(subdirs, subdir)
	}
	sort.Strings(subdirs)

	result := make([]storage.FileGroup, 0, len(groups))
	for _, subdir := range subdirs {
		files := groups[subdir]
		sort.Strings(files)
		result = append(result, storage.FileGroup{Subdir: subdir, Files: files})
	}
	return result, nil
}

// Exists reports whether a value is present for the given key.
func (b *Backend) Exists(ctx context.Context, itemPath string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var found bool
	err := b.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get([]byte(itemPath))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		found = true
		return nil
	}, false)
	return found, err
}

// ReadBinary reads the value stored at the given key.
func (b *Backend) ReadBinary(ctx context.Context, itemPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := b.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(itemPath))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return fmt.Errorf("%w: %s", storage.ErrNotFound, itemPath)
			}
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// WriteBatch persists all pairs through badger's write batch, which
// amortizes commit overhead across the whole batch.
func (b *Backend) WriteBatch(ctx context.Context, paths []string, payloads [][]byte) error {
	if len(paths) != len(payloads) {
		return fmt.Errorf("%w: %d paths, %d payloads", storage.ErrBatchMismatch, len(paths), len(payloads))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.db.IsClosed() {
		return storage.ErrBackendClosed
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	for i, itemPath := range paths {
		if err := wb.Set([]byte(itemPath), payloads[i]); err != nil {
			return fmt.Errorf("writing %s: %w", itemPath, err)
		}
	}
	return wb.Flush()
}

// Delete removes the value stored at the given key.
func (b *Backend) Delete(ctx context.Context, itemPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.WithTx(func(tx *badger.Txn) error {
		if _, err := tx.Get([]byte(itemPath)); err != nil {
			if err == badger.ErrKeyNotFound {
				return fmt.Errorf("%w: %s", storage.ErrNotFound, itemPath)
			}
			return err
		}
		if err := tx.Delete([]byte(itemPath)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
