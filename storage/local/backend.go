package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/poiesic/latentcache/storage"
)

// Backend implements storage.DataBackend on a local filesystem subtree.
// All paths are interpreted relative to the backend's base directory.
type Backend struct {
	base string
}

var _ storage.DataBackend = (*Backend)(nil)

// NewBackend creates a filesystem backend rooted at base.
// The base directory is created if it does not exist.
func NewBackend(base string) (*Backend, error) {
	if base == "" {
		return nil, fmt.Errorf("base directory required")
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &Backend{base: base}, nil
}

// DisplayName returns "local:<base>".
func (b *Backend) DisplayName() string {
	return "local:" + b.base
}

// CreateDirectory ensures the directory exists under the base.
func (b *Backend) CreateDirectory(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.MkdirAll(b.abs(path), 0o755)
}

// ListFiles walks root and returns files whose base name matches pattern,
// grouped by subdirectory relative to root. Groups and file names are
// sorted so listings are deterministic across runs.
func (b *Backend) ListFiles(ctx context.Context, root, pattern string) ([]storage.FileGroup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	absRoot := b.abs(root)
	if _, err := os.Stat(absRoot); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	groups := make(map[string][]string)
	err := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		match, err := filepath.Match(pattern, d.Name())
		if err != nil {
			return err
		}
		if !match {
			return nil
		}
		rel, err := filepath.Rel(absRoot, filepath.Dir(path))
		if err != nil {
			return err
		}
		if rel == "." {
			rel = ""
		} else {
			rel = filepath.Join(root, rel)
		}
		if rel == "" {
			rel = root
		}
		groups[rel] = append(groups[rel], d.Name())
		return nil
	})
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

// Exists reports whether a file is present at path.
func (b *Backend) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(b.abs(path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ReadBinary reads the full content of the file at path.
func (b *Backend) ReadBinary(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(b.abs(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, path)
		}
		return nil, err
	}
	return data, nil
}

// WriteBatch writes all pairs. Each file is written to a temp file in the
// destination directory and renamed into place, so a reader never observes
// a partially written entry even if the batch itself fails midway.
func (b *Backend) WriteBatch(ctx context.Context, paths []string, payloads [][]byte) error {
	if len(paths) != len(payloads) {
		return fmt.Errorf("%w: %d paths, %d payloads", storage.ErrBatchMismatch, len(paths), len(payloads))
	}
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.writeFile(path, payloads[i]); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}

func (b *Backend) writeFile(path string, payload []byte) error {
	abs := b.abs(path)
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(abs)+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), abs); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Delete removes the file at path.
func (b *Backend) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(b.abs(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", storage.ErrNotFound, path)
		}
		return err
	}
	return nil
}

// Close is a no-op for the filesystem backend.
func (b *Backend) Close() error {
	return nil
}

func (b *Backend) abs(path string) string {
	return filepath.Join(b.base, filepath.FromSlash(path))
}
