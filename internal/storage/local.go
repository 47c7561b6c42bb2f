package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// LocalStorage implements Storage on a directory of an afero filesystem.
// Production uses afero.NewOsFs; tests use afero.NewMemMapFs.
type LocalStorage struct {
	fs  afero.Fs
	dir string
}

// NewLocalStorage returns a LocalStorage rooted at dir. The directory is
// created lazily by Put.
func NewLocalStorage(fsys afero.Fs, dir string) *LocalStorage {
	return &LocalStorage{fs: fsys, dir: dir}
}

// Dir returns the directory objects are written to.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Put writes reader to <dir>/<key>. The file is opened with O_EXCL so an
// existing file is never overwritten. size and contentType are not needed
// on a filesystem.
func (s *LocalStorage) Put(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", s.dir, err)
	}

	path := filepath.Join(s.dir, key)
	f, err := s.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("put %q: %w", key, ErrExist)
	}
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}

	if _, err := io.Copy(f, reader); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %q: %w", path, err)
	}
	return nil
}

// Open opens <dir>/<key> for reading.
func (s *LocalStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := s.fs.Open(filepath.Join(s.dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", key, err)
	}
	return f, nil
}
