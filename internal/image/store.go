// Package image stores uploaded image files under generated names and
// serves them back by their public path.
package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/gallery/service/internal/storage"
)

// PathPrefix is the public path under which stored images are reachable.
const PathPrefix = "/images/"

// ErrInvalidInput is returned when an upload has no usable file name or a
// requested image name is malformed. Nothing is written in that case.
var ErrInvalidInput = errors.New("invalid file name")

// Store saves image uploads to a storage backend.
type Store struct {
	backend storage.Storage
	newName func() string
}

// NewStore creates a Store writing to backend.
func NewStore(backend storage.Storage) *Store {
	return &Store{
		backend: backend,
		newName: func() string { return uuid.NewString() },
	}
}

// Save writes content under a freshly generated name that keeps the
// extension of originalName and returns its public path, e.g.
// "/images/9b2f...e1.png". The name is path-escaped in the returned path.
// Every call writes a new object, even for identical content.
func (s *Store) Save(ctx context.Context, content []byte, originalName string) (string, error) {
	ext, err := extension(originalName)
	if err != nil {
		return "", err
	}

	name := s.newName() + "." + ext
	contentType := mimetype.Detect(content).String()
	if err := s.backend.Put(ctx, name, bytes.NewReader(content), int64(len(content)), contentType); err != nil {
		return "", fmt.Errorf("save image %q: %w", name, err)
	}
	return PathPrefix + url.PathEscape(name), nil
}

// Open returns the stored image called name, the final segment of a path
// returned by Save.
func (s *Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return nil, ErrInvalidInput
	}
	return s.backend.Open(ctx, name)
}

// extension returns the text after the last dot of the base name, which
// may be empty.
func extension(originalName string) (string, error) {
	base := path.Base(strings.ReplaceAll(originalName, `\`, "/"))
	i := strings.LastIndexByte(base, '.')
	if originalName == "" || i < 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidInput, originalName)
	}
	return base[i+1:], nil
}
