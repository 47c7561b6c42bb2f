// Package storage defines the interface for blob storage operations.
// Swap implementations by changing the concrete type injected at startup:
// LocalStorage writes to a directory, MinioStorage works with any
// S3-compatible provider (MinIO, AWS S3).
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist is returned by Open when no object is stored under the key.
var ErrNotExist = errors.New("object does not exist")

// ErrExist is returned by LocalStorage.Put when a file already exists under the key.
var ErrExist = errors.New("object already exists")

// Storage is the interface for writing and reading stored objects.
type Storage interface {
	// Put streams data to the store under key, creating the target directory
	// or bucket when missing. Keys are expected to be fresh.
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Open returns a reader for the object stored under key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
