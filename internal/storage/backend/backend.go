// Package backend defines the blob storage interface used for menu
// images. Backends hold the bytes; the storage service owns keys and
// access rules.
package backend

import (
	"context"
	"io"
	"time"
)

// FileInfo is metadata about a stored blob.
type FileInfo struct {
	Key         string
	Size        int64
	ContentType string
	ETag        string
	ModTime     time.Time
}

// Backend is a blob store. Implementations must be safe for concurrent
// use.
type Backend interface {
	// Exists reports whether a blob exists at the key.
	Exists(ctx context.Context, key string) (bool, error)

	// Reader opens the blob for reading. The caller closes the reader.
	// Returns ErrNotFound if the blob does not exist.
	Reader(ctx context.Context, key string) (io.ReadCloser, *FileInfo, error)

	// Write stores the content at the key, replacing any existing blob.
	Write(ctx context.Context, key string, content io.Reader, contentType string) (*FileInfo, error)

	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every blob under the prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Close releases backend resources.
	Close() error
}

// Error wraps a backend failure with the operation and key involved.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return e.Op + " " + e.Key + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	ErrNotFound   = &Error{Op: "storage", Err: errNotFound{}}
	ErrInvalidKey = &Error{Op: "storage", Err: errInvalidKey{}}
)

type errNotFound struct{}

func (errNotFound) Error() string { return "file not found" }

type errInvalidKey struct{}

func (errInvalidKey) Error() string { return "invalid key" }

// IsNotFound reports whether the error means the blob was missing.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok {
		_, ok := e.Err.(errNotFound)
		return ok
	}
	_, ok := err.(errNotFound)
	return ok
}

// IsInvalidKey reports whether the error means the key was rejected.
func IsInvalidKey(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok {
		_, ok := e.Err.(errInvalidKey)
		return ok
	}
	return false
}
