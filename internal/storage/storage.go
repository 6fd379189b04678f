// Package storage manages menu image uploads on top of a blob backend.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/markb/tably/internal/storage/backend"
)

// MaxImageSize is the upload ceiling for a single menu image.
const MaxImageSize = 5 << 20 // 5 MiB

// allowed image content types mapped to their key extension.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Service stores and serves menu images. Keys are scoped by tenant so a
// whole account's images can be removed with one prefix delete.
type Service struct {
	backend backend.Backend
}

// NewService creates a storage service on the given backend.
func NewService(b backend.Backend) *Service {
	return &Service{backend: b}
}

// SaveImage stores an uploaded menu image and returns its key. The
// reader is capped at MaxImageSize.
func (s *Service) SaveImage(ctx context.Context, adminID, contentType string, r io.Reader) (string, error) {
	ext, ok := imageExtensions[strings.ToLower(contentType)]
	if !ok {
		return "", fmt.Errorf("unsupported image type %q", contentType)
	}

	key := adminID + "/menus/" + uuid.New().String() + ext

	limited := &io.LimitedReader{R: r, N: MaxImageSize + 1}
	if _, err := s.backend.Write(ctx, key, limited, contentType); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	if limited.N == 0 {
		s.backend.Delete(ctx, key)
		return "", fmt.Errorf("image exceeds %d bytes", MaxImageSize)
	}

	return key, nil
}

// OpenImage opens a stored image for serving.
func (s *Service) OpenImage(ctx context.Context, key string) (io.ReadCloser, *backend.FileInfo, error) {
	return s.backend.Reader(ctx, key)
}

// DeleteImage removes a stored image. Missing images are not an error.
func (s *Service) DeleteImage(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// DeleteTenant removes every image belonging to an account.
func (s *Service) DeleteTenant(ctx context.Context, adminID string) error {
	return s.backend.DeletePrefix(ctx, adminID+"/")
}

// OwnsKey reports whether a key belongs to the given account. Handlers
// check this before deleting by key from a client request.
func OwnsKey(adminID, key string) bool {
	return strings.HasPrefix(key, adminID+"/")
}

// Close releases the underlying backend.
func (s *Service) Close() error {
	return s.backend.Close()
}
