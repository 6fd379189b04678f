// internal/storage/backend/local.go
package backend

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalBackend stores blobs on the local filesystem. Content types are
// kept in a sidecar .meta file next to each blob.
type LocalBackend struct {
	basePath string
}

type localMeta struct {
	ContentType string `json:"content_type"`
}

// NewLocal creates a filesystem backend rooted at basePath. The
// directory is created if missing.
func NewLocal(basePath string) (*LocalBackend, error) {
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, &Error{Op: "NewLocal", Err: fmt.Errorf("invalid path: %w", err)}
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, &Error{Op: "NewLocal", Err: fmt.Errorf("create directory: %w", err)}
	}
	return &LocalBackend{basePath: absPath}, nil
}

// validateKey rejects keys that could escape the base directory.
func validateKey(key string) error {
	if key == "" || strings.ContainsRune(key, 0) {
		return &Error{Op: "validateKey", Key: key, Err: errInvalidKey{}}
	}
	if strings.Contains(key, "..") || filepath.IsAbs(key) {
		return &Error{Op: "validateKey", Key: key, Err: errInvalidKey{}}
	}
	if strings.HasPrefix(filepath.Clean(key), "..") {
		return &Error{Op: "validateKey", Key: key, Err: errInvalidKey{}}
	}
	return nil
}

func (b *LocalBackend) fullPath(key string) string {
	return filepath.Join(b.basePath, filepath.FromSlash(key))
}

func (b *LocalBackend) metaPath(key string) string {
	return b.fullPath(key) + ".meta"
}

func (b *LocalBackend) readMeta(key string) localMeta {
	var meta localMeta
	raw, err := os.ReadFile(b.metaPath(key))
	if err == nil {
		json.Unmarshal(raw, &meta)
	}
	return meta
}

// Exists reports whether a blob exists at the key.
func (b *LocalBackend) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	stat, err := os.Stat(b.fullPath(key))
	if err == nil {
		return !stat.IsDir(), nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, &Error{Op: "Exists", Key: key, Err: err}
}

// Reader opens the blob for reading.
func (b *LocalBackend) Reader(ctx context.Context, key string) (io.ReadCloser, *FileInfo, error) {
	if err := validateKey(key); err != nil {
		return nil, nil, err
	}

	path := b.fullPath(key)
	stat, err := os.Stat(path)
	if err != nil || stat.IsDir() {
		return nil, nil, &Error{Op: "Reader", Key: key, Err: errNotFound{}}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &Error{Op: "Reader", Key: key, Err: err}
	}

	info := &FileInfo{
		Key:         key,
		Size:        stat.Size(),
		ContentType: b.readMeta(key).ContentType,
		ModTime:     stat.ModTime(),
	}
	return f, info, nil
}

// Write stores the content at the key.
func (b *LocalBackend) Write(ctx context.Context, key string, content io.Reader, contentType string) (*FileInfo, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	path := b.fullPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &Error{Op: "Write", Key: key, Err: err}
	}

	// Write to a temp file then rename so readers never see partial
	// content.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return nil, &Error{Op: "Write", Key: key, Err: err}
	}
	defer os.Remove(tmp.Name())

	hasher := md5.New()
	size, err := io.Copy(io.MultiWriter(tmp, hasher), content)
	if err != nil {
		tmp.Close()
		return nil, &Error{Op: "Write", Key: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return nil, &Error{Op: "Write", Key: key, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, &Error{Op: "Write", Key: key, Err: err}
	}

	meta, _ := json.Marshal(localMeta{ContentType: contentType})
	if err := os.WriteFile(b.metaPath(key), meta, 0644); err != nil {
		return nil, &Error{Op: "Write", Key: key, Err: err}
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, &Error{Op: "Write", Key: key, Err: err}
	}

	return &FileInfo{
		Key:         key,
		Size:        size,
		ContentType: contentType,
		ETag:        hex.EncodeToString(hasher.Sum(nil)),
		ModTime:     stat.ModTime(),
	}, nil
}

// Delete removes the blob and its metadata.
func (b *LocalBackend) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := os.Remove(b.fullPath(key)); err != nil && !os.IsNotExist(err) {
		return &Error{Op: "Delete", Key: key, Err: err}
	}
	os.Remove(b.metaPath(key))
	return nil
}

// DeletePrefix removes every blob under the prefix.
func (b *LocalBackend) DeletePrefix(ctx context.Context, prefix string) error {
	if err := validateKey(prefix); err != nil {
		return err
	}
	if err := os.RemoveAll(b.fullPath(prefix)); err != nil {
		return &Error{Op: "DeletePrefix", Key: prefix, Err: err}
	}
	return nil
}

// Close is a no-op for the filesystem backend.
func (b *LocalBackend) Close() error {
	return nil
}
