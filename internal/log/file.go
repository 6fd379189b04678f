// internal/log/file.go
package log

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"
)

// rotatingWriter is an append-only file writer that renames the file aside
// and reopens it once the configured size is exceeded. Old backups beyond
// the keep count are pruned on each rotation.
type rotatingWriter struct {
	mu   sync.Mutex
	file *os.File
	path string
	size int64
	max  int64
	keep int
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.size+int64(len(p)) > w.max {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *rotatingWriter) rotate() error {
	w.file.Close()

	backup := w.path + "." + strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := os.Rename(w.path, backup); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	w.prune()

	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to reopen log file: %w", err)
	}
	w.file = file
	w.size = 0
	return nil
}

func (w *rotatingWriter) prune() {
	backups, err := filepath.Glob(w.path + ".*")
	if err != nil {
		return
	}
	// UnixNano suffixes sort lexically, newest last.
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	for i, path := range backups {
		if i >= w.keep {
			os.Remove(path)
		}
	}
}

func (w *rotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// FileHandler is a slog handler that writes to a size-rotated log file.
type FileHandler struct {
	slog.Handler
	w *rotatingWriter
}

// NewFileHandler opens (or creates) the configured log file.
func NewFileHandler(cfg *Config, level slog.Level) (*FileHandler, error) {
	if dir := filepath.Dir(cfg.FilePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	max := int64(cfg.MaxSizeMB) * 1024 * 1024
	if max < 1024 {
		max = 1024
	}

	w := &rotatingWriter{
		file: file,
		path: cfg.FilePath,
		size: info.Size(),
		max:  max,
		keep: cfg.MaxBackups,
	}

	opts := &slog.HandlerOptions{Level: level}
	var inner slog.Handler
	if cfg.Format == "json" {
		inner = slog.NewJSONHandler(w, opts)
	} else {
		inner = slog.NewTextHandler(w, opts)
	}
	return &FileHandler{Handler: inner, w: w}, nil
}

// Close closes the underlying file.
func (h *FileHandler) Close() error {
	return h.w.Close()
}
