package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/ruteri/opcua-server-keystore/interfaces"
)

// FileBackend stores the keystore as a single file on the local file system.
// Writes go to a temporary file in the same directory which is then renamed
// over the target, so a crash never leaves a truncated keystore behind.
type FileBackend struct {
	path        string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a file storage backend for the keystore at path.
// The parent directory is created on the first Save.
func NewFileBackend(path string, log *slog.Logger) (*FileBackend, error) {
	if path == "" {
		return nil, errors.New("empty keystore path")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve keystore path: %w", err)
	}

	return &FileBackend{
		path:        abs,
		log:         orDiscard(log),
		locationURI: fmt.Sprintf("file://%s", abs),
	}, nil
}

// Load reads the keystore file. Returns ErrKeyStoreNotFound if it doesn't
// exist, including when a path component is not a directory.
func (b *FileBackend) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
		return nil, interfaces.ErrKeyStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore file: %w", err)
	}

	b.log.Debug("Loaded keystore from file",
		slog.String("path", b.path),
		slog.Int("size", len(data)))

	return data, nil
}

// Save atomically replaces the keystore file. The file is readable by the
// owner only.
func (b *FileBackend) Save(ctx context.Context, data []byte) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("failed to replace keystore file: %w", err)
	}

	b.log.Debug("Stored keystore in file",
		slog.String("path", b.path),
		slog.Int("size", len(data)))

	return nil
}

// Available reports whether the keystore file, or the nearest existing
// ancestor directory, can be reached.
func (b *FileBackend) Available(ctx context.Context) bool {
	for dir := b.path; ; dir = filepath.Dir(dir) {
		_, err := os.Stat(dir)
		if err == nil {
			return true
		}
		if !errors.Is(err, fs.ErrNotExist) {
			b.log.Debug("File backend unavailable", "err", err)
			return false
		}
		if parent := filepath.Dir(dir); parent == dir {
			return false
		}
	}
}

// Name returns a unique identifier for this storage backend.
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.path))
}

// LocationURI returns the URI that identifies this storage backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}
