package localstore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore persists each key as one JSON file under a directory
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates the directory if needed
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	slog.Debug("Local store initialized", "dir", dir)
	return &FileStore{dir: dir}, nil
}

// Path returns the file backing key. "orders:u1" maps to "<dir>/orders_u1.json".
func (fs *FileStore) Path(key string) string {
	return filepath.Join(fs.dir, fileName(key))
}

// fileName encodes key injectively: ':' becomes '_' and every other byte outside
// [A-Za-z0-9.-] becomes %XX, so distinct keys never share a file.
func fileName(key string) string {
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '.':
			b.WriteByte(c)
		case c == ':':
			b.WriteByte('_')
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String() + ".json"
}

func (fs *FileStore) Get(key string) ([]byte, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, true, nil
}

// Set writes to a temp file and renames it over the target
func (fs *FileStore) Set(key string, value []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	target := fs.Path(key)
	tmp, err := os.CreateTemp(fs.dir, fileName(key)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", target, err)
	}

	slog.Debug("Local store written", "key", key, "bytes", len(value))
	return nil
}

func (fs *FileStore) Delete(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.Remove(fs.Path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
