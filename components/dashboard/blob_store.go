package dashboard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

// BlobStore persists opaque documents by key. Read returns nil data and no
// error when the key has never been written.
type BlobStore interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
}

// MemoryBlobStore keeps documents in process memory.
type MemoryBlobStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryBlobStore creates an empty store.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{data: make(map[string][]byte)}
}

// Read returns a copy of the stored document.
func (s *MemoryBlobStore) Read(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

// Write replaces the stored document.
func (s *MemoryBlobStore) Write(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)
	return nil
}

var blobKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// FileBlobStore writes one JSON file per key inside a directory.
type FileBlobStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileBlobStore creates the directory if needed.
func NewFileBlobStore(dir string) (*FileBlobStore, error) {
	if dir == "" {
		return nil, errors.New("dashboard: blob directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("dashboard: create blob directory %s: %w", dir, err)
	}
	return &FileBlobStore{dir: dir}, nil
}

func (s *FileBlobStore) path(key string) (string, error) {
	if !blobKeyPattern.MatchString(key) {
		return "", fmt.Errorf("dashboard: invalid blob key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

// Read loads the file for key.
func (s *FileBlobStore) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) //nolint:gosec
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dashboard: read blob %s: %w", key, err)
	}
	return data, nil
}

// Write replaces the file for key through a rename so readers never see a
// partially written document.
func (s *FileBlobStore) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("dashboard: write blob %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("dashboard: write blob %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("dashboard: write blob %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("dashboard: write blob %s: %w", key, err)
	}
	return nil
}
