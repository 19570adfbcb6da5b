package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend stores each document as <baseDir>/<name>.json. Writes go
// through a temp file and rename so a crash mid-write never leaves a
// half-written document behind.
type FileBackend struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileBackend creates a new file-based storage backend
func NewFileBackend(baseDir string) *FileBackend {
	return &FileBackend{baseDir: filepath.Clean(baseDir)}
}

func (f *FileBackend) Initialize(ctx context.Context) error {
	if f.baseDir == "" {
		return fmt.Errorf("file backend base directory not configured")
	}
	if err := os.MkdirAll(f.baseDir, 0o700); err != nil {
		return fmt.Errorf("create storage directory %s: %w", f.baseDir, err)
	}
	return nil
}

func (f *FileBackend) Close() error {
	return nil
}

func (f *FileBackend) Health(ctx context.Context) error {
	_, err := os.Stat(f.baseDir)
	return err
}

func (f *FileBackend) GetDocument(ctx context.Context, name string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.docPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ErrNotFound{Key: name}
		}
		return nil, fmt.Errorf("read document %s: %w", name, err)
	}
	return data, nil
}

func (f *FileBackend) SetDocument(ctx context.Context, name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.docPath(name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp document %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename document %s: %w", name, err)
	}
	return nil
}

func (f *FileBackend) DeleteDocument(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.docPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete document %s: %w", name, err)
	}
	return nil
}

func (f *FileBackend) docPath(name string) string {
	return filepath.Join(f.baseDir, name+".json")
}
