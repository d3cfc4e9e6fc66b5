package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"llamarural/models"
)

// FileCache keeps the last result set as a JSON document on disk.
// Writes go to a temporary file in the same directory and are renamed over
// the target, so readers never observe a half-written document.
type FileCache struct {
	mu   sync.Mutex
	path string
}

// NewFileCache returns a cache backed by path. Intermediate directories are
// created on the first Persist.
func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

// Path returns the location of the cache document.
func (c *FileCache) Path() string { return c.path }

func (c *FileCache) Persist(_ context.Context, results []models.CachedResult) error {
	if len(results) == 0 {
		return nil
	}

	data, err := encodeResults(results)
	if err != nil {
		return fmt.Errorf("file cache: encode: %w: %w", ErrCacheWrite, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("file cache: create dir: %w: %w", ErrCacheWrite, err)
	}

	tmp, err := os.CreateTemp(dir, ".nearby-*.json")
	if err != nil {
		return fmt.Errorf("file cache: create temp: %w: %w", ErrCacheWrite, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("file cache: write: %w: %w", ErrCacheWrite, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("file cache: close: %w: %w", ErrCacheWrite, err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("file cache: rename: %w: %w", ErrCacheWrite, err)
	}
	return nil
}

func (c *FileCache) Load(_ context.Context) ([]models.CachedResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, false
	}
	return decodeResults(data)
}

func (c *FileCache) Close() error { return nil }
