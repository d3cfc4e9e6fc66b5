package storage

import (
	"context"
	"sync"

	"llamarural/models"
)

// MemoryCache keeps the last result set in process memory.
type MemoryCache struct {
	mu      sync.RWMutex
	results []models.CachedResult
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Persist(_ context.Context, results []models.CachedResult) error {
	if len(results) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = cloneResults(results)
	return nil
}

func (c *MemoryCache) Load(_ context.Context) ([]models.CachedResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.results == nil {
		return nil, false
	}
	return cloneResults(c.results), true
}

func (c *MemoryCache) Close() error { return nil }

func cloneResults(in []models.CachedResult) []models.CachedResult {
	out := make([]models.CachedResult, len(in))
	for i, r := range in {
		techs := make([]string, len(r.Technologies))
		copy(techs, r.Technologies)
		r.Technologies = techs
		out[i] = r
	}
	return out
}
