// Package memory provides in-process implementations of storage interfaces.
package memory

import (
	"context"
	"sync"

	"betting-risk-lab/internal/domain"
	"betting-risk-lab/internal/storage"
)

// GridCache is an in-memory implementation of storage.GridCache.
type GridCache struct {
	mu   sync.RWMutex
	data map[string]*domain.Grid
}

// NewGridCache creates a new in-memory grid cache.
func NewGridCache() *GridCache {
	return &GridCache{
		data: make(map[string]*domain.Grid),
	}
}

// Get retrieves a copy of a cached grid. Returns ErrNotFound if not cached.
func (c *GridCache) Get(_ context.Context, key string) (*domain.Grid, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	g, ok := c.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return g.Clone(), nil
}

// Set stores a copy of grid under key.
func (c *GridCache) Set(_ context.Context, key string, grid *domain.Grid) error {
	if key == "" || grid == nil {
		return storage.ErrInvalidInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = grid.Clone()
	return nil
}

// Delete removes one cached grid.
func (c *GridCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
	return nil
}

// Clear removes every cached grid.
func (c *GridCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[string]*domain.Grid)
	return nil
}

// Len returns the number of cached grids.
func (c *GridCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Compile-time interface check
var _ storage.GridCache = (*GridCache)(nil)
