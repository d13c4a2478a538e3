package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"betting-risk-lab/internal/domain"
	"betting-risk-lab/internal/storage"
)

// GridCache implements storage.GridCache on the grid_cache table.
// Grids are stored as JSONB; infinite ratios use their "∞" string form.
type GridCache struct {
	pool *Pool
}

// NewGridCache creates a new GridCache.
func NewGridCache(pool *Pool) *GridCache {
	return &GridCache{pool: pool}
}

// Compile-time interface check.
var _ storage.GridCache = (*GridCache)(nil)

// Get retrieves a grid by fingerprint. Returns ErrNotFound if not cached.
func (c *GridCache) Get(ctx context.Context, key string) (*domain.Grid, error) {
	var payload []byte
	err := c.pool.QueryRow(ctx,
		`SELECT payload FROM grid_cache WHERE fingerprint = $1`, key,
	).Scan(&payload)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get grid %s: %w", key, err)
	}

	var g domain.Grid
	if err := json.Unmarshal(payload, &g); err != nil {
		return nil, fmt.Errorf("decode grid %s: %w", key, err)
	}
	return &g, nil
}

// Set upserts a grid under key.
func (c *GridCache) Set(ctx context.Context, key string, grid *domain.Grid) error {
	if key == "" || grid == nil {
		return storage.ErrInvalidInput
	}

	payload, err := json.Marshal(grid)
	if err != nil {
		return fmt.Errorf("encode grid %s: %w", key, err)
	}

	query := `
		INSERT INTO grid_cache (fingerprint, payload, cells, simulations_per_cell, generated_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (fingerprint) DO UPDATE SET
			payload = EXCLUDED.payload,
			cells = EXCLUDED.cells,
			simulations_per_cell = EXCLUDED.simulations_per_cell,
			generated_at = EXCLUDED.generated_at,
			updated_at = now()
	`
	_, err = c.pool.Exec(ctx, query,
		key, payload, len(grid.Cells), grid.SimulationsPerCell, grid.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert grid %s: %w", key, err)
	}
	return nil
}

// Delete removes one cached grid.
func (c *GridCache) Delete(ctx context.Context, key string) error {
	if _, err := c.pool.Exec(ctx, `DELETE FROM grid_cache WHERE fingerprint = $1`, key); err != nil {
		return fmt.Errorf("delete grid %s: %w", key, err)
	}
	return nil
}

// Clear removes every cached grid.
func (c *GridCache) Clear(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, `TRUNCATE grid_cache`); err != nil {
		return fmt.Errorf("clear grid cache: %w", err)
	}
	return nil
}
