// Package storage defines persistence contracts for generated grids.
package storage

import (
	"context"

	"betting-risk-lab/internal/domain"
)

// GridCache stores generated grids keyed by request fingerprint.
type GridCache interface {
	// Get retrieves a grid by fingerprint. Returns ErrNotFound if not cached.
	Get(ctx context.Context, key string) (*domain.Grid, error)

	// Set stores a grid, replacing any grid cached under the same key.
	// Returns ErrInvalidInput for an empty key or nil grid.
	Set(ctx context.Context, key string, grid *domain.Grid) error

	// Delete removes one cached grid. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every cached grid.
	Clear(ctx context.Context) error
}
