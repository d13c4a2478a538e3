package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"betting-risk-lab/internal/domain"
	"betting-risk-lab/internal/storage"
)

// GridCache implements storage.GridCache using ClickHouse.
// The full grid is stored as a JSON payload in grid_cache; every cell is also
// written to grid_cells for analytical queries. Newer versions replace older
// ones on merge, reads use FINAL.
type GridCache struct {
	conn *Conn
	now  func() time.Time
}

// NewGridCache creates a new GridCache.
func NewGridCache(conn *Conn) *GridCache {
	return &GridCache{conn: conn, now: time.Now}
}

// Compile-time interface check.
var _ storage.GridCache = (*GridCache)(nil)

// Get retrieves a grid by fingerprint. Returns ErrNotFound if not cached.
func (c *GridCache) Get(ctx context.Context, key string) (*domain.Grid, error) {
	var payload string
	err := c.conn.QueryRow(ctx,
		`SELECT payload FROM grid_cache FINAL WHERE fingerprint = ?`, key,
	).Scan(&payload)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get grid %s: %w", key, err)
	}

	var g domain.Grid
	if err := json.Unmarshal([]byte(payload), &g); err != nil {
		return nil, fmt.Errorf("decode grid %s: %w", key, err)
	}
	return &g, nil
}

// Set writes the payload row and one row per cell under a new version.
func (c *GridCache) Set(ctx context.Context, key string, grid *domain.Grid) error {
	if key == "" || grid == nil {
		return storage.ErrInvalidInput
	}

	payload, err := json.Marshal(grid)
	if err != nil {
		return fmt.Errorf("encode grid %s: %w", key, err)
	}
	version := uint64(c.now().UnixNano())

	if len(grid.Cells) > 0 {
		batch, err := c.conn.PrepareBatch(ctx, `
			INSERT INTO grid_cells (
				fingerprint, win_rate, risk_ratio, strategy, trials,
				mean_roi, ruin_pct, expected_profit, max_drawdown_mean,
				sharpe_ratio, calmar_ratio, sortino_ratio,
				classification, generated_at, version
			)
		`)
		if err != nil {
			return fmt.Errorf("prepare cell batch: %w", err)
		}
		for _, cell := range grid.Cells {
			s := cell.Stats
			err = batch.Append(
				key, cell.Key.WinRate, cell.Key.RiskRatio, string(cell.Key.Strategy), uint32(s.Trials),
				s.MeanROI, s.RuinPct, s.ExpectedProfit, s.MaxDrawdownMean,
				float64(s.SharpeRatio), float64(s.CalmarRatio), float64(s.SortinoRatio),
				string(cell.Note), grid.GeneratedAt, version,
			)
			if err != nil {
				return fmt.Errorf("append cell %s: %w", cell.Key, err)
			}
		}
		if err := batch.Send(); err != nil {
			return fmt.Errorf("send cell batch: %w", err)
		}
	}

	// Payload goes last so a reader never sees a grid whose cells are missing.
	err = c.conn.Exec(ctx,
		`INSERT INTO grid_cache (fingerprint, payload, generated_at, version) VALUES (?, ?, ?, ?)`,
		key, string(payload), grid.GeneratedAt, version,
	)
	if err != nil {
		return fmt.Errorf("insert grid %s: %w", key, err)
	}
	return nil
}

// Delete removes one cached grid and its cell rows.
func (c *GridCache) Delete(ctx context.Context, key string) error {
	for _, table := range []string{"grid_cache", "grid_cells"} {
		if err := c.conn.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE fingerprint = ?`, table), key); err != nil {
			return fmt.Errorf("delete %s from %s: %w", key, table, err)
		}
	}
	return nil
}

// Clear truncates both cache tables.
func (c *GridCache) Clear(ctx context.Context) error {
	for _, table := range []string{"grid_cache", "grid_cells"} {
		if err := c.conn.Exec(ctx, "TRUNCATE TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}
