// Package backend opens the grid cache selected by command-line configuration.
package backend

import (
	"context"
	"errors"
	"fmt"

	"betting-risk-lab/internal/storage"
	chstore "betting-risk-lab/internal/storage/clickhouse"
	"betting-risk-lab/internal/storage/memory"
	"betting-risk-lab/internal/storage/migrations"
	pgstore "betting-risk-lab/internal/storage/postgres"
)

// Supported backends
const (
	None       = "none"
	Memory     = "memory"
	Postgres   = "postgres"
	Clickhouse = "clickhouse"
)

// DefaultMaxConns is the Postgres pool size used when Config.MaxConns is zero.
const DefaultMaxConns = 4

// ErrUnknownBackend is returned for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown cache backend")

// Config selects and configures a grid cache.
type Config struct {
	Backend       string
	PostgresDSN   string
	ClickhouseDSN string
	MaxConns      int32
	Migrate       bool // apply embedded migrations before use
}

// Open returns the configured cache and a cleanup function.
// The None backend returns a nil cache.
func Open(ctx context.Context, cfg Config) (storage.GridCache, func(), error) {
	noop := func() {}

	switch cfg.Backend {
	case None:
		return nil, noop, nil
	case Memory, "":
		return memory.NewGridCache(), noop, nil

	case Postgres:
		if cfg.PostgresDSN == "" {
			return nil, noop, fmt.Errorf("%w: postgres dsn is required", storage.ErrInvalidInput)
		}
		maxConns := cfg.MaxConns
		if maxConns <= 0 {
			maxConns = DefaultMaxConns
		}
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN, maxConns)
		if err != nil {
			return nil, noop, fmt.Errorf("connect to postgres: %w", err)
		}
		if cfg.Migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				pool.Close()
				return nil, noop, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		return pgstore.NewGridCache(pool), pool.Close, nil

	case Clickhouse:
		if cfg.ClickhouseDSN == "" {
			return nil, noop, fmt.Errorf("%w: clickhouse dsn is required", storage.ErrInvalidInput)
		}
		var (
			conn *chstore.Conn
			err  error
		)
		if cfg.Migrate {
			conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		} else {
			conn, err = chstore.NewConn(ctx, cfg.ClickhouseDSN)
		}
		if err != nil {
			return nil, noop, fmt.Errorf("connect to clickhouse: %w", err)
		}
		return chstore.NewGridCache(conn), func() { conn.Close() }, nil
	}

	return nil, noop, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}
