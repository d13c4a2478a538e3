package migrations

import (
	"context"
	"fmt"

	"betting-risk-lab/internal/storage/postgres"
)

// RunPostgresMigrations applies every embedded postgres/*.sql file in lexical order.
// Each file runs as one multi-statement Exec and must be idempotent.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	return applyAll(PostgresFS, "postgres", func(file, sql string) error {
		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
		return nil
	})
}
