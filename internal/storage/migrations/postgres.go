package migrations

import (
	"context"
	"fmt"

	"rugal-dominion/internal/storage/postgres"
)

// RunPostgres applies the PostgreSQL schema and returns the files it ran.
// Every file uses IF NOT EXISTS, so reruns on startup are safe.
func RunPostgres(ctx context.Context, pool *postgres.Pool, opts ...Option) ([]string, error) {
	r := newRunner(opts)

	migs, err := Load(Postgres)
	if err != nil {
		return nil, err
	}

	applied := make([]string, 0, len(migs))
	for _, m := range migs {
		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
		applied = append(applied, m.Name)
		r.logger.Printf("postgres migration %s applied", m.Name)
	}
	return applied, nil
}
