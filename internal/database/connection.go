package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// defaultMaxConns allows one connection for migration work plus one for the
// optional advisory lock session.
const defaultMaxConns = 2

// NewPool creates a pgx connection pool for the given database URL.
// A non-empty password overrides whatever the URL carries; credential
// resolution happens before this call. The pool is pinged to verify connectivity.
func NewPool(ctx context.Context, databaseURL, password string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDatabaseURL, err)
	}

	poolCfg.MaxConns = defaultMaxConns

	if password != "" {
		poolCfg.ConnConfig.Password = password
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return pool, nil
}
