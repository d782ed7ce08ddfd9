package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolAdapter exposes the connection pool's Ping for readiness checks
// without leaking the pool type to the HTTP layer.
type PoolAdapter struct {
	pool *pgxpool.Pool
}

// NewPoolAdapter wraps a pgx pool for health checking.
func NewPoolAdapter(pool *pgxpool.Pool) *PoolAdapter {
	return &PoolAdapter{pool: pool}
}

// Ping verifies the database connection is alive.
func (a *PoolAdapter) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}
