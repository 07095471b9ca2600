// Package db implements the persistence layer: connection lifecycle, a
// guarded transaction primitive, deterministic-conflict upserts for the
// output schema, and a retry loop for lock contention.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgx connection pool for the cluster-graph output schema.
// Each Orchestrator worker owns its own DB — handles are never shared
// across goroutines.
type DB struct {
	pool     *pgxpool.Pool
	readOnly bool
}

// New connects to PostgreSQL and returns a DB handle.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{pool: pool}, nil
}

// NewReadOnly connects like New but marks the handle read-only, used by
// the Orchestrator's dry-run mode. Any statement whose first keyword is a
// known write verb is rejected rather than silently skipped: a dry-run
// write attempt indicates a bug and must fail loudly.
func NewReadOnly(ctx context.Context, dsn string) (*DB, error) {
	d, err := New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	d.readOnly = true
	return d, nil
}

// Close closes the database connection pool.
func (d *DB) Close() {
	d.pool.Close()
}

// Pool returns the underlying pgx pool (for goose migrations and
// repository construction).
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}

// ReadOnly reports whether this handle is in dry-run mode.
func (d *DB) ReadOnly() bool {
	return d.readOnly
}
