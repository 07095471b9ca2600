package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// writeVerbs are the statement keywords NewReadOnly rejects. A dry-run
// write attempt is a fatal bug, never silently ignored.
var writeVerbs = map[string]struct{}{
	"INSERT": {}, "UPDATE": {}, "DELETE": {}, "UPSERT": {},
	"CREATE": {}, "DROP": {}, "ALTER": {}, "TRUNCATE": {},
}

// ErrDryRunWrite is returned when a write statement is attempted against a
// read-only handle.
var ErrDryRunWrite = errors.New("dry-run: write statement attempted against read-only handle")

func firstKeyword(sql string) string {
	trimmed := strings.TrimSpace(sql)
	end := strings.IndexAny(trimmed, " \t\n(")
	if end < 0 {
		end = len(trimmed)
	}
	return strings.ToUpper(trimmed[:end])
}

func checkWritable(readOnly bool, sql string) error {
	if !readOnly {
		return nil
	}
	if _, isWrite := writeVerbs[firstKeyword(sql)]; isWrite {
		return ErrDryRunWrite
	}
	return nil
}

// Tx wraps a pgx transaction with the guaranteed-rollback discipline
// described in Design Notes: replace exception-based transaction control
// with an explicit guard that rolls back on any non-success exit, and
// commits only when fn returns nil.
type Tx struct {
	pgx.Tx
	readOnly bool
}

// WithTx begins a transaction with pgx's default options (read-committed
// isolation, read-write access), runs
// fn, and commits on success or rolls back otherwise. The whole call is
// wrapped in the retry loop from retry.go.
func (d *DB) WithTx(ctx context.Context, maxRetries int, fn func(ctx context.Context, tx *Tx) error) error {
	return WithRetry(ctx, maxRetries, func(ctx context.Context) error {
		pgxTx, err := d.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		tx := &Tx{Tx: pgxTx, readOnly: d.readOnly}

		committed := false
		defer func() {
			if !committed {
				_ = pgxTx.Rollback(ctx)
			}
		}()

		if err := fn(ctx, tx); err != nil {
			return err
		}

		if d.readOnly {
			// Dry-run: never commit, even if fn reported no write attempt.
			return nil
		}

		if err := pgxTx.Commit(ctx); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		committed = true
		return nil
	})
}

// Exec runs a write statement within the transaction, honoring read-only
// rejection.
func (t *Tx) Exec(ctx context.Context, sql string, args ...any) error {
	if err := checkWritable(t.readOnly, sql); err != nil {
		return err
	}
	if t.readOnly {
		return nil // dry-run: count-only callers should not reach here for real writes
	}
	_, err := t.Tx.Exec(ctx, sql, args...)
	return err
}

// QueryRowScan runs a write statement that returns a single row (e.g. an
// INSERT ... RETURNING) and scans it into dest, honoring read-only
// rejection the same way Exec does.
func (t *Tx) QueryRowScan(ctx context.Context, sql string, args []any, dest ...any) error {
	if err := checkWritable(t.readOnly, sql); err != nil {
		return err
	}
	if t.readOnly {
		return nil
	}
	return t.Tx.QueryRow(ctx, sql, args...).Scan(dest...)
}
