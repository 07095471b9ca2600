package db

import (
	"context"
	"fmt"
)

// InterconnectionRepository implements cluster.InterconnectionRepository
// against the cluster_interconnections output table.
type InterconnectionRepository struct {
	db       *DB
	counters *Counters
}

func NewInterconnectionRepository(db *DB, counters *Counters) *InterconnectionRepository {
	return &InterconnectionRepository{db: db, counters: counters}
}

// DeleteScopeFrom deletes every inter-edge whose entrance_from satisfies
// inScope: a recompute first deletes all inter-edges whose entrance_from
// is in scope. Since the predicate is
// evaluated in Go (the scope is a set of already-loaded entrance IDs), the
// delete runs per matching row rather than a single bulk statement.
func (r *InterconnectionRepository) DeleteScopeFrom(ctx context.Context, inScope func(id int64) bool) error {
	if r.db.readOnly {
		r.counters.addDelete()
		return nil
	}

	rows, err := r.db.pool.Query(ctx, `SELECT DISTINCT entrance_from FROM cluster_interconnections`)
	if err != nil {
		return fmt.Errorf("listing interconnection sources: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scanning interconnection source: %w", err)
		}
		if inScope(id) {
			ids = append(ids, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating interconnection sources: %w", err)
	}

	for _, id := range ids {
		err := r.db.WithTx(ctx, DefaultMaxRetries, func(ctx context.Context, tx *Tx) error {
			return tx.Exec(ctx, `DELETE FROM cluster_interconnections WHERE entrance_from = $1`, id)
		})
		if err != nil {
			return fmt.Errorf("deleting interconnections from entrance %d: %w", id, err)
		}
		r.counters.addDelete()
	}
	return nil
}

// Upsert writes one directed edge, keeping the minimum cost on conflict.
func (r *InterconnectionRepository) Upsert(ctx context.Context, from, to int64, cost int32) error {
	if r.db.readOnly {
		r.counters.addInter()
		return nil
	}
	err := r.db.WithTx(ctx, DefaultMaxRetries, func(ctx context.Context, tx *Tx) error {
		return tx.Exec(ctx,
			`INSERT INTO cluster_interconnections (entrance_from, entrance_to, cost)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (entrance_from, entrance_to)
			 DO UPDATE SET cost = LEAST(cluster_interconnections.cost, EXCLUDED.cost)`,
			from, to, cost,
		)
	})
	if err != nil {
		return fmt.Errorf("upserting interconnection (%d->%d): %w", from, to, err)
	}
	r.counters.addInter()
	return nil
}
