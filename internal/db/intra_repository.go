package db

import (
	"context"
	"fmt"

	"github.com/udisondev/clustergraph/internal/cluster"
)

// IntraconnectionRepository implements cluster.IntraconnectionRepository
// against the cluster_intraconnections output table.
type IntraconnectionRepository struct {
	db       *DB
	counters *Counters
}

func NewIntraconnectionRepository(db *DB, counters *Counters) *IntraconnectionRepository {
	return &IntraconnectionRepository{db: db, counters: counters}
}

func (r *IntraconnectionRepository) DeleteScope(ctx context.Context, chunkX, chunkZ, plane int32) error {
	if r.db.readOnly {
		r.counters.addDelete()
		return nil
	}
	err := r.db.WithTx(ctx, DefaultMaxRetries, func(ctx context.Context, tx *Tx) error {
		return tx.Exec(ctx,
			`DELETE FROM cluster_intraconnections WHERE chunk_x_from = $1 AND chunk_z_from = $2 AND plane_from = $3`,
			chunkX, chunkZ, plane,
		)
	})
	if err != nil {
		return fmt.Errorf("deleting intraconnection scope (%d,%d,%d): %w", chunkX, chunkZ, plane, err)
	}
	r.counters.addDelete()
	return nil
}

// Upsert writes one directed intra-edge. Conflict resolution keeps the
// minimum cost; path_blob is only overwritten when the new row carries a
// non-null blob, otherwise the existing blob is preserved.
func (r *IntraconnectionRepository) Upsert(ctx context.Context, row cluster.Intraconnection) error {
	if r.db.readOnly {
		r.counters.addIntra()
		return nil
	}
	err := r.db.WithTx(ctx, DefaultMaxRetries, func(ctx context.Context, tx *Tx) error {
		return tx.Exec(ctx,
			`INSERT INTO cluster_intraconnections
			   (chunk_x_from, chunk_z_from, plane_from, entrance_from, entrance_to, cost, path_blob)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (chunk_x_from, chunk_z_from, plane_from, entrance_from, entrance_to)
			 DO UPDATE SET
			   cost = LEAST(cluster_intraconnections.cost, EXCLUDED.cost),
			   path_blob = COALESCE(EXCLUDED.path_blob, cluster_intraconnections.path_blob)`,
			row.ChunkXFrom, row.ChunkZFrom, row.PlaneFrom, row.EntranceFrom, row.EntranceTo, row.Cost, row.PathBlob,
		)
	})
	if err != nil {
		return fmt.Errorf("upserting intraconnection (%d->%d): %w", row.EntranceFrom, row.EntranceTo, err)
	}
	r.counters.addIntra()
	return nil
}
