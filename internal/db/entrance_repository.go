package db

import (
	"context"
	"fmt"

	"github.com/udisondev/clustergraph/internal/cluster"
	"github.com/udisondev/clustergraph/internal/tilestore"
)

// EntranceRepository implements cluster.EntranceRepository against the
// cluster_entrances output table.
type EntranceRepository struct {
	db       *DB
	counters *Counters
}

// NewEntranceRepository builds a repository bound to db, reporting writes
// (real or, in dry-run, would-be) into counters.
func NewEntranceRepository(db *DB, counters *Counters) *EntranceRepository {
	return &EntranceRepository{db: db, counters: counters}
}

func (r *EntranceRepository) DeleteScope(ctx context.Context, chunkX, chunkZ, plane int32) error {
	if r.db.readOnly {
		r.counters.addDelete()
		return nil
	}
	err := r.db.WithTx(ctx, DefaultMaxRetries, func(ctx context.Context, tx *Tx) error {
		return tx.Exec(ctx,
			`DELETE FROM cluster_entrances WHERE chunk_x = $1 AND chunk_z = $2 AND plane = $3`,
			chunkX, chunkZ, plane,
		)
	})
	if err != nil {
		return fmt.Errorf("deleting entrance scope (%d,%d,%d): %w", chunkX, chunkZ, plane, err)
	}
	r.counters.addDelete()
	return nil
}

// Upsert writes one entrance row, overwriting neighbor_dir deterministically
// on conflict.
func (r *EntranceRepository) Upsert(ctx context.Context, chunkX, chunkZ, plane, x, y int32, dir tilestore.Direction) (int64, error) {
	if r.db.readOnly {
		r.counters.addEntrance()
		return 0, nil
	}

	var id int64
	err := r.db.WithTx(ctx, DefaultMaxRetries, func(ctx context.Context, tx *Tx) error {
		return tx.QueryRowScan(ctx,
			`INSERT INTO cluster_entrances (chunk_x, chunk_z, plane, x, y, neighbor_dir)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (chunk_x, chunk_z, plane, x, y)
			 DO UPDATE SET neighbor_dir = EXCLUDED.neighbor_dir
			 RETURNING entrance_id`,
			[]any{chunkX, chunkZ, plane, x, y, dir.String()},
			&id,
		)
	})
	if err != nil {
		return 0, fmt.Errorf("upserting entrance (%d,%d,%d,%d,%d): %w", chunkX, chunkZ, plane, x, y, err)
	}
	r.counters.addEntrance()
	return id, nil
}

func (r *EntranceRepository) ListByChunkPlane(ctx context.Context, chunkX, chunkZ, plane int32) ([]cluster.Entrance, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT entrance_id, chunk_x, chunk_z, plane, x, y, neighbor_dir
		 FROM cluster_entrances
		 WHERE chunk_x = $1 AND chunk_z = $2 AND plane = $3
		 ORDER BY entrance_id ASC`,
		chunkX, chunkZ, plane,
	)
	if err != nil {
		return nil, fmt.Errorf("listing entrances (%d,%d,%d): %w", chunkX, chunkZ, plane, err)
	}
	defer rows.Close()

	var out []cluster.Entrance
	for rows.Next() {
		var e cluster.Entrance
		var dirStr string
		if err := rows.Scan(&e.ID, &e.ChunkX, &e.ChunkZ, &e.Plane, &e.X, &e.Y, &dirStr); err != nil {
			return nil, fmt.Errorf("scanning entrance row: %w", err)
		}
		dir, err := tilestore.ParseDirection(dirStr)
		if err != nil {
			return nil, fmt.Errorf("entrance %d: %w", e.ID, err)
		}
		e.NeighborDir = dir
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *EntranceRepository) FindAt(ctx context.Context, chunkX, chunkZ, plane, x, y int32, dir tilestore.Direction) (cluster.Entrance, bool, error) {
	var e cluster.Entrance
	var dirStr string
	err := r.db.pool.QueryRow(ctx,
		`SELECT entrance_id, chunk_x, chunk_z, plane, x, y, neighbor_dir
		 FROM cluster_entrances
		 WHERE chunk_x = $1 AND chunk_z = $2 AND plane = $3 AND x = $4 AND y = $5 AND neighbor_dir = $6`,
		chunkX, chunkZ, plane, x, y, dir.String(),
	).Scan(&e.ID, &e.ChunkX, &e.ChunkZ, &e.Plane, &e.X, &e.Y, &dirStr)
	if err != nil {
		if isNoRows(err) {
			return cluster.Entrance{}, false, nil
		}
		return cluster.Entrance{}, false, fmt.Errorf("finding entrance (%d,%d,%d,%d,%d,%s): %w", chunkX, chunkZ, plane, x, y, dir, err)
	}
	parsed, err := tilestore.ParseDirection(dirStr)
	if err != nil {
		return cluster.Entrance{}, false, fmt.Errorf("entrance %d: %w", e.ID, err)
	}
	e.NeighborDir = parsed
	return e, true, nil
}
