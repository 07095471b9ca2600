package tilestore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store against the input schema (tiles,
// chunks, movement_policy, jps_jump, jps_spans).
//
// Each Orchestrator worker owns its own PostgresStore/pool pair — handles
// are never shared across goroutines.
type PostgresStore struct {
	pool *pgxpool.Pool

	jpsOnce      sync.Once
	jpsAvailable bool
	jpsErr       error
}

// NewPostgresStore wraps an existing pool. The pool is owned by the caller.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) GetTile(ctx context.Context, x, y, plane int32) (Tile, bool, error) {
	var blocked bool
	var walkMask int32
	var walkDataRaw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT blocked, walk_mask, walk_data FROM tiles WHERE x = $1 AND y = $2 AND plane = $3`,
		x, y, plane,
	).Scan(&blocked, &walkMask, &walkDataRaw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Tile{}, false, nil
		}
		return Tile{}, false, fmt.Errorf("querying tile (%d,%d,%d): %w", x, y, plane, err)
	}
	if walkMask < 0 || walkMask > 0xFF {
		return Tile{}, false, fmt.Errorf("tile (%d,%d,%d): walk_mask %d out of 8-bit range", x, y, plane, walkMask)
	}
	return Tile{
		Blocked:  blocked,
		WalkMask: uint8(walkMask),
		WalkData: parseWalkData(walkDataRaw),
	}, true, nil
}

// parseWalkData decodes the walk_data key->bool map. Corrupt or absent
// JSON yields all-TRUE defaults (corrupt walk_data JSON is treated as
// an empty map"); unrecognized keys (including diagonal keys) are ignored.
func parseWalkData(raw []byte) WalkData {
	wd := DefaultWalkData()
	if len(raw) == 0 {
		return wd
	}
	var m map[string]bool
	if err := json.Unmarshal(raw, &m); err != nil {
		return DefaultWalkData()
	}
	if v, ok := m["top"]; ok {
		wd.Top = v
	}
	if v, ok := m["bottom"]; ok {
		wd.Bottom = v
	}
	if v, ok := m["left"]; ok {
		wd.Left = v
	}
	if v, ok := m["right"]; ok {
		wd.Right = v
	}
	return wd
}

func (s *PostgresStore) ListChunks(ctx context.Context, filter ChunkFilter) ([]Chunk, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT chunk_x, chunk_z, chunk_size, tile_count FROM chunks
		 WHERE ($1::int IS NULL OR chunk_x >= $1)
		   AND ($2::int IS NULL OR chunk_x <= $2)
		   AND ($3::int IS NULL OR chunk_z >= $3)
		   AND ($4::int IS NULL OR chunk_z <= $4)
		 ORDER BY chunk_x ASC, chunk_z ASC`,
		filter.MinX, filter.MaxX, filter.MinZ, filter.MaxZ,
	)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ChunkX, &c.ChunkZ, &c.ChunkSize, &c.TileCount); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListPlanesInChunk(ctx context.Context, chunkX, chunkZ int32) ([]int32, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT plane FROM tiles WHERE chunk_x = $1 AND chunk_z = $2 ORDER BY plane ASC`,
		chunkX, chunkZ,
	)
	if err != nil {
		return nil, fmt.Errorf("listing planes for chunk (%d,%d): %w", chunkX, chunkZ, err)
	}
	defer rows.Close()

	var out []int32
	for rows.Next() {
		var p int32
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning plane row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListBorderWalkable(ctx context.Context, chunkX, chunkZ, plane int32, bounds Bounds) ([]Coord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT x, y FROM tiles
		 WHERE chunk_x = $1 AND chunk_z = $2 AND plane = $3
		   AND blocked = false AND walk_mask != 0
		   AND (x = $4 OR x = $5 OR y = $6 OR y = $7)`,
		chunkX, chunkZ, plane, bounds.X0, bounds.X1, bounds.Y0, bounds.Y1,
	)
	if err != nil {
		return nil, fmt.Errorf("listing border-walkable tiles for chunk (%d,%d) plane %d: %w", chunkX, chunkZ, plane, err)
	}
	defer rows.Close()

	var out []Coord
	for rows.Next() {
		var c Coord
		if err := rows.Scan(&c.X, &c.Y); err != nil {
			return nil, fmt.Errorf("scanning border tile row: %w", err)
		}
		c.Plane = plane
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListChunkWalkable(ctx context.Context, chunkX, chunkZ, plane int32) (map[Coord]struct{}, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT x, y FROM tiles WHERE chunk_x = $1 AND chunk_z = $2 AND plane = $3 AND blocked = false AND walk_mask != 0`,
		chunkX, chunkZ, plane,
	)
	if err != nil {
		return nil, fmt.Errorf("listing chunk-walkable tiles for chunk (%d,%d) plane %d: %w", chunkX, chunkZ, plane, err)
	}
	defer rows.Close()

	out := make(map[Coord]struct{})
	for rows.Next() {
		var x, y int32
		if err := rows.Scan(&x, &y); err != nil {
			return nil, fmt.Errorf("scanning walkable tile row: %w", err)
		}
		out[Coord{X: x, Y: y, Plane: plane}] = struct{}{}
	}
	return out, rows.Err()
}

func (s *PostgresStore) MovementPolicy(ctx context.Context) (MovementPolicy, error) {
	var mp MovementPolicy
	err := s.pool.QueryRow(ctx,
		`SELECT allow_diagonals, allow_corner_cut, unit_radius_tiles FROM movement_policy WHERE policy_id = 1`,
	).Scan(&mp.AllowDiagonals, &mp.AllowCornerCut, &mp.UnitRadiusTiles)
	if err != nil {
		if err == pgx.ErrNoRows {
			return MovementPolicy{}, fmt.Errorf("movement_policy row missing: %w", err)
		}
		return MovementPolicy{}, fmt.Errorf("querying movement policy: %w", err)
	}
	if mp.UnitRadiusTiles < 0 {
		return MovementPolicy{}, fmt.Errorf("movement_policy: unit_radius_tiles %d must be >= 0", mp.UnitRadiusTiles)
	}
	return mp, nil
}

func (s *PostgresStore) JPSAvailable(ctx context.Context) (bool, error) {
	s.jpsOnce.Do(func() {
		var exists int
		err := s.pool.QueryRow(ctx, `SELECT 1 FROM jps_jump LIMIT 1`).Scan(&exists)
		if err != nil {
			if err == pgx.ErrNoRows {
				s.jpsAvailable = false
				return
			}
			s.jpsErr = fmt.Errorf("probing jps_jump availability: %w", err)
			return
		}
		s.jpsAvailable = true
	})
	return s.jpsAvailable, s.jpsErr
}

func (s *PostgresStore) JumpPoint(ctx context.Context, x, y, plane int32, dir Direction) (JumpResult, bool, error) {
	var jr JumpResult
	var forced int32
	err := s.pool.QueryRow(ctx,
		`SELECT next_x, next_y, forced_mask FROM jps_jump WHERE x = $1 AND y = $2 AND plane = $3 AND dir = $4`,
		x, y, plane, int32(dir),
	).Scan(&jr.NextX, &jr.NextY, &forced)
	if err != nil {
		if err == pgx.ErrNoRows {
			return JumpResult{}, false, nil
		}
		return JumpResult{}, false, fmt.Errorf("querying jps_jump (%d,%d,%d,%s): %w", x, y, plane, dir, err)
	}
	jr.ForcedMask = byte(forced)
	return jr, true, nil
}

func (s *PostgresStore) SpansAt(ctx context.Context, x, y, plane int32) (Spans, bool, error) {
	var sp Spans
	err := s.pool.QueryRow(ctx,
		`SELECT left_block_at, right_block_at, up_block_at, down_block_at FROM jps_spans WHERE x = $1 AND y = $2 AND plane = $3`,
		x, y, plane,
	).Scan(&sp.LeftBlockAt, &sp.RightBlockAt, &sp.UpBlockAt, &sp.DownBlockAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Spans{}, false, nil
		}
		return Spans{}, false, fmt.Errorf("querying jps_spans (%d,%d,%d): %w", x, y, plane, err)
	}
	return sp, true, nil
}
