// Package cluster implements the hierarchical pathfinding abstraction
// builder: entrance discovery, inter-cluster edges, and per-chunk
// all-pairs intra-cluster pathfinding.
package cluster

import (
	"context"
	"fmt"

	"github.com/udisondev/clustergraph/internal/tilestore"
)

// Entrance is a border-tile anchor used as a graph node.
type Entrance struct {
	ID                int64
	ChunkX, ChunkZ    int32
	Plane             int32
	X, Y              int32
	NeighborDir       tilestore.Direction
}

// EntranceRepository is the write surface Entrance Discovery needs.
type EntranceRepository interface {
	DeleteScope(ctx context.Context, chunkX, chunkZ, plane int32) error
	Upsert(ctx context.Context, chunkX, chunkZ, plane, x, y int32, dir tilestore.Direction) (int64, error)
	ListByChunkPlane(ctx context.Context, chunkX, chunkZ, plane int32) ([]Entrance, error)
	FindAt(ctx context.Context, chunkX, chunkZ, plane, x, y int32, dir tilestore.Direction) (Entrance, bool, error)
}

// Scope restricts which chunks/planes a phase operates over.
type Scope struct {
	Filter tilestore.ChunkFilter
	Planes []int32 // nil/empty means "all planes present in the chunk"
}

// DiscoverEntrances finds every cluster entrance on a chunk border within
// the given scope.
func DiscoverEntrances(ctx context.Context, store tilestore.Store, repo EntranceRepository, scope Scope, recompute bool) error {
	chunks, err := store.ListChunks(ctx, scope.Filter)
	if err != nil {
		return fmt.Errorf("discover entrances: listing chunks: %w", err)
	}

	for _, chunk := range chunks {
		planes, err := planesFor(ctx, store, chunk, scope)
		if err != nil {
			return err
		}

		for _, plane := range planes {
			if recompute {
				if err := repo.DeleteScope(ctx, chunk.ChunkX, chunk.ChunkZ, plane); err != nil {
					return fmt.Errorf("discover entrances: deleting scope (%d,%d,%d): %w", chunk.ChunkX, chunk.ChunkZ, plane, err)
				}
			}

			bounds := tilestore.BoundsOf(chunk.ChunkX, chunk.ChunkZ, chunk.ChunkSize)
			borderTiles, err := store.ListBorderWalkable(ctx, chunk.ChunkX, chunk.ChunkZ, plane, bounds)
			if err != nil {
				return fmt.Errorf("discover entrances: listing border tiles (%d,%d,%d): %w", chunk.ChunkX, chunk.ChunkZ, plane, err)
			}

			for _, tile := range borderTiles {
				dir, ok, err := qualifyingDirection(ctx, store, tile, bounds)
				if err != nil {
					return fmt.Errorf("discover entrances: qualifying tile (%d,%d,%d): %w", tile.X, tile.Y, plane, err)
				}
				if !ok {
					continue
				}
				if _, err := repo.Upsert(ctx, chunk.ChunkX, chunk.ChunkZ, plane, tile.X, tile.Y, dir); err != nil {
					return fmt.Errorf("discover entrances: upserting (%d,%d,%d): %w", tile.X, tile.Y, plane, err)
				}
			}
		}
	}
	return nil
}

func planesFor(ctx context.Context, store tilestore.Store, chunk tilestore.Chunk, scope Scope) ([]int32, error) {
	if len(scope.Planes) > 0 {
		return scope.Planes, nil
	}
	planes, err := store.ListPlanesInChunk(ctx, chunk.ChunkX, chunk.ChunkZ)
	if err != nil {
		return nil, fmt.Errorf("listing planes for chunk (%d,%d): %w", chunk.ChunkX, chunk.ChunkZ, err)
	}
	return planes, nil
}

// qualifyingDirection applies the canonical-order rule: for a border
// tile, walk the canonical order {N,E,S,W} and return the first direction
// whose border the tile lies on, whose external tile is walkable, and
// whose directional crossing test passes.
func qualifyingDirection(ctx context.Context, store tilestore.Store, tile tilestore.Coord, bounds tilestore.Bounds) (tilestore.Direction, bool, error) {
	// ListBorderWalkable already guarantees blocked=0 and walk_mask!=0; we
	// still need the tile's walk_data for the crossing test.
	selfTile, ok, err := store.GetTile(ctx, tile.X, tile.Y, tile.Plane)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, nil
	}

	for _, dir := range tilestore.CanonicalOrder {
		if !onBorder(tile, bounds, dir) {
			continue
		}
		dx, dy := dir.Delta()
		extX, extY := tile.X+dx, tile.Y+dy

		extTile, ok, err := store.GetTile(ctx, extX, extY, tile.Plane)
		if err != nil {
			return 0, false, err
		}
		if !ok || !extTile.Walkable() {
			continue
		}
		if !tilestore.CanCross(dir, selfTile.WalkData, extTile.WalkData) {
			continue
		}
		return dir, true, nil
	}
	return 0, false, nil
}

// onBorder reports whether tile lies on the chunk edge crossed by dir.
func onBorder(tile tilestore.Coord, bounds tilestore.Bounds, dir tilestore.Direction) bool {
	switch dir {
	case tilestore.North:
		return tile.Y == bounds.Y1
	case tilestore.South:
		return tile.Y == bounds.Y0
	case tilestore.East:
		return tile.X == bounds.X1
	case tilestore.West:
		return tile.X == bounds.X0
	default:
		return false
	}
}
