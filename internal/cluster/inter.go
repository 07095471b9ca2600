package cluster

import (
	"context"
	"fmt"

	"github.com/udisondev/clustergraph/internal/tilestore"
)

// Interconnection is a symmetric, unit-cost edge between two entrances on
// opposite sides of a shared chunk border.
type Interconnection struct {
	EntranceFrom, EntranceTo int64
	Cost                     int32
}

// InterconnectionRepository is the write surface the Inter-Connector needs.
type InterconnectionRepository interface {
	DeleteScopeFrom(ctx context.Context, entranceFromInScope func(id int64) bool) error
	Upsert(ctx context.Context, from, to int64, cost int32) error
}

// BuildInterconnections computes inter-cluster edges over the given
// scope. It iterates every entrance in scope, pairs it with its opposing
// entrance in the neighbor chunk, and writes a symmetric unit-cost edge.
func BuildInterconnections(ctx context.Context, store tilestore.Store, entranceRepo EntranceRepository, interRepo InterconnectionRepository, scope Scope, recompute bool) error {
	chunks, err := store.ListChunks(ctx, scope.Filter)
	if err != nil {
		return fmt.Errorf("build interconnections: listing chunks: %w", err)
	}

	inScope := make(map[int64]struct{})
	type pending struct {
		entrance Entrance
		bounds   tilestore.Bounds
	}
	var work []pending

	for _, chunk := range chunks {
		planes, err := planesFor(ctx, store, chunk, scope)
		if err != nil {
			return err
		}
		bounds := tilestore.BoundsOf(chunk.ChunkX, chunk.ChunkZ, chunk.ChunkSize)
		for _, plane := range planes {
			entrances, err := entranceRepo.ListByChunkPlane(ctx, chunk.ChunkX, chunk.ChunkZ, plane)
			if err != nil {
				return fmt.Errorf("build interconnections: listing entrances (%d,%d,%d): %w", chunk.ChunkX, chunk.ChunkZ, plane, err)
			}
			for _, e := range entrances {
				inScope[e.ID] = struct{}{}
				work = append(work, pending{entrance: e, bounds: bounds})
			}
		}
	}

	if recompute {
		if err := interRepo.DeleteScopeFrom(ctx, func(id int64) bool {
			_, ok := inScope[id]
			return ok
		}); err != nil {
			return fmt.Errorf("build interconnections: deleting scope: %w", err)
		}
	}

	for _, w := range work {
		e := w.entrance
		dx, dy := e.NeighborDir.Delta()
		extX, extY := e.X+dx, e.Y+dy

		selfTile, ok, err := store.GetTile(ctx, e.X, e.Y, e.Plane)
		if err != nil {
			return fmt.Errorf("build interconnections: self tile (%d,%d,%d): %w", e.X, e.Y, e.Plane, err)
		}
		if !ok || !selfTile.Walkable() {
			continue
		}
		extTile, ok, err := store.GetTile(ctx, extX, extY, e.Plane)
		if err != nil {
			return fmt.Errorf("build interconnections: external tile (%d,%d,%d): %w", extX, extY, e.Plane, err)
		}
		if !ok || !extTile.Walkable() {
			continue
		}
		if !tilestore.CanCross(e.NeighborDir, selfTile.WalkData, extTile.WalkData) {
			continue
		}

		oppDir := e.NeighborDir.Opposite()
		oppChunkX, oppChunkZ := tilestore.ChunkOf(extX, extY, w.bounds.X1-w.bounds.X0+1)
		opp, ok, err := entranceRepo.FindAt(ctx, oppChunkX, oppChunkZ, e.Plane, extX, extY, oppDir)
		if err != nil {
			return fmt.Errorf("build interconnections: opposing entrance lookup: %w", err)
		}
		if !ok {
			continue // missing opposing entrance is not an error
		}

		if err := interRepo.Upsert(ctx, e.ID, opp.ID, 1); err != nil {
			return fmt.Errorf("build interconnections: upserting (%d->%d): %w", e.ID, opp.ID, err)
		}
		if err := interRepo.Upsert(ctx, opp.ID, e.ID, 1); err != nil {
			return fmt.Errorf("build interconnections: upserting (%d->%d): %w", opp.ID, e.ID, err)
		}
	}

	return nil
}
