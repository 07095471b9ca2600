package cluster

import (
	"context"
	"fmt"

	"github.com/udisondev/clustergraph/internal/jps"
	"github.com/udisondev/clustergraph/internal/neighbor"
	"github.com/udisondev/clustergraph/internal/tilestore"
)

// Intraconnection is a precomputed shortest path between two entrances of
// the same chunk+plane.
type Intraconnection struct {
	ChunkXFrom, ChunkZFrom, PlaneFrom int32
	EntranceFrom, EntranceTo          int64
	Cost                              int32
	PathBlob                          []byte // nil when store_paths is disabled
}

// IntraconnectionRepository is the write surface the Intra-Connector needs.
type IntraconnectionRepository interface {
	DeleteScope(ctx context.Context, chunkX, chunkZ, plane int32) error
	Upsert(ctx context.Context, row Intraconnection) error
}

// jumpTables is satisfied by tilestore.Store; kept narrow so jps.Accelerator
// only depends on what it needs.
type jumpTables interface {
	JumpPoint(ctx context.Context, x, y, plane int32, dir tilestore.Direction) (tilestore.JumpResult, bool, error)
}

// BuildIntraconnections computes all-pairs intra-cluster shortest paths:
// for each chunk+plane, A* between every unordered entrance pair,
// restricted to chunk bounds, using JPS expansion when available.
func BuildIntraconnections(ctx context.Context, store tilestore.Store, entranceRepo EntranceRepository, intraRepo IntraconnectionRepository, scope Scope, recompute, storePaths bool) error {
	chunks, err := store.ListChunks(ctx, scope.Filter)
	if err != nil {
		return fmt.Errorf("build intraconnections: listing chunks: %w", err)
	}

	mp, err := store.MovementPolicy(ctx)
	if err != nil {
		return fmt.Errorf("build intraconnections: %w", err)
	}

	hasJPS, err := store.JPSAvailable(ctx)
	if err != nil {
		return fmt.Errorf("build intraconnections: probing JPS availability: %w", err)
	}

	for _, chunk := range chunks {
		planes, err := planesFor(ctx, store, chunk, scope)
		if err != nil {
			return err
		}
		bounds := tilestore.BoundsOf(chunk.ChunkX, chunk.ChunkZ, chunk.ChunkSize)

		for _, plane := range planes {
			if recompute {
				if err := intraRepo.DeleteScope(ctx, chunk.ChunkX, chunk.ChunkZ, plane); err != nil {
					return fmt.Errorf("build intraconnections: deleting scope (%d,%d,%d): %w", chunk.ChunkX, chunk.ChunkZ, plane, err)
				}
			}

			walkable, err := store.ListChunkWalkable(ctx, chunk.ChunkX, chunk.ChunkZ, plane)
			if err != nil {
				return fmt.Errorf("build intraconnections: loading walkable set (%d,%d,%d): %w", chunk.ChunkX, chunk.ChunkZ, plane, err)
			}

			oracle := func(x, y, pl int32) bool {
				if x >= bounds.X0 && x <= bounds.X1 && y >= bounds.Y0 && y <= bounds.Y1 {
					_, ok := walkable[tilestore.Coord{X: x, Y: y, Plane: pl}]
					return ok
				}
				tile, ok, err := store.GetTile(ctx, x, y, pl)
				if err != nil || !ok {
					return false
				}
				return tile.Walkable()
			}

			policy := neighbor.New(mp, plane, oracle)
			var expander Expander
			if hasJPS {
				acc := jps.New(jumpTablesAdapter{store}, policy)
				expander = jpsExpander{acc: acc, bounds: bounds}
			} else {
				expander = policyExpander{policy: policy, bounds: bounds}
			}

			entrances, err := entranceRepo.ListByChunkPlane(ctx, chunk.ChunkX, chunk.ChunkZ, plane)
			if err != nil {
				return fmt.Errorf("build intraconnections: listing entrances (%d,%d,%d): %w", chunk.ChunkX, chunk.ChunkZ, plane, err)
			}

			for i := 0; i < len(entrances); i++ {
				for j := i + 1; j < len(entrances); j++ {
					a, b := entrances[i], entrances[j]
					if a.X == b.X && a.Y == b.Y {
						continue // same-tile pairs are skipped silently
					}

					cost, path, ok, err := AStar(ctx, expander, a.X, a.Y, b.X, b.Y, MaxIntraSearchIterations)
					if err != nil {
						return fmt.Errorf("build intraconnections: A* (%d->%d): %w", a.ID, b.ID, err)
					}
					if !ok {
						continue // unreachable pair yields no row, not an error
					}

					var blobAB, blobBA []byte
					if storePaths {
						waypoints := CompressWaypoints(path)
						blobAB, err = EncodePathBlob(waypoints)
						if err != nil {
							return fmt.Errorf("build intraconnections: encoding path (%d->%d): %w", a.ID, b.ID, err)
						}
						reversed := make([]tilestore.Coord, len(waypoints))
						for k, w := range waypoints {
							reversed[len(waypoints)-1-k] = w
						}
						blobBA, err = EncodePathBlob(reversed)
						if err != nil {
							return fmt.Errorf("build intraconnections: encoding reverse path (%d->%d): %w", b.ID, a.ID, err)
						}
					}

					if err := intraRepo.Upsert(ctx, Intraconnection{
						ChunkXFrom: chunk.ChunkX, ChunkZFrom: chunk.ChunkZ, PlaneFrom: plane,
						EntranceFrom: a.ID, EntranceTo: b.ID, Cost: cost, PathBlob: blobAB,
					}); err != nil {
						return fmt.Errorf("build intraconnections: upserting (%d->%d): %w", a.ID, b.ID, err)
					}
					if err := intraRepo.Upsert(ctx, Intraconnection{
						ChunkXFrom: chunk.ChunkX, ChunkZFrom: chunk.ChunkZ, PlaneFrom: plane,
						EntranceFrom: b.ID, EntranceTo: a.ID, Cost: cost, PathBlob: blobBA,
					}); err != nil {
						return fmt.Errorf("build intraconnections: upserting (%d->%d): %w", b.ID, a.ID, err)
					}
				}
			}
		}
	}

	return nil
}

// inBounds reports whether c lies within the chunk rectangle. The
// walkability oracle consults the Tile Store past the chunk edge only to
// clear the corner-cut/unit-radius checks inside neighbor.Policy — it
// never licenses a step that lands outside the chunk, so every expander
// re-checks bounds on its own output before handing candidates to A*.
func inBounds(c tilestore.Coord, bounds tilestore.Bounds) bool {
	return c.X >= bounds.X0 && c.X <= bounds.X1 && c.Y >= bounds.Y0 && c.Y <= bounds.Y1
}

func filterBounds(candidates []tilestore.Coord, bounds tilestore.Bounds) []tilestore.Coord {
	out := candidates[:0]
	for _, c := range candidates {
		if inBounds(c, bounds) {
			out = append(out, c)
		}
	}
	return out
}

type policyExpander struct {
	policy neighbor.Policy
	bounds tilestore.Bounds
}

func (p policyExpander) Expand(_ context.Context, x, y int32) ([]tilestore.Coord, error) {
	return filterBounds(p.policy.Candidates(x, y), p.bounds), nil
}

type jpsExpander struct {
	acc    jps.Accelerator
	bounds tilestore.Bounds
}

func (j jpsExpander) Expand(ctx context.Context, x, y int32) ([]tilestore.Coord, error) {
	candidates, err := j.acc.Expand(ctx, x, y)
	if err != nil {
		return nil, err
	}
	return filterBounds(candidates, j.bounds), nil
}

type jumpTablesAdapter struct{ store tilestore.Store }

func (a jumpTablesAdapter) JumpPoint(ctx context.Context, x, y, plane int32, dir tilestore.Direction) (tilestore.JumpResult, bool, error) {
	return a.store.JumpPoint(ctx, x, y, plane, dir)
}
