// Package jps implements the optional Jump-Point-Search expansion that
// replaces step-by-step neighbor expansion with precomputed jump targets,
// falling back to the neighbor.Policy when no tables are available for a
// tile, mirroring the source game data's Block/Region layering: a tile
// either has dedicated precomputed data or falls back to a default.
package jps

import (
	"context"
	"fmt"

	"github.com/udisondev/clustergraph/internal/neighbor"
	"github.com/udisondev/clustergraph/internal/tilestore"
)

// Tables is the read surface the accelerator needs for jump-point lookups.
type Tables interface {
	JumpPoint(ctx context.Context, x, y, plane int32, dir tilestore.Direction) (tilestore.JumpResult, bool, error)
}

// Accelerator expands a tile into its next useful search frontier, using
// precomputed jump tables when present and falling back to the plain
// Neighbor Policy otherwise.
type Accelerator struct {
	tables Tables
	policy neighbor.Policy
}

// New builds an Accelerator. tables may be nil, meaning every Expand call
// falls back to policy.
func New(tables Tables, policy neighbor.Policy) Accelerator {
	return Accelerator{tables: tables, policy: policy}
}

// Expand returns the next jump points reachable from (x, y), or the plain
// neighbor candidates if no table entry exists for this tile in any
// direction. Results are deduplicated in insertion order and filtered by
// the policy's walkability oracle so a precomputed jump target that has
// since become unwalkable is never returned.
func (a Accelerator) Expand(ctx context.Context, x, y int32) ([]tilestore.Coord, error) {
	if a.tables == nil {
		return a.policy.Candidates(x, y), nil
	}

	seen := make(map[tilestore.Coord]struct{}, 4)
	var out []tilestore.Coord
	anyHit := false

	for _, dir := range tilestore.CanonicalOrder {
		jr, ok, err := a.tables.JumpPoint(ctx, x, y, a.policy.Plane, dir)
		if err != nil {
			return nil, fmt.Errorf("jps expand (%d,%d) dir %s: %w", x, y, dir, err)
		}
		if !ok {
			continue
		}
		anyHit = true
		c := tilestore.Coord{X: jr.NextX, Y: jr.NextY, Plane: a.policy.Plane}
		if _, dup := seen[c]; dup {
			continue
		}
		if !a.walkable(c) {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}

	if !anyHit {
		return a.policy.Candidates(x, y), nil
	}
	return out, nil
}

func (a Accelerator) walkable(c tilestore.Coord) bool {
	return a.policy.Walkable(c.X, c.Y)
}

// StepCost is the Chebyshev distance between the current tile and a
// returned jump point, preserving A* admissibility (heuristic = Chebyshev
// to goal).
func StepCost(x1, y1, x2, y2 int32) int32 {
	return neighbor.StepCost(x1, y1, x2, y2)
}
