// Package neighbor implements the pure grid-neighbor rules shared by the
// A* search and the JPS accelerator: from a tile, produce its candidate
// neighbors under the diagonal/corner-cut/unit-radius movement rules.
package neighbor

import "github.com/udisondev/clustergraph/internal/tilestore"

// IsWalkableFunc reports whether a tile is walkable. The Intra-Connector
// supplies a local in-memory oracle backed by a chunk-walkable set, with a
// Tile Store fallback only for the unit-radius check near chunk edges.
type IsWalkableFunc func(x, y, plane int32) bool

// Policy is an immutable movement-rule configuration plus a borrowed
// walkability oracle: WithWalkable returns a new Policy
// value sharing the same immutable rule set but a different oracle,
// instead of mutating a field in place.
type Policy struct {
	AllowDiagonals bool
	AllowCornerCut bool
	UnitRadius     int32
	Plane          int32

	isWalkable IsWalkableFunc
}

// New builds a Policy from the movement rules and an initial oracle.
func New(mp tilestore.MovementPolicy, plane int32, isWalkable IsWalkableFunc) Policy {
	return Policy{
		AllowDiagonals: mp.AllowDiagonals,
		AllowCornerCut: mp.AllowCornerCut,
		UnitRadius:     mp.UnitRadiusTiles,
		Plane:          plane,
		isWalkable:     isWalkable,
	}
}

// WithWalkable returns a new Policy sharing this one's rules but consulting
// a different walkability oracle.
func (p Policy) WithWalkable(fn IsWalkableFunc) Policy {
	p.isWalkable = fn
	return p
}

func (p Policy) walkable(x, y int32) bool {
	if p.isWalkable == nil {
		return false
	}
	return p.isWalkable(x, y, p.Plane)
}

// Walkable exposes the policy's oracle for a single tile, e.g. so the JPS
// accelerator can validate a precomputed jump target before returning it.
func (p Policy) Walkable(x, y int32) bool {
	return p.walkable(x, y)
}

type step struct{ dx, dy int32 }

// cardinal order N,E,S,W; diagonal order NE,SE,SW,NW — the deterministic
// candidate order.
var cardinals = [4]step{{0, 1}, {1, 0}, {0, -1}, {-1, 0}} // N,E,S,W (Convention B: N=y+1)
var diagonals = [4]step{{1, 1}, {1, -1}, {-1, -1}, {-1, 1}} // NE,SE,SW,NW

// Candidates returns the walkable, rule-admissible neighbors of (x, y) in
// deterministic order: cardinals N,E,S,W first, then diagonals NE,SE,SW,NW
// if diagonals are allowed.
func (p Policy) Candidates(x, y int32) []tilestore.Coord {
	out := make([]tilestore.Coord, 0, 8)

	cardinalOK := [4]bool{}
	for i, d := range cardinals {
		nx, ny := x+d.dx, y+d.dy
		if p.walkable(nx, ny) {
			cardinalOK[i] = true
			out = append(out, tilestore.Coord{X: nx, Y: ny, Plane: p.Plane})
		}
	}

	if !p.AllowDiagonals {
		return p.filterUnitRadius(out)
	}

	// diagonal i pairs with the two adjacent cardinals flanking it:
	// NE(0) needs N(0)+E(1); SE(1) needs E(1)+S(2); SW(2) needs S(2)+W(3); NW(3) needs W(3)+N(0)
	adjacency := [4][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}}
	for i, d := range diagonals {
		nx, ny := x+d.dx, y+d.dy
		if !p.walkable(nx, ny) {
			continue
		}
		if !p.AllowCornerCut {
			a, b := adjacency[i][0], adjacency[i][1]
			if !cardinalOK[a] || !cardinalOK[b] {
				continue
			}
		}
		out = append(out, tilestore.Coord{X: nx, Y: ny, Plane: p.Plane})
	}

	return p.filterUnitRadius(out)
}

// filterUnitRadius drops candidates whose full Chebyshev square of radius
// UnitRadius (centered at the destination) is not entirely walkable.
// UnitRadius 0 disables the check.
func (p Policy) filterUnitRadius(candidates []tilestore.Coord) []tilestore.Coord {
	if p.UnitRadius <= 0 {
		return candidates
	}
	out := candidates[:0]
	for _, c := range candidates {
		if p.radiusClear(c.X, c.Y) {
			out = append(out, c)
		}
	}
	return out
}

func (p Policy) radiusClear(cx, cy int32) bool {
	r := p.UnitRadius
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			if !p.walkable(cx+dx, cy+dy) {
				return false
			}
		}
	}
	return true
}

// StepCost is the Chebyshev distance between adjacent tiles: 1 for a
// cardinal step, 1 for a diagonal step. This matches the unit-cost
// integer convention used by inter-edges.
func StepCost(x1, y1, x2, y2 int32) int32 {
	return chebyshev(x2-x1, y2-y1)
}

func chebyshev(dx, dy int32) int32 {
	ax, ay := abs32(dx), abs32(dy)
	if ax > ay {
		return ax
	}
	return ay
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
