package cluster

import "github.com/udisondev/clustergraph/internal/tilestore"

// MaxIntraSearchIterations bounds each chunk-local A* run. Chunks are
// small and bounded, so this is generous headroom rather than a tight
// budget.
const MaxIntraSearchIterations = 20000

// CompressWaypoints reduces a tile path to its minimal sequence: the two
// endpoints plus every tile at which the step direction (sign(Δx),
// sign(Δy)) changes. Collinear interior tiles are dropped.
func CompressWaypoints(path []tilestore.Coord) []tilestore.Coord {
	if len(path) <= 2 {
		out := make([]tilestore.Coord, len(path))
		copy(out, path)
		return out
	}

	out := make([]tilestore.Coord, 0, len(path))
	out = append(out, path[0])

	prevSignX, prevSignY := sign(path[1].X-path[0].X), sign(path[1].Y-path[0].Y)

	for i := 1; i < len(path)-1; i++ {
		sx, sy := sign(path[i+1].X-path[i].X), sign(path[i+1].Y-path[i].Y)
		if sx != prevSignX || sy != prevSignY {
			out = append(out, path[i])
		}
		prevSignX, prevSignY = sx, sy
	}

	out = append(out, path[len(path)-1])
	return out
}

func sign(v int32) int32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
