package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/clustergraph/internal/neighbor"
	"github.com/udisondev/clustergraph/internal/tilestore"
)

// gridExpander is a plain neighbor.Policy-backed Expander over a fixed
// walkable set, used to drive A* tests without a database.
type gridExpander struct{ policy neighbor.Policy }

func (g gridExpander) Expand(_ context.Context, x, y int32) ([]tilestore.Coord, error) {
	return g.policy.Candidates(x, y), nil
}

func newGrid(walkable map[tilestore.Coord]bool, allowDiagonals, allowCornerCut bool) gridExpander {
	isWalkable := func(x, y, plane int32) bool {
		return walkable[tilestore.Coord{X: x, Y: y, Plane: plane}]
	}
	mp := tilestore.MovementPolicy{AllowDiagonals: allowDiagonals, AllowCornerCut: allowCornerCut}
	return gridExpander{policy: neighbor.New(mp, 0, isWalkable)}
}

func openField(x0, y0, x1, y1 int32) map[tilestore.Coord]bool {
	out := make(map[tilestore.Coord]bool)
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			out[tilestore.Coord{X: x, Y: y, Plane: 0}] = true
		}
	}
	return out
}

func TestAStarStraightLine(t *testing.T) {
	grid := newGrid(openField(0, 0, 10, 10), false, false)

	cost, path, ok, err := AStar(context.Background(), grid, 0, 0, 5, 0, MaxIntraSearchIterations)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int32(5), cost)
	assert.Equal(t, tilestore.Coord{X: 0, Y: 0}, path[0])
	assert.Equal(t, tilestore.Coord{X: 5, Y: 0}, path[len(path)-1])
}

func TestAStarSameTile(t *testing.T) {
	grid := newGrid(openField(0, 0, 1, 1), false, false)
	cost, path, ok, err := AStar(context.Background(), grid, 1, 1, 1, 1, 100)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int32(0), cost)
	assert.Len(t, path, 1)
}

func TestAStarUnreachable(t *testing.T) {
	walkable := openField(0, 0, 2, 2)
	// Disconnect (10,10) entirely.
	grid := newGrid(walkable, true, true)

	_, _, ok, err := AStar(context.Background(), grid, 0, 0, 10, 10, 500)
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestAStarBlockedCornerDetour covers S2: blocking a single flanking
// cardinal of a diagonal step refuses that step when corner-cutting is
// off, forcing a longer route, while the same grid with
// corner-cutting on takes the direct diagonal.
func TestAStarBlockedCornerDetour(t *testing.T) {
	walkable := openField(0, 0, 3, 3)
	delete(walkable, tilestore.Coord{X: 1, Y: 0, Plane: 0}) // block only the E flank of the (0,0)->(1,1) diagonal

	noCut := newGrid(walkable, true, false)
	costNoCut, pathNoCut, okNoCut, err := AStar(context.Background(), noCut, 0, 0, 3, 3, 1000)
	require.NoError(t, err)
	require.True(t, okNoCut)
	assert.Equal(t, tilestore.Coord{X: 3, Y: 3}, pathNoCut[len(pathNoCut)-1])

	allowCut := newGrid(walkable, true, true)
	costCut, _, okCut, err := AStar(context.Background(), allowCut, 0, 0, 3, 3, 1000)
	require.NoError(t, err)
	require.True(t, okCut)

	assert.GreaterOrEqual(t, costNoCut, costCut, "refusing the corner-cut must never yield a cheaper path")
}

func TestAStarMaxIterationsExceeded(t *testing.T) {
	grid := newGrid(openField(0, 0, 100, 100), false, false)
	_, _, ok, err := AStar(context.Background(), grid, 0, 0, 100, 100, 2)
	require.NoError(t, err)
	assert.False(t, ok, "search should give up as unreachable once maxIterations is exhausted")
}

func TestAStarDeterministicTieBreak(t *testing.T) {
	grid := newGrid(openField(0, 0, 4, 4), true, true)
	_, path1, ok1, err1 := AStar(context.Background(), grid, 0, 0, 4, 4, MaxIntraSearchIterations)
	require.NoError(t, err1)
	require.True(t, ok1)

	_, path2, ok2, err2 := AStar(context.Background(), grid, 0, 0, 4, 4, MaxIntraSearchIterations)
	require.NoError(t, err2)
	require.True(t, ok2)

	assert.Equal(t, path1, path2, "identical inputs must produce an identical path every run")
}
