package cluster

import (
	"container/heap"
	"context"

	"github.com/udisondev/clustergraph/internal/neighbor"
	"github.com/udisondev/clustergraph/internal/tilestore"
)

// Expander produces the next search frontier from a tile — either the
// plain Neighbor Policy or the JPS Accelerator. AStar does not check
// bounds itself; the expanders in intra.go drop every candidate outside
// the current chunk.
type Expander interface {
	Expand(ctx context.Context, x, y int32) ([]tilestore.Coord, error)
}

// pathNode is one node in the A* search graph.
type pathNode struct {
	x, y     int32
	parent   *pathNode
	gCost    int32
	fCost    int32
	seq      int64 // insertion order, for deterministic tie-breaking
	index    int   // heap index
}

type nodeKey struct{ x, y int32 }

// nodeHeap is a binary min-heap keyed on (fCost, seq) — the earlier-
// inserted node among equal f values pops first, so results stay
// deterministic across runs.
type nodeHeap []*pathNode

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].fCost != h[j].fCost {
		return h[i].fCost < h[j].fCost
	}
	return h[i].seq < h[j].seq
}
func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *nodeHeap) Push(x any) {
	n := x.(*pathNode)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*h = old[:n-1]
	return node
}

// AStar runs a chunk-bounded A* search from (sx, sy) to (tx, ty) using the
// given Expander for frontier generation. Step cost and heuristic are both
// integer Chebyshev distance, so the heuristic is consistent and nodes
// are never reopened once closed.
//
// Returns the total cost and the ordered tile path (inclusive of both
// endpoints), or ok=false if no path exists within maxIterations.
func AStar(ctx context.Context, expander Expander, sx, sy, tx, ty int32, maxIterations int) (cost int32, path []tilestore.Coord, ok bool, err error) {
	if sx == tx && sy == ty {
		return 0, []tilestore.Coord{{X: sx, Y: sy}}, true, nil
	}

	var seqCounter int64
	start := &pathNode{x: sx, y: sy, gCost: 0, fCost: neighbor.StepCost(sx, sy, tx, ty), seq: seqCounter}
	seqCounter++

	open := &nodeHeap{}
	heap.Init(open)
	heap.Push(open, start)

	closed := make(map[nodeKey]struct{}, 256)
	best := make(map[nodeKey]*pathNode, 256)
	best[nodeKey{sx, sy}] = start

	for i := 0; i < maxIterations; i++ {
		if open.Len() == 0 {
			return 0, nil, false, nil
		}
		current := heap.Pop(open).(*pathNode)
		key := nodeKey{current.x, current.y}
		if _, done := closed[key]; done {
			continue
		}
		closed[key] = struct{}{}

		if current.x == tx && current.y == ty {
			return current.gCost, reconstruct(current), true, nil
		}

		neighbors, expErr := expander.Expand(ctx, current.x, current.y)
		if expErr != nil {
			return 0, nil, false, expErr
		}

		for _, n := range neighbors {
			nk := nodeKey{n.X, n.Y}
			if _, done := closed[nk]; done {
				continue
			}
			step := neighbor.StepCost(current.x, current.y, n.X, n.Y)
			g := current.gCost + step

			if existing, seen := best[nk]; seen && existing.gCost <= g {
				continue
			}

			node := &pathNode{
				x: n.X, y: n.Y,
				parent: current,
				gCost:  g,
				fCost:  g + neighbor.StepCost(n.X, n.Y, tx, ty),
				seq:    seqCounter,
			}
			seqCounter++
			best[nk] = node
			heap.Push(open, node)
		}
	}

	return 0, nil, false, nil // max iterations exceeded — treated as unreachable
}

func reconstruct(n *pathNode) []tilestore.Coord {
	var rev []tilestore.Coord
	for cur := n; cur != nil; cur = cur.parent {
		rev = append(rev, tilestore.Coord{X: cur.x, Y: cur.y})
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}
