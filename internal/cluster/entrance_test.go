package cluster

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/clustergraph/internal/tilestore"
)

// fakeStore is an in-memory tilestore.Store for tests that don't need a
// database: a world is just a map of walkable tiles plus a WalkData
// override map for directional-door scenarios.
type fakeStore struct {
	chunkSize  int32
	chunks     []tilestore.Chunk
	walkable   map[tilestore.Coord]bool
	walkData   map[tilestore.Coord]tilestore.WalkData
	planes     map[string][]int32
	policy     tilestore.MovementPolicy
	jpsPresent bool
}

func newFakeStore(chunkSize int32) *fakeStore {
	return &fakeStore{
		chunkSize: chunkSize,
		walkable:  make(map[tilestore.Coord]bool),
		walkData:  make(map[tilestore.Coord]tilestore.WalkData),
		planes:    make(map[string][]int32),
	}
}

func (f *fakeStore) setWalkable(x, y, plane int32) {
	f.walkable[tilestore.Coord{X: x, Y: y, Plane: plane}] = true
}

func (f *fakeStore) setWalkData(x, y, plane int32, wd tilestore.WalkData) {
	f.walkData[tilestore.Coord{X: x, Y: y, Plane: plane}] = wd
}

func (f *fakeStore) GetTile(_ context.Context, x, y, plane int32) (tilestore.Tile, bool, error) {
	c := tilestore.Coord{X: x, Y: y, Plane: plane}
	if !f.walkable[c] {
		return tilestore.Tile{}, false, nil
	}
	wd, ok := f.walkData[c]
	if !ok {
		wd = tilestore.DefaultWalkData()
	}
	return tilestore.Tile{Blocked: false, WalkMask: 0xFF, WalkData: wd}, true, nil
}

func (f *fakeStore) ListChunks(_ context.Context, filter tilestore.ChunkFilter) ([]tilestore.Chunk, error) {
	var out []tilestore.Chunk
	for _, c := range f.chunks {
		if filter.Contains(c.ChunkX, c.ChunkZ) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) ListPlanesInChunk(_ context.Context, chunkX, chunkZ int32) ([]int32, error) {
	key := coordKey(chunkX, chunkZ)
	if planes, ok := f.planes[key]; ok {
		return planes, nil
	}
	return []int32{0}, nil
}

func (f *fakeStore) ListBorderWalkable(_ context.Context, chunkX, chunkZ, plane int32, bounds tilestore.Bounds) ([]tilestore.Coord, error) {
	var out []tilestore.Coord
	for c := range f.walkable {
		if c.Plane != plane {
			continue
		}
		if c.X < bounds.X0 || c.X > bounds.X1 || c.Y < bounds.Y0 || c.Y > bounds.Y1 {
			continue
		}
		if c.X == bounds.X0 || c.X == bounds.X1 || c.Y == bounds.Y0 || c.Y == bounds.Y1 {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) ListChunkWalkable(_ context.Context, chunkX, chunkZ, plane int32) (map[tilestore.Coord]struct{}, error) {
	out := make(map[tilestore.Coord]struct{})
	bounds := tilestore.BoundsOf(chunkX, chunkZ, f.chunkSize)
	for c := range f.walkable {
		if c.Plane == plane && c.X >= bounds.X0 && c.X <= bounds.X1 && c.Y >= bounds.Y0 && c.Y <= bounds.Y1 {
			out[c] = struct{}{}
		}
	}
	return out, nil
}

func (f *fakeStore) MovementPolicy(_ context.Context) (tilestore.MovementPolicy, error) {
	return f.policy, nil
}

func (f *fakeStore) JPSAvailable(_ context.Context) (bool, error) { return f.jpsPresent, nil }

func (f *fakeStore) JumpPoint(_ context.Context, _, _, _ int32, _ tilestore.Direction) (tilestore.JumpResult, bool, error) {
	return tilestore.JumpResult{}, false, nil
}

func (f *fakeStore) SpansAt(_ context.Context, _, _, _ int32) (tilestore.Spans, bool, error) {
	return tilestore.Spans{}, false, nil
}

func coordKey(x, z int32) string {
	return fmt.Sprintf("%d:%d", x, z)
}

// fakeEntranceRepo is an in-memory EntranceRepository.
type fakeEntranceRepo struct {
	rows   []Entrance
	nextID int64
}

func (r *fakeEntranceRepo) DeleteScope(_ context.Context, chunkX, chunkZ, plane int32) error {
	var kept []Entrance
	for _, e := range r.rows {
		if e.ChunkX == chunkX && e.ChunkZ == chunkZ && e.Plane == plane {
			continue
		}
		kept = append(kept, e)
	}
	r.rows = kept
	return nil
}

func (r *fakeEntranceRepo) Upsert(_ context.Context, chunkX, chunkZ, plane, x, y int32, dir tilestore.Direction) (int64, error) {
	for i, e := range r.rows {
		if e.ChunkX == chunkX && e.ChunkZ == chunkZ && e.Plane == plane && e.X == x && e.Y == y {
			r.rows[i].NeighborDir = dir
			return e.ID, nil
		}
	}
	r.nextID++
	e := Entrance{ID: r.nextID, ChunkX: chunkX, ChunkZ: chunkZ, Plane: plane, X: x, Y: y, NeighborDir: dir}
	r.rows = append(r.rows, e)
	return e.ID, nil
}

func (r *fakeEntranceRepo) ListByChunkPlane(_ context.Context, chunkX, chunkZ, plane int32) ([]Entrance, error) {
	var out []Entrance
	for _, e := range r.rows {
		if e.ChunkX == chunkX && e.ChunkZ == chunkZ && e.Plane == plane {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEntranceRepo) FindAt(_ context.Context, chunkX, chunkZ, plane, x, y int32, dir tilestore.Direction) (Entrance, bool, error) {
	for _, e := range r.rows {
		if e.ChunkX == chunkX && e.ChunkZ == chunkZ && e.Plane == plane && e.X == x && e.Y == y && e.NeighborDir == dir {
			return e, true, nil
		}
	}
	return Entrance{}, false, nil
}

func TestDiscoverEntrancesSimpleBorder(t *testing.T) {
	store := newFakeStore(4)
	store.chunks = []tilestore.Chunk{{ChunkX: 0, ChunkZ: 0, ChunkSize: 4}, {ChunkX: 1, ChunkZ: 0, ChunkSize: 4}}
	for x := int32(0); x < 8; x++ {
		store.setWalkable(x, 0, 0)
	}

	repo := &fakeEntranceRepo{}
	scope := Scope{Planes: []int32{0}}
	err := DiscoverEntrances(context.Background(), store, repo, scope, false)
	require.NoError(t, err)

	found := false
	for _, e := range repo.rows {
		if e.ChunkX == 0 && e.X == 3 && e.Y == 0 && e.NeighborDir == tilestore.East {
			found = true
		}
	}
	assert.True(t, found, "tile (3,0) in chunk 0 should qualify as an East entrance facing chunk 1")
}

// TestDiscoverEntrancesDirectionalDoor covers S3: a tile that is walkable
// on both sides of a border but whose walk_data forbids crossing in a
// particular direction must not qualify as an entrance in that direction.
func TestDiscoverEntrancesDirectionalDoor(t *testing.T) {
	store := newFakeStore(4)
	store.chunks = []tilestore.Chunk{{ChunkX: 0, ChunkZ: 0, ChunkSize: 4}, {ChunkX: 1, ChunkZ: 0, ChunkSize: 4}}
	store.setWalkable(3, 0, 0)
	store.setWalkable(4, 0, 0)
	// A one-way door: (3,0) cannot cross east (its Right face is closed).
	store.setWalkData(3, 0, 0, tilestore.WalkData{Top: true, Bottom: true, Left: true, Right: false})

	repo := &fakeEntranceRepo{}
	scope := Scope{Planes: []int32{0}}
	err := DiscoverEntrances(context.Background(), store, repo, scope, false)
	require.NoError(t, err)

	for _, e := range repo.rows {
		assert.False(t, e.X == 3 && e.Y == 0 && e.NeighborDir == tilestore.East, "a one-way closed face must not qualify as an entrance")
	}
}

func TestDiscoverEntrancesRecomputeClearsOldRows(t *testing.T) {
	store := newFakeStore(4)
	store.chunks = []tilestore.Chunk{{ChunkX: 0, ChunkZ: 0, ChunkSize: 4}}
	store.setWalkable(3, 0, 0)

	repo := &fakeEntranceRepo{rows: []Entrance{{ID: 99, ChunkX: 0, ChunkZ: 0, Plane: 0, X: 1, Y: 1, NeighborDir: tilestore.North}}}
	scope := Scope{Planes: []int32{0}}
	err := DiscoverEntrances(context.Background(), store, repo, scope, true)
	require.NoError(t, err)

	for _, e := range repo.rows {
		assert.NotEqual(t, int64(99), e.ID, "recompute must delete stale rows before reinserting")
	}
}
