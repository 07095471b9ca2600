package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/clustergraph/internal/tilestore"
)

type fakeInterRepo struct {
	rows map[[2]int64]int32
}

func newFakeInterRepo() *fakeInterRepo {
	return &fakeInterRepo{rows: make(map[[2]int64]int32)}
}

func (r *fakeInterRepo) DeleteScopeFrom(_ context.Context, inScope func(id int64) bool) error {
	for k := range r.rows {
		if inScope(k[0]) {
			delete(r.rows, k)
		}
	}
	return nil
}

func (r *fakeInterRepo) Upsert(_ context.Context, from, to int64, cost int32) error {
	key := [2]int64{from, to}
	if existing, ok := r.rows[key]; ok && existing < cost {
		return nil
	}
	r.rows[key] = cost
	return nil
}

// TestBuildInterconnectionsSymmetric covers S1: a border shared by two
// chunks produces a symmetric pair of unit-cost edges between the matching
// entrances on each side.
func TestBuildInterconnectionsSymmetric(t *testing.T) {
	store := newFakeStore(4)
	store.chunks = []tilestore.Chunk{{ChunkX: 0, ChunkZ: 0, ChunkSize: 4}, {ChunkX: 1, ChunkZ: 0, ChunkSize: 4}}
	store.setWalkable(3, 0, 0)
	store.setWalkable(4, 0, 0)

	entranceRepo := &fakeEntranceRepo{}
	scope := Scope{Planes: []int32{0}}
	require.NoError(t, DiscoverEntrances(context.Background(), store, entranceRepo, scope, false))

	interRepo := newFakeInterRepo()
	require.NoError(t, BuildInterconnections(context.Background(), store, entranceRepo, interRepo, scope, false))

	var fromID, toID int64
	for _, e := range entranceRepo.rows {
		if e.ChunkX == 0 {
			fromID = e.ID
		} else {
			toID = e.ID
		}
	}
	require.NotZero(t, fromID)
	require.NotZero(t, toID)

	assert.Equal(t, int32(1), interRepo.rows[[2]int64{fromID, toID}])
	assert.Equal(t, int32(1), interRepo.rows[[2]int64{toID, fromID}])
}

func TestBuildInterconnectionsSkipsMissingOpposite(t *testing.T) {
	store := newFakeStore(4)
	store.chunks = []tilestore.Chunk{{ChunkX: 0, ChunkZ: 0, ChunkSize: 4}}
	store.setWalkable(3, 0, 0)
	store.setWalkable(4, 0, 0) // walkable but no chunk 1 registered, so no opposing entrance exists

	entranceRepo := &fakeEntranceRepo{}
	scope := Scope{Planes: []int32{0}}
	require.NoError(t, DiscoverEntrances(context.Background(), store, entranceRepo, scope, false))

	interRepo := newFakeInterRepo()
	err := BuildInterconnections(context.Background(), store, entranceRepo, interRepo, scope, false)
	require.NoError(t, err)
	assert.Empty(t, interRepo.rows, "a missing opposing entrance must be skipped, not an error")
}
