// Package orchestrator sequences the three precomputation phases —
// Entrance Discovery, Inter-Connector, Intra-Connector — across
// worker-partitioned chunk batches.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/clustergraph/internal/cluster"
	"github.com/udisondev/clustergraph/internal/config"
	"github.com/udisondev/clustergraph/internal/db"
	"github.com/udisondev/clustergraph/internal/tilestore"
)

// Summary reports what a run did (or, in dry-run, would have done).
type Summary struct {
	ChunksProcessed int
	Entrances       int64
	Interconnects   int64
	Intraconnects   int64
	Deletes         int64
	DryRun          bool
}

// Run connects to the database, resolves scope, and executes phases D, E,
// F in order. Each phase is partitioned by chunk across cfg.Workers
// goroutines; phases themselves run strictly sequentially because E reads
// entrances D wrote (possibly in a neighboring chunk owned by a different
// worker), and F reads entrances from its own chunk only but after D/E have
// both settled. Workers never share a DB handle.
func Run(ctx context.Context, cfg config.Orchestrator) (Summary, error) {
	dsn := cfg.Database.DSN()

	readPool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return Summary{}, fmt.Errorf("orchestrator: connecting read pool: %w", err)
	}
	defer readPool.Close()
	store := tilestore.NewPostgresStore(readPool)

	if !cfg.DryRun {
		if err := db.RunMigrations(ctx, dsn); err != nil {
			return Summary{}, fmt.Errorf("orchestrator: %w", err)
		}
	}

	scope := cluster.Scope{
		Filter: chunkFilter(cfg.ChunkRange),
		Planes: cfg.Planes,
	}

	chunks, err := store.ListChunks(ctx, scope.Filter)
	if err != nil {
		return Summary{}, fmt.Errorf("orchestrator: listing chunks in scope: %w", err)
	}
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].ChunkX != chunks[j].ChunkX {
			return chunks[i].ChunkX < chunks[j].ChunkX
		}
		return chunks[i].ChunkZ < chunks[j].ChunkZ
	})

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	batches := partition(chunks, workers)
	counters := &db.Counters{}

	slog.Info("orchestrator starting",
		"chunks", len(chunks), "workers", workers,
		"dry_run", cfg.DryRun, "recompute", cfg.Recompute, "store_paths", cfg.StorePaths)

	if err := runPhase(ctx, "entrance_discovery", batches, func(ctx context.Context, chunkBatch []tilestore.Chunk) error {
		handle, store, entranceRepo, _, _, cleanup, err := openWorker(ctx, dsn, cfg, counters)
		if err != nil {
			return err
		}
		defer cleanup()
		_ = handle

		for _, c := range chunkBatch {
			batchScope := cluster.Scope{Filter: singleChunkFilter(c), Planes: cfg.Planes}
			if err := cluster.DiscoverEntrances(ctx, store, entranceRepo, batchScope, cfg.Recompute); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return Summary{}, err
	}

	if err := runPhase(ctx, "inter_connector", batches, func(ctx context.Context, chunkBatch []tilestore.Chunk) error {
		handle, store, entranceRepo, interRepo, _, cleanup, err := openWorker(ctx, dsn, cfg, counters)
		if err != nil {
			return err
		}
		defer cleanup()
		_ = handle

		for _, c := range chunkBatch {
			batchScope := cluster.Scope{Filter: singleChunkFilter(c), Planes: cfg.Planes}
			if err := cluster.BuildInterconnections(ctx, store, entranceRepo, interRepo, batchScope, cfg.Recompute); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return Summary{}, err
	}

	if err := runPhase(ctx, "intra_connector", batches, func(ctx context.Context, chunkBatch []tilestore.Chunk) error {
		handle, store, entranceRepo, _, intraRepo, cleanup, err := openWorker(ctx, dsn, cfg, counters)
		if err != nil {
			return err
		}
		defer cleanup()
		_ = handle

		for _, c := range chunkBatch {
			batchScope := cluster.Scope{Filter: singleChunkFilter(c), Planes: cfg.Planes}
			if err := cluster.BuildIntraconnections(ctx, store, entranceRepo, intraRepo, batchScope, cfg.Recompute, cfg.StorePaths); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return Summary{}, err
	}

	snap := counters.Snapshot()
	summary := Summary{
		ChunksProcessed: len(chunks),
		Entrances:       snap.EntranceUpserts,
		Interconnects:   snap.InterUpserts,
		Intraconnects:   snap.IntraUpserts,
		Deletes:         snap.Deletes,
		DryRun:          cfg.DryRun,
	}
	slog.Info("orchestrator finished",
		"entrances", summary.Entrances, "interconnects", summary.Interconnects,
		"intraconnects", summary.Intraconnects, "deletes", summary.Deletes)
	return summary, nil
}

// runPhase fans chunkBatches out across an errgroup, one goroutine per
// batch, and stops the whole phase on the first error.
func runPhase(ctx context.Context, name string, batches [][]tilestore.Chunk, work func(ctx context.Context, batch []tilestore.Chunk) error) error {
	slog.Info("phase starting", "phase", name)
	g, gctx := errgroup.WithContext(ctx)
	for _, batch := range batches {
		batch := batch
		if len(batch) == 0 {
			continue
		}
		g.Go(func() error {
			return work(gctx, batch)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("phase %s: %w", name, err)
	}
	slog.Info("phase complete", "phase", name)
	return nil
}

// openWorker gives each worker goroutine its own pool/DB handle so no
// two goroutines ever share a connection.
func openWorker(ctx context.Context, dsn string, cfg config.Orchestrator, counters *db.Counters) (
	*db.DB, tilestore.Store, cluster.EntranceRepository, cluster.InterconnectionRepository, cluster.IntraconnectionRepository, func(), error,
) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, nil, nil, nil, nil, fmt.Errorf("opening worker pool: %w", err)
	}

	var handle *db.DB
	if cfg.DryRun {
		handle, err = db.NewReadOnly(ctx, dsn)
	} else {
		handle, err = db.New(ctx, dsn)
	}
	if err != nil {
		pool.Close()
		return nil, nil, nil, nil, nil, nil, fmt.Errorf("opening worker db handle: %w", err)
	}

	store := tilestore.NewPostgresStore(pool)
	entranceRepo := db.NewEntranceRepository(handle, counters)
	interRepo := db.NewInterconnectionRepository(handle, counters)
	intraRepo := db.NewIntraconnectionRepository(handle, counters)

	cleanup := func() {
		handle.Close()
		pool.Close()
	}
	return handle, store, entranceRepo, interRepo, intraRepo, cleanup, nil
}

// partition splits chunks into at most n roughly-equal, contiguous batches.
func partition(chunks []tilestore.Chunk, n int) [][]tilestore.Chunk {
	if n < 1 {
		n = 1
	}
	if len(chunks) == 0 {
		return nil
	}
	if n > len(chunks) {
		n = len(chunks)
	}
	batches := make([][]tilestore.Chunk, n)
	per := len(chunks) / n
	extra := len(chunks) % n
	idx := 0
	for i := 0; i < n; i++ {
		size := per
		if i < extra {
			size++
		}
		batches[i] = chunks[idx : idx+size]
		idx += size
	}
	return batches
}

func chunkFilter(r config.ChunkRange) tilestore.ChunkFilter {
	return tilestore.ChunkFilter{
		MinX: r.MinX, MaxX: r.MaxX,
		MinZ: r.MinZ, MaxZ: r.MaxZ,
	}
}

// singleChunkFilter narrows a phase call to exactly one chunk, letting a
// worker goroutine walk its batch one chunk at a time while reusing the
// cluster package's scope-driven phase functions.
func singleChunkFilter(c tilestore.Chunk) tilestore.ChunkFilter {
	x, z := c.ChunkX, c.ChunkZ
	return tilestore.ChunkFilter{MinX: &x, MaxX: &x, MinZ: &z, MaxZ: &z}
}
