package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/udisondev/clustergraph/internal/db/migrations"
)

var gooseOnce sync.Once

// requiredInputTables are owned by the out-of-scope tile-ingestion
// pipelines, not by the migrations embedded in this package. 00001 creates
// them only as a local-development/test convenience, so a deployment that
// points RunMigrations at a database an ingestion pipeline never touched
// still ends up with them — but a DSN pointed at some other, unrelated
// schema would otherwise pass migration silently and fail confusingly on
// the first real query. missingInputTables catches that case right after
// migration.
var requiredInputTables = []string{"chunks", "tiles", "movement_policy"}

// RunMigrations runs goose migrations on the given DSN, creating the
// output tables (cluster_entrances, cluster_interconnections,
// cluster_intraconnections) the core writes to, then verifies the input
// tables the core reads from are reachable.
func RunMigrations(ctx context.Context, dsn string) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("opening sql connection for migrations: %w", err)
	}
	defer sqlDB.Close()

	var dialectErr error
	gooseOnce.Do(func() {
		goose.SetBaseFS(migrations.FS)
		dialectErr = goose.SetDialect("postgres")
	})
	if dialectErr != nil {
		return fmt.Errorf("setting goose dialect: %w", dialectErr)
	}
	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	missing, err := missingInputTables(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("checking input tables: %w", err)
	}
	if len(missing) > 0 {
		return fmt.Errorf("input tables missing after migration: %v (expected the tile-ingestion pipeline to have created them)", missing)
	}
	return nil
}

func missingInputTables(ctx context.Context, sqlDB *sql.DB) ([]string, error) {
	rows, err := sqlDB.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_name = ANY($1)`,
		requiredInputTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	present := make(map[string]bool, len(requiredInputTables))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []string
	for _, name := range requiredInputTables {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	return missing, nil
}
