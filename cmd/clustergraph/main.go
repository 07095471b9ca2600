// Command clustergraph precomputes the hierarchical pathfinding graph
// (entrances, inter-cluster edges, intra-cluster shortest paths) for a
// tile world stored in PostgreSQL.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/udisondev/clustergraph/internal/config"
	"github.com/udisondev/clustergraph/internal/orchestrator"
)

const defaultConfigPath = "config/clustergraph.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	code := run(ctx)
	os.Exit(code)
}

func run(ctx context.Context) int {
	var (
		configPath = flag.String("config", defaultConfigPath, "path to YAML config file")
		dsn        = flag.String("dsn", "", "override the database connection string")
		planesFlag = flag.String("planes", "", "comma-separated plane filter (default: all planes)")
		chunksFlag = flag.String("chunks", "", "chunk rectangle min_x:max_x:min_z:max_z (default: unrestricted)")
		recompute  = flag.Bool("recompute", false, "delete and recompute rows already in scope")
		storePaths = flag.Bool("store-paths", false, "persist compressed waypoint path blobs for intra-cluster edges")
		dryRun     = flag.Bool("dry-run", false, "read-only mode: reject writes, report would-be counts")
		workers    = flag.Int("workers", 0, "number of chunk-partitioned worker goroutines (default: from config, or 1)")
		logLevel   = flag.String("log-level", "", "debug, info, warn, error (default: from config, or info)")
	)
	flag.Parse()

	cfg, err := config.LoadOrchestrator(*configPath)
	if err != nil {
		slog.Error("loading config", "err", err)
		return 1
	}

	if *dsn != "" {
		cfg.Database.RawDSN = *dsn
	}
	if *planesFlag != "" {
		planes, perr := parsePlanes(*planesFlag)
		if perr != nil {
			slog.Error("parsing --planes", "err", perr)
			return 1
		}
		cfg.Planes = planes
	}
	if *chunksFlag != "" {
		chunkRange, cerr := parseChunkRange(*chunksFlag)
		if cerr != nil {
			slog.Error("parsing --chunks", "err", cerr)
			return 1
		}
		cfg.ChunkRange = chunkRange
	}
	if *recompute {
		cfg.Recompute = true
	}
	if *storePaths {
		cfg.StorePaths = true
	}
	if *dryRun {
		cfg.DryRun = true
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	summary, err := orchestrator.Run(ctx, cfg)
	if err != nil {
		if ctx.Err() != nil {
			slog.Warn("interrupted", "err", err)
			return 130
		}
		slog.Error("fatal", "err", err)
		return 1
	}

	slog.Info("run summary",
		"chunks", summary.ChunksProcessed,
		"entrances", summary.Entrances,
		"interconnects", summary.Interconnects,
		"intraconnects", summary.Intraconnects,
		"deletes", summary.Deletes,
		"dry_run", summary.DryRun,
	)

	if ctx.Err() != nil {
		return 130
	}
	return 0
}

func parsePlanes(s string) ([]int32, error) {
	parts := strings.Split(s, ",")
	planes := make([]int32, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid plane %q: %w", p, err)
		}
		planes = append(planes, int32(v))
	}
	return planes, nil
}

func parseChunkRange(s string) (config.ChunkRange, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return config.ChunkRange{}, fmt.Errorf("expected min_x:max_x:min_z:max_z, got %q", s)
	}
	var vals [4]*int32
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return config.ChunkRange{}, fmt.Errorf("invalid chunk bound %q: %w", p, err)
		}
		v32 := int32(v)
		vals[i] = &v32
	}
	return config.ChunkRange{MinX: vals[0], MaxX: vals[1], MinZ: vals[2], MaxZ: vals[3]}, nil
}

// parseLogLevel converts string log level to slog.Level. Defaults to Info
// if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
