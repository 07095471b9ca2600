// Package config loads the cluster-graph Orchestrator's YAML configuration,
// using a defaults-then-overlay pattern: Default...() returns sane
// defaults, Load...(path) overlays a YAML file if present.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Orchestrator holds every input the orchestrator needs: database
// connection, scope filters, and run-mode flags.
type Orchestrator struct {
	Database DatabaseConfig `yaml:"database"`

	// Scope: plane filter (nil/empty = all planes present in a chunk) and
	// an open-ended chunk rectangle.
	Planes     []int32    `yaml:"planes"`
	ChunkRange ChunkRange `yaml:"chunk_range"`

	Recompute  bool `yaml:"recompute"`
	StorePaths bool `yaml:"store_paths"`
	DryRun     bool `yaml:"dry_run"`
	Workers    int  `yaml:"workers"`

	LogLevel string `yaml:"log_level"` // debug, info, warn, error (default: info)

	// MaxRetries is loaded from YAML (default: 6) but not read by the
	// repositories, which always retry up to db.DefaultMaxRetries times.
	MaxRetries int `yaml:"max_retries"`
}

// ChunkRange is an open-ended chunk rectangle; a nil bound means
// unrestricted on that side.
type ChunkRange struct {
	MinX *int32 `yaml:"min_x"`
	MaxX *int32 `yaml:"max_x"`
	MinZ *int32 `yaml:"min_z"`
	MaxZ *int32 `yaml:"max_z"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`

	// Connection pool parameters (optional, defaults from pgxpool apply if not set)
	MaxConns          int32  `yaml:"max_conns"`           // default: max(4, NumCPU)
	MinConns          int32  `yaml:"min_conns"`           // default: 0
	MaxConnLifetime   string `yaml:"max_conn_lifetime"`   // duration, e.g. "1h"
	MaxConnIdleTime   string `yaml:"max_conn_idle_time"`  // duration, e.g. "30m"
	HealthCheckPeriod string `yaml:"health_check_period"` // duration, e.g. "1m"

	// RawDSN, when set, is returned by DSN() verbatim instead of building
	// one from the fields above. Populated from the --dsn CLI flag.
	RawDSN string `yaml:"-"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	if d.RawDSN != "" {
		return d.RawDSN
	}

	base := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)

	var params []string
	if d.MaxConns > 0 {
		params = append(params, fmt.Sprintf("pool_max_conns=%d", d.MaxConns))
	}
	if d.MinConns > 0 {
		params = append(params, fmt.Sprintf("pool_min_conns=%d", d.MinConns))
	}
	if d.MaxConnLifetime != "" {
		params = append(params, fmt.Sprintf("pool_max_conn_lifetime=%s", d.MaxConnLifetime))
	}
	if d.MaxConnIdleTime != "" {
		params = append(params, fmt.Sprintf("pool_max_conn_idle_time=%s", d.MaxConnIdleTime))
	}
	if d.HealthCheckPeriod != "" {
		params = append(params, fmt.Sprintf("pool_health_check_period=%s", d.HealthCheckPeriod))
	}

	if len(params) > 0 {
		return base + "&" + strings.Join(params, "&")
	}
	return base
}

// DefaultOrchestrator returns Orchestrator config with sensible defaults.
func DefaultOrchestrator() Orchestrator {
	return Orchestrator{
		Database: DatabaseConfig{
			Host:    "127.0.0.1",
			Port:    5432,
			User:    "clustergraph",
			Password: "clustergraph",
			DBName:  "clustergraph",
			SSLMode: "disable",
		},
		Workers:    1,
		LogLevel:   "info",
		MaxRetries: 6,
	}
}

// LoadOrchestrator loads orchestrator config from a YAML file. If the file
// doesn't exist, returns defaults.
func LoadOrchestrator(path string) (Orchestrator, error) {
	cfg := DefaultOrchestrator()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
