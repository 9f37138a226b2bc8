package app

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	LogFormat string // text or json
	LogLevel  string // a slog level name: debug, info, warn or error

	Store StoreConfig

	// Metrics enables the rule execution metrics.
	Metrics bool
}

// StoreConfig selects the graph store.
type StoreConfig struct {
	Backend string
	// Path is the badger data directory. An empty path keeps the badger
	// store in memory.
	Path       string
	SyncWrites bool
}

// NewConfig applies defaults to cfg and validates it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendMemory
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	switch cfg.Store.Backend {
	case BackendMemory:
		if cfg.Store.Path != "" {
			return nil, fmt.Errorf("store path is only supported by the %s backend", BackendBadger)
		}
	case BackendBadger:
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	return &cfg, nil
}

// fileConfig is the HCL form of Config:
//
//	log_level  = "debug"
//	log_format = "json"
//	metrics    = true
//
//	store "badger" {
//	  path        = "/var/lib/rulegraph"
//	  sync_writes = true
//	}
type fileConfig struct {
	LogLevel  string       `hcl:"log_level,optional"`
	LogFormat string       `hcl:"log_format,optional"`
	Metrics   bool         `hcl:"metrics,optional"`
	Store     *storeConfig `hcl:"store,block"`
}

type storeConfig struct {
	Backend    string `hcl:"backend,label"`
	Path       string `hcl:"path,optional"`
	SyncWrites bool   `hcl:"sync_writes,optional"`
}

// LoadConfig reads a Config from an HCL file.
func LoadConfig(path string) (*Config, error) {
	file, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}

	var fc fileConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &fc); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, diags)
	}

	cfg := Config{LogLevel: fc.LogLevel, LogFormat: fc.LogFormat, Metrics: fc.Metrics}
	if fc.Store != nil {
		cfg.Store = StoreConfig{Backend: fc.Store.Backend, Path: fc.Store.Path, SyncWrites: fc.Store.SyncWrites}
	}
	return NewConfig(cfg)
}
