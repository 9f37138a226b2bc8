package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/specialistvlad/rulegraph/internal/analysis"
	"github.com/specialistvlad/rulegraph/internal/badgergraph"
	"github.com/specialistvlad/rulegraph/internal/ctxlog"
	"github.com/specialistvlad/rulegraph/internal/graph"
	"github.com/specialistvlad/rulegraph/internal/memgraph"
	"github.com/specialistvlad/rulegraph/internal/query"
	"github.com/specialistvlad/rulegraph/internal/rule"
	"github.com/specialistvlad/rulegraph/internal/scanner"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx      context.Context
	logger   *slog.Logger
	config   *Config
	store    graph.Store
	catalog  *rule.Catalog
	analyzer *analysis.Analyzer
	registry *prometheus.Registry
}

// New is the constructor for the main application. It returns a fully
// initialized App with its own isolated logger, store and catalog. Without
// modules, the core modules are registered.
func New(outW io.Writer, cfg *Config, modules ...rule.Module) (*App, error) {
	logger := newLogger(cfg, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	catalog := rule.NewCatalog()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		if err := mod.Register(catalog); err != nil {
			return nil, fmt.Errorf("failed to register rule module: %w", err)
		}
	}
	logger.Debug("All rule modules registered.", "modules", len(modules), "rules", catalog.Len())

	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rule catalog: %w", err)
	}
	logger.Debug("Catalog validation passed.")

	store, err := openStore(cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph store: %w", err)
	}
	logger.Debug("Graph store opened.", "backend", cfg.Store.Backend)

	a := &App{
		ctx:     ctx,
		logger:  logger,
		config:  cfg,
		store:   store,
		catalog: catalog,
	}

	var opts []analysis.Option
	if cfg.Metrics {
		a.registry = prometheus.NewRegistry()
		opts = append(opts, analysis.WithMetrics(analysis.NewMetrics(a.registry)))
	}
	a.analyzer = analysis.New(catalog, store, opts...)

	return a, nil
}

func openStore(cfg StoreConfig, logger *slog.Logger) (graph.Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		return memgraph.New(), nil
	case BackendBadger:
		bc := badgergraph.InMemoryConfig()
		if cfg.Path != "" {
			bc = badgergraph.DefaultConfig(cfg.Path)
			bc.SyncWrites = cfg.SyncWrites
		}
		bc.Logger = logger.With("component", "badger")
		return badgergraph.Open(bc)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// Context returns the application's base context, which carries its logger.
func (a *App) Context() context.Context {
	return a.ctx
}

// Store returns the application's graph store.
func (a *App) Store() graph.Store {
	return a.store
}

// Catalog returns the application's rule catalog.
func (a *App) Catalog() *rule.Catalog {
	return a.catalog
}

// Analyzer returns the application's analyzer.
func (a *App) Analyzer() *analysis.Analyzer {
	return a.analyzer
}

// Metrics returns the gatherer holding the rule execution metrics, or nil
// when metrics are disabled.
func (a *App) Metrics() prometheus.Gatherer {
	if a.registry == nil {
		return nil
	}
	return a.registry
}

// NewRun starts an analysis run.
func (a *App) NewRun() *analysis.Run {
	return a.analyzer.NewRun(a.ctx)
}

// Scan writes type descriptors into the store.
func (a *App) Scan(descs ...scanner.TypeDescriptor) ([]graph.NodeID, error) {
	return scanner.New(a.store).Scan(a.ctx, descs...)
}

// Query runs an ad-hoc query against the store.
func (a *App) Query(text string) (*query.Result, error) {
	return query.Run(a.ctx, a.store, text)
}

// Close releases the store.
func (a *App) Close() error {
	a.logger.Debug("Closing application.")
	if err := a.store.Close(); err != nil && !errors.Is(err, graph.ErrStoreClosed) {
		return fmt.Errorf("failed to close graph store: %w", err)
	}
	return nil
}
