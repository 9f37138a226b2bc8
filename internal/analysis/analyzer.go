package analysis

import (
	"context"

	"github.com/google/uuid"
	"github.com/specialistvlad/rulegraph/internal/ctxlog"
	"github.com/specialistvlad/rulegraph/internal/graph"
	"github.com/specialistvlad/rulegraph/internal/report"
	"github.com/specialistvlad/rulegraph/internal/rule"
)

// Analyzer executes rules from a catalog against a store.
type Analyzer struct {
	catalog *rule.Catalog
	store   graph.Store
	metrics *Metrics
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithMetrics makes the analyzer record every execution in m.
func WithMetrics(m *Metrics) Option {
	return func(a *Analyzer) {
		a.metrics = m
	}
}

// New creates an Analyzer.
func New(catalog *rule.Catalog, store graph.Store, opts ...Option) *Analyzer {
	a := &Analyzer{catalog: catalog, store: store}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Catalog returns the analyzer's rule catalog.
func (a *Analyzer) Catalog() *rule.Catalog {
	return a.catalog
}

// NewRun starts an analysis run with an empty reporter. The run keeps the
// logger carried by ctx and logs to it whenever a later call's context
// carries none.
func (a *Analyzer) NewRun(ctx context.Context) *Run {
	r := &Run{
		ID:       uuid.New(),
		analyzer: a,
		reporter: report.NewReporter(),
		logger:   ctxlog.FromContext(ctx),
		executed: make(map[string]*report.Result),
	}
	r.logger.Debug("Analysis run started.", "run_id", r.ID)
	return r
}
