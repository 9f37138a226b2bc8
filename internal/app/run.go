package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/rulegraph/internal/analysis"
	"github.com/specialistvlad/rulegraph/internal/ctxlog"
	"github.com/specialistvlad/rulegraph/internal/rule"
)

// Analyze executes the named rules in order within one run and returns the
// run for inspection. Concepts are applied, constraints validated and groups
// executed. The first execution fault stops the analysis; the run is
// returned with it so the results gathered so far stay available.
func (a *App) Analyze(ctx context.Context, names ...string) (*analysis.Run, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	run := a.analyzer.NewRun(ctx)
	logger := a.logger.With("run_id", run.ID)

	logger.Info("🚀 Starting analysis...", "rules", len(names))
	for _, name := range names {
		r, err := a.catalog.Resolve(name)
		if err != nil {
			return run, err
		}

		switch r.Kind() {
		case rule.KindConcept:
			_, err = run.ApplyConcept(ctx, name)
		case rule.KindConstraint:
			_, err = run.ValidateConstraint(ctx, name)
		case rule.KindGroup:
			_, err = run.ExecuteGroup(ctx, name)
		default:
			err = fmt.Errorf("rule %q has unsupported kind %s", name, r.Kind())
		}
		if err != nil {
			return run, fmt.Errorf("analysis failed: %w", err)
		}
	}

	failures := run.Reporter().Failures()
	logger.Info("🏁 Analysis finished.", "results", run.Reporter().Len(), "failures", len(failures))
	for _, res := range failures {
		logger.Warn("Rule failed.", "rule", res.Name(), "kind", res.Kind().String(), "severity", res.Severity, "rows", res.RowCount())
	}
	return run, nil
}
