package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/rulegraph/internal/ctxlog"
	"github.com/specialistvlad/rulegraph/internal/query"
	"github.com/specialistvlad/rulegraph/internal/report"
	"github.com/specialistvlad/rulegraph/internal/rule"
)

// Run is one analysis. It is not safe for concurrent use: rules of a run
// execute one at a time on the caller's goroutine.
type Run struct {
	ID uuid.UUID

	analyzer *Analyzer
	reporter *report.Reporter
	logger   *slog.Logger
	// executed memoizes rules that executed without a fault in this run.
	executed map[string]*report.Result
}

// GroupResult holds the results of a group's members in execution order,
// prerequisites of members included. A group has no status of its own.
type GroupResult struct {
	Group   *rule.Group
	Results []*report.Result
}

// Result returns the member result for a rule name.
func (g *GroupResult) Result(name string) (*report.Result, bool) {
	for _, res := range g.Results {
		if res.Name() == name {
			return res, true
		}
	}
	return nil, false
}

// Failures returns the member results with status FAILURE.
func (g *GroupResult) Failures() []*report.Result {
	var out []*report.Result
	for _, res := range g.Results {
		if !res.Succeeded() {
			out = append(out, res)
		}
	}
	return out
}

// ApplyConcept applies the concept's prerequisites that have not run yet in
// this run, then the concept itself, which is always re-evaluated.
//
// When the concept or one of its prerequisites cannot be executed, the
// concept's FAILURE result is returned together with a *RuleExecutionError.
// Unknown rules and dependency cycles fail before anything executes.
func (r *Run) ApplyConcept(ctx context.Context, name string) (*report.Result, error) {
	if _, err := r.analyzer.catalog.Concept(name); err != nil {
		return nil, err
	}
	return r.executeTarget(ctxlog.Ensure(ctx, r.logger), name)
}

// ValidateConstraint applies the constraint's prerequisite concepts that
// have not run yet in this run, then evaluates the constraint. The result is
// FAILURE exactly when the query returned rows.
func (r *Run) ValidateConstraint(ctx context.Context, name string) (*report.Result, error) {
	if _, err := r.analyzer.catalog.Constraint(name); err != nil {
		return nil, err
	}
	return r.executeTarget(ctxlog.Ensure(ctx, r.logger), name)
}

// ExecuteGroup executes the group's members in declaration order, nested
// groups expanded in place. Members that already ran in this run are not
// executed again; their earlier results are part of the GroupResult. An
// execution fault stops the group and returns the partial result along with
// the error. A FAILURE status does not.
func (r *Run) ExecuteGroup(ctx context.Context, name string) (*GroupResult, error) {
	g, err := r.analyzer.catalog.Group(name)
	if err != nil {
		return nil, err
	}
	plan, err := r.analyzer.catalog.Plan(name)
	if err != nil {
		return nil, err
	}

	ctx = ctxlog.With(ctxlog.Ensure(ctx, r.logger), "group", name)
	logger := ctxlog.FromContext(ctx).With("run_id", r.ID)
	logger.Info("▶️ Executing group", "steps", len(plan.Steps)-1)

	gr := &GroupResult{Group: g}
	for _, step := range plan.Steps {
		if step.Kind() == rule.KindGroup {
			continue
		}
		res, err := r.ensure(ctx, step)
		if res != nil {
			gr.Results = append(gr.Results, res)
		}
		if err != nil {
			logger.Error("❌ Group aborted.", "rule", step.Name(), "error", err)
			return gr, err
		}
	}

	logger.Info("✅ Finished group", "results", len(gr.Results), "failures", len(gr.Failures()))
	return gr, nil
}

// ConstraintResults returns the results of every constraint executed in
// this run, keyed by name.
func (r *Run) ConstraintResults() map[string]*report.Result {
	return r.reporter.ConstraintResults()
}

// ConceptResults returns the results of every concept executed in this run,
// keyed by name.
func (r *Run) ConceptResults() map[string]*report.Result {
	return r.reporter.ConceptResults()
}

// Reporter returns the run's reporter.
func (r *Run) Reporter() *report.Reporter {
	return r.reporter
}

// Close ends the run and discards its results.
func (r *Run) Close() {
	r.reporter.Reset()
	clear(r.executed)
}

func (r *Run) executeTarget(ctx context.Context, name string) (*report.Result, error) {
	plan, err := r.analyzer.catalog.Plan(name)
	if err != nil {
		return nil, err
	}

	for _, step := range plan.Prerequisites() {
		if _, err := r.ensure(ctx, step); err != nil {
			return r.fail(ctx, plan.Target, time.Now(), fmt.Errorf("prerequisite %q: %w", step.Name(), err))
		}
	}
	return r.execute(ctx, plan.Target)
}

// ensure executes rl unless it already executed in this run.
func (r *Run) ensure(ctx context.Context, rl rule.Rule) (*report.Result, error) {
	if res, ok := r.executed[rl.Name()]; ok {
		ctxlog.FromContext(ctx).Debug("Rule already executed in this run, skipping.", "rule", rl.Name(), "run_id", r.ID)
		return res, nil
	}
	return r.execute(ctx, rl)
}

func (r *Run) execute(ctx context.Context, rl rule.Rule) (*report.Result, error) {
	logger := ctxlog.FromContext(ctx).With("rule", rl.Name(), "kind", rl.Kind().String(), "run_id", r.ID)
	logger.Debug("▶️ Executing rule")

	start := time.Now()
	qres, err := r.evaluate(ctx, rl)
	if err != nil {
		return r.fail(ctx, rl, start, err)
	}

	res := &report.Result{
		Rule:        rl,
		Status:      report.StatusSuccess,
		Severity:    rule.SeverityOf(rl),
		Columns:     qres.Columns,
		Rows:        make([]report.Row, 0, len(qres.Rows)),
		LabelsAdded: qres.LabelsAdded,
		Duration:    time.Since(start),
	}
	for _, row := range qres.Rows {
		res.Rows = append(res.Rows, report.Row(row))
	}
	if rl.Kind() == rule.KindConstraint && len(res.Rows) > 0 {
		res.Status = report.StatusFailure
	}

	r.record(res)
	r.executed[rl.Name()] = res
	logger.Info("✅ Finished rule", "status", res.Status, "rows", len(res.Rows), "labels_added", res.LabelsAdded)
	return res, nil
}

// evaluate runs the rule's query in its own transaction, writable for
// concepts only. Nothing is committed unless the query succeeds.
func (r *Run) evaluate(ctx context.Context, rl rule.Rule) (*query.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q, err := query.Parse(rule.QueryOf(rl))
	if err != nil {
		return nil, err
	}
	writable := rl.Kind() == rule.KindConcept
	if !writable && !q.ReadOnly() {
		return nil, errors.New("constraint query must not modify the graph")
	}

	tx, err := r.analyzer.store.Begin(ctx, writable)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := query.Execute(ctx, tx, q)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}

// fail records a FAILURE result for rl and returns it with the fault.
func (r *Run) fail(ctx context.Context, rl rule.Rule, start time.Time, cause error) (*report.Result, error) {
	res := &report.Result{
		Rule:     rl,
		Status:   report.StatusFailure,
		Severity: rule.SeverityOf(rl),
		Rows:     []report.Row{},
		Err:      cause,
		Duration: time.Since(start),
	}
	r.record(res)
	delete(r.executed, rl.Name())

	ctxlog.FromContext(ctx).Error("❌ Rule execution failed.", "rule", rl.Name(), "kind", rl.Kind().String(), "run_id", r.ID, "error", cause)
	return res, &RuleExecutionError{Rule: rl.Name(), Kind: rl.Kind(), Err: cause}
}

func (r *Run) record(res *report.Result) {
	r.reporter.Record(res)
	r.analyzer.metrics.observe(res)
}
