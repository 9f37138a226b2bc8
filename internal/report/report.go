// Package report holds rule results and the run-scoped reporter that
// collects them.
package report

import (
	"slices"
	"sync"
	"time"

	"github.com/specialistvlad/rulegraph/internal/rule"
)

// Status is the outcome of one rule execution.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// Row maps column names to a scalar or a *graph.Node.
type Row map[string]any

// Result is produced once per executed rule.
//
// A constraint fails when its query returned rows. Any rule fails when it
// could not be executed, in which case Err is set and Rows is empty.
type Result struct {
	Rule     rule.Rule
	Status   Status
	Severity rule.Severity
	Columns  []string
	Rows     []Row
	// LabelsAdded counts labels a concept attached that were not present
	// before. Re-applying a concept adds none.
	LabelsAdded int
	Err         error
	Duration    time.Duration
}

// Name returns the name of the rule the result belongs to.
func (r *Result) Name() string {
	return r.Rule.Name()
}

// Kind returns the kind of the rule the result belongs to.
func (r *Result) Kind() rule.Kind {
	return r.Rule.Kind()
}

// Succeeded reports whether Status is SUCCESS.
func (r *Result) Succeeded() bool {
	return r.Status == StatusSuccess
}

// RowCount returns the number of rows. For a constraint this is the number
// of violations.
func (r *Result) RowCount() int {
	return len(r.Rows)
}

// Column returns the values of one column in row order.
func (r *Result) Column(name string) []any {
	out := make([]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		out = append(out, row[name])
	}
	return out
}

// Reporter accumulates one Result per rule name for the lifetime of a run.
// Recording a rule again replaces its earlier result but keeps its position.
// It is safe for concurrent use.
type Reporter struct {
	mu      sync.RWMutex
	results map[string]*Result
	order   []string
}

// NewReporter creates an empty reporter.
func NewReporter() *Reporter {
	return &Reporter{results: make(map[string]*Result)}
}

// Record stores res under its rule's name.
func (r *Reporter) Record(res *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := res.Name()
	if _, ok := r.results[name]; !ok {
		r.order = append(r.order, name)
	}
	r.results[name] = res
}

// Result returns the result recorded for a rule name.
func (r *Reporter) Result(name string) (*Result, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.results[name]
	return res, ok
}

// ConceptResults returns the results of all executed concepts by name.
func (r *Reporter) ConceptResults() map[string]*Result {
	return r.byKind(rule.KindConcept)
}

// ConstraintResults returns the results of all executed constraints by name.
func (r *Reporter) ConstraintResults() map[string]*Result {
	return r.byKind(rule.KindConstraint)
}

func (r *Reporter) byKind(kind rule.Kind) map[string]*Result {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*Result)
	for name, res := range r.results {
		if res.Kind() == kind {
			out[name] = res
		}
	}
	return out
}

// All returns every result in the order rules were first recorded.
func (r *Reporter) All() []*Result {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Result, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.results[name])
	}
	return out
}

// Failures returns the failed results in record order.
func (r *Reporter) Failures() []*Result {
	return slices.DeleteFunc(r.All(), func(res *Result) bool {
		return res.Succeeded()
	})
}

// Len returns the number of recorded rules.
func (r *Reporter) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Reset discards all results.
func (r *Reporter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.results = make(map[string]*Result)
	r.order = nil
}
