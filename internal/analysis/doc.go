// Package analysis executes rules against a graph store.
//
// An Analyzer pairs a rule catalog with a store. Each analysis is a Run: it
// owns a report.Reporter and remembers which rules it already executed, so a
// concept required by several rules is applied once per run.
//
// Rules execute strictly one after another, each inside its own
// transaction. A concept's labels are either all committed or, when its
// query fails, all rolled back. Constraint violations are results, not
// errors: only a rule that cannot execute yields a *RuleExecutionError.
package analysis
