package analysis

import (
	"fmt"

	"github.com/specialistvlad/rulegraph/internal/rule"
)

// RuleExecutionError is returned when a rule could not be executed, for
// example because its query is malformed or the store failed. A failing
// prerequisite makes its dependents fail with a RuleExecutionError wrapping
// the prerequisite's.
type RuleExecutionError struct {
	Rule string
	Kind rule.Kind
	Err  error
}

func (e *RuleExecutionError) Error() string {
	return fmt.Sprintf("execute %s %q: %v", e.Kind, e.Rule, e.Err)
}

func (e *RuleExecutionError) Unwrap() error {
	return e.Err
}
