package rule

import (
	"fmt"
	"strings"
)

// UnknownRuleError is returned when a name is not in the catalog, or names a
// rule of another kind than requested.
type UnknownRuleError struct {
	Name string
	// Kind is the kind that was asked for, zero when any kind would do.
	Kind Kind
}

func (e *UnknownRuleError) Error() string {
	if e.Kind == 0 {
		return fmt.Sprintf("unknown rule %q", e.Name)
	}
	return fmt.Sprintf("unknown %s %q", e.Kind, e.Name)
}

// DuplicateRuleError is returned when registering a name twice.
type DuplicateRuleError struct {
	Name string
}

func (e *DuplicateRuleError) Error() string {
	return fmt.Sprintf("rule %q is already registered", e.Name)
}

// CyclicDependencyError is returned when prerequisites or group members form
// a cycle. Path starts and ends with the same rule.
type CyclicDependencyError struct {
	Path []string
}

func (e *CyclicDependencyError) Error() string {
	return "cyclic rule dependency: " + strings.Join(e.Path, " -> ")
}

// InvalidRuleError is returned for a malformed rule definition.
type InvalidRuleError struct {
	Name   string
	Reason string
}

func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("invalid rule %q: %s", e.Name, e.Reason)
}
