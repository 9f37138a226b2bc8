package rule

import (
	"fmt"
	"slices"
)

// Kind tells concepts, constraints and groups apart.
type Kind int

const (
	KindConcept Kind = iota + 1
	KindConstraint
	KindGroup
)

func (k Kind) String() string {
	switch k {
	case KindConcept:
		return "concept"
	case KindConstraint:
		return "constraint"
	case KindGroup:
		return "group"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Severity ranks how serious a rule's findings are.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
	SeverityBlocker  Severity = "blocker"
)

var severities = []Severity{SeverityInfo, SeverityMinor, SeverityMajor, SeverityCritical, SeverityBlocker}

// ParseSeverity returns the severity with the given name.
func ParseSeverity(s string) (Severity, error) {
	for _, sev := range severities {
		if string(sev) == s {
			return sev, nil
		}
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Level orders severities from 1 (info) to 5 (blocker). Unknown severities
// are 0.
func (s Severity) Level() int {
	return slices.Index(severities, s) + 1
}

// Rule is a Concept, Constraint or Group.
type Rule interface {
	// Name is the unique name the rule is registered under.
	Name() string
	Kind() Kind
	// Dependencies lists the names this rule needs executed first:
	// prerequisites for concepts and constraints, members for groups.
	Dependencies() []string

	rule()
}

// Concept attaches labels to the nodes its query matches.
type Concept struct {
	ID            string
	Description   string
	Query         string
	Prerequisites []string
	// Severity defaults to minor.
	Severity Severity
}

func (c *Concept) Name() string           { return c.ID }
func (c *Concept) Kind() Kind             { return KindConcept }
func (c *Concept) Dependencies() []string { return c.Prerequisites }
func (*Concept) rule()                    {}

// Constraint reports every row its query returns as a violation.
type Constraint struct {
	ID            string
	Description   string
	Query         string
	Prerequisites []string
	// Severity defaults to major.
	Severity Severity
}

func (c *Constraint) Name() string           { return c.ID }
func (c *Constraint) Kind() Kind             { return KindConstraint }
func (c *Constraint) Dependencies() []string { return c.Prerequisites }
func (*Constraint) rule()                    {}

// Group executes its members in order.
type Group struct {
	ID          string
	Description string
	Members     []string
}

func (g *Group) Name() string           { return g.ID }
func (g *Group) Kind() Kind             { return KindGroup }
func (g *Group) Dependencies() []string { return g.Members }
func (*Group) rule()                    {}

// SeverityOf returns the severity of a concept or constraint, and "" for a
// group.
func SeverityOf(r Rule) Severity {
	switch r := r.(type) {
	case *Concept:
		return r.Severity
	case *Constraint:
		return r.Severity
	default:
		return ""
	}
}

// QueryOf returns the query of a concept or constraint, and "" for a group.
func QueryOf(r Rule) string {
	switch r := r.(type) {
	case *Concept:
		return r.Query
	case *Constraint:
		return r.Query
	default:
		return ""
	}
}
