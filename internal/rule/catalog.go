package rule

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/specialistvlad/rulegraph/internal/dag"
)

// Module is the interface rule modules implement to be registered.
type Module interface {
	Register(c *Catalog) error
}

// Catalog holds the registered rules for a single application instance. It
// is safe for concurrent use.
type Catalog struct {
	mu    sync.RWMutex
	rules map[string]Rule
	order []string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{rules: make(map[string]Rule)}
}

// Register adds rules to the catalog. The catalog keeps its own copies, so
// changing a definition after registering it has no effect. Registration
// stops at the first invalid or duplicate rule; the rules before it stay
// registered.
func (c *Catalog) Register(rules ...Rule) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range rules {
		stored, err := normalize(r)
		if err != nil {
			return err
		}
		name := stored.Name()
		if _, exists := c.rules[name]; exists {
			return &DuplicateRuleError{Name: name}
		}
		c.rules[name] = stored
		c.order = append(c.order, name)
	}
	return nil
}

// normalize validates r and returns a detached copy with defaults applied.
func normalize(r Rule) (Rule, error) {
	if isNil(r) {
		return nil, &InvalidRuleError{Reason: "rule is nil"}
	}
	if strings.TrimSpace(r.Name()) == "" {
		return nil, &InvalidRuleError{Name: r.Name(), Reason: "name must not be empty"}
	}

	switch r := r.(type) {
	case *Concept:
		cp := *r
		cp.Prerequisites = slices.Clone(r.Prerequisites)
		if cp.Severity == "" {
			cp.Severity = SeverityMinor
		}
		return &cp, checkRuleQuery(cp.ID, cp.Query, cp.Severity)
	case *Constraint:
		cp := *r
		cp.Prerequisites = slices.Clone(r.Prerequisites)
		if cp.Severity == "" {
			cp.Severity = SeverityMajor
		}
		return &cp, checkRuleQuery(cp.ID, cp.Query, cp.Severity)
	case *Group:
		cp := *r
		cp.Members = slices.Clone(r.Members)
		if len(cp.Members) == 0 {
			return nil, &InvalidRuleError{Name: cp.ID, Reason: "group has no members"}
		}
		return &cp, nil
	default:
		return nil, &InvalidRuleError{Name: r.Name(), Reason: fmt.Sprintf("unsupported rule type %T", r)}
	}
}

// isNil reports whether r is nil or a nil pointer to a known rule type.
func isNil(r Rule) bool {
	switch r := r.(type) {
	case nil:
		return true
	case *Concept:
		return r == nil
	case *Constraint:
		return r == nil
	case *Group:
		return r == nil
	}
	return false
}

func checkRuleQuery(name, query string, sev Severity) error {
	if strings.TrimSpace(query) == "" {
		return &InvalidRuleError{Name: name, Reason: "query must not be empty"}
	}
	if sev.Level() == 0 {
		return &InvalidRuleError{Name: name, Reason: fmt.Sprintf("unknown severity %q", sev)}
	}
	return nil
}

// Resolve returns the rule registered under name.
func (c *Catalog) Resolve(name string) (Rule, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.rules[name]
	if !ok {
		return nil, &UnknownRuleError{Name: name}
	}
	return r, nil
}

// Concept returns the concept registered under name.
func (c *Catalog) Concept(name string) (*Concept, error) {
	return lookup[*Concept](c, name, KindConcept)
}

// Constraint returns the constraint registered under name.
func (c *Catalog) Constraint(name string) (*Constraint, error) {
	return lookup[*Constraint](c, name, KindConstraint)
}

// Group returns the group registered under name.
func (c *Catalog) Group(name string) (*Group, error) {
	return lookup[*Group](c, name, KindGroup)
}

func lookup[T Rule](c *Catalog, name string, kind Kind) (T, error) {
	var zero T
	r, err := c.Resolve(name)
	if err != nil {
		return zero, &UnknownRuleError{Name: name, Kind: kind}
	}
	typed, ok := r.(T)
	if !ok {
		return zero, &UnknownRuleError{Name: name, Kind: kind}
	}
	return typed, nil
}

// Rules returns every rule in registration order.
func (c *Catalog) Rules() []Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Rule, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.rules[name])
	}
	return out
}

// Len returns the number of registered rules.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Plan is the execution order for one rule.
type Plan struct {
	Target Rule
	// Steps lists the target's transitive dependencies followed by the
	// target itself. Every rule appears after all of its dependencies and
	// siblings keep their declaration order.
	Steps []Rule
}

// Prerequisites returns the steps before the target.
func (p *Plan) Prerequisites() []Rule {
	return p.Steps[:len(p.Steps)-1]
}

// Plan resolves name and everything it depends on. It fails with
// UnknownRuleError for a dangling reference, InvalidRuleError when a concept
// or constraint requires something that is not a concept, and
// CyclicDependencyError on a cycle.
func (c *Catalog) Plan(name string) (*Plan, error) {
	target, err := c.Resolve(name)
	if err != nil {
		return nil, err
	}

	g := dag.New()
	rules := map[string]Rule{name: target}
	queue := []Rule{target}
	g.AddNode(name)

	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]

		for _, depName := range r.Dependencies() {
			dep, err := c.Resolve(depName)
			if err != nil {
				return nil, fmt.Errorf("resolve dependency of %q: %w", r.Name(), err)
			}
			if err := checkPrerequisite(r, dep); err != nil {
				return nil, err
			}
			if _, seen := rules[depName]; !seen {
				rules[depName] = dep
				g.AddNode(depName)
				queue = append(queue, dep)
			}
			if err := g.AddEdge(depName, r.Name()); err != nil {
				return nil, cycleError(err)
			}
		}
	}

	order, err := g.DependencyOrder(name)
	if err != nil {
		return nil, cycleError(err)
	}

	p := &Plan{Target: target, Steps: make([]Rule, 0, len(order))}
	for _, n := range order {
		p.Steps = append(p.Steps, rules[n])
	}
	return p, nil
}

func cycleError(err error) error {
	var cycle *dag.CycleError
	if errors.As(err, &cycle) {
		return &CyclicDependencyError{Path: slices.Clone(cycle.Path)}
	}
	return err
}

// checkPrerequisite fails when a concept or constraint requires something
// other than a concept. Groups may include any rule.
func checkPrerequisite(r, dep Rule) error {
	if r.Kind() != KindGroup && dep.Kind() != KindConcept {
		return &InvalidRuleError{
			Name:   r.Name(),
			Reason: fmt.Sprintf("prerequisite %q is a %s, not a concept", dep.Name(), dep.Kind()),
		}
	}
	return nil
}

// Validate checks the dependency graph of the whole catalog and returns all
// problems found: dangling references, prerequisites that are not concepts
// and the first cycle.
func (c *Catalog) Validate() error {
	rules := c.Rules()
	g := dag.New()
	for _, r := range rules {
		g.AddNode(r.Name())
	}

	var errs []error
	for _, r := range rules {
		for _, depName := range r.Dependencies() {
			if !g.HasNode(depName) {
				errs = append(errs, fmt.Errorf("resolve dependency of %q: %w", r.Name(), &UnknownRuleError{Name: depName}))
				continue
			}
			dep, err := c.Resolve(depName)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if err := checkPrerequisite(r, dep); err != nil {
				errs = append(errs, err)
			}
			if err := g.AddEdge(depName, r.Name()); err != nil {
				errs = append(errs, cycleError(err))
			}
		}
	}
	if err := g.DetectCycles(); err != nil {
		errs = append(errs, cycleError(err))
	}
	return errors.Join(errs...)
}
