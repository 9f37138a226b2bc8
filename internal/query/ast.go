package query

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/rulegraph/internal/graph"
)

// Query is a parsed query. It is immutable and safe to execute many times.
type Query struct {
	Text     string
	Patterns []Pattern
	Where    hcl.Expression // nil without a WHERE clause
	Set      []LabelUpdate
	Distinct bool
	Return   []Projection

	// vars holds the named variables in order of first appearance.
	vars []string
	// slots is the number of binding slots, anonymous nodes included.
	slots int
	// varSlot maps each named variable to its binding slot.
	varSlot map[string]int
	// attrs lists the attributes expressions reference on each variable.
	attrs map[string][]string
}

// ReadOnly reports whether executing the query leaves the graph unchanged.
func (q *Query) ReadOnly() bool {
	return len(q.Set) == 0
}

// Variables returns the named variables in order of first appearance.
func (q *Query) Variables() []string {
	return append([]string(nil), q.vars...)
}

// Columns returns the result column names.
func (q *Query) Columns() []string {
	cols := make([]string, len(q.Return))
	for i, p := range q.Return {
		cols[i] = p.Name
	}
	return cols
}

func (q *Query) String() string {
	return q.Text
}

// Pattern is one comma-separated path of a MATCH clause.
type Pattern struct {
	Start NodePattern
	Steps []Step
}

// NodePattern matches one node. Var is empty for an anonymous node.
type NodePattern struct {
	Var    string
	Labels []string

	slot int
}

// Step is a relationship hop followed by the node it reaches.
type Step struct {
	Rel  RelPattern
	Node NodePattern
}

// RelPattern matches one relationship. An empty Type matches any type.
type RelPattern struct {
	Type string
	Dir  graph.Direction
}

// LabelUpdate is one `var:Label:Label` item of a SET clause.
type LabelUpdate struct {
	Var    string
	Labels []string
}

// Projection is one RETURN item. Var is set when the expression is a bare
// variable, in which case the column holds the node.
type Projection struct {
	Name string
	Expr hcl.Expression
	Var  string
}
