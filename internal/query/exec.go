package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/rulegraph/internal/graph"
	"github.com/zclconf/go-cty/cty"
)

// Row maps column names to values. Columns of bare variables hold a
// *graph.Node, all others a value as returned by goValue.
type Row map[string]any

// Result is the outcome of executing a query.
type Result struct {
	Columns []string
	Rows    []Row
	// LabelsAdded counts labels that SET attached and that were not already
	// present.
	LabelsAdded int
}

// binding holds one node id per variable slot. Zero means unbound, stores
// never hand out id zero.
type binding []graph.NodeID

// step is one hop of the flattened MATCH clause. from is -1 at the start of
// a pattern.
type step struct {
	from int
	rel  RelPattern
	node NodePattern
}

// Execute evaluates q inside tx. Matching and filtering happen before any
// label is attached, so SET never influences which rows match. Returned
// nodes reflect the labels SET attached.
func Execute(ctx context.Context, tx graph.Tx, q *Query) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e := &executor{ctx: ctx, tx: tx, q: q, nodes: make(map[graph.NodeID]*graph.Node)}
	for _, pat := range q.Patterns {
		e.steps = append(e.steps, step{from: -1, node: pat.Start})
		prev := pat.Start.slot
		for _, s := range pat.Steps {
			e.steps = append(e.steps, step{from: prev, rel: s.Rel, node: s.Node})
			prev = s.Node.slot
		}
	}

	var matched []binding
	err := e.match(0, make(binding, q.slots), func(b binding) error {
		keep, err := e.where(b)
		if keep {
			matched = append(matched, append(binding(nil), b...))
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Columns: q.Columns(), Rows: make([]Row, 0, len(matched))}
	if res.LabelsAdded, err = e.set(matched); err != nil {
		return nil, err
	}

	// SET may have changed labels; projections must see the new state.
	e.nodes = make(map[graph.NodeID]*graph.Node)
	e.values = nil
	seen := make(map[string]bool)
	for _, b := range matched {
		row, err := e.project(b)
		if err != nil {
			return nil, err
		}
		if q.Distinct {
			key := rowKey(res.Columns, row)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

// Run parses text and executes it in its own transaction, which is writable
// only when the query has a SET clause.
func Run(ctx context.Context, s graph.Store, text string) (*Result, error) {
	q, err := Parse(text)
	if err != nil {
		return nil, err
	}

	var res *Result
	fn := func(tx graph.Tx) error {
		res, err = Execute(ctx, tx, q)
		return err
	}
	if q.ReadOnly() {
		err = graph.View(ctx, s, fn)
	} else {
		err = graph.Update(ctx, s, fn)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

type executor struct {
	ctx   context.Context
	tx    graph.Tx
	q     *Query
	steps []step

	nodes  map[graph.NodeID]*graph.Node
	values map[graph.NodeID]map[string]cty.Value
}

// match enumerates bindings depth-first, trying candidates in ascending id
// order, and calls emit for each complete one.
func (e *executor) match(i int, b binding, emit func(binding) error) error {
	if i == len(e.steps) {
		return emit(b)
	}
	if err := e.ctx.Err(); err != nil {
		return err
	}

	s := e.steps[i]
	candidates, err := e.candidates(s, b)
	if err != nil {
		return err
	}

	slot := s.node.slot
	wasBound := b[slot] != 0
	for _, id := range candidates {
		if wasBound && b[slot] != id {
			continue
		}
		ok, err := e.hasLabels(id, s.node.Labels)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		b[slot] = id
		if err := e.match(i+1, b, emit); err != nil {
			return err
		}
	}
	if !wasBound {
		b[slot] = 0
	}
	return nil
}

func (e *executor) candidates(s step, b binding) ([]graph.NodeID, error) {
	if s.from >= 0 {
		return e.tx.Neighbors(b[s.from], s.rel.Type, s.rel.Dir)
	}
	if id := b[s.node.slot]; id != 0 {
		return []graph.NodeID{id}, nil
	}
	if len(s.node.Labels) > 0 {
		return e.tx.NodesByLabel(s.node.Labels[0])
	}
	return e.tx.AllNodes()
}

func (e *executor) node(id graph.NodeID) (*graph.Node, error) {
	if n, ok := e.nodes[id]; ok {
		return n, nil
	}
	n, err := e.tx.Node(id)
	if err != nil {
		return nil, err
	}
	e.nodes[id] = n
	return n, nil
}

func (e *executor) hasLabels(id graph.NodeID, labels []string) (bool, error) {
	if len(labels) == 0 {
		return true, nil
	}
	n, err := e.node(id)
	if err != nil {
		return false, err
	}
	return n.Labels.HasAll(labels...), nil
}

// evalContext exposes the named variables of b to HCL expressions.
func (e *executor) evalContext(b binding) (*hcl.EvalContext, error) {
	if e.values == nil {
		e.values = make(map[graph.NodeID]map[string]cty.Value)
	}
	vars := make(map[string]cty.Value, len(e.q.vars))
	for _, name := range e.q.vars {
		id := b[e.q.varSlot[name]]
		byVar, ok := e.values[id]
		if !ok {
			byVar = make(map[string]cty.Value)
			e.values[id] = byVar
		}
		v, ok := byVar[name]
		if !ok {
			n, err := e.node(id)
			if err != nil {
				return nil, err
			}
			v = nodeValue(n, e.q.attrs[name])
			byVar[name] = v
		}
		vars[name] = v
	}
	return &hcl.EvalContext{Variables: vars, Functions: functions}, nil
}

func (e *executor) where(b binding) (bool, error) {
	if e.q.Where == nil {
		return true, nil
	}
	ectx, err := e.evalContext(b)
	if err != nil {
		return false, err
	}
	v, diags := e.q.Where.Value(ectx)
	if diags.HasErrors() {
		return false, fmt.Errorf("evaluate WHERE: %w", diags)
	}
	if v.IsNull() {
		return false, nil
	}
	if v.Type() != cty.Bool {
		return false, fmt.Errorf("WHERE must evaluate to a bool, got %s", v.Type().FriendlyName())
	}
	return v.True(), nil
}

func (e *executor) set(matched []binding) (int, error) {
	added := 0
	for _, b := range matched {
		for _, u := range e.q.Set {
			id := b[e.q.varSlot[u.Var]]
			n, err := e.tx.AddLabels(id, u.Labels...)
			if err != nil {
				return 0, fmt.Errorf("set labels on node %s: %w", id, err)
			}
			added += n
		}
	}
	return added, nil
}

func (e *executor) project(b binding) (Row, error) {
	row := make(Row, len(e.q.Return))
	var ectx *hcl.EvalContext
	for _, p := range e.q.Return {
		if p.Var != "" {
			n, err := e.node(b[e.q.varSlot[p.Var]])
			if err != nil {
				return nil, err
			}
			row[p.Name] = n.Clone()
			continue
		}

		if ectx == nil {
			var err error
			if ectx, err = e.evalContext(b); err != nil {
				return nil, err
			}
		}
		v, diags := p.Expr.Value(ectx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("evaluate column %q: %w", p.Name, diags)
		}
		gv, err := goValue(v)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", p.Name, err)
		}
		row[p.Name] = gv
	}
	return row, nil
}

func rowKey(columns []string, row Row) string {
	var b strings.Builder
	for _, c := range columns {
		switch v := row[c].(type) {
		case *graph.Node:
			fmt.Fprintf(&b, "#%d|", v.ID)
		default:
			fmt.Fprintf(&b, "%T:%v|", v, v)
		}
	}
	return b.String()
}
