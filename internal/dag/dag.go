package dag

import (
	"fmt"
	"slices"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}

	g.nodes[id] = &node{
		id:         id,
		dependents: make(map[string]*node),
	}
	g.order = append(g.order, id)
}

// HasNode reports whether a node with the given ID exists.
func (g *Graph) HasNode(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	_, ok := g.nodes[id]
	return ok
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// This signifies that `toID` has a dependency on `fromID`. An error is returned
// if either node does not exist or if the edge would create a self-reference.
// Adding the same edge twice keeps the first position.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return &CycleError{Path: []string{fromID, fromID}}
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	if _, exists := fromNode.dependents[toID]; exists {
		return nil
	}
	toNode.deps = append(toNode.deps, fromNode)
	fromNode.dependents[toID] = toNode

	return nil
}

// DetectCycles checks the whole graph for cycles. It returns a *CycleError
// describing the first cycle found, or nil.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	w := newWalker()
	for _, id := range g.order {
		if err := w.visit(g.nodes[id]); err != nil {
			return err
		}
	}
	return nil
}

// DependencyOrder returns the node `id` together with everything it
// transitively depends on, ordered so that every node appears after all of its
// dependencies. Siblings keep their declaration order. A *CycleError is
// returned if the reachable sub-graph is not acyclic.
func (g *Graph) DependencyOrder(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}

	w := newWalker()
	if err := w.visit(n); err != nil {
		return nil, err
	}
	return w.sorted, nil
}

// walker is a depth-first traversal over dependencies with the classic
// permanent/temporary marking. The temporary marks double as the current
// path, which is what a CycleError reports.
type walker struct {
	permanent map[string]bool
	temporary map[string]bool
	stack     []string
	sorted    []string
}

func newWalker() *walker {
	return &walker{
		permanent: make(map[string]bool),
		temporary: make(map[string]bool),
	}
}

func (w *walker) visit(n *node) error {
	if w.permanent[n.id] {
		return nil
	}
	if w.temporary[n.id] {
		start := slices.Index(w.stack, n.id)
		path := append(slices.Clone(w.stack[start:]), n.id)
		return &CycleError{Path: path}
	}

	w.temporary[n.id] = true
	w.stack = append(w.stack, n.id)

	for _, dep := range n.deps {
		if err := w.visit(dep); err != nil {
			return err
		}
	}

	w.stack = w.stack[:len(w.stack)-1]
	delete(w.temporary, n.id)
	w.permanent[n.id] = true
	w.sorted = append(w.sorted, n.id)

	return nil
}
