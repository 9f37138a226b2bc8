package memgraph

import (
	"errors"
	"fmt"
	"slices"

	"github.com/specialistvlad/rulegraph/internal/graph"
)

type relKey struct {
	from graph.NodeID
	typ  string
	to   graph.NodeID
}

// tx reads committed state under the store's read lock and merges its own
// overlay on top.
type tx struct {
	s        *Store
	writable bool
	done     bool

	newNodes    map[graph.NodeID]*record
	addedLabels map[graph.NodeID]graph.Labels
	newRels     map[relKey]struct{}
}

var _ graph.Tx = (*tx)(nil)

func (t *tx) check(write bool) error {
	if t.done {
		return graph.ErrTxDone
	}
	if write && !t.writable {
		return graph.ErrReadOnly
	}
	return nil
}

func (t *tx) CreateNode(labels []string, props map[string]any) (graph.NodeID, error) {
	if err := t.check(true); err != nil {
		return 0, err
	}
	normalized, err := graph.NormalizeProps(props)
	if err != nil {
		return 0, err
	}

	id := graph.NodeID(t.s.lastID.Add(1))
	t.newNodes[id] = &record{labels: graph.NewLabels(labels...), props: normalized}
	return id, nil
}

func (t *tx) CreateRelationship(from graph.NodeID, typ string, to graph.NodeID) error {
	if err := t.check(true); err != nil {
		return err
	}
	if typ == "" {
		return errors.New("relationship type must not be empty")
	}
	for _, id := range []graph.NodeID{from, to} {
		if !t.exists(id) {
			return fmt.Errorf("relationship endpoint %s: %w", id, graph.ErrNodeNotFound)
		}
	}
	t.newRels[relKey{from: from, typ: typ, to: to}] = struct{}{}
	return nil
}

func (t *tx) Node(id graph.NodeID) (*graph.Node, error) {
	if err := t.check(false); err != nil {
		return nil, err
	}

	var n *graph.Node
	if r, ok := t.newNodes[id]; ok {
		n = (&graph.Node{ID: id, Labels: r.labels, Props: r.props}).Clone()
	} else {
		t.s.mu.RLock()
		r, ok := t.s.nodes[id]
		if ok {
			n = (&graph.Node{ID: id, Labels: r.labels, Props: r.props}).Clone()
		}
		t.s.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("node %s: %w", id, graph.ErrNodeNotFound)
		}
	}
	for label := range t.addedLabels[id] {
		n.Labels.Add(label)
	}
	return n, nil
}

func (t *tx) NodesByLabel(label string) ([]graph.NodeID, error) {
	if err := t.check(false); err != nil {
		return nil, err
	}

	t.s.mu.RLock()
	ids := make([]graph.NodeID, 0, len(t.s.byLabel[label]))
	for id := range t.s.byLabel[label] {
		ids = append(ids, id)
	}
	t.s.mu.RUnlock()

	for id, r := range t.newNodes {
		if r.labels.Has(label) {
			ids = append(ids, id)
		}
	}
	for id, labels := range t.addedLabels {
		if labels.Has(label) {
			ids = append(ids, id)
		}
	}
	return sortedUnique(ids), nil
}

func (t *tx) AllNodes() ([]graph.NodeID, error) {
	if err := t.check(false); err != nil {
		return nil, err
	}

	t.s.mu.RLock()
	ids := make([]graph.NodeID, 0, len(t.s.nodes)+len(t.newNodes))
	for id := range t.s.nodes {
		ids = append(ids, id)
	}
	t.s.mu.RUnlock()

	for id := range t.newNodes {
		ids = append(ids, id)
	}
	return sortedUnique(ids), nil
}

func (t *tx) Neighbors(id graph.NodeID, typ string, dir graph.Direction) ([]graph.NodeID, error) {
	if err := t.check(false); err != nil {
		return nil, err
	}
	if !t.exists(id) {
		return nil, fmt.Errorf("node %s: %w", id, graph.ErrNodeNotFound)
	}

	adj := t.s.out
	if dir == graph.Incoming {
		adj = t.s.in
	}

	var ids []graph.NodeID
	t.s.mu.RLock()
	for r := range adj[id] {
		if typ == "" || r.typ == typ {
			ids = append(ids, r.peer)
		}
	}
	t.s.mu.RUnlock()

	for k := range t.newRels {
		if typ != "" && k.typ != typ {
			continue
		}
		switch {
		case dir == graph.Outgoing && k.from == id:
			ids = append(ids, k.to)
		case dir == graph.Incoming && k.to == id:
			ids = append(ids, k.from)
		}
	}
	return sortedUnique(ids), nil
}

func (t *tx) AddLabels(id graph.NodeID, labels ...string) (int, error) {
	if err := t.check(true); err != nil {
		return 0, err
	}
	current, err := t.Node(id)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, label := range labels {
		if !current.Labels.Add(label) {
			continue
		}
		added++
		if r, ok := t.newNodes[id]; ok {
			r.labels.Add(label)
			continue
		}
		if t.addedLabels[id] == nil {
			t.addedLabels[id] = graph.NewLabels()
		}
		t.addedLabels[id].Add(label)
	}
	return added, nil
}

func (t *tx) Commit() error {
	if t.done {
		return graph.ErrTxDone
	}
	t.done = true
	if !t.writable {
		return nil
	}
	t.s.apply(t)
	<-t.s.writer
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if t.writable {
		t.newNodes, t.addedLabels, t.newRels = nil, nil, nil
		<-t.s.writer
	}
	return nil
}

func (t *tx) exists(id graph.NodeID) bool {
	if _, ok := t.newNodes[id]; ok {
		return true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	_, ok := t.s.nodes[id]
	return ok
}

func sortedUnique(ids []graph.NodeID) []graph.NodeID {
	slices.Sort(ids)
	return slices.Compact(ids)
}
