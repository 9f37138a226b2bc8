package memgraph

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/rulegraph/internal/graph"
)

type record struct {
	labels graph.Labels
	props  map[string]any
}

// rel is one relationship as seen from one of its endpoints.
type rel struct {
	typ  string
	peer graph.NodeID
}

// Store implements the graph.Store interface using maps and a mutex for
// thread-safe concurrent access.
type Store struct {
	mu      sync.RWMutex
	nodes   map[graph.NodeID]*record
	byLabel map[string]map[graph.NodeID]struct{}
	out     map[graph.NodeID]map[rel]struct{}
	in      map[graph.NodeID]map[rel]struct{}

	// writer is a one-slot semaphore held by the open writable transaction.
	writer chan struct{}
	lastID atomic.Uint64
	closed atomic.Bool
}

var _ graph.Store = (*Store)(nil)

// New creates a new, empty in-memory graph store.
func New() *Store {
	return &Store{
		nodes:   make(map[graph.NodeID]*record),
		byLabel: make(map[string]map[graph.NodeID]struct{}),
		out:     make(map[graph.NodeID]map[rel]struct{}),
		in:      make(map[graph.NodeID]map[rel]struct{}),
		writer:  make(chan struct{}, 1),
	}
}

// Begin starts a transaction. A writable transaction waits until any other
// writable transaction has finished or ctx is done.
func (s *Store) Begin(ctx context.Context, writable bool) (graph.Tx, error) {
	if s.closed.Load() {
		return nil, graph.ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t := &tx{s: s, writable: writable}
	if !writable {
		return t, nil
	}

	select {
	case s.writer <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	t.newNodes = make(map[graph.NodeID]*record)
	t.addedLabels = make(map[graph.NodeID]graph.Labels)
	t.newRels = make(map[relKey]struct{})
	return t, nil
}

// Close marks the store closed. Transactions already open keep working.
func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}

// apply merges a committed overlay into the store.
func (s *Store) apply(t *tx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, r := range t.newNodes {
		s.nodes[id] = r
		for label := range r.labels {
			s.index(label, id)
		}
	}
	for id, labels := range t.addedLabels {
		r := s.nodes[id]
		for label := range labels {
			if r.labels.Add(label) {
				s.index(label, id)
			}
		}
	}
	for k := range t.newRels {
		link(s.out, k.from, rel{typ: k.typ, peer: k.to})
		link(s.in, k.to, rel{typ: k.typ, peer: k.from})
	}
}

// index must be called with mu held for writing.
func (s *Store) index(label string, id graph.NodeID) {
	set, ok := s.byLabel[label]
	if !ok {
		set = make(map[graph.NodeID]struct{})
		s.byLabel[label] = set
	}
	set[id] = struct{}{}
}

func link(adj map[graph.NodeID]map[rel]struct{}, id graph.NodeID, r rel) {
	set, ok := adj[id]
	if !ok {
		set = make(map[rel]struct{})
		adj[id] = set
	}
	set[r] = struct{}{}
}
