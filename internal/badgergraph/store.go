// Package badgergraph implements graph.Store on top of badger, an embedded
// key-value store with serializable snapshot transactions.
//
// Node records are msgpack-encoded. Labels and relationships are kept as
// empty-valued index keys, see keys.go for the layout.
package badgergraph

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/specialistvlad/rulegraph/internal/graph"
)

// Store is a graph.Store backed by a badger database.
type Store struct {
	db  *badger.DB
	seq *badger.Sequence

	mu     sync.RWMutex
	closed bool
}

var _ graph.Store = (*Store)(nil)

// Open opens a badger database with the given configuration and wraps it as
// a graph store. The caller must call Close when done.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent graph store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create graph store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	bandwidth := cfg.IDBandwidth
	if bandwidth == 0 {
		bandwidth = 256
	}
	seq, err := db.GetSequence(seqKey, bandwidth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open node id sequence: %w", err)
	}

	return &Store{db: db, seq: seq}, nil
}

// Begin starts a badger transaction.
func (s *Store) Begin(ctx context.Context, writable bool) (graph.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, graph.ErrStoreClosed
	}
	return &tx{s: s, txn: s.db.NewTransaction(writable), writable: writable}, nil
}

// Close releases unused leased ids and closes the database. Closing twice is
// a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.seq.Release()
	if cerr := s.db.Close(); cerr != nil {
		return cerr
	}
	return err
}

func (s *Store) nextID() (graph.NodeID, error) {
	n, err := s.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("allocate node id: %w", err)
	}
	// Sequences start at zero; zero is kept free as "no node".
	return graph.NodeID(n + 1), nil
}
