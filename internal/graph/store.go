package graph

import (
	"context"
	"fmt"
)

// Direction selects which relationships Neighbors follows.
type Direction int

const (
	// Outgoing follows relationships that start at the node.
	Outgoing Direction = iota
	// Incoming follows relationships that end at the node.
	Incoming
)

func (d Direction) String() string {
	switch d {
	case Outgoing:
		return "outgoing"
	case Incoming:
		return "incoming"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Store is a transactional property graph.
//
// # Thread-Safety
//
// Implementations MUST be safe for concurrent use. A single Tx is not: it
// belongs to the goroutine that began it.
type Store interface {
	// Begin starts a transaction. A read-only transaction rejects writes with
	// ErrReadOnly. After Close, Begin returns ErrStoreClosed.
	Begin(ctx context.Context, writable bool) (Tx, error)

	// Close releases the store's resources.
	Close() error
}

// Tx is a unit of work against a Store.
//
// Every method returns ErrTxDone once the transaction has been committed or
// rolled back, except Rollback itself.
type Tx interface {
	// CreateNode adds a node and returns its id. Props are normalized with
	// NormalizeProps.
	CreateNode(labels []string, props map[string]any) (NodeID, error)

	// CreateRelationship adds a `(from)-[:typ]->(to)` relationship. Both
	// endpoints must exist. Creating an existing relationship is a no-op.
	CreateRelationship(from NodeID, typ string, to NodeID) error

	// Node returns a snapshot of the node, or ErrNodeNotFound.
	Node(id NodeID) (*Node, error)

	// NodesByLabel returns the ids of all nodes carrying label, ascending.
	NodesByLabel(label string) ([]NodeID, error)

	// AllNodes returns the ids of all nodes, ascending.
	AllNodes() ([]NodeID, error)

	// Neighbors returns the distinct ids reachable from id over one
	// relationship of type typ in direction dir, ascending. An empty typ
	// matches any relationship type.
	Neighbors(id NodeID, typ string, dir Direction) ([]NodeID, error)

	// AddLabels attaches labels to the node and returns how many of them
	// were not present before.
	AddLabels(id NodeID, labels ...string) (int, error)

	// Commit makes the transaction's writes visible to other transactions.
	Commit() error

	// Rollback discards the transaction's writes. Calling it on a finished
	// transaction is a no-op.
	Rollback() error
}

// Update runs fn inside a writable transaction and commits when fn succeeds.
// If fn fails the transaction is rolled back and fn's error is returned.
func Update(ctx context.Context, s Store, fn func(Tx) error) error {
	tx, err := s.Begin(ctx, true)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// View runs fn inside a read-only transaction.
func View(ctx context.Context, s Store, fn func(Tx) error) error {
	tx, err := s.Begin(ctx, false)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	return fn(tx)
}
