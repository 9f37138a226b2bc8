// Package graph defines the transactional property graph that rules are
// evaluated against.
//
// # Model
//
// A graph holds nodes and typed, directed relationships:
//   - **Nodes** have a stable NodeID, a label set with true set semantics and a
//     map of scalar properties (string, int64, float64, bool, []string).
//   - **Relationships** connect two nodes with a type such as DECLARES or
//     ANNOTATED_BY. Creating the same relationship twice is a no-op.
//
// Labels are append-only: a Tx can add labels, but nothing removes them.
// Nodes are never deleted.
//
// # Transactions
//
// All access goes through a Tx obtained from Store.Begin. A writable Tx sees
// its own uncommitted writes; other transactions only see them after Commit.
// Rollback discards everything the Tx wrote and is safe to call after Commit,
// which makes `defer tx.Rollback()` the normal pattern. The Update and View
// helpers wrap that pattern.
//
// # Implementations
//
//   - internal/memgraph: maps guarded by a sync.RWMutex, for tests and
//     short-lived analyses.
//   - internal/badgergraph: persistent store on top of badger.
//
// Both are checked by the shared conformance suite in internal/graph/graphtest.
package graph
