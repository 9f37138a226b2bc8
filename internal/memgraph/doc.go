// Package memgraph provides a simple, thread-safe, in-memory implementation
// of the graph.Store interface.
//
// Committed state lives in maps guarded by a sync.RWMutex. A writable
// transaction stages its writes in a private overlay and applies them in one
// critical section on Commit, so readers never observe half a transaction.
// Only one writable transaction is open at a time; read-only transactions
// never wait for it.
package memgraph
