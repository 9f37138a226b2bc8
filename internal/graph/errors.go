package graph

import "errors"

var (
	// ErrNodeNotFound is returned when an operation references a node id the
	// store does not know.
	ErrNodeNotFound = errors.New("node not found")

	// ErrTxDone is returned by any operation on a transaction that has already
	// been committed or rolled back.
	ErrTxDone = errors.New("transaction already finished")

	// ErrReadOnly is returned by write operations on a read-only transaction.
	ErrReadOnly = errors.New("transaction is read-only")

	// ErrStoreClosed is returned by Begin after the store was closed.
	ErrStoreClosed = errors.New("graph store is closed")

	// ErrInvalidProperty is returned when a property value has a type the
	// store cannot hold.
	ErrInvalidProperty = errors.New("invalid property")
)
