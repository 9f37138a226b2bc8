// Package app wires the engine together. An App owns one graph store, the
// rule catalog with all registered modules, and an analyzer; callers scan
// descriptors into the store and start analysis runs against it.
package app
