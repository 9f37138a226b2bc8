// Package dag holds the dependency graph used to order rule execution. Nodes
// are plain string identifiers; an edge from A to B means B depends on A.
//
// Dependencies keep their declaration order so that walking the graph yields
// a stable, dependency-first sequence that still honours the order in which a
// rule listed its prerequisites or a group listed its members.
package dag
