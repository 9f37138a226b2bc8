// Package query implements the small pattern language rules are written in.
//
// A query has up to four clauses, always in this order:
//
//	MATCH (t:Type)-[:ANNOTATED_BY]->()-[:OF_TYPE]->(a:Type), (t)-[:DECLARES]->(m:Method)
//	WHERE a.fqn == "javax.ejb.Schedule" && !has_label(t, "Ejb")
//	SET t:Scheduled
//	RETURN t AS bean, m.name AS method
//
// MATCH is required. Patterns are separated by commas and variables shared
// between patterns join them. Nodes are written `(var:Label:Label)` or `()`,
// relationships `-[:TYPE]->`, `<-[:TYPE]-` or `-[]->` for any type.
//
// WHERE and RETURN expressions are HCL expressions (see hclsyntax). Every
// named variable is an object with the attributes `id`, `labels` and one
// attribute per node property. Referencing a property the node does not have
// yields null. The functions has_label, contains, length, lower, upper and
// matches are available.
//
// SET attaches labels to bound nodes. Attaching a label a node already
// carries is a no-op.
//
// RETURN lists projections separated by commas, each optionally renamed
// with `AS name`. A bare variable projects the node itself (*graph.Node), any
// other expression a scalar. `RETURN DISTINCT` drops duplicate rows. Without
// a RETURN clause every named variable is returned.
//
// Keywords are case-insensitive. Matches are enumerated in ascending node
// id order, so results are deterministic for a given graph.
package query
