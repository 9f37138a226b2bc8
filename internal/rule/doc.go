// Package rule holds rule definitions and the catalog they are registered in.
//
// There are three kinds of rule:
//   - A Concept runs a query whose SET clause attaches labels to the nodes it
//     matches. Concepts may require other concepts.
//   - A Constraint runs a read-only query. Every returned row is a violation.
//     Constraints may require concepts.
//   - A Group bundles concepts, constraints and other groups, in order.
//
// Rules are immutable once registered. The Catalog resolves names and plans
// execution: Plan returns a rule together with everything it transitively
// depends on, in an order where every rule comes after its dependencies.
// Cycles are detected while planning, before anything runs.
//
// Rule modules register their rules through the Module interface.
package rule
