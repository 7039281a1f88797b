// Package hierarchy maintains a directed acyclic graph of typed graphs and
// rewriting rules connected by typing homomorphisms.
//
// # Structure
//
// Nodes of the hierarchy are either graphs or rules; edges are typings. A
// typing edge G -> T declares that T types G: every typed node of G has an
// image in T and the mapping is a valid homomorphism. A rule typing edge
// R -> T types a rule's left- and right-hand sides into T. Pairs of graphs
// may additionally be linked by symmetric relations, which pair nodes
// without any homomorphism obligation.
//
// # Invariants
//
// The hierarchy is always a DAG, every typing is a valid homomorphism
// honoring its declared totality, and any two typing paths between the
// same pair of nodes compose to identical mappings. Mutating operations
// are all-or-nothing: they validate first and leave the hierarchy
// untouched on failure.
//
// # Rewriting
//
// Rewrite applies a rule to one graph and propagates the change through
// the hierarchy: restrictive effects (deletion, cloning, attribute
// removal) travel to the graphs and rules typed by the rewritten graph,
// expansive effects (addition, merging, attribute addition) travel to the
// graphs typing it. See [Hierarchy.Rewrite].
package hierarchy
