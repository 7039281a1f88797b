// Package graph implements the typed-graph primitive layer.
//
// A Graph is a directed simple graph (no parallel edges) whose nodes and
// edges carry set-valued attribute dictionaries ([attrs.Dict]). The package
// provides the complete primitive mutation contract the rewriting engine is
// built on: node/edge addition and removal, attribute addition, removal and
// replacement, node cloning and node merging.
//
// All mutations are strict: adding an existing node or edge, or mutating a
// missing one, returns an error. There are no silent no-ops, which keeps
// rewriting squares honest — every change a rule makes corresponds to an
// explicit, checked primitive operation.
//
// The [Store] interface captures this contract so that pattern matching and
// rewriting stay agnostic of the storage backend. *Graph is the in-memory
// implementation.
//
// # Cloning and Merging
//
// CloneNode gives the clone an independent deep copy of the original's
// attributes and duplicates every incident edge in both directions, each
// with its own attribute copy. MergeNodes redirects all incident edges onto
// the merged node; when several original edges collapse onto the same new
// edge their attribute sets are unioned, as are the node attribute sets.
// These two operations are the primitive halves of sesqui-pushout cloning
// and merging.
package graph
