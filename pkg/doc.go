// Package pkg provides the core libraries for Regraft graph rewriting.
//
// # Overview
//
// Regraft implements sesqui-pushout rewriting in hierarchies of simple
// typed graphs. A hierarchy is a directed acyclic graph whose nodes are
// graphs (or rewriting rules) and whose edges are typing homomorphisms;
// rewriting one graph propagates the change along the typing structure.
// The pkg directory is organized into four main areas:
//
//  1. Foundations - attribute sets, graphs, homomorphisms
//  2. Rewriting - categorical operators, rules, matching, hierarchies
//  3. Infrastructure - caching, storage, configuration, observability
//  4. Surfaces - HTTP server and Graphviz rendering
//
// # Architecture
//
// The typical data flow through Regraft:
//
//	Hierarchy JSON
//	         ↓
//	    [match] package (find pattern instances)
//	         ↓
//	    [rule] package (sesqui-pushout application)
//	         ↓
//	    [hierarchy] package (propagate along typings)
//	         ↓
//	    JSON/DOT/SVG/PNG output
//
// # Quick Start
//
// Find an instance of a rule's pattern and rewrite:
//
//	import (
//	    "github.com/regraft/regraft/pkg/hierarchy"
//	    "github.com/regraft/regraft/pkg/rule"
//	)
//
//	h, _ := hierarchy.ReadFile("cells.json")
//	r, _ := rule.FromCommands(pattern, `CLONE p AS p2.`)
//	matches, _ := h.FindMatching("model", r.LHS, nil)
//	result, rhs, _ := h.Rewrite("model", r, matches[0], hierarchy.RewriteOptions{})
//
// # Main Packages
//
// ## Foundations
//
// [attrs] - Attribute dictionaries mapping names to value sets, with the
// set operations (union, intersection, subset) rewriting is built on.
//
// [graph] - Simple directed graphs with attributes on nodes and edges,
// at most one edge per ordered node pair.
//
// [homomorphism] - Typed-graph homomorphisms: partial or total node
// mappings that preserve edges and attribute containment.
//
// ## Rewriting
//
// [category] - Pushouts, pullbacks, and pullback complements over graphs,
// the categorical operators rewriting is assembled from.
//
// [rule] - Rewriting rules as spans, rule edit scripts, and
// sesqui-pushout application to a single graph.
//
// [match] - Subgraph matching (injective homomorphism search) with
// typing constraints.
//
// [hierarchy] - Hierarchies of typed graphs and rules, rewriting with
// upward and downward propagation, relations, and serialization.
//
// ## Infrastructure
//
// [cache] - Match-result caching with file, Redis, and null backends,
// keyed by content hashes of graph, pattern, and typing.
//
// [store] - Named hierarchy persistence on the filesystem or MongoDB.
//
// [config] - TOML configuration for the CLI and server.
//
// [observability] - Hook points for match, rewrite, and cache events.
//
// ## Surfaces
//
// [server] - JSON HTTP API over a hierarchy with cached matching.
//
// [render] - DOT generation and Graphviz SVG/PNG rendering for graphs
// and hierarchy skeletons.
package pkg
