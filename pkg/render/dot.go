// Package render converts graphs and hierarchy skeletons to Graphviz DOT
// and renders them to SVG or PNG.
package render

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/regraft/regraft/pkg/attrs"
	"github.com/regraft/regraft/pkg/graph"
	"github.com/regraft/regraft/pkg/hierarchy"
)

// Options configures graph rendering.
type Options struct {
	// Attrs includes attribute dictionaries in node and edge labels.
	// When false, only identifiers are shown.
	Attrs bool
}

// ToDOT converts a graph to Graphviz DOT format.
// The resulting DOT string can be rendered using [SVG] or [PNG].
func ToDOT(g *graph.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	for _, id := range g.Nodes() {
		label := id
		if opts.Attrs {
			a, _ := g.NodeAttrs(id)
			label = fmtLabel(id, a)
		}
		fmt.Fprintf(&buf, "  %q [label=%q];\n", id, label)
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		var ea attrs.Dict
		if opts.Attrs {
			ea, _ = g.EdgeAttrs(e.From, e.To)
		}
		if len(ea) > 0 {
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.From, e.To, fmtDict(ea))
		} else {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// HierarchyToDOT converts a hierarchy skeleton to Graphviz DOT format.
// Graphs are boxes, rules are ellipses, typings are solid arrows (dashed
// when partial) and relations are dashed undirected edges.
func HierarchyToDOT(h *hierarchy.Hierarchy) string {
	var buf bytes.Buffer
	buf.WriteString("digraph hierarchy {\n")
	buf.WriteString("  rankdir=BT;\n")
	buf.WriteString("\n")

	for _, id := range h.Graphs() {
		fmt.Fprintf(&buf, "  %q [shape=box];\n", id)
	}
	for _, id := range h.Rules() {
		fmt.Fprintf(&buf, "  %q [shape=ellipse];\n", id)
	}

	buf.WriteString("\n")
	for _, e := range h.Typings() {
		style := "solid"
		if t, err := h.GetTyping(e.From, e.To); err == nil && !t.Total {
			style = "dashed"
		}
		fmt.Fprintf(&buf, "  %q -> %q [style=%s];\n", e.From, e.To, style)
	}
	for _, e := range h.RuleTypings() {
		fmt.Fprintf(&buf, "  %q -> %q [style=dotted];\n", e.From, e.To)
	}
	for _, e := range h.Relations() {
		fmt.Fprintf(&buf, "  %q -> %q [style=dashed, dir=none, constraint=false];\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(id string, a attrs.Dict) string {
	if len(a) == 0 {
		return id
	}
	return id + "\n" + fmtDict(a)
}

func fmtDict(a attrs.Dict) string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s={%s}", k, strings.Join(a[k].Values(), ",")))
	}
	return strings.Join(parts, "\n")
}
