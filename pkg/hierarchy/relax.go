package hierarchy

import (
	"slices"

	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/homomorphism"
)

// propagateDown relaxes every graph typing (transitively) the rewritten
// graph so all typings stay valid homomorphisms: nodes merged below force
// their types to merge, added nodes either receive a type from RHSTyping
// or are copied into the type graph, and new attributes and edges are
// pushed up. Type graphs are visited in topological order so each sees
// the final version of all of its instance graphs.
//
// In strict mode any required modification of a type graph is an error.
func (h *Hierarchy) propagateDown(graphID string, changes map[string]*change, opts RewriteOptions) error {
	for _, id := range h.topoSuccessors(graphID) {
		var sources []string
		for _, from := range h.graphPredecessors(id) {
			if _, ok := changes[from]; ok {
				sources = append(sources, from)
			}
		}
		if len(sources) == 0 {
			continue
		}
		ch, err := h.relaxGraph(id, sources, changes, opts)
		if err != nil {
			return err
		}
		if ch != nil {
			changes[id] = ch
		}
	}
	return nil
}

// relaxGraph grows type graph id to re-validate the typings from the
// given changed instance graphs, rebuilding those typings along the way.
func (h *Hierarchy) relaxGraph(id string, sources []string, changes map[string]*change, opts RewriteOptions) (*change, error) {
	g := h.graphs[id].graph
	changed := false

	// The type each new instance node requires, per source, expressed in
	// pre-relaxation node ids of this graph. Multiple required types for
	// one instance node force a merge here.
	uf := newMergeSets()
	type pending struct {
		source string
		node   string // new node of the source graph
		rhs    string // RHS provenance when added, "" otherwise
	}
	newTyping := map[string]homomorphism.Mapping{} // source -> new node -> old type id
	var untypedAdds []pending

	for _, src := range sources {
		newTyping[src] = homomorphism.Mapping{}
		ch := changes[src]
		t := h.typings[src][id]
		origins := ch.newOrigins()
		srcGraph := h.graphs[src].graph

		addedRHS := map[string]string{}
		for _, a := range ch.added {
			addedRHS[a.id] = a.rhs
		}

		for _, n := range srcGraph.Nodes() {
			var types []string
			seen := map[string]struct{}{}
			for _, o := range origins[n] {
				if ty, ok := t.M[o]; ok {
					if _, dup := seen[ty]; !dup {
						seen[ty] = struct{}{}
						types = append(types, ty)
					}
				}
			}
			switch {
			case len(types) > 1:
				if opts.Strict {
					return nil, rerr.New(rerr.ErrCodeInvalidTyping,
						"rewrite merges nodes of %q typed differently in %q", src, id)
				}
				uf.union(types)
				newTyping[src][n] = types[0] // canonicalized after merging
				changed = true
			case len(types) == 1:
				newTyping[src][n] = types[0]
			default:
				rhs, isAdded := addedRHS[n]
				if !isAdded {
					continue // node untyped before, stays untyped
				}
				if targets, ok := opts.RHSTyping[id][rhs]; ok {
					if len(targets) > 1 {
						if opts.Strict {
							return nil, rerr.New(rerr.ErrCodeInvalidTyping,
								"rhs_typing for %q merges nodes of %q", rhs, id)
						}
						uf.union(targets)
						changed = true
					}
					newTyping[src][n] = targets[0]
					continue
				}
				if !t.Total {
					continue // partial typing, the added node may stay untyped
				}
				if opts.Strict {
					return nil, rerr.New(rerr.ErrCodeTotalityViolation,
						"added node %q of %q has no type in %q under strict rewriting", n, src, id)
				}
				untypedAdds = append(untypedAdds, pending{source: src, node: n, rhs: rhs})
			}
		}
	}

	// Merge the type nodes pooled above.
	origin := map[string]string{}
	for _, n := range g.Nodes() {
		origin[n] = n
	}
	for _, group := range uf.groups() {
		mergedID, err := g.MergeNodes(group, "")
		if err != nil {
			return nil, err
		}
		for _, n := range group {
			origin[n] = mergedID
		}
		changed = true
	}
	for src := range newTyping {
		for n, ty := range newTyping[src] {
			newTyping[src][n] = origin[ty]
		}
	}

	// Copy untyped additions into this graph.
	ch := &change{oldImages: map[string][]taggedNode{}}
	for old, n := range origin {
		ch.oldImages[old] = append(ch.oldImages[old], taggedNode{id: n})
	}
	for _, p := range untypedAdds {
		srcGraph := h.graphs[p.source].graph
		a, err := srcGraph.NodeAttrs(p.node)
		if err != nil {
			return nil, err
		}
		newID := g.GenerateNewID(p.node)
		if err := g.AddNode(newID, a); err != nil {
			return nil, err
		}
		newTyping[p.source][p.node] = newID
		ch.added = append(ch.added, addedNode{id: newID, rhs: p.rhs})
		changed = true
	}

	// Push new attributes and edges up into the types.
	for _, src := range sources {
		srcGraph := h.graphs[src].graph
		tm := newTyping[src]
		for _, n := range srcGraph.Nodes() {
			ty, ok := tm[n]
			if !ok {
				continue
			}
			na, err := srcGraph.NodeAttrs(n)
			if err != nil {
				return nil, err
			}
			ta, err := g.NodeAttrs(ty)
			if err != nil {
				return nil, err
			}
			if missing := na.Diff(ta); len(missing) > 0 {
				if opts.Strict {
					return nil, rerr.New(rerr.ErrCodeInvalidTyping,
						"rewrite adds attributes to %q of %q not carried by its type in %q", n, src, id)
				}
				if err := g.AddNodeAttrs(ty, missing); err != nil {
					return nil, err
				}
				changed = true
			}
		}
		for _, e := range srcGraph.Edges() {
			fromT, ok1 := tm[e.From]
			toT, ok2 := tm[e.To]
			if !ok1 || !ok2 {
				continue
			}
			ea, err := srcGraph.EdgeAttrs(e.From, e.To)
			if err != nil {
				return nil, err
			}
			if !g.HasEdge(fromT, toT) {
				if opts.Strict {
					return nil, rerr.New(rerr.ErrCodeInvalidTyping,
						"rewrite adds an edge %q->%q of %q with no counterpart in %q", e.From, e.To, src, id)
				}
				if err := g.AddEdge(fromT, toT, ea.Copy()); err != nil {
					return nil, err
				}
				changed = true
				continue
			}
			ta, err := g.EdgeAttrs(fromT, toT)
			if err != nil {
				return nil, err
			}
			if missing := ea.Diff(ta); len(missing) > 0 {
				if opts.Strict {
					return nil, rerr.New(rerr.ErrCodeInvalidTyping,
						"rewrite adds edge attributes in %q not carried by the type edge in %q", src, id)
				}
				if err := g.AddEdgeAttrs(fromT, toT, missing); err != nil {
					return nil, err
				}
				changed = true
			}
		}
	}

	// Install the rebuilt typings from the changed sources.
	for _, src := range sources {
		h.typings[src][id].M = newTyping[src]
	}
	if !changed {
		return nil, nil
	}

	// Remap every other typing into this graph through the merges.
	for _, from := range h.graphPredecessors(id) {
		if slices.Contains(sources, from) {
			continue
		}
		m := h.typings[from][id].M
		for node, ty := range m {
			m[node] = origin[ty]
		}
	}
	for _, ruleID := range h.rulePredecessors(id) {
		rt := h.ruleTypings[ruleID][id]
		for node, ty := range rt.LHS {
			rt.LHS[node] = origin[ty]
		}
		for node, ty := range rt.RHS {
			rt.RHS[node] = origin[ty]
		}
	}
	return ch, nil
}

// mergeSets is a tiny union-find used to pool type nodes that must merge.
type mergeSets struct {
	parent map[string]string
}

func newMergeSets() *mergeSets {
	return &mergeSets{parent: map[string]string{}}
}

func (m *mergeSets) find(x string) string {
	p, ok := m.parent[x]
	if !ok {
		m.parent[x] = x
		return x
	}
	if p == x {
		return x
	}
	root := m.find(p)
	m.parent[x] = root
	return root
}

func (m *mergeSets) union(nodes []string) {
	if len(nodes) == 0 {
		return
	}
	root := m.find(nodes[0])
	for _, n := range nodes[1:] {
		m.parent[m.find(n)] = root
	}
}

// groups returns the equivalence classes with at least two members, each
// sorted, ordered by their smallest member.
func (m *mergeSets) groups() [][]string {
	byRoot := map[string][]string{}
	for x := range m.parent {
		root := m.find(x)
		byRoot[root] = append(byRoot[root], x)
	}
	var out [][]string
	for _, members := range byRoot {
		if len(members) < 2 {
			continue
		}
		slices.Sort(members)
		out = append(out, members)
	}
	slices.SortFunc(out, func(a, b []string) int {
		if a[0] < b[0] {
			return -1
		}
		if a[0] > b[0] {
			return 1
		}
		return 0
	})
	return out
}
