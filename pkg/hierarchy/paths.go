package hierarchy

import (
	"slices"

	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/homomorphism"
)

// graphReachable reports whether to is reachable from from along typing
// edges.
func (h *Hierarchy) graphReachable(from, to string) bool {
	if from == to {
		return true
	}
	seen := map[string]struct{}{from: {}}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range h.typings[cur] {
			if next == to {
				return true
			}
			if _, ok := seen[next]; !ok {
				seen[next] = struct{}{}
				queue = append(queue, next)
			}
		}
	}
	return false
}

// allPaths enumerates every simple typing path from from to to, each as a
// node sequence. Hierarchies are small DAGs, so exhaustive enumeration is
// affordable.
func (h *Hierarchy) allPaths(from, to string) [][]string {
	var out [][]string
	var walk func(cur string, path []string)
	walk = func(cur string, path []string) {
		if cur == to {
			out = append(out, slices.Clone(path))
			return
		}
		for _, next := range h.graphSuccessors(cur) {
			walk(next, append(path, next))
		}
	}
	walk(from, []string{from})
	return out
}

// composeAlong composes the typing mappings along a node path.
func (h *Hierarchy) composeAlong(path []string) homomorphism.Mapping {
	if len(path) < 2 {
		m := homomorphism.Mapping{}
		if len(path) == 1 {
			if gn, ok := h.graphs[path[0]]; ok {
				m = homomorphism.Identity(gn.graph)
			}
		}
		return m
	}
	m := h.typings[path[0]][path[1]].M
	for i := 2; i < len(path); i++ {
		m = homomorphism.Compose(m, h.typings[path[i-1]][path[i]].M)
	}
	return m
}

// ComposePath returns the typing of from into to composed along the
// hierarchy, and whether a typing path exists at all. The commutation
// invariant makes the result path-independent.
func (h *Hierarchy) ComposePath(from, to string) (homomorphism.Mapping, bool) {
	paths := h.allPaths(from, to)
	if len(paths) == 0 {
		return nil, false
	}
	return h.composeAlong(paths[0]).Copy(), true
}

// Ancestors returns every graph reachable from id along typing edges,
// with the composed typing into each. In hierarchy terms these are the
// type graphs of id, transitively.
func (h *Hierarchy) Ancestors(id string) (map[string]homomorphism.Mapping, error) {
	if _, ok := h.graphs[id]; !ok {
		return nil, rerr.New(rerr.ErrCodeUnknownID, "graph %q does not exist", id)
	}
	out := map[string]homomorphism.Mapping{}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range h.graphSuccessors(cur) {
			if _, ok := out[next]; ok {
				continue
			}
			if cur == id {
				out[next] = h.typings[id][next].M.Copy()
			} else {
				out[next] = homomorphism.Compose(out[cur], h.typings[cur][next].M)
			}
			queue = append(queue, next)
		}
	}
	return out, nil
}

// Descendants returns every graph from which id is reachable along typing
// edges, with the composed typing of each into id. These are the
// instance graphs typed by id, transitively.
func (h *Hierarchy) Descendants(id string) (map[string]homomorphism.Mapping, error) {
	if _, ok := h.graphs[id]; !ok {
		return nil, rerr.New(rerr.ErrCodeUnknownID, "graph %q does not exist", id)
	}
	out := map[string]homomorphism.Mapping{}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, prev := range h.graphPredecessors(cur) {
			if _, ok := out[prev]; ok {
				continue
			}
			if cur == id {
				out[prev] = h.typings[prev][id].M.Copy()
			} else {
				out[prev] = homomorphism.Compose(h.typings[prev][cur].M, out[cur])
			}
			queue = append(queue, prev)
		}
	}
	return out, nil
}

// checkRuleCommutation verifies that the rule's typings compose
// consistently: for every graph reachable from two typed targets (or
// typed directly and through a path), the LHS and RHS legs composed along
// the typing structure must agree wherever both are defined. Graph-path
// commutation is already enforced, so one path per target suffices.
func (h *Hierarchy) checkRuleCommutation(ruleID string) error {
	type leg struct {
		lhs homomorphism.Mapping
		rhs homomorphism.Mapping
	}
	composed := map[string][]leg{}
	for g, rt := range h.ruleTypings[ruleID] {
		composed[g] = append(composed[g], leg{rt.LHS, rt.RHS})
		anc, err := h.Ancestors(g)
		if err != nil {
			return err
		}
		for t, m := range anc {
			composed[t] = append(composed[t], leg{
				lhs: homomorphism.Compose(rt.LHS, m),
				rhs: homomorphism.Compose(rt.RHS, m),
			})
		}
	}
	for t, legs := range composed {
		for i := 0; i < len(legs); i++ {
			for j := i + 1; j < len(legs); j++ {
				if !agreeOn(legs[i].lhs, legs[j].lhs) || !agreeOn(legs[i].rhs, legs[j].rhs) {
					return rerr.New(rerr.ErrCodeNonCommuting,
						"rule typing paths from %q to %q do not commute", ruleID, t)
				}
			}
		}
	}
	return nil
}

// agreeOn reports whether two mappings assign the same image to every
// node they both map.
func agreeOn(a, b homomorphism.Mapping) bool {
	for k, v := range a {
		if w, ok := b[k]; ok && w != v {
			return false
		}
	}
	return true
}

// checkCommutation verifies that after adding the typing from->to, all
// typing paths between any pair of endpoints still compose identically.
// Only pairs whose path set changed are affected: sources that reach
// from, targets reachable from to.
func (h *Hierarchy) checkCommutation(from, to string) error {
	sources := []string{from}
	for id := range h.graphs {
		if id != from && h.graphReachable(id, from) {
			sources = append(sources, id)
		}
	}
	targets := []string{to}
	for id := range h.graphs {
		if id != to && h.graphReachable(to, id) {
			targets = append(targets, id)
		}
	}
	for _, s := range sources {
		for _, t := range targets {
			paths := h.allPaths(s, t)
			if len(paths) < 2 {
				continue
			}
			ref := h.composeAlong(paths[0])
			for _, p := range paths[1:] {
				if !h.composeAlong(p).Equal(ref) {
					return rerr.New(rerr.ErrCodeNonCommuting,
						"typing paths from %q to %q do not commute", s, t)
				}
			}
		}
	}
	return nil
}
