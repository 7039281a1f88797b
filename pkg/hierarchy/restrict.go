package hierarchy

import (
	"slices"

	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/graph"
	"github.com/regraft/regraft/pkg/homomorphism"
	"github.com/regraft/regraft/pkg/rule"
)

// typedTarget couples one typing of a graph being restricted with the
// already-computed change of the typing's target.
type typedTarget struct {
	target    string
	m         homomorphism.Mapping
	ch        *change
	newTarget *graph.Graph
}

// propagateUp restricts every graph typed (transitively) by the rewritten
// graph so all typings stay valid homomorphisms: nodes whose type was
// removed disappear, nodes whose type was cloned follow the selected
// clones, attributes and edges shrink to what the new types allow.
// Instance graphs are visited in reverse topological order so each sees
// the final version of all of its type graphs.
func (h *Hierarchy) propagateUp(graphID string, changes map[string]*change, opts RewriteOptions) error {
	for _, id := range h.reverseTopoPredecessors(graphID) {
		var targets []typedTarget
		for _, to := range h.graphSuccessors(id) {
			ch, ok := changes[to]
			if !ok {
				continue
			}
			targets = append(targets, typedTarget{
				target:    to,
				m:         h.typings[id][to].M,
				ch:        ch,
				newTarget: h.graphs[to].graph,
			})
		}
		if len(targets) == 0 {
			continue
		}

		g := h.graphs[id].graph
		newG, images, newTypings, changed, err := restrictTyped(g, targets, opts.PTyping[id])
		if err != nil {
			return err
		}

		h.graphs[id].graph = newG
		for _, tt := range targets {
			h.typings[id][tt.target].M = newTypings[tt.target]
		}
		// Typings into untouched successors follow the node images.
		for _, to := range h.graphSuccessors(id) {
			if _, touched := changes[to]; touched {
				continue
			}
			old := h.typings[id][to].M
			updated := homomorphism.Mapping{}
			for node, imgs := range images {
				t, ok := old[node]
				if !ok {
					continue
				}
				for _, img := range imgs {
					updated[img.id] = t
				}
			}
			h.typings[id][to].M = updated
		}

		if changed {
			changes[id] = &change{oldImages: images}
		}
	}
	return nil
}

// restrictTyped computes the restriction of g induced by the changes of
// its typing targets. sel optionally picks which clone branches a node
// follows. Returns the restricted graph, the node images, and the new
// typing into each changed target.
func restrictTyped(g *graph.Graph, targets []typedTarget, sel map[string][]string) (*graph.Graph, map[string][]taggedNode, map[string]homomorphism.Mapping, bool, error) {
	newG := g.Copy()
	images := map[string][]taggedNode{}
	newTypings := map[string]homomorphism.Mapping{}
	for _, tt := range targets {
		newTypings[tt.target] = homomorphism.Mapping{}
	}
	changed := false

	for _, x := range g.Nodes() {
		images[x] = []taggedNode{{id: x}}
	}

	for _, x := range g.Nodes() {
		for _, tt := range targets {
			n, typed := tt.m[x]
			if !typed {
				continue
			}
			imgs := tt.ch.oldImages[n]
			var next []taggedNode
			for _, c := range images[x] {
				switch {
				case len(imgs) == 0:
					// The node's type was removed.
					if err := newG.RemoveNode(c.id); err != nil {
						return nil, nil, nil, false, err
					}
					dropTypes(newTypings, c.id)
					changed = true

				case len(imgs) == 1:
					newTypings[tt.target][c.id] = imgs[0].id
					next = append(next, c)

				default:
					allowed := imgs
					if c.tag != "" {
						if filtered := filterTags(imgs, []string{c.tag}); len(filtered) > 0 {
							allowed = filtered
						}
					} else if want, ok := sel[x]; ok {
						filtered := filterTags(imgs, want)
						if len(filtered) == 0 {
							return nil, nil, nil, false, rerr.New(rerr.ErrCodeContradictingTyping,
								"p_typing for node %q selects no available clone", x)
						}
						allowed = filtered
					}
					if len(allowed) == 1 {
						c.tag = allowed[0].tag
						newTypings[tt.target][c.id] = allowed[0].id
						next = append(next, c)
						break
					}
					// Follow every allowed clone branch.
					changed = true
					for i, a := range allowed {
						id := c.id
						if i > 0 {
							var err error
							id, err = newG.CloneNode(c.id, "")
							if err != nil {
								return nil, nil, nil, false, err
							}
							inheritTypes(newTypings, c.id, id)
						}
						newTypings[tt.target][id] = a.id
						next = append(next, taggedNode{id: id, tag: a.tag})
					}
				}
			}
			images[x] = next
		}
	}

	// Shrink attributes and drop edges the new types no longer carry.
	for _, tt := range targets {
		tm := newTypings[tt.target]
		for _, x := range newG.Nodes() {
			t, typed := tm[x]
			if !typed {
				continue
			}
			ta, err := tt.newTarget.NodeAttrs(t)
			if err != nil {
				return nil, nil, nil, false, err
			}
			cur, err := newG.NodeAttrs(x)
			if err != nil {
				return nil, nil, nil, false, err
			}
			if inter := cur.Intersect(ta); !inter.Equal(cur) {
				if err := newG.UpdateNodeAttrs(x, inter); err != nil {
					return nil, nil, nil, false, err
				}
				changed = true
			}
		}
		for _, e := range newG.Edges() {
			fromT, ok1 := tm[e.From]
			toT, ok2 := tm[e.To]
			if !ok1 || !ok2 {
				continue
			}
			if !tt.newTarget.HasEdge(fromT, toT) {
				if err := newG.RemoveEdge(e.From, e.To); err != nil {
					return nil, nil, nil, false, err
				}
				changed = true
				continue
			}
			ta, err := tt.newTarget.EdgeAttrs(fromT, toT)
			if err != nil {
				return nil, nil, nil, false, err
			}
			cur, err := newG.EdgeAttrs(e.From, e.To)
			if err != nil {
				return nil, nil, nil, false, err
			}
			if inter := cur.Intersect(ta); !inter.Equal(cur) {
				if err := newG.UpdateEdgeAttrs(e.From, e.To, inter); err != nil {
					return nil, nil, nil, false, err
				}
				changed = true
			}
		}
	}

	return newG, images, newTypings, changed, nil
}

func filterTags(imgs []taggedNode, tags []string) []taggedNode {
	var out []taggedNode
	for _, img := range imgs {
		if slices.Contains(tags, img.tag) {
			out = append(out, img)
		}
	}
	return out
}

func dropTypes(typings map[string]homomorphism.Mapping, node string) {
	for _, m := range typings {
		delete(m, node)
	}
}

func inheritTypes(typings map[string]homomorphism.Mapping, from, to string) {
	for _, m := range typings {
		if t, ok := m[from]; ok {
			m[to] = t
		}
	}
}

// liftRules rebuilds every rule typed into a changed graph so its span
// stays valid: rule graph nodes follow the removal and cloning of their
// types, with the preserved part re-paired clone branch by clone branch.
func (h *Hierarchy) liftRules(changes map[string]*change, opts RewriteOptions) error {
	for _, ruleID := range h.Rules() {
		var targets []string
		for to := range h.ruleTypings[ruleID] {
			if _, ok := changes[to]; ok {
				targets = append(targets, to)
			}
		}
		if len(targets) == 0 {
			continue
		}
		slices.Sort(targets)
		if err := h.liftRule(ruleID, targets, changes, opts); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hierarchy) liftRule(ruleID string, targets []string, changes map[string]*change, opts RewriteOptions) error {
	rn := h.rules[ruleID]
	r := rn.rule

	var lhsTargets, rhsTargets []typedTarget
	for _, to := range targets {
		rt := h.ruleTypings[ruleID][to]
		ch := changes[to]
		ng := h.graphs[to].graph
		lhsTargets = append(lhsTargets, typedTarget{target: to, m: rt.LHS, ch: ch, newTarget: ng})
		rhsTargets = append(rhsTargets, typedTarget{target: to, m: rt.RHS, ch: ch, newTarget: ng})
	}

	newLHS, imagesL, lhsTypings, _, err := restrictTyped(r.LHS, lhsTargets, opts.PTyping[ruleID])
	if err != nil {
		return err
	}
	newRHS, imagesR, rhsTypings, _, err := restrictTyped(r.RHS, rhsTargets, opts.PTyping[ruleID])
	if err != nil {
		return err
	}

	// Rebuild the preserved part by pairing the clone branches of each
	// node's LHS and RHS images.
	newP := graph.New()
	newPLHS := homomorphism.Mapping{}
	newPRHS := homomorphism.Mapping{}
	pCopies := map[string][]string{}
	for _, p := range r.P.Nodes() {
		lImgs := imagesL[r.PLHS[p]]
		rImgs := imagesR[r.PRHS[p]]
		pa, err := r.P.NodeAttrs(p)
		if err != nil {
			return err
		}
		for _, li := range lImgs {
			for _, ri := range rImgs {
				if li.tag != "" && ri.tag != "" && li.tag != ri.tag {
					continue
				}
				la, err := newLHS.NodeAttrs(li.id)
				if err != nil {
					return err
				}
				ra, err := newRHS.NodeAttrs(ri.id)
				if err != nil {
					return err
				}
				id := newP.GenerateNewID(p)
				if err := newP.AddNode(id, pa.Intersect(la).Intersect(ra)); err != nil {
					return err
				}
				newPLHS[id] = li.id
				newPRHS[id] = ri.id
				pCopies[p] = append(pCopies[p], id)
			}
		}
	}
	for _, e := range r.P.Edges() {
		ea, err := r.P.EdgeAttrs(e.From, e.To)
		if err != nil {
			return err
		}
		for _, fc := range pCopies[e.From] {
			for _, tc := range pCopies[e.To] {
				lf, lt := newPLHS[fc], newPLHS[tc]
				rf, rt := newPRHS[fc], newPRHS[tc]
				if !newLHS.HasEdge(lf, lt) || !newRHS.HasEdge(rf, rt) {
					continue
				}
				la, err := newLHS.EdgeAttrs(lf, lt)
				if err != nil {
					return err
				}
				ra, err := newRHS.EdgeAttrs(rf, rt)
				if err != nil {
					return err
				}
				if err := newP.AddEdge(fc, tc, ea.Intersect(la).Intersect(ra)); err != nil {
					return err
				}
			}
		}
	}

	lifted, err := rule.New(newP, newLHS, newRHS, newPLHS, newPRHS)
	if err != nil {
		return rerr.Wrap(rerr.ErrCodeInvalidTyping, err, "lifting rule %q broke its span", ruleID)
	}
	rn.rule = lifted

	for _, to := range targets {
		rt := h.ruleTypings[ruleID][to]
		rt.LHS = lhsTypings[to]
		rt.RHS = rhsTypings[to]
	}
	// Typings into untouched graphs follow the images.
	for to, rt := range h.ruleTypings[ruleID] {
		if _, touched := changes[to]; touched {
			continue
		}
		rt.LHS = remapThrough(rt.LHS, imagesL)
		rt.RHS = remapThrough(rt.RHS, imagesR)
	}
	return nil
}

func remapThrough(m homomorphism.Mapping, images map[string][]taggedNode) homomorphism.Mapping {
	out := homomorphism.Mapping{}
	for node, t := range m {
		for _, img := range images[node] {
			out[img.id] = t
		}
	}
	return out
}
