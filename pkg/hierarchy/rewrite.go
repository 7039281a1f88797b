package hierarchy

import (
	"slices"

	"github.com/regraft/regraft/pkg/category"
	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/homomorphism"
	"github.com/regraft/regraft/pkg/rule"
)

// RewriteOptions controls how a rewrite propagates through the hierarchy.
type RewriteOptions struct {
	// PTyping selects, per instance graph typed by the rewritten graph,
	// which clones each of its nodes follows: graph id -> node id -> ids
	// of preserved-part nodes. Nodes without a selection follow every
	// clone.
	PTyping map[string]map[string][]string

	// RHSTyping supplies types for nodes the rule adds, per type graph:
	// graph id -> RHS node id -> type node ids. Several type nodes force
	// a merge in the type graph.
	RHSTyping map[string]map[string][]string

	// Strict forbids any modification of type graphs: additions must be
	// fully typed through RHSTyping and merges must stay within one type.
	Strict bool

	// InPlace mutates the receiver on success. Otherwise the receiver is
	// left untouched and the result is a fresh hierarchy.
	InPlace bool
}

// taggedNode is one post-rewrite descendant of a pre-rewrite node. The
// tag names the preserved-part node whose clone branch created it, empty
// when the node was not cloned.
type taggedNode struct {
	id  string
	tag string
}

// addedNode is a node created by the rewrite with no pre-rewrite origin,
// carrying the RHS node it descends from for deeper RHSTyping lookups.
type addedNode struct {
	id  string
	rhs string
}

// change records how one graph's nodes were transformed by a rewrite
// step: every old node maps to its surviving descendants (empty when
// removed, several when cloned), and added lists the nodes with no
// origin.
type change struct {
	oldImages map[string][]taggedNode
	added     []addedNode
}

// newOrigins inverts oldImages: new node -> old nodes (several when the
// rewrite merged them).
func (c *change) newOrigins() map[string][]string {
	out := map[string][]string{}
	for old, imgs := range c.oldImages {
		for _, img := range imgs {
			out[img.id] = append(out[img.id], old)
		}
	}
	for _, a := range c.added {
		if _, ok := out[a.id]; !ok {
			out[a.id] = nil
		}
	}
	for k := range out {
		slices.Sort(out[k])
	}
	return out
}

// Rewrite applies a rule to the given graph at the given instance and
// propagates the change through the hierarchy: restrictive effects travel
// to every graph and rule typed by the rewritten graph, expansive effects
// to every graph typing it.
//
// The whole call is atomic: it either succeeds completely or returns an
// error leaving the hierarchy unchanged, for InPlace rewrites included.
// Returns the hierarchy holding the result (the receiver when InPlace)
// and the instance of the rule's RHS in the rewritten graph.
func (h *Hierarchy) Rewrite(graphID string, r *rule.Rule, instance homomorphism.Mapping, opts RewriteOptions) (*Hierarchy, homomorphism.Mapping, error) {
	if _, ok := h.graphs[graphID]; !ok {
		return nil, nil, rerr.New(rerr.ErrCodeUnknownID, "graph %q does not exist", graphID)
	}
	if r == nil {
		return nil, nil, rerr.New(rerr.ErrCodeInvalidInput, "rule must be non-nil")
	}
	if err := h.validateRewriteTyping(graphID, r, opts); err != nil {
		return nil, nil, err
	}

	work := h.Copy()
	rhsInstance, err := work.rewrite(graphID, r, instance, opts)
	if err != nil {
		return nil, nil, err
	}
	if opts.InPlace {
		*h = *work
		return h, rhsInstance, nil
	}
	return work, rhsInstance, nil
}

// validateRewriteTyping rejects malformed PTyping/RHSTyping before any
// mutation happens.
func (h *Hierarchy) validateRewriteTyping(graphID string, r *rule.Rule, opts RewriteOptions) error {
	for id, byNode := range opts.PTyping {
		gn, ok := h.graphs[id]
		if !ok {
			return rerr.New(rerr.ErrCodeUnknownID, "p_typing references unknown graph %q", id)
		}
		if !h.graphReachable(id, graphID) || id == graphID {
			return rerr.New(rerr.ErrCodeInvalidTyping,
				"p_typing graph %q is not typed by %q", id, graphID)
		}
		for node, pNodes := range byNode {
			if !gn.graph.HasNode(node) {
				return rerr.New(rerr.ErrCodeUnderspecifiedTyping,
					"p_typing references unknown node %q of %q", node, id)
			}
			for _, p := range pNodes {
				if !r.P.HasNode(p) {
					return rerr.New(rerr.ErrCodeUnderspecifiedTyping,
						"p_typing references unknown preserved node %q", p)
				}
			}
		}
	}
	for id, byNode := range opts.RHSTyping {
		gn, ok := h.graphs[id]
		if !ok {
			return rerr.New(rerr.ErrCodeUnknownID, "rhs_typing references unknown graph %q", id)
		}
		if !h.graphReachable(graphID, id) || id == graphID {
			return rerr.New(rerr.ErrCodeInvalidTyping,
				"rhs_typing graph %q does not type %q", id, graphID)
		}
		for rhsNode, targets := range byNode {
			if !r.RHS.HasNode(rhsNode) {
				return rerr.New(rerr.ErrCodeUnderspecifiedTyping,
					"rhs_typing references unknown RHS node %q", rhsNode)
			}
			if len(targets) == 0 {
				return rerr.New(rerr.ErrCodeUnderspecifiedTyping,
					"rhs_typing for %q in %q is empty", rhsNode, id)
			}
			for _, t := range targets {
				if !gn.graph.HasNode(t) {
					return rerr.New(rerr.ErrCodeUnderspecifiedTyping,
						"rhs_typing references unknown node %q of %q", t, id)
				}
			}
		}
	}
	return nil
}

// rewrite performs the full five-step state transition on the receiver,
// which is always a scratch copy.
func (h *Hierarchy) rewrite(graphID string, r *rule.Rule, instance homomorphism.Mapping, opts RewriteOptions) (homomorphism.Mapping, error) {
	baseChange, rhsInstance, err := h.rewriteBase(graphID, r, instance)
	if err != nil {
		return nil, err
	}
	changes := map[string]*change{graphID: baseChange}

	if err := h.propagateUp(graphID, changes, opts); err != nil {
		return nil, err
	}
	if err := h.liftRules(changes, opts); err != nil {
		return nil, err
	}
	if err := h.propagateDown(graphID, changes, opts); err != nil {
		return nil, err
	}
	h.updateRelations(changes)
	return rhsInstance, nil
}

// rewriteBase rewrites the target graph itself via pullback complement
// followed by pushout, and records the node-level change.
func (h *Hierarchy) rewriteBase(graphID string, r *rule.Rule, instance homomorphism.Mapping) (*change, homomorphism.Mapping, error) {
	g := h.graphs[graphID].graph
	if err := homomorphism.Check(r.LHS, g, instance, true); err != nil {
		return nil, nil, rerr.Wrap(rerr.ErrCodeInvalidInstance, err,
			"match is not a valid instance of the pattern in %q", graphID)
	}

	minus, err := category.PullbackComplement(
		homomorphism.Hom{Source: r.P, Target: r.LHS, M: r.PLHS},
		homomorphism.Hom{Source: r.LHS, Target: g, M: instance},
	)
	if err != nil {
		return nil, nil, err
	}
	plus, err := category.Pushout(
		homomorphism.Hom{Source: r.P, Target: minus.Apex, M: minus.Left},
		homomorphism.Hom{Source: r.P, Target: r.RHS, M: r.PRHS},
	)
	if err != nil {
		return nil, nil, err
	}

	// Tag each intermediate node with the preserved-part node that
	// produced it; clones of a matched node carry distinct tags.
	tagOf := map[string]string{}
	cloned := map[string]bool{}
	for _, l := range r.LHS.Nodes() {
		var pre []string
		for p, img := range r.PLHS {
			if img == l {
				pre = append(pre, p)
			}
		}
		if len(pre) > 1 {
			cloned[instance[l]] = true
		}
	}
	for p, m := range minus.Left {
		if cloned[minus.Right[m]] {
			tagOf[m] = p
		}
	}

	ch := &change{oldImages: map[string][]taggedNode{}}
	for _, n := range g.Nodes() {
		ch.oldImages[n] = nil
	}
	for _, m := range minus.Apex.Nodes() {
		old := minus.Right[m]
		ch.oldImages[old] = append(ch.oldImages[old], taggedNode{id: plus.Left[m], tag: tagOf[m]})
	}
	for k := range ch.oldImages {
		slices.SortFunc(ch.oldImages[k], func(a, b taggedNode) int {
			if a.id < b.id {
				return -1
			}
			if a.id > b.id {
				return 1
			}
			return 0
		})
	}
	preimaged := r.PRHS.Image()
	for _, q := range r.RHS.Nodes() {
		if _, ok := preimaged[q]; !ok {
			ch.added = append(ch.added, addedNode{id: plus.Right[q], rhs: q})
		}
	}

	h.graphs[graphID].graph = plus.Apex
	return ch, plus.Right, nil
}

// updateRelations pushes every recorded change through the relations of
// the changed graphs: removed nodes lose their pairs, clones inherit
// them, merged nodes pool them.
func (h *Hierarchy) updateRelations(changes map[string]*change) {
	for id, ch := range changes {
		others := make([]string, 0, len(h.relations[id]))
		for other := range h.relations[id] {
			others = append(others, other)
		}
		slices.Sort(others)
		for _, other := range others {
			pairs, err := h.RelationPairs(id, other)
			if err != nil {
				continue
			}
			updated := map[string][]string{}
			for node, partners := range pairs {
				imgs, tracked := ch.oldImages[node]
				if !tracked {
					updated[node] = partners
					continue
				}
				for _, img := range imgs {
					updated[img.id] = append(updated[img.id], partners...)
				}
			}
			rel := map[string]map[string]struct{}{}
			for node, partners := range updated {
				rel[node] = map[string]struct{}{}
				for _, p := range partners {
					rel[node][p] = struct{}{}
				}
			}
			a := h.relations[id][other].Attrs
			delete(h.relations[id], other)
			delete(h.relations[other], id)
			h.setRelation(id, other, &Relation{Rel: rel, Attrs: a})
		}
	}
}

// reverseTopoPredecessors lists every graph that reaches root along
// typing edges, ordered so each appears after all of its typing
// successors within the set.
func (h *Hierarchy) reverseTopoPredecessors(root string) []string {
	inSet := map[string]bool{root: true}
	for id := range h.graphs {
		if id != root && h.graphReachable(id, root) {
			inSet[id] = true
		}
	}
	var order []string
	done := map[string]bool{root: true}
	for len(order) < len(inSet)-1 {
		progress := false
		var ids []string
		for id := range inSet {
			if !done[id] {
				ids = append(ids, id)
			}
		}
		slices.Sort(ids)
		for _, id := range ids {
			ready := true
			for to := range h.typings[id] {
				if inSet[to] && !done[to] {
					ready = false
					break
				}
			}
			if ready {
				order = append(order, id)
				done[id] = true
				progress = true
			}
		}
		if !progress {
			break // unreachable in a valid DAG
		}
	}
	return order
}

// topoSuccessors lists every graph reachable from root along typing
// edges, ordered so each appears after all of its typing predecessors
// within the set.
func (h *Hierarchy) topoSuccessors(root string) []string {
	inSet := map[string]bool{root: true}
	for id := range h.graphs {
		if id != root && h.graphReachable(root, id) {
			inSet[id] = true
		}
	}
	var order []string
	done := map[string]bool{root: true}
	for len(order) < len(inSet)-1 {
		progress := false
		var ids []string
		for id := range inSet {
			if !done[id] {
				ids = append(ids, id)
			}
		}
		slices.Sort(ids)
		for _, id := range ids {
			ready := true
			for _, from := range h.graphPredecessors(id) {
				if inSet[from] && !done[from] {
					ready = false
					break
				}
			}
			if ready {
				order = append(order, id)
				done[id] = true
				progress = true
			}
		}
		if !progress {
			break
		}
	}
	return order
}
