package rule

import (
	"github.com/regraft/regraft/pkg/category"
	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/graph"
	"github.com/regraft/regraft/pkg/homomorphism"
)

// Apply rewrites g at the given instance, an injective total homomorphism
// from the rule's LHS into g. The input graph is not modified.
//
// Rewriting happens in two steps: a pullback complement performs the
// restrictive phase (node and edge removal, cloning, attribute removal)
// and a pushout performs the expansive phase (addition, merging, attribute
// addition). Returns the rewritten graph together with the instance of the
// RHS in it, which locates every node the rule produced.
func (r *Rule) Apply(g *graph.Graph, instance homomorphism.Mapping) (*graph.Graph, homomorphism.Mapping, error) {
	if err := homomorphism.Check(r.LHS, g, instance, true); err != nil {
		return nil, nil, rerr.Wrap(rerr.ErrCodeInvalidInstance, err, "match is not a valid instance of the pattern")
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
	return plus.Apex, plus.Right, nil
}

// Refine grows the rule's pattern with the context of the instance in g:
// every edge of g incident to a matched node, and the full attribute sets
// of matched nodes and edges, become part of the LHS and are preserved
// through P into the RHS. The returned mapping is the refined instance.
//
// Refining makes a subsequent Apply side-effect free on the matched
// neighborhood: edges that plain rewriting would drop alongside a removed
// or cloned node are made explicit in the rule instead.
func (r *Rule) Refine(g *graph.Graph, instance homomorphism.Mapping) (homomorphism.Mapping, error) {
	if err := homomorphism.Check(r.LHS, g, instance, true); err != nil {
		return nil, rerr.Wrap(rerr.ErrCodeInvalidInstance, err, "match is not a valid instance of the pattern")
	}
	refined := instance.Copy()

	// Matched g nodes and their LHS preimages.
	matched := map[string]string{} // g node -> lhs node
	for l, gn := range refined {
		matched[gn] = l
	}

	// Saturate attributes of matched nodes so removal must be explicit.
	for l, gn := range refined {
		ga, err := g.NodeAttrs(gn)
		if err != nil {
			return nil, err
		}
		la, err := r.LHS.NodeAttrs(l)
		if err != nil {
			return nil, err
		}
		extra := ga.Diff(la)
		if len(extra) > 0 {
			if err := r.LHS.AddNodeAttrs(l, extra); err != nil {
				return nil, err
			}
			for _, p := range r.pPreimages(l) {
				if err := r.P.AddNodeAttrs(p, extra); err != nil {
					return nil, err
				}
				if err := r.RHS.AddNodeAttrs(r.PRHS[p], extra); err != nil {
					return nil, err
				}
			}
		}
	}

	// Pull the incident edges of every matched node into the rule. Context
	// nodes on the far side of such edges join the pattern as new matched
	// nodes, which can in turn expose more edges, so iterate to a fixpoint.
	frontier := make([]string, 0, len(matched))
	for gn := range matched {
		frontier = append(frontier, gn)
	}
	for len(frontier) > 0 {
		gn := frontier[0]
		frontier = frontier[1:]
		l := matched[gn]

		neighbors := g.Successors(gn)
		neighbors = append(neighbors, g.Predecessors(gn)...)
		for _, other := range neighbors {
			ol, ok := matched[other]
			if !ok {
				// Adopt the context node into all three graphs.
				ol = r.LHS.GenerateNewID(other)
				oa, err := g.NodeAttrs(other)
				if err != nil {
					return nil, err
				}
				if err := r.LHS.AddNode(ol, oa); err != nil {
					return nil, err
				}
				pid := r.P.GenerateNewID(other)
				if err := r.P.AddNode(pid, oa); err != nil {
					return nil, err
				}
				rid := r.RHS.GenerateNewID(other)
				if err := r.RHS.AddNode(rid, oa); err != nil {
					return nil, err
				}
				r.PLHS[pid] = ol
				r.PRHS[pid] = rid
				matched[other] = ol
				refined[ol] = other
				frontier = append(frontier, other)
			}
			if err := r.adoptEdge(g, gn, other, l, ol); err != nil {
				return nil, err
			}
			if err := r.adoptEdge(g, other, gn, ol, l); err != nil {
				return nil, err
			}
		}
	}

	if err := r.validate(); err != nil {
		return nil, err
	}
	return refined, nil
}

// adoptEdge mirrors the g edge from->to (if present) onto the rule's three
// graphs under the lhs ids lf->lt, saturating its attributes. Edges the
// rule already declares keep their fate: a P edge the rule removed stays
// removed, and attribute values it removed are not re-adopted.
func (r *Rule) adoptEdge(g *graph.Graph, from, to, lf, lt string) error {
	if !g.HasEdge(from, to) {
		return nil
	}
	ga, err := g.EdgeAttrs(from, to)
	if err != nil {
		return err
	}

	if !r.LHS.HasEdge(lf, lt) {
		// A fresh context edge is preserved through all three graphs.
		if err := r.LHS.AddEdge(lf, lt, ga); err != nil {
			return err
		}
		for _, p1 := range r.pPreimages(lf) {
			for _, p2 := range r.pPreimages(lt) {
				if err := r.P.AddEdge(p1, p2, ga); err != nil {
					return err
				}
				rf, rt := r.PRHS[p1], r.PRHS[p2]
				if !r.RHS.HasEdge(rf, rt) {
					if err := r.RHS.AddEdge(rf, rt, ga); err != nil {
						return err
					}
				} else if err := r.RHS.AddEdgeAttrs(rf, rt, ga); err != nil {
					return err
				}
			}
		}
		return nil
	}

	// The edge is part of the declared pattern. Only the attribute values
	// g carries beyond the declaration are context; the declared values
	// keep whatever the rule's edits decided for them.
	la, err := r.LHS.EdgeAttrs(lf, lt)
	if err != nil {
		return err
	}
	extra := ga.Diff(la)
	if len(extra) == 0 {
		return nil
	}
	if err := r.LHS.AddEdgeAttrs(lf, lt, extra); err != nil {
		return err
	}
	for _, p1 := range r.pPreimages(lf) {
		for _, p2 := range r.pPreimages(lt) {
			if !r.P.HasEdge(p1, p2) {
				continue
			}
			if err := r.P.AddEdgeAttrs(p1, p2, extra); err != nil {
				return err
			}
			if rf, rt := r.PRHS[p1], r.PRHS[p2]; r.RHS.HasEdge(rf, rt) {
				if err := r.RHS.AddEdgeAttrs(rf, rt, extra); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
