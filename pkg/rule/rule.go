// Package rule implements rewriting rules as spans of homomorphisms.
//
// A Rule is a pair of homomorphisms L ← P → R over three typed graphs: the
// pattern (left-hand side) L, the preserved part P and the replacement
// (right-hand side) R. The whole transformation semantics is derived from
// the two legs:
//
//   - an L node with no P preimage is removed
//   - an L node with several P preimages is cloned, one clone per preimage
//   - an R node with no P preimage is added
//   - an R node with several P preimages is the result of a merge
//   - attributes present in L or R but absent from the corresponding P
//     element are removed or added respectively
//
// Rules are built either directly from three graphs, or imperatively from
// a pattern via [FromTransform] and the Inject* mutators, or from a
// transformation command script via [FromCommands]. Every mutator
// re-validates both legs before returning, so a Rule is always a pair of
// valid homomorphisms.
package rule

import (
	"slices"

	"github.com/regraft/regraft/pkg/attrs"
	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/graph"
	"github.com/regraft/regraft/pkg/homomorphism"
)

// Rule is a span L ← P → R of typed graphs.
//
// A Rule owns independent deep copies of its three graphs: they are never
// aliased across legs, and callers must not mutate them directly — use the
// Inject* methods, which keep the legs valid.
type Rule struct {
	P   *graph.Graph
	LHS *graph.Graph
	RHS *graph.Graph

	PLHS homomorphism.Mapping // P -> LHS
	PRHS homomorphism.Mapping // P -> RHS
}

// New builds a rule from three graphs and the two leg mappings. The graphs
// are deep-copied. Nil mappings default to the identity, which requires
// P's node set to be a subset of the corresponding graph's. Both legs are
// validated as total homomorphisms.
func New(p, lhs, rhs *graph.Graph, pLHS, pRHS homomorphism.Mapping) (*Rule, error) {
	r := &Rule{
		P:   p.Copy(),
		LHS: lhs.Copy(),
		RHS: rhs.Copy(),
	}
	if pLHS == nil {
		pLHS = homomorphism.Identity(r.P)
	}
	if pRHS == nil {
		pRHS = homomorphism.Identity(r.P)
	}
	r.PLHS = pLHS.Copy()
	r.PRHS = pRHS.Copy()
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// FromTransform seeds an identity rule over the pattern: P = L = R with
// identity legs. Structural differences are then built up with the
// Inject* mutators.
func FromTransform(pattern *graph.Graph) *Rule {
	r := &Rule{
		P:    pattern.Copy(),
		LHS:  pattern.Copy(),
		RHS:  pattern.Copy(),
		PLHS: homomorphism.Identity(pattern),
		PRHS: homomorphism.Identity(pattern),
	}
	return r
}

// Identity builds the empty identity rule over the given pattern, i.e. a
// rule that neither removes, clones, adds nor merges anything.
func Identity(pattern *graph.Graph) *Rule {
	return FromTransform(pattern)
}

// Copy returns a deep copy of the rule.
func (r *Rule) Copy() *Rule {
	return &Rule{
		P:    r.P.Copy(),
		LHS:  r.LHS.Copy(),
		RHS:  r.RHS.Copy(),
		PLHS: r.PLHS.Copy(),
		PRHS: r.PRHS.Copy(),
	}
}

// validate checks that both legs are valid total homomorphisms.
func (r *Rule) validate() error {
	if err := homomorphism.Check(r.P, r.LHS, r.PLHS, true); err != nil {
		return rerr.Wrap(rerr.ErrCodeInvalidInput, err, "invalid P->LHS leg")
	}
	if err := homomorphism.Check(r.P, r.RHS, r.PRHS, true); err != nil {
		return rerr.Wrap(rerr.ErrCodeInvalidInput, err, "invalid P->RHS leg")
	}
	return nil
}

// =============================================================================
// Derived Queries
// =============================================================================

// RemovedNodes returns the LHS nodes with no P preimage, sorted.
func (r *Rule) RemovedNodes() []string {
	image := r.PLHS.Image()
	var out []string
	for _, n := range r.LHS.Nodes() {
		if _, ok := image[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}

// AddedNodes returns the RHS nodes with no P preimage, sorted.
func (r *Rule) AddedNodes() []string {
	image := r.PRHS.Image()
	var out []string
	for _, n := range r.RHS.Nodes() {
		if _, ok := image[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}

// ClonedNodes maps each LHS node with more than one P preimage to its
// sorted preimages.
func (r *Rule) ClonedNodes() map[string][]string {
	out := map[string][]string{}
	for lhsNode, pre := range r.PLHS.Preimages() {
		if len(pre) > 1 {
			out[lhsNode] = pre
		}
	}
	return out
}

// MergedNodes maps each RHS node with more than one P preimage to its
// sorted preimages.
func (r *Rule) MergedNodes() map[string][]string {
	out := map[string][]string{}
	for rhsNode, pre := range r.PRHS.Preimages() {
		if len(pre) > 1 {
			out[rhsNode] = pre
		}
	}
	return out
}

// RemovedEdges returns the LHS edges with no corresponding P edge, sorted.
func (r *Rule) RemovedEdges() []graph.Edge {
	var out []graph.Edge
	pre := r.PLHS.Preimages()
	for _, e := range r.LHS.Edges() {
		preserved := false
		for _, p1 := range pre[e.From] {
			for _, p2 := range pre[e.To] {
				if r.P.HasEdge(p1, p2) {
					preserved = true
				}
			}
		}
		if !preserved {
			out = append(out, e)
		}
	}
	return out
}

// AddedEdges returns the RHS edges with no corresponding P edge, sorted.
func (r *Rule) AddedEdges() []graph.Edge {
	var out []graph.Edge
	pre := r.PRHS.Preimages()
	for _, e := range r.RHS.Edges() {
		preserved := false
		for _, p1 := range pre[e.From] {
			for _, p2 := range pre[e.To] {
				if r.P.HasEdge(p1, p2) {
					preserved = true
				}
			}
		}
		if !preserved {
			out = append(out, e)
		}
	}
	return out
}

// RemovedNodeAttrs maps LHS nodes to the attributes the rule removes from
// them: values present in the LHS node but absent from some P preimage.
// Nodes removed entirely are not listed.
func (r *Rule) RemovedNodeAttrs() map[string]attrs.Dict {
	out := map[string]attrs.Dict{}
	for lhsNode, pre := range r.PLHS.Preimages() {
		la, err := r.LHS.NodeAttrs(lhsNode)
		if err != nil {
			continue
		}
		removed := attrs.Dict{}
		for _, p := range pre {
			pa, err := r.P.NodeAttrs(p)
			if err != nil {
				continue
			}
			removed = removed.Union(la.Diff(pa))
		}
		if len(removed) > 0 {
			out[lhsNode] = removed
		}
	}
	return out
}

// AddedNodeAttrs maps RHS nodes to the attributes the rule adds to them:
// values present in the RHS node but absent from some P preimage. Nodes
// added entirely are not listed.
func (r *Rule) AddedNodeAttrs() map[string]attrs.Dict {
	out := map[string]attrs.Dict{}
	for rhsNode, pre := range r.PRHS.Preimages() {
		ra, err := r.RHS.NodeAttrs(rhsNode)
		if err != nil {
			continue
		}
		added := attrs.Dict{}
		for _, p := range pre {
			pa, err := r.P.NodeAttrs(p)
			if err != nil {
				continue
			}
			added = added.Union(ra.Diff(pa))
		}
		if len(added) > 0 {
			out[rhsNode] = added
		}
	}
	return out
}

// RemovedEdgeAttrs maps LHS edges to the attributes the rule removes from
// them. Edges removed entirely are not listed.
func (r *Rule) RemovedEdgeAttrs() map[graph.Edge]attrs.Dict {
	out := map[graph.Edge]attrs.Dict{}
	pre := r.PLHS.Preimages()
	for _, e := range r.LHS.Edges() {
		la, err := r.LHS.EdgeAttrs(e.From, e.To)
		if err != nil {
			continue
		}
		removed := attrs.Dict{}
		found := false
		for _, p1 := range pre[e.From] {
			for _, p2 := range pre[e.To] {
				if !r.P.HasEdge(p1, p2) {
					continue
				}
				pa, err := r.P.EdgeAttrs(p1, p2)
				if err != nil {
					continue
				}
				removed = removed.Union(la.Diff(pa))
				found = true
			}
		}
		if found && len(removed) > 0 {
			out[e] = removed
		}
	}
	return out
}

// AddedEdgeAttrs maps RHS edges to the attributes the rule adds to them.
// Edges added entirely are not listed.
func (r *Rule) AddedEdgeAttrs() map[graph.Edge]attrs.Dict {
	out := map[graph.Edge]attrs.Dict{}
	pre := r.PRHS.Preimages()
	for _, e := range r.RHS.Edges() {
		ra, err := r.RHS.EdgeAttrs(e.From, e.To)
		if err != nil {
			continue
		}
		added := attrs.Dict{}
		found := false
		for _, p1 := range pre[e.From] {
			for _, p2 := range pre[e.To] {
				if !r.P.HasEdge(p1, p2) {
					continue
				}
				pa, err := r.P.EdgeAttrs(p1, p2)
				if err != nil {
					continue
				}
				added = added.Union(ra.Diff(pa))
				found = true
			}
		}
		if found && len(added) > 0 {
			out[e] = added
		}
	}
	return out
}

// IsRestrictive reports whether the rule removes or clones anything.
// Restrictive rules propagate upward through a hierarchy.
func (r *Rule) IsRestrictive() bool {
	return len(r.RemovedNodes()) > 0 ||
		len(r.RemovedEdges()) > 0 ||
		len(r.ClonedNodes()) > 0 ||
		len(r.RemovedNodeAttrs()) > 0 ||
		len(r.RemovedEdgeAttrs()) > 0
}

// IsRelaxing reports whether the rule adds or merges anything.
// Relaxing rules propagate downward through a hierarchy.
func (r *Rule) IsRelaxing() bool {
	return len(r.AddedNodes()) > 0 ||
		len(r.AddedEdges()) > 0 ||
		len(r.MergedNodes()) > 0 ||
		len(r.AddedNodeAttrs()) > 0 ||
		len(r.AddedEdgeAttrs()) > 0
}

// IsIdentity reports whether the rule changes nothing at all.
func (r *Rule) IsIdentity() bool {
	return !r.IsRestrictive() && !r.IsRelaxing()
}

// pPreimages returns the sorted P preimages of an LHS node.
func (r *Rule) pPreimages(lhsNode string) []string {
	var out []string
	for p, l := range r.PLHS {
		if l == lhsNode {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}
