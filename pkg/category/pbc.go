package category

import (
	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/graph"
	"github.com/regraft/regraft/pkg/homomorphism"
)

// PullbackComplement computes the final pullback complement of the
// composable pair h1: A→B, h2: B→D.
//
// In rewriting terms A is the preserved part P, B the pattern L and D the
// rewritten graph G, with h2 the match. The result C is "G minus what the
// rule deletes, with clones materialized":
//
//   - a D node outside the match is carried over unchanged
//   - a matched D node with no h1-preimage is deleted
//   - a matched D node with k preimages becomes k clones, each connected
//     to every neighbor of the original (restricted by which edges A keeps)
//   - attributes that B carries but the corresponding A node does not are
//     removed from the image
//
// Returns C together with A→C and C→D.
//
// Preconditions: h1.Target == h2.Source, h1 total, h2 total and monic —
// non-injective matches are rejected.
func PullbackComplement(h1, h2 homomorphism.Hom) (Span, error) {
	if h1.Target != h2.Source {
		return Span{}, rerr.New(rerr.ErrCodeDomainMismatch,
			"pullback complement requires h1's codomain to be h2's domain")
	}
	for _, a := range h1.Source.Nodes() {
		if _, ok := h1.M[a]; !ok {
			return Span{}, rerr.New(rerr.ErrCodeNotTotal, "node %q of the preserved graph is unmapped", a)
		}
	}
	for _, b := range h2.Source.Nodes() {
		if _, ok := h2.M[b]; !ok {
			return Span{}, rerr.New(rerr.ErrCodeNotTotal, "pattern node %q is unmapped by the match", b)
		}
	}
	if !h2.M.IsMonic() {
		return Span{}, rerr.New(rerr.ErrCodeNotMonic, "the match must be injective")
	}

	b, d := h2.Source, h2.Target
	matchedBy := map[string]string{} // d node -> b node
	for bNode, dNode := range h2.M {
		matchedBy[dNode] = bNode
	}
	preimages := h1.M.Preimages() // b node -> sorted a nodes

	c := graph.New()
	aToC := homomorphism.Mapping{}
	cToD := homomorphism.Mapping{}
	// copies[d] lists the C nodes descending from d, parallel to
	// copySource[d] listing the A node each copy follows ("" outside the
	// match).
	copies := map[string][]string{}
	copySource := map[string][]string{}

	for _, dNode := range d.Nodes() {
		da, err := d.NodeAttrs(dNode)
		if err != nil {
			return Span{}, err
		}

		bNode, matched := matchedBy[dNode]
		if !matched {
			if err := c.AddNode(dNode, da.Copy()); err != nil {
				return Span{}, err
			}
			cToD[dNode] = dNode
			copies[dNode] = []string{dNode}
			copySource[dNode] = []string{""}
			continue
		}

		ba, err := b.NodeAttrs(bNode)
		if err != nil {
			return Span{}, err
		}
		for i, aNode := range preimages[bNode] {
			aAttrs, err := h1.Source.NodeAttrs(aNode)
			if err != nil {
				return Span{}, err
			}
			id := dNode
			if i > 0 {
				id = c.GenerateNewID(dNode)
			}
			// Drop the attributes the rule removes: those present in B
			// but absent from the preserved node.
			if err := c.AddNode(id, da.Diff(ba.Diff(aAttrs))); err != nil {
				return Span{}, err
			}
			aToC[aNode] = id
			cToD[id] = dNode
			copies[dNode] = append(copies[dNode], id)
			copySource[dNode] = append(copySource[dNode], aNode)
		}
		// Zero preimages: the node is deleted, no copies recorded.
	}

	for _, e := range d.Edges() {
		ea, err := d.EdgeAttrs(e.From, e.To)
		if err != nil {
			return Span{}, err
		}
		bFrom, fromMatched := matchedBy[e.From]
		bTo, toMatched := matchedBy[e.To]

		for i, cFrom := range copies[e.From] {
			for j, cTo := range copies[e.To] {
				keep := true
				edgeAttrs := ea.Copy()
				if fromMatched && toMatched && b.HasEdge(bFrom, bTo) {
					aFrom, aTo := copySource[e.From][i], copySource[e.To][j]
					if !h1.Source.HasEdge(aFrom, aTo) {
						// The rule deletes this edge for this clone pair.
						keep = false
					} else {
						bEdge, err := b.EdgeAttrs(bFrom, bTo)
						if err != nil {
							return Span{}, err
						}
						aEdge, err := h1.Source.EdgeAttrs(aFrom, aTo)
						if err != nil {
							return Span{}, err
						}
						edgeAttrs = ea.Diff(bEdge.Diff(aEdge))
					}
				}
				if keep {
					if err := c.AddEdge(cFrom, cTo, edgeAttrs); err != nil {
						return Span{}, err
					}
				}
			}
		}
	}

	return Span{Apex: c, Left: aToC, Right: cToD}, nil
}
