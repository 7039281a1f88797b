package category

import (
	"fmt"

	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/graph"
	"github.com/regraft/regraft/pkg/homomorphism"
)

// Span is the result of a pullback: an apex graph with its two projection
// legs.
type Span struct {
	Apex  *graph.Graph
	Left  homomorphism.Mapping // Apex -> h1.Source
	Right homomorphism.Mapping // Apex -> h2.Source
}

// Cospan is the result of a pushout: an apex graph with its two injection
// legs.
type Cospan struct {
	Apex  *graph.Graph
	Left  homomorphism.Mapping // h1.Target -> Apex
	Right homomorphism.Mapping // h2.Target -> Apex
}

// Pullback computes the pullback of the cospan h1: B→D ← C :h2.
//
// The apex A contains a node for every pair (b, c) with h1(b) == h2(c),
// carrying the intersection of b's and c's attributes. An edge exists in A
// between two pairs iff the corresponding edge exists in both B and C, its
// attributes again the intersection. Pair nodes are materialized under
// fresh IDs derived from their components.
//
// Precondition: h1.Target == h2.Target.
func Pullback(h1, h2 homomorphism.Hom) (Span, error) {
	if h1.Target != h2.Target {
		return Span{}, rerr.New(rerr.ErrCodeCodomainMismatch, "pullback legs must share a codomain")
	}

	a := graph.New()
	left := homomorphism.Mapping{}
	right := homomorphism.Mapping{}
	// pairID[b][c] = apex node id
	pairID := map[string]map[string]string{}

	for _, b := range h1.Source.Nodes() {
		db, ok := h1.M[b]
		if !ok {
			continue
		}
		for _, c := range h2.Source.Nodes() {
			if dc, ok := h2.M[c]; !ok || dc != db {
				continue
			}
			ba, err := h1.Source.NodeAttrs(b)
			if err != nil {
				return Span{}, err
			}
			ca, err := h2.Source.NodeAttrs(c)
			if err != nil {
				return Span{}, err
			}
			id := a.GenerateNewID(pairBase(b, c))
			if err := a.AddNode(id, ba.Intersect(ca)); err != nil {
				return Span{}, err
			}
			left[id] = b
			right[id] = c
			if pairID[b] == nil {
				pairID[b] = map[string]string{}
			}
			pairID[b][c] = id
		}
	}

	for _, id1 := range a.Nodes() {
		for _, id2 := range a.Nodes() {
			b1, b2 := left[id1], left[id2]
			c1, c2 := right[id1], right[id2]
			if !h1.Source.HasEdge(b1, b2) || !h2.Source.HasEdge(c1, c2) {
				continue
			}
			ba, err := h1.Source.EdgeAttrs(b1, b2)
			if err != nil {
				return Span{}, err
			}
			ca, err := h2.Source.EdgeAttrs(c1, c2)
			if err != nil {
				return Span{}, err
			}
			if err := a.AddEdge(id1, id2, ba.Intersect(ca)); err != nil {
				return Span{}, err
			}
		}
	}

	return Span{Apex: a, Left: left, Right: right}, nil
}

// pairBase derives a readable apex node id from pair components.
// When both components coincide the single name is kept, which makes the
// common case of lifting along near-identity maps produce stable ids.
func pairBase(b, c string) string {
	if b == c {
		return b
	}
	return fmt.Sprintf("%s_%s", b, c)
}
