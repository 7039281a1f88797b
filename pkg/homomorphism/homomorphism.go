// Package homomorphism implements node mappings between typed graphs and
// their validity checks.
//
// A homomorphism sends every node of a source graph to a node of a target
// graph such that every source edge lands on an existing target edge and
// every attribute set maps into a superset at its image. Typing edges of a
// hierarchy, rule legs and rewrite instances are all homomorphisms; the
// Check function here is the single validity gate they all pass through.
package homomorphism

import (
	"slices"

	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/graph"
)

// Mapping is a node mapping between two graphs. It may be partial; Check
// decides whether partiality is acceptable via its total flag.
type Mapping map[string]string

// Copy returns an independent copy of the mapping.
func (m Mapping) Copy() Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Keys returns the mapping's domain in sorted order.
func (m Mapping) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Image returns the mapping's image as a set.
func (m Mapping) Image() map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for _, v := range m {
		out[v] = struct{}{}
	}
	return out
}

// Preimages returns, for every image node, the sorted set of nodes mapped
// onto it.
func (m Mapping) Preimages() map[string][]string {
	out := map[string][]string{}
	for k, v := range m {
		out[v] = append(out[v], k)
	}
	for v := range out {
		slices.Sort(out[v])
	}
	return out
}

// Equal reports whether both mappings have the same domain and images.
func (m Mapping) Equal(other Mapping) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// IsMonic reports whether the mapping is injective on its domain.
func (m Mapping) IsMonic() bool {
	seen := make(map[string]struct{}, len(m))
	for _, v := range m {
		if _, dup := seen[v]; dup {
			return false
		}
		seen[v] = struct{}{}
	}
	return true
}

// Identity builds the identity mapping over the graph's nodes.
func Identity(g *graph.Graph) Mapping {
	out := Mapping{}
	for _, id := range g.Nodes() {
		out[id] = id
	}
	return out
}

// Compose returns the composition b∘a: {k: b[a[k]]}.
// Keys whose intermediate image has no entry in b are dropped, which is
// the partial-mapping composition convention used throughout the engine.
func Compose(a, b Mapping) Mapping {
	out := make(Mapping, len(a))
	for k, mid := range a {
		if v, ok := b[mid]; ok {
			out[k] = v
		}
	}
	return out
}

// Check validates that mapping is a homomorphism from source to target.
//
// It fails with a HOMOMORPHISM_* error if:
//   - total is set and some source node is unmapped
//   - a mapped value is not a node of target
//   - a source edge's image (between mapped endpoints) is not a target edge
//   - a node's or edge's attribute set is not a subset of its image's
//
// Edge preservation and attribute checks are only applied where both
// endpoints are mapped, so partial mappings are checked on their domain.
func Check(source, target *graph.Graph, mapping Mapping, total bool) error {
	if total {
		for _, id := range source.Nodes() {
			if _, ok := mapping[id]; !ok {
				return rerr.New(rerr.ErrCodeNotTotal, "node %q is unmapped", id)
			}
		}
	}

	for _, id := range source.Nodes() {
		img, ok := mapping[id]
		if !ok {
			continue
		}
		if !target.HasNode(img) {
			return rerr.New(rerr.ErrCodeInvalidImage, "node %q maps to %q which is not a target node", id, img)
		}
		sa, err := source.NodeAttrs(id)
		if err != nil {
			return err
		}
		ta, err := target.NodeAttrs(img)
		if err != nil {
			return err
		}
		if !sa.SubsetOf(ta) {
			return rerr.New(rerr.ErrCodeAttrsNotSubset, "attributes of node %q are not a subset of %q's", id, img)
		}
	}

	for k := range mapping {
		if !source.HasNode(k) {
			return rerr.New(rerr.ErrCodeInvalidImage, "mapping key %q is not a source node", k)
		}
	}

	for _, e := range source.Edges() {
		fromImg, okFrom := mapping[e.From]
		toImg, okTo := mapping[e.To]
		if !okFrom || !okTo {
			continue
		}
		if !target.HasEdge(fromImg, toImg) {
			return rerr.New(rerr.ErrCodeEdgeNotPreserved,
				"edge %q->%q maps to missing edge %q->%q", e.From, e.To, fromImg, toImg)
		}
		sa, err := source.EdgeAttrs(e.From, e.To)
		if err != nil {
			return err
		}
		ta, err := target.EdgeAttrs(fromImg, toImg)
		if err != nil {
			return err
		}
		if !sa.SubsetOf(ta) {
			return rerr.New(rerr.ErrCodeAttrsNotSubset,
				"attributes of edge %q->%q are not a subset of its image's", e.From, e.To)
		}
	}

	return nil
}

// Hom bundles a mapping with its source and target graphs. The category
// operators use it to state and verify their domain/codomain preconditions.
type Hom struct {
	Source *graph.Graph
	Target *graph.Graph
	M      Mapping
}

// Check validates the bundled mapping, see the package-level Check.
func (h Hom) Check(total bool) error {
	return Check(h.Source, h.Target, h.M, total)
}
