package category

import (
	"slices"

	"github.com/regraft/regraft/pkg/attrs"
	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/graph"
	"github.com/regraft/regraft/pkg/homomorphism"
)

// Pushout computes the pushout of the span h1: B←A→C :h2.
//
// The apex D is the disjoint union of B and C glued along the images of A:
// for every a in A, h1(a) and h2(a) land in the same node of D. Because h1
// and h2 need not be injective, gluing is computed as equivalence classes;
// node and edge attributes at glued points are unioned, unglued elements
// are carried over unchanged.
//
// Precondition: h1.Source == h2.Source.
func Pushout(h1, h2 homomorphism.Hom) (Cospan, error) {
	if h1.Source != h2.Source {
		return Cospan{}, rerr.New(rerr.ErrCodeDomainMismatch, "pushout legs must share a domain")
	}

	uf := newUnionFind()
	for _, b := range h1.Target.Nodes() {
		uf.add(tagB(b))
	}
	for _, c := range h2.Target.Nodes() {
		uf.add(tagC(c))
	}
	for _, a := range h1.Source.Nodes() {
		ib, okB := h1.M[a]
		ic, okC := h2.M[a]
		if !okB || !okC {
			return Cospan{}, rerr.New(rerr.ErrCodeNotTotal, "pushout legs must be total, node %q unmapped", a)
		}
		uf.union(tagB(ib), tagC(ic))
	}

	return glue(h1.Target, h2.Target, uf)
}

// glue materializes the apex graph for the given equivalence over tagged
// B/C node ids, returning the two injection legs.
func glue(b, c *graph.Graph, uf *unionFind) (Cospan, error) {
	classes := uf.classes()

	d := graph.New()
	left := homomorphism.Mapping{}
	right := homomorphism.Mapping{}
	classNode := map[string]string{} // class root -> apex node id

	// Deterministic order: by smallest member.
	roots := make([]string, 0, len(classes))
	for root := range classes {
		roots = append(roots, root)
	}
	slices.SortFunc(roots, func(x, y string) int {
		mx, my := classes[x][0], classes[y][0]
		if mx < my {
			return -1
		}
		if mx > my {
			return 1
		}
		return 0
	})

	for _, root := range roots {
		members := classes[root]
		merged := attrs.Dict{}
		var bIDs, cIDs []string
		for _, m := range members {
			if id, fromB := untagB(m); fromB {
				a, err := b.NodeAttrs(id)
				if err != nil {
					return Cospan{}, err
				}
				merged = merged.Union(a)
				bIDs = append(bIDs, id)
			} else {
				id, _ := untagC(m)
				a, err := c.NodeAttrs(id)
				if err != nil {
					return Cospan{}, err
				}
				merged = merged.Union(a)
				cIDs = append(cIDs, id)
			}
		}

		id := d.GenerateNewID(classBase(bIDs, cIDs))
		if err := d.AddNode(id, merged); err != nil {
			return Cospan{}, err
		}
		classNode[root] = id
		for _, bid := range bIDs {
			left[bid] = id
		}
		for _, cid := range cIDs {
			right[cid] = id
		}
	}

	addEdges := func(g *graph.Graph, tag func(string) string) error {
		for _, e := range g.Edges() {
			from := classNode[uf.find(tag(e.From))]
			to := classNode[uf.find(tag(e.To))]
			a, err := g.EdgeAttrs(e.From, e.To)
			if err != nil {
				return err
			}
			if d.HasEdge(from, to) {
				if err := d.AddEdgeAttrs(from, to, a); err != nil {
					return err
				}
			} else if err := d.AddEdge(from, to, a.Copy()); err != nil {
				return err
			}
		}
		return nil
	}
	if err := addEdges(b, tagB); err != nil {
		return Cospan{}, err
	}
	if err := addEdges(c, tagC); err != nil {
		return Cospan{}, err
	}

	return Cospan{Apex: d, Left: left, Right: right}, nil
}

// classBase picks a readable apex id for an equivalence class: the first
// B-side member when one exists, else the first C-side member.
func classBase(bIDs, cIDs []string) string {
	if len(bIDs) > 0 {
		slices.Sort(bIDs)
		return bIDs[0]
	}
	slices.Sort(cIDs)
	return cIDs[0]
}

// PushoutFromRelation glues g1 and g2 along a binary relation over their
// nodes. The relation need not be a homomorphism in either direction —
// each pair (x, y) simply forces x and y into the same apex node, and a
// node related to several partners drags them all into one class (a
// merge). Used when propagating additions and merges to related, non-typed
// graphs.
//
// The relation maps g1 node ids to lists of g2 node ids; every referenced
// node must exist.
func PushoutFromRelation(g1, g2 *graph.Graph, relation map[string][]string) (Cospan, error) {
	uf := newUnionFind()
	for _, n := range g1.Nodes() {
		uf.add(tagB(n))
	}
	for _, n := range g2.Nodes() {
		uf.add(tagC(n))
	}
	for x, partners := range relation {
		if !g1.HasNode(x) {
			return Cospan{}, rerr.New(rerr.ErrCodeMissingNode, "relation references missing node %q", x)
		}
		for _, y := range partners {
			if !g2.HasNode(y) {
				return Cospan{}, rerr.New(rerr.ErrCodeMissingNode, "relation references missing node %q", y)
			}
			uf.union(tagB(x), tagC(y))
		}
	}
	return glue(g1, g2, uf)
}

// =============================================================================
// Tagged Union-Find
// =============================================================================

func tagB(id string) string { return "b:" + id }
func tagC(id string) string { return "c:" + id }

func untagB(tagged string) (string, bool) {
	if len(tagged) > 2 && tagged[:2] == "b:" {
		return tagged[2:], true
	}
	return "", false
}

func untagC(tagged string) (string, bool) {
	if len(tagged) > 2 && tagged[:2] == "c:" {
		return tagged[2:], true
	}
	return "", false
}

type unionFind struct {
	parent map[string]string
}

func newUnionFind() *unionFind {
	return &unionFind{parent: map[string]string{}}
}

func (u *unionFind) add(x string) {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
	}
}

func (u *unionFind) find(x string) string {
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[x] != root {
		u.parent[x], x = root, u.parent[x]
	}
	return root
}

func (u *unionFind) union(x, y string) {
	u.add(x)
	u.add(y)
	rx, ry := u.find(x), u.find(y)
	if rx != ry {
		u.parent[ry] = rx
	}
}

// classes returns root -> sorted members.
func (u *unionFind) classes() map[string][]string {
	out := map[string][]string{}
	for x := range u.parent {
		root := u.find(x)
		out[root] = append(out[root], x)
	}
	for root := range out {
		slices.Sort(out[root])
	}
	return out
}
