package category

import (
	"github.com/regraft/regraft/pkg/attrs"
	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/graph"
	"github.com/regraft/regraft/pkg/homomorphism"
)

// Factorization is the result of an epi-mono factorization: the image
// graph with the epimorphism onto it and the monomorphism embedding it.
type Factorization struct {
	Image *graph.Graph
	Epi   homomorphism.Mapping // f.Source -> Image
	Mono  homomorphism.Mapping // Image -> f.Target (an inclusion)
}

// ImageFactorization splits f: X→Y into X → X_img → Y, where X_img is the
// image of f inside Y: its nodes are the Y nodes hit by f (keeping Y's
// ids), carrying the union of their preimages' attributes; its edges are
// the images of X's edges. The epimorphism sends every X node to its
// image, the monomorphism is the inclusion into Y.
//
// Used to project a left-hand side into a typed descendant without
// assuming injectivity.
//
// Precondition: f must be total.
func ImageFactorization(f homomorphism.Hom) (Factorization, error) {
	for _, x := range f.Source.Nodes() {
		if _, ok := f.M[x]; !ok {
			return Factorization{}, rerr.New(rerr.ErrCodeNotTotal, "node %q is unmapped", x)
		}
	}

	img := graph.New()
	epi := homomorphism.Mapping{}
	mono := homomorphism.Mapping{}

	nodeAttrs := map[string]attrs.Dict{}
	for _, x := range f.Source.Nodes() {
		y := f.M[x]
		if !f.Target.HasNode(y) {
			return Factorization{}, rerr.New(rerr.ErrCodeInvalidImage, "node %q maps outside the codomain", x)
		}
		xa, err := f.Source.NodeAttrs(x)
		if err != nil {
			return Factorization{}, err
		}
		nodeAttrs[y] = nodeAttrs[y].Union(xa)
		epi[x] = y
	}
	for y, a := range nodeAttrs {
		if err := img.AddNode(y, a); err != nil {
			return Factorization{}, err
		}
		mono[y] = y
	}

	for _, e := range f.Source.Edges() {
		from, to := f.M[e.From], f.M[e.To]
		xa, err := f.Source.EdgeAttrs(e.From, e.To)
		if err != nil {
			return Factorization{}, err
		}
		if img.HasEdge(from, to) {
			if err := img.AddEdgeAttrs(from, to, xa); err != nil {
				return Factorization{}, err
			}
		} else if err := img.AddEdge(from, to, xa.Copy()); err != nil {
			return Factorization{}, err
		}
	}

	return Factorization{Image: img, Epi: epi, Mono: mono}, nil
}
