// Package match finds occurrences of a pattern graph inside a host graph.
//
// A match is an injective total homomorphism from the pattern into the
// host: node-distinct, edge-preserving (including direction), with the
// pattern's node and edge attribute sets contained in the host's.
// Matching is plain subgraph embedding, not induced-subgraph isomorphism:
// host edges between matched nodes that have no pattern counterpart are
// allowed.
//
// Subgraph isomorphism is NP-hard and the enumeration here is worst-case
// exponential. Patterns are rule left-hand sides, which are small in
// practice, so no polynomial bound is attempted; callers bound cost by
// keeping patterns small.
package match

import (
	"slices"

	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/graph"
	"github.com/regraft/regraft/pkg/homomorphism"
)

// TypingConstraint restricts matches using a shared typing graph: a host
// node may only play a pattern node whose declared type agrees with the
// host node's type. Nodes left untyped on either side are unconstrained.
type TypingConstraint struct {
	Pattern homomorphism.Mapping // pattern node -> type node, may be partial
	Graph   homomorphism.Mapping // host node -> type node, may be partial
}

// Find enumerates every match of pattern in g satisfying all typing
// constraints. The result order is deterministic: matches are produced by
// a fixed-order backtracking search over sorted candidate lists.
//
// An empty pattern has exactly one match, the empty mapping.
func Find(g, pattern *graph.Graph, constraints []TypingConstraint) ([]homomorphism.Mapping, error) {
	if g == nil || pattern == nil {
		return nil, rerr.New(rerr.ErrCodeInvalidInput, "graph and pattern must be non-nil")
	}

	patternNodes := searchOrder(pattern)
	candidates := make(map[string][]string, len(patternNodes))
	for _, p := range patternNodes {
		cands, err := candidateNodes(g, pattern, p, constraints)
		if err != nil {
			return nil, err
		}
		if len(cands) == 0 {
			return nil, nil
		}
		candidates[p] = cands
	}

	s := &searcher{
		g:          g,
		pattern:    pattern,
		order:      patternNodes,
		candidates: candidates,
		assignment: homomorphism.Mapping{},
		used:       map[string]struct{}{},
	}
	s.search(0)
	return s.found, nil
}

// searchOrder fixes the variable ordering for the backtracking search:
// most-constrained pattern nodes first (highest total degree), ties broken
// by id so the enumeration is deterministic.
func searchOrder(pattern *graph.Graph) []string {
	nodes := pattern.Nodes()
	degree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		degree[n] = len(pattern.Successors(n)) + len(pattern.Predecessors(n))
	}
	slices.SortFunc(nodes, func(a, b string) int {
		if degree[a] != degree[b] {
			return degree[b] - degree[a]
		}
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
		return 0
	})
	return nodes
}

// candidateNodes prunes the host nodes that could play pattern node p:
// attribute containment, sufficient degree, and typing agreement.
func candidateNodes(g, pattern *graph.Graph, p string, constraints []TypingConstraint) ([]string, error) {
	pa, err := pattern.NodeAttrs(p)
	if err != nil {
		return nil, err
	}
	pOut := len(pattern.Successors(p))
	pIn := len(pattern.Predecessors(p))

	var out []string
	for _, n := range g.Nodes() {
		na, err := g.NodeAttrs(n)
		if err != nil {
			return nil, err
		}
		if !pa.SubsetOf(na) {
			continue
		}
		if len(g.Successors(n)) < pOut || len(g.Predecessors(n)) < pIn {
			continue
		}
		if !typingCompatible(p, n, constraints) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func typingCompatible(p, n string, constraints []TypingConstraint) bool {
	for _, c := range constraints {
		pType, pOK := c.Pattern[p]
		nType, nOK := c.Graph[n]
		if pOK && nOK && pType != nType {
			return false
		}
	}
	return true
}

type searcher struct {
	g          *graph.Graph
	pattern    *graph.Graph
	order      []string
	candidates map[string][]string
	assignment homomorphism.Mapping
	used       map[string]struct{}
	found      []homomorphism.Mapping
}

func (s *searcher) search(depth int) {
	if depth == len(s.order) {
		s.found = append(s.found, s.assignment.Copy())
		return
	}
	p := s.order[depth]
	for _, n := range s.candidates[p] {
		if _, taken := s.used[n]; taken {
			continue
		}
		if !s.consistent(p, n) {
			continue
		}
		s.assignment[p] = n
		s.used[n] = struct{}{}
		s.search(depth + 1)
		delete(s.assignment, p)
		delete(s.used, n)
	}
}

// consistent checks the edges between p and the already assigned pattern
// nodes: every pattern edge must exist in the host with containing
// attributes.
func (s *searcher) consistent(p, n string) bool {
	for q, m := range s.assignment {
		if s.pattern.HasEdge(p, q) && !s.hostEdgeCovers(p, q, n, m) {
			return false
		}
		if s.pattern.HasEdge(q, p) && !s.hostEdgeCovers(q, p, m, n) {
			return false
		}
	}
	// Self-loop.
	if s.pattern.HasEdge(p, p) && !s.hostEdgeCovers(p, p, n, n) {
		return false
	}
	return true
}

func (s *searcher) hostEdgeCovers(pFrom, pTo, gFrom, gTo string) bool {
	if !s.g.HasEdge(gFrom, gTo) {
		return false
	}
	pa, err := s.pattern.EdgeAttrs(pFrom, pTo)
	if err != nil {
		return false
	}
	ga, err := s.g.EdgeAttrs(gFrom, gTo)
	if err != nil {
		return false
	}
	return pa.SubsetOf(ga)
}
