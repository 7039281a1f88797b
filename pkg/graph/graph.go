package graph

import (
	"fmt"
	"slices"

	"github.com/regraft/regraft/pkg/attrs"
	rerr "github.com/regraft/regraft/pkg/errors"
)

// Edge identifies a directed edge by its endpoints.
type Edge struct {
	From string
	To   string
}

// Store captures the primitive mutation contract required by the pattern
// matcher and the rewriting engine. Any backend implementing these
// operations (plus enumeration) can be rewritten against; *Graph is the
// in-memory implementation.
type Store interface {
	Nodes() []string
	Edges() []Edge
	HasNode(id string) bool
	HasEdge(from, to string) bool
	NodeAttrs(id string) (attrs.Dict, error)
	EdgeAttrs(from, to string) (attrs.Dict, error)
	Successors(id string) []string
	Predecessors(id string) []string

	AddNode(id string, a attrs.Dict) error
	RemoveNode(id string) error
	AddEdge(from, to string, a attrs.Dict) error
	RemoveEdge(from, to string) error
	AddNodeAttrs(id string, a attrs.Dict) error
	RemoveNodeAttrs(id string, a attrs.Dict) error
	UpdateNodeAttrs(id string, a attrs.Dict) error
	AddEdgeAttrs(from, to string, a attrs.Dict) error
	RemoveEdgeAttrs(from, to string, a attrs.Dict) error
	UpdateEdgeAttrs(from, to string, a attrs.Dict) error
	CloneNode(id, newID string) (string, error)
	MergeNodes(ids []string, newID string) (string, error)
}

// Graph is a directed simple graph with set-valued node and edge
// attributes. The zero value is not usable — use New.
//
// Graph is not safe for concurrent use without external synchronization;
// the engine is single-threaded by design.
type Graph struct {
	nodes map[string]attrs.Dict
	succ  map[string]map[string]attrs.Dict // from -> to -> edge attrs
	pred  map[string]map[string]struct{}   // to -> from
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]attrs.Dict),
		succ:  make(map[string]map[string]attrs.Dict),
		pred:  make(map[string]map[string]struct{}),
	}
}

// Copy returns a deep copy of the graph.
// Attribute dictionaries are copied, never aliased.
func (g *Graph) Copy() *Graph {
	out := New()
	for id, a := range g.nodes {
		out.nodes[id] = a.Copy()
		out.succ[id] = make(map[string]attrs.Dict, len(g.succ[id]))
		out.pred[id] = make(map[string]struct{}, len(g.pred[id]))
	}
	for from, targets := range g.succ {
		for to, a := range targets {
			out.succ[from][to] = a.Copy()
			out.pred[to][from] = struct{}{}
		}
	}
	return out
}

// =============================================================================
// Accessors
// =============================================================================

// Nodes returns all node IDs in sorted order.
// Sorting keeps downstream algorithms (matching, serialization) deterministic.
func (g *Graph) Nodes() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Edges returns all edges, sorted by (From, To).
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0)
	for from, targets := range g.succ {
		for to := range targets {
			edges = append(edges, Edge{From: from, To: to})
		}
	}
	slices.SortFunc(edges, func(a, b Edge) int {
		if a.From != b.From {
			if a.From < b.From {
				return -1
			}
			return 1
		}
		if a.To < b.To {
			return -1
		}
		if a.To > b.To {
			return 1
		}
		return 0
	})
	return edges
}

// HasNode reports whether the node exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// HasEdge reports whether the directed edge from→to exists.
func (g *Graph) HasEdge(from, to string) bool {
	_, ok := g.succ[from][to]
	return ok
}

// Order returns the number of nodes.
func (g *Graph) Order() int { return len(g.nodes) }

// Size returns the number of edges.
func (g *Graph) Size() int {
	n := 0
	for _, targets := range g.succ {
		n += len(targets)
	}
	return n
}

// NodeAttrs returns the attribute dictionary of a node.
// The returned dictionary is the live one; callers that need to hold on to
// it should Copy it.
func (g *Graph) NodeAttrs(id string) (attrs.Dict, error) {
	a, ok := g.nodes[id]
	if !ok {
		return nil, rerr.New(rerr.ErrCodeMissingNode, "node %q does not exist", id)
	}
	return a, nil
}

// EdgeAttrs returns the attribute dictionary of an edge.
func (g *Graph) EdgeAttrs(from, to string) (attrs.Dict, error) {
	a, ok := g.succ[from][to]
	if !ok {
		return nil, rerr.New(rerr.ErrCodeMissingEdge, "edge %q->%q does not exist", from, to)
	}
	return a, nil
}

// Successors returns the sorted targets of edges leaving the node.
func (g *Graph) Successors(id string) []string {
	out := make([]string, 0, len(g.succ[id]))
	for to := range g.succ[id] {
		out = append(out, to)
	}
	slices.Sort(out)
	return out
}

// Predecessors returns the sorted sources of edges entering the node.
func (g *Graph) Predecessors(id string) []string {
	out := make([]string, 0, len(g.pred[id]))
	for from := range g.pred[id] {
		out = append(out, from)
	}
	slices.Sort(out)
	return out
}

// =============================================================================
// Primitive Mutations
// =============================================================================

// AddNode adds a node with the given attributes.
// A nil attribute dictionary is treated as empty. The dictionary is copied.
// Returns a GRAPH_DUPLICATE_NODE error if the node already exists.
func (g *Graph) AddNode(id string, a attrs.Dict) error {
	if err := rerr.ValidateID(id); err != nil {
		return err
	}
	if g.HasNode(id) {
		return rerr.New(rerr.ErrCodeDuplicateNode, "node %q already exists", id)
	}
	g.nodes[id] = a.Copy()
	g.succ[id] = make(map[string]attrs.Dict)
	g.pred[id] = make(map[string]struct{})
	return nil
}

// RemoveNode removes a node and every incident edge.
func (g *Graph) RemoveNode(id string) error {
	if !g.HasNode(id) {
		return rerr.New(rerr.ErrCodeMissingNode, "node %q does not exist", id)
	}
	for to := range g.succ[id] {
		delete(g.pred[to], id)
	}
	for from := range g.pred[id] {
		delete(g.succ[from], id)
	}
	delete(g.nodes, id)
	delete(g.succ, id)
	delete(g.pred, id)
	return nil
}

// AddEdge adds a directed edge with the given attributes.
// Both endpoints must exist and the edge must not; parallel edges are not
// representable.
func (g *Graph) AddEdge(from, to string, a attrs.Dict) error {
	if !g.HasNode(from) {
		return rerr.New(rerr.ErrCodeMissingNode, "source node %q does not exist", from)
	}
	if !g.HasNode(to) {
		return rerr.New(rerr.ErrCodeMissingNode, "target node %q does not exist", to)
	}
	if g.HasEdge(from, to) {
		return rerr.New(rerr.ErrCodeDuplicateEdge, "edge %q->%q already exists", from, to)
	}
	g.succ[from][to] = a.Copy()
	g.pred[to][from] = struct{}{}
	return nil
}

// RemoveEdge removes the directed edge from→to.
func (g *Graph) RemoveEdge(from, to string) error {
	if !g.HasEdge(from, to) {
		return rerr.New(rerr.ErrCodeMissingEdge, "edge %q->%q does not exist", from, to)
	}
	delete(g.succ[from], to)
	delete(g.pred[to], from)
	return nil
}

// AddNodeAttrs unions the given attributes into the node's dictionary.
func (g *Graph) AddNodeAttrs(id string, a attrs.Dict) error {
	current, err := g.NodeAttrs(id)
	if err != nil {
		return err
	}
	g.nodes[id] = current.Union(a)
	return nil
}

// RemoveNodeAttrs removes the given attribute values from the node.
func (g *Graph) RemoveNodeAttrs(id string, a attrs.Dict) error {
	current, err := g.NodeAttrs(id)
	if err != nil {
		return err
	}
	g.nodes[id] = current.Diff(a)
	return nil
}

// UpdateNodeAttrs replaces the node's attribute dictionary.
func (g *Graph) UpdateNodeAttrs(id string, a attrs.Dict) error {
	if !g.HasNode(id) {
		return rerr.New(rerr.ErrCodeMissingNode, "node %q does not exist", id)
	}
	g.nodes[id] = a.Copy()
	return nil
}

// AddEdgeAttrs unions the given attributes into the edge's dictionary.
func (g *Graph) AddEdgeAttrs(from, to string, a attrs.Dict) error {
	current, err := g.EdgeAttrs(from, to)
	if err != nil {
		return err
	}
	g.succ[from][to] = current.Union(a)
	return nil
}

// RemoveEdgeAttrs removes the given attribute values from the edge.
func (g *Graph) RemoveEdgeAttrs(from, to string, a attrs.Dict) error {
	current, err := g.EdgeAttrs(from, to)
	if err != nil {
		return err
	}
	g.succ[from][to] = current.Diff(a)
	return nil
}

// UpdateEdgeAttrs replaces the edge's attribute dictionary.
func (g *Graph) UpdateEdgeAttrs(from, to string, a attrs.Dict) error {
	if !g.HasEdge(from, to) {
		return rerr.New(rerr.ErrCodeMissingEdge, "edge %q->%q does not exist", from, to)
	}
	g.succ[from][to] = a.Copy()
	return nil
}

// CloneNode clones a node under newID. An empty newID asks the graph to
// generate a fresh one derived from the original. The clone receives a
// deep copy of the node's attributes and of every incident edge in both
// directions, each edge with its own independent attribute copy.
// Returns the clone's ID.
func (g *Graph) CloneNode(id, newID string) (string, error) {
	original, err := g.NodeAttrs(id)
	if err != nil {
		return "", err
	}
	if newID == "" {
		newID = g.GenerateNewID(id)
	} else if g.HasNode(newID) {
		return "", rerr.New(rerr.ErrCodeDuplicateNode, "node %q already exists", newID)
	}

	if err := g.AddNode(newID, original.Copy()); err != nil {
		return "", err
	}
	for to, a := range g.succ[id] {
		if to == id {
			// Self-loop: the clone gets its own loop.
			g.succ[newID][newID] = a.Copy()
			g.pred[newID][newID] = struct{}{}
			continue
		}
		g.succ[newID][to] = a.Copy()
		g.pred[to][newID] = struct{}{}
	}
	for from := range g.pred[id] {
		if from == id {
			continue
		}
		g.succ[from][newID] = g.succ[from][id].Copy()
		g.pred[newID][from] = struct{}{}
	}
	return newID, nil
}

// MergeNodes merges the listed nodes into a single node. An empty newID
// asks the graph to generate one from the inputs. The merged node's
// attributes are the union of the inputs'; incident edges are redirected,
// with attribute sets unioned whenever several original edges collapse
// onto the same merged edge. Edges between merged nodes become a self-loop.
// Returns the merged node's ID.
func (g *Graph) MergeNodes(ids []string, newID string) (string, error) {
	if len(ids) == 0 {
		return "", rerr.New(rerr.ErrCodeInvalidInput, "no nodes to merge")
	}
	merged := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if !g.HasNode(id) {
			return "", rerr.New(rerr.ErrCodeMissingNode, "node %q does not exist", id)
		}
		if _, dup := merged[id]; dup {
			return "", rerr.New(rerr.ErrCodeInvalidInput, "node %q listed twice", id)
		}
		merged[id] = struct{}{}
	}
	if newID == "" {
		newID = g.GenerateNewID(joinIDs(ids))
	} else if g.HasNode(newID) {
		if _, isMergee := merged[newID]; !isMergee {
			return "", rerr.New(rerr.ErrCodeDuplicateNode, "node %q already exists", newID)
		}
	}

	nodeAttrs := attrs.Dict{}
	outgoing := map[string]attrs.Dict{} // target -> unioned attrs
	incoming := map[string]attrs.Dict{} // source -> unioned attrs
	loop := attrs.Dict{}
	hasLoop := false

	for _, id := range ids {
		nodeAttrs = nodeAttrs.Union(g.nodes[id])
		for to, a := range g.succ[id] {
			if _, internal := merged[to]; internal {
				loop = loop.Union(a)
				hasLoop = true
				continue
			}
			if existing, ok := outgoing[to]; ok {
				outgoing[to] = existing.Union(a)
			} else {
				outgoing[to] = a.Copy()
			}
		}
		for from := range g.pred[id] {
			if _, internal := merged[from]; internal {
				continue // counted on the outgoing side
			}
			a := g.succ[from][id]
			if existing, ok := incoming[from]; ok {
				incoming[from] = existing.Union(a)
			} else {
				incoming[from] = a.Copy()
			}
		}
	}

	for _, id := range ids {
		if err := g.RemoveNode(id); err != nil {
			return "", err
		}
	}
	if err := g.AddNode(newID, nodeAttrs); err != nil {
		return "", err
	}
	for to, a := range outgoing {
		g.succ[newID][to] = a
		g.pred[to][newID] = struct{}{}
	}
	for from, a := range incoming {
		g.succ[from][newID] = a
		g.pred[newID][from] = struct{}{}
	}
	if hasLoop {
		g.succ[newID][newID] = loop
		g.pred[newID][newID] = struct{}{}
	}
	return newID, nil
}

// GenerateNewID derives a node ID from base that does not collide with any
// existing node. The base itself is returned when free.
func (g *Graph) GenerateNewID(base string) string {
	if base == "" {
		base = "node"
	}
	if !g.HasNode(base) {
		return base
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s%d", base, i)
		if !g.HasNode(candidate) {
			return candidate
		}
	}
}

func joinIDs(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += "_"
		}
		out += id
	}
	return out
}

// Equal reports whether both graphs have the same nodes, edges and
// attribute sets. IDs must match exactly; use homomorphism search for
// isomorphism up to renaming.
func (g *Graph) Equal(other *Graph) bool {
	if g.Order() != other.Order() || g.Size() != other.Size() {
		return false
	}
	for id, a := range g.nodes {
		oa, ok := other.nodes[id]
		if !ok || !a.Equal(oa) {
			return false
		}
	}
	for from, targets := range g.succ {
		for to, a := range targets {
			oa, ok := other.succ[from][to]
			if !ok || !a.Equal(oa) {
				return false
			}
		}
	}
	return true
}

// Ensure Graph implements the primitive contract.
var _ Store = (*Graph)(nil)
