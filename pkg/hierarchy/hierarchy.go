package hierarchy

import (
	"slices"

	"github.com/regraft/regraft/pkg/attrs"
	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/graph"
	"github.com/regraft/regraft/pkg/homomorphism"
	"github.com/regraft/regraft/pkg/rule"
)

// =============================================================================
// Hierarchy Structure
// =============================================================================

// Typing is a homomorphism edge between two hierarchy graphs. When Total
// is set, every node of the source graph must be mapped.
type Typing struct {
	M     homomorphism.Mapping
	Total bool
	Attrs attrs.Dict
}

// Copy returns a deep copy of the typing.
func (t *Typing) Copy() *Typing {
	return &Typing{M: t.M.Copy(), Total: t.Total, Attrs: t.Attrs.Copy()}
}

// RuleTyping types a rule node into a graph node: separate mappings for
// the rule's left- and right-hand sides, with independent totality flags.
type RuleTyping struct {
	LHS      homomorphism.Mapping
	RHS      homomorphism.Mapping
	LHSTotal bool
	RHSTotal bool
	Attrs    attrs.Dict
}

// Copy returns a deep copy of the rule typing.
func (t *RuleTyping) Copy() *RuleTyping {
	return &RuleTyping{
		LHS:      t.LHS.Copy(),
		RHS:      t.RHS.Copy(),
		LHSTotal: t.LHSTotal,
		RHSTotal: t.RHSTotal,
		Attrs:    t.Attrs.Copy(),
	}
}

// Relation symmetrically pairs nodes of two graphs. Rel maps left-graph
// node ids to the set of right-graph node ids they are paired with.
type Relation struct {
	Rel   map[string]map[string]struct{}
	Attrs attrs.Dict
}

// Copy returns a deep copy of the relation.
func (r *Relation) Copy() *Relation {
	rel := make(map[string]map[string]struct{}, len(r.Rel))
	for l, partners := range r.Rel {
		ps := make(map[string]struct{}, len(partners))
		for p := range partners {
			ps[p] = struct{}{}
		}
		rel[l] = ps
	}
	return &Relation{Rel: rel, Attrs: r.Attrs.Copy()}
}

type graphNode struct {
	graph *graph.Graph
	attrs attrs.Dict
}

type ruleNode struct {
	rule  *rule.Rule
	attrs attrs.Dict
}

// Hierarchy is a DAG of typed graphs and rules. The zero value is not
// usable; construct with New.
type Hierarchy struct {
	graphs      map[string]*graphNode
	rules       map[string]*ruleNode
	typings     map[string]map[string]*Typing     // graph -> graph
	ruleTypings map[string]map[string]*RuleTyping // rule -> graph
	relations   map[string]map[string]*Relation   // stored under both orders
}

// New creates an empty hierarchy.
func New() *Hierarchy {
	return &Hierarchy{
		graphs:      map[string]*graphNode{},
		rules:       map[string]*ruleNode{},
		typings:     map[string]map[string]*Typing{},
		ruleTypings: map[string]map[string]*RuleTyping{},
		relations:   map[string]map[string]*Relation{},
	}
}

// Copy returns a deep copy of the hierarchy. Used by Rewrite to implement
// copy-on-write semantics.
func (h *Hierarchy) Copy() *Hierarchy {
	out := New()
	for id, gn := range h.graphs {
		out.graphs[id] = &graphNode{graph: gn.graph.Copy(), attrs: gn.attrs.Copy()}
	}
	for id, rn := range h.rules {
		out.rules[id] = &ruleNode{rule: rn.rule.Copy(), attrs: rn.attrs.Copy()}
	}
	for from, m := range h.typings {
		out.typings[from] = map[string]*Typing{}
		for to, t := range m {
			out.typings[from][to] = t.Copy()
		}
	}
	for from, m := range h.ruleTypings {
		out.ruleTypings[from] = map[string]*RuleTyping{}
		for to, t := range m {
			out.ruleTypings[from][to] = t.Copy()
		}
	}
	for a, m := range h.relations {
		for b, r := range m {
			if a < b {
				out.setRelation(a, b, r.Copy())
			}
		}
	}
	return out
}

// =============================================================================
// Node Operations
// =============================================================================

// AddGraph adds a graph under the given id. The graph is deep-copied.
func (h *Hierarchy) AddGraph(id string, g *graph.Graph, a attrs.Dict) error {
	if err := rerr.ValidateID(id); err != nil {
		return err
	}
	if h.hasID(id) {
		return rerr.New(rerr.ErrCodeDuplicateID, "hierarchy node %q already exists", id)
	}
	if g == nil {
		return rerr.New(rerr.ErrCodeInvalidInput, "graph must be non-nil")
	}
	h.graphs[id] = &graphNode{graph: g.Copy(), attrs: a.Copy()}
	return nil
}

// AddRule adds a rule under the given id. The rule is deep-copied.
func (h *Hierarchy) AddRule(id string, r *rule.Rule, a attrs.Dict) error {
	if err := rerr.ValidateID(id); err != nil {
		return err
	}
	if h.hasID(id) {
		return rerr.New(rerr.ErrCodeDuplicateID, "hierarchy node %q already exists", id)
	}
	if r == nil {
		return rerr.New(rerr.ErrCodeInvalidInput, "rule must be non-nil")
	}
	h.rules[id] = &ruleNode{rule: r.Copy(), attrs: a.Copy()}
	return nil
}

// Graph returns the graph stored under id. The returned graph is the
// hierarchy's own copy; callers must not mutate it.
func (h *Hierarchy) Graph(id string) (*graph.Graph, error) {
	gn, ok := h.graphs[id]
	if !ok {
		return nil, rerr.New(rerr.ErrCodeUnknownID, "graph %q does not exist", id)
	}
	return gn.graph, nil
}

// Rule returns the rule stored under id.
func (h *Hierarchy) Rule(id string) (*rule.Rule, error) {
	rn, ok := h.rules[id]
	if !ok {
		return nil, rerr.New(rerr.ErrCodeUnknownID, "rule %q does not exist", id)
	}
	return rn.rule, nil
}

// GraphAttrs returns the attributes attached to a graph node.
func (h *Hierarchy) GraphAttrs(id string) (attrs.Dict, error) {
	gn, ok := h.graphs[id]
	if !ok {
		return nil, rerr.New(rerr.ErrCodeUnknownID, "graph %q does not exist", id)
	}
	return gn.attrs, nil
}

// Graphs returns the ids of all graph nodes, sorted.
func (h *Hierarchy) Graphs() []string {
	out := make([]string, 0, len(h.graphs))
	for id := range h.graphs {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Rules returns the ids of all rule nodes, sorted.
func (h *Hierarchy) Rules() []string {
	out := make([]string, 0, len(h.rules))
	for id := range h.rules {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Edge identifies a typing or relation edge by its endpoints.
type Edge struct {
	From string
	To   string
}

// Typings returns all graph typing edges, sorted by endpoints.
func (h *Hierarchy) Typings() []Edge {
	var out []Edge
	for from, m := range h.typings {
		for to := range m {
			out = append(out, Edge{From: from, To: to})
		}
	}
	sortEdges(out)
	return out
}

// RuleTypings returns all rule typing edges, sorted by endpoints.
func (h *Hierarchy) RuleTypings() []Edge {
	var out []Edge
	for from, m := range h.ruleTypings {
		for to := range m {
			out = append(out, Edge{From: from, To: to})
		}
	}
	sortEdges(out)
	return out
}

// Relations returns all relation edges, each reported once with its
// endpoints in sorted order.
func (h *Hierarchy) Relations() []Edge {
	var out []Edge
	for a, m := range h.relations {
		for b := range m {
			if a < b {
				out = append(out, Edge{From: a, To: b})
			}
		}
	}
	sortEdges(out)
	return out
}

func sortEdges(edges []Edge) {
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
}

// =============================================================================
// Edge Operations
// =============================================================================

// AddTyping adds a typing edge between two graphs. The mapping must be a
// valid homomorphism honoring the totality flag, the edge must not create
// a cycle, and every pair of typing paths sharing endpoints must still
// compose to the same mapping afterwards. On any violation the hierarchy
// is left unchanged.
func (h *Hierarchy) AddTyping(from, to string, m homomorphism.Mapping, total bool, a attrs.Dict) error {
	src, ok := h.graphs[from]
	if !ok {
		return rerr.New(rerr.ErrCodeUnknownID, "graph %q does not exist", from)
	}
	dst, ok := h.graphs[to]
	if !ok {
		return rerr.New(rerr.ErrCodeUnknownID, "graph %q does not exist", to)
	}
	if from == to {
		return rerr.New(rerr.ErrCodeCycle, "typing %q->%q is a self-loop", from, to)
	}
	if _, exists := h.typings[from][to]; exists {
		return rerr.New(rerr.ErrCodeDuplicateID, "typing %q->%q already exists", from, to)
	}
	if h.graphReachable(to, from) {
		return rerr.New(rerr.ErrCodeCycle, "typing %q->%q would create a cycle", from, to)
	}
	if err := homomorphism.Check(src.graph, dst.graph, m, total); err != nil {
		return rerr.Wrap(rerr.ErrCodeInvalidTyping, err, "typing %q->%q is not a valid homomorphism", from, to)
	}

	t := &Typing{M: m.Copy(), Total: total, Attrs: a.Copy()}
	h.setTyping(from, to, t)
	if err := h.checkCommutation(from, to); err != nil {
		h.unsetTyping(from, to)
		return err
	}
	// The new edge also creates new composition paths for rules typed
	// into any graph that reaches it.
	for ruleID := range h.ruleTypings {
		if err := h.checkRuleCommutation(ruleID); err != nil {
			h.unsetTyping(from, to)
			return err
		}
	}
	return nil
}

// AddRuleTyping types a rule into a graph via separate LHS and RHS
// mappings. A nil rhsM is completed from lhsM through the rule's span
// where unambiguous. The two mappings must agree through the rule's
// preserved part, and the new typing must compose consistently with the
// rule's other typings along the hierarchy's typing paths.
func (h *Hierarchy) AddRuleTyping(ruleID, graphID string, lhsM, rhsM homomorphism.Mapping, lhsTotal, rhsTotal bool, a attrs.Dict) error {
	rn, ok := h.rules[ruleID]
	if !ok {
		return rerr.New(rerr.ErrCodeUnknownID, "rule %q does not exist", ruleID)
	}
	gn, ok := h.graphs[graphID]
	if !ok {
		return rerr.New(rerr.ErrCodeUnknownID, "graph %q does not exist", graphID)
	}
	if _, exists := h.ruleTypings[ruleID][graphID]; exists {
		return rerr.New(rerr.ErrCodeDuplicateID, "rule typing %q->%q already exists", ruleID, graphID)
	}

	r := rn.rule
	if rhsM == nil {
		rhsM = homomorphism.Mapping{}
		for _, p := range r.P.Nodes() {
			if img, ok := lhsM[r.PLHS[p]]; ok {
				rhsM[r.PRHS[p]] = img
			}
		}
	}
	if err := homomorphism.Check(r.LHS, gn.graph, lhsM, lhsTotal); err != nil {
		return rerr.Wrap(rerr.ErrCodeInvalidTyping, err, "lhs typing %q->%q invalid", ruleID, graphID)
	}
	if err := homomorphism.Check(r.RHS, gn.graph, rhsM, rhsTotal); err != nil {
		return rerr.Wrap(rerr.ErrCodeInvalidTyping, err, "rhs typing %q->%q invalid", ruleID, graphID)
	}
	// Both legs must agree on the preserved part.
	for _, p := range r.P.Nodes() {
		li, lOK := lhsM[r.PLHS[p]]
		ri, rOK := rhsM[r.PRHS[p]]
		if lOK && rOK && li != ri {
			return rerr.New(rerr.ErrCodeInvalidTyping,
				"rule typing %q->%q disagrees through preserved node %q", ruleID, graphID, p)
		}
	}

	if h.ruleTypings[ruleID] == nil {
		h.ruleTypings[ruleID] = map[string]*RuleTyping{}
	}
	h.ruleTypings[ruleID][graphID] = &RuleTyping{
		LHS:      lhsM.Copy(),
		RHS:      rhsM.Copy(),
		LHSTotal: lhsTotal,
		RHSTotal: rhsTotal,
		Attrs:    a.Copy(),
	}
	if err := h.checkRuleCommutation(ruleID); err != nil {
		delete(h.ruleTypings[ruleID], graphID)
		if len(h.ruleTypings[ruleID]) == 0 {
			delete(h.ruleTypings, ruleID)
		}
		return err
	}
	return nil
}

// AddRelation symmetrically relates nodes of two graphs. rel maps
// left-graph node ids to lists of right-graph node ids; every referenced
// node must exist.
func (h *Hierarchy) AddRelation(left, right string, rel map[string][]string, a attrs.Dict) error {
	lg, ok := h.graphs[left]
	if !ok {
		return rerr.New(rerr.ErrCodeUnknownID, "graph %q does not exist", left)
	}
	rg, ok := h.graphs[right]
	if !ok {
		return rerr.New(rerr.ErrCodeUnknownID, "graph %q does not exist", right)
	}
	if left == right {
		return rerr.New(rerr.ErrCodeInvalidInput, "cannot relate %q to itself", left)
	}
	if _, exists := h.relations[left][right]; exists {
		return rerr.New(rerr.ErrCodeDuplicateRelation, "relation %q--%q already exists", left, right)
	}
	stored := map[string]map[string]struct{}{}
	for l, partners := range rel {
		if !lg.graph.HasNode(l) {
			return rerr.New(rerr.ErrCodeInvalidInput, "node %q does not exist in %q", l, left)
		}
		for _, p := range partners {
			if !rg.graph.HasNode(p) {
				return rerr.New(rerr.ErrCodeInvalidInput, "node %q does not exist in %q", p, right)
			}
			if stored[l] == nil {
				stored[l] = map[string]struct{}{}
			}
			stored[l][p] = struct{}{}
		}
	}
	h.setRelation(left, right, &Relation{Rel: stored, Attrs: a.Copy()})
	return nil
}

// RelationPairs returns the pairs of a relation oriented from the given
// left graph: a map from left-graph nodes to sorted right-graph partners.
func (h *Hierarchy) RelationPairs(left, right string) (map[string][]string, error) {
	r, ok := h.relations[left][right]
	if !ok {
		return nil, rerr.New(rerr.ErrCodeUnknownRelation, "relation %q--%q does not exist", left, right)
	}
	out := map[string][]string{}
	if left < right {
		for l, partners := range r.Rel {
			for p := range partners {
				out[l] = append(out[l], p)
			}
		}
	} else {
		for l, partners := range r.Rel {
			for p := range partners {
				out[p] = append(out[p], l)
			}
		}
	}
	for k := range out {
		slices.Sort(out[k])
	}
	return out, nil
}

// RemoveRelation removes the relation between two graphs.
func (h *Hierarchy) RemoveRelation(left, right string) error {
	if _, ok := h.relations[left][right]; !ok {
		return rerr.New(rerr.ErrCodeUnknownRelation, "relation %q--%q does not exist", left, right)
	}
	delete(h.relations[left], right)
	delete(h.relations[right], left)
	return nil
}

// RemoveGraph removes a graph node and every edge touching it. With
// reconnect set, typings through the removed node are preserved by
// composition: for every predecessor p and successor s, the composed
// mapping p->id->s is installed as a direct typing unless one exists.
func (h *Hierarchy) RemoveGraph(id string, reconnect bool) error {
	if _, ok := h.graphs[id]; !ok {
		return rerr.New(rerr.ErrCodeUnknownID, "graph %q does not exist", id)
	}
	if reconnect {
		through := h.typings[id]
		for _, pred := range h.graphPredecessors(id) {
			in := h.typings[pred][id]
			for succ, out := range through {
				if _, exists := h.typings[pred][succ]; exists {
					continue
				}
				h.setTyping(pred, succ, &Typing{
					M:     homomorphism.Compose(in.M, out.M),
					Total: in.Total && out.Total,
					Attrs: attrs.Dict{},
				})
			}
		}
		for ruleID, targets := range h.ruleTypings {
			in, ok := targets[id]
			if !ok {
				continue
			}
			for succ, out := range through {
				if _, exists := h.ruleTypings[ruleID][succ]; exists {
					continue
				}
				h.ruleTypings[ruleID][succ] = &RuleTyping{
					LHS:      homomorphism.Compose(in.LHS, out.M),
					RHS:      homomorphism.Compose(in.RHS, out.M),
					LHSTotal: in.LHSTotal && out.Total,
					RHSTotal: in.RHSTotal && out.Total,
					Attrs:    attrs.Dict{},
				}
			}
		}
	}

	delete(h.graphs, id)
	delete(h.typings, id)
	for _, m := range h.typings {
		delete(m, id)
	}
	for _, m := range h.ruleTypings {
		delete(m, id)
	}
	for other := range h.relations[id] {
		delete(h.relations[other], id)
	}
	delete(h.relations, id)
	return nil
}

// RemoveRule removes a rule node and its typings.
func (h *Hierarchy) RemoveRule(id string) error {
	if _, ok := h.rules[id]; !ok {
		return rerr.New(rerr.ErrCodeUnknownID, "rule %q does not exist", id)
	}
	delete(h.rules, id)
	delete(h.ruleTypings, id)
	return nil
}

// GetTyping returns the typing edge between two graphs.
func (h *Hierarchy) GetTyping(from, to string) (*Typing, error) {
	t, ok := h.typings[from][to]
	if !ok {
		return nil, rerr.New(rerr.ErrCodeUnknownID, "typing %q->%q does not exist", from, to)
	}
	return t, nil
}

// GetRuleTyping returns the rule typing edge between a rule and a graph.
func (h *Hierarchy) GetRuleTyping(ruleID, graphID string) (*RuleTyping, error) {
	t, ok := h.ruleTypings[ruleID][graphID]
	if !ok {
		return nil, rerr.New(rerr.ErrCodeUnknownID, "rule typing %q->%q does not exist", ruleID, graphID)
	}
	return t, nil
}

// NodeType returns, for every direct typing of the given graph, the type
// of the given node in the target graph. Targets where the node is
// untyped are omitted.
func (h *Hierarchy) NodeType(graphID, nodeID string) (map[string]string, error) {
	gn, ok := h.graphs[graphID]
	if !ok {
		return nil, rerr.New(rerr.ErrCodeUnknownID, "graph %q does not exist", graphID)
	}
	if !gn.graph.HasNode(nodeID) {
		return nil, rerr.New(rerr.ErrCodeMissingNode, "node %q does not exist in %q", nodeID, graphID)
	}
	out := map[string]string{}
	for to, t := range h.typings[graphID] {
		if img, ok := t.M[nodeID]; ok {
			out[to] = img
		}
	}
	return out, nil
}

// =============================================================================
// Internal bookkeeping
// =============================================================================

func (h *Hierarchy) hasID(id string) bool {
	if _, ok := h.graphs[id]; ok {
		return true
	}
	_, ok := h.rules[id]
	return ok
}

func (h *Hierarchy) setTyping(from, to string, t *Typing) {
	if h.typings[from] == nil {
		h.typings[from] = map[string]*Typing{}
	}
	h.typings[from][to] = t
}

func (h *Hierarchy) unsetTyping(from, to string) {
	delete(h.typings[from], to)
}

// setRelation stores a relation under both endpoint orders, sharing one
// underlying value whose Rel map is oriented from the lexicographically
// smaller endpoint.
func (h *Hierarchy) setRelation(left, right string, r *Relation) {
	if left > right {
		left, right = right, left
		r = &Relation{Rel: invertRel(r.Rel), Attrs: r.Attrs}
	}
	if h.relations[left] == nil {
		h.relations[left] = map[string]*Relation{}
	}
	if h.relations[right] == nil {
		h.relations[right] = map[string]*Relation{}
	}
	h.relations[left][right] = r
	h.relations[right][left] = r
}

func invertRel(rel map[string]map[string]struct{}) map[string]map[string]struct{} {
	out := map[string]map[string]struct{}{}
	for l, partners := range rel {
		for p := range partners {
			if out[p] == nil {
				out[p] = map[string]struct{}{}
			}
			out[p][l] = struct{}{}
		}
	}
	return out
}

// graphPredecessors returns the graphs typed directly into id, sorted.
func (h *Hierarchy) graphPredecessors(id string) []string {
	var out []string
	for from, m := range h.typings {
		if _, ok := m[id]; ok {
			out = append(out, from)
		}
	}
	slices.Sort(out)
	return out
}

// graphSuccessors returns the direct typing targets of id, sorted.
func (h *Hierarchy) graphSuccessors(id string) []string {
	var out []string
	for to := range h.typings[id] {
		out = append(out, to)
	}
	slices.Sort(out)
	return out
}

// rulePredecessors returns the rules typed directly into graph id, sorted.
func (h *Hierarchy) rulePredecessors(id string) []string {
	var out []string
	for ruleID, m := range h.ruleTypings {
		if _, ok := m[id]; ok {
			out = append(out, ruleID)
		}
	}
	slices.Sort(out)
	return out
}
