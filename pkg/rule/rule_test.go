package rule

import (
	"testing"

	"github.com/regraft/regraft/pkg/attrs"
	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/graph"
	"github.com/regraft/regraft/pkg/homomorphism"
)

func mustGraph(t *testing.T, nodes map[string]attrs.Dict, edges map[[2]string]attrs.Dict) *graph.Graph {
	t.Helper()
	g := graph.New()
	for id, a := range nodes {
		if err := g.AddNode(id, a); err != nil {
			t.Fatalf("AddNode(%s): %v", id, err)
		}
	}
	for e, a := range edges {
		if err := g.AddEdge(e[0], e[1], a); err != nil {
			t.Fatalf("AddEdge(%v): %v", e, err)
		}
	}
	return g
}

// abPattern is the two-node pattern a -> b used by most rule tests.
func abPattern(t *testing.T) *graph.Graph {
	t.Helper()
	return mustGraph(t,
		map[string]attrs.Dict{"a": {"k": attrs.NewSet("1", "2")}, "b": nil},
		map[[2]string]attrs.Dict{{"a", "b"}: {"w": attrs.NewSet("x")}})
}

func TestFromTransformIsIdentity(t *testing.T) {
	r := FromTransform(abPattern(t))
	if !r.IsIdentity() {
		t.Fatal("fresh transform rule should be an identity")
	}
	if r.IsRestrictive() || r.IsRelaxing() {
		t.Fatal("identity rule should be neither restrictive nor relaxing")
	}
	if len(r.RemovedNodes()) != 0 || len(r.AddedNodes()) != 0 {
		t.Fatalf("identity rule reports removals %v / additions %v", r.RemovedNodes(), r.AddedNodes())
	}
}

func TestInjectCloneNode(t *testing.T) {
	r := FromTransform(abPattern(t))
	pClone, rhsClone, err := r.InjectCloneNode("a", "a_copy")
	if err != nil {
		t.Fatalf("InjectCloneNode: %v", err)
	}
	if pClone != "a_copy" {
		t.Errorf("pClone = %q, want %q", pClone, "a_copy")
	}
	if !r.RHS.HasNode(rhsClone) {
		t.Errorf("RHS clone %q missing", rhsClone)
	}
	clones := r.ClonedNodes()
	if len(clones["a"]) != 2 {
		t.Fatalf("ClonedNodes()[a] = %v, want two preimages", clones["a"])
	}
	if !r.IsRestrictive() {
		t.Error("cloning rule should be restrictive")
	}
}

func TestInjectRemoveNode(t *testing.T) {
	r := FromTransform(abPattern(t))
	if err := r.InjectRemoveNode("b"); err != nil {
		t.Fatalf("InjectRemoveNode: %v", err)
	}
	if got := r.RemovedNodes(); len(got) != 1 || got[0] != "b" {
		t.Fatalf("RemovedNodes() = %v, want [b]", got)
	}
	// Operating on an already removed node fails.
	if err := r.InjectRemoveNode("b"); !rerr.Is(err, rerr.ErrCodeRuleNodeRemoved) {
		t.Fatalf("second removal: got %v, want RULE_NODE_ALREADY_REMOVED", err)
	}
	if _, _, err := r.InjectCloneNode("b", ""); !rerr.Is(err, rerr.ErrCodeRuleNodeRemoved) {
		t.Fatalf("cloning a removed node: got %v, want RULE_NODE_ALREADY_REMOVED", err)
	}
	if err := r.InjectRemoveNode("ghost"); !rerr.Is(err, rerr.ErrCodeRuleUnknownNode) {
		t.Fatalf("removing an unknown node: got %v, want RULE_UNKNOWN_NODE", err)
	}
}

func TestInjectRemoveEdge(t *testing.T) {
	r := FromTransform(abPattern(t))
	if err := r.InjectRemoveEdge("a", "b"); err != nil {
		t.Fatalf("InjectRemoveEdge: %v", err)
	}
	if got := r.RemovedEdges(); len(got) != 1 || got[0].From != "a" || got[0].To != "b" {
		t.Fatalf("RemovedEdges() = %v, want [a->b]", got)
	}
	if err := r.InjectRemoveEdge("b", "a"); !rerr.Is(err, rerr.ErrCodeRuleMissingEdge) {
		t.Fatalf("removing a non-edge: got %v, want RULE_MISSING_EDGE", err)
	}
}

func TestInjectAddNodeAndEdge(t *testing.T) {
	r := FromTransform(abPattern(t))
	if err := r.InjectAddNode("c", attrs.Dict{"kind": attrs.NewSet("new")}); err != nil {
		t.Fatalf("InjectAddNode: %v", err)
	}
	if err := r.InjectAddNode("c", nil); !rerr.Is(err, rerr.ErrCodeRuleDuplicate) {
		t.Fatalf("duplicate add: got %v, want RULE_DUPLICATE_ELEMENT", err)
	}
	if err := r.InjectAddEdge("a", "c", nil); err != nil {
		t.Fatalf("InjectAddEdge: %v", err)
	}
	if err := r.InjectAddEdge("a", "c", nil); !rerr.Is(err, rerr.ErrCodeRuleDuplicate) {
		t.Fatalf("duplicate edge add: got %v, want RULE_DUPLICATE_ELEMENT", err)
	}
	if got := r.AddedNodes(); len(got) != 1 || got[0] != "c" {
		t.Fatalf("AddedNodes() = %v, want [c]", got)
	}
	if got := r.AddedEdges(); len(got) != 1 {
		t.Fatalf("AddedEdges() = %v, want one edge", got)
	}
	if !r.IsRelaxing() {
		t.Error("adding rule should be relaxing")
	}
}

func TestInjectMergeNodes(t *testing.T) {
	r := FromTransform(abPattern(t))
	merged, err := r.InjectMergeNodes([]string{"a", "b"}, "ab")
	if err != nil {
		t.Fatalf("InjectMergeNodes: %v", err)
	}
	if merged != "ab" {
		t.Errorf("merged id = %q, want %q", merged, "ab")
	}
	groups := r.MergedNodes()
	if len(groups["ab"]) != 2 {
		t.Fatalf("MergedNodes()[ab] = %v, want two preimages", groups["ab"])
	}
	// Merging again is a no-op worth rejecting.
	if _, err := r.InjectMergeNodes([]string{"a", "b"}, ""); !rerr.Is(err, rerr.ErrCodeRuleDuplicate) {
		t.Fatalf("re-merge: got %v, want RULE_DUPLICATE_ELEMENT", err)
	}
}

func TestInjectAttrEdits(t *testing.T) {
	r := FromTransform(abPattern(t))
	if err := r.InjectRemoveNodeAttrs("a", attrs.Dict{"k": attrs.NewSet("1")}); err != nil {
		t.Fatalf("InjectRemoveNodeAttrs: %v", err)
	}
	removed := r.RemovedNodeAttrs()
	if !removed["a"].Equal(attrs.Dict{"k": attrs.NewSet("1")}) {
		t.Fatalf("RemovedNodeAttrs()[a] = %v", removed["a"])
	}
	if err := r.InjectAddNodeAttrs("b", attrs.Dict{"tag": attrs.NewSet("t")}); err != nil {
		t.Fatalf("InjectAddNodeAttrs: %v", err)
	}
	added := r.AddedNodeAttrs()
	if !added["b"].Equal(attrs.Dict{"tag": attrs.NewSet("t")}) {
		t.Fatalf("AddedNodeAttrs()[b] = %v", added["b"])
	}
	// Removing values the LHS does not carry is rejected.
	err := r.InjectRemoveNodeAttrs("a", attrs.Dict{"k": attrs.NewSet("9")})
	if err == nil {
		t.Fatal("expected error removing absent attribute values")
	}
}

func TestApplyIdentityLeavesGraphUnchanged(t *testing.T) {
	g := mustGraph(t,
		map[string]attrs.Dict{"x": {"k": attrs.NewSet("1", "2")}, "y": nil, "z": nil},
		map[[2]string]attrs.Dict{{"x", "y"}: {"w": attrs.NewSet("x")}, {"y", "z"}: nil})
	r := Identity(abPattern(t))

	out, rhsInstance, err := r.Apply(g, homomorphism.Mapping{"a": "x", "b": "y"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !out.Equal(g) {
		t.Fatal("identity rule changed the graph")
	}
	if rhsInstance["a"] != "x" || rhsInstance["b"] != "y" {
		t.Fatalf("rhs instance = %v", rhsInstance)
	}
}

func TestApplyDeleteAndClone(t *testing.T) {
	g := mustGraph(t,
		map[string]attrs.Dict{"x": nil, "y": nil, "n": nil},
		map[[2]string]attrs.Dict{{"x", "y"}: nil, {"n", "x"}: nil})

	r := FromTransform(mustGraph(t,
		map[string]attrs.Dict{"a": nil, "b": nil},
		map[[2]string]attrs.Dict{{"a", "b"}: nil}))
	if err := r.InjectRemoveNode("b"); err != nil {
		t.Fatalf("InjectRemoveNode: %v", err)
	}
	if _, _, err := r.InjectCloneNode("a", "a2"); err != nil {
		t.Fatalf("InjectCloneNode: %v", err)
	}

	out, _, err := r.Apply(g, homomorphism.Mapping{"a": "x", "b": "y"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out.HasNode("y") {
		t.Error("deleted node y survived")
	}
	// x was cloned: two nodes each with an incoming edge from n.
	if out.Order() != 3 {
		t.Fatalf("result has %d nodes, want 3 (n, x, clone): %v", out.Order(), out.Nodes())
	}
	clones := 0
	for _, id := range out.Nodes() {
		if id == "n" {
			continue
		}
		if !out.HasEdge("n", id) {
			t.Errorf("clone %q lost its incoming edge from n", id)
		}
		clones++
	}
	if clones != 2 {
		t.Fatalf("found %d x-clones, want 2", clones)
	}
}

func TestApplyAddAndMerge(t *testing.T) {
	g := mustGraph(t,
		map[string]attrs.Dict{"x": {"k": attrs.NewSet("1")}, "y": {"k": attrs.NewSet("2")}},
		map[[2]string]attrs.Dict{{"x", "y"}: nil})

	r := FromTransform(mustGraph(t,
		map[string]attrs.Dict{"a": nil, "b": nil},
		map[[2]string]attrs.Dict{{"a", "b"}: nil}))
	if _, err := r.InjectMergeNodes([]string{"a", "b"}, "ab"); err != nil {
		t.Fatalf("InjectMergeNodes: %v", err)
	}
	if err := r.InjectAddNode("fresh", attrs.Dict{"kind": attrs.NewSet("new")}); err != nil {
		t.Fatalf("InjectAddNode: %v", err)
	}
	if err := r.InjectAddEdge("a", "fresh", nil); err != nil {
		t.Fatalf("InjectAddEdge: %v", err)
	}

	out, rhsInstance, err := r.Apply(g, homomorphism.Mapping{"a": "x", "b": "y"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out.Order() != 2 {
		t.Fatalf("result has %d nodes, want 2: %v", out.Order(), out.Nodes())
	}
	mergedID := rhsInstance["ab"]
	if mergedID == "" {
		t.Fatal("rhs instance does not locate the merged node")
	}
	ma, err := out.NodeAttrs(mergedID)
	if err != nil {
		t.Fatalf("NodeAttrs(%q): %v", mergedID, err)
	}
	if !ma.Equal(attrs.Dict{"k": attrs.NewSet("1", "2")}) {
		t.Errorf("merged attrs = %v, want union of x and y", ma)
	}
	// Merging x and y collapses the x->y edge into a self-loop.
	if !out.HasEdge(mergedID, mergedID) {
		t.Error("merged node lost its self-loop")
	}
	freshID := rhsInstance["fresh"]
	if !out.HasNode(freshID) {
		t.Fatalf("added node %q missing", freshID)
	}
	if !out.HasEdge(mergedID, freshID) {
		t.Error("added edge to fresh node missing")
	}
}

func TestApplyRejectsNonInjectiveInstance(t *testing.T) {
	g := mustGraph(t,
		map[string]attrs.Dict{"x": nil},
		map[[2]string]attrs.Dict{{"x", "x"}: nil})
	r := Identity(mustGraph(t,
		map[string]attrs.Dict{"a": nil, "b": nil},
		map[[2]string]attrs.Dict{{"a", "b"}: nil}))

	_, _, err := r.Apply(g, homomorphism.Mapping{"a": "x", "b": "x"})
	if !rerr.Is(err, rerr.ErrCodeNotMonic) {
		t.Fatalf("got %v, want CATEGORY_NOT_MONIC", err)
	}
}

func TestApplyRejectsInvalidInstance(t *testing.T) {
	g := mustGraph(t, map[string]attrs.Dict{"x": nil, "y": nil}, nil)
	r := Identity(mustGraph(t,
		map[string]attrs.Dict{"a": nil, "b": nil},
		map[[2]string]attrs.Dict{{"a", "b"}: nil}))

	// The matched edge does not exist in g.
	_, _, err := r.Apply(g, homomorphism.Mapping{"a": "x", "b": "y"})
	if !rerr.Is(err, rerr.ErrCodeInvalidInstance) {
		t.Fatalf("got %v, want TYPING_INVALID_INSTANCE", err)
	}
}

func TestRefineMakesContextExplicit(t *testing.T) {
	g := mustGraph(t,
		map[string]attrs.Dict{"hub": {"k": attrs.NewSet("1", "2")}, "n1": nil, "n2": nil},
		map[[2]string]attrs.Dict{{"n1", "hub"}: nil, {"hub", "n2"}: {"w": attrs.NewSet("x")}})

	r := FromTransform(mustGraph(t,
		map[string]attrs.Dict{"a": {"k": attrs.NewSet("1")}}, nil))
	refined, err := r.Refine(g, homomorphism.Mapping{"a": "hub"})
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}

	// The pattern now covers the full neighborhood of hub.
	if r.LHS.Order() != 3 {
		t.Fatalf("refined LHS has %d nodes, want 3: %v", r.LHS.Order(), r.LHS.Nodes())
	}
	if len(refined) != 3 {
		t.Fatalf("refined instance covers %d nodes, want 3: %v", len(refined), refined)
	}
	if err := homomorphism.Check(r.LHS, g, refined, true); err != nil {
		t.Fatalf("refined instance invalid: %v", err)
	}
	// Node attributes were saturated to the full g values.
	la, err := r.LHS.NodeAttrs("a")
	if err != nil {
		t.Fatal(err)
	}
	if !la.Equal(attrs.Dict{"k": attrs.NewSet("1", "2")}) {
		t.Errorf("refined attrs = %v, want saturated values", la)
	}

	// Applying the refined identity rule leaves g unchanged.
	out, _, err := r.Apply(g, refined)
	if err != nil {
		t.Fatalf("Apply after Refine: %v", err)
	}
	if !out.Equal(g) {
		t.Fatal("refined identity rule changed the graph")
	}
}

func TestRefineKeepsEdgeDeletion(t *testing.T) {
	g := mustGraph(t,
		map[string]attrs.Dict{"x": {"k": attrs.NewSet("1", "2")}, "y": nil, "c": nil},
		map[[2]string]attrs.Dict{{"x", "y"}: {"w": attrs.NewSet("x")}, {"y", "c"}: nil})

	r := FromTransform(abPattern(t))
	if err := r.InjectRemoveEdge("a", "b"); err != nil {
		t.Fatalf("InjectRemoveEdge: %v", err)
	}

	refined, err := r.Refine(g, homomorphism.Mapping{"a": "x", "b": "y"})
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if removed := r.RemovedEdges(); len(removed) != 1 {
		t.Fatalf("RemovedEdges = %v, want the declared deletion to survive refining", removed)
	}

	out, _, err := r.Apply(g, refined)
	if err != nil {
		t.Fatalf("Apply after Refine: %v", err)
	}
	if out.HasEdge("x", "y") {
		t.Error("deleted edge survived the rewrite")
	}
	if !out.HasEdge("y", "c") {
		t.Error("context edge was not preserved")
	}
	if out.Order() != 3 {
		t.Errorf("Order = %d, want 3", out.Order())
	}
}

func TestRefineKeepsEdgeAttrRemoval(t *testing.T) {
	g := mustGraph(t,
		map[string]attrs.Dict{"x": {"k": attrs.NewSet("1", "2")}, "y": nil},
		map[[2]string]attrs.Dict{{"x", "y"}: {"w": attrs.NewSet("x", "z")}})

	r := FromTransform(abPattern(t))
	if err := r.InjectRemoveEdgeAttrs("a", "b", attrs.Dict{"w": attrs.NewSet("x")}); err != nil {
		t.Fatalf("InjectRemoveEdgeAttrs: %v", err)
	}

	refined, err := r.Refine(g, homomorphism.Mapping{"a": "x", "b": "y"})
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	removed := r.RemovedEdgeAttrs()
	if d, ok := removed[graph.Edge{From: "a", To: "b"}]; !ok || !d["w"].Contains("x") {
		t.Fatalf("RemovedEdgeAttrs = %v, want w:x still removed", removed)
	}

	out, _, err := r.Apply(g, refined)
	if err != nil {
		t.Fatalf("Apply after Refine: %v", err)
	}
	ea, err := out.EdgeAttrs("x", "y")
	if err != nil {
		t.Fatal(err)
	}
	if ea["w"].Contains("x") {
		t.Errorf("removed attr value re-adopted: %v", ea)
	}
	if !ea["w"].Contains("z") {
		t.Errorf("context attr value lost: %v", ea)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	r := FromTransform(abPattern(t))
	if _, _, err := r.InjectCloneNode("a", "a2"); err != nil {
		t.Fatal(err)
	}
	if err := r.InjectAddNode("c", attrs.Dict{"kind": attrs.NewSet("new")}); err != nil {
		t.Fatal(err)
	}

	data, err := Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !back.P.Equal(r.P) || !back.LHS.Equal(r.LHS) || !back.RHS.Equal(r.RHS) {
		t.Fatal("round-tripped rule graphs differ")
	}
	if !back.PLHS.Equal(r.PLHS) || !back.PRHS.Equal(r.PRHS) {
		t.Fatal("round-tripped rule legs differ")
	}
}
