package hierarchy

import (
	"testing"

	"github.com/regraft/regraft/pkg/attrs"
	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/graph"
	"github.com/regraft/regraft/pkg/homomorphism"
	"github.com/regraft/regraft/pkg/rule"
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

// tutorialHierarchy builds the agent/action/state example: a metamodel T
// and a model G typed into it.
func tutorialHierarchy(t *testing.T) *Hierarchy {
	t.Helper()
	h := New()

	T := mustGraph(t,
		map[string]attrs.Dict{"agent": nil, "action": nil, "state": nil},
		map[[2]string]attrs.Dict{
			{"agent", "agent"}:  nil,
			{"state", "agent"}:  nil,
			{"agent", "action"}: nil,
			{"action", "state"}: nil,
		})
	G := mustGraph(t,
		map[string]attrs.Dict{"protein": nil, "region": nil, "activity": nil, "mod": nil},
		map[[2]string]attrs.Dict{
			{"region", "protein"}:   nil,
			{"activity", "protein"}: nil,
			{"protein", "mod"}:      nil,
			{"mod", "activity"}:     nil,
		})

	if err := h.AddGraph("T", T, nil); err != nil {
		t.Fatal(err)
	}
	if err := h.AddGraph("G", G, nil); err != nil {
		t.Fatal(err)
	}
	err := h.AddTyping("G", "T", homomorphism.Mapping{
		"protein": "agent", "region": "agent", "activity": "state", "mod": "action",
	}, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestTutorialTypings(t *testing.T) {
	h := tutorialHierarchy(t)

	typings := h.Typings()
	if len(typings) != 1 || typings[0] != (Edge{From: "G", To: "T"}) {
		t.Fatalf("Typings() = %v, want [{G T}]", typings)
	}
	nt, err := h.NodeType("G", "region")
	if err != nil {
		t.Fatal(err)
	}
	if len(nt) != 1 || nt["T"] != "agent" {
		t.Fatalf("NodeType(G, region) = %v, want {T: agent}", nt)
	}
}

func TestAddGraphDuplicate(t *testing.T) {
	h := New()
	if err := h.AddGraph("g", graph.New(), nil); err != nil {
		t.Fatal(err)
	}
	if err := h.AddGraph("g", graph.New(), nil); !rerr.Is(err, rerr.ErrCodeDuplicateID) {
		t.Fatalf("got %v, want HIERARCHY_DUPLICATE_ID", err)
	}
	r := rule.Identity(graph.New())
	if err := h.AddRule("g", r, nil); !rerr.Is(err, rerr.ErrCodeDuplicateID) {
		t.Fatalf("rule under a graph id: got %v, want HIERARCHY_DUPLICATE_ID", err)
	}
}

func TestAddTypingRejectsInvalidHomomorphism(t *testing.T) {
	h := New()
	src := mustGraph(t,
		map[string]attrs.Dict{"a": nil, "b": nil},
		map[[2]string]attrs.Dict{{"a", "b"}: nil})
	dst := mustGraph(t, map[string]attrs.Dict{"x": nil, "y": nil}, nil)
	if err := h.AddGraph("src", src, nil); err != nil {
		t.Fatal(err)
	}
	if err := h.AddGraph("dst", dst, nil); err != nil {
		t.Fatal(err)
	}

	// The a->b edge has no counterpart under the mapping.
	err := h.AddTyping("src", "dst", homomorphism.Mapping{"a": "x", "b": "y"}, true, nil)
	if !rerr.Is(err, rerr.ErrCodeInvalidTyping) {
		t.Fatalf("got %v, want HIERARCHY_INVALID_TYPING", err)
	}
	// A partial mapping violating declared totality.
	err = h.AddTyping("src", "dst", homomorphism.Mapping{"a": "x"}, true, nil)
	if !rerr.Is(err, rerr.ErrCodeInvalidTyping) {
		t.Fatalf("got %v, want HIERARCHY_INVALID_TYPING", err)
	}
	if len(h.Typings()) != 0 {
		t.Fatal("failed AddTyping left a typing behind")
	}
}

func TestAddTypingRejectsCycle(t *testing.T) {
	h := New()
	for _, id := range []string{"a", "b", "c"} {
		if err := h.AddGraph(id, mustGraph(t, map[string]attrs.Dict{"n": nil}, nil), nil); err != nil {
			t.Fatal(err)
		}
	}
	m := homomorphism.Mapping{"n": "n"}
	if err := h.AddTyping("a", "b", m, true, nil); err != nil {
		t.Fatal(err)
	}
	if err := h.AddTyping("b", "c", m, true, nil); err != nil {
		t.Fatal(err)
	}
	if err := h.AddTyping("c", "a", m, true, nil); !rerr.Is(err, rerr.ErrCodeCycle) {
		t.Fatalf("got %v, want HIERARCHY_CYCLE", err)
	}
}

func TestAddTypingCommutation(t *testing.T) {
	h := New()
	a := mustGraph(t, map[string]attrs.Dict{"n": nil}, nil)
	b := mustGraph(t, map[string]attrs.Dict{"m": nil}, nil)
	c := mustGraph(t, map[string]attrs.Dict{"x": nil, "y": nil}, nil)
	if err := h.AddGraph("a", a, nil); err != nil {
		t.Fatal(err)
	}
	if err := h.AddGraph("b", b, nil); err != nil {
		t.Fatal(err)
	}
	if err := h.AddGraph("c", c, nil); err != nil {
		t.Fatal(err)
	}
	if err := h.AddTyping("a", "b", homomorphism.Mapping{"n": "m"}, true, nil); err != nil {
		t.Fatal(err)
	}
	if err := h.AddTyping("b", "c", homomorphism.Mapping{"m": "x"}, true, nil); err != nil {
		t.Fatal(err)
	}

	// The direct a->c typing disagrees with the composite a->b->c.
	err := h.AddTyping("a", "c", homomorphism.Mapping{"n": "y"}, true, nil)
	if !rerr.Is(err, rerr.ErrCodeNonCommuting) {
		t.Fatalf("got %v, want HIERARCHY_NON_COMMUTING_PATHS", err)
	}
	// The agreeing direct typing is accepted.
	if err := h.AddTyping("a", "c", homomorphism.Mapping{"n": "x"}, true, nil); err != nil {
		t.Fatalf("agreeing typing rejected: %v", err)
	}
}

func TestComposePathAndAncestors(t *testing.T) {
	h := New()
	for _, id := range []string{"bottom", "mid", "top"} {
		if err := h.AddGraph(id, mustGraph(t, map[string]attrs.Dict{"n": nil, "k": nil}, nil), nil); err != nil {
			t.Fatal(err)
		}
	}
	if err := h.AddTyping("bottom", "mid", homomorphism.Mapping{"n": "k", "k": "k"}, true, nil); err != nil {
		t.Fatal(err)
	}
	if err := h.AddTyping("mid", "top", homomorphism.Mapping{"k": "n", "n": "n"}, true, nil); err != nil {
		t.Fatal(err)
	}

	m, ok := h.ComposePath("bottom", "top")
	if !ok {
		t.Fatal("no path bottom->top")
	}
	if m["n"] != "n" || m["k"] != "n" {
		t.Fatalf("composed mapping = %v", m)
	}
	if _, ok := h.ComposePath("top", "bottom"); ok {
		t.Fatal("path composed against typing direction")
	}

	anc, err := h.Ancestors("bottom")
	if err != nil {
		t.Fatal(err)
	}
	if len(anc) != 2 {
		t.Fatalf("Ancestors(bottom) = %v, want mid and top", anc)
	}
	desc, err := h.Descendants("top")
	if err != nil {
		t.Fatal(err)
	}
	if len(desc) != 2 || desc["bottom"]["k"] != "n" {
		t.Fatalf("Descendants(top) = %v", desc)
	}
}

func TestRelations(t *testing.T) {
	h := New()
	if err := h.AddGraph("l", mustGraph(t, map[string]attrs.Dict{"a": nil, "b": nil}, nil), nil); err != nil {
		t.Fatal(err)
	}
	if err := h.AddGraph("r", mustGraph(t, map[string]attrs.Dict{"x": nil}, nil), nil); err != nil {
		t.Fatal(err)
	}
	if err := h.AddRelation("l", "r", map[string][]string{"a": {"x"}, "b": {"x"}}, nil); err != nil {
		t.Fatal(err)
	}
	if err := h.AddRelation("l", "r", nil, nil); !rerr.Is(err, rerr.ErrCodeDuplicateRelation) {
		t.Fatalf("got %v, want HIERARCHY_DUPLICATE_RELATION", err)
	}

	pairs, err := h.RelationPairs("l", "r")
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs["a"]) != 1 || pairs["a"][0] != "x" {
		t.Fatalf("pairs from l = %v", pairs)
	}
	// The symmetric view.
	back, err := h.RelationPairs("r", "l")
	if err != nil {
		t.Fatal(err)
	}
	if len(back["x"]) != 2 {
		t.Fatalf("pairs from r = %v, want x paired with a and b", back)
	}

	if err := h.RemoveRelation("r", "l"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.RelationPairs("l", "r"); !rerr.Is(err, rerr.ErrCodeUnknownRelation) {
		t.Fatalf("got %v, want HIERARCHY_UNKNOWN_RELATION", err)
	}
}

func TestRemoveGraphReconnect(t *testing.T) {
	h := New()
	for _, id := range []string{"bottom", "mid", "top"} {
		if err := h.AddGraph(id, mustGraph(t, map[string]attrs.Dict{"n": nil}, nil), nil); err != nil {
			t.Fatal(err)
		}
	}
	m := homomorphism.Mapping{"n": "n"}
	if err := h.AddTyping("bottom", "mid", m, true, nil); err != nil {
		t.Fatal(err)
	}
	if err := h.AddTyping("mid", "top", m, true, nil); err != nil {
		t.Fatal(err)
	}

	if err := h.RemoveGraph("mid", true); err != nil {
		t.Fatal(err)
	}
	typ, err := h.GetTyping("bottom", "top")
	if err != nil {
		t.Fatalf("reconnect did not install bottom->top: %v", err)
	}
	if typ.M["n"] != "n" {
		t.Fatalf("reconnected mapping = %v", typ.M)
	}
	if _, err := h.Graph("mid"); !rerr.Is(err, rerr.ErrCodeUnknownID) {
		t.Fatal("mid still present")
	}
}

func TestAddRuleTyping(t *testing.T) {
	h := tutorialHierarchy(t)

	pattern := mustGraph(t, map[string]attrs.Dict{"p": nil}, nil)
	r := rule.FromTransform(pattern)
	if _, _, err := r.InjectCloneNode("p", "p2"); err != nil {
		t.Fatal(err)
	}
	if err := h.AddRule("cloneRule", r, nil); err != nil {
		t.Fatal(err)
	}

	// RHS mapping completed from the LHS mapping through the span.
	err := h.AddRuleTyping("cloneRule", "G", homomorphism.Mapping{"p": "protein"}, nil, true, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	rt, err := h.GetRuleTyping("cloneRule", "G")
	if err != nil {
		t.Fatal(err)
	}
	if len(rt.RHS) != 2 {
		t.Fatalf("completed RHS mapping = %v, want both clone images typed", rt.RHS)
	}
	for _, ty := range rt.RHS {
		if ty != "protein" {
			t.Fatalf("completed RHS mapping = %v", rt.RHS)
		}
	}
}

func TestAddRuleTypingCommutation(t *testing.T) {
	h := tutorialHierarchy(t)

	pattern := mustGraph(t, map[string]attrs.Dict{"p": nil}, nil)
	if err := h.AddRule("idRule", rule.Identity(pattern), nil); err != nil {
		t.Fatal(err)
	}
	if err := h.AddRuleTyping("idRule", "G", homomorphism.Mapping{"p": "protein"}, nil, true, true, nil); err != nil {
		t.Fatal(err)
	}

	// G types protein as agent, so a direct typing into T that disagrees
	// with the composition through G must be rejected.
	err := h.AddRuleTyping("idRule", "T", homomorphism.Mapping{"p": "action"}, nil, true, true, nil)
	if !rerr.Is(err, rerr.ErrCodeNonCommuting) {
		t.Fatalf("contradictory rule typing accepted: %v", err)
	}
	if _, err := h.GetRuleTyping("idRule", "T"); err == nil {
		t.Fatal("rejected rule typing was kept")
	}

	if err := h.AddRuleTyping("idRule", "T", homomorphism.Mapping{"p": "agent"}, nil, true, true, nil); err != nil {
		t.Fatalf("agreeing rule typing rejected: %v", err)
	}
}

func TestAddTypingRechecksRuleTypings(t *testing.T) {
	h := New()
	if err := h.AddGraph("A", mustGraph(t, map[string]attrs.Dict{"a": nil}, nil), nil); err != nil {
		t.Fatal(err)
	}
	if err := h.AddGraph("T", mustGraph(t, map[string]attrs.Dict{"x": nil, "y": nil}, nil), nil); err != nil {
		t.Fatal(err)
	}
	pattern := mustGraph(t, map[string]attrs.Dict{"p": nil}, nil)
	if err := h.AddRule("R", rule.Identity(pattern), nil); err != nil {
		t.Fatal(err)
	}
	if err := h.AddRuleTyping("R", "A", homomorphism.Mapping{"p": "a"}, nil, true, true, nil); err != nil {
		t.Fatal(err)
	}
	if err := h.AddRuleTyping("R", "T", homomorphism.Mapping{"p": "y"}, nil, true, true, nil); err != nil {
		t.Fatal(err)
	}

	// A->T with a:x makes the composition R->A->T give p:x, clashing
	// with the direct p:y.
	err := h.AddTyping("A", "T", homomorphism.Mapping{"a": "x"}, true, nil)
	if !rerr.Is(err, rerr.ErrCodeNonCommuting) {
		t.Fatalf("typing creating a rule contradiction accepted: %v", err)
	}
	if _, err := h.GetTyping("A", "T"); err == nil {
		t.Fatal("rejected typing was kept")
	}

	if err := h.AddTyping("A", "T", homomorphism.Mapping{"a": "y"}, true, nil); err != nil {
		t.Fatalf("agreeing typing rejected: %v", err)
	}
}

func TestFindMatchingWithTyping(t *testing.T) {
	h := tutorialHierarchy(t)

	pattern := mustGraph(t,
		map[string]attrs.Dict{"x": nil, "y": nil},
		map[[2]string]attrs.Dict{{"x", "y"}: nil})

	all, err := h.FindMatching("G", pattern, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("untyped matches = %d, want one per G edge", len(all))
	}

	typed, err := h.FindMatching("G", pattern, map[string]homomorphism.Mapping{
		"T": {"x": "agent", "y": "action"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(typed) != 1 || typed[0]["x"] != "protein" || typed[0]["y"] != "mod" {
		t.Fatalf("typed matches = %v, want only protein->mod", typed)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	h := tutorialHierarchy(t)
	pattern := mustGraph(t, map[string]attrs.Dict{"p": {"k": attrs.NewSet("1")}}, nil)
	if err := h.AddRule("r", rule.Identity(pattern), nil); err != nil {
		t.Fatal(err)
	}
	if err := h.AddRelation("G", "T", map[string][]string{"protein": {"agent"}}, nil); err != nil {
		t.Fatal(err)
	}

	data, err := Marshal(h)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if len(back.Graphs()) != 2 || len(back.Rules()) != 1 {
		t.Fatalf("round-trip lost nodes: graphs %v rules %v", back.Graphs(), back.Rules())
	}
	gOrig, _ := h.Graph("G")
	gBack, err := back.Graph("G")
	if err != nil {
		t.Fatal(err)
	}
	if !gBack.Equal(gOrig) {
		t.Fatal("round-tripped G differs")
	}
	typOrig, _ := h.GetTyping("G", "T")
	typBack, err := back.GetTyping("G", "T")
	if err != nil {
		t.Fatal(err)
	}
	if !typBack.M.Equal(typOrig.M) || typBack.Total != typOrig.Total {
		t.Fatal("round-tripped typing differs")
	}
	pairs, err := back.RelationPairs("G", "T")
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs["protein"]) != 1 || pairs["protein"][0] != "agent" {
		t.Fatalf("round-tripped relation = %v", pairs)
	}
}

func TestUnmarshalRejectsInconsistentFile(t *testing.T) {
	// A typing whose mapping is not a homomorphism must fail to load.
	bad := `{
		"graphs": [
			{"id": "g", "graph": {"nodes": [{"id": "a"}, {"id": "b"}], "edges": [{"from": "a", "to": "b"}]}},
			{"id": "t", "graph": {"nodes": [{"id": "x"}, {"id": "y"}], "edges": []}}
		],
		"rules": [],
		"typing": [{"from": "g", "to": "t", "mapping": {"a": "x", "b": "y"}, "total": true}],
		"rule_typing": [],
		"relations": []
	}`
	if _, err := Unmarshal([]byte(bad)); !rerr.Is(err, rerr.ErrCodeInvalidTyping) {
		t.Fatalf("got %v, want HIERARCHY_INVALID_TYPING", err)
	}
}
