package match

import (
	"testing"

	"github.com/regraft/regraft/pkg/attrs"
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

func TestFindSingleEdgePattern(t *testing.T) {
	g := mustGraph(t,
		map[string]attrs.Dict{"1": nil, "2": nil, "3": nil},
		map[[2]string]attrs.Dict{{"1", "2"}: nil, {"2", "3"}: nil})
	pattern := mustGraph(t,
		map[string]attrs.Dict{"a": nil, "b": nil},
		map[[2]string]attrs.Dict{{"a", "b"}: nil})

	matches, err := Find(g, pattern, nil)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2: %v", len(matches), matches)
	}
	for _, m := range matches {
		if !m.IsMonic() {
			t.Errorf("match %v is not injective", m)
		}
		if err := homomorphism.Check(pattern, g, m, true); err != nil {
			t.Errorf("match %v invalid: %v", m, err)
		}
	}
}

func TestFindRespectsDirection(t *testing.T) {
	g := mustGraph(t,
		map[string]attrs.Dict{"1": nil, "2": nil},
		map[[2]string]attrs.Dict{{"1", "2"}: nil})
	pattern := mustGraph(t,
		map[string]attrs.Dict{"a": nil, "b": nil},
		map[[2]string]attrs.Dict{{"a", "b"}: nil, {"b", "a"}: nil})

	matches, err := Find(g, pattern, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Fatalf("pattern needs a 2-cycle, host has none; got %v", matches)
	}
}

func TestFindAttributeSubset(t *testing.T) {
	g := mustGraph(t,
		map[string]attrs.Dict{
			"rich": {"k": attrs.NewSet("1", "2")},
			"poor": {"k": attrs.NewSet("1")},
		}, nil)
	pattern := mustGraph(t,
		map[string]attrs.Dict{"a": {"k": attrs.NewSet("1", "2")}}, nil)

	matches, err := Find(g, pattern, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0]["a"] != "rich" {
		t.Fatalf("got %v, want the single match on rich", matches)
	}
}

func TestFindEdgeAttributeSubset(t *testing.T) {
	g := mustGraph(t,
		map[string]attrs.Dict{"1": nil, "2": nil, "3": nil},
		map[[2]string]attrs.Dict{
			{"1", "2"}: {"w": attrs.NewSet("x")},
			{"2", "3"}: {"w": attrs.NewSet("y")},
		})
	pattern := mustGraph(t,
		map[string]attrs.Dict{"a": nil, "b": nil},
		map[[2]string]attrs.Dict{{"a", "b"}: {"w": attrs.NewSet("x")}})

	matches, err := Find(g, pattern, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0]["a"] != "1" {
		t.Fatalf("got %v, want only the 1->2 embedding", matches)
	}
}

func TestFindInjective(t *testing.T) {
	// A triangle pattern cannot fold onto a single looped node.
	g := mustGraph(t,
		map[string]attrs.Dict{"n": nil},
		map[[2]string]attrs.Dict{{"n", "n"}: nil})
	pattern := mustGraph(t,
		map[string]attrs.Dict{"a": nil, "b": nil},
		map[[2]string]attrs.Dict{{"a", "b"}: nil})

	matches, err := Find(g, pattern, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Fatalf("non-injective fold accepted: %v", matches)
	}
}

func TestFindSelfLoopPattern(t *testing.T) {
	g := mustGraph(t,
		map[string]attrs.Dict{"l": nil, "p": nil},
		map[[2]string]attrs.Dict{{"l", "l"}: nil, {"l", "p"}: nil})
	pattern := mustGraph(t,
		map[string]attrs.Dict{"a": nil},
		map[[2]string]attrs.Dict{{"a", "a"}: nil})

	matches, err := Find(g, pattern, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0]["a"] != "l" {
		t.Fatalf("got %v, want only the looped node", matches)
	}
}

func TestFindTypingConstraint(t *testing.T) {
	g := mustGraph(t,
		map[string]attrs.Dict{"gene1": nil, "gene2": nil, "site1": nil},
		map[[2]string]attrs.Dict{{"site1", "gene1"}: nil, {"gene2", "gene1"}: nil})
	pattern := mustGraph(t,
		map[string]attrs.Dict{"x": nil, "y": nil},
		map[[2]string]attrs.Dict{{"x", "y"}: nil})

	constraint := TypingConstraint{
		Pattern: homomorphism.Mapping{"x": "site", "y": "gene"},
		Graph: homomorphism.Mapping{
			"gene1": "gene", "gene2": "gene", "site1": "site",
		},
	}
	matches, err := Find(g, pattern, []TypingConstraint{constraint})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1: %v", len(matches), matches)
	}
	if matches[0]["x"] != "site1" || matches[0]["y"] != "gene1" {
		t.Fatalf("typed match = %v", matches[0])
	}
}

func TestFindPartialTypingUnconstrained(t *testing.T) {
	g := mustGraph(t, map[string]attrs.Dict{"1": nil, "2": nil}, nil)
	pattern := mustGraph(t, map[string]attrs.Dict{"a": nil}, nil)

	// Host nodes are untyped, so the pattern typing cannot disagree.
	constraint := TypingConstraint{
		Pattern: homomorphism.Mapping{"a": "agent"},
		Graph:   homomorphism.Mapping{},
	}
	matches, err := Find(g, pattern, []TypingConstraint{constraint})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2: %v", len(matches), matches)
	}
}

func TestFindEmptyPattern(t *testing.T) {
	g := mustGraph(t, map[string]attrs.Dict{"1": nil}, nil)
	matches, err := Find(g, graph.New(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || len(matches[0]) != 0 {
		t.Fatalf("empty pattern should have exactly the empty match, got %v", matches)
	}
}

func TestFindDeterministicOrder(t *testing.T) {
	g := mustGraph(t, map[string]attrs.Dict{"1": nil, "2": nil, "3": nil}, nil)
	pattern := mustGraph(t, map[string]attrs.Dict{"a": nil}, nil)

	first, err := Find(g, pattern, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := Find(g, pattern, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(again) != len(first) {
			t.Fatalf("run %d: %d matches, first run had %d", i, len(again), len(first))
		}
		for j := range again {
			if !again[j].Equal(first[j]) {
				t.Fatalf("run %d: match %d = %v, first run had %v", i, j, again[j], first[j])
			}
		}
	}
}
