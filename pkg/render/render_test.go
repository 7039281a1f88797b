package render

import (
	"context"
	"strings"
	"testing"

	"github.com/regraft/regraft/pkg/attrs"
	"github.com/regraft/regraft/pkg/graph"
	"github.com/regraft/regraft/pkg/hierarchy"
	"github.com/regraft/regraft/pkg/homomorphism"
)

func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	if err := g.AddNode("a", attrs.Dict{"k": attrs.NewSet("1", "2")}); err != nil {
		t.Fatal(err)
	}
	if err := g.AddNode("b", nil); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge("a", "b", attrs.Dict{"w": attrs.NewSet("x")}); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(testGraph(t), Options{})
	for _, want := range []string{`"a" [label="a"]`, `"b" [label="b"]`, `"a" -> "b";`} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTWithAttrs(t *testing.T) {
	dot := ToDOT(testGraph(t), Options{Attrs: true})
	if !strings.Contains(dot, "k={1,2}") {
		t.Errorf("DOT missing node attrs:\n%s", dot)
	}
	if !strings.Contains(dot, "w={x}") {
		t.Errorf("DOT missing edge attrs:\n%s", dot)
	}
}

func TestHierarchyToDOT(t *testing.T) {
	h := hierarchy.New()
	T := graph.New()
	_ = T.AddNode("t", nil)
	G := graph.New()
	_ = G.AddNode("n", nil)
	if err := h.AddGraph("T", T, nil); err != nil {
		t.Fatal(err)
	}
	if err := h.AddGraph("G", G, nil); err != nil {
		t.Fatal(err)
	}
	if err := h.AddTyping("G", "T", homomorphism.Mapping{"n": "t"}, false, nil); err != nil {
		t.Fatal(err)
	}

	dot := HierarchyToDOT(h)
	for _, want := range []string{`"G" [shape=box]`, `"T" [shape=box]`, `"G" -> "T" [style=dashed]`} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestSVG(t *testing.T) {
	svg, err := SVG(context.Background(), ToDOT(testGraph(t), Options{}))
	if err != nil {
		t.Fatalf("SVG: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("output does not look like SVG")
	}
}
