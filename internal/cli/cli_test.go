package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/regraft/regraft/pkg/graph"
	"github.com/regraft/regraft/pkg/hierarchy"
	"github.com/regraft/regraft/pkg/homomorphism"
	"github.com/regraft/regraft/pkg/rule"
)

// testCLI creates a CLI writing logs to a discarded buffer.
func testCLI() *CLI {
	return New(io.Discard, LogInfo)
}

// writeTestHierarchy builds a two-level hierarchy (T types G) and writes
// it to a file in dir.
func writeTestHierarchy(t *testing.T, dir string) string {
	t.Helper()

	typeGraph := graph.New()
	for _, n := range []string{"agent", "action"} {
		if err := typeGraph.AddNode(n, nil); err != nil {
			t.Fatal(err)
		}
	}
	if err := typeGraph.AddEdge("agent", "action", nil); err != nil {
		t.Fatal(err)
	}

	g := graph.New()
	for _, n := range []string{"alice", "bob", "ping"} {
		if err := g.AddNode(n, nil); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.AddEdge("alice", "ping", nil); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge("bob", "ping", nil); err != nil {
		t.Fatal(err)
	}

	h := hierarchy.New()
	if err := h.AddGraph("T", typeGraph, nil); err != nil {
		t.Fatal(err)
	}
	if err := h.AddGraph("G", g, nil); err != nil {
		t.Fatal(err)
	}
	typing := homomorphism.Mapping{"alice": "agent", "bob": "agent", "ping": "action"}
	if err := h.AddTyping("G", "T", typing, true, nil); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "hierarchy.json")
	if err := hierarchy.WriteFile(h, path); err != nil {
		t.Fatal(err)
	}
	return path
}

// writeTestPattern writes a single-node pattern graph to a file in dir.
func writeTestPattern(t *testing.T, dir string) string {
	t.Helper()

	p := graph.New()
	if err := p.AddNode("x", nil); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "pattern.json")
	if err := graph.WriteFile(p, path); err != nil {
		t.Fatal(err)
	}
	return path
}

// run executes the root command with args and returns the error.
func run(t *testing.T, c *CLI, args ...string) error {
	t.Helper()

	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.Execute()
}

func TestRootCommandSubcommands(t *testing.T) {
	root := testCLI().RootCommand()

	want := []string{"match", "apply", "rule", "check", "type", "render", "store", "serve", "cache", "completion"}
	have := map[string]bool{}
	for _, cmd := range root.Commands() {
		have[cmd.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestMatchCommand(t *testing.T) {
	dir := t.TempDir()
	hPath := writeTestHierarchy(t, dir)
	pPath := writeTestPattern(t, dir)
	out := filepath.Join(dir, "matches.json")

	err := run(t, testCLI(), "match", hPath, "G", pPath, "--no-cache", "-o", out,
		"--typing", `{"T": {"x": "agent"}}`)
	if err != nil {
		t.Fatalf("match: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	for _, node := range []string{"alice", "bob"} {
		if !bytes.Contains(data, []byte(node)) {
			t.Errorf("output missing match on %q:\n%s", node, data)
		}
	}
	if bytes.Contains(data, []byte("ping")) {
		t.Errorf("typed match should exclude ping:\n%s", data)
	}
}

func TestMatchCommandPatternLimit(t *testing.T) {
	dir := t.TempDir()
	hPath := writeTestHierarchy(t, dir)
	pPath := writeTestPattern(t, dir)

	c := testCLI()
	c.cfg.Matcher.MaxPatternNodes = 0 // no limit
	if err := run(t, c, "match", hPath, "G", pPath, "--no-cache", "-o", filepath.Join(dir, "m.json")); err != nil {
		t.Fatalf("unlimited match: %v", err)
	}

	c = testCLI()
	c.cfg.Matcher.MaxPatternNodes = 1
	two := graph.New()
	_ = two.AddNode("a", nil)
	_ = two.AddNode("b", nil)
	twoPath := filepath.Join(dir, "two.json")
	if err := graph.WriteFile(two, twoPath); err != nil {
		t.Fatal(err)
	}
	if err := run(t, c, "match", hPath, "G", twoPath, "--no-cache"); err == nil {
		t.Fatal("expected pattern limit error")
	}
}

func TestRuleCommand(t *testing.T) {
	dir := t.TempDir()
	pPath := writeTestPattern(t, dir)
	out := filepath.Join(dir, "rule.json")

	err := run(t, testCLI(), "rule", pPath, "--script", "CLONE x AS x2.", "-o", out)
	if err != nil {
		t.Fatalf("rule: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	r, err := rule.Unmarshal(data)
	if err != nil {
		t.Fatalf("parse rule output: %v", err)
	}
	if len(r.ClonedNodes()) != 1 {
		t.Errorf("expected one cloned node, got %v", r.ClonedNodes())
	}
}

func TestApplyCommand(t *testing.T) {
	dir := t.TempDir()
	hPath := writeTestHierarchy(t, dir)
	pPath := writeTestPattern(t, dir)
	rulePath := filepath.Join(dir, "rule.json")
	out := filepath.Join(dir, "result.json")

	c := testCLI()
	if err := run(t, c, "rule", pPath, "--script", "DELETE_NODE x.", "-o", rulePath); err != nil {
		t.Fatalf("rule: %v", err)
	}

	err := run(t, c, "apply", hPath, "G", rulePath,
		"--instance", `{"x": "ping"}`, "-o", out)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	result, err := hierarchy.ReadFile(out)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}
	g, err := result.Graph("G")
	if err != nil {
		t.Fatal(err)
	}
	if g.HasNode("ping") {
		t.Error("ping should be deleted")
	}
	if g.Order() != 2 {
		t.Errorf("Order = %d, want 2", g.Order())
	}
}

func TestApplyCommandAmbiguousWithoutInstance(t *testing.T) {
	dir := t.TempDir()
	hPath := writeTestHierarchy(t, dir)
	pPath := writeTestPattern(t, dir)
	rulePath := filepath.Join(dir, "rule.json")

	c := testCLI()
	if err := run(t, c, "rule", pPath, "-o", rulePath); err != nil {
		t.Fatalf("rule: %v", err)
	}

	// The single-node pattern has three instances in G.
	err := run(t, c, "apply", hPath, "G", rulePath)
	if err == nil {
		t.Fatal("expected ambiguity error")
	}
	if !strings.Contains(err.Error(), "instances") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	hPath := writeTestHierarchy(t, dir)

	if err := run(t, testCLI(), "check", hPath); err != nil {
		t.Fatalf("check: %v", err)
	}
	if err := run(t, testCLI(), "check", filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestTypeCommand(t *testing.T) {
	dir := t.TempDir()
	hPath := writeTestHierarchy(t, dir)

	if err := run(t, testCLI(), "type", hPath, "G", "alice"); err != nil {
		t.Fatalf("type: %v", err)
	}
	if err := run(t, testCLI(), "type", hPath, "G", "nobody"); err == nil {
		t.Fatal("expected error for unknown node")
	}
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	hPath := writeTestHierarchy(t, dir)

	out := filepath.Join(dir, "skeleton.dot")
	if err := run(t, testCLI(), "render", hPath, "-o", out); err != nil {
		t.Fatalf("render: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"digraph", `"T"`, `"G"`} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("DOT output missing %q:\n%s", want, data)
		}
	}

	gOut := filepath.Join(dir, "g.dot")
	if err := run(t, testCLI(), "render", hPath, "-g", "G", "-o", gOut); err != nil {
		t.Fatalf("render graph: %v", err)
	}
	data, err = os.ReadFile(gOut)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("alice")) {
		t.Errorf("graph DOT missing node:\n%s", data)
	}

	if err := run(t, testCLI(), "render", hPath, "-f", "tiff"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestStoreCommandFileBackend(t *testing.T) {
	dir := t.TempDir()
	hPath := writeTestHierarchy(t, dir)
	storeDir := filepath.Join(dir, "store")

	c := testCLI()
	if err := run(t, c, "store", "save", "cells", hPath, "--dir", storeDir); err != nil {
		t.Fatalf("save: %v", err)
	}

	out := filepath.Join(dir, "loaded.json")
	if err := run(t, c, "store", "load", "cells", out, "--dir", storeDir); err != nil {
		t.Fatalf("load: %v", err)
	}
	h, err := hierarchy.ReadFile(out)
	if err != nil {
		t.Fatalf("parse loaded hierarchy: %v", err)
	}
	if len(h.Graphs()) != 2 {
		t.Errorf("loaded %d graphs, want 2", len(h.Graphs()))
	}

	if err := run(t, c, "store", "delete", "cells", "--dir", storeDir); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := run(t, c, "store", "load", "cells", out, "--dir", storeDir); err == nil {
		t.Fatal("expected error after delete")
	}
}

func TestLoadScript(t *testing.T) {
	inline := "DELETE_NODE a."
	got, err := loadScript(inline)
	if err != nil {
		t.Fatal(err)
	}
	if got != inline {
		t.Errorf("inline script = %q, want %q", got, inline)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "edits.txt")
	if err := os.WriteFile(path, []byte(inline), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = loadScript(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != inline {
		t.Errorf("file script = %q, want %q", got, inline)
	}

	if _, err := loadScript("no/such/file"); err == nil {
		t.Fatal("expected error for missing script file")
	}
}

func TestFormatMapping(t *testing.T) {
	m := homomorphism.Mapping{"b": "y", "a": "x"}
	got := formatMapping(m)
	want := "a→x, b→y"
	if got != want {
		t.Errorf("formatMapping = %q, want %q", got, want)
	}
}
