package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/regraft/regraft/pkg/attrs"
)

// =============================================================================
// Graph Serialization API
// =============================================================================

// JSON is the canonical serialization format for typed graphs.
// Attribute sets are serialized as sorted arrays, so a round-trip through
// JSON reproduces the same sets independently of member order.
type JSON struct {
	Nodes []NodeJSON `json:"nodes"`
	Edges []EdgeJSON `json:"edges"`
}

// NodeJSON is the serialized form of a node.
type NodeJSON struct {
	ID    string     `json:"id"`
	Attrs attrs.Dict `json:"attrs,omitempty"`
}

// EdgeJSON is the serialized form of an edge.
type EdgeJSON struct {
	From  string     `json:"from"`
	To    string     `json:"to"`
	Attrs attrs.Dict `json:"attrs,omitempty"`
}

// Marshal converts a graph to JSON bytes.
// Nodes and edges are sorted by ID for deterministic output.
func Marshal(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write writes a graph as indented JSON to an io.Writer.
func Write(g *Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ToJSON(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteFile writes a graph to a JSON file.
// The file is created with 0644 permissions.
func WriteFile(g *Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(g, f)
}

// Read decodes a JSON graph from an io.Reader.
func Read(r io.Reader) (*Graph, error) {
	var data JSON
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return FromJSON(data)
}

// ReadFile reads a JSON file and returns the decoded graph.
func ReadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Unmarshal deserializes JSON bytes into a graph.
func Unmarshal(data []byte) (*Graph, error) {
	return Read(bytes.NewReader(data))
}

// =============================================================================
// Conversion
// =============================================================================

// ToJSON converts a graph to its serialization format.
func ToJSON(g *Graph) JSON {
	out := JSON{
		Nodes: make([]NodeJSON, 0, g.Order()),
		Edges: make([]EdgeJSON, 0, g.Size()),
	}
	for _, id := range g.Nodes() {
		a, _ := g.NodeAttrs(id)
		out.Nodes = append(out.Nodes, NodeJSON{ID: id, Attrs: exportAttrs(a)})
	}
	for _, e := range g.Edges() {
		a, _ := g.EdgeAttrs(e.From, e.To)
		out.Edges = append(out.Edges, EdgeJSON{From: e.From, To: e.To, Attrs: exportAttrs(a)})
	}
	return out
}

// FromJSON converts the serialization format back to a graph.
// Returns an error for duplicate nodes or edges, or edges referencing
// missing nodes.
func FromJSON(data JSON) (*Graph, error) {
	g := New()
	for _, n := range data.Nodes {
		if err := g.AddNode(n.ID, n.Attrs); err != nil {
			return nil, fmt.Errorf("add node %s: %w", n.ID, err)
		}
	}
	for _, e := range data.Edges {
		if err := g.AddEdge(e.From, e.To, e.Attrs); err != nil {
			return nil, fmt.Errorf("add edge %s→%s: %w", e.From, e.To, err)
		}
	}
	return g, nil
}

// exportAttrs drops empty dictionaries so they serialize as absent.
func exportAttrs(a attrs.Dict) attrs.Dict {
	if len(a) == 0 {
		return nil
	}
	return a
}
