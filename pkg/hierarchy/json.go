package hierarchy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/regraft/regraft/pkg/attrs"
	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/graph"
	"github.com/regraft/regraft/pkg/homomorphism"
	"github.com/regraft/regraft/pkg/rule"
)

// =============================================================================
// Hierarchy Serialization API
// =============================================================================

// JSON is the canonical serialization format for hierarchies.
type JSON struct {
	Graphs     []GraphJSON      `json:"graphs"`
	Rules      []RuleJSON       `json:"rules"`
	Typing     []TypingJSON     `json:"typing"`
	RuleTyping []RuleTypingJSON `json:"rule_typing"`
	Relations  []RelationJSON   `json:"relations"`
}

// GraphJSON is the serialized form of a graph node.
type GraphJSON struct {
	ID    string     `json:"id"`
	Graph graph.JSON `json:"graph"`
	Attrs attrs.Dict `json:"attrs,omitempty"`
}

// RuleJSON is the serialized form of a rule node.
type RuleJSON struct {
	ID    string     `json:"id"`
	Rule  rule.JSON  `json:"rule"`
	Attrs attrs.Dict `json:"attrs,omitempty"`
}

// TypingJSON is the serialized form of a typing edge.
type TypingJSON struct {
	From    string               `json:"from"`
	To      string               `json:"to"`
	Mapping homomorphism.Mapping `json:"mapping"`
	Total   bool                 `json:"total"`
	Attrs   attrs.Dict           `json:"attrs,omitempty"`
}

// RuleTypingJSON is the serialized form of a rule typing edge.
type RuleTypingJSON struct {
	From       string               `json:"from"`
	To         string               `json:"to"`
	LHSMapping homomorphism.Mapping `json:"lhs_mapping"`
	RHSMapping homomorphism.Mapping `json:"rhs_mapping"`
	LHSTotal   bool                 `json:"lhs_total"`
	RHSTotal   bool                 `json:"rhs_total"`
	Attrs      attrs.Dict           `json:"attrs,omitempty"`
}

// RelationJSON is the serialized form of a relation edge.
type RelationJSON struct {
	From  string              `json:"from"`
	To    string              `json:"to"`
	Rel   map[string][]string `json:"rel"`
	Attrs attrs.Dict          `json:"attrs,omitempty"`
}

// Marshal converts a hierarchy to JSON bytes with deterministic ordering.
func Marshal(h *Hierarchy) ([]byte, error) {
	js, err := ToJSON(h)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(js, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling hierarchy: %w", err)
	}
	return data, nil
}

// Write serializes a hierarchy to a writer.
func Write(h *Hierarchy, w io.Writer) error {
	data, err := Marshal(h)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing hierarchy: %w", err)
	}
	return nil
}

// WriteFile serializes a hierarchy to a file.
func WriteFile(h *Hierarchy, path string) error {
	data, err := Marshal(h)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing hierarchy file: %w", err)
	}
	return nil
}

// Read deserializes a hierarchy from a reader.
func Read(r io.Reader) (*Hierarchy, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("reading hierarchy: %w", err)
	}
	return Unmarshal(buf.Bytes())
}

// ReadFile deserializes a hierarchy from a file.
func ReadFile(path string) (*Hierarchy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hierarchy file: %w", err)
	}
	return Unmarshal(data)
}

// Unmarshal parses JSON bytes into a hierarchy, re-running every
// consistency check along the way.
func Unmarshal(data []byte) (*Hierarchy, error) {
	var js JSON
	if err := json.Unmarshal(data, &js); err != nil {
		return nil, rerr.Wrap(rerr.ErrCodeInvalidInput, err, "parsing hierarchy JSON")
	}
	return FromJSON(js)
}

// ToJSON converts a hierarchy to its serializable representation.
func ToJSON(h *Hierarchy) (JSON, error) {
	js := JSON{
		Graphs:     []GraphJSON{},
		Rules:      []RuleJSON{},
		Typing:     []TypingJSON{},
		RuleTyping: []RuleTypingJSON{},
		Relations:  []RelationJSON{},
	}
	for _, id := range h.Graphs() {
		gn := h.graphs[id]
		js.Graphs = append(js.Graphs, GraphJSON{
			ID:    id,
			Graph: graph.ToJSON(gn.graph),
			Attrs: gn.attrs,
		})
	}
	for _, id := range h.Rules() {
		rn := h.rules[id]
		js.Rules = append(js.Rules, RuleJSON{
			ID:    id,
			Rule:  rule.ToJSON(rn.rule),
			Attrs: rn.attrs,
		})
	}
	for _, e := range h.Typings() {
		t := h.typings[e.From][e.To]
		js.Typing = append(js.Typing, TypingJSON{
			From:    e.From,
			To:      e.To,
			Mapping: t.M,
			Total:   t.Total,
			Attrs:   t.Attrs,
		})
	}
	for _, e := range h.RuleTypings() {
		t := h.ruleTypings[e.From][e.To]
		js.RuleTyping = append(js.RuleTyping, RuleTypingJSON{
			From:       e.From,
			To:         e.To,
			LHSMapping: t.LHS,
			RHSMapping: t.RHS,
			LHSTotal:   t.LHSTotal,
			RHSTotal:   t.RHSTotal,
			Attrs:      t.Attrs,
		})
	}
	for _, e := range h.Relations() {
		r := h.relations[e.From][e.To]
		rel := map[string][]string{}
		for l, partners := range r.Rel {
			for p := range partners {
				rel[l] = append(rel[l], p)
			}
			slices.Sort(rel[l])
		}
		js.Relations = append(js.Relations, RelationJSON{
			From:  e.From,
			To:    e.To,
			Rel:   rel,
			Attrs: r.Attrs,
		})
	}
	return js, nil
}

// FromJSON reconstructs a hierarchy from its serialized form. Every
// structural insertion goes through the validating operations, so a
// corrupted file fails with the matching consistency error.
func FromJSON(js JSON) (*Hierarchy, error) {
	h := New()
	for _, gj := range js.Graphs {
		g, err := graph.FromJSON(gj.Graph)
		if err != nil {
			return nil, err
		}
		if err := h.AddGraph(gj.ID, g, gj.Attrs); err != nil {
			return nil, err
		}
	}
	for _, rj := range js.Rules {
		r, err := rule.FromJSON(rj.Rule)
		if err != nil {
			return nil, err
		}
		if err := h.AddRule(rj.ID, r, rj.Attrs); err != nil {
			return nil, err
		}
	}
	for _, tj := range js.Typing {
		if err := h.AddTyping(tj.From, tj.To, tj.Mapping, tj.Total, tj.Attrs); err != nil {
			return nil, err
		}
	}
	for _, tj := range js.RuleTyping {
		if err := h.AddRuleTyping(tj.From, tj.To, tj.LHSMapping, tj.RHSMapping, tj.LHSTotal, tj.RHSTotal, tj.Attrs); err != nil {
			return nil, err
		}
	}
	for _, rj := range js.Relations {
		if err := h.AddRelation(rj.From, rj.To, rj.Rel, rj.Attrs); err != nil {
			return nil, err
		}
	}
	return h, nil
}
