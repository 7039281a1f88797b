package rule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/graph"
	"github.com/regraft/regraft/pkg/homomorphism"
)

// =============================================================================
// Rule Serialization API
// =============================================================================

// JSON is the canonical serialization format for rules: the three span
// graphs plus the two legs as plain node-to-node objects.
type JSON struct {
	P    graph.JSON            `json:"p"`
	LHS  graph.JSON            `json:"lhs"`
	RHS  graph.JSON            `json:"rhs"`
	PLHS homomorphism.Mapping `json:"p_lhs"`
	PRHS homomorphism.Mapping `json:"p_rhs"`
}

// Marshal converts a rule to JSON bytes.
func Marshal(r *Rule) ([]byte, error) {
	data, err := json.MarshalIndent(ToJSON(r), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling rule: %w", err)
	}
	return data, nil
}

// Write serializes a rule to a writer.
func Write(r *Rule, w io.Writer) error {
	data, err := Marshal(r)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing rule: %w", err)
	}
	return nil
}

// Read deserializes a rule from a reader.
func Read(rd io.Reader) (*Rule, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rd); err != nil {
		return nil, fmt.Errorf("reading rule: %w", err)
	}
	return Unmarshal(buf.Bytes())
}

// Unmarshal parses JSON bytes into a rule, validating both span legs.
func Unmarshal(data []byte) (*Rule, error) {
	var js JSON
	if err := json.Unmarshal(data, &js); err != nil {
		return nil, rerr.Wrap(rerr.ErrCodeInvalidInput, err, "parsing rule JSON")
	}
	return FromJSON(js)
}

// ToJSON converts a rule to its serializable representation.
func ToJSON(r *Rule) JSON {
	return JSON{
		P:    graph.ToJSON(r.P),
		LHS:  graph.ToJSON(r.LHS),
		RHS:  graph.ToJSON(r.RHS),
		PLHS: r.PLHS.Copy(),
		PRHS: r.PRHS.Copy(),
	}
}

// FromJSON reconstructs a rule from its serialized form.
func FromJSON(js JSON) (*Rule, error) {
	p, err := graph.FromJSON(js.P)
	if err != nil {
		return nil, err
	}
	lhs, err := graph.FromJSON(js.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := graph.FromJSON(js.RHS)
	if err != nil {
		return nil, err
	}
	return New(p, lhs, rhs, js.PLHS, js.PRHS)
}
