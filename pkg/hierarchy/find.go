package hierarchy

import (
	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/graph"
	"github.com/regraft/regraft/pkg/homomorphism"
	"github.com/regraft/regraft/pkg/match"
)

// FindMatching enumerates the matches of a pattern in one of the
// hierarchy's graphs. patternTyping optionally types pattern nodes into
// ancestor graphs (type graphid -> pattern node -> type node); a host
// node may then only play a pattern node whose declared type agrees with
// the host node's composed type.
func (h *Hierarchy) FindMatching(graphID string, pattern *graph.Graph, patternTyping map[string]homomorphism.Mapping) ([]homomorphism.Mapping, error) {
	gn, ok := h.graphs[graphID]
	if !ok {
		return nil, rerr.New(rerr.ErrCodeUnknownID, "graph %q does not exist", graphID)
	}
	constraints, err := h.typingConstraints(graphID, patternTyping)
	if err != nil {
		return nil, err
	}
	return match.Find(gn.graph, pattern, constraints)
}

// FindRuleMatching enumerates the matches of a stored rule's left-hand
// side in a graph, deriving the pattern typing from the rule's typing
// edges in the hierarchy.
func (h *Hierarchy) FindRuleMatching(graphID, ruleID string) ([]homomorphism.Mapping, error) {
	rn, ok := h.rules[ruleID]
	if !ok {
		return nil, rerr.New(rerr.ErrCodeUnknownID, "rule %q does not exist", ruleID)
	}
	gn, ok := h.graphs[graphID]
	if !ok {
		return nil, rerr.New(rerr.ErrCodeUnknownID, "graph %q does not exist", graphID)
	}
	patternTyping := map[string]homomorphism.Mapping{}
	for to, rt := range h.ruleTypings[ruleID] {
		patternTyping[to] = rt.LHS
	}
	constraints, err := h.typingConstraints(graphID, patternTyping)
	if err != nil {
		return nil, err
	}
	return match.Find(gn.graph, rn.rule.LHS, constraints)
}

// typingConstraints turns pattern typings into matcher constraints by
// composing the host graph's typing path to each referenced type graph.
func (h *Hierarchy) typingConstraints(graphID string, patternTyping map[string]homomorphism.Mapping) ([]match.TypingConstraint, error) {
	var out []match.TypingConstraint
	for typeID, pm := range patternTyping {
		if _, ok := h.graphs[typeID]; !ok {
			return nil, rerr.New(rerr.ErrCodeUnknownID, "typing graph %q does not exist", typeID)
		}
		gm, ok := h.ComposePath(graphID, typeID)
		if !ok {
			return nil, rerr.New(rerr.ErrCodeInvalidTyping,
				"graph %q is not typed by %q", graphID, typeID)
		}
		out = append(out, match.TypingConstraint{Pattern: pm, Graph: gm})
	}
	return out, nil
}
