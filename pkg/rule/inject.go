package rule

import (
	"github.com/regraft/regraft/pkg/attrs"
	rerr "github.com/regraft/regraft/pkg/errors"
)

// The Inject* mutators edit the rule's three graphs and two legs
// simultaneously so that the rule stays a valid span. Every mutator
// re-validates both legs before returning; on error the rule may be left
// partially modified and must be discarded.

// InjectCloneNode makes the rule clone the given LHS node: a fresh P node
// (and matching RHS node) is created as an additional preimage. Returns
// the new P node and the new RHS node.
//
// Fails if the node is unknown in the LHS or already removed by the rule.
func (r *Rule) InjectCloneNode(lhsNode, newID string) (string, string, error) {
	if !r.LHS.HasNode(lhsNode) {
		return "", "", rerr.New(rerr.ErrCodeRuleUnknownNode, "node %q is not an LHS node", lhsNode)
	}
	pre := r.pPreimages(lhsNode)
	if len(pre) == 0 {
		return "", "", rerr.New(rerr.ErrCodeRuleNodeRemoved, "node %q is removed by the rule, cannot clone", lhsNode)
	}
	origin := pre[0]

	pClone, err := r.P.CloneNode(origin, newID)
	if err != nil {
		return "", "", err
	}
	rhsClone, err := r.RHS.CloneNode(r.PRHS[origin], "")
	if err != nil {
		return "", "", err
	}
	r.PLHS[pClone] = lhsNode
	r.PRHS[pClone] = rhsClone

	return pClone, rhsClone, r.validate()
}

// InjectRemoveNode makes the rule remove the given LHS node: all its P
// preimages vanish, together with the RHS nodes left without preimages.
//
// Fails if the node is unknown in the LHS or already removed.
func (r *Rule) InjectRemoveNode(lhsNode string) error {
	if !r.LHS.HasNode(lhsNode) {
		return rerr.New(rerr.ErrCodeRuleUnknownNode, "node %q is not an LHS node", lhsNode)
	}
	pre := r.pPreimages(lhsNode)
	if len(pre) == 0 {
		return rerr.New(rerr.ErrCodeRuleNodeRemoved, "node %q is already removed by the rule", lhsNode)
	}

	affected := map[string]struct{}{}
	for _, p := range pre {
		affected[r.PRHS[p]] = struct{}{}
		if err := r.P.RemoveNode(p); err != nil {
			return err
		}
		delete(r.PLHS, p)
		delete(r.PRHS, p)
	}
	// Drop RHS nodes that lost their last preimage.
	stillUsed := r.PRHS.Image()
	for rhsNode := range affected {
		if _, used := stillUsed[rhsNode]; !used {
			if err := r.RHS.RemoveNode(rhsNode); err != nil {
				return err
			}
		}
	}
	return r.validate()
}

// InjectRemoveEdge makes the rule remove the LHS edge between the given
// nodes: the corresponding P and RHS edges are deleted.
//
// Fails if the LHS edge does not exist or no corresponding P edge remains.
func (r *Rule) InjectRemoveEdge(lhsFrom, lhsTo string) error {
	if !r.LHS.HasEdge(lhsFrom, lhsTo) {
		return rerr.New(rerr.ErrCodeRuleMissingEdge, "edge %q->%q is not an LHS edge", lhsFrom, lhsTo)
	}
	removed := false
	for _, p1 := range r.pPreimages(lhsFrom) {
		for _, p2 := range r.pPreimages(lhsTo) {
			if !r.P.HasEdge(p1, p2) {
				continue
			}
			if err := r.P.RemoveEdge(p1, p2); err != nil {
				return err
			}
			if r.RHS.HasEdge(r.PRHS[p1], r.PRHS[p2]) {
				if err := r.RHS.RemoveEdge(r.PRHS[p1], r.PRHS[p2]); err != nil {
					return err
				}
			}
			removed = true
		}
	}
	if !removed {
		return rerr.New(rerr.ErrCodeRuleMissingEdge,
			"edge %q->%q has no corresponding edge in the preserved part", lhsFrom, lhsTo)
	}
	return r.validate()
}

// InjectRemoveNodeAttrs makes the rule remove the given attribute values
// from the node: they are dropped from every P preimage and its RHS image
// while staying in the LHS, which is what encodes removal.
func (r *Rule) InjectRemoveNodeAttrs(lhsNode string, a attrs.Dict) error {
	if !r.LHS.HasNode(lhsNode) {
		return rerr.New(rerr.ErrCodeRuleUnknownNode, "node %q is not an LHS node", lhsNode)
	}
	la, err := r.LHS.NodeAttrs(lhsNode)
	if err != nil {
		return err
	}
	if !a.SubsetOf(la) {
		return rerr.New(rerr.ErrCodeRuleUnknownNode,
			"attributes to remove are not present on LHS node %q", lhsNode)
	}
	pre := r.pPreimages(lhsNode)
	if len(pre) == 0 {
		return rerr.New(rerr.ErrCodeRuleNodeRemoved, "node %q is already removed by the rule", lhsNode)
	}
	for _, p := range pre {
		if err := r.P.RemoveNodeAttrs(p, a); err != nil {
			return err
		}
		if err := r.RHS.RemoveNodeAttrs(r.PRHS[p], a); err != nil {
			return err
		}
	}
	return r.validate()
}

// InjectRemoveEdgeAttrs makes the rule remove the given attribute values
// from the LHS edge.
func (r *Rule) InjectRemoveEdgeAttrs(lhsFrom, lhsTo string, a attrs.Dict) error {
	if !r.LHS.HasEdge(lhsFrom, lhsTo) {
		return rerr.New(rerr.ErrCodeRuleMissingEdge, "edge %q->%q is not an LHS edge", lhsFrom, lhsTo)
	}
	for _, p1 := range r.pPreimages(lhsFrom) {
		for _, p2 := range r.pPreimages(lhsTo) {
			if !r.P.HasEdge(p1, p2) {
				continue
			}
			if err := r.P.RemoveEdgeAttrs(p1, p2, a); err != nil {
				return err
			}
			if r.RHS.HasEdge(r.PRHS[p1], r.PRHS[p2]) {
				if err := r.RHS.RemoveEdgeAttrs(r.PRHS[p1], r.PRHS[p2], a); err != nil {
					return err
				}
			}
		}
	}
	return r.validate()
}

// InjectAddNode makes the rule add a fresh node with the given attributes.
// The node exists only in the RHS.
func (r *Rule) InjectAddNode(id string, a attrs.Dict) error {
	if r.RHS.HasNode(id) {
		return rerr.New(rerr.ErrCodeRuleDuplicate, "node %q already exists in the RHS", id)
	}
	if err := r.RHS.AddNode(id, a); err != nil {
		return err
	}
	return r.validate()
}

// InjectAddEdge makes the rule add an edge between two RHS nodes.
func (r *Rule) InjectAddEdge(rhsFrom, rhsTo string, a attrs.Dict) error {
	if !r.RHS.HasNode(rhsFrom) {
		return rerr.New(rerr.ErrCodeRuleUnknownNode, "node %q is not an RHS node", rhsFrom)
	}
	if !r.RHS.HasNode(rhsTo) {
		return rerr.New(rerr.ErrCodeRuleUnknownNode, "node %q is not an RHS node", rhsTo)
	}
	if r.RHS.HasEdge(rhsFrom, rhsTo) {
		return rerr.New(rerr.ErrCodeRuleDuplicate, "edge %q->%q already exists in the RHS", rhsFrom, rhsTo)
	}
	if err := r.RHS.AddEdge(rhsFrom, rhsTo, a); err != nil {
		return err
	}
	return r.validate()
}

// InjectMergeNodes makes the rule merge the given LHS nodes: their RHS
// images are merged into a single node. Returns the merged RHS node.
func (r *Rule) InjectMergeNodes(lhsNodes []string, newID string) (string, error) {
	if len(lhsNodes) < 2 {
		return "", rerr.New(rerr.ErrCodeInvalidInput, "merging requires at least two nodes")
	}
	rhsSet := map[string]struct{}{}
	var rhsNodes []string
	var affected []string
	for _, l := range lhsNodes {
		if !r.LHS.HasNode(l) {
			return "", rerr.New(rerr.ErrCodeRuleUnknownNode, "node %q is not an LHS node", l)
		}
		pre := r.pPreimages(l)
		if len(pre) == 0 {
			return "", rerr.New(rerr.ErrCodeRuleNodeRemoved, "node %q is removed by the rule, cannot merge", l)
		}
		for _, p := range pre {
			affected = append(affected, p)
			img := r.PRHS[p]
			if _, seen := rhsSet[img]; !seen {
				rhsSet[img] = struct{}{}
				rhsNodes = append(rhsNodes, img)
			}
		}
	}
	if len(rhsNodes) < 2 {
		return "", rerr.New(rerr.ErrCodeRuleDuplicate, "nodes are already merged by the rule")
	}

	mergedID, err := r.RHS.MergeNodes(rhsNodes, newID)
	if err != nil {
		return "", err
	}
	for _, p := range affected {
		r.PRHS[p] = mergedID
	}
	if err := r.validate(); err != nil {
		return "", err
	}
	return mergedID, nil
}

// InjectAddNodeAttrs makes the rule add attribute values to a node. The
// node may be referenced by its LHS id (for matched nodes) or its RHS id
// (for nodes the rule adds).
func (r *Rule) InjectAddNodeAttrs(node string, a attrs.Dict) error {
	if r.LHS.HasNode(node) {
		pre := r.pPreimages(node)
		if len(pre) == 0 {
			return rerr.New(rerr.ErrCodeRuleNodeRemoved, "node %q is removed by the rule", node)
		}
		for _, p := range pre {
			if err := r.RHS.AddNodeAttrs(r.PRHS[p], a); err != nil {
				return err
			}
		}
		return r.validate()
	}
	if r.RHS.HasNode(node) {
		if err := r.RHS.AddNodeAttrs(node, a); err != nil {
			return err
		}
		return r.validate()
	}
	return rerr.New(rerr.ErrCodeRuleUnknownNode, "node %q is neither an LHS nor an RHS node", node)
}

// InjectAddEdgeAttrs makes the rule add attribute values to an edge,
// referenced by LHS ids when matched or RHS ids when added.
func (r *Rule) InjectAddEdgeAttrs(from, to string, a attrs.Dict) error {
	if r.LHS.HasNode(from) && r.LHS.HasNode(to) {
		added := false
		for _, p1 := range r.pPreimages(from) {
			for _, p2 := range r.pPreimages(to) {
				if r.RHS.HasEdge(r.PRHS[p1], r.PRHS[p2]) {
					if err := r.RHS.AddEdgeAttrs(r.PRHS[p1], r.PRHS[p2], a); err != nil {
						return err
					}
					added = true
				}
			}
		}
		if !added {
			return rerr.New(rerr.ErrCodeRuleMissingEdge, "edge %q->%q does not survive into the RHS", from, to)
		}
		return r.validate()
	}
	if r.RHS.HasEdge(from, to) {
		if err := r.RHS.AddEdgeAttrs(from, to, a); err != nil {
			return err
		}
		return r.validate()
	}
	return rerr.New(rerr.ErrCodeRuleMissingEdge, "edge %q->%q is not known to the rule", from, to)
}

// InjectUpdateNodeAttrs makes the rule replace a node's attributes: the
// old values are removed and the new dictionary fully added.
func (r *Rule) InjectUpdateNodeAttrs(lhsNode string, a attrs.Dict) error {
	if !r.LHS.HasNode(lhsNode) {
		return rerr.New(rerr.ErrCodeRuleUnknownNode, "node %q is not an LHS node", lhsNode)
	}
	pre := r.pPreimages(lhsNode)
	if len(pre) == 0 {
		return rerr.New(rerr.ErrCodeRuleNodeRemoved, "node %q is removed by the rule", lhsNode)
	}
	for _, p := range pre {
		if err := r.P.UpdateNodeAttrs(p, attrs.Dict{}); err != nil {
			return err
		}
		if err := r.RHS.UpdateNodeAttrs(r.PRHS[p], a); err != nil {
			return err
		}
	}
	return r.validate()
}

// InjectUpdateEdgeAttrs makes the rule replace an LHS edge's attributes.
func (r *Rule) InjectUpdateEdgeAttrs(lhsFrom, lhsTo string, a attrs.Dict) error {
	if !r.LHS.HasEdge(lhsFrom, lhsTo) {
		return rerr.New(rerr.ErrCodeRuleMissingEdge, "edge %q->%q is not an LHS edge", lhsFrom, lhsTo)
	}
	for _, p1 := range r.pPreimages(lhsFrom) {
		for _, p2 := range r.pPreimages(lhsTo) {
			if !r.P.HasEdge(p1, p2) {
				continue
			}
			if err := r.P.UpdateEdgeAttrs(p1, p2, attrs.Dict{}); err != nil {
				return err
			}
			if r.RHS.HasEdge(r.PRHS[p1], r.PRHS[p2]) {
				if err := r.RHS.UpdateEdgeAttrs(r.PRHS[p1], r.PRHS[p2], a); err != nil {
					return err
				}
			}
		}
	}
	return r.validate()
}
