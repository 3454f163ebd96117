package wbs

import "github.com/hylla/gantry/internal/domain"

// Walk visits nodes depth-first in child order.
func Walk(root *domain.WBSNode, fn func(*domain.WBSNode)) {
	if root == nil {
		return
	}
	fn(root)
	for _, child := range root.Children {
		Walk(child, fn)
	}
}

// Leaves returns the leaf nodes in depth-first order.
func Leaves(root *domain.WBSNode) []*domain.WBSNode {
	var out []*domain.WBSNode
	Walk(root, func(n *domain.WBSNode) {
		if n.IsLeaf() {
			out = append(out, n)
		}
	})
	return out
}

// LeafTaskIDs returns the task ids of all leaves in depth-first order.
func LeafTaskIDs(root *domain.WBSNode) []string {
	leaves := Leaves(root)
	out := make([]string, 0, len(leaves))
	for _, leaf := range leaves {
		out = append(out, leaf.TaskID)
	}
	return out
}

// Annotate returns a copy of root whose nodes carry scheduled dates.
// Leaves take their task's earliest start/finish; every other node spans
// the earliest start and latest finish of its descendant leaves.
func Annotate(root *domain.WBSNode, result domain.ScheduleResult) *domain.WBSNode {
	out := root.Clone()
	rollup(out, result)
	return out
}

func rollup(n *domain.WBSNode, result domain.ScheduleResult) {
	if n == nil {
		return
	}
	n.EarliestStart, n.EarliestFinish = nil, nil
	if n.IsLeaf() {
		if ts, ok := result.Task(n.TaskID); ok {
			es, ef := ts.EarliestStart, ts.EarliestFinish
			n.EarliestStart, n.EarliestFinish = &es, &ef
		}
		return
	}
	for _, child := range n.Children {
		rollup(child, result)
		if child.EarliestStart == nil || child.EarliestFinish == nil {
			continue
		}
		if n.EarliestStart == nil || *child.EarliestStart < *n.EarliestStart {
			v := *child.EarliestStart
			n.EarliestStart = &v
		}
		if n.EarliestFinish == nil || *child.EarliestFinish > *n.EarliestFinish {
			v := *child.EarliestFinish
			n.EarliestFinish = &v
		}
	}
}
