package domain

// WBSNode is one node of a work-breakdown-structure tree.
type WBSNode struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Level    int        `json:"level"`
	ParentID string     `json:"parent_id,omitempty"`
	TaskID   string     `json:"task_id,omitempty"`
	Children []*WBSNode `json:"children,omitempty"`

	// EarliestStart and EarliestFinish are populated after a schedule pass.
	EarliestStart  *float64 `json:"earliest_start,omitempty"`
	EarliestFinish *float64 `json:"earliest_finish,omitempty"`
}

// IsLeaf reports whether the node maps directly to a task.
func (n *WBSNode) IsLeaf() bool {
	return n != nil && len(n.Children) == 0 && n.TaskID != ""
}

// Duration returns the rolled-up span in days, or zero when not annotated.
func (n *WBSNode) Duration() float64 {
	if n == nil || n.EarliestStart == nil || n.EarliestFinish == nil {
		return 0
	}
	return *n.EarliestFinish - *n.EarliestStart
}

// Clone deep-copies the subtree rooted at n.
func (n *WBSNode) Clone() *WBSNode {
	if n == nil {
		return nil
	}
	out := *n
	if n.EarliestStart != nil {
		v := *n.EarliestStart
		out.EarliestStart = &v
	}
	if n.EarliestFinish != nil {
		v := *n.EarliestFinish
		out.EarliestFinish = &v
	}
	out.Children = nil
	if len(n.Children) > 0 {
		out.Children = make([]*WBSNode, 0, len(n.Children))
		for _, child := range n.Children {
			out.Children = append(out.Children, child.Clone())
		}
	}
	return &out
}
