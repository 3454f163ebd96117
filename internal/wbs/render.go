package wbs

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
	"github.com/hylla/gantry/internal/domain"
)

// RenderTree writes root as an outline, one node per line, with rolled-up
// day offsets for annotated nodes.
func RenderTree(w io.Writer, root *domain.WBSNode) error {
	if root == nil {
		return nil
	}
	_, err := fmt.Fprintln(w, buildTree(root).String())
	return err
}

func buildTree(n *domain.WBSNode) *tree.Tree {
	t := tree.Root(nodeLabel(n)).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("241")))
	for _, child := range n.Children {
		if len(child.Children) == 0 {
			t.Child(nodeLabel(child))
			continue
		}
		t.Child(buildTree(child))
	}
	return t
}

func nodeLabel(n *domain.WBSNode) string {
	title := n.Title
	if !n.IsLeaf() {
		title = lipgloss.NewStyle().Bold(true).Render(title)
	}
	if n.EarliestStart == nil || n.EarliestFinish == nil {
		return title
	}
	span := fmt.Sprintf("[%s–%s]", formatDay(*n.EarliestStart), formatDay(*n.EarliestFinish))
	return title + " " + lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(span)
}

func formatDay(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
