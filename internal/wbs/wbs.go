// Package wbs decomposes flat task lists into work-breakdown-structure trees.
package wbs

import (
	"errors"
	"slices"
	"strings"

	"github.com/hylla/gantry/internal/domain"
)

// RootID identifies the synthetic root of every tree.
const RootID = "wbs:root"

// summaryPrefix marks non-leaf node ids.
const summaryPrefix = "wbs:"

// ErrUnknownStrategy reports an unsupported grouping strategy name.
var ErrUnknownStrategy = errors.New("unknown grouping strategy")

// Result carries a best-effort tree and the recoverable problems found while building it.
type Result struct {
	Root     *domain.WBSNode
	Warnings []*domain.AmbiguousParentError
}

// WarningMessages renders warnings as strings for persistence and transports.
func (r Result) WarningMessages() []string {
	out := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		out = append(out, w.Error())
	}
	return out
}

// builder accumulates tree state for one Build call.
type builder struct {
	tasks    []domain.Task
	byID     map[string]domain.Task
	root     *domain.WBSNode
	warnings []*domain.AmbiguousParentError
}

// Build decomposes tasks into a WBS tree rooted at RootID.
// Every task becomes exactly one leaf. Parent problems never fail the build;
// they are reported in Result.Warnings.
func Build(tasks []domain.Task, strategy GroupingStrategy) (Result, error) {
	if strategy == nil {
		strategy = ByExplicitParent{}
	}
	b := &builder{
		tasks: tasks,
		byID:  make(map[string]domain.Task, len(tasks)),
		root:  &domain.WBSNode{ID: RootID},
	}
	for _, t := range tasks {
		if _, dup := b.byID[t.ID]; dup {
			return Result{}, domain.ErrDuplicateTask
		}
		b.byID[t.ID] = t
		if b.root.Title == "" {
			b.root.Title = t.ProjectID
		}
	}
	strategy.assemble(b)
	return Result{Root: b.root, Warnings: b.warnings}, nil
}

// attach appends child under parent and fixes its depth-derived fields.
func attach(parent, child *domain.WBSNode) {
	child.ParentID = parent.ID
	child.Level = parent.Level + 1
	parent.Children = append(parent.Children, child)
}

func leafFor(t domain.Task, title string) *domain.WBSNode {
	return &domain.WBSNode{ID: t.ID, Title: title, TaskID: t.ID}
}

func (ByExplicitParent) assemble(b *builder) {
	parentOf := make(map[string]string, len(b.tasks))
	for _, t := range b.tasks {
		switch {
		case t.ParentID == "":
		case t.ParentID == t.ID:
			b.warn(t, "task is its own parent")
		case !b.known(t.ParentID):
			b.warn(t, "parent not found")
		default:
			parentOf[t.ID] = t.ParentID
		}
	}
	b.breakParentLoops(parentOf)

	children := make(map[string][]domain.Task, len(b.tasks))
	for _, t := range b.tasks {
		children[parentOf[t.ID]] = append(children[parentOf[t.ID]], t)
	}

	var place func(parent *domain.WBSNode, t domain.Task)
	place = func(parent *domain.WBSNode, t domain.Task) {
		kids := children[t.ID]
		if len(kids) == 0 {
			attach(parent, leafFor(t, t.Title))
			return
		}
		// A parent task keeps its own work as the first leaf under its summary node.
		summary := &domain.WBSNode{ID: summaryPrefix + t.ID, Title: t.Title}
		attach(parent, summary)
		attach(summary, leafFor(t, t.Title))
		for _, kid := range kids {
			place(summary, kid)
		}
	}
	for _, t := range children[""] {
		place(b.root, t)
	}
}

// breakParentLoops detaches the lowest-id member of every parent loop.
func (b *builder) breakParentLoops(parentOf map[string]string) {
	ids := make([]string, 0, len(parentOf))
	for id := range parentOf {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, start := range ids {
		var path []string
		onPath := map[string]bool{}
		for cur := start; cur != ""; cur = parentOf[cur] {
			if onPath[cur] {
				loop := path[slices.Index(path, cur):]
				victim := slices.Min(loop)
				b.warn(b.byID[victim], "parent chain loops through "+strings.Join(loop, " -> "))
				delete(parentOf, victim)
				break
			}
			onPath[cur] = true
			path = append(path, cur)
		}
	}
}

func (s ByNamingConvention) assemble(b *builder) {
	delim := s.delimiter()
	groups := map[string]*domain.WBSNode{}
	for _, t := range b.tasks {
		segments := splitTitle(t.Title, delim)
		if len(segments) <= 1 {
			attach(b.root, leafFor(t, t.Title))
			continue
		}
		parent := b.root
		for depth := range segments[:len(segments)-1] {
			key := strings.Join(segments[:depth+1], "\x00")
			group, ok := groups[key]
			if !ok {
				group = &domain.WBSNode{
					ID:    summaryPrefix + strings.Join(segments[:depth+1], "/"),
					Title: segments[depth],
				}
				groups[key] = group
				attach(parent, group)
			}
			parent = group
		}
		attach(parent, leafFor(t, segments[len(segments)-1]))
	}
}

// splitTitle splits a title on delim, trimming segments and dropping empty ones.
func splitTitle(title, delim string) []string {
	raw := strings.Split(title, delim)
	out := make([]string, 0, len(raw))
	for _, seg := range raw {
		if seg = strings.TrimSpace(seg); seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func (b *builder) known(id string) bool {
	_, ok := b.byID[id]
	return ok
}

func (b *builder) warn(t domain.Task, reason string) {
	b.warnings = append(b.warnings, &domain.AmbiguousParentError{
		TaskID:   t.ID,
		ParentID: t.ParentID,
		Reason:   reason,
	})
}
