// Package graph builds validated, immutable task dependency graphs.
package graph

import (
	"container/heap"
	"slices"
	"sort"

	"github.com/hylla/gantry/internal/domain"
)

// TaskGraph is a directed acyclic graph of finish-to-start task dependencies.
type TaskGraph struct {
	projectID string
	tasks     []domain.Task
	index     map[string]int
	adj       map[string][]string // task -> successors
	revAdj    map[string][]string // task -> predecessors
	starts    []string
	ends      []string
	topo      []string
}

// Build validates tasks and constructs a TaskGraph.
// It fails with *domain.DanglingReferenceError or *domain.CycleError.
func Build(tasks []domain.Task) (*TaskGraph, error) {
	g := &TaskGraph{
		tasks:  make([]domain.Task, 0, len(tasks)),
		index:  make(map[string]int, len(tasks)),
		adj:    make(map[string][]string, len(tasks)),
		revAdj: make(map[string][]string, len(tasks)),
	}

	for _, t := range tasks {
		if _, dup := g.index[t.ID]; dup {
			return nil, domain.ErrDuplicateTask
		}
		if g.projectID == "" {
			g.projectID = t.ProjectID
		}
		t.Predecessors = slices.Clone(t.Predecessors)
		if t.IsMilestone {
			t.Duration = 0
		}
		g.index[t.ID] = len(g.tasks)
		g.tasks = append(g.tasks, t)
	}

	ids := g.sortedIDs()
	for _, id := range ids {
		t := g.tasks[g.index[id]]
		preds := slices.Clone(t.Predecessors)
		sort.Strings(preds)
		for _, pred := range preds {
			if _, ok := g.index[pred]; !ok {
				return nil, &domain.DanglingReferenceError{TaskID: id, PredecessorID: pred}
			}
		}
	}

	edgeSet := make(map[[2]string]bool)
	for _, id := range ids {
		for _, pred := range g.tasks[g.index[id]].Predecessors {
			key := [2]string{pred, id}
			if edgeSet[key] {
				continue
			}
			edgeSet[key] = true
			g.adj[pred] = append(g.adj[pred], id)
			g.revAdj[id] = append(g.revAdj[id], pred)
		}
	}
	for k := range g.adj {
		sort.Strings(g.adj[k])
	}
	for k := range g.revAdj {
		sort.Strings(g.revAdj[k])
	}

	for _, id := range ids {
		if len(g.revAdj[id]) == 0 {
			g.starts = append(g.starts, id)
		}
		if len(g.adj[id]) == 0 {
			g.ends = append(g.ends, id)
		}
	}

	if cycle := g.detectCycle(ids); cycle != nil {
		return nil, &domain.CycleError{Cycle: cycle}
	}
	g.topo = g.kahn()
	return g, nil
}

// detectCycle returns the cycle path if one exists, or nil if the graph is acyclic.
// Uses DFS with a recursion stack: white (unvisited), gray (on stack), black (done).
func (g *TaskGraph) detectCycle(ids []string) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[string]int, len(ids))
	var stack []string

	var dfs func(node string) []string
	dfs = func(node string) []string {
		color[node] = gray
		stack = append(stack, node)
		for _, next := range g.adj[node] {
			switch color[next] {
			case gray:
				start := slices.Index(stack, next)
				cycle := slices.Clone(stack[start:])
				return append(cycle, next)
			case white:
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[node] = black
		return nil
	}

	for _, id := range ids {
		if color[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// kahn orders ids topologically, always releasing the smallest ready id first.
func (g *TaskGraph) kahn() []string {
	inDegree := make(map[string]int, len(g.tasks))
	ready := &idHeap{}
	for _, t := range g.tasks {
		inDegree[t.ID] = len(g.revAdj[t.ID])
		if inDegree[t.ID] == 0 {
			heap.Push(ready, t.ID)
		}
	}

	order := make([]string, 0, len(g.tasks))
	for ready.Len() > 0 {
		node := heap.Pop(ready).(string)
		order = append(order, node)
		for _, succ := range g.adj[node] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				heap.Push(ready, succ)
			}
		}
	}
	return order
}

func (g *TaskGraph) sortedIDs() []string {
	ids := make([]string, 0, len(g.tasks))
	for _, t := range g.tasks {
		ids = append(ids, t.ID)
	}
	sort.Strings(ids)
	return ids
}

// ProjectID returns the project the tasks belong to.
func (g *TaskGraph) ProjectID() string {
	return g.projectID
}

// Len returns the number of tasks in the graph.
func (g *TaskGraph) Len() int {
	return len(g.tasks)
}

// Task returns one task by id.
func (g *TaskGraph) Task(id string) (domain.Task, bool) {
	i, ok := g.index[id]
	if !ok {
		return domain.Task{}, false
	}
	return cloneTask(g.tasks[i]), true
}

// Tasks returns all tasks in input order.
func (g *TaskGraph) Tasks() []domain.Task {
	out := make([]domain.Task, 0, len(g.tasks))
	for _, t := range g.tasks {
		out = append(out, cloneTask(t))
	}
	return out
}

// TopologicalOrder returns tasks so every predecessor precedes its successors.
// Ties are broken by ascending task id.
func (g *TaskGraph) TopologicalOrder() []domain.Task {
	out := make([]domain.Task, 0, len(g.topo))
	for _, id := range g.topo {
		out = append(out, cloneTask(g.tasks[g.index[id]]))
	}
	return out
}

// TopologicalIDs returns the topological order as task ids.
func (g *TaskGraph) TopologicalIDs() []string {
	return slices.Clone(g.topo)
}

// Predecessors returns the sorted predecessor ids of one task.
func (g *TaskGraph) Predecessors(id string) []string {
	return slices.Clone(g.revAdj[id])
}

// Successors returns the sorted successor ids of one task.
func (g *TaskGraph) Successors(id string) []string {
	return slices.Clone(g.adj[id])
}

// Starts returns tasks with no predecessors.
func (g *TaskGraph) Starts() []string {
	return slices.Clone(g.starts)
}

// Ends returns tasks with no successors.
func (g *TaskGraph) Ends() []string {
	return slices.Clone(g.ends)
}

func cloneTask(t domain.Task) domain.Task {
	t.Predecessors = slices.Clone(t.Predecessors)
	return t
}

// idHeap is a min-heap of task ids.
type idHeap []string

func (h idHeap) Len() int           { return len(h) }
func (h idHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x any)        { *h = append(*h, x.(string)) }
func (h *idHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
