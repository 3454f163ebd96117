// Package cpm computes critical-path schedules over task graphs.
package cpm

import (
	"fmt"
	"time"

	"github.com/hylla/gantry/internal/domain"
	"github.com/hylla/gantry/internal/graph"
)

// Schedule performs critical path method analysis on a validated task graph.
// Every call builds a fresh result; the graph is never mutated.
func Schedule(g *graph.TaskGraph, projectStart time.Time) domain.ScheduleResult {
	if g == nil || g.Len() == 0 {
		return domain.NewScheduleResult(projectStart, 0, nil, nil)
	}

	order := g.TopologicalOrder()
	rows := make(map[string]*domain.TaskSchedule, len(order))
	for _, t := range order {
		rows[t.ID] = &domain.TaskSchedule{
			TaskID:      t.ID,
			Title:       t.Title,
			Duration:    t.EffectiveDuration(),
			IsMilestone: t.IsMilestone,
		}
	}

	// Forward pass: ES = max(EF of all predecessors), project start for roots.
	for _, t := range order {
		ts := rows[t.ID]
		es := 0.0
		for _, pred := range g.Predecessors(t.ID) {
			if ef := rows[pred].EarliestFinish; ef > es {
				es = ef
			}
		}
		ts.EarliestStart = es
		ts.EarliestFinish = es + ts.Duration
	}

	// Project length is driven by tasks that nothing depends on.
	total := 0.0
	for _, id := range g.Ends() {
		if ef := rows[id].EarliestFinish; ef > total {
			total = ef
		}
	}

	// Backward pass: LF = min(LS of all successors), project end for leaves.
	for i := len(order) - 1; i >= 0; i-- {
		ts := rows[order[i].ID]
		succs := g.Successors(ts.TaskID)
		lf := total
		for _, succ := range succs {
			if ls := rows[succ].LatestStart; ls < lf {
				lf = ls
			}
		}
		ts.LatestFinish = lf
		ts.LatestStart = lf - ts.Duration

		ts.Slack = ts.LatestStart - ts.EarliestStart
		if domain.NearlyEqual(ts.Slack, 0) {
			ts.Slack = 0
		}
		ts.IsCritical = ts.Slack == 0
	}

	out := make([]domain.TaskSchedule, 0, len(order))
	for _, t := range order {
		out = append(out, *rows[t.ID])
	}
	return domain.NewScheduleResult(projectStart, total, criticalPath(g, rows), out)
}

// ScheduleTasks validates tasks into a graph and schedules it.
// Graph errors propagate unchanged and no partial result is produced.
func ScheduleTasks(tasks []domain.Task, projectStart time.Time) (domain.ScheduleResult, error) {
	g, err := graph.Build(tasks)
	if err != nil {
		return domain.ScheduleResult{}, fmt.Errorf("build task graph: %w", err)
	}
	return Schedule(g, projectStart), nil
}

// chainLink records the best zero-slack continuation from one task to an end task.
type chainLink struct {
	length float64
	next   string
	ok     bool
}

// criticalPath selects the zero-slack chain, linked by dependency edges, from a
// start task to an end task with the longest cumulative duration. Ties go to
// the lowest starting id, then the lowest next hop.
func criticalPath(g *graph.TaskGraph, rows map[string]*domain.TaskSchedule) []string {
	order := g.TopologicalIDs()
	best := make(map[string]chainLink, len(order))

	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		ts := rows[id]
		if !ts.IsCritical {
			continue
		}
		succs := g.Successors(id)
		if len(succs) == 0 {
			best[id] = chainLink{length: ts.Duration, ok: true}
			continue
		}
		link := chainLink{}
		for _, succ := range succs {
			cand, ok := best[succ]
			if !ok || !cand.ok {
				continue
			}
			length := ts.Duration + cand.length
			if !link.ok || length > link.length && !domain.NearlyEqual(length, link.length) {
				link = chainLink{length: length, next: succ, ok: true}
			}
		}
		if link.ok {
			best[id] = link
		}
	}

	start := ""
	var startLink chainLink
	for _, id := range g.Starts() {
		cand, ok := best[id]
		if !ok || !cand.ok {
			continue
		}
		if start == "" || cand.length > startLink.length && !domain.NearlyEqual(cand.length, startLink.length) {
			start, startLink = id, cand
		}
	}
	if start == "" {
		return []string{}
	}

	path := []string{start}
	for cur := best[start]; cur.next != ""; cur = best[cur.next] {
		path = append(path, cur.next)
	}
	return path
}
