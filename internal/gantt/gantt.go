// Package gantt projects schedule results into timeline rows for display.
package gantt

import (
	"time"

	"github.com/hylla/gantry/internal/domain"
	"github.com/hylla/gantry/internal/graph"
)

// Row is one task on the timeline. Fractions are relative to the project duration.
type Row struct {
	TaskID          string    `json:"task_id"`
	Title           string    `json:"title"`
	Start           time.Time `json:"start"`
	Finish          time.Time `json:"finish"`
	Duration        float64   `json:"duration"`
	LeftFraction    float64   `json:"left_fraction"`
	WidthFraction   float64   `json:"width_fraction"`
	ProgressPercent float64   `json:"progress_percent"`
	IsCritical      bool      `json:"is_critical"`
	IsMilestone     bool      `json:"is_milestone"`
	Slack           float64   `json:"slack"`
}

// Project maps a schedule onto timeline rows in the graph's topological order.
// Tasks missing from result are skipped.
func Project(g *graph.TaskGraph, result domain.ScheduleResult) []Row {
	order := g.TopologicalOrder()
	total := result.DurationDays
	rows := make([]Row, 0, len(order))
	for _, t := range order {
		ts, ok := result.Task(t.ID)
		if !ok {
			continue
		}
		row := Row{
			TaskID:          t.ID,
			Title:           t.Title,
			Start:           ts.StartDate(result.ProjectStart),
			Finish:          ts.FinishDate(result.ProjectStart),
			Duration:        ts.Duration,
			ProgressPercent: t.ProgressPercent,
			IsCritical:      ts.IsCritical,
			IsMilestone:     ts.IsMilestone,
			Slack:           ts.Slack,
		}
		if total > 0 {
			row.LeftFraction = clamp(ts.EarliestStart / total)
			row.WidthFraction = clamp(ts.Duration / total)
		}
		rows = append(rows, row)
	}
	return rows
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
