package domain

import (
	"math"
	"slices"
	"strings"
	"time"
)

// Task is one schedulable unit of work inside a project snapshot.
type Task struct {
	ID              string
	ProjectID       string
	ParentID        string
	Position        int
	Title           string
	Duration        float64
	Predecessors    []string
	IsMilestone     bool
	ProgressPercent float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TaskInput holds write-time values for NewTask.
type TaskInput struct {
	ID              string
	ProjectID       string
	ParentID        string
	Position        int
	Title           string
	Duration        float64
	Predecessors    []string
	IsMilestone     bool
	ProgressPercent float64
}

// NewTask validates one task record at the data-entry boundary.
func NewTask(in TaskInput, now time.Time) (Task, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.ProjectID = strings.TrimSpace(in.ProjectID)
	in.ParentID = strings.TrimSpace(in.ParentID)
	in.Title = strings.TrimSpace(in.Title)

	if in.ID == "" || in.ProjectID == "" {
		return Task{}, ErrInvalidID
	}
	if in.Title == "" {
		return Task{}, ErrInvalidTitle
	}
	if in.Duration < 0 || math.IsNaN(in.Duration) || math.IsInf(in.Duration, 0) {
		return Task{}, ErrInvalidDuration
	}
	if in.ProgressPercent < 0 || in.ProgressPercent > 100 || math.IsNaN(in.ProgressPercent) {
		return Task{}, ErrInvalidProgress
	}
	preds := normalizePredecessors(in.Predecessors)
	if slices.Contains(preds, in.ID) {
		return Task{}, ErrInvalidPredecessor
	}
	if in.IsMilestone {
		in.Duration = 0
	}

	return Task{
		ID:              in.ID,
		ProjectID:       in.ProjectID,
		ParentID:        in.ParentID,
		Position:        max(in.Position, 0),
		Title:           in.Title,
		Duration:        in.Duration,
		Predecessors:    preds,
		IsMilestone:     in.IsMilestone,
		ProgressPercent: in.ProgressPercent,
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}, nil
}

// EffectiveDuration returns the scheduling duration; milestones always take zero time.
func (t Task) EffectiveDuration() float64 {
	if t.IsMilestone {
		return 0
	}
	return t.Duration
}

// normalizePredecessors trims, deduplicates, and sorts predecessor ids.
func normalizePredecessors(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := map[string]struct{}{}
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
