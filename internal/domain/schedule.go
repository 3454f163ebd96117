package domain

import (
	"math"
	"time"
)

// dayEpsilon absorbs float rounding when comparing day offsets.
const dayEpsilon = 1e-9

// NearlyEqual reports whether two day offsets are equal within scheduling tolerance.
func NearlyEqual(a, b float64) bool {
	return math.Abs(a-b) <= dayEpsilon
}

// TaskSchedule holds the computed CPM fields for one task. Offsets are days from project start.
type TaskSchedule struct {
	TaskID         string  `json:"task_id"`
	Title          string  `json:"title"`
	Duration       float64 `json:"duration"`
	IsMilestone    bool    `json:"is_milestone"`
	EarliestStart  float64 `json:"earliest_start"`
	EarliestFinish float64 `json:"earliest_finish"`
	LatestStart    float64 `json:"latest_start"`
	LatestFinish   float64 `json:"latest_finish"`
	Slack          float64 `json:"slack"`
	IsCritical     bool    `json:"is_critical"`
}

// StartDate returns the display date of the earliest start.
func (s TaskSchedule) StartDate(projectStart time.Time) time.Time {
	return DisplayStartDate(projectStart, s.EarliestStart)
}

// FinishDate returns the display date of the earliest finish, rounded up to a whole day.
func (s TaskSchedule) FinishDate(projectStart time.Time) time.Time {
	return DisplayFinishDate(projectStart, s.EarliestFinish)
}

// ScheduleResult is the ephemeral output of one scheduling pass.
type ScheduleResult struct {
	ProjectStart time.Time
	ProjectEnd   time.Time
	// DurationDays is the exact project length in days.
	DurationDays float64
	CriticalPath []string
	// Tasks is in topological order.
	Tasks []TaskSchedule

	index map[string]int
}

// NewScheduleResult assembles a result and indexes its task rows.
func NewScheduleResult(start time.Time, duration float64, criticalPath []string, tasks []TaskSchedule) ScheduleResult {
	start = DayStart(start)
	index := make(map[string]int, len(tasks))
	for i, ts := range tasks {
		index[ts.TaskID] = i
	}
	if criticalPath == nil {
		criticalPath = []string{}
	}
	return ScheduleResult{
		ProjectStart: start,
		ProjectEnd:   DisplayFinishDate(start, duration),
		DurationDays: duration,
		CriticalPath: criticalPath,
		Tasks:        tasks,
		index:        index,
	}
}

// Task returns the computed row for one task id.
func (r ScheduleResult) Task(id string) (TaskSchedule, bool) {
	if r.index == nil {
		for _, ts := range r.Tasks {
			if ts.TaskID == id {
				return ts, true
			}
		}
		return TaskSchedule{}, false
	}
	i, ok := r.index[id]
	if !ok {
		return TaskSchedule{}, false
	}
	return r.Tasks[i], true
}

// Len returns the number of scheduled tasks.
func (r ScheduleResult) Len() int {
	return len(r.Tasks)
}
