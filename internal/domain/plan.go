package domain

import "time"

// SchedulePlan is the persisted outcome of one WBS generation run.
type SchedulePlan struct {
	ProjectID    string         `json:"project_id"`
	RunID        string         `json:"run_id"`
	Strategy     string         `json:"strategy"`
	GeneratedAt  time.Time      `json:"generated_at"`
	ProjectStart time.Time      `json:"project_start"`
	ProjectEnd   time.Time      `json:"project_end"`
	DurationDays float64        `json:"duration_days"`
	CriticalPath []string       `json:"critical_path"`
	WBS          *WBSNode       `json:"wbs"`
	Schedules    []TaskSchedule `json:"schedules"`
	Warnings     []string       `json:"warnings,omitempty"`
}
