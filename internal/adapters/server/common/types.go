// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"

	"github.com/hylla/gantry/internal/domain"
)

// DateLayout is the calendar-day format used for dates on the wire.
const DateLayout = "2006-01-02"

// ErrInvalidRequest reports malformed or invalid transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrInvalidGraph reports a task set whose dependencies cannot be scheduled.
var ErrInvalidGraph = errors.New("invalid dependency graph")

// CreateProjectRequest captures input for new projects.
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// StartDate accepts YYYY-MM-DD or RFC3339.
	StartDate string `json:"start_date"`
}

// ProjectView is the wire form of one project.
type ProjectView struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	StartDate   string     `json:"start_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
}

// TaskPayload is the wire form of one task record.
type TaskPayload struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Duration        float64  `json:"duration"`
	Predecessors    []string `json:"predecessors,omitempty"`
	ParentID        string   `json:"parent_id,omitempty"`
	Position        int      `json:"position,omitempty"`
	IsMilestone     bool     `json:"is_milestone,omitempty"`
	ProgressPercent float64  `json:"progress_percent,omitempty"`
}

// ReplaceTasksRequest replaces the whole task set of one project.
type ReplaceTasksRequest struct {
	ProjectID string        `json:"-"`
	Tasks     []TaskPayload `json:"tasks"`
}

// GenerateWBSRequest captures one WBS generation run.
type GenerateWBSRequest struct {
	ProjectID string `json:"-"`
	Strategy  string `json:"strategy,omitempty"`
	Delimiter string `json:"delimiter,omitempty"`
}

// GenerateWBSResponse reports the outcome of one generation run.
type GenerateWBSResponse struct {
	Status       string   `json:"status"`
	RunID        string   `json:"run_id"`
	Strategy     string   `json:"strategy"`
	ProjectEnd   string   `json:"project_end"`
	CriticalPath []string `json:"critical_path"`
	Warnings     []string `json:"warnings"`
}

// GanttTask is one drawable timeline row.
type GanttTask struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Start           string  `json:"start"`
	Finish          string  `json:"finish"`
	Duration        float64 `json:"duration"`
	EarliestStart   float64 `json:"earliest_start"`
	EarliestFinish  float64 `json:"earliest_finish"`
	LatestStart     float64 `json:"latest_start"`
	LatestFinish    float64 `json:"latest_finish"`
	Slack           float64 `json:"slack"`
	LeftFraction    float64 `json:"left_fraction"`
	WidthFraction   float64 `json:"width_fraction"`
	ProgressPercent float64 `json:"progress_percent"`
	IsCritical      bool    `json:"is_critical"`
	IsMilestone     bool    `json:"is_milestone"`
}

// GanttResponse is the freshly computed timeline for one project.
type GanttResponse struct {
	ProjectID    string      `json:"project_id"`
	ProjectStart string      `json:"project_start"`
	ProjectEnd   string      `json:"project_end"`
	DurationDays float64     `json:"duration_days"`
	Tasks        []GanttTask `json:"tasks"`
	CriticalPath []string    `json:"critical_path"`
}

// ProjectService captures project and task-snapshot operations.
type ProjectService interface {
	CreateProject(context.Context, CreateProjectRequest) (ProjectView, error)
	ListProjects(context.Context, bool) ([]ProjectView, error)
	GetProject(context.Context, string) (ProjectView, error)
	ReplaceTasks(context.Context, ReplaceTasksRequest) ([]TaskPayload, error)
	ListTasks(context.Context, string) ([]TaskPayload, error)
}

// ScheduleService captures WBS generation and timeline reads.
type ScheduleService interface {
	GenerateWBS(context.Context, GenerateWBSRequest) (GenerateWBSResponse, error)
	GetPlan(context.Context, string) (domain.SchedulePlan, error)
	Gantt(context.Context, string) (GanttResponse, error)
}

// Service is the full transport surface served by HTTP and MCP adapters.
type Service interface {
	ProjectService
	ScheduleService
}
