package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hylla/gantry/internal/app"
	"github.com/hylla/gantry/internal/domain"
	"github.com/hylla/gantry/internal/wbs"
)

// AppServiceAdapter maps transport contracts onto app.Service APIs.
type AppServiceAdapter struct {
	service *app.Service
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

var errAdapterNotConfigured = fmt.Errorf("app service adapter is not configured: %w", ErrInvalidRequest)

// CreateProject creates one project.
func (a *AppServiceAdapter) CreateProject(ctx context.Context, in CreateProjectRequest) (ProjectView, error) {
	if a == nil || a.service == nil {
		return ProjectView{}, errAdapterNotConfigured
	}
	start, err := ParseDate(in.StartDate)
	if err != nil {
		return ProjectView{}, err
	}
	project, err := a.service.CreateProject(ctx, app.CreateProjectInput{
		Name:        in.Name,
		Description: in.Description,
		StartDate:   start,
	})
	if err != nil {
		return ProjectView{}, mapAppError("create project", err)
	}
	return ProjectViewFromDomain(project), nil
}

// ListProjects returns project rows from app-level APIs.
func (a *AppServiceAdapter) ListProjects(ctx context.Context, includeArchived bool) ([]ProjectView, error) {
	if a == nil || a.service == nil {
		return nil, errAdapterNotConfigured
	}
	projects, err := a.service.ListProjects(ctx, includeArchived)
	if err != nil {
		return nil, mapAppError("list projects", err)
	}
	out := make([]ProjectView, 0, len(projects))
	for _, p := range projects {
		out = append(out, ProjectViewFromDomain(p))
	}
	return out, nil
}

// GetProject returns one project.
func (a *AppServiceAdapter) GetProject(ctx context.Context, projectID string) (ProjectView, error) {
	if a == nil || a.service == nil {
		return ProjectView{}, errAdapterNotConfigured
	}
	project, err := a.service.GetProject(ctx, projectID)
	if err != nil {
		return ProjectView{}, mapAppError("get project", err)
	}
	return ProjectViewFromDomain(project), nil
}

// ReplaceTasks validates and stores a project's complete task set.
func (a *AppServiceAdapter) ReplaceTasks(ctx context.Context, in ReplaceTasksRequest) ([]TaskPayload, error) {
	if a == nil || a.service == nil {
		return nil, errAdapterNotConfigured
	}
	inputs := make([]domain.TaskInput, 0, len(in.Tasks))
	for _, t := range in.Tasks {
		inputs = append(inputs, t.toInput())
	}
	tasks, err := a.service.ImportTasks(ctx, app.ImportTasksInput{ProjectID: in.ProjectID, Tasks: inputs})
	if err != nil {
		return nil, mapAppError("replace tasks", err)
	}
	return taskPayloads(tasks), nil
}

// ListTasks lists the current task set of one project.
func (a *AppServiceAdapter) ListTasks(ctx context.Context, projectID string) ([]TaskPayload, error) {
	if a == nil || a.service == nil {
		return nil, errAdapterNotConfigured
	}
	tasks, err := a.service.ListTasks(ctx, projectID)
	if err != nil {
		return nil, mapAppError("list tasks", err)
	}
	return taskPayloads(tasks), nil
}

// GenerateWBS runs one WBS generation and returns its status summary.
func (a *AppServiceAdapter) GenerateWBS(ctx context.Context, in GenerateWBSRequest) (GenerateWBSResponse, error) {
	if a == nil || a.service == nil {
		return GenerateWBSResponse{}, errAdapterNotConfigured
	}
	plan, err := a.service.GenerateWBS(ctx, app.GenerateWBSInput{
		ProjectID: in.ProjectID,
		Strategy:  in.Strategy,
		Delimiter: in.Delimiter,
	})
	if err != nil {
		return GenerateWBSResponse{}, mapAppError("generate wbs", err)
	}
	warnings := plan.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return GenerateWBSResponse{
		Status:       "ok",
		RunID:        plan.RunID,
		Strategy:     plan.Strategy,
		ProjectEnd:   plan.ProjectEnd.Format(DateLayout),
		CriticalPath: plan.CriticalPath,
		Warnings:     warnings,
	}, nil
}

// GetPlan returns the latest persisted plan.
func (a *AppServiceAdapter) GetPlan(ctx context.Context, projectID string) (domain.SchedulePlan, error) {
	if a == nil || a.service == nil {
		return domain.SchedulePlan{}, errAdapterNotConfigured
	}
	plan, err := a.service.GetPlan(ctx, projectID)
	if err != nil {
		return domain.SchedulePlan{}, mapAppError("get plan", err)
	}
	return plan, nil
}

// Gantt recomputes the timeline from the persisted task set.
func (a *AppServiceAdapter) Gantt(ctx context.Context, projectID string) (GanttResponse, error) {
	if a == nil || a.service == nil {
		return GanttResponse{}, errAdapterNotConfigured
	}
	view, err := a.service.Gantt(ctx, projectID)
	if err != nil {
		return GanttResponse{}, mapAppError("gantt", err)
	}
	return GanttResponseFromView(view), nil
}

// ProjectViewFromDomain converts one project to its wire form.
func ProjectViewFromDomain(p domain.Project) ProjectView {
	return ProjectView{
		ID:          p.ID,
		Slug:        p.Slug,
		Name:        p.Name,
		Description: p.Description,
		StartDate:   p.StartDate.Format(DateLayout),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		ArchivedAt:  p.ArchivedAt,
	}
}

// GanttResponseFromView converts a computed timeline to its wire form.
func GanttResponseFromView(view app.GanttView) GanttResponse {
	rows := make([]GanttTask, 0, len(view.Rows))
	for _, row := range view.Rows {
		ts, _ := view.Result.Task(row.TaskID)
		rows = append(rows, GanttTask{
			ID:              row.TaskID,
			Title:           row.Title,
			Start:           row.Start.Format(DateLayout),
			Finish:          row.Finish.Format(DateLayout),
			Duration:        row.Duration,
			EarliestStart:   ts.EarliestStart,
			EarliestFinish:  ts.EarliestFinish,
			LatestStart:     ts.LatestStart,
			LatestFinish:    ts.LatestFinish,
			Slack:           row.Slack,
			LeftFraction:    row.LeftFraction,
			WidthFraction:   row.WidthFraction,
			ProgressPercent: row.ProgressPercent,
			IsCritical:      row.IsCritical,
			IsMilestone:     row.IsMilestone,
		})
	}
	return GanttResponse{
		ProjectID:    view.Project.ID,
		ProjectStart: view.Result.ProjectStart.Format(DateLayout),
		ProjectEnd:   view.Result.ProjectEnd.Format(DateLayout),
		DurationDays: view.Result.DurationDays,
		Tasks:        rows,
		CriticalPath: view.Result.CriticalPath,
	}
}

// ParseDate accepts YYYY-MM-DD or RFC3339 input.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("start_date is required: %w", ErrInvalidRequest)
	}
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("start_date %q must be YYYY-MM-DD or RFC3339: %w", raw, ErrInvalidRequest)
	}
	return t, nil
}

func (t TaskPayload) toInput() domain.TaskInput {
	return domain.TaskInput{
		ID:              t.ID,
		ParentID:        t.ParentID,
		Position:        t.Position,
		Title:           t.Title,
		Duration:        t.Duration,
		Predecessors:    append([]string(nil), t.Predecessors...),
		IsMilestone:     t.IsMilestone,
		ProgressPercent: t.ProgressPercent,
	}
}

func taskPayloads(tasks []domain.Task) []TaskPayload {
	out := make([]TaskPayload, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, TaskPayload{
			ID:              t.ID,
			Title:           t.Title,
			Duration:        t.Duration,
			Predecessors:    append([]string(nil), t.Predecessors...),
			ParentID:        t.ParentID,
			Position:        t.Position,
			IsMilestone:     t.IsMilestone,
			ProgressPercent: t.ProgressPercent,
		})
	}
	return out
}

// mapAppError maps app/domain errors into transport-layer error sentinels.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case app.IsGraphError(err):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidGraph, err))
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidDuration),
		errors.Is(err, domain.ErrInvalidProgress),
		errors.Is(err, domain.ErrInvalidPredecessor),
		errors.Is(err, domain.ErrInvalidStartDate),
		errors.Is(err, domain.ErrDuplicateTask),
		errors.Is(err, wbs.ErrUnknownStrategy),
		errors.Is(err, app.ErrUnsupportedSnapshotVersion):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
