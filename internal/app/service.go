package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hylla/gantry/internal/cpm"
	"github.com/hylla/gantry/internal/domain"
	"github.com/hylla/gantry/internal/gantt"
	"github.com/hylla/gantry/internal/graph"
	"github.com/hylla/gantry/internal/wbs"
)

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	DefaultStrategy string
	NamingDelimiter string
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service coordinates projects, task snapshots and schedule generation.
type Service struct {
	repo            Repository
	idGen           IDGenerator
	clock           Clock
	defaultStrategy string
	delimiter       string
	locks           *projectLocks
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if strings.TrimSpace(cfg.DefaultStrategy) == "" {
		cfg.DefaultStrategy = wbs.StrategyExplicitParent
	}
	if cfg.NamingDelimiter == "" {
		cfg.NamingDelimiter = wbs.DefaultDelimiter
	}

	return &Service{
		repo:            repo,
		idGen:           idGen,
		clock:           clock,
		defaultStrategy: cfg.DefaultStrategy,
		delimiter:       cfg.NamingDelimiter,
		locks:           newProjectLocks(),
	}
}

// CreateProjectInput holds input values for create project operations.
type CreateProjectInput struct {
	Name        string
	Description string
	StartDate   time.Time
}

// CreateProject creates project.
func (s *Service) CreateProject(ctx context.Context, in CreateProjectInput) (domain.Project, error) {
	project, err := domain.NewProject(s.idGen(), in.Name, in.Description, in.StartDate, s.clock())
	if err != nil {
		return domain.Project{}, err
	}
	if err := s.repo.CreateProject(ctx, project); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// UpdateProjectInput holds input values for update project operations.
// Zero-valued fields are left unchanged.
type UpdateProjectInput struct {
	ProjectID   string
	Name        string
	Description *string
	StartDate   time.Time
}

// UpdateProject renames or reschedules a project.
func (s *Service) UpdateProject(ctx context.Context, in UpdateProjectInput) (domain.Project, error) {
	projectID := strings.TrimSpace(in.ProjectID)
	if projectID == "" {
		return domain.Project{}, domain.ErrInvalidID
	}
	unlock := s.locks.lock(projectID)
	defer unlock()

	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	now := s.clock()
	if strings.TrimSpace(in.Name) != "" {
		if err := project.Rename(in.Name, now); err != nil {
			return domain.Project{}, err
		}
	}
	if in.Description != nil {
		project.Description = strings.TrimSpace(*in.Description)
		project.UpdatedAt = now.UTC()
	}
	if !in.StartDate.IsZero() {
		if err := project.Reschedule(in.StartDate, now); err != nil {
			return domain.Project{}, err
		}
	}
	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// ArchiveProject hides a project from default listings.
func (s *Service) ArchiveProject(ctx context.Context, projectID string) (domain.Project, error) {
	return s.setArchived(ctx, projectID, true)
}

// RestoreProject brings an archived project back.
func (s *Service) RestoreProject(ctx context.Context, projectID string) (domain.Project, error) {
	return s.setArchived(ctx, projectID, false)
}

func (s *Service) setArchived(ctx context.Context, projectID string, archived bool) (domain.Project, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return domain.Project{}, domain.ErrInvalidID
	}
	unlock := s.locks.lock(projectID)
	defer unlock()

	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if archived {
		project.Archive(s.clock())
	} else {
		project.Restore(s.clock())
	}
	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// ListProjects lists projects.
func (s *Service) ListProjects(ctx context.Context, includeArchived bool) ([]domain.Project, error) {
	return s.repo.ListProjects(ctx, includeArchived)
}

// GetProject returns one project.
func (s *Service) GetProject(ctx context.Context, projectID string) (domain.Project, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return domain.Project{}, domain.ErrInvalidID
	}
	return s.repo.GetProject(ctx, projectID)
}

// ImportTasksInput holds input values for import tasks operations.
type ImportTasksInput struct {
	ProjectID string
	Tasks     []domain.TaskInput
}

// TaskValidationError reports which imported record failed validation.
type TaskValidationError struct {
	Index  int
	TaskID string
	Err    error
}

func (e *TaskValidationError) Error() string {
	return fmt.Sprintf("task %d (%q): %v", e.Index, e.TaskID, e.Err)
}

func (e *TaskValidationError) Unwrap() error { return e.Err }

// ImportTasks validates every record and replaces the project's task set.
// Nothing is written unless all records are valid.
func (s *Service) ImportTasks(ctx context.Context, in ImportTasksInput) ([]domain.Task, error) {
	projectID := strings.TrimSpace(in.ProjectID)
	if projectID == "" {
		return nil, domain.ErrInvalidID
	}
	unlock := s.locks.lock(projectID)
	defer unlock()

	if _, err := s.repo.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.replaceTasks(ctx, projectID, in.Tasks)
}

// replaceTasks validates inputs and swaps the task set. Callers hold the project lock.
func (s *Service) replaceTasks(ctx context.Context, projectID string, inputs []domain.TaskInput) ([]domain.Task, error) {
	now := s.clock()
	tasks := make([]domain.Task, 0, len(inputs))
	seen := make(map[string]struct{}, len(inputs))
	for i, raw := range inputs {
		raw.ProjectID = projectID
		if raw.Position == 0 {
			raw.Position = i
		}
		task, err := domain.NewTask(raw, now)
		if err != nil {
			return nil, &TaskValidationError{Index: i, TaskID: strings.TrimSpace(raw.ID), Err: err}
		}
		if _, dup := seen[task.ID]; dup {
			return nil, &TaskValidationError{Index: i, TaskID: task.ID, Err: domain.ErrDuplicateTask}
		}
		seen[task.ID] = struct{}{}
		tasks = append(tasks, task)
	}

	if err := s.repo.ReplaceTasks(ctx, projectID, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListTasks lists the current task set of a project.
func (s *Service) ListTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, domain.ErrInvalidID
	}
	if _, err := s.repo.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListTasks(ctx, projectID)
}

// GenerateWBSInput holds input values for generate wbs operations.
type GenerateWBSInput struct {
	ProjectID string
	// Strategy and Delimiter fall back to the service configuration when empty.
	Strategy  string
	Delimiter string
}

// GenerateWBS builds the WBS tree and schedule for a project and persists them
// as its latest plan. Graph errors abort the run and keep the previous plan.
func (s *Service) GenerateWBS(ctx context.Context, in GenerateWBSInput) (domain.SchedulePlan, error) {
	projectID := strings.TrimSpace(in.ProjectID)
	if projectID == "" {
		return domain.SchedulePlan{}, domain.ErrInvalidID
	}
	strategy, err := s.strategy(in.Strategy, in.Delimiter)
	if err != nil {
		return domain.SchedulePlan{}, err
	}

	unlock := s.locks.lock(projectID)
	defer unlock()

	project, tasks, err := s.loadProjectTasks(ctx, projectID)
	if err != nil {
		return domain.SchedulePlan{}, err
	}
	g, err := graph.Build(tasks)
	if err != nil {
		return domain.SchedulePlan{}, fmt.Errorf("build task graph: %w", err)
	}
	tree, err := wbs.Build(tasks, strategy)
	if err != nil {
		return domain.SchedulePlan{}, fmt.Errorf("build wbs: %w", err)
	}
	result := cpm.Schedule(g, project.StartDate)

	root := wbs.Annotate(tree.Root, result)
	root.Title = project.Name
	plan := domain.SchedulePlan{
		ProjectID:    projectID,
		RunID:        s.idGen(),
		Strategy:     strategy.Name(),
		GeneratedAt:  s.clock().UTC(),
		ProjectStart: result.ProjectStart,
		ProjectEnd:   result.ProjectEnd,
		DurationDays: result.DurationDays,
		CriticalPath: result.CriticalPath,
		WBS:          root,
		Schedules:    result.Tasks,
		Warnings:     tree.WarningMessages(),
	}
	if err := s.repo.SavePlan(ctx, plan); err != nil {
		return domain.SchedulePlan{}, err
	}
	return plan, nil
}

// GetPlan returns the latest persisted plan for a project.
func (s *Service) GetPlan(ctx context.Context, projectID string) (domain.SchedulePlan, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return domain.SchedulePlan{}, domain.ErrInvalidID
	}
	if _, err := s.repo.GetProject(ctx, projectID); err != nil {
		return domain.SchedulePlan{}, err
	}
	return s.repo.GetPlan(ctx, projectID)
}

// GanttView is a freshly computed timeline for one project.
type GanttView struct {
	Project domain.Project
	Result  domain.ScheduleResult
	Rows    []gantt.Row
	Waves   []cpm.Wave
}

// Gantt schedules the persisted task set and projects it onto a timeline.
func (s *Service) Gantt(ctx context.Context, projectID string) (GanttView, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return GanttView{}, domain.ErrInvalidID
	}
	unlock := s.locks.lock(projectID)
	defer unlock()

	project, tasks, err := s.loadProjectTasks(ctx, projectID)
	if err != nil {
		return GanttView{}, err
	}
	g, err := graph.Build(tasks)
	if err != nil {
		return GanttView{}, fmt.Errorf("build task graph: %w", err)
	}
	result := cpm.Schedule(g, project.StartDate)
	return GanttView{
		Project: project,
		Result:  result,
		Rows:    gantt.Project(g, result),
		Waves:   cpm.Waves(result),
	}, nil
}

func (s *Service) loadProjectTasks(ctx context.Context, projectID string) (domain.Project, []domain.Task, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, nil, err
	}
	tasks, err := s.repo.ListTasks(ctx, projectID)
	if err != nil {
		return domain.Project{}, nil, err
	}
	return project, tasks, nil
}

func (s *Service) strategy(name, delimiter string) (wbs.GroupingStrategy, error) {
	if strings.TrimSpace(name) == "" {
		name = s.defaultStrategy
	}
	if delimiter == "" {
		delimiter = s.delimiter
	}
	return wbs.ParseStrategy(name, delimiter)
}

// IsGraphError reports whether err comes from an invalid dependency graph.
func IsGraphError(err error) bool {
	return errors.Is(err, domain.ErrCycle) || errors.Is(err, domain.ErrDanglingReference)
}
