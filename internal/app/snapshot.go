package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hylla/gantry/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "gantry.snapshot.v1"

// Snapshot is the portable JSON/YAML form of one project and its task set.
type Snapshot struct {
	Version    string           `json:"version" yaml:"version"`
	ExportedAt time.Time        `json:"exported_at" yaml:"exported_at"`
	Project    *SnapshotProject `json:"project,omitempty" yaml:"project,omitempty"`
	Tasks      []SnapshotTask   `json:"tasks" yaml:"tasks"`
}

// SnapshotProject represents snapshot project data used by this package.
type SnapshotProject struct {
	ID          string     `json:"id" yaml:"id"`
	Slug        string     `json:"slug,omitempty" yaml:"slug,omitempty"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	StartDate   time.Time  `json:"start_date" yaml:"start_date"`
	CreatedAt   time.Time  `json:"created_at,omitzero" yaml:"created_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at,omitzero" yaml:"updated_at,omitempty"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty" yaml:"archived_at,omitempty"`
}

// SnapshotTask represents snapshot task data used by this package.
type SnapshotTask struct {
	ID              string   `json:"id" yaml:"id"`
	ParentID        string   `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Position        int      `json:"position,omitempty" yaml:"position,omitempty"`
	Title           string   `json:"title" yaml:"title"`
	Duration        float64  `json:"duration" yaml:"duration"`
	Predecessors    []string `json:"predecessors,omitempty" yaml:"predecessors,omitempty"`
	IsMilestone     bool     `json:"is_milestone,omitempty" yaml:"is_milestone,omitempty"`
	ProgressPercent float64  `json:"progress_percent,omitempty" yaml:"progress_percent,omitempty"`
}

// ExportSnapshot exports one project and its current task set.
func (s *Service) ExportSnapshot(ctx context.Context, projectID string) (Snapshot, error) {
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return Snapshot{}, err
	}
	tasks, err := s.repo.ListTasks(ctx, project.ID)
	if err != nil {
		return Snapshot{}, err
	}

	sp := snapshotProjectFromDomain(project)
	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.clock().UTC(),
		Project:    &sp,
		Tasks:      make([]SnapshotTask, 0, len(tasks)),
	}
	for _, task := range tasks {
		snap.Tasks = append(snap.Tasks, snapshotTaskFromDomain(task))
	}
	snap.sort()
	return snap, nil
}

// ImportSnapshot upserts the snapshot project and replaces its task set.
// A non-empty projectID overrides the project id carried in the snapshot; a
// snapshot without a project section only imports tasks into an existing project.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot, projectID string) (domain.Project, []domain.Task, error) {
	if err := snap.Validate(); err != nil {
		return domain.Project{}, nil, err
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" && snap.Project != nil {
		projectID = strings.TrimSpace(snap.Project.ID)
	}
	if projectID == "" {
		return domain.Project{}, nil, fmt.Errorf("snapshot import needs a project id: %w", domain.ErrInvalidID)
	}

	unlock := s.locks.lock(projectID)
	defer unlock()

	var project domain.Project
	if snap.Project != nil {
		p, err := snap.Project.toDomain(projectID, s.clock())
		if err != nil {
			return domain.Project{}, nil, err
		}
		if err := s.upsertProject(ctx, p); err != nil {
			return domain.Project{}, nil, err
		}
		project = p
	} else {
		p, err := s.repo.GetProject(ctx, projectID)
		if err != nil {
			return domain.Project{}, nil, err
		}
		project = p
	}

	inputs := make([]domain.TaskInput, 0, len(snap.Tasks))
	for _, t := range snap.Tasks {
		inputs = append(inputs, t.toInput())
	}
	tasks, err := s.replaceTasks(ctx, projectID, inputs)
	if err != nil {
		return domain.Project{}, nil, err
	}
	return project, tasks, nil
}

// Validate checks the snapshot envelope before any write happens.
func (s *Snapshot) Validate() error {
	if s.Version != "" && s.Version != SnapshotVersion {
		return fmt.Errorf("%w: %q", ErrUnsupportedSnapshotVersion, s.Version)
	}
	if s.Project != nil && strings.TrimSpace(s.Project.Name) == "" {
		return fmt.Errorf("project.name is required: %w", domain.ErrInvalidName)
	}
	taskIDs := map[string]struct{}{}
	for i, t := range s.Tasks {
		id := strings.TrimSpace(t.ID)
		if id == "" {
			return fmt.Errorf("tasks[%d].id is required: %w", i, domain.ErrInvalidID)
		}
		if _, exists := taskIDs[id]; exists {
			return fmt.Errorf("duplicate task id %q: %w", id, domain.ErrDuplicateTask)
		}
		taskIDs[id] = struct{}{}
	}
	return nil
}

func (s *Service) upsertProject(ctx context.Context, p domain.Project) error {
	if _, err := s.repo.GetProject(ctx, p.ID); err == nil {
		return s.repo.UpdateProject(ctx, p)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.repo.CreateProject(ctx, p)
}

// sort orders tasks by position then id so exports diff cleanly.
func (s *Snapshot) sort() {
	sort.SliceStable(s.Tasks, func(i, j int) bool {
		a := s.Tasks[i]
		b := s.Tasks[j]
		if a.Position == b.Position {
			return a.ID < b.ID
		}
		return a.Position < b.Position
	})
}

func snapshotProjectFromDomain(p domain.Project) SnapshotProject {
	return SnapshotProject{
		ID:          p.ID,
		Slug:        p.Slug,
		Name:        p.Name,
		Description: p.Description,
		StartDate:   p.StartDate.UTC(),
		CreatedAt:   p.CreatedAt.UTC(),
		UpdatedAt:   p.UpdatedAt.UTC(),
		ArchivedAt:  copyTimePtr(p.ArchivedAt),
	}
}

func snapshotTaskFromDomain(t domain.Task) SnapshotTask {
	return SnapshotTask{
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

// toDomain validates the snapshot project through the domain constructor,
// then restores its persisted timestamps.
func (p SnapshotProject) toDomain(id string, now time.Time) (domain.Project, error) {
	project, err := domain.NewProject(id, p.Name, p.Description, p.StartDate, now)
	if err != nil {
		return domain.Project{}, err
	}
	if slug := strings.TrimSpace(p.Slug); slug != "" {
		project.Slug = slug
	}
	if !p.CreatedAt.IsZero() {
		project.CreatedAt = p.CreatedAt.UTC()
	}
	if !p.UpdatedAt.IsZero() {
		project.UpdatedAt = p.UpdatedAt.UTC()
	}
	project.ArchivedAt = copyTimePtr(p.ArchivedAt)
	return project, nil
}

func (t SnapshotTask) toInput() domain.TaskInput {
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

// copyTimePtr copies time ptr.
func copyTimePtr(in *time.Time) *time.Time {
	if in == nil {
		return nil
	}
	t := in.UTC().Truncate(time.Second)
	return &t
}
