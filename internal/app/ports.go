package app

import (
	"context"

	"github.com/hylla/gantry/internal/domain"
)

// Repository represents repository data used by this package.
type Repository interface {
	CreateProject(context.Context, domain.Project) error
	UpdateProject(context.Context, domain.Project) error
	GetProject(context.Context, string) (domain.Project, error)
	ListProjects(context.Context, bool) ([]domain.Project, error)

	// ReplaceTasks swaps a project's whole task set in one transaction.
	ReplaceTasks(context.Context, string, []domain.Task) error
	ListTasks(context.Context, string) ([]domain.Task, error)

	// SavePlan stores the latest plan for a project, replacing any earlier one.
	SavePlan(context.Context, domain.SchedulePlan) error
	GetPlan(context.Context, string) (domain.SchedulePlan, error)
}
