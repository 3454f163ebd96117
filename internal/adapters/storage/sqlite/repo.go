package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/gantry/internal/app"
	"github.com/hylla/gantry/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository represents repository data used by this package.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens in memory.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// Every pooled connection would get its own private in-memory database.
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping reports whether the database answers queries.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			slug TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			start_date TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			archived_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			project_id TEXT NOT NULL,
			id TEXT NOT NULL,
			parent_id TEXT NOT NULL DEFAULT '',
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			duration REAL NOT NULL DEFAULT 0,
			predecessors_json TEXT NOT NULL DEFAULT '[]',
			is_milestone INTEGER NOT NULL DEFAULT 0,
			progress_percent REAL NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY(project_id, id),
			FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS schedule_plans (
			project_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			strategy TEXT NOT NULL,
			generated_at TEXT NOT NULL,
			plan_json TEXT NOT NULL,
			FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_project_position ON tasks(project_id, position, id);`,
	}

	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// CreateProject creates project.
func (r *Repository) CreateProject(ctx context.Context, p domain.Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects(id, slug, name, description, start_date, created_at, updated_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Slug, p.Name, p.Description, ts(p.StartDate), ts(p.CreatedAt), ts(p.UpdatedAt), nullableTS(p.ArchivedAt))
	return err
}

// UpdateProject updates state for the requested operation.
func (r *Repository) UpdateProject(ctx context.Context, p domain.Project) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE projects
		SET slug = ?, name = ?, description = ?, start_date = ?, updated_at = ?, archived_at = ?
		WHERE id = ?
	`, p.Slug, p.Name, p.Description, ts(p.StartDate), ts(p.UpdatedAt), nullableTS(p.ArchivedAt), p.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetProject returns project.
func (r *Repository) GetProject(ctx context.Context, id string) (domain.Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, slug, name, description, start_date, created_at, updated_at, archived_at
		FROM projects
		WHERE id = ?
	`, id)
	return scanProject(row)
}

// ListProjects lists projects.
func (r *Repository) ListProjects(ctx context.Context, includeArchived bool) ([]domain.Project, error) {
	query := `
		SELECT id, slug, name, description, start_date, created_at, updated_at, archived_at
		FROM projects
	`
	if !includeArchived {
		query += ` WHERE archived_at IS NULL`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ReplaceTasks swaps the project's task set inside one transaction.
func (r *Repository) ReplaceTasks(ctx context.Context, projectID string, tasks []domain.Task) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = getProjectByID(ctx, tx, projectID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM tasks WHERE project_id = ?`, projectID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tasks(project_id, id, parent_id, position, title, duration, predecessors_json, is_milestone, progress_percent, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range tasks {
		predsJSON, encErr := json.Marshal(nonNilStrings(t.Predecessors))
		if encErr != nil {
			err = fmt.Errorf("encode task predecessors: %w", encErr)
			return err
		}
		if _, err = stmt.ExecContext(ctx,
			projectID,
			t.ID,
			t.ParentID,
			t.Position,
			t.Title,
			t.Duration,
			string(predsJSON),
			boolToInt(t.IsMilestone),
			t.ProgressPercent,
			ts(t.CreatedAt),
			ts(t.UpdatedAt),
		); err != nil {
			return err
		}
	}

	err = tx.Commit()
	return err
}

// ListTasks lists tasks ordered by position then id.
func (r *Repository) ListTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT project_id, id, parent_id, position, title, duration, predecessors_json, is_milestone, progress_percent, created_at, updated_at
		FROM tasks
		WHERE project_id = ?
		ORDER BY position ASC, id ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SavePlan upserts the latest plan for a project.
func (r *Repository) SavePlan(ctx context.Context, plan domain.SchedulePlan) error {
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encode schedule plan: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO schedule_plans(project_id, run_id, strategy, generated_at, plan_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			run_id = excluded.run_id,
			strategy = excluded.strategy,
			generated_at = excluded.generated_at,
			plan_json = excluded.plan_json
	`, plan.ProjectID, plan.RunID, plan.Strategy, ts(plan.GeneratedAt), string(planJSON))
	return err
}

// GetPlan returns the latest plan for a project.
func (r *Repository) GetPlan(ctx context.Context, projectID string) (domain.SchedulePlan, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT plan_json FROM schedule_plans WHERE project_id = ?`, projectID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SchedulePlan{}, app.ErrNotFound
		}
		return domain.SchedulePlan{}, err
	}
	var plan domain.SchedulePlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return domain.SchedulePlan{}, fmt.Errorf("decode schedule plan: %w", err)
	}
	return plan, nil
}

// queryRower represents query rower data used by this package.
type queryRower interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// getProjectByID returns a project through either the pool or a transaction.
func getProjectByID(ctx context.Context, q queryRower, id string) (domain.Project, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, slug, name, description, start_date, created_at, updated_at, archived_at
		FROM projects
		WHERE id = ?
	`, id)
	return scanProject(row)
}

// scanner represents scanner data used by this package.
type scanner interface {
	Scan(dest ...any) error
}

// scanProject handles scan project.
func scanProject(s scanner) (domain.Project, error) {
	var (
		p          domain.Project
		startRaw   string
		createdRaw string
		updatedRaw string
		archived   sql.NullString
	)
	if err := s.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &startRaw, &createdRaw, &updatedRaw, &archived); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Project{}, app.ErrNotFound
		}
		return domain.Project{}, err
	}
	p.StartDate = parseTS(startRaw)
	p.CreatedAt = parseTS(createdRaw)
	p.UpdatedAt = parseTS(updatedRaw)
	p.ArchivedAt = parseNullTS(archived)
	return p, nil
}

// scanTask handles scan task.
func scanTask(s scanner) (domain.Task, error) {
	var (
		t          domain.Task
		predsRaw   string
		milestone  int
		createdRaw string
		updatedRaw string
	)
	if err := s.Scan(
		&t.ProjectID,
		&t.ID,
		&t.ParentID,
		&t.Position,
		&t.Title,
		&t.Duration,
		&predsRaw,
		&milestone,
		&t.ProgressPercent,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Task{}, app.ErrNotFound
		}
		return domain.Task{}, err
	}
	if strings.TrimSpace(predsRaw) == "" {
		predsRaw = "[]"
	}
	if err := json.Unmarshal([]byte(predsRaw), &t.Predecessors); err != nil {
		return domain.Task{}, fmt.Errorf("decode task predecessors_json: %w", err)
	}
	t.IsMilestone = milestone != 0
	t.CreatedAt = parseTS(createdRaw)
	t.UpdatedAt = parseTS(updatedRaw)
	return t, nil
}

// translateNoRows handles translate no rows.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// nullableTS handles nullable ts.
func nullableTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized value.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// parseNullTS parses input into a normalized value.
func parseNullTS(v sql.NullString) *time.Time {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	ts := parseTS(v.String)
	return &ts
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
