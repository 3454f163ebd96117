package domain

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestNewProjectAndSlug(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	start := time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC)
	p, err := NewProject("p1", "  Plant Shutdown 2026!  ", " desc ", start, now)
	if err != nil {
		t.Fatalf("NewProject() error = %v", err)
	}
	if p.Slug != "plant-shutdown-2026" {
		t.Fatalf("unexpected slug %q", p.Slug)
	}
	if !p.StartDate.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected start truncated to day, got %v", p.StartDate)
	}
}

func TestNewProjectValidation(t *testing.T) {
	now := time.Now()
	if _, err := NewProject("", "ok", "", now, now); err != ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := NewProject("id", "   ", "", now, now); err != ErrInvalidName {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if _, err := NewProject("id", "ok", "", time.Time{}, now); err != ErrInvalidStartDate {
		t.Fatalf("expected ErrInvalidStartDate, got %v", err)
	}
}

func TestProjectArchiveRestore(t *testing.T) {
	now := time.Now()
	p, err := NewProject("p1", "test", "", now, now)
	if err != nil {
		t.Fatalf("NewProject() error = %v", err)
	}
	p.Archive(now.Add(time.Minute))
	if p.ArchivedAt == nil {
		t.Fatal("expected archived_at to be set")
	}
	p.Restore(now.Add(2 * time.Minute))
	if p.ArchivedAt != nil {
		t.Fatal("expected archived_at to be nil")
	}
}

func TestNewTaskNormalizesPredecessors(t *testing.T) {
	task, err := NewTask(TaskInput{
		ID:           " t3 ",
		ProjectID:    "p1",
		Title:        " Pour foundation ",
		Duration:     4,
		Predecessors: []string{"t2", " t1", "t2", ""},
	}, time.Now())
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	if task.ID != "t3" || task.Title != "Pour foundation" {
		t.Fatalf("unexpected normalized task %#v", task)
	}
	if len(task.Predecessors) != 2 || task.Predecessors[0] != "t1" || task.Predecessors[1] != "t2" {
		t.Fatalf("unexpected predecessors %#v", task.Predecessors)
	}
}

func TestNewTaskMilestoneForcesZeroDuration(t *testing.T) {
	task, err := NewTask(TaskInput{ID: "m", ProjectID: "p1", Title: "Go live", Duration: 3, IsMilestone: true}, time.Now())
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	if task.Duration != 0 || task.EffectiveDuration() != 0 {
		t.Fatalf("expected milestone duration 0, got %v", task.Duration)
	}
}

func TestNewTaskValidation(t *testing.T) {
	cases := []struct {
		name string
		in   TaskInput
		want error
	}{
		{name: "missing id", in: TaskInput{ProjectID: "p", Title: "x"}, want: ErrInvalidID},
		{name: "missing project", in: TaskInput{ID: "a", Title: "x"}, want: ErrInvalidID},
		{name: "empty title", in: TaskInput{ID: "a", ProjectID: "p", Title: "  "}, want: ErrInvalidTitle},
		{name: "negative duration", in: TaskInput{ID: "a", ProjectID: "p", Title: "x", Duration: -1}, want: ErrInvalidDuration},
		{name: "nan duration", in: TaskInput{ID: "a", ProjectID: "p", Title: "x", Duration: math.NaN()}, want: ErrInvalidDuration},
		{name: "progress over 100", in: TaskInput{ID: "a", ProjectID: "p", Title: "x", ProgressPercent: 101}, want: ErrInvalidProgress},
		{name: "self predecessor", in: TaskInput{ID: "a", ProjectID: "p", Title: "x", Predecessors: []string{"a"}}, want: ErrInvalidPredecessor},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewTask(tc.in, time.Now()); err != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestDisplayDatesRoundFinishUp(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	if got := DisplayFinishDate(start, 2.25); !got.Equal(start.AddDate(0, 0, 3)) {
		t.Fatalf("DisplayFinishDate(2.25) = %v", got)
	}
	if got := DisplayFinishDate(start, 2); !got.Equal(start.AddDate(0, 0, 2)) {
		t.Fatalf("DisplayFinishDate(2) = %v", got)
	}
	if got := DisplayStartDate(start, 2.75); !got.Equal(start.AddDate(0, 0, 2)) {
		t.Fatalf("DisplayStartDate(2.75) = %v", got)
	}
	if got := OffsetDate(start, 0.5); !got.Equal(start.Add(12 * time.Hour)) {
		t.Fatalf("OffsetDate(0.5) = %v", got)
	}
	if got := DaysBetween(start, start.AddDate(0, 0, 7).Add(5*time.Hour)); got != 7 {
		t.Fatalf("DaysBetween() = %d, want 7", got)
	}
}

func TestSchedulingErrorsUnwrap(t *testing.T) {
	var err error = &CycleError{Cycle: []string{"a", "b", "a"}}
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("expected CycleError to match ErrCycle")
	}
	err = &DanglingReferenceError{TaskID: "b", PredecessorID: "zz"}
	if !errors.Is(err, ErrDanglingReference) {
		t.Fatalf("expected DanglingReferenceError to match ErrDanglingReference")
	}
	var dangling *DanglingReferenceError
	if !errors.As(err, &dangling) || dangling.PredecessorID != "zz" {
		t.Fatalf("errors.As() failed for %v", err)
	}
	err = &AmbiguousParentError{TaskID: "c", ParentID: "missing"}
	if !errors.Is(err, ErrAmbiguousParent) {
		t.Fatalf("expected AmbiguousParentError to match ErrAmbiguousParent")
	}
}

func TestWBSNodeCloneIsDeep(t *testing.T) {
	es, ef := 1.0, 4.0
	root := &WBSNode{ID: "root", Children: []*WBSNode{{ID: "a", TaskID: "a", EarliestStart: &es, EarliestFinish: &ef}}}
	cp := root.Clone()
	*cp.Children[0].EarliestStart = 9
	cp.Children[0].Title = "changed"
	if *root.Children[0].EarliestStart != 1 || root.Children[0].Title != "" {
		t.Fatalf("clone shares state with original")
	}
	if got := root.Children[0].Duration(); got != 3 {
		t.Fatalf("Duration() = %v, want 3", got)
	}
}
