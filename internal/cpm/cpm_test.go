package cpm

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/hylla/gantry/internal/domain"
	"github.com/hylla/gantry/internal/graph"
)

var day0 = time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC)

func task(id string, duration float64, preds ...string) domain.Task {
	return domain.Task{ID: id, ProjectID: "p1", Title: "Task " + id, Duration: duration, Predecessors: preds}
}

func buildTestGraph(t *testing.T, tasks []domain.Task) *graph.TaskGraph {
	t.Helper()
	g, err := graph.Build(tasks)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g
}

func mustTask(t *testing.T, result domain.ScheduleResult, id string) domain.TaskSchedule {
	t.Helper()
	ts, ok := result.Task(id)
	if !ok {
		t.Fatalf("task %s missing from result", id)
	}
	return ts
}

func TestSchedule_FanOutScenario(t *testing.T) {
	g := buildTestGraph(t, []domain.Task{
		task("A", 3),
		task("B", 2, "A"),
		task("C", 4, "A"),
	})

	result := Schedule(g, day0)

	assertSchedule(t, mustTask(t, result, "A"), 0, 3, 0, 3, 0, true)
	assertSchedule(t, mustTask(t, result, "B"), 3, 5, 5, 7, 2, false)
	assertSchedule(t, mustTask(t, result, "C"), 3, 7, 3, 7, 0, true)

	if !slices.Equal(result.CriticalPath, []string{"A", "C"}) {
		t.Errorf("expected critical path [A C], got %v", result.CriticalPath)
	}
	if result.DurationDays != 7 {
		t.Errorf("expected duration 7, got %v", result.DurationDays)
	}
	if !result.ProjectEnd.Equal(day0.AddDate(0, 0, 7)) {
		t.Errorf("expected project end day 7, got %v", result.ProjectEnd)
	}
}

func TestSchedule_Empty(t *testing.T) {
	result := Schedule(buildTestGraph(t, nil), day0)
	if !result.ProjectEnd.Equal(result.ProjectStart) {
		t.Errorf("expected project end == start, got %v vs %v", result.ProjectEnd, result.ProjectStart)
	}
	if result.CriticalPath == nil || len(result.CriticalPath) != 0 {
		t.Errorf("expected empty critical path, got %#v", result.CriticalPath)
	}
	if result.Len() != 0 {
		t.Errorf("expected no task rows, got %d", result.Len())
	}
}

func TestSchedule_SingleMilestone(t *testing.T) {
	m := task("gate", 0)
	m.IsMilestone = true
	result := Schedule(buildTestGraph(t, []domain.Task{m}), day0)

	ts := mustTask(t, result, "gate")
	assertSchedule(t, ts, 0, 0, 0, 0, 0, true)
	if !ts.IsMilestone {
		t.Error("expected milestone flag to survive scheduling")
	}
	if !ts.StartDate(result.ProjectStart).Equal(day0) || !ts.FinishDate(result.ProjectStart).Equal(day0) {
		t.Errorf("expected milestone dates on project start")
	}
	if !slices.Equal(result.CriticalPath, []string{"gate"}) {
		t.Errorf("expected critical path [gate], got %v", result.CriticalPath)
	}
}

func TestSchedule_ZeroDurationIsNotMilestone(t *testing.T) {
	result := Schedule(buildTestGraph(t, []domain.Task{task("a", 2), task("z", 0, "a")}), day0)
	z := mustTask(t, result, "z")
	if z.IsMilestone {
		t.Error("zero-duration task must not be flagged as milestone")
	}
	assertSchedule(t, z, 2, 2, 2, 2, 0, true)
}

func TestSchedule_LinearChain(t *testing.T) {
	result := Schedule(buildTestGraph(t, []domain.Task{
		task("a", 1),
		task("b", 1, "a"),
		task("c", 1, "b"),
	}), day0)

	if result.DurationDays != 3 {
		t.Errorf("expected total duration 3, got %v", result.DurationDays)
	}
	if !slices.Equal(result.CriticalPath, []string{"a", "b", "c"}) {
		t.Errorf("expected 3 tasks on critical path, got %v", result.CriticalPath)
	}
	assertSchedule(t, mustTask(t, result, "a"), 0, 1, 0, 1, 0, true)
	assertSchedule(t, mustTask(t, result, "b"), 1, 2, 1, 2, 0, true)
	assertSchedule(t, mustTask(t, result, "c"), 2, 3, 2, 3, 0, true)
}

func TestSchedule_WithEstimates(t *testing.T) {
	// a(5) -> b(1) -> d(1)
	// a(5) -> c(10) -> d(1)
	result := Schedule(buildTestGraph(t, []domain.Task{
		task("a", 5),
		task("b", 1, "a"),
		task("c", 10, "a"),
		task("d", 1, "b", "c"),
	}), day0)

	if result.DurationDays != 16 {
		t.Errorf("expected total duration 16, got %v", result.DurationDays)
	}
	b := mustTask(t, result, "b")
	if b.IsCritical || b.Slack != 9 {
		t.Errorf("expected b slack=9 and not critical, got slack=%v critical=%v", b.Slack, b.IsCritical)
	}
	if !slices.Equal(result.CriticalPath, []string{"a", "c", "d"}) {
		t.Errorf("expected critical path [a c d], got %v", result.CriticalPath)
	}
}

func TestSchedule_CriticalChainTieBreaksOnStartID(t *testing.T) {
	result := Schedule(buildTestGraph(t, []domain.Task{
		task("a", 0),
		task("a2", 4, "a"),
		task("b", 4),
	}), day0)
	if !slices.Equal(result.CriticalPath, []string{"a", "a2"}) {
		t.Errorf("expected tie broken by lowest start id, got %v", result.CriticalPath)
	}

	result = Schedule(buildTestGraph(t, []domain.Task{
		task("x", 3),
		task("y", 2),
		task("z", 1, "y"),
	}), day0)
	if !slices.Equal(result.CriticalPath, []string{"x"}) {
		t.Errorf("expected [x] to win the 3-day tie against [y z], got %v", result.CriticalPath)
	}
}

func TestSchedule_CriticalChainPrefersLongestCumulativeDuration(t *testing.T) {
	// p(1) -> s1(5)        p, s1, q and n all have zero slack, but the
	// p(1) -> n(3)         p->n edge leaves a two-day gap, so the chain
	// q(3) -> n(3)         through s1 carries more duration than p->n.
	result := Schedule(buildTestGraph(t, []domain.Task{
		task("p", 1),
		task("s1", 5, "p"),
		task("q", 3),
		task("n", 3, "p", "q"),
	}), day0)

	for _, id := range []string{"p", "s1", "q", "n"} {
		if !mustTask(t, result, id).IsCritical {
			t.Fatalf("expected %s to be critical", id)
		}
	}
	if !slices.Equal(result.CriticalPath, []string{"p", "s1"}) {
		t.Errorf("expected critical path [p s1], got %v", result.CriticalPath)
	}
}

func TestSchedule_DiamondTieBreaksOnNextHop(t *testing.T) {
	result := Schedule(buildTestGraph(t, []domain.Task{
		task("a", 1),
		task("c", 2, "a"),
		task("b", 2, "a"),
		task("d", 1, "b", "c"),
	}), day0)
	if !slices.Equal(result.CriticalPath, []string{"a", "b", "d"}) {
		t.Errorf("expected critical path [a b d], got %v", result.CriticalPath)
	}
	if !mustTask(t, result, "c").IsCritical {
		t.Errorf("expected c to be critical even though it is not on the selected path")
	}
}

func TestSchedule_FractionalDurationsStayExact(t *testing.T) {
	result := Schedule(buildTestGraph(t, []domain.Task{
		task("a", 1.5),
		task("b", 0.25, "a"),
	}), day0)
	b := mustTask(t, result, "b")
	if b.EarliestStart != 1.5 || b.EarliestFinish != 1.75 {
		t.Errorf("expected exact offsets 1.5/1.75, got %v/%v", b.EarliestStart, b.EarliestFinish)
	}
	if !b.FinishDate(result.ProjectStart).Equal(day0.AddDate(0, 0, 2)) {
		t.Errorf("expected display finish rounded up to day 2, got %v", b.FinishDate(result.ProjectStart))
	}
	if !result.ProjectEnd.Equal(day0.AddDate(0, 0, 2)) {
		t.Errorf("expected project end rounded up to day 2, got %v", result.ProjectEnd)
	}
	if result.DurationDays != 1.75 {
		t.Errorf("expected exact duration 1.75, got %v", result.DurationDays)
	}
}

func TestScheduleTasks_CycleProducesNoResult(t *testing.T) {
	result, err := ScheduleTasks([]domain.Task{
		task("A", 1, "C"),
		task("B", 1, "A"),
		task("C", 1, "B"),
	}, day0)
	if !errors.Is(err, domain.ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
	if result.Len() != 0 || result.CriticalPath != nil {
		t.Fatalf("expected zero-value result on failure, got %#v", result)
	}
}

func TestScheduleTasks_DanglingReference(t *testing.T) {
	_, err := ScheduleTasks([]domain.Task{task("A", 1, "ghost")}, day0)
	var dangling *domain.DanglingReferenceError
	if !errors.As(err, &dangling) {
		t.Fatalf("expected DanglingReferenceError, got %v", err)
	}
}

func TestSchedule_Idempotent(t *testing.T) {
	g := buildTestGraph(t, randomDAG(rand.New(rand.NewPCG(7, 11)), 40))
	first := Schedule(g, day0)
	second := Schedule(g, day0)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected identical results for repeated scheduling")
	}
}

func TestSchedule_PropertiesOnRandomDAGs(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 1))
	for iter := 0; iter < 50; iter++ {
		tasks := randomDAG(rng, 1+rng.IntN(30))
		g := buildTestGraph(t, tasks)
		result := Schedule(g, day0)

		if result.Len() != len(tasks) {
			t.Fatalf("iter %d: expected %d rows, got %d", iter, len(tasks), result.Len())
		}
		critical := 0
		for _, ts := range result.Tasks {
			if ts.EarliestStart > ts.LatestStart+1e-9 || ts.EarliestFinish > ts.LatestFinish+1e-9 {
				t.Fatalf("iter %d: task %s violates ES<=LS/EF<=LF: %#v", iter, ts.TaskID, ts)
			}
			if ts.IsCritical {
				critical++
			}
		}
		if critical == 0 || len(result.CriticalPath) == 0 {
			t.Fatalf("iter %d: expected a non-empty critical path", iter)
		}

		// The selected path is a connected chain from a start to an end.
		path := result.CriticalPath
		if len(g.Predecessors(path[0])) != 0 {
			t.Fatalf("iter %d: critical path does not begin at a start task: %v", iter, path)
		}
		if len(g.Successors(path[len(path)-1])) != 0 {
			t.Fatalf("iter %d: critical path does not end at an end task: %v", iter, path)
		}
		for i := 1; i < len(path); i++ {
			if !slices.Contains(g.Predecessors(path[i]), path[i-1]) {
				t.Fatalf("iter %d: critical path is not connected at %s->%s", iter, path[i-1], path[i])
			}
		}
	}
}

func TestWaves(t *testing.T) {
	//     a
	//   / | \
	//  b  c  d
	//   \ | /
	//     e
	result := Schedule(buildTestGraph(t, []domain.Task{
		task("a", 1),
		task("b", 1, "a"),
		task("c", 2, "a"),
		task("d", 1, "a"),
		task("e", 1, "b", "c", "d"),
	}), day0)

	waves := Waves(result)
	if len(waves) != 3 {
		t.Fatalf("expected 3 waves, got %d", len(waves))
	}
	if got := waves[1].TaskIDs; !slices.Equal(got, []string{"c", "b", "d"}) {
		t.Errorf("expected critical task first in wave 1, got %v", got)
	}
	if !waves[1].IsCritical {
		t.Error("expected wave 1 to contain critical work")
	}
}

// randomDAG builds tasks whose predecessors always point to earlier ids.
func randomDAG(rng *rand.Rand, n int) []domain.Task {
	tasks := make([]domain.Task, 0, n)
	for i := 0; i < n; i++ {
		var preds []string
		for j := 0; j < i; j++ {
			if rng.IntN(4) == 0 {
				preds = append(preds, fmt.Sprintf("t%03d", j))
			}
		}
		tasks = append(tasks, task(fmt.Sprintf("t%03d", i), float64(rng.IntN(8)), preds...))
	}
	rng.Shuffle(len(tasks), func(i, j int) { tasks[i], tasks[j] = tasks[j], tasks[i] })
	return tasks
}

func assertSchedule(t *testing.T, ts domain.TaskSchedule, es, ef, ls, lf, slack float64, critical bool) {
	t.Helper()
	if ts.EarliestStart != es {
		t.Errorf("task %s: expected ES=%v, got %v", ts.TaskID, es, ts.EarliestStart)
	}
	if ts.EarliestFinish != ef {
		t.Errorf("task %s: expected EF=%v, got %v", ts.TaskID, ef, ts.EarliestFinish)
	}
	if ts.LatestStart != ls {
		t.Errorf("task %s: expected LS=%v, got %v", ts.TaskID, ls, ts.LatestStart)
	}
	if ts.LatestFinish != lf {
		t.Errorf("task %s: expected LF=%v, got %v", ts.TaskID, lf, ts.LatestFinish)
	}
	if ts.Slack != slack {
		t.Errorf("task %s: expected slack=%v, got %v", ts.TaskID, slack, ts.Slack)
	}
	if ts.IsCritical != critical {
		t.Errorf("task %s: expected critical=%v, got %v", ts.TaskID, critical, ts.IsCritical)
	}
}

func TestWaves_GroupsByEarliestStart(t *testing.T) {
	g := buildTestGraph(t, []domain.Task{
		task("A", 3),
		task("B", 2, "A"),
		task("C", 4, "A"),
		task("D", 1, "B", "C"),
	})

	waves := Waves(Schedule(g, day0))
	if len(waves) != 3 {
		t.Fatalf("expected 3 waves, got %d: %+v", len(waves), waves)
	}
	want := [][]string{{"A"}, {"C", "B"}, {"D"}}
	starts := []float64{0, 3, 7}
	for i, w := range waves {
		if w.Index != i || w.Start != starts[i] || !w.IsCritical {
			t.Errorf("wave %d = %+v", i, w)
		}
		if !slices.Equal(w.TaskIDs, want[i]) {
			t.Errorf("wave %d tasks = %v, want %v", i, w.TaskIDs, want[i])
		}
	}
}

func TestWaves_EmptyResult(t *testing.T) {
	if waves := Waves(domain.ScheduleResult{}); len(waves) != 0 {
		t.Fatalf("expected no waves, got %+v", waves)
	}
}
