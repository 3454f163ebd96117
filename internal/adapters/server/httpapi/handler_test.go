package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hylla/gantry/internal/adapters/server/common"
	"github.com/hylla/gantry/internal/domain"
)

// stubService provides deterministic transport responses for handler tests.
type stubService struct {
	projects    []common.ProjectView
	tasks       []common.TaskPayload
	generated   common.GenerateWBSResponse
	plan        domain.SchedulePlan
	gantt       common.GanttResponse
	err         error
	lastCreate  common.CreateProjectRequest
	lastReplace common.ReplaceTasksRequest
	lastGen     common.GenerateWBSRequest
	lastID      string
	lastArchive bool
}

func (s *stubService) CreateProject(_ context.Context, req common.CreateProjectRequest) (common.ProjectView, error) {
	s.lastCreate = req
	if s.err != nil {
		return common.ProjectView{}, s.err
	}
	return common.ProjectView{ID: "p1", Name: req.Name, StartDate: req.StartDate}, nil
}

func (s *stubService) ListProjects(_ context.Context, includeArchived bool) ([]common.ProjectView, error) {
	s.lastArchive = includeArchived
	if s.err != nil {
		return nil, s.err
	}
	return s.projects, nil
}

func (s *stubService) GetProject(_ context.Context, id string) (common.ProjectView, error) {
	s.lastID = id
	if s.err != nil {
		return common.ProjectView{}, s.err
	}
	return common.ProjectView{ID: id}, nil
}

func (s *stubService) ReplaceTasks(_ context.Context, req common.ReplaceTasksRequest) ([]common.TaskPayload, error) {
	s.lastReplace = req
	if s.err != nil {
		return nil, s.err
	}
	return req.Tasks, nil
}

func (s *stubService) ListTasks(_ context.Context, id string) ([]common.TaskPayload, error) {
	s.lastID = id
	if s.err != nil {
		return nil, s.err
	}
	return s.tasks, nil
}

func (s *stubService) GenerateWBS(_ context.Context, req common.GenerateWBSRequest) (common.GenerateWBSResponse, error) {
	s.lastGen = req
	if s.err != nil {
		return common.GenerateWBSResponse{}, s.err
	}
	return s.generated, nil
}

func (s *stubService) GetPlan(_ context.Context, id string) (domain.SchedulePlan, error) {
	s.lastID = id
	if s.err != nil {
		return domain.SchedulePlan{}, s.err
	}
	return s.plan, nil
}

func (s *stubService) Gantt(_ context.Context, id string) (common.GanttResponse, error) {
	s.lastID = id
	if s.err != nil {
		return common.GanttResponse{}, s.err
	}
	return s.gantt, nil
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// decodeErrorEnvelope decodes one structured API error response from the recorder body.
func decodeErrorEnvelope(t *testing.T, rec *httptest.ResponseRecorder) ErrorEnvelope {
	t.Helper()
	var envelope ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return envelope
}

// TestHandlerProjects verifies project create and list wiring.
func TestHandlerProjects(t *testing.T) {
	svc := &stubService{projects: []common.ProjectView{{ID: "p1", Name: "Roadmap"}}}
	handler := NewHandler(svc)

	rec := serve(handler, http.MethodPost, "/projects", `{"name":"Roadmap","start_date":"2026-03-02"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if svc.lastCreate.StartDate != "2026-03-02" {
		t.Fatalf("start_date = %q, want 2026-03-02", svc.lastCreate.StartDate)
	}

	rec = serve(handler, http.MethodGet, "/projects?include_archived=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want %d", rec.Code, http.StatusOK)
	}
	var listed struct {
		Projects []common.ProjectView `json:"projects"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("Decode(list) error = %v", err)
	}
	if len(listed.Projects) != 1 || !svc.lastArchive {
		t.Fatalf("unexpected list %#v archived=%v", listed.Projects, svc.lastArchive)
	}

	rec = serve(handler, http.MethodGet, "/projects?include_archived=maybe", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad flag status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = serve(handler, http.MethodGet, "/projects/p9", "")
	if rec.Code != http.StatusOK || svc.lastID != "p9" {
		t.Fatalf("get status = %d id = %q", rec.Code, svc.lastID)
	}
}

// TestHandlerTasks verifies task snapshot replacement and listing.
func TestHandlerTasks(t *testing.T) {
	svc := &stubService{tasks: []common.TaskPayload{{ID: "a", Title: "A", Duration: 1}}}
	handler := NewHandler(svc)

	body := `{"tasks":[{"id":"a","title":"A","duration":3},{"id":"b","title":"B","duration":2,"predecessors":["a"]}]}`
	rec := serve(handler, http.MethodPut, "/projects/p1/tasks", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("replace status = %d, want %d", rec.Code, http.StatusOK)
	}
	if svc.lastReplace.ProjectID != "p1" || len(svc.lastReplace.Tasks) != 2 || svc.lastReplace.Tasks[1].Predecessors[0] != "a" {
		t.Fatalf("unexpected replace request %#v", svc.lastReplace)
	}

	rec = serve(handler, http.MethodGet, "/projects/p1/tasks", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = serve(handler, http.MethodPut, "/projects/p1/tasks", `{"tasks":[],"extra":true}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	rec = serve(handler, http.MethodPut, "/projects/p1/tasks", `{"tasks":[]} {}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("trailing body status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

// TestHandlerWBSAndGantt verifies generation, plan reads, and gantt reads.
func TestHandlerWBSAndGantt(t *testing.T) {
	svc := &stubService{
		generated: common.GenerateWBSResponse{Status: "ok", RunID: "run-1", Warnings: []string{}},
		plan:      domain.SchedulePlan{ProjectID: "p1", RunID: "run-1", GeneratedAt: time.Date(2026, 2, 24, 12, 0, 0, 0, time.UTC)},
		gantt: common.GanttResponse{
			ProjectStart: "2026-03-02",
			ProjectEnd:   "2026-03-09",
			Tasks:        []common.GanttTask{{ID: "A", IsCritical: true}},
			CriticalPath: []string{"A", "C"},
		},
	}
	handler := NewHandler(svc)

	rec := serve(handler, http.MethodPost, "/projects/p1/wbs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status = %d, want %d", rec.Code, http.StatusOK)
	}
	var generated common.GenerateWBSResponse
	if err := json.NewDecoder(rec.Body).Decode(&generated); err != nil {
		t.Fatalf("Decode(generate) error = %v", err)
	}
	if generated.Status != "ok" || generated.RunID != "run-1" {
		t.Fatalf("unexpected generate payload %#v", generated)
	}

	rec = serve(handler, http.MethodPost, "/projects/p1/wbs", `{"strategy":"naming_convention","delimiter":"."}`)
	if rec.Code != http.StatusOK || svc.lastGen.Strategy != "naming_convention" || svc.lastGen.ProjectID != "p1" {
		t.Fatalf("unexpected generate request %#v (status %d)", svc.lastGen, rec.Code)
	}

	rec = serve(handler, http.MethodGet, "/projects/p1/wbs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("plan status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = serve(handler, http.MethodGet, "/projects/p1/gantt", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("gantt status = %d, want %d", rec.Code, http.StatusOK)
	}
	var raw map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&raw); err != nil {
		t.Fatalf("Decode(gantt) error = %v", err)
	}
	for _, key := range []string{"project_start", "project_end", "tasks", "critical_path"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("gantt payload missing %q: %v", key, raw)
		}
	}
}

// TestHandlerErrorMapping verifies structured status mapping for service errors.
func TestHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantCtx    string
	}{
		{
			name:       "cycle",
			err:        errors.Join(common.ErrInvalidGraph, &domain.CycleError{Cycle: []string{"a", "b", "a"}}),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "invalid_graph",
			wantCtx:    "cycle",
		},
		{
			name:       "dangling",
			err:        errors.Join(common.ErrInvalidGraph, &domain.DanglingReferenceError{TaskID: "a", PredecessorID: "z"}),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "invalid_graph",
			wantCtx:    "predecessor_id",
		},
		{
			name:       "invalid request",
			err:        errors.Join(common.ErrInvalidRequest, errors.New("bad input")),
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
		{
			name:       "not found",
			err:        errors.Join(common.ErrNotFound, errors.New("missing")),
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:       "internal error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(&stubService{err: tt.err})
			rec := serve(handler, http.MethodPost, "/projects/p1/wbs", "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			envelope := decodeErrorEnvelope(t, rec)
			if envelope.Error.Code != tt.wantCode {
				t.Fatalf("error.code = %q, want %q", envelope.Error.Code, tt.wantCode)
			}
			if tt.wantCtx != "" {
				if _, ok := envelope.Error.Context[tt.wantCtx]; !ok {
					t.Fatalf("error.context missing %q: %#v", tt.wantCtx, envelope.Error.Context)
				}
			}
		})
	}
}

// TestHandlerRouteGuards verifies method guards and unknown-route handling.
func TestHandlerRouteGuards(t *testing.T) {
	handler := NewHandler(&stubService{})
	cases := []struct {
		method     string
		target     string
		wantStatus int
		wantAllow  string
	}{
		{http.MethodDelete, "/projects", http.StatusMethodNotAllowed, "GET, POST"},
		{http.MethodPost, "/projects/p1/gantt", http.StatusMethodNotAllowed, "GET"},
		{http.MethodDelete, "/projects/p1/wbs", http.StatusMethodNotAllowed, "GET, POST"},
		{http.MethodPost, "/projects/p1/tasks", http.StatusMethodNotAllowed, "GET, PUT"},
		{http.MethodGet, "/projects/p1/unknown", http.StatusNotFound, ""},
		{http.MethodGet, "/projects/p1/wbs/extra", http.StatusNotFound, ""},
		{http.MethodGet, "/nope", http.StatusNotFound, ""},
	}
	for _, tc := range cases {
		rec := serve(handler, tc.method, tc.target, "")
		if rec.Code != tc.wantStatus {
			t.Fatalf("%s %s status = %d, want %d", tc.method, tc.target, rec.Code, tc.wantStatus)
		}
		if got := rec.Header().Get("Allow"); got != tc.wantAllow {
			t.Fatalf("%s %s Allow = %q, want %q", tc.method, tc.target, got, tc.wantAllow)
		}
	}

	nilService := NewHandler(nil)
	if rec := serve(nilService, http.MethodGet, "/projects", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
