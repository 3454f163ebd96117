package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/hylla/gantry/internal/adapters/server/common"
	"github.com/hylla/gantry/internal/domain"
)

// nopService satisfies common.Service with empty results.
type nopService struct{}

func (nopService) CreateProject(context.Context, common.CreateProjectRequest) (common.ProjectView, error) {
	return common.ProjectView{}, nil
}

func (nopService) ListProjects(context.Context, bool) ([]common.ProjectView, error) {
	return []common.ProjectView{}, nil
}

func (nopService) GetProject(context.Context, string) (common.ProjectView, error) {
	return common.ProjectView{}, errors.Join(common.ErrNotFound, errors.New("missing"))
}

func (nopService) ReplaceTasks(context.Context, common.ReplaceTasksRequest) ([]common.TaskPayload, error) {
	return nil, nil
}

func (nopService) ListTasks(context.Context, string) ([]common.TaskPayload, error) {
	return nil, nil
}

func (nopService) GenerateWBS(context.Context, common.GenerateWBSRequest) (common.GenerateWBSResponse, error) {
	return common.GenerateWBSResponse{}, nil
}

func (nopService) GetPlan(context.Context, string) (domain.SchedulePlan, error) {
	return domain.SchedulePlan{}, nil
}

func (nopService) Gantt(context.Context, string) (common.GanttResponse, error) {
	return common.GanttResponse{}, nil
}

// TestNormalizeConfig verifies defaults and endpoint collision checks.
func TestNormalizeConfig(t *testing.T) {
	cfg, err := normalizeConfig(Config{APIEndpoint: "api/v2/", MCPEndpoint: " "})
	if err != nil {
		t.Fatalf("normalizeConfig() error = %v", err)
	}
	if cfg.HTTPBind != defaultBindAddress || cfg.APIEndpoint != "/api/v2" || cfg.MCPEndpoint != "/mcp" {
		t.Fatalf("unexpected config %#v", cfg)
	}
	if cfg.ServerName != "gantry" || cfg.ServerVersion != "dev" {
		t.Fatalf("unexpected server identity %#v", cfg)
	}

	if _, err := normalizeConfig(Config{APIEndpoint: "/same", MCPEndpoint: "same/"}); err == nil {
		t.Fatalf("normalizeConfig() error = nil, want endpoint collision")
	}
}

// TestNewHandlerRequiresService verifies service dependency enforcement.
func TestNewHandlerRequiresService(t *testing.T) {
	if _, _, err := NewHandler(Config{}, Dependencies{}); err == nil {
		t.Fatalf("NewHandler() error = nil, want non-nil")
	}
}

// TestNewHandlerRoutes verifies health, readiness, and API mounting.
func TestNewHandlerRoutes(t *testing.T) {
	readyErr := errors.New("database closed")
	ready := func(context.Context) error { return readyErr }
	handler, _, err := NewHandler(Config{}, Dependencies{Service: nopService{}, Ready: ready})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	cases := []struct {
		target string
		want   int
	}{
		{"/healthz", http.StatusOK},
		{"/readyz", http.StatusServiceUnavailable},
		{"/api/v1/projects", http.StatusOK},
		{"/api/v1/projects/p1", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.target, nil))
		if rec.Code != tc.want {
			t.Fatalf("GET %s status = %d, want %d", tc.target, rec.Code, tc.want)
		}
	}

	readyErr = nil
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /readyz status = %d, want %d", rec.Code, http.StatusOK)
	}
}

// TestRequestLogging verifies request lines carry method, path, and status.
func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel, Formatter: log.LogfmtFormatter})
	handler, _, err := NewHandler(Config{}, Dependencies{Service: nopService{}, Logger: logger})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/projects/p1", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	out := buf.String()
	for _, want := range []string{"method=GET", "path=/api/v1/projects/p1", "status=404", "level=warn"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output %q missing %q", out, want)
		}
	}
}
