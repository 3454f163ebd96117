package mcpapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/hylla/gantry/internal/adapters/server/common"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// registerProjectTools registers project list/create/get tools.
func registerProjectTools(srv *mcpserver.MCPServer, projects common.ProjectService) {
	srv.AddTool(
		mcp.NewTool(
			"gantry.list_projects",
			mcp.WithDescription("List projects."),
			mcp.WithBoolean("include_archived", mcp.Description("Include archived projects")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			rows, err := projects.ListProjects(ctx, req.GetBool("include_archived", false))
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"projects": rows,
			})
			if err != nil {
				return nil, fmt.Errorf("encode list_projects result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"gantry.create_project",
			mcp.WithDescription("Create one project anchored at a calendar start date."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Project name")),
			mcp.WithString("description", mcp.Description("Project description")),
			mcp.WithString("start_date", mcp.Required(), mcp.Description("Project start date (YYYY-MM-DD)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args struct {
				Name        string `json:"name"`
				Description string `json:"description"`
				StartDate   string `json:"start_date"`
			}
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			if strings.TrimSpace(args.Name) == "" {
				return mcp.NewToolResultError(`invalid_request: required argument "name" not found`), nil
			}
			project, err := projects.CreateProject(ctx, common.CreateProjectRequest{
				Name:        args.Name,
				Description: args.Description,
				StartDate:   args.StartDate,
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(project)
			if err != nil {
				return nil, fmt.Errorf("encode create_project result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"gantry.get_project",
			mcp.WithDescription("Return one project by id."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := req.RequireString("project_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			project, err := projects.GetProject(ctx, projectID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(project)
			if err != nil {
				return nil, fmt.Errorf("encode get_project result: %w", err)
			}
			return result, nil
		},
	)
}

// registerTaskTools registers task snapshot list/replace tools.
func registerTaskTools(srv *mcpserver.MCPServer, tasks common.ProjectService) {
	srv.AddTool(
		mcp.NewTool(
			"gantry.list_tasks",
			mcp.WithDescription("List the task snapshot of one project."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := req.RequireString("project_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			rows, err := tasks.ListTasks(ctx, projectID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"tasks": rows,
			})
			if err != nil {
				return nil, fmt.Errorf("encode list_tasks result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"gantry.replace_tasks",
			mcp.WithDescription("Replace the whole task snapshot of one project."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
			mcp.WithArray(
				"tasks",
				mcp.Required(),
				mcp.Description("Task records: id, title, duration, predecessors, parent_id, is_milestone, progress_percent"),
			),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args struct {
				ProjectID string               `json:"project_id"`
				Tasks     []common.TaskPayload `json:"tasks"`
			}
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			if strings.TrimSpace(args.ProjectID) == "" {
				return mcp.NewToolResultError(`invalid_request: required argument "project_id" not found`), nil
			}
			rows, err := tasks.ReplaceTasks(ctx, common.ReplaceTasksRequest{
				ProjectID: args.ProjectID,
				Tasks:     args.Tasks,
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"tasks": rows,
			})
			if err != nil {
				return nil, fmt.Errorf("encode replace_tasks result: %w", err)
			}
			return result, nil
		},
	)
}

// registerScheduleTools registers WBS generation, plan, and gantt tools.
func registerScheduleTools(srv *mcpserver.MCPServer, schedules common.ScheduleService) {
	srv.AddTool(
		mcp.NewTool(
			"gantry.generate_wbs",
			mcp.WithDescription("Build the WBS and CPM schedule for one project and persist it as the current plan."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
			mcp.WithString("strategy", mcp.Description("Grouping strategy"), mcp.Enum("explicit_parent", "naming_convention")),
			mcp.WithString("delimiter", mcp.Description("Title delimiter for naming_convention")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := req.RequireString("project_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			out, err := schedules.GenerateWBS(ctx, common.GenerateWBSRequest{
				ProjectID: projectID,
				Strategy:  req.GetString("strategy", ""),
				Delimiter: req.GetString("delimiter", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(out)
			if err != nil {
				return nil, fmt.Errorf("encode generate_wbs result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"gantry.get_plan",
			mcp.WithDescription("Return the last persisted WBS plan for one project."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := req.RequireString("project_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			plan, err := schedules.GetPlan(ctx, projectID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(plan)
			if err != nil {
				return nil, fmt.Errorf("encode get_plan result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"gantry.gantt",
			mcp.WithDescription("Return Gantt rows computed from the current task snapshot."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := req.RequireString("project_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			out, err := schedules.Gantt(ctx, projectID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(out)
			if err != nil {
				return nil, fmt.Errorf("encode gantt result: %w", err)
			}
			return result, nil
		},
	)
}
