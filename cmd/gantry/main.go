package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	serveradapter "github.com/hylla/gantry/internal/adapters/server"
	servercommon "github.com/hylla/gantry/internal/adapters/server/common"
	"github.com/hylla/gantry/internal/adapters/storage/sqlite"
	"github.com/hylla/gantry/internal/app"
	"github.com/hylla/gantry/internal/config"
	"github.com/hylla/gantry/internal/gantt"
	"github.com/hylla/gantry/internal/platform"
	"github.com/hylla/gantry/internal/wbs"
	"github.com/spf13/cobra"
)

// version is stamped at build time.
var version = "dev"

// serveCommandRunner starts the HTTP+MCP serve flow.
var serveCommandRunner = func(ctx context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
	return serveradapter.Run(ctx, cfg, deps)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root := newRootCommand(os.Stdout, os.Stderr)
	err := fang.Execute(ctx, root, fang.WithVersion(version))
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// run executes one CLI invocation without the fang presentation layer.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// rootOptions holds persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
	stdout     io.Writer
	stderr     io.Writer
}

// newRootCommand builds the gantry command tree.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	opts := &rootOptions{stdout: stdout, stderr: stderr}

	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("GANTRY_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	defaultApp := "gantry"
	if envApp := strings.TrimSpace(os.Getenv("GANTRY_APP_NAME")); envApp != "" {
		defaultApp = envApp
	}

	root := &cobra.Command{
		Use:           "gantry",
		Short:         "Plan projects as a work breakdown structure and schedule them with the critical path method",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config TOML")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	root.PersistentFlags().StringVar(&opts.appName, "app", defaultApp, "application name for config/data path resolution")
	root.PersistentFlags().BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newPathsCommand(opts),
		newServeCommand(opts),
		newProjectCommand(opts),
		newImportCommand(opts),
		newExportCommand(opts),
		newGenerateCommand(opts),
		newWBSCommand(opts),
		newGanttCommand(opts),
	)
	return root
}

// session bundles the resolved config, logger, and service for one command.
type session struct {
	cfg    config.Config
	logger *runtimeLogger
	repo   *sqlite.Repository
	svc    *app.Service
}

// open resolves paths and config, then wires logging, storage, and the service.
func (o *rootOptions) open(command string) (*session, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: o.appName,
		DevMode: o.devMode,
	})
	if err != nil {
		return nil, err
	}

	configPath := o.configPath
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("GANTRY_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(o.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("GANTRY_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}

	logger, err := newRuntimeLogger(o.stderr, o.appName, o.devMode, cfg.Logging, paths.LogDir, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	logger.Info("startup configuration resolved", "app", o.appName, "dev_mode", o.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", cfg.Database.Path)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		_ = logger.Close()
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	logger.Debug("sqlite repository ready", "db_path", cfg.Database.Path)

	svc := app.NewService(repo, uuid.NewString, nil, app.ServiceConfig{
		DefaultStrategy: cfg.Scheduling.DefaultStrategy,
		NamingDelimiter: cfg.Scheduling.NamingDelimiter,
	})
	return &session{cfg: cfg, logger: logger, repo: repo, svc: svc}, nil
}

// close releases storage and log sinks.
func (rt *session) close() {
	if err := rt.repo.Close(); err != nil {
		rt.logger.Warn("sqlite close failed", "err", err)
	}
	_ = rt.logger.Close()
}

// withSession opens a session around one command body and logs its outcome.
func (o *rootOptions) withSession(command string, fn func(*session) error) error {
	rt, err := o.open(command)
	if err != nil {
		return err
	}
	defer rt.close()

	rt.logger.Debug("command flow start", "command", command)
	if err := fn(rt); err != nil {
		rt.logger.Error("command flow failed", "command", command, "err", err)
		return fmt.Errorf("run %s command: %w", command, err)
	}
	rt.logger.Debug("command flow complete", "command", command)
	return nil
}

func newPathsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := platform.DefaultPathsWithOptions(platform.Options{
				AppName: opts.appName,
				DevMode: opts.devMode,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(out, "db: %s\n", paths.DBPath)
			_, _ = fmt.Fprintf(out, "log_dir: %s\n", paths.LogDir)
			return nil
		},
	}
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var httpBind, apiEndpoint, mcpEndpoint string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API and MCP endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withSession("serve", func(rt *session) error {
				cfg := serveradapter.Config{
					HTTPBind:      firstNonEmpty(httpBind, rt.cfg.Server.HTTPBind),
					APIEndpoint:   firstNonEmpty(apiEndpoint, rt.cfg.Server.APIEndpoint),
					MCPEndpoint:   firstNonEmpty(mcpEndpoint, rt.cfg.Server.MCPEndpoint),
					ServerName:    opts.appName,
					ServerVersion: version,
				}
				return serveCommandRunner(cmd.Context(), cfg, serveradapter.Dependencies{
					Service: servercommon.NewAppServiceAdapter(rt.svc),
					Logger:  rt.logger,
					Ready:   rt.repo.Ping,
				})
			})
		},
	}
	cmd.Flags().StringVar(&httpBind, "http", "", "HTTP bind address (overrides server.http_bind)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "REST API mount path")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP endpoint path")
	return cmd
}

func newProjectCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	var name, description, start string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			startDate, err := servercommon.ParseDate(start)
			if err != nil {
				return fmt.Errorf("parse --start: %w", err)
			}
			return opts.withSession("project create", func(rt *session) error {
				project, err := rt.svc.CreateProject(cmd.Context(), app.CreateProjectInput{
					Name:        name,
					Description: description,
					StartDate:   startDate,
				})
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", project.ID, project.Name, project.StartDate.Format(servercommon.DateLayout))
				return nil
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "project name")
	create.Flags().StringVar(&description, "description", "", "project description")
	create.Flags().StringVar(&start, "start", "", "project start date (YYYY-MM-DD)")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("start")

	var includeArchived bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withSession("project list", func(rt *session) error {
				projects, err := rt.svc.ListProjects(cmd.Context(), includeArchived)
				if err != nil {
					return err
				}
				for _, p := range projects {
					state := "active"
					if p.ArchivedAt != nil {
						state = "archived"
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.StartDate.Format(servercommon.DateLayout), state)
				}
				return nil
			})
		},
	}
	list.Flags().BoolVar(&includeArchived, "archived", false, "include archived projects")

	var newName, newDescription, newStart string
	update := &cobra.Command{
		Use:   "update <project-id>",
		Short: "Rename, describe, or reschedule a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := app.UpdateProjectInput{ProjectID: args[0], Name: newName}
			if cmd.Flags().Changed("description") {
				in.Description = &newDescription
			}
			if newStart != "" {
				startDate, err := servercommon.ParseDate(newStart)
				if err != nil {
					return fmt.Errorf("parse --start: %w", err)
				}
				in.StartDate = startDate
			}
			return opts.withSession("project update", func(rt *session) error {
				project, err := rt.svc.UpdateProject(cmd.Context(), in)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", project.ID, project.Name, project.StartDate.Format(servercommon.DateLayout))
				return nil
			})
		},
	}
	update.Flags().StringVar(&newName, "name", "", "new project name")
	update.Flags().StringVar(&newDescription, "description", "", "new project description")
	update.Flags().StringVar(&newStart, "start", "", "new project start date (YYYY-MM-DD)")

	archive := &cobra.Command{
		Use:   "archive <project-id>",
		Short: "Archive a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession("project archive", func(rt *session) error {
				_, err := rt.svc.ArchiveProject(cmd.Context(), args[0])
				return err
			})
		},
	}
	restore := &cobra.Command{
		Use:   "restore <project-id>",
		Short: "Restore an archived project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession("project restore", func(rt *session) error {
				_, err := rt.svc.RestoreProject(cmd.Context(), args[0])
				return err
			})
		},
	}

	cmd.AddCommand(create, list, update, archive, restore)
	return cmd
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	var inPath, projectID, format string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a project snapshot file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := readSnapshotFile(inPath, format)
			if err != nil {
				return err
			}
			return opts.withSession("import", func(rt *session) error {
				project, tasks, err := rt.svc.ImportSnapshot(cmd.Context(), snap, projectID)
				if err != nil {
					return err
				}
				rt.logger.Info("snapshot imported", "project_id", project.ID, "tasks", len(tasks))
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d tasks into %s\n", len(tasks), project.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input snapshot file (JSON or YAML)")
	cmd.Flags().StringVar(&format, "format", "", "snapshot format: json or yaml (default from file extension)")
	cmd.Flags().StringVar(&projectID, "project", "", "target project id (overrides the snapshot project id)")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var outPath, format string
	cmd := &cobra.Command{
		Use:   "export <project-id>",
		Short: "Export a project and its tasks as a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession("export", func(rt *session) error {
				snap, err := rt.svc.ExportSnapshot(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeSnapshotOutput(cmd.OutOrStdout(), outPath, format, snap)
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	cmd.Flags().StringVar(&format, "format", "", "snapshot format: json or yaml (default from file extension)")
	return cmd
}

func newGenerateCommand(opts *rootOptions) *cobra.Command {
	var strategy, delimiter string
	cmd := &cobra.Command{
		Use:   "generate <project-id>",
		Short: "Build the WBS and CPM schedule and store it as the current plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession("generate", func(rt *session) error {
				plan, err := rt.svc.GenerateWBS(cmd.Context(), app.GenerateWBSInput{
					ProjectID: args[0],
					Strategy:  strategy,
					Delimiter: delimiter,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "run: %s\n", plan.RunID)
				_, _ = fmt.Fprintf(out, "strategy: %s\n", plan.Strategy)
				_, _ = fmt.Fprintf(out, "project_end: %s\n", plan.ProjectEnd.Format(servercommon.DateLayout))
				_, _ = fmt.Fprintf(out, "duration_days: %s\n", strconv.FormatFloat(plan.DurationDays, 'f', -1, 64))
				_, _ = fmt.Fprintf(out, "critical_path: %s\n", strings.Join(plan.CriticalPath, " → "))
				for _, warning := range plan.Warnings {
					rt.logger.Warn("wbs warning", "project_id", args[0], "warning", warning)
					_, _ = fmt.Fprintf(out, "warning: %s\n", warning)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "", "grouping strategy: explicit_parent or naming_convention")
	cmd.Flags().StringVar(&delimiter, "delimiter", "", "title delimiter for naming_convention")
	return cmd
}

func newWBSCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "wbs <project-id>",
		Short: "Show the stored WBS plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession("wbs", func(rt *session) error {
				plan, err := rt.svc.GetPlan(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSONOutput(cmd.OutOrStdout(), "-", plan)
				}
				return wbs.RenderTree(cmd.OutOrStdout(), plan.WBS)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the plan as JSON")
	return cmd
}

func newGanttCommand(opts *rootOptions) *cobra.Command {
	var (
		width  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "gantt <project-id>",
		Short: "Render the schedule as a Gantt chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession("gantt", func(rt *session) error {
				view, err := rt.svc.Gantt(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSONOutput(cmd.OutOrStdout(), "-", servercommon.GanttResponseFromView(view))
				}
				out := cmd.OutOrStdout()
				if err := gantt.Render(out, view.Rows, width); err != nil {
					return fmt.Errorf("render gantt: %w", err)
				}
				_, _ = fmt.Fprintf(out, "\n%s → %s, critical path: %s\n",
					view.Result.ProjectStart.Format(servercommon.DateLayout),
					view.Result.ProjectEnd.Format(servercommon.DateLayout),
					strings.Join(view.Result.CriticalPath, " → "),
				)
				for _, w := range view.Waves {
					marker := ""
					if w.IsCritical {
						marker = " *"
					}
					_, _ = fmt.Fprintf(out, "wave %d (day %s)%s: %s\n", w.Index+1, strconv.FormatFloat(w.Start, 'f', -1, 64), marker, strings.Join(w.TaskIDs, ", "))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&width, "width", 100, "chart width in columns")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print rows as JSON")
	return cmd
}

// writeJSONOutput writes indented JSON to stdout ("-") or a file path.
func writeJSONOutput(stdout io.Writer, outPath string, payload any) error {
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return writeOutput(stdout, outPath, append(encoded, '\n'))
}

// writeOutput writes encoded bytes to stdout ("-") or a file path.
func writeOutput(stdout io.Writer, outPath string, encoded []byte) error {
	if outPath == "" || outPath == "-" {
		if _, err := stdout.Write(encoded); err != nil {
			return fmt.Errorf("write to stdout: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// parseBoolEnv parses one boolean env var, reporting whether it was set and valid.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
