package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mesutfelat/cowork-oss-sub004/internal/approval"
	"github.com/mesutfelat/cowork-oss-sub004/internal/config"
	"github.com/mesutfelat/cowork-oss-sub004/internal/eventlog"
	"github.com/mesutfelat/cowork-oss-sub004/internal/orchestrator"
	"github.com/mesutfelat/cowork-oss-sub004/internal/shared/logging"
	"github.com/mesutfelat/cowork-oss-sub004/internal/task"
	"github.com/mesutfelat/cowork-oss-sub004/internal/tools"
	"github.com/mesutfelat/cowork-oss-sub004/internal/tools/builtin"
	"github.com/mesutfelat/cowork-oss-sub004/internal/utils/id"
	"github.com/mesutfelat/cowork-oss-sub004/internal/workspace"
)

// App holds the wired runtime for one CLI invocation.
type App struct {
	Config       config.Config
	Logger       logging.Logger
	Gate         *approval.Gate
	Log          eventlog.Log
	Workspaces   *workspace.MemoryManager
	Registry     *tools.Registry
	Orchestrator *orchestrator.Orchestrator

	// Workspace is the root workspace tool calls run against.
	Workspace *workspace.Workspace

	closers []func() error
}

type appOptions struct {
	configPath    string
	workspaceRoot string
	autoApprove   bool
	denyAll       bool
	allowShell    bool
	allowDelete   bool
	allowNetwork  bool
	runner        orchestrator.Runner
}

func buildApp(opts appOptions) (*App, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.NewComponentLoggerAt("cowork", logging.ParseLevel(cfg.LogLevel))

	root := opts.workspaceRoot
	if root == "" {
		root = cfg.WorkspaceRoot
	}
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("resolve workspace root: %w", err)
		}
	}

	app := &App{Config: cfg, Logger: logger}

	app.Log = eventlog.NewMemoryLog()
	if cfg.EventLogPath != "" {
		sqliteLog, err := eventlog.NewSQLiteLog(cfg.EventLogPath)
		if err != nil {
			return nil, fmt.Errorf("open event log: %w", err)
		}
		app.Log = sqliteLog
		app.closers = append(app.closers, sqliteLog.Close)
	}

	app.Gate = approval.NewGate(cfg.ApprovalTimeout, logger)
	switch {
	case opts.denyAll:
		go approval.NewAutoApprover(app.Gate, false).Run()
	case opts.autoApprove:
		go approval.NewAutoApprover(app.Gate, true).Run()
	default:
		go approval.NewTerminalApprover(app.Gate, true).Run()
	}

	app.Workspaces = workspace.NewMemoryManager()
	app.Workspace = &workspace.Workspace{
		ID:       id.NewWorkspaceID(),
		RootPath: root,
		Permissions: workspace.Permissions{
			Read:    true,
			Write:   true,
			Delete:  opts.allowDelete,
			Network: opts.allowNetwork,
			Shell:   opts.allowShell,
		},
	}
	app.Workspaces.Put(app.Workspace)

	promRegistry := prometheus.NewRegistry()
	app.Registry, err = tools.NewRegistry(tools.Config{
		Gate:       app.Gate,
		Log:        app.Log,
		Workspaces: app.Workspaces,
		Logger:     logger,
		Metrics:    tools.NewMetrics(promRegistry),
	})
	if err != nil {
		return nil, err
	}
	if err := builtin.Register(app.Registry, cfg.Limits); err != nil {
		return nil, err
	}

	runner := opts.runner
	if runner == nil {
		runner = promptRunner(app)
	}
	app.Orchestrator, err = orchestrator.New(orchestrator.Config{
		Graph:           task.NewGraph(),
		Registry:        app.Registry,
		Gate:            app.Gate,
		Log:             app.Log,
		Workspaces:      app.Workspaces,
		Runner:          runner,
		Logger:          logger,
		Metrics:         orchestrator.NewMetrics(promRegistry),
		MaxTaskDepth:    cfg.MaxTaskDepth,
		MaxChildWorkers: cfg.MaxChildWorkers,
	})
	if err != nil {
		return nil, err
	}
	if err := orchestrator.RegisterAgentTools(app.Registry, app.Orchestrator); err != nil {
		return nil, err
	}
	return app, nil
}

func (a *App) Close() {
	for _, closer := range a.closers {
		if err := closer(); err != nil {
			a.Logger.Warn("close: %v", err)
		}
	}
}
