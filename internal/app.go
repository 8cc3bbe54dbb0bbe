// Package internal provides the App struct that wires all components of
// projitive together and initializes the CLI layer.
package internal

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/valter-silva-au/projitive/internal/cli"
	"github.com/valter-silva-au/projitive/internal/core"
	"github.com/valter-silva-au/projitive/internal/discovery"
	"github.com/valter-silva-au/projitive/internal/observability"
	"github.com/valter-silva-au/projitive/internal/storage"
	"github.com/valter-silva-au/projitive/pkg/models"
)

// Options selects the configuration and the overrides given on the command line.
type Options struct {
	// BasePath is where the config search starts, usually the working directory.
	BasePath   string
	ConfigFile string
	Root       string
	// Depth overrides scan.max_depth when non-nil.
	Depth *int
	// LogOutput defaults to stderr; stdout is reserved for command output and MCP.
	LogOutput io.Writer
}

// App holds all service dependencies.
type App struct {
	Config    *models.Config
	ConfigMgr core.ConfigurationManager
	Logger    *log.Logger

	// Storage and discovery
	LedgerStore storage.LedgerStore
	Roadmaps    storage.RoadmapReader
	Scanner     *discovery.Scanner

	// Core services
	TaskMgr    core.TaskManager
	ProjectSvc core.ProjectService

	// Observability
	EventLog observability.EventLog
}

// NewApp loads configuration, builds every service and hands them to the CLI.
func NewApp(opts Options) (*App, error) {
	app := &App{}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(opts.BasePath, opts.ConfigFile)
	cfg, err := app.ConfigMgr.LoadConfig()
	if err != nil {
		return nil, err
	}
	if opts.Root != "" {
		cfg.Scan.Root = opts.Root
	}
	if opts.Depth != nil {
		cfg.Scan.MaxDepth = *opts.Depth
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	// --- Logging ---
	logOpts, err := observability.LoggerOptionsFromConfig(cfg.Log)
	if err != nil {
		return nil, err
	}
	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	app.Logger = observability.NewLogger(out, logOpts)

	// --- Observability ---
	var events core.EventLogger
	if cfg.Events.Path != "" {
		eventLog, err := observability.NewJSONLEventLog(cfg.Events.Path)
		if err != nil {
			return nil, fmt.Errorf("opening event log: %w", err)
		}
		app.EventLog = eventLog
		events = eventLog
	}

	// --- Storage and discovery ---
	app.LedgerStore = storage.NewLedgerStore()
	app.Roadmaps = storage.NewRoadmapReader(cfg.Ledger.RoadmapFile)
	app.Scanner = discovery.NewScanner(cfg.Scan, cfg.Ledger, app.Logger)

	// --- Core services ---
	ledgers := &ledgerStoreAdapter{store: app.LedgerStore}
	app.TaskMgr = core.NewTaskManager(ledgers, cfg.Ledger.TasksFile, events)
	app.ProjectSvc = core.NewProjectService(
		&scannerAdapter{scanner: app.Scanner},
		ledgers,
		app.Roadmaps,
		app.TaskMgr,
		core.ThresholdsFromConfig(cfg.Confidence),
		app.Logger,
	)

	// --- Wire CLI package-level variables ---
	cli.ProjectSvc = app.ProjectSvc
	cli.TaskMgr = app.TaskMgr
	cli.LedgerStore = app.LedgerStore
	cli.EventLog = app.EventLog
	cli.Logger = app.Logger
	cli.Config = app.Config

	app.Logger.Debug("services initialized",
		"root", cfg.Scan.Root,
		"max_depth", cfg.Scan.MaxDepth,
		"tasks_file", cfg.Ledger.TasksFile,
		"events", cfg.Events.Path != "",
	)
	return app, nil
}

// Close releases resources held by the App, such as the event log file handle.
// It is safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath returns the working directory, where the config search starts.
func ResolveBasePath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

// --- Adapters ---

// ledgerStoreAdapter adapts storage.LedgerStore to core.LedgerStore.
type ledgerStoreAdapter struct {
	store storage.LedgerStore
}

func (a *ledgerStoreAdapter) Load(path string) (*core.LedgerSnapshot, error) {
	l, err := a.store.Load(path)
	if err != nil {
		return nil, err
	}
	return &core.LedgerSnapshot{Path: l.Path, Markdown: l.Markdown, Tasks: l.Tasks, Exists: l.Exists}, nil
}

func (a *ledgerStoreAdapter) Update(path string, fn func([]models.Task) ([]models.Task, error)) error {
	return a.store.Update(path, fn)
}

// scannerAdapter adapts discovery.Scanner to core.ProjectScanner.
type scannerAdapter struct {
	scanner *discovery.Scanner
}

func (a *scannerAdapter) Discover(ctx context.Context) ([]string, error) {
	return a.scanner.Discover(ctx)
}

func (a *scannerAdapter) Inspect(govDir string) core.Artifacts {
	found := a.scanner.Inspect(govDir)
	return core.Artifacts{
		TasksFile:  found.TasksFile,
		Roadmap:    found.Roadmap,
		Readme:     found.Readme,
		DesignDocs: found.DesignDocs,
	}
}
