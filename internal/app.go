// Package internal provides the App struct that wires all components of
// Grove together and initializes the CLI layer.
package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/grovekit/grove/internal/cli"
	"github.com/grovekit/grove/internal/core"
	"github.com/grovekit/grove/internal/integration"
	"github.com/grovekit/grove/internal/observability"
	"github.com/grovekit/grove/internal/storage"
)

// App holds all service dependencies for Grove.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigManager

	// Core services
	Resolver    *core.PathResolver
	Categorizer *core.Categorizer
	Locks       *core.KeyLocks
	Queue       *core.TaskQueueService

	// Storage layer
	Journal *storage.FileQueueJournal

	// Integration services
	Git       *integration.GitRunner
	Checkouts integration.CheckoutManager
	SyncEng   integration.SyncEngine
	Scheduler *integration.SyncScheduler
	Intake    *integration.IntakeService

	// Observability
	EventLog observability.EventLog
}

// NewApp creates and wires all components of Grove. basePath is the
// directory holding .groveconfig, the checkout root, the queue journals,
// and the intake directory.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigManager(basePath)
	cfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	// --- Observability ---
	eventLogPath := filepath.Join(basePath, ".grove_events.jsonl")
	app.EventLog, err = observability.NewJSONLEventLog(eventLogPath)
	if err != nil {
		// Non-fatal: disable observability if log can't be created.
		app.EventLog = nil
	}
	var events core.EventLogger
	if app.EventLog != nil {
		events = &eventLogAdapter{log: app.EventLog}
	}

	// --- Core services ---
	app.Resolver = core.NewPathResolver(cfg.RootDir, cfg.BranchMaxLength)
	app.Categorizer = core.NewCategorizer(nil)
	app.Locks = core.NewKeyLocks()

	// --- Storage layer ---
	app.Journal = storage.NewFileQueueJournal(filepath.Join(basePath, "queues"))
	app.Queue = core.NewTaskQueueService(app.Journal, app.Locks, events)
	if err := app.Queue.Recover(); err != nil {
		return nil, fmt.Errorf("recovering queues: %w", err)
	}

	// --- Integration services ---
	app.Git = integration.NewGitRunner(cfg.GitTimeout)
	app.Checkouts = integration.NewCheckoutManager(app.Resolver, app.Git, cfg, app.ConfigMgr, app.Locks, app.Queue, events)
	app.SyncEng = integration.NewSyncEngine(app.Resolver, app.Git, app.Checkouts, app.Locks, events, cfg.SyncWorkers)
	app.Scheduler = integration.NewSyncScheduler(app.SyncEng, events, cfg.SyncInterval)
	app.Intake = integration.NewIntakeService(cfg.IntakeDir, app.Categorizer, app.Resolver, app.Queue, app.Checkouts, events)

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = cfg
	cli.Resolver = app.Resolver
	cli.Categorizer = app.Categorizer
	cli.Queue = app.Queue
	cli.Checkouts = app.Checkouts
	cli.SyncEng = app.SyncEng
	cli.Scheduler = app.Scheduler
	cli.Intake = app.Intake
	cli.EventLog = app.EventLog

	return app, nil
}

// Close releases resources held by the App, such as the event log file
// handle. It is safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the base path for the Grove data directory.
// It checks the GROVE_HOME env var, then walks up from the current
// directory looking for a .groveconfig.
func ResolveBasePath() string {
	if home := os.Getenv("GROVE_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".groveconfig")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}

// eventLogAdapter adapts observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	return a.log.Write(observability.Event{
		Time:    time.Now().UTC(),
		Level:   "INFO",
		Type:    eventType,
		Message: eventType,
		Data:    data,
	})
}
