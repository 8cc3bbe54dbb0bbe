package cli

import (
	"github.com/charmbracelet/log"
	"github.com/valter-silva-au/projitive/internal/core"
	"github.com/valter-silva-au/projitive/internal/observability"
	"github.com/valter-silva-au/projitive/internal/storage"
	"github.com/valter-silva-au/projitive/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	ProjectSvc  core.ProjectService
	TaskMgr     core.TaskManager
	LedgerStore storage.LedgerStore
	EventLog    observability.EventLog
	Logger      *log.Logger
	Config      *models.Config
)

// InitOptions carries the global flags that affect how services are built.
type InitOptions struct {
	ConfigFile string
	Root       string
	// Depth is nil when --depth was not given.
	Depth *int
}

// Initialize builds the services before a command runs. It is set by main;
// when nil, commands use whatever services are already assigned.
var Initialize func(opts InitOptions) error
