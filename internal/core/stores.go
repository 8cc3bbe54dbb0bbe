package core

import (
	"context"

	"github.com/valter-silva-au/projitive/pkg/models"
)

// LedgerSnapshot is one ledger file as read from disk.
type LedgerSnapshot struct {
	Path     string
	Markdown string
	Tasks    []models.Task
	Exists   bool
}

// LedgerStore is the subset of storage.LedgerStore that core services need.
// This interface is defined locally in core to avoid importing storage.
type LedgerStore interface {
	Load(path string) (*LedgerSnapshot, error)
	// Update runs a load-modify-save cycle under an exclusive lock. The
	// returned tasks replace the ledger block; an error aborts the save.
	Update(path string, fn func(tasks []models.Task) ([]models.Task, error)) error
}

// RoadmapSource returns the roadmap ids known to a project. A nil slice
// with a nil error means the project has no roadmap.
type RoadmapSource interface {
	RoadmapIDs(govDir string) ([]string, error)
}

// ProjectScanner finds governance roots and reports which governance
// artifacts each one has.
type ProjectScanner interface {
	Discover(ctx context.Context) ([]string, error)
	Inspect(govDir string) Artifacts
}

// EventLogger is the subset of the observability event log that core
// services need. Defining it here avoids importing the observability package.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}
