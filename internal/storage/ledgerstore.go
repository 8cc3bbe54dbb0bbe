// Package storage reads and writes the files a governance directory owns:
// the task ledger and the roadmap.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/valter-silva-au/projitive/internal/ledger"
	"github.com/valter-silva-au/projitive/pkg/models"
)

const filePerms = 0o644

// ledgerHeading starts every ledger created by Init.
const ledgerHeading = "# Tasks\n\nTask records live between the markers below. Edit freely; keep the field layout.\n\n"

// Ledger is a parsed ledger file.
type Ledger struct {
	Path     string
	Markdown string
	Tasks    []models.Task
	// Exists is false when the file was missing and the ledger is empty.
	Exists bool
}

// LedgerStore defines file access for task ledgers.
type LedgerStore interface {
	Load(path string) (*Ledger, error)
	Save(path string, tasks []models.Task) error
	Update(path string, fn func(tasks []models.Task) ([]models.Task, error)) error
	Init(path string) (created bool, err error)
}

type fileLedgerStore struct{}

// NewLedgerStore creates a LedgerStore backed by markdown files.
func NewLedgerStore() LedgerStore {
	return &fileLedgerStore{}
}

// Load reads and parses the ledger at path. A missing file is an empty ledger.
func (s *fileLedgerStore) Load(path string) (*Ledger, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Ledger{Path: path, Tasks: []models.Task{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", path, err)
	}
	md := string(data)
	return &Ledger{Path: path, Markdown: md, Tasks: ledger.Parse(md), Exists: true}, nil
}

// Save renders tasks into the ledger block of the file at path, keeping the
// text around the markers. The file is created when missing.
func (s *fileLedgerStore) Save(path string, tasks []models.Task) error {
	unlock, err := s.lock(path)
	if err != nil {
		return err
	}
	defer unlock()

	current, err := s.Load(path)
	if err != nil {
		return err
	}
	return s.write(path, current, tasks)
}

// Update runs fn over the current tasks and saves the result while holding
// the ledger lock. Nothing is written when fn fails.
func (s *fileLedgerStore) Update(path string, fn func(tasks []models.Task) ([]models.Task, error)) error {
	unlock, err := s.lock(path)
	if err != nil {
		return err
	}
	defer unlock()

	current, err := s.Load(path)
	if err != nil {
		return err
	}
	next, err := fn(current.Tasks)
	if err != nil {
		return err
	}
	return s.write(path, current, next)
}

// Init creates an empty ledger with a heading when no file exists.
func (s *fileLedgerStore) Init(path string) (bool, error) {
	unlock, err := s.lock(path)
	if err != nil {
		return false, err
	}
	defer unlock()

	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("checking ledger %s: %w", path, err)
	}
	if err := writeAtomic(path, ledger.Splice(ledgerHeading, nil)); err != nil {
		return false, err
	}
	return true, nil
}

func (s *fileLedgerStore) write(path string, current *Ledger, tasks []models.Task) error {
	md := current.Markdown
	if !current.Exists {
		md = ledgerHeading
	}
	return writeAtomic(path, ledger.Splice(md, tasks))
}

// lock takes the advisory lock kept next to the ledger.
func (s *fileLedgerStore) lock(path string) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	unlock, err := lockFile(path + ".lock")
	if err != nil {
		return nil, fmt.Errorf("locking ledger %s: %w", path, err)
	}
	return unlock, nil
}

func writeAtomic(path, content string) error {
	_, statErr := os.Stat(path)
	isNew := errors.Is(statErr, fs.ErrNotExist)

	if err := atomic.WriteFile(path, strings.NewReader(content)); err != nil {
		return fmt.Errorf("writing ledger %s: %w", path, err)
	}
	// atomic.WriteFile leaves new files with temp-file permissions.
	if isNew {
		if err := os.Chmod(path, filePerms); err != nil {
			return fmt.Errorf("setting ledger permissions: %w", err)
		}
	}
	return nil
}
