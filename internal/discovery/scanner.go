// Package discovery finds governance roots under a directory tree. A
// governance root is a directory holding the configured marker file.
package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/valter-silva-au/projitive/pkg/models"
)

// designDirs are the directory names that count as design docs.
var designDirs = []string{"designs", "design", "docs/design"}

// readmeNames are checked case-sensitively in order.
var readmeNames = []string{"README.md", "readme.md", "README"}

// Artifacts records which governance files a root has.
type Artifacts struct {
	TasksFile  bool
	Roadmap    bool
	Readme     bool
	DesignDocs bool
}

// Scanner walks a directory tree looking for governance roots.
type Scanner struct {
	cfg    models.ScanConfig
	ledger models.LedgerConfig
	skip   map[string]struct{}
	logger *log.Logger
}

// NewScanner creates a Scanner. logger may be nil.
func NewScanner(cfg models.ScanConfig, ledgerCfg models.LedgerConfig, logger *log.Logger) *Scanner {
	if logger == nil {
		logger = log.Default()
	}
	skip := make(map[string]struct{}, len(cfg.SkipDirs))
	for _, d := range cfg.SkipDirs {
		skip[d] = struct{}{}
	}
	return &Scanner{cfg: cfg, ledger: ledgerCfg, skip: skip, logger: logger}
}

// Discover returns the absolute paths of every governance root within
// MaxDepth directory levels of Root, sorted lexically. The root itself is
// depth 0. Unreadable subdirectories are logged and skipped.
func (s *Scanner) Discover(ctx context.Context) ([]string, error) {
	root, err := filepath.Abs(s.cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving scan root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scanning %s: not a directory", root)
	}

	found := []string{}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			s.logger.Warn("skipping unreadable directory", "path", path, "err", err)
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if path != root {
			if _, skip := s.skip[d.Name()]; skip {
				return fs.SkipDir
			}
		}
		if depth(root, path) > s.cfg.MaxDepth {
			return fs.SkipDir
		}
		if isFile(filepath.Join(path, s.cfg.Marker)) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	sort.Strings(found)
	s.logger.Debug("discovered governance roots", "root", root, "count", len(found))
	return found, nil
}

// Inspect reports which governance artifacts govDir has.
func (s *Scanner) Inspect(govDir string) Artifacts {
	a := Artifacts{
		TasksFile: isFile(filepath.Join(govDir, s.ledger.TasksFile)),
		Roadmap:   s.ledger.RoadmapFile != "" && isFile(filepath.Join(govDir, s.ledger.RoadmapFile)),
	}
	for _, name := range readmeNames {
		if isFile(filepath.Join(govDir, name)) {
			a.Readme = true
			break
		}
	}
	for _, name := range designDirs {
		if hasEntries(filepath.Join(govDir, filepath.FromSlash(name))) {
			a.DesignDocs = true
			break
		}
	}
	return a
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func hasEntries(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}
