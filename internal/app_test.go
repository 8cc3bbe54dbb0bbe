package internal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valter-silva-au/projitive/internal/cli"
	"github.com/valter-silva-au/projitive/internal/core"
	"github.com/valter-silva-au/projitive/internal/observability"
	"github.com/valter-silva-au/projitive/pkg/models"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// newTestWorkspace lays out two governance roots under a fresh directory
// with a config file that enables the event log.
func newTestWorkspace(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "projitive.yaml"), `scan:
  root: .
  max_depth: 2
events:
  path: state/events.jsonl
log:
  level: debug
`)
	writeFile(t, filepath.Join(base, "api", ".projitive"), "")
	writeFile(t, filepath.Join(base, "api", "roadmap.md"), "# Roadmap\n\n- ROADMAP-0001 auth\n")
	writeFile(t, filepath.Join(base, "api", "tasks.md"), `# Tasks

<!-- PROJITIVE:TASKS:START -->
## TASK-0001 | IN_PROGRESS | wire auth
- owner: alice
- summary: login flow
- updatedAt: 2025-01-02T00:00:00Z
- roadmapRefs: ROADMAP-0001
- links:
  - (none)
<!-- PROJITIVE:TASKS:END -->
`)
	writeFile(t, filepath.Join(base, "web", ".projitive"), "")
	return base
}

func TestNewApp_WiresCLI(t *testing.T) {
	base := newTestWorkspace(t)
	var logs bytes.Buffer

	app, err := NewApp(Options{BasePath: base, LogOutput: &logs})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })

	if cli.ProjectSvc != app.ProjectSvc || cli.TaskMgr != app.TaskMgr || cli.Config != app.Config {
		t.Error("expected CLI variables to be wired to the app services")
	}
	if cli.EventLog == nil {
		t.Error("expected event log to be opened when events.path is set")
	}
	if app.Config.Scan.Root != base {
		t.Errorf("scan root = %q, want %q", app.Config.Scan.Root, base)
	}
	if !strings.Contains(logs.String(), "services initialized") {
		t.Errorf("expected debug log, got %q", logs.String())
	}
}

func TestNewApp_Overrides(t *testing.T) {
	base := newTestWorkspace(t)
	other := t.TempDir()
	zero := 0

	app, err := NewApp(Options{BasePath: base, Root: other, Depth: &zero, LogOutput: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })

	if app.Config.Scan.Root != other || app.Config.Scan.MaxDepth != 0 {
		t.Errorf("overrides not applied: %+v", app.Config.Scan)
	}
}

func TestNewApp_NoDepthKeepsConfig(t *testing.T) {
	base := newTestWorkspace(t)

	app, err := NewApp(Options{BasePath: base, LogOutput: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })

	if app.Config.Scan.MaxDepth != 2 {
		t.Errorf("max depth = %d, want the configured 2", app.Config.Scan.MaxDepth)
	}
}

func TestNewApp_InvalidConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "projitive.yaml"), "confidence:\n  auto_create_threshold: 0.4\n  review_threshold: 0.6\n")

	if _, err := NewApp(Options{BasePath: base, LogOutput: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected validation error for thresholds out of order")
	}
}

func TestNewApp_EndToEnd(t *testing.T) {
	base := newTestWorkspace(t)
	app, err := NewApp(Options{BasePath: base, LogOutput: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	ctx := context.Background()
	api := filepath.Join(base, "api")

	projects, err := app.ProjectSvc.ScanProjects(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(projects) != 2 || projects[0].GovernanceDir != api {
		t.Fatalf("projects = %+v", projects)
	}
	if !projects[0].Artifacts.Roadmap || projects[1].Artifacts.TasksFile {
		t.Errorf("artifacts = %+v / %+v", projects[0].Artifacts, projects[1].Artifacts)
	}

	created, err := app.TaskMgr.CreateTask(api, core.NewTask{Title: "add sso", RoadmapRefs: []string{"ROADMAP-0009"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != "TASK-0002" {
		t.Errorf("created id = %s", created.ID)
	}

	report, err := app.ProjectSvc.LintProject(ctx, api)
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	found := false
	for _, s := range report.Suggestions {
		if s.Code == core.CodeRoadmapRefsUnknown {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %s from the roadmap cross-check, got %+v", core.CodeRoadmapRefsUnknown, report.Suggestions)
	}

	done := models.StatusDone
	if _, err := app.TaskMgr.UpdateTask(api, "TASK-0002", core.TaskUpdate{Status: &done}); !errors.Is(err, core.ErrInvalidTransition) {
		t.Errorf("TODO -> DONE should be rejected, got %v", err)
	}
	inProgress := models.StatusInProgress
	if _, err := app.TaskMgr.UpdateTask(api, "TASK-0002", core.TaskUpdate{Status: &inProgress}); err != nil {
		t.Fatalf("update: %v", err)
	}

	next, err := app.ProjectSvc.NextTasks(ctx, 0)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if len(next) != 2 || next[0].Task.ID != "TASK-0002" {
		t.Errorf("expected the freshly started task first, got %+v", next)
	}

	data, err := os.ReadFile(filepath.Join(api, "tasks.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# Tasks\n") || !strings.Contains(string(data), "TASK-0002 | IN_PROGRESS | add sso") {
		t.Errorf("ledger not written as expected:\n%s", data)
	}

	events, err := app.EventLog.Read(observability.EventFilter{TaskID: "TASK-0002"})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	types := []string{}
	for _, e := range events {
		types = append(types, e.Type)
	}
	if strings.Join(types, ",") != "task.created,task.updated,task.status_changed" {
		t.Errorf("event types = %v", types)
	}
}

func TestResolveBasePath(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	got := ResolveBasePath()
	want, _ := filepath.EvalSymlinks(dir)
	if resolved, _ := filepath.EvalSymlinks(got); resolved != want {
		t.Errorf("ResolveBasePath() = %q, want %q", got, dir)
	}
}
