package core

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/valter-silva-au/projitive/pkg/models"
)

type fakeScanner struct {
	dirs      []string
	err       error
	artifacts map[string]Artifacts
}

func (f *fakeScanner) Discover(ctx context.Context) ([]string, error) {
	return f.dirs, f.err
}

func (f *fakeScanner) Inspect(govDir string) Artifacts {
	return f.artifacts[govDir]
}

type fakeRoadmaps struct {
	ids map[string][]string
	err error
}

func (f *fakeRoadmaps) RoadmapIDs(govDir string) ([]string, error) {
	return f.ids[govDir], f.err
}

// failingStore fails loads for one path and delegates the rest.
type failingStore struct {
	*fakeLedgerStore
	failPath string
}

func (f *failingStore) Load(path string) (*LedgerSnapshot, error) {
	if path == f.failPath {
		return nil, errors.New("permission denied")
	}
	return f.fakeLedgerStore.Load(path)
}

func newTestProjectService(t *testing.T, scanner *fakeScanner, store LedgerStore, roadmaps RoadmapSource) (ProjectService, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	tm := NewTaskManager(store, "tasks.md", nil)
	return NewProjectService(scanner, store, roadmaps, tm, DefaultThresholds(), logger), &buf
}

func seedProjects(store *fakeLedgerStore) {
	store.ledgers[filepath.Join("/w/b", "tasks.md")] = []models.Task{
		{ID: "TASK-0001", Title: "b1", Status: models.StatusTodo, UpdatedAt: "2025-01-01"},
		{ID: "TASK-0002", Title: "b2", Status: models.StatusDone},
	}
	store.ledgers[filepath.Join("/w/a", "tasks.md")] = []models.Task{
		{ID: "TASK-0001", Title: "a1", Status: models.StatusInProgress, UpdatedAt: "2025-01-02"},
		{ID: "TASK-0002", Title: "a2", Status: models.StatusTodo, UpdatedAt: "2025-01-03"},
		{ID: "TASK-0003", Title: "a3", Status: models.StatusBlocked},
	}
}

func TestLoadProjects_SortedAndSkipsUnreadable(t *testing.T) {
	base := newFakeLedgerStore()
	seedProjects(base)
	store := &failingStore{fakeLedgerStore: base, failPath: filepath.Join("/w/broken", "tasks.md")}
	svc, logs := newTestProjectService(t, &fakeScanner{dirs: []string{"/w/b", "/w/broken", "/w/a"}}, store, nil)

	projects, err := svc.LoadProjects(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(projects) != 2 || projects[0].GovernanceDir != "/w/a" || projects[1].GovernanceDir != "/w/b" {
		t.Fatalf("unexpected projects %+v", projects)
	}
	if !strings.Contains(logs.String(), "skipping unreadable ledger") {
		t.Errorf("expected a warning for the broken ledger, logs:\n%s", logs.String())
	}
}

func TestLoadProjects_DiscoverError(t *testing.T) {
	svc, _ := newTestProjectService(t, &fakeScanner{err: errors.New("no root")}, newFakeLedgerStore(), nil)
	if _, err := svc.LoadProjects(context.Background()); err == nil {
		t.Error("expected discovery error")
	}
}

func TestLoadProjects_Cancelled(t *testing.T) {
	store := newFakeLedgerStore()
	seedProjects(store)
	svc, _ := newTestProjectService(t, &fakeScanner{dirs: []string{"/w/a"}}, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.LoadProjects(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestScanProjects_Counts(t *testing.T) {
	store := newFakeLedgerStore()
	seedProjects(store)
	scanner := &fakeScanner{
		dirs:      []string{"/w/a", "/w/b"},
		artifacts: map[string]Artifacts{"/w/a": {TasksFile: true, Roadmap: true}},
	}
	svc, _ := newTestProjectService(t, scanner, store, nil)

	got, err := svc.ScanProjects(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(got))
	}
	a := got[0]
	if a.Score != 3 || a.Counts["IN_PROGRESS"] != 1 || a.Counts["TODO"] != 1 || a.Counts["BLOCKED"] != 1 || a.Counts["DONE"] != 0 {
		t.Errorf("unexpected summary %+v", a)
	}
	if !a.Artifacts.Roadmap {
		t.Error("expected artifacts from the scanner")
	}
}

func TestNextTasks_RankedAcrossProjects(t *testing.T) {
	store := newFakeLedgerStore()
	seedProjects(store)
	svc, _ := newTestProjectService(t, &fakeScanner{dirs: []string{"/w/b", "/w/a"}}, store, nil)

	got, err := svc.NextTasks(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	order := []string{}
	for _, c := range got {
		order = append(order, c.GovernanceDir+" "+c.Task.ID)
	}
	want := "/w/a TASK-0001,/w/a TASK-0002,/w/b TASK-0001"
	if strings.Join(order, ",") != want {
		t.Errorf("order = %v, want %s", order, want)
	}

	limited, err := svc.NextTasks(context.Background(), 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("limit not applied: %v, %v", limited, err)
	}
}

func TestLintProject(t *testing.T) {
	store := newFakeLedgerStore()
	seedProjects(store)
	roadmaps := &fakeRoadmaps{ids: map[string][]string{"/w/a": {}}}
	svc, _ := newTestProjectService(t, &fakeScanner{}, store, roadmaps)

	got, err := svc.LintProject(context.Background(), "/w/a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TaskCount != 3 {
		t.Errorf("task count = %d", got.TaskCount)
	}
	if !hasCode(got.Suggestions, CodeBlockedWithoutBlocker) || !hasCode(got.Suggestions, CodeInProgressOwnerEmpty) {
		t.Errorf("unexpected suggestions %v", codes(got.Suggestions))
	}
	if got.SchemaIssues == nil {
		t.Error("schema issues should be an empty slice, not nil")
	}
}

func TestTaskContext(t *testing.T) {
	store := newFakeLedgerStore()
	seedProjects(store)
	svc, _ := newTestProjectService(t, &fakeScanner{}, store, nil)

	got, err := svc.TaskContext(context.Background(), "/w/a", "TASK-0001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Task.Title != "a1" {
		t.Errorf("task = %+v", got.Task)
	}
	if len(got.AllowedTransitions) != 2 {
		t.Errorf("allowed = %v", got.AllowedTransitions)
	}
	if !hasCode(got.Suggestions, CodeSubStateMissing) {
		t.Errorf("expected single-task lint, got %v", codes(got.Suggestions))
	}

	if _, err := svc.TaskContext(context.Background(), "/w/a", "TASK-0042"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestAssessConfidence(t *testing.T) {
	store := newFakeLedgerStore()
	seedProjects(store)
	scanner := &fakeScanner{artifacts: map[string]Artifacts{"/w/a": {true, true, true, true}}}
	svc, _ := newTestProjectService(t, scanner, store, nil)

	got, err := svc.AssessConfidence(context.Background(), ConfidenceRequest{
		GovernanceDir:         "/w/a",
		Summary:               "follow up on a1",
		HasAcceptanceCriteria: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := got.Confidence.Factors
	if f.ContextCompleteness != 1 || f.SpecificationClarity != 1 {
		t.Errorf("unexpected factors %+v", f)
	}
	if got.Confidence.Recommendation != RecommendAutoCreate || !got.PreCreation.Passed {
		t.Errorf("expected auto_create, got %+v", got)
	}
}
