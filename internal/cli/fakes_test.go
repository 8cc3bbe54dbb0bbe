package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/projitive/internal/core"
	"github.com/valter-silva-au/projitive/internal/observability"
	"github.com/valter-silva-au/projitive/pkg/models"
)

// fakeTaskMgr implements core.TaskManager over an in-memory map keyed by
// governance dir.
type fakeTaskMgr struct {
	ledgers    map[string][]models.Task
	err        error
	lastFilter core.TaskFilter
	lastCreate core.NewTask
	lastUpdate core.TaskUpdate
}

func newFakeTaskMgr() *fakeTaskMgr {
	return &fakeTaskMgr{ledgers: make(map[string][]models.Task)}
}

func (f *fakeTaskMgr) TasksPath(govDir string) string {
	return filepath.Join(govDir, "tasks.md")
}

func (f *fakeTaskMgr) GetTask(govDir, taskID string) (*models.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, t := range f.ledgers[govDir] {
		if t.ID == taskID {
			c := t.Clone()
			return &c, nil
		}
	}
	return nil, core.ErrTaskNotFound
}

func (f *fakeTaskMgr) ListTasks(govDir string, filter core.TaskFilter) ([]models.Task, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	out := []models.Task{}
	for _, t := range f.ledgers[govDir] {
		if len(filter.Statuses) > 0 && t.Status != filter.Statuses[0] {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTaskMgr) CreateTask(govDir string, in core.NewTask) (*models.Task, error) {
	f.lastCreate = in
	if f.err != nil {
		return nil, f.err
	}
	status := in.Status
	if status == "" {
		status = models.StatusTodo
	}
	id, _ := core.NextTaskID(f.ledgers[govDir])
	t := models.Task{ID: id, Title: in.Title, Status: status, Owner: in.Owner, Links: []string{}, RoadmapRefs: in.RoadmapRefs}
	f.ledgers[govDir] = append(f.ledgers[govDir], t)
	return &t, nil
}

func (f *fakeTaskMgr) UpdateTask(govDir, taskID string, upd core.TaskUpdate) (*models.Task, error) {
	f.lastUpdate = upd
	if f.err != nil {
		return nil, f.err
	}
	for i, t := range f.ledgers[govDir] {
		if t.ID != taskID {
			continue
		}
		if upd.Status != nil {
			if err := core.ValidateTransition(t.Status, *upd.Status); err != nil {
				return nil, &core.TransitionError{TaskID: taskID, From: t.Status, To: *upd.Status}
			}
			t.Status = *upd.Status
		}
		if upd.Owner != nil {
			t.Owner = *upd.Owner
		}
		f.ledgers[govDir][i] = t
		return &t, nil
	}
	return nil, core.ErrTaskNotFound
}

// fakeProjectSvc implements core.ProjectService with canned results.
type fakeProjectSvc struct {
	summaries  []core.ProjectSummary
	candidates []core.Candidate
	lint       map[string]*core.ProjectLint
	view       *core.TaskContextView
	report     *core.ConfidenceReport
	err        error

	lastLimit int
	lastReq   core.ConfidenceRequest
}

func (f *fakeProjectSvc) ScanProjects(context.Context) ([]core.ProjectSummary, error) {
	return f.summaries, f.err
}

func (f *fakeProjectSvc) LoadProjects(context.Context) ([]core.ProjectTasks, error) {
	return []core.ProjectTasks{}, f.err
}

func (f *fakeProjectSvc) NextTasks(_ context.Context, limit int) ([]core.Candidate, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && len(f.candidates) > limit {
		return f.candidates[:limit], nil
	}
	return f.candidates, nil
}

func (f *fakeProjectSvc) LintProject(_ context.Context, govDir string) (*core.ProjectLint, error) {
	if f.err != nil {
		return nil, f.err
	}
	if l, ok := f.lint[govDir]; ok {
		return l, nil
	}
	return &core.ProjectLint{GovernanceDir: govDir, TasksPath: filepath.Join(govDir, "tasks.md")}, nil
}

func (f *fakeProjectSvc) TaskContext(_ context.Context, _, _ string) (*core.TaskContextView, error) {
	return f.view, f.err
}

func (f *fakeProjectSvc) AssessConfidence(_ context.Context, req core.ConfidenceRequest) (*core.ConfidenceReport, error) {
	f.lastReq = req
	return f.report, f.err
}

// fakeEventLog implements observability.EventLog in memory.
type fakeEventLog struct {
	events     []observability.Event
	lastFilter observability.EventFilter
}

func (f *fakeEventLog) Write(e observability.Event) error {
	f.events = append(f.events, e)
	return nil
}

func (f *fakeEventLog) LogEvent(eventType string, data map[string]any) error {
	return f.Write(observability.Event{Type: eventType, Data: data})
}

func (f *fakeEventLog) Read(filter observability.EventFilter) ([]observability.Event, error) {
	f.lastFilter = filter
	out := []observability.Event{}
	for _, e := range f.events {
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if id, _ := e.Data["task_id"].(string); filter.TaskID != "" && id != filter.TaskID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeEventLog) Close() error { return nil }

// withServices swaps the package-level services for the duration of a test.
func withServices(t *testing.T, svc core.ProjectService, tm core.TaskManager) {
	t.Helper()
	origSvc, origTM, origEvents, origFormat, origDir := ProjectSvc, TaskMgr, EventLog, outputFormat, taskDirFlag
	t.Cleanup(func() {
		ProjectSvc, TaskMgr, EventLog, outputFormat, taskDirFlag = origSvc, origTM, origEvents, origFormat, origDir
	})
	ProjectSvc = svc
	TaskMgr = tm
	outputFormat = formatText
}

// runCmd calls RunE directly with stdout captured.
func runCmd(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	t.Cleanup(func() { cmd.SetOut(nil) })
	err := cmd.RunE(cmd, args)
	return out.String(), err
}

// setFlags sets flags as if given on the command line, so Changed reports
// true, and restores their defaults when the test ends.
func setFlags(t *testing.T, cmd *cobra.Command, values map[string]string) {
	t.Helper()
	for name, value := range values {
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatalf("setting --%s: %v", name, err)
		}
	}
	t.Cleanup(func() {
		for name := range values {
			f := cmd.Flags().Lookup(name)
			if sv, ok := f.Value.(interface{ Replace([]string) error }); ok {
				_ = sv.Replace(nil)
			} else {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		}
	})
}
