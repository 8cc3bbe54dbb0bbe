package core

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/valter-silva-au/projitive/internal/ledger"
	"github.com/valter-silva-au/projitive/pkg/models"
)

var (
	// ErrInvalidTaskID is returned when an id does not match TASK-####. It
	// is checked before any lookup.
	ErrInvalidTaskID = errors.New("invalid task id")
	// ErrTaskNotFound is returned when a well-formed id is absent from the ledger.
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidTask is returned for a create or update carrying invalid fields.
	ErrInvalidTask = errors.New("invalid task")
	// ErrLedgerFull is returned when TASK-9999 is already taken.
	ErrLedgerFull = errors.New("no task ids left")
)

// maxTaskNumber is the largest id the TASK-#### form can hold.
const maxTaskNumber = 9999

// TaskFilter selects tasks from a ledger. Empty fields match everything.
type TaskFilter struct {
	Statuses   []models.TaskStatus
	Owner      string
	RoadmapRef string
}

// NewTask carries the fields of a task to create. The id and updatedAt are
// assigned by the manager.
type NewTask struct {
	Title       string
	Status      models.TaskStatus
	Owner       string
	Summary     string
	Links       []string
	Hooks       []string
	RoadmapRefs []string
	SubState    *models.SubState
	Blocker     *models.Blocker
}

// TaskUpdate holds the fields to change. Nil pointers leave a field as is.
type TaskUpdate struct {
	Title       *string
	Status      *models.TaskStatus
	Owner       *string
	Summary     *string
	Links       *[]string
	Hooks       *[]string
	RoadmapRefs *[]string
	SubState    *models.SubState
	Blocker     *models.Blocker
}

// TaskManager defines the write paths and id-keyed reads over a project's ledger.
type TaskManager interface {
	GetTask(govDir, taskID string) (*models.Task, error)
	ListTasks(govDir string, filter TaskFilter) ([]models.Task, error)
	CreateTask(govDir string, in NewTask) (*models.Task, error)
	UpdateTask(govDir, taskID string, upd TaskUpdate) (*models.Task, error)
	TasksPath(govDir string) string
}

// taskManager implements TaskManager on top of a LedgerStore.
type taskManager struct {
	store     LedgerStore
	tasksFile string
	events    EventLogger
	now       func() time.Time
}

// NewTaskManager creates a TaskManager. events may be nil.
func NewTaskManager(store LedgerStore, tasksFile string, events EventLogger) TaskManager {
	return &taskManager{
		store:     store,
		tasksFile: tasksFile,
		events:    events,
		now:       time.Now,
	}
}

// TasksPath returns the ledger file of a governance directory.
func (tm *taskManager) TasksPath(govDir string) string {
	return filepath.Join(govDir, tm.tasksFile)
}

// GetTask returns the first task with the given id.
func (tm *taskManager) GetTask(govDir, taskID string) (*models.Task, error) {
	if !ledger.IsValidTaskID(taskID) {
		return nil, fmt.Errorf("getting task %q: %w", taskID, ErrInvalidTaskID)
	}
	snap, err := tm.store.Load(tm.TasksPath(govDir))
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", taskID, err)
	}
	i := indexOf(snap.Tasks, taskID)
	if i < 0 {
		return nil, fmt.Errorf("getting task %s: %w", taskID, ErrTaskNotFound)
	}
	task := snap.Tasks[i].Clone()
	return &task, nil
}

// ListTasks returns the tasks matching the filter in ledger order.
func (tm *taskManager) ListTasks(govDir string, filter TaskFilter) ([]models.Task, error) {
	snap, err := tm.store.Load(tm.TasksPath(govDir))
	if err != nil {
		return nil, fmt.Errorf("listing tasks in %s: %w", govDir, err)
	}
	out := []models.Task{}
	for _, t := range snap.Tasks {
		if filter.matches(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f TaskFilter) matches(t models.Task) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if t.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Owner != "" && !strings.EqualFold(t.Owner, f.Owner) {
		return false
	}
	if f.RoadmapRef != "" {
		for _, r := range t.RoadmapRefs {
			if r == f.RoadmapRef {
				return true
			}
		}
		return false
	}
	return true
}

// CreateTask appends a task with the next free id.
func (tm *taskManager) CreateTask(govDir string, in NewTask) (*models.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("creating task: title is required: %w", ErrInvalidTask)
	}
	status := in.Status
	if status == "" {
		status = models.StatusTodo
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("creating task: status %q: %w", status, ErrInvalidTask)
	}

	var created models.Task
	err := tm.store.Update(tm.TasksPath(govDir), func(tasks []models.Task) ([]models.Task, error) {
		id, err := NextTaskID(tasks)
		if err != nil {
			return nil, err
		}
		created = ledger.Normalize(models.Task{
			ID:          id,
			Title:       title,
			Status:      status,
			Owner:       in.Owner,
			Summary:     in.Summary,
			UpdatedAt:   tm.timestamp(),
			Links:       in.Links,
			Hooks:       in.Hooks,
			RoadmapRefs: in.RoadmapRefs,
			SubState:    in.SubState,
			Blocker:     in.Blocker,
		})
		dropInapplicable(&created)
		return append(tasks, created), nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating task in %s: %w", govDir, err)
	}

	tm.logEvent("task.created", map[string]any{
		"task_id":        created.ID,
		"governance_dir": govDir,
		"title":          created.Title,
		"status":         string(created.Status),
	})
	return &created, nil
}

// UpdateTask applies the update to the first task with the given id. A
// status change must be allowed by the transition table.
func (tm *taskManager) UpdateTask(govDir, taskID string, upd TaskUpdate) (*models.Task, error) {
	if !ledger.IsValidTaskID(taskID) {
		return nil, fmt.Errorf("updating task %q: %w", taskID, ErrInvalidTaskID)
	}
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return nil, fmt.Errorf("updating task %s: title must not be empty: %w", taskID, ErrInvalidTask)
	}

	var (
		before, after models.Task
		changed       []string
	)
	err := tm.store.Update(tm.TasksPath(govDir), func(tasks []models.Task) ([]models.Task, error) {
		i := indexOf(tasks, taskID)
		if i < 0 {
			return nil, ErrTaskNotFound
		}
		before = tasks[i].Clone()
		next := tasks[i].Clone()

		if upd.Status != nil && *upd.Status != next.Status {
			if err := ValidateTransition(next.Status, *upd.Status); err != nil {
				return nil, &TransitionError{TaskID: taskID, From: next.Status, To: *upd.Status}
			}
		}
		changed = applyUpdate(&next, upd)
		next.UpdatedAt = tm.timestamp()
		next = ledger.Normalize(next)
		dropInapplicable(&next)

		after = next
		tasks[i] = next
		return tasks, nil
	})
	if err != nil {
		return nil, fmt.Errorf("updating task %s: %w", taskID, err)
	}

	tm.logEvent("task.updated", map[string]any{
		"task_id":        taskID,
		"governance_dir": govDir,
		"fields":         changed,
	})
	if before.Status != after.Status {
		tm.logEvent("task.status_changed", map[string]any{
			"task_id":        taskID,
			"governance_dir": govDir,
			"from":           string(before.Status),
			"to":             string(after.Status),
		})
	}
	return &after, nil
}

// applyUpdate copies the set fields and returns their names.
func applyUpdate(t *models.Task, upd TaskUpdate) []string {
	changed := []string{}
	if upd.Title != nil {
		t.Title = *upd.Title
		changed = append(changed, "title")
	}
	if upd.Status != nil {
		t.Status = *upd.Status
		changed = append(changed, "status")
	}
	if upd.Owner != nil {
		t.Owner = *upd.Owner
		changed = append(changed, "owner")
	}
	if upd.Summary != nil {
		t.Summary = *upd.Summary
		changed = append(changed, "summary")
	}
	if upd.Links != nil {
		t.Links = append([]string{}, (*upd.Links)...)
		changed = append(changed, "links")
	}
	if upd.Hooks != nil {
		t.Hooks = append([]string{}, (*upd.Hooks)...)
		changed = append(changed, "hooks")
	}
	if upd.RoadmapRefs != nil {
		t.RoadmapRefs = append([]string{}, (*upd.RoadmapRefs)...)
		changed = append(changed, "roadmapRefs")
	}
	if upd.SubState != nil {
		ss := *upd.SubState
		t.SubState = &ss
		changed = append(changed, "subState")
	}
	if upd.Blocker != nil {
		b := *upd.Blocker
		t.Blocker = &b
		changed = append(changed, "blocker")
	}
	return changed
}

// dropInapplicable removes metadata the ledger would not render for the
// task's status, so the in-memory result matches what is persisted.
func dropInapplicable(t *models.Task) {
	if t.Status != models.StatusInProgress {
		t.SubState = nil
	}
	if t.Status != models.StatusBlocked {
		t.Blocker = nil
	}
}

// NextTaskID returns the id after the highest one in use.
func NextTaskID(tasks []models.Task) (string, error) {
	highest := 0
	for _, t := range tasks {
		if !ledger.IsValidTaskID(t.ID) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(t.ID, "TASK-"))
		if err == nil && n > highest {
			highest = n
		}
	}
	if highest >= maxTaskNumber {
		return "", ErrLedgerFull
	}
	return fmt.Sprintf("TASK-%04d", highest+1), nil
}

func indexOf(tasks []models.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (tm *taskManager) timestamp() string {
	return tm.now().UTC().Format(time.RFC3339)
}

func (tm *taskManager) logEvent(eventType string, data map[string]any) {
	if tm.events == nil {
		return
	}
	// Event logging is best effort and never fails a write.
	_ = tm.events.LogEvent(eventType, data)
}
