package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/projitive/pkg/models"
)

func completionFixture(t *testing.T) *fakeTaskMgr {
	t.Helper()
	tm := newFakeTaskMgr()
	tm.ledgers["/w/a"] = []models.Task{
		{ID: "TASK-0001", Title: "wire auth", Status: models.StatusInProgress},
		{ID: "TASK-0002", Title: "docs", Status: models.StatusTodo},
		{ID: "TASK-0013", Title: "ship", Status: models.StatusDone},
	}
	withServices(t, &fakeProjectSvc{}, tm)
	taskDirFlag = "/w/a"
	return tm
}

func TestCompleteTaskIDs_NilTaskMgr(t *testing.T) {
	withServices(t, nil, nil)

	ids, directive := completeTaskIDs()(&cobra.Command{}, nil, "")
	if ids != nil {
		t.Errorf("expected nil ids, got %v", ids)
	}
	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("expected NoFileComp directive, got %d", directive)
	}
}

func TestCompleteTaskIDs_Error(t *testing.T) {
	tm := completionFixture(t)
	tm.err = errors.New("ledger unreadable")

	if ids, _ := completeTaskIDs()(&cobra.Command{}, nil, ""); ids != nil {
		t.Errorf("expected nil ids on error, got %v", ids)
	}
}

func TestCompleteTaskIDs_FiltersAndDescribes(t *testing.T) {
	completionFixture(t)

	ids, _ := completeTaskIDs(models.StatusDone)(&cobra.Command{}, nil, "")
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %v", ids)
	}
	if ids[0] != "TASK-0001\tIN_PROGRESS: wire auth" {
		t.Errorf("first completion = %q", ids[0])
	}

	ids, _ = completeTaskIDs()(&cobra.Command{}, nil, "task-001")
	if len(ids) != 1 || !strings.HasPrefix(ids[0], "TASK-0013\t") {
		t.Errorf("prefix match should be case-insensitive, got %v", ids)
	}

	if ids, _ := completeTaskIDs()(&cobra.Command{}, []string{"TASK-0001"}, ""); ids != nil {
		t.Errorf("only one id is completed, got %v", ids)
	}
}

func TestCompleteNextStatuses(t *testing.T) {
	completionFixture(t)

	got, _ := completeNextStatuses(&cobra.Command{}, []string{"TASK-0002"}, "")
	if len(got) != 2 || !strings.HasPrefix(got[0], "IN_PROGRESS\t") || !strings.HasPrefix(got[1], "BLOCKED\t") {
		t.Errorf("TODO task completions = %v", got)
	}

	if got, _ := completeNextStatuses(&cobra.Command{}, []string{"TASK-0013"}, ""); len(got) != 0 {
		t.Errorf("terminal task should offer nothing, got %v", got)
	}

	if got, _ := completeNextStatuses(&cobra.Command{}, []string{"TASK-9999"}, ""); len(got) != 4 {
		t.Errorf("unknown task should fall back to every status, got %v", got)
	}
}

func TestCompleteEnumerations(t *testing.T) {
	phases, _ := completePhases(nil, nil, "")
	if len(phases) != len(models.AllPhases()) {
		t.Errorf("phases = %v", phases)
	}
	blockers, _ := completeBlockerTypes(nil, nil, "")
	if len(blockers) != len(models.AllBlockerTypes()) {
		t.Errorf("blocker types = %v", blockers)
	}
	events, _ := completeEventTypes(nil, nil, "")
	if len(events) != 3 {
		t.Errorf("event types = %v", events)
	}
}

func TestRegisterTaskCompletions(t *testing.T) {
	for _, cmd := range []*cobra.Command{taskShowCmd, taskUpdateCmd, taskHistoryCmd} {
		if cmd.ValidArgsFunction == nil {
			t.Errorf("%s has no argument completion", cmd.Name())
		}
	}
	for cmd, flag := range map[*cobra.Command]string{
		taskListCmd:    "status",
		taskUpdateCmd:  "blocker-type",
		taskHistoryCmd: "type",
	} {
		if _, ok := cmd.GetFlagCompletionFunc(flag); !ok {
			t.Errorf("%s --%s has no completion", cmd.Name(), flag)
		}
	}
}
