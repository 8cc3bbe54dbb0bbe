package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/projitive/internal/core"
	"github.com/valter-silva-au/projitive/pkg/models"
)

var statusDescriptions = map[models.TaskStatus]string{
	models.StatusTodo:       "Not started",
	models.StatusInProgress: "Actively being worked on",
	models.StatusBlocked:    "Waiting on something",
	models.StatusDone:       "Completed",
}

// completeTaskIDs returns a completion function that lists task ids from the
// ledger under --dir, skipping the given statuses.
func completeTaskIDs(excludeStatuses ...models.TaskStatus) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if TaskMgr == nil || len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		govDir, err := resolveDir(taskDirFlag)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		tasks, err := TaskMgr.ListTasks(govDir, core.TaskFilter{})
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		exclude := make(map[models.TaskStatus]bool)
		for _, s := range excludeStatuses {
			exclude[s] = true
		}

		var ids []string
		for _, task := range tasks {
			if exclude[task.Status] {
				continue
			}
			if toComplete == "" || strings.HasPrefix(task.ID, strings.ToUpper(toComplete)) {
				// Title as description.
				ids = append(ids, task.ID+"\t"+string(task.Status)+": "+task.Title)
			}
		}
		return ids, cobra.ShellCompDirectiveNoFileComp
	}
}

// completeStatuses lists every status.
func completeStatuses(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return describeStatuses(models.AllStatuses()), cobra.ShellCompDirectiveNoFileComp
}

// completeNextStatuses offers only the statuses the task named in args[0]
// may move to. Without a readable task it falls back to every status.
func completeNextStatuses(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if TaskMgr == nil || len(args) == 0 {
		return completeStatuses(cmd, args, toComplete)
	}
	govDir, err := resolveDir(taskDirFlag)
	if err != nil {
		return completeStatuses(cmd, args, toComplete)
	}
	task, err := TaskMgr.GetTask(govDir, args[0])
	if err != nil {
		return completeStatuses(cmd, args, toComplete)
	}
	return describeStatuses(core.AllowedTransitions(task.Status)), cobra.ShellCompDirectiveNoFileComp
}

func describeStatuses(statuses []models.TaskStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s)+"\t"+statusDescriptions[s])
	}
	return out
}

func completePhases(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	var out []string
	for _, p := range models.AllPhases() {
		out = append(out, string(p))
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func completeBlockerTypes(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	var out []string
	for _, b := range models.AllBlockerTypes() {
		out = append(out, string(b))
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func completeEventTypes(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		"task.created\tA task was added",
		"task.updated\tTask fields changed",
		"task.status_changed\tA task moved to another status",
	}, cobra.ShellCompDirectiveNoFileComp
}

// registerTaskCompletions wires argument and flag completion on the task
// subcommands. It must run after their flags are defined.
func registerTaskCompletions() {
	taskShowCmd.ValidArgsFunction = completeTaskIDs()
	taskUpdateCmd.ValidArgsFunction = completeTaskIDs(models.StatusDone)
	taskHistoryCmd.ValidArgsFunction = completeTaskIDs()

	_ = taskCmd.RegisterFlagCompletionFunc("dir", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveFilterDirs
	})
	_ = taskListCmd.RegisterFlagCompletionFunc("status", completeStatuses)
	_ = taskCreateCmd.RegisterFlagCompletionFunc("status", completeStatuses)
	_ = taskUpdateCmd.RegisterFlagCompletionFunc("status", completeNextStatuses)
	_ = taskUpdateCmd.RegisterFlagCompletionFunc("phase", completePhases)
	_ = taskUpdateCmd.RegisterFlagCompletionFunc("blocker-type", completeBlockerTypes)
	_ = taskHistoryCmd.RegisterFlagCompletionFunc("type", completeEventTypes)
}
