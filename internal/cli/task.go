package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/projitive/internal/core"
	"github.com/valter-silva-au/projitive/internal/observability"
	"github.com/valter-silva-au/projitive/pkg/models"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage the task ledger of a governance root",
	Long: `Read and change the tasks in a governance root's ledger.

Commands act on the governance root given by --dir (default: the working
directory), except "task next" which ranks tasks across every root found by
the scan.`,
}

// taskDirFlag holds the --dir flag shared by every task subcommand.
var taskDirFlag string

// --- task list ---

var (
	taskListStatusFlag  []string
	taskListOwnerFlag   string
	taskListRoadmapFlag string
)

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks in ledger order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		govDir, err := resolveDir(taskDirFlag)
		if err != nil {
			return err
		}
		filter := core.TaskFilter{Owner: taskListOwnerFlag, RoadmapRef: taskListRoadmapFlag}
		for _, raw := range taskListStatusFlag {
			status, err := parseStatusFlag(raw)
			if err != nil {
				return err
			}
			filter.Statuses = append(filter.Statuses, status)
		}

		tasks, err := TaskMgr.ListTasks(govDir, filter)
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}
		return writeOutput(cmd.OutOrStdout(), tasks, func(w io.Writer) error {
			if len(tasks) == 0 {
				fmt.Fprintln(w, "No tasks found.")
				return nil
			}
			fmt.Fprintln(w, headingStyle.Render(TaskMgr.TasksPath(govDir)))
			for _, t := range tasks {
				printTaskRow(w, t)
			}
			return nil
		})
	},
}

// --- task next ---

var taskNextLimitFlag int

var taskNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Rank actionable tasks across every project",
	Long: `Rank TODO and IN_PROGRESS tasks across all discovered governance roots.

Projects with more active work come first, then IN_PROGRESS before TODO, then
the most recently updated task. Use --limit 0 to list every candidate.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if ProjectSvc == nil {
			return fmt.Errorf("project service not initialized")
		}
		if taskNextLimitFlag < 0 {
			return fmt.Errorf("--limit must not be negative")
		}
		candidates, err := ProjectSvc.NextTasks(commandContext(cmd), taskNextLimitFlag)
		if err != nil {
			return fmt.Errorf("ranking tasks: %w", err)
		}
		return writeOutput(cmd.OutOrStdout(), candidates, func(w io.Writer) error {
			if len(candidates) == 0 {
				fmt.Fprintln(w, "Nothing actionable.")
				return nil
			}
			for i, c := range candidates {
				fmt.Fprintf(w, "%2d. %s %s\n", i+1, headingStyle.Render(c.GovernanceDir), dimStyle.Render(fmt.Sprintf("score %d", c.ProjectScore)))
				printTaskRow(w, c.Task)
			}
			return nil
		})
	},
}

// --- task show ---

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show a task with its lint suggestions and allowed transitions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ProjectSvc == nil {
			return fmt.Errorf("project service not initialized")
		}
		govDir, err := resolveDir(taskDirFlag)
		if err != nil {
			return err
		}
		view, err := ProjectSvc.TaskContext(commandContext(cmd), govDir, args[0])
		if err != nil {
			return describeTaskError(args[0], err)
		}
		return writeOutput(cmd.OutOrStdout(), view, func(w io.Writer) error {
			printTask(w, view.Task)
			next := make([]string, 0, len(view.AllowedTransitions))
			for _, st := range view.AllowedTransitions {
				next = append(next, string(st))
			}
			if len(next) == 0 {
				next = append(next, "none (terminal)")
			}
			fmt.Fprintf(w, "  next:        %s\n", strings.Join(next, ", "))
			printSuggestions(w, view.Suggestions)
			return nil
		})
	},
}

// --- task create ---

var (
	taskCreateStatusFlag  string
	taskCreateOwnerFlag   string
	taskCreateSummaryFlag string
	taskCreateLinksFlag   []string
	taskCreateRoadmapFlag []string
)

var taskCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Append a task with the next free id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		govDir, err := resolveDir(taskDirFlag)
		if err != nil {
			return err
		}
		in := core.NewTask{
			Title:       strings.Join(args, " "),
			Owner:       taskCreateOwnerFlag,
			Summary:     taskCreateSummaryFlag,
			Links:       taskCreateLinksFlag,
			RoadmapRefs: taskCreateRoadmapFlag,
		}
		if taskCreateStatusFlag != "" {
			if in.Status, err = parseStatusFlag(taskCreateStatusFlag); err != nil {
				return err
			}
		}

		task, err := TaskMgr.CreateTask(govDir, in)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), task, func(w io.Writer) error {
			fmt.Fprintf(w, "Created %s in %s\n", task.ID, TaskMgr.TasksPath(govDir))
			return nil
		})
	},
}

// --- task update ---

var (
	taskUpdateStatusFlag           string
	taskUpdateTitleFlag            string
	taskUpdateOwnerFlag            string
	taskUpdateSummaryFlag          string
	taskUpdateLinksFlag            []string
	taskUpdateRoadmapFlag          []string
	taskUpdatePhaseFlag            string
	taskUpdateConfidenceFlag       float64
	taskUpdateETAFlag              string
	taskUpdateBlockerTypeFlag      string
	taskUpdateBlockerDescFlag      string
	taskUpdateBlockingEntityFlag   string
	taskUpdateUnblockConditionFlag string
)

var taskUpdateCmd = &cobra.Command{
	Use:   "update <task-id>",
	Short: "Change task fields or move a task to another status",
	Long: `Change the fields given by flags. Status changes must follow the lifecycle:

  TODO        -> IN_PROGRESS, BLOCKED
  IN_PROGRESS -> BLOCKED, DONE
  BLOCKED     -> IN_PROGRESS, TODO
  DONE is terminal.

--phase, --confidence and --eta set the sub-state of an IN_PROGRESS task;
the --blocker-* flags describe why a BLOCKED task is stuck.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		govDir, err := resolveDir(taskDirFlag)
		if err != nil {
			return err
		}
		upd, err := buildTaskUpdate(cmd)
		if err != nil {
			return err
		}

		task, err := TaskMgr.UpdateTask(govDir, args[0], upd)
		if err != nil {
			return describeTaskError(args[0], err)
		}
		return writeOutput(cmd.OutOrStdout(), task, func(w io.Writer) error {
			fmt.Fprintf(w, "Updated %s\n", task.ID)
			printTask(w, *task)
			return nil
		})
	},
}

// buildTaskUpdate turns the flags that were set into a TaskUpdate.
func buildTaskUpdate(cmd *cobra.Command) (core.TaskUpdate, error) {
	flags := cmd.Flags()
	var upd core.TaskUpdate

	if flags.Changed("status") {
		status, err := parseStatusFlag(taskUpdateStatusFlag)
		if err != nil {
			return upd, err
		}
		upd.Status = &status
	}
	if flags.Changed("title") {
		upd.Title = &taskUpdateTitleFlag
	}
	if flags.Changed("owner") {
		upd.Owner = &taskUpdateOwnerFlag
	}
	if flags.Changed("summary") {
		upd.Summary = &taskUpdateSummaryFlag
	}
	if flags.Changed("link") {
		upd.Links = &taskUpdateLinksFlag
	}
	if flags.Changed("roadmap") {
		upd.RoadmapRefs = &taskUpdateRoadmapFlag
	}

	if flags.Changed("phase") || flags.Changed("confidence") || flags.Changed("eta") {
		ss := &models.SubState{EstimatedCompletion: taskUpdateETAFlag}
		if taskUpdatePhaseFlag != "" {
			ss.Phase = models.Phase(taskUpdatePhaseFlag)
			if !ss.Phase.IsValid() {
				return upd, fmt.Errorf("invalid phase %q: must be one of %s", taskUpdatePhaseFlag, joinValues(models.AllPhases()))
			}
		}
		if flags.Changed("confidence") {
			if taskUpdateConfidenceFlag < 0 || taskUpdateConfidenceFlag > 1 {
				return upd, fmt.Errorf("--confidence must be between 0 and 1")
			}
			c := taskUpdateConfidenceFlag
			ss.Confidence = &c
		}
		upd.SubState = ss
	}

	if flags.Changed("blocker-type") || flags.Changed("blocker-desc") ||
		flags.Changed("blocking-entity") || flags.Changed("unblock-condition") {
		b := &models.Blocker{
			Type:             models.BlockerType(taskUpdateBlockerTypeFlag),
			Description:      taskUpdateBlockerDescFlag,
			BlockingEntity:   taskUpdateBlockingEntityFlag,
			UnblockCondition: taskUpdateUnblockConditionFlag,
		}
		if !b.Type.IsValid() {
			return upd, fmt.Errorf("invalid blocker type %q: must be one of %s", taskUpdateBlockerTypeFlag, joinValues(models.AllBlockerTypes()))
		}
		upd.Blocker = b
	}
	return upd, nil
}

// --- task lint ---

var taskLintStrictFlag bool

var taskLintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Lint the ledger and check it against the task schema",
	Long: `Run every lint rule over the ledger and validate each task against the
task record schema. With --strict the command fails when anything is reported.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if ProjectSvc == nil {
			return fmt.Errorf("project service not initialized")
		}
		govDir, err := resolveDir(taskDirFlag)
		if err != nil {
			return err
		}
		report, err := ProjectSvc.LintProject(commandContext(cmd), govDir)
		if err != nil {
			return err
		}
		err = writeOutput(cmd.OutOrStdout(), report, func(w io.Writer) error {
			fmt.Fprintf(w, "%s %s\n", headingStyle.Render(report.TasksPath), dimStyle.Render(fmt.Sprintf("%d tasks", report.TaskCount)))
			printSuggestions(w, report.Suggestions)
			for _, issue := range report.SchemaIssues {
				fmt.Fprintf(w, "  %s %s\n", codeStyle.Render("[SCHEMA]"), issue)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if n := len(report.Suggestions) + len(report.SchemaIssues); taskLintStrictFlag && n > 0 {
			return fmt.Errorf("lint reported %d problem(s)", n)
		}
		return nil
	},
}

// --- task confidence ---

var (
	taskConfidenceCriteriaFlag bool
	taskConfidenceContextFlag  float64
)

var taskConfidenceCmd = &cobra.Command{
	Use:   "confidence <summary>",
	Short: "Score a proposed task before creating it",
	Long: `Score a proposed task from the governance context (tasks, roadmap, readme,
design docs), how similar past tasks ended, and how clearly it is specified.
The score maps to auto_create, review_required or do_not_create.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ProjectSvc == nil {
			return fmt.Errorf("project service not initialized")
		}
		govDir, err := resolveDir(taskDirFlag)
		if err != nil {
			return err
		}
		req := core.ConfidenceRequest{
			GovernanceDir:         govDir,
			Summary:               strings.Join(args, " "),
			HasAcceptanceCriteria: taskConfidenceCriteriaFlag,
		}
		if cmd.Flags().Changed("context") {
			c := taskConfidenceContextFlag
			req.ContextCompleteness = &c
		}

		report, err := ProjectSvc.AssessConfidence(commandContext(cmd), req)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), report, func(w io.Writer) error {
			c := report.Confidence
			fmt.Fprintf(w, "%s %.2f\n", headingStyle.Render(string(c.Recommendation)), c.Score)
			fmt.Fprintf(w, "  context completeness   %.2f\n", c.Factors.ContextCompleteness)
			fmt.Fprintf(w, "  similar task history   %.2f\n", c.Factors.SimilarTaskHistory)
			fmt.Fprintf(w, "  specification clarity  %.2f\n", c.Factors.SpecificationClarity)
			for _, issue := range report.PreCreation.Issues {
				fmt.Fprintf(w, "  %s\n", dimStyle.Render("- "+issue))
			}
			return nil
		})
	},
}

// --- task history ---

var (
	taskHistoryTypeFlag  string
	taskHistoryLimitFlag int
)

var taskHistoryCmd = &cobra.Command{
	Use:   "history [task-id]",
	Short: "Show recorded task changes from the event log",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if EventLog == nil {
			return fmt.Errorf("event log not configured (set events.path)")
		}
		filter := observability.EventFilter{Type: taskHistoryTypeFlag}
		if len(args) == 1 {
			filter.TaskID = args[0]
		}
		events, err := EventLog.Read(filter)
		if err != nil {
			return fmt.Errorf("reading events: %w", err)
		}
		if taskHistoryLimitFlag > 0 && len(events) > taskHistoryLimitFlag {
			events = events[len(events)-taskHistoryLimitFlag:]
		}
		return writeOutput(cmd.OutOrStdout(), events, func(w io.Writer) error {
			if len(events) == 0 {
				fmt.Fprintln(w, "No events recorded.")
				return nil
			}
			for _, e := range events {
				fmt.Fprintf(w, "%s %-20s %s\n", dimStyle.Render(e.Time.Format("2006-01-02 15:04:05")), e.Type, e.Message)
			}
			return nil
		})
	},
}

// --- helpers ---

func parseStatusFlag(raw string) (models.TaskStatus, error) {
	status, ok := models.ParseTaskStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !ok {
		return "", fmt.Errorf("invalid status %q: must be one of %s", raw, joinValues(models.AllStatuses()))
	}
	return status, nil
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

// describeTaskError adds the allowed next statuses to transition failures.
func describeTaskError(taskID string, err error) error {
	var te *core.TransitionError
	if !errors.As(err, &te) {
		return err
	}
	allowed := core.AllowedTransitions(te.From)
	if len(allowed) == 0 {
		return fmt.Errorf("%w (%s is terminal)", err, te.From)
	}
	return fmt.Errorf("%w (allowed from %s: %s)", err, te.From, joinValues(allowed))
}

func init() {
	taskCmd.PersistentFlags().StringVarP(&taskDirFlag, "dir", "d", "", "Governance root (default: working directory)")

	taskListCmd.Flags().StringSliceVar(&taskListStatusFlag, "status", nil, "Filter by status (repeatable): TODO, IN_PROGRESS, BLOCKED, DONE")
	taskListCmd.Flags().StringVar(&taskListOwnerFlag, "owner", "", "Filter by owner (case-insensitive)")
	taskListCmd.Flags().StringVar(&taskListRoadmapFlag, "roadmap", "", "Filter by roadmap reference")

	taskNextCmd.Flags().IntVarP(&taskNextLimitFlag, "limit", "n", 5, "Maximum number of candidates (0 for all)")

	taskCreateCmd.Flags().StringVar(&taskCreateStatusFlag, "status", "", "Initial status (default TODO)")
	taskCreateCmd.Flags().StringVar(&taskCreateOwnerFlag, "owner", "", "Task owner")
	taskCreateCmd.Flags().StringVar(&taskCreateSummaryFlag, "summary", "", "One-line summary")
	taskCreateCmd.Flags().StringSliceVar(&taskCreateLinksFlag, "link", nil, "Related link or path (repeatable)")
	taskCreateCmd.Flags().StringSliceVar(&taskCreateRoadmapFlag, "roadmap", nil, "Roadmap reference (repeatable)")

	taskUpdateCmd.Flags().StringVar(&taskUpdateStatusFlag, "status", "", "New status")
	taskUpdateCmd.Flags().StringVar(&taskUpdateTitleFlag, "title", "", "New title")
	taskUpdateCmd.Flags().StringVar(&taskUpdateOwnerFlag, "owner", "", "New owner (empty clears)")
	taskUpdateCmd.Flags().StringVar(&taskUpdateSummaryFlag, "summary", "", "New summary (empty clears)")
	taskUpdateCmd.Flags().StringSliceVar(&taskUpdateLinksFlag, "link", nil, "Replacement links (repeatable)")
	taskUpdateCmd.Flags().StringSliceVar(&taskUpdateRoadmapFlag, "roadmap", nil, "Replacement roadmap references (repeatable)")
	taskUpdateCmd.Flags().StringVar(&taskUpdatePhaseFlag, "phase", "", "Sub-state phase: discovery, design, implementation, testing")
	taskUpdateCmd.Flags().Float64Var(&taskUpdateConfidenceFlag, "confidence", 0, "Sub-state confidence in [0,1]")
	taskUpdateCmd.Flags().StringVar(&taskUpdateETAFlag, "eta", "", "Estimated completion")
	taskUpdateCmd.Flags().StringVar(&taskUpdateBlockerTypeFlag, "blocker-type", "", "Blocker type: internal_dependency, external_dependency, resource, approval")
	taskUpdateCmd.Flags().StringVar(&taskUpdateBlockerDescFlag, "blocker-desc", "", "Blocker description")
	taskUpdateCmd.Flags().StringVar(&taskUpdateBlockingEntityFlag, "blocking-entity", "", "Who or what is blocking")
	taskUpdateCmd.Flags().StringVar(&taskUpdateUnblockConditionFlag, "unblock-condition", "", "What must happen to unblock")

	taskLintCmd.Flags().BoolVar(&taskLintStrictFlag, "strict", false, "Fail when lint or schema problems are found")

	taskConfidenceCmd.Flags().BoolVar(&taskConfidenceCriteriaFlag, "acceptance-criteria", false, "The proposal states acceptance criteria")
	taskConfidenceCmd.Flags().Float64Var(&taskConfidenceContextFlag, "context", 0, "Override the context completeness factor in [0,1]")

	taskHistoryCmd.Flags().StringVar(&taskHistoryTypeFlag, "type", "", "Filter by event type (task.created, task.updated, task.status_changed)")
	taskHistoryCmd.Flags().IntVar(&taskHistoryLimitFlag, "limit", 20, "Show only the most recent N events (0 for all)")

	taskCmd.AddCommand(taskListCmd, taskNextCmd, taskShowCmd, taskCreateCmd, taskUpdateCmd,
		taskLintCmd, taskConfidenceCmd, taskHistoryCmd)
	registerTaskCompletions()
	rootCmd.AddCommand(taskCmd)
}
