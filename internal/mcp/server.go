// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the task ledgers of every discovered project as tools for AI agents.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/projitive/internal/core"
	"github.com/valter-silva-au/projitive/internal/ledger"
	"github.com/valter-silva-au/projitive/pkg/models"
)

// Server wraps the project and task services and exposes them as MCP tools.
type Server struct {
	server   *gomcp.Server
	projects core.ProjectService
	tasks    core.TaskManager
}

// NewServer creates a new MCP server over the given services.
func NewServer(projects core.ProjectService, tasks core.TaskManager, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		projects: projects,
		tasks:    tasks,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "projitive", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run serves MCP over stdio, blocking until the client disconnects or the
// context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type projectScanInput struct{}

type projectScanOutput struct {
	Projects []core.ProjectSummary `json:"projects"`
	Count    int                   `json:"count"`
}

type taskListInput struct {
	GovDir     string `json:"gov_dir" jsonschema:"absolute path of the governance root holding the ledger"`
	Status     string `json:"status,omitempty" jsonschema:"filter by status (TODO, IN_PROGRESS, BLOCKED, DONE)"`
	Owner      string `json:"owner,omitempty" jsonschema:"filter by owner, case-insensitive"`
	RoadmapRef string `json:"roadmap_ref,omitempty" jsonschema:"filter by roadmap reference such as ROADMAP-0001"`
}

type taskListOutput struct {
	TasksPath string        `json:"tasks_path"`
	Tasks     []models.Task `json:"tasks"`
	Count     int           `json:"count"`
}

type taskNextInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of candidates to return; 0 returns all"`
}

type taskNextOutput struct {
	Candidates []core.Candidate `json:"candidates"`
	Count      int              `json:"count"`
}

type taskContextInput struct {
	GovDir string `json:"gov_dir" jsonschema:"absolute path of the governance root holding the ledger"`
	TaskID string `json:"task_id" jsonschema:"task identifier in TASK-#### form"`
}

type taskContextOutput struct {
	TasksPath          string              `json:"tasks_path"`
	Task               models.Task         `json:"task"`
	Suggestions        []core.Suggestion   `json:"suggestions"`
	Lint               []string            `json:"lint"`
	AllowedTransitions []models.TaskStatus `json:"allowed_transitions"`
}

type taskCreateInput struct {
	GovDir      string   `json:"gov_dir" jsonschema:"absolute path of the governance root holding the ledger"`
	Title       string   `json:"title" jsonschema:"one-line task title"`
	Status      string   `json:"status,omitempty" jsonschema:"initial status; defaults to TODO"`
	Owner       string   `json:"owner,omitempty" jsonschema:"task owner"`
	Summary     string   `json:"summary,omitempty" jsonschema:"one-line summary"`
	Links       []string `json:"links,omitempty" jsonschema:"related links or file paths"`
	RoadmapRefs []string `json:"roadmap_refs,omitempty" jsonschema:"roadmap ids in ROADMAP-#### form"`
}

type taskUpdateInput struct {
	GovDir      string           `json:"gov_dir" jsonschema:"absolute path of the governance root holding the ledger"`
	TaskID      string           `json:"task_id" jsonschema:"task identifier in TASK-#### form"`
	Status      string           `json:"status,omitempty" jsonschema:"new status; must be an allowed transition"`
	Title       *string          `json:"title,omitempty" jsonschema:"new title"`
	Owner       *string          `json:"owner,omitempty" jsonschema:"new owner; empty string clears it"`
	Summary     *string          `json:"summary,omitempty" jsonschema:"new summary; empty string clears it"`
	Links       []string         `json:"links,omitempty" jsonschema:"replacement link list"`
	RoadmapRefs []string         `json:"roadmap_refs,omitempty" jsonschema:"replacement roadmap reference list"`
	SubState    *models.SubState `json:"sub_state,omitempty" jsonschema:"phase details, kept only for IN_PROGRESS tasks"`
	Blocker     *models.Blocker  `json:"blocker,omitempty" jsonschema:"blocker details, kept only for BLOCKED tasks"`
}

type taskOutput struct {
	TasksPath string      `json:"tasks_path"`
	Task      models.Task `json:"task"`
}

type taskLintInput struct {
	GovDir string `json:"gov_dir" jsonschema:"absolute path of the governance root holding the ledger"`
}

type taskLintOutput struct {
	TasksPath    string                   `json:"tasks_path"`
	TaskCount    int                      `json:"task_count"`
	Suggestions  []core.Suggestion        `json:"suggestions"`
	Lint         []string                 `json:"lint"`
	SchemaIssues []ledger.ValidationIssue `json:"schema_issues"`
}

type taskConfidenceInput struct {
	GovDir                string   `json:"gov_dir" jsonschema:"absolute path of the governance root the task would be created in"`
	Summary               string   `json:"summary" jsonschema:"summary of the proposed task"`
	ContextCompleteness   *float64 `json:"context_completeness,omitempty" jsonschema:"override for the context completeness factor in [0,1]"`
	HasAcceptanceCriteria bool     `json:"has_acceptance_criteria,omitempty" jsonschema:"whether the proposal states acceptance criteria"`
}

type taskConfidenceOutput struct {
	Confidence  core.ConfidenceScore   `json:"confidence"`
	PreCreation core.PreCreationResult `json:"pre_creation"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "project_scan",
		Description: "Discover governance roots and report per-project status counts, project score and which governance artifacts exist.",
	}, s.handleProjectScan)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "task_list",
		Description: "List the tasks of one project's ledger, optionally filtered by status, owner or roadmap reference.",
	}, s.handleTaskList)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "task_next",
		Description: "Rank actionable tasks (IN_PROGRESS before TODO) across every discovered project and return the best candidates first.",
	}, s.handleTaskNext)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "task_context",
		Description: "Get one task with its lint suggestions and the statuses it may move to next.",
	}, s.handleTaskContext)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "task_create",
		Description: "Append a new task with the next free TASK-#### id to a project's ledger.",
	}, s.handleTaskCreate)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "task_update",
		Description: "Update fields of a task. Status changes must follow TODO->IN_PROGRESS|BLOCKED, IN_PROGRESS->BLOCKED|DONE, BLOCKED->IN_PROGRESS|TODO; DONE is terminal.",
	}, s.handleTaskUpdate)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "task_lint",
		Description: "Run the lint rules and the schema check over a project's ledger.",
	}, s.handleTaskLint)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "task_confidence",
		Description: "Score a proposed task and report whether it should be auto-created, reviewed first or not created.",
	}, s.handleTaskConfidence)
}

// --- Tool handlers ---

func (s *Server) handleProjectScan(ctx context.Context, _ *gomcp.CallToolRequest, _ projectScanInput) (*gomcp.CallToolResult, projectScanOutput, error) {
	projects, err := s.projects.ScanProjects(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("scanning projects: %s", err)), projectScanOutput{Projects: []core.ProjectSummary{}}, nil
	}
	return nil, projectScanOutput{Projects: projects, Count: len(projects)}, nil
}

func (s *Server) handleTaskList(_ context.Context, _ *gomcp.CallToolRequest, input taskListInput) (*gomcp.CallToolResult, taskListOutput, error) {
	empty := taskListOutput{Tasks: []models.Task{}}
	if input.GovDir == "" {
		return errorResult("gov_dir is required"), empty, nil
	}

	filter := core.TaskFilter{Owner: input.Owner, RoadmapRef: input.RoadmapRef}
	if input.Status != "" {
		status, ok := parseStatus(input.Status)
		if !ok {
			return errorResult(invalidStatusMessage(input.Status)), empty, nil
		}
		filter.Statuses = []models.TaskStatus{status}
	}

	tasks, err := s.tasks.ListTasks(input.GovDir, filter)
	if err != nil {
		return errorResult(fmt.Sprintf("listing tasks: %s", err)), empty, nil
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return nil, taskListOutput{
		TasksPath: s.tasks.TasksPath(input.GovDir),
		Tasks:     tasks,
		Count:     len(tasks),
	}, nil
}

func (s *Server) handleTaskNext(ctx context.Context, _ *gomcp.CallToolRequest, input taskNextInput) (*gomcp.CallToolResult, taskNextOutput, error) {
	empty := taskNextOutput{Candidates: []core.Candidate{}}
	if input.Limit < 0 {
		return errorResult("limit must not be negative"), empty, nil
	}
	candidates, err := s.projects.NextTasks(ctx, input.Limit)
	if err != nil {
		return errorResult(fmt.Sprintf("ranking tasks: %s", err)), empty, nil
	}
	if candidates == nil {
		candidates = []core.Candidate{}
	}
	return nil, taskNextOutput{Candidates: candidates, Count: len(candidates)}, nil
}

func (s *Server) handleTaskContext(ctx context.Context, _ *gomcp.CallToolRequest, input taskContextInput) (*gomcp.CallToolResult, taskContextOutput, error) {
	empty := taskContextOutput{
		Suggestions:        []core.Suggestion{},
		Lint:               []string{},
		AllowedTransitions: []models.TaskStatus{},
	}
	if msg := requireTarget(input.GovDir, input.TaskID); msg != "" {
		return errorResult(msg), empty, nil
	}

	view, err := s.projects.TaskContext(ctx, input.GovDir, input.TaskID)
	if err != nil {
		return errorResult(taskErrorMessage("getting context for", input.TaskID, err)), empty, nil
	}
	return nil, taskContextOutput{
		TasksPath:          view.TasksPath,
		Task:               view.Task,
		Suggestions:        view.Suggestions,
		Lint:               core.RenderSuggestions(view.Suggestions),
		AllowedTransitions: view.AllowedTransitions,
	}, nil
}

func (s *Server) handleTaskCreate(_ context.Context, _ *gomcp.CallToolRequest, input taskCreateInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.GovDir == "" {
		return errorResult("gov_dir is required"), taskOutput{}, nil
	}
	if strings.TrimSpace(input.Title) == "" {
		return errorResult("title is required"), taskOutput{}, nil
	}

	var status models.TaskStatus
	if input.Status != "" {
		parsed, ok := parseStatus(input.Status)
		if !ok {
			return errorResult(invalidStatusMessage(input.Status)), taskOutput{}, nil
		}
		status = parsed
	}

	task, err := s.tasks.CreateTask(input.GovDir, core.NewTask{
		Title:       input.Title,
		Status:      status,
		Owner:       input.Owner,
		Summary:     input.Summary,
		Links:       input.Links,
		RoadmapRefs: input.RoadmapRefs,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("creating task: %s", err)), taskOutput{}, nil
	}
	return nil, taskOutput{TasksPath: s.tasks.TasksPath(input.GovDir), Task: *task}, nil
}

func (s *Server) handleTaskUpdate(_ context.Context, _ *gomcp.CallToolRequest, input taskUpdateInput) (*gomcp.CallToolResult, taskOutput, error) {
	if msg := requireTarget(input.GovDir, input.TaskID); msg != "" {
		return errorResult(msg), taskOutput{}, nil
	}

	upd := core.TaskUpdate{
		Title:    input.Title,
		Owner:    input.Owner,
		Summary:  input.Summary,
		SubState: input.SubState,
		Blocker:  input.Blocker,
	}
	if input.Status != "" {
		status, ok := parseStatus(input.Status)
		if !ok {
			return errorResult(invalidStatusMessage(input.Status)), taskOutput{}, nil
		}
		upd.Status = &status
	}
	if input.Links != nil {
		upd.Links = &input.Links
	}
	if input.RoadmapRefs != nil {
		upd.RoadmapRefs = &input.RoadmapRefs
	}

	task, err := s.tasks.UpdateTask(input.GovDir, input.TaskID, upd)
	if err != nil {
		return errorResult(taskErrorMessage("updating", input.TaskID, err)), taskOutput{}, nil
	}
	return nil, taskOutput{TasksPath: s.tasks.TasksPath(input.GovDir), Task: *task}, nil
}

func (s *Server) handleTaskLint(ctx context.Context, _ *gomcp.CallToolRequest, input taskLintInput) (*gomcp.CallToolResult, taskLintOutput, error) {
	empty := taskLintOutput{
		Suggestions:  []core.Suggestion{},
		Lint:         []string{},
		SchemaIssues: []ledger.ValidationIssue{},
	}
	if input.GovDir == "" {
		return errorResult("gov_dir is required"), empty, nil
	}

	report, err := s.projects.LintProject(ctx, input.GovDir)
	if err != nil {
		return errorResult(fmt.Sprintf("linting %s: %s", input.GovDir, err)), empty, nil
	}
	return nil, taskLintOutput{
		TasksPath:    report.TasksPath,
		TaskCount:    report.TaskCount,
		Suggestions:  report.Suggestions,
		Lint:         core.RenderSuggestions(report.Suggestions),
		SchemaIssues: report.SchemaIssues,
	}, nil
}

func (s *Server) handleTaskConfidence(ctx context.Context, _ *gomcp.CallToolRequest, input taskConfidenceInput) (*gomcp.CallToolResult, taskConfidenceOutput, error) {
	empty := taskConfidenceOutput{PreCreation: core.PreCreationResult{Issues: []string{}}}
	if input.GovDir == "" {
		return errorResult("gov_dir is required"), empty, nil
	}
	if strings.TrimSpace(input.Summary) == "" {
		return errorResult("summary is required"), empty, nil
	}

	report, err := s.projects.AssessConfidence(ctx, core.ConfidenceRequest{
		GovernanceDir:         input.GovDir,
		Summary:               input.Summary,
		ContextCompleteness:   input.ContextCompleteness,
		HasAcceptanceCriteria: input.HasAcceptanceCriteria,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("assessing confidence: %s", err)), empty, nil
	}
	return nil, taskConfidenceOutput{Confidence: report.Confidence, PreCreation: report.PreCreation}, nil
}

// --- Helpers ---

// parseStatus accepts statuses in any letter case.
func parseStatus(raw string) (models.TaskStatus, bool) {
	return models.ParseTaskStatus(strings.ToUpper(strings.TrimSpace(raw)))
}

func invalidStatusMessage(raw string) string {
	return fmt.Sprintf("invalid status %q: must be one of TODO, IN_PROGRESS, BLOCKED, DONE", raw)
}

func requireTarget(govDir, taskID string) string {
	switch {
	case govDir == "":
		return "gov_dir is required"
	case taskID == "":
		return "task_id is required"
	}
	return ""
}

// taskErrorMessage turns task manager failures into messages an agent can act on.
func taskErrorMessage(action, taskID string, err error) string {
	var te *core.TransitionError
	switch {
	case errors.Is(err, core.ErrInvalidTaskID):
		return fmt.Sprintf("invalid task id %q: expected TASK-####", taskID)
	case errors.Is(err, core.ErrTaskNotFound):
		return fmt.Sprintf("task %s not found", taskID)
	case errors.As(err, &te):
		allowed := core.AllowedTransitions(te.From)
		if len(allowed) == 0 {
			return fmt.Sprintf("%s; %s is terminal", te.Error(), te.From)
		}
		names := make([]string, 0, len(allowed))
		for _, st := range allowed {
			names = append(names, string(st))
		}
		return fmt.Sprintf("%s; allowed from %s: %s", te.Error(), te.From, strings.Join(names, ", "))
	default:
		return fmt.Sprintf("%s task %s: %s", action, taskID, err)
	}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
