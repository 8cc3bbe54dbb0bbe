package core

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/sourcegraph/conc/pool"
	"github.com/valter-silva-au/projitive/internal/ledger"
	"github.com/valter-silva-au/projitive/pkg/models"
)

// ProjectSummary is one governance root with its status counts.
type ProjectSummary struct {
	GovernanceDir string         `json:"governanceDir" yaml:"governanceDir"`
	TasksPath     string         `json:"tasksPath" yaml:"tasksPath"`
	Counts        map[string]int `json:"counts" yaml:"counts"`
	Score         int            `json:"score" yaml:"score"`
	Artifacts     Artifacts      `json:"artifacts" yaml:"artifacts"`
}

// ProjectLint is the lint report for one governance root.
type ProjectLint struct {
	GovernanceDir string                   `json:"governanceDir" yaml:"governanceDir"`
	TasksPath     string                   `json:"tasksPath" yaml:"tasksPath"`
	TaskCount     int                      `json:"taskCount" yaml:"taskCount"`
	Suggestions   []Suggestion             `json:"suggestions" yaml:"suggestions"`
	SchemaIssues  []ledger.ValidationIssue `json:"schemaIssues" yaml:"schemaIssues"`
}

// TaskContextView is everything an agent needs to work on one task.
type TaskContextView struct {
	GovernanceDir      string              `json:"governanceDir" yaml:"governanceDir"`
	TasksPath          string              `json:"tasksPath" yaml:"tasksPath"`
	Task               models.Task         `json:"task" yaml:"task"`
	Suggestions        []Suggestion        `json:"suggestions" yaml:"suggestions"`
	AllowedTransitions []models.TaskStatus `json:"allowedTransitions" yaml:"allowedTransitions"`
}

// ConfidenceRequest asks for a pre-creation assessment inside a project.
type ConfidenceRequest struct {
	GovernanceDir         string
	Summary               string
	ContextCompleteness   *float64
	HasAcceptanceCriteria bool
}

// ConfidenceReport pairs a score with its pre-creation gate.
type ConfidenceReport struct {
	Confidence  ConfidenceScore   `json:"confidence" yaml:"confidence"`
	PreCreation PreCreationResult `json:"preCreation" yaml:"preCreation"`
}

// ProjectService aggregates ledgers across every governance root under the
// configured scan root.
type ProjectService interface {
	ScanProjects(ctx context.Context) ([]ProjectSummary, error)
	LoadProjects(ctx context.Context) ([]ProjectTasks, error)
	NextTasks(ctx context.Context, limit int) ([]Candidate, error)
	LintProject(ctx context.Context, govDir string) (*ProjectLint, error)
	TaskContext(ctx context.Context, govDir, taskID string) (*TaskContextView, error)
	AssessConfidence(ctx context.Context, req ConfidenceRequest) (*ConfidenceReport, error)
}

type projectService struct {
	scanner    ProjectScanner
	store      LedgerStore
	roadmaps   RoadmapSource
	tasks      TaskManager
	thresholds Thresholds
	logger     *log.Logger
	workers    int
}

// NewProjectService creates a ProjectService. roadmaps may be nil, which
// disables the roadmap cross-check.
func NewProjectService(scanner ProjectScanner, store LedgerStore, roadmaps RoadmapSource, tasks TaskManager, thresholds Thresholds, logger *log.Logger) ProjectService {
	if logger == nil {
		logger = log.Default()
	}
	return &projectService{
		scanner:    scanner,
		store:      store,
		roadmaps:   roadmaps,
		tasks:      tasks,
		thresholds: thresholds,
		logger:     logger,
		workers:    runtime.GOMAXPROCS(0),
	}
}

type loadResult struct {
	project ProjectTasks
	ok      bool
}

// LoadProjects reads every discovered ledger concurrently. Ledgers that
// fail to load are logged and skipped. The result is sorted by governance dir.
func (s *projectService) LoadProjects(ctx context.Context) ([]ProjectTasks, error) {
	dirs, err := s.scanner.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovering projects: %w", err)
	}

	p := pool.NewWithResults[loadResult]().WithMaxGoroutines(max(s.workers, 1))
	for _, dir := range dirs {
		p.Go(func() loadResult {
			if ctx.Err() != nil {
				return loadResult{}
			}
			path := s.tasks.TasksPath(dir)
			snap, err := s.store.Load(path)
			if err != nil {
				s.logger.Warn("skipping unreadable ledger", "path", path, "err", err)
				return loadResult{}
			}
			return loadResult{ok: true, project: ProjectTasks{GovernanceDir: dir, TasksPath: path, Tasks: snap.Tasks}}
		})
	}
	results := p.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	projects := make([]ProjectTasks, 0, len(results))
	for _, r := range results {
		if r.ok {
			projects = append(projects, r.project)
		}
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].GovernanceDir < projects[j].GovernanceDir
	})
	s.logger.Debug("loaded projects", "discovered", len(dirs), "loaded", len(projects))
	return projects, nil
}

// ScanProjects summarises every loadable project.
func (s *projectService) ScanProjects(ctx context.Context) ([]ProjectSummary, error) {
	projects, err := s.LoadProjects(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProjectSummary, 0, len(projects))
	for _, p := range projects {
		counts := make(map[string]int, len(models.AllStatuses()))
		for _, st := range models.AllStatuses() {
			counts[string(st)] = 0
		}
		for _, t := range p.Tasks {
			counts[string(t.Status)]++
		}
		out = append(out, ProjectSummary{
			GovernanceDir: p.GovernanceDir,
			TasksPath:     p.TasksPath,
			Counts:        counts,
			Score:         ProjectScore(p.Tasks),
			Artifacts:     s.scanner.Inspect(p.GovernanceDir),
		})
	}
	return out, nil
}

// NextTasks returns the ranked actionable tasks across all projects. A
// limit of zero or less returns all of them.
func (s *projectService) NextTasks(ctx context.Context, limit int) ([]Candidate, error) {
	projects, err := s.LoadProjects(ctx)
	if err != nil {
		return nil, err
	}
	ranked := RankCandidates(BuildCandidates(projects))
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// LintProject runs the lint battery and the schema check over one ledger.
func (s *projectService) LintProject(ctx context.Context, govDir string) (*ProjectLint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.tasks.TasksPath(govDir)
	snap, err := s.store.Load(path)
	if err != nil {
		return nil, fmt.Errorf("linting %s: %w", govDir, err)
	}

	opts := LintOptions{Markdown: snap.Markdown, RoadmapIDs: s.roadmapIDs(govDir)}
	suggestions := LintTasks(snap.Tasks, opts)
	if suggestions == nil {
		suggestions = []Suggestion{}
	}
	issues := ledger.Validate(snap.Tasks)
	if issues == nil {
		issues = []ledger.ValidationIssue{}
	}
	return &ProjectLint{
		GovernanceDir: govDir,
		TasksPath:     path,
		TaskCount:     len(snap.Tasks),
		Suggestions:   suggestions,
		SchemaIssues:  issues,
	}, nil
}

// TaskContext returns one task with its single-task lint and the statuses
// it may move to next.
func (s *projectService) TaskContext(ctx context.Context, govDir, taskID string) (*TaskContextView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	task, err := s.tasks.GetTask(govDir, taskID)
	if err != nil {
		return nil, err
	}
	path := s.tasks.TasksPath(govDir)
	snap, err := s.store.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading context for %s: %w", taskID, err)
	}

	suggestions := LintTask(*task, LintOptions{Markdown: snap.Markdown, RoadmapIDs: s.roadmapIDs(govDir)})
	if suggestions == nil {
		suggestions = []Suggestion{}
	}
	return &TaskContextView{
		GovernanceDir:      govDir,
		TasksPath:          path,
		Task:               *task,
		Suggestions:        suggestions,
		AllowedTransitions: AllowedTransitions(task.Status),
	}, nil
}

// AssessConfidence scores a proposed task against the project's artifacts
// and its ledger history.
func (s *projectService) AssessConfidence(ctx context.Context, req ConfidenceRequest) (*ConfidenceReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	artifacts := s.scanner.Inspect(req.GovernanceDir)
	snap, err := s.store.Load(s.tasks.TasksPath(req.GovernanceDir))
	if err != nil {
		return nil, fmt.Errorf("assessing confidence in %s: %w", req.GovernanceDir, err)
	}

	score := CalculateConfidence(ConfidenceInput{
		Summary:             req.Summary,
		ContextCompleteness: req.ContextCompleteness,
		Artifacts:           artifacts,
		History:             snap.Tasks,
		Signals: SpecSignals{
			HasRoadmap:            artifacts.Roadmap,
			HasDesignDocs:         artifacts.DesignDocs,
			HasAcceptanceCriteria: req.HasAcceptanceCriteria,
		},
	}, s.thresholds)
	return &ConfidenceReport{
		Confidence:  score,
		PreCreation: RunPreCreationValidation(score, s.thresholds),
	}, nil
}

// roadmapIDs returns nil when the cross-check cannot run.
func (s *projectService) roadmapIDs(govDir string) []string {
	if s.roadmaps == nil {
		return nil
	}
	ids, err := s.roadmaps.RoadmapIDs(govDir)
	if err != nil {
		s.logger.Warn("skipping roadmap cross-check", "dir", govDir, "err", err)
		return nil
	}
	return ids
}
