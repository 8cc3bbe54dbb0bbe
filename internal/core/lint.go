package core

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/valter-silva-au/projitive/internal/ledger"
	"github.com/valter-silva-au/projitive/pkg/models"
)

// Lint suggestion codes.
const (
	CodeDuplicateID             = "TASK_DUPLICATE_ID"
	CodeInProgressOwnerEmpty    = "TASK_IN_PROGRESS_OWNER_EMPTY"
	CodeDoneLinksMissing        = "TASK_DONE_LINKS_MISSING"
	CodeBlockedSummaryEmpty     = "TASK_BLOCKED_SUMMARY_EMPTY"
	CodeUpdatedAtInvalid        = "TASK_UPDATED_AT_INVALID"
	CodeRoadmapRefsEmpty        = "TASK_ROADMAP_REFS_EMPTY"
	CodeOutsideMarker           = "TASK_OUTSIDE_MARKER"
	CodeBlockedWithoutBlocker   = "TASK_BLOCKED_WITHOUT_BLOCKER"
	CodeBlockerTypeInvalid      = "TASK_BLOCKER_TYPE_INVALID"
	CodeBlockerDescriptionEmpty = "TASK_BLOCKER_DESCRIPTION_EMPTY"
	CodeSubStateMissing         = "TASK_IN_PROGRESS_SUBSTATE_MISSING"
	CodeSubStatePhaseInvalid    = "TASK_SUBSTATE_PHASE_INVALID"
	CodeSubStateConfidenceRange = "TASK_SUBSTATE_CONFIDENCE_INVALID"
	CodeRoadmapRefsUnknown      = "TASK_ROADMAP_REFS_UNKNOWN"
)

// Suggestion is one advisory lint diagnostic. Suggestions never block a
// parse, render, or ranking.
type Suggestion struct {
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
	FixHint string `json:"fixHint,omitempty" yaml:"fixHint,omitempty"`
}

// LintOptions carries the optional context some rules need.
type LintOptions struct {
	// Markdown is the raw ledger document, used to find ids written
	// outside the markers. Empty disables that rule.
	Markdown string
	// ScopeIDs restricts the outside-marker rule to these ids when non-empty.
	ScopeIDs []string
	// RoadmapIDs is the project's known roadmap ids. Nil disables the
	// unknown-reference rule; an empty non-nil slice means "no roadmap items".
	RoadmapIDs []string
}

// countRule flags tasks matching a predicate and reports how many did.
type countRule struct {
	code    string
	match   func(models.Task) bool
	many    string // one %d verb
	single  string
	fixHint string
}

// countRules is the fixed, ordered battery applied to every task.
// Duplicate-id and outside-marker rules need the whole list and are
// evaluated separately in their fixed positions.
var countRules = []countRule{
	{
		code:    CodeInProgressOwnerEmpty,
		match:   inProgressWithoutOwner,
		many:    "%d IN_PROGRESS task(s) have no owner.",
		single:  "Current task is IN_PROGRESS but has no owner.",
		fixHint: "Set owner to the person or agent doing the work.",
	},
	{
		code:    CodeDoneLinksMissing,
		match:   doneWithoutLinks,
		many:    "%d DONE task(s) have no links.",
		single:  "Current task is DONE but has no links.",
		fixHint: "Add links to the changed files, PRs, or reports that prove completion.",
	},
	{
		code:    CodeBlockedSummaryEmpty,
		match:   blockedWithoutSummary,
		many:    "%d BLOCKED task(s) have an empty summary.",
		single:  "Current task is BLOCKED but has an empty summary.",
		fixHint: "Describe what the task is waiting on in summary.",
	},
	{
		code:    CodeUpdatedAtInvalid,
		match:   updatedAtInvalid,
		many:    "%d task(s) have an invalid updatedAt format.",
		single:  "Current task has an invalid updatedAt format.",
		fixHint: "Use an ISO-8601 timestamp such as 2025-01-15T10:00:00Z.",
	},
	{
		code:    CodeRoadmapRefsEmpty,
		match:   withoutRoadmapRefs,
		many:    "%d task(s) have no roadmapRefs.",
		single:  "Current task has no roadmapRefs.",
		fixHint: "Link the task to at least one ROADMAP-#### item.",
	},
}

// structureRules run after the outside-marker rule.
var structureRules = []countRule{
	{
		code:    CodeBlockedWithoutBlocker,
		match:   blockedWithoutBlocker,
		many:    "%d BLOCKED task(s) have no blocker metadata.",
		single:  "Current task is BLOCKED but has no blocker metadata.",
		fixHint: "Add a blocker block with type and description.",
	},
	{
		code:    CodeBlockerTypeInvalid,
		match:   blockerTypeInvalid,
		many:    "%d task(s) have an invalid blocker type.",
		single:  "Current task has an invalid blocker type.",
		fixHint: "Use one of internal_dependency, external_dependency, resource, approval.",
	},
	{
		code:   CodeBlockerDescriptionEmpty,
		match:  blockerWithoutDescription,
		many:   "%d task(s) have an empty blocker description.",
		single: "Current task has an empty blocker description.",
	},
	{
		code:    CodeSubStateMissing,
		match:   inProgressWithoutSubState,
		many:    "%d IN_PROGRESS task(s) have no subState (advisory).",
		single:  "Current task is IN_PROGRESS but has no subState (advisory).",
		fixHint: "Add a subState block with phase and confidence.",
	},
	{
		code:    CodeSubStatePhaseInvalid,
		match:   subStatePhaseInvalid,
		many:    "%d task(s) have an invalid subState phase.",
		single:  "Current task has an invalid subState phase.",
		fixHint: "Use one of discovery, design, implementation, testing.",
	},
	{
		code:    CodeSubStateConfidenceRange,
		match:   subStateConfidenceOutOfRange,
		many:    "%d task(s) have a subState confidence outside [0, 1].",
		single:  "Current task has a subState confidence outside [0, 1].",
		fixHint: "Set confidence to a number between 0 and 1.",
	},
}

func inProgressWithoutOwner(t models.Task) bool {
	return t.Status == models.StatusInProgress && strings.TrimSpace(t.Owner) == ""
}

func doneWithoutLinks(t models.Task) bool {
	return t.Status == models.StatusDone && len(t.Links) == 0
}

func blockedWithoutSummary(t models.Task) bool {
	return t.Status == models.StatusBlocked && strings.TrimSpace(t.Summary) == ""
}

func updatedAtInvalid(t models.Task) bool {
	_, ok := ledger.ParseTimestamp(t.UpdatedAt)
	return !ok
}

func withoutRoadmapRefs(t models.Task) bool {
	return len(t.RoadmapRefs) == 0
}

func blockedWithoutBlocker(t models.Task) bool {
	return t.Status == models.StatusBlocked && t.Blocker == nil
}

func blockerTypeInvalid(t models.Task) bool {
	return t.Blocker != nil && !t.Blocker.Type.IsValid()
}

func blockerWithoutDescription(t models.Task) bool {
	return t.Blocker != nil && strings.TrimSpace(t.Blocker.Description) == ""
}

func inProgressWithoutSubState(t models.Task) bool {
	return t.Status == models.StatusInProgress && t.SubState == nil
}

func subStatePhaseInvalid(t models.Task) bool {
	return t.SubState != nil && t.SubState.Phase != "" && !t.SubState.Phase.IsValid()
}

func subStateConfidenceOutOfRange(t models.Task) bool {
	if t.SubState == nil || t.SubState.Confidence == nil {
		return false
	}
	c := *t.SubState.Confidence
	return math.IsNaN(c) || c < 0 || c > 1
}

// LintTasks evaluates every rule over a task list and returns at most one
// suggestion per rule, in the fixed rule order.
func LintTasks(tasks []models.Task, opts LintOptions) []Suggestion {
	var out []Suggestion

	if dups := duplicateIDs(tasks); len(dups) > 0 {
		out = append(out, Suggestion{
			Code:    CodeDuplicateID,
			Message: fmt.Sprintf("Duplicate task IDs: %s.", strings.Join(dups, ", ")),
			FixHint: "Give every task a unique TASK-#### id.",
		})
	}

	out = append(out, applyCountRules(countRules, tasks)...)

	if s, ok := outsideMarkerSuggestion(opts); ok {
		out = append(out, s)
	}

	out = append(out, applyCountRules(structureRules, tasks)...)

	if s, ok := unknownRoadmapSuggestion(tasks, opts.RoadmapIDs, false); ok {
		out = append(out, s)
	}
	return out
}

// LintTask evaluates the per-task form of the rules for a single task.
// Options apply as in LintTasks, with the outside-marker rule scoped to the
// task's own id unless ScopeIDs says otherwise.
func LintTask(task models.Task, opts LintOptions) []Suggestion {
	var out []Suggestion
	for _, r := range countRules {
		if r.match(task) {
			out = append(out, Suggestion{Code: r.code, Message: r.single, FixHint: r.fixHint})
		}
	}

	if len(opts.ScopeIDs) == 0 {
		opts.ScopeIDs = []string{task.ID}
	}
	if s, ok := outsideMarkerSuggestion(opts); ok {
		s.Message = fmt.Sprintf("Current task id appears outside the task markers: %s.", strings.Join(outsideIDs(opts), ", "))
		out = append(out, s)
	}

	for _, r := range structureRules {
		if r.match(task) {
			out = append(out, Suggestion{Code: r.code, Message: r.single, FixHint: r.fixHint})
		}
	}

	if s, ok := unknownRoadmapSuggestion([]models.Task{task}, opts.RoadmapIDs, true); ok {
		out = append(out, s)
	}
	return out
}

// RenderSuggestions formats suggestions one per line, appending the fix
// hint when present.
func RenderSuggestions(suggestions []Suggestion) []string {
	lines := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		line := fmt.Sprintf("- [%s] %s", s.Code, s.Message)
		if s.FixHint != "" {
			line += " Fix: " + s.FixHint
		}
		lines = append(lines, line)
	}
	return lines
}

func applyCountRules(rules []countRule, tasks []models.Task) []Suggestion {
	var out []Suggestion
	for _, r := range rules {
		n := 0
		for _, t := range tasks {
			if r.match(t) {
				n++
			}
		}
		if n > 0 {
			out = append(out, Suggestion{Code: r.code, Message: fmt.Sprintf(r.many, n), FixHint: r.fixHint})
		}
	}
	return out
}

func duplicateIDs(tasks []models.Task) []string {
	counts := make(map[string]int, len(tasks))
	for _, t := range tasks {
		counts[t.ID]++
	}
	var dups []string
	for id, n := range counts {
		if n > 1 {
			dups = append(dups, id)
		}
	}
	sort.Strings(dups)
	return dups
}

func outsideIDs(opts LintOptions) []string {
	if opts.Markdown == "" {
		return nil
	}
	ids := ledger.FindIDsOutsideMarkers(opts.Markdown)
	if len(opts.ScopeIDs) == 0 {
		return ids
	}
	scope := make(map[string]struct{}, len(opts.ScopeIDs))
	for _, id := range opts.ScopeIDs {
		scope[id] = struct{}{}
	}
	var out []string
	for _, id := range ids {
		if _, ok := scope[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func outsideMarkerSuggestion(opts LintOptions) (Suggestion, bool) {
	ids := outsideIDs(opts)
	if len(ids) == 0 {
		return Suggestion{}, false
	}
	return Suggestion{
		Code:    CodeOutsideMarker,
		Message: fmt.Sprintf("Task IDs found outside the task markers: %s.", strings.Join(ids, ", ")),
		FixHint: "Keep task records between the PROJITIVE:TASKS markers.",
	}, true
}

func unknownRoadmapSuggestion(tasks []models.Task, roadmapIDs []string, single bool) (Suggestion, bool) {
	if roadmapIDs == nil {
		return Suggestion{}, false
	}
	known := make(map[string]struct{}, len(roadmapIDs))
	for _, id := range roadmapIDs {
		known[id] = struct{}{}
	}
	seen := make(map[string]struct{})
	var unknown []string
	for _, t := range tasks {
		for _, ref := range t.RoadmapRefs {
			if _, ok := known[ref]; ok {
				continue
			}
			if _, dup := seen[ref]; dup {
				continue
			}
			seen[ref] = struct{}{}
			unknown = append(unknown, ref)
		}
	}
	if len(unknown) == 0 {
		return Suggestion{}, false
	}
	msg := fmt.Sprintf("Unknown roadmap refs: %s.", strings.Join(unknown, ", "))
	if single {
		msg = fmt.Sprintf("Current task references unknown roadmap items: %s.", strings.Join(unknown, ", "))
	}
	return Suggestion{
		Code:    CodeRoadmapRefsUnknown,
		Message: msg,
		FixHint: "Add the items to the roadmap or correct the refs.",
	}, true
}
