package ledger

import (
	"math"
	"strings"

	"github.com/valter-silva-au/projitive/pkg/models"
)

const (
	nonePlaceholder    = "(none)"
	unknownBlockerText = "Unknown blocker"
)

// UnknownBlocker is the record that stands in for a blocker block missing
// its type or description.
func UnknownBlocker() *models.Blocker {
	return &models.Blocker{
		Type:        models.BlockerExternalDependency,
		Description: unknownBlockerText,
	}
}

// Normalize returns a copy of task that satisfies the ledger invariants:
// single-line trimmed text, a known status, well-formed and unique roadmap
// refs, no placeholder links, and sub-state or blocker fields that are
// either valid or absent. Normalize is idempotent.
func Normalize(task models.Task) models.Task {
	out := models.Task{
		ID:          singleLine(task.ID),
		Title:       singleLine(task.Title),
		Status:      task.Status,
		Owner:       singleLine(task.Owner),
		Summary:     singleLine(task.Summary),
		UpdatedAt:   singleLine(task.UpdatedAt),
		Links:       normalizeList(task.Links),
		Hooks:       normalizeList(task.Hooks),
		RoadmapRefs: normalizeRoadmapRefs(task.RoadmapRefs),
	}
	if !out.Status.IsValid() {
		out.Status = models.StatusTodo
	}
	if out.Owner == nonePlaceholder {
		out.Owner = ""
	}
	if out.Summary == nonePlaceholder {
		out.Summary = ""
	}
	if task.SubState != nil {
		out.SubState = normalizeSubState(*task.SubState)
	}
	if task.Blocker != nil {
		out.Blocker = normalizeBlocker(*task.Blocker)
	}
	return out
}

// NormalizeAll applies Normalize to every task, preserving order and duplicates.
func NormalizeAll(tasks []models.Task) []models.Task {
	out := make([]models.Task, len(tasks))
	for i, t := range tasks {
		out[i] = Normalize(t)
	}
	return out
}

func normalizeSubState(ss models.SubState) *models.SubState {
	out := &models.SubState{
		EstimatedCompletion: singleLine(ss.EstimatedCompletion),
	}
	phase := models.Phase(singleLine(string(ss.Phase)))
	if phase.IsValid() {
		out.Phase = phase
	}
	if ss.Confidence != nil && validConfidence(*ss.Confidence) {
		c := *ss.Confidence
		out.Confidence = &c
	}
	return out
}

func normalizeBlocker(b models.Blocker) *models.Blocker {
	typ := models.BlockerType(singleLine(string(b.Type)))
	desc := singleLine(b.Description)
	if !typ.IsValid() || desc == "" {
		return UnknownBlocker()
	}
	return &models.Blocker{
		Type:             typ,
		Description:      desc,
		BlockingEntity:   singleLine(b.BlockingEntity),
		UnblockCondition: singleLine(b.UnblockCondition),
		EscalationPath:   singleLine(b.EscalationPath),
	}
}

func validConfidence(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

func normalizeList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = singleLine(item)
		if item == "" || item == nonePlaceholder {
			continue
		}
		out = append(out, item)
	}
	return out
}

func normalizeRoadmapRefs(refs []string) []string {
	seen := make(map[string]struct{}, len(refs))
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if !IsValidRoadmapID(ref) {
			continue
		}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}

// singleLine trims s and folds any internal run of whitespace that contains
// a line break into a single space, so the value survives a render.
func singleLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(s), " ")
}
