package ledger

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/valter-silva-au/projitive/pkg/models"
)

const (
	// StartMarker opens the ledger region of a tasks file.
	StartMarker = "<!-- PROJITIVE:TASKS:START -->"
	// EndMarker closes the ledger region of a tasks file.
	EndMarker = "<!-- PROJITIVE:TASKS:END -->"
	// EmptyPlaceholder is written between the markers when there are no tasks.
	EmptyPlaceholder = "(no tasks)"
)

var (
	sectionStart = regexp.MustCompile(`^##\s+TASK-\d{4}\s*\|`)
	headerLine   = regexp.MustCompile(`^##\s+(TASK-\d{4})\s*\|\s*([^|]*?)\s*\|\s*(.*?)\s*$`)
	fieldLine    = regexp.MustCompile(`^-\s+([A-Za-z]+):[ \t]*(.*)$`)
	nestedLine   = regexp.MustCompile(`^[ \t]+-\s+(.*)$`)
	nestedField  = regexp.MustCompile(`^([A-Za-z]+):[ \t]*(.*)$`)
	// Plain decimals only: no sign, exponent, hex or Inf/NaN spellings.
	decimalValue = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)$`)
)

// blockKind tracks which multi-line field, if any, nested lines belong to.
type blockKind int

const (
	blockNone blockKind = iota
	blockLinks
	blockHooks
	blockSubState
	blockBlocker
)

// region locates the ledger markers. ok is false when either marker is
// missing or the end marker comes first.
func region(markdown string) (start, end int, ok bool) {
	start = strings.Index(markdown, StartMarker)
	end = strings.Index(markdown, EndMarker)
	if start < 0 || end < 0 || end < start {
		return 0, 0, false
	}
	return start, end, true
}

// Parse extracts the tasks held between the ledger markers. It never fails:
// a document without a well-formed marker pair, an empty region, or the
// "(no tasks)" placeholder all yield an empty list, and sections whose
// header does not match are dropped. Every returned task is normalized.
func Parse(markdown string) []models.Task {
	start, end, ok := region(markdown)
	if !ok {
		return []models.Task{}
	}
	body := strings.TrimSpace(markdown[start+len(StartMarker) : end])
	if body == "" || body == EmptyPlaceholder {
		return []models.Task{}
	}

	tasks := []models.Task{}
	for _, section := range splitSections(body) {
		task, ok := parseSection(section)
		if !ok {
			continue
		}
		tasks = append(tasks, Normalize(task))
	}
	return tasks
}

// splitSections groups lines into task sections, each beginning at a line
// that looks like a task header. Lines before the first header are dropped.
func splitSections(body string) [][]string {
	var sections [][]string
	var current []string
	for _, line := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n") {
		if sectionStart.MatchString(line) {
			if current != nil {
				sections = append(sections, current)
			}
			current = []string{line}
			continue
		}
		if current != nil {
			current = append(current, line)
		}
	}
	if current != nil {
		sections = append(sections, current)
	}
	return sections
}

func parseSection(lines []string) (models.Task, bool) {
	m := headerLine.FindStringSubmatch(strings.TrimRight(lines[0], " \t"))
	if m == nil || strings.TrimSpace(m[3]) == "" {
		return models.Task{}, false
	}

	status, ok := models.ParseTaskStatus(m[2])
	if !ok {
		status = models.StatusTodo
	}
	task := models.Task{
		ID:     m[1],
		Title:  m[3],
		Status: status,
	}

	var (
		block      blockKind
		subState   *models.SubState
		blockerRaw map[string]string
	)
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if fm := fieldLine.FindStringSubmatch(line); fm != nil {
			key, value := fm[1], strings.TrimSpace(fm[2])
			next, known := applyField(&task, key, value)
			if !known {
				continue
			}
			block = next
			switch block {
			case blockSubState:
				subState = &models.SubState{}
			case blockBlocker:
				blockerRaw = map[string]string{}
			}
			continue
		}
		nm := nestedLine.FindStringSubmatch(line)
		if nm == nil {
			continue
		}
		item := strings.TrimSpace(nm[1])
		switch block {
		case blockLinks:
			task.Links = append(task.Links, item)
		case blockHooks:
			task.Hooks = append(task.Hooks, item)
		case blockSubState:
			if kv := nestedField.FindStringSubmatch(item); kv != nil {
				applySubStateField(subState, kv[1], strings.TrimSpace(kv[2]))
			}
		case blockBlocker:
			if kv := nestedField.FindStringSubmatch(item); kv != nil {
				blockerRaw[kv[1]] = strings.TrimSpace(kv[2])
			}
		}
	}

	task.SubState = subState
	if blockerRaw != nil {
		task.Blocker = buildBlocker(blockerRaw)
	}
	return task, true
}

// applyField stores a flat field on task and reports which block, if any,
// the following nested lines belong to. known is false for field names
// outside the dialect; those lines leave the current block open.
func applyField(task *models.Task, key, value string) (next blockKind, known bool) {
	switch key {
	case "owner":
		task.Owner = noneToEmpty(value)
	case "summary":
		task.Summary = noneToEmpty(value)
	case "updatedAt":
		task.UpdatedAt = value
	case "roadmapRefs":
		task.RoadmapRefs = splitRefs(value)
	case "links":
		if v := noneToEmpty(value); v != "" {
			task.Links = append(task.Links, v)
		}
		return blockLinks, true
	case "hooks":
		if v := noneToEmpty(value); v != "" {
			task.Hooks = append(task.Hooks, v)
		}
		return blockHooks, true
	case "subState":
		return blockSubState, true
	case "blocker":
		return blockBlocker, true
	default:
		return blockNone, false
	}
	return blockNone, true
}

func applySubStateField(ss *models.SubState, key, value string) {
	switch key {
	case "phase":
		if p := models.Phase(value); p.IsValid() {
			ss.Phase = p
		}
	case "confidence":
		if !decimalValue.MatchString(value) {
			return
		}
		v, err := strconv.ParseFloat(value, 64)
		if err == nil && validConfidence(v) {
			ss.Confidence = &v
		}
	case "estimatedCompletion":
		ss.EstimatedCompletion = value
	}
}

func buildBlocker(raw map[string]string) *models.Blocker {
	typ := models.BlockerType(raw["type"])
	desc := raw["description"]
	if !typ.IsValid() || desc == "" {
		return UnknownBlocker()
	}
	return &models.Blocker{
		Type:             typ,
		Description:      desc,
		BlockingEntity:   raw["blockingEntity"],
		UnblockCondition: raw["unblockCondition"],
		EscalationPath:   raw["escalationPath"],
	}
}

func splitRefs(value string) []string {
	value = noneToEmpty(value)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	refs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			refs = append(refs, p)
		}
	}
	return refs
}

func noneToEmpty(value string) string {
	if value == nonePlaceholder {
		return ""
	}
	return value
}

// Render produces the complete marker-delimited ledger block for tasks, in
// input order, with every field in a fixed position. A sub-state is only
// written for IN_PROGRESS tasks and a blocker only for BLOCKED tasks.
func Render(tasks []models.Task) string {
	var b strings.Builder
	b.WriteString(StartMarker)
	b.WriteString("\n")
	if len(tasks) == 0 {
		b.WriteString(EmptyPlaceholder)
		b.WriteString("\n")
	}
	for i, t := range tasks {
		if i > 0 {
			b.WriteString("\n")
		}
		renderTask(&b, t)
	}
	b.WriteString(EndMarker)
	b.WriteString("\n")
	return b.String()
}

func renderTask(b *strings.Builder, t models.Task) {
	b.WriteString("## " + t.ID + " | " + string(t.Status) + " | " + t.Title + "\n")
	b.WriteString("- owner: " + orNone(t.Owner) + "\n")
	b.WriteString("- summary: " + orNone(t.Summary) + "\n")
	b.WriteString("- updatedAt: " + t.UpdatedAt + "\n")
	refs := nonePlaceholder
	if len(t.RoadmapRefs) > 0 {
		refs = strings.Join(t.RoadmapRefs, ", ")
	}
	b.WriteString("- roadmapRefs: " + refs + "\n")

	b.WriteString("- links:\n")
	if len(t.Links) == 0 {
		b.WriteString("  - " + nonePlaceholder + "\n")
	}
	for _, link := range t.Links {
		b.WriteString("  - " + link + "\n")
	}

	if len(t.Hooks) > 0 {
		b.WriteString("- hooks:\n")
		for _, hook := range t.Hooks {
			b.WriteString("  - " + hook + "\n")
		}
	}

	if t.Status == models.StatusInProgress && t.SubState != nil {
		b.WriteString("- subState:\n")
		if t.SubState.Phase != "" {
			b.WriteString("  - phase: " + string(t.SubState.Phase) + "\n")
		}
		if t.SubState.Confidence != nil {
			b.WriteString("  - confidence: " + strconv.FormatFloat(*t.SubState.Confidence, 'f', -1, 64) + "\n")
		}
		if t.SubState.EstimatedCompletion != "" {
			b.WriteString("  - estimatedCompletion: " + t.SubState.EstimatedCompletion + "\n")
		}
	}

	if t.Status == models.StatusBlocked && t.Blocker != nil {
		b.WriteString("- blocker:\n")
		b.WriteString("  - type: " + string(t.Blocker.Type) + "\n")
		b.WriteString("  - description: " + t.Blocker.Description + "\n")
		writeOptional(b, "blockingEntity", t.Blocker.BlockingEntity)
		writeOptional(b, "unblockCondition", t.Blocker.UnblockCondition)
		writeOptional(b, "escalationPath", t.Blocker.EscalationPath)
	}
}

func writeOptional(b *strings.Builder, key, value string) {
	if value != "" {
		b.WriteString("  - " + key + ": " + value + "\n")
	}
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return nonePlaceholder
	}
	return s
}

// Splice replaces the ledger block inside markdown with a fresh rendering
// of tasks, keeping the text around it. When markdown has no usable marker
// pair the block is appended after the existing content.
func Splice(markdown string, tasks []models.Task) string {
	block := Render(tasks)
	start, end, ok := region(markdown)
	if !ok {
		if strings.TrimSpace(markdown) == "" {
			return block
		}
		return strings.TrimRight(markdown, "\n") + "\n\n" + block
	}
	rest := markdown[end+len(EndMarker):]
	rest = strings.TrimPrefix(strings.TrimPrefix(rest, "\r"), "\n")
	return markdown[:start] + block + rest
}

// FindIDsOutsideMarkers returns the unique task ids mentioned outside the
// ledger region, in first-seen order. Without a usable marker pair the
// whole document counts as outside.
func FindIDsOutsideMarkers(markdown string) []string {
	start, end, ok := region(markdown)
	if !ok {
		return uniqueMatches(taskIDScan, markdown)
	}
	outside := markdown[:start] + "\n" + markdown[end+len(EndMarker):]
	return uniqueMatches(taskIDScan, outside)
}
