// Package ledger parses and renders the marker-delimited task ledger that
// lives inside a project's tasks markdown file.
//
// The ledger dialect is deliberately narrow: a fixed task header line plus a
// fixed set of indented fields. Anything else inside the markers is dropped
// without error so that hand edits never make a ledger unreadable.
package ledger

import (
	"regexp"
	"strings"
	"time"
)

var (
	taskIDPattern    = regexp.MustCompile(`^TASK-\d{4}$`)
	roadmapIDPattern = regexp.MustCompile(`^ROADMAP-\d{4}$`)

	taskIDScan    = regexp.MustCompile(`\bTASK-\d{4}\b`)
	roadmapIDScan = regexp.MustCompile(`\bROADMAP-\d{4}\b`)
)

// IsValidTaskID reports whether id has the TASK-#### shape.
func IsValidTaskID(id string) bool {
	return taskIDPattern.MatchString(id)
}

// IsValidRoadmapID reports whether id has the ROADMAP-#### shape.
func IsValidRoadmapID(id string) bool {
	return roadmapIDPattern.MatchString(id)
}

// ExtractRoadmapIDs returns the unique roadmap ids mentioned in a roadmap
// document, in first-seen order.
func ExtractRoadmapIDs(markdown string) []string {
	return uniqueMatches(roadmapIDScan, markdown)
}

func uniqueMatches(re *regexp.Regexp, text string) []string {
	matches := re.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// timestampLayouts are tried in order by ParseTimestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an updatedAt value. Values without a zone are read
// as UTC. It reports false for anything that is not a recognizable
// ISO-8601 date or date-time.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
