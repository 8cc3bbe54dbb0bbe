package core

import (
	"sort"

	"github.com/valter-silva-au/projitive/internal/ledger"
	"github.com/valter-silva-au/projitive/pkg/models"
)

// ProjectTasks is one project's ledger as gathered by a scan.
type ProjectTasks struct {
	GovernanceDir string
	TasksPath     string
	Tasks         []models.Task
}

// Candidate joins an actionable task with its project's aggregate signals.
// It is a read-only projection built for ranking.
type Candidate struct {
	GovernanceDir          string      `json:"governanceDir" yaml:"governanceDir"`
	TasksPath              string      `json:"tasksPath" yaml:"tasksPath"`
	Task                   models.Task `json:"task" yaml:"task"`
	ProjectScore           int         `json:"projectScore" yaml:"projectScore"`
	ProjectLatestUpdatedAt string      `json:"projectLatestUpdatedAt" yaml:"projectLatestUpdatedAt"`
	TaskUpdatedAtMs        int64       `json:"taskUpdatedAtMs" yaml:"taskUpdatedAtMs"`
	TaskPriority           int         `json:"taskPriority" yaml:"taskPriority"`
}

// TaskPriority orders statuses for ranking. Non-actionable statuses rank 0.
func TaskPriority(status models.TaskStatus) int {
	switch status {
	case models.StatusInProgress:
		return 2
	case models.StatusTodo:
		return 1
	default:
		return 0
	}
}

// ProjectScore weighs in-progress work double so projects with momentum
// surface first.
func ProjectScore(tasks []models.Task) int {
	score := 0
	for _, t := range tasks {
		switch t.Status {
		case models.StatusInProgress:
			score += 2
		case models.StatusTodo:
			score++
		}
	}
	return score
}

// BuildCandidates filters every project to its actionable tasks and attaches
// the project's score and latest update time to each of them.
func BuildCandidates(projects []ProjectTasks) []Candidate {
	candidates := []Candidate{}
	for _, p := range projects {
		score := ProjectScore(p.Tasks)
		latest := latestUpdatedAt(p.Tasks)
		for _, t := range p.Tasks {
			if !t.Status.IsActionable() {
				continue
			}
			candidates = append(candidates, Candidate{
				GovernanceDir:          p.GovernanceDir,
				TasksPath:              p.TasksPath,
				Task:                   t,
				ProjectScore:           score,
				ProjectLatestUpdatedAt: latest,
				TaskUpdatedAtMs:        updatedAtMs(t.UpdatedAt),
				TaskPriority:           TaskPriority(t.Status),
			})
		}
	}
	return candidates
}

// RankCandidates returns a sorted copy of candidates. The order is total:
// project score, task priority and update time descending, then governance
// dir and task id ascending.
func RankCandidates(candidates []Candidate) []Candidate {
	ranked := append([]Candidate{}, candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return candidateLess(ranked[i], ranked[j])
	})
	return ranked
}

// NextActionable returns the top-ranked candidate.
func NextActionable(candidates []Candidate) (Candidate, bool) {
	ranked := RankCandidates(candidates)
	if len(ranked) == 0 {
		return Candidate{}, false
	}
	return ranked[0], true
}

func candidateLess(a, b Candidate) bool {
	if a.ProjectScore != b.ProjectScore {
		return a.ProjectScore > b.ProjectScore
	}
	if a.TaskPriority != b.TaskPriority {
		return a.TaskPriority > b.TaskPriority
	}
	if a.TaskUpdatedAtMs != b.TaskUpdatedAtMs {
		return a.TaskUpdatedAtMs > b.TaskUpdatedAtMs
	}
	if a.GovernanceDir != b.GovernanceDir {
		return a.GovernanceDir < b.GovernanceDir
	}
	return a.Task.ID < b.Task.ID
}

// updatedAtMs is the task's update time in Unix milliseconds, 0 when the
// timestamp does not parse.
func updatedAtMs(raw string) int64 {
	ts, ok := ledger.ParseTimestamp(raw)
	if !ok {
		return 0
	}
	return ts.UnixMilli()
}

// latestUpdatedAt returns the raw updatedAt of the most recently updated
// task in the project, or "" when none parses.
func latestUpdatedAt(tasks []models.Task) string {
	var best int64
	latest := ""
	for _, t := range tasks {
		ts, ok := ledger.ParseTimestamp(t.UpdatedAt)
		if !ok {
			continue
		}
		if ms := ts.UnixMilli(); latest == "" || ms > best {
			best, latest = ms, t.UpdatedAt
		}
	}
	return latest
}
