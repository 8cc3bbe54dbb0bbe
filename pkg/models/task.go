package models

// TaskStatus represents the current lifecycle state of a task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusBlocked    TaskStatus = "BLOCKED"
	StatusDone       TaskStatus = "DONE"
)

// AllStatuses returns every task status in lifecycle order.
func AllStatuses() []TaskStatus {
	return []TaskStatus{StatusTodo, StatusInProgress, StatusBlocked, StatusDone}
}

// IsValid reports whether s is one of the four known statuses.
func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusBlocked, StatusDone:
		return true
	default:
		return false
	}
}

// ParseTaskStatus converts raw ledger text into a TaskStatus.
// The second return value is false when the text is not a known status.
func ParseTaskStatus(raw string) (TaskStatus, bool) {
	s := TaskStatus(raw)
	return s, s.IsValid()
}

// IsActionable reports whether a task in this status is eligible for
// "what to do next" selection.
func (s TaskStatus) IsActionable() bool {
	return s == StatusTodo || s == StatusInProgress
}

// Phase is the sub-stage of an IN_PROGRESS task.
type Phase string

const (
	PhaseDiscovery      Phase = "discovery"
	PhaseDesign         Phase = "design"
	PhaseImplementation Phase = "implementation"
	PhaseTesting        Phase = "testing"
)

// AllPhases returns every known phase.
func AllPhases() []Phase {
	return []Phase{PhaseDiscovery, PhaseDesign, PhaseImplementation, PhaseTesting}
}

// IsValid reports whether p is one of the known phases.
func (p Phase) IsValid() bool {
	switch p {
	case PhaseDiscovery, PhaseDesign, PhaseImplementation, PhaseTesting:
		return true
	default:
		return false
	}
}

// BlockerType classifies what a BLOCKED task is waiting on.
type BlockerType string

const (
	BlockerInternalDependency BlockerType = "internal_dependency"
	BlockerExternalDependency BlockerType = "external_dependency"
	BlockerResource           BlockerType = "resource"
	BlockerApproval           BlockerType = "approval"
)

// AllBlockerTypes returns every known blocker type.
func AllBlockerTypes() []BlockerType {
	return []BlockerType{BlockerInternalDependency, BlockerExternalDependency, BlockerResource, BlockerApproval}
}

// IsValid reports whether b is one of the known blocker types.
func (b BlockerType) IsValid() bool {
	switch b {
	case BlockerInternalDependency, BlockerExternalDependency, BlockerResource, BlockerApproval:
		return true
	default:
		return false
	}
}

// SubState holds progress detail for an IN_PROGRESS task.
type SubState struct {
	Phase               Phase    `json:"phase,omitempty" yaml:"phase,omitempty"`
	Confidence          *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	EstimatedCompletion string   `json:"estimatedCompletion,omitempty" yaml:"estimatedCompletion,omitempty"`
}

// Blocker describes why a BLOCKED task cannot proceed.
type Blocker struct {
	Type             BlockerType `json:"type" yaml:"type"`
	Description      string      `json:"description" yaml:"description"`
	BlockingEntity   string      `json:"blockingEntity,omitempty" yaml:"blockingEntity,omitempty"`
	UnblockCondition string      `json:"unblockCondition,omitempty" yaml:"unblockCondition,omitempty"`
	EscalationPath   string      `json:"escalationPath,omitempty" yaml:"escalationPath,omitempty"`
}

// Task represents one unit of work identified by a TASK-#### ID and stored
// in a project's tasks ledger.
type Task struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Status      TaskStatus `json:"status" yaml:"status"`
	Owner       string     `json:"owner" yaml:"owner"`
	Summary     string     `json:"summary" yaml:"summary"`
	UpdatedAt   string     `json:"updatedAt" yaml:"updatedAt"`
	Links       []string   `json:"links" yaml:"links"`
	Hooks       []string   `json:"hooks,omitempty" yaml:"hooks,omitempty"`
	RoadmapRefs []string   `json:"roadmapRefs" yaml:"roadmapRefs"`
	SubState    *SubState  `json:"subState,omitempty" yaml:"subState,omitempty"`
	Blocker     *Blocker   `json:"blocker,omitempty" yaml:"blocker,omitempty"`
}

// Clone returns a deep copy of the task so callers can mutate it without
// affecting the original slice backing a ledger.
func (t Task) Clone() Task {
	out := t
	out.Links = append([]string(nil), t.Links...)
	out.Hooks = append([]string(nil), t.Hooks...)
	out.RoadmapRefs = append([]string(nil), t.RoadmapRefs...)
	if t.SubState != nil {
		ss := *t.SubState
		if t.SubState.Confidence != nil {
			c := *t.SubState.Confidence
			ss.Confidence = &c
		}
		out.SubState = &ss
	}
	if t.Blocker != nil {
		b := *t.Blocker
		out.Blocker = &b
	}
	return out
}
