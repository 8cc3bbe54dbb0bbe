package core

import (
	"errors"
	"fmt"

	"github.com/valter-silva-au/projitive/pkg/models"
)

// ErrInvalidTransition is matched by errors.Is for every rejected status change.
var ErrInvalidTransition = errors.New("invalid status transition")

// TransitionError describes a status change outside the allowed table.
type TransitionError struct {
	TaskID string
	From   models.TaskStatus
	To     models.TaskStatus
}

func (e *TransitionError) Error() string {
	if e.TaskID != "" {
		return fmt.Sprintf("task %s: cannot move from %s to %s", e.TaskID, e.From, e.To)
	}
	return fmt.Sprintf("cannot move from %s to %s", e.From, e.To)
}

// Is lets errors.Is match TransitionError against ErrInvalidTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// transitions lists the allowed non-self moves. DONE is terminal.
var transitions = map[models.TaskStatus][]models.TaskStatus{
	models.StatusTodo:       {models.StatusInProgress, models.StatusBlocked},
	models.StatusInProgress: {models.StatusBlocked, models.StatusDone},
	models.StatusBlocked:    {models.StatusInProgress, models.StatusTodo},
	models.StatusDone:       {},
}

// IsTransitionAllowed reports whether a task may move from one status to
// another. Staying in the same status is always allowed.
func IsTransitionAllowed(from, to models.TaskStatus) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a *TransitionError when the move is not allowed.
func ValidateTransition(from, to models.TaskStatus) error {
	if IsTransitionAllowed(from, to) {
		return nil
	}
	return &TransitionError{From: from, To: to}
}

// AllowedTransitions returns the statuses reachable from the given status
// in one step, excluding the status itself.
func AllowedTransitions(from models.TaskStatus) []models.TaskStatus {
	return append([]models.TaskStatus{}, transitions[from]...)
}
