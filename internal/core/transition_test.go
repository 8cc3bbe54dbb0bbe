package core

import (
	"errors"
	"reflect"
	"testing"

	"github.com/valter-silva-au/projitive/pkg/models"
)

func TestIsTransitionAllowed(t *testing.T) {
	tests := []struct {
		from, to models.TaskStatus
		want     bool
	}{
		{models.StatusTodo, models.StatusInProgress, true},
		{models.StatusTodo, models.StatusBlocked, true},
		{models.StatusTodo, models.StatusDone, false},
		{models.StatusInProgress, models.StatusDone, true},
		{models.StatusInProgress, models.StatusTodo, false},
		{models.StatusBlocked, models.StatusTodo, true},
		{models.StatusBlocked, models.StatusDone, false},
		{models.StatusDone, models.StatusTodo, false},
		{models.StatusDone, models.StatusDone, true},
		{"DOING", models.StatusTodo, false},
		{models.StatusTodo, "", false},
	}
	for _, tt := range tests {
		if got := IsTransitionAllowed(tt.from, tt.to); got != tt.want {
			t.Errorf("IsTransitionAllowed(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestValidateTransition_Error(t *testing.T) {
	err := ValidateTransition(models.StatusDone, models.StatusInProgress)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected errors.Is(err, ErrInvalidTransition), got %v", err)
	}
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransitionError, got %T", err)
	}
	if te.From != models.StatusDone || te.To != models.StatusInProgress {
		t.Errorf("unexpected error fields: %+v", te)
	}

	if err := ValidateTransition(models.StatusTodo, models.StatusInProgress); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestAllowedTransitions(t *testing.T) {
	if got := AllowedTransitions(models.StatusDone); len(got) != 0 {
		t.Errorf("DONE should be terminal, got %v", got)
	}
	want := []models.TaskStatus{models.StatusBlocked, models.StatusDone}
	got := AllowedTransitions(models.StatusInProgress)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	// The returned slice must not alias the table.
	got[0] = models.StatusTodo
	if AllowedTransitions(models.StatusInProgress)[0] != models.StatusBlocked {
		t.Error("AllowedTransitions leaked its backing table")
	}
}
