package core

import (
	"math"
	"testing"

	"github.com/valter-silva-au/projitive/pkg/models"
)

func TestScoreFactors_Buckets(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		value float64
		want  Recommendation
	}{
		{1.0, RecommendAutoCreate},
		{0.8, RecommendAutoCreate},
		{0.7, RecommendReviewRequired},
		{0.5, RecommendReviewRequired},
		{0.49, RecommendDoNotCreate},
		{0.0, RecommendDoNotCreate},
	}
	for _, tt := range tests {
		got := ScoreFactors(ConfidenceFactors{tt.value, tt.value, tt.value}, th)
		if got.Recommendation != tt.want {
			t.Errorf("factors %.2f: got %s (score %v), want %s", tt.value, got.Recommendation, got.Score, tt.want)
		}
		if math.Abs(got.Score-tt.value) > 1e-9 {
			t.Errorf("factors %.2f: score = %v", tt.value, got.Score)
		}
	}
}

func TestScoreFactors_ClampsInputs(t *testing.T) {
	got := ScoreFactors(ConfidenceFactors{ContextCompleteness: 3, SimilarTaskHistory: -1, SpecificationClarity: math.NaN()}, DefaultThresholds())
	if got.Factors.ContextCompleteness != 1 || got.Factors.SimilarTaskHistory != 0 || got.Factors.SpecificationClarity != 0 {
		t.Errorf("factors not clamped: %+v", got.Factors)
	}
	if math.Abs(got.Score-0.4) > 1e-9 {
		t.Errorf("score = %v, want 0.4", got.Score)
	}
}

func TestContextCompleteness(t *testing.T) {
	if got := ContextCompleteness(Artifacts{}); got != 0 {
		t.Errorf("empty = %v", got)
	}
	if got := ContextCompleteness(Artifacts{TasksFile: true, Readme: true}); got != 0.5 {
		t.Errorf("half = %v", got)
	}
	if got := ContextCompleteness(Artifacts{true, true, true, true}); got != 1 {
		t.Errorf("full = %v", got)
	}
}

func TestSimilarTaskHistory(t *testing.T) {
	history := []models.Task{
		{Title: "Login page", Summary: "oauth callback", Status: models.StatusDone},
		{Title: "Login audit", Status: models.StatusTodo},
		{Title: "Billing export", Status: models.StatusDone},
	}
	if got := SimilarTaskHistory("Fix the login redirect", history); got != 0.5 {
		t.Errorf("login: got %v, want 0.5", got)
	}
	if got := SimilarTaskHistory("billing csv", history); got != 1 {
		t.Errorf("billing: got %v, want 1", got)
	}
	if got := SimilarTaskHistory("unrelated kafka work", history); got != neutralHistory {
		t.Errorf("no similar tasks: got %v, want neutral", got)
	}
	if got := SimilarTaskHistory("", history); got != neutralHistory {
		t.Errorf("empty summary: got %v, want neutral", got)
	}
}

func TestSpecificationClarity(t *testing.T) {
	if got := SpecificationClarity(SpecSignals{}); got != 0.3 {
		t.Errorf("base = %v", got)
	}
	if got := SpecificationClarity(SpecSignals{HasRoadmap: true, HasDesignDocs: true, HasAcceptanceCriteria: true}); got != 1 {
		t.Errorf("all signals = %v", got)
	}
}

func TestCalculateConfidence_OverrideContext(t *testing.T) {
	full := 1.0
	got := CalculateConfidence(ConfidenceInput{
		ContextCompleteness: &full,
		Signals:             SpecSignals{HasRoadmap: true, HasDesignDocs: true, HasAcceptanceCriteria: true},
	}, DefaultThresholds())
	// 0.4*1 + 0.35*0.5 + 0.25*1
	if math.Abs(got.Score-0.825) > 1e-9 {
		t.Errorf("score = %v, want 0.825", got.Score)
	}
	if got.Recommendation != RecommendAutoCreate {
		t.Errorf("recommendation = %s", got.Recommendation)
	}
}

func TestRunPreCreationValidation(t *testing.T) {
	th := DefaultThresholds()

	pass := RunPreCreationValidation(ScoreFactors(ConfidenceFactors{1, 1, 1}, th), th)
	if !pass.Passed || len(pass.Issues) != 0 {
		t.Errorf("expected pass without issues, got %+v", pass)
	}

	review := RunPreCreationValidation(ScoreFactors(ConfidenceFactors{0.7, 0.7, 0.7}, th), th)
	if review.Passed || review.Recommendation != RecommendReviewRequired || len(review.Issues) == 0 {
		t.Errorf("expected review failure, got %+v", review)
	}

	fail := RunPreCreationValidation(ScoreFactors(ConfidenceFactors{}, th), th)
	if fail.Passed || fail.Recommendation != RecommendDoNotCreate || len(fail.Issues) != 3 {
		t.Errorf("expected three issues, got %+v", fail)
	}

	strict := Thresholds{AutoCreate: 0.95, Review: 0.9}
	if RunPreCreationValidation(ScoreFactors(ConfidenceFactors{0.9, 0.9, 0.9}, th), strict).Passed {
		t.Error("custom thresholds should be honored")
	}
}
