package core

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/valter-silva-au/projitive/pkg/models"
)

// Recommendation is the confidence gate outcome for automatic task creation.
type Recommendation string

const (
	RecommendAutoCreate     Recommendation = "auto_create"
	RecommendReviewRequired Recommendation = "review_required"
	RecommendDoNotCreate    Recommendation = "do_not_create"
)

// Factor weights. They sum to 1.
const (
	weightContext = 0.4
	weightHistory = 0.35
	weightClarity = 0.25
)

// Clarity increments on top of the base.
const (
	clarityBase               = 0.3
	clarityRoadmap            = 0.2
	clarityDesignDocs         = 0.2
	clarityAcceptanceCriteria = 0.3
)

// neutralHistory is used when no past task resembles the candidate.
const neutralHistory = 0.5

// Thresholds bucket a score. A score at or above AutoCreate is auto_create,
// at or above Review is review_required, anything lower is do_not_create.
type Thresholds struct {
	AutoCreate float64 `json:"autoCreate" yaml:"autoCreate"`
	Review     float64 `json:"review" yaml:"review"`
}

// DefaultThresholds returns the built-in gate.
func DefaultThresholds() Thresholds {
	return Thresholds{AutoCreate: 0.8, Review: 0.5}
}

// ThresholdsFromConfig converts the configured gate.
func ThresholdsFromConfig(cfg models.ConfidenceConfig) Thresholds {
	return Thresholds{AutoCreate: cfg.AutoCreateThreshold, Review: cfg.ReviewThreshold}
}

// Artifacts records which governance files a project has.
type Artifacts struct {
	TasksFile  bool `json:"tasksFile" yaml:"tasksFile"`
	Roadmap    bool `json:"roadmap" yaml:"roadmap"`
	Readme     bool `json:"readme" yaml:"readme"`
	DesignDocs bool `json:"designDocs" yaml:"designDocs"`
}

// SpecSignals are the clarity indicators for a proposed task.
type SpecSignals struct {
	HasRoadmap            bool `json:"hasRoadmap" yaml:"hasRoadmap"`
	HasDesignDocs         bool `json:"hasDesignDocs" yaml:"hasDesignDocs"`
	HasAcceptanceCriteria bool `json:"hasAcceptanceCriteria" yaml:"hasAcceptanceCriteria"`
}

// ConfidenceInput describes a proposed task. ContextCompleteness overrides
// the value derived from Artifacts when set.
type ConfidenceInput struct {
	Summary             string
	ContextCompleteness *float64
	Artifacts           Artifacts
	History             []models.Task
	Signals             SpecSignals
}

// ConfidenceFactors are the three normalized inputs of a score.
type ConfidenceFactors struct {
	ContextCompleteness  float64 `json:"contextCompleteness" yaml:"contextCompleteness"`
	SimilarTaskHistory   float64 `json:"similarTaskHistory" yaml:"similarTaskHistory"`
	SpecificationClarity float64 `json:"specificationClarity" yaml:"specificationClarity"`
}

// ConfidenceScore is computed fresh on each call and never persisted.
type ConfidenceScore struct {
	Score          float64           `json:"score" yaml:"score"`
	Factors        ConfidenceFactors `json:"factors" yaml:"factors"`
	Recommendation Recommendation    `json:"recommendation" yaml:"recommendation"`
}

// PreCreationResult gates an automatic creation.
type PreCreationResult struct {
	Passed         bool           `json:"passed" yaml:"passed"`
	Recommendation Recommendation `json:"recommendation" yaml:"recommendation"`
	Issues         []string       `json:"issues" yaml:"issues"`
}

// ContextCompleteness is the fraction of governance artifacts present.
func ContextCompleteness(a Artifacts) float64 {
	present := 0
	for _, ok := range []bool{a.TasksFile, a.Roadmap, a.Readme, a.DesignDocs} {
		if ok {
			present++
		}
	}
	return float64(present) / 4
}

// SimilarTaskHistory returns the share of DONE tasks among past tasks that
// share at least one keyword with the summary.
func SimilarTaskHistory(summary string, history []models.Task) float64 {
	want := keywords(summary)
	if len(want) == 0 {
		return neutralHistory
	}
	similar, done := 0, 0
	for _, t := range history {
		if !sharesKeyword(want, keywords(t.Title+" "+t.Summary)) {
			continue
		}
		similar++
		if t.Status == models.StatusDone {
			done++
		}
	}
	if similar == 0 {
		return neutralHistory
	}
	return float64(done) / float64(similar)
}

// SpecificationClarity starts at a base and adds a fixed increment per signal.
func SpecificationClarity(s SpecSignals) float64 {
	v := clarityBase
	if s.HasRoadmap {
		v += clarityRoadmap
	}
	if s.HasDesignDocs {
		v += clarityDesignDocs
	}
	if s.HasAcceptanceCriteria {
		v += clarityAcceptanceCriteria
	}
	return clamp01(v)
}

// CalculateConfidence combines the three factors into a score and buckets it.
func CalculateConfidence(in ConfidenceInput, th Thresholds) ConfidenceScore {
	ctx := ContextCompleteness(in.Artifacts)
	if in.ContextCompleteness != nil {
		ctx = *in.ContextCompleteness
	}
	factors := ConfidenceFactors{
		ContextCompleteness:  clamp01(ctx),
		SimilarTaskHistory:   clamp01(SimilarTaskHistory(in.Summary, in.History)),
		SpecificationClarity: clamp01(SpecificationClarity(in.Signals)),
	}
	return ScoreFactors(factors, th)
}

// ScoreFactors applies the fixed weights to already computed factors.
func ScoreFactors(f ConfidenceFactors, th Thresholds) ConfidenceScore {
	f = ConfidenceFactors{
		ContextCompleteness:  clamp01(f.ContextCompleteness),
		SimilarTaskHistory:   clamp01(f.SimilarTaskHistory),
		SpecificationClarity: clamp01(f.SpecificationClarity),
	}
	score := weightContext*f.ContextCompleteness +
		weightHistory*f.SimilarTaskHistory +
		weightClarity*f.SpecificationClarity
	// Round away float noise so 1.0 factors give exactly 1.
	score = math.Round(clamp01(score)*1e6) / 1e6
	return ConfidenceScore{Score: score, Factors: f, Recommendation: recommend(score, th)}
}

// RunPreCreationValidation re-checks a score against the thresholds. Only
// auto_create passes.
func RunPreCreationValidation(cs ConfidenceScore, th Thresholds) PreCreationResult {
	rec := recommend(cs.Score, th)
	res := PreCreationResult{Passed: rec == RecommendAutoCreate, Recommendation: rec, Issues: []string{}}
	switch rec {
	case RecommendReviewRequired:
		res.Issues = append(res.Issues, fmt.Sprintf("confidence %.2f is below the auto-create threshold %.2f; review before creating", cs.Score, th.AutoCreate))
	case RecommendDoNotCreate:
		res.Issues = append(res.Issues, fmt.Sprintf("confidence %.2f is below the review threshold %.2f", cs.Score, th.Review))
	}
	if cs.Factors.ContextCompleteness < 0.5 {
		res.Issues = append(res.Issues, "governance context is incomplete")
	}
	if cs.Factors.SpecificationClarity <= clarityBase {
		res.Issues = append(res.Issues, "no roadmap, design docs or acceptance criteria back this task")
	}
	return res
}

func recommend(score float64, th Thresholds) Recommendation {
	switch {
	case score >= th.AutoCreate:
		return RecommendAutoCreate
	case score >= th.Review:
		return RecommendReviewRequired
	default:
		return RecommendDoNotCreate
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "into": {}, "that": {},
	"this": {}, "are": {}, "was": {}, "add": {}, "use": {}, "all": {}, "not": {},
}

// keywords returns the lowercase alphanumeric words of at least three
// letters, minus stopwords.
func keywords(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len(w) < 3 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

func sharesKeyword(a, b map[string]struct{}) bool {
	for w := range a {
		if _, ok := b[w]; ok {
			return true
		}
	}
	return false
}
