package core

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/valter-silva-au/projitive/pkg/models"
	"pgregory.net/rapid"
)

func genCandidate(t *rapid.T) Candidate {
	status := rapid.SampledFrom([]models.TaskStatus{models.StatusTodo, models.StatusInProgress}).Draw(t, "status")
	return Candidate{
		GovernanceDir:   rapid.SampledFrom([]string{"/a", "/b", "/c"}).Draw(t, "gov"),
		ProjectScore:    rapid.IntRange(0, 4).Draw(t, "score"),
		TaskPriority:    TaskPriority(status),
		TaskUpdatedAtMs: int64(rapid.IntRange(0, 3).Draw(t, "updated")),
		Task:            models.Task{ID: fmt.Sprintf("TASK-%04d", rapid.IntRange(0, 20).Draw(t, "id")), Status: status},
	}
}

// Property: ranking is independent of input order and every adjacent pair
// respects the comparator.
func TestProperty_RankingDeterministic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		candidates := rapid.SliceOfN(rapid.Custom(genCandidate), 0, 12).Draw(rt, "candidates")

		shuffled := append([]Candidate{}, candidates...)
		perm := rapid.Permutation(shuffled).Draw(rt, "perm")

		a := RankCandidates(candidates)
		b := RankCandidates(perm)
		if !reflect.DeepEqual(a, b) {
			rt.Fatalf("ranking depends on input order:\n%v\n%v", ids(a), ids(b))
		}
		for i := 1; i < len(a); i++ {
			if candidateLess(a[i], a[i-1]) {
				rt.Fatalf("position %d ranks before %d", i, i-1)
			}
		}
		if !reflect.DeepEqual(RankCandidates(a), a) {
			rt.Fatal("ranking an already ranked list changed it")
		}
	})
}
