// Package policy holds the pure decision logic of the watch loop:
// ordering failed checks, choosing between retry and escalation, and
// identifying checks that need a human. Nothing here does I/O.
package policy

import (
	"sort"
	"strings"

	"github.com/alanmeadows/vigil/internal/config"
)

// defaultScore applies when no check-type keyword matches. Lower scores
// are handled first.
const defaultScore = 100

// FailedCheck identifies one failing check on one PR during a poll cycle.
type FailedCheck struct {
	PRNumber   int
	CheckName  string
	BaseBranch string
}

// PrioritizedCheck is a failed check with its computed priority score.
type PrioritizedCheck struct {
	FailedCheck
	Score float64
}

// Prioritize scores and orders failed checks. The first configured keyword
// that appears in the check name (case-insensitive) replaces the default
// score; the base-branch weight is added on top; the PR number contributes
// a small tiebreaker so ordering is deterministic across runs.
func Prioritize(failures []FailedCheck, pri config.Priorities) []PrioritizedCheck {
	out := make([]PrioritizedCheck, 0, len(failures))
	for _, f := range failures {
		score := float64(defaultScore)

		name := strings.ToLower(f.CheckName)
		for _, ct := range pri.CheckTypes {
			if ct.Keyword != "" && strings.Contains(name, strings.ToLower(ct.Keyword)) {
				score = ct.Weight
				break
			}
		}

		if weight, ok := pri.Branches[f.BaseBranch]; ok {
			score += weight
		}

		score += float64(f.PRNumber) * 0.001

		out = append(out, PrioritizedCheck{FailedCheck: f, Score: score})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score < out[j].Score })
	return out
}
