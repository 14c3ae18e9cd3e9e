package policy

import (
	"fmt"
	"sort"
	"time"

	"github.com/alanmeadows/vigil/internal/state"
)

// Candidate is one failing check that has exhausted automation and needs
// a human.
type Candidate struct {
	PRNumber  int
	CheckName string
	Reason    string
	Attempts  int
}

// Candidates returns the checks across the repository that qualify for
// escalation, in deterministic (PR, check) order. A check qualifies when:
//
//   - its fix attempts reached maxAttempts and every one of them ended in
//     terminal failure, or
//   - the oracle judged it not fixable and no attempt was ever made.
func Candidates(prs map[int]*state.PRState, maxAttempts int) []Candidate {
	var out []Candidate

	numbers := make([]int, 0, len(prs))
	for num := range prs {
		numbers = append(numbers, num)
	}
	sort.Ints(numbers)

	for _, num := range numbers {
		pr := prs[num]
		checks := append([]string(nil), pr.FailedChecks...)
		sort.Strings(checks)

		for _, check := range checks {
			attempts := pr.FixAttempts[check]

			if len(attempts) >= maxAttempts && allTerminalFailures(attempts) {
				out = append(out, Candidate{
					PRNumber:  num,
					CheckName: check,
					Reason:    fmt.Sprintf("maximum fix attempts (%d) exhausted", maxAttempts),
					Attempts:  len(attempts),
				})
				continue
			}

			analysis, analyzed := pr.Analyses[check]
			if analyzed && !analysis.Fixable && len(attempts) == 0 {
				out = append(out, Candidate{
					PRNumber:  num,
					CheckName: check,
					Reason:    "not automatically fixable",
				})
			}
		}
	}

	return out
}

func allTerminalFailures(attempts []state.FixAttempt) bool {
	for _, a := range attempts {
		if !a.Status.IsTerminalFailure() {
			return false
		}
	}
	return true
}

// InCooldown reports whether the check was already escalated recently on
// this PR. The most recent escalation naming the check suppresses a new one
// until the cooldown window has passed.
func InCooldown(pr *state.PRState, checkName string, cooldown time.Duration, now time.Time) bool {
	for i := len(pr.Escalations) - 1; i >= 0; i-- {
		rec := pr.Escalations[i]
		if rec.CheckName != checkName {
			continue
		}
		return now.Before(rec.Timestamp.Add(cooldown))
	}
	return false
}
