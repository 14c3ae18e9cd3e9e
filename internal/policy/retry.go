package policy

import "github.com/alanmeadows/vigil/internal/state"

// Decision is the outcome of a fix pass over a repository.
type Decision string

const (
	// DecisionVerify re-checks CI after at least one fix succeeded.
	DecisionVerify Decision = "verify_fixes"
	// DecisionRetry runs another fix pass for checks with budget left.
	DecisionRetry Decision = "retry_fixes"
	// DecisionEscalate hands exhausted checks to a human.
	DecisionEscalate Decision = "escalate_to_human"
	// DecisionWait sleeps until the next poll.
	DecisionWait Decision = "wait_for_next_poll"
)

// NextAction evaluates every tracked fix attempt across the repository and
// picks what the fix pass should do next. Precedence:
//
//  1. any check whose latest attempt succeeded → verify
//  2. any check with attempts left whose latest attempt failed → retry
//  3. any check that used its full budget → escalate
//  4. otherwise → wait
func NextAction(prs map[int]*state.PRState, maxAttempts int) Decision {
	hasRetry := false
	hasEscalate := false

	for _, pr := range prs {
		for _, attempts := range pr.FixAttempts {
			if len(attempts) == 0 {
				continue
			}
			latest := attempts[len(attempts)-1]
			if latest.Status == state.AttemptSuccess {
				return DecisionVerify
			}
			if !latest.Status.IsTerminalFailure() {
				// Still in progress; not this pass's problem.
				continue
			}
			if len(attempts) < maxAttempts {
				hasRetry = true
			} else {
				hasEscalate = true
			}
		}
	}

	if hasRetry {
		return DecisionRetry
	}
	if hasEscalate {
		return DecisionEscalate
	}
	return DecisionWait
}
