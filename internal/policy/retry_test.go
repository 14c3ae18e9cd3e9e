package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alanmeadows/vigil/internal/provider"
	"github.com/alanmeadows/vigil/internal/state"
)

func prWithAttempts(number int, check string, statuses ...state.FixAttemptStatus) *state.PRState {
	pr := state.NewPRState(provider.PullRequest{Number: number}, time.Now())
	pr.FailedChecks = []string{check}
	for i, st := range statuses {
		pr.FixAttempts[check] = append(pr.FixAttempts[check], state.FixAttempt{
			ID:        "a",
			CheckName: check,
			Attempt:   i + 1,
			Status:    st,
		})
	}
	return pr
}

func TestNextActionVerifyWins(t *testing.T) {
	prs := map[int]*state.PRState{
		1: prWithAttempts(1, "tests", state.AttemptFailure),
		2: prWithAttempts(2, "lint", state.AttemptSuccess),
	}
	assert.Equal(t, DecisionVerify, NextAction(prs, 3))
}

func TestNextActionRetryBeforeEscalate(t *testing.T) {
	prs := map[int]*state.PRState{
		1: prWithAttempts(1, "tests", state.AttemptFailure, state.AttemptFailure, state.AttemptFailure),
		2: prWithAttempts(2, "lint", state.AttemptFailure),
	}
	assert.Equal(t, DecisionRetry, NextAction(prs, 3))
}

func TestNextActionEscalateWhenExhausted(t *testing.T) {
	prs := map[int]*state.PRState{
		1: prWithAttempts(1, "tests", state.AttemptFailure, state.AttemptTimeout, state.AttemptFailure),
	}
	assert.Equal(t, DecisionEscalate, NextAction(prs, 3))
}

func TestNextActionWaitByDefault(t *testing.T) {
	assert.Equal(t, DecisionWait, NextAction(nil, 3))

	// In-progress attempts do not trigger anything.
	prs := map[int]*state.PRState{
		1: prWithAttempts(1, "tests", state.AttemptInProgress),
	}
	assert.Equal(t, DecisionWait, NextAction(prs, 3))
}
