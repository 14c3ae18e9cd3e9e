package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanmeadows/vigil/internal/provider"
)

func TestCloneIsDeep(t *testing.T) {
	now := time.Now()
	orig := NewRepositoryState("acme/widgets")
	pr := NewPRState(provider.PullRequest{Number: 7, Title: "fix build"}, now)
	pr.Checks["tests"] = provider.Check{Name: "tests", Status: provider.CheckFailure}
	pr.FailedChecks = []string{"tests"}
	pr.Analyses["tests"] = Analysis{CheckName: "tests", Fixable: true}
	pr.FixAttempts["tests"] = []FixAttempt{{ID: "a1", CheckName: "tests", Attempt: 1, Status: AttemptFailure}}
	pr.Escalations = []EscalationRecord{{ID: "e1", PRNumber: 7, CheckName: "tests"}}
	orig.ActivePRs[7] = pr

	clone := orig.Clone()
	require.NotSame(t, orig, clone)

	// Mutating the clone must not leak into the original.
	clone.ActivePRs[7].Checks["tests"] = provider.Check{Name: "tests", Status: provider.CheckSuccess}
	clone.ActivePRs[7].FailedChecks[0] = "lint"
	clone.ActivePRs[7].FixAttempts["tests"][0].Status = AttemptSuccess
	clone.ActivePRs[7].Escalations[0].CheckName = "lint"
	clone.Stats.Escalations = 99

	assert.Equal(t, provider.CheckFailure, orig.ActivePRs[7].Checks["tests"].Status)
	assert.Equal(t, "tests", orig.ActivePRs[7].FailedChecks[0])
	assert.Equal(t, AttemptFailure, orig.ActivePRs[7].FixAttempts["tests"][0].Status)
	assert.Equal(t, "tests", orig.ActivePRs[7].Escalations[0].CheckName)
	assert.Equal(t, 0, orig.Stats.Escalations)
}

func TestLatestAttempt(t *testing.T) {
	pr := NewPRState(provider.PullRequest{Number: 1}, time.Now())
	assert.Nil(t, pr.LatestAttempt("tests"))

	pr.FixAttempts["tests"] = []FixAttempt{
		{ID: "a1", Attempt: 1, Status: AttemptFailure},
		{ID: "a2", Attempt: 2, Status: AttemptSuccess},
	}
	latest := pr.LatestAttempt("tests")
	require.NotNil(t, latest)
	assert.Equal(t, "a2", latest.ID)
}

func TestIsTerminalFailure(t *testing.T) {
	assert.True(t, AttemptFailure.IsTerminalFailure())
	assert.True(t, AttemptTimeout.IsTerminalFailure())
	assert.False(t, AttemptSuccess.IsTerminalFailure())
	assert.False(t, AttemptInProgress.IsTerminalFailure())
}
