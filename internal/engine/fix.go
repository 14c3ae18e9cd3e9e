package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/alanmeadows/vigil/internal/oracle"
	"github.com/alanmeadows/vigil/internal/state"
)

// attemptFixes runs one fix pass over the prioritized checks. A check is
// eligible when its analysis says fixable, it still has attempt budget,
// and no attempt is in flight. Each oracle call holds a slot on the
// process-wide fix semaphore.
func (e *Engine) attemptFixes(ctx context.Context) (Step, error) {
	work := e.st.Clone()
	e.cycle.fixCalls = 0

	for _, item := range e.cycle.prioritized {
		item := item
		pr := work.ActivePRs[item.PRNumber]
		if pr == nil || !e.eligibleForFix(pr, item.CheckName) {
			continue
		}

		e.guardItem(fmt.Sprintf("pr#%d/%s", item.PRNumber, item.CheckName), pr, func() error {
			return e.runFixAttempt(ctx, &work.Stats, pr, item.CheckName)
		})
	}

	e.st = work
	return afterFix(e.st, e.maxAttempts, e.cycle.fixCalls), nil
}

// eligibleForFix gates one re-attempt. A previous attempt that claimed
// success is no bar: the check only reaches this point while it is still in
// the failed set, meaning verification refuted the claim, so the budget
// keeps burning down toward exhaustion.
func (e *Engine) eligibleForFix(pr *state.PRState, checkName string) bool {
	analysis, analyzed := pr.Analyses[checkName]
	if !analyzed || !analysis.Fixable {
		return false
	}
	if len(pr.FixAttempts[checkName]) >= e.maxAttempts {
		return false
	}
	if latest := pr.LatestAttempt(checkName); latest != nil && latest.Status == state.AttemptInProgress {
		return false
	}
	return true
}

// runFixAttempt records an in-progress attempt, invokes the oracle, and
// settles the attempt to success, failure, or timeout.
func (e *Engine) runFixAttempt(ctx context.Context, stats *state.Counters, pr *state.PRState, checkName string) error {
	if err := e.fixSem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquiring fix slot: %w", err)
	}
	defer e.fixSem.Release(1)

	analysis := pr.Analyses[checkName]
	attempt := state.FixAttempt{
		ID:        uuid.NewString(),
		CheckName: checkName,
		Attempt:   len(pr.FixAttempts[checkName]) + 1,
		Status:    state.AttemptInProgress,
		StartedAt: e.now(),
	}
	pr.FixAttempts[checkName] = append(pr.FixAttempts[checkName], attempt)
	pr.Phase = state.PhaseFixing
	stats.FixesAttempted++
	e.cycle.fixCalls++

	e.log.Info("attempting fix", "pr", pr.Number, "check", checkName, "attempt", attempt.Attempt)

	result, err := e.oracle.Fix(ctx, oracle.Request{
		Repository:     e.repoKey,
		PRNumber:       pr.Number,
		PRTitle:        pr.Info.Title,
		CheckName:      checkName,
		FailureContext: analysis.Summary,
		RepositoryPath: e.repoCfg.RepositoryPath,
		ProjectContext: e.repoCfg.ProjectContext,
		Analysis: &oracle.Analysis{
			Fixable:      analysis.Fixable,
			Severity:     analysis.Severity,
			Category:     analysis.Category,
			Analysis:     analysis.Summary,
			SuggestedFix: analysis.SuggestedFix,
			Confidence:   analysis.Confidence,
		},
	})

	settled := &pr.FixAttempts[checkName][len(pr.FixAttempts[checkName])-1]
	settled.CompletedAt = e.now()

	switch {
	case errors.Is(err, oracle.ErrTimeout):
		settled.Status = state.AttemptTimeout
		settled.Error = err.Error()
		e.log.Warn("fix attempt timed out", "pr", pr.Number, "check", checkName, "attempt", settled.Attempt)
	case err != nil:
		settled.Status = state.AttemptFailure
		settled.Error = err.Error()
		e.log.Warn("fix attempt errored", "pr", pr.Number, "check", checkName, "attempt", settled.Attempt, "error", err)
	case result.Success:
		settled.Status = state.AttemptSuccess
		settled.Summary = result.Summary
		stats.FixesSucceeded++
		e.log.Info("fix attempt succeeded", "pr", pr.Number, "check", checkName, "attempt", settled.Attempt)
	default:
		settled.Status = state.AttemptFailure
		settled.Summary = result.Summary
		e.log.Warn("fix attempt did not fix the check", "pr", pr.Number, "check", checkName, "attempt", settled.Attempt)
	}

	return nil
}
