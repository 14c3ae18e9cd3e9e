package engine

import (
	"github.com/alanmeadows/vigil/internal/policy"
	"github.com/alanmeadows/vigil/internal/state"
)

// Step is one node of the repository watch loop. The current step is part
// of the persisted snapshot, so a restarted process knows where the loop
// left off.
type Step string

const (
	StepScanRepository     Step = "scan_repository"
	StepMonitorChecks      Step = "monitor_checks"
	StepPrioritizeFailures Step = "prioritize_failures"
	StepAnalyzeFailures    Step = "analyze_failures"
	StepAttemptFixes       Step = "attempt_fixes"
	StepEscalateIssues     Step = "escalate_issues"
	StepWaitForPoll        Step = "wait_for_poll"
	StepHandleErrors       Step = "handle_errors"
	StepCleanupState       Step = "cleanup_state"
)

const (
	// errorThreshold is how many consecutive scan failures trigger backoff.
	errorThreshold = 5
	// maxBackoffMultiplier caps the error backoff at 8x the poll interval.
	maxBackoffMultiplier = 8
)

// resumeStep maps a persisted step to a safe entry point. Mid-cycle steps
// depend on per-cycle scratch that is not persisted, so they re-enter at
// monitor_checks and rebuild it from the persisted failed-check sets.
func resumeStep(s Step) Step {
	switch s {
	case StepMonitorChecks, StepPrioritizeFailures, StepAnalyzeFailures,
		StepAttemptFixes, StepEscalateIssues:
		return StepMonitorChecks
	case StepWaitForPoll, StepCleanupState, StepHandleErrors:
		return StepCleanupState
	default:
		return StepScanRepository
	}
}

// afterScan routes into backoff when the repository has been failing
// persistently, and into monitoring otherwise.
func afterScan(st *state.RepositoryState) Step {
	if st.ConsecutiveErrors >= errorThreshold {
		return StepHandleErrors
	}
	return StepMonitorChecks
}

// afterStepError routes a failed step. Only sustained failure alters the
// polling cadence: below the threshold the loop rejoins the normal poll
// flow, at or above it the backoff step takes over.
func afterStepError(st *state.RepositoryState) Step {
	if st.ConsecutiveErrors >= errorThreshold {
		return StepHandleErrors
	}
	return StepWaitForPoll
}

// afterMonitor proceeds to prioritization when anything failed this cycle
// or a PR is still waiting on analysis from a previous one.
func afterMonitor(st *state.RepositoryState, newlyFailed int) Step {
	if newlyFailed > 0 {
		return StepPrioritizeFailures
	}
	for _, pr := range st.ActivePRs {
		if pr.Phase == state.PhaseNeedsAnalysis {
			return StepPrioritizeFailures
		}
	}
	return StepWaitForPoll
}

// afterAnalyze attempts fixes when any prioritized check is fixable with
// attempt budget left; otherwise escalates if anything qualifies, else waits.
func afterAnalyze(st *state.RepositoryState, prioritized []policy.PrioritizedCheck, maxAttempts int) Step {
	for _, item := range prioritized {
		pr := st.ActivePRs[item.PRNumber]
		if pr == nil {
			continue
		}
		analysis, ok := pr.Analyses[item.CheckName]
		if ok && analysis.Fixable && len(pr.FixAttempts[item.CheckName]) < maxAttempts {
			return StepAttemptFixes
		}
	}
	if len(policy.Candidates(st.ActivePRs, maxAttempts)) > 0 {
		return StepEscalateIssues
	}
	return StepWaitForPoll
}

// afterFix routes on the repository-wide retry decision. A fix pass that
// made no oracle calls always falls through to the next poll: whatever the
// decision says, repeating the pass could not make progress.
func afterFix(st *state.RepositoryState, maxAttempts, fixCalls int) Step {
	if fixCalls == 0 {
		return StepWaitForPoll
	}
	switch policy.NextAction(st.ActivePRs, maxAttempts) {
	case policy.DecisionVerify:
		return StepMonitorChecks
	case policy.DecisionRetry:
		return StepAttemptFixes
	case policy.DecisionEscalate:
		return StepEscalateIssues
	default:
		return StepWaitForPoll
	}
}
