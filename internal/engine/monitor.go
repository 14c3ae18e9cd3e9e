package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/alanmeadows/vigil/internal/policy"
	"github.com/alanmeadows/vigil/internal/provider"
	"github.com/alanmeadows/vigil/internal/state"
)

// monitorChecks refreshes check status for every tracked PR and collects
// the checks that flipped to failure since the previous cycle. A PR whose
// check fetch fails keeps its previous state.
func (e *Engine) monitorChecks(ctx context.Context) (Step, error) {
	work := e.st.Clone()
	now := e.now()
	e.cycle = cycle{}

	for num, pr := range work.ActivePRs {
		num, pr := num, pr
		e.guardItem(fmt.Sprintf("pr#%d", num), pr, func() error {
			checks, err := e.source.GetChecks(ctx, e.repoCfg.Owner, e.repoCfg.Repo, num)
			if err != nil {
				// Keep the previous check state for this PR.
				return fmt.Errorf("getting checks: %w", err)
			}

			previous := pr.Checks
			var failed []string
			for name, check := range checks {
				if check.Status != provider.CheckFailure {
					continue
				}
				failed = append(failed, name)

				if previous[name].Status != provider.CheckFailure {
					e.log.Info("newly failed check", "pr", num, "check", name)
					e.cycle.newlyFailed = append(e.cycle.newlyFailed, policy.FailedCheck{
						PRNumber:   num,
						CheckName:  name,
						BaseBranch: pr.Info.BaseBranch,
					})
				}
			}
			sort.Strings(failed)

			pr.Checks = checks
			pr.FailedChecks = failed
			pr.LastUpdated = now
			pr.Phase = state.PhaseMonitored
			if len(failed) > 0 {
				pr.Phase = state.PhaseNeedsAnalysis
			}
			return nil
		})
	}

	work.LastPollTime = now
	e.st = work

	e.log.Debug("check monitoring complete",
		"active_prs", len(work.ActivePRs), "newly_failed", len(e.cycle.newlyFailed))
	return afterMonitor(e.st, len(e.cycle.newlyFailed)), nil
}

// prioritizeFailures orders this cycle's failed checks for analysis. When
// the newly-failed buffer is empty (a resumed loop, or a cycle retrying
// older failures) it is rebuilt from every PR's persisted failed-check set.
// The buffer is cleared after consumption so failures are not reprocessed.
func (e *Engine) prioritizeFailures() (Step, error) {
	failures := e.cycle.newlyFailed
	if len(failures) == 0 {
		for num, pr := range e.st.ActivePRs {
			for _, check := range pr.FailedChecks {
				failures = append(failures, policy.FailedCheck{
					PRNumber:   num,
					CheckName:  check,
					BaseBranch: pr.Info.BaseBranch,
				})
			}
		}
	}

	e.cycle.prioritized = policy.Prioritize(failures, e.repoCfg.Priorities)
	e.cycle.newlyFailed = nil

	if len(e.cycle.prioritized) == 0 {
		return StepWaitForPoll, nil
	}

	e.log.Info("prioritized failed checks", "count", len(e.cycle.prioritized),
		"first", e.cycle.prioritized[0].CheckName)
	return StepAnalyzeFailures, nil
}
