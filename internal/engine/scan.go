package engine

import (
	"context"

	"github.com/alanmeadows/vigil/internal/state"
)

// scanRepository refreshes the set of tracked PRs: new open PRs matching
// the branch filter are picked up, updated ones refreshed, and PRs no
// longer open are dropped. A successful scan resets the error counter.
func (e *Engine) scanRepository(ctx context.Context) (Step, error) {
	prs, err := e.source.ListOpenPRs(ctx, e.repoCfg.Owner, e.repoCfg.Repo, e.repoCfg.BranchFilter)
	if err != nil {
		return StepHandleErrors, err
	}

	work := e.st.Clone()
	now := e.now()
	seen := make(map[int]bool, len(prs))

	for _, info := range prs {
		seen[info.Number] = true
		existing, ok := work.ActivePRs[info.Number]
		if !ok {
			e.log.Info("tracking new PR", "pr", info.Number, "title", info.Title, "head", info.HeadBranch)
			work.ActivePRs[info.Number] = state.NewPRState(info, now)
			work.Stats.PRsProcessed++
			continue
		}
		if info.UpdatedAt.After(existing.Info.UpdatedAt) {
			e.log.Debug("PR updated", "pr", info.Number)
			existing.Info = info
			existing.LastUpdated = now
		}
	}

	for num := range work.ActivePRs {
		if !seen[num] {
			e.log.Info("PR closed, dropping from state", "pr", num)
			delete(work.ActivePRs, num)
		}
	}

	work.ConsecutiveErrors = 0
	work.LastError = ""
	e.st = work

	e.log.Debug("scan complete", "active_prs", len(work.ActivePRs))
	return afterScan(e.st), nil
}
