package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/alanmeadows/vigil/internal/oracle"
	"github.com/alanmeadows/vigil/internal/state"
)

// analyzeFailures asks the oracle for a verdict on each prioritized check
// that has none yet. An oracle failure is recorded as a non-fixable
// analysis rather than an error: the check simply stays out of the fix
// pass and becomes an escalation candidate if nothing else moves it.
func (e *Engine) analyzeFailures(ctx context.Context) (Step, error) {
	work := e.st.Clone()
	now := e.now()

	for _, item := range e.cycle.prioritized {
		item := item
		pr := work.ActivePRs[item.PRNumber]
		if pr == nil {
			continue
		}
		if _, done := pr.Analyses[item.CheckName]; done {
			continue
		}

		e.guardItem(fmt.Sprintf("pr#%d/%s", item.PRNumber, item.CheckName), pr, func() error {
			failureContext := e.buildFailureContext(ctx, pr, item.CheckName)

			verdict, err := e.oracle.Analyze(ctx, oracle.Request{
				Repository:     e.repoKey,
				PRNumber:       pr.Number,
				PRTitle:        pr.Info.Title,
				CheckName:      item.CheckName,
				FailureContext: failureContext,
				RepositoryPath: e.repoCfg.RepositoryPath,
				ProjectContext: e.repoCfg.ProjectContext,
			})
			if err != nil {
				pr.Analyses[item.CheckName] = state.Analysis{
					CheckName:  item.CheckName,
					Fixable:    false,
					Summary:    fmt.Sprintf("analysis failed: %v", err),
					AnalyzedAt: now,
				}
				return fmt.Errorf("analyzing: %w", err)
			}

			pr.Analyses[item.CheckName] = state.Analysis{
				CheckName:    item.CheckName,
				Fixable:      verdict.Fixable,
				Severity:     verdict.Severity,
				Category:     verdict.Category,
				Summary:      verdict.Analysis,
				SuggestedFix: verdict.SuggestedFix,
				Confidence:   verdict.Confidence,
				AnalyzedAt:   now,
			}
			e.log.Info("check analyzed", "pr", pr.Number, "check", item.CheckName,
				"fixable", verdict.Fixable, "category", verdict.Category)
			return nil
		})

		pr.Phase = state.PhaseAnalyzed
	}

	e.st = work
	return afterAnalyze(e.st, e.cycle.prioritized, e.maxAttempts), nil
}

// buildFailureContext assembles what the oracle sees about a failure:
// check metadata followed by distilled logs from the provider. Log fetch
// failures degrade to a note instead of blocking analysis.
func (e *Engine) buildFailureContext(ctx context.Context, pr *state.PRState, checkName string) string {
	var b strings.Builder

	check := pr.Checks[checkName]
	fmt.Fprintf(&b, "Check: %s\n", checkName)
	if check.RawStatus != "" {
		fmt.Fprintf(&b, "Status: %s", check.RawStatus)
		if check.RawConclusion != "" {
			fmt.Fprintf(&b, " (%s)", check.RawConclusion)
		}
		b.WriteString("\n")
	}
	if check.URL != "" {
		fmt.Fprintf(&b, "Details: %s\n", check.URL)
	}

	logs, err := e.source.GetCheckLogs(ctx, e.repoCfg.Owner, e.repoCfg.Repo, pr.Number, checkName)
	if err != nil {
		e.log.Warn("failed to fetch check logs", "pr", pr.Number, "check", checkName, "error", err)
		fmt.Fprintf(&b, "\nLogs unavailable: %v\n", err)
		return b.String()
	}

	fmt.Fprintf(&b, "\n%s\n", logs)
	return b.String()
}
