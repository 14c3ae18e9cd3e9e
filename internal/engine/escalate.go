package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/alanmeadows/vigil/internal/notify"
	"github.com/alanmeadows/vigil/internal/policy"
	"github.com/alanmeadows/vigil/internal/state"
)

// escalateIssues notifies a human about each failing check that exhausted
// automation, one notification and one record per (PR, check) pair. Checks
// still inside their cooldown window are suppressed. An escalation is only
// recorded, and only starts a cooldown, after the notifier confirms delivery.
func (e *Engine) escalateIssues(ctx context.Context) (Step, error) {
	if !e.repoCfg.FixLimits.IsEscalationEnabled() {
		e.log.Debug("escalation disabled for repository")
		return StepWaitForPoll, nil
	}

	work := e.st.Clone()
	now := e.now()
	cooldown := e.repoCfg.FixLimits.Cooldown()

	for _, c := range policy.Candidates(work.ActivePRs, e.maxAttempts) {
		c := c
		pr := work.ActivePRs[c.PRNumber]
		if pr == nil {
			continue
		}
		if policy.InCooldown(pr, c.CheckName, cooldown, now) {
			e.log.Debug("escalation suppressed by cooldown", "pr", pr.Number, "check", c.CheckName)
			continue
		}

		e.guardItem(fmt.Sprintf("pr#%d/%s", c.PRNumber, c.CheckName), pr, func() error {
			return e.escalateCheck(ctx, work, pr, c)
		})
	}

	e.st = work
	return StepWaitForPoll, nil
}

// escalateCheck sends one notification for a single exhausted check and
// records the handoff on the PR.
func (e *Engine) escalateCheck(ctx context.Context, work *state.RepositoryState, pr *state.PRState, c policy.Candidate) error {
	esc := notify.Escalation{
		Repository: e.repoKey,
		PRNumber:   pr.Number,
		PRTitle:    pr.Info.Title,
		PRURL:      pr.Info.URL,
		CheckName:  c.CheckName,
		Reason:     c.Reason,
		Attempts:   c.Attempts,
		Channel:    e.repoCfg.Notifications.TelegramChannel,
		Mentions:   e.repoCfg.Notifications.EscalationMentions,
	}

	messageID, err := e.notifier.SendEscalation(ctx, esc)
	if err != nil {
		// No record, no cooldown: the next cycle tries again.
		return fmt.Errorf("sending escalation: %w", err)
	}

	record := state.EscalationRecord{
		ID:        uuid.NewString(),
		PRNumber:  pr.Number,
		CheckName: c.CheckName,
		Reason:    c.Reason,
		Timestamp: e.now(),
		Status:    state.EscalationNotified,
		MessageID: messageID,
	}
	pr.Escalations = append(pr.Escalations, record)
	pr.Phase = state.PhaseEscalated
	work.Stats.Escalations++

	e.log.Info("escalated to human", "pr", pr.Number, "check", c.CheckName,
		"reason", c.Reason, "message_id", messageID)

	if e.journal != nil {
		if err := e.journal.Record(record, e.repoKey, escalationBody(pr, esc)); err != nil {
			e.log.Warn("failed to write escalation journal entry", "pr", pr.Number, "error", err)
		}
	}
	return nil
}

// escalationBody renders the operator-facing markdown for the journal.
func escalationBody(pr *state.PRState, esc notify.Escalation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# PR #%d: %s\n\n", pr.Number, pr.Info.Title)
	if pr.Info.URL != "" {
		fmt.Fprintf(&b, "%s\n\n", pr.Info.URL)
	}
	fmt.Fprintf(&b, "%s\n\n", esc.Reason)
	fmt.Fprintf(&b, "## Check: %s\n", esc.CheckName)
	if a, ok := pr.Analyses[esc.CheckName]; ok && a.Summary != "" {
		fmt.Fprintf(&b, "\n%s\n", a.Summary)
	}
	return b.String()
}
