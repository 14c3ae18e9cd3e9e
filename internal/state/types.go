package state

import (
	"time"

	"github.com/alanmeadows/vigil/internal/provider"
)

// FixAttemptStatus is the lifecycle state of one automated fix attempt.
type FixAttemptStatus string

const (
	AttemptInProgress FixAttemptStatus = "in_progress"
	AttemptSuccess    FixAttemptStatus = "success"
	AttemptFailure    FixAttemptStatus = "failure"
	AttemptTimeout    FixAttemptStatus = "timeout"
)

// IsTerminalFailure reports whether the attempt ended without fixing the check.
func (s FixAttemptStatus) IsTerminalFailure() bool {
	return s == AttemptFailure || s == AttemptTimeout
}

// FixAttempt records one oracle invocation against a failing check.
type FixAttempt struct {
	ID          string           `json:"id"`
	CheckName   string           `json:"check_name"`
	Attempt     int              `json:"attempt"` // 1-based
	Status      FixAttemptStatus `json:"status"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at,omitempty"`
	Summary     string           `json:"summary,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// EscalationStatus is the lifecycle state of a human escalation.
type EscalationStatus string

const (
	EscalationPending      EscalationStatus = "pending"
	EscalationNotified     EscalationStatus = "notified"
	EscalationAcknowledged EscalationStatus = "acknowledged"
	EscalationResolved     EscalationStatus = "resolved"
)

// EscalationRecord captures one handoff to a human operator: one record per
// (PR, check) pair, carrying the notifier's message id for later follow-up.
type EscalationRecord struct {
	ID             string           `json:"id"`
	PRNumber       int              `json:"pr_number"`
	CheckName      string           `json:"check_name"`
	Reason         string           `json:"reason"`
	Timestamp      time.Time        `json:"timestamp"`
	Status         EscalationStatus `json:"status"`
	MessageID      string           `json:"message_id,omitempty"`
	AcknowledgedBy string           `json:"acknowledged_by,omitempty"`
	Notes          string           `json:"notes,omitempty"`
}

// Analysis is the stored oracle verdict for one failing check.
type Analysis struct {
	CheckName    string    `json:"check_name"`
	Fixable      bool      `json:"fixable"`
	Severity     string    `json:"severity,omitempty"`
	Category     string    `json:"category,omitempty"`
	Summary      string    `json:"summary,omitempty"`
	SuggestedFix string    `json:"suggested_fix,omitempty"`
	Confidence   float64   `json:"confidence,omitempty"`
	AnalyzedAt   time.Time `json:"analyzed_at"`
}

// Per-PR phase markers. Unlike the engine's repository-level step, these
// only record how far an individual PR got within the current cycle.
const (
	PhaseDiscovered    = "discovered"
	PhaseMonitored     = "checks_monitored"
	PhaseNeedsAnalysis = "needs_analysis"
	PhaseAnalyzed      = "analyzed"
	PhaseFixing        = "fix_in_progress"
	PhaseEscalated     = "escalated"
)

// PRState is everything tracked for one open pull request.
type PRState struct {
	Number       int                       `json:"number"`
	Info         provider.PullRequest      `json:"info"`
	Checks       map[string]provider.Check `json:"checks"`
	FailedChecks []string                  `json:"failed_checks"`
	Analyses     map[string]Analysis       `json:"analyses,omitempty"`
	FixAttempts  map[string][]FixAttempt   `json:"fix_attempts,omitempty"`
	Escalations  []EscalationRecord        `json:"escalations,omitempty"`
	Phase        string                    `json:"phase"`
	LastError    string                    `json:"last_error,omitempty"`
	LastUpdated  time.Time                 `json:"last_updated"`
}

// NewPRState creates tracking state for a newly discovered PR.
func NewPRState(info provider.PullRequest, now time.Time) *PRState {
	return &PRState{
		Number:      info.Number,
		Info:        info,
		Checks:      make(map[string]provider.Check),
		Analyses:    make(map[string]Analysis),
		FixAttempts: make(map[string][]FixAttempt),
		Phase:       PhaseDiscovered,
		LastUpdated: now,
	}
}

// AttemptsFor returns the recorded fix attempts for a check.
func (p *PRState) AttemptsFor(checkName string) []FixAttempt {
	return p.FixAttempts[checkName]
}

// LatestAttempt returns the most recent fix attempt for a check, or nil.
func (p *PRState) LatestAttempt(checkName string) *FixAttempt {
	attempts := p.FixAttempts[checkName]
	if len(attempts) == 0 {
		return nil
	}
	return &attempts[len(attempts)-1]
}

// Counters tracks lifetime repository activity across restarts.
type Counters struct {
	PRsProcessed   int `json:"prs_processed"`
	FixesAttempted int `json:"fixes_attempted"`
	FixesSucceeded int `json:"fixes_succeeded"`
	Escalations    int `json:"escalations"`
}

// RepositoryState is the persisted aggregate for one watched repository.
type RepositoryState struct {
	Repository        string           `json:"repository"` // "owner/repo"
	Step              string           `json:"step"`
	ActivePRs         map[int]*PRState `json:"active_prs"`
	LastPollTime      time.Time        `json:"last_poll_time,omitempty"`
	ConsecutiveErrors int              `json:"consecutive_errors"`
	LastError         string           `json:"last_error,omitempty"`
	Stats             Counters         `json:"stats"`
}

// NewRepositoryState creates a fresh aggregate for a repository.
func NewRepositoryState(repository string) *RepositoryState {
	return &RepositoryState{
		Repository: repository,
		ActivePRs:  make(map[int]*PRState),
	}
}

// Clone returns a deep copy of the repository state. Nodes hand out clones
// so a failed step never leaves a half-mutated aggregate behind.
func (r *RepositoryState) Clone() *RepositoryState {
	if r == nil {
		return nil
	}
	out := *r
	out.ActivePRs = make(map[int]*PRState, len(r.ActivePRs))
	for num, pr := range r.ActivePRs {
		out.ActivePRs[num] = pr.clone()
	}
	return &out
}

func (p *PRState) clone() *PRState {
	if p == nil {
		return nil
	}
	out := *p

	out.Checks = make(map[string]provider.Check, len(p.Checks))
	for name, c := range p.Checks {
		out.Checks[name] = c
	}

	out.FailedChecks = append([]string(nil), p.FailedChecks...)

	out.Analyses = make(map[string]Analysis, len(p.Analyses))
	for name, a := range p.Analyses {
		out.Analyses[name] = a
	}

	out.FixAttempts = make(map[string][]FixAttempt, len(p.FixAttempts))
	for name, attempts := range p.FixAttempts {
		out.FixAttempts[name] = append([]FixAttempt(nil), attempts...)
	}

	out.Escalations = append([]EscalationRecord(nil), p.Escalations...)

	return &out
}
