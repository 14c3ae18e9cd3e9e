// Package engine drives the per-repository watch loop: scan open PRs,
// monitor their checks, prioritize and analyze failures, attempt fixes,
// and escalate what automation cannot repair. The loop is an explicit
// state machine whose current step is persisted after every node, so a
// restarted process resumes instead of starting over.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/alanmeadows/vigil/internal/config"
	"github.com/alanmeadows/vigil/internal/notify"
	"github.com/alanmeadows/vigil/internal/oracle"
	"github.com/alanmeadows/vigil/internal/policy"
	"github.com/alanmeadows/vigil/internal/provider"
	"github.com/alanmeadows/vigil/internal/state"
	"github.com/alanmeadows/vigil/internal/store"
)

// prRetention is how long a PR without activity stays in the snapshot.
const prRetention = 7 * 24 * time.Hour

// Options wires an Engine's collaborators.
type Options struct {
	Repository   config.RepositoryConfig
	Source       provider.PRSource
	Oracle       oracle.Oracle
	Notifier     notify.Notifier
	Store        store.Store
	Journal      *store.Journal
	FixSemaphore *semaphore.Weighted
	PollInterval time.Duration
	Logger       *slog.Logger
	Now          func() time.Time
}

// Engine runs the watch loop for a single repository.
type Engine struct {
	repoCfg      config.RepositoryConfig
	repoKey      string
	source       provider.PRSource
	oracle       oracle.Oracle
	notifier     notify.Notifier
	store        store.Store
	journal      *store.Journal
	fixSem       *semaphore.Weighted
	pollInterval time.Duration
	maxAttempts  int
	log          *slog.Logger
	now          func() time.Time

	st    *state.RepositoryState
	cycle cycle
}

// cycle is per-cycle scratch. It is deliberately not persisted: a resumed
// loop rebuilds it from the snapshot's failed-check sets.
type cycle struct {
	newlyFailed []policy.FailedCheck
	prioritized []policy.PrioritizedCheck
	fixCalls    int
}

// New creates an engine for one repository.
func New(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	sem := opts.FixSemaphore
	if sem == nil {
		sem = semaphore.NewWeighted(5)
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Minute
	}

	return &Engine{
		repoCfg:      opts.Repository,
		repoKey:      opts.Repository.Key(),
		source:       opts.Source,
		oracle:       opts.Oracle,
		notifier:     opts.Notifier,
		store:        opts.Store,
		journal:      opts.Journal,
		fixSem:       sem,
		pollInterval: pollInterval,
		maxAttempts:  opts.Repository.FixLimits.EffectiveMaxAttempts(),
		log:          log.With("repository", opts.Repository.Key()),
		now:          now,
	}
}

// Run drives the state machine until the context is cancelled. The snapshot
// is persisted after every step, including one final time on shutdown.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.restore(ctx); err != nil {
		return fmt.Errorf("restoring snapshot: %w", err)
	}
	e.log.Info("watch loop starting", "step", e.st.Step, "active_prs", len(e.st.ActivePRs))

	for {
		if ctx.Err() != nil {
			e.persist()
			e.log.Info("watch loop stopped", "step", e.st.Step)
			return ctx.Err()
		}

		step := Step(e.st.Step)
		next, err := e.runStep(ctx, step)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			e.st.ConsecutiveErrors++
			e.st.LastError = err.Error()
			e.log.Error("step failed", "step", step, "consecutive_errors", e.st.ConsecutiveErrors, "error", err)
			next = afterStepError(e.st)
		}

		e.st.Step = string(next)
		e.persist()
	}
}

// restore loads the persisted snapshot or starts fresh, normalizing the
// entry step so the loop never resumes mid-cycle.
func (e *Engine) restore(ctx context.Context) error {
	st, err := e.store.Load(ctx, e.repoKey)
	if err != nil {
		return err
	}
	if st == nil {
		st = state.NewRepositoryState(e.repoKey)
		st.Step = string(StepScanRepository)
	} else {
		resumed := resumeStep(Step(st.Step))
		if string(resumed) != st.Step {
			e.log.Info("resuming at safe entry point", "persisted_step", st.Step, "resume_step", resumed)
		}
		st.Step = string(resumed)
	}
	e.st = st
	return nil
}

// persist saves the snapshot. Persistence failures are logged, not fatal:
// losing a checkpoint is recoverable, killing the loop is not.
func (e *Engine) persist() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.store.Save(ctx, e.st); err != nil {
		e.log.Warn("failed to persist snapshot", "error", err)
	}
}

func (e *Engine) runStep(ctx context.Context, step Step) (Step, error) {
	switch step {
	case StepScanRepository:
		return e.scanRepository(ctx)
	case StepMonitorChecks:
		return e.monitorChecks(ctx)
	case StepPrioritizeFailures:
		return e.prioritizeFailures()
	case StepAnalyzeFailures:
		return e.analyzeFailures(ctx)
	case StepAttemptFixes:
		return e.attemptFixes(ctx)
	case StepEscalateIssues:
		return e.escalateIssues(ctx)
	case StepWaitForPoll:
		return e.waitForPoll(ctx)
	case StepHandleErrors:
		return e.handleErrors(ctx)
	case StepCleanupState:
		return e.cleanupState()
	default:
		e.log.Warn("unknown step in snapshot, restarting cycle", "step", step)
		return StepScanRepository, nil
	}
}

// guardItem isolates the processing of a single PR or check: a panic or
// error inside fn is logged, recorded on the PR, and the cycle moves on to
// the next item.
func (e *Engine) guardItem(item string, pr *state.PRState, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("recovered from panic", "item", item, "panic", r)
			if pr != nil {
				pr.LastError = fmt.Sprintf("panic: %v", r)
			}
		}
	}()
	if err := fn(); err != nil {
		e.log.Error("item processing failed", "item", item, "error", err)
		if pr != nil {
			pr.LastError = err.Error()
		}
		return
	}
	if pr != nil {
		pr.LastError = ""
	}
}

// waitForPoll sleeps until the next poll interval.
func (e *Engine) waitForPoll(ctx context.Context) (Step, error) {
	e.log.Debug("waiting for next poll", "interval", e.pollInterval)
	timer := time.NewTimer(e.pollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return StepWaitForPoll, ctx.Err()
	case <-timer.C:
		return StepCleanupState, nil
	}
}

// handleErrors backs off exponentially (capped at 8x the poll interval)
// before rejoining the normal poll flow, so cleanup still runs between
// cycles. The error counter is only reset by a successful scan.
func (e *Engine) handleErrors(ctx context.Context) (Step, error) {
	mult := 1 << min(e.st.ConsecutiveErrors, 3)
	if mult > maxBackoffMultiplier {
		mult = maxBackoffMultiplier
	}
	backoff := e.pollInterval * time.Duration(mult)
	e.log.Warn("backing off after repeated errors",
		"consecutive_errors", e.st.ConsecutiveErrors, "backoff", backoff, "last_error", e.st.LastError)

	timer := time.NewTimer(backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return StepHandleErrors, ctx.Err()
	case <-timer.C:
		return StepWaitForPoll, nil
	}
}

// cleanupState drops PRs with no activity inside the retention window.
func (e *Engine) cleanupState() (Step, error) {
	work := e.st.Clone()
	cutoff := e.now().Add(-prRetention)

	for num, pr := range work.ActivePRs {
		last := pr.LastUpdated
		if pr.Info.UpdatedAt.After(last) {
			last = pr.Info.UpdatedAt
		}
		if last.Before(cutoff) {
			e.log.Info("dropping stale PR from state", "pr", num, "last_activity", last)
			delete(work.ActivePRs, num)
		}
	}

	e.st = work
	return StepScanRepository, nil
}
