// Package scheduler fans the watch loop out across every configured
// repository. Each repository gets its own engine goroutine guarded by a
// filesystem lease, while oracle fix invocations share one process-wide
// semaphore so concurrent repositories cannot stampede the LLM CLI.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/alanmeadows/vigil/internal/config"
	"github.com/alanmeadows/vigil/internal/engine"
	"github.com/alanmeadows/vigil/internal/logging"
	"github.com/alanmeadows/vigil/internal/notify"
	"github.com/alanmeadows/vigil/internal/oracle"
	"github.com/alanmeadows/vigil/internal/provider"
	"github.com/alanmeadows/vigil/internal/store"
)

const (
	initialRetryDelay = time.Minute
	maxRetryDelay     = 15 * time.Minute
)

// Options wires the collaborators shared by every repository watcher.
type Options struct {
	Config   *config.Config
	Source   provider.PRSource
	Oracle   oracle.Oracle
	Notifier notify.Notifier
	Store    store.Store
	Journal  *store.Journal
}

// Scheduler runs one engine per configured repository.
type Scheduler struct {
	cfg      *config.Config
	source   provider.PRSource
	oracle   oracle.Oracle
	notifier notify.Notifier
	store    store.Store
	journal  *store.Journal
	fixSem   *semaphore.Weighted
}

// New creates a scheduler from shared collaborators.
func New(opts Options) *Scheduler {
	maxFixes := opts.Config.Server.MaxConcurrentFixes
	if maxFixes <= 0 {
		maxFixes = 5
	}
	return &Scheduler{
		cfg:      opts.Config,
		source:   opts.Source,
		oracle:   opts.Oracle,
		notifier: opts.Notifier,
		store:    opts.Store,
		journal:  opts.Journal,
		fixSem:   semaphore.NewWeighted(int64(maxFixes)),
	}
}

// Run watches every configured repository until the context is cancelled.
// Repositories are isolated from each other: a repository whose lease is
// held elsewhere is logged and skipped, the rest keep running.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.cfg.Repositories) == 0 {
		return fmt.Errorf("no repositories configured")
	}

	pollInterval := s.cfg.Server.ParsePollInterval()

	g, ctx := errgroup.WithContext(ctx)
	for _, repo := range s.cfg.Repositories {
		repo := repo
		g.Go(func() error {
			return s.watchRepository(ctx, repo, pollInterval)
		})
	}
	return g.Wait()
}

func (s *Scheduler) watchRepository(ctx context.Context, repo config.RepositoryConfig, pollInterval time.Duration) error {
	log := logging.ForRepository(repo.Key())

	lease, err := store.AcquireLease(s.cfg.Server.DataDir, repo.Key())
	if err != nil {
		// Another process holds the lease. Skip this repository rather
		// than tearing down the other watchers.
		log.Error("skipping repository", "error", err)
		return nil
	}
	defer lease.Release()

	delay := initialRetryDelay
	for {
		eng := engine.New(engine.Options{
			Repository:   repo,
			Source:       s.source,
			Oracle:       s.oracle,
			Notifier:     s.notifier,
			Store:        s.store,
			Journal:      s.journal,
			FixSemaphore: s.fixSem,
			PollInterval: pollInterval,
			Logger:       slog.Default(),
		})

		err := eng.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}

		log.Error("watch loop exited, restarting", "error", err, "retry_in", delay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}
