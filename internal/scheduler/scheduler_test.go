package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanmeadows/vigil/internal/config"
	"github.com/alanmeadows/vigil/internal/notify"
	"github.com/alanmeadows/vigil/internal/oracle"
	"github.com/alanmeadows/vigil/internal/provider"
	"github.com/alanmeadows/vigil/internal/store"
)

func testConfig(t *testing.T, repos ...config.RepositoryConfig) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.DataDir = t.TempDir()
	cfg.Server.PollInterval = "10ms"
	cfg.Repositories = repos
	return &cfg
}

func newScheduler(cfg *config.Config) *Scheduler {
	return New(Options{
		Config:   cfg,
		Source:   provider.NewMockSource(),
		Oracle:   oracle.NewMock(),
		Notifier: notify.NewMock(),
		Store:    store.NewMemory(),
	})
}

func TestRunRequiresRepositories(t *testing.T) {
	s := newScheduler(testConfig(t))
	err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no repositories configured")
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t,
		config.RepositoryConfig{Owner: "acme", Repo: "widgets"},
		config.RepositoryConfig{Owner: "acme", Repo: "gadgets"},
	)
	s := newScheduler(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, s.Run(ctx), "cancellation is a clean shutdown, not an error")
}

func TestHeldLeaseSkipsOnlyThatRepository(t *testing.T) {
	cfg := testConfig(t,
		config.RepositoryConfig{Owner: "acme", Repo: "widgets"},
		config.RepositoryConfig{Owner: "acme", Repo: "gadgets"},
	)

	lease, err := store.AcquireLease(cfg.Server.DataDir, "acme/widgets")
	require.NoError(t, err)
	defer lease.Release()

	snapshots := store.NewMemory()
	s := New(Options{
		Config:   cfg,
		Source:   provider.NewMockSource(),
		Oracle:   oracle.NewMock(),
		Notifier: notify.NewMock(),
		Store:    snapshots,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	require.NoError(t, s.Run(ctx), "a held lease is not fatal to the scheduler")

	// The unlocked repository ran: its loop persisted a snapshot.
	st, err := snapshots.Load(context.Background(), "acme/gadgets")
	require.NoError(t, err)
	assert.NotNil(t, st)

	// The locked one never started.
	st, err = snapshots.Load(context.Background(), "acme/widgets")
	require.NoError(t, err)
	assert.Nil(t, st)
}
