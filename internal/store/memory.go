package store

import (
	"context"
	"sync"

	"github.com/alanmeadows/vigil/internal/state"
)

// Memory is an in-memory Store for tests. Snapshots are deep-cloned on the
// way in and out so callers cannot alias stored state.
type Memory struct {
	mu        sync.Mutex
	snapshots map[string]*state.RepositoryState
	SaveErr   error
	SaveCalls int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{snapshots: make(map[string]*state.RepositoryState)}
}

func (m *Memory) Load(_ context.Context, repository string) (*state.RepositoryState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.snapshots[repository]
	if !ok {
		return nil, nil
	}
	return st.Clone(), nil
}

func (m *Memory) Save(_ context.Context, st *state.RepositoryState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.SaveCalls++
	m.snapshots[st.Repository] = st.Clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, repository string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, repository)
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// Verify Memory implements Store at compile time.
var _ Store = (*Memory)(nil)
