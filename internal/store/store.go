// Package store persists repository watch state between runs: a snapshot
// store for the engine's aggregate, a per-repository lease lock, and a
// markdown journal of escalations for operators.
package store

import (
	"context"

	"github.com/alanmeadows/vigil/internal/state"
)

// Store persists repository snapshots. Load returns (nil, nil) when no
// usable snapshot exists: absent, expired, or from an incompatible version.
// The engine treats that as a fresh start.
type Store interface {
	Load(ctx context.Context, repository string) (*state.RepositoryState, error)
	Save(ctx context.Context, st *state.RepositoryState) error
	Delete(ctx context.Context, repository string) error
	Close() error
}
