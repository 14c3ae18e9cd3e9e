package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// Lease is an exclusive per-repository file lock. Exactly one watch loop
// may hold a repository's lease at a time; a second vigil process (or a
// second loop in the same process) fails fast instead of double-driving
// the same state.
type Lease struct {
	fl *flock.Flock
}

// AcquireLease takes the lock file for a repository under dir. Returns an
// error immediately when another holder exists.
func AcquireLease(dir, repository string) (*Lease, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	name := strings.ReplaceAll(repository, "/", "--") + ".lock"
	fl := flock.New(filepath.Join(dir, name))

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lease for %s: %w", repository, err)
	}
	if !locked {
		return nil, fmt.Errorf("repository %s is already being watched (lock held at %s)", repository, fl.Path())
	}

	return &Lease{fl: fl}, nil
}

// Release drops the lease.
func (l *Lease) Release() error {
	return l.fl.Unlock()
}
