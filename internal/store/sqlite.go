package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alanmeadows/vigil/internal/state"
)

// snapshotVersion is bumped whenever the persisted shape changes in a way
// old snapshots cannot survive. Mismatched snapshots are discarded rather
// than trusted.
const snapshotVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	repository TEXT PRIMARY KEY,
	version    INTEGER NOT NULL,
	payload    TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	expires_at TIMESTAMP NOT NULL
);
`

// SQLite is the production snapshot store: one row per repository holding
// a versioned JSON snapshot with a TTL.
type SQLite struct {
	db  *sql.DB
	ttl time.Duration
}

// Open opens (and if needed creates) the snapshot database at path.
func Open(path string, ttl time.Duration) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &SQLite{db: db, ttl: ttl}, nil
}

// Load returns the snapshot for a repository, or (nil, nil) when there is
// nothing usable. Expired and version-mismatched rows are deleted with a
// warning so the engine starts clean.
func (s *SQLite) Load(ctx context.Context, repository string) (*state.RepositoryState, error) {
	var (
		version   int
		payload   string
		expiresAt time.Time
	)
	row := s.db.QueryRowContext(ctx,
		"SELECT version, payload, expires_at FROM snapshots WHERE repository = ?", repository)
	if err := row.Scan(&version, &payload, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading snapshot for %s: %w", repository, err)
	}

	if time.Now().After(expiresAt) {
		slog.Warn("discarding expired snapshot", "repository", repository, "expired_at", expiresAt)
		_ = s.Delete(ctx, repository)
		return nil, nil
	}
	if version != snapshotVersion {
		slog.Warn("discarding snapshot with incompatible version",
			"repository", repository, "found", version, "want", snapshotVersion)
		_ = s.Delete(ctx, repository)
		return nil, nil
	}

	var st state.RepositoryState
	if err := json.Unmarshal([]byte(payload), &st); err != nil {
		slog.Warn("discarding unreadable snapshot", "repository", repository, "error", err)
		_ = s.Delete(ctx, repository)
		return nil, nil
	}
	if st.ActivePRs == nil {
		st.ActivePRs = make(map[int]*state.PRState)
	}
	return &st, nil
}

// Save upserts the snapshot and refreshes its TTL.
func (s *SQLite) Save(ctx context.Context, st *state.RepositoryState) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshaling snapshot for %s: %w", st.Repository, err)
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (repository, version, payload, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(repository) DO UPDATE SET
			version = excluded.version,
			payload = excluded.payload,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at`,
		st.Repository, snapshotVersion, string(payload), now, now.Add(s.ttl))
	if err != nil {
		return fmt.Errorf("saving snapshot for %s: %w", st.Repository, err)
	}
	return nil
}

// Delete removes the snapshot for a repository.
func (s *SQLite) Delete(ctx context.Context, repository string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE repository = ?", repository); err != nil {
		return fmt.Errorf("deleting snapshot for %s: %w", repository, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Verify SQLite implements Store at compile time.
var _ Store = (*SQLite)(nil)
