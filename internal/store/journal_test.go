package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanmeadows/vigil/internal/state"
)

func testRecord(id string, created time.Time) state.EscalationRecord {
	return state.EscalationRecord{
		ID:        id,
		PRNumber:  7,
		CheckName: "tests",
		Reason:    "maximum fix attempts (3) exhausted",
		Timestamp: created,
		Status:    state.EscalationNotified,
		MessageID: "4242",
	}
}

func TestJournalRecordAndGet(t *testing.T) {
	j := NewJournal(t.TempDir())
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, j.Record(testRecord("esc-1", now), "acme/widgets", "PR #7 needs a human.\n"))

	entry, err := j.Get("esc-1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "acme/widgets", entry.Repository)
	assert.Equal(t, 7, entry.PRNumber)
	assert.Equal(t, string(state.EscalationNotified), entry.Status)
	assert.Equal(t, "tests", entry.CheckName)
	assert.Equal(t, "4242", entry.MessageID)
	assert.True(t, entry.CreatedAt.Equal(now))
}

func TestJournalGetMissing(t *testing.T) {
	j := NewJournal(t.TempDir())
	entry, err := j.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestJournalListNewestFirst(t *testing.T) {
	j := NewJournal(t.TempDir())
	base := time.Now().UTC()

	require.NoError(t, j.Record(testRecord("esc-old", base.Add(-2*time.Hour)), "acme/widgets", "old"))
	require.NoError(t, j.Record(testRecord("esc-new", base), "acme/widgets", "new"))

	entries, err := j.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "esc-new", entries[0].ID)
	assert.Equal(t, "esc-old", entries[1].ID)
}

func TestJournalAcknowledge(t *testing.T) {
	j := NewJournal(t.TempDir())
	require.NoError(t, j.Record(testRecord("esc-1", time.Now()), "acme/widgets", "body"))

	require.NoError(t, j.Acknowledge("esc-1", "alice", "looking into it", state.EscalationAcknowledged))

	entry, err := j.Get("esc-1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, string(state.EscalationAcknowledged), entry.Status)
	assert.Equal(t, "alice", entry.AcknowledgedBy)
	assert.Equal(t, "looking into it", entry.Notes)
}
