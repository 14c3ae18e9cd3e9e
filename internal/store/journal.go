package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"github.com/alanmeadows/vigil/internal/state"
)

// Journal keeps one markdown document per escalation under a directory, so
// operators can read the escalation inbox without touching the database.
type Journal struct {
	dir string
}

// NewJournal creates a journal rooted at dir.
func NewJournal(dir string) *Journal {
	return &Journal{dir: dir}
}

// JournalEntry is the frontmatter of one escalation document.
type JournalEntry struct {
	ID             string    `yaml:"id"`
	Repository     string    `yaml:"repository"`
	PRNumber       int       `yaml:"pr_number"`
	CheckName      string    `yaml:"check"`
	Reason         string    `yaml:"reason"`
	Status         string    `yaml:"status"`
	MessageID      string    `yaml:"message_id,omitempty"`
	CreatedAt      time.Time `yaml:"created_at"`
	AcknowledgedBy string    `yaml:"acknowledged_by,omitempty"`
	Notes          string    `yaml:"notes,omitempty"`
}

// Record writes an escalation document. The body is free-form markdown
// shown to operators; the frontmatter is what vigil reads back.
func (j *Journal) Record(rec state.EscalationRecord, repository, body string) error {
	entry := JournalEntry{
		ID:         rec.ID,
		Repository: repository,
		PRNumber:   rec.PRNumber,
		CheckName:  rec.CheckName,
		Reason:     rec.Reason,
		Status:     string(rec.Status),
		MessageID:  rec.MessageID,
		CreatedAt:  rec.Timestamp,
	}
	return j.write(entry, body)
}

// Get returns the entry with the given id, or (nil, nil) when absent.
func (j *Journal) Get(id string) (*JournalEntry, error) {
	path := j.path(id)
	entry, _, err := readEntry(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

// List returns all journal entries, newest first.
func (j *Journal) List() ([]JournalEntry, error) {
	paths, err := filepath.Glob(filepath.Join(j.dir, "*.md"))
	if err != nil {
		return nil, err
	}

	var entries []JournalEntry
	for _, path := range paths {
		entry, _, err := readEntry(path)
		if err != nil {
			continue
		}
		entries = append(entries, *entry)
	}

	sort.Slice(entries, func(i, k int) bool {
		return entries[i].CreatedAt.After(entries[k].CreatedAt)
	})
	return entries, nil
}

// Acknowledge updates an entry's status and operator fields in place.
func (j *Journal) Acknowledge(id, user, notes string, status state.EscalationStatus) error {
	path := j.path(id)
	entry, body, err := readEntry(path)
	if err != nil {
		return fmt.Errorf("reading escalation %s: %w", id, err)
	}

	entry.Status = string(status)
	entry.AcknowledgedBy = user
	entry.Notes = notes
	return j.write(*entry, body)
}

func (j *Journal) path(id string) string {
	return filepath.Join(j.dir, id+".md")
}

func (j *Journal) write(entry JournalEntry, body string) error {
	if err := os.MkdirAll(j.dir, 0755); err != nil {
		return fmt.Errorf("creating journal directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	fm, err := yaml.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling journal frontmatter: %w", err)
	}
	buf.Write(fm)
	buf.WriteString("---\n\n")
	buf.WriteString(body)

	return atomicWriteFile(j.path(entry.ID), buf.Bytes(), 0644)
}

func readEntry(path string) (*JournalEntry, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}

	var entry JournalEntry
	body, err := frontmatter.Parse(strings.NewReader(string(data)), &entry)
	if err != nil {
		return nil, "", fmt.Errorf("parsing journal entry %s: %w", path, err)
	}
	return &entry, string(body), nil
}

// atomicWriteFile writes data to a temp file then renames it into place,
// preventing partial writes on crash or disk-full.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
