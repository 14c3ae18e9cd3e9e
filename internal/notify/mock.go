package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Mock is a test double for Notifier. With a nil Err it also serves as the
// --dry-run notifier: escalations are logged instead of delivered.
type Mock struct {
	mu   sync.Mutex
	Sent []Escalation
	Err  error
}

// NewMock creates an empty Mock notifier.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) SendEscalation(_ context.Context, esc Escalation) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.Sent = append(m.Sent, esc)
	slog.Info("escalation (mock)", "repository", esc.Repository, "pr", esc.PRNumber,
		"check", esc.CheckName, "reason", esc.Reason)
	return fmt.Sprintf("mock-message-%d", len(m.Sent)), nil
}

// SentCount returns how many escalations were delivered.
func (m *Mock) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// Verify Mock implements Notifier at compile time.
var _ Notifier = (*Mock)(nil)
