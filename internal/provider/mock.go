package provider

import (
	"context"
	"fmt"
	"sync"
)

// MockSource is a test double for PRSource.
type MockSource struct {
	mu sync.Mutex

	// OpenPRs is returned from ListOpenPRs after branch filtering.
	OpenPRs []PullRequest
	// Checks maps PR number to its check map.
	Checks map[int]map[string]Check
	// Logs maps "number/checkName" to distilled log output.
	Logs map[string]string

	ListErr   error
	ChecksErr error
	LogsErr   error

	// ChecksCalls counts GetChecks invocations per PR number.
	ChecksCalls map[int]int
}

// NewMockSource creates a MockSource with empty maps.
func NewMockSource() *MockSource {
	return &MockSource{
		Checks:      make(map[int]map[string]Check),
		Logs:        make(map[string]string),
		ChecksCalls: make(map[int]int),
	}
}

func (m *MockSource) ListOpenPRs(_ context.Context, _, _ string, branchFilter []string) ([]PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var out []PullRequest
	for _, pr := range m.OpenPRs {
		if MatchesBranch(pr.HeadBranch, branchFilter) {
			out = append(out, pr)
		}
	}
	return out, nil
}

func (m *MockSource) GetChecks(_ context.Context, _, _ string, number int) (map[string]Check, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ChecksErr != nil {
		return nil, m.ChecksErr
	}
	m.ChecksCalls[number]++
	checks := make(map[string]Check, len(m.Checks[number]))
	for name, c := range m.Checks[number] {
		checks[name] = c
	}
	return checks, nil
}

func (m *MockSource) GetCheckLogs(_ context.Context, _, _ string, number int, checkName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LogsErr != nil {
		return "", m.LogsErr
	}
	if logs, ok := m.Logs[fmt.Sprintf("%d/%s", number, checkName)]; ok {
		return logs, nil
	}
	return "no logs recorded", nil
}

// SetCheck sets a single check on a PR, creating the PR's check map if needed.
func (m *MockSource) SetCheck(number int, check Check) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Checks[number] == nil {
		m.Checks[number] = make(map[string]Check)
	}
	m.Checks[number][check.Name] = check
}

// Verify MockSource implements PRSource at compile time.
var _ PRSource = (*MockSource)(nil)
