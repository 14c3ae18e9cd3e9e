package oracle

import (
	"context"
	"sync"
)

// Mock is a test double for Oracle.
type Mock struct {
	mu sync.Mutex

	// AnalyzeResults maps check name to a canned analysis.
	AnalyzeResults map[string]*Analysis
	// FixResults maps check name to a canned fix result.
	FixResults map[string]*FixResult

	DefaultAnalysis *Analysis
	DefaultFix      *FixResult

	AnalyzeErr error
	FixErr     error

	AnalyzeCalls []Request
	FixCalls     []Request
}

// NewMock creates a Mock with empty result maps.
func NewMock() *Mock {
	return &Mock{
		AnalyzeResults: make(map[string]*Analysis),
		FixResults:     make(map[string]*FixResult),
	}
}

// NewDryRun returns a Mock with the deterministic responses used by
// --dry-run: everything is fixable and every fix succeeds, so the full
// loop can be exercised without touching an LLM or a working tree.
func NewDryRun() *Mock {
	m := NewMock()
	m.DefaultAnalysis = &Analysis{
		Fixable:      true,
		Severity:     "medium",
		Category:     "tests",
		Analysis:     "dry-run analysis",
		SuggestedFix: "dry-run fix",
		Confidence:   0.9,
	}
	m.DefaultFix = &FixResult{
		Success: true,
		Summary: "dry-run fix applied",
	}
	return m
}

func (m *Mock) Analyze(_ context.Context, req Request) (*Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AnalyzeErr != nil {
		return nil, m.AnalyzeErr
	}
	m.AnalyzeCalls = append(m.AnalyzeCalls, req)
	if a, ok := m.AnalyzeResults[req.CheckName]; ok {
		cp := *a
		return &cp, nil
	}
	if m.DefaultAnalysis != nil {
		cp := *m.DefaultAnalysis
		return &cp, nil
	}
	return &Analysis{Fixable: false, Analysis: "no canned analysis"}, nil
}

func (m *Mock) Fix(_ context.Context, req Request) (*FixResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FixErr != nil {
		return nil, m.FixErr
	}
	m.FixCalls = append(m.FixCalls, req)
	if r, ok := m.FixResults[req.CheckName]; ok {
		cp := *r
		return &cp, nil
	}
	if m.DefaultFix != nil {
		cp := *m.DefaultFix
		return &cp, nil
	}
	return &FixResult{Success: false, Summary: "no canned fix"}, nil
}

// SetAnalysis pre-sets the analysis for a check name.
func (m *Mock) SetAnalysis(checkName string, a *Analysis) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AnalyzeResults[checkName] = a
}

// SetFix pre-sets the fix result for a check name.
func (m *Mock) SetFix(checkName string, r *FixResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FixResults[checkName] = r
}

// FixCallCount returns how many Fix calls the mock has seen.
func (m *Mock) FixCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.FixCalls)
}

// Verify Mock implements Oracle at compile time.
var _ Oracle = (*Mock)(nil)
