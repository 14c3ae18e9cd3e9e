// Package oracle is the boundary to the LLM that analyzes and repairs
// failing checks. The production implementation shells out to a CLI; the
// engine only ever sees the Oracle interface.
package oracle

import (
	"context"
	"errors"
)

// ErrTimeout is returned when an oracle call exceeded its deadline. Callers
// record the attempt as timed out rather than failed.
var ErrTimeout = errors.New("oracle call timed out")

// Request carries everything the oracle needs about one failing check.
type Request struct {
	// Repository is the "owner/repo" key.
	Repository string
	// PRNumber and PRTitle identify the pull request.
	PRNumber int
	PRTitle  string
	// CheckName is the failing check.
	CheckName string
	// FailureContext is the assembled check metadata and distilled logs.
	FailureContext string
	// RepositoryPath is the local working tree the oracle may modify.
	RepositoryPath string
	// ProjectContext is free-form repo metadata (language, test framework).
	ProjectContext map[string]string
	// Analysis carries the prior analysis verdict on fix calls.
	Analysis *Analysis
}

// Analysis is the oracle's verdict on one failing check.
type Analysis struct {
	Fixable      bool    `json:"fixable"`
	Severity     string  `json:"severity"`
	Category     string  `json:"category"`
	Analysis     string  `json:"analysis"`
	SuggestedFix string  `json:"suggested_fix"`
	Confidence   float64 `json:"confidence"`
}

// FixResult is the oracle's report after attempting a repair.
type FixResult struct {
	Success      bool     `json:"success"`
	Summary      string   `json:"summary"`
	FilesChanged []string `json:"files_changed"`
}

// Oracle analyzes failing checks and attempts repairs.
type Oracle interface {
	// Analyze judges whether the failure is automatically fixable.
	Analyze(ctx context.Context, req Request) (*Analysis, error)

	// Fix attempts to repair the failure in the repository working tree.
	Fix(ctx context.Context, req Request) (*FixResult, error)
}
