package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// CLI shells out to an agentic coding CLI (claude by default) for analysis
// and fixes. Each call runs under its own deadline; a deadline hit maps to
// ErrTimeout so the caller can record a timed-out attempt.
type CLI struct {
	command string
	model   string
	timeout time.Duration
}

// NewCLI creates a CLI oracle.
func NewCLI(command, model string, timeout time.Duration) *CLI {
	if command == "" {
		command = "claude"
	}
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	return &CLI{command: command, model: model, timeout: timeout}
}

// Analyze judges whether the failure is automatically fixable.
func (c *CLI) Analyze(ctx context.Context, req Request) (*Analysis, error) {
	out, err := c.run(ctx, req.RepositoryPath, buildAnalyzePrompt(req))
	if err != nil {
		return nil, err
	}

	analysis, err := ParseJSON[Analysis](out)
	if err != nil {
		return nil, fmt.Errorf("parsing analysis for %s: %w", req.CheckName, err)
	}
	return &analysis, nil
}

// Fix attempts to repair the failure in the repository working tree.
func (c *CLI) Fix(ctx context.Context, req Request) (*FixResult, error) {
	out, err := c.run(ctx, req.RepositoryPath, buildFixPrompt(req))
	if err != nil {
		return nil, err
	}

	result, err := ParseJSON[FixResult](out)
	if err != nil {
		return nil, fmt.Errorf("parsing fix result for %s: %w", req.CheckName, err)
	}
	return &result, nil
}

// run executes one CLI invocation in the given working directory.
func (c *CLI) run(ctx context.Context, dir, prompt string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := []string{"-p", prompt, "--output-format", "text"}
	if c.model != "" {
		args = append(args, "--model", c.model)
	}

	cmd := exec.CommandContext(runCtx, c.command, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	slog.Debug("oracle call finished", "command", c.command, "duration", time.Since(start), "error", err)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
	}
	if err != nil {
		return "", fmt.Errorf("oracle command failed: %w (stderr: %s)", err, truncate(stderr.String(), 500))
	}

	return stdout.String(), nil
}

func buildAnalyzePrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are analyzing a failing CI check on a pull request.\n\n")
	fmt.Fprintf(&b, "Repository: %s\nPR #%d: %s\nFailing check: %s\n\n", req.Repository, req.PRNumber, req.PRTitle, req.CheckName)
	writeProjectContext(&b, req.ProjectContext)
	fmt.Fprintf(&b, "Failure details:\n%s\n\n", req.FailureContext)
	b.WriteString(`Respond with ONLY a JSON object, no markdown fences:
{"fixable": bool, "severity": "low|medium|high|critical", "category": "tests|linting|build|security|infrastructure|other", "analysis": "what went wrong", "suggested_fix": "how to fix it", "confidence": 0.0-1.0}`)
	return b.String()
}

func buildFixPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fix the failing CI check %q on PR #%d (%s) in %s.\n\n", req.CheckName, req.PRNumber, req.PRTitle, req.Repository)
	writeProjectContext(&b, req.ProjectContext)
	if req.Analysis != nil {
		fmt.Fprintf(&b, "Prior analysis: %s\nSuggested fix: %s\n\n", req.Analysis.Analysis, req.Analysis.SuggestedFix)
	}
	fmt.Fprintf(&b, "Failure details:\n%s\n\n", req.FailureContext)
	b.WriteString(`Apply the fix directly in this working tree, commit it, and push to the PR branch.
When done, respond with ONLY a JSON object, no markdown fences:
{"success": bool, "summary": "what was changed", "files_changed": ["path", ...]}`)
	return b.String()
}

func writeProjectContext(b *strings.Builder, ctx map[string]string) {
	if len(ctx) == 0 {
		return
	}
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteString("Project context:\n")
	for _, k := range keys {
		fmt.Fprintf(b, "- %s: %s\n", k, ctx[k])
	}
	b.WriteString("\n")
}

// Verify CLI implements Oracle at compile time.
var _ Oracle = (*CLI)(nil)
