package github

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	github_ratelimit "github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"golang.org/x/oauth2"

	"github.com/alanmeadows/vigil/internal/provider"
)

// Source implements provider.PRSource against the GitHub REST API.
type Source struct {
	client *gh.Client
}

// NewSource creates a GitHub source authenticated with the given token.
// Uses go-github-ratelimit middleware for automatic rate limit handling
// over an oauth2 static-token transport.
func NewSource(token string) *Source {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	base := oauth2.NewClient(context.Background(), ts)
	client := gh.NewClient(github_ratelimit.NewClient(base.Transport))
	return &Source{client: client}
}

// ListOpenPRs returns open pull requests whose head branch matches the filter.
func (s *Source) ListOpenPRs(ctx context.Context, owner, repo string, branchFilter []string) ([]provider.PullRequest, error) {
	var out []provider.PullRequest

	opts := &gh.PullRequestListOptions{
		State:       "open",
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	for {
		prs, resp, err := s.client.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list pull requests: %w", err)
		}
		for _, pr := range prs {
			if !provider.MatchesBranch(pr.GetHead().GetRef(), branchFilter) {
				continue
			}
			out = append(out, mapPR(pr))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return out, nil
}

// GetChecks returns the checks for the PR head commit, keyed by name.
// Queries both GitHub Check Runs and legacy Commit Statuses for a complete
// picture; a status never shadows a check run of the same name.
func (s *Source) GetChecks(ctx context.Context, owner, repo string, number int) (map[string]provider.Check, error) {
	headSHA, err := s.headSHA(ctx, owner, repo, number)
	if err != nil {
		return nil, err
	}

	checks := make(map[string]provider.Check)

	// Check runs (with pagination).
	checkOpts := &gh.ListCheckRunsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	for {
		result, resp, err := s.client.Checks.ListCheckRunsForRef(ctx, owner, repo, headSHA, checkOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to list check runs: %w", err)
		}
		for _, cr := range result.CheckRuns {
			checks[cr.GetName()] = provider.Check{
				Name:          cr.GetName(),
				Status:        mapCheckRunStatus(cr.GetStatus(), cr.GetConclusion()),
				RawStatus:     cr.GetStatus(),
				RawConclusion: cr.GetConclusion(),
				URL:           cr.GetHTMLURL(),
				StartedAt:     cr.GetStartedAt().Time,
				CompletedAt:   cr.GetCompletedAt().Time,
			}
		}
		if resp.NextPage == 0 {
			break
		}
		checkOpts.Page = resp.NextPage
	}

	// Combined commit status (legacy status API). Only fills names the
	// check-run API did not already report.
	combined, _, err := s.client.Repositories.GetCombinedStatus(ctx, owner, repo, headSHA, &gh.ListOptions{PerPage: 100})
	if err != nil {
		slog.Warn("failed to get combined status", "error", err)
	} else {
		for _, st := range combined.Statuses {
			name := st.GetContext()
			if _, exists := checks[name]; exists {
				continue
			}
			checks[name] = provider.Check{
				Name:          name,
				Status:        mapCommitState(st.GetState()),
				RawStatus:     "status",
				RawConclusion: st.GetState(),
				URL:           st.GetTargetURL(),
			}
		}
	}

	return checks, nil
}

// GetCheckLogs returns distilled failure output for one check: the check run's
// output title/summary/text plus its annotations as "file:line - message" lines.
func (s *Source) GetCheckLogs(ctx context.Context, owner, repo string, number int, checkName string) (string, error) {
	headSHA, err := s.headSHA(ctx, owner, repo, number)
	if err != nil {
		return "", err
	}

	run, err := s.findCheckRun(ctx, owner, repo, headSHA, checkName)
	if err != nil {
		return "", err
	}
	if run == nil {
		return fmt.Sprintf("No check run named %q on %s", checkName, headSHA), nil
	}

	var b strings.Builder
	if title := run.GetOutput().GetTitle(); title != "" {
		fmt.Fprintf(&b, "%s\n", title)
	}
	if summary := run.GetOutput().GetSummary(); summary != "" {
		fmt.Fprintf(&b, "%s\n", summary)
	}
	if text := run.GetOutput().GetText(); text != "" {
		fmt.Fprintf(&b, "%s\n", text)
	}

	annOpts := &gh.ListOptions{PerPage: 100}
	for {
		annotations, resp, err := s.client.Checks.ListCheckRunAnnotations(ctx, owner, repo, run.GetID(), annOpts)
		if err != nil {
			slog.Warn("failed to list check annotations", "check", checkName, "error", err)
			break
		}
		for _, a := range annotations {
			fmt.Fprintf(&b, "%s:%d - %s\n", a.GetPath(), a.GetStartLine(), a.GetMessage())
		}
		if resp.NextPage == 0 {
			break
		}
		annOpts.Page = resp.NextPage
	}

	out := b.String()
	if out == "" {
		return fmt.Sprintf("Check %q produced no output or annotations", checkName), nil
	}
	return out, nil
}

// --- Internal helpers ---

// headSHA resolves the current head commit of a PR.
func (s *Source) headSHA(ctx context.Context, owner, repo string, number int) (string, error) {
	pr, _, err := s.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return "", fmt.Errorf("failed to get PR #%d: %w", number, err)
	}
	sha := pr.GetHead().GetSHA()
	if sha == "" {
		return "", fmt.Errorf("PR #%d head SHA is empty", number)
	}
	return sha, nil
}

// findCheckRun locates a check run by name on a commit, or nil when absent.
func (s *Source) findCheckRun(ctx context.Context, owner, repo, sha, name string) (*gh.CheckRun, error) {
	opts := &gh.ListCheckRunsOptions{
		CheckName:   gh.Ptr(name),
		Filter:      gh.Ptr("latest"),
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	result, _, err := s.client.Checks.ListCheckRunsForRef(ctx, owner, repo, sha, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find check run %q: %w", name, err)
	}
	if len(result.CheckRuns) == 0 {
		return nil, nil
	}
	return result.CheckRuns[0], nil
}

// mapPR converts a GitHub PullRequest to the provider type.
func mapPR(pr *gh.PullRequest) provider.PullRequest {
	return provider.PullRequest{
		Number:     pr.GetNumber(),
		Title:      pr.GetTitle(),
		Author:     pr.GetUser().GetLogin(),
		HeadBranch: pr.GetHead().GetRef(),
		BaseBranch: pr.GetBase().GetRef(),
		HeadSHA:    pr.GetHead().GetSHA(),
		URL:        pr.GetHTMLURL(),
		Draft:      pr.GetDraft(),
		UpdatedAt:  pr.GetUpdatedAt().Time,
	}
}

// mapCheckRunStatus normalizes a check run's status/conclusion pair.
func mapCheckRunStatus(status, conclusion string) provider.CheckStatus {
	switch status {
	case "completed":
		switch conclusion {
		case "success":
			return provider.CheckSuccess
		case "failure":
			return provider.CheckFailure
		case "cancelled":
			return provider.CheckCancelled
		default:
			return provider.CheckError
		}
	case "queued", "in_progress":
		return provider.CheckPending
	default:
		return provider.CheckError
	}
}

// mapCommitState normalizes a legacy commit status state.
func mapCommitState(state string) provider.CheckStatus {
	switch state {
	case "success":
		return provider.CheckSuccess
	case "pending":
		return provider.CheckPending
	case "failure":
		return provider.CheckFailure
	default:
		return provider.CheckError
	}
}

// Verify Source implements PRSource at compile time.
var _ provider.PRSource = (*Source)(nil)
