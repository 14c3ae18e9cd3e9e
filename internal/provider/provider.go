package provider

import (
	"context"
	"time"
)

// PRSource is the read-side interface onto a pull request hosting service.
// Implementations handle provider-specific API calls for discovering open
// pull requests and inspecting their CI check results.
type PRSource interface {
	// ListOpenPRs returns open pull requests for the repository whose head
	// branch matches the filter. Filter entries may be exact branch names or
	// glob patterns (e.g. "release/*"); an empty filter matches everything.
	ListOpenPRs(ctx context.Context, owner, repo string, branchFilter []string) ([]PullRequest, error)

	// GetChecks returns the checks for the PR's current head commit, keyed
	// by check name. Check runs and legacy commit statuses are merged into
	// a single map; a commit status never shadows a check run of the same name.
	GetChecks(ctx context.Context, owner, repo string, number int) (map[string]Check, error)

	// GetCheckLogs returns distilled failure output for a named check on the
	// PR's head commit: the check's output summary plus its annotations.
	GetCheckLogs(ctx context.Context, owner, repo string, number int, checkName string) (string, error)
}

// CheckStatus is the normalized state of a CI check.
type CheckStatus string

const (
	CheckPending   CheckStatus = "pending"
	CheckSuccess   CheckStatus = "success"
	CheckFailure   CheckStatus = "failure"
	CheckError     CheckStatus = "error"
	CheckCancelled CheckStatus = "cancelled"
)

// PullRequest contains metadata about an open pull request.
type PullRequest struct {
	// Number is the PR number within the repository.
	Number int
	// Title is the pull request title.
	Title string
	// Author is the login of the PR author.
	Author string
	// HeadBranch is the branch being merged from.
	HeadBranch string
	// BaseBranch is the branch being merged into.
	BaseBranch string
	// HeadSHA is the current head commit of the PR.
	HeadSHA string
	// URL is the web URL to view the pull request.
	URL string
	// Draft indicates a draft PR.
	Draft bool
	// UpdatedAt is the provider's last-activity timestamp for the PR.
	UpdatedAt time.Time
}

// Check is one normalized CI check on a PR head commit.
type Check struct {
	// Name is the check run name or commit status context.
	Name string
	// Status is the normalized state.
	Status CheckStatus
	// RawStatus is the provider's status field (e.g. "completed", "queued").
	RawStatus string
	// RawConclusion is the provider's conclusion for completed checks.
	RawConclusion string
	// URL links to the check details.
	URL string
	// StartedAt and CompletedAt bound the check execution when known.
	StartedAt   time.Time
	CompletedAt time.Time
}
