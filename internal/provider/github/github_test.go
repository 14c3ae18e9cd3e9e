package github

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	gh "github.com/google/go-github/v82/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanmeadows/vigil/internal/provider"
)

// newTestSource creates a Source wired to a test HTTP server.
func newTestSource(t *testing.T, handler http.Handler) *Source {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := gh.NewClient(nil).WithEnterpriseURLs(server.URL+"/", server.URL+"/")
	require.NoError(t, err)

	return &Source{client: client}
}

func TestListOpenPRsFiltersByHeadBranch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/acme/widgets/pulls", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"number": 1, "title": "fix build", "head": {"ref": "feature/build", "sha": "abc"}, "base": {"ref": "main"}, "user": {"login": "alice"}},
			{"number": 2, "title": "docs", "head": {"ref": "docs-update", "sha": "def"}, "base": {"ref": "main"}, "user": {"login": "bob"}},
			{"number": 3, "title": "hotfix", "head": {"ref": "feature/login", "sha": "ghi"}, "base": {"ref": "main"}, "user": {"login": "carol"}}
		]`)
	})

	src := newTestSource(t, mux)

	prs, err := src.ListOpenPRs(t.Context(), "acme", "widgets", []string{"feature/*"})
	require.NoError(t, err)
	require.Len(t, prs, 2)
	assert.Equal(t, 1, prs[0].Number)
	assert.Equal(t, 3, prs[1].Number)
	assert.Equal(t, "alice", prs[0].Author)
	assert.Equal(t, "feature/build", prs[0].HeadBranch)
}

func TestGetChecksMergesRunsAndStatuses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/acme/widgets/pulls/7", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"number": 7, "head": {"ref": "main", "sha": "headsha"}}`)
	})
	mux.HandleFunc("/api/v3/repos/acme/widgets/commits/headsha/check-runs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"total_count": 2, "check_runs": [
			{"id": 10, "name": "tests", "status": "completed", "conclusion": "failure"},
			{"id": 11, "name": "lint", "status": "in_progress"}
		]}`)
	})
	mux.HandleFunc("/api/v3/repos/acme/widgets/commits/headsha/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"state": "failure", "statuses": [
			{"id": 20, "context": "tests", "state": "success"},
			{"id": 21, "context": "legacy-ci", "state": "failure"}
		]}`)
	})

	src := newTestSource(t, mux)

	checks, err := src.GetChecks(t.Context(), "acme", "widgets", 7)
	require.NoError(t, err)
	require.Len(t, checks, 3)

	// Check run wins over the commit status of the same name.
	assert.Equal(t, provider.CheckFailure, checks["tests"].Status)
	assert.Equal(t, provider.CheckPending, checks["lint"].Status)
	assert.Equal(t, provider.CheckFailure, checks["legacy-ci"].Status)
}

func TestGetCheckLogsAssemblesOutputAndAnnotations(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/acme/widgets/pulls/7", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"number": 7, "head": {"ref": "main", "sha": "headsha"}}`)
	})
	mux.HandleFunc("/api/v3/repos/acme/widgets/commits/headsha/check-runs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"total_count": 1, "check_runs": [
			{"id": 10, "name": "tests", "status": "completed", "conclusion": "failure",
			 "output": {"title": "2 tests failed", "summary": "TestFoo and TestBar failed"}}
		]}`)
	})
	mux.HandleFunc("/api/v3/repos/acme/widgets/check-runs/10/annotations", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"path": "foo_test.go", "start_line": 42, "message": "expected 1, got 2"}
		]`)
	})

	src := newTestSource(t, mux)

	logs, err := src.GetCheckLogs(t.Context(), "acme", "widgets", 7, "tests")
	require.NoError(t, err)
	assert.Contains(t, logs, "2 tests failed")
	assert.Contains(t, logs, "TestFoo and TestBar failed")
	assert.Contains(t, logs, "foo_test.go:42 - expected 1, got 2")
}

func TestMapCheckRunStatus(t *testing.T) {
	tests := []struct {
		status     string
		conclusion string
		want       provider.CheckStatus
	}{
		{"completed", "success", provider.CheckSuccess},
		{"completed", "failure", provider.CheckFailure},
		{"completed", "cancelled", provider.CheckCancelled},
		{"completed", "timed_out", provider.CheckError},
		{"completed", "neutral", provider.CheckError},
		{"queued", "", provider.CheckPending},
		{"in_progress", "", provider.CheckPending},
		{"waiting", "", provider.CheckError},
	}

	for _, tt := range tests {
		got := mapCheckRunStatus(tt.status, tt.conclusion)
		assert.Equal(t, tt.want, got, "status=%s conclusion=%s", tt.status, tt.conclusion)
	}
}

func TestMapCommitState(t *testing.T) {
	assert.Equal(t, provider.CheckSuccess, mapCommitState("success"))
	assert.Equal(t, provider.CheckPending, mapCommitState("pending"))
	assert.Equal(t, provider.CheckFailure, mapCommitState("failure"))
	assert.Equal(t, provider.CheckError, mapCommitState("error"))
}
