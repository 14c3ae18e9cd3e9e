package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONDirect(t *testing.T) {
	a, err := ParseJSON[Analysis](`{"fixable": true, "severity": "high", "confidence": 0.8}`)
	require.NoError(t, err)
	assert.True(t, a.Fixable)
	assert.Equal(t, "high", a.Severity)
	assert.InDelta(t, 0.8, a.Confidence, 1e-9)
}

func TestParseJSONStripsFences(t *testing.T) {
	raw := "Here is my verdict:\n```json\n{\"fixable\": false, \"analysis\": \"flaky infra\"}\n```\nLet me know if you need more."
	a, err := ParseJSON[Analysis](raw)
	require.NoError(t, err)
	assert.False(t, a.Fixable)
	assert.Equal(t, "flaky infra", a.Analysis)
}

func TestParseJSONExtractsEmbeddedObject(t *testing.T) {
	raw := `The fix worked. {"success": true, "summary": "bumped dep", "files_changed": ["go.mod"]} Done.`
	r, err := ParseJSON[FixResult](raw)
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.Equal(t, []string{"go.mod"}, r.FilesChanged)
}

func TestParseJSONRejectsGarbage(t *testing.T) {
	_, err := ParseJSON[Analysis]("I could not produce any structured output, sorry.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestBuildPromptsIncludeContext(t *testing.T) {
	req := Request{
		Repository:     "acme/widgets",
		PRNumber:       12,
		PRTitle:        "speed up parser",
		CheckName:      "unit-tests",
		FailureContext: "TestParse failed: unexpected EOF",
		ProjectContext: map[string]string{"language": "go", "test_framework": "testify"},
		Analysis:       &Analysis{Analysis: "off-by-one in lexer", SuggestedFix: "advance cursor"},
	}

	analyze := buildAnalyzePrompt(req)
	assert.Contains(t, analyze, "acme/widgets")
	assert.Contains(t, analyze, "unit-tests")
	assert.Contains(t, analyze, "TestParse failed")
	assert.Contains(t, analyze, "language: go")

	fix := buildFixPrompt(req)
	assert.Contains(t, fix, "off-by-one in lexer")
	assert.Contains(t, fix, "advance cursor")
	assert.Contains(t, fix, "files_changed")
}
