package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesBranch(t *testing.T) {
	tests := []struct {
		branch string
		filter []string
		want   bool
	}{
		{"main", nil, true},
		{"main", []string{"main", "develop"}, true},
		{"develop", []string{"main", "develop"}, true},
		{"feature/x", []string{"main", "develop"}, false},
		{"release/v2", []string{"release/*"}, true},
		{"release/v2/hotfix", []string{"release/*"}, false},
		{"feature-login", []string{"feature-*"}, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchesBranch(tt.branch, tt.filter),
			"branch=%s filter=%v", tt.branch, tt.filter)
	}
}
