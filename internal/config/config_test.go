package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vigil.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Server.ParsePollInterval())
	assert.Equal(t, 5, cfg.Server.MaxConcurrentFixes)
	assert.Equal(t, "claude", cfg.Oracle.Command)
	assert.Equal(t, 15*time.Minute, cfg.Oracle.ParseTimeout())
	assert.Equal(t, 7*24*time.Hour, cfg.Store.ParseTTL())
	assert.NotEmpty(t, cfg.Store.Path, "store path derives from data dir")
}

func TestLoadMergesJSONC(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := writeConfig(t, `{
		// comments are allowed
		"server": {"poll_interval": "30s"},
		"repositories": [
			{
				"owner": "acme",
				"repo": "widgets",
				"branch_filter": ["main", "release/*"],
				"fix_limits": {"max_attempts": 2, "cooldown_hours": 6}
			}
		]
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Server.ParsePollInterval())
	require.Len(t, cfg.Repositories, 1)

	repo := cfg.Repositories[0]
	assert.Equal(t, "acme/widgets", repo.Key())
	assert.Equal(t, 2, repo.FixLimits.EffectiveMaxAttempts())
	assert.Equal(t, 6*time.Hour, repo.FixLimits.Cooldown())
	assert.True(t, repo.FixLimits.IsEscalationEnabled(), "escalation defaults on")
	assert.NotEmpty(t, repo.Priorities.CheckTypes, "default priorities fill in")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("GITHUB_TOKEN", "ghp_from_env")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tg_from_env")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")

	path := writeConfig(t, `{"github": {"token": "ghp_from_file"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ghp_from_env", cfg.GitHub.Token)
	assert.Equal(t, "tg_from_env", cfg.Telegram.BotToken)
	assert.Equal(t, "-100123", cfg.Telegram.ChatID)
}

func TestFixLimitsDefaults(t *testing.T) {
	var limits FixLimits
	assert.Equal(t, 3, limits.EffectiveMaxAttempts())
	assert.Equal(t, 24*time.Hour, limits.Cooldown())
	assert.True(t, limits.IsEscalationEnabled())

	off := FixLimits{EscalationEnabled: boolPtr(false)}
	assert.False(t, off.IsEscalationEnabled())
}

func TestValidateDuplicateRepositories(t *testing.T) {
	cfg := &Config{
		GitHub: GitHubConfig{Token: "tok"},
		Repositories: []RepositoryConfig{
			{Owner: "acme", Repo: "widgets"},
			{Owner: "acme", Repo: "widgets"},
		},
	}

	result := Validate(cfg)
	assert.False(t, result.Valid())
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "duplicate repository: acme/widgets")
}

func TestValidateWarnings(t *testing.T) {
	cfg := &Config{
		GitHub: GitHubConfig{Token: "tok"},
		Repositories: []RepositoryConfig{
			{Owner: "acme", Repo: "widgets", FixLimits: FixLimits{MaxAttempts: 20}},
		},
	}

	result := Validate(cfg)
	assert.True(t, result.Valid(), "warnings alone do not invalidate")
	assert.Contains(t, result.Warnings[0], "high max_attempts")
	// escalation enabled by default but no telegram token configured
	assert.Len(t, result.Warnings, 2)
}

func TestValidateMissingEssentials(t *testing.T) {
	result := Validate(&Config{})
	assert.False(t, result.Valid())
	assert.Len(t, result.Errors, 2) // no repositories, no token
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "data"), ExpandHome("~/data"))
	assert.Equal(t, "/var/lib/vigil", ExpandHome("/var/lib/vigil"))
}
