package config

import "fmt"

// ValidationResult collects configuration problems without aborting on the
// first one, so operators see everything wrong in a single pass.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// Valid reports whether the configuration can be used as-is.
func (v ValidationResult) Valid() bool {
	return len(v.Errors) == 0
}

func (v *ValidationResult) errorf(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

func (v *ValidationResult) warnf(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

// Validate checks the configuration for hard errors (duplicate repositories,
// missing identifiers, missing credentials) and soft warnings (suspicious
// limits, escalation enabled without a notification channel).
func Validate(cfg *Config) ValidationResult {
	var result ValidationResult

	if len(cfg.Repositories) == 0 {
		result.errorf("no repositories configured")
	}

	if cfg.GitHub.Token == "" {
		result.errorf("no GitHub token configured (set github.token or GITHUB_TOKEN)")
	}

	seen := make(map[string]bool)
	for _, repo := range cfg.Repositories {
		key := repo.Key()
		if repo.Owner == "" || repo.Repo == "" {
			result.errorf("repository %q is missing owner or repo", key)
			continue
		}
		if seen[key] {
			result.errorf("duplicate repository: %s", key)
		}
		seen[key] = true

		if repo.FixLimits.EffectiveMaxAttempts() > 10 {
			result.warnf("repository %s has high max_attempts: %d", key, repo.FixLimits.MaxAttempts)
		}
		if repo.FixLimits.IsEscalationEnabled() && cfg.Telegram.BotToken == "" {
			result.warnf("repository %s has escalation enabled but no Telegram bot token is set", key)
		}
	}

	if cfg.Server.MaxConcurrentFixes > 20 {
		result.warnf("high max_concurrent_fixes: %d", cfg.Server.MaxConcurrentFixes)
	}

	return result
}
