package config

import "time"

// Config is the top-level vigil configuration.
type Config struct {
	Server       ServerConfig       `json:"server"`
	GitHub       GitHubConfig       `json:"github"`
	Oracle       OracleConfig       `json:"oracle"`
	Telegram     TelegramConfig     `json:"telegram"`
	Store        StoreConfig        `json:"store"`
	Repositories []RepositoryConfig `json:"repositories"`
}

// ServerConfig holds daemon settings.
type ServerConfig struct {
	PollInterval       string `json:"poll_interval"`
	MaxConcurrentFixes int    `json:"max_concurrent_fixes"`
	DataDir            string `json:"data_dir"`
}

// ParsePollInterval returns the poll interval as a time.Duration.
func (s ServerConfig) ParsePollInterval() time.Duration {
	d, err := time.ParseDuration(s.PollInterval)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// GitHubConfig holds GitHub API credentials.
type GitHubConfig struct {
	Token string `json:"token"`
}

// OracleConfig controls the fix-oracle CLI invocation.
type OracleConfig struct {
	Command string `json:"command"`
	Model   string `json:"model"`
	Timeout string `json:"timeout"`
}

// ParseTimeout returns the per-call oracle timeout as a time.Duration.
func (o OracleConfig) ParseTimeout() time.Duration {
	d, err := time.ParseDuration(o.Timeout)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// TelegramConfig holds Telegram Bot API credentials for escalations.
type TelegramConfig struct {
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

// StoreConfig holds snapshot store settings.
type StoreConfig struct {
	Path string `json:"path"`
	TTL  string `json:"ttl"`
}

// ParseTTL returns the snapshot retention as a time.Duration.
func (s StoreConfig) ParseTTL() time.Duration {
	d, err := time.ParseDuration(s.TTL)
	if err != nil || d <= 0 {
		return 7 * 24 * time.Hour
	}
	return d
}

// RepositoryConfig defines a watched repository.
type RepositoryConfig struct {
	Owner          string            `json:"owner"`
	Repo           string            `json:"repo"`
	BranchFilter   []string          `json:"branch_filter"`
	RepositoryPath string            `json:"repository_path"`
	ProjectContext map[string]string `json:"project_context,omitempty"`
	FixLimits      FixLimits         `json:"fix_limits"`
	Priorities     Priorities        `json:"priorities"`
	Notifications  RepoNotifications `json:"notifications"`
}

// Key returns the canonical "owner/repo" identifier.
func (r RepositoryConfig) Key() string {
	return r.Owner + "/" + r.Repo
}

// FixLimits bounds automated fixing for one repository.
type FixLimits struct {
	MaxAttempts       int     `json:"max_attempts"`
	CooldownHours     float64 `json:"cooldown_hours"`
	EscalationEnabled *bool   `json:"escalation_enabled"`
}

// EffectiveMaxAttempts returns the configured attempt cap, defaulting to 3.
func (f FixLimits) EffectiveMaxAttempts() int {
	if f.MaxAttempts <= 0 {
		return 3
	}
	return f.MaxAttempts
}

// Cooldown returns the escalation cooldown window, defaulting to 24 hours.
func (f FixLimits) Cooldown() time.Duration {
	if f.CooldownHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(f.CooldownHours * float64(time.Hour))
}

// IsEscalationEnabled returns whether exhausted failures are escalated.
// Defaults to true when not explicitly set.
func (f FixLimits) IsEscalationEnabled() bool {
	if f.EscalationEnabled == nil {
		return true
	}
	return *f.EscalationEnabled
}

// Priorities controls how failed checks are ordered before analysis.
type Priorities struct {
	// CheckTypes is an ordered list: the first keyword that matches the
	// check name (case-insensitive substring) supplies the score. JSON
	// objects do not preserve key order, so this is a list on purpose.
	CheckTypes []CheckTypeWeight  `json:"check_types"`
	Branches   map[string]float64 `json:"branch_priority"`
}

// CheckTypeWeight binds a check-name keyword to a priority score.
// Lower scores are handled first.
type CheckTypeWeight struct {
	Keyword string  `json:"keyword"`
	Weight  float64 `json:"weight"`
}

// RepoNotifications holds per-repository escalation routing.
type RepoNotifications struct {
	TelegramChannel    string   `json:"telegram_channel"`
	EscalationMentions []string `json:"escalation_mentions"`
}

// boolPtr returns a pointer to the given bool value.
func boolPtr(b bool) *bool {
	return &b
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			PollInterval:       "5m",
			MaxConcurrentFixes: 5,
			DataDir:            "~/.local/share/vigil",
		},
		Oracle: OracleConfig{
			Command: "claude",
			Timeout: "15m",
		},
		Store: StoreConfig{
			TTL: "168h",
		},
	}
}

// DefaultPriorities returns the priority scheme used when a repository
// does not configure its own.
func DefaultPriorities() Priorities {
	return Priorities{
		CheckTypes: []CheckTypeWeight{
			{Keyword: "security", Weight: 1},
			{Keyword: "tests", Weight: 2},
			{Keyword: "linting", Weight: 3},
			{Keyword: "ci", Weight: 4},
		},
		Branches: map[string]float64{
			"main":    1,
			"develop": 2,
		},
	}
}
