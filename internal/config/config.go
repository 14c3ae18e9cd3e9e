package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/tidwall/jsonc"
)

// Load reads and merges configuration from the user-level JSONC file and an
// optional explicit config path. Resolution order: defaults → user config
// (~/.config/vigil/vigil.jsonc) → deep-merged with the explicit file →
// environment overrides for secrets.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Load user-level config
	userDir, err := os.UserConfigDir()
	if err == nil {
		userPath := filepath.Join(userDir, "vigil", "vigil.jsonc")
		if userMap, err := loadJSONC(userPath); err == nil {
			if err := mergeIntoConfig(&cfg, userMap); err != nil {
				return nil, fmt.Errorf("merging user config: %w", err)
			}
		}
	}

	// Load explicit config file
	if path != "" {
		m, err := loadJSONC(path)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
		if err := mergeIntoConfig(&cfg, m); err != nil {
			return nil, fmt.Errorf("merging config %s: %w", path, err)
		}
	}

	// Environment variable overrides
	applyEnvOverrides(&cfg)

	normalize(&cfg)

	return &cfg, nil
}

// loadJSONC reads a JSONC file and returns it as a map.
func loadJSONC(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	jsonData := jsonc.ToJSON(data)
	var m map[string]any
	if err := json.Unmarshal(jsonData, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

// mergeIntoConfig marshals the config to a map, deep-merges the source map over it,
// then unmarshals back to the Config struct.
func mergeIntoConfig(cfg *Config, src map[string]any) error {
	// Marshal current config to map
	cfgBytes, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	var dst map[string]any
	if err := json.Unmarshal(cfgBytes, &dst); err != nil {
		return err
	}

	// Deep merge: src overrides dst
	if err := mergo.Merge(&dst, src, mergo.WithOverride); err != nil {
		return err
	}

	// Unmarshal merged map back to Config
	merged, err := json.Marshal(dst)
	if err != nil {
		return err
	}
	return json.Unmarshal(merged, cfg)
}

// applyEnvOverrides applies environment variable overrides to the config.
// Secrets come from the environment so config files can be committed.
func applyEnvOverrides(cfg *Config) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.GitHub.Token = token
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Telegram.BotToken = token
	}
	if chat := os.Getenv("TELEGRAM_CHAT_ID"); chat != "" {
		cfg.Telegram.ChatID = chat
	}
}

// normalize fills derived and defaulted fields after merging.
func normalize(cfg *Config) {
	cfg.Server.DataDir = ExpandHome(cfg.Server.DataDir)
	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(cfg.Server.DataDir, "vigil.db")
	} else {
		cfg.Store.Path = ExpandHome(cfg.Store.Path)
	}
	for i := range cfg.Repositories {
		repo := &cfg.Repositories[i]
		repo.RepositoryPath = ExpandHome(repo.RepositoryPath)
		if len(repo.Priorities.CheckTypes) == 0 && len(repo.Priorities.Branches) == 0 {
			repo.Priorities = DefaultPriorities()
		}
	}
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
