package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tidwall/jsonc"
	"github.com/tidwall/sjson"

	"github.com/alanmeadows/vigil/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage vigil configuration",
	Long:  `Show, modify, and validate vigil configuration values.`,
}

var configJSONFlag bool

func init() {
	configShowCmd.Flags().BoolVar(&configJSONFlag, "json", false, "Output raw JSON without formatting")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configValidateCmd)
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show merged configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Redact secrets before display.
		redacted := redactConfig(appConfig)

		var data []byte
		var err error
		if configJSONFlag {
			data, err = json.Marshal(redacted)
		} else {
			data, err = json.MarshalIndent(redacted, "", "  ")
		}
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

// redactConfig returns a copy of the config with secret fields masked.
func redactConfig(cfg *config.Config) *config.Config {
	copy := *cfg
	if copy.GitHub.Token != "" {
		copy.GitHub.Token = "***"
	}
	if copy.Telegram.BotToken != "" {
		copy.Telegram.BotToken = "***"
	}
	return &copy
}

// userConfigPath is where `config set` writes: the explicit --config file
// when given, otherwise the user-level config.
func userConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config directory: %w", err)
	}
	return filepath.Join(dir, "vigil", "vigil.jsonc"), nil
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value",
	Long: `Set a configuration value using a dotted key path.

The value is written to the --config file when given, otherwise to the
user-level config. The file is created if it does not exist.

Note: JSONC comments are not preserved on write.

Examples:
  vigil config set server.poll_interval "2m"
  vigil config set server.max_concurrent_fixes 3
  vigil config set oracle.model "claude-sonnet-4-20250514"
  vigil config set repositories.0.fix_limits.max_attempts 5`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		rawValue := args[1]

		// Determine value type: try bool, then number, then string
		var value any
		if b, err := strconv.ParseBool(rawValue); err == nil {
			value = b
		} else if i, err := strconv.ParseInt(rawValue, 10, 64); err == nil {
			value = i
		} else if f, err := strconv.ParseFloat(rawValue, 64); err == nil {
			value = f
		} else {
			value = rawValue
		}

		path, err := userConfigPath()
		if err != nil {
			return err
		}

		// Read existing file or start with empty JSON object
		var existing []byte
		if data, err := os.ReadFile(path); err == nil {
			// Strip JSONC comments before passing to sjson (which requires valid JSON).
			existing = jsonc.ToJSON(data)
		} else {
			existing = []byte("{}")
		}

		// Use sjson for in-place modification
		updated, err := sjson.SetBytes(existing, key, value)
		if err != nil {
			return fmt.Errorf("setting key %q: %w", key, err)
		}

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
		if err := os.WriteFile(path, updated, 0644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", key, value)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the merged configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		result := config.Validate(appConfig)

		out := cmd.OutOrStdout()
		for _, e := range result.Errors {
			fmt.Fprintf(out, "error: %s\n", e)
		}
		for _, w := range result.Warnings {
			fmt.Fprintf(out, "warning: %s\n", w)
		}

		if !result.Valid() {
			return fmt.Errorf("config has %d error(s)", len(result.Errors))
		}
		fmt.Fprintf(out, "config OK: %d repositories\n", len(appConfig.Repositories))
		return nil
	},
}
