package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alanmeadows/vigil/internal/config"
	"github.com/alanmeadows/vigil/internal/logging"
)

var (
	verbose    bool
	configPath string
	appConfig  *config.Config

	rootCmd = &cobra.Command{
		Use:   "vigil",
		Short: "LLM-assisted watcher for failing pull request checks",
		Long: `Vigil watches open pull requests across configured GitHub repositories,
analyzes failing CI checks with an LLM oracle, attempts automated fixes,
and escalates to a human when automation runs out of road.`,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a vigil.jsonc config file")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logging.Setup(verbose)

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		appConfig = cfg
		return nil
	}

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(escalationsCmd)
	rootCmd.AddCommand(statusCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
