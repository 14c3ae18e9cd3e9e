package cli

import (
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alanmeadows/vigil/internal/config"
	"github.com/alanmeadows/vigil/internal/notify"
	"github.com/alanmeadows/vigil/internal/oracle"
	"github.com/alanmeadows/vigil/internal/provider/github"
	"github.com/alanmeadows/vigil/internal/scheduler"
	"github.com/alanmeadows/vigil/internal/store"
)

var (
	pollIntervalFlag string
	maxFixesFlag     int
	dryRunFlag       bool
)

func init() {
	watchCmd.Flags().StringVar(&pollIntervalFlag, "poll-interval", "", "Override the poll interval (e.g. 2m, 300s)")
	watchCmd.Flags().IntVar(&maxFixesFlag, "max-concurrent-fixes", 0, "Override the concurrent fix limit")
	watchCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Log fixes and escalations instead of performing them")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch configured repositories for failing PR checks",
	Long: `Watch runs the control loop for every configured repository: poll open
PRs, detect failing checks, analyze and fix them through the LLM oracle,
and escalate what cannot be fixed. Runs until interrupted; state is
persisted so a restart resumes where the loop left off.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		if pollIntervalFlag != "" {
			cfg.Server.PollInterval = pollIntervalFlag
		}
		if maxFixesFlag > 0 {
			cfg.Server.MaxConcurrentFixes = maxFixesFlag
		}

		result := config.Validate(cfg)
		for _, w := range result.Warnings {
			slog.Warn("config warning", "warning", w)
		}
		if !result.Valid() {
			return fmt.Errorf("invalid config: %s", result.Errors[0])
		}

		snapshots, err := store.Open(cfg.Store.Path, cfg.Store.ParseTTL())
		if err != nil {
			return fmt.Errorf("opening snapshot store: %w", err)
		}
		defer snapshots.Close()

		journal := store.NewJournal(filepath.Join(cfg.Server.DataDir, "escalations"))

		var orc oracle.Oracle
		var notifier notify.Notifier
		if dryRunFlag {
			slog.Info("dry-run mode: fixes and escalations will be logged, not performed")
			orc = oracle.NewDryRun()
			notifier = notify.NewMock()
		} else {
			orc = oracle.NewCLI(cfg.Oracle.Command, cfg.Oracle.Model, cfg.Oracle.ParseTimeout())
			notifier = notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		}

		sched := scheduler.New(scheduler.Options{
			Config:   cfg,
			Source:   github.NewSource(cfg.GitHub.Token),
			Oracle:   orc,
			Notifier: notifier,
			Store:    snapshots,
			Journal:  journal,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		slog.Info("vigil starting", "repositories", len(cfg.Repositories), "dry_run", dryRunFlag)
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		slog.Info("vigil stopped")
		return nil
	},
}
