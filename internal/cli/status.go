package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alanmeadows/vigil/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted state of each watched repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		snapshots, err := store.Open(appConfig.Store.Path, appConfig.Store.ParseTTL())
		if err != nil {
			return fmt.Errorf("opening snapshot store: %w", err)
		}
		defer snapshots.Close()

		out := cmd.OutOrStdout()
		for _, repo := range appConfig.Repositories {
			st, err := snapshots.Load(cmd.Context(), repo.Key())
			if err != nil {
				return fmt.Errorf("loading snapshot for %s: %w", repo.Key(), err)
			}
			if st == nil {
				fmt.Fprintf(out, "%s: no state recorded\n", repo.Key())
				continue
			}

			fmt.Fprintf(out, "%s: step=%s active_prs=%d\n", st.Repository, st.Step, len(st.ActivePRs))
			if !st.LastPollTime.IsZero() {
				fmt.Fprintf(out, "  last poll: %s\n", st.LastPollTime.Format("2006-01-02 15:04:05"))
			}
			if st.ConsecutiveErrors > 0 {
				fmt.Fprintf(out, "  consecutive errors: %d (last: %s)\n", st.ConsecutiveErrors, st.LastError)
			}
			fmt.Fprintf(out, "  processed=%d fixes=%d/%d escalations=%d\n",
				st.Stats.PRsProcessed, st.Stats.FixesSucceeded, st.Stats.FixesAttempted, st.Stats.Escalations)

			for num, pr := range st.ActivePRs {
				if len(pr.FailedChecks) == 0 {
					continue
				}
				fmt.Fprintf(out, "  PR #%d (%s): failing %v\n", num, pr.Phase, pr.FailedChecks)
			}
		}
		return nil
	},
}
