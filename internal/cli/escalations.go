package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alanmeadows/vigil/internal/state"
	"github.com/alanmeadows/vigil/internal/store"
)

var escalationsCmd = &cobra.Command{
	Use:   "escalations",
	Short: "Inspect and acknowledge escalations",
	Long:  `List escalations raised by the watch loop and record human follow-up.`,
}

var (
	ackUserFlag    string
	ackNotesFlag   string
	ackResolveFlag bool
)

func init() {
	escalationsAckCmd.Flags().StringVar(&ackUserFlag, "user", "", "Who is acknowledging the escalation")
	escalationsAckCmd.Flags().StringVar(&ackNotesFlag, "notes", "", "Free-form notes about the follow-up")
	escalationsAckCmd.Flags().BoolVar(&ackResolveFlag, "resolve", false, "Mark the escalation resolved instead of acknowledged")

	escalationsCmd.AddCommand(escalationsListCmd)
	escalationsCmd.AddCommand(escalationsAckCmd)
}

func openJournal() *store.Journal {
	return store.NewJournal(filepath.Join(appConfig.Server.DataDir, "escalations"))
}

var escalationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List escalations, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := openJournal().List()
		if err != nil {
			return fmt.Errorf("reading escalation journal: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "no escalations recorded")
			return nil
		}

		for _, e := range entries {
			fmt.Fprintf(out, "%s  %-12s %s PR #%d  %s: %s\n",
				e.CreatedAt.Format("2006-01-02 15:04"), e.Status, e.Repository, e.PRNumber, e.CheckName, e.Reason)
			fmt.Fprintf(out, "  id: %s\n", e.ID)
			if e.AcknowledgedBy != "" {
				fmt.Fprintf(out, "  acked by: %s", e.AcknowledgedBy)
				if e.Notes != "" {
					fmt.Fprintf(out, " (%s)", e.Notes)
				}
				fmt.Fprintln(out)
			}
		}
		return nil
	},
}

var escalationsAckCmd = &cobra.Command{
	Use:   "ack <escalation-id>",
	Short: "Acknowledge or resolve an escalation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		journal := openJournal()

		entry, err := journal.Get(id)
		if err != nil {
			return fmt.Errorf("reading escalation %s: %w", id, err)
		}
		if entry == nil {
			return fmt.Errorf("no escalation with id %s", id)
		}

		status := state.EscalationAcknowledged
		if ackResolveFlag {
			status = state.EscalationResolved
		}

		if err := journal.Acknowledge(id, ackUserFlag, ackNotesFlag, status); err != nil {
			return err
		}

		// Mirror the status into the repository snapshot so the watch loop
		// and the journal agree. Best-effort: the journal is authoritative
		// for operator bookkeeping.
		if err := updateSnapshotEscalation(cmd, entry.Repository, id, status); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: snapshot not updated: %v\n", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "escalation %s marked %s\n", id, status)
		return nil
	},
}

func updateSnapshotEscalation(cmd *cobra.Command, repository, id string, status state.EscalationStatus) error {
	snapshots, err := store.Open(appConfig.Store.Path, appConfig.Store.ParseTTL())
	if err != nil {
		return err
	}
	defer snapshots.Close()

	ctx := cmd.Context()
	st, err := snapshots.Load(ctx, repository)
	if err != nil || st == nil {
		return err
	}

	for _, pr := range st.ActivePRs {
		for i := range pr.Escalations {
			if pr.Escalations[i].ID != id {
				continue
			}
			pr.Escalations[i].Status = status
			pr.Escalations[i].AcknowledgedBy = ackUserFlag
			pr.Escalations[i].Notes = ackNotesFlag
			return snapshots.Save(ctx, st)
		}
	}
	return nil
}
