package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"radiomon/internal/api"
	"radiomon/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var failures bool
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded device sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return fmt.Errorf("history is disabled in configuration")
			}
			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfg.History.Path); os.IsNotExist(err) {
				if asJSON {
					return writeJSON(cmd, []any{})
				}
				fmt.Fprintln(out, "No history recorded yet")
				return nil
			}

			store, err := history.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if failures {
				rows, err := store.Failures(cmd.Context(), limit)
				if err != nil {
					return err
				}
				infos := make([]api.FailureInfo, 0, len(rows))
				for _, f := range rows {
					infos = append(infos, api.FromFailure(f))
				}
				if asJSON {
					return writeJSON(cmd, infos)
				}
				printFailures(cmd, infos)
				return nil
			}

			sessions, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			now := time.Now()
			infos := make([]api.SessionInfo, 0, len(sessions))
			for _, s := range sessions {
				infos = append(infos, api.FromSession(s, now))
			}
			if asJSON {
				return writeJSON(cmd, infos)
			}
			printSessions(cmd, infos)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows to show (0 for all)")
	cmd.Flags().BoolVar(&failures, "failures", false, "Show failed and discarded open attempts instead of sessions")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output rows as JSON")
	return cmd
}

func printSessions(cmd *cobra.Command, sessions []api.SessionInfo) {
	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions recorded")
		return
	}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		ended := titleLabel(s.EndReason)
		if s.RemovedAt == "" {
			ended = "Active"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", s.ID),
			s.Device,
			dashIfEmpty(s.Model),
			formatDisplayTime(s.AddedAt),
			formatDisplayTime(s.RemovedAt),
			formatSeconds(s.DurationSec),
			ended,
		})
	}
	headers := []string{"ID", "Device", "Model", "Added", "Removed", "Duration", "End"}
	fmt.Fprint(out, renderTable(headers, rows, []columnAlignment{alignRight}))
}

func printFailures(cmd *cobra.Command, failures []api.FailureInfo) {
	out := cmd.OutOrStdout()
	if len(failures) == 0 {
		fmt.Fprintln(out, "No failed open attempts recorded")
		return
	}
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		outcome := "Failed"
		if f.Discarded {
			outcome = "Discarded"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", f.ID),
			f.Device,
			formatDisplayTime(f.OccurredAt),
			outcome,
			dashIfEmpty(f.Error),
		})
	}
	headers := []string{"ID", "Device", "When", "Outcome", "Error"}
	fmt.Fprint(out, renderTable(headers, rows, []columnAlignment{alignRight}))
}
