package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var syncMonth string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Check the configured external calendars",
	Long: `Check that the external calendars are reachable and report how many
events they hold. Synced events live only for the run and are not written to
the local store; use "list --sync" to see them. The range is the chosen month
widened by sync.past_months and sync.future_months.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncMonth, "month", "", "centre the sync window on this month (YYYY-MM)")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, cliLogger(cmd))
	if err != nil {
		return err
	}
	ctrl := a.controller()
	if syncMonth != "" {
		first, err := parseMonth(syncMonth)
		if err != nil {
			return err
		}
		ctrl.GoTo(first)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Sync.Timeout)
	defer cancel()

	rng := ctrl.SyncRange()
	n, err := ctrl.Sync(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Synced %d events from %s (%s to %s)\n",
		n, a.providers.Name(), rng.From, rng.To)
	return nil
}
