package cli

import (
	"fmt"

	"github.com/akolanti/GoIngest/internal/app"
	"github.com/spf13/cobra"
)

func newReconcileCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Re-send status reports that failed during ingestion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				sweeper, err := a.NewSweeper()
				if err != nil {
					return err
				}
				sent, err := sweeper.Sweep(cmd.Context())
				if err != nil {
					return fmt.Errorf("reconcile: %w", err)
				}
				printf(cmd.OutOrStdout(), "Reported %d pending runs\n", sent)
				return nil
			})
		},
	}
}
