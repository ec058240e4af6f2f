// Package prune provides the prune command.
package prune

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tphakala/phishguard/cmd/output"
	"github.com/tphakala/phishguard/internal/app"
	"github.com/tphakala/phishguard/internal/conf"
	"github.com/tphakala/phishguard/internal/datastore"
)

// Command creates the prune command.
func Command(ctx *conf.Context) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete detection history older than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("days") {
				days = ctx.Settings.Retention.Days
			}
			olderThan, err := datastore.RetentionPeriod(days)
			if err != nil {
				return err
			}

			p := output.New(cmd.OutOrStdout(), ctx.JSONOutput)
			return app.Run(cmd.Context(), ctx.Settings, ctx.Build, app.Options{}, func(a *app.App) error {
				deleted, err := a.Store.PruneDetections(cmd.Context(), olderThan)
				if err != nil {
					return err
				}
				result := map[string]int64{"deleted": deleted, "days": int64(days)}
				return p.Print(result, func(w io.Writer) {
					fmt.Fprintf(w, "deleted %d detection events older than %d days\n", deleted, days)
				})
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Retention in days (default: retention.days from config)")
	return cmd
}
