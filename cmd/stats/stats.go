// Package stats provides the stats command.
package stats

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/tphakala/phishguard/cmd/output"
	"github.com/tphakala/phishguard/internal/app"
	"github.com/tphakala/phishguard/internal/conf"
)

// Command creates the stats command.
func Command(ctx *conf.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show threat store statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := output.New(cmd.OutOrStdout(), ctx.JSONOutput)
			return app.Run(cmd.Context(), ctx.Settings, ctx.Build, app.Options{}, func(a *app.App) error {
				s, err := a.Detector.Stats(cmd.Context())
				if err != nil {
					return err
				}
				return p.Print(s, func(w io.Writer) {
					fmt.Fprintf(w, "known scam URLs:        %d\n", s.TotalScamURLs)
					fmt.Fprintf(w, "detections (24h):       %d\n", s.RecentDetections24h)
					fmt.Fprintf(w, "pending user reports:   %d\n", s.PendingUserReports)
					if len(s.BySource) > 0 {
						fmt.Fprintln(w, "by source:")
						for _, source := range slices.Sorted(maps.Keys(s.BySource)) {
							fmt.Fprintf(w, "  %-20s %d\n", source, s.BySource[source])
						}
					}
				})
			})
		},
	}
}
