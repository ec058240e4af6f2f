// Package search provides the search command.
package search

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tphakala/phishguard/cmd/output"
	"github.com/tphakala/phishguard/internal/app"
	"github.com/tphakala/phishguard/internal/conf"
	"github.com/tphakala/phishguard/internal/datastore"
)

// Command creates the search command.
func Command(ctx *conf.Context) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <domain>",
		Short: "List known threats whose domain contains the given text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := output.New(cmd.OutOrStdout(), ctx.JSONOutput)
			return app.Run(cmd.Context(), ctx.Settings, ctx.Build, app.Options{}, func(a *app.App) error {
				records, err := a.Detector.SearchByDomain(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
				return p.Print(records, func(w io.Writer) {
					if len(records) == 0 {
						fmt.Fprintln(w, "no matches")
						return
					}
					tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "DOMAIN\tTYPE\tSOURCE\tCONFIDENCE\tREPORTS\tURL")
					for i := range records {
						r := &records[i]
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
							r.Domain, r.ThreatType, r.Source, output.Percent(r.Confidence), r.ReportCount, r.OriginalURL)
					}
					_ = tw.Flush()
				})
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", datastore.DefaultSearchLimit, "Maximum number of results")
	return cmd
}
