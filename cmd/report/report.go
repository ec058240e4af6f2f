// Package report provides the report command.
package report

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tphakala/phishguard/cmd/output"
	"github.com/tphakala/phishguard/internal/app"
	"github.com/tphakala/phishguard/internal/conf"
	"github.com/tphakala/phishguard/internal/errors"
)

// Command creates the report command.
func Command(ctx *conf.Context) *cobra.Command {
	var description, user string

	cmd := &cobra.Command{
		Use:   "report <url>",
		Short: "Record a URL as a user reported scam",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := output.New(cmd.OutOrStdout(), ctx.JSONOutput)
			return app.Run(cmd.Context(), ctx.Settings, ctx.Build, app.Options{}, func(a *app.App) error {
				result := a.Detector.Report(cmd.Context(), args[0], description, user)
				if err := p.Print(result, func(w io.Writer) {
					fmt.Fprintln(w, result.Message)
					if result.Success {
						fmt.Fprintf(w, "report id: %s\nurl hash:  %s\n", result.ReportID, result.URLHash)
					}
				}); err != nil {
					return err
				}
				if !result.Success {
					return errors.Newf("report was not recorded").
						Component("cmd").
						Category(errors.CategoryDatabase).
						Build()
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "What the scam claims or asks for")
	cmd.Flags().StringVar(&user, "user", "", "Reporter identifier")
	return cmd
}
