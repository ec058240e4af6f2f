// Package seed provides the seed command.
package seed

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tphakala/phishguard/cmd/output"
	"github.com/tphakala/phishguard/internal/app"
	"github.com/tphakala/phishguard/internal/conf"
)

// Command creates the seed command.
func Command(ctx *conf.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the built-in list of known scam URLs",
		Long:  `Seed inserts the bundled known scam URLs. Running it again only bumps report counts.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := output.New(cmd.OutOrStdout(), ctx.JSONOutput)
			return app.Run(cmd.Context(), ctx.Settings, ctx.Build, app.Options{}, func(a *app.App) error {
				n, err := a.Detector.Seed(cmd.Context())
				if err != nil {
					return err
				}
				return p.Print(map[string]int{"seeded": n}, func(w io.Writer) {
					fmt.Fprintf(w, "seeded %d known scam URLs\n", n)
				})
			})
		},
	}
}
