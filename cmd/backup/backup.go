// Package backup provides the backup command.
package backup

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/phishguard/cmd/output"
	"github.com/tphakala/phishguard/internal/app"
	"github.com/tphakala/phishguard/internal/conf"
)

const backupTimeout = 10 * time.Minute

// Command creates the backup command.
func Command(ctx *conf.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "backup [dest]",
		Short: "Write a consistent copy of the SQLite threat store",
		Long: `Backup copies the SQLite database with VACUUM INTO. dest may be a file or a directory;
by default a timestamped file is written to the current directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := ""
			if len(args) == 1 {
				dest = args[0]
			}
			p := output.New(cmd.OutOrStdout(), ctx.JSONOutput)
			return app.Run(cmd.Context(), ctx.Settings, ctx.Build, app.Options{}, func(a *app.App) error {
				backupCtx, cancel := context.WithTimeout(cmd.Context(), backupTimeout)
				defer cancel()

				path, err := a.Store.Backup(backupCtx, dest)
				if err != nil {
					return err
				}
				return p.Print(map[string]string{"path": path}, func(w io.Writer) {
					fmt.Fprintf(w, "backup written to %s\n", path)
				})
			})
		},
	}
}
