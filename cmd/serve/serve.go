// Package serve provides the serve command that runs the HTTP API.
package serve

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/phishguard/internal/api"
	"github.com/tphakala/phishguard/internal/app"
	"github.com/tphakala/phishguard/internal/conf"
	"github.com/tphakala/phishguard/internal/logger"
)

// Command creates the serve command.
func Command(ctx *conf.Context) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the threat scoring HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := ctx.Settings
			if listen != "" {
				settings.WebServer.Listen = listen
			}

			return app.Run(cmd.Context(), settings, ctx.Build, app.Options{Notifiers: true}, func(a *app.App) error {
				server, err := api.New(api.ConfigFromSettings(settings), a.Detector, a.Store, a.URLhaus,
					api.WithMetrics(a.Metrics),
					api.WithRetentionDays(settings.Retention.Days))
				if err != nil {
					return err
				}

				logger.Global().Module("serve").Info("starting api server",
					logger.String("listen", settings.WebServer.Listen),
					logger.String("version", ctx.Build.GetVersion()),
					logger.Bool("urlhaus_configured", a.URLhaus.Configured()),
					logger.Bool("admin_token", settings.WebServer.APIToken != ""))

				return server.Run(cmd.Context())
			})
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (overrides webserver.listen)")
	return cmd
}
