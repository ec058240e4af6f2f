// Package cmd builds the phishguard command tree.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/phishguard/cmd/analyze"
	"github.com/tphakala/phishguard/cmd/backup"
	"github.com/tphakala/phishguard/cmd/intel"
	"github.com/tphakala/phishguard/cmd/prune"
	"github.com/tphakala/phishguard/cmd/report"
	"github.com/tphakala/phishguard/cmd/search"
	"github.com/tphakala/phishguard/cmd/seed"
	"github.com/tphakala/phishguard/cmd/serve"
	"github.com/tphakala/phishguard/cmd/stats"
	"github.com/tphakala/phishguard/internal/conf"
	"github.com/tphakala/phishguard/internal/errors"
	"github.com/tphakala/phishguard/internal/logger"
	"github.com/tphakala/phishguard/internal/telemetry"
)

// RootCommand creates and returns the root command.
func RootCommand(ctx *conf.Context) *cobra.Command {
	var debug bool

	rootCmd := &cobra.Command{
		Use:           "phishguard",
		Short:         "PhishGuard URL threat scoring",
		Version:       ctx.Build.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.ConfigPath, "config", "c", "", "Path to config.yaml (default: search standard locations)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug output")
	rootCmd.PersistentFlags().BoolVar(&ctx.JSONOutput, "json", false, "Print results as JSON")

	rootCmd.AddCommand(
		analyze.Command(ctx),
		report.Command(ctx),
		stats.Command(ctx),
		search.Command(ctx),
		seed.Command(ctx),
		prune.Command(ctx),
		backup.Command(ctx),
		intel.Command(ctx),
		serve.Command(ctx),
	)

	rootCmd.PersistentPreRunE = func(*cobra.Command, []string) error {
		return initialize(ctx, debug)
	}
	rootCmd.PersistentPostRun = func(*cobra.Command, []string) {
		telemetry.Flush(telemetry.DefaultFlushTimeout)
		if err := logger.Global().Flush(); err != nil {
			conf.GetLogger().Debug("log flush failed", logger.Error(err))
		}
	}

	return rootCmd
}

// initialize loads settings and sets up logging and telemetry before any
// subcommand runs.
func initialize(ctx *conf.Context, debug bool) error {
	settings, err := conf.Load(ctx.ConfigPath)
	if err != nil {
		return errors.New(err).
			Component("cmd").
			Category(errors.CategoryConfiguration).
			Context("config_path", ctx.ConfigPath).
			Build()
	}
	if debug {
		settings.Debug = true
		settings.Logging.DefaultLevel = "debug"
	}
	ctx.Settings = settings

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return errors.New(err).
			Component("cmd").
			Category(errors.CategoryConfiguration).
			Context("operation", "logger_init").
			Build()
	}
	logger.SetGlobal(central)

	return telemetry.InitSentry(settings, ctx.Build)
}
