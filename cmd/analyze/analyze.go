// Package analyze provides the analyze command.
package analyze

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/phishguard/cmd/output"
	"github.com/tphakala/phishguard/internal/app"
	"github.com/tphakala/phishguard/internal/conf"
	"github.com/tphakala/phishguard/internal/detector"
	"github.com/tphakala/phishguard/internal/errors"
)

// ErrThreatFound is returned when --fail-on is set and a verdict reaches it.
var ErrThreatFound = errors.NewStd("threat at or above the --fail-on level found")

// Command creates the analyze command.
func Command(ctx *conf.Context) *cobra.Command {
	var (
		notify bool
		failOn string
	)

	cmd := &cobra.Command{
		Use:   "analyze <url>...",
		Short: "Score one or more URLs",
		Long: `Analyze runs every URL through the local threat store, URLhaus, PhishTank and the
offline heuristics, and prints one verdict per URL.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, err := parseLevel(failOn)
			if err != nil {
				return err
			}
			p := output.New(cmd.OutOrStdout(), ctx.JSONOutput)

			worst := detector.LevelUnknown
			err = app.Run(cmd.Context(), ctx.Settings, ctx.Build, app.Options{Notifiers: notify}, func(a *app.App) error {
				for _, raw := range args {
					v := a.Detector.Analyze(cmd.Context(), raw)
					if v.ThreatLevel.Rank() > worst.Rank() {
						worst = v.ThreatLevel
					}
					if err := p.Verdict(v); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			if threshold != "" && worst.AtLeast(threshold) {
				return ErrThreatFound
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&notify, "notify", false, "Send alerts and MQTT events for the verdicts")
	cmd.Flags().StringVar(&failOn, "fail-on", "", "Exit with status 2 when any verdict is at or above this level")
	return cmd
}

func parseLevel(s string) (detector.ThreatLevel, error) {
	if s == "" {
		return "", nil
	}
	level, ok := detector.ParseThreatLevel(s)
	if !ok || level == detector.LevelUnknown {
		return "", errors.Newf("invalid threat level %q, want one of safe, medium, high, critical", s).
			Component("cmd").
			Category(errors.CategoryValidation).
			Build()
	}
	return level, nil
}
