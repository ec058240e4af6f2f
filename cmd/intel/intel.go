// Package intel provides the intel command group for browsing URLhaus data.
package intel

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tphakala/phishguard/cmd/output"
	"github.com/tphakala/phishguard/internal/app"
	"github.com/tphakala/phishguard/internal/conf"
	"github.com/tphakala/phishguard/internal/errors"
	"github.com/tphakala/phishguard/internal/normalize"
	"github.com/tphakala/phishguard/internal/urlhaus"
)

const defaultRecentLimit = 20

// Command creates the intel command group.
func Command(ctx *conf.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intel",
		Short: "Query the URLhaus threat feed",
	}
	cmd.AddCommand(summaryCommand(ctx), recentCommand(ctx), tagCommand(ctx), hostCommand(ctx))
	return cmd
}

// withClient runs fn with a configured URLhaus client.
func withClient(cmd *cobra.Command, ctx *conf.Context, fn func(context.Context, *urlhaus.Client, *output.Printer) error) error {
	p := output.New(cmd.OutOrStdout(), ctx.JSONOutput)
	return app.Run(cmd.Context(), ctx.Settings, ctx.Build, app.Options{}, func(a *app.App) error {
		if !a.URLhaus.Configured() {
			return errors.New(urlhaus.ErrNotConfigured).
				Component("cmd").
				Category(errors.CategoryConfiguration).
				Context("setting", "urlhaus.authkey").
				Build()
		}
		return fn(cmd.Context(), a.URLhaus, p)
	})
}

func summaryCommand(ctx *conf.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Summarize recent threats, domains and tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, ctx, func(c context.Context, client *urlhaus.Client, p *output.Printer) error {
				s, err := client.IntelligenceSummary(c)
				if err != nil {
					return err
				}
				return p.Print(s, func(w io.Writer) {
					fmt.Fprintf(w, "recent urls: %d  payloads: %d  domains: %d  tags: %d\n",
						s.Stats.RecentURLs, s.Stats.RecentPayloads, s.Stats.UniqueDomains, s.Stats.UniqueTags)
					printCounts(w, "threats", s.Threats)
					printCounts(w, "top domains", s.TopDomains)
					printCounts(w, "top tags", s.TopTags)
					printCounts(w, "file types", s.FileTypes)
					printCounts(w, "signatures", s.Signatures)
				})
			})
		},
	}
}

func printCounts(w io.Writer, title string, counts []urlhaus.Count) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, c := range counts {
		fmt.Fprintf(w, "  %-40s %d\n", c.Name, c.Count)
	}
}

func recentCommand(ctx *conf.Context) *cobra.Command {
	var (
		payloads bool
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently added URLs or payloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, ctx, func(c context.Context, client *urlhaus.Client, p *output.Printer) error {
				if payloads {
					items, err := client.RecentPayloads(c, limit)
					if err != nil {
						return err
					}
					return p.Print(items, func(w io.Writer) {
						tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
						fmt.Fprintln(tw, "SHA256\tTYPE\tSIZE\tSIGNATURE")
						for _, it := range items {
							fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", it.SHA256, it.FileType, it.FileSize, it.Signature)
						}
						_ = tw.Flush()
					})
				}

				items, err := client.RecentURLs(c, limit)
				if err != nil {
					return err
				}
				return p.Print(items, func(w io.Writer) { printEntries(w, items) })
			})
		},
	}

	cmd.Flags().BoolVar(&payloads, "payloads", false, "List payloads instead of URLs")
	cmd.Flags().IntVar(&limit, "limit", defaultRecentLimit, "Maximum number of entries")
	return cmd
}

func printEntries(w io.Writer, entries []urlhaus.URLEntry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tTHREAT\tTAGS\tURL")
	for i := range entries {
		e := &entries[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.URLStatus, e.Threat, strings.Join(e.Tags, ","), e.URL)
	}
	_ = tw.Flush()
}

func tagCommand(ctx *conf.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "tag <tag>",
		Short: "List URLs carrying a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, ctx, func(c context.Context, client *urlhaus.Client, p *output.Printer) error {
				r, err := client.SearchTag(c, args[0])
				if err != nil {
					return err
				}
				return p.Print(r, func(w io.Writer) {
					if !r.Found {
						fmt.Fprintf(w, "tag %q not found\n", r.Tag)
						return
					}
					fmt.Fprintf(w, "tag %q: %d urls\n", r.Tag, r.URLCount)
					printEntries(w, r.URLs)
				})
			})
		},
	}
}

func hostCommand(ctx *conf.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "host <host>",
		Short: "Look up a hostname or IP address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			host := normalize.Host(args[0])
			if host == "" {
				return errors.ValidationError(fmt.Sprintf("invalid host %q", args[0]))
			}
			return withClient(cmd, ctx, func(c context.Context, client *urlhaus.Client, p *output.Printer) error {
				r := client.QueryHost(c, host)
				return p.Print(r, func(w io.Writer) {
					fmt.Fprintf(w, "%s: %s\n", r.Host, r.Status)
					if r.IsMalicious {
						fmt.Fprintf(w, "malicious (confidence %s), %d urls listed\n", output.Percent(r.Confidence), r.URLCount)
					}
					if r.Detail != "" {
						fmt.Fprintln(w, r.Detail)
					}
				})
			})
		},
	}
}
