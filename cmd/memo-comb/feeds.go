package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/lysyi3m/memo-comb/app/aggregate"
	"github.com/lysyi3m/memo-comb/app/feed"
	"github.com/lysyi3m/memo-comb/app/filter"
	"github.com/lysyi3m/memo-comb/app/source"
	"github.com/spf13/cobra"
)

func newFeedsCmd(opts *options) *cobra.Command {
	var (
		query  string
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "feeds [id]",
		Short: "Fetch blog feeds, all enabled ones or a single feed by id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := opts.registry()
			if err != nil {
				return fmt.Errorf("loading sources: %w", err)
			}

			sources := registry.Feeds()
			if len(args) == 1 {
				desc, ok := registry.Feed(args[0])
				if !ok {
					return fmt.Errorf("unknown feed %q", args[0])
				}
				sources = []source.Descriptor{desc}
			}

			runner := feed.NewRunner(opts.client(), feed.NewParser(opts.faviconService), nil)

			result, err := runner.Run(cmd.Context(), sources)
			if errors.Is(err, aggregate.ErrNoSources) {
				fmt.Fprintln(cmd.OutOrStdout(), "No feed sources configured.")
				return nil
			}
			printFailures(cmd.ErrOrStderr(), result.Failures)
			if err != nil {
				return err
			}

			items := filter.Search(filter.NewFilterer(), result.Items, query, feed.SearchFields...)
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), items)
			}
			return printFeedItems(cmd.OutOrStdout(), items)
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "only show posts whose title, summary or author matches")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum posts to print (0 prints all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print items as JSON")

	return cmd
}

func printFeedItems(w io.Writer, items []feed.Item) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PUBLISHED\tSITE\tTITLE\tLINK")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			item.PublishedAt.In(time.Local).Format("2006-01-02"),
			item.SiteTitle,
			preview(item.Title),
			item.Link,
		)
	}
	return tw.Flush()
}
