package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/lysyi3m/memo-comb/app/aggregate"
	"github.com/lysyi3m/memo-comb/app/filter"
	"github.com/lysyi3m/memo-comb/app/memo"
	"github.com/lysyi3m/memo-comb/app/source"
	"github.com/spf13/cobra"
)

const previewLength = 72

func newMemosCmd(opts *options) *cobra.Command {
	var (
		view   string
		user   string
		query  string
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "memos",
		Short: "Fetch and merge memos from the configured instances",
		Long: `Fetch public memos from every selected instance and print them newest first.

Views: bbs (all sources), home (first source), random, user (requires --user).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := opts.registry()
			if err != nil {
				return fmt.Errorf("loading sources: %w", err)
			}

			sources := registry.Select(source.View(view), user)
			runner := memo.NewRunner(opts.client(), memo.NewNormalizer(), opts.pageSize, nil)

			result, err := runner.Run(cmd.Context(), sources)
			if errors.Is(err, aggregate.ErrNoSources) {
				fmt.Fprintln(cmd.OutOrStdout(), "No memo sources selected.")
				return nil
			}
			printFailures(cmd.ErrOrStderr(), result.Failures)
			if err != nil {
				return err
			}

			items := filter.Search(filter.NewFilterer(), result.Items, query, memo.SearchFields...)
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), items)
			}
			return printMemos(cmd.OutOrStdout(), items)
		},
	}

	cmd.Flags().StringVar(&view, "view", string(source.ViewAll), "source view: bbs, home, random or user")
	cmd.Flags().StringVar(&user, "user", "", "source id, creator id or creator name for the user view")
	cmd.Flags().StringVarP(&query, "query", "q", "", "only show memos whose content or creator matches")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum memos to print (0 prints all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")

	return cmd
}

func printMemos(w io.Writer, records []memo.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tCREATOR\tMEMO")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			time.Unix(r.DisplayTs, 0).In(time.Local).Format("2006-01-02 15:04"),
			r.CreatorName,
			preview(r.Content),
		)
	}
	return tw.Flush()
}

// preview returns the first line of content clipped to previewLength runes.
func preview(content string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) <= previewLength {
		return line
	}
	return string([]rune(line)[:previewLength]) + "…"
}

func printFailures(w io.Writer, failures []aggregate.Failure) {
	for _, f := range failures {
		fmt.Fprintf(w, "warning: source %s (%s) failed: %s\n", f.SourceID, f.Dialect, f.Reason)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
