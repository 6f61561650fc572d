// Package main provides the memo-comb operator CLI. It runs the same fetch
// pipelines as the server, once, and prints the result.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/lysyi3m/memo-comb/app/cfg"
	"github.com/lysyi3m/memo-comb/app/fetcher"
	"github.com/lysyi3m/memo-comb/app/source"
	"github.com/spf13/cobra"
)

type options struct {
	memosConfig    string
	feedsConfig    string
	noDefaults     bool
	userAgent      string
	timeout        time.Duration
	pageSize       int
	faviconService string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// configDir is where the CLI looks for source files unless told otherwise.
func configDir() string {
	if dir := os.Getenv("MEMO_COMB_CONFIG_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(xdg.ConfigHome, "memo-comb")
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:          "memo-comb",
		Short:        "Fetch and merge memo timelines and blog feeds",
		Long:         "memo-comb fetches every configured memo instance and blog feed, merges them newest first and prints the result.",
		Version:      cfg.GetVersion(),
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate("memo-comb version {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.memosConfig, "memos-config", filepath.Join(configDir(), "memos.json"), "JSON file listing memo sources")
	flags.StringVar(&opts.feedsConfig, "feeds-config", filepath.Join(configDir(), "feeds.yml"), "YAML file listing blog feed sources")
	flags.BoolVar(&opts.noDefaults, "no-defaults", false, "do not fall back to built-in sources")
	flags.StringVar(&opts.userAgent, "user-agent", fetcher.DefaultUserAgent, "user agent for upstream requests")
	flags.DurationVar(&opts.timeout, "timeout", fetcher.DefaultTimeout, "per-request upstream timeout")
	flags.IntVar(&opts.pageSize, "page-size", 0, "memos requested per source (0 fetches the whole collection)")
	flags.StringVar(&opts.faviconService, "favicon-service", "https://favicon.memobbs.app", "favicon lookup service for feed items")

	rootCmd.AddCommand(newMemosCmd(opts))
	rootCmd.AddCommand(newFeedsCmd(opts))
	rootCmd.AddCommand(newSourcesCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "memo-comb %s\n", cfg.GetVersion())
		},
	}
}

func (o *options) registry() (*source.Registry, error) {
	return source.Load(source.LoadOptions{
		MemosPath:  o.memosConfig,
		FeedsPath:  o.feedsConfig,
		NoDefaults: o.noDefaults,
	})
}

func (o *options) client() *fetcher.Client {
	return fetcher.NewClient(
		fetcher.WithUserAgent(o.userAgent),
		fetcher.WithTimeout(o.timeout),
	)
}
