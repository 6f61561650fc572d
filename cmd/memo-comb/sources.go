package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSourcesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List configured memo and feed sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := opts.registry()
			if err != nil {
				return fmt.Errorf("loading sources: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tID\tDIALECT\tNAME\tENDPOINT")
			for _, desc := range registry.All() {
				name := desc.DisplayName
				if !desc.Enabled {
					name += " (disabled)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", desc.Kind(), desc.ID, desc.Dialect, name, desc.Endpoint)
			}
			return tw.Flush()
		},
	}
}
