package main

import (
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/getsentry/calltracer/internal/demo"
)

func newDemosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demos",
		Short: "List the demo algorithms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Demo", "Arguments", "Description"})
			for _, d := range demo.All() {
				table.Append([]string{d.Name, d.Usage, d.Description})
			}
			table.Render()
			return nil
		},
	}
}
