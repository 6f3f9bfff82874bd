package main

import (
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/getsentry/calltracer/internal/export"
	"github.com/getsentry/calltracer/internal/registry"
	"github.com/getsentry/calltracer/internal/render"
	"github.com/getsentry/calltracer/internal/speedscope"
	"github.com/getsentry/calltracer/internal/stats"
)

func newRenderCmd() *cobra.Command {
	renderCmd := &cobra.Command{
		Use:   "render [flags] <file>",
		Short: "Print the call tree of an exported trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := readSnapshot(cmd, args[0])
			if err != nil {
				return err
			}
			colored, err := colorEnabled(cmd)
			if err != nil {
				return err
			}
			timing, _ := cmd.Flags().GetBool("timing")
			location, _ := cmd.Flags().GetBool("location")
			maxValueLen, _ := cmd.Flags().GetInt("max-value-len")
			return render.Tree(cmd.OutOrStdout(), snapshot,
				render.WithColor(colored),
				render.WithTiming(timing),
				render.WithLocation(location),
				render.WithMaxValueLen(maxValueLen),
			)
		},
	}
	renderCmd.Flags().Bool("timing", false, "show call durations")
	renderCmd.Flags().Bool("location", false, "show where traced functions are declared")
	renderCmd.Flags().Int("max-value-len", render.DefaultMaxValueLen, "truncate values longer than this, 0 for no limit")
	return renderCmd
}

func newStatsCmd() *cobra.Command {
	statsCmd := &cobra.Command{
		Use:   "stats [flags] <file>",
		Short: "Print statistics of an exported trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := readSnapshot(cmd, args[0])
			if err != nil {
				return err
			}
			maxFunctions, _ := cmd.Flags().GetInt("max-functions")
			asJSON, _ := cmd.Flags().GetBool("json")
			summary := stats.Compute(snapshot, stats.WithMaxFunctions(maxFunctions))
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			return stats.WriteTable(cmd.OutOrStdout(), summary)
		},
	}
	statsCmd.Flags().Int("max-functions", stats.DefaultMaxFunctions, "number of functions to list")
	statsCmd.Flags().Bool("json", false, "print JSON instead of tables")
	return statsCmd
}

func newSpeedscopeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "speedscope <file>",
		Short: "Convert an exported trace to a speedscope profile",
		Long:  `Print the trace as an evented speedscope profile, open it at https://www.speedscope.app`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := readSnapshot(cmd, args[0])
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(speedscope.FromTree(args[0], snapshot))
		},
	}
}

// readSnapshot decodes an exported document from a file, - reads stdin.
func readSnapshot(cmd *cobra.Command, name string) (*registry.Snapshot, error) {
	var (
		doc export.Document
		err error
	)
	if name == "-" {
		doc, err = export.Decode(cmd.InOrStdin())
	} else {
		doc, err = export.ReadFile(name)
	}
	if err != nil {
		return nil, err
	}
	return doc.Snapshot()
}
