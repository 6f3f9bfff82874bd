package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/getsentry/calltracer/internal/demo"
	"github.com/getsentry/calltracer/internal/export"
	"github.com/getsentry/calltracer/internal/render"
	"github.com/getsentry/calltracer/internal/stats"
	"github.com/getsentry/calltracer/internal/tracer"
)

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [flags] <demo> [args...]",
		Short: "Trace a demo algorithm",
		Long:  `Run one of the demo algorithms under the tracer and print its call tree`,
		Args:  cobra.MinimumNArgs(1),
		RunE:  runDemo,
	}
	runCmd.Flags().Int("max-depth", 0, "abort calls at this depth, 0 for no limit")
	runCmd.Flags().Int("max-calls", 0, "refuse calls once this many were recorded, 0 for no limit")
	runCmd.Flags().Bool("no-memo", false, "don't detect repeated calls")
	runCmd.Flags().Bool("redact", false, "don't record arguments")
	runCmd.Flags().Bool("skip-cached", false, "reuse the result of the first identical call instead of running it again")
	runCmd.Flags().Bool("timing", false, "show call durations")
	runCmd.Flags().Bool("location", false, "show where traced functions are declared")
	runCmd.Flags().Bool("live", false, "print calls as they happen")
	runCmd.Flags().Bool("stack", false, "print the active stack on every call, implies --live")
	runCmd.Flags().Int("max-value-len", render.DefaultMaxValueLen, "truncate values longer than this, 0 for no limit")
	runCmd.Flags().String("export", "", "export the trace to a file, bucket, kafka topic or collector URL, - for stdout")
	runCmd.Flags().Bool("stats", false, "print statistics")
	return runCmd
}

func runDemo(cmd *cobra.Command, args []string) error {
	d, err := demo.Lookup(args[0])
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	maxDepth, _ := flags.GetInt("max-depth")
	maxCalls, _ := flags.GetInt("max-calls")
	noMemo, _ := flags.GetBool("no-memo")
	redact, _ := flags.GetBool("redact")
	skipCached, _ := flags.GetBool("skip-cached")
	timing, _ := flags.GetBool("timing")
	location, _ := flags.GetBool("location")
	live, _ := flags.GetBool("live")
	stack, _ := flags.GetBool("stack")
	maxValueLen, _ := flags.GetInt("max-value-len")
	destination, _ := flags.GetString("export")
	withStats, _ := flags.GetBool("stats")
	colored, err := colorEnabled(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	renderOpts := []render.Option{
		render.WithColor(colored),
		render.WithTiming(timing),
		render.WithLocation(location),
		render.WithMaxValueLen(maxValueLen),
		render.WithStack(stack),
	}
	opts := []tracer.Option{
		tracer.WithMaxDepth(maxDepth),
		tracer.WithMaxCalls(maxCalls),
		tracer.WithMemoization(!noMemo),
		tracer.WithArgumentRecording(!redact),
		tracer.WithSkipCachedCalls(skipCached),
		tracer.WithLogger(log.Logger),
	}
	if live || stack {
		opts = append(opts, tracer.WithListener(render.NewPrinter(out, renderOpts...)))
	}
	s := tracer.NewSession(opts...)

	result, runErr := demo.Execute(d, s, args[1:])
	snapshot := s.Snapshot()

	if !live && !stack {
		if err := render.Tree(out, snapshot, renderOpts...); err != nil {
			return err
		}
	}
	if runErr == nil {
		fmt.Fprintf(out, "\nResult: %s\n", render.FormatValue(result, 0))
	}
	if withStats {
		fmt.Fprintln(out)
		if err := stats.WriteTable(out, stats.Compute(snapshot)); err != nil {
			return err
		}
	}
	if destination != "" {
		sink, err := export.OpenSink(cmd.Context(), destination)
		if err != nil {
			return err
		}
		doc := export.Build(s.ID(), s.StartedAt(), snapshot)
		if err := sink.Write(cmd.Context(), doc); err != nil {
			_ = sink.Close()
			return err
		}
		if err := sink.Close(); err != nil {
			return err
		}
		log.Info().Str("destination", destination).Str("session_id", doc.SessionID).Msg("trace exported")
	}
	return runErr
}
