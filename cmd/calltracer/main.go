package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/getsentry/calltracer/internal/logutil"
)

var release = "dev"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "calltracer",
		Short:         "Trace recursive computations",
		Long:          `calltracer runs instrumented recursive algorithms and shows their call trees, cache hits and timings`,
		Version:       release,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := cmd.Flags().GetString("log-level")
			if err != nil {
				return fmt.Errorf("failed to get log-level flag: %w", err)
			}
			return logutil.ConfigureLogger(level)
		},
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newDemosCmd())
	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newSpeedscopeCmd())

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (trace|debug|info|warn|error)")

	return rootCmd
}

// colorEnabled resolves the color flag, auto follows the terminal.
func colorEnabled(cmd *cobra.Command) (bool, error) {
	mode, err := cmd.Flags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	switch mode {
	case "auto":
		return !color.NoColor, nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid color mode %q (auto|on|off)", mode)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}
