// Package cli defines the fundscan command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	verbose    bool
	configPath string
}

// NewRootCommand builds the fundscan command with its subcommands.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "fundscan",
		Short: "Batch OCR for scanned political fund reports",
		Long: "fundscan runs scanned political fund report forms through a custom\n" +
			"document model, extracts tagged receipt regions, optionally annotates\n" +
			"them with a vision model, and writes one flat table per run.",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogging(opts.verbose)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a JSON or YAML config file")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newWatchCommand(opts))
	cmd.AddCommand(newFormsCommand(opts))
	cmd.AddCommand(newCacheCommand(opts))
	return cmd
}

// Execute runs the command tree and maps the outcome to an exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}
