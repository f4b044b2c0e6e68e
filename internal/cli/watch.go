package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/polifund/fundscan/internal/batch"
	"github.com/polifund/fundscan/internal/export"
)

func newWatchCommand(root *rootOptions) *cobra.Command {
	flags := &batchFlags{}
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch <input_folder> <form_type>",
		Short: "Keep processing scans as they arrive, rewriting the output",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchBatch(cmd.Context(), root, flags, debounce, args[0], args[1])
		},
	}
	addBatchFlags(cmd, flags)
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "quiet period before a changed file is processed")
	return cmd
}

func watchBatch(ctx context.Context, root *rootOptions, flags *batchFlags, debounce time.Duration, inputFolder, formTypeArg string) error {
	logger := slog.Default()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	spec, err := flags.columnSpec()
	if err != nil {
		return err
	}

	p, err := buildPipeline(ctx, root, flags, formTypeArg, logger)
	if err != nil {
		return err
	}
	defer p.cleanup()

	var last batch.Summary
	err = p.orch.Watch(ctx, batch.WatchOptions{
		Options: batch.Options{
			InputFolder: inputFolder,
			Columns:     spec,
			Workers:     p.workers,
		},
		Debounce: debounce,
	}, func(table *export.Table, summary batch.Summary) error {
		last = summary
		return export.WriteFile(flags.output, table, logger)
	})
	if err != nil {
		return err
	}

	printSummary(os.Stdout, last)
	return nil
}
