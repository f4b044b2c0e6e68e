package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/polifund/fundscan/internal/batch"
	"github.com/polifund/fundscan/internal/export"
)

func newRunCommand(root *rootOptions) *cobra.Command {
	flags := &batchFlags{}
	cmd := &cobra.Command{
		Use:   "run <input_folder> <form_type>",
		Short: "Process a folder of scans into a CSV, TSV, or XLSX table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), root, flags, args[0], args[1])
		},
	}
	addBatchFlags(cmd, flags)
	return cmd
}

func runBatch(ctx context.Context, root *rootOptions, flags *batchFlags, inputFolder, formTypeArg string) error {
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

	table, summary, err := p.orch.Run(ctx, batch.Options{
		InputFolder: inputFolder,
		Columns:     spec,
		Workers:     p.workers,
	})
	if err != nil {
		return err
	}

	if summary.Rows == 0 {
		logger.Warn("batch.no_rows", "input_folder", inputFolder)
		fmt.Fprintln(os.Stderr, "no rows produced, output not written")
		printSummary(os.Stdout, summary)
		return nil
	}
	if err := export.WriteFile(flags.output, table, logger); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "wrote %s\n", flags.output)
	printSummary(os.Stdout, summary)
	return nil
}

func printSummary(w io.Writer, s batch.Summary) {
	fmt.Fprintf(w, "files: %d processed, %d skipped (of %d matched)\n",
		s.FilesProcessed, s.FilesSkipped, s.FilesMatched)
	fmt.Fprintf(w, "pages: %d, receipt regions: %d, annotations: %d, rows: %d\n",
		s.Pages, s.Regions, s.Annotations, s.Rows)
	if s.Interrupted {
		fmt.Fprintln(w, "interrupted before all files were processed")
	}
}
