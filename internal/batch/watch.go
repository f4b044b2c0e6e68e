package batch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/polifund/fundscan/internal/columns"
	"github.com/polifund/fundscan/internal/common"
	"github.com/polifund/fundscan/internal/export"
	"github.com/polifund/fundscan/internal/ingest"
)

// WatchOptions adds continuous-intake knobs to Options.
type WatchOptions struct {
	Options
	Debounce time.Duration
}

// Watch processes the files already in the folder, then reprocesses and
// republishes the table whenever a scan appears or changes, until ctx is
// cancelled. onTable receives every rebuilt table; returning an error
// from it stops the watch.
func (o *Orchestrator) Watch(ctx context.Context, opts WatchOptions, onTable func(*export.Table, Summary) error) error {
	runID := uuid.New().String()
	ctx = common.WithRunID(ctx, runID)

	aiColumns, err := columns.Select(opts.Columns)
	if err != nil {
		return err
	}

	events, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
		Root:        opts.InputFolder,
		InitialScan: true,
		Debounce:    opts.Debounce,
	}, o.logger)
	if err != nil {
		return err
	}

	o.logger.Info("batch.watch.start",
		"run_id", runID,
		"input_folder", opts.InputFolder,
		"form_type", string(o.def.Type),
	)

	outputs := map[string]fileOutput{}
	for {
		select {
		case <-ctx.Done():
			o.logger.Info("batch.watch.stop", "files_seen", len(outputs))
			return nil
		case _, ok := <-errs:
			if !ok {
				errs = nil
			}
		case path, ok := <-events:
			if !ok {
				o.logger.Info("batch.watch.stop", "files_seen", len(outputs))
				return nil
			}
			// Reprocessing a path replaces its earlier rows.
			outputs[path] = o.processOne(ctx, path, aiColumns)

			all := make([]fileOutput, 0, len(outputs))
			for _, out := range outputs {
				all = append(all, out)
			}
			table, summary := o.assemble(all, aiColumns)
			summary.FilesScanned = uint32(len(outputs))
			summary.FilesMatched = uint32(len(outputs))
			if err := onTable(table, summary); err != nil {
				return err
			}
		}
	}
}
