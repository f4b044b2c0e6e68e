// Package batch drives one run end to end: enumerate the input folder,
// OCR each file, extract and annotate receipt regions, and assemble the
// output table. Failures stay contained to their file or region.
package batch

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/polifund/fundscan/internal/annotate"
	"github.com/polifund/fundscan/internal/columns"
	"github.com/polifund/fundscan/internal/common"
	"github.com/polifund/fundscan/internal/export"
	"github.com/polifund/fundscan/internal/formtype"
	"github.com/polifund/fundscan/internal/ingest"
	"github.com/polifund/fundscan/internal/ocr"
	"github.com/polifund/fundscan/internal/receipt"
)

// FileProcessor turns one scan file into page records. ocr.Gateway is
// the production implementation.
type FileProcessor interface {
	ProcessFile(ctx context.Context, path string) ocr.FileResult
}

// Cropper cuts a receipt region out of its source page as JPEG bytes.
type Cropper interface {
	CropJPEG(ctx context.Context, sourcePath string, rec ocr.PageRecord, region receipt.Region) ([]byte, error)
}

// Annotator asks a vision model about one crop. A nil result means no
// annotation; the row is still emitted.
type Annotator interface {
	Enabled() bool
	Annotate(ctx context.Context, region receipt.Region, imageJPEG []byte) *annotate.Annotation
}

// Options are the per-run knobs.
type Options struct {
	InputFolder string
	Columns     columns.Spec
	Workers     int
}

// Summary counts what one run did.
type Summary struct {
	FilesScanned   uint32
	FilesMatched   uint32
	FilesProcessed int
	FilesSkipped   int
	Pages          int
	Regions        int
	Annotations    int
	Rows           int
	Interrupted    bool
	Elapsed        time.Duration
}

// Orchestrator wires the pipeline stages together for one form type.
type Orchestrator struct {
	processor FileProcessor
	def       formtype.Definition
	extractor *receipt.Extractor
	cropper   Cropper
	annotator Annotator
	logger    *slog.Logger
}

func NewOrchestrator(processor FileProcessor, def formtype.Definition, extractor *receipt.Extractor, cropper Cropper, annotator Annotator, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if extractor == nil {
		extractor = receipt.NewExtractor(false, logger)
	}
	return &Orchestrator{
		processor: processor,
		def:       def,
		extractor: extractor,
		cropper:   cropper,
		annotator: annotator,
		logger:    logger,
	}
}

// Run processes every matching file under opts.InputFolder and returns
// the assembled table. The error is non-nil only for configuration
// problems; per-file failures are counted in the summary instead.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*export.Table, Summary, error) {
	start := time.Now()
	runID := uuid.New().String()
	ctx = common.WithRunID(ctx, runID)

	aiColumns, err := columns.Select(opts.Columns)
	if err != nil {
		return nil, Summary{}, err
	}
	files, stats, err := ingest.ListFiles(opts.InputFolder)
	if err != nil {
		return nil, Summary{}, err
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	o.logger.Info("batch.run.start",
		"run_id", runID,
		"input_folder", opts.InputFolder,
		"form_type", string(o.def.Type),
		"files", len(files),
		"workers", workers,
		"ai_columns", len(aiColumns),
	)

	outputs := o.processFiles(ctx, files, workers, aiColumns)
	table, summary := o.assemble(outputs, aiColumns)
	summary.FilesScanned = stats.Scanned
	summary.FilesMatched = stats.Matched
	summary.Interrupted = ctx.Err() != nil
	summary.Elapsed = time.Since(start)

	o.logger.Info("batch.run.ok",
		"run_id", runID,
		"files_processed", summary.FilesProcessed,
		"files_skipped", summary.FilesSkipped,
		"pages", summary.Pages,
		"regions", summary.Regions,
		"annotations", summary.Annotations,
		"rows", summary.Rows,
		"interrupted", summary.Interrupted,
		"elapsed_ms", summary.Elapsed.Milliseconds(),
	)
	return table, summary, nil
}

// assemble folds per-file outputs into the sorted table and its counts.
// Scan statistics and timing are the caller's to fill in.
func (o *Orchestrator) assemble(outputs []fileOutput, aiColumns []string) (*export.Table, Summary) {
	var summary Summary
	var rows []keyedRow
	for _, out := range outputs {
		if !out.processed {
			continue
		}
		if out.skipped {
			summary.FilesSkipped++
			continue
		}
		summary.FilesProcessed++
		summary.Pages += out.pages
		summary.Regions += out.regions
		summary.Annotations += out.annotations
		rows = append(rows, out.rows...)
	}
	sortRows(rows)

	table := &export.Table{Header: buildHeader(o.def.Fields, aiColumns)}
	for _, r := range rows {
		table.Rows = append(table.Rows, r.cells)
	}
	summary.Rows = len(table.Rows)
	return table, summary
}
