package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/polifund/fundscan/internal/annotate"
	"github.com/polifund/fundscan/internal/batch"
	"github.com/polifund/fundscan/internal/columns"
	"github.com/polifund/fundscan/internal/common"
	"github.com/polifund/fundscan/internal/formtype"
	"github.com/polifund/fundscan/internal/ocr"
	"github.com/polifund/fundscan/internal/receipt"
	"github.com/polifund/fundscan/internal/store"
)

// batchFlags are shared by the run and watch commands.
type batchFlags struct {
	output    string
	noExtract bool
	noAnalyze bool
	aiMode    int
	aiColumns string
	workers   int
	timeout   time.Duration
}

func addBatchFlags(cmd *cobra.Command, flags *batchFlags) {
	f := cmd.Flags()
	f.StringVarP(&flags.output, "output", "o", "output.csv", "output file (.csv, .tsv, or .xlsx)")
	f.BoolVar(&flags.noExtract, "no-extract-receipts", false, "skip receipt region extraction")
	f.BoolVar(&flags.noAnalyze, "no-analyze-receipts", false, "skip vision annotation of receipt regions")
	f.IntVar(&flags.aiMode, "ai-mode", 1, "AI column mode: 1=all, 2=none, 3=exclude, 4=include")
	f.StringVar(&flags.aiColumns, "ai-columns", "", "comma-separated AI column names for modes 3 and 4")
	f.IntVar(&flags.workers, "workers", 0, "files processed concurrently (default from FUNDSCAN_WORKERS)")
	f.DurationVar(&flags.timeout, "timeout", 0, "per-file OCR deadline including polling (default from FUNDSCAN_OCR_TIMEOUT)")
}

func (fl *batchFlags) columnSpec() (columns.Spec, error) {
	mode, err := columns.ParseMode(fl.aiMode)
	if err != nil {
		return columns.Spec{}, err
	}
	return columns.Spec{Mode: mode, Names: columns.SplitNames(fl.aiColumns)}, nil
}

// pipeline bundles the wired stages for one run or watch session.
type pipeline struct {
	cfg     *common.Config
	orch    *batch.Orchestrator
	workers int
	cleanup func()
}

// buildPipeline loads configuration, resolves the form type, and wires
// the OCR, extraction, and annotation stages. Any error here is fatal
// to the invocation.
func buildPipeline(ctx context.Context, root *rootOptions, flags *batchFlags, formTypeArg string, logger *slog.Logger) (*pipeline, error) {
	cfg := common.LoadConfig()
	if root.configPath != "" {
		if err := cfg.ApplyFile(root.configPath); err != nil {
			return nil, err
		}
	}
	if flags.timeout > 0 {
		cfg.Azure.Timeout = flags.timeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	workers := cfg.Batch.Workers
	if flags.workers > 0 {
		workers = flags.workers
	}

	registry := formtype.NewRegistry(cfg.Azure.Models)
	def, modelID, err := registry.Resolve(formTypeArg)
	if err != nil {
		return nil, err
	}

	client := ocr.NewAzureClient(cfg.Azure, logger)
	gateway := ocr.NewGateway(client, def, modelID, cfg.Batch, logger)
	extractor := receipt.NewExtractor(!flags.noExtract, logger)
	raster := receipt.NewRasterizer(nil, cfg.Batch.Pdftoppm, cfg.Batch.RasterDPI, logger)
	cropper := receipt.NewCropper(raster, cfg.Vision, logger)

	annotator, cleanup, err := buildAnnotator(ctx, cfg, flags, logger)
	if err != nil {
		return nil, err
	}

	return &pipeline{
		cfg:     cfg,
		orch:    batch.NewOrchestrator(gateway, def, extractor, cropper, annotator, logger),
		workers: workers,
		cleanup: cleanup,
	}, nil
}

// buildAnnotator assembles the vision stage. A missing credential
// disables annotation with a warning; an unknown provider name is fatal.
func buildAnnotator(ctx context.Context, cfg *common.Config, flags *batchFlags, logger *slog.Logger) (*annotate.Service, func(), error) {
	cleanup := func() {}
	if flags.noAnalyze || flags.noExtract {
		return annotate.NewService(nil, nil, logger), cleanup, nil
	}

	if err := cfg.ValidateVision(); err != nil {
		if errors.Is(err, common.ErrNoCredential) {
			logger.Warn("vision.disabled", "reason", err.Error())
			return annotate.NewService(nil, nil, logger), cleanup, nil
		}
		return nil, cleanup, err
	}

	provider, err := annotate.NewProvider(ctx, cfg.Vision, logger)
	if err != nil {
		return nil, cleanup, err
	}
	if closer, ok := provider.(io.Closer); ok {
		cleanup = func() { _ = closer.Close() }
	}

	var persistent annotate.Store
	if cfg.Cache.DSN != "" {
		db, err := store.Open(ctx, cfg.Cache.DSN, logger)
		if err != nil {
			// The cache is an optimization; run without it.
			logger.Warn("store.unavailable", "dsn", cfg.Cache.DSN, "error", err)
		} else {
			persistent = db
			prev := cleanup
			cleanup = func() {
				db.Close()
				prev()
			}
		}
	}

	cache := annotate.NewCache(cfg.Cache.TTL, persistent, logger)
	return annotate.NewService(provider, cache, logger), cleanup, nil
}
