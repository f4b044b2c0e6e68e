package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/polifund/fundscan/internal/common"
	"github.com/polifund/fundscan/internal/formtype"
)

// DocumentClient is the cloud OCR collaborator.
type DocumentClient interface {
	Analyze(ctx context.Context, modelID string, content []byte) (*Result, error)
}

// Gateway analyzes files against one form definition, retrying transient
// service failures with backoff. Every per-file failure is contained: the
// caller receives it inside FileResult and the batch moves on.
type Gateway struct {
	client  DocumentClient
	def     formtype.Definition
	modelID string
	cfg     common.BatchConfig
	logger  *slog.Logger
}

// NewGateway builds a gateway, filling zero retry knobs with defaults.
func NewGateway(client DocumentClient, def formtype.Definition, modelID string, cfg common.BatchConfig, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.RetryBackoff < 1 {
		cfg.RetryBackoff = 2.0
	}
	return &Gateway{
		client:  client,
		def:     def,
		modelID: modelID,
		cfg:     cfg,
		logger:  logger,
	}
}

// ProcessFile runs the OCR service for one file and normalizes the output
// into one record per page.
func (g *Gateway) ProcessFile(ctx context.Context, path string) FileResult {
	fileName := filepath.Base(path)
	folder := filepath.Base(filepath.Dir(path))
	if common.RequestIDFromContext(ctx) == "" {
		ctx = common.WithRequestID(ctx, uuid.New().String())
	}

	content, err := os.ReadFile(path)
	if err != nil {
		g.logger.Error("ocr.file.skipped", "file", fileName, "error", err)
		return FileResult{Path: path, Err: common.NewAppError("OCR_ERROR", "read "+fileName, errors.Join(common.ErrOCRFailed, err))}
	}

	result, err := g.analyzeWithRetry(ctx, fileName, content)
	if err != nil {
		g.logger.Error("ocr.file.skipped", "file", fileName, "error", err)
		return FileResult{Path: path, Err: err}
	}

	records := g.normalize(folder, fileName, result)
	g.logger.Info("ocr.file.ok", "file", fileName, "pages", len(records))
	return FileResult{Path: path, Records: records}
}

func (g *Gateway) analyzeWithRetry(ctx context.Context, fileName string, content []byte) (*Result, error) {
	delay := g.cfg.RetryDelay
	var lastErr error

	for attempt := 1; attempt <= g.cfg.RetryAttempts; attempt++ {
		result, err := g.client.Analyze(ctx, g.modelID, content)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, common.NewAppError("OCR_ERROR", "analyze "+fileName, ctx.Err())
		}
		if !transientError(err) {
			return nil, common.NewAppError("OCR_ERROR", "analyze "+fileName, errors.Join(common.ErrOCRFailed, err))
		}
		if attempt == g.cfg.RetryAttempts {
			break
		}

		g.logger.Warn("ocr.analyze.retry",
			"file", fileName,
			"attempt", attempt,
			"delay", delay.String(),
			"error", err,
		)
		select {
		case <-ctx.Done():
			return nil, common.NewAppError("OCR_ERROR", "analyze "+fileName, ctx.Err())
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * g.cfg.RetryBackoff)
	}

	msg := fmt.Sprintf("analyze %s: giving up after %d attempts", fileName, g.cfg.RetryAttempts)
	return nil, common.NewAppError("OCR_ERROR", msg, errors.Join(common.ErrOCRFailed, lastErr))
}

// transientError decides retry eligibility. Network-level failures retry;
// service errors retry only when the service says so.
func transientError(err error) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Transient()
	}
	return true
}

// normalize maps the reduced service result onto form-schema records: one
// record per page, every schema field present (empty when the service did
// not return it), extra fields dropped, receipt areas kept verbatim.
func (g *Gateway) normalize(folder, fileName string, result *Result) []PageRecord {
	if len(result.Pages) == 0 {
		g.logger.Warn("ocr.normalize.no_pages", "file", fileName)
		return nil
	}

	expected := make(map[string]struct{}, len(g.def.Fields))
	for _, name := range g.def.Fields {
		expected[name] = struct{}{}
	}

	records := make([]PageRecord, len(result.Pages))
	byNumber := make(map[int]*PageRecord, len(result.Pages))
	for i, p := range result.Pages {
		fields := make(map[string]string, len(g.def.Fields))
		for _, name := range g.def.Fields {
			fields[name] = ""
		}
		records[i] = PageRecord{
			FolderName: folder,
			FileName:   fileName,
			ModelID:    g.modelID,
			FormType:   g.def.Type,
			Page:       p.Number,
			Width:      p.Width,
			Height:     p.Height,
			Unit:       p.Unit,
			Fields:     fields,
		}
		byNumber[p.Number] = &records[i]
	}

	recordFor := func(page int) *PageRecord {
		if rec, ok := byNumber[page]; ok {
			return rec
		}
		return &records[0]
	}

	for _, f := range result.Fields {
		if f.Name == formtype.ReceiptAreaField {
			for _, region := range f.Regions {
				if len(region.Polygon) == 0 {
					continue
				}
				rec := recordFor(region.Page)
				rec.ReceiptAreas = append(rec.ReceiptAreas, region.Polygon)
			}
			continue
		}

		if _, ok := expected[f.Name]; !ok {
			continue
		}
		page := 1
		if len(f.Regions) > 0 {
			page = f.Regions[0].Page
		}
		rec := recordFor(page)
		if rec.Fields[f.Name] == "" {
			rec.Fields[f.Name] = NormalizeField(f.Value)
		}
	}

	return records
}
