package receipt

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/disintegration/imaging"
)

// Rasterizer renders single PDF pages to images through pdftoppm.
type Rasterizer struct {
	runner Runner
	bin    string
	dpi    int
	logger *slog.Logger
}

// NewRasterizer builds a rasterizer, filling zero values with defaults.
func NewRasterizer(runner Runner, bin string, dpi int, logger *slog.Logger) *Rasterizer {
	if runner == nil {
		runner = ExecRunner{}
	}
	if bin == "" {
		bin = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 200
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Rasterizer{runner: runner, bin: bin, dpi: dpi, logger: logger}
}

// DPI returns the render resolution, needed to project inch coordinates
// onto the rendered pixels.
func (r *Rasterizer) DPI() int {
	return r.dpi
}

// PageImage renders one 1-based page of a PDF.
func (r *Rasterizer) PageImage(ctx context.Context, path string, page int) (image.Image, error) {
	if page < 1 {
		return nil, fmt.Errorf("page %d out of range", page)
	}

	tmpDir, err := os.MkdirTemp("", "fundscan-pp-*")
	if err != nil {
		return nil, err
	}
	defer func(dir string) {
		if err := os.RemoveAll(dir); err != nil {
			r.logger.Warn("receipt.raster.cleanup_error", "dir", dir, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -f N -l N -r DPI -png <in.pdf> <tmp/page>
	pageArg := fmt.Sprintf("%d", page)
	_, errb, err := r.runner.Run(ctx, r.bin,
		"-f", pageArg, "-l", pageArg,
		"-r", fmt.Sprintf("%d", r.dpi),
		"-png", path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w (%s)", err, truncate(string(errb), 512))
	}

	// pdftoppm names output prefix-1.png, prefix-01.png etc. depending on
	// page count; take the single match
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no image for page %d of %s", page, filepath.Base(path))
	}

	img, err := imaging.Open(matches[0])
	if err != nil {
		return nil, fmt.Errorf("open rendered page: %w", err)
	}
	return img, nil
}
