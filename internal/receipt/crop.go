package receipt

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/polifund/fundscan/constants"
	"github.com/polifund/fundscan/internal/common"
	"github.com/polifund/fundscan/internal/ocr"
)

// Cropper cuts receipt regions out of their source page and encodes the
// JPEG thumbnail sent to the vision service.
type Cropper struct {
	raster *Rasterizer
	cfg    common.VisionConfig
	logger *slog.Logger
}

// NewCropper builds a cropper, filling zero values with defaults.
func NewCropper(raster *Rasterizer, cfg common.VisionConfig, logger *slog.Logger) *Cropper {
	if cfg.MaxEdge <= 0 {
		cfg.MaxEdge = 1024
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = 85
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cropper{raster: raster, cfg: cfg, logger: logger}
}

// CropJPEG loads the page behind a region and returns the encoded crop,
// bounded to the configured edge length.
func (c *Cropper) CropJPEG(ctx context.Context, sourcePath string, rec ocr.PageRecord, region Region) ([]byte, error) {
	img, scale, err := c.pageImage(ctx, sourcePath, rec)
	if err != nil {
		return nil, err
	}

	rect, err := pixelBounds(region.Polygon, scale, img.Bounds())
	if err != nil {
		return nil, fmt.Errorf("region %d on page %d of %s: %w", region.Index, region.Page, filepath.Base(sourcePath), err)
	}

	crop := imaging.Crop(img, rect)
	if w, h := crop.Bounds().Dx(), crop.Bounds().Dy(); w > c.cfg.MaxEdge || h > c.cfg.MaxEdge {
		crop = imaging.Fit(crop, c.cfg.MaxEdge, c.cfg.MaxEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, crop, imaging.JPEG, imaging.JPEGQuality(c.cfg.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode crop: %w", err)
	}

	c.logger.Debug("receipt.crop.ok",
		"file", region.File,
		"page", region.Page,
		"region", region.Index,
		"crop_px", fmt.Sprintf("%dx%d", crop.Bounds().Dx(), crop.Bounds().Dy()),
		"bytes", buf.Len(),
	)
	return buf.Bytes(), nil
}

// pageImage loads the pixel data behind one page record and the factor
// that maps service coordinates onto it. PDFs are rendered on demand;
// image files are their own single page.
func (c *Cropper) pageImage(ctx context.Context, sourcePath string, rec ocr.PageRecord) (image.Image, float64, error) {
	var img image.Image
	var err error

	if constants.FormatForExt(filepath.Ext(sourcePath)) == "PDF" {
		img, err = c.raster.PageImage(ctx, sourcePath, rec.Page)
	} else {
		img, err = imaging.Open(sourcePath)
	}
	if err != nil {
		return nil, 0, err
	}

	scale := 1.0
	if rec.Width > 0 {
		scale = float64(img.Bounds().Dx()) / rec.Width
	}
	return img, scale, nil
}

// pixelBounds projects a polygon into pixel space and clamps it to the
// page.
func pixelBounds(polygon []ocr.Point, scale float64, bounds image.Rectangle) (image.Rectangle, error) {
	if len(polygon) == 0 {
		return image.Rectangle{}, fmt.Errorf("empty polygon")
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range polygon {
		minX = math.Min(minX, p.X*scale)
		minY = math.Min(minY, p.Y*scale)
		maxX = math.Max(maxX, p.X*scale)
		maxY = math.Max(maxY, p.Y*scale)
	}

	rect := image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX)), int(math.Ceil(maxY)),
	).Intersect(bounds)
	if rect.Empty() {
		return image.Rectangle{}, fmt.Errorf("region outside page bounds")
	}
	return rect, nil
}
