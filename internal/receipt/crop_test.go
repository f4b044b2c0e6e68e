package receipt

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polifund/fundscan/internal/common"
	"github.com/polifund/fundscan/internal/ocr"
)

func savePageImage(t *testing.T, w, h int) string {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{255, 255, 255, 255})
	path := filepath.Join(t.TempDir(), "page.png")
	require.NoError(t, imaging.Save(img, path))
	return path
}

func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestCropJPEGFromImage(t *testing.T) {
	path := savePageImage(t, 1000, 1400)
	rec := ocr.PageRecord{Page: 1, Width: 1000, Height: 1400, Unit: "pixel"}
	region := Region{
		File: "page.png", Page: 1, Index: 1,
		Polygon: []ocr.Point{{X: 100, Y: 200}, {X: 500, Y: 200}, {X: 500, Y: 600}, {X: 100, Y: 600}},
	}

	c := NewCropper(nil, common.VisionConfig{MaxEdge: 1024, JPEGQuality: 85}, nil)
	data, err := c.CropJPEG(context.Background(), path, rec, region)
	require.NoError(t, err)

	img := decodeJPEG(t, data)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 400, img.Bounds().Dy())
}

func TestCropJPEGBoundsToMaxEdge(t *testing.T) {
	path := savePageImage(t, 900, 600)
	rec := ocr.PageRecord{Page: 1, Width: 900, Height: 600, Unit: "pixel"}
	region := Region{
		Page: 1, Index: 1,
		Polygon: []ocr.Point{{X: 0, Y: 0}, {X: 900, Y: 0}, {X: 900, Y: 600}, {X: 0, Y: 600}},
	}

	c := NewCropper(nil, common.VisionConfig{MaxEdge: 128, JPEGQuality: 85}, nil)
	data, err := c.CropJPEG(context.Background(), path, rec, region)
	require.NoError(t, err)

	img := decodeJPEG(t, data)
	assert.LessOrEqual(t, img.Bounds().Dx(), 128)
	assert.LessOrEqual(t, img.Bounds().Dy(), 128)
	// aspect ratio preserved
	assert.Equal(t, 128, img.Bounds().Dx())
}

func TestCropJPEGClampsToPage(t *testing.T) {
	path := savePageImage(t, 400, 400)
	rec := ocr.PageRecord{Page: 1, Width: 400, Height: 400, Unit: "pixel"}
	region := Region{
		Page: 1, Index: 1,
		Polygon: []ocr.Point{{X: 300, Y: 300}, {X: 900, Y: 300}, {X: 900, Y: 900}, {X: 300, Y: 900}},
	}

	c := NewCropper(nil, common.VisionConfig{}, nil)
	data, err := c.CropJPEG(context.Background(), path, rec, region)
	require.NoError(t, err)

	img := decodeJPEG(t, data)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())
}

func TestCropJPEGRejectsOutOfBounds(t *testing.T) {
	path := savePageImage(t, 400, 400)
	rec := ocr.PageRecord{Page: 1, Width: 400, Height: 400, Unit: "pixel"}
	region := Region{
		Page: 1, Index: 1,
		Polygon: []ocr.Point{{X: 500, Y: 500}, {X: 600, Y: 600}},
	}

	c := NewCropper(nil, common.VisionConfig{}, nil)
	_, err := c.CropJPEG(context.Background(), path, rec, region)
	assert.Error(t, err)
}

func TestCropJPEGEmptyPolygon(t *testing.T) {
	path := savePageImage(t, 400, 400)
	rec := ocr.PageRecord{Page: 1, Width: 400, Height: 400, Unit: "pixel"}

	c := NewCropper(nil, common.VisionConfig{}, nil)
	_, err := c.CropJPEG(context.Background(), path, rec, Region{Page: 1, Index: 1})
	assert.Error(t, err)
}

// renderRunner fakes pdftoppm by writing a PNG where the real binary
// would.
type renderRunner struct {
	w, h  int
	calls [][]string
}

func (r *renderRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	prefix := args[len(args)-1]
	img := imaging.New(r.w, r.h, color.NRGBA{255, 255, 255, 255})
	if err := imaging.Save(img, prefix+"-1.png"); err != nil {
		return nil, nil, err
	}
	return nil, nil, nil
}

func TestRasterizerPageImage(t *testing.T) {
	runner := &renderRunner{w: 850, h: 1100}
	raster := NewRasterizer(runner, "pdftoppm", 100, nil)

	img, err := raster.PageImage(context.Background(), "/tmp/report.pdf", 2)
	require.NoError(t, err)
	assert.Equal(t, 850, img.Bounds().Dx())

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.Equal(t, "pdftoppm", call[0])
	assert.Contains(t, call, "-f")
	assert.Contains(t, call, "-l")
	assert.Contains(t, call, "-png")
	assert.Contains(t, call, "2")
	assert.Contains(t, call, "100")
}

func TestRasterizerRunnerFailure(t *testing.T) {
	failing := runnerFunc(func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return nil, []byte("no such file"), fmt.Errorf("exit status 1")
	})
	raster := NewRasterizer(failing, "", 0, nil)

	_, err := raster.PageImage(context.Background(), "/tmp/missing.pdf", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftoppm")
}

type runnerFunc func(ctx context.Context, name string, args ...string) ([]byte, []byte, error)

func (f runnerFunc) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	return f(ctx, name, args...)
}

func TestCropJPEGFromPDFScalesInches(t *testing.T) {
	// page reported as 8.5x11 inches; rendered at 100 DPI -> 850x1100 px
	runner := &renderRunner{w: 850, h: 1100}
	raster := NewRasterizer(runner, "pdftoppm", 100, nil)
	c := NewCropper(raster, common.VisionConfig{MaxEdge: 2048}, nil)

	rec := ocr.PageRecord{Page: 1, Width: 8.5, Height: 11, Unit: "inch"}
	region := Region{
		Page: 1, Index: 1,
		Polygon: []ocr.Point{{X: 1, Y: 1}, {X: 4, Y: 1}, {X: 4, Y: 3}, {X: 1, Y: 3}},
	}

	pdf := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4"), 0o644))

	data, err := c.CropJPEG(context.Background(), pdf, rec, region)
	require.NoError(t, err)

	img := decodeJPEG(t, data)
	assert.Equal(t, 300, img.Bounds().Dx()) // 3in * 100dpi
	assert.Equal(t, 200, img.Bounds().Dy()) // 2in * 100dpi
}
