// Package receipt locates receipt sub-images on analyzed pages and crops
// them for the vision stage. Region coordinates stay exactly as the OCR
// service reported them; projection to pixels happens only at crop time.
package receipt

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/polifund/fundscan/internal/ocr"
)

// Region is one receipt candidate on a page. Index is 1-based within the
// page, in the order the service reported the areas.
type Region struct {
	File    string
	Page    int
	Index   int
	Polygon []ocr.Point
}

// PolygonString renders the polygon as "x,y;x,y;..." for output columns.
func (r Region) PolygonString() string {
	if len(r.Polygon) == 0 {
		return ""
	}
	parts := make([]string, len(r.Polygon))
	for i, p := range r.Polygon {
		parts[i] = formatCoord(p.X) + "," + formatCoord(p.Y)
	}
	return strings.Join(parts, ";")
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Extractor turns the receipt areas tagged by the OCR model into regions.
// A disabled extractor always returns nil, which also guarantees the
// annotator is never reached.
type Extractor struct {
	enabled bool
	logger  *slog.Logger
}

func NewExtractor(enabled bool, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{enabled: enabled, logger: logger}
}

// Enabled reports whether extraction is active for this run.
func (x *Extractor) Enabled() bool {
	return x.enabled
}

// Extract returns the regions for one page record, possibly none. A page
// without a tagged receipt area is normal, not an error.
func (x *Extractor) Extract(rec ocr.PageRecord) []Region {
	if !x.enabled || len(rec.ReceiptAreas) == 0 {
		return nil
	}

	regions := make([]Region, 0, len(rec.ReceiptAreas))
	for i, polygon := range rec.ReceiptAreas {
		regions = append(regions, Region{
			File:    rec.FileName,
			Page:    rec.Page,
			Index:   i + 1,
			Polygon: polygon,
		})
	}

	x.logger.Debug("receipt.extract.regions",
		"file", rec.FileName,
		"page", rec.Page,
		"count", len(regions),
	)
	return regions
}
