package batch

import (
	"sort"
	"strconv"

	"github.com/polifund/fundscan/constants"
	"github.com/polifund/fundscan/internal/annotate"
	"github.com/polifund/fundscan/internal/ocr"
	"github.com/polifund/fundscan/internal/receipt"
)

var baseColumns = []string{"folder_name", "filename", "model_name", "type", "page"}

const (
	receiptIndexColumn   = "receipt_index"
	receiptPolygonColumn = "receipt_polygon"
)

// buildHeader lays out the output columns: run identity, the form's OCR
// fields in declared order, receipt coordinates, then the selected
// annotation columns under the AI__ prefix.
func buildHeader(fields []string, aiColumns []string) []string {
	header := make([]string, 0, len(baseColumns)+len(fields)+2+len(aiColumns))
	header = append(header, baseColumns...)
	header = append(header, fields...)
	header = append(header, receiptIndexColumn, receiptPolygonColumn)
	for _, name := range aiColumns {
		header = append(header, constants.AIColumnPrefix+name)
	}
	return header
}

// buildRow renders one output row. region may be nil (page without
// receipt areas) and ann may be nil (annotation disabled or failed);
// both render as empty cells.
func buildRow(rec ocr.PageRecord, fields []string, region *receipt.Region, ann *annotate.Annotation, aiColumns []string) []string {
	row := make([]string, 0, len(baseColumns)+len(fields)+2+len(aiColumns))
	row = append(row, rec.FolderName, rec.FileName, rec.ModelID, string(rec.FormType), strconv.Itoa(rec.Page))
	for _, f := range fields {
		row = append(row, rec.Fields[f])
	}
	if region == nil {
		row = append(row, "", "")
	} else {
		row = append(row, strconv.Itoa(region.Index), region.PolygonString())
	}
	for _, name := range aiColumns {
		col, _ := constants.CanonicalizeAIColumn(name)
		row = append(row, ann.Value(col))
	}
	return row
}

// keyedRow pairs the rendered cells with their ordering key so rows from
// concurrent workers sort back into one deterministic sequence.
type keyedRow struct {
	folder string
	file   string
	page   int
	region int
	cells  []string
}

func sortRows(rows []keyedRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.folder != b.folder {
			return a.folder < b.folder
		}
		if a.file != b.file {
			return a.file < b.file
		}
		if a.page != b.page {
			return a.page < b.page
		}
		return a.region < b.region
	})
}
