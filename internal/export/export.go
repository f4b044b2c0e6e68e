// Package export writes the batch output table as CSV, TSV, or an XLSX
// workbook, chosen by the output file extension.
package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/polifund/fundscan/internal/common"
)

// Table is the flattened result of one batch run: a header and one row
// of cells per (file, page, receipt region).
type Table struct {
	Header []string
	Rows   [][]string
}

// Format names one supported output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
)

// FormatForPath picks the format from the file extension. Unrecognized
// extensions write CSV.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv":
		return FormatTSV
	case ".xlsx":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// WriteFile writes the table to path in the format named by its
// extension, creating parent directories as needed.
func WriteFile(path string, table *Table, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return common.WrapError(err, "create output directory")
		}
	}

	format := FormatForPath(path)
	var err error
	switch format {
	case FormatXLSX:
		var b []byte
		if b, err = XLSXBytes(table); err == nil {
			err = os.WriteFile(path, b, 0o644)
		}
	default:
		err = writeDelimitedFile(path, table, delimiterFor(format))
	}
	if err != nil {
		return common.WrapError(err, fmt.Sprintf("write %s", path))
	}

	logger.Info("export.write.ok",
		"path", path,
		"format", string(format),
		"rows", len(table.Rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func delimiterFor(format Format) rune {
	if format == FormatTSV {
		return '\t'
	}
	return ','
}
