package export

import (
	"bytes"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleTable() *Table {
	return &Table{
		Header: []string{"folder_name", "filename", "amount", "purpose"},
		Rows: [][]string{
			{"scans", "a.pdf", "1,200", "会合費"},
			{"scans", "b.png", "800", "line one\nline two"},
		},
	}
}

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"output.csv", FormatCSV},
		{"output.tsv", FormatTSV},
		{"output.xlsx", FormatXLSX},
		{"OUTPUT.TSV", FormatTSV},
		{"output.txt", FormatCSV},
		{"output", FormatCSV},
		{filepath.Join("deep", "dir", "out.xlsx"), FormatXLSX},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatForPath(tt.path), tt.path)
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	table := sampleTable()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table))

	r := csv.NewReader(&buf)
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, table.Header, records[0])
	assert.Equal(t, table.Rows[0], records[1])
	assert.Equal(t, table.Rows[1], records[2], "embedded newline survives quoting")
}

func TestWriteTSVRoundTrip(t *testing.T) {
	table := &Table{
		Header: []string{"filename", "notes"},
		Rows:   [][]string{{"a.pdf", "has\ttab"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTSV(&buf, table))

	r := csv.NewReader(&buf)
	r.Comma = '\t'
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"a.pdf", "has\ttab"}, records[1])

	firstLine, _, _ := strings.Cut(buf.String(), "\n")
	assert.Equal(t, "filename\tnotes", firstLine)
}

func TestWriteFileCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	require.NoError(t, WriteFile(path, sampleTable(), testLogger()))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	r := csv.NewReader(bytes.NewReader(b))
	records, err := r.ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestWriteFileXLSX(t *testing.T) {
	table := sampleTable()
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteFile(path, table, testLogger()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, table.Header, rows[0])
	assert.Equal(t, table.Rows[0], rows[1])
}

func TestXLSXBytes(t *testing.T) {
	b, err := XLSXBytes(sampleTable())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "会合費", rows[1][3])
}

func TestWriteFileEmptyTable(t *testing.T) {
	table := &Table{Header: []string{"folder_name", "filename"}}
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteFile(path, table, testLogger()))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "folder_name,filename\n", string(b))
}
