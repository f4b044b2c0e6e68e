package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// WriteCSV writes the table comma-separated.
func WriteCSV(w io.Writer, table *Table) error {
	return writeDelimited(w, table, ',')
}

// WriteTSV writes the table tab-separated.
func WriteTSV(w io.Writer, table *Table) error {
	return writeDelimited(w, table, '\t')
}

func writeDelimited(w io.Writer, table *Table, comma rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	if err := cw.Write(table.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range table.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeDelimitedFile(path string, table *Table, comma rune) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeDelimited(f, table, comma); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
