// Package ocr drives the Document Intelligence service and normalizes its
// per-page output into the record shape the batch pipeline consumes.
package ocr

import "github.com/polifund/fundscan/constants"

// Point is one polygon vertex in the coordinate unit reported by the
// service (pixels for images, inches for PDFs).
type Point struct {
	X float64
	Y float64
}

// Page is the geometry of one analyzed page.
type Page struct {
	Number int
	Width  float64
	Height float64
	Unit   string
}

// FieldRegion anchors a field value to an area of a page. Coordinates are
// kept verbatim as the service reported them.
type FieldRegion struct {
	Page    int
	Polygon []Point
}

// Field is one labeled value from the analyze response.
type Field struct {
	Name       string
	Value      string
	Confidence float64
	Regions    []FieldRegion
}

// Result is the service response for one file, reduced to what the
// pipeline consumes.
type Result struct {
	ModelID string
	Pages   []Page
	Fields  []Field
}

// PageRecord is one page of one analyzed file with its field values
// normalized to the form schema. Fields named by the schema but absent
// from the response hold the empty string; fields outside the schema are
// dropped.
type PageRecord struct {
	FolderName string
	FileName   string
	ModelID    string
	FormType   constants.FormType
	Page       int
	Width      float64
	Height     float64
	Unit       string

	Fields       map[string]string
	ReceiptAreas [][]Point
}

// FileResult carries the outcome of analyzing one file. A non-nil Err
// means the file was skipped after retries; the failure is already logged
// and must not abort the batch.
type FileResult struct {
	Path    string
	Records []PageRecord
	Err     error
}
