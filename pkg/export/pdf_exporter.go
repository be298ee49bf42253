package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders Sheet layouts into a tabular PDF. The two header
// levels collapse into one row of flattened column labels; PDF output trades
// the merged-cell layout for print friendliness.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a landscape PDF document with the sheet title and table body.
func (e *PDFExporter) Render(sheet Sheet) ([]byte, error) {
	if sheet.ColumnCount() == 0 {
		return nil, fmt.Errorf("pdf requires at least one column")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if sheet.Title != "" {
		pdf.SetFont("Arial", "B", 13)
		pdf.CellFormat(0, 10, sheet.Title, "", 1, "C", false, 0, "")
	}
	if sheet.Info != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 7, sheet.Info, "", 1, "C", false, 0, "")
	}
	pdf.Ln(3)

	pdf.SetFont("Arial", "B", 7)
	colWidth := 277.0 / float64(sheet.ColumnCount())
	for _, column := range sheet.Columns {
		pdf.CellFormat(colWidth, 8, column.Label, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 7)
	for _, row := range sheet.Rows {
		for i := 0; i < sheet.ColumnCount(); i++ {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			pdf.CellFormat(colWidth, 6, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(sheet.Footer) > 0 {
		pdf.Ln(8)
		pdf.SetFont("Arial", "", 9)
		for _, line := range sheet.Footer {
			pdf.CellFormat(0, 6, line, "", 1, "R", false, 0, "")
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
