package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVExporter renders Sheet layouts into CSV bytes using the flattened
// column labels as the header row.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the sheet.
func (e *CSVExporter) Render(sheet Sheet) ([]byte, error) {
	if sheet.ColumnCount() == 0 {
		return nil, fmt.Errorf("csv requires at least one column")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	header := make([]string, sheet.ColumnCount())
	for i, column := range sheet.Columns {
		header[i] = column.Label
	}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}

	for _, row := range sheet.Rows {
		record := make([]string, sheet.ColumnCount())
		for i := 0; i < sheet.ColumnCount() && i < len(row); i++ {
			record[i] = row[i]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
