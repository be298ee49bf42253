package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// ExcelExporter renders Sheet layouts into xlsx workbooks.
type ExcelExporter struct{}

// NewExcelExporter constructs an Excel exporter.
func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

// Render produces an xlsx file with a merged title banner, a two-level
// header and one row per record.
func (e *ExcelExporter) Render(sheet Sheet) ([]byte, error) {
	if sheet.ColumnCount() == 0 {
		return nil, fmt.Errorf("xlsx requires at least one column")
	}

	f := excelize.NewFile()
	defer f.Close()

	lastCol, err := excelize.ColumnNumberToName(sheet.ColumnCount())
	if err != nil {
		return nil, fmt.Errorf("resolve last column: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("build title style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    thinBorders(),
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return nil, fmt.Errorf("build header style: %w", err)
	}
	cellStyle, err := f.NewStyle(&excelize.Style{
		Border:    thinBorders(),
		Alignment: &excelize.Alignment{Vertical: "center", WrapText: true},
	})
	if err != nil {
		return nil, fmt.Errorf("build cell style: %w", err)
	}
	dayBreakStyle, err := f.NewStyle(&excelize.Style{
		Border: []excelize.Border{
			{Type: "left", Style: 1, Color: "000000"},
			{Type: "right", Style: 1, Color: "000000"},
			{Type: "top", Style: 5, Color: "4472C4"},
			{Type: "bottom", Style: 1, Color: "000000"},
		},
		Alignment: &excelize.Alignment{Vertical: "center", WrapText: true},
	})
	if err != nil {
		return nil, fmt.Errorf("build day break style: %w", err)
	}

	// Title and info banner.
	if err := f.SetCellValue(sheetName, "A1", sheet.Title); err != nil {
		return nil, fmt.Errorf("write title: %w", err)
	}
	if err := f.MergeCell(sheetName, "A1", fmt.Sprintf("%s1", lastCol)); err != nil {
		return nil, fmt.Errorf("merge title: %w", err)
	}
	_ = f.SetCellStyle(sheetName, "A1", fmt.Sprintf("%s1", lastCol), titleStyle)
	_ = f.SetRowHeight(sheetName, 1, 28)

	if err := f.SetCellValue(sheetName, "A2", sheet.Info); err != nil {
		return nil, fmt.Errorf("write info row: %w", err)
	}
	if err := f.MergeCell(sheetName, "A2", fmt.Sprintf("%s2", lastCol)); err != nil {
		return nil, fmt.Errorf("merge info row: %w", err)
	}

	// Two-level header: row 3 holds group labels merged over their span,
	// row 4 holds sub-column labels. Single-span groups merge vertically.
	const groupRow, subRow = 3, 4
	col := 1
	for _, group := range sheet.Groups {
		span := group.Span
		if span < 1 {
			span = 1
		}
		startCell, err := excelize.CoordinatesToCellName(col, groupRow)
		if err != nil {
			return nil, fmt.Errorf("resolve header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, startCell, group.Label); err != nil {
			return nil, fmt.Errorf("write header group: %w", err)
		}
		if span > 1 {
			endCell, _ := excelize.CoordinatesToCellName(col+span-1, groupRow)
			if err := f.MergeCell(sheetName, startCell, endCell); err != nil {
				return nil, fmt.Errorf("merge header group: %w", err)
			}
		} else {
			endCell, _ := excelize.CoordinatesToCellName(col, subRow)
			if err := f.MergeCell(sheetName, startCell, endCell); err != nil {
				return nil, fmt.Errorf("merge single header: %w", err)
			}
		}
		col += span
	}
	for i, column := range sheet.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, subRow)
		if err != nil {
			return nil, fmt.Errorf("resolve sub header cell: %w", err)
		}
		current, _ := f.GetCellValue(sheetName, cell)
		if current == "" {
			if err := f.SetCellValue(sheetName, cell, column.Label); err != nil {
				return nil, fmt.Errorf("write sub header: %w", err)
			}
		}
		colName, _ := excelize.ColumnNumberToName(i + 1)
		if column.Width > 0 {
			_ = f.SetColWidth(sheetName, colName, colName, column.Width)
		}
	}
	headerStart, _ := excelize.CoordinatesToCellName(1, groupRow)
	headerEnd, _ := excelize.CoordinatesToCellName(sheet.ColumnCount(), subRow)
	_ = f.SetCellStyle(sheetName, headerStart, headerEnd, headerStyle)

	// Data rows.
	breaks := make(map[int]struct{}, len(sheet.DayBreaks))
	for _, idx := range sheet.DayBreaks {
		breaks[idx] = struct{}{}
	}
	for rowIdx, row := range sheet.Rows {
		rowNum := subRow + 1 + rowIdx
		for colIdx, value := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowNum)
			if err != nil {
				return nil, fmt.Errorf("resolve data cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, fmt.Errorf("write data cell: %w", err)
			}
		}
		startCell, _ := excelize.CoordinatesToCellName(1, rowNum)
		endCell, _ := excelize.CoordinatesToCellName(sheet.ColumnCount(), rowNum)
		style := cellStyle
		if _, ok := breaks[rowIdx]; ok {
			style = dayBreakStyle
		}
		_ = f.SetCellStyle(sheetName, startCell, endCell, style)
	}

	// Signature footer.
	footerRow := subRow + len(sheet.Rows) + 3
	footerCol := sheet.ColumnCount() - 3
	if footerCol < 1 {
		footerCol = 1
	}
	for i, line := range sheet.Footer {
		cell, err := excelize.CoordinatesToCellName(footerCol, footerRow+i)
		if err != nil {
			return nil, fmt.Errorf("resolve footer cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, line); err != nil {
			return nil, fmt.Errorf("write footer: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func thinBorders() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Style: 1, Color: "000000"},
		{Type: "right", Style: 1, Color: "000000"},
		{Type: "top", Style: 1, Color: "000000"},
		{Type: "bottom", Style: 1, Color: "000000"},
	}
}
