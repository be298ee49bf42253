package export

// HeaderGroup is a top-level header cell. A span greater than one merges the
// label across that many sub-columns.
type HeaderGroup struct {
	Label string
	Span  int
}

// Column is one flattened sub-column of the sheet.
type Column struct {
	Label string
	Width float64
}

// Sheet is the renderer-independent report layout: a title banner, an info
// line, a two-level header, data rows and signature footer lines.
type Sheet struct {
	Title   string
	Info    string
	Groups  []HeaderGroup
	Columns []Column
	Rows    [][]string
	// DayBreaks lists row indexes (into Rows) that start a new date and get
	// a visual separator.
	DayBreaks []int
	Footer    []string
}

// ColumnCount returns the number of flattened columns.
func (s Sheet) ColumnCount() int {
	return len(s.Columns)
}
