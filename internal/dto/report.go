package dto

// ExportFormat selects the rendered file type.
type ExportFormat string

const (
	ExportXLSX ExportFormat = "xlsx"
	ExportPDF  ExportFormat = "pdf"
	ExportCSV  ExportFormat = "csv"
)

// ExportFilter scopes which plans make it into the summary report.
type ExportFilter struct {
	Week       string `form:"week" json:"week"`
	Date       string `form:"date" json:"date"`
	EmployeeID string `form:"employee_id" json:"employee_id"`
	Status     string `form:"status" json:"status"`
}

// ExportRequest asks for a rendered summary report.
type ExportRequest struct {
	Filter ExportFilter
	Format ExportFormat
}

// ExportResult is the rendered report ready for download.
type ExportResult struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"-"`
	RowCount    int    `json:"row_count"`
}

// ReportJobRequest queues a report for background rendering.
type ReportJobRequest struct {
	Format ExportFormat `json:"format"`
	Filter ExportFilter `json:"filter"`
}

// ReportJobResponse acknowledges a queued report job.
type ReportJobResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
}

// ReportStatusResponse exposes job progress and, once finished, the signed
// download link.
type ReportStatusResponse struct {
	ID        string  `json:"id"`
	Status    string  `json:"status"`
	Progress  int     `json:"progress"`
	ResultURL *string `json:"result_url,omitempty"`
	Error     *string `json:"error,omitempty"`
}
