package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vnpt-kd/kpi-plan-api/internal/dto"
	"github.com/vnpt-kd/kpi-plan-api/internal/models"
	appErrors "github.com/vnpt-kd/kpi-plan-api/pkg/errors"
	"github.com/vnpt-kd/kpi-plan-api/pkg/export"
)

const reportTitle = "BÁO CÁO TỔNG HỢP KẾT QUẢ KINH DOANH VNPT - CHI TIẾT ĐÁNH GIÁ"

type excelRenderer interface {
	Render(sheet export.Sheet) ([]byte, error)
}

type pdfRenderer interface {
	Render(sheet export.Sheet) ([]byte, error)
}

type csvRenderer interface {
	Render(sheet export.Sheet) ([]byte, error)
}

// ExportConfig tunes report rendering.
type ExportConfig struct {
	FilePrefix string
}

// ExportService filters the plan snapshot and renders the Vietnamese summary
// report in the requested format.
type ExportService struct {
	plans  snapshotPlanLister
	excel  excelRenderer
	pdf    pdfRenderer
	csv    csvRenderer
	logger *zap.Logger
	now    func() time.Time
	cfg    ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(plans snapshotPlanLister, cfg ExportConfig, logger *zap.Logger, excel excelRenderer, pdf pdfRenderer, csv csvRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FilePrefix == "" {
		cfg.FilePrefix = "Bao_Cao_Hieu_Qua_Chi_Tiet"
	}
	if excel == nil {
		excel = export.NewExcelExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	return &ExportService{plans: plans, excel: excel, pdf: pdf, csv: csv, logger: logger, now: time.Now, cfg: cfg}
}

// Generate renders the filtered summary report.
func (s *ExportService) Generate(ctx context.Context, req dto.ExportRequest) (*dto.ExportResult, error) {
	plans, err := s.plans.List(ctx)
	if err != nil {
		return nil, err
	}

	filtered := filterForExport(plans, req.Filter)
	sheet := s.buildSheet(filtered)

	var payload []byte
	var contentType string
	switch req.Format {
	case dto.ExportXLSX, "":
		payload, err = s.excel.Render(sheet)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case dto.ExportPDF:
		payload, err = s.pdf.Render(sheet)
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", req.Format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "report rendering failed")
	}

	ext := string(req.Format)
	if ext == "" {
		ext = string(dto.ExportXLSX)
	}
	return &dto.ExportResult{
		Filename:    s.buildFilename(req.Filter, ext),
		ContentType: contentType,
		Content:     payload,
		RowCount:    len(filtered),
	}, nil
}

// GenerateCSV renders the same filtered dataset as CSV, used by bulk data
// pulls that do not need the styled workbook.
func (s *ExportService) GenerateCSV(ctx context.Context, filter dto.ExportFilter) (*dto.ExportResult, error) {
	plans, err := s.plans.List(ctx)
	if err != nil {
		return nil, err
	}
	filtered := filterForExport(plans, filter)
	sheet := s.buildSheet(filtered)

	payload, err := s.csv.Render(sheet)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "report rendering failed")
	}
	return &dto.ExportResult{
		Filename:    s.buildFilename(filter, "csv"),
		ContentType: "text/csv",
		Content:     payload,
		RowCount:    len(filtered),
	}, nil
}

// filterForExport keeps plans matching every set filter dimension, then
// sorts ascending by date with ties broken by case-insensitive name.
func filterForExport(plans []models.Plan, filter dto.ExportFilter) []models.Plan {
	filtered := make([]models.Plan, 0, len(plans))
	for i := range plans {
		p := &plans[i]
		if filter.Week != "" && p.WeekNumber != filter.Week {
			continue
		}
		if filter.Date != "" && p.Date != filter.Date {
			continue
		}
		if filter.EmployeeID != "" && p.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.Status != "" && string(p.Status) != filter.Status {
			continue
		}
		filtered = append(filtered, *p)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Date != filtered[j].Date {
			return filtered[i].Date < filtered[j].Date
		}
		return strings.ToLower(filtered[i].EmployeeName) < strings.ToLower(filtered[j].EmployeeName)
	})
	return filtered
}

func (s *ExportService) buildSheet(plans []models.Plan) export.Sheet {
	sheet := export.Sheet{
		Title:   reportTitle,
		Info:    fmt.Sprintf("Ngày xuất: %s | Số lượng: %d bản ghi", s.now().Format("02/01/2006"), len(plans)),
		Groups:  reportGroups(),
		Columns: reportColumns(),
		Footer: []string{
			"NGƯỜI LẬP BIỂU",
			"",
			"",
			"THỦ TRƯỞNG ĐƠN VỊ",
		},
	}

	previousDate := ""
	for i := range plans {
		p := &plans[i]
		// Day boundaries come from a single pass against the previous row.
		if p.Date != previousDate {
			if previousDate != "" {
				sheet.DayBreaks = append(sheet.DayBreaks, len(sheet.Rows))
			}
			previousDate = p.Date
		}
		sheet.Rows = append(sheet.Rows, []string{
			strconv.Itoa(i + 1),
			p.WeekNumber,
			p.Date,
			p.EmployeeName,
			p.Area,
			p.Collaborators,
			p.WorkContent,
			formatCount(p.SIMTarget), formatCount(p.SIMResult),
			formatCount(p.FiberTarget), formatCount(p.FiberResult),
			formatCount(p.MyTVTarget), formatCount(p.MyTVResult),
			formatCount(p.MeshCameraTarget), formatCount(p.MeshCameraResult),
			formatCount(p.CNTTTarget), formatCount(p.CNTTResult),
			formatMillions(p.RevenueCNTTTarget), formatMillions(p.RevenueCNTTResult),
			strconv.Itoa(p.CustomersContacted),
			strconv.Itoa(p.ContractsSigned),
			statusLabel(p.Status),
			formatCount(p.BonusScore),
			formatCount(p.PenaltyScore),
			p.ManagerComment,
		})
	}
	return sheet
}

func (s *ExportService) buildFilename(filter dto.ExportFilter, ext string) string {
	suffix := s.now().Format("2006-01-02")
	if filter.Date != "" {
		suffix = filter.Date
	} else if filter.Week != "" {
		suffix = strings.ReplaceAll(filter.Week, " ", "")
	}
	return fmt.Sprintf("%s_%s.%s", s.cfg.FilePrefix, suffix, ext)
}

func reportGroups() []export.HeaderGroup {
	return []export.HeaderGroup{
		{Label: "STT", Span: 1},
		{Label: "Tuần", Span: 1},
		{Label: "Ngày", Span: 1},
		{Label: "Nhân viên", Span: 1},
		{Label: "Địa bàn", Span: 1},
		{Label: "Phối hợp", Span: 1},
		{Label: "Nội dung công việc", Span: 1},
		{Label: "SIM", Span: 2},
		{Label: "Fiber", Span: 2},
		{Label: "MyTV", Span: 2},
		{Label: "Mesh - Camera", Span: 2},
		{Label: "CNTT", Span: 2},
		{Label: "DT CNTT (tr.đ)", Span: 2},
		{Label: "KH Tiếp cận", Span: 1},
		{Label: "HĐ Ký", Span: 1},
		{Label: "Trạng thái", Span: 1},
		{Label: "Điểm Cộng", Span: 1},
		{Label: "Điểm Trừ", Span: 1},
		{Label: "Nhận Xét Quản Lý", Span: 1},
	}
}

func reportColumns() []export.Column {
	columns := []export.Column{
		{Label: "STT", Width: 5},
		{Label: "Tuần", Width: 10},
		{Label: "Ngày", Width: 12},
		{Label: "Nhân viên", Width: 20},
		{Label: "Địa bàn", Width: 14},
		{Label: "Phối hợp", Width: 14},
		{Label: "Nội dung công việc", Width: 30},
	}
	for i := 0; i < 6; i++ {
		columns = append(columns,
			export.Column{Label: "Chỉ tiêu", Width: 9},
			export.Column{Label: "Kết quả", Width: 9},
		)
	}
	columns = append(columns,
		export.Column{Label: "KH Tiếp cận", Width: 10},
		export.Column{Label: "HĐ Ký", Width: 8},
		export.Column{Label: "Trạng thái", Width: 12},
		export.Column{Label: "Điểm Cộng", Width: 9},
		export.Column{Label: "Điểm Trừ", Width: 9},
		export.Column{Label: "Nhận Xét Quản Lý", Width: 25},
	)
	return columns
}

// statusLabel maps internal status codes onto the Vietnamese report
// vocabulary. Unknown values pass through unchanged.
func statusLabel(status models.PlanStatus) string {
	switch status {
	case models.PlanStatusCompleted:
		return "Hoàn thành"
	case models.PlanStatusPending:
		return "Chờ duyệt"
	case models.PlanStatusRejected:
		return "Từ chối"
	case models.PlanStatusApproved:
		return "Đã duyệt"
	default:
		return string(status)
	}
}

func formatCount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatMillions renders CNTT revenue in millions with one decimal. The
// stored value stays in đồng; the division happens only at format time.
func formatMillions(v float64) string {
	return strconv.FormatFloat(v/1000000, 'f', 1, 64)
}
