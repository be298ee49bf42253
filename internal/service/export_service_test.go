package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vnpt-kd/kpi-plan-api/internal/dto"
	"github.com/vnpt-kd/kpi-plan-api/internal/models"
	appErrors "github.com/vnpt-kd/kpi-plan-api/pkg/errors"
	"github.com/vnpt-kd/kpi-plan-api/pkg/export"
)

type planListerStub struct {
	plans []models.Plan
	err   error
}

func (s *planListerStub) List(ctx context.Context) ([]models.Plan, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.plans, nil
}

type sheetRecorder struct {
	sheet   export.Sheet
	payload []byte
	err     error
}

func (r *sheetRecorder) Render(sheet export.Sheet) ([]byte, error) {
	r.sheet = sheet
	if r.err != nil {
		return nil, r.err
	}
	if r.payload == nil {
		r.payload = []byte("rendered")
	}
	return r.payload, nil
}

func exportPlans() []models.Plan {
	return []models.Plan{
		{
			ID: "p1", EmployeeID: "NV002", EmployeeName: "binh", Date: "2025-06-03",
			WeekNumber: "Tuần 23", Status: models.PlanStatusCompleted,
			RevenueCNTTTarget: 12500000, RevenueCNTTResult: 13750000,
		},
		{
			ID: "p2", EmployeeID: "NV001", EmployeeName: "An", Date: "2025-06-02",
			WeekNumber: "Tuần 23", Status: models.PlanStatusPending, SIMTarget: 10.5,
		},
		{
			ID: "p3", EmployeeID: "NV003", EmployeeName: "Cuc", Date: "2025-06-02",
			WeekNumber: "Tuần 23", Status: models.PlanStatusRejected,
		},
		{
			ID: "p4", EmployeeID: "NV001", EmployeeName: "An", Date: "2025-05-26",
			WeekNumber: "Tuần 22", Status: models.PlanStatusApproved,
		},
	}
}

func newExportServiceForTest(t *testing.T, plans []models.Plan) (*ExportService, *sheetRecorder) {
	t.Helper()
	recorder := &sheetRecorder{}
	svc := NewExportService(&planListerStub{plans: plans}, ExportConfig{}, zap.NewNop(), recorder, recorder, recorder)
	svc.now = func() time.Time { return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC) }
	return svc, recorder
}

func TestExportGenerateDefaultsToExcel(t *testing.T) {
	svc, recorder := newExportServiceForTest(t, exportPlans())

	result, err := svc.Generate(context.Background(), dto.ExportRequest{})
	require.NoError(t, err)

	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", result.ContentType)
	assert.Equal(t, "Bao_Cao_Hieu_Qua_Chi_Tiet_2025-06-15.xlsx", result.Filename)
	assert.Equal(t, 4, result.RowCount)
	assert.Equal(t, "BÁO CÁO TỔNG HỢP KẾT QUẢ KINH DOANH VNPT - CHI TIẾT ĐÁNH GIÁ", recorder.sheet.Title)
	assert.Equal(t, "Ngày xuất: 15/06/2025 | Số lượng: 4 bản ghi", recorder.sheet.Info)
}

func TestExportRowsSortByDateThenName(t *testing.T) {
	svc, recorder := newExportServiceForTest(t, exportPlans())

	_, err := svc.Generate(context.Background(), dto.ExportRequest{})
	require.NoError(t, err)

	rows := recorder.sheet.Rows
	require.Len(t, rows, 4)
	assert.Equal(t, "2025-05-26", rows[0][2])
	// Same date ties break on case-insensitive name: An before binh is not
	// relevant here, but An before Cuc on 2025-06-02 is.
	assert.Equal(t, "An", rows[1][3])
	assert.Equal(t, "Cuc", rows[2][3])
	assert.Equal(t, "binh", rows[3][3])
	// Day breaks sit at every date change past the first row.
	assert.Equal(t, []int{1, 3}, recorder.sheet.DayBreaks)
}

func TestExportStatusLabelsAreVietnamese(t *testing.T) {
	svc, recorder := newExportServiceForTest(t, exportPlans())

	_, err := svc.Generate(context.Background(), dto.ExportRequest{})
	require.NoError(t, err)

	statusByName := map[string]string{}
	for _, row := range recorder.sheet.Rows {
		statusByName[row[3]+row[2]] = row[21]
	}
	assert.Equal(t, "Đã duyệt", statusByName["An2025-05-26"])
	assert.Equal(t, "Chờ duyệt", statusByName["An2025-06-02"])
	assert.Equal(t, "Từ chối", statusByName["Cuc2025-06-02"])
	assert.Equal(t, "Hoàn thành", statusByName["binh2025-06-03"])
}

func TestExportRevenueRendersInMillions(t *testing.T) {
	svc, recorder := newExportServiceForTest(t, exportPlans())

	_, err := svc.Generate(context.Background(), dto.ExportRequest{})
	require.NoError(t, err)

	// binh's row holds the CNTT revenue pair, stored in đồng.
	row := recorder.sheet.Rows[3]
	assert.Equal(t, "12.5", row[17])
	assert.Equal(t, "13.8", row[18])
}

func TestExportFilterNarrowsRows(t *testing.T) {
	svc, _ := newExportServiceForTest(t, exportPlans())

	result, err := svc.Generate(context.Background(), dto.ExportRequest{
		Filter: dto.ExportFilter{Week: "Tuần 23", EmployeeID: "NV001"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount)
}

func TestExportFilenameSuffixPrecedence(t *testing.T) {
	svc, _ := newExportServiceForTest(t, exportPlans())

	byDate, err := svc.Generate(context.Background(), dto.ExportRequest{
		Filter: dto.ExportFilter{Date: "2025-06-02", Week: "Tuần 23"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bao_Cao_Hieu_Qua_Chi_Tiet_2025-06-02.xlsx", byDate.Filename)

	byWeek, err := svc.Generate(context.Background(), dto.ExportRequest{
		Format: dto.ExportPDF,
		Filter: dto.ExportFilter{Week: "Tuần 23"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bao_Cao_Hieu_Qua_Chi_Tiet_Tuần23.pdf", byWeek.Filename)
}

func TestExportUnsupportedFormat(t *testing.T) {
	svc, _ := newExportServiceForTest(t, exportPlans())

	_, err := svc.Generate(context.Background(), dto.ExportRequest{Format: "docx"})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestExportCSV(t *testing.T) {
	svc, _ := newExportServiceForTest(t, exportPlans())

	result, err := svc.GenerateCSV(context.Background(), dto.ExportFilter{Status: string(models.PlanStatusCompleted)})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, 1, result.RowCount)
	assert.Equal(t, "Bao_Cao_Hieu_Qua_Chi_Tiet_2025-06-15.csv", result.Filename)
}

func TestExportEmptyDatasetStillRenders(t *testing.T) {
	svc, recorder := newExportServiceForTest(t, nil)

	result, err := svc.Generate(context.Background(), dto.ExportRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.RowCount)
	assert.Empty(t, recorder.sheet.Rows)
	assert.Empty(t, recorder.sheet.DayBreaks)
}
