package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/vnpt-kd/kpi-plan-api/internal/dto"
	"github.com/vnpt-kd/kpi-plan-api/internal/middleware"
	"github.com/vnpt-kd/kpi-plan-api/internal/models"
	"github.com/vnpt-kd/kpi-plan-api/internal/service"
	appErrors "github.com/vnpt-kd/kpi-plan-api/pkg/errors"
)

type exportServiceMock struct {
	result  *dto.ExportResult
	err     error
	lastReq dto.ExportRequest
}

func (m *exportServiceMock) Generate(ctx context.Context, req dto.ExportRequest) (*dto.ExportResult, error) {
	m.lastReq = req
	return m.result, m.err
}

type reportJobServiceMock struct {
	job      *dto.ReportJobResponse
	status   *dto.ReportStatusResponse
	download *service.ReportDownload
	err      error
}

func (m *reportJobServiceMock) CreateJob(ctx context.Context, req dto.ReportJobRequest, actor models.UserInfo) (*dto.ReportJobResponse, error) {
	return m.job, m.err
}

func (m *reportJobServiceMock) GetStatus(ctx context.Context, id string, actor models.UserInfo) (*dto.ReportStatusResponse, error) {
	return m.status, m.err
}

func (m *reportJobServiceMock) ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error) {
	return m.download, m.err
}

func TestReportHandlerExportSetsDownloadHeaders(t *testing.T) {
	exports := &exportServiceMock{result: &dto.ExportResult{
		Filename:    "Bao_Cao_Hieu_Qua_Chi_Tiet_2025-06-15.xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Content:     []byte("xlsx-bytes"),
		RowCount:    4,
	}}
	h := NewReportHandler(exports, &reportJobServiceMock{})
	c, w := testContext(t, http.MethodGet, "/reports/export?week=Tu%E1%BA%A7n%2023", nil)
	c.Set(middleware.ContextUserKey, managerClaims())

	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Disposition"), "Bao_Cao_Hieu_Qua_Chi_Tiet_2025-06-15.xlsx")
	require.Equal(t, "4", w.Header().Get("X-Row-Count"))
	require.Equal(t, "xlsx-bytes", w.Body.String())
	require.Equal(t, "Tuần 23", exports.lastReq.Filter.Week)
}

func TestReportHandlerExportScopesEmployeeToSelf(t *testing.T) {
	exports := &exportServiceMock{result: &dto.ExportResult{Filename: "r.csv", ContentType: "text/csv"}}
	h := NewReportHandler(exports, &reportJobServiceMock{})
	c, w := testContext(t, http.MethodGet, "/reports/export?employee_id=NV999", nil)
	c.Set(middleware.ContextUserKey, employeeClaims())

	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "NV001", exports.lastReq.Filter.EmployeeID)
}

func TestReportHandlerExportUnsupportedFormat(t *testing.T) {
	exports := &exportServiceMock{err: appErrors.Clone(appErrors.ErrValidation, "unsupported export format")}
	h := NewReportHandler(exports, &reportJobServiceMock{})
	c, w := testContext(t, http.MethodGet, "/reports/export?format=docx", nil)
	c.Set(middleware.ContextUserKey, managerClaims())

	h.Export(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerCreateJobAccepted(t *testing.T) {
	reports := &reportJobServiceMock{job: &dto.ReportJobResponse{ID: "job-1", Status: "QUEUED"}}
	h := NewReportHandler(&exportServiceMock{}, reports)
	c, w := testContext(t, http.MethodPost, "/reports/jobs", []byte(`{"format":"pdf","filter":{"week":"Tuần 23"}}`))
	c.Set(middleware.ContextUserKey, employeeClaims())

	h.CreateJob(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Contains(t, w.Body.String(), "job-1")
	require.Contains(t, w.Body.String(), "QUEUED")
}

func TestReportHandlerJobStatusNotFound(t *testing.T) {
	h := NewReportHandler(&exportServiceMock{}, &reportJobServiceMock{err: appErrors.ErrNotFound})
	c, w := testContext(t, http.MethodGet, "/reports/jobs/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	c.Set(middleware.ContextUserKey, employeeClaims())

	h.JobStatus(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportHandlerDownloadStreamsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("rendered-report"), 0o600))
	file, err := os.Open(path)
	require.NoError(t, err)

	reports := &reportJobServiceMock{download: &service.ReportDownload{
		File:        file,
		Filename:    "report.xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		ExpiresAt:   time.Now().Add(time.Hour),
	}}
	h := NewReportHandler(&exportServiceMock{}, reports)
	c, w := testContext(t, http.MethodGet, "/reports/download/tok", nil)
	c.Params = gin.Params{{Key: "token", Value: "tok"}}

	h.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "rendered-report", w.Body.String())
	require.Contains(t, w.Header().Get("Content-Disposition"), "report.xlsx")
}

func TestReportHandlerDownloadExpiredToken(t *testing.T) {
	h := NewReportHandler(&exportServiceMock{}, &reportJobServiceMock{err: appErrors.Clone(appErrors.ErrForbidden, "download link expired")})
	c, w := testContext(t, http.MethodGet, "/reports/download/stale", nil)
	c.Params = gin.Params{{Key: "token", Value: "stale"}}

	h.Download(c)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "download link expired")
}
