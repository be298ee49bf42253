package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnpt-kd/kpi-plan-api/internal/dto"
	"github.com/vnpt-kd/kpi-plan-api/internal/models"
	"github.com/vnpt-kd/kpi-plan-api/internal/service"
	appErrors "github.com/vnpt-kd/kpi-plan-api/pkg/errors"
	"github.com/vnpt-kd/kpi-plan-api/pkg/response"
)

type exportService interface {
	Generate(ctx context.Context, req dto.ExportRequest) (*dto.ExportResult, error)
}

type reportJobService interface {
	CreateJob(ctx context.Context, req dto.ReportJobRequest, actor models.UserInfo) (*dto.ReportJobResponse, error)
	GetStatus(ctx context.Context, id string, actor models.UserInfo) (*dto.ReportStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error)
}

// ReportHandler exposes synchronous report downloads and the background job
// endpoints for larger exports.
type ReportHandler struct {
	exports exportService
	reports reportJobService
}

// NewReportHandler constructs handler.
func NewReportHandler(exports exportService, reports reportJobService) *ReportHandler {
	return &ReportHandler{exports: exports, reports: reports}
}

// Export godoc
// @Summary Download the business summary report
// @Description Renders the filtered report synchronously in xlsx or pdf
// @Tags Reports
// @Produce application/octet-stream
// @Param format query string false "xlsx (default) or pdf"
// @Param week query string false "Week label filter"
// @Param date query string false "Date filter (YYYY-MM-DD)"
// @Param employee_id query string false "Employee filter"
// @Param status query string false "Status filter"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /reports/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter dto.ExportFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export filter"))
		return
	}
	if claims.Role == models.RoleEmployee {
		filter.EmployeeID = claims.EmployeeID
	}

	result, err := h.exports.Generate(c.Request.Context(), dto.ExportRequest{
		Format: dto.ExportFormat(c.Query("format")),
		Filter: filter,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("X-Row-Count", fmt.Sprintf("%d", result.RowCount))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

// CreateJob godoc
// @Summary Queue a background report job
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.ReportJobRequest true "Report job payload"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports/jobs [post]
func (h *ReportHandler) CreateJob(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ReportJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report job payload"))
		return
	}

	job, err := h.reports.CreateJob(c.Request.Context(), req, actorFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// JobStatus godoc
// @Summary Report job status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/jobs/{id} [get]
func (h *ReportHandler) JobStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	status, err := h.reports.GetStatus(c.Request.Context(), c.Param("id"), actorFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download a finished report by signed token
// @Tags Reports
// @Produce application/octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /reports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	download, err := h.reports.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.Header("Content-Type", download.ContentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, download.File); err != nil {
		_ = c.Error(err)
	}
}
