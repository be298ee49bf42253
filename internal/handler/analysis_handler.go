package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnpt-kd/kpi-plan-api/internal/dto"
	"github.com/vnpt-kd/kpi-plan-api/internal/models"
	appErrors "github.com/vnpt-kd/kpi-plan-api/pkg/errors"
	"github.com/vnpt-kd/kpi-plan-api/pkg/response"
)

type analysisService interface {
	Analyze(ctx context.Context, req dto.AnalysisRequest) (*dto.AnalysisResponse, error)
}

// AnalysisHandler exposes the monthly AI performance review endpoint.
type AnalysisHandler struct {
	service analysisService
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(svc analysisService) *AnalysisHandler {
	return &AnalysisHandler{service: svc}
}

// Analyze godoc
// @Summary Monthly AI performance review
// @Description Aggregates one employee's month and generates a structured review
// @Tags Analysis
// @Produce json
// @Param employee_id query string true "Employee ID"
// @Param month query string true "Month (YYYY-MM)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /analysis [get]
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	req := dto.AnalysisRequest{
		EmployeeID: c.Query("employee_id"),
		Month:      c.Query("month"),
	}
	// Employees may only review themselves.
	if claims.Role == models.RoleEmployee {
		req.EmployeeID = claims.EmployeeID
	}

	result, err := h.service.Analyze(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
