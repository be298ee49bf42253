package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vnpt-kd/kpi-plan-api/internal/dto"
	"github.com/vnpt-kd/kpi-plan-api/internal/middleware"
	"github.com/vnpt-kd/kpi-plan-api/internal/models"
	appErrors "github.com/vnpt-kd/kpi-plan-api/pkg/errors"
	"github.com/vnpt-kd/kpi-plan-api/pkg/response"
)

type dashboardService interface {
	Summary(ctx context.Context, filter dto.DashboardFilter) (*dto.DashboardResponse, bool, error)
}

// DashboardHandler wires the dashboard aggregation to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Summary godoc
// @Summary KPI dashboard summary
// @Description Aggregated service totals, employee leaderboard and weekly trend
// @Tags Dashboard
// @Produce json
// @Param year query string false "Year filter, 'All' or empty for all"
// @Param month query string false "Month filter (1-12)"
// @Param week query string false "Week label filter"
// @Param employee_id query string false "Employee filter"
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}

	var filter dto.DashboardFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid dashboard filter"))
		return
	}

	// Employees only ever see the window scoped to themselves.
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleEmployee {
		filter.EmployeeID = claims.EmployeeID
	}

	start := time.Now()
	summary, cacheHit, err := h.service.Summary(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, summary, nil, meta)
}
