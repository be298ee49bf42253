package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vnpt-kd/kpi-plan-api/internal/dto"
	"github.com/vnpt-kd/kpi-plan-api/internal/middleware"
	appErrors "github.com/vnpt-kd/kpi-plan-api/pkg/errors"
)

type dashboardServiceMock struct {
	resp       *dto.DashboardResponse
	cacheHit   bool
	err        error
	lastFilter dto.DashboardFilter
}

func (m *dashboardServiceMock) Summary(ctx context.Context, filter dto.DashboardFilter) (*dto.DashboardResponse, bool, error) {
	m.lastFilter = filter
	return m.resp, m.cacheHit, m.err
}

func TestDashboardHandlerSummarySuccess(t *testing.T) {
	mock := &dashboardServiceMock{resp: &dto.DashboardResponse{}}
	h := NewDashboardHandler(mock)
	c, w := testContext(t, http.MethodGet, "/dashboard?year=2025&week=Tu%E1%BA%A7n%2023", nil)
	c.Set(middleware.ContextUserKey, managerClaims())

	h.Summary(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "2025", mock.lastFilter.Year)
	require.Equal(t, "Tuần 23", mock.lastFilter.Week)
	require.Empty(t, mock.lastFilter.EmployeeID)
	require.Contains(t, w.Body.String(), "processing_time_ms")
}

func TestDashboardHandlerScopesEmployeeToSelf(t *testing.T) {
	mock := &dashboardServiceMock{resp: &dto.DashboardResponse{}}
	h := NewDashboardHandler(mock)
	c, w := testContext(t, http.MethodGet, "/dashboard?employee_id=NV999", nil)
	c.Set(middleware.ContextUserKey, employeeClaims())

	h.Summary(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "NV001", mock.lastFilter.EmployeeID)
}

func TestDashboardHandlerServiceError(t *testing.T) {
	h := NewDashboardHandler(&dashboardServiceMock{err: appErrors.ErrInternal})
	c, w := testContext(t, http.MethodGet, "/dashboard", nil)
	c.Set(middleware.ContextUserKey, managerClaims())

	h.Summary(c)
	require.Equal(t, http.StatusInternalServerError, w.Code)
}
