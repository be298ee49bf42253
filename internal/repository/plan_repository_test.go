package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnpt-kd/kpi-plan-api/internal/models"
	appErrors "github.com/vnpt-kd/kpi-plan-api/pkg/errors"
)

func planRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "employee_id", "employee_name", "position", "date", "week_number", "area", "work_content", "collaborators", "challenges",
		"sim_target", "sim_result", "fiber_target", "fiber_result", "mytv_target", "mytv_result", "mesh_camera_target", "mesh_camera_result",
		"cntt_target", "cntt_result", "revenue_cntt_target", "revenue_cntt_result", "other_services_target", "other_services_result",
		"customers_contacted", "contracts_signed", "status", "adjustment_status", "adjustment_reason", "adjustment_data",
		"rating", "manager_comment", "attitude_score", "discipline_score", "effectiveness_score", "evidence_photo", "bonus_score", "penalty_score",
		"submitted_at", "approved_by", "approved_at", "returned_reason", "created_at",
	})
}

func addPlanRow(rows *sqlmock.Rows, id, employeeID, date, week string, status models.PlanStatus) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		id, employeeID, "Nguyen Van A", "Sales", date, week, "Khu vuc 1", "Ban hang", "", "",
		10.0, 8.0, 5.0, 5.0, 2.0, 1.0, 1.0, 0.0,
		3.0, 2.0, 1000000.0, 800000.0, 0.0, 0.0,
		12, 4, string(status), "", "", "",
		"", "", "", "", "", "", 0.0, 0.0,
		now, "", nil, "", now,
	)
}

func TestListPlans(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPlanRepository(db)

	rows := addPlanRow(planRows(), "p1", "NV001", "2025-06-02", "Tuần 23", models.PlanStatusCompleted)
	mock.ExpectQuery("SELECT (.+) FROM plans ORDER BY date ASC, created_at ASC").WillReturnRows(rows)

	plans, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "NV001", plans[0].EmployeeID)
	assert.Equal(t, models.PlanStatusCompleted, plans[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPlansSchemaMismatch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPlanRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM plans").
		WillReturnError(&pq.Error{Code: "42703", Message: `column "mesh_camera_target" does not exist`})

	_, err := repo.List(context.Background())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrSchemaMismatch.Code, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePlanAssignsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPlanRepository(db)

	mock.ExpectExec("INSERT INTO plans").WillReturnResult(sqlmock.NewResult(1, 1))

	plan := &models.Plan{EmployeeID: "NV001", EmployeeName: "A", Date: "2025-06-02", WeekNumber: "Tuần 23", Status: models.PlanStatusPending}
	err := repo.Create(context.Background(), plan)
	require.NoError(t, err)
	assert.NotEmpty(t, plan.ID)
	assert.False(t, plan.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePlanNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPlanRepository(db)

	mock.ExpectExec("UPDATE plans SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Plan{ID: "missing"})
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePlan(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPlanRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM plans WHERE id = $1")).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), "p1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
