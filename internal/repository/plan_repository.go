package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vnpt-kd/kpi-plan-api/internal/models"
)

const planColumns = `id, employee_id, employee_name, position, date, week_number, area, work_content, collaborators, challenges,
sim_target, sim_result, fiber_target, fiber_result, mytv_target, mytv_result, mesh_camera_target, mesh_camera_result,
cntt_target, cntt_result, revenue_cntt_target, revenue_cntt_result, other_services_target, other_services_result,
customers_contacted, contracts_signed, status, adjustment_status, adjustment_reason, adjustment_data,
rating, manager_comment, attitude_score, discipline_score, effectiveness_score, evidence_photo, bonus_score, penalty_score,
submitted_at, approved_by, approved_at, returned_reason, created_at`

// PlanRepository provides database access for weekly plans.
type PlanRepository struct {
	db *sqlx.DB
}

// NewPlanRepository creates a new instance of PlanRepository.
func NewPlanRepository(db *sqlx.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// List returns every plan ordered by date then creation time. Filtering and
// aggregation happen in the service layer over the full snapshot.
func (r *PlanRepository) List(ctx context.Context) ([]models.Plan, error) {
	query := fmt.Sprintf(`SELECT %s FROM plans ORDER BY date ASC, created_at ASC`, planColumns)
	var plans []models.Plan
	if err := r.db.SelectContext(ctx, &plans, query); err != nil {
		return nil, wrapDBError("list plans", err)
	}
	return plans, nil
}

// ListByEmployee returns every plan belonging to one employee code.
func (r *PlanRepository) ListByEmployee(ctx context.Context, employeeID string) ([]models.Plan, error) {
	query := fmt.Sprintf(`SELECT %s FROM plans WHERE employee_id = $1 ORDER BY date ASC, created_at ASC`, planColumns)
	var plans []models.Plan
	if err := r.db.SelectContext(ctx, &plans, query, employeeID); err != nil {
		return nil, wrapDBError("list plans by employee", err)
	}
	return plans, nil
}

// FindByID returns a plan by identifier.
func (r *PlanRepository) FindByID(ctx context.Context, id string) (*models.Plan, error) {
	query := fmt.Sprintf(`SELECT %s FROM plans WHERE id = $1 LIMIT 1`, planColumns)
	var plan models.Plan
	if err := r.db.GetContext(ctx, &plan, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, wrapDBError("find plan by id", err)
	}
	return &plan, nil
}

// Create inserts a new plan.
func (r *PlanRepository) Create(ctx context.Context, plan *models.Plan) error {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO plans (id, employee_id, employee_name, position, date, week_number, area, work_content, collaborators, challenges,
sim_target, sim_result, fiber_target, fiber_result, mytv_target, mytv_result, mesh_camera_target, mesh_camera_result,
cntt_target, cntt_result, revenue_cntt_target, revenue_cntt_result, other_services_target, other_services_result,
customers_contacted, contracts_signed, status, adjustment_status, adjustment_reason, adjustment_data,
rating, manager_comment, attitude_score, discipline_score, effectiveness_score, evidence_photo, bonus_score, penalty_score,
submitted_at, approved_by, approved_at, returned_reason, created_at)
VALUES (:id, :employee_id, :employee_name, :position, :date, :week_number, :area, :work_content, :collaborators, :challenges,
:sim_target, :sim_result, :fiber_target, :fiber_result, :mytv_target, :mytv_result, :mesh_camera_target, :mesh_camera_result,
:cntt_target, :cntt_result, :revenue_cntt_target, :revenue_cntt_result, :other_services_target, :other_services_result,
:customers_contacted, :contracts_signed, :status, :adjustment_status, :adjustment_reason, :adjustment_data,
:rating, :manager_comment, :attitude_score, :discipline_score, :effectiveness_score, :evidence_photo, :bonus_score, :penalty_score,
:submitted_at, :approved_by, :approved_at, :returned_reason, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, plan); err != nil {
		return wrapDBError("create plan", err)
	}
	return nil
}

// Update rewrites the whole plan record. Workflow transitions are
// last-write-wins under concurrent updates.
func (r *PlanRepository) Update(ctx context.Context, plan *models.Plan) error {
	const query = `UPDATE plans SET employee_id = :employee_id, employee_name = :employee_name, position = :position, date = :date,
week_number = :week_number, area = :area, work_content = :work_content, collaborators = :collaborators, challenges = :challenges,
sim_target = :sim_target, sim_result = :sim_result, fiber_target = :fiber_target, fiber_result = :fiber_result,
mytv_target = :mytv_target, mytv_result = :mytv_result, mesh_camera_target = :mesh_camera_target, mesh_camera_result = :mesh_camera_result,
cntt_target = :cntt_target, cntt_result = :cntt_result, revenue_cntt_target = :revenue_cntt_target, revenue_cntt_result = :revenue_cntt_result,
other_services_target = :other_services_target, other_services_result = :other_services_result,
customers_contacted = :customers_contacted, contracts_signed = :contracts_signed, status = :status,
adjustment_status = :adjustment_status, adjustment_reason = :adjustment_reason, adjustment_data = :adjustment_data,
rating = :rating, manager_comment = :manager_comment, attitude_score = :attitude_score, discipline_score = :discipline_score,
effectiveness_score = :effectiveness_score, evidence_photo = :evidence_photo, bonus_score = :bonus_score, penalty_score = :penalty_score,
submitted_at = :submitted_at, approved_by = :approved_by, approved_at = :approved_at, returned_reason = :returned_reason
WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, plan)
	if err != nil {
		return wrapDBError("update plan", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a plan by identifier.
func (r *PlanRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
