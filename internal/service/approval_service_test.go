package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vnpt-kd/kpi-plan-api/internal/models"
	appErrors "github.com/vnpt-kd/kpi-plan-api/pkg/errors"
)

type fakePlanStore struct {
	plans      map[string]*models.Plan
	updated    []*models.Plan
	updateErr  error
	findErrors map[string]error
}

func newFakePlanStore(plans ...*models.Plan) *fakePlanStore {
	store := &fakePlanStore{plans: map[string]*models.Plan{}, findErrors: map[string]error{}}
	for _, p := range plans {
		store.plans[p.ID] = p
	}
	return store
}

func (f *fakePlanStore) FindByID(ctx context.Context, id string) (*models.Plan, error) {
	if err := f.findErrors[id]; err != nil {
		return nil, err
	}
	plan, ok := f.plans[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *plan
	return &clone, nil
}

func (f *fakePlanStore) Update(ctx context.Context, plan *models.Plan) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	clone := *plan
	f.plans[plan.ID] = &clone
	f.updated = append(f.updated, &clone)
	return nil
}

type fakeAuditLogger struct {
	logs []*models.AuditLog
	err  error
}

func (f *fakeAuditLogger) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if f.err != nil {
		return f.err
	}
	f.logs = append(f.logs, log)
	return nil
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) Invalidate(ctx context.Context) {
	f.calls++
}

func manager() models.UserInfo {
	return models.UserInfo{ID: "u-manager", EmployeeID: "QL001", FullName: "Tran Thi B", Role: models.RoleManager}
}

func pendingPlan(id string) *models.Plan {
	return &models.Plan{
		ID:         id,
		EmployeeID: "NV001",
		Date:       "2025-06-02",
		WeekNumber: "Tuần 23",
		Status:     models.PlanStatusPending,
		SIMTarget:  10,
	}
}

func TestApprovePendingPlan(t *testing.T) {
	store := newFakePlanStore(pendingPlan("p1"))
	audits := &fakeAuditLogger{}
	invalidator := &fakeInvalidator{}
	svc := NewApprovalService(store, audits, invalidator, zap.NewNop())

	plan, err := svc.Approve(context.Background(), "p1", manager())
	require.NoError(t, err)

	assert.Equal(t, models.PlanStatusApproved, plan.Status)
	assert.Equal(t, "Tran Thi B", plan.ApprovedBy)
	require.NotNil(t, plan.ApprovedAt)
	require.Len(t, audits.logs, 1)
	assert.Equal(t, models.AuditActionPlanApprove, audits.logs[0].Action)
	assert.Equal(t, 1, invalidator.calls)
}

func TestApproveNonPendingPlanConflicts(t *testing.T) {
	plan := pendingPlan("p1")
	plan.Status = models.PlanStatusCompleted
	store := newFakePlanStore(plan)
	svc := NewApprovalService(store, nil, nil, zap.NewNop())

	_, err := svc.Approve(context.Background(), "p1", manager())
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, store.updated)
}

func TestApproveMissingPlanNotFound(t *testing.T) {
	svc := NewApprovalService(newFakePlanStore(), nil, nil, zap.NewNop())

	_, err := svc.Approve(context.Background(), "ghost", manager())

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestRejectRequiresReason(t *testing.T) {
	store := newFakePlanStore(pendingPlan("p1"))
	svc := NewApprovalService(store, nil, nil, zap.NewNop())

	for _, reason := range []string{"", "   ", "\t\n"} {
		_, err := svc.Reject(context.Background(), "p1", reason, manager())
		require.Error(t, err, "reason %q", reason)

		var appErr *appErrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	}
	// Blank reasons never touch the store.
	assert.Empty(t, store.updated)
	assert.Equal(t, models.PlanStatusPending, store.plans["p1"].Status)
}

func TestRejectStampsReasonAndApprover(t *testing.T) {
	store := newFakePlanStore(pendingPlan("p1"))
	invalidator := &fakeInvalidator{}
	svc := NewApprovalService(store, &fakeAuditLogger{}, invalidator, zap.NewNop())

	plan, err := svc.Reject(context.Background(), "p1", "  thiếu minh chứng  ", manager())
	require.NoError(t, err)

	assert.Equal(t, models.PlanStatusRejected, plan.Status)
	assert.Equal(t, "thiếu minh chứng", plan.ReturnedReason)
	assert.Equal(t, "Tran Thi B", plan.ApprovedBy)
	assert.Equal(t, 1, invalidator.calls)
}

func TestApproveAdjustmentMergesPatch(t *testing.T) {
	plan := pendingPlan("p1")
	plan.Status = models.PlanStatusApproved
	plan.AdjustmentStatus = models.AdjustmentPending
	plan.AdjustmentData = `{"sim_target": 6, "fiber_target": 3}`
	store := newFakePlanStore(plan)
	svc := NewApprovalService(store, &fakeAuditLogger{}, &fakeInvalidator{}, zap.NewNop())

	updated, err := svc.ApproveAdjustment(context.Background(), "p1", manager())
	require.NoError(t, err)

	assert.Equal(t, 6.0, updated.SIMTarget)
	assert.Equal(t, 3.0, updated.FiberTarget)
	assert.Equal(t, models.AdjustmentApproved, updated.AdjustmentStatus)
	assert.Empty(t, updated.AdjustmentData)
}

func TestApproveAdjustmentKeepsFirstApprovalDate(t *testing.T) {
	firstApproval := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	plan := pendingPlan("p1")
	plan.Status = models.PlanStatusApproved
	plan.ApprovedBy = "Le Van C"
	plan.ApprovedAt = &firstApproval
	plan.AdjustmentStatus = models.AdjustmentPending
	plan.AdjustmentData = `{"sim_target": 6}`
	store := newFakePlanStore(plan)
	svc := NewApprovalService(store, &fakeAuditLogger{}, &fakeInvalidator{}, zap.NewNop())

	updated, err := svc.ApproveAdjustment(context.Background(), "p1", manager())
	require.NoError(t, err)

	assert.Equal(t, "Tran Thi B", updated.ApprovedBy)
	require.NotNil(t, updated.ApprovedAt)
	assert.True(t, updated.ApprovedAt.Equal(firstApproval))
}

func TestApproveAdjustmentMalformedPayloadLeavesPlanUntouched(t *testing.T) {
	plan := pendingPlan("p1")
	plan.AdjustmentStatus = models.AdjustmentPending
	plan.AdjustmentData = `{"sim_target": "not-a-number"`
	store := newFakePlanStore(plan)
	svc := NewApprovalService(store, nil, nil, zap.NewNop())

	_, err := svc.ApproveAdjustment(context.Background(), "p1", manager())
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	// Zero mutation on malformed data.
	assert.Empty(t, store.updated)
	assert.Equal(t, 10.0, store.plans["p1"].SIMTarget)
	assert.Equal(t, models.AdjustmentPending, store.plans["p1"].AdjustmentStatus)
}

func TestApproveAdjustmentWithoutPendingRequest(t *testing.T) {
	store := newFakePlanStore(pendingPlan("p1"))
	svc := NewApprovalService(store, nil, nil, zap.NewNop())

	_, err := svc.ApproveAdjustment(context.Background(), "p1", manager())

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestRejectAdjustmentKeepsOriginalTargets(t *testing.T) {
	plan := pendingPlan("p1")
	plan.AdjustmentStatus = models.AdjustmentPending
	plan.AdjustmentData = `{"sim_target": 99}`
	store := newFakePlanStore(plan)
	svc := NewApprovalService(store, &fakeAuditLogger{}, &fakeInvalidator{}, zap.NewNop())

	updated, err := svc.RejectAdjustment(context.Background(), "p1", "không hợp lý", manager())
	require.NoError(t, err)

	assert.Equal(t, 10.0, updated.SIMTarget)
	assert.Equal(t, models.AdjustmentRejected, updated.AdjustmentStatus)
	assert.Equal(t, "không hợp lý", updated.ReturnedReason)
	assert.Empty(t, updated.AdjustmentData)
}

func TestApproveAuditFailureDoesNotFailRequest(t *testing.T) {
	store := newFakePlanStore(pendingPlan("p1"))
	audits := &fakeAuditLogger{err: errors.New("audit store down")}
	svc := NewApprovalService(store, audits, nil, zap.NewNop())

	_, err := svc.Approve(context.Background(), "p1", manager())
	require.NoError(t, err)
}
