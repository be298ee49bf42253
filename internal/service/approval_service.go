package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vnpt-kd/kpi-plan-api/internal/models"
	appErrors "github.com/vnpt-kd/kpi-plan-api/pkg/errors"
)

type planStore interface {
	FindByID(ctx context.Context, id string) (*models.Plan, error)
	Update(ctx context.Context, plan *models.Plan) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type dashboardInvalidator interface {
	Invalidate(ctx context.Context)
}

// ApprovalService drives the plan approval and target-adjustment workflows.
// Every transition rewrites the whole record; concurrent updates are
// last-write-wins.
type ApprovalService struct {
	plans      planStore
	audits     auditLogger
	dashboards dashboardInvalidator
	logger     *zap.Logger
	now        func() time.Time
}

// NewApprovalService constructs an ApprovalService.
func NewApprovalService(plans planStore, audits auditLogger, dashboards dashboardInvalidator, logger *zap.Logger) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{plans: plans, audits: audits, dashboards: dashboards, logger: logger, now: time.Now}
}

// Approve moves a pending plan to approved, recording the acting manager.
func (s *ApprovalService) Approve(ctx context.Context, planID string, actor models.UserInfo) (*models.Plan, error) {
	plan, err := s.findPending(ctx, planID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	plan.Status = models.PlanStatusApproved
	plan.ApprovedBy = actor.FullName
	plan.ApprovedAt = &now

	if err := s.plans.Update(ctx, plan); err != nil {
		return nil, err
	}
	s.writeAudit(ctx, actor.ID, models.AuditActionPlanApprove, plan.ID)
	s.invalidate(ctx)
	return plan, nil
}

// Reject moves a pending plan to rejected. The reason is mandatory and the
// store is untouched when it is blank.
func (s *ApprovalService) Reject(ctx context.Context, planID, reason string, actor models.UserInfo) (*models.Plan, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}

	plan, err := s.findPending(ctx, planID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	plan.Status = models.PlanStatusRejected
	plan.ReturnedReason = reason
	plan.ApprovedBy = actor.FullName
	plan.ApprovedAt = &now

	if err := s.plans.Update(ctx, plan); err != nil {
		return nil, err
	}
	s.writeAudit(ctx, actor.ID, models.AuditActionPlanReject, plan.ID)
	s.invalidate(ctx)
	return plan, nil
}

// ApproveAdjustment decodes the staged target patch and merges it into the
// plan. A malformed payload aborts with zero mutation.
func (s *ApprovalService) ApproveAdjustment(ctx context.Context, planID string, actor models.UserInfo) (*models.Plan, error) {
	plan, err := s.findPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.AdjustmentStatus != models.AdjustmentPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "plan has no pending adjustment")
	}

	var patch models.TargetPatch
	if err := json.Unmarshal([]byte(plan.AdjustmentData), &patch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "adjustment payload is malformed")
	}

	patch.Apply(plan)
	plan.AdjustmentStatus = models.AdjustmentApproved
	plan.AdjustmentData = ""
	// Adjustment approval records the acting manager but keeps the plan's
	// first approval date.
	plan.ApprovedBy = actor.FullName

	if err := s.plans.Update(ctx, plan); err != nil {
		return nil, err
	}
	s.writeAudit(ctx, actor.ID, models.AuditActionAdjustmentAllow, plan.ID)
	s.invalidate(ctx)
	return plan, nil
}

// RejectAdjustment discards the staged patch, keeping the original targets.
func (s *ApprovalService) RejectAdjustment(ctx context.Context, planID, reason string, actor models.UserInfo) (*models.Plan, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}

	plan, err := s.findPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.AdjustmentStatus != models.AdjustmentPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "plan has no pending adjustment")
	}

	plan.AdjustmentStatus = models.AdjustmentRejected
	plan.ReturnedReason = reason
	plan.AdjustmentData = ""

	if err := s.plans.Update(ctx, plan); err != nil {
		return nil, err
	}
	s.writeAudit(ctx, actor.ID, models.AuditActionAdjustmentReject, plan.ID)
	s.invalidate(ctx)
	return plan, nil
}

func (s *ApprovalService) findPlan(ctx context.Context, planID string) (*models.Plan, error) {
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "plan not found")
		}
		return nil, err
	}
	return plan, nil
}

func (s *ApprovalService) findPending(ctx context.Context, planID string) (*models.Plan, error) {
	plan, err := s.findPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status != models.PlanStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "plan is not awaiting approval")
	}
	return plan, nil
}

func (s *ApprovalService) writeAudit(ctx context.Context, actorID, action, planID string) {
	if s.audits == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "plan",
		ResourceID: &planID,
	}
	if err := s.audits.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *ApprovalService) invalidate(ctx context.Context) {
	if s.dashboards != nil {
		s.dashboards.Invalidate(ctx)
	}
}
