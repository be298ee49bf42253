package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vnpt-kd/kpi-plan-api/internal/dto"
	"github.com/vnpt-kd/kpi-plan-api/internal/models"
	appErrors "github.com/vnpt-kd/kpi-plan-api/pkg/errors"
)

type planRepository interface {
	List(ctx context.Context) ([]models.Plan, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]models.Plan, error)
	FindByID(ctx context.Context, id string) (*models.Plan, error)
	Create(ctx context.Context, plan *models.Plan) error
	Update(ctx context.Context, plan *models.Plan) error
	Delete(ctx context.Context, id string) error
}

type employeeDirectory interface {
	FindByEmployeeID(ctx context.Context, employeeID string) (*models.User, error)
}

// PlanService handles the employee-facing plan lifecycle: submission, edits
// while pending, adjustment requests and the manager review pass.
type PlanService struct {
	repo       planRepository
	users      employeeDirectory
	audits     auditLogger
	dashboards dashboardInvalidator
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewPlanService creates an instance of PlanService.
func NewPlanService(repo planRepository, users employeeDirectory, audits auditLogger, dashboards dashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *PlanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PlanService{repo: repo, users: users, audits: audits, dashboards: dashboards, validator: validate, logger: logger, now: time.Now}
}

// List returns the plans visible to the actor: employees see their own,
// managers and admins see everything.
func (s *PlanService) List(ctx context.Context, actor models.UserInfo) ([]models.Plan, error) {
	if actor.Role == models.RoleEmployee {
		return s.repo.ListByEmployee(ctx, actor.EmployeeID)
	}
	return s.repo.List(ctx)
}

// Get returns one plan, enforcing ownership for employees.
func (s *PlanService) Get(ctx context.Context, id string, actor models.UserInfo) (*models.Plan, error) {
	plan, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleEmployee && plan.EmployeeID != actor.EmployeeID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "plan belongs to another employee")
	}
	return plan, nil
}

// Create submits a new weekly plan for the acting employee.
func (s *PlanService) Create(ctx context.Context, req dto.CreatePlanRequest, actor models.UserInfo) (*models.Plan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid plan payload")
	}

	now := s.now().UTC()
	plan := &models.Plan{
		EmployeeID:   actor.EmployeeID,
		EmployeeName: actor.FullName,
		Position:     actor.Position,
		Status:       models.PlanStatusPending,
		SubmittedAt:  &now,
	}
	// Access tokens carry no position or area, so the owner fields come from
	// the user record. A failed lookup still lets the submission through.
	area := actor.Area
	if s.users != nil {
		if owner, err := s.users.FindByEmployeeID(ctx, actor.EmployeeID); err == nil {
			plan.Position = owner.Position
			if plan.EmployeeName == "" {
				plan.EmployeeName = owner.FullName
			}
			area = owner.Area
		} else {
			s.logger.Warn("owner lookup failed, submitting plan without position",
				zap.String("employee_id", actor.EmployeeID), zap.Error(err))
		}
	}
	applyPayload(plan, req.PlanPayload)
	if plan.Area == "" {
		plan.Area = area
	}

	if err := s.repo.Create(ctx, plan); err != nil {
		return nil, err
	}
	s.writeAudit(ctx, actor.ID, models.AuditActionPlanCreate, plan.ID)
	s.invalidate(ctx)
	return plan, nil
}

// Update edits a plan the employee still owns. Only pending plans can change;
// admins may edit regardless of status.
func (s *PlanService) Update(ctx context.Context, id string, req dto.UpdatePlanRequest, actor models.UserInfo) (*models.Plan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid plan payload")
	}

	plan, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin {
		if plan.EmployeeID != actor.EmployeeID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "plan belongs to another employee")
		}
		if plan.Status != models.PlanStatusPending {
			return nil, appErrors.Clone(appErrors.ErrConflict, "only pending plans can be edited")
		}
	}

	applyPayload(plan, req.PlanPayload)

	if err := s.repo.Update(ctx, plan); err != nil {
		return nil, err
	}
	s.writeAudit(ctx, actor.ID, models.AuditActionPlanUpdate, plan.ID)
	s.invalidate(ctx)
	return plan, nil
}

// RequestAdjustment stages a target patch for manager approval. The staged
// payload is serialized into the plan record; targets stay untouched until
// the patch is approved.
func (s *PlanService) RequestAdjustment(ctx context.Context, id string, req dto.AdjustmentRequest, actor models.UserInfo) (*models.Plan, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "adjustment reason is required")
	}
	if req.Patch.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "adjustment patch must change at least one target")
	}

	plan, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleEmployee && plan.EmployeeID != actor.EmployeeID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "plan belongs to another employee")
	}
	if plan.AdjustmentStatus == models.AdjustmentPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an adjustment is already awaiting approval")
	}

	payload, err := json.Marshal(req.Patch)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode adjustment")
	}

	plan.AdjustmentStatus = models.AdjustmentPending
	plan.AdjustmentReason = strings.TrimSpace(req.Reason)
	plan.AdjustmentData = string(payload)

	if err := s.repo.Update(ctx, plan); err != nil {
		return nil, err
	}
	s.writeAudit(ctx, actor.ID, models.AuditActionPlanUpdate, plan.ID)
	return plan, nil
}

// Review records the manager's completion review and marks the plan done.
func (s *PlanService) Review(ctx context.Context, id string, req dto.ReviewRequest, actor models.UserInfo) (*models.Plan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	plan, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.Status != models.PlanStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only approved plans can be reviewed")
	}

	plan.Status = models.PlanStatusCompleted
	plan.Rating = req.Rating
	plan.ManagerComment = req.ManagerComment
	plan.AttitudeScore = req.AttitudeScore
	plan.DisciplineScore = req.DisciplineScore
	plan.EffectivenessScore = req.EffectivenessScore
	plan.BonusScore = req.BonusScore
	plan.PenaltyScore = req.PenaltyScore

	if err := s.repo.Update(ctx, plan); err != nil {
		return nil, err
	}
	s.writeAudit(ctx, actor.ID, models.AuditActionPlanUpdate, plan.ID)
	s.invalidate(ctx)
	return plan, nil
}

// Delete removes a plan. Employees may remove their own pending plans;
// admins may remove any plan.
func (s *PlanService) Delete(ctx context.Context, id string, actor models.UserInfo) error {
	plan, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if actor.Role != models.RoleAdmin {
		if plan.EmployeeID != actor.EmployeeID {
			return appErrors.Clone(appErrors.ErrForbidden, "plan belongs to another employee")
		}
		if plan.Status != models.PlanStatusPending {
			return appErrors.Clone(appErrors.ErrConflict, "only pending plans can be removed")
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "plan not found")
		}
		return err
	}
	s.writeAudit(ctx, actor.ID, models.AuditActionPlanDelete, plan.ID)
	s.invalidate(ctx)
	return nil
}

func (s *PlanService) find(ctx context.Context, id string) (*models.Plan, error) {
	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "plan not found")
		}
		return nil, err
	}
	return plan, nil
}

func (s *PlanService) writeAudit(ctx context.Context, actorID, action, planID string) {
	if s.audits == nil {
		return
	}
	if err := s.audits.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "plan",
		ResourceID: &planID,
	}); err != nil {
		s.logger.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *PlanService) invalidate(ctx context.Context) {
	if s.dashboards != nil {
		s.dashboards.Invalidate(ctx)
	}
}

func applyPayload(plan *models.Plan, p dto.PlanPayload) {
	plan.Date = p.Date
	plan.WeekNumber = p.WeekNumber
	if p.Area != "" {
		plan.Area = p.Area
	}
	plan.WorkContent = p.WorkContent
	plan.Collaborators = p.Collaborators
	plan.Challenges = p.Challenges

	plan.SIMTarget = p.SIMTarget
	plan.SIMResult = p.SIMResult
	plan.FiberTarget = p.FiberTarget
	plan.FiberResult = p.FiberResult
	plan.MyTVTarget = p.MyTVTarget
	plan.MyTVResult = p.MyTVResult
	plan.MeshCameraTarget = p.MeshCameraTarget
	plan.MeshCameraResult = p.MeshCameraResult
	plan.CNTTTarget = p.CNTTTarget
	plan.CNTTResult = p.CNTTResult
	plan.RevenueCNTTTarget = p.RevenueCNTTTarget
	plan.RevenueCNTTResult = p.RevenueCNTTResult
	plan.OtherServicesTarget = p.OtherServicesTarget
	plan.OtherServicesResult = p.OtherServicesResult

	plan.CustomersContacted = p.CustomersContacted
	plan.ContractsSigned = p.ContractsSigned
	plan.EvidencePhoto = p.EvidencePhoto
}
