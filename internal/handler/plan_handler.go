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

type planService interface {
	List(ctx context.Context, actor models.UserInfo) ([]models.Plan, error)
	Get(ctx context.Context, id string, actor models.UserInfo) (*models.Plan, error)
	Create(ctx context.Context, req dto.CreatePlanRequest, actor models.UserInfo) (*models.Plan, error)
	Update(ctx context.Context, id string, req dto.UpdatePlanRequest, actor models.UserInfo) (*models.Plan, error)
	RequestAdjustment(ctx context.Context, id string, req dto.AdjustmentRequest, actor models.UserInfo) (*models.Plan, error)
	Review(ctx context.Context, id string, req dto.ReviewRequest, actor models.UserInfo) (*models.Plan, error)
	Delete(ctx context.Context, id string, actor models.UserInfo) error
}

// PlanHandler exposes the weekly plan lifecycle endpoints.
type PlanHandler struct {
	service planService
}

// NewPlanHandler creates a new plan handler.
func NewPlanHandler(svc planService) *PlanHandler {
	return &PlanHandler{service: svc}
}

// List godoc
// @Summary List plans
// @Description Employees see their own plans, managers and admins see all
// @Tags Plans
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /plans [get]
func (h *PlanHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	plans, err := h.service.List(c.Request.Context(), actorFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plans, nil)
}

// Get godoc
// @Summary Get plan
// @Tags Plans
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /plans/{id} [get]
func (h *PlanHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	plan, err := h.service.Get(c.Request.Context(), c.Param("id"), actorFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// Create godoc
// @Summary Submit a weekly plan
// @Tags Plans
// @Accept json
// @Produce json
// @Param payload body dto.CreatePlanRequest true "Plan payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /plans [post]
func (h *PlanHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid plan payload"))
		return
	}

	plan, err := h.service.Create(c.Request.Context(), req, actorFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, plan)
}

// Update godoc
// @Summary Edit a plan
// @Description Employees may edit their own pending plans, admins any plan
// @Tags Plans
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param payload body dto.UpdatePlanRequest true "Plan payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /plans/{id} [put]
func (h *PlanHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid plan payload"))
		return
	}

	plan, err := h.service.Update(c.Request.Context(), c.Param("id"), req, actorFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// RequestAdjustment godoc
// @Summary Request a target adjustment
// @Description Stages a target patch awaiting manager approval
// @Tags Plans
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param payload body dto.AdjustmentRequest true "Adjustment payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /plans/{id}/adjustment [post]
func (h *PlanHandler) RequestAdjustment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid adjustment payload"))
		return
	}

	plan, err := h.service.RequestAdjustment(c.Request.Context(), c.Param("id"), req, actorFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// Review godoc
// @Summary Review a completed week
// @Description Records the manager rating and marks the plan completed
// @Tags Plans
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param payload body dto.ReviewRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /plans/{id}/review [post]
func (h *PlanHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	plan, err := h.service.Review(c.Request.Context(), c.Param("id"), req, actorFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// Delete godoc
// @Summary Delete plan
// @Tags Plans
// @Produce json
// @Param id path string true "Plan ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /plans/{id} [delete]
func (h *PlanHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), c.Param("id"), actorFromClaims(claims)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
