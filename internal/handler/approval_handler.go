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

type approvalService interface {
	Approve(ctx context.Context, planID string, actor models.UserInfo) (*models.Plan, error)
	Reject(ctx context.Context, planID, reason string, actor models.UserInfo) (*models.Plan, error)
	ApproveAdjustment(ctx context.Context, planID string, actor models.UserInfo) (*models.Plan, error)
	RejectAdjustment(ctx context.Context, planID, reason string, actor models.UserInfo) (*models.Plan, error)
}

// ApprovalHandler exposes the manager approval workflow endpoints.
type ApprovalHandler struct {
	service approvalService
}

// NewApprovalHandler creates a new approval handler.
func NewApprovalHandler(svc approvalService) *ApprovalHandler {
	return &ApprovalHandler{service: svc}
}

// Approve godoc
// @Summary Approve a pending plan
// @Tags Approvals
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /plans/{id}/approve [post]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	plan, err := h.service.Approve(c.Request.Context(), c.Param("id"), actorFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// Reject godoc
// @Summary Reject a pending plan
// @Description The rejection reason is mandatory
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param payload body dto.RejectRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /plans/{id}/reject [post]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "rejection reason is required"))
		return
	}

	plan, err := h.service.Reject(c.Request.Context(), c.Param("id"), req.Reason, actorFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// ApproveAdjustment godoc
// @Summary Approve a staged target adjustment
// @Tags Approvals
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /plans/{id}/adjustment/approve [post]
func (h *ApprovalHandler) ApproveAdjustment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	plan, err := h.service.ApproveAdjustment(c.Request.Context(), c.Param("id"), actorFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// RejectAdjustment godoc
// @Summary Reject a staged target adjustment
// @Description Discards the staged patch keeping original targets
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param payload body dto.RejectRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /plans/{id}/adjustment/reject [post]
func (h *ApprovalHandler) RejectAdjustment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "rejection reason is required"))
		return
	}

	plan, err := h.service.RejectAdjustment(c.Request.Context(), c.Param("id"), req.Reason, actorFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}
