package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/vnpt-kd/kpi-plan-api/internal/middleware"
	"github.com/vnpt-kd/kpi-plan-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func actorFromClaims(claims *models.JWTClaims) models.UserInfo {
	if claims == nil {
		return models.UserInfo{}
	}
	return models.UserInfo{
		ID:         claims.UserID,
		EmployeeID: claims.EmployeeID,
		FullName:   claims.FullName,
		Role:       claims.Role,
	}
}
