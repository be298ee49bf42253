package dto

import (
	"time"

	"github.com/vnpt-kd/kpi-plan-api/internal/models"
)

// AnalysisRequest asks for an AI performance review of one employee's month.
type AnalysisRequest struct {
	EmployeeID string `form:"employee_id" json:"employee_id" validate:"required"`
	Month      string `form:"month" json:"month" validate:"required,datetime=2006-01"`
}

// AnalysisResponse bundles the aggregated numbers, the generated review and
// the radar chart axes.
type AnalysisResponse struct {
	Performance models.MonthlyPerformance `json:"performance"`
	Review      models.PerformanceReview  `json:"review"`
	Radar       []models.RadarPoint       `json:"radar"`
	GeneratedAt time.Time                 `json:"generated_at"`
}
