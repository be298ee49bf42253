package dto

import (
	"fmt"
	"time"

	"github.com/vnpt-kd/kpi-plan-api/internal/models"
)

// FilterAll is the wildcard accepted by every dashboard filter dimension.
const FilterAll = "All"

// DashboardFilter scopes dashboard aggregation. Empty values and "All" leave
// the dimension unconstrained.
type DashboardFilter struct {
	Year       string `form:"year" json:"year"`
	Month      string `form:"month" json:"month"`
	Week       string `form:"week" json:"week"`
	EmployeeID string `form:"employee_id" json:"employee_id"`
}

// CacheKey renders a stable Redis key for the filter tuple.
func (f DashboardFilter) CacheKey() string {
	return fmt.Sprintf("dash:%s:%s:%s:%s", orAll(f.Year), orAll(f.Month), orAll(f.Week), orAll(f.EmployeeID))
}

func orAll(v string) string {
	if v == "" {
		return FilterAll
	}
	return v
}

// ServiceSummary is the aggregated target/result pair for one service line.
type ServiceSummary struct {
	Service models.ServiceLine `json:"service"`
	Target  float64            `json:"target"`
	Result  float64            `json:"result"`
	Ratio   int                `json:"ratio"`
}

// EmployeePerformance is one row of the per-employee rollup.
type EmployeePerformance struct {
	EmployeeID   string                 `json:"employee_id"`
	EmployeeName string                 `json:"employee_name"`
	Target       float64                `json:"target"`
	Actual       float64                `json:"actual"`
	Ratio        int                    `json:"ratio"`
	Band         models.PerformanceBand `json:"band"`
}

// WeeklyPoint is one week of the target-vs-actual trend series.
type WeeklyPoint struct {
	Week   string  `json:"week"`
	Target float64 `json:"target"`
	Actual float64 `json:"actual"`
}

// DashboardResponse is the composed dashboard payload.
type DashboardResponse struct {
	Filter      DashboardFilter       `json:"filter"`
	Services    []ServiceSummary      `json:"services"`
	Employees   []EmployeePerformance `json:"employees"`
	Weekly      []WeeklyPoint         `json:"weekly"`
	PlanCount   int                   `json:"plan_count"`
	GeneratedAt time.Time             `json:"generated_at"`
}
