package models

// MonthlyPerformance aggregates one employee's completed results for a month.
type MonthlyPerformance struct {
	EmployeeID      string   `json:"employee_id"`
	EmployeeName    string   `json:"employee_name"`
	Month           string   `json:"month"`
	PlanCount       int      `json:"plan_count"`
	SIMTotal        float64  `json:"sim_total"`
	FiberTotal      float64  `json:"fiber_total"`
	MyTVTotal       float64  `json:"mytv_total"`
	CNTTTotal       float64  `json:"cntt_total"`
	RevenueTotal    float64  `json:"revenue_total"`
	ManagerComments []string `json:"manager_comments"`
}

// PerformanceReview is the structured output of the AI reviewer.
type PerformanceReview struct {
	OverallScore    float64  `json:"overall_score"`
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Recommendations []string `json:"recommendations"`
}

// RadarPoint is one axis of the per-service completion chart.
type RadarPoint struct {
	Service ServiceLine `json:"service"`
	Percent float64     `json:"percent"`
}
