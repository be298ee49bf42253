package models

import "time"

// PlanStatus tracks the lifecycle of a weekly plan.
type PlanStatus string

const (
	PlanStatusPending   PlanStatus = "pending"
	PlanStatusApproved  PlanStatus = "approved"
	PlanStatusRejected  PlanStatus = "rejected"
	PlanStatusCompleted PlanStatus = "completed"
)

// AdjustmentStatus tracks the independent target-adjustment workflow.
type AdjustmentStatus string

const (
	AdjustmentNone     AdjustmentStatus = ""
	AdjustmentPending  AdjustmentStatus = "pending"
	AdjustmentApproved AdjustmentStatus = "approved"
	AdjustmentRejected AdjustmentStatus = "rejected"
)

// ServiceLine identifies one of the fixed KPI service lines.
type ServiceLine string

const (
	ServiceSIM        ServiceLine = "SIM"
	ServiceFiber      ServiceLine = "Fiber"
	ServiceMyTV       ServiceLine = "MyTV"
	ServiceMeshCamera ServiceLine = "Mesh/Camera"
	ServiceCNTT       ServiceLine = "CNTT"
)

// ServiceLines is the canonical display order for dashboards and exports.
var ServiceLines = []ServiceLine{ServiceSIM, ServiceFiber, ServiceMyTV, ServiceMeshCamera, ServiceCNTT}

// Plan represents one weekly business plan row in the plans table.
type Plan struct {
	ID           string `db:"id" json:"id"`
	EmployeeID   string `db:"employee_id" json:"employee_id"`
	EmployeeName string `db:"employee_name" json:"employee_name"`
	Position     string `db:"position" json:"position"`
	// Date is the plan day in YYYY-MM-DD form; year/month filters parse it.
	Date          string `db:"date" json:"date"`
	WeekNumber    string `db:"week_number" json:"week_number"`
	Area          string `db:"area" json:"area"`
	WorkContent   string `db:"work_content" json:"work_content"`
	Collaborators string `db:"collaborators" json:"collaborators"`
	Challenges    string `db:"challenges" json:"challenges"`

	SIMTarget           float64 `db:"sim_target" json:"sim_target"`
	SIMResult           float64 `db:"sim_result" json:"sim_result"`
	FiberTarget         float64 `db:"fiber_target" json:"fiber_target"`
	FiberResult         float64 `db:"fiber_result" json:"fiber_result"`
	MyTVTarget          float64 `db:"mytv_target" json:"mytv_target"`
	MyTVResult          float64 `db:"mytv_result" json:"mytv_result"`
	MeshCameraTarget    float64 `db:"mesh_camera_target" json:"mesh_camera_target"`
	MeshCameraResult    float64 `db:"mesh_camera_result" json:"mesh_camera_result"`
	CNTTTarget          float64 `db:"cntt_target" json:"cntt_target"`
	CNTTResult          float64 `db:"cntt_result" json:"cntt_result"`
	RevenueCNTTTarget   float64 `db:"revenue_cntt_target" json:"revenue_cntt_target"`
	RevenueCNTTResult   float64 `db:"revenue_cntt_result" json:"revenue_cntt_result"`
	OtherServicesTarget float64 `db:"other_services_target" json:"other_services_target"`
	OtherServicesResult float64 `db:"other_services_result" json:"other_services_result"`

	CustomersContacted int `db:"customers_contacted" json:"customers_contacted"`
	ContractsSigned    int `db:"contracts_signed" json:"contracts_signed"`

	Status           PlanStatus       `db:"status" json:"status"`
	AdjustmentStatus AdjustmentStatus `db:"adjustment_status" json:"adjustment_status"`
	AdjustmentReason string           `db:"adjustment_reason" json:"adjustment_reason"`
	// AdjustmentData holds a staged TargetPatch serialized as JSON text.
	AdjustmentData string `db:"adjustment_data" json:"adjustment_data"`

	Rating             string  `db:"rating" json:"rating"`
	ManagerComment     string  `db:"manager_comment" json:"manager_comment"`
	AttitudeScore      string  `db:"attitude_score" json:"attitude_score"`
	DisciplineScore    string  `db:"discipline_score" json:"discipline_score"`
	EffectivenessScore string  `db:"effectiveness_score" json:"effectiveness_score"`
	EvidencePhoto      string  `db:"evidence_photo" json:"evidence_photo"`
	BonusScore         float64 `db:"bonus_score" json:"bonus_score"`
	PenaltyScore       float64 `db:"penalty_score" json:"penalty_score"`

	SubmittedAt    *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	ApprovedBy     string     `db:"approved_by" json:"approved_by"`
	ApprovedAt     *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	ReturnedReason string     `db:"returned_reason" json:"returned_reason"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// TargetPatch is the allow-list of target fields an adjustment may change.
// Nil fields are left untouched when the patch is applied.
type TargetPatch struct {
	SIMTarget           *float64 `json:"sim_target,omitempty"`
	FiberTarget         *float64 `json:"fiber_target,omitempty"`
	MyTVTarget          *float64 `json:"mytv_target,omitempty"`
	MeshCameraTarget    *float64 `json:"mesh_camera_target,omitempty"`
	CNTTTarget          *float64 `json:"cntt_target,omitempty"`
	RevenueCNTTTarget   *float64 `json:"revenue_cntt_target,omitempty"`
	OtherServicesTarget *float64 `json:"other_services_target,omitempty"`
}

// Empty reports whether the patch would change nothing.
func (p TargetPatch) Empty() bool {
	return p.SIMTarget == nil && p.FiberTarget == nil && p.MyTVTarget == nil &&
		p.MeshCameraTarget == nil && p.CNTTTarget == nil &&
		p.RevenueCNTTTarget == nil && p.OtherServicesTarget == nil
}

// Apply merges the patch into the plan's target fields.
func (p TargetPatch) Apply(plan *Plan) {
	if p.SIMTarget != nil {
		plan.SIMTarget = *p.SIMTarget
	}
	if p.FiberTarget != nil {
		plan.FiberTarget = *p.FiberTarget
	}
	if p.MyTVTarget != nil {
		plan.MyTVTarget = *p.MyTVTarget
	}
	if p.MeshCameraTarget != nil {
		plan.MeshCameraTarget = *p.MeshCameraTarget
	}
	if p.CNTTTarget != nil {
		plan.CNTTTarget = *p.CNTTTarget
	}
	if p.RevenueCNTTTarget != nil {
		plan.RevenueCNTTTarget = *p.RevenueCNTTTarget
	}
	if p.OtherServicesTarget != nil {
		plan.OtherServicesTarget = *p.OtherServicesTarget
	}
}

// TargetFor returns the plan's target for one service line.
func (pl *Plan) TargetFor(s ServiceLine) float64 {
	switch s {
	case ServiceSIM:
		return pl.SIMTarget
	case ServiceFiber:
		return pl.FiberTarget
	case ServiceMyTV:
		return pl.MyTVTarget
	case ServiceMeshCamera:
		return pl.MeshCameraTarget
	case ServiceCNTT:
		return pl.CNTTTarget
	}
	return 0
}

// ResultFor returns the plan's result for one service line.
func (pl *Plan) ResultFor(s ServiceLine) float64 {
	switch s {
	case ServiceSIM:
		return pl.SIMResult
	case ServiceFiber:
		return pl.FiberResult
	case ServiceMyTV:
		return pl.MyTVResult
	case ServiceMeshCamera:
		return pl.MeshCameraResult
	case ServiceCNTT:
		return pl.CNTTResult
	}
	return 0
}

// PerformanceBand classifies an employee's completion ratio.
type PerformanceBand string

const (
	BandExcellent PerformanceBand = "excellent"
	BandGood      PerformanceBand = "good"
	BandAverage   PerformanceBand = "average"
	BandWeak      PerformanceBand = "weak"
)

// BandFor maps a completion percentage onto a performance band.
func BandFor(ratio int) PerformanceBand {
	switch {
	case ratio >= 100:
		return BandExcellent
	case ratio >= 80:
		return BandGood
	case ratio >= 50:
		return BandAverage
	default:
		return BandWeak
	}
}
