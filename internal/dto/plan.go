package dto

import "github.com/vnpt-kd/kpi-plan-api/internal/models"

// PlanPayload carries the editable plan fields shared by create and update.
type PlanPayload struct {
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	WeekNumber    string `json:"week_number" validate:"required"`
	Area          string `json:"area"`
	WorkContent   string `json:"work_content" validate:"required"`
	Collaborators string `json:"collaborators"`
	Challenges    string `json:"challenges"`

	SIMTarget           float64 `json:"sim_target" validate:"gte=0"`
	SIMResult           float64 `json:"sim_result" validate:"gte=0"`
	FiberTarget         float64 `json:"fiber_target" validate:"gte=0"`
	FiberResult         float64 `json:"fiber_result" validate:"gte=0"`
	MyTVTarget          float64 `json:"mytv_target" validate:"gte=0"`
	MyTVResult          float64 `json:"mytv_result" validate:"gte=0"`
	MeshCameraTarget    float64 `json:"mesh_camera_target" validate:"gte=0"`
	MeshCameraResult    float64 `json:"mesh_camera_result" validate:"gte=0"`
	CNTTTarget          float64 `json:"cntt_target" validate:"gte=0"`
	CNTTResult          float64 `json:"cntt_result" validate:"gte=0"`
	RevenueCNTTTarget   float64 `json:"revenue_cntt_target" validate:"gte=0"`
	RevenueCNTTResult   float64 `json:"revenue_cntt_result" validate:"gte=0"`
	OtherServicesTarget float64 `json:"other_services_target" validate:"gte=0"`
	OtherServicesResult float64 `json:"other_services_result" validate:"gte=0"`

	CustomersContacted int `json:"customers_contacted" validate:"gte=0"`
	ContractsSigned    int `json:"contracts_signed" validate:"gte=0"`

	EvidencePhoto string `json:"evidence_photo"`
}

// CreatePlanRequest submits a new weekly plan.
type CreatePlanRequest struct {
	PlanPayload
}

// UpdatePlanRequest edits a plan the employee still owns.
type UpdatePlanRequest struct {
	PlanPayload
}

// AdjustmentRequest stages a target change awaiting manager approval.
type AdjustmentRequest struct {
	Reason string             `json:"reason" validate:"required"`
	Patch  models.TargetPatch `json:"patch"`
}

// ReviewRequest records the manager's completion review for a plan.
type ReviewRequest struct {
	Rating             string  `json:"rating"`
	ManagerComment     string  `json:"manager_comment"`
	AttitudeScore      string  `json:"attitude_score"`
	DisciplineScore    string  `json:"discipline_score"`
	EffectivenessScore string  `json:"effectiveness_score"`
	BonusScore         float64 `json:"bonus_score" validate:"gte=0"`
	PenaltyScore       float64 `json:"penalty_score" validate:"gte=0"`
}

// RejectRequest carries the mandatory rejection reason.
type RejectRequest struct {
	Reason string `json:"reason" binding:"required" validate:"required"`
}
