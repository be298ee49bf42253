package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vnpt-kd/kpi-plan-api/internal/dto"
	"github.com/vnpt-kd/kpi-plan-api/internal/models"
	"github.com/vnpt-kd/kpi-plan-api/pkg/ai"
	appErrors "github.com/vnpt-kd/kpi-plan-api/pkg/errors"
)

const emptySummaryPlaceholder = "Không có dữ liệu tổng hợp."

// radarCap keeps runaway completion percentages readable on the chart. The
// dashboard ratios stay uncapped.
const radarCap = 120.0

type reviewGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, schema *ai.Schema, dest interface{}) error
}

// AnalysisService aggregates one employee's month and asks the AI reviewer
// for a structured performance review.
type AnalysisService struct {
	plans     snapshotPlanLister
	reviewer  reviewGenerator
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAnalysisService constructs an AnalysisService. A nil reviewer disables
// the AI call and yields the placeholder review.
func NewAnalysisService(plans snapshotPlanLister, reviewer reviewGenerator, validate *validator.Validate, logger *zap.Logger) *AnalysisService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AnalysisService{plans: plans, reviewer: reviewer, validator: validate, logger: logger, now: time.Now}
}

// Analyze builds the monthly aggregate, the radar axes and the AI review.
func (s *AnalysisService) Analyze(ctx context.Context, req dto.AnalysisRequest) (*dto.AnalysisResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid analysis request")
	}

	plans, err := s.plans.List(ctx)
	if err != nil {
		return nil, err
	}

	monthly := buildMonthlyPerformance(plans, req.EmployeeID, req.Month)
	radar := buildRadar(plans, req.EmployeeID, req.Month)

	review := s.generateReview(ctx, monthly)

	return &dto.AnalysisResponse{
		Performance: monthly,
		Review:      review,
		Radar:       radar,
		GeneratedAt: s.now().UTC(),
	}, nil
}

func (s *AnalysisService) generateReview(ctx context.Context, monthly models.MonthlyPerformance) models.PerformanceReview {
	review := models.PerformanceReview{}
	if s.reviewer != nil {
		if err := s.reviewer.GenerateJSON(ctx, buildPrompt(monthly), reviewSchema(), &review); err != nil {
			s.logger.Warn("ai review generation failed", zap.String("employee_id", monthly.EmployeeID), zap.Error(err))
			review = models.PerformanceReview{}
		}
	}
	return applyReviewDefaults(review)
}

// applyReviewDefaults ensures a malformed or missing AI reply never leaks
// nil slices or an empty summary.
func applyReviewDefaults(review models.PerformanceReview) models.PerformanceReview {
	if review.Summary == "" {
		review.Summary = emptySummaryPlaceholder
	}
	if review.Strengths == nil {
		review.Strengths = []string{}
	}
	if review.Weaknesses == nil {
		review.Weaknesses = []string{}
	}
	if review.Recommendations == nil {
		review.Recommendations = []string{}
	}
	return review
}

func buildMonthlyPerformance(plans []models.Plan, employeeID, month string) models.MonthlyPerformance {
	monthly := models.MonthlyPerformance{
		EmployeeID:      employeeID,
		Month:           month,
		ManagerComments: []string{},
	}
	for i := range plans {
		p := &plans[i]
		if p.EmployeeID != employeeID || !strings.HasPrefix(p.Date, month) {
			continue
		}
		if monthly.EmployeeName == "" {
			monthly.EmployeeName = p.EmployeeName
		}
		monthly.PlanCount++
		if p.Status == models.PlanStatusCompleted {
			monthly.SIMTotal += p.SIMResult
			monthly.FiberTotal += p.FiberResult
			monthly.MyTVTotal += p.MyTVResult
			monthly.CNTTTotal += p.CNTTResult
			monthly.RevenueTotal += p.RevenueCNTTResult
		}
		if comment := strings.TrimSpace(p.ManagerComment); comment != "" {
			monthly.ManagerComments = append(monthly.ManagerComments, comment)
		}
	}
	return monthly
}

// buildRadar computes per-service completion percent for the chart. A zero
// target counts as 100 when any result exists, otherwise 0.
func buildRadar(plans []models.Plan, employeeID, month string) []models.RadarPoint {
	points := make([]models.RadarPoint, 0, len(models.ServiceLines))
	for _, line := range models.ServiceLines {
		var target, result float64
		for i := range plans {
			p := &plans[i]
			if p.EmployeeID != employeeID || !strings.HasPrefix(p.Date, month) {
				continue
			}
			target += p.TargetFor(line)
			if p.Status == models.PlanStatusCompleted {
				result += p.ResultFor(line)
			}
		}
		percent := 0.0
		switch {
		case target == 0 && result > 0:
			percent = 100
		case target > 0:
			percent = result / target * 100
			if percent > radarCap {
				percent = radarCap
			}
		}
		points = append(points, models.RadarPoint{Service: line, Percent: percent})
	}
	return points
}

func buildPrompt(monthly models.MonthlyPerformance) string {
	var b strings.Builder
	b.WriteString("Bạn là một Giám đốc Kinh doanh cấp cao tại VNPT. ")
	b.WriteString("Hãy đánh giá hiệu quả làm việc trong tháng của nhân viên dưới đây và trả lời bằng tiếng Việt.\n\n")
	fmt.Fprintf(&b, "Nhân viên: %s (%s)\n", monthly.EmployeeName, monthly.EmployeeID)
	fmt.Fprintf(&b, "Tháng: %s\n", monthly.Month)
	fmt.Fprintf(&b, "Số kế hoạch tuần: %d\n", monthly.PlanCount)
	fmt.Fprintf(&b, "Kết quả SIM: %.0f\n", monthly.SIMTotal)
	fmt.Fprintf(&b, "Kết quả Fiber: %.0f\n", monthly.FiberTotal)
	fmt.Fprintf(&b, "Kết quả MyTV: %.0f\n", monthly.MyTVTotal)
	fmt.Fprintf(&b, "Kết quả CNTT: %.0f\n", monthly.CNTTTotal)
	fmt.Fprintf(&b, "Doanh thu CNTT: %.0f đồng\n", monthly.RevenueTotal)
	if len(monthly.ManagerComments) > 0 {
		b.WriteString("Nhận xét của quản lý:\n")
		for _, comment := range monthly.ManagerComments {
			fmt.Fprintf(&b, "- %s\n", comment)
		}
	}
	b.WriteString("\nChấm điểm tổng thể theo thang 100, nêu điểm mạnh, điểm yếu và khuyến nghị cụ thể.")
	return b.String()
}

func reviewSchema() *ai.Schema {
	stringArray := ai.Schema{Type: "ARRAY", Items: &ai.Schema{Type: "STRING"}}
	return &ai.Schema{
		Type: "OBJECT",
		Properties: map[string]ai.Schema{
			"overall_score":   {Type: "NUMBER"},
			"summary":         {Type: "STRING"},
			"strengths":       stringArray,
			"weaknesses":      stringArray,
			"recommendations": stringArray,
		},
		Required: []string{"overall_score", "summary"},
	}
}
