package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vnpt-kd/kpi-plan-api/internal/dto"
	"github.com/vnpt-kd/kpi-plan-api/internal/models"
	"github.com/vnpt-kd/kpi-plan-api/pkg/ai"
	appErrors "github.com/vnpt-kd/kpi-plan-api/pkg/errors"
)

type reviewerStub struct {
	reply   string
	err     error
	prompts []string
}

func (r *reviewerStub) GenerateJSON(ctx context.Context, prompt string, schema *ai.Schema, dest interface{}) error {
	r.prompts = append(r.prompts, prompt)
	if r.err != nil {
		return r.err
	}
	return json.Unmarshal([]byte(r.reply), dest)
}

func analysisPlans() []models.Plan {
	return []models.Plan{
		{
			EmployeeID: "NV001", EmployeeName: "An", Date: "2025-06-02",
			Status: models.PlanStatusCompleted, SIMResult: 8, FiberResult: 3,
			SIMTarget: 10, RevenueCNTTResult: 5000000, ManagerComment: " Bám địa bàn tốt ",
		},
		{
			EmployeeID: "NV001", EmployeeName: "An", Date: "2025-06-09",
			Status: models.PlanStatusPending, SIMResult: 99, SIMTarget: 10,
			ManagerComment: "   ",
		},
		// Other month and other employee stay out of the aggregate.
		{EmployeeID: "NV001", Date: "2025-05-26", Status: models.PlanStatusCompleted, SIMResult: 50},
		{EmployeeID: "NV002", Date: "2025-06-02", Status: models.PlanStatusCompleted, SIMResult: 70},
	}
}

func newAnalysisForTest(t *testing.T, reviewer reviewGenerator) *AnalysisService {
	t.Helper()
	return NewAnalysisService(&planListerStub{plans: analysisPlans()}, reviewer, nil, zap.NewNop())
}

func TestAnalyzeAggregatesCompletedPlansOnly(t *testing.T) {
	reviewer := &reviewerStub{reply: `{"overall_score": 82, "summary": "Ổn định"}`}
	svc := newAnalysisForTest(t, reviewer)

	resp, err := svc.Analyze(context.Background(), dto.AnalysisRequest{EmployeeID: "NV001", Month: "2025-06"})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Performance.PlanCount)
	assert.Equal(t, 8.0, resp.Performance.SIMTotal)
	assert.Equal(t, 3.0, resp.Performance.FiberTotal)
	assert.Equal(t, 5000000.0, resp.Performance.RevenueTotal)
	// Comments are trimmed and blanks dropped.
	assert.Equal(t, []string{"Bám địa bàn tốt"}, resp.Performance.ManagerComments)
	assert.Equal(t, 82.0, resp.Review.OverallScore)
	assert.Equal(t, "Ổn định", resp.Review.Summary)
}

func TestAnalyzeRadarCapsAndZeroTargets(t *testing.T) {
	plans := []models.Plan{
		{EmployeeID: "NV001", Date: "2025-06-02", Status: models.PlanStatusCompleted,
			SIMTarget: 10, SIMResult: 50, FiberResult: 4, MyTVTarget: 8, MyTVResult: 4},
	}
	svc := NewAnalysisService(&planListerStub{plans: plans}, nil, nil, zap.NewNop())

	resp, err := svc.Analyze(context.Background(), dto.AnalysisRequest{EmployeeID: "NV001", Month: "2025-06"})
	require.NoError(t, err)

	byService := map[models.ServiceLine]float64{}
	for _, point := range resp.Radar {
		byService[point.Service] = point.Percent
	}
	// 500% caps at 120 for the chart.
	assert.Equal(t, 120.0, byService[models.ServiceSIM])
	// A zero target with results counts as fully met.
	assert.Equal(t, 100.0, byService[models.ServiceFiber])
	assert.Equal(t, 50.0, byService[models.ServiceMyTV])
	// No target and no result stays at zero.
	assert.Equal(t, 0.0, byService[models.ServiceCNTT])
}

func TestAnalyzeAIDownFallsBackToPlaceholder(t *testing.T) {
	reviewer := &reviewerStub{err: errors.New("gemini status 503")}
	svc := newAnalysisForTest(t, reviewer)

	resp, err := svc.Analyze(context.Background(), dto.AnalysisRequest{EmployeeID: "NV001", Month: "2025-06"})
	require.NoError(t, err)

	assert.Equal(t, "Không có dữ liệu tổng hợp.", resp.Review.Summary)
	assert.Equal(t, []string{}, resp.Review.Strengths)
	assert.Equal(t, []string{}, resp.Review.Weaknesses)
	assert.Equal(t, []string{}, resp.Review.Recommendations)
}

func TestAnalyzeNilReviewerYieldsDefaults(t *testing.T) {
	svc := newAnalysisForTest(t, nil)

	resp, err := svc.Analyze(context.Background(), dto.AnalysisRequest{EmployeeID: "NV001", Month: "2025-06"})
	require.NoError(t, err)
	assert.Equal(t, "Không có dữ liệu tổng hợp.", resp.Review.Summary)
	assert.NotNil(t, resp.Review.Strengths)
}

func TestAnalyzePartialReplyGetsDefaults(t *testing.T) {
	reviewer := &reviewerStub{reply: `{"overall_score": 70, "summary": "Khá", "strengths": ["Chăm chỉ"]}`}
	svc := newAnalysisForTest(t, reviewer)

	resp, err := svc.Analyze(context.Background(), dto.AnalysisRequest{EmployeeID: "NV001", Month: "2025-06"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Chăm chỉ"}, resp.Review.Strengths)
	assert.Equal(t, []string{}, resp.Review.Weaknesses)
}

func TestAnalyzeValidatesMonthFormat(t *testing.T) {
	svc := newAnalysisForTest(t, nil)

	_, err := svc.Analyze(context.Background(), dto.AnalysisRequest{EmployeeID: "NV001", Month: "06/2025"})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAnalyzePromptCarriesMonthlyTotals(t *testing.T) {
	reviewer := &reviewerStub{reply: `{"overall_score": 82, "summary": "Ổn"}`}
	svc := newAnalysisForTest(t, reviewer)

	_, err := svc.Analyze(context.Background(), dto.AnalysisRequest{EmployeeID: "NV001", Month: "2025-06"})
	require.NoError(t, err)

	require.Len(t, reviewer.prompts, 1)
	assert.Contains(t, reviewer.prompts[0], "NV001")
	assert.Contains(t, reviewer.prompts[0], "Kết quả SIM: 8")
}
