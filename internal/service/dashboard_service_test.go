package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vnpt-kd/kpi-plan-api/internal/dto"
	"github.com/vnpt-kd/kpi-plan-api/internal/models"
)

type snapshotStub struct {
	snapshot *Snapshot
	err      error
	calls    int
}

func (s *snapshotStub) Load(ctx context.Context) (*Snapshot, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.snapshot, nil
}

func kpiPlan(employeeID, name, date, week string, status models.PlanStatus, simTarget, simResult float64) models.Plan {
	return models.Plan{
		ID:           employeeID + "-" + date,
		EmployeeID:   employeeID,
		EmployeeName: name,
		Date:         date,
		WeekNumber:   week,
		Status:       status,
		SIMTarget:    simTarget,
		SIMResult:    simResult,
	}
}

func dashboardSnapshot() *Snapshot {
	return &Snapshot{
		Users: []models.User{
			{EmployeeID: "NV001", FullName: "An", Role: models.RoleEmployee},
			{EmployeeID: "NV002", FullName: "Binh", Role: models.RoleEmployee},
			{EmployeeID: "QL001", FullName: "Chief", Role: models.RoleManager},
		},
		Plans: []models.Plan{
			kpiPlan("NV001", "An", "2025-06-02", "Tuần 23", models.PlanStatusCompleted, 10, 9),
			kpiPlan("NV001", "An", "2025-06-09", "Tuần 24", models.PlanStatusPending, 10, 4),
			kpiPlan("NV002", "Binh", "2025-06-02", "Tuần 23", models.PlanStatusCompleted, 10, 12),
			kpiPlan("NV002", "Binh", "2025-05-05", "Tuần 19", models.PlanStatusCompleted, 8, 2),
		},
	}
}

func newDashboardForTest(t *testing.T, stub *snapshotStub) *DashboardService {
	t.Helper()
	return NewDashboardService(stub, nil, zap.NewNop(), DashboardServiceConfig{WeeklyKeep: 8})
}

func TestDashboardTargetsSumAllResultsCompletedOnly(t *testing.T) {
	svc := newDashboardForTest(t, &snapshotStub{snapshot: dashboardSnapshot()})

	resp, hit, err := svc.Summary(context.Background(), dto.DashboardFilter{})
	require.NoError(t, err)
	assert.False(t, hit)

	var sim dto.ServiceSummary
	for _, summary := range resp.Services {
		if summary.Service == models.ServiceSIM {
			sim = summary
		}
	}
	// Targets over all four plans, results over the three completed ones.
	assert.Equal(t, 38.0, sim.Target)
	assert.Equal(t, 23.0, sim.Result)
	assert.Equal(t, 61, sim.Ratio)
	assert.Equal(t, 4, resp.PlanCount)
}

func TestDashboardZeroTargetRatio(t *testing.T) {
	snapshot := &Snapshot{
		Users: []models.User{{EmployeeID: "NV001", FullName: "An", Role: models.RoleEmployee}},
		Plans: []models.Plan{
			kpiPlan("NV001", "An", "2025-06-02", "Tuần 23", models.PlanStatusCompleted, 0, 5),
		},
	}
	svc := newDashboardForTest(t, &snapshotStub{snapshot: snapshot})

	resp, _, err := svc.Summary(context.Background(), dto.DashboardFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Services[0].Ratio)
	assert.Equal(t, 5.0, resp.Services[0].Result)
}

func TestDashboardEmployeeRollupIgnoresEmployeeFilter(t *testing.T) {
	svc := newDashboardForTest(t, &snapshotStub{snapshot: dashboardSnapshot()})

	resp, _, err := svc.Summary(context.Background(), dto.DashboardFilter{EmployeeID: "NV001"})
	require.NoError(t, err)

	// The leaderboard keeps the whole team even when one employee is selected.
	require.Len(t, resp.Employees, 2)
	assert.Equal(t, "NV002", resp.Employees[0].EmployeeID)
	assert.Greater(t, resp.Employees[0].Actual, resp.Employees[1].Actual)
}

func TestDashboardEmployeeWithoutPlansRanksWeak(t *testing.T) {
	snapshot := dashboardSnapshot()
	snapshot.Users = append(snapshot.Users, models.User{EmployeeID: "NV003", FullName: "Cuc", Role: models.RoleEmployee})
	svc := newDashboardForTest(t, &snapshotStub{snapshot: snapshot})

	resp, _, err := svc.Summary(context.Background(), dto.DashboardFilter{})
	require.NoError(t, err)

	var idle dto.EmployeePerformance
	for _, row := range resp.Employees {
		if row.EmployeeID == "NV003" {
			idle = row
		}
	}
	assert.Equal(t, "NV003", idle.EmployeeID)
	assert.Equal(t, 0, idle.Ratio)
	assert.Equal(t, models.BandWeak, idle.Band)
}

func TestDashboardBandBoundaries(t *testing.T) {
	cases := []struct {
		ratio int
		band  models.PerformanceBand
	}{
		{100, models.BandExcellent},
		{99, models.BandGood},
		{80, models.BandGood},
		{79, models.BandAverage},
		{50, models.BandAverage},
		{49, models.BandWeak},
		{0, models.BandWeak},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.band, models.BandFor(tc.ratio), "ratio %d", tc.ratio)
	}
}

func TestDashboardWeeklySeriesKeepsLastEight(t *testing.T) {
	snapshot := &Snapshot{
		Users: []models.User{{EmployeeID: "NV001", FullName: "An", Role: models.RoleEmployee}},
	}
	weeks := []string{"Tuần 11", "Tuần 12", "Tuần 13", "Tuần 14", "Tuần 15", "Tuần 16", "Tuần 17", "Tuần 18", "Tuần 19"}
	for i, week := range weeks {
		snapshot.Plans = append(snapshot.Plans,
			kpiPlan("NV001", "An", "2025-06-02", week, models.PlanStatusCompleted, float64(i+1), float64(i)))
	}
	svc := newDashboardForTest(t, &snapshotStub{snapshot: snapshot})

	resp, _, err := svc.Summary(context.Background(), dto.DashboardFilter{})
	require.NoError(t, err)
	require.Len(t, resp.Weekly, 8)
	// Lexicographic ordering drops the smallest label.
	assert.Equal(t, "Tuần 12", resp.Weekly[0].Week)
	assert.Equal(t, "Tuần 19", resp.Weekly[7].Week)
}

func TestDashboardWeeklyLabelsIgnoreWeekFilter(t *testing.T) {
	svc := newDashboardForTest(t, &snapshotStub{snapshot: dashboardSnapshot()})

	resp, _, err := svc.Summary(context.Background(), dto.DashboardFilter{Week: "Tuần 23"})
	require.NoError(t, err)
	// Labels always span every plan; only the employee filter narrows sums.
	require.Len(t, resp.Weekly, 3)
	assert.Equal(t, "Tuần 19", resp.Weekly[0].Week)
}

func TestDashboardMonthFilterParsesDate(t *testing.T) {
	svc := newDashboardForTest(t, &snapshotStub{snapshot: dashboardSnapshot()})

	resp, _, err := svc.Summary(context.Background(), dto.DashboardFilter{Year: "2025", Month: "5"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.PlanCount)
}

func TestDashboardMalformedDateSkipsRowOnMonthFilter(t *testing.T) {
	snapshot := dashboardSnapshot()
	snapshot.Plans = append(snapshot.Plans,
		kpiPlan("NV001", "An", "not-a-date", "Tuần 25", models.PlanStatusCompleted, 1, 1))
	svc := newDashboardForTest(t, &snapshotStub{snapshot: snapshot})

	resp, _, err := svc.Summary(context.Background(), dto.DashboardFilter{Year: "2025"})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.PlanCount)
}

func TestDashboardSnapshotFailurePropagates(t *testing.T) {
	svc := newDashboardForTest(t, &snapshotStub{err: assert.AnError})

	_, _, err := svc.Summary(context.Background(), dto.DashboardFilter{})
	require.Error(t, err)
}

func TestDashboardFilterCacheKey(t *testing.T) {
	key := dto.DashboardFilter{Year: "2025", EmployeeID: "NV001"}.CacheKey()
	assert.Equal(t, "dash:2025:All:All:NV001", key)
}
