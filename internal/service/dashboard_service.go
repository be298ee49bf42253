package service

import (
	"context"
	"math"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vnpt-kd/kpi-plan-api/internal/dto"
	"github.com/vnpt-kd/kpi-plan-api/internal/models"
)

type snapshotLoader interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL   time.Duration
	WeeklyKeep int
}

// DashboardService aggregates the plan snapshot into dashboard payloads.
type DashboardService struct {
	snapshots snapshotLoader
	cache     *CacheService
	logger    *zap.Logger
	now       func() time.Time
	cfg       DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(snapshots snapshotLoader, cache *CacheService, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.WeeklyKeep <= 0 {
		cfg.WeeklyKeep = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		snapshots: snapshots,
		cache:     cache,
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
}

// Summary returns the aggregated dashboard for the filter tuple and indicates
// cache utilisation.
func (s *DashboardService) Summary(ctx context.Context, filter dto.DashboardFilter) (*dto.DashboardResponse, bool, error) {
	cacheKey := filter.CacheKey()
	if s.cache != nil {
		var cached dto.DashboardResponse
		hit, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			return nil, false, err
		}
		if hit {
			return &cached, true, nil
		}
	}

	snapshot, err := s.snapshots.Load(ctx)
	if err != nil {
		return nil, false, err
	}

	summary := s.compose(snapshot, filter)
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, summary, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return summary, false, nil
}

// Invalidate drops all cached dashboard payloads. Called after any plan or
// user mutation.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "dash:*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *DashboardService) compose(snapshot *Snapshot, filter dto.DashboardFilter) *dto.DashboardResponse {
	filtered := filterPlans(snapshot.Plans, filter)

	return &dto.DashboardResponse{
		Filter:      filter,
		Services:    serviceSummaries(filtered),
		Employees:   s.employeeRollup(snapshot, filter),
		Weekly:      s.weeklySeries(snapshot.Plans, filter),
		PlanCount:   len(filtered),
		GeneratedAt: s.now().UTC(),
	}
}

func serviceSummaries(plans []models.Plan) []dto.ServiceSummary {
	summaries := make([]dto.ServiceSummary, 0, len(models.ServiceLines))
	for _, line := range models.ServiceLines {
		var target, result float64
		for i := range plans {
			target += plans[i].TargetFor(line)
			if plans[i].Status == models.PlanStatusCompleted {
				result += plans[i].ResultFor(line)
			}
		}
		summaries = append(summaries, dto.ServiceSummary{
			Service: line,
			Target:  target,
			Result:  result,
			Ratio:   completionRatio(result, target),
		})
	}
	return summaries
}

// employeeRollup groups the week/month/year-filtered plans per employee. The
// employee filter is intentionally not reapplied here so the leaderboard
// always shows the whole team for the selected window.
func (s *DashboardService) employeeRollup(snapshot *Snapshot, filter dto.DashboardFilter) []dto.EmployeePerformance {
	windowFilter := filter
	windowFilter.EmployeeID = ""
	filtered := filterPlans(snapshot.Plans, windowFilter)

	type totals struct {
		target float64
		actual float64
	}
	byEmployee := make(map[string]*totals, len(snapshot.Users))
	for i := range filtered {
		p := &filtered[i]
		acc := byEmployee[p.EmployeeID]
		if acc == nil {
			acc = &totals{}
			byEmployee[p.EmployeeID] = acc
		}
		for _, line := range models.ServiceLines {
			acc.target += p.TargetFor(line)
			if p.Status == models.PlanStatusCompleted {
				acc.actual += p.ResultFor(line)
			}
		}
	}

	rollup := make([]dto.EmployeePerformance, 0, len(snapshot.Users))
	for i := range snapshot.Users {
		u := &snapshot.Users[i]
		if u.Role != models.RoleEmployee {
			continue
		}
		acc := byEmployee[u.EmployeeID]
		if acc == nil {
			acc = &totals{}
		}
		ratio := completionRatio(acc.actual, acc.target)
		rollup = append(rollup, dto.EmployeePerformance{
			EmployeeID:   u.EmployeeID,
			EmployeeName: u.FullName,
			Target:       acc.target,
			Actual:       acc.actual,
			Ratio:        ratio,
			Band:         models.BandFor(ratio),
		})
	}

	sort.SliceStable(rollup, func(i, j int) bool {
		return rollup[i].Actual > rollup[j].Actual
	})
	return rollup
}

// weeklySeries builds the trend over the most recent week labels. Labels come
// from every plan regardless of filters; per-week sums honour only the
// employee filter. Week labels sort lexicographically, matching how they are
// captured.
func (s *DashboardService) weeklySeries(plans []models.Plan, filter dto.DashboardFilter) []dto.WeeklyPoint {
	seen := make(map[string]struct{})
	labels := make([]string, 0)
	for i := range plans {
		week := plans[i].WeekNumber
		if week == "" {
			continue
		}
		if _, ok := seen[week]; ok {
			continue
		}
		seen[week] = struct{}{}
		labels = append(labels, week)
	}
	sort.Strings(labels)
	if len(labels) > s.cfg.WeeklyKeep {
		labels = labels[len(labels)-s.cfg.WeeklyKeep:]
	}

	series := make([]dto.WeeklyPoint, 0, len(labels))
	for _, week := range labels {
		point := dto.WeeklyPoint{Week: week}
		for i := range plans {
			p := &plans[i]
			if p.WeekNumber != week {
				continue
			}
			if !matchesDimension(filter.EmployeeID, p.EmployeeID) {
				continue
			}
			for _, line := range models.ServiceLines {
				point.Target += p.TargetFor(line)
				if p.Status == models.PlanStatusCompleted {
					point.Actual += p.ResultFor(line)
				}
			}
		}
		series = append(series, point)
	}
	return series
}

// filterPlans narrows the snapshot by the filter tuple. Year and month come
// from parsing the plan date; week matches the free-text label.
func filterPlans(plans []models.Plan, filter dto.DashboardFilter) []models.Plan {
	result := make([]models.Plan, 0, len(plans))
	for i := range plans {
		p := &plans[i]
		if !matchesDimension(filter.Week, p.WeekNumber) {
			continue
		}
		if !matchesDimension(filter.EmployeeID, p.EmployeeID) {
			continue
		}
		if filter.Year != "" && filter.Year != dto.FilterAll || filter.Month != "" && filter.Month != dto.FilterAll {
			parsed, err := time.Parse("2006-01-02", p.Date)
			if err != nil {
				continue
			}
			if !matchesNumeric(filter.Year, parsed.Year()) {
				continue
			}
			if !matchesNumeric(filter.Month, int(parsed.Month())) {
				continue
			}
		}
		result = append(result, *p)
	}
	return result
}

func matchesDimension(filter, value string) bool {
	return filter == "" || filter == dto.FilterAll || filter == value
}

func matchesNumeric(filter string, value int) bool {
	if filter == "" || filter == dto.FilterAll {
		return true
	}
	parsed, err := strconv.Atoi(filter)
	if err != nil {
		return false
	}
	return parsed == value
}

// completionRatio is the rounded percentage of result against target, zero
// whenever the target is zero.
func completionRatio(result, target float64) int {
	if target == 0 {
		return 0
	}
	return int(math.Round(result / target * 100))
}
