package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vnpt-kd/kpi-plan-api/internal/models"
)

type snapshotUserLister interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
}

type snapshotPlanLister interface {
	List(ctx context.Context) ([]models.Plan, error)
}

// snapshotUserPageSize covers the whole sales force in one page; the unit
// sits well under this.
const snapshotUserPageSize = 1000

// Snapshot is the combined users-and-plans dataset the aggregation layers
// operate on.
type Snapshot struct {
	Users []models.User `json:"users"`
	Plans []models.Plan `json:"plans"`
}

// SnapshotService loads users and plans concurrently with fail-fast joining:
// either leg failing fails the whole load.
type SnapshotService struct {
	users  snapshotUserLister
	plans  snapshotPlanLister
	logger *zap.Logger
}

// NewSnapshotService constructs a snapshot service.
func NewSnapshotService(users snapshotUserLister, plans snapshotPlanLister, logger *zap.Logger) *SnapshotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotService{users: users, plans: plans, logger: logger}
}

// Load fetches both collections in parallel.
func (s *SnapshotService) Load(ctx context.Context) (*Snapshot, error) {
	snapshot := &Snapshot{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		users, _, err := s.users.List(gctx, models.UserFilter{PageSize: snapshotUserPageSize})
		if err != nil {
			return err
		}
		snapshot.Users = users
		return nil
	})
	g.Go(func() error {
		plans, err := s.plans.List(gctx)
		if err != nil {
			return err
		}
		snapshot.Plans = plans
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("snapshot load failed", zap.Error(err))
		return nil, err
	}
	return snapshot, nil
}

// Plans fetches just the plan collection.
func (s *SnapshotService) Plans(ctx context.Context) ([]models.Plan, error) {
	return s.plans.List(ctx)
}
