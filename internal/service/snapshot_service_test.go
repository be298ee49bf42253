package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vnpt-kd/kpi-plan-api/internal/models"
)

type userListerStub struct {
	users []models.User
	err   error
}

func (s *userListerStub) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	return s.users, len(s.users), nil
}

func TestSnapshotLoadsBothCollections(t *testing.T) {
	users := &userListerStub{users: []models.User{{EmployeeID: "NV001"}}}
	plans := &planListerStub{plans: []models.Plan{{ID: "p1"}, {ID: "p2"}}}
	svc := NewSnapshotService(users, plans, zap.NewNop())

	snapshot, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, snapshot.Users, 1)
	assert.Len(t, snapshot.Plans, 2)
}

func TestSnapshotLoadFailsWhenEitherLegFails(t *testing.T) {
	boom := errors.New("connection refused")

	svc := NewSnapshotService(&userListerStub{err: boom}, &planListerStub{}, zap.NewNop())
	_, err := svc.Load(context.Background())
	require.ErrorIs(t, err, boom)

	svc = NewSnapshotService(&userListerStub{}, &planListerStub{err: boom}, zap.NewNop())
	_, err = svc.Load(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestSnapshotPlansPassthrough(t *testing.T) {
	plans := &planListerStub{plans: []models.Plan{{ID: "p1"}}}
	svc := NewSnapshotService(&userListerStub{}, plans, zap.NewNop())

	got, err := svc.Plans(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
