package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/repopulse/repopulse/internal/service"
	"github.com/repopulse/repopulse/internal/store"
)

type MockSchedulerService struct {
	mock.Mock
}

func (m *MockSchedulerService) ScheduleJob(
	ctx context.Context,
	ns service.NewSchedule,
) (*store.Schedule, error) {
	args := m.Called(ctx, ns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Schedule), args.Error(1)
}

func (m *MockSchedulerService) UpdateSchedule(
	ctx context.Context,
	id int64,
	up service.ScheduleUpdate,
) (*store.Schedule, error) {
	args := m.Called(ctx, id, up)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Schedule), args.Error(1)
}

func (m *MockSchedulerService) DeleteSchedule(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSchedulerService) TriggerJob(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSchedulerService) GetSchedules(
	ctx context.Context,
	pipelineType *store.PipelineType,
) ([]*store.Schedule, error) {
	args := m.Called(ctx, pipelineType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.Schedule), args.Error(1)
}

func (m *MockSchedulerService) GetScheduleByID(
	ctx context.Context,
	id int64,
) (*store.Schedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Schedule), args.Error(1)
}

func (m *MockSchedulerService) GetHistory(
	ctx context.Context,
	pipelineType *store.PipelineType,
	limit int64,
) ([]store.PipelineHistoryEntry, error) {
	args := m.Called(ctx, pipelineType, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.PipelineHistoryEntry), args.Error(1)
}
