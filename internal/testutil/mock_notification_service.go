package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/repopulse/repopulse/internal/store"
)

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) GetNotifications(
	ctx context.Context,
	filter store.NotificationFilter,
) ([]store.Notification, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]store.Notification), args.Get(1).(int64), args.Error(2)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockNotificationService) MarkAllRead(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
