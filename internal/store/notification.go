package store

import (
	"context"
	"time"
)

type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
)

type Notification struct {
	NotificationID   int64 `param:"notification_id"`
	NotificationType string
	Title            string
	Message          string
	Details          *string
	Level            NotificationLevel
	IsRead           bool
	CreatedAt        time.Time
}

// NotificationSetting is an external alert target. Only active settings
// whose minimum level matches are dispatched to.
type NotificationSetting struct {
	SettingID int64
	Channel   string
	Endpoint  string
	MinLevel  NotificationLevel
	IsActive  bool
	CreatedAt time.Time
}

type NotificationFilter struct {
	Limit      int64
	Offset     int64
	Type       *string
	Level      *NotificationLevel
	UnreadOnly bool
}

type NotificationStore interface {
	CreateNotification(
		ctx context.Context,
		notificationType, title, message string,
		details *string,
		level NotificationLevel,
	) (*Notification, error)
	ListNotifications(ctx context.Context, filter NotificationFilter) ([]Notification, int64, error)
	MarkNotificationRead(ctx context.Context, id int64) error
	MarkAllNotificationsRead(ctx context.Context) (int64, error)
	CreateNotificationSetting(
		ctx context.Context,
		channel, endpoint string,
		minLevel NotificationLevel,
	) (*NotificationSetting, error)
	ListActiveNotificationSettings(
		ctx context.Context,
		level NotificationLevel,
	) ([]NotificationSetting, error)
}
