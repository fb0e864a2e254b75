package store

import (
	"context"
	"fmt"
	"strings"
)

type NotificationSQLiteStore struct {
	exec *Executor
}

func NewNotificationSQLiteStore(exec *Executor) *NotificationSQLiteStore {
	return &NotificationSQLiteStore{exec}
}

func (store *NotificationSQLiteStore) CreateNotification(
	ctx context.Context,
	notificationType, title, message string,
	details *string,
	level NotificationLevel,
) (*Notification, error) {
	n := &Notification{
		NotificationType: notificationType,
		Title:            title,
		Message:          message,
		Details:          details,
		Level:            level,
	}
	query := `insert into notifications (notification_type, title, message, details, level)
	values ($1, $2, $3, $4, $5)
	returning notification_id, created_at`
	if err := store.exec.Get(
		ctx, n, query,
		n.NotificationType,
		n.Title,
		n.Message,
		n.Details,
		n.Level,
	); err != nil {
		return nil, err
	}
	return n, nil
}

func (store *NotificationSQLiteStore) ListNotifications(
	ctx context.Context,
	filter NotificationFilter,
) ([]Notification, int64, error) {
	conditions := make([]string, 0, 3)
	args := make([]any, 0, 5)
	next := func() string {
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Type != nil {
		args = append(args, *filter.Type)
		conditions = append(conditions, "notification_type = "+next())
	}
	if filter.Level != nil {
		args = append(args, *filter.Level)
		conditions = append(conditions, "level = "+next())
	}
	if filter.UnreadOnly {
		conditions = append(conditions, "is_read = 0")
	}

	where := ""
	if len(conditions) > 0 {
		where = " where " + strings.Join(conditions, " and ")
	}

	var total int64
	countQuery := "select count(*) from notifications" + where
	if err := store.exec.Get(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit)
	limitParam := next()
	args = append(args, filter.Offset)
	offsetParam := next()

	notifications := make([]Notification, 0)
	query := "select * from notifications" + where +
		" order by created_at desc, notification_id desc" +
		" limit " + limitParam + " offset " + offsetParam
	if err := store.exec.Select(ctx, &notifications, query, args...); err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (store *NotificationSQLiteStore) MarkNotificationRead(ctx context.Context, id int64) error {
	query := "update notifications set is_read = 1 where notification_id = $1"
	_, err := store.exec.Exec(ctx, query, id)
	return err
}

func (store *NotificationSQLiteStore) MarkAllNotificationsRead(
	ctx context.Context,
) (int64, error) {
	query := "update notifications set is_read = 1 where is_read = 0"
	return store.exec.Exec(ctx, query)
}

func (store *NotificationSQLiteStore) CreateNotificationSetting(
	ctx context.Context,
	channel, endpoint string,
	minLevel NotificationLevel,
) (*NotificationSetting, error) {
	s := &NotificationSetting{
		Channel:  channel,
		Endpoint: endpoint,
		MinLevel: minLevel,
		IsActive: true,
	}
	query := `insert into notification_settings (channel, endpoint, min_level, is_active)
	values ($1, $2, $3, $4)
	returning setting_id, created_at`
	if err := store.exec.Get(
		ctx, s, query,
		s.Channel,
		s.Endpoint,
		s.MinLevel,
		s.IsActive,
	); err != nil {
		return nil, err
	}
	return s, nil
}

func (store *NotificationSQLiteStore) ListActiveNotificationSettings(
	ctx context.Context,
	level NotificationLevel,
) ([]NotificationSetting, error) {
	settings := make([]NotificationSetting, 0)
	query := `select * from notification_settings
	where is_active = 1 and min_level = $1
	order by setting_id`
	err := store.exec.Select(ctx, &settings, query, level)
	return settings, err
}
