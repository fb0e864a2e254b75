package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/repopulse/repopulse/internal/store"
)

// NotificationService turns scheduler lifecycle events into persisted
// notification records, and pushes failures out to active webhook targets.
// Dispatch is best-effort: a dead endpoint never loses the stored record.
type NotificationService struct {
	notificationStore store.NotificationStore
	client            *http.Client
	limiter           *rate.Limiter
}

func NewNotificationService(
	notificationStore store.NotificationStore,
	events *Events,
	dispatchPerMinute int64,
) *NotificationService {
	s := &NotificationService{
		notificationStore: notificationStore,
		client:            &http.Client{Timeout: 10 * time.Second},
		limiter:           rate.NewLimiter(rate.Limit(float64(dispatchPerMinute)/60.0), 1),
	}
	for _, t := range EventTypes {
		events.Subscribe(t, s.handleEvent)
	}
	return s
}

func (s *NotificationService) handleEvent(ev Event) {
	ctx := context.Background()

	level := levelFor(ev.Type)
	title, message := describeEvent(ev)
	details := eventDetails(ev)

	n, err := s.notificationStore.CreateNotification(
		ctx,
		string(ev.Type),
		title,
		message,
		details,
		level,
	)
	if err != nil {
		log.Printf("err storing notification for %s: %v", ev.Type, err)
		return
	}

	if ev.Type == EventScheduleFailed {
		s.dispatchAlert(ctx, n)
	}
}

func (s *NotificationService) dispatchAlert(ctx context.Context, n *store.Notification) {
	settings, err := s.notificationStore.ListActiveNotificationSettings(ctx, store.LevelError)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		log.Println("err reading notification settings:", err)
		return
	}

	payload, err := json.Marshal(n)
	if err != nil {
		log.Println("err encoding alert payload:", err)
		return
	}

	for _, setting := range settings {
		if !s.limiter.Allow() {
			log.Println("alert dispatch rate exceeded, dropping webhook call")
			return
		}
		if err := s.postWebhook(ctx, setting.Endpoint, payload); err != nil {
			log.Printf("err dispatching alert to %s: %v", setting.Endpoint, err)
		}
	}
}

func (s *NotificationService) postWebhook(ctx context.Context, endpoint string, payload []byte) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, endpoint, bytes.NewReader(payload),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *NotificationService) GetNotifications(
	ctx context.Context,
	filter store.NotificationFilter,
) ([]store.Notification, int64, error) {
	notifications, total, err := s.notificationStore.ListNotifications(ctx, filter)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id int64) error {
	return s.notificationStore.MarkNotificationRead(ctx, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context) (int64, error) {
	return s.notificationStore.MarkAllNotificationsRead(ctx)
}

func (s *NotificationService) CreateSetting(
	ctx context.Context,
	channel, endpoint string,
	minLevel store.NotificationLevel,
) (*store.NotificationSetting, error) {
	return s.notificationStore.CreateNotificationSetting(ctx, channel, endpoint, minLevel)
}

func levelFor(t EventType) store.NotificationLevel {
	switch t {
	case EventScheduleCompleted:
		return store.LevelSuccess
	case EventScheduleFailed:
		return store.LevelError
	default:
		return store.LevelInfo
	}
}

func describeEvent(ev Event) (title, message string) {
	name := ev.Schedule.Name
	pt := ev.Schedule.PipelineType
	switch ev.Type {
	case EventScheduleCreated:
		return "Schedule created",
			fmt.Sprintf("Schedule %q for pipeline %s was created", name, pt)
	case EventScheduleUpdated:
		return "Schedule updated",
			fmt.Sprintf("Schedule %q for pipeline %s was updated", name, pt)
	case EventScheduleDeleted:
		return "Schedule deleted",
			fmt.Sprintf("Schedule %q for pipeline %s was deleted", name, pt)
	case EventScheduleExecuting:
		return "Pipeline started",
			fmt.Sprintf("Schedule %q started pipeline %s", name, pt)
	case EventScheduleCompleted:
		return "Pipeline completed",
			fmt.Sprintf(
				"Schedule %q completed pipeline %s, %d items processed",
				name, pt, ev.ItemsProcessed,
			)
	case EventScheduleFailed:
		return "Pipeline failed",
			fmt.Sprintf("Schedule %q failed pipeline %s: %s", name, pt, ev.Err)
	default:
		return string(ev.Type), fmt.Sprintf("Schedule %q raised %s", name, ev.Type)
	}
}

func eventDetails(ev Event) *string {
	details := map[string]any{
		"schedule_id":   ev.Schedule.ScheduleID,
		"pipeline_type": ev.Schedule.PipelineType,
	}
	if ev.ItemsProcessed > 0 {
		details["items_processed"] = ev.ItemsProcessed
	}
	if ev.Err != "" {
		details["error"] = ev.Err
	}
	b, err := json.Marshal(details)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}
