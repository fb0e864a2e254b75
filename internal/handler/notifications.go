package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/repopulse/repopulse/internal"
	"github.com/repopulse/repopulse/internal/store"
	"github.com/repopulse/repopulse/internal/util"
)

type NotificationServicer interface {
	GetNotifications(
		ctx context.Context,
		filter store.NotificationFilter,
	) ([]store.Notification, int64, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) (int64, error)
}

func SetupNotificationRoutes(g *echo.Group, svc NotificationServicer) {
	h := NewNotificationHandler(svc)
	g.GET("/notifications", h.GetNotifications)
	g.POST("/notifications/:notification_id/read", h.PostMarkRead)
	g.POST("/notifications/read-all", h.PostMarkAllRead)
}

type NotificationHandler struct {
	svc NotificationServicer
}

func NewNotificationHandler(svc NotificationServicer) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

type notificationPage struct {
	Notifications []store.Notification `json:"notifications"`
	Total         int64                `json:"total"`
}

func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	filter := store.NotificationFilter{
		Limit:      internal.Config.NotificationPageSize,
		UnreadOnly: c.QueryParam("unread_only") == "true",
	}
	if l := c.QueryParam("limit"); l != "" {
		parsed, err := util.Atoi64(l)
		if err != nil || parsed < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		filter.Limit = parsed
	}
	if o := c.QueryParam("offset"); o != "" {
		parsed, err := util.Atoi64(o)
		if err != nil || parsed < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid offset")
		}
		filter.Offset = parsed
	}
	if t := c.QueryParam("type"); t != "" {
		filter.Type = &t
	}
	if lv := c.QueryParam("level"); lv != "" {
		filter.Level = util.AsPtr(store.NotificationLevel(lv))
	}

	notifications, total, err := h.svc.GetNotifications(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, notificationPage{Notifications: notifications, Total: total})
}

func (h *NotificationHandler) PostMarkRead(c echo.Context) error {
	id, err := util.Atoi64(c.Param("notification_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid notification id")
	}
	if err := h.svc.MarkRead(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *NotificationHandler) PostMarkAllRead(c echo.Context) error {
	updated, err := h.svc.MarkAllRead(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int64{"updated": updated})
}
