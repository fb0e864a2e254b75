package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/repopulse/repopulse/internal"
	"github.com/repopulse/repopulse/internal/service"
	"github.com/repopulse/repopulse/internal/store"
	"github.com/repopulse/repopulse/internal/util"
)

type SchedulerServicer interface {
	ScheduleJob(ctx context.Context, ns service.NewSchedule) (*store.Schedule, error)
	UpdateSchedule(ctx context.Context, id int64, up service.ScheduleUpdate) (*store.Schedule, error)
	DeleteSchedule(ctx context.Context, id int64) error
	TriggerJob(ctx context.Context, id int64) error
	GetSchedules(ctx context.Context, pipelineType *store.PipelineType) ([]*store.Schedule, error)
	GetScheduleByID(ctx context.Context, id int64) (*store.Schedule, error)
	GetHistory(
		ctx context.Context,
		pipelineType *store.PipelineType,
		limit int64,
	) ([]store.PipelineHistoryEntry, error)
}

func SetupScheduleRoutes(g *echo.Group, svc SchedulerServicer, webhookKeyHash []byte) {
	h := NewScheduleHandler(svc, webhookKeyHash)
	g.GET("/schedules", h.GetSchedules)
	g.POST("/schedules", h.PostSchedule)
	g.GET("/schedules/:schedule_id", h.GetSchedule)
	g.PATCH("/schedules/:schedule_id", h.PatchSchedule)
	g.DELETE("/schedules/:schedule_id", h.DeleteSchedule)
	g.POST("/schedules/:schedule_id/trigger", h.PostTriggerSchedule)
	g.GET("/history", h.GetHistory)
}

type ScheduleHandler struct {
	svc            SchedulerServicer
	webhookKeyHash []byte
}

func NewScheduleHandler(svc SchedulerServicer, webhookKeyHash []byte) *ScheduleHandler {
	return &ScheduleHandler{svc: svc, webhookKeyHash: webhookKeyHash}
}

type schedulePayload struct {
	Name           *string `json:"name"`
	PipelineType   *string `json:"pipeline_type"`
	CronExpression *string `json:"cron_expression"`
	Timezone       *string `json:"timezone"`
	Parameters     *string `json:"parameters"`
	IsActive       *bool   `json:"is_active"`
}

func (h *ScheduleHandler) GetSchedules(c echo.Context) error {
	var pipelineType *store.PipelineType
	if pt := c.QueryParam("pipeline_type"); pt != "" {
		pipelineType = util.AsPtr(store.PipelineType(pt))
	}
	schedules, err := h.svc.GetSchedules(c.Request().Context(), pipelineType)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, schedules)
}

func (h *ScheduleHandler) GetSchedule(c echo.Context) error {
	id, err := util.Atoi64(c.Param("schedule_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid schedule id")
	}
	sched, err := h.svc.GetScheduleByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *ScheduleHandler) PostSchedule(c echo.Context) error {
	var payload schedulePayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if payload.Name == nil || payload.PipelineType == nil || payload.CronExpression == nil {
		return echo.NewHTTPError(
			http.StatusBadRequest,
			"name, pipeline_type and cron_expression are required",
		)
	}

	ns := service.NewSchedule{
		Name:           *payload.Name,
		PipelineType:   store.PipelineType(*payload.PipelineType),
		CronExpression: *payload.CronExpression,
		Parameters:     payload.Parameters,
		IsActive:       true,
	}
	if payload.Timezone != nil {
		ns.Timezone = *payload.Timezone
	}
	if payload.IsActive != nil {
		ns.IsActive = *payload.IsActive
	}

	sched, err := h.svc.ScheduleJob(c.Request().Context(), ns)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sched)
}

func (h *ScheduleHandler) PatchSchedule(c echo.Context) error {
	id, err := util.Atoi64(c.Param("schedule_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid schedule id")
	}
	var payload schedulePayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	sched, err := h.svc.UpdateSchedule(c.Request().Context(), id, service.ScheduleUpdate{
		Name:           payload.Name,
		CronExpression: payload.CronExpression,
		Timezone:       payload.Timezone,
		Parameters:     payload.Parameters,
		IsActive:       payload.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *ScheduleHandler) DeleteSchedule(c echo.Context) error {
	id, err := util.Atoi64(c.Param("schedule_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid schedule id")
	}
	if err := h.svc.DeleteSchedule(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ScheduleHandler) PostTriggerSchedule(c echo.Context) error {
	if len(h.webhookKeyHash) > 0 {
		key := c.Request().Header.Get(internal.WebhookTriggerKeyHeader)
		if bcrypt.CompareHashAndPassword(h.webhookKeyHash, []byte(key)) != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid webhook key")
		}
	}
	id, err := util.Atoi64(c.Param("schedule_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid schedule id")
	}
	if err := h.svc.TriggerJob(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

func (h *ScheduleHandler) GetHistory(c echo.Context) error {
	var pipelineType *store.PipelineType
	if pt := c.QueryParam("pipeline_type"); pt != "" {
		pipelineType = util.AsPtr(store.PipelineType(pt))
	}
	limit := int64(50)
	if l := c.QueryParam("limit"); l != "" {
		parsed, err := util.Atoi64(l)
		if err != nil || parsed < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = parsed
	}
	entries, err := h.svc.GetHistory(c.Request().Context(), pipelineType, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}
