package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/repopulse/repopulse/internal/pipeline"
	"github.com/repopulse/repopulse/internal/store"
)

type NewSchedule struct {
	Name           string
	PipelineType   store.PipelineType
	CronExpression string
	Timezone       string
	Parameters     *string
	IsActive       bool
}

// ScheduleUpdate applies only its non-nil fields.
type ScheduleUpdate struct {
	Name           *string
	CronExpression *string
	Timezone       *string
	Parameters     *string
	IsActive       *bool
}

// SchedulerService owns schedule definitions, their live cron jobs, pipeline
// execution and run history. Every execution outcome is published as a typed
// event; a failing pipeline never takes the scheduler down with it.
type SchedulerService struct {
	scheduleStore store.ScheduleStore
	historyStore  store.HistoryStore
	scheduler     gocron.Scheduler
	registry      *pipeline.Registry
	events        *Events
	timeout       time.Duration

	mu   sync.Mutex
	jobs map[int64]uuid.UUID
}

func NewSchedulerService(
	scheduleStore store.ScheduleStore,
	historyStore store.HistoryStore,
	scheduler gocron.Scheduler,
	registry *pipeline.Registry,
	events *Events,
	executionTimeout time.Duration,
) *SchedulerService {
	return &SchedulerService{
		scheduleStore: scheduleStore,
		historyStore:  historyStore,
		scheduler:     scheduler,
		registry:      registry,
		events:        events,
		timeout:       executionTimeout,
		jobs:          make(map[int64]uuid.UUID),
	}
}

// RehydrateSchedules recreates live jobs for every active schedule. Called
// once at process start, before the scheduler is started.
func (s *SchedulerService) RehydrateSchedules(ctx context.Context) error {
	schedules, err := s.scheduleStore.ListActiveSchedules(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	for _, sched := range schedules {
		jobID, next, err := s.armJob(sched)
		if err != nil {
			log.Printf("err rehydrating schedule %q: %v", sched.Name, err)
			continue
		}
		if err := s.scheduleStore.UpdateScheduleJob(ctx, sched.ScheduleID, &jobID, next); err != nil {
			log.Printf("err storing job handle for schedule %q: %v", sched.Name, err)
		}
	}
	return nil
}

func (s *SchedulerService) ScheduleJob(
	ctx context.Context,
	ns NewSchedule,
) (*store.Schedule, error) {
	if ns.Name == "" {
		return nil, NewScheduleValidationError("schedule name must not be empty")
	}
	if !s.registry.Has(ns.PipelineType) {
		return nil, NewScheduleValidationError("unknown pipeline type %q", ns.PipelineType)
	}
	timezone := s.resolveTimezone(ns.Timezone)
	if err := s.validateCron(ns.CronExpression, timezone); err != nil {
		return nil, err
	}

	next, err := s.nextRunAfter(ns.CronExpression, timezone, time.Now())
	if err != nil {
		return nil, NewScheduleValidationError(
			"invalid cron expression %q: %v", ns.CronExpression, err,
		)
	}

	sched, err := s.scheduleStore.CreateSchedule(
		ctx,
		ns.Name,
		ns.PipelineType,
		ns.CronExpression,
		timezone,
		ns.Parameters,
		ns.IsActive,
		next,
	)
	if err != nil {
		return nil, err
	}

	if sched.IsActive {
		jobID, jobNext, err := s.armJob(sched)
		if err != nil {
			return sched, err
		}
		if err := s.scheduleStore.UpdateScheduleJob(
			ctx, sched.ScheduleID, &jobID, jobNext,
		); err != nil {
			return sched, err
		}
		sched.JobID = &jobID
		sched.NextRunAt = jobNext
	}

	s.events.Publish(Event{Type: EventScheduleCreated, Schedule: *sched})
	return sched, nil
}

func (s *SchedulerService) UpdateSchedule(
	ctx context.Context,
	id int64,
	up ScheduleUpdate,
) (*store.Schedule, error) {
	sched, err := s.readSchedule(ctx, id)
	if err != nil {
		return nil, err
	}

	recurrenceChanged := false
	if up.Name != nil {
		sched.Name = *up.Name
	}
	if up.CronExpression != nil && *up.CronExpression != sched.CronExpression {
		sched.CronExpression = *up.CronExpression
		recurrenceChanged = true
	}
	if up.Timezone != nil {
		timezone := s.resolveTimezone(*up.Timezone)
		if timezone != sched.Timezone {
			sched.Timezone = timezone
			recurrenceChanged = true
		}
	}
	if up.Parameters != nil {
		sched.Parameters = up.Parameters
	}
	if up.IsActive != nil && *up.IsActive != sched.IsActive {
		sched.IsActive = *up.IsActive
		recurrenceChanged = true
	}

	if recurrenceChanged {
		if err := s.validateCron(sched.CronExpression, sched.Timezone); err != nil {
			return nil, err
		}
	}

	if err := s.scheduleStore.UpdateSchedule(
		ctx,
		sched.ScheduleID,
		sched.Name,
		sched.CronExpression,
		sched.Timezone,
		sched.Parameters,
		sched.IsActive,
	); err != nil {
		return nil, err
	}

	if recurrenceChanged {
		s.disarmJob(sched.ScheduleID)
		var jobID *string
		next, err := s.nextRunAfter(sched.CronExpression, sched.Timezone, time.Now())
		if err != nil {
			return nil, NewScheduleValidationError(
				"invalid cron expression %q: %v", sched.CronExpression, err,
			)
		}
		if sched.IsActive {
			armed, jobNext, err := s.armJob(sched)
			if err != nil {
				return sched, err
			}
			jobID = &armed
			next = jobNext
		}
		if err := s.scheduleStore.UpdateScheduleJob(
			ctx, sched.ScheduleID, jobID, next,
		); err != nil {
			return sched, err
		}
		sched.JobID = jobID
		sched.NextRunAt = next
	}

	s.events.Publish(Event{Type: EventScheduleUpdated, Schedule: *sched})
	return sched, nil
}

func (s *SchedulerService) DeleteSchedule(ctx context.Context, id int64) error {
	sched, err := s.readSchedule(ctx, id)
	if err != nil {
		return err
	}
	s.disarmJob(id)
	if err := s.scheduleStore.DeleteSchedule(ctx, id); err != nil {
		return err
	}
	s.events.Publish(Event{Type: EventScheduleDeleted, Schedule: *sched})
	return nil
}

// TriggerJob executes a schedule's pipeline immediately, active or not,
// through the same path a cron tick takes.
func (s *SchedulerService) TriggerJob(ctx context.Context, id int64) error {
	if _, err := s.readSchedule(ctx, id); err != nil {
		return err
	}
	s.executeJob(ctx, id)
	return nil
}

func (s *SchedulerService) GetSchedules(
	ctx context.Context,
	pipelineType *store.PipelineType,
) ([]*store.Schedule, error) {
	schedules, err := s.scheduleStore.ListSchedules(ctx, pipelineType)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return schedules, nil
}

func (s *SchedulerService) GetScheduleByID(ctx context.Context, id int64) (*store.Schedule, error) {
	return s.readSchedule(ctx, id)
}

func (s *SchedulerService) GetHistory(
	ctx context.Context,
	pipelineType *store.PipelineType,
	limit int64,
) ([]store.PipelineHistoryEntry, error) {
	entries, err := s.historyStore.ListHistory(ctx, pipelineType, limit)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return entries, nil
}

// JobCount reports how many live cron jobs are armed. Observability only.
func (s *SchedulerService) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *SchedulerService) readSchedule(ctx context.Context, id int64) (*store.Schedule, error) {
	sched, err := s.scheduleStore.ReadScheduleByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &ErrScheduleNotFound{ScheduleID: id}
		}
		return nil, err
	}
	return sched, nil
}

// executeJob is the single execution path shared by cron ticks and manual
// triggers. Pipeline failures are recorded and published, never propagated.
func (s *SchedulerService) executeJob(ctx context.Context, scheduleID int64) {
	sched, err := s.scheduleStore.ReadScheduleByID(ctx, scheduleID)
	if err != nil {
		log.Printf("err reading schedule %d for execution: %v", scheduleID, err)
		return
	}

	now := time.Now().UTC()
	next, nextErr := s.nextRunAfter(sched.CronExpression, sched.Timezone, now)
	if nextErr != nil {
		next = nil
	}
	if err := s.scheduleStore.UpdateScheduleRun(ctx, scheduleID, &now, next); err != nil {
		log.Printf("err recording run start for schedule %q: %v", sched.Name, err)
	}
	sched.LastRunAt = &now
	if next != nil {
		sched.NextRunAt = next
	}

	s.events.Publish(Event{Type: EventScheduleExecuting, Schedule: *sched})

	entry, err := s.historyStore.CreateHistoryEntry(ctx, &scheduleID, sched.PipelineType)
	if err != nil {
		log.Printf("err creating history entry for schedule %q: %v", sched.Name, err)
	}

	items, runErr := s.runPipeline(ctx, sched)

	status := store.StatusCompleted
	var errMessage *string
	if runErr != nil {
		status = store.StatusFailed
		msg := runErr.Error()
		errMessage = &msg
		log.Printf("pipeline %s for schedule %q failed: %v", sched.PipelineType, sched.Name, runErr)
	}

	if err := s.scheduleStore.UpdateScheduleResult(ctx, scheduleID, status, errMessage); err != nil {
		log.Printf("err recording run result for schedule %q: %v", sched.Name, err)
	}
	if entry != nil {
		if err := s.historyStore.CompleteHistoryEntry(
			ctx, entry.HistoryID, status, items, errMessage,
		); err != nil {
			log.Printf("err completing history entry for schedule %q: %v", sched.Name, err)
		}
	}

	lastStatus := string(status)
	sched.LastStatus = &lastStatus
	sched.LastError = errMessage

	if runErr != nil {
		s.events.Publish(Event{
			Type:           EventScheduleFailed,
			Schedule:       *sched,
			ItemsProcessed: items,
			Err:            runErr.Error(),
		})
		return
	}
	s.events.Publish(Event{
		Type:           EventScheduleCompleted,
		Schedule:       *sched,
		ItemsProcessed: items,
	})
}

func (s *SchedulerService) runPipeline(
	ctx context.Context,
	sched *store.Schedule,
) (items int64, err error) {
	runner, ok := s.registry.Resolve(sched.PipelineType)
	if !ok {
		return 0, fmt.Errorf("no runner registered for pipeline type %q", sched.PipelineType)
	}
	params, err := pipeline.ParseParams(sched.Parameters)
	if err != nil {
		return 0, fmt.Errorf("invalid schedule parameters: %w", err)
	}

	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	// A panicking pipeline is an execution failure, not a scheduler crash.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()
	return runner.Run(runCtx, params)
}

func (s *SchedulerService) armJob(sched *store.Schedule) (string, *time.Time, error) {
	scheduleID := sched.ScheduleID
	job, err := s.scheduler.NewJob(
		gocron.CronJob(cronSpec(sched.CronExpression, sched.Timezone), false),
		gocron.NewTask(func() {
			s.executeJob(context.Background(), scheduleID)
		}),
		// Skip a tick while the previous run is still in flight rather than
		// overlapping executions of the same schedule.
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", nil, fmt.Errorf("error scheduling pipeline job: %w", err)
	}

	s.mu.Lock()
	s.jobs[scheduleID] = job.ID()
	s.mu.Unlock()

	next, err := s.nextRunAfter(sched.CronExpression, sched.Timezone, time.Now())
	if err != nil {
		next = nil
	}
	return job.ID().String(), next, nil
}

func (s *SchedulerService) disarmJob(scheduleID int64) {
	s.mu.Lock()
	jobID, ok := s.jobs[scheduleID]
	delete(s.jobs, scheduleID)
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := s.scheduler.RemoveJob(jobID); err != nil {
		log.Println("unable to remove existing job:", err)
	}
}

// validateCron trial-schedules the expression and cancels the job again, so
// validation exercises the exact calendar logic live jobs use.
func (s *SchedulerService) validateCron(expression, timezone string) error {
	job, err := s.scheduler.NewJob(
		gocron.CronJob(cronSpec(expression, timezone), false),
		gocron.NewTask(func() {}),
	)
	if err != nil {
		return NewScheduleValidationError(
			"invalid cron expression %q: %v", expression, err,
		)
	}
	if err := s.scheduler.RemoveJob(job.ID()); err != nil {
		log.Println("err removing trial job:", err)
	}
	return nil
}

func (s *SchedulerService) resolveTimezone(timezone string) string {
	if timezone == "" {
		return "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		log.Printf("unknown timezone %q, falling back to UTC", timezone)
		return "UTC"
	}
	return timezone
}

func (s *SchedulerService) nextRunAfter(
	expression, timezone string,
	after time.Time,
) (*time.Time, error) {
	schedule, err := cron.ParseStandard(expression)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	next := schedule.Next(after.In(loc)).UTC()
	return &next, nil
}

func cronSpec(expression, timezone string) string {
	if timezone == "" || timezone == "UTC" {
		return expression
	}
	return "CRON_TZ=" + timezone + " " + expression
}
