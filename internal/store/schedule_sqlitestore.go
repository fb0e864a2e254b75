package store

import (
	"context"
	"time"
)

type ScheduleSQLiteStore struct {
	exec *Executor
}

func NewScheduleSQLiteStore(exec *Executor) *ScheduleSQLiteStore {
	return &ScheduleSQLiteStore{exec}
}

func (store *ScheduleSQLiteStore) CreateSchedule(
	ctx context.Context,
	name string,
	pipelineType PipelineType,
	cronExpression, timezone string,
	parameters *string,
	isActive bool,
	nextRunAt *time.Time,
) (*Schedule, error) {
	s := &Schedule{
		Name:           name,
		PipelineType:   pipelineType,
		CronExpression: cronExpression,
		Timezone:       timezone,
		Parameters:     parameters,
		IsActive:       isActive,
		NextRunAt:      nextRunAt,
	}
	query := `insert into schedules (
		name,
		pipeline_type,
		cron_expression,
		timezone,
		parameters,
		is_active,
		next_run_at
	)
	values ($1, $2, $3, $4, $5, $6, $7)
	returning schedule_id, created_at, updated_at`
	if err := store.exec.Get(
		ctx, s, query,
		s.Name,
		s.PipelineType,
		s.CronExpression,
		s.Timezone,
		s.Parameters,
		s.IsActive,
		s.NextRunAt,
	); err != nil {
		return nil, err
	}
	return s, nil
}

func (store *ScheduleSQLiteStore) ReadScheduleByID(
	ctx context.Context,
	id int64,
) (*Schedule, error) {
	s := new(Schedule)
	query := "select * from schedules where schedule_id = $1"
	if err := store.exec.Get(ctx, s, query, id); err != nil {
		return nil, err
	}
	return s, nil
}

func (store *ScheduleSQLiteStore) ReadScheduleByName(
	ctx context.Context,
	name string,
) (*Schedule, error) {
	s := new(Schedule)
	query := "select * from schedules where name = $1"
	if err := store.exec.Get(ctx, s, query, name); err != nil {
		return nil, err
	}
	return s, nil
}

func (store *ScheduleSQLiteStore) ListSchedules(
	ctx context.Context,
	pipelineType *PipelineType,
) ([]*Schedule, error) {
	schedules := make([]*Schedule, 0)
	if pipelineType != nil {
		query := "select * from schedules where pipeline_type = $1 order by schedule_id"
		err := store.exec.Select(ctx, &schedules, query, *pipelineType)
		return schedules, err
	}
	query := "select * from schedules order by schedule_id"
	err := store.exec.Select(ctx, &schedules, query)
	return schedules, err
}

func (store *ScheduleSQLiteStore) ListActiveSchedules(
	ctx context.Context,
) ([]*Schedule, error) {
	schedules := make([]*Schedule, 0)
	query := "select * from schedules where is_active = 1 order by schedule_id"
	err := store.exec.Select(ctx, &schedules, query)
	return schedules, err
}

func (store *ScheduleSQLiteStore) UpdateSchedule(
	ctx context.Context,
	id int64,
	name string,
	cronExpression, timezone string,
	parameters *string,
	isActive bool,
) error {
	query := `update schedules
	set name = $1,
		cron_expression = $2,
		timezone = $3,
		parameters = $4,
		is_active = $5,
		updated_at = CURRENT_TIMESTAMP
	where schedule_id = $6`
	_, err := store.exec.Exec(
		ctx, query,
		name,
		cronExpression,
		timezone,
		parameters,
		isActive,
		id,
	)
	return err
}

func (store *ScheduleSQLiteStore) UpdateScheduleJob(
	ctx context.Context,
	id int64,
	jobID *string,
	nextRunAt *time.Time,
) error {
	query := `update schedules
	set job_id = $1,
		next_run_at = $2,
		updated_at = CURRENT_TIMESTAMP
	where schedule_id = $3`
	_, err := store.exec.Exec(ctx, query, jobID, nextRunAt, id)
	return err
}

func (store *ScheduleSQLiteStore) UpdateScheduleRun(
	ctx context.Context,
	id int64,
	lastRunAt, nextRunAt *time.Time,
) error {
	query := `update schedules
	set last_run_at = $1,
		next_run_at = coalesce($2, next_run_at),
		updated_at = CURRENT_TIMESTAMP
	where schedule_id = $3`
	_, err := store.exec.Exec(ctx, query, lastRunAt, nextRunAt, id)
	return err
}

func (store *ScheduleSQLiteStore) UpdateScheduleResult(
	ctx context.Context,
	id int64,
	status RunStatus,
	errMessage *string,
) error {
	query := `update schedules
	set last_status = $1,
		last_error = $2,
		updated_at = CURRENT_TIMESTAMP
	where schedule_id = $3`
	_, err := store.exec.Exec(ctx, query, status, errMessage, id)
	return err
}

func (store *ScheduleSQLiteStore) DeleteSchedule(ctx context.Context, id int64) error {
	query := "delete from schedules where schedule_id = $1"
	_, err := store.exec.Exec(ctx, query, id)
	return err
}
