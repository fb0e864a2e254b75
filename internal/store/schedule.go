package store

import (
	"context"
	"time"
)

type PipelineType string

const (
	PipelineGithubSync     PipelineType = "github_sync"
	PipelineDataProcessing PipelineType = "data_processing"
	PipelineDataEnrichment PipelineType = "data_enrichment"
	PipelineAIAnalysis     PipelineType = "ai_analysis"
)

type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

type Schedule struct {
	ScheduleID     int64 `param:"schedule_id"`
	Name           string
	PipelineType   PipelineType
	CronExpression string
	Timezone       string
	Parameters     *string
	IsActive       bool
	JobID          *string
	LastRunAt      *time.Time
	NextRunAt      *time.Time
	LastStatus     *string
	LastError      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ScheduleStore interface {
	CreateSchedule(
		ctx context.Context,
		name string,
		pipelineType PipelineType,
		cronExpression, timezone string,
		parameters *string,
		isActive bool,
		nextRunAt *time.Time,
	) (*Schedule, error)
	ReadScheduleByID(ctx context.Context, id int64) (*Schedule, error)
	ReadScheduleByName(ctx context.Context, name string) (*Schedule, error)
	ListSchedules(ctx context.Context, pipelineType *PipelineType) ([]*Schedule, error)
	ListActiveSchedules(ctx context.Context) ([]*Schedule, error)
	UpdateSchedule(
		ctx context.Context,
		id int64,
		name string,
		cronExpression, timezone string,
		parameters *string,
		isActive bool,
	) error
	UpdateScheduleJob(ctx context.Context, id int64, jobID *string, nextRunAt *time.Time) error
	UpdateScheduleRun(ctx context.Context, id int64, lastRunAt, nextRunAt *time.Time) error
	UpdateScheduleResult(ctx context.Context, id int64, status RunStatus, errMessage *string) error
	DeleteSchedule(ctx context.Context, id int64) error
}
