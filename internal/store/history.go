package store

import (
	"context"
	"time"
)

// PipelineHistoryEntry is the immutable record of one pipeline execution.
// It is appended with status running and completed exactly once.
type PipelineHistoryEntry struct {
	HistoryID         int64
	HistoryScheduleID *int64
	PipelineType      PipelineType
	Status            RunStatus
	StartedAt         time.Time
	CompletedAt       *time.Time
	ItemsProcessed    int64
	ErrorMessage      *string
}

type HistoryStore interface {
	CreateHistoryEntry(
		ctx context.Context,
		scheduleID *int64,
		pipelineType PipelineType,
	) (*PipelineHistoryEntry, error)
	CompleteHistoryEntry(
		ctx context.Context,
		id int64,
		status RunStatus,
		itemsProcessed int64,
		errMessage *string,
	) error
	ReadHistoryEntryByID(ctx context.Context, id int64) (*PipelineHistoryEntry, error)
	ListHistory(
		ctx context.Context,
		pipelineType *PipelineType,
		limit int64,
	) ([]PipelineHistoryEntry, error)
}
