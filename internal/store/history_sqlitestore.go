package store

import (
	"context"
	"time"
)

type HistorySQLiteStore struct {
	exec *Executor
}

func NewHistorySQLiteStore(exec *Executor) *HistorySQLiteStore {
	return &HistorySQLiteStore{exec}
}

func (store *HistorySQLiteStore) CreateHistoryEntry(
	ctx context.Context,
	scheduleID *int64,
	pipelineType PipelineType,
) (*PipelineHistoryEntry, error) {
	h := &PipelineHistoryEntry{
		HistoryScheduleID: scheduleID,
		PipelineType:      pipelineType,
		Status:            StatusRunning,
	}
	query := `insert into pipeline_history (history_schedule_id, pipeline_type, status)
	values ($1, $2, $3)
	returning history_id, started_at`
	if err := store.exec.Get(
		ctx, h, query,
		h.HistoryScheduleID,
		h.PipelineType,
		h.Status,
	); err != nil {
		return nil, err
	}
	return h, nil
}

func (store *HistorySQLiteStore) CompleteHistoryEntry(
	ctx context.Context,
	id int64,
	status RunStatus,
	itemsProcessed int64,
	errMessage *string,
) error {
	completedAt := time.Now().UTC()
	query := `update pipeline_history
	set status = $1,
		completed_at = $2,
		items_processed = $3,
		error_message = $4
	where history_id = $5`
	_, err := store.exec.Exec(ctx, query, status, completedAt, itemsProcessed, errMessage, id)
	return err
}

func (store *HistorySQLiteStore) ReadHistoryEntryByID(
	ctx context.Context,
	id int64,
) (*PipelineHistoryEntry, error) {
	h := new(PipelineHistoryEntry)
	query := "select * from pipeline_history where history_id = $1"
	if err := store.exec.Get(ctx, h, query, id); err != nil {
		return nil, err
	}
	return h, nil
}

func (store *HistorySQLiteStore) ListHistory(
	ctx context.Context,
	pipelineType *PipelineType,
	limit int64,
) ([]PipelineHistoryEntry, error) {
	entries := make([]PipelineHistoryEntry, 0)
	if pipelineType != nil {
		query := `select * from pipeline_history
		where pipeline_type = $1
		order by started_at desc, history_id desc
		limit $2`
		err := store.exec.Select(ctx, &entries, query, *pipelineType, limit)
		return entries, err
	}
	query := `select * from pipeline_history
	order by started_at desc, history_id desc
	limit $1`
	err := store.exec.Select(ctx, &entries, query, limit)
	return entries, err
}
