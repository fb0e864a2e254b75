package store

import (
	"context"
	"database/sql"
	"log"
	"strings"

	"github.com/georgysavva/scany/v2/sqlscan"
)

// Querier is satisfied by *sql.DB and *sql.Conn, so statements route through
// the pinned transaction connection when one is open.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// QueryResult is the outcome of a generic Query call: rows for reads,
// affected-row count for mutations.
type QueryResult struct {
	Rows         []map[string]any
	RowsAffected int64
}

// Executor runs ad-hoc statements against the managed connection. Lock
// contention is retried with backoff; a stale-handle error triggers a single
// connection reset and one more attempt, since a closed handle has to be
// replaced rather than waited out.
type Executor struct {
	db    *Database
	retry *RetryPolicy
}

func NewExecutor(db *Database, retry *RetryPolicy) *Executor {
	return &Executor{db: db, retry: retry}
}

func (e *Executor) Get(ctx context.Context, dest any, query string, args ...any) error {
	return e.do(ctx, func(ctx context.Context, q Querier) error {
		return sqlscan.Get(ctx, q, dest, query, args...)
	})
}

func (e *Executor) Select(ctx context.Context, dest any, query string, args ...any) error {
	return e.do(ctx, func(ctx context.Context, q Querier) error {
		return sqlscan.Select(ctx, q, dest, query, args...)
	})
}

func (e *Executor) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	var affected int64
	err := e.do(ctx, func(ctx context.Context, q Querier) error {
		res, err := q.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}

// Query classifies the statement head to pick between an all-rows read and a
// single mutating execution.
func (e *Executor) Query(ctx context.Context, query string, args ...any) (*QueryResult, error) {
	if isReadStatement(query) {
		rows := make([]map[string]any, 0)
		if err := e.Select(ctx, &rows, query, args...); err != nil {
			return nil, err
		}
		return &QueryResult{Rows: rows}, nil
	}
	affected, err := e.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &QueryResult{RowsAffected: affected}, nil
}

func (e *Executor) do(ctx context.Context, op func(ctx context.Context, q Querier) error) error {
	resetTried := false
	return e.retry.Do(ctx, func(ctx context.Context) error {
		q, err := e.querier(ctx)
		if err != nil {
			return err
		}
		err = op(ctx, q)
		if err == nil {
			return nil
		}
		// A closed handle is not contention. Replace it once and re-run the
		// same statement; inside a transaction the caller owns recovery.
		if Classify(err) == KindClosed && !resetTried && TxFrom(ctx) == nil {
			resetTried = true
			log.Println("stale connection detected, resetting:", err)
			fresh, resetErr := e.db.Reset(ctx)
			if resetErr != nil {
				log.Println("err resetting connection:", resetErr)
				return err
			}
			return op(ctx, fresh)
		}
		return err
	})
}

func (e *Executor) querier(ctx context.Context) (Querier, error) {
	if tx := TxFrom(ctx); tx != nil {
		return tx.conn, nil
	}
	return e.db.Conn(ctx)
}

func isReadStatement(query string) bool {
	head := query
	for {
		head = strings.TrimLeft(head, " \t\r\n")
		if !strings.HasPrefix(head, "--") {
			break
		}
		if idx := strings.IndexByte(head, '\n'); idx >= 0 {
			head = head[idx+1:]
		} else {
			head = ""
		}
	}
	if idx := strings.IndexAny(head, " \t\r\n("); idx >= 0 {
		head = head[:idx]
	}
	switch strings.ToLower(head) {
	case "select", "with", "pragma", "explain", "values":
		return true
	}
	return false
}
