package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

type txKey struct{}

// Tx tracks one logical transaction and its savepoint stack. Depth 1 is the
// real BEGIN; every nested begin pushes a savepoint. Invariant: the stack
// always holds depth-1 names while the transaction is open.
type Tx struct {
	conn       *sql.Conn
	depth      int
	savepoints []string
}

func (tx *Tx) Depth() int {
	return tx.depth
}

// TxFrom returns the transaction carried by ctx, if any.
func TxFrom(ctx context.Context) *Tx {
	tx, _ := ctx.Value(txKey{}).(*Tx)
	return tx
}

// TxManager layers nested logical transactions over the single connection.
// A top-level begin pins a dedicated connection from the pool for the
// duration of the transaction, so everything else queues behind it.
type TxManager struct {
	db    *Database
	retry *RetryPolicy
}

func NewTxManager(db *Database, retry *RetryPolicy) *TxManager {
	return &TxManager{db: db, retry: retry}
}

// Begin opens a transaction, or a savepoint when ctx already carries one.
// The returned context must be used for every statement inside the
// transaction.
func (m *TxManager) Begin(ctx context.Context) (context.Context, *Tx, error) {
	if tx := TxFrom(ctx); tx != nil {
		name := fmt.Sprintf("sp_%d", tx.depth)
		if _, err := tx.conn.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
			return ctx, tx, err
		}
		tx.savepoints = append(tx.savepoints, name)
		tx.depth++
		return ctx, tx, nil
	}

	db, err := m.db.Conn(ctx)
	if err != nil {
		return ctx, nil, err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return ctx, nil, err
	}
	if _, err := conn.ExecContext(ctx, "BEGIN"); err != nil {
		_ = conn.Close()
		return ctx, nil, err
	}
	tx := &Tx{conn: conn, depth: 1}
	return context.WithValue(ctx, txKey{}, tx), tx, nil
}

// Commit releases the newest savepoint, or commits the whole transaction at
// depth 1. Committing at depth 0 is tolerated as a no-op.
func (m *TxManager) Commit(ctx context.Context, tx *Tx) error {
	if tx == nil || tx.depth == 0 {
		log.Println("warning: commit called with no open transaction")
		return nil
	}
	if tx.depth == 1 {
		_, err := tx.conn.ExecContext(ctx, "COMMIT")
		tx.depth = 0
		if closeErr := tx.conn.Close(); closeErr != nil {
			log.Println("err releasing transaction connection:", closeErr)
		}
		return err
	}

	name := tx.savepoints[len(tx.savepoints)-1]
	tx.savepoints = tx.savepoints[:len(tx.savepoints)-1]
	tx.depth--
	_, err := tx.conn.ExecContext(ctx, "RELEASE "+name)
	return err
}

// Rollback undoes the newest savepoint, or the whole transaction at depth 1.
// A depth-1 rollback aborts the full unit of work no matter how many nested
// levels it contained. Rolling back at depth 0 is tolerated as a no-op.
func (m *TxManager) Rollback(ctx context.Context, tx *Tx) error {
	if tx == nil || tx.depth == 0 {
		log.Println("warning: rollback called with no open transaction")
		return nil
	}
	if tx.depth == 1 {
		_, err := tx.conn.ExecContext(ctx, "ROLLBACK")
		tx.depth = 0
		tx.savepoints = nil
		if closeErr := tx.conn.Close(); closeErr != nil {
			log.Println("err releasing transaction connection:", closeErr)
		}
		return err
	}

	name := tx.savepoints[len(tx.savepoints)-1]
	tx.savepoints = tx.savepoints[:len(tx.savepoints)-1]
	tx.depth--
	if _, err := tx.conn.ExecContext(ctx, "ROLLBACK TO "+name); err != nil {
		return err
	}
	// ROLLBACK TO leaves the savepoint on SQLite's stack; release it so the
	// name can be reused.
	_, err := tx.conn.ExecContext(ctx, "RELEASE "+name)
	return err
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error. Nested calls through the returned context become
// savepoints, so an inner failure that fn does not absorb aborts the whole
// unit of work. Rollback failures are logged; the original error is what the
// caller sees.
func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	txCtx, tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(txCtx); err != nil {
		if rbErr := m.Rollback(ctx, tx); rbErr != nil {
			log.Println("err rolling back transaction:", rbErr)
		}
		return err
	}
	return m.Commit(ctx, tx)
}

// WithTxRetry is WithTx wrapped in the retry policy, for work that may hit
// transient lock contention. Only top-level transactions are retried; a
// nested call delegates to WithTx so a retry never replays half a unit of
// work.
func (m *TxManager) WithTxRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFrom(ctx) != nil {
		return m.WithTx(ctx, fn)
	}
	return m.retry.Do(ctx, func(ctx context.Context) error {
		return m.WithTx(ctx, fn)
	})
}
