package store

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	_ "modernc.org/sqlite"
)

// connection pragmas applied on every fresh open, in addition to the ones the
// DSN carries. Running them explicitly keeps the guarantees independent of
// DSN parameter handling.
var connectionPragmas = []string{
	"PRAGMA busy_timeout = 5000",
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA foreign_keys = ON",
	"PRAGMA temp_store = memory",
}

// Database owns the single physical SQLite connection. It opens lazily,
// probes cached handles for liveness before reuse, collapses concurrent open
// requests into one, and supports a forced reset when a caller catches a
// stale-handle error that the probe missed.
type Database struct {
	dsn string

	group singleflight.Group
	opens atomic.Int64

	mu      sync.Mutex
	db      *sql.DB
	closing bool
}

func NewDatabase(dsn string) *Database {
	return &Database{dsn: dsn}
}

// Conn returns the live connection handle, opening one if necessary. All
// concurrent callers receive the same handle; at most one physical open is in
// flight at a time.
func (d *Database) Conn(ctx context.Context) (*sql.DB, error) {
	for {
		d.mu.Lock()
		if d.closing {
			d.mu.Unlock()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(10 * time.Millisecond):
			}
			continue
		}
		db := d.db
		d.mu.Unlock()

		if db != nil {
			if err := d.probe(ctx, db); err == nil {
				return db, nil
			}
			log.Println("database liveness probe failed, discarding cached connection")
			d.discard(db)
		}

		opened, err, _ := d.group.Do("open", func() (any, error) {
			d.mu.Lock()
			if d.db != nil {
				db := d.db
				d.mu.Unlock()
				return db, nil
			}
			d.mu.Unlock()

			db, err := d.open(ctx)
			if err != nil {
				return nil, err
			}
			d.mu.Lock()
			d.db = db
			d.mu.Unlock()
			return db, nil
		})
		if err != nil {
			return nil, err
		}
		return opened.(*sql.DB), nil
	}
}

// Reset force-closes any cached connection and opens a fresh one. Close
// errors are swallowed: the handle is already useless.
func (d *Database) Reset(ctx context.Context) (*sql.DB, error) {
	d.mu.Lock()
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			log.Println("err closing connection during reset:", err)
		}
		d.db = nil
	}
	d.mu.Unlock()
	return d.Conn(ctx)
}

// Close tears the connection down. Concurrent Conn calls wait out the close
// instead of racing a new open against it; a later Conn call reopens.
func (d *Database) Close() error {
	d.mu.Lock()
	if d.closing {
		d.mu.Unlock()
		return nil
	}
	d.closing = true
	db := d.db
	d.db = nil
	d.mu.Unlock()

	var err error
	if db != nil {
		err = db.Close()
	}

	d.mu.Lock()
	d.closing = false
	d.mu.Unlock()
	return err
}

func (d *Database) HasActiveConnection() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db != nil
}

// Opens reports how many physical opens have happened over the lifetime of
// this Database. Observability only.
func (d *Database) Opens() int64 {
	return d.opens.Load()
}

func (d *Database) probe(ctx context.Context, db *sql.DB) error {
	var one int
	return db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

func (d *Database) discard(old *sql.DB) {
	d.mu.Lock()
	if d.db == old {
		d.db = nil
	}
	d.mu.Unlock()
	if err := old.Close(); err != nil {
		log.Println("err closing stale connection:", err)
	}
}

func (d *Database) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", d.dsn)
	if err != nil {
		return nil, err
	}
	// The pipeline serializes on exactly one physical connection.
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(0)

	for _, pragma := range connectionPragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	// Confirm the driver responds before handing the connection out.
	var version string
	if err := db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version); err != nil {
		_ = db.Close()
		return nil, err
	}

	d.opens.Add(1)
	return db, nil
}
