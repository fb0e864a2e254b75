package store

import (
	"database/sql"
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrorKind classifies driver errors so retry decisions do not depend on
// driver-specific message formats.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	// KindBusy is transient lock contention, safe to retry with backoff.
	KindBusy
	// KindClosed means the handle is stale and must be replaced, not waited out.
	KindClosed
	KindConstraint
	KindOther
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBusy:
		return "busy"
	case KindClosed:
		return "closed"
	case KindConstraint:
		return "constraint"
	default:
		return "other"
	}
}

func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, sql.ErrConnDone) {
		return KindClosed
	}

	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		// Mask off the extended result code bits.
		switch sqErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return KindBusy
		case sqlite3.SQLITE_MISUSE:
			return KindClosed
		case sqlite3.SQLITE_CONSTRAINT:
			return KindConstraint
		}
		return KindOther
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "SQLITE_BUSY"),
		strings.Contains(msg, "SQLITE_LOCKED"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "database table is locked"):
		return KindBusy
	case strings.Contains(msg, "SQLITE_MISUSE"),
		strings.Contains(msg, "database is closed"),
		strings.Contains(msg, "connection is already closed"):
		return KindClosed
	}
	return KindOther
}

func IsUniqueConstraintError(err error) bool {
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		return sqErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

func IsForeignKeyConstraintError(err error) bool {
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		return sqErr.Code() == sqlite3.SQLITE_CONSTRAINT_TRIGGER ||
			sqErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}
