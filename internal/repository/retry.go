package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// Bounded retry on transient lock contention. SQLite serializes writers
// at the file level; under WAL a writer collision surfaces as
// SQLITE_BUSY (or SQLITE_LOCKED for an in-connection table lock) rather
// than blocking forever once the busy timeout elapses. Every
// catalog-or-schema-mutating operation runs through a retrier so a
// burst of concurrent writers makes progress instead of failing the
// first caller.
const (
	busyAttempts = 5
	busyBackoff  = 500 * time.Millisecond
)

// retrier re-runs an operation on transient busy errors. The sleep
// function is swappable so tests do not spend wall-clock time in
// backoff.
type retrier struct {
	attempts int
	backoff  time.Duration
	sleep    func(time.Duration)
}

func newRetrier() *retrier {
	return &retrier{attempts: busyAttempts, backoff: busyBackoff, sleep: time.Sleep}
}

// do invokes fn until it succeeds, fails with a non-transient error, or
// the attempt budget runs out. A budget-exhausting busy condition is
// surfaced wrapped in ErrStorageBusy; anything else propagates
// unchanged on the first occurrence.
func (r *retrier) do(fn func() error) error {
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		err = fn()
		if err == nil || !isBusy(err) {
			return err
		}
		if attempt < r.attempts {
			r.sleep(r.backoff)
		}
	}
	return fmt.Errorf("%w: %v", ErrStorageBusy, err)
}

// isBusy reports whether err is a transient SQLite lock condition.
func isBusy(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked
	}
	return false
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure,
// used to translate driver errors into the duplicate-name sentinels.
func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
