package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRetrier returns a retrier whose sleeps are recorded instead of
// spending wall-clock time.
func testRetrier() (*retrier, *[]time.Duration) {
	var slept []time.Duration
	r := &retrier{
		attempts: busyAttempts,
		backoff:  busyBackoff,
		sleep:    func(d time.Duration) { slept = append(slept, d) },
	}
	return r, &slept
}

func busyErr() error {
	return sqlite3.Error{Code: sqlite3.ErrBusy}
}

func TestRetrierSucceedsAfterTransientBusy(t *testing.T) {
	r, slept := testRetrier()

	calls := 0
	err := r.do(func() error {
		calls++
		if calls < 3 {
			return busyErr()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{busyBackoff, busyBackoff}, *slept)
}

func TestRetrierExhaustsBudget(t *testing.T) {
	r, slept := testRetrier()

	calls := 0
	err := r.do(func() error {
		calls++
		return busyErr()
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorageBusy)
	assert.Equal(t, busyAttempts, calls)
	// no sleep after the final failed attempt
	assert.Len(t, *slept, busyAttempts-1)
}

func TestRetrierPassesThroughOtherErrors(t *testing.T) {
	r, slept := testRetrier()

	boom := errors.New("boom")
	calls := 0
	err := r.do(func() error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrStorageBusy)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *slept)
}

func TestRetrierRetriesLockedToo(t *testing.T) {
	r, _ := testRetrier()

	calls := 0
	err := r.do(func() error {
		calls++
		if calls == 1 {
			return sqlite3.Error{Code: sqlite3.ErrLocked}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestIsBusy(t *testing.T) {
	assert.True(t, isBusy(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.True(t, isBusy(sqlite3.Error{Code: sqlite3.ErrLocked}))
	assert.False(t, isBusy(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	assert.False(t, isBusy(errors.New("database is locked"))) // text alone is not enough
	assert.False(t, isBusy(nil))
}
