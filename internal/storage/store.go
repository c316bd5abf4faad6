package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store represents the root storage interface. All session, daily-log and
// credential state must survive process restarts; everything is keyed per
// user id so switching accounts never leaks state between users.
type Store interface {
	Close() error
	Sessions() SessionStore
	DailyLogs() DailyLogStore
	Auth() AuthStore
	Locks() LockStore
}

// SessionStore manages the durable connection-session record. At most one
// session exists per user.
type SessionStore interface {
	// Get returns the open session for the user, or ErrNotFound.
	Get(ctx context.Context, userID string) (*ConnectionSession, error)

	// Create persists a new session unless one already exists. Returns
	// false with no error when a session is already open (re-entrant
	// start is a no-op).
	Create(ctx context.Context, session ConnectionSession) (bool, error)

	// AdvanceCheckpoint moves the checkpoint forward by exactly the given
	// duration and returns the updated session. Fails with ErrNotFound if
	// no session is open.
	AdvanceCheckpoint(ctx context.Context, userID string, by time.Duration) (*ConnectionSession, error)

	// Delete removes the session record. Deleting an absent session is
	// not an error.
	Delete(ctx context.Context, userID string) error
}

// DailyLogStore manages the display-only per-day connected-time total.
type DailyLogStore interface {
	// Get returns the stored daily log for the user, or ErrNotFound.
	Get(ctx context.Context, userID string) (*DailyTimeLog, error)

	// Add increments today's total by delta, resetting the log first when
	// the stored date differs from the given one. Returns the updated log.
	Add(ctx context.Context, userID, date string, delta time.Duration) (*DailyTimeLog, error)

	// Reset replaces the log with a fresh zero entry for the given date.
	Reset(ctx context.Context, userID, date string) (*DailyTimeLog, error)
}

// AuthStore persists the signed-in user's credentials so background passes
// can re-derive user context after a process restart.
type AuthStore interface {
	Current(ctx context.Context) (*Credentials, error)
	Save(ctx context.Context, creds Credentials) error
	Clear(ctx context.Context) error
}

// LockStore provides a best-effort lock with a TTL, used to keep the
// foreground interval and a background invocation from reconciling the same
// checkpoint concurrently.
type LockStore interface {
	// Acquire returns true if the named lock was taken. The lock expires
	// after ttl even if never released.
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}
