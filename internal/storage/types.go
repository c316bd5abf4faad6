package storage

import "time"

// ConnectionSession is one unbroken interval of campus connectivity.
// CheckpointAt marks the instant up to which elapsed time has already been
// credited to the remote ledger; it never trails StartedAt.
type ConnectionSession struct {
	UserID       string    `json:"user_id"`
	StartedAt    time.Time `json:"started_at"`
	CheckpointAt time.Time `json:"checkpoint_at"`
}

// Elapsed returns the total session duration as of now.
func (s *ConnectionSession) Elapsed(now time.Time) time.Duration {
	d := now.Sub(s.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}

// SinceCheckpoint returns the un-credited duration as of now.
func (s *ConnectionSession) SinceCheckpoint(now time.Time) time.Duration {
	d := now.Sub(s.CheckpointAt)
	if d < 0 {
		return 0
	}
	return d
}

// DailyTimeLog is the display-only running total of credited connection time
// for one calendar day (campus timezone). Never a source of truth for the
// server point balance.
type DailyTimeLog struct {
	UserID        string `json:"user_id"`
	Date          string `json:"date"` // YYYY-MM-DD
	AccumulatedMs int64  `json:"accumulated_ms"`
}

// PointsToday converts the accumulated time to whole-minute point units.
func (l *DailyTimeLog) PointsToday() int64 {
	return l.AccumulatedMs / 60_000
}

// Credentials identifies the signed-in user against the backend.
type Credentials struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}
