package session

import (
	"context"
	"time"

	"github.com/greenity-lab/unitree-agent/internal/storage"
	"github.com/rs/zerolog"
)

// Accumulator maintains the display-only daily connected-time total. The
// server point balance is the source of truth; this total only feeds the
// status surface and never drives crediting.
type Accumulator struct {
	daily  storage.DailyLogStore
	logger zerolog.Logger
}

// NewAccumulator creates an accumulator.
func NewAccumulator(daily storage.DailyLogStore, logger zerolog.Logger) *Accumulator {
	return &Accumulator{
		daily:  daily,
		logger: logger.With().Str("component", "accumulator").Logger(),
	}
}

// Today returns the user's log for the given date. A stored log from a
// previous date is reported as zero without being rewritten; the next Add
// performs the actual rollover.
func (a *Accumulator) Today(ctx context.Context, userID, date string) (*storage.DailyTimeLog, error) {
	log, err := a.daily.Get(ctx, userID)
	if err == storage.ErrNotFound {
		return &storage.DailyTimeLog{UserID: userID, Date: date}, nil
	}
	if err != nil {
		return nil, err
	}

	if log.Date != date {
		return &storage.DailyTimeLog{UserID: userID, Date: date}, nil
	}
	return log, nil
}

// Add records credited time against the given date, rolling the log over
// when the stored date is older.
func (a *Accumulator) Add(ctx context.Context, userID, date string, delta time.Duration) (*storage.DailyTimeLog, error) {
	return a.daily.Add(ctx, userID, date, delta)
}
