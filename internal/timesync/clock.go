package timesync

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ServerTimeSource supplies the backend's notion of now.
type ServerTimeSource interface {
	ServerNow(ctx context.Context) (time.Time, error)
}

// Clock resolves trusted time for accrual decisions. Crediting must never
// run off the device clock, which students can (and do) wind forward; every
// accrual-relevant timestamp goes through Now, and its error is a hard stop
// for the caller.
type Clock struct {
	source ServerTimeSource
	campus *time.Location
	logger zerolog.Logger
}

// New creates a Clock anchored to the campus UTC offset.
func New(source ServerTimeSource, utcOffsetHours int, logger zerolog.Logger) *Clock {
	name := fmt.Sprintf("UTC%+d", utcOffsetHours)
	return &Clock{
		source: source,
		campus: time.FixedZone(name, utcOffsetHours*3600),
		logger: logger.With().Str("component", "timesync").Logger(),
	}
}

// Now returns the trusted current time. An error means time is unknown;
// callers must skip accrual, not substitute the device clock.
func (c *Clock) Now(ctx context.Context) (time.Time, error) {
	now, err := c.source.ServerNow(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Trusted time unavailable")
		return time.Time{}, err
	}
	return now, nil
}

// Today returns the trusted current date in the campus day boundary,
// formatted YYYY-MM-DD.
func (c *Clock) Today(ctx context.Context) (string, error) {
	now, err := c.Now(ctx)
	if err != nil {
		return "", err
	}
	return c.DateOf(now), nil
}

// DateOf formats a timestamp as a campus-local YYYY-MM-DD date.
func (c *Clock) DateOf(t time.Time) string {
	return t.In(c.campus).Format("2006-01-02")
}

// DeviceNow returns the device clock, for display and session bookkeeping
// only. Never feed this into accrual.
func (c *Clock) DeviceNow() time.Time {
	return time.Now()
}

// DeviceToday returns today's campus-local date from the device clock, for
// display fallbacks when the backend is unreachable.
func (c *Clock) DeviceToday() string {
	return c.DateOf(time.Now())
}
