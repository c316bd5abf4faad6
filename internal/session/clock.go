package session

import (
	"context"
	"time"

	"github.com/greenity-lab/unitree-agent/internal/metrics"
	"github.com/greenity-lab/unitree-agent/internal/storage"
	"github.com/greenity-lab/unitree-agent/internal/timesync"
	"github.com/rs/zerolog"
)

// Clock opens and closes the durable connection session as campus
// connectivity comes and goes. Session timestamps prefer trusted time but
// fall back to the device clock: a skewed start timestamp only affects the
// displayed elapsed time, never crediting, because crediting measures
// against the checkpoint with trusted time on both ends.
type Clock struct {
	sessions   storage.SessionStore
	trusted    *timesync.Clock
	reconciler *Reconciler
	logger     zerolog.Logger
}

// NewClock creates a session clock.
func NewClock(sessions storage.SessionStore, trusted *timesync.Clock, reconciler *Reconciler, logger zerolog.Logger) *Clock {
	return &Clock{
		sessions:   sessions,
		trusted:    trusted,
		reconciler: reconciler,
		logger:     logger.With().Str("component", "session").Logger(),
	}
}

// Start opens a session for the user. Re-entrant: if a session is already
// open the call is a no-op and the existing session is returned.
func (c *Clock) Start(ctx context.Context, userID string) (*storage.ConnectionSession, error) {
	now, err := c.trusted.Now(ctx)
	if err != nil {
		now = c.trusted.DeviceNow()
		c.logger.Warn().Msg("Starting session on device time, trusted time unavailable")
	}

	session := storage.ConnectionSession{
		UserID:       userID,
		StartedAt:    now,
		CheckpointAt: now,
	}

	created, err := c.sessions.Create(ctx, session)
	if err != nil {
		return nil, err
	}

	if !created {
		// A session persisted before a restart is still the active one;
		// keep the gauge in step with it
		metrics.SessionActive.Set(1)
		return c.sessions.Get(ctx, userID)
	}

	metrics.SessionsStarted.Inc()
	metrics.SessionActive.Set(1)
	c.logger.Info().Str("user_id", userID).Time("started_at", now).Msg("Session started")
	return &session, nil
}

// End closes the user's session after a final reconciliation pass flushes
// any remaining whole minutes. Sub-minute remainders are dropped with the
// session. Ending with no open session is a no-op.
func (c *Clock) End(ctx context.Context, userID string) error {
	if _, err := c.sessions.Get(ctx, userID); err == storage.ErrNotFound {
		return nil
	} else if err != nil {
		return err
	}

	// Best effort: an unreachable backend must not keep the session
	// record alive after connectivity is gone.
	if result, err := c.reconciler.Reconcile(ctx, userID); err != nil {
		c.logger.Warn().Err(err).Msg("Final reconcile failed, un-credited time is lost")
	} else if result.CreditedMs > 0 {
		c.logger.Info().Int64("credited_ms", result.CreditedMs).Msg("Final session time flushed")
	}

	if err := c.sessions.Delete(ctx, userID); err != nil {
		return err
	}

	metrics.SessionsEnded.Inc()
	metrics.SessionActive.Set(0)
	c.logger.Info().Str("user_id", userID).Msg("Session ended")
	return nil
}

// Current returns the open session for the user, or storage.ErrNotFound.
func (c *Clock) Current(ctx context.Context, userID string) (*storage.ConnectionSession, error) {
	return c.sessions.Get(ctx, userID)
}

// Elapsed returns the display elapsed time of the open session, measured on
// the device clock.
func (c *Clock) Elapsed(ctx context.Context, userID string) (time.Duration, error) {
	session, err := c.sessions.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	return session.Elapsed(c.trusted.DeviceNow()), nil
}
