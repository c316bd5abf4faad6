package monitor

import (
	"context"
	"time"

	"github.com/greenity-lab/unitree-agent/internal/metrics"
	"github.com/greenity-lab/unitree-agent/internal/netwatch"
	"github.com/greenity-lab/unitree-agent/internal/session"
	"github.com/greenity-lab/unitree-agent/internal/storage"
	"github.com/rs/zerolog"
)

// Monitor drives one detection-to-crediting pass: re-derive the signed-in
// user, detect campus presence, open or close the session accordingly, run
// a reconciliation pass while connected, and keep the status notification
// current. Every error is swallowed at the pass boundary; one bad pass must
// never take the scheduler down.
type Monitor struct {
	auth       storage.AuthStore
	detector   *netwatch.Detector
	sessions   *session.Clock
	reconciler *session.Reconciler
	notifier   Notifier
	logger     zerolog.Logger
}

// Notifier is the session status surface updated on each pass.
type Notifier interface {
	SessionActive(elapsed time.Duration) error
	CapReached() error
	Dismiss() error
}

// New creates a monitor.
func New(
	auth storage.AuthStore,
	detector *netwatch.Detector,
	sessions *session.Clock,
	reconciler *session.Reconciler,
	notifier Notifier,
	logger zerolog.Logger,
) *Monitor {
	return &Monitor{
		auth:       auth,
		detector:   detector,
		sessions:   sessions,
		reconciler: reconciler,
		notifier:   notifier,
		logger:     logger.With().Str("component", "monitor").Logger(),
	}
}

// Pass runs one monitoring pass. It never returns an error; failures are
// logged and the next pass retries from persisted state.
func (m *Monitor) Pass(ctx context.Context) {
	creds, err := m.auth.Current(ctx)
	if err == storage.ErrNotFound {
		m.logger.Debug().Msg("No user signed in, pass is a no-op")
		m.dismiss()
		return
	}
	if err != nil {
		m.logger.Error().Err(err).Msg("Failed to load credentials")
		return
	}

	detection := m.detector.Detect(ctx)

	if !detection.Connected {
		if err := m.sessions.End(ctx, creds.UserID); err != nil {
			m.logger.Error().Err(err).Msg("Failed to end session")
		}
		m.dismiss()
		return
	}

	if _, err := m.sessions.Start(ctx, creds.UserID); err != nil {
		m.logger.Error().Err(err).Msg("Failed to start session")
		return
	}

	recon, err := m.reconciler.Reconcile(ctx, creds.UserID)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Reconcile pass failed, will retry next pass")
	}

	// No more time can be credited today; the status surface says so
	// instead of counting elapsed time that earns nothing
	if recon.Outcome == metrics.OutcomeSkippedCapped {
		if err := m.notifier.CapReached(); err != nil {
			m.logger.Debug().Err(err).Msg("Failed to update cap notification")
		}
		return
	}

	elapsed, err := m.sessions.Elapsed(ctx, creds.UserID)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Failed to read session elapsed time")
		return
	}
	if err := m.notifier.SessionActive(elapsed); err != nil {
		m.logger.Debug().Err(err).Msg("Failed to update session notification")
	}
}

func (m *Monitor) dismiss() {
	if err := m.notifier.Dismiss(); err != nil {
		m.logger.Debug().Err(err).Msg("Failed to dismiss session notification")
	}
}
