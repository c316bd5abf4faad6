package session

import (
	"context"
	"time"

	"github.com/greenity-lab/unitree-agent/internal/metrics"
	"github.com/greenity-lab/unitree-agent/internal/storage"
	"github.com/greenity-lab/unitree-agent/internal/timesync"
	"github.com/rs/zerolog"
)

const reconcileLockName = "reconcile"

// Ledger is the remote point ledger the reconciler credits against.
type Ledger interface {
	CreditConnectionTime(ctx context.Context, durationMs int64) error
}

// Result describes one reconciliation pass.
type Result struct {
	Outcome      string
	CreditedMs   int64
	DailyTotalMs int64
}

// Config tunes the reconciler.
type Config struct {
	// MinCreditInterval suppresses crediting until at least this much
	// un-credited time has elapsed. Credits are whole minutes, so anything
	// below a minute would round to zero anyway.
	MinCreditInterval time.Duration

	// DailyCap bounds the connected time credited per campus day. Zero
	// disables the cap.
	DailyCap time.Duration

	// LockTTL bounds how long a crashed pass can hold the reconcile lock.
	LockTTL time.Duration
}

// Reconciler periodically converts un-credited session time into remote
// ledger credits. The checkpoint is the single source of truth for what has
// been credited: it advances only after the backend confirms the credit, and
// only by the exact whole-minute span that was submitted, so a crash at any
// point either loses nothing or re-credits nothing.
type Reconciler struct {
	sessions storage.SessionStore
	daily    storage.DailyLogStore
	locks    storage.LockStore
	ledger   Ledger
	trusted  *timesync.Clock
	cfg      Config
	logger   zerolog.Logger
}

// NewReconciler creates a reconciler.
func NewReconciler(store storage.Store, ledger Ledger, trusted *timesync.Clock, cfg Config, logger zerolog.Logger) *Reconciler {
	if cfg.MinCreditInterval <= 0 {
		cfg.MinCreditInterval = time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}

	return &Reconciler{
		sessions: store.Sessions(),
		daily:    store.DailyLogs(),
		locks:    store.Locks(),
		ledger:   ledger,
		trusted:  trusted,
		cfg:      cfg,
		logger:   logger.With().Str("component", "reconciler").Logger(),
	}
}

// Reconcile runs one pass for the user. Every failure path leaves the
// checkpoint untouched; the next pass will retry the same span.
func (r *Reconciler) Reconcile(ctx context.Context, userID string) (Result, error) {
	acquired, err := r.locks.Acquire(ctx, reconcileLockName, r.cfg.LockTTL)
	if err != nil {
		return r.fail(err)
	}
	if !acquired {
		metrics.ReconcilePasses.WithLabelValues(metrics.OutcomeSkippedLocked).Inc()
		r.logger.Debug().Msg("Another pass holds the reconcile lock, skipping")
		return Result{Outcome: metrics.OutcomeSkippedLocked}, nil
	}
	defer func() {
		if err := r.locks.Release(ctx, reconcileLockName); err != nil {
			r.logger.Warn().Err(err).Msg("Failed to release reconcile lock")
		}
	}()

	session, err := r.sessions.Get(ctx, userID)
	if err == storage.ErrNotFound {
		return Result{Outcome: metrics.OutcomeSkippedShort}, nil
	}
	if err != nil {
		return r.fail(err)
	}

	// Trusted time or nothing. The device clock never decides how much
	// time gets credited.
	now, err := r.trusted.Now(ctx)
	if err != nil {
		metrics.ReconcilePasses.WithLabelValues(metrics.OutcomeSkippedNoTime).Inc()
		r.logger.Warn().Err(err).Msg("Skipping reconcile, trusted time unavailable")
		return Result{Outcome: metrics.OutcomeSkippedNoTime}, nil
	}

	unsynced := session.SinceCheckpoint(now)
	if unsynced < r.cfg.MinCreditInterval {
		metrics.ReconcilePasses.WithLabelValues(metrics.OutcomeSkippedShort).Inc()
		return Result{Outcome: metrics.OutcomeSkippedShort}, nil
	}

	submitMs := unsynced.Milliseconds()
	today := r.trusted.DateOf(now)

	if r.cfg.DailyCap > 0 {
		remaining, err := r.capRemaining(ctx, userID, today)
		if err != nil {
			return r.fail(err)
		}
		if remaining < 60_000 {
			metrics.ReconcilePasses.WithLabelValues(metrics.OutcomeSkippedCapped).Inc()
			r.logger.Info().Str("user_id", userID).Msg("Daily cap reached, not crediting")
			return Result{Outcome: metrics.OutcomeSkippedCapped}, nil
		}
		if submitMs > remaining {
			submitMs = remaining
		}
	}

	// The ledger floors the submitted span to whole minutes itself; the
	// full span is sent so the server and the checkpoint maths see the
	// same interval.
	if err := r.ledger.CreditConnectionTime(ctx, submitMs); err != nil {
		r.logger.Warn().Err(err).Int64("submit_ms", submitMs).Msg("Credit failed, checkpoint unchanged")
		return r.fail(err)
	}

	// Credit confirmed. Advance the checkpoint by the whole minutes the
	// ledger converted to points; the sub-minute remainder stays behind
	// the checkpoint and rides into the next pass.
	advanceMs := wholeMinutesMs(time.Duration(submitMs) * time.Millisecond)
	if _, err := r.sessions.AdvanceCheckpoint(ctx, userID, time.Duration(advanceMs)*time.Millisecond); err != nil {
		// The ledger took the credit but the local checkpoint did not
		// move; the next pass will double-credit this span. Surface it
		// loudly, it is the one inconsistency this design cannot undo.
		r.logger.Error().Err(err).Int64("advance_ms", advanceMs).Msg("Checkpoint advance failed after confirmed credit")
		return r.fail(err)
	}

	log, err := r.daily.Add(ctx, userID, today, time.Duration(submitMs)*time.Millisecond)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Daily display log update failed")
		log = &storage.DailyTimeLog{UserID: userID, Date: today, AccumulatedMs: submitMs}
	}

	metrics.ReconcilePasses.WithLabelValues(metrics.OutcomeCredited).Inc()
	metrics.MinutesCredited.Add(float64(advanceMs / 60_000))
	metrics.DailyConnectedMs.Set(float64(log.AccumulatedMs))

	r.logger.Info().
		Str("user_id", userID).
		Int64("submitted_ms", submitMs).
		Int64("advanced_ms", advanceMs).
		Int64("daily_total_ms", log.AccumulatedMs).
		Msg("Reconciled session time")

	return Result{
		Outcome:      metrics.OutcomeCredited,
		CreditedMs:   advanceMs,
		DailyTotalMs: log.AccumulatedMs,
	}, nil
}

// capRemaining returns how many milliseconds of today's cap are left.
func (r *Reconciler) capRemaining(ctx context.Context, userID, today string) (int64, error) {
	log, err := r.daily.Get(ctx, userID)
	if err == storage.ErrNotFound {
		return r.cfg.DailyCap.Milliseconds(), nil
	}
	if err != nil {
		return 0, err
	}
	if log.Date != today {
		return r.cfg.DailyCap.Milliseconds(), nil
	}
	return r.cfg.DailyCap.Milliseconds() - log.AccumulatedMs, nil
}

func (r *Reconciler) fail(err error) (Result, error) {
	metrics.ReconcilePasses.WithLabelValues(metrics.OutcomeFailed).Inc()
	return Result{Outcome: metrics.OutcomeFailed}, err
}

// wholeMinutesMs truncates a duration to whole minutes, in milliseconds.
func wholeMinutesMs(d time.Duration) int64 {
	return (d.Milliseconds() / 60_000) * 60_000
}
