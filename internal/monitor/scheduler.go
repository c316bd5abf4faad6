package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler drives monitor passes on a cadence. Two cadences exist: a short
// foreground interval for near-real-time tracking and a long background one
// matching what an OS task scheduler would grant. The pass itself is cadence
// agnostic; gaps between passes are safe because crediting recomputes from
// the persisted checkpoint.
type Scheduler struct {
	monitor    *Monitor
	foreground time.Duration
	background time.Duration
	logger     zerolog.Logger

	mu       sync.Mutex
	isActive bool
	kick     chan struct{}
}

// NewScheduler creates a scheduler starting in background cadence.
func NewScheduler(monitor *Monitor, foreground, background time.Duration, logger zerolog.Logger) *Scheduler {
	if foreground <= 0 {
		foreground = 30 * time.Second
	}
	if background <= 0 {
		background = 10 * time.Minute
	}

	return &Scheduler{
		monitor:    monitor,
		foreground: foreground,
		background: background,
		logger:     logger.With().Str("component", "scheduler").Logger(),
		kick:       make(chan struct{}, 1),
	}
}

// Run executes passes until the context is cancelled. An immediate pass runs
// on entry so a connectivity change at startup is not missed.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().
		Dur("foreground_interval", s.foreground).
		Dur("background_interval", s.background).
		Msg("Scheduler started")

	s.monitor.Pass(ctx)

	timer := time.NewTimer(s.interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Scheduler stopped")
			return
		case <-s.kick:
		case <-timer.C:
		}

		s.monitor.Pass(ctx)
		timer.Reset(s.interval())
	}
}

// SetForeground switches cadence. Entering foreground triggers an immediate
// out-of-cycle pass, mirroring an app-lifecycle transition hook.
func (s *Scheduler) SetForeground(active bool) {
	s.mu.Lock()
	changed := s.isActive != active
	s.isActive = active
	s.mu.Unlock()

	if !changed {
		return
	}

	s.logger.Info().Bool("foreground", active).Msg("Cadence changed")
	if active {
		s.Kick()
	}
}

// Kick requests an immediate pass without waiting for the timer.
func (s *Scheduler) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Scheduler) interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isActive {
		return s.foreground
	}
	return s.background
}
