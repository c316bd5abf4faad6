package session

import (
	"context"
	"testing"
	"time"

	"github.com/greenity-lab/unitree-agent/internal/metrics"
	"github.com/greenity-lab/unitree-agent/internal/storage"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func setupClock(t *testing.T) (*Clock, *fixture) {
	t.Helper()
	f := setup(t, Config{})
	clock := NewClock(f.store.Sessions(), f.clock, f.reconciler, zerolog.Nop())
	return clock, f
}

func TestStart_ReEntrantIsNoOp(t *testing.T) {
	clock, f := setupClock(t)
	ctx := context.Background()

	first, err := clock.Start(ctx, "user-1")
	if err != nil {
		t.Fatalf("First start failed: %v", err)
	}

	// The observer flapping true→true must not reset the session
	f.time.now = f.time.now.Add(5 * time.Minute)
	second, err := clock.Start(ctx, "user-1")
	if err != nil {
		t.Fatalf("Second start failed: %v", err)
	}

	if !second.StartedAt.Equal(first.StartedAt) {
		t.Errorf("Re-entrant start changed startedAt: %v != %v", second.StartedAt, first.StartedAt)
	}
}

func TestStart_ReEntrantRestoresActiveGauge(t *testing.T) {
	clock, _ := setupClock(t)
	ctx := context.Background()

	if _, err := clock.Start(ctx, "user-1"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// A restarted agent begins with a zero gauge but a persisted open
	// session; the re-entrant start must report it active again
	metrics.SessionActive.Set(0)

	if _, err := clock.Start(ctx, "user-1"); err != nil {
		t.Fatalf("Re-entrant start failed: %v", err)
	}
	if got := testutil.ToFloat64(metrics.SessionActive); got != 1 {
		t.Errorf("Expected active gauge 1 after re-entrant start, got %v", got)
	}
}

func TestStart_FallsBackToDeviceTime(t *testing.T) {
	clock, f := setupClock(t)
	f.time.err = context.DeadlineExceeded

	before := time.Now()
	session, err := clock.Start(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if session.StartedAt.Before(before.Truncate(time.Second)) {
		t.Errorf("Expected device-time start, got %v", session.StartedAt)
	}
}

func TestEnd_FlushesTrailingMinutes(t *testing.T) {
	clock, f := setupClock(t)
	ctx := context.Background()

	start := f.time.now
	if _, err := clock.Start(ctx, "user-1"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Disconnect 2.5 minutes in: the final flush credits two whole
	// minutes and the 30s remainder dies with the session
	f.time.now = start.Add(2*time.Minute + 30*time.Second)
	if err := clock.End(ctx, "user-1"); err != nil {
		t.Fatalf("End failed: %v", err)
	}

	if f.ledger.total() != 150_000 {
		t.Errorf("Expected 150000ms submitted on final flush, got %d", f.ledger.total())
	}

	if _, err := clock.Current(ctx, "user-1"); err != storage.ErrNotFound {
		t.Error("Expected session cleared after end")
	}
}

func TestEnd_SurvivesBackendFailure(t *testing.T) {
	clock, f := setupClock(t)
	ctx := context.Background()

	start := f.time.now
	if _, err := clock.Start(ctx, "user-1"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	f.time.now = start.Add(5 * time.Minute)
	f.ledger.err = context.DeadlineExceeded

	// The flush fails, but the session must still close
	if err := clock.End(ctx, "user-1"); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if _, err := clock.Current(ctx, "user-1"); err != storage.ErrNotFound {
		t.Error("Expected session cleared despite failed flush")
	}
}

func TestEnd_WithoutSessionIsNoOp(t *testing.T) {
	clock, _ := setupClock(t)

	if err := clock.End(context.Background(), "user-1"); err != nil {
		t.Errorf("Ending an absent session must be a no-op, got %v", err)
	}
}
