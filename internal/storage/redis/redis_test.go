package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/greenity-lab/unitree-agent/internal/config"
	"github.com/greenity-lab/unitree-agent/internal/storage"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	// miniredis.Addr() returns "host:port", so we use it directly
	cfg := config.RedisConfig{
		Host:         mr.Addr(),
		Port:         0, // Not used when host contains port
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 5,
		DialTimeout:  "5s",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
		KeyPrefix:    "unitree",
	}

	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open Redis store: %v", err)
	}

	return store, mr
}

func TestSessionStore_CreateAndGet(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	sessions := store.Sessions()

	startedAt := time.Date(2025, 11, 3, 8, 30, 0, 0, time.UTC)
	session := storage.ConnectionSession{
		UserID:       "user-1",
		StartedAt:    startedAt,
		CheckpointAt: startedAt,
	}

	created, err := sessions.Create(ctx, session)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !created {
		t.Fatal("Expected session to be created")
	}

	retrieved, err := sessions.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if !retrieved.StartedAt.Equal(startedAt) {
		t.Errorf("Expected StartedAt %v, got %v", startedAt, retrieved.StartedAt)
	}
	if !retrieved.CheckpointAt.Equal(startedAt) {
		t.Errorf("Expected CheckpointAt %v, got %v", startedAt, retrieved.CheckpointAt)
	}
}

func TestSessionStore_CreateIsReentrant(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	sessions := store.Sessions()

	first := time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)
	if _, err := sessions.Create(ctx, storage.ConnectionSession{
		UserID: "user-1", StartedAt: first, CheckpointAt: first,
	}); err != nil {
		t.Fatalf("First create failed: %v", err)
	}

	// Second create must not reset the running clock
	later := first.Add(10 * time.Minute)
	created, err := sessions.Create(ctx, storage.ConnectionSession{
		UserID: "user-1", StartedAt: later, CheckpointAt: later,
	})
	if err != nil {
		t.Fatalf("Second create failed: %v", err)
	}
	if created {
		t.Error("Expected second create to be a no-op")
	}

	session, err := sessions.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !session.StartedAt.Equal(first) {
		t.Errorf("StartedAt changed on re-entrant create: %v", session.StartedAt)
	}
}

func TestSessionStore_AdvanceCheckpoint(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	sessions := store.Sessions()

	startedAt := time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)
	_, _ = sessions.Create(ctx, storage.ConnectionSession{
		UserID: "user-1", StartedAt: startedAt, CheckpointAt: startedAt,
	})

	updated, err := sessions.AdvanceCheckpoint(ctx, "user-1", time.Minute)
	if err != nil {
		t.Fatalf("AdvanceCheckpoint failed: %v", err)
	}

	want := startedAt.Add(time.Minute)
	if !updated.CheckpointAt.Equal(want) {
		t.Errorf("Expected checkpoint %v, got %v", want, updated.CheckpointAt)
	}
	if !updated.StartedAt.Equal(startedAt) {
		t.Errorf("StartedAt changed: %v", updated.StartedAt)
	}
}

func TestSessionStore_AdvanceCheckpointWithoutSession(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	_, err := store.Sessions().AdvanceCheckpoint(ctx, "missing", time.Minute)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSessionStore_Delete(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	sessions := store.Sessions()

	now := time.Now().UTC().Truncate(time.Millisecond)
	_, _ = sessions.Create(ctx, storage.ConnectionSession{
		UserID: "user-1", StartedAt: now, CheckpointAt: now,
	})

	if err := sessions.Delete(ctx, "user-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := sessions.Get(ctx, "user-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}

	// Deleting an absent session is not an error
	if err := sessions.Delete(ctx, "user-1"); err != nil {
		t.Errorf("Delete of absent session failed: %v", err)
	}
}

func TestSessionStore_PerUserIsolation(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	sessions := store.Sessions()

	now := time.Now().UTC().Truncate(time.Millisecond)
	_, _ = sessions.Create(ctx, storage.ConnectionSession{
		UserID: "user-a", StartedAt: now, CheckpointAt: now,
	})

	if _, err := sessions.Get(ctx, "user-b"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for other user, got %v", err)
	}

	if err := sessions.Delete(ctx, "user-b"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := sessions.Get(ctx, "user-a"); err != nil {
		t.Errorf("user-a session lost after deleting user-b: %v", err)
	}
}

func TestDailyLogStore_AddAndRollover(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	logs := store.DailyLogs()

	log, err := logs.Add(ctx, "user-1", "2025-11-03", 90*time.Second)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if log.AccumulatedMs != 90_000 {
		t.Errorf("Expected 90000ms, got %d", log.AccumulatedMs)
	}

	log, err = logs.Add(ctx, "user-1", "2025-11-03", 30*time.Second)
	if err != nil {
		t.Fatalf("Second add failed: %v", err)
	}
	if log.AccumulatedMs != 120_000 {
		t.Errorf("Expected 120000ms, got %d", log.AccumulatedMs)
	}

	// Date rollover discards the previous total
	log, err = logs.Add(ctx, "user-1", "2025-11-04", 60*time.Second)
	if err != nil {
		t.Fatalf("Add after rollover failed: %v", err)
	}
	if log.Date != "2025-11-04" {
		t.Errorf("Expected date 2025-11-04, got %s", log.Date)
	}
	if log.AccumulatedMs != 60_000 {
		t.Errorf("Expected 60000ms after rollover, got %d", log.AccumulatedMs)
	}
}

func TestDailyLogStore_Reset(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	logs := store.DailyLogs()

	_, _ = logs.Add(ctx, "user-1", "2025-11-03", time.Hour)

	log, err := logs.Reset(ctx, "user-1", "2025-11-04")
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if log.AccumulatedMs != 0 {
		t.Errorf("Expected 0ms after reset, got %d", log.AccumulatedMs)
	}

	stored, err := logs.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Date != "2025-11-04" || stored.AccumulatedMs != 0 {
		t.Errorf("Unexpected stored log: %+v", stored)
	}
}

func TestAuthStore_Roundtrip(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	auth := store.Auth()

	if _, err := auth.Current(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound before save, got %v", err)
	}

	creds := storage.Credentials{
		UserID:       "user-1",
		Email:        "student@example.edu",
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC),
	}
	if err := auth.Save(ctx, creds); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := auth.Current(ctx)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if got.UserID != creds.UserID || got.AccessToken != creds.AccessToken {
		t.Errorf("Unexpected credentials: %+v", got)
	}

	if err := auth.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := auth.Current(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after clear, got %v", err)
	}
}

func TestLockStore_MutualExclusion(t *testing.T) {
	store, mr := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	locks := store.Locks()

	ok, err := locks.Acquire(ctx, "reconcile:user-1", time.Minute)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected first acquire to succeed")
	}

	ok, err = locks.Acquire(ctx, "reconcile:user-1", time.Minute)
	if err != nil {
		t.Fatalf("Second acquire failed: %v", err)
	}
	if ok {
		t.Error("Expected second acquire to fail while held")
	}

	if err := locks.Release(ctx, "reconcile:user-1"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	ok, _ = locks.Acquire(ctx, "reconcile:user-1", time.Minute)
	if !ok {
		t.Error("Expected acquire to succeed after release")
	}

	// TTL expiry frees a lock abandoned by a crashed holder
	mr.FastForward(2 * time.Minute)
	ok, _ = locks.Acquire(ctx, "reconcile:user-1", time.Minute)
	if !ok {
		t.Error("Expected acquire to succeed after TTL expiry")
	}
}
