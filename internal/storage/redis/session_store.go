package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/greenity-lab/unitree-agent/internal/storage"
	"github.com/redis/go-redis/v9"
)

type sessionStore struct {
	client *redis.Client
	prefix string
}

func (s *sessionStore) key(userID string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, userID)
}

// Get retrieves the open session for a user
func (s *sessionStore) Get(ctx context.Context, userID string) (*storage.ConnectionSession, error) {
	data, err := s.client.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	return parseConnectionSession(data)
}

// Create persists a new session unless one is already open
func (s *sessionStore) Create(ctx context.Context, session storage.ConnectionSession) (bool, error) {
	script := redis.NewScript(createSessionScript)

	keys := []string{s.key(session.UserID)}
	args := []interface{}{
		session.UserID,
		session.StartedAt.UnixMilli(),
		session.CheckpointAt.UnixMilli(),
	}

	created, err := script.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		return false, err
	}

	return created == 1, nil
}

// AdvanceCheckpoint moves the checkpoint forward by exactly the given duration
func (s *sessionStore) AdvanceCheckpoint(ctx context.Context, userID string, by time.Duration) (*storage.ConnectionSession, error) {
	script := redis.NewScript(advanceCheckpointScript)

	keys := []string{s.key(userID)}
	args := []interface{}{by.Milliseconds()}

	res, err := script.Run(ctx, s.client, keys, args...).Result()
	if err == redis.Nil {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	fields, ok := res.([]interface{})
	if !ok || len(fields) != 2 {
		return nil, fmt.Errorf("unexpected advance result: %v", res)
	}

	startedMs, err := toInt64(fields[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at_ms: %w", err)
	}
	checkpointMs, err := toInt64(fields[1])
	if err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint_ms: %w", err)
	}

	return &storage.ConnectionSession{
		UserID:       userID,
		StartedAt:    time.UnixMilli(startedMs).UTC(),
		CheckpointAt: time.UnixMilli(checkpointMs).UTC(),
	}, nil
}

// Delete removes the session record
func (s *sessionStore) Delete(ctx context.Context, userID string) error {
	return s.client.Del(ctx, s.key(userID)).Err()
}
