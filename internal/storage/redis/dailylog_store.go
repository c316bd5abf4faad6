package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/greenity-lab/unitree-agent/internal/storage"
	"github.com/redis/go-redis/v9"
)

type dailyLogStore struct {
	client *redis.Client
	prefix string
}

func (s *dailyLogStore) key(userID string) string {
	return fmt.Sprintf("%s:daily:%s", s.prefix, userID)
}

// Get retrieves the stored daily log for a user
func (s *dailyLogStore) Get(ctx context.Context, userID string) (*storage.DailyTimeLog, error) {
	data, err := s.client.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	return parseDailyTimeLog(data)
}

// Add increments today's total, resetting atomically on date rollover
func (s *dailyLogStore) Add(ctx context.Context, userID, date string, delta time.Duration) (*storage.DailyTimeLog, error) {
	script := redis.NewScript(addDailyTimeScript)

	keys := []string{s.key(userID)}
	args := []interface{}{userID, date, delta.Milliseconds()}

	total, err := script.Run(ctx, s.client, keys, args...).Int64()
	if err != nil {
		return nil, err
	}

	return &storage.DailyTimeLog{
		UserID:        userID,
		Date:          date,
		AccumulatedMs: total,
	}, nil
}

// Reset replaces the log with a fresh zero entry for the given date
func (s *dailyLogStore) Reset(ctx context.Context, userID, date string) (*storage.DailyTimeLog, error) {
	if err := s.client.HSet(ctx, s.key(userID),
		"user_id", userID,
		"date", date,
		"accumulated_ms", 0,
	).Err(); err != nil {
		return nil, err
	}

	return &storage.DailyTimeLog{
		UserID:        userID,
		Date:          date,
		AccumulatedMs: 0,
	}, nil
}
