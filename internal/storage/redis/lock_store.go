package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type lockStore struct {
	client *redis.Client
	prefix string
}

func (s *lockStore) key(name string) string {
	return fmt.Sprintf("%s:lock:%s", s.prefix, name)
}

// Acquire takes the named lock if free. The TTL bounds how long a crashed
// holder can block the next pass.
func (s *lockStore) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, s.key(name), "1", ttl).Result()
}

// Release frees the named lock
func (s *lockStore) Release(ctx context.Context, name string) error {
	return s.client.Del(ctx, s.key(name)).Err()
}
