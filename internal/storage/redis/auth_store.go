package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/greenity-lab/unitree-agent/internal/storage"
	"github.com/redis/go-redis/v9"
)

type authStore struct {
	client *redis.Client
	prefix string
}

func (s *authStore) key() string {
	return fmt.Sprintf("%s:auth:current", s.prefix)
}

// Current returns the signed-in user's credentials
func (s *authStore) Current(ctx context.Context) (*storage.Credentials, error) {
	data, err := s.client.Get(ctx, s.key()).Result()
	if err == redis.Nil {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var creds storage.Credentials
	if err := json.Unmarshal([]byte(data), &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	return &creds, nil
}

// Save persists the signed-in user's credentials
func (s *authStore) Save(ctx context.Context, creds storage.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	return s.client.Set(ctx, s.key(), data, 0).Err()
}

// Clear removes the stored credentials
func (s *authStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key()).Err()
}
