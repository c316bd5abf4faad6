package redis

import (
	"fmt"
	"strconv"
	"time"

	"github.com/greenity-lab/unitree-agent/internal/storage"
)

// parseConnectionSession converts a Redis hash to ConnectionSession
func parseConnectionSession(data map[string]string) (*storage.ConnectionSession, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	startedMs, err := strconv.ParseInt(data["started_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at_ms: %w", err)
	}

	checkpointMs, err := strconv.ParseInt(data["checkpoint_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint_ms: %w", err)
	}

	return &storage.ConnectionSession{
		UserID:       data["user_id"],
		StartedAt:    time.UnixMilli(startedMs).UTC(),
		CheckpointAt: time.UnixMilli(checkpointMs).UTC(),
	}, nil
}

// parseDailyTimeLog converts a Redis hash to DailyTimeLog
func parseDailyTimeLog(data map[string]string) (*storage.DailyTimeLog, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	accumulatedMs, err := strconv.ParseInt(data["accumulated_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse accumulated_ms: %w", err)
	}

	return &storage.DailyTimeLog{
		UserID:        data["user_id"],
		Date:          data["date"],
		AccumulatedMs: accumulatedMs,
	}, nil
}

// toInt64 normalizes Lua script return values, which arrive as int64 for
// numbers and string for hash fields
func toInt64(v interface{}) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case string:
		return strconv.ParseInt(val, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
