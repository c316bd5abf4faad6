package redis

const (
	// createSessionScript creates a session only if none is open for the
	// user, so a flapping connected signal never resets the clock
	createSessionScript = `
local session_key = KEYS[1]   -- {prefix}:session:{userID}

local user_id = ARGV[1]
local started_at_ms = ARGV[2]
local checkpoint_ms = ARGV[3]

if redis.call('EXISTS', session_key) == 1 then
  return 0
end

redis.call('HSET', session_key,
  'user_id', user_id,
  'started_at_ms', started_at_ms,
  'checkpoint_ms', checkpoint_ms
)

return 1
`

	// advanceCheckpointScript moves the checkpoint forward by an exact
	// delta and returns the updated fields, failing when no session exists
	advanceCheckpointScript = `
local session_key = KEYS[1]   -- {prefix}:session:{userID}

local delta_ms = tonumber(ARGV[1])

if redis.call('EXISTS', session_key) == 0 then
  return false
end

local checkpoint = redis.call('HINCRBY', session_key, 'checkpoint_ms', delta_ms)
local started = redis.call('HGET', session_key, 'started_at_ms')

return {started, checkpoint}
`

	// addDailyTimeScript increments today's total, resetting the log in
	// the same atomic step when the stored date has rolled over
	addDailyTimeScript = `
local daily_key = KEYS[1]     -- {prefix}:daily:{userID}

local user_id = ARGV[1]
local date = ARGV[2]
local delta_ms = tonumber(ARGV[3])

local stored_date = redis.call('HGET', daily_key, 'date')
if stored_date ~= date then
  redis.call('HSET', daily_key,
    'user_id', user_id,
    'date', date,
    'accumulated_ms', 0
  )
end

local total = redis.call('HINCRBY', daily_key, 'accumulated_ms', delta_ms)

return total
`
)
