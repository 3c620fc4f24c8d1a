package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"kycgate/internal/ratelimit/models"
	"kycgate/pkg/requestcontext"
)

const keyPrefix = "ratelimit:"

// slidingWindowScript trims the sorted set to the window, admits the call if
// it fits and returns {allowed, count, oldestMillis}. Running it as one
// script keeps check-and-record atomic across replicas.
//
// KEYS[1] window key
// ARGV[1] now (ms)  ARGV[2] window (ms)  ARGV[3] limit  ARGV[4] cost  ARGV[5] member prefix
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count + cost <= limit then
  for i = 1, cost do
    redis.call('ZADD', key, now, ARGV[5] .. ':' .. i)
  end
  count = count + cost
  allowed = 1
end
redis.call('PEXPIRE', key, window)

local oldest = now
local first = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if first[2] then
  oldest = tonumber(first[2])
end
return {allowed, count, oldest}
`)

// RedisStore keeps sliding windows in Redis sorted sets so every replica
// shares one count per key.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedis(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (*models.Result, error) {
	if err := validateArgs(key, cost, limit, window); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	raw, err := slidingWindowScript.Run(ctx, s.client, []string{keyPrefix + key},
		now.UnixMilli(), window.Milliseconds(), limit, cost, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("run sliding window script: %w", err)
	}
	if len(raw) != 3 {
		return nil, fmt.Errorf("unexpected sliding window reply of length %d", len(raw))
	}

	allowed := raw[0] == 1
	count := int(raw[1])
	resetAt := time.UnixMilli(raw[2]).Add(window)

	remaining := 0
	if allowed {
		remaining = limit - count
	}
	return &models.Result{
		Allowed:    allowed,
		Limit:      limit,
		Remaining:  remaining,
		ResetAt:    resetAt,
		RetryAfter: models.RetryAfterSeconds(allowed, resetAt, now),
	}, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("reset rate limit: %w", err)
	}
	return nil
}
