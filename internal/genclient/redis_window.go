package genclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces limiter keys.
const DefaultRedisPrefix = "thumbsmith:ratelimit"

// admitScript prunes, counts and records in one step. Scores are epoch
// milliseconds. Returns {admitted, count, retry_after_ms}.
const admitScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
    local retry = 0
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    if oldest[2] then
        retry = tonumber(oldest[2]) + window - now
    end
    return {0, count, retry}
end

redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window)
return {1, count + 1, 0}
`

// RedisWindowStore shares limiter windows between processes through Redis
// sorted sets, one key per endpoint.
type RedisWindowStore struct {
	client redis.UniversalClient
	prefix string
	script *redis.Script
}

// NewRedisWindowStore returns a store using client. An empty prefix uses DefaultRedisPrefix.
func NewRedisWindowStore(client redis.UniversalClient, prefix string) *RedisWindowStore {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisWindowStore{
		client: client,
		prefix: prefix,
		script: redis.NewScript(admitScript),
	}
}

// NewRedisWindowStoreFromURL parses a redis:// URL and connects lazily.
func NewRedisWindowStoreFromURL(url, prefix string) (*RedisWindowStore, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisWindowStore(redis.NewClient(opts), prefix), nil
}

// Ping checks connectivity.
func (s *RedisWindowStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *RedisWindowStore) Close() error {
	return s.client.Close()
}

func (s *RedisWindowStore) key(endpoint Endpoint) string {
	return s.prefix + ":" + string(endpoint)
}

// Admit implements WindowStore.
func (s *RedisWindowStore) Admit(ctx context.Context, endpoint Endpoint, now time.Time, limit RateLimit) (Decision, error) {
	nowMs := now.UnixMilli()
	member := strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()

	val, err := s.script.Run(ctx, s.client, []string{s.key(endpoint)},
		nowMs, limit.Window.Milliseconds(), limit.Requests, member).Result()
	if err != nil {
		return Decision{}, err
	}

	results, ok := val.([]interface{})
	if !ok || len(results) != 3 {
		return Decision{}, fmt.Errorf("unexpected result from redis script: %v", val)
	}

	admitted := toInt64(results[0]) == 1
	decision := Decision{
		Admitted: admitted,
		Count:    int(toInt64(results[1])),
	}
	if !admitted {
		retry := time.Duration(toInt64(results[2])) * time.Millisecond
		if retry < 0 {
			retry = 0
		}
		decision.RetryAfter = retry
	}
	return decision, nil
}

// Snapshot implements WindowStore.
func (s *RedisWindowStore) Snapshot(ctx context.Context, endpoint Endpoint, now time.Time, window time.Duration) ([]time.Time, error) {
	minScore := "(" + strconv.FormatInt(now.UnixMilli()-window.Milliseconds(), 10)
	entries, err := s.client.ZRangeByScoreWithScores(ctx, s.key(endpoint), &redis.ZRangeBy{
		Min: minScore,
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}

	stamps := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		stamps = append(stamps, time.UnixMilli(int64(entry.Score)))
	}
	return stamps, nil
}

// Reset implements WindowStore.
func (s *RedisWindowStore) Reset(ctx context.Context, endpoint Endpoint) error {
	return s.client.Del(ctx, s.key(endpoint)).Err()
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case string:
		parsed, _ := strconv.ParseInt(n, 10, 64)
		return parsed
	default:
		parsed, _ := strconv.ParseInt(fmt.Sprintf("%v", v), 10, 64)
		return parsed
	}
}
