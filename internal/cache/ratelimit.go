package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "backoffice:ratelimit:"

// Bucket describes one token bucket family, for example all per-user
// buckets of the API.
type Bucket struct {
	Name  string
	Rate  float64 // tokens per second; zero means unlimited
	Burst int
	TTL   time.Duration
}

// UserBucket limits one session user to ratePerMinute with the given burst.
func UserBucket(ratePerMinute, burst int) Bucket {
	return Bucket{Name: "user", Rate: float64(ratePerMinute) / 60, Burst: burst, TTL: 2 * time.Minute}
}

// IPBucket limits one client address to ratePerSecond with the given burst.
func IPBucket(ratePerSecond, burst int) Bucket {
	return Bucket{Name: "ip", Rate: float64(ratePerSecond), Burst: burst, TTL: 10 * time.Second}
}

// Key returns the Redis key of subject's bucket. Subjects are hashed so
// raw IP addresses and user ids are not stored.
func (b Bucket) Key(subject string) string {
	return rateLimitPrefix + b.Name + ":" + hashSubject(subject)
}

// refillInterval is how long one token takes to come back.
func (b Bucket) refillInterval() time.Duration {
	if b.Rate <= 0 {
		return time.Minute
	}
	return time.Duration(float64(time.Second) / b.Rate)
}

func (b Bucket) ttlSeconds() int {
	secs := int(math.Ceil(b.TTL.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// tokenBucketScript refills and consumes a token bucket atomically.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])
	local burst = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])

	local data = redis.call('HMGET', key, 'tokens', 'last_update')
	local tokens = tonumber(data[1]) or burst
	local last_update = tonumber(data[2]) or now

	tokens = math.min(burst, tokens + (math.max(0, now - last_update) * rate))

	local allowed = 0
	local retry_after = 0
	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		retry_after = math.ceil((1 - tokens) / rate)
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_update', now)
	redis.call('EXPIRE', key, ttl)

	return {allowed, retry_after, math.floor(tokens)}
`)

// Allow takes one token from subject's bucket. Redis errors fail open so a
// cache outage does not take the API down with it.
func (c *Cache) Allow(ctx context.Context, b Bucket, subject string) *RateLimitResult {
	now := time.Now()
	open := &RateLimitResult{
		Allowed:   true,
		Limit:     b.Burst,
		Remaining: int64(b.Burst),
		ResetAt:   now.Add(b.refillInterval()),
	}
	if b.Rate <= 0 {
		return open
	}

	res, err := tokenBucketScript.Run(ctx, c.client,
		[]string{b.Key(subject)},
		b.Rate, b.Burst, now.Unix(), b.ttlSeconds(),
	).Int64Slice()
	if err != nil || len(res) != 3 {
		return open
	}

	return &RateLimitResult{
		Allowed:    res[0] == 1,
		Limit:      b.Burst,
		Remaining:  res[2],
		ResetAt:    now.Add(b.refillInterval()),
		RetryAfter: time.Duration(res[1]) * time.Second,
	}
}

// CheckUserRateLimit checks the per-user bucket. A zero rate means unlimited.
func (c *Cache) CheckUserRateLimit(ctx context.Context, userID string, ratePerMinute, burst int) (*RateLimitResult, error) {
	return c.Allow(ctx, UserBucket(ratePerMinute, burst), userID), nil
}

// CheckIPRateLimit checks the per-address bucket.
func (c *Cache) CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	return c.Allow(ctx, IPBucket(ratePerSecond, burst), ip), nil
}

// hashSubject returns the first 8 bytes of the subject's SHA-256 as hex.
func hashSubject(subject string) string {
	hash := sha256.Sum256([]byte(subject))
	return hex.EncodeToString(hash[:8])
}
