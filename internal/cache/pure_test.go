package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestHashSubject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		subject string
	}{
		{"IPv4", "192.168.1.1"},
		{"IPv6", "2001:0db8:85a3:0000:0000:8a2e:0370:7334"},
		{"user id", "11111111-1111-1111-1111-111111111111"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hash := hashSubject(tt.subject)
			if len(hash) != 16 {
				t.Errorf("hashSubject(%q) length = %d, want 16", tt.subject, len(hash))
			}
			if hash != hashSubject(tt.subject) {
				t.Errorf("hashSubject(%q) is not deterministic", tt.subject)
			}
		})
	}

	if hashSubject("127.0.0.1") == hashSubject("::1") {
		t.Error("different subjects should produce different hashes")
	}
}

func TestBucket_Key(t *testing.T) {
	t.Parallel()

	user := UserBucket(300, 50)
	ip := IPBucket(20, 40)

	userKey := user.Key("10.0.0.1")
	ipKey := ip.Key("10.0.0.1")

	if !strings.HasPrefix(userKey, "backoffice:ratelimit:user:") {
		t.Errorf("unexpected user key %q", userKey)
	}
	if !strings.HasPrefix(ipKey, "backoffice:ratelimit:ip:") {
		t.Errorf("unexpected ip key %q", ipKey)
	}
	if strings.Contains(ipKey, "10.0.0.1") {
		t.Errorf("raw address must not appear in key %q", ipKey)
	}
}

func TestBucket_Rates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		bucket   Bucket
		interval time.Duration
		ttl      int
	}{
		{"user 300/min", UserBucket(300, 50), 200 * time.Millisecond, 120},
		{"ip 20/s", IPBucket(20, 40), 50 * time.Millisecond, 10},
		{"unlimited", UserBucket(0, 50), time.Minute, 120},
		{"sub-second ttl", Bucket{Rate: 1, TTL: 100 * time.Millisecond}, time.Second, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.bucket.refillInterval(); got != tt.interval {
				t.Errorf("refillInterval() = %v, want %v", got, tt.interval)
			}
			if got := tt.bucket.ttlSeconds(); got != tt.ttl {
				t.Errorf("ttlSeconds() = %d, want %d", got, tt.ttl)
			}
		})
	}
}

func TestAllow_Unlimited(t *testing.T) {
	t.Parallel()

	// An unlimited bucket never reaches Redis, so a nil client is fine.
	c := &Cache{}
	res := c.Allow(context.Background(), UserBucket(0, 5), "u1")
	if !res.Allowed || res.Remaining != 5 || res.Limit != 5 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestApplyOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    Options
		pool    int
		minIdle int
	}{
		{"defaults", Options{}, 10, 2},
		{"custom", Options{PoolSize: 20, MinIdleConns: 5}, 20, 5},
		{"idle capped by pool", Options{PoolSize: 3, MinIdleConns: 8}, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opt := &redis.Options{}
			applyOptions(opt, tt.opts)
			if opt.PoolSize != tt.pool || opt.MinIdleConns != tt.minIdle {
				t.Errorf("pool=%d idle=%d, want pool=%d idle=%d", opt.PoolSize, opt.MinIdleConns, tt.pool, tt.minIdle)
			}
		})
	}
}
