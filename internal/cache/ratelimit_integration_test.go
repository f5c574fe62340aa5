//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/glansab/backoffice/internal/testutil"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	ctx := context.Background()
	c, err := New(ctx, testutil.RequireEnv(t, "REDIS_URL"))
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	if err := testutil.FlushRedis(ctx, c.Client()); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
	return c
}

func TestCheckUserRateLimit_ExhaustsBurst(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := c.CheckUserRateLimit(ctx, "user-1", 60, 3)
		if err != nil {
			t.Fatalf("CheckUserRateLimit() error = %v", err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	res, err := c.CheckUserRateLimit(ctx, "user-1", 60, 3)
	if err != nil {
		t.Fatalf("CheckUserRateLimit() error = %v", err)
	}
	if res.Allowed {
		t.Error("fourth request should be limited")
	}
	if res.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %v, want > 0", res.RetryAfter)
	}

	// Other users have their own bucket.
	res, _ = c.CheckUserRateLimit(ctx, "user-2", 60, 3)
	if !res.Allowed {
		t.Error("separate user should be allowed")
	}
}

func TestCheckUserRateLimit_Unlimited(t *testing.T) {
	c := newTestCache(t)
	res, err := c.CheckUserRateLimit(context.Background(), "user-1", 0, 10)
	if err != nil || !res.Allowed {
		t.Fatalf("unlimited rate should allow, got %+v, %v", res, err)
	}
}

func TestCheckIPRateLimit(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	first, _ := c.CheckIPRateLimit(ctx, "10.0.0.1", 1, 1)
	second, _ := c.CheckIPRateLimit(ctx, "10.0.0.1", 1, 1)

	if !first.Allowed || second.Allowed {
		t.Errorf("expected allow then deny, got %v then %v", first.Allowed, second.Allowed)
	}
}

func TestAllow_BucketsAreIndependent(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	strict := Bucket{Name: "provisioning", Rate: 1, Burst: 1, TTL: 10 * time.Second}

	if res := c.Allow(ctx, strict, "10.0.0.9"); !res.Allowed {
		t.Fatal("first request should be allowed")
	}
	if res := c.Allow(ctx, strict, "10.0.0.9"); res.Allowed {
		t.Error("second request in the strict bucket should be limited")
	}
	if res := c.Allow(ctx, IPBucket(1, 1), "10.0.0.9"); !res.Allowed {
		t.Error("the ip bucket has its own tokens")
	}

	exists, err := c.Client().Exists(ctx, strict.Key("10.0.0.9")).Result()
	if err != nil || exists != 1 {
		t.Errorf("expected bucket key to exist, got %d, %v", exists, err)
	}
}
