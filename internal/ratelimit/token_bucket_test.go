package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestActorLimiter(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewActorLimiter(client, 2, 1, time.Minute)

	allowed, _, err := limiter.Allow(ctx, "recruiter-1")
	if err != nil || !allowed {
		t.Fatalf("expected first token allowed got allowed=%v err=%v", allowed, err)
	}
	allowed, _, _ = limiter.Allow(ctx, "recruiter-1")
	if !allowed {
		t.Fatalf("expected second token allowed")
	}
	allowed, _, _ = limiter.Allow(ctx, "recruiter-1")
	if allowed {
		t.Fatalf("expected third token to be rejected")
	}

	// A different actor has its own bucket.
	allowed, _, err = limiter.Allow(ctx, "recruiter-2")
	if err != nil || !allowed {
		t.Fatalf("expected fresh actor allowed got allowed=%v err=%v", allowed, err)
	}

	// Note: cannot test refill with miniredis.FastForward() because the Lua
	// script receives time from Go's time.Now(), not Redis's internal clock.
}
