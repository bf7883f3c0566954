package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

func TestRateLimitService_FixedWindow(t *testing.T) {
	rdb := newTestRedis(t)
	svc := NewRateLimitService(rdb, false)
	ctx := context.Background()
	rule := RateLimitRule{Limit: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		if err := svc.Allow(ctx, "rl:test", rule); err != nil {
			t.Fatalf("request %d should pass: %v", i+1, err)
		}
	}
	if err := svc.Allow(ctx, "rl:test", rule); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	// 不同 key 不受影响
	if err := svc.Allow(ctx, "rl:other", rule); err != nil {
		t.Fatalf("other key should pass: %v", err)
	}
}

func TestRateLimitService_BackendDown(t *testing.T) {
	// 指向没人监听的地址模拟后端故障
	dead := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	ctx := context.Background()
	rule := RateLimitRule{Limit: 1, Window: time.Minute}

	open := NewRateLimitService(dead, true)
	if err := open.Allow(ctx, "rl:x", rule); err != nil {
		t.Fatalf("fail-open should pass: %v", err)
	}

	closed := NewRateLimitService(dead, false)
	if err := closed.Allow(ctx, "rl:x", rule); !errors.Is(err, ErrLimiterUnavailable) {
		t.Fatalf("fail-closed should reject, got %v", err)
	}
}

func TestRateLimitService_NilClient(t *testing.T) {
	ctx := context.Background()
	rule := RateLimitRule{Limit: 1, Window: time.Minute}

	if err := NewRateLimitService(nil, true).Allow(ctx, "k", rule); err != nil {
		t.Fatalf("nil client fail-open should pass: %v", err)
	}
	if err := NewRateLimitService(nil, false).Allow(ctx, "k", rule); !errors.Is(err, ErrLimiterUnavailable) {
		t.Fatalf("nil client fail-closed should reject, got %v", err)
	}
}
