package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

var (
	// ErrRateLimited 窗口内请求数超限。
	ErrRateLimited = errors.New("too many requests")
	// ErrLimiterUnavailable 限流后端不可用且配置为 fail-closed。
	ErrLimiterUnavailable = errors.New("rate limiter unavailable")
)

// RateLimitRule 固定窗口规则。
type RateLimitRule struct {
	Limit  int
	Window time.Duration
}

// RateLimitService 基于 Redis 的固定窗口限流：
// INCR 计数，首个请求设置窗口 TTL。
// Redis 故障时按 failOpen 决定放行还是拒绝。
type RateLimitService struct {
	rdb      *redis.Client
	failOpen bool
}

func NewRateLimitService(rdb *redis.Client, failOpen bool) *RateLimitService {
	return &RateLimitService{rdb: rdb, failOpen: failOpen}
}

// Allow 检查 key 在规则窗口内是否放行。
// 超限返回 ErrRateLimited；后端故障时 fail-open 返回 nil，fail-closed 返回 ErrLimiterUnavailable。
func (s *RateLimitService) Allow(ctx context.Context, key string, rule RateLimitRule) error {
	if s == nil || s.rdb == nil {
		if s != nil && s.failOpen {
			return nil
		}
		return ErrLimiterUnavailable
	}

	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		if s.failOpen {
			return nil
		}
		return ErrLimiterUnavailable
	}
	if count == 1 {
		_ = s.rdb.Expire(ctx, key, rule.Window).Err()
	}
	if count > int64(rule.Limit) {
		return ErrRateLimited
	}
	return nil
}
