package braumchat

import (
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// RateLimitConfig 各入口的限流配额。零值字段取默认。
type RateLimitConfig struct {
	FailOpen bool // 限流器故障时放行（true）还是拒绝（false）

	WSConnectPerMinute int
	LoginPerMinute     int // 按 IP
	LoginPerUserPer5m  int // 按邮箱
	RegisterPerHour    int // 按 IP
	RefreshPerMinute   int // 按 IP
	MessagePer10s      int // 按用户（REST 发消息）
}

type Config struct {
	DB          *gorm.DB
	RDB         *redis.Client
	TablePrefix string

	// JWTSecret HS256 签名密钥，必填
	JWTSecret string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// OnlineTTL 全局在线标记存活时间，必须大于 HeartbeatInterval
	OnlineTTL         time.Duration
	HeartbeatInterval time.Duration

	// IdleTimeout WS 空闲窗口：窗口内无任何帧（含 ping）即按 1001 断开
	IdleTimeout time.Duration

	RateLimits RateLimitConfig

	AutoMigrate bool
}

type Option func(*Config)

func WithDB(db *gorm.DB) Option {
	return func(c *Config) {
		c.DB = db
	}
}

func WithRDB(RDB *redis.Client) Option {
	return func(c *Config) {
		c.RDB = RDB
	}
}

func WithTablePrefix(prefix string) Option {
	return func(c *Config) {
		c.TablePrefix = prefix
	}
}

func WithJWTSecret(secret string) Option {
	return func(c *Config) {
		c.JWTSecret = secret
	}
}

func WithTokenTTLs(access, refresh time.Duration) Option {
	return func(c *Config) {
		c.AccessTokenTTL = access
		c.RefreshTokenTTL = refresh
	}
}

// WithPresenceTiming 配置在线标记 TTL 与心跳周期。
func WithPresenceTiming(onlineTTL, heartbeat time.Duration) Option {
	return func(c *Config) {
		c.OnlineTTL = onlineTTL
		c.HeartbeatInterval = heartbeat
	}
}

func WithIdleTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.IdleTimeout = d
	}
}

func WithRateLimits(cfg RateLimitConfig) Option {
	return func(c *Config) {
		c.RateLimits = cfg
	}
}

func WithAutoMigrate(enabled bool) Option {
	return func(c *Config) {
		c.AutoMigrate = enabled
	}
}
