package braumchat

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/braumchat/braumchat/logger"
	"github.com/braumchat/braumchat/middleware"
	"github.com/braumchat/braumchat/service"
)

const (
	defaultOnlineTTL         = 90 * time.Second
	defaultHeartbeatInterval = 30 * time.Second
	defaultIdleTimeout       = 60 * time.Second
)

// ChatEngine 聚合全部服务与连接注册表，是 SDK 的唯一入口。
type ChatEngine struct {
	config *Config

	Registry *Registry

	Token     *service.TokenService
	Auth      *service.AuthService
	Session   *service.SessionService
	User      *service.UserService
	Workspace *service.WorkspaceService
	Channel   *service.ChannelService
	DM        *service.DMService
	Friend    *service.FriendService
	Presence  *service.PresenceService
	Unread    *service.UnreadService
	RateLimit *service.RateLimitService
}

var (
	Instance *ChatEngine
	once     sync.Once
)

// NewEngine 创建实例
// 使用选项模式传入配置，Option回调
func NewEngine(opts ...Option) *ChatEngine {
	once.Do(func() {
		c := &Config{
			TablePrefix:       "bc_", // Default
			OnlineTTL:         defaultOnlineTTL,
			HeartbeatInterval: defaultHeartbeatInterval,
			IdleTimeout:       defaultIdleTimeout,
			RateLimits:        defaultRateLimits(),
		}
		for _, opt := range opts {
			opt(c)
		}
		Instance = newEngine(c)
	})
	return Instance
}

func defaultRateLimits() RateLimitConfig {
	return RateLimitConfig{
		FailOpen:           true,
		WSConnectPerMinute: 60,
		LoginPerMinute:     10,
		LoginPerUserPer5m:  5,
		RegisterPerHour:    10,
		RefreshPerMinute:   30,
		MessagePer10s:      20,
	}
}

// newEngine 按给定配置组装引擎（singleton 之外的裸构造，测试用）。
func newEngine(c *Config) *ChatEngine {
	if c.OnlineTTL <= 0 {
		c.OnlineTTL = defaultOnlineTTL
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
	if c.RateLimits == (RateLimitConfig{}) {
		c.RateLimits = defaultRateLimits()
	}

	e := &ChatEngine{config: c}
	e.Registry = NewRegistry()

	// 初始化基础 Service，注入 WsNotifier 回调
	base := &service.Service{
		DB:          c.DB,
		RDB:         c.RDB,
		TablePrefix: c.TablePrefix,
		WsNotifier:  e.Registry.SendToUser,
	}

	e.Token = service.NewTokenService(c.JWTSecret, c.AccessTokenTTL, c.RefreshTokenTTL)
	e.Session = service.NewSessionService(base)
	e.User = service.NewUserService(base)
	e.Auth = service.NewAuthService(e.Token, e.Session, e.User)
	e.Workspace = service.NewWorkspaceService(base)
	e.Channel = service.NewChannelService(base)
	e.DM = service.NewDMService(base)
	e.Friend = service.NewFriendService(base)
	e.Presence = service.NewPresenceService(c.RDB, c.OnlineTTL)
	e.Unread = service.NewUnreadService(c.RDB)
	e.RateLimit = service.NewRateLimitService(c.RDB, c.RateLimits.FailOpen)

	if c.AutoMigrate {
		if err := e.AutoMigrate(); err != nil {
			logger.Errorf("AutoMigrate failed: %v", err)
		}
	}
	return e
}

// GinAuthMiddleware 返回配置好的 Gin 鉴权中间件。
//
// 使用示例:
//
//	engine := braumchat.NewEngine(...)
//	r := gin.Default()
//	api := r.Group("/api", engine.GinAuthMiddleware(nil))
func (e *ChatEngine) GinAuthMiddleware(opt *middleware.AuthOptions) gin.HandlerFunc {
	return middleware.GinAuthMiddleware(e.Auth, opt)
}
