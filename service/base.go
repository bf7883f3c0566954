package service

import (
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Service 基础服务，包含数据库与缓存句柄
type Service struct {
	DB          *gorm.DB
	RDB         *redis.Client
	TablePrefix string

	// WsNotifier 用于向用户 notify 房间推送事件的回调函数。
	// 避免 service 层反向依赖连接注册表，通过函数注入。
	WsNotifier func(userID uint64, message []byte)
}

// Notify 推送通知（未注入时静默跳过）。
func (s *Service) Notify(userID uint64, message []byte) {
	if s.WsNotifier == nil || message == nil {
		return
	}
	s.WsNotifier(userID, message)
}
