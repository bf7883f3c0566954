package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/braumchat/braumchat/models"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionService 登录会话管理（sid 落库，注销走 revoked_at）。
// 实时网关把它当只读协作方：token 带 sid 时必须命中且未注销。
type SessionService struct {
	*Service
}

func NewSessionService(s *Service) *SessionService {
	return &SessionService{Service: s}
}

// Create 新建会话。
func (s *SessionService) Create(userID uint64, sid, userAgent, ipAddress string) (*models.UserSession, error) {
	now := time.Now()
	sess := &models.UserSession{
		UserID:     userID,
		SessionID:  sid,
		UserAgent:  userAgent,
		IPAddress:  ipAddress,
		LastSeenAt: &now,
	}
	if err := s.DB.Create(sess).Error; err != nil {
		return nil, err
	}
	return sess, nil
}

// GetBySID 按 sid 查会话。
func (s *SessionService) GetBySID(sid string) (*models.UserSession, error) {
	var sess models.UserSession
	err := s.DB.Where("session_id = ?", sid).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// ListActive 列出用户未注销的会话。
func (s *SessionService) ListActive(userID uint64) ([]models.UserSession, error) {
	var sessions []models.UserSession
	err := s.DB.Where("user_id = ? AND revoked_at IS NULL", userID).
		Order("id DESC").Find(&sessions).Error
	return sessions, err
}

// Revoke 注销指定会话；sid 不属于该用户视为不存在。
func (s *SessionService) Revoke(userID uint64, sid string) (*models.UserSession, error) {
	sess, err := s.GetBySID(sid)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, ErrSessionNotFound
	}
	if sess.RevokedAt == nil {
		now := time.Now()
		if err := s.DB.Model(sess).Update("revoked_at", now).Error; err != nil {
			return nil, err
		}
		sess.RevokedAt = &now
	}
	return sess, nil
}

// Rotate 刷新轮换：注销旧会话并创建新 sid。
// 旧会话不存在/已注销/不属于该用户时返回 ErrSessionNotFound。
func (s *SessionService) Rotate(userID uint64, oldSID, newSID, userAgent, ipAddress string) (*models.UserSession, error) {
	old, err := s.GetBySID(oldSID)
	if err != nil {
		return nil, err
	}
	if old.UserID != userID || old.RevokedAt != nil {
		return nil, ErrSessionNotFound
	}
	now := time.Now()
	if err := s.DB.Model(old).Update("revoked_at", now).Error; err != nil {
		return nil, err
	}
	return s.Create(userID, newSID, userAgent, ipAddress)
}

// Touch 刷新会话活跃时间（best-effort，调用方可忽略错误）。
func (s *SessionService) Touch(sid string) error {
	return s.DB.Model(&models.UserSession{}).
		Where("session_id = ? AND revoked_at IS NULL", sid).
		Update("last_seen_at", time.Now()).Error
}
