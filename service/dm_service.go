package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/braumchat/braumchat/models"
)

var (
	ErrThreadNotFound = errors.New("thread not found")
	ErrNotParticipant = errors.New("not part of this thread")
	ErrSelfThread     = errors.New("cannot open a thread with yourself")
)

// DMService 私信线程与私信消息。
type DMService struct {
	*Service
}

func NewDMService(s *Service) *DMService {
	return &DMService{Service: s}
}

// GetOrCreateThread 获取或创建一对用户在工作区内的私信线程。
// 用户对先排序（小 ID 在前），保证 (a,b) 与 (b,a) 命中同一条。
func (s *DMService) GetOrCreateThread(workspaceID, userA, userB uint64) (*models.DirectMessageThread, error) {
	if userA == userB {
		return nil, ErrSelfThread
	}
	u1, u2 := userA, userB
	if u1 > u2 {
		u1, u2 = u2, u1
	}

	var thread models.DirectMessageThread
	err := s.DB.Where("workspace_id = ? AND user1_id = ? AND user2_id = ?", workspaceID, u1, u2).
		First(&thread).Error
	if err == nil {
		return s.GetThread(thread.ID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	thread = models.DirectMessageThread{WorkspaceID: workspaceID, User1ID: u1, User2ID: u2}
	if err := s.DB.Create(&thread).Error; err != nil {
		return nil, err
	}
	return s.GetThread(thread.ID)
}

// GetThread 按 ID 查线程（带两侧用户）。
func (s *DMService) GetThread(threadID uint64) (*models.DirectMessageThread, error) {
	var thread models.DirectMessageThread
	err := s.DB.Preload("User1").Preload("User2").First(&thread, threadID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// ListThreads 列出用户参与的线程。
func (s *DMService) ListThreads(userID uint64, workspaceID uint64, limit, offset int) ([]models.DirectMessageThread, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	q := s.DB.Preload("User1").Preload("User2").
		Where("user1_id = ? OR user2_id = ?", userID, userID)
	if workspaceID > 0 {
		q = q.Where("workspace_id = ?", workspaceID)
	}
	var threads []models.DirectMessageThread
	err := q.Order("updated_at DESC").Limit(limit).Offset(offset).Find(&threads).Error
	return threads, err
}

// CreateDirectMessage 持久化私信并带回发送者信息。
func (s *DMService) CreateDirectMessage(threadID, senderID uint64, content string) (*models.DirectMessage, error) {
	msg := &models.DirectMessage{ThreadID: threadID, SenderID: senderID, Content: content}
	if err := s.DB.Create(msg).Error; err != nil {
		return nil, err
	}
	var sender models.User
	if err := s.DB.First(&sender, senderID).Error; err != nil {
		return nil, err
	}
	msg.Sender = sender
	return msg, nil
}

// ListMessages 按时间倒序分页读取线程消息。
func (s *DMService) ListMessages(threadID uint64, limit, offset int) ([]models.DirectMessage, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var messages []models.DirectMessage
	err := s.DB.Preload("Sender").
		Where("thread_id = ?", threadID).
		Order("id DESC").Limit(limit).Offset(offset).
		Find(&messages).Error
	return messages, err
}
