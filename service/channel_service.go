package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/braumchat/braumchat/models"
)

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrNotAuthor       = errors.New("not the message author")
)

// ChannelService 频道与频道消息。
type ChannelService struct {
	*Service
}

func NewChannelService(s *Service) *ChannelService {
	return &ChannelService{Service: s}
}

// Create 在工作区内创建频道。
func (s *ChannelService) Create(workspaceID uint64, name string, isPrivate bool) (*models.Channel, error) {
	ch := &models.Channel{WorkspaceID: workspaceID, Name: name, IsPrivate: isPrivate}
	if err := s.DB.Create(ch).Error; err != nil {
		return nil, err
	}
	return ch, nil
}

// List 列出工作区的频道。
func (s *ChannelService) List(workspaceID uint64) ([]models.Channel, error) {
	var channels []models.Channel
	err := s.DB.Where("workspace_id = ?", workspaceID).Order("id").Find(&channels).Error
	return channels, err
}

// Get 按 ID 查频道。
func (s *ChannelService) Get(channelID uint64) (*models.Channel, error) {
	var ch models.Channel
	err := s.DB.First(&ch, channelID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChannelNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// CreateMessage 持久化频道消息并带回作者信息。
func (s *ChannelService) CreateMessage(channelID, userID uint64, content string) (*models.Message, error) {
	msg := &models.Message{ChannelID: channelID, UserID: userID, Content: content}
	if err := s.DB.Create(msg).Error; err != nil {
		return nil, err
	}
	var author models.User
	if err := s.DB.First(&author, userID).Error; err != nil {
		return nil, err
	}
	msg.User = author
	return msg, nil
}

// ListMessages 按时间倒序分页读取频道消息。
func (s *ChannelService) ListMessages(channelID uint64, limit, offset int) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var messages []models.Message
	err := s.DB.Preload("User").
		Where("channel_id = ?", channelID).
		Order("id DESC").Limit(limit).Offset(offset).
		Find(&messages).Error
	return messages, err
}

// UpdateMessage 编辑自己的消息（置 is_edited）。
func (s *ChannelService) UpdateMessage(messageID, userID uint64, content string) (*models.Message, error) {
	var msg models.Message
	err := s.DB.Preload("User").First(&msg, messageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	if msg.UserID != userID {
		return nil, ErrNotAuthor
	}
	if err := s.DB.Model(&msg).Updates(map[string]any{"content": content, "is_edited": true}).Error; err != nil {
		return nil, err
	}
	msg.Content = content
	msg.IsEdited = true
	return &msg, nil
}

// DeleteMessage 删除自己的消息（软删：置 is_deleted，内容留审计）。
func (s *ChannelService) DeleteMessage(messageID, userID uint64) (*models.Message, error) {
	var msg models.Message
	err := s.DB.Preload("User").First(&msg, messageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	if msg.UserID != userID {
		return nil, ErrNotAuthor
	}
	if err := s.DB.Model(&msg).Update("is_deleted", true).Error; err != nil {
		return nil, err
	}
	msg.IsDeleted = true
	return &msg, nil
}
