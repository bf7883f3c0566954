package service

import (
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/braumchat/braumchat/cons"
	"github.com/braumchat/braumchat/models"
)

var (
	ErrRequestNotFound = errors.New("friend request not found")
	ErrRequestExists   = errors.New("friend request already pending")
	ErrAlreadyFriends  = errors.New("already friends")
	ErrSelfFriend      = errors.New("cannot befriend yourself")
	ErrFriendNotFound  = errors.New("friend not found")
)

// FriendService 好友关系与好友申请。
type FriendService struct {
	*Service
}

func NewFriendService(s *Service) *FriendService {
	return &FriendService{Service: s}
}

func orderedPair(a, b uint64) (uint64, uint64) {
	if a > b {
		return b, a
	}
	return a, b
}

// AreFriends 查询两用户是否已是好友。
func (s *FriendService) AreFriends(a, b uint64) (bool, error) {
	u1, u2 := orderedPair(a, b)
	var count int64
	err := s.DB.Model(&models.Friend{}).
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		Count(&count).Error
	return count > 0, err
}

// SendRequest 发起好友申请，并向对方推送 notify 事件。
func (s *FriendService) SendRequest(requesterID, addresseeID uint64) (*models.FriendRequest, error) {
	if requesterID == addresseeID {
		return nil, ErrSelfFriend
	}
	if ok, err := s.AreFriends(requesterID, addresseeID); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAlreadyFriends
	}

	var count int64
	if err := s.DB.Model(&models.FriendRequest{}).
		Where("requester_id = ? AND addressee_id = ? AND status = ?", requesterID, addresseeID, cons.StatusPending).
		Or("requester_id = ? AND addressee_id = ? AND status = ?", addresseeID, requesterID, cons.StatusPending).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrRequestExists
	}

	req := &models.FriendRequest{RequesterID: requesterID, AddresseeID: addresseeID, Status: cons.StatusPending}
	if err := s.DB.Create(req).Error; err != nil {
		return nil, err
	}

	if b, err := json.Marshal(map[string]any{
		"type":    cons.EventFriendRequest,
		"payload": map[string]any{"request_id": req.ID, "requester_id": requesterID},
	}); err == nil {
		s.Notify(addresseeID, b)
	}
	return req, nil
}

// Respond 同意/拒绝好友申请；同意时建立好友关系，并通知发起方。
func (s *FriendService) Respond(requestID, userID uint64, accept bool) (*models.FriendRequest, error) {
	var req models.FriendRequest
	err := s.DB.First(&req, requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	if req.AddresseeID != userID || req.Status != cons.StatusPending {
		return nil, ErrRequestNotFound
	}

	status := cons.StatusDeclined
	event := cons.EventFriendDeclined
	if accept {
		status = cons.StatusAccepted
		event = cons.EventFriendAccepted
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&req).Update("status", status).Error; err != nil {
			return err
		}
		if accept {
			u1, u2 := orderedPair(req.RequesterID, req.AddresseeID)
			return tx.Create(&models.Friend{User1ID: u1, User2ID: u2}).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	req.Status = status

	if b, err := json.Marshal(map[string]any{
		"type":    event,
		"payload": map[string]any{"request_id": req.ID, "addressee_id": req.AddresseeID},
	}); err == nil {
		s.Notify(req.RequesterID, b)
	}
	return &req, nil
}

// ListFriends 列出好友（另一侧的用户实体）。
func (s *FriendService) ListFriends(userID uint64) ([]models.User, error) {
	var friends []models.Friend
	if err := s.DB.Preload("User1").Preload("User2").
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Find(&friends).Error; err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(friends))
	for _, f := range friends {
		if f.User1ID == userID {
			users = append(users, f.User2)
		} else {
			users = append(users, f.User1)
		}
	}
	return users, nil
}

// ListPending 列出发给自己的待处理申请。
func (s *FriendService) ListPending(userID uint64) ([]models.FriendRequest, error) {
	var reqs []models.FriendRequest
	err := s.DB.Preload("Requester").
		Where("addressee_id = ? AND status = ?", userID, cons.StatusPending).
		Find(&reqs).Error
	return reqs, err
}

// Remove 删除好友关系，并通知对方。
func (s *FriendService) Remove(userID, otherID uint64) error {
	u1, u2 := orderedPair(userID, otherID)
	res := s.DB.Where("user1_id = ? AND user2_id = ?", u1, u2).Delete(&models.Friend{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrFriendNotFound
	}

	if b, err := json.Marshal(map[string]any{
		"type":    cons.EventFriendDeleted,
		"payload": map[string]any{"user_id": userID},
	}); err == nil {
		s.Notify(otherID, b)
	}
	return nil
}
