package service

import (
	"encoding/json"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/braumchat/braumchat/cons"
	"github.com/braumchat/braumchat/models"
)

var (
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrNotMember         = errors.New("not a workspace member")
	ErrAlreadyMember     = errors.New("already a member")
	ErrInviteNotFound    = errors.New("invite not found")
	ErrInviteExists      = errors.New("invite already pending")
	ErrSlugTaken         = errors.New("slug already taken")
)

// WorkspaceService 工作区 CRUD、成员关系与邀请。
type WorkspaceService struct {
	*Service
}

func NewWorkspaceService(s *Service) *WorkspaceService {
	return &WorkspaceService{Service: s}
}

// Create 创建工作区，创建者自动成为 owner 成员。
func (s *WorkspaceService) Create(ownerID uint64, name, slug string, settings datatypes.JSON) (*models.Workspace, error) {
	var count int64
	if err := s.DB.Model(&models.Workspace{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugTaken
	}

	ws := &models.Workspace{Name: name, Slug: slug, OwnerID: ownerID, Settings: settings}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ws).Error; err != nil {
			return err
		}
		member := &models.WorkspaceMember{WorkspaceID: ws.ID, UserID: ownerID, Role: "owner"}
		return tx.Create(member).Error
	})
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// Get 按 ID 查工作区。
func (s *WorkspaceService) Get(workspaceID uint64) (*models.Workspace, error) {
	var ws models.Workspace
	err := s.DB.First(&ws, workspaceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWorkspaceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

// ListForUser 列出用户加入的工作区。
func (s *WorkspaceService) ListForUser(userID uint64) ([]models.Workspace, error) {
	var workspaces []models.Workspace
	err := s.DB.
		Joins("JOIN "+s.TablePrefix+"workspace_member m ON m.workspace_id = "+s.TablePrefix+"workspace.id").
		Where("m.user_id = ?", userID).
		Find(&workspaces).Error
	return workspaces, err
}

// IsMember 查询用户是否为工作区成员。
func (s *WorkspaceService) IsMember(workspaceID, userID uint64) (bool, error) {
	var count int64
	err := s.DB.Model(&models.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Count(&count).Error
	return count > 0, err
}

// AddMember 加入工作区（幂等：已是成员直接返回）。
func (s *WorkspaceService) AddMember(workspaceID, userID uint64, role string) error {
	ok, err := s.IsMember(workspaceID, userID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if role == "" {
		role = "member"
	}
	return s.DB.Create(&models.WorkspaceMember{WorkspaceID: workspaceID, UserID: userID, Role: role}).Error
}

// Invite 邀请用户加入工作区，并向被邀请人推送 notify 事件。
func (s *WorkspaceService) Invite(workspaceID, inviterID, inviteeID uint64) (*models.WorkspaceInvite, error) {
	ok, err := s.IsMember(workspaceID, inviterID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotMember
	}
	if ok, err = s.IsMember(workspaceID, inviteeID); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAlreadyMember
	}

	var count int64
	if err := s.DB.Model(&models.WorkspaceInvite{}).
		Where("workspace_id = ? AND invitee_user_id = ? AND status = ?", workspaceID, inviteeID, cons.StatusPending).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrInviteExists
	}

	invite := &models.WorkspaceInvite{
		WorkspaceID:   workspaceID,
		InviterUserID: inviterID,
		InviteeUserID: inviteeID,
		Status:        cons.StatusPending,
	}
	if err := s.DB.Create(invite).Error; err != nil {
		return nil, err
	}

	if b, err := json.Marshal(map[string]any{
		"type": cons.EventWorkspaceInvite,
		"payload": map[string]any{
			"invite_id":    invite.ID,
			"workspace_id": workspaceID,
			"inviter_id":   inviterID,
		},
	}); err == nil {
		s.Notify(inviteeID, b)
	}
	return invite, nil
}

// ListInvitesForUser 列出用户的 pending 邀请。
func (s *WorkspaceService) ListInvitesForUser(userID uint64) ([]models.WorkspaceInvite, error) {
	var invites []models.WorkspaceInvite
	err := s.DB.Preload("Workspace").Preload("Inviter").
		Where("invitee_user_id = ? AND status = ?", userID, cons.StatusPending).
		Find(&invites).Error
	return invites, err
}

// RespondInvite 接受/拒绝邀请；接受时加入工作区。
func (s *WorkspaceService) RespondInvite(inviteID, userID uint64, accept bool) (*models.WorkspaceInvite, error) {
	var invite models.WorkspaceInvite
	err := s.DB.First(&invite, inviteID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, err
	}
	if invite.InviteeUserID != userID || invite.Status != cons.StatusPending {
		return nil, ErrInviteNotFound
	}

	status := cons.StatusDeclined
	if accept {
		status = cons.StatusAccepted
	}
	if err := s.DB.Model(&invite).Update("status", status).Error; err != nil {
		return nil, err
	}
	invite.Status = status

	if accept {
		if err := s.AddMember(invite.WorkspaceID, userID, "member"); err != nil {
			return nil, err
		}
	}
	return &invite, nil
}
