package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	prefix = "bc_"
)

// User 用户表
type User struct {
	ID             uint64 `gorm:"primarykey"`
	Email          string `gorm:"size:255;uniqueIndex;not null"` // 邮箱（登录名）
	HashedPassword string `gorm:"size:255;not null" json:"-"`    // bcrypt 密码，永不下发
	DisplayName    string `gorm:"size:255;uniqueIndex;not null"` // 展示名
	AvatarURL      string `gorm:"size:1024"`                     // 头像
	IsActive       bool   `gorm:"default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`

	// 关联关系
	Sessions []UserSession     `gorm:"foreignKey:UserID"`
	Members  []WorkspaceMember `gorm:"foreignKey:UserID"`
	Messages []Message         `gorm:"foreignKey:UserID"`
}

func (User) TableName() string {
	return prefix + "user"
}

// UserSession 登录会话表：sid 由登录时生成，revoked_at 非空表示已注销。
// WS 建连时若 token 带 sid，必须能在此表命中且未注销。
type UserSession struct {
	ID         uint64     `gorm:"primarykey"`
	UserID     uint64     `gorm:"index;not null"`
	SessionID  string     `gorm:"size:64;uniqueIndex;not null"` // sid
	UserAgent  string     `gorm:"size:512"`
	IPAddress  string     `gorm:"size:128"`
	RevokedAt  *time.Time `gorm:"index"`
	LastSeenAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (UserSession) TableName() string {
	return prefix + "user_session"
}

// Workspace 工作区表
type Workspace struct {
	ID        uint64         `gorm:"primarykey"`
	Name      string         `gorm:"size:255;not null"`
	Slug      string         `gorm:"size:255;uniqueIndex;not null"`
	OwnerID   uint64         `gorm:"index;not null"`
	Settings  datatypes.JSON // 工作区级配置（主题、默认频道等）
	CreatedAt time.Time
	UpdatedAt time.Time

	Members  []WorkspaceMember `gorm:"foreignKey:WorkspaceID"`
	Channels []Channel         `gorm:"foreignKey:WorkspaceID"`
}

func (Workspace) TableName() string {
	return prefix + "workspace"
}

// WorkspaceMember 工作区成员表
type WorkspaceMember struct {
	ID          uint64 `gorm:"primarykey"`
	WorkspaceID uint64 `gorm:"not null;index:idx_ws_member,unique"`
	UserID      uint64 `gorm:"not null;index:idx_ws_member,unique"`
	Role        string `gorm:"size:50;default:member"` // owner / member
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (WorkspaceMember) TableName() string {
	return prefix + "workspace_member"
}

// WorkspaceInvite 工作区邀请表，状态 pending/accepted/declined
type WorkspaceInvite struct {
	ID            uint64 `gorm:"primarykey"`
	WorkspaceID   uint64 `gorm:"index;not null"`
	InviterUserID uint64 `gorm:"not null"`
	InviteeUserID uint64 `gorm:"index;not null"`
	Status        string `gorm:"size:20;default:pending"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Workspace Workspace `gorm:"foreignKey:WorkspaceID"`
	Inviter   User      `gorm:"foreignKey:InviterUserID"`
}

func (WorkspaceInvite) TableName() string {
	return prefix + "workspace_invite"
}

// Channel 频道表
type Channel struct {
	ID          uint64 `gorm:"primarykey"`
	WorkspaceID uint64 `gorm:"index;not null"`
	Name        string `gorm:"size:255;not null"`
	IsPrivate   bool   `gorm:"default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Messages []Message `gorm:"foreignKey:ChannelID"`
}

func (Channel) TableName() string {
	return prefix + "channel"
}

// Message 频道消息表。编辑/删除走标志位，内容保留审计。
type Message struct {
	ID        uint64 `gorm:"primarykey"`
	ChannelID uint64 `gorm:"index;not null"`
	UserID    uint64 `gorm:"index;not null"`
	Content   string `gorm:"type:text;not null"`
	IsEdited  bool   `gorm:"default:false"`
	IsDeleted bool   `gorm:"default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time

	User User `gorm:"foreignKey:UserID"`
}

func (Message) TableName() string {
	return prefix + "message"
}

// DirectMessageThread 私信线程表：同一工作区内一对用户唯一。
// 约定 User1ID < User2ID，写入前先排序，避免 (a,b)/(b,a) 两条。
type DirectMessageThread struct {
	ID          uint64 `gorm:"primarykey"`
	WorkspaceID uint64 `gorm:"not null;index:idx_dm_thread,unique"`
	User1ID     uint64 `gorm:"not null;index:idx_dm_thread,unique"`
	User2ID     uint64 `gorm:"not null;index:idx_dm_thread,unique"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	User1 User `gorm:"foreignKey:User1ID"`
	User2 User `gorm:"foreignKey:User2ID"`
}

func (DirectMessageThread) TableName() string {
	return prefix + "dm_thread"
}

// Participant 判断用户是否为线程参与者。
func (t *DirectMessageThread) Participant(userID uint64) bool {
	return t != nil && (t.User1ID == userID || t.User2ID == userID)
}

// OtherUserID 返回线程里另一侧的用户 ID。
func (t *DirectMessageThread) OtherUserID(userID uint64) uint64 {
	if t.User1ID == userID {
		return t.User2ID
	}
	return t.User1ID
}

// DirectMessage 私信消息表
type DirectMessage struct {
	ID        uint64 `gorm:"primarykey"`
	ThreadID  uint64 `gorm:"index;not null"`
	SenderID  uint64 `gorm:"index;not null"`
	Content   string `gorm:"type:text;not null"`
	IsEdited  bool   `gorm:"default:false"`
	IsDeleted bool   `gorm:"default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Sender User `gorm:"foreignKey:SenderID"`
}

func (DirectMessage) TableName() string {
	return prefix + "direct_message"
}

// Friend 好友关系表，约定 User1ID < User2ID
type Friend struct {
	ID        uint64 `gorm:"primarykey"`
	User1ID   uint64 `gorm:"not null;index:idx_friend_pair,unique"`
	User2ID   uint64 `gorm:"not null;index:idx_friend_pair,unique"`
	CreatedAt time.Time

	User1 User `gorm:"foreignKey:User1ID"`
	User2 User `gorm:"foreignKey:User2ID"`
}

func (Friend) TableName() string {
	return prefix + "friend"
}

// FriendRequest 好友申请表，状态 pending/accepted/declined
type FriendRequest struct {
	ID          uint64 `gorm:"primarykey"`
	RequesterID uint64 `gorm:"not null;index:idx_friend_req,unique"`
	AddresseeID uint64 `gorm:"not null;index:idx_friend_req,unique"`
	Status      string `gorm:"size:20;default:pending"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Requester User `gorm:"foreignKey:RequesterID"`
	Addressee User `gorm:"foreignKey:AddresseeID"`
}

func (FriendRequest) TableName() string {
	return prefix + "friend_request"
}
