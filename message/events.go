package message

import (
	"encoding/json"
	"time"
)

// Event WS 下行事件统一信封：{"type": "...", "payload": {...}}
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Encode 序列化事件；失败时返回 nil（调用方按丢弃处理）。
func (e *Event) Encode() []byte {
	b, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return b
}

// Author 消息作者摘要
type Author struct {
	ID          uint64 `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// MessageEvent 频道/私信消息事件 payload
type MessageEvent struct {
	ID          uint64     `json:"id"`
	WorkspaceID uint64     `json:"workspace_id,omitempty"`
	ChannelID   uint64     `json:"channel_id,omitempty"`
	ThreadID    uint64     `json:"thread_id,omitempty"`
	UserID      uint64     `json:"user_id"`
	Content     string     `json:"content"`
	Author      Author     `json:"author"`
	ClientID    string     `json:"client_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	IsEdited    bool       `json:"is_edited"`
	IsDeleted   bool       `json:"is_deleted"`
}

// TypingEvent 输入中事件 payload
type TypingEvent struct {
	UserID   uint64 `json:"user_id"`
	IsTyping bool   `json:"is_typing"`
}

// ReadEvent 已读回执事件 payload，last_read_message_id 为合并后的水位值
type ReadEvent struct {
	UserID            uint64 `json:"user_id"`
	ThreadID          uint64 `json:"thread_id"`
	LastReadMessageID uint64 `json:"last_read_message_id"`
}

// PresenceEvent 房间在线状态事件 payload
type PresenceEvent struct {
	UserID uint64 `json:"user_id"`
	Status string `json:"status"` // online / offline
}

// DMUnreadEvent 未读数增量事件 payload（推到接收方的 notify 房间）
type DMUnreadEvent struct {
	ThreadID uint64 `json:"thread_id"`
	Delta    int64  `json:"delta"`
	Unread   int64  `json:"unread"`
}
