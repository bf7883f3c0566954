package message

import (
	"encoding/json"
	"fmt"
)

// WS 上行帧类型
const (
	FrameTypeMessage = "message" // 发送消息
	FrameTypeTyping  = "typing"  // 输入中
	FrameTypeRead    = "read"    // 已读回执（仅 DM 房间）
	FrameTypePing    = "ping"    // 心跳，仅重置空闲计时
)

// MessageFrame 发送消息帧。
// client_id 为客户端自带的幂等标识，服务端原样回传，用于乐观 UI 对账。
type MessageFrame struct {
	Content  string `json:"content"`
	ClientID string `json:"client_id,omitempty"`
}

// TypingFrame 输入中状态帧。is_typing 缺省按 true 处理。
type TypingFrame struct {
	IsTyping *bool `json:"is_typing"`
}

// Typing 返回 is_typing 的实际值。
func (f *TypingFrame) Typing() bool {
	if f == nil || f.IsTyping == nil {
		return true
	}
	return *f.IsTyping
}

// ReadFrame 已读回执帧：当前用户在此线程已读到某条消息。
type ReadFrame struct {
	LastReadMessageID uint64 `json:"last_read_message_id"`
}

// Frame 上行帧的 tagged variant：Type 决定哪个字段非 nil。
// 在边界处解析并校验，后续 dispatch 不再接触原始 JSON。
type Frame struct {
	Type    string
	Message *MessageFrame
	Typing  *TypingFrame
	Read    *ReadFrame
}

// ParseFrame 解析并校验一条上行帧。
// 先探测 type，再按类型反序列化具体字段。
func ParseFrame(raw []byte) (*Frame, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}

	switch probe.Type {
	case FrameTypePing:
		return &Frame{Type: FrameTypePing}, nil

	case FrameTypeMessage:
		var f MessageFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("invalid message frame: %w", err)
		}
		if f.Content == "" {
			return nil, fmt.Errorf("message frame requires content")
		}
		return &Frame{Type: FrameTypeMessage, Message: &f}, nil

	case FrameTypeTyping:
		var f TypingFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("invalid typing frame: %w", err)
		}
		return &Frame{Type: FrameTypeTyping, Typing: &f}, nil

	case FrameTypeRead:
		var f ReadFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("invalid read frame: %w", err)
		}
		if f.LastReadMessageID == 0 {
			return nil, fmt.Errorf("read frame requires positive last_read_message_id")
		}
		return &Frame{Type: FrameTypeRead, Read: &f}, nil
	}

	return nil, fmt.Errorf("unknown frame type %q", probe.Type)
}
