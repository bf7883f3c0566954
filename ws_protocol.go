package braumchat

import (
	"context"

	"github.com/braumchat/braumchat/cons"
	"github.com/braumchat/braumchat/logger"
	"github.com/braumchat/braumchat/message"
	"github.com/braumchat/braumchat/models"
)

func channelMessageEvent(msg *models.Message, workspaceID uint64, clientID string) *message.Event {
	return &message.Event{
		Type: cons.EventMessage,
		Payload: message.MessageEvent{
			ID:          msg.ID,
			WorkspaceID: workspaceID,
			ChannelID:   msg.ChannelID,
			UserID:      msg.UserID,
			Content:     msg.Content,
			Author: message.Author{
				ID:          msg.User.ID,
				DisplayName: msg.User.DisplayName,
				AvatarURL:   msg.User.AvatarURL,
			},
			ClientID:  clientID,
			CreatedAt: msg.CreatedAt,
			IsEdited:  msg.IsEdited,
			IsDeleted: msg.IsDeleted,
		},
	}
}

func dmMessageEvent(dm *models.DirectMessage, clientID string) *message.Event {
	return &message.Event{
		Type: cons.EventMessage,
		Payload: message.MessageEvent{
			ID:       dm.ID,
			ThreadID: dm.ThreadID,
			UserID:   dm.SenderID,
			Content:  dm.Content,
			Author: message.Author{
				ID:          dm.Sender.ID,
				DisplayName: dm.Sender.DisplayName,
				AvatarURL:   dm.Sender.AvatarURL,
			},
			ClientID:  clientID,
			CreatedAt: dm.CreatedAt,
		},
	}
}

// handleChannelFrame 频道房间上行帧的业务分发。
// 持久化失败只丢帧不断连：一条消息写不进库不应该把整个会话打掉。
func (e *ChatEngine) handleChannelFrame(user *models.User, workspaceID, channelID uint64, f *message.Frame) {
	room := ChannelRoom(workspaceID, channelID)
	switch f.Type {
	case message.FrameTypeMessage:
		msg, err := e.Channel.CreateMessage(channelID, user.ID, f.Message.Content)
		if err != nil {
			logger.Errorf("persist channel message user=%d channel=%d: %v", user.ID, channelID, err)
			return
		}
		e.Registry.Broadcast(room, channelMessageEvent(msg, workspaceID, f.Message.ClientID).Encode())

	case message.FrameTypeTyping:
		ev := &message.Event{
			Type:    cons.EventTyping,
			Payload: message.TypingEvent{UserID: user.ID, IsTyping: f.Typing.Typing()},
		}
		e.Registry.Broadcast(room, ev.Encode())

	case message.FrameTypeRead:
		// 已读回执只对私信线程有定义，频道房间忽略
	}
}

// handleThreadFrame 私信房间上行帧的业务分发。
func (e *ChatEngine) handleThreadFrame(user *models.User, thread *models.DirectMessageThread, f *message.Frame) {
	room := ThreadRoom(thread.ID)
	ctx := context.Background()

	switch f.Type {
	case message.FrameTypeMessage:
		dm, err := e.DM.CreateDirectMessage(thread.ID, user.ID, f.Message.Content)
		if err != nil {
			logger.Errorf("persist dm user=%d thread=%d: %v", user.ID, thread.ID, err)
			return
		}
		e.Registry.Broadcast(room, dmMessageEvent(dm, f.Message.ClientID).Encode())

		// 未读旁路：对方不在本房间（任一连接都不在）才计未读并走 notify 通道
		other := thread.OtherUserID(user.ID)
		if e.Registry.CountForUser(room, other) == 0 {
			unread, err := e.Unread.IncrementUnread(ctx, other, thread.ID, 1)
			if err != nil {
				logger.Warnf("incr unread user=%d thread=%d: %v", other, thread.ID, err)
				return
			}
			ev := &message.Event{
				Type:    cons.EventDMUnread,
				Payload: message.DMUnreadEvent{ThreadID: thread.ID, Delta: 1, Unread: unread},
			}
			e.Registry.SendToUser(other, ev.Encode())
		}

	case message.FrameTypeTyping:
		ev := &message.Event{
			Type:    cons.EventTyping,
			Payload: message.TypingEvent{UserID: user.ID, IsTyping: f.Typing.Typing()},
		}
		e.Registry.Broadcast(room, ev.Encode())

	case message.FrameTypeRead:
		watermark, err := e.Unread.SetLastRead(ctx, user.ID, thread.ID, f.Read.LastReadMessageID)
		if err != nil {
			logger.Warnf("set last read user=%d thread=%d: %v", user.ID, thread.ID, err)
			return
		}
		if err := e.Unread.ClearUnread(ctx, user.ID, thread.ID); err != nil {
			logger.Warnf("clear unread user=%d thread=%d: %v", user.ID, thread.ID, err)
		}
		ev := &message.Event{
			Type:    cons.EventRead,
			Payload: message.ReadEvent{UserID: user.ID, ThreadID: thread.ID, LastReadMessageID: watermark},
		}
		e.Registry.Broadcast(room, ev.Encode())
	}
}

// MarkThreadRead 供 REST 的 mark-read 复用与 WS read 帧相同的语义。
func (e *ChatEngine) MarkThreadRead(ctx context.Context, userID uint64, thread *models.DirectMessageThread, lastReadMessageID uint64) (uint64, error) {
	watermark, err := e.Unread.SetLastRead(ctx, userID, thread.ID, lastReadMessageID)
	if err != nil {
		return 0, err
	}
	if err := e.Unread.ClearUnread(ctx, userID, thread.ID); err != nil {
		return 0, err
	}
	ev := &message.Event{
		Type:    cons.EventRead,
		Payload: message.ReadEvent{UserID: userID, ThreadID: thread.ID, LastReadMessageID: watermark},
	}
	e.Registry.Broadcast(ThreadRoom(thread.ID), ev.Encode())
	return watermark, nil
}
