package braumchat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/braumchat/braumchat/cons"
	"github.com/braumchat/braumchat/logger"
	"github.com/braumchat/braumchat/message"
	"github.com/braumchat/braumchat/models"
	"github.com/braumchat/braumchat/response"
	"github.com/braumchat/braumchat/service"
)

// wsConnectAllowed 升级前按客户端 IP 限流。命中限制回 429；
// 限流器自身不可用时按配置放行或回 503。
func (e *ChatEngine) wsConnectAllowed(ctx *gin.Context) bool {
	key := "rl:ws:connect:ip:" + ctx.ClientIP()
	rule := service.RateLimitRule{Limit: e.config.RateLimits.WSConnectPerMinute, Window: time.Minute}
	err := e.RateLimit.Allow(ctx.Request.Context(), key, rule)
	if err == nil {
		return true
	}
	if errors.Is(err, service.ErrRateLimited) {
		ctx.JSON(http.StatusTooManyRequests, response.Error(response.CodeRateLimited, "too many connection attempts"))
	} else {
		ctx.JSON(http.StatusServiceUnavailable, response.Error(response.CodeInternalError, "service unavailable"))
	}
	return false
}

// closeWithPolicy 升级之后才能发现的拒绝（鉴权失败、越权）只能走 1008 关闭帧。
func closeWithPolicy(conn *websocket.Conn, reason string) {
	deadline := time.Now().Add(writeWait)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), deadline)
	_ = conn.Close()
}

// authenticateWS 在升级后的连接上校验 access token（含会话有效性）。
func (e *ChatEngine) authenticateWS(ctx *gin.Context, conn *websocket.Conn) (*models.User, bool) {
	user, _, err := e.Auth.AuthenticateRequest(ctx.Request)
	if err != nil {
		logger.Infof("ws auth rejected: %v", err)
		closeWithPolicy(conn, "authentication failed")
		return nil, false
	}
	return user, true
}

// heartbeat 周期性续期在线标记，直到会话结束。
func (e *ChatEngine) heartbeat(ctx context.Context, done chan<- struct{}, userID uint64) {
	defer close(done)
	ticker := time.NewTicker(e.config.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.Presence.MarkOnline(context.Background(), userID); err != nil {
				logger.Warnf("heartbeat user=%d: %v", userID, err)
			}
		}
	}
}

// runSession 接管一条已鉴权的 websocket 连接直至断开：
// 注册进房间、维护在线状态、循环处理上行帧，退出时按固定顺序收尾。
// scope 为空表示该房间不做房间级 presence（notify 通道）。
func (e *ChatEngine) runSession(conn *websocket.Conn, user *models.User, room, scope string, onFrame func(*message.Frame)) {
	client := newClient(e.Registry, conn, user.ID, user.DisplayName, user.AvatarURL, e.config.IdleTimeout)
	e.Registry.Register(room, client)
	go client.writePump()

	bg := context.Background()
	if scope != "" {
		if _, err := e.Presence.AddUser(bg, scope, user.ID); err != nil {
			logger.Warnf("presence add user=%d scope=%s: %v", user.ID, scope, err)
		}
	}
	if err := e.Presence.MarkOnline(bg, user.ID); err != nil {
		logger.Warnf("mark online user=%d: %v", user.ID, err)
	}
	if _, err := e.Presence.IncrConnections(bg, user.ID); err != nil {
		logger.Warnf("incr connections user=%d: %v", user.ID, err)
	}

	hbCtx, hbCancel := context.WithCancel(context.Background())
	hbDone := make(chan struct{})
	go e.heartbeat(hbCtx, hbDone, user.ID)

	defer func() {
		hbCancel()
		<-hbDone

		// 先出注册表，再广播离线：收尾期间不能再收到自己房间的事件
		e.Registry.Unregister(room, client)
		client.close()

		if scope != "" {
			remaining, err := e.Presence.RemoveUser(bg, scope, user.ID)
			if err != nil {
				logger.Warnf("presence remove user=%d scope=%s: %v", user.ID, scope, err)
			} else if remaining == 0 && service.IsThreadScope(scope) {
				// 离线广播只对私信房间有定义；频道在线名单走查询接口
				ev := &message.Event{
					Type:    cons.EventPresence,
					Payload: message.PresenceEvent{UserID: user.ID, Status: "offline"},
				}
				e.Registry.Broadcast(room, ev.Encode())
			}
		}
		if _, err := e.Presence.DecrConnections(bg, user.ID); err != nil {
			logger.Warnf("decr connections user=%d: %v", user.ID, err)
		}
	}()

	err := client.readLoop(func(raw []byte) {
		frame, err := message.ParseFrame(raw)
		if err != nil {
			// 非法帧丢弃，连接保留
			logger.Warnf("drop frame user=%d room=%s: %v", user.ID, room, err)
			return
		}
		if frame.Type == message.FrameTypePing {
			return // 只为续空闲窗口
		}
		onFrame(frame)
	})
	if isIdleTimeout(err) {
		deadline := time.Now().Add(writeWait)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "idle timeout"), deadline)
	}
}

func isIdleTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func paramUint(ctx *gin.Context, name string) (uint64, bool) {
	v, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || v == 0 {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, fmt.Sprintf("invalid %s", name)))
		return 0, false
	}
	return v, true
}

// ServeNotifyWS 个人通知通道。只下行事件，上行除 ping 外全部忽略。
func (e *ChatEngine) ServeNotifyWS(ctx *gin.Context) {
	if !e.wsConnectAllowed(ctx) {
		return
	}
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		logger.Warnf("ws upgrade: %v", err)
		return
	}
	user, ok := e.authenticateWS(ctx, conn)
	if !ok {
		return
	}
	e.runSession(conn, user, NotifyRoom(user.ID), "", func(*message.Frame) {})
}

// ServeChannelWS 频道房间通道。要求调用方是工作区成员。
func (e *ChatEngine) ServeChannelWS(ctx *gin.Context) {
	workspaceID, ok := paramUint(ctx, "workspace_id")
	if !ok {
		return
	}
	channelID, ok := paramUint(ctx, "channel_id")
	if !ok {
		return
	}
	if !e.wsConnectAllowed(ctx) {
		return
	}
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		logger.Warnf("ws upgrade: %v", err)
		return
	}
	user, ok := e.authenticateWS(ctx, conn)
	if !ok {
		return
	}
	if member, err := e.Workspace.IsMember(workspaceID, user.ID); err != nil || !member {
		if err != nil {
			logger.Errorf("membership check user=%d workspace=%d: %v", user.ID, workspaceID, err)
		}
		closeWithPolicy(conn, "not a workspace member")
		return
	}
	if _, err := e.Channel.Get(channelID); err != nil {
		closeWithPolicy(conn, "unknown channel")
		return
	}

	room := ChannelRoom(workspaceID, channelID)
	scope := service.ChannelScope(workspaceID, channelID)
	e.runSession(conn, user, room, scope, func(f *message.Frame) {
		e.handleChannelFrame(user, workspaceID, channelID, f)
	})
}

// ServeDMWS 私信房间通道。要求调用方是线程参与者。
func (e *ChatEngine) ServeDMWS(ctx *gin.Context) {
	threadID, ok := paramUint(ctx, "thread_id")
	if !ok {
		return
	}
	if !e.wsConnectAllowed(ctx) {
		return
	}
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		logger.Warnf("ws upgrade: %v", err)
		return
	}
	user, ok := e.authenticateWS(ctx, conn)
	if !ok {
		return
	}
	thread, err := e.DM.GetThread(threadID)
	if err != nil || !thread.Participant(user.ID) {
		if err != nil && !errors.Is(err, service.ErrThreadNotFound) {
			logger.Errorf("load thread %d: %v", threadID, err)
		}
		closeWithPolicy(conn, "not part of this thread")
		return
	}

	room := ThreadRoom(thread.ID)
	scope := service.ThreadScope(thread.ID)
	e.runSession(conn, user, room, scope, func(f *message.Frame) {
		e.handleThreadFrame(user, thread, f)
	})
}
