package braumchat

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/braumchat/braumchat/middleware"
	"github.com/braumchat/braumchat/models"
	"github.com/braumchat/braumchat/response"
	"github.com/braumchat/braumchat/service"
)

// -------------------- 频道（Channel）相关接口 --------------------

type CreateChannelReq struct {
	Name      string `json:"name" binding:"required,min=2,max=64"`
	IsPrivate bool   `json:"is_private"`
}

type CreateMessageReq struct {
	Content  string `json:"content" binding:"required,max=4000"`
	ClientID string `json:"client_id"`
}

type UpdateMessageReq struct {
	Content string `json:"content" binding:"required,max=4000"`
}

// ChannelDetail 频道详情 + 房间内在线用户。
type ChannelDetail struct {
	models.Channel
	OnlineUserIDs []uint64 `json:"online_user_ids"`
}

// allowMessage REST 发消息的按用户限流。
func (e *ChatEngine) allowMessage(ctx *gin.Context, userID uint64) bool {
	key := "rl:message:user:" + strconv.FormatUint(userID, 10)
	return e.allow(ctx, key, e.config.RateLimits.MessagePer10s, 10*time.Second)
}

// GinHandleCreateChannel 创建频道
// @Summary 创建频道
// @Tags 频道
// @Accept json
// @Produce json
// @Param workspace_id path uint64 true "工作区ID"
// @Param req body CreateChannelReq true "频道信息"
// @Success 200 {object} response.Response{data=models.Channel} "创建成功"
// @Failure 403 {object} response.Response "非成员"
// @Security BearerAuth
// @Router /workspaces/{workspace_id}/channels [post]
func (e *ChatEngine) GinHandleCreateChannel(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	workspaceID, ok := paramUint(ctx, "workspace_id")
	if !ok {
		return
	}
	if !e.requireMember(ctx, workspaceID, uid) {
		return
	}
	var req CreateChannelReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	ch, err := e.Channel.Create(workspaceID, req.Name, req.IsPrivate)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(ch))
}

// GinHandleListChannels 频道列表
// @Summary 频道列表
// @Tags 频道
// @Produce json
// @Param workspace_id path uint64 true "工作区ID"
// @Success 200 {object} response.Response{data=[]models.Channel} "频道列表"
// @Failure 403 {object} response.Response "非成员"
// @Security BearerAuth
// @Router /workspaces/{workspace_id}/channels [get]
func (e *ChatEngine) GinHandleListChannels(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	workspaceID, ok := paramUint(ctx, "workspace_id")
	if !ok {
		return
	}
	if !e.requireMember(ctx, workspaceID, uid) {
		return
	}
	channels, err := e.Channel.List(workspaceID)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(channels))
}

// GinHandleGetChannel 频道详情
// @Summary 频道详情
// @Description 频道信息 + 房间内在线用户 ID 列表
// @Tags 频道
// @Produce json
// @Param workspace_id path uint64 true "工作区ID"
// @Param channel_id path uint64 true "频道ID"
// @Success 200 {object} response.Response{data=ChannelDetail} "查询成功"
// @Failure 404 {object} response.Response "频道不存在"
// @Security BearerAuth
// @Router /workspaces/{workspace_id}/channels/{channel_id} [get]
func (e *ChatEngine) GinHandleGetChannel(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	workspaceID, ok := paramUint(ctx, "workspace_id")
	if !ok {
		return
	}
	channelID, ok := paramUint(ctx, "channel_id")
	if !ok {
		return
	}
	if !e.requireMember(ctx, workspaceID, uid) {
		return
	}
	ch, err := e.Channel.Get(channelID)
	if err != nil {
		ctx.JSON(http.StatusNotFound, response.Error(response.CodeNotFound, "channel not found"))
		return
	}

	online, err := e.Presence.ListUsers(ctx.Request.Context(), service.ChannelScope(workspaceID, channelID))
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(ChannelDetail{Channel: *ch, OnlineUserIDs: online}))
}

// GinHandleListChannelMessages 频道历史消息
// @Summary 频道历史消息
// @Description 按时间倒序分页
// @Tags 频道
// @Produce json
// @Param workspace_id path uint64 true "工作区ID"
// @Param channel_id path uint64 true "频道ID"
// @Param limit query int false "返回条数"
// @Param offset query int false "偏移量"
// @Success 200 {object} response.Response{data=[]models.Message} "消息列表"
// @Security BearerAuth
// @Router /workspaces/{workspace_id}/channels/{channel_id}/messages [get]
func (e *ChatEngine) GinHandleListChannelMessages(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	workspaceID, ok := paramUint(ctx, "workspace_id")
	if !ok {
		return
	}
	channelID, ok := paramUint(ctx, "channel_id")
	if !ok {
		return
	}
	if !e.requireMember(ctx, workspaceID, uid) {
		return
	}
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	offset, _ := strconv.Atoi(ctx.Query("offset"))
	messages, err := e.Channel.ListMessages(channelID, limit, offset)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(messages))
}

// GinHandleCreateChannelMessage 发送频道消息（REST）
// @Summary 发送频道消息
// @Description 持久化消息并向频道房间广播，等价于 WS message 帧
// @Tags 频道
// @Accept json
// @Produce json
// @Param workspace_id path uint64 true "工作区ID"
// @Param channel_id path uint64 true "频道ID"
// @Param req body CreateMessageReq true "消息内容"
// @Success 200 {object} response.Response{data=models.Message} "发送成功"
// @Security BearerAuth
// @Router /workspaces/{workspace_id}/channels/{channel_id}/messages [post]
func (e *ChatEngine) GinHandleCreateChannelMessage(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	workspaceID, ok := paramUint(ctx, "workspace_id")
	if !ok {
		return
	}
	channelID, ok := paramUint(ctx, "channel_id")
	if !ok {
		return
	}
	var req CreateMessageReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	if !e.requireMember(ctx, workspaceID, uid) {
		return
	}
	if !e.allowMessage(ctx, uid) {
		return
	}
	if _, err := e.Channel.Get(channelID); err != nil {
		ctx.JSON(http.StatusNotFound, response.Error(response.CodeNotFound, "channel not found"))
		return
	}

	msg, err := e.Channel.CreateMessage(channelID, uid, req.Content)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	e.Registry.Broadcast(ChannelRoom(workspaceID, channelID),
		channelMessageEvent(msg, workspaceID, req.ClientID).Encode())
	ctx.JSON(http.StatusOK, response.Success(msg))
}

// GinHandleUpdateChannelMessage 编辑频道消息
// @Summary 编辑频道消息
// @Description 仅作者可编辑；编辑后广播带 is_edited 的 message 事件
// @Tags 频道
// @Accept json
// @Produce json
// @Param workspace_id path uint64 true "工作区ID"
// @Param channel_id path uint64 true "频道ID"
// @Param message_id path uint64 true "消息ID"
// @Param req body UpdateMessageReq true "新内容"
// @Success 200 {object} response.Response{data=models.Message} "编辑成功"
// @Failure 403 {object} response.Response "非作者"
// @Security BearerAuth
// @Router /workspaces/{workspace_id}/channels/{channel_id}/messages/{message_id} [put]
func (e *ChatEngine) GinHandleUpdateChannelMessage(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	workspaceID, ok := paramUint(ctx, "workspace_id")
	if !ok {
		return
	}
	channelID, ok := paramUint(ctx, "channel_id")
	if !ok {
		return
	}
	messageID, ok := paramUint(ctx, "message_id")
	if !ok {
		return
	}
	var req UpdateMessageReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	if !e.requireMember(ctx, workspaceID, uid) {
		return
	}

	msg, err := e.Channel.UpdateMessage(messageID, uid, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMessageNotFound):
			ctx.JSON(http.StatusNotFound, response.Error(response.CodeNotFound, "message not found"))
		case errors.Is(err, service.ErrNotAuthor):
			ctx.JSON(http.StatusForbidden, response.Error(response.CodePermissionDeny, "not the message author"))
		default:
			ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		}
		return
	}
	e.Registry.Broadcast(ChannelRoom(workspaceID, channelID),
		channelMessageEvent(msg, workspaceID, "").Encode())
	ctx.JSON(http.StatusOK, response.Success(msg))
}

// GinHandleDeleteChannelMessage 删除频道消息
// @Summary 删除频道消息
// @Description 仅作者可删除；软删后广播带 is_deleted 的 message 事件
// @Tags 频道
// @Produce json
// @Param workspace_id path uint64 true "工作区ID"
// @Param channel_id path uint64 true "频道ID"
// @Param message_id path uint64 true "消息ID"
// @Success 200 {object} response.Response "删除成功"
// @Failure 403 {object} response.Response "非作者"
// @Security BearerAuth
// @Router /workspaces/{workspace_id}/channels/{channel_id}/messages/{message_id} [delete]
func (e *ChatEngine) GinHandleDeleteChannelMessage(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	workspaceID, ok := paramUint(ctx, "workspace_id")
	if !ok {
		return
	}
	channelID, ok := paramUint(ctx, "channel_id")
	if !ok {
		return
	}
	messageID, ok := paramUint(ctx, "message_id")
	if !ok {
		return
	}
	if !e.requireMember(ctx, workspaceID, uid) {
		return
	}

	msg, err := e.Channel.DeleteMessage(messageID, uid)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMessageNotFound):
			ctx.JSON(http.StatusNotFound, response.Error(response.CodeNotFound, "message not found"))
		case errors.Is(err, service.ErrNotAuthor):
			ctx.JSON(http.StatusForbidden, response.Error(response.CodePermissionDeny, "not the message author"))
		default:
			ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		}
		return
	}
	e.Registry.Broadcast(ChannelRoom(workspaceID, channelID),
		channelMessageEvent(msg, workspaceID, "").Encode())
	ctx.JSON(http.StatusOK, response.Success(nil))
}
