package braumchat

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/braumchat/braumchat/cons"
	"github.com/braumchat/braumchat/message"
	"github.com/braumchat/braumchat/middleware"
	"github.com/braumchat/braumchat/models"
	"github.com/braumchat/braumchat/response"
	"github.com/braumchat/braumchat/service"
)

// -------------------- 私信（DM）相关接口 --------------------

type OpenThreadReq struct {
	OtherUserID uint64 `json:"other_user_id" binding:"required"`
}

type MarkReadReq struct {
	LastReadMessageID uint64 `json:"last_read_message_id" binding:"required"`
}

// ThreadWithUnread 线程 + 当前用户未读数。
type ThreadWithUnread struct {
	models.DirectMessageThread
	Unread int64 `json:"unread"`
}

// ReadStatusResp 线程已读状态。
type ReadStatusResp struct {
	ThreadID          uint64 `json:"thread_id"`
	Unread            int64  `json:"unread"`
	LastReadMessageID uint64 `json:"last_read_message_id"`
}

// requireThread 加载线程并校验当前用户是参与者，失败时已写响应。
func (e *ChatEngine) requireThread(ctx *gin.Context, threadID, userID uint64) (*models.DirectMessageThread, bool) {
	thread, err := e.DM.GetThread(threadID)
	if err != nil {
		if errors.Is(err, service.ErrThreadNotFound) {
			ctx.JSON(http.StatusNotFound, response.Error(response.CodeNotFound, "thread not found"))
		} else {
			ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		}
		return nil, false
	}
	if !thread.Participant(userID) {
		ctx.JSON(http.StatusForbidden, response.Error(response.CodePermissionDeny, "not part of this thread"))
		return nil, false
	}
	return thread, true
}

// GinHandleOpenThread 打开私信线程
// @Summary 打开私信线程
// @Description 获取或创建与某用户在该工作区内的私信线程，双方都必须是工作区成员
// @Tags 私信
// @Accept json
// @Produce json
// @Param workspace_id path uint64 true "工作区ID"
// @Param req body OpenThreadReq true "对方用户"
// @Success 200 {object} response.Response{data=models.DirectMessageThread} "线程"
// @Failure 403 {object} response.Response "非成员"
// @Security BearerAuth
// @Router /workspaces/{workspace_id}/dms [post]
func (e *ChatEngine) GinHandleOpenThread(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	workspaceID, ok := paramUint(ctx, "workspace_id")
	if !ok {
		return
	}
	var req OpenThreadReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	if !e.requireMember(ctx, workspaceID, uid) {
		return
	}
	if ok, err := e.Workspace.IsMember(workspaceID, req.OtherUserID); err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	} else if !ok {
		ctx.JSON(http.StatusForbidden, response.Error(response.CodePermissionDeny, "other user is not a workspace member"))
		return
	}

	thread, err := e.DM.GetOrCreateThread(workspaceID, uid, req.OtherUserID)
	if err != nil {
		code := response.CodeInternalError
		if errors.Is(err, service.ErrSelfThread) {
			code = response.CodeParamError
		}
		ctx.JSON(http.StatusOK, response.Error(code, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(thread))
}

// GinHandleListThreads 私信线程列表
// @Summary 私信线程列表
// @Description 列出当前用户参与的线程（带各自的未读数）
// @Tags 私信
// @Produce json
// @Param workspace_id query uint64 false "按工作区过滤"
// @Param limit query int false "返回条数"
// @Param offset query int false "偏移量"
// @Success 200 {object} response.Response{data=[]ThreadWithUnread} "线程列表"
// @Security BearerAuth
// @Router /dms [get]
func (e *ChatEngine) GinHandleListThreads(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	workspaceID, _ := strconv.ParseUint(ctx.Query("workspace_id"), 10, 64)
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	offset, _ := strconv.Atoi(ctx.Query("offset"))

	threads, err := e.DM.ListThreads(uid, workspaceID, limit, offset)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}

	ids := make([]uint64, 0, len(threads))
	for _, t := range threads {
		ids = append(ids, t.ID)
	}
	unread, err := e.Unread.GetUnreadMap(ctx.Request.Context(), uid, ids)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}

	out := make([]ThreadWithUnread, 0, len(threads))
	for _, t := range threads {
		out = append(out, ThreadWithUnread{DirectMessageThread: t, Unread: unread[t.ID]})
	}
	ctx.JSON(http.StatusOK, response.Success(out))
}

// GinHandleGetThread 线程详情
// @Summary 私信线程详情
// @Tags 私信
// @Produce json
// @Param thread_id path uint64 true "线程ID"
// @Success 200 {object} response.Response{data=ThreadWithUnread} "线程详情"
// @Failure 403 {object} response.Response "非参与者"
// @Security BearerAuth
// @Router /dms/{thread_id} [get]
func (e *ChatEngine) GinHandleGetThread(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	threadID, ok := paramUint(ctx, "thread_id")
	if !ok {
		return
	}
	thread, ok := e.requireThread(ctx, threadID, uid)
	if !ok {
		return
	}
	unread, err := e.Unread.GetUnread(ctx.Request.Context(), uid, thread.ID)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(ThreadWithUnread{DirectMessageThread: *thread, Unread: unread}))
}

// GinHandleListThreadMessages 私信历史消息
// @Summary 私信历史消息
// @Tags 私信
// @Produce json
// @Param thread_id path uint64 true "线程ID"
// @Param limit query int false "返回条数"
// @Param offset query int false "偏移量"
// @Success 200 {object} response.Response{data=[]models.DirectMessage} "消息列表"
// @Security BearerAuth
// @Router /dms/{thread_id}/messages [get]
func (e *ChatEngine) GinHandleListThreadMessages(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	threadID, ok := paramUint(ctx, "thread_id")
	if !ok {
		return
	}
	thread, ok := e.requireThread(ctx, threadID, uid)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	offset, _ := strconv.Atoi(ctx.Query("offset"))
	messages, err := e.DM.ListMessages(thread.ID, limit, offset)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(messages))
}

// GinHandleCreateThreadMessage 发送私信（REST）
// @Summary 发送私信
// @Description 持久化并向线程房间广播；对方不在房间时计未读并推送 dm.unread，与 WS message 帧等价
// @Tags 私信
// @Accept json
// @Produce json
// @Param thread_id path uint64 true "线程ID"
// @Param req body CreateMessageReq true "消息内容"
// @Success 200 {object} response.Response{data=models.DirectMessage} "发送成功"
// @Security BearerAuth
// @Router /dms/{thread_id}/messages [post]
func (e *ChatEngine) GinHandleCreateThreadMessage(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	threadID, ok := paramUint(ctx, "thread_id")
	if !ok {
		return
	}
	var req CreateMessageReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	thread, ok := e.requireThread(ctx, threadID, uid)
	if !ok {
		return
	}
	if !e.allowMessage(ctx, uid) {
		return
	}

	dm, err := e.DM.CreateDirectMessage(thread.ID, uid, req.Content)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}

	room := ThreadRoom(thread.ID)
	e.Registry.Broadcast(room, dmMessageEvent(dm, req.ClientID).Encode())

	other := thread.OtherUserID(uid)
	if e.Registry.CountForUser(room, other) == 0 {
		unread, err := e.Unread.IncrementUnread(ctx.Request.Context(), other, thread.ID, 1)
		if err == nil {
			ev := &message.Event{
				Type:    cons.EventDMUnread,
				Payload: message.DMUnreadEvent{ThreadID: thread.ID, Delta: 1, Unread: unread},
			}
			e.Registry.SendToUser(other, ev.Encode())
		}
	}
	ctx.JSON(http.StatusOK, response.Success(dm))
}

// GinHandleThreadReadStatus 已读状态
// @Summary 线程已读状态
// @Description 当前用户在该线程的未读数与已读水位
// @Tags 私信
// @Produce json
// @Param thread_id path uint64 true "线程ID"
// @Success 200 {object} response.Response{data=ReadStatusResp} "已读状态"
// @Security BearerAuth
// @Router /dms/{thread_id}/read-status [get]
func (e *ChatEngine) GinHandleThreadReadStatus(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	threadID, ok := paramUint(ctx, "thread_id")
	if !ok {
		return
	}
	thread, ok := e.requireThread(ctx, threadID, uid)
	if !ok {
		return
	}
	unread, err := e.Unread.GetUnread(ctx.Request.Context(), uid, thread.ID)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	lastRead, err := e.Unread.GetLastRead(ctx.Request.Context(), uid, thread.ID)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(ReadStatusResp{
		ThreadID:          thread.ID,
		Unread:            unread,
		LastReadMessageID: lastRead,
	}))
}

// GinHandleMarkThreadRead 标记已读（REST）
// @Summary 标记线程已读
// @Description 推进已读水位（只增不减）、清零未读并广播 read 事件，与 WS read 帧等价
// @Tags 私信
// @Accept json
// @Produce json
// @Param thread_id path uint64 true "线程ID"
// @Param req body MarkReadReq true "已读位置"
// @Success 200 {object} response.Response{data=ReadStatusResp} "合并后的已读状态"
// @Security BearerAuth
// @Router /dms/{thread_id}/read [post]
func (e *ChatEngine) GinHandleMarkThreadRead(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	threadID, ok := paramUint(ctx, "thread_id")
	if !ok {
		return
	}
	var req MarkReadReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	thread, ok := e.requireThread(ctx, threadID, uid)
	if !ok {
		return
	}

	watermark, err := e.MarkThreadRead(ctx.Request.Context(), uid, thread, req.LastReadMessageID)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(ReadStatusResp{
		ThreadID:          thread.ID,
		Unread:            0,
		LastReadMessageID: watermark,
	}))
}
