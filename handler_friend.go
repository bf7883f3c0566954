package braumchat

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/braumchat/braumchat/middleware"
	"github.com/braumchat/braumchat/response"
	"github.com/braumchat/braumchat/service"
)

// -------------------- 好友（Friend）相关接口 --------------------

type FriendRequestReq struct {
	AddresseeID uint64 `json:"addressee_id" binding:"required"`
}

// GinHandleSendFriendRequest 发起好友申请
// @Summary 发起好友申请
// @Description 向目标用户发起申请；对方 notify 通道会收到 friend.request 事件
// @Tags 好友
// @Accept json
// @Produce json
// @Param req body FriendRequestReq true "申请对象"
// @Success 200 {object} response.Response{data=models.FriendRequest} "申请成功"
// @Failure 400 {object} response.Response "请求错误"
// @Security BearerAuth
// @Router /friends/requests [post]
func (e *ChatEngine) GinHandleSendFriendRequest(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	var req FriendRequestReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	if _, err := e.User.GetUser(req.AddresseeID); err != nil {
		ctx.JSON(http.StatusNotFound, response.Error(response.CodeUserNotFound, "user not found"))
		return
	}

	fr, err := e.Friend.SendRequest(uid, req.AddresseeID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSelfFriend):
			ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		case errors.Is(err, service.ErrAlreadyFriends), errors.Is(err, service.ErrRequestExists):
			ctx.JSON(http.StatusOK, response.Error(response.CodeConflict, err.Error()))
		default:
			ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		}
		return
	}
	ctx.JSON(http.StatusOK, response.Success(fr))
}

// GinHandleRespondFriendRequest 处理好友申请
// @Summary 接受/拒绝好友申请
// @Description 接受时建立好友关系；发起方 notify 通道会收到结果事件
// @Tags 好友
// @Accept json
// @Produce json
// @Param request_id path uint64 true "申请ID"
// @Param req body RespondReq true "处理结果"
// @Success 200 {object} response.Response{data=models.FriendRequest} "处理成功"
// @Failure 404 {object} response.Response "申请不存在"
// @Security BearerAuth
// @Router /friends/requests/{request_id} [post]
func (e *ChatEngine) GinHandleRespondFriendRequest(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	requestID, ok := paramUint(ctx, "request_id")
	if !ok {
		return
	}
	var req RespondReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	fr, err := e.Friend.Respond(requestID, uid, req.Accept)
	if err != nil {
		if errors.Is(err, service.ErrRequestNotFound) {
			ctx.JSON(http.StatusNotFound, response.Error(response.CodeNotFound, "request not found"))
			return
		}
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(fr))
}

// GinHandleListFriends 好友列表
// @Summary 好友列表
// @Description 列出好友（含在线标记）
// @Tags 好友
// @Produce json
// @Success 200 {object} response.Response{data=[]UserWithPresence} "好友列表"
// @Security BearerAuth
// @Router /friends [get]
func (e *ChatEngine) GinHandleListFriends(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	friends, err := e.Friend.ListFriends(uid)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	out, err := e.attachPresence(ctx, friends)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(out))
}

// GinHandleListFriendRequests 待处理申请列表
// @Summary 待处理的好友申请
// @Tags 好友
// @Produce json
// @Success 200 {object} response.Response{data=[]models.FriendRequest} "申请列表"
// @Security BearerAuth
// @Router /friends/requests [get]
func (e *ChatEngine) GinHandleListFriendRequests(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	reqs, err := e.Friend.ListPending(uid)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(reqs))
}

// GinHandleRemoveFriend 删除好友
// @Summary 删除好友
// @Description 解除好友关系；对方 notify 通道会收到 friend.deleted 事件
// @Tags 好友
// @Produce json
// @Param user_id path uint64 true "对方用户ID"
// @Success 200 {object} response.Response "删除成功"
// @Failure 404 {object} response.Response "好友关系不存在"
// @Security BearerAuth
// @Router /friends/{user_id} [delete]
func (e *ChatEngine) GinHandleRemoveFriend(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	otherID, ok := paramUint(ctx, "user_id")
	if !ok {
		return
	}
	if err := e.Friend.Remove(uid, otherID); err != nil {
		if errors.Is(err, service.ErrFriendNotFound) {
			ctx.JSON(http.StatusNotFound, response.Error(response.CodeNotFound, "friend not found"))
			return
		}
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(nil))
}
