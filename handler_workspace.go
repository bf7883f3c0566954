package braumchat

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/braumchat/braumchat/middleware"
	"github.com/braumchat/braumchat/response"
	"github.com/braumchat/braumchat/service"
)

// -------------------- 工作区（Workspace）相关接口 --------------------

type CreateWorkspaceReq struct {
	Name     string         `json:"name" binding:"required,min=2,max=64"`
	Slug     string         `json:"slug" binding:"required,min=2,max=64"`
	Settings datatypes.JSON `json:"settings"`
}

type InviteReq struct {
	InviteeUserID uint64 `json:"invitee_user_id" binding:"required"`
}

type RespondReq struct {
	Accept bool `json:"accept"`
}

// requireMember 工作区成员校验，失败时已写响应。
func (e *ChatEngine) requireMember(ctx *gin.Context, workspaceID, userID uint64) bool {
	ok, err := e.Workspace.IsMember(workspaceID, userID)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return false
	}
	if !ok {
		ctx.JSON(http.StatusForbidden, response.Error(response.CodePermissionDeny, "not a workspace member"))
		return false
	}
	return true
}

// GinHandleCreateWorkspace 创建工作区
// @Summary 创建工作区
// @Description 创建工作区，创建者自动成为 owner
// @Tags 工作区
// @Accept json
// @Produce json
// @Param req body CreateWorkspaceReq true "工作区信息"
// @Success 200 {object} response.Response{data=models.Workspace} "创建成功"
// @Failure 400 {object} response.Response "请求错误"
// @Security BearerAuth
// @Router /workspaces [post]
func (e *ChatEngine) GinHandleCreateWorkspace(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	var req CreateWorkspaceReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	ws, err := e.Workspace.Create(uid, req.Name, req.Slug, req.Settings)
	if err != nil {
		code := response.CodeInternalError
		if errors.Is(err, service.ErrSlugTaken) {
			code = response.CodeConflict
		}
		ctx.JSON(http.StatusOK, response.Error(code, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(ws))
}

// GinHandleListWorkspaces 工作区列表
// @Summary 工作区列表
// @Description 列出当前用户加入的全部工作区
// @Tags 工作区
// @Produce json
// @Success 200 {object} response.Response{data=[]models.Workspace} "工作区列表"
// @Security BearerAuth
// @Router /workspaces [get]
func (e *ChatEngine) GinHandleListWorkspaces(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	workspaces, err := e.Workspace.ListForUser(uid)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(workspaces))
}

// GinHandleGetWorkspace 工作区详情
// @Summary 工作区详情
// @Tags 工作区
// @Produce json
// @Param workspace_id path uint64 true "工作区ID"
// @Success 200 {object} response.Response{data=models.Workspace} "查询成功"
// @Failure 403 {object} response.Response "非成员"
// @Security BearerAuth
// @Router /workspaces/{workspace_id} [get]
func (e *ChatEngine) GinHandleGetWorkspace(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	workspaceID, ok := paramUint(ctx, "workspace_id")
	if !ok {
		return
	}
	if !e.requireMember(ctx, workspaceID, uid) {
		return
	}
	ws, err := e.Workspace.Get(workspaceID)
	if err != nil {
		ctx.JSON(http.StatusNotFound, response.Error(response.CodeNotFound, "workspace not found"))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(ws))
}

// GinHandleInviteToWorkspace 邀请用户
// @Summary 邀请用户加入工作区
// @Description 成员邀请其他用户；被邀请人 notify 通道会收到 workspace.invite 事件
// @Tags 工作区
// @Accept json
// @Produce json
// @Param workspace_id path uint64 true "工作区ID"
// @Param req body InviteReq true "邀请信息"
// @Success 200 {object} response.Response{data=models.WorkspaceInvite} "邀请成功"
// @Failure 403 {object} response.Response "非成员"
// @Security BearerAuth
// @Router /workspaces/{workspace_id}/invites [post]
func (e *ChatEngine) GinHandleInviteToWorkspace(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	workspaceID, ok := paramUint(ctx, "workspace_id")
	if !ok {
		return
	}
	var req InviteReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}

	invite, err := e.Workspace.Invite(workspaceID, uid, req.InviteeUserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotMember):
			ctx.JSON(http.StatusForbidden, response.Error(response.CodePermissionDeny, err.Error()))
		case errors.Is(err, service.ErrAlreadyMember), errors.Is(err, service.ErrInviteExists):
			ctx.JSON(http.StatusOK, response.Error(response.CodeConflict, err.Error()))
		default:
			ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		}
		return
	}
	ctx.JSON(http.StatusOK, response.Success(invite))
}

// GinHandleListInvites 我的邀请列表
// @Summary 我的邀请列表
// @Description 列出发给当前用户的 pending 工作区邀请
// @Tags 工作区
// @Produce json
// @Success 200 {object} response.Response{data=[]models.WorkspaceInvite} "邀请列表"
// @Security BearerAuth
// @Router /workspaces/invites [get]
func (e *ChatEngine) GinHandleListInvites(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	invites, err := e.Workspace.ListInvitesForUser(uid)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(invites))
}

// GinHandleRespondInvite 处理邀请
// @Summary 接受/拒绝工作区邀请
// @Tags 工作区
// @Accept json
// @Produce json
// @Param invite_id path uint64 true "邀请ID"
// @Param req body RespondReq true "处理结果"
// @Success 200 {object} response.Response{data=models.WorkspaceInvite} "处理成功"
// @Failure 404 {object} response.Response "邀请不存在"
// @Security BearerAuth
// @Router /workspaces/invites/{invite_id} [post]
func (e *ChatEngine) GinHandleRespondInvite(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	inviteID, ok := paramUint(ctx, "invite_id")
	if !ok {
		return
	}
	var req RespondReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	invite, err := e.Workspace.RespondInvite(inviteID, uid, req.Accept)
	if err != nil {
		if errors.Is(err, service.ErrInviteNotFound) {
			ctx.JSON(http.StatusNotFound, response.Error(response.CodeNotFound, "invite not found"))
			return
		}
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(invite))
}
