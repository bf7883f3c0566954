package braumchat

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/braumchat/braumchat/middleware"
	"github.com/braumchat/braumchat/models"
	"github.com/braumchat/braumchat/response"
)

// -------------------- 用户（User）相关接口 --------------------

// UserWithPresence 用户信息 + 在线标记。
type UserWithPresence struct {
	models.User
	IsOnline bool `json:"is_online"`
}

func (e *ChatEngine) attachPresence(ctx *gin.Context, users []models.User) ([]UserWithPresence, error) {
	ids := make([]uint64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	online, err := e.Presence.GetOnlineMap(ctx.Request.Context(), ids)
	if err != nil {
		return nil, err
	}
	out := make([]UserWithPresence, 0, len(users))
	for _, u := range users {
		out = append(out, UserWithPresence{User: u, IsOnline: online[u.ID]})
	}
	return out, nil
}

// GinHandleGetMe 当前用户信息
// @Summary 当前用户信息
// @Tags 用户
// @Produce json
// @Success 200 {object} response.Response{data=models.User} "查询成功"
// @Security BearerAuth
// @Router /users/me [get]
func (e *ChatEngine) GinHandleGetMe(ctx *gin.Context) {
	v, ok := ctx.Get(middleware.ContextUserKey)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "not authenticated"))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(v))
}

// GinHandleGetUserInfo 获取用户信息
// @Summary 获取用户信息
// @Description 按 ID 查询用户详情（含在线标记）
// @Tags 用户
// @Produce json
// @Param user_id path uint64 true "用户ID"
// @Success 200 {object} response.Response{data=UserWithPresence} "查询成功"
// @Failure 404 {object} response.Response "用户不存在"
// @Security BearerAuth
// @Router /users/{user_id} [get]
func (e *ChatEngine) GinHandleGetUserInfo(ctx *gin.Context) {
	targetID, ok := paramUint(ctx, "user_id")
	if !ok {
		return
	}
	u, err := e.User.GetUser(targetID)
	if err != nil {
		ctx.JSON(http.StatusNotFound, response.Error(response.CodeUserNotFound, "user not found"))
		return
	}
	isOnline, err := e.Presence.IsOnline(ctx.Request.Context(), u.ID)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(UserWithPresence{User: *u, IsOnline: isOnline}))
}

// GinHandleSearchUsers 搜索用户
// @Summary 搜索用户
// @Description 按展示名/邮箱模糊搜索（含在线标记）
// @Tags 用户
// @Produce json
// @Param q query string true "搜索关键字"
// @Param limit query int false "返回条数"
// @Success 200 {object} response.Response{data=[]UserWithPresence} "用户列表"
// @Security BearerAuth
// @Router /users/search [get]
func (e *ChatEngine) GinHandleSearchUsers(ctx *gin.Context) {
	q := ctx.Query("q")
	if q == "" {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "q is required"))
		return
	}
	limit, _ := strconv.Atoi(ctx.Query("limit"))

	users, err := e.User.Search(q, limit)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	out, err := e.attachPresence(ctx, users)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(out))
}

// GinHandleOnlineStatus 批量查询在线状态
// @Summary 批量查询在线状态
// @Description 传入一批 user_id，返回 user_id -> 是否在线
// @Tags 用户
// @Produce json
// @Param ids query string true "逗号分隔的用户 ID 列表"
// @Success 200 {object} response.Response{data=map[string]bool} "在线状态表"
// @Security BearerAuth
// @Router /users/online [get]
func (e *ChatEngine) GinHandleOnlineStatus(ctx *gin.Context) {
	raw := strings.Split(ctx.Query("ids"), ",")
	ids := make([]uint64, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil || id == 0 {
			ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "invalid user_ids"))
			return
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "user_ids is required"))
		return
	}
	online, err := e.Presence.GetOnlineMap(ctx.Request.Context(), ids)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	out := make(map[string]bool, len(online))
	for id, v := range online {
		out[strconv.FormatUint(id, 10)] = v
	}
	ctx.JSON(http.StatusOK, response.Success(out))
}
