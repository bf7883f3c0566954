package braumchat

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/braumchat/braumchat/logger"
	"github.com/braumchat/braumchat/middleware"
	"github.com/braumchat/braumchat/response"
	"github.com/braumchat/braumchat/service"
)

// -------------------- 认证（Auth）相关接口 --------------------

type RegisterReq struct {
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"display_name" binding:"required,min=2,max=32"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
}

type LoginReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshReq struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenPairResp 登录/刷新的响应体。
type TokenPairResp struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	User         interface{} `json:"user,omitempty"`
}

// allow 按规则限流；命中限制或限流器不可用时已写响应，返回 false。
func (e *ChatEngine) allow(ctx *gin.Context, key string, limit int, window time.Duration) bool {
	err := e.RateLimit.Allow(ctx.Request.Context(), key, service.RateLimitRule{Limit: limit, Window: window})
	if err == nil {
		return true
	}
	if errors.Is(err, service.ErrRateLimited) {
		ctx.JSON(http.StatusTooManyRequests, response.Error(response.CodeRateLimited, "too many requests"))
	} else {
		ctx.JSON(http.StatusServiceUnavailable, response.Error(response.CodeInternalError, "service unavailable"))
	}
	return false
}

// GinHandleRegister 用户注册
// @Summary 用户注册
// @Description 创建新用户账号：email + display_name + password
// @Tags 认证
// @Accept json
// @Produce json
// @Param req body RegisterReq true "注册信息"
// @Success 200 {object} response.Response{data=models.User} "注册成功"
// @Failure 400 {object} response.Response "请求错误"
// @Router /auth/register [post]
func (e *ChatEngine) GinHandleRegister(ctx *gin.Context) {
	var req RegisterReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	if !e.allow(ctx, "rl:register:ip:"+ctx.ClientIP(), e.config.RateLimits.RegisterPerHour, time.Hour) {
		return
	}

	user, err := e.User.Register(req.Email, req.DisplayName, req.Password)
	if err != nil {
		code := response.CodeInternalError
		if errors.Is(err, service.ErrEmailTaken) || errors.Is(err, service.ErrDisplayNameTaken) {
			code = response.CodeConflict
		}
		ctx.JSON(http.StatusOK, response.Error(code, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(user))
}

// GinHandleLogin 用户登录
// @Summary 用户登录
// @Description 邮箱+密码登录，创建登录会话并签发 access/refresh token
// @Tags 认证
// @Accept json
// @Produce json
// @Param req body LoginReq true "登录信息"
// @Success 200 {object} response.Response{data=TokenPairResp} "登录响应（token + 用户信息）"
// @Failure 401 {object} response.Response "认证失败"
// @Router /auth/login [post]
func (e *ChatEngine) GinHandleLogin(ctx *gin.Context) {
	var req LoginReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	// 双重限流：IP 维度防扫号，邮箱维度防定向爆破
	if !e.allow(ctx, "rl:login:ip:"+ctx.ClientIP(), e.config.RateLimits.LoginPerMinute, time.Minute) {
		return
	}
	if !e.allow(ctx, "rl:login:email:"+req.Email, e.config.RateLimits.LoginPerUserPer5m, 5*time.Minute) {
		return
	}

	user, err := e.User.Authenticate(req.Email, req.Password)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodePasswordError, "incorrect email or password"))
		return
	}

	sid := uuid.NewString()
	if _, err := e.Session.Create(user.ID, sid, ctx.Request.UserAgent(), ctx.ClientIP()); err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}

	access, err := e.Token.CreateAccessToken(user.ID, sid)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	refresh, err := e.Token.CreateRefreshToken(user.ID, sid)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, response.Success(TokenPairResp{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		User:         user,
	}))
}

// GinHandleRefresh 刷新 token
// @Summary 刷新 token
// @Description 用 refresh token 换新的 access/refresh token，旧会话注销、sid 轮换
// @Tags 认证
// @Accept json
// @Produce json
// @Param req body RefreshReq true "刷新请求"
// @Success 200 {object} response.Response{data=TokenPairResp} "新 token 对"
// @Failure 401 {object} response.Response "token 无效"
// @Router /auth/refresh [post]
func (e *ChatEngine) GinHandleRefresh(ctx *gin.Context) {
	var req RefreshReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	if !e.allow(ctx, "rl:refresh:ip:"+ctx.ClientIP(), e.config.RateLimits.RefreshPerMinute, time.Minute) {
		return
	}

	claims, err := e.Token.Decode(req.RefreshToken)
	if err != nil || claims.TokenType != service.TokenTypeRefresh || claims.SessionID == "" {
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "invalid refresh token"))
		return
	}
	uid, err := claims.UserID()
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "invalid refresh token"))
		return
	}

	// 会话轮换：旧 sid 作废，复用即失败
	newSID := uuid.NewString()
	if _, err := e.Session.Rotate(uid, claims.SessionID, newSID, ctx.Request.UserAgent(), ctx.ClientIP()); err != nil {
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "session revoked or expired"))
		return
	}

	access, err := e.Token.CreateAccessToken(uid, newSID)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	refresh, err := e.Token.CreateRefreshToken(uid, newSID)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, response.Success(TokenPairResp{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	}))
}

// GinHandleLogout 退出登录
// @Summary 退出登录
// @Description 注销当前 access token 所属的登录会话
// @Tags 认证
// @Produce json
// @Success 200 {object} response.Response "成功响应"
// @Security BearerAuth
// @Router /auth/logout [post]
func (e *ChatEngine) GinHandleLogout(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	v, _ := ctx.Get(middleware.ContextClaimsKey)
	claims, _ := v.(*service.Claims)
	if claims == nil || claims.SessionID == "" {
		// 无 sid 的 token 没有可注销的会话
		ctx.JSON(http.StatusOK, response.Success(nil))
		return
	}
	if _, err := e.Session.Revoke(uid, claims.SessionID); err != nil {
		logger.Warnf("logout revoke user=%d: %v", uid, err)
	}
	ctx.JSON(http.StatusOK, response.Success(nil))
}

// GinHandleListSessions 登录会话列表
// @Summary 登录会话列表
// @Description 列出当前用户全部未注销的登录会话
// @Tags 认证
// @Produce json
// @Success 200 {object} response.Response{data=[]models.UserSession} "会话列表"
// @Security BearerAuth
// @Router /auth/sessions [get]
func (e *ChatEngine) GinHandleListSessions(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	sessions, err := e.Session.ListActive(uid)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(sessions))
}

// GinHandleRevokeSession 注销指定会话
// @Summary 注销指定会话
// @Description 注销当前用户的某个登录会话（踢掉其它设备）
// @Tags 认证
// @Produce json
// @Param sid path string true "会话 ID"
// @Success 200 {object} response.Response "成功响应"
// @Failure 404 {object} response.Response "会话不存在"
// @Security BearerAuth
// @Router /auth/sessions/{sid} [delete]
func (e *ChatEngine) GinHandleRevokeSession(ctx *gin.Context) {
	uid := middleware.CurrentUserID(ctx)
	sid := ctx.Param("sid")
	if _, err := e.Session.Revoke(uid, sid); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			ctx.JSON(http.StatusNotFound, response.Error(response.CodeNotFound, "session not found"))
			return
		}
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(nil))
}
