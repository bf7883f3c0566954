package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/braumchat/braumchat/response"
	"github.com/braumchat/braumchat/service"
)

const (
	// ContextUserIDKey gin context 里保存 user id 的 key
	ContextUserIDKey = "user_id"
	ContextUserKey   = "user"
	ContextClaimsKey = "claims"
)

// AuthOptions 可选配置。
type AuthOptions struct {
	// HeaderKey 默认 Authorization
	HeaderKey string
	// QueryKey 默认 token
	QueryKey string
	// UserIDKey 默认 user_id
	UserIDKey string
	// UserKey 默认 user
	UserKey string
	// ClaimsKey 默认 claims
	ClaimsKey string
}

func (o *AuthOptions) withDefaults() AuthOptions {
	if o == nil {
		return AuthOptions{
			HeaderKey: "Authorization",
			QueryKey:  "token",
			UserIDKey: ContextUserIDKey,
			UserKey:   ContextUserKey,
			ClaimsKey: ContextClaimsKey,
		}
	}
	out := *o
	if out.HeaderKey == "" {
		out.HeaderKey = "Authorization"
	}
	if out.QueryKey == "" {
		out.QueryKey = "token"
	}
	if out.UserIDKey == "" {
		out.UserIDKey = ContextUserIDKey
	}
	if out.UserKey == "" {
		out.UserKey = ContextUserKey
	}
	if out.ClaimsKey == "" {
		out.ClaimsKey = ContextClaimsKey
	}
	return out
}

/*
	GinAuthMiddleware Gin 鉴权中间件：

- 优先从 Authorization: Bearer <token> 读取
- 如果没有，再从 query 参数读取（默认 token=xxx）
- 校验访问 token -> 用户（拒绝 refresh；sid 会话必须未注销），成功后写入 gin.Context

使用：router.Use(middleware.GinAuthMiddleware(authService, nil))
*/
func GinAuthMiddleware(auth *service.AuthService, opt *AuthOptions) gin.HandlerFunc {
	cfg := opt.withDefaults()

	return func(c *gin.Context) {
		if auth == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
				Code: response.CodeInternalError,
				Msg:  "auth service is nil",
			})
			return
		}

		// 1) header bearer
		token := ""
		ah := strings.TrimSpace(c.GetHeader(cfg.HeaderKey))
		if ah != "" {
			parts := strings.SplitN(ah, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				token = strings.TrimSpace(parts[1])
			}
		}

		// 2) query fallback
		if token == "" {
			token = strings.TrimSpace(c.Query(cfg.QueryKey))
		}

		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Response{
				Code: response.CodeTokenInvalid,
				Msg:  "missing token",
			})
			return
		}

		user, claims, err := auth.AuthenticateAccess(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Response{
				Code: response.CodeTokenInvalid,
				Msg:  "invalid or expired token",
			})
			return
		}

		// 会话活跃时间 best-effort 刷新，失败不拦截请求
		if claims.SessionID != "" {
			_ = auth.Session.Touch(claims.SessionID)
		}

		c.Set(cfg.UserIDKey, user.ID)
		c.Set(cfg.UserKey, user)
		c.Set(cfg.ClaimsKey, claims)
		c.Next()
	}
}

// CurrentUserID 从 gin.Context 取鉴权后的用户 ID（未鉴权返回 0）。
func CurrentUserID(c *gin.Context) uint64 {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		return 0
	}
	id, _ := v.(uint64)
	return id
}
