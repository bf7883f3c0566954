package service

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/braumchat/braumchat/models"
)

var (
	ErrMissingToken   = errors.New("missing token")
	ErrSessionRevoked = errors.New("session revoked")
)

// AuthService 提供鉴权核心能力，供 HTTP 中间件与 WS 网关复用：
// - 解析 token（Bearer 优先，其次 query）
// - 校验访问 token -> 用户（拒绝 refresh 类型）
// - token 带 sid 时校验会话归属与注销状态
type AuthService struct {
	Token   *TokenService
	Session *SessionService
	User    *UserService
}

func NewAuthService(token *TokenService, session *SessionService, user *UserService) *AuthService {
	return &AuthService{Token: token, Session: session, User: user}
}

// ExtractToken 从 HTTP 请求中提取 token：优先 Authorization: Bearer，其次 query: token。
func (a *AuthService) ExtractToken(r *http.Request) string {
	if r == nil {
		return ""
	}

	// Authorization: Bearer <token>
	ah := strings.TrimSpace(r.Header.Get("Authorization"))
	if ah != "" {
		parts := strings.SplitN(ah, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	// query: ?token=xxx
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// AuthenticateAccess 校验访问 token 并返回用户。
// 失败场景：token 缺失/非法/过期、typ 为 refresh、用户不存在、sid 会话注销或归属不符。
func (a *AuthService) AuthenticateAccess(token string) (*models.User, *Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil, ErrMissingToken
	}

	claims, err := a.Token.Decode(token)
	if err != nil {
		return nil, nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, nil, fmt.Errorf("%w: got %q", ErrWrongTokenUse, claims.TokenType)
	}

	uid, err := claims.UserID()
	if err != nil {
		return nil, nil, err
	}
	user, err := a.User.GetUser(uid)
	if err != nil {
		return nil, nil, err
	}

	// sid 为可选 claim；带上就必须命中未注销的同用户会话
	if claims.SessionID != "" {
		sess, err := a.Session.GetBySID(claims.SessionID)
		if err != nil {
			return nil, nil, err
		}
		if sess.UserID != user.ID || sess.RevokedAt != nil {
			return nil, nil, ErrSessionRevoked
		}
	}

	return user, claims, nil
}

// AuthenticateRequest 从请求里抽 token 并按访问 token 鉴权。
func (a *AuthService) AuthenticateRequest(r *http.Request) (*models.User, *Claims, error) {
	return a.AuthenticateAccess(a.ExtractToken(r))
}
