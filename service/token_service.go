package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token 类型（typ claim）
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

var (
	ErrTokenInvalid  = errors.New("token invalid")
	ErrWrongTokenUse = errors.New("wrong token type")
)

// Claims 访问/刷新 token 的载荷。
// sub 为用户 ID，sid 为登录会话 ID（刷新 token 必带，访问 token 可带）。
type Claims struct {
	SessionID string `json:"sid,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// UserID 解析 sub 为用户 ID。
func (c *Claims) UserID() (uint64, error) {
	uid, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || uid == 0 {
		return 0, fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}
	return uid, nil
}

// TokenService 负责 JWT 的签发与解析（HS256）。
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	return &TokenService{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func (s *TokenService) sign(userID uint64, sid, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		SessionID: sid,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// CreateAccessToken 签发访问 token。
func (s *TokenService) CreateAccessToken(userID uint64, sid string) (string, error) {
	return s.sign(userID, sid, TokenTypeAccess, s.accessTTL)
}

// CreateRefreshToken 签发刷新 token（必须携带 sid）。
func (s *TokenService) CreateRefreshToken(userID uint64, sid string) (string, error) {
	return s.sign(userID, sid, TokenTypeRefresh, s.refreshTTL)
}

// Decode 解析并校验 token（签名、过期）。不校验 typ，由调用方按用途检查。
func (s *TokenService) Decode(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.TokenType == "" {
		return nil, fmt.Errorf("%w: missing typ", ErrTokenInvalid)
	}
	return claims, nil
}
