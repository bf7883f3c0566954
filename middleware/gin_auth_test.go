package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/braumchat/braumchat/service"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *service.TokenService, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sqldb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = sqldb.Close() })
	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqldb, SkipInitializeWithVersion: true}), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}

	base := &service.Service{DB: db, TablePrefix: "bc_"}
	tokens := service.NewTokenService("test-secret", time.Minute, time.Hour)
	auth := service.NewAuthService(tokens, service.NewSessionService(base), service.NewUserService(base))

	r := gin.New()
	r.GET("/me", GinAuthMiddleware(auth, nil), func(c *gin.Context) {
		c.String(http.StatusOK, strconv.FormatUint(CurrentUserID(c), 10))
	})
	return r, tokens, mock
}

func TestGinAuthMiddleware_ValidToken(t *testing.T) {
	r, tokens, mock := newAuthRouter(t)

	tok, err := tokens.CreateAccessToken(7, "")
	if err != nil {
		t.Fatalf("CreateAccessToken: %v", err)
	}
	mock.ExpectQuery("SELECT (.+) FROM `bc_user`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "display_name", "is_active"}).
			AddRow(7, "a@b.c", "alice", true))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != "7" {
		t.Fatalf("expected user id 7, got %q", w.Body.String())
	}
}

func TestGinAuthMiddleware_MissingToken(t *testing.T) {
	r, _, _ := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestGinAuthMiddleware_RefreshTokenRejected(t *testing.T) {
	r, tokens, _ := newAuthRouter(t)

	tok, err := tokens.CreateRefreshToken(7, "sid-7")
	if err != nil {
		t.Fatalf("CreateRefreshToken: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/me?token="+tok, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
