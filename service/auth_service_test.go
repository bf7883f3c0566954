package service

import (
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestAuthService_ExtractToken_BearerFirst(t *testing.T) {
	a := NewAuthService(nil, nil, nil)

	req := &http.Request{Header: make(http.Header), URL: &url.URL{RawQuery: "token=q"}}
	req.Header.Set("Authorization", "Bearer headerToken")

	got := a.ExtractToken(req)
	if got != "headerToken" {
		t.Fatalf("expected headerToken, got %q", got)
	}
}

func TestAuthService_ExtractToken_QueryFallback(t *testing.T) {
	a := NewAuthService(nil, nil, nil)

	u, _ := url.Parse("http://example.com/path?token=queryToken")
	req := &http.Request{Header: make(http.Header), URL: u}

	got := a.ExtractToken(req)
	if got != "queryToken" {
		t.Fatalf("expected queryToken, got %q", got)
	}
}

func TestAuthService_RejectsRefreshToken(t *testing.T) {
	tokens := NewTokenService("secret", time.Minute, time.Hour)
	a := NewAuthService(tokens, nil, nil)

	tok, err := tokens.CreateRefreshToken(1, "sid-1")
	if err != nil {
		t.Fatalf("CreateRefreshToken: %v", err)
	}
	if _, _, err := a.AuthenticateAccess(tok); !errors.Is(err, ErrWrongTokenUse) {
		t.Fatalf("expected ErrWrongTokenUse, got %v", err)
	}
}

func TestAuthService_MissingToken(t *testing.T) {
	a := NewAuthService(NewTokenService("secret", 0, 0), nil, nil)
	if _, _, err := a.AuthenticateAccess("  "); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestAuthService_RevokedSession(t *testing.T) {
	db, mock, sqldb := newMockDB(t)
	defer sqldb.Close()
	base := newTestService(db)

	tokens := NewTokenService("secret", time.Minute, time.Hour)
	a := NewAuthService(tokens, NewSessionService(base), NewUserService(base))

	tok, err := tokens.CreateAccessToken(1, "sid-1")
	if err != nil {
		t.Fatalf("CreateAccessToken: %v", err)
	}

	// 先查用户，再查会话（已注销）
	mock.ExpectQuery("SELECT (.+) FROM `bc_user`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "display_name", "is_active"}).
			AddRow(1, "a@b.c", "alice", true))
	revoked := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM `bc_user_session`").
		WillReturnRows(sessionRows(1, 1, "sid-1", &revoked))

	if _, _, err := a.AuthenticateAccess(tok); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAuthService_HappyPathWithoutSID(t *testing.T) {
	db, mock, sqldb := newMockDB(t)
	defer sqldb.Close()
	base := newTestService(db)

	tokens := NewTokenService("secret", time.Minute, time.Hour)
	a := NewAuthService(tokens, NewSessionService(base), NewUserService(base))

	tok, err := tokens.CreateAccessToken(5, "")
	if err != nil {
		t.Fatalf("CreateAccessToken: %v", err)
	}

	mock.ExpectQuery("SELECT (.+) FROM `bc_user`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "display_name", "is_active"}).
			AddRow(5, "e@f.g", "eve", true))

	user, claims, err := a.AuthenticateAccess(tok)
	if err != nil {
		t.Fatalf("AuthenticateAccess: %v", err)
	}
	if user.ID != 5 || claims.SessionID != "" {
		t.Fatalf("unexpected result: user=%+v claims=%+v", user, claims)
	}
}
