package service

import (
	"errors"
	"testing"
	"time"
)

func TestTokenService_AccessRoundTrip(t *testing.T) {
	svc := NewTokenService("secret", time.Minute, time.Hour)

	tok, err := svc.CreateAccessToken(42, "sid-1")
	if err != nil {
		t.Fatalf("CreateAccessToken: %v", err)
	}

	claims, err := svc.Decode(tok)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.TokenType != TokenTypeAccess {
		t.Fatalf("expected typ access, got %q", claims.TokenType)
	}
	if claims.SessionID != "sid-1" {
		t.Fatalf("expected sid-1, got %q", claims.SessionID)
	}
	uid, err := claims.UserID()
	if err != nil {
		t.Fatalf("UserID: %v", err)
	}
	if uid != 42 {
		t.Fatalf("expected uid 42, got %d", uid)
	}
}

func TestTokenService_RefreshCarriesType(t *testing.T) {
	svc := NewTokenService("secret", time.Minute, time.Hour)

	tok, err := svc.CreateRefreshToken(7, "sid-7")
	if err != nil {
		t.Fatalf("CreateRefreshToken: %v", err)
	}
	claims, err := svc.Decode(tok)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.TokenType != TokenTypeRefresh {
		t.Fatalf("expected typ refresh, got %q", claims.TokenType)
	}
}

func TestTokenService_RejectsWrongSecret(t *testing.T) {
	a := NewTokenService("secret-a", time.Minute, time.Hour)
	b := NewTokenService("secret-b", time.Minute, time.Hour)

	tok, err := a.CreateAccessToken(1, "")
	if err != nil {
		t.Fatalf("CreateAccessToken: %v", err)
	}
	if _, err := b.Decode(tok); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestTokenService_RejectsGarbage(t *testing.T) {
	svc := NewTokenService("secret", time.Minute, time.Hour)
	if _, err := svc.Decode("not.a.jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}
