package service

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func sessionRows(id uint64, userID uint64, sid string, revokedAt *time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "session_id", "revoked_at"}).
		AddRow(id, userID, sid, revokedAt)
}

func TestSessionService_Create(t *testing.T) {
	db, mock, sqldb := newMockDB(t)
	defer sqldb.Close()
	svc := NewSessionService(newTestService(db))

	mock.ExpectExec("INSERT INTO `bc_user_session`").
		WillReturnResult(sqlmock.NewResult(1, 1))

	sess, err := svc.Create(1, "sid-abc", "ua", "127.0.0.1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.SessionID != "sid-abc" || sess.UserID != 1 {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSessionService_GetBySID_NotFound(t *testing.T) {
	db, mock, sqldb := newMockDB(t)
	defer sqldb.Close()
	svc := NewSessionService(newTestService(db))

	mock.ExpectQuery("SELECT (.+) FROM `bc_user_session`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := svc.GetBySID("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionService_Revoke_WrongUser(t *testing.T) {
	db, mock, sqldb := newMockDB(t)
	defer sqldb.Close()
	svc := NewSessionService(newTestService(db))

	mock.ExpectQuery("SELECT (.+) FROM `bc_user_session`").
		WillReturnRows(sessionRows(1, 99, "sid-x", nil))

	if _, err := svc.Revoke(1, "sid-x"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for foreign session, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSessionService_Rotate(t *testing.T) {
	db, mock, sqldb := newMockDB(t)
	defer sqldb.Close()
	svc := NewSessionService(newTestService(db))

	mock.ExpectQuery("SELECT (.+) FROM `bc_user_session`").
		WillReturnRows(sessionRows(1, 1, "sid-old", nil))
	mock.ExpectExec("UPDATE `bc_user_session`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `bc_user_session`").
		WillReturnResult(sqlmock.NewResult(2, 1))

	sess, err := svc.Rotate(1, "sid-old", "sid-new", "ua", "10.0.0.1")
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if sess.SessionID != "sid-new" {
		t.Fatalf("expected sid-new, got %q", sess.SessionID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSessionService_Rotate_RevokedOld(t *testing.T) {
	db, mock, sqldb := newMockDB(t)
	defer sqldb.Close()
	svc := NewSessionService(newTestService(db))

	revoked := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM `bc_user_session`").
		WillReturnRows(sessionRows(1, 1, "sid-old", &revoked))

	if _, err := svc.Rotate(1, "sid-old", "sid-new", "", ""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("rotating a revoked session should fail, got %v", err)
	}
}
