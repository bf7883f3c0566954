package service

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"
)

func TestUserService_Register(t *testing.T) {
	db, mock, sqldb := newMockDB(t)
	defer sqldb.Close()
	svc := NewUserService(newTestService(db))

	mock.ExpectQuery("SELECT count(.+) FROM `bc_user`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT count(.+) FROM `bc_user`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO `bc_user`").
		WillReturnResult(sqlmock.NewResult(1, 1))

	user, err := svc.Register("Alice@Example.com", "alice", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("email should be normalized, got %q", user.Email)
	}
	if user.HashedPassword == "password123" || user.HashedPassword == "" {
		t.Fatalf("password must be hashed")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUserService_Register_EmailTaken(t *testing.T) {
	db, mock, sqldb := newMockDB(t)
	defer sqldb.Close()
	svc := NewUserService(newTestService(db))

	mock.ExpectQuery("SELECT count(.+) FROM `bc_user`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	if _, err := svc.Register("a@b.c", "alice", "password123"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUserService_Authenticate(t *testing.T) {
	db, mock, sqldb := newMockDB(t)
	defer sqldb.Close()
	svc := NewUserService(newTestService(db))

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "email", "hashed_password", "is_active"}).
			AddRow(1, "a@b.c", string(hash), true)
	}

	mock.ExpectQuery("SELECT (.+) FROM `bc_user`").WillReturnRows(rows())
	user, err := svc.Authenticate("a@b.c", "correct-horse")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.ID != 1 {
		t.Fatalf("unexpected user: %+v", user)
	}

	mock.ExpectQuery("SELECT (.+) FROM `bc_user`").WillReturnRows(rows())
	if _, err := svc.Authenticate("a@b.c", "wrong"); !errors.Is(err, ErrWrongCredentials) {
		t.Fatalf("expected ErrWrongCredentials, got %v", err)
	}
}

func TestUserService_Authenticate_UnknownEmail(t *testing.T) {
	db, mock, sqldb := newMockDB(t)
	defer sqldb.Close()
	svc := NewUserService(newTestService(db))

	mock.ExpectQuery("SELECT (.+) FROM `bc_user`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	// 不存在的邮箱和密码错误返回同一个错误，避免账号枚举
	if _, err := svc.Authenticate("ghost@b.c", "whatever"); !errors.Is(err, ErrWrongCredentials) {
		t.Fatalf("expected ErrWrongCredentials, got %v", err)
	}
}
