package braumchat

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/braumchat/braumchat/message"
	"github.com/braumchat/braumchat/models"
)

// newMockDB 同 service 包的 sqlmock 辅助：mysql dialector 只为稳定 SQL 风格。
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	sqldb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqldb, SkipInitializeWithVersion: true}), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		_ = sqldb.Close()
		t.Fatalf("gorm.Open: %v", err)
	}
	return db, mock, sqldb
}

func newWiredEngine(t *testing.T) (*ChatEngine, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, sqldb := newMockDB(t)
	t.Cleanup(func() { _ = sqldb.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	e := newEngine(&Config{
		DB:          db,
		RDB:         rdb,
		TablePrefix: "bc_",
		JWTSecret:   "test-secret",
		IdleTimeout: 2 * time.Second,
	})
	return e, mock
}

type envelope struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func decodeEvent(t *testing.T, raw []byte) envelope {
	t.Helper()
	var ev envelope
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return ev
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func testThread() *models.DirectMessageThread {
	return &models.DirectMessageThread{ID: 5, WorkspaceID: 1, User1ID: 1, User2ID: 2}
}

func TestHandleThreadFrame_MessageUnreadBypass(t *testing.T) {
	e, mock := newWiredEngine(t)
	thread := testThread()
	room := ThreadRoom(thread.ID)

	sender := newTestClient(e.Registry, 1)
	e.Registry.Register(room, sender)
	// 接收方不在线程房间，只挂在 notify 通道上
	recipient := newTestClient(e.Registry, 2)
	e.Registry.Register(NotifyRoom(2), recipient)

	mock.ExpectExec("INSERT INTO `bc_direct_message`").
		WillReturnResult(sqlmock.NewResult(10, 1))
	mock.ExpectQuery("SELECT (.+) FROM `bc_user`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "display_name"}).AddRow(1, "alice"))

	e.handleThreadFrame(&models.User{ID: 1}, thread, &message.Frame{
		Type:    message.FrameTypeMessage,
		Message: &message.MessageFrame{Content: "hi", ClientID: "c9"},
	})

	ev := decodeEvent(t, recvOne(t, sender))
	if ev.Type != "message" {
		t.Fatalf("expected message event, got %q", ev.Type)
	}
	if ev.Payload["id"].(float64) != 10 || ev.Payload["client_id"] != "c9" {
		t.Fatalf("unexpected payload: %v", ev.Payload)
	}

	// 不在房间的接收方走未读旁路
	unreadEv := decodeEvent(t, recvOne(t, recipient))
	if unreadEv.Type != "dm.unread" {
		t.Fatalf("expected dm.unread, got %q", unreadEv.Type)
	}
	if unreadEv.Payload["unread"].(float64) != 1 {
		t.Fatalf("expected unread 1, got %v", unreadEv.Payload)
	}
	if n, _ := e.Unread.GetUnread(context.Background(), 2, thread.ID); n != 1 {
		t.Fatalf("unread counter should be 1, got %d", n)
	}
}

func TestHandleThreadFrame_NoUnreadWhenRecipientPresent(t *testing.T) {
	e, mock := newWiredEngine(t)
	thread := testThread()
	room := ThreadRoom(thread.ID)

	sender := newTestClient(e.Registry, 1)
	recipient := newTestClient(e.Registry, 2)
	notify := newTestClient(e.Registry, 2)
	e.Registry.Register(room, sender)
	e.Registry.Register(room, recipient)
	e.Registry.Register(NotifyRoom(2), notify)

	mock.ExpectExec("INSERT INTO `bc_direct_message`").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery("SELECT (.+) FROM `bc_user`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "display_name"}).AddRow(1, "alice"))

	e.handleThreadFrame(&models.User{ID: 1}, thread, &message.Frame{
		Type:    message.FrameTypeMessage,
		Message: &message.MessageFrame{Content: "hi"},
	})

	if ev := decodeEvent(t, recvOne(t, recipient)); ev.Type != "message" {
		t.Fatalf("expected message event, got %q", ev.Type)
	}
	expectNothing(t, notify)
	if n, _ := e.Unread.GetUnread(context.Background(), 2, thread.ID); n != 0 {
		t.Fatalf("no unread expected, got %d", n)
	}
}

func TestHandleThreadFrame_ReadClearsUnread(t *testing.T) {
	e, _ := newWiredEngine(t)
	thread := testThread()
	room := ThreadRoom(thread.ID)
	ctx := context.Background()

	if _, err := e.Unread.IncrementUnread(ctx, 1, thread.ID, 3); err != nil {
		t.Fatalf("seed unread: %v", err)
	}

	reader := newTestClient(e.Registry, 1)
	peer := newTestClient(e.Registry, 2)
	e.Registry.Register(room, reader)
	e.Registry.Register(room, peer)

	e.handleThreadFrame(&models.User{ID: 1}, thread, &message.Frame{
		Type: message.FrameTypeRead,
		Read: &message.ReadFrame{LastReadMessageID: 42},
	})

	ev := decodeEvent(t, recvOne(t, peer))
	if ev.Type != "read" {
		t.Fatalf("expected read event, got %q", ev.Type)
	}
	if ev.Payload["last_read_message_id"].(float64) != 42 {
		t.Fatalf("unexpected watermark: %v", ev.Payload)
	}

	if n, _ := e.Unread.GetUnread(ctx, 1, thread.ID); n != 0 {
		t.Fatalf("unread should be cleared, got %d", n)
	}
	if v, _ := e.Unread.GetLastRead(ctx, 1, thread.ID); v != 42 {
		t.Fatalf("watermark should be 42, got %d", v)
	}
}

func TestHandleChannelFrame_Typing(t *testing.T) {
	e, _ := newWiredEngine(t)
	room := ChannelRoom(1, 3)

	a := newTestClient(e.Registry, 1)
	b := newTestClient(e.Registry, 2)
	e.Registry.Register(room, a)
	e.Registry.Register(room, b)

	e.handleChannelFrame(&models.User{ID: 1}, 1, 3, &message.Frame{
		Type:   message.FrameTypeTyping,
		Typing: &message.TypingFrame{},
	})

	ev := decodeEvent(t, recvOne(t, b))
	if ev.Type != "typing" {
		t.Fatalf("expected typing event, got %q", ev.Type)
	}
	if ev.Payload["is_typing"] != true || ev.Payload["user_id"].(float64) != 1 {
		t.Fatalf("unexpected payload: %v", ev.Payload)
	}
}

func TestHandleChannelFrame_PersistFailureDropsFrame(t *testing.T) {
	e, mock := newWiredEngine(t)
	room := ChannelRoom(1, 3)

	a := newTestClient(e.Registry, 1)
	e.Registry.Register(room, a)

	mock.ExpectExec("INSERT INTO `bc_message`").
		WillReturnError(sql.ErrConnDone)

	e.handleChannelFrame(&models.User{ID: 1}, 1, 3, &message.Frame{
		Type:    message.FrameTypeMessage,
		Message: &message.MessageFrame{Content: "hi"},
	})

	// 帧被丢弃：不广播，连接保留
	expectNothing(t, a)
	if n := e.Registry.CountForUser(room, 1); n != 1 {
		t.Fatalf("connection should survive persist failure, count=%d", n)
	}
}
