package braumchat

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestClient(r *Registry, userID uint64) *Client {
	return newClient(r, nil, userID, fmt.Sprintf("user-%d", userID), "", time.Minute)
}

func recvOne(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatalf("no message received")
		return nil
	}
}

func TestRegistry_RegisterUnregister(t *testing.T) {
	r := NewRegistry()
	room := ChannelRoom(1, 2)

	a1 := newTestClient(r, 10)
	a2 := newTestClient(r, 10)
	b := newTestClient(r, 20)
	r.Register(room, a1)
	r.Register(room, a2)
	r.Register(room, b)

	if n := r.CountForUser(room, 10); n != 2 {
		t.Fatalf("expected 2 connections for user 10, got %d", n)
	}

	// 按连接摘除：同用户另一条连接不受影响
	r.Unregister(room, a1)
	if n := r.CountForUser(room, 10); n != 1 {
		t.Fatalf("expected 1 connection left, got %d", n)
	}

	// 重复摘除是幂等的
	r.Unregister(room, a1)
	r.Unregister(room, a2)
	r.Unregister(room, b)
	if users := r.UsersInRoom(room); len(users) != 0 {
		t.Fatalf("room should be empty, got %v", users)
	}
}

func TestRegistry_UsersInRoomDedup(t *testing.T) {
	r := NewRegistry()
	room := ThreadRoom(7)
	r.Register(room, newTestClient(r, 3))
	r.Register(room, newTestClient(r, 3))
	r.Register(room, newTestClient(r, 1))

	users := r.UsersInRoom(room)
	if len(users) != 2 || users[0] != 1 || users[1] != 3 {
		t.Fatalf("expected [1 3], got %v", users)
	}
}

func TestRegistry_Broadcast(t *testing.T) {
	r := NewRegistry()
	room := ChannelRoom(1, 1)
	a := newTestClient(r, 1)
	b := newTestClient(r, 2)
	r.Register(room, a)
	r.Register(room, b)

	r.Broadcast(room, []byte("hello"))

	if got := string(recvOne(t, a)); got != "hello" {
		t.Fatalf("a got %q", got)
	}
	if got := string(recvOne(t, b)); got != "hello" {
		t.Fatalf("b got %q", got)
	}
}

func TestRegistry_BroadcastDropsDeadClient(t *testing.T) {
	r := NewRegistry()
	room := ThreadRoom(1)
	dead := newTestClient(r, 1)
	alive := newTestClient(r, 2)
	r.Register(room, dead)
	r.Register(room, alive)

	// 塞满缓冲模拟消费不动的连接
	for i := 0; i < sendBuffer; i++ {
		dead.send <- []byte("x")
	}

	r.Broadcast(room, []byte("payload"))

	if got := string(recvOne(t, alive)); got != "payload" {
		t.Fatalf("alive got %q", got)
	}
	if n := r.CountForUser(room, 1); n != 0 {
		t.Fatalf("dead client should be removed, count=%d", n)
	}
	select {
	case <-dead.done:
	default:
		t.Fatalf("dead client should be closed")
	}

	// 摘除后的客户端再收广播直接失败，不会 panic
	if dead.enqueue([]byte("late")) {
		t.Fatalf("enqueue on closed client should fail")
	}
}

func TestRegistry_SendToUser(t *testing.T) {
	r := NewRegistry()
	c := newTestClient(r, 9)
	r.Register(NotifyRoom(9), c)

	r.SendToUser(9, []byte("ping"))
	if got := string(recvOne(t, c)); got != "ping" {
		t.Fatalf("got %q", got)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	room := ChannelRoom(5, 5)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(uid uint64) {
			defer wg.Done()
			c := newTestClient(r, uid)
			r.Register(room, c)
			r.Broadcast(room, []byte("m"))
			r.Unregister(room, c)
			c.close()
		}(uint64(i % 4))
	}
	wg.Wait()

	if users := r.UsersInRoom(room); len(users) != 0 {
		t.Fatalf("room should be empty, got %v", users)
	}
}
