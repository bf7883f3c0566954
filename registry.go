package braumchat

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/braumchat/braumchat/logger"
)

const (
	// Time 写入超时时间
	writeWait = 10 * time.Second

	// Maximum 对等端允许消息大小
	maxMessageSize = 4096

	// send 缓冲大小；打满视为对端消费不动，按发送失败处理
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for SDK
	},
}

// 房间 key 推导规则（每类房间一条确定性规则）
func NotifyRoom(userID uint64) string {
	return fmt.Sprintf("notify:%d", userID)
}

func ChannelRoom(workspaceID, channelID uint64) string {
	return fmt.Sprintf("chat:w:%d:c:%d", workspaceID, channelID)
}

func ThreadRoom(threadID uint64) string {
	return fmt.Sprintf("dm:%d", threadID)
}

// Client 代表某个具体 websocket 连接。
// 注册表只持有引用；底层 conn 的关闭由连接处理协程在所有退出路径上负责。
type Client struct {
	registry *Registry

	// 🔗链接
	conn *websocket.Conn

	// 消息缓冲区
	send chan []byte

	// done 关闭即通知 writePump 退出；close 只执行一次
	done      chan struct{}
	closeOnce sync.Once

	// 空闲窗口：窗口内无任何帧（含 ping/pong）则断开
	idle time.Duration

	// UserID 和用户关联
	UserID uint64

	DisplayName string
	AvatarURL   string
}

func newClient(registry *Registry, conn *websocket.Conn, userID uint64, displayName, avatarURL string, idle time.Duration) *Client {
	return &Client{
		registry:    registry,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		done:        make(chan struct{}),
		idle:        idle,
		UserID:      userID,
		DisplayName: displayName,
		AvatarURL:   avatarURL,
	}
}

// close 幂等地通知 writePump 退出（进而关闭底层 conn）。
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// enqueue 非阻塞投递；缓冲已满或连接已关闭返回 false。
// 不能在这里做网络 IO：广播方持有的是快照，慢消费者不能拖住其它 N-1 个连接。
func (c *Client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// readLoop 读取上行帧直到出错（断开/超时）。每个正常帧与 pong 都会重置空闲窗口。
func (c *Client) readLoop(onFrame func(raw []byte)) error {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.idle))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.idle))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.idle))
		onFrame(raw)
	}
}

// writePump 将消息从注册表写到具体的 websocket 连接。
func (c *Client) writePump() {
	pingPeriod := c.idle * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(msg)
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Registry 按房间维护活跃连接集合。
// 锁只保护集合变更，不覆盖网络发送；广播对快照进行，
// 并发的 Register/Unregister 最多造成新旧状态之一被观察到，不会崩溃。
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[*Client]struct{}),
	}
}

// Register 将连接加入房间。同一用户多连接（多设备/多标签页）合法，不去重。
func (r *Registry) Register(room string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.rooms[room]
	if set == nil {
		set = make(map[*Client]struct{})
		r.rooms[room] = set
	}
	set[c] = struct{}{}
}

// Unregister 按连接标识将其移出房间（同用户其余连接保留）。房间空了就删掉条目。
func (r *Registry) Unregister(room string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.rooms[room]
	if set == nil {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(r.rooms, room)
	}
}

// Broadcast 向房间内全部连接投递消息。
// 单个连接投递失败不影响其它连接，失败连接就地摘除（对半关闭 socket 自愈）。
func (r *Registry) Broadcast(room string, msg []byte) {
	if msg == nil {
		return
	}

	r.mu.RLock()
	targets := make([]*Client, 0, len(r.rooms[room]))
	for c := range r.rooms[room] {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	var failed []*Client
	for _, c := range targets {
		if !c.enqueue(msg) {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		logger.Warnf("broadcast: dropping dead connection user=%d room=%s", c.UserID, room)
		r.Unregister(room, c)
		c.close()
	}
}

// SendToUser 投递到用户的 notify 房间。
func (r *Registry) SendToUser(userID uint64, msg []byte) {
	r.Broadcast(NotifyRoom(userID), msg)
}

// CountForUser 房间内属于该用户的连接数。
// 为 0 表示“用户当前没在看这个房间”，未读计数据此判定。
func (r *Registry) CountForUser(room string, userID uint64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for c := range r.rooms[room] {
		if c.UserID == userID {
			n++
		}
	}
	return n
}

// UsersInRoom 房间内去重后的用户 ID 列表（升序）。
func (r *Registry) UsersInRoom(room string) []uint64 {
	r.mu.RLock()
	seen := make(map[uint64]struct{}, len(r.rooms[room]))
	for c := range r.rooms[room] {
		seen[c.UserID] = struct{}{}
	}
	r.mu.RUnlock()

	ids := make([]uint64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
