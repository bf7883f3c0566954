package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	defaultOnlineTTL = 90 * time.Second
)

// PresenceService 维护两类在线状态：
// - 房间级：(scope, user) -> 连接计数 + 在线集合，进房 +1 / 离房 -1，过零即移出集合。
// - 全局级：online:{uid} 带 TTL 的在线标记（由心跳刷新），online_conns:{uid} 全局连接数。
//
// Redis Key 设计：
// - presence_counts:{scope} -> Hash(uid -> count)
// - presence:{scope}        -> Set(uid)
// - online:{uid}            -> "1" (String, TTL；TTL 必须大于心跳间隔，兜底进程崩溃)
// - online_conns:{uid}      -> 连接数 (String)
type PresenceService struct {
	rdb       *redis.Client
	onlineTTL time.Duration
}

func NewPresenceService(rdb *redis.Client, onlineTTL time.Duration) *PresenceService {
	if onlineTTL <= 0 {
		onlineTTL = defaultOnlineTTL
	}
	return &PresenceService{rdb: rdb, onlineTTL: onlineTTL}
}

// ChannelScope 频道房间的 presence scope。
func ChannelScope(workspaceID, channelID uint64) string {
	return fmt.Sprintf("w:%d:c:%d", workspaceID, channelID)
}

// ThreadScope 私信房间的 presence scope。
func ThreadScope(threadID uint64) string {
	return fmt.Sprintf("dm:%d", threadID)
}

// IsThreadScope 判断 scope 是否属于私信房间。
func IsThreadScope(scope string) bool {
	return strings.HasPrefix(scope, "dm:")
}

func (s *PresenceService) countKey(scope string) string {
	return "presence_counts:" + scope
}

func (s *PresenceService) setKey(scope string) string {
	return "presence:" + scope
}

func (s *PresenceService) onlineKey(userID uint64) string {
	return fmt.Sprintf("online:%d", userID)
}

func (s *PresenceService) connsKey(userID uint64) string {
	return fmt.Sprintf("online_conns:%d", userID)
}

func (s *PresenceService) ensure() error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}
	return nil
}

// AddUser 房间内用户连接数 +1，首个连接时加入在线集合。返回新计数。
func (s *PresenceService) AddUser(ctx context.Context, scope string, userID uint64) (int64, error) {
	if err := s.ensure(); err != nil {
		return 0, err
	}
	field := strconv.FormatUint(userID, 10)
	count, err := s.rdb.HIncrBy(ctx, s.countKey(scope), field, 1).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := s.rdb.SAdd(ctx, s.setKey(scope), field).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

// RemoveUser 房间内用户连接数 -1，过零时删除计数并移出在线集合。返回剩余计数（最小 0）。
func (s *PresenceService) RemoveUser(ctx context.Context, scope string, userID uint64) (int64, error) {
	if err := s.ensure(); err != nil {
		return 0, err
	}
	field := strconv.FormatUint(userID, 10)
	count, err := s.rdb.HIncrBy(ctx, s.countKey(scope), field, -1).Result()
	if err != nil {
		return 0, err
	}
	if count <= 0 {
		pipe := s.rdb.TxPipeline()
		pipe.HDel(ctx, s.countKey(scope), field)
		pipe.SRem(ctx, s.setKey(scope), field)
		if _, err := pipe.Exec(ctx); err != nil {
			return 0, err
		}
		count = 0
	}
	return count, nil
}

// ListUsers 房间内在线用户 ID（升序）。
func (s *PresenceService) ListUsers(ctx context.Context, scope string) ([]uint64, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	members, err := s.rdb.SMembers(ctx, s.setKey(scope)).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// MarkOnline 刷新全局在线标记（心跳每周期调用一次）。
func (s *PresenceService) MarkOnline(ctx context.Context, userID uint64) error {
	if err := s.ensure(); err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.onlineKey(userID), "1", s.onlineTTL).Err()
}

// IncrConnections 全局连接数 +1（建连时调用）。
func (s *PresenceService) IncrConnections(ctx context.Context, userID uint64) (int64, error) {
	if err := s.ensure(); err != nil {
		return 0, err
	}
	return s.rdb.Incr(ctx, s.connsKey(userID)).Result()
}

// DecrConnections 全局连接数 -1，过零时清掉连接数与在线标记。返回剩余连接数（最小 0）。
func (s *PresenceService) DecrConnections(ctx context.Context, userID uint64) (int64, error) {
	if err := s.ensure(); err != nil {
		return 0, err
	}
	count, err := s.rdb.Decr(ctx, s.connsKey(userID)).Result()
	if err != nil {
		return 0, err
	}
	if count <= 0 {
		pipe := s.rdb.TxPipeline()
		pipe.Del(ctx, s.connsKey(userID))
		pipe.Del(ctx, s.onlineKey(userID))
		if _, err := pipe.Exec(ctx); err != nil {
			return 0, err
		}
		count = 0
	}
	return count, nil
}

// IsOnline 查询单个用户是否全局在线。
func (s *PresenceService) IsOnline(ctx context.Context, userID uint64) (bool, error) {
	if err := s.ensure(); err != nil {
		return false, err
	}
	n, err := s.rdb.Exists(ctx, s.onlineKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetOnlineMap 批量查询在线状态（好友列表/用户搜索用）。
func (s *PresenceService) GetOnlineMap(ctx context.Context, userIDs []uint64) (map[uint64]bool, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	out := make(map[uint64]bool, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, s.onlineKey(id))
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		out[userIDs[i]] = v != nil
	}
	return out, nil
}
