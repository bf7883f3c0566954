package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
)

// UnreadService 维护私信未读数与已读水位。
// Redis Key 设计：
// - dm_unread:user:{uid}:thread:{tid}    -> 未读数 (String)
// - dm_last_read:user:{uid}:thread:{tid} -> 已读水位 message_id (String)
type UnreadService struct {
	rdb *redis.Client
}

func NewUnreadService(rdb *redis.Client) *UnreadService {
	return &UnreadService{rdb: rdb}
}

// setMaxScript 原子取 max：并发乱序的已读回执不能把水位写小。
var setMaxScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local v = tonumber(ARGV[1])
if v > cur then
  redis.call('SET', KEYS[1], ARGV[1])
  return v
end
return cur
`)

func (s *UnreadService) unreadKey(userID, threadID uint64) string {
	return fmt.Sprintf("dm_unread:user:%d:thread:%d", userID, threadID)
}

func (s *UnreadService) lastReadKey(userID, threadID uint64) string {
	return fmt.Sprintf("dm_last_read:user:%d:thread:%d", userID, threadID)
}

func (s *UnreadService) ensure() error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}
	return nil
}

// IncrementUnread 未读数 +delta，返回新值。
func (s *UnreadService) IncrementUnread(ctx context.Context, userID, threadID uint64, delta int64) (int64, error) {
	if err := s.ensure(); err != nil {
		return 0, err
	}
	return s.rdb.IncrBy(ctx, s.unreadKey(userID, threadID), delta).Result()
}

// ClearUnread 未读数清零（直接删 key）。
func (s *UnreadService) ClearUnread(ctx context.Context, userID, threadID uint64) error {
	if err := s.ensure(); err != nil {
		return err
	}
	return s.rdb.Del(ctx, s.unreadKey(userID, threadID)).Err()
}

// GetUnread 读取未读数，key 不存在按 0。
func (s *UnreadService) GetUnread(ctx context.Context, userID, threadID uint64) (int64, error) {
	if err := s.ensure(); err != nil {
		return 0, err
	}
	val, err := s.rdb.Get(ctx, s.unreadKey(userID, threadID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, nil
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}

// GetUnreadMap 批量读取多个线程的未读数（线程列表用）。
func (s *UnreadService) GetUnreadMap(ctx context.Context, userID uint64, threadIDs []uint64) (map[uint64]int64, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	out := make(map[uint64]int64, len(threadIDs))
	if len(threadIDs) == 0 {
		return out, nil
	}
	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.StringCmd, 0, len(threadIDs))
	for _, tid := range threadIDs {
		cmds = append(cmds, pipe.Get(ctx, s.unreadKey(userID, tid)))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}
	for i, cmd := range cmds {
		val, err := cmd.Result()
		if err != nil {
			out[threadIDs[i]] = 0
			continue
		}
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil || n < 0 {
			n = 0
		}
		out[threadIDs[i]] = n
	}
	return out, nil
}

// SetLastRead 更新已读水位（单调递增，返回合并后的水位）。
func (s *UnreadService) SetLastRead(ctx context.Context, userID, threadID uint64, messageID uint64) (uint64, error) {
	if err := s.ensure(); err != nil {
		return 0, err
	}
	v, err := setMaxScript.Run(ctx, s.rdb, []string{s.lastReadKey(userID, threadID)}, messageID).Int64()
	if err != nil {
		return 0, err
	}
	return uint64(v), nil
}

// GetLastRead 读取已读水位，key 不存在按 0。
func (s *UnreadService) GetLastRead(ctx context.Context, userID, threadID uint64) (uint64, error) {
	if err := s.ensure(); err != nil {
		return 0, err
	}
	val, err := s.rdb.Get(ctx, s.lastReadKey(userID, threadID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}
