package cons

// WS 下行事件类型（event type，对应 payload 外层的 type 字段）
const (
	EventMessage  = "message"   // 房间内新消息
	EventTyping   = "typing"    // 输入中状态
	EventRead     = "read"      // 已读回执（含已读水位）
	EventPresence = "presence"  // 房间在线状态变化（online/offline）
	EventDMUnread = "dm.unread" // 私信未读数增量（推到 notify 房间）
)

// notify 房间的业务通知事件
const (
	EventFriendRequest   = "friend_request"   // 收到好友申请
	EventFriendAccepted  = "friend_accepted"  // 好友申请被同意
	EventFriendDeclined  = "friend_declined"  // 好友申请被拒绝
	EventFriendDeleted   = "friend_deleted"   // 被删除好友
	EventWorkspaceInvite = "workspace_invite" // 收到工作区邀请
)

// 邀请/好友申请状态
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusDeclined = "declined"
)
