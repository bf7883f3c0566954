package braumchat

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 一次性挂载 SDK 的全部 HTTP/WS 路由。
// 也可以不用它，直接挑单个 GinHandle* / Serve*WS 自行组路由。
func (e *ChatEngine) RegisterRoutes(r gin.IRouter) {
	// 公开接口
	auth := r.Group("/auth")
	{
		auth.POST("/register", e.GinHandleRegister)
		auth.POST("/login", e.GinHandleLogin)
		auth.POST("/refresh", e.GinHandleRefresh)
	}

	authed := r.Group("", e.GinAuthMiddleware(nil))
	{
		authed.POST("/auth/logout", e.GinHandleLogout)
		authed.GET("/auth/sessions", e.GinHandleListSessions)
		authed.DELETE("/auth/sessions/:sid", e.GinHandleRevokeSession)

		authed.GET("/users/me", e.GinHandleGetMe)
		authed.GET("/users/search", e.GinHandleSearchUsers)
		authed.GET("/users/online", e.GinHandleOnlineStatus)
		authed.GET("/users/:user_id", e.GinHandleGetUserInfo)

		authed.POST("/workspaces", e.GinHandleCreateWorkspace)
		authed.GET("/workspaces", e.GinHandleListWorkspaces)
		authed.GET("/workspaces/invites", e.GinHandleListInvites)
		authed.POST("/workspaces/invites/:invite_id", e.GinHandleRespondInvite)
		authed.GET("/workspaces/:workspace_id", e.GinHandleGetWorkspace)
		authed.POST("/workspaces/:workspace_id/invites", e.GinHandleInviteToWorkspace)

		authed.POST("/workspaces/:workspace_id/channels", e.GinHandleCreateChannel)
		authed.GET("/workspaces/:workspace_id/channels", e.GinHandleListChannels)
		authed.GET("/workspaces/:workspace_id/channels/:channel_id", e.GinHandleGetChannel)
		authed.GET("/workspaces/:workspace_id/channels/:channel_id/messages", e.GinHandleListChannelMessages)
		authed.POST("/workspaces/:workspace_id/channels/:channel_id/messages", e.GinHandleCreateChannelMessage)
		authed.PUT("/workspaces/:workspace_id/channels/:channel_id/messages/:message_id", e.GinHandleUpdateChannelMessage)
		authed.DELETE("/workspaces/:workspace_id/channels/:channel_id/messages/:message_id", e.GinHandleDeleteChannelMessage)

		authed.POST("/workspaces/:workspace_id/dms", e.GinHandleOpenThread)
		authed.GET("/dms", e.GinHandleListThreads)
		authed.GET("/dms/:thread_id", e.GinHandleGetThread)
		authed.GET("/dms/:thread_id/messages", e.GinHandleListThreadMessages)
		authed.POST("/dms/:thread_id/messages", e.GinHandleCreateThreadMessage)
		authed.GET("/dms/:thread_id/read-status", e.GinHandleThreadReadStatus)
		authed.POST("/dms/:thread_id/read", e.GinHandleMarkThreadRead)

		authed.GET("/friends", e.GinHandleListFriends)
		authed.POST("/friends/requests", e.GinHandleSendFriendRequest)
		authed.GET("/friends/requests", e.GinHandleListFriendRequests)
		authed.POST("/friends/requests/:request_id", e.GinHandleRespondFriendRequest)
		authed.DELETE("/friends/:user_id", e.GinHandleRemoveFriend)
	}

	// WS 网关（鉴权在升级后做，不走中间件）
	ws := r.Group("/ws")
	{
		ws.GET("/notifications", e.ServeNotifyWS)
		ws.GET("/chat/:workspace_id/:channel_id", e.ServeChannelWS)
		ws.GET("/dm/:thread_id", e.ServeDMWS)
	}
}
