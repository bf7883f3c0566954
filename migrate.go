package braumchat

import (
	model "github.com/braumchat/braumchat/models"
)

// AutoMigrate 建/迁移全部业务表（按外键依赖顺序）。
func (e *ChatEngine) AutoMigrate() error {
	return e.config.DB.AutoMigrate(
		&model.User{},
		&model.UserSession{},
		&model.Workspace{},
		&model.WorkspaceMember{},
		&model.WorkspaceInvite{},
		&model.Channel{},
		&model.Message{},
		&model.DirectMessageThread{},
		&model.DirectMessage{},
		&model.Friend{},
		&model.FriendRequest{},
	)
}
