package memory

import "github.com/rcliao/layered-memory/internal/model"

// UserResourceID is the stable resource id of a user, independent of guild
// and channel.
func UserResourceID(userID string) string {
	return "discord:user:" + userID
}

// ScopeResourceID returns the resource id holding memory for a scope, or ""
// when scopeID is empty.
func ScopeResourceID(scope model.ScopeType, scopeID string) string {
	if scopeID == "" {
		return ""
	}
	return "discord:" + string(scope) + ":" + scopeID
}

// ThreadKey derives the per-user conversation key for a message, so users
// sharing a channel keep separate conversation state.
func ThreadKey(msg Message) string {
	guild := msg.GuildID()
	if guild == "" {
		guild = "dm"
	}
	return "discord:" + guild + ":" + msg.ChannelID() + ":u:" + msg.AuthorID()
}
