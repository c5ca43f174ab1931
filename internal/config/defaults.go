package config

import "time"

const (
	// Reserved senders, provisioned on first use.
	AgentUserID  = "automated-agent"
	SystemUserID = "system"

	DefaultAdminID = "admin_1"

	// Broadcast groups
	AdminRoom              = "admin_room"
	ConversationRoomPrefix = "conversation_"

	// Relay
	ClientSendBuffer    = 256
	DefaultHistoryLimit = 10
	DefaultPageLimit    = 50
	MaxPageLimit        = 500

	// Knowledge base
	DefaultRAGThreshold = 0.8
	DefaultRAGTopK      = 3

	// Text generation
	DefaultTemperature      = 0.7
	DefaultMaxTokens        = 500
	DefaultResponderTimeout = 30 * time.Second

	SessionCookieName = "livechat_session"
	DefaultSessionTTL = 24 * time.Hour
)

// ConversationRoom returns the broadcast group name for a conversation.
func ConversationRoom(conversationID string) string {
	return ConversationRoomPrefix + conversationID
}
