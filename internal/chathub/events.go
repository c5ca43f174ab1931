package chathub

import (
	"encoding/json"
	"time"

	"livechat/backend/internal/models"
)

// Inbound event names.
const (
	EventJoinChat               = "join_chat"
	EventSendMessage            = "send_message"
	EventTypingStart            = "typing_start"
	EventTypingStop             = "typing_stop"
	EventRequestHuman           = "request_human"
	EventAdminJoinConversation  = "admin_join_conversation"
	EventAdminLeaveConversation = "admin_leave_conversation"
	EventMessageRead            = "message_read"
)

// Outbound event names.
const (
	EventNewMessage          = "new_message"
	EventUserTyping          = "user_typing"
	EventUserStopTyping      = "user_stop_typing"
	EventAITyping            = "ai_typing"
	EventOnlineUsers         = "online_users"
	EventUserOnline          = "user_online"
	EventUserOffline         = "user_offline"
	EventModeChanged         = "mode_changed"
	EventHumanAgentNeeded    = "human_agent_needed"
	EventConversationUpdated = "conversation_updated"
	EventError               = "error"
)

// Handoff reasons.
const (
	ReasonVisitorRequest       = "visitor requested human agent"
	ReasonNoKnowledgeMatch     = "no knowledge-base match"
	ReasonKnowledgeError       = "knowledge responder error"
	ReasonResponderUnavailable = "automated responder unavailable"
)

// Event is the wire envelope of every outbound frame.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// envelope is the inbound counterpart of Event; Data is decoded per event.
type envelope struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

type MessagePayload struct {
	ID             uint                  `json:"id"`
	ConversationID string                `json:"conversation_id"`
	SenderID       string                `json:"sender_id"`
	SenderName     string                `json:"sender_name"`
	Message        string                `json:"message"`
	MessageType    models.MessageKind    `json:"message_type"`
	Status         models.DeliveryStatus `json:"status"`
	IsAdmin        bool                  `json:"is_admin"`
	IsAI           bool                  `json:"is_ai"`
	CreatedAt      time.Time             `json:"created_at"`
}

type TypingPayload struct {
	ConversationID string `json:"conversation_id"`
	UserName       string `json:"user_name,omitempty"`
}

type PresencePayload struct {
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type ModeChangedPayload struct {
	ConversationID string              `json:"conversation_id"`
	Mode           models.ResponseMode `json:"mode"`
	Reason         string              `json:"reason"`
}

type HumanAgentNeededPayload struct {
	ConversationID string `json:"conversation_id"`
	Reason         string `json:"reason"`
	Priority       string `json:"priority"`
}

type ConversationUpdatedPayload struct {
	ConversationID string                    `json:"conversation_id"`
	Status         models.ConversationStatus `json:"status,omitempty"`
	Mode           models.ResponseMode       `json:"mode,omitempty"`
}

type ErrorPayload struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}

// inbound payloads

type joinRequest struct {
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
	IsAdmin        bool   `json:"is_admin"`
	UserName       string `json:"user_name"`
	UserEmail      string `json:"user_email"`
}

type sendRequest struct {
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	Message        string `json:"message"`
	MessageType    string `json:"message_type"`
}

type typingRequest struct {
	ConversationID string `json:"conversation_id"`
	UserName       string `json:"user_name"`
}

type conversationRequest struct {
	ConversationID string `json:"conversation_id"`
}

type readRequest struct {
	MessageID uint `json:"message_id"`
}

func newMessagePayload(msg *models.Message, sender *models.User) MessagePayload {
	return MessagePayload{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		SenderName:     sender.Name,
		Message:        msg.Body,
		MessageType:    msg.Kind,
		Status:         msg.Status,
		IsAdmin:        sender.Role.IsStaff(),
		IsAI:           sender.Role == models.RoleAgent,
		CreatedAt:      msg.CreatedAt,
	}
}
