package models

import "time"

type MessageKind string

const (
	KindText   MessageKind = "text"
	KindSystem MessageKind = "system"
)

type DeliveryStatus string

const (
	DeliverySent DeliveryStatus = "sent"
	DeliveryRead DeliveryStatus = "read"
)

// Message is immutable once created except for Status.
type Message struct {
	ID             uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID string         `gorm:"size:64;not null;index" json:"conversation_id"`
	SenderID       string         `gorm:"size:64;not null" json:"sender_id"`
	Body           string         `gorm:"column:message;type:text;not null" json:"message"`
	Kind           MessageKind    `gorm:"column:message_type;size:16;not null;default:text" json:"message_type"`
	Status         DeliveryStatus `gorm:"size:16;not null;default:sent" json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
}

// MessageView is a message joined with its sender's display data.
type MessageView struct {
	ID             uint           `json:"id"`
	ConversationID string         `json:"conversation_id"`
	SenderID       string         `json:"sender_id"`
	Body           string         `gorm:"column:message" json:"message"`
	Kind           MessageKind    `gorm:"column:message_type" json:"message_type"`
	Status         DeliveryStatus `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	SenderName     string         `json:"sender_name"`
	SenderRole     Role           `json:"sender_role"`
}
