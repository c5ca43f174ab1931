package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConversationStatus string

const (
	StatusActive  ConversationStatus = "active"
	StatusPending ConversationStatus = "pending"
	StatusClosed  ConversationStatus = "closed"
)

func (s ConversationStatus) Valid() bool {
	switch s {
	case StatusActive, StatusPending, StatusClosed:
		return true
	}
	return false
}

// ResponseMode controls whether the relay runs a responder for visitor messages.
type ResponseMode string

const (
	ModeAutomated ResponseMode = "automated"
	ModeHuman     ResponseMode = "human"
)

func (m ResponseMode) Valid() bool {
	return m == ModeAutomated || m == ModeHuman
}

// Conversation is one visitor's support session.
type Conversation struct {
	ID        string             `gorm:"primaryKey;size:64" json:"id"`
	UserID    string             `gorm:"size:64;not null;index" json:"user_id"`
	Status    ConversationStatus `gorm:"size:16;not null;default:active" json:"status"`
	Mode      ResponseMode       `gorm:"size:16;not null;default:automated" json:"mode"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = StatusActive
	}
	if c.Mode == "" {
		c.Mode = ModeAutomated
	}
	return
}

// ConversationDetail is a conversation joined with its owning user.
type ConversationDetail struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	Status    ConversationStatus `json:"status"`
	Mode      ResponseMode       `json:"mode"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	UserName  string             `json:"user_name"`
	UserEmail string             `json:"user_email,omitempty"`
}

// ConversationSummary is a row of the admin conversation list.
type ConversationSummary struct {
	ConversationDetail
	MessageCount    int64      `json:"message_count"`
	LastMessageTime *time.Time `json:"last_message_time"`
}
