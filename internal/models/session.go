package models

import "time"

// Session is the durable presence row of one connection.
type Session struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id"` // connection id
	UserID       string    `gorm:"size:64;not null;index" json:"user_id"`
	IsOnline     bool      `gorm:"not null;default:false" json:"is_online"`
	LastActivity time.Time `json:"last_activity"`
}

type OnlineUser struct {
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	ConnectionID string    `json:"connection_id"`
	LastActivity time.Time `json:"last_activity"`
}
