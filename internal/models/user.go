package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role distinguishes visitors from staff and the reserved automated senders.
type Role string

const (
	RoleVisitor Role = "visitor"
	RoleAdmin   Role = "admin"
	RoleAgent   Role = "automated-agent"
	RoleSystem  Role = "system"
)

// IsStaff reports whether messages from this role skip the responder pipeline.
func (r Role) IsStaff() bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleSystem:
		return true
	}
	return false
}

// User представляє учасника чату: відвідувача, адміністратора або
// зарезервованого автоматичного відправника.
type User struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Email        string    `gorm:"size:255;index" json:"email,omitempty"`
	Role         Role      `gorm:"size:32;not null;default:visitor" json:"role"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	IPAddress    string    `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent    string    `gorm:"size:512" json:"user_agent,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate: хук GORM, який викликається перед створенням запису.
// Він генерує новий UUID, якщо ID ще не встановлено.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Role == "" {
		u.Role = RoleVisitor
	}
	return
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
