package models

import (
	"time"

	"github.com/lib/pq"
)

// KnowledgeDocument is the catalog entry of one seeded question/answer pair.
// The embedding itself lives in the vector store.
type KnowledgeDocument struct {
	ID        string         `gorm:"primaryKey;size:128" json:"id"`
	Question  string         `gorm:"type:text;not null" json:"question"`
	Answer    string         `gorm:"type:text;not null" json:"answer"`
	Category  string         `gorm:"size:64" json:"category"`
	Language  string         `gorm:"size:8" json:"language"`
	Tags      pq.StringArray `gorm:"type:text" json:"tags"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
