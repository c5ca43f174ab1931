package storage

import (
	"livechat/backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

func (s *Service) CreateConversationForVisitor(userID string) (*models.Conversation, error) {
	conv := &models.Conversation{
		ID:     uuid.New().String(),
		UserID: userID,
		Status: models.StatusActive,
		Mode:   models.ModeAutomated,
	}
	if err := s.DB.Create(conv).Error; err != nil {
		return nil, wrap("create conversation", err)
	}
	return conv, nil
}

func (s *Service) CreateConversationWithID(id, userID string, status models.ConversationStatus, mode models.ResponseMode) (*models.Conversation, error) {
	conv := &models.Conversation{ID: id, UserID: userID, Status: status, Mode: mode}
	if err := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(conv).Error; err != nil {
		return nil, wrap("create conversation with id", err)
	}

	// Повертаємо збережений стан: він міг існувати до виклику.
	var stored models.Conversation
	if err := s.DB.Where("id = ?", id).First(&stored).Error; err != nil {
		return nil, wrap("create conversation with id", err)
	}
	return &stored, nil
}

func (s *Service) GetConversation(id string) (*models.ConversationDetail, error) {
	var detail models.ConversationDetail
	res := s.DB.Table("conversations AS c").
		Select("c.id, c.user_id, c.status, c.mode, c.created_at, c.updated_at, COALESCE(u.name, '') AS user_name, COALESCE(u.email, '') AS user_email").
		Joins("LEFT JOIN users u ON u.id = c.user_id").
		Where("c.id = ?", id).
		Limit(1).
		Scan(&detail)
	if res.Error != nil {
		return nil, wrap("get conversation", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, wrap("get conversation", ErrNotFound)
	}
	return &detail, nil
}

// ListConversations returns every conversation with its message aggregates,
// most recently updated first.
func (s *Service) ListConversations() ([]models.ConversationSummary, error) {
	var out []models.ConversationSummary
	err := s.DB.Table("conversations AS c").
		Select(`c.id, c.user_id, c.status, c.mode, c.created_at, c.updated_at,
			COALESCE(u.name, '') AS user_name, COALESCE(u.email, '') AS user_email,
			COUNT(m.id) AS message_count, MAX(m.created_at) AS last_message_time`).
		Joins("LEFT JOIN users u ON u.id = c.user_id").
		Joins("LEFT JOIN messages m ON m.conversation_id = c.id").
		Group("c.id, c.user_id, c.status, c.mode, c.created_at, c.updated_at, u.name, u.email").
		Order("c.updated_at DESC").
		Scan(&out).Error
	if err != nil {
		return nil, wrap("list conversations", err)
	}
	return out, nil
}

func (s *Service) UpdateConversationStatus(id string, status models.ConversationStatus) error {
	return s.updateConversation("update conversation status", id, "status", status)
}

func (s *Service) UpdateConversationMode(id string, mode models.ResponseMode) error {
	return s.updateConversation("update conversation mode", id, "mode", mode)
}

func (s *Service) updateConversation(op, id, column string, value interface{}) error {
	// Updates також оновлює updated_at.
	res := s.DB.Model(&models.Conversation{}).Where("id = ?", id).Updates(map[string]interface{}{column: value})
	if res.Error != nil {
		return wrap(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap(op, ErrNotFound)
	}
	return nil
}
