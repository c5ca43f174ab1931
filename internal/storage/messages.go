package storage

import (
	"time"

	"livechat/backend/internal/models"

	"gorm.io/gorm"
)

const messageViewColumns = `m.id, m.conversation_id, m.sender_id, m.message, m.message_type, m.status, m.created_at,
	COALESCE(u.name, '') AS sender_name, COALESCE(u.role, '') AS sender_role`

// CreateMessage зберігає повідомлення та оновлює updated_at розмови в одній транзакції.
func (s *Service) CreateMessage(msg *models.Message) error {
	if msg.Kind == "" {
		msg.Kind = models.KindText
	}
	if msg.Status == "" {
		msg.Status = models.DeliverySent
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Conversation{}).Where("id = ?", msg.ConversationID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", msg.ConversationID).
			UpdateColumn("updated_at", time.Now()).Error
	})
	return wrap("create message", err)
}

func (s *Service) ListMessages(conversationID string, limit, offset int) ([]models.MessageView, error) {
	var out []models.MessageView
	err := s.messageQuery(conversationID).
		Order("m.id ASC").
		Limit(limit).
		Offset(offset).
		Scan(&out).Error
	if err != nil {
		return nil, wrap("list messages", err)
	}
	return out, nil
}

func (s *Service) ListRecentMessages(conversationID string, n int) ([]models.MessageView, error) {
	var out []models.MessageView
	err := s.messageQuery(conversationID).
		Order("m.id DESC").
		Limit(n).
		Scan(&out).Error
	if err != nil {
		return nil, wrap("list recent messages", err)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Service) messageQuery(conversationID string) *gorm.DB {
	return s.DB.Table("messages AS m").
		Select(messageViewColumns).
		Joins("LEFT JOIN users u ON u.id = m.sender_id").
		Where("m.conversation_id = ?", conversationID)
}

func (s *Service) UpdateMessageStatus(id uint, status models.DeliveryStatus) error {
	res := s.DB.Model(&models.Message{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return wrap("update message status", res.Error)
	}
	if res.RowsAffected == 0 {
		// MySQL reports 0 affected rows when the value is unchanged.
		var count int64
		if err := s.DB.Model(&models.Message{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return wrap("update message status", err)
		}
		if count == 0 {
			return wrap("update message status", ErrNotFound)
		}
	}
	return nil
}
