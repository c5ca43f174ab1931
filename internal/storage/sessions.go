package storage

import (
	"errors"
	"time"

	"livechat/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm/clause"
)

func (s *Service) UpsertSession(session *models.Session) error {
	if session.LastActivity.IsZero() {
		session.LastActivity = time.Now()
	}
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "is_online", "last_activity"}),
	}).Create(session).Error
	return wrap("upsert session", err)
}

// ResetSessions marks every session offline; presence is rebuilt from live connections.
func (s *Service) ResetSessions() error {
	err := s.DB.Model(&models.Session{}).Where("is_online = ?", true).Update("is_online", false).Error
	return wrap("reset sessions", err)
}

func (s *Service) ListOnlineUsers() ([]models.OnlineUser, error) {
	var out []models.OnlineUser
	err := s.DB.Table("sessions AS s").
		Select("u.id AS user_id, u.name, u.email, s.id AS connection_id, s.last_activity").
		Joins("JOIN users u ON u.id = s.user_id").
		Where("s.is_online = ? AND u.role = ?", true, models.RoleVisitor).
		Order("s.last_activity DESC").
		Scan(&out).Error
	if err != nil {
		return nil, wrap("list online users", err)
	}
	return out, nil
}

// RevokeToken зберігає відкликаний токен у Redis до закінчення його терміну дії.
func (s *Service) RevokeToken(tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if s.Redis == nil {
		s.mu.Lock()
		s.revoked[tokenID] = time.Now().Add(ttl)
		s.mu.Unlock()
		return nil
	}
	return wrap("revoke token", s.Redis.Set(s.Ctx, "revoked:"+tokenID, "1", ttl).Err())
}

func (s *Service) IsTokenRevoked(tokenID string) (bool, error) {
	if s.Redis == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		exp, ok := s.revoked[tokenID]
		if ok && time.Now().After(exp) {
			delete(s.revoked, tokenID)
			return false, nil
		}
		return ok, nil
	}

	_, err := s.Redis.Get(s.Ctx, "revoked:"+tokenID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, wrap("check revoked token", err)
	}
	return true, nil
}
