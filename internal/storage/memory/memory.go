// Package memory is an in-process storage.Storage used for development
// (STORAGE_DRIVER=memory) and tests. Nothing survives a restart.
package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"livechat/backend/internal/models"
	"livechat/backend/internal/storage"

	"github.com/google/uuid"
)

type Store struct {
	mu            sync.RWMutex
	users         map[string]models.User
	conversations map[string]models.Conversation
	messages      []models.Message
	sessions      map[string]models.Session
	revoked       map[string]time.Time
	knowledge     map[string]models.KnowledgeDocument
	nextMessageID uint

	now func() time.Time
}

var _ storage.Storage = (*Store)(nil)

func New() *Store {
	return &Store{
		users:         make(map[string]models.User),
		conversations: make(map[string]models.Conversation),
		sessions:      make(map[string]models.Session),
		revoked:       make(map[string]time.Time),
		knowledge:     make(map[string]models.KnowledgeDocument),
		now:           time.Now,
	}
}

func notFound(op string) error {
	return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
}

func (s *Store) CreateUser(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := user.BeforeCreate(nil); err != nil {
		return err
	}
	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("create user: %w: duplicate id %s", storage.ErrStorage, user.ID)
	}
	s.insertUserLocked(user)
	return nil
}

func (s *Store) CreateUserIfNotExists(user *models.User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := user.BeforeCreate(nil); err != nil {
		return false, err
	}
	if _, ok := s.users[user.ID]; ok {
		return false, nil
	}
	s.insertUserLocked(user)
	return true, nil
}

func (s *Store) insertUserLocked(user *models.User) {
	now := s.now()
	user.CreatedAt, user.UpdatedAt = now, now
	s.users[user.ID] = *user
}

func (s *Store) GetUserByID(id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, notFound("get user")
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *models.User
	for _, u := range s.users {
		if u.Email != email {
			continue
		}
		u := u
		if found == nil || (u.IsAdmin() && !found.IsAdmin()) {
			found = &u
		}
	}
	if found == nil {
		return nil, notFound("get user by email")
	}
	return found, nil
}

func (s *Store) UpdateUser(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[user.ID]
	if !ok {
		return notFound("update user")
	}
	u.Name, u.Email, u.PasswordHash, u.Role = user.Name, user.Email, user.PasswordHash, user.Role
	u.UpdatedAt = s.now()
	s.users[user.ID] = u
	return nil
}

func (s *Store) HasAdmin() (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.IsAdmin() {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CreateConversationForVisitor(userID string) (*models.Conversation, error) {
	return s.CreateConversationWithID(uuid.New().String(), userID, models.StatusActive, models.ModeAutomated)
}

func (s *Store) CreateConversationWithID(id, userID string, status models.ConversationStatus, mode models.ResponseMode) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.conversations[id]; ok {
		return &c, nil
	}
	conv := models.Conversation{ID: id, UserID: userID, Status: status, Mode: mode}
	if err := conv.BeforeCreate(nil); err != nil {
		return nil, err
	}
	now := s.now()
	conv.CreatedAt, conv.UpdatedAt = now, now
	s.conversations[conv.ID] = conv
	return &conv, nil
}

func (s *Store) GetConversation(id string) (*models.ConversationDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, notFound("get conversation")
	}
	d := s.detailLocked(c)
	return &d, nil
}

func (s *Store) detailLocked(c models.Conversation) models.ConversationDetail {
	u := s.users[c.UserID]
	return models.ConversationDetail{
		ID:        c.ID,
		UserID:    c.UserID,
		Status:    c.Status,
		Mode:      c.Mode,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		UserName:  u.Name,
		UserEmail: u.Email,
	}
}

func (s *Store) ListConversations() ([]models.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ConversationSummary, 0, len(s.conversations))
	for _, c := range s.conversations {
		sum := models.ConversationSummary{ConversationDetail: s.detailLocked(c)}
		for _, m := range s.messages {
			if m.ConversationID != c.ID {
				continue
			}
			sum.MessageCount++
			if sum.LastMessageTime == nil || m.CreatedAt.After(*sum.LastMessageTime) {
				t := m.CreatedAt
				sum.LastMessageTime = &t
			}
		}
		out = append(out, sum)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *Store) UpdateConversationStatus(id string, status models.ConversationStatus) error {
	return s.updateConversation("update conversation status", id, func(c *models.Conversation) { c.Status = status })
}

func (s *Store) UpdateConversationMode(id string, mode models.ResponseMode) error {
	return s.updateConversation("update conversation mode", id, func(c *models.Conversation) { c.Mode = mode })
}

func (s *Store) updateConversation(op, id string, apply func(*models.Conversation)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return notFound(op)
	}
	apply(&c)
	c.UpdatedAt = s.now()
	s.conversations[id] = c
	return nil
}

func (s *Store) CreateMessage(msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[msg.ConversationID]
	if !ok {
		return notFound("create message")
	}
	if msg.Kind == "" {
		msg.Kind = models.KindText
	}
	if msg.Status == "" {
		msg.Status = models.DeliverySent
	}
	s.nextMessageID++
	msg.ID = s.nextMessageID
	msg.CreatedAt = s.now()
	s.messages = append(s.messages, *msg)

	c.UpdatedAt = msg.CreatedAt
	s.conversations[c.ID] = c
	return nil
}

func (s *Store) ListMessages(conversationID string, limit, offset int) ([]models.MessageView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.viewsLocked(conversationID)
	if offset >= len(all) {
		return []models.MessageView{}, nil
	}
	all = all[offset:]
	if limit >= 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *Store) ListRecentMessages(conversationID string, n int) ([]models.MessageView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.viewsLocked(conversationID)
	if n >= 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}

func (s *Store) viewsLocked(conversationID string) []models.MessageView {
	out := []models.MessageView{}
	for _, m := range s.messages {
		if m.ConversationID != conversationID {
			continue
		}
		u := s.users[m.SenderID]
		out = append(out, models.MessageView{
			ID:             m.ID,
			ConversationID: m.ConversationID,
			SenderID:       m.SenderID,
			Body:           m.Body,
			Kind:           m.Kind,
			Status:         m.Status,
			CreatedAt:      m.CreatedAt,
			SenderName:     u.Name,
			SenderRole:     u.Role,
		})
	}
	return out
}

func (s *Store) UpdateMessageStatus(id uint, status models.DeliveryStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].Status = status
			return nil
		}
	}
	return notFound("update message status")
}

func (s *Store) UpsertSession(session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.LastActivity.IsZero() {
		session.LastActivity = s.now()
	}
	s.sessions[session.ID] = *session
	return nil
}

func (s *Store) ResetSessions() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.sessions {
		sess.IsOnline = false
		s.sessions[id] = sess
	}
	return nil
}

func (s *Store) ListOnlineUsers() ([]models.OnlineUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.OnlineUser{}
	for _, sess := range s.sessions {
		if !sess.IsOnline {
			continue
		}
		u, ok := s.users[sess.UserID]
		if !ok || u.Role != models.RoleVisitor {
			continue
		}
		out = append(out, models.OnlineUser{
			UserID:       u.ID,
			Name:         u.Name,
			Email:        u.Email,
			ConnectionID: sess.ID,
			LastActivity: sess.LastActivity,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivity.After(out[j].LastActivity) })
	return out, nil
}

func (s *Store) RevokeToken(tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[tokenID] = s.now().Add(ttl)
	return nil
}

func (s *Store) IsTokenRevoked(tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exp, ok := s.revoked[tokenID]
	return ok && s.now().Before(exp), nil
}

func (s *Store) SaveKnowledgeDocument(doc *models.KnowledgeDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.knowledge[doc.ID]; ok {
		doc.CreatedAt = existing.CreatedAt
	} else {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	s.knowledge[doc.ID] = *doc
	return nil
}

func (s *Store) ListKnowledgeDocuments() ([]models.KnowledgeDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.KnowledgeDocument, 0, len(s.knowledge))
	for _, d := range s.knowledge {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) DeleteKnowledgeDocuments() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.knowledge = make(map[string]models.KnowledgeDocument)
	return nil
}
