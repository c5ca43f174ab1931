package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"livechat/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	// ErrStorage wraps every failure of the persistence backend.
	ErrStorage = errors.New("storage error")
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
)

type Storage interface {
	CreateUser(user *models.User) error
	// CreateUserIfNotExists inserts the user unless the id is taken; an
	// existing row is never overwritten. It reports whether a row was created.
	CreateUserIfNotExists(user *models.User) (bool, error)
	GetUserByID(id string) (*models.User, error)
	// GetUserByEmail prefers an admin row when several users share the email.
	GetUserByEmail(email string) (*models.User, error)
	UpdateUser(user *models.User) error
	HasAdmin() (bool, error)

	CreateConversationForVisitor(userID string) (*models.Conversation, error)
	// CreateConversationWithID is idempotent on id: an existing conversation
	// is returned unchanged.
	CreateConversationWithID(id, userID string, status models.ConversationStatus, mode models.ResponseMode) (*models.Conversation, error)
	GetConversation(id string) (*models.ConversationDetail, error)
	ListConversations() ([]models.ConversationSummary, error)
	UpdateConversationStatus(id string, status models.ConversationStatus) error
	UpdateConversationMode(id string, mode models.ResponseMode) error

	// CreateMessage fails with ErrNotFound when the conversation does not exist
	// and touches the conversation's updated_at on success.
	CreateMessage(msg *models.Message) error
	ListMessages(conversationID string, limit, offset int) ([]models.MessageView, error)
	// ListRecentMessages returns the last n messages in creation order.
	ListRecentMessages(conversationID string, n int) ([]models.MessageView, error)
	UpdateMessageStatus(id uint, status models.DeliveryStatus) error

	UpsertSession(session *models.Session) error
	ResetSessions() error
	ListOnlineUsers() ([]models.OnlineUser, error)

	RevokeToken(tokenID string, ttl time.Duration) error
	IsTokenRevoked(tokenID string) (bool, error)

	SaveKnowledgeDocument(doc *models.KnowledgeDocument) error
	ListKnowledgeDocuments() ([]models.KnowledgeDocument, error)
	DeleteKnowledgeDocuments() error
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context

	// revocations used when Redis is not configured
	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewStorageService Constructor. rdb may be nil.
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:      db,
		Redis:   rdb,
		Ctx:     context.Background(),
		revoked: make(map[string]time.Time),
	}
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	log.Printf("ERROR: storage %s failed: %v", op, err)
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
