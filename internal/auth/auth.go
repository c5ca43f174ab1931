// Package auth implements admin sessions: bcrypt passwords and signed JWT
// session tokens that can be revoked on logout.
package auth

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"livechat/backend/internal/config"
	"livechat/backend/internal/models"
	"livechat/backend/internal/storage"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const Issuer = "livechat"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired session")
)

// Claims is the payload of a session token. ID (jti) is what logout revokes.
type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Service struct {
	store  storage.Storage
	secret []byte
	ttl    time.Duration
}

func NewService(store storage.Storage, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = config.DefaultSessionTTL
	}
	return &Service{store: store, secret: []byte(secret), ttl: ttl}
}

func (s *Service) TTL() time.Duration { return s.ttl }

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Login checks an admin's credentials and issues a session token.
func (s *Service) Login(email, password string) (string, *models.User, error) {
	email = strings.TrimSpace(email)
	user, err := s.store.GetUserByEmail(email)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if !user.IsAdmin() || user.PasswordHash == "" || !CheckPassword(user.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}

	token, _, err := s.Issue(user)
	if err != nil {
		return "", nil, err
	}
	log.Printf("INFO: Admin %s logged in", user.ID)
	return token, user, nil
}

func (s *Service) Issue(user *models.User) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		Name:  user.Name,
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return signed, claims, nil
}

// Verify parses the token and rejects it when it is expired, forged or revoked.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(Issuer))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	revoked, err := s.store.IsTokenRevoked(claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Logout revokes the token for the rest of its lifetime.
func (s *Service) Logout(tokenString string) error {
	claims, err := s.Verify(tokenString)
	if err != nil {
		return err
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.store.RevokeToken(claims.ID, ttl); err != nil {
		return err
	}
	log.Printf("INFO: Admin %s logged out", claims.Subject)
	return nil
}

// EnsureDefaultAdmin creates the bootstrap admin account unless an admin with
// that email already exists.
func EnsureDefaultAdmin(store storage.Storage, email, name, password string) (*models.User, error) {
	existing, err := store.GetUserByEmail(email)
	if err == nil && existing.IsAdmin() {
		return existing, nil
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	admin := &models.User{
		ID:           config.DefaultAdminID,
		Name:         name,
		Email:        email,
		Role:         models.RoleAdmin,
		PasswordHash: hash,
	}
	created, err := store.CreateUserIfNotExists(admin)
	if err != nil {
		return nil, err
	}
	if !created {
		return store.GetUserByID(config.DefaultAdminID)
	}
	log.Printf("INFO: Default admin %s created", email)
	return admin, nil
}

// CreateAdmin adds another admin account, or resets the password and name of
// an existing admin with the same email.
func CreateAdmin(store storage.Storage, email, name, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	existing, err := store.GetUserByEmail(email)
	switch {
	case err == nil && existing.IsAdmin():
		existing.Name = name
		existing.PasswordHash = hash
		if err := store.UpdateUser(existing); err != nil {
			return nil, err
		}
		return existing, nil
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}

	admin := &models.User{Name: name, Email: email, Role: models.RoleAdmin, PasswordHash: hash}
	if err := store.CreateUser(admin); err != nil {
		return nil, err
	}
	return admin, nil
}
