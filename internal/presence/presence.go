// Package presence tracks which connections are online as visitors or admins.
// The registry is process-local and advisory; the database stays authoritative.
package presence

import (
	"sort"
	"sync"
	"time"
)

type Visitor struct {
	ConnID         string    `json:"-"`
	UserID         string    `json:"user_id"`
	ConversationID string    `json:"conversation_id"`
	JoinedAt       time.Time `json:"-"`
}

type Admin struct {
	ConnID   string
	UserID   string
	JoinedAt time.Time
}

// Removed describes what a connection was registered as before Remove.
type Removed struct {
	Visitor *Visitor
	Admin   *Admin
}

// Store owns the connection→visitor and connection→admin mappings.
// A connection is registered as at most one of the two.
type Store struct {
	mu       sync.RWMutex
	visitors map[string]Visitor
	admins   map[string]Admin
}

func NewStore() *Store {
	return &Store{
		visitors: make(map[string]Visitor),
		admins:   make(map[string]Admin),
	}
}

func (s *Store) AddVisitor(v Visitor) {
	if v.JoinedAt.IsZero() {
		v.JoinedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.admins, v.ConnID)
	s.visitors[v.ConnID] = v
}

func (s *Store) AddAdmin(a Admin) {
	if a.JoinedAt.IsZero() {
		a.JoinedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.visitors, a.ConnID)
	s.admins[a.ConnID] = a
}

// Remove deletes every entry of the connection in one step.
func (s *Store) Remove(connID string) Removed {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out Removed
	if v, ok := s.visitors[connID]; ok {
		out.Visitor = &v
		delete(s.visitors, connID)
	}
	if a, ok := s.admins[connID]; ok {
		out.Admin = &a
		delete(s.admins, connID)
	}
	return out
}

func (s *Store) Visitor(connID string) (Visitor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.visitors[connID]
	return v, ok
}

func (s *Store) Admin(connID string) (Admin, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.admins[connID]
	return a, ok
}

func (s *Store) IsAdmin(connID string) bool {
	_, ok := s.Admin(connID)
	return ok
}

// Visitors returns a snapshot ordered by join time.
func (s *Store) Visitors() []Visitor {
	s.mu.RLock()
	out := make([]Visitor, 0, len(s.visitors))
	for _, v := range s.visitors {
		out = append(out, v)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ConnID < out[j].ConnID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// AdminConnIDs returns the connection ids of every connected admin.
func (s *Store) AdminConnIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.admins))
	for id := range s.admins {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *Store) Counts() (visitors, admins int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.visitors), len(s.admins)
}
