package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process. Restarting signs everyone out.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	admins   map[string]string
}

var _ SessionStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		admins:   make(map[string]string),
	}
}

func (m *MemoryStore) SaveSession(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNoSession
	}
	return s, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) GrantAdmin(_ context.Context, email, grantedBy string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admins[email] = grantedBy
	return nil
}

func (m *MemoryStore) IsAdmin(_ context.Context, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.admins[email]
	return ok, nil
}

// CleanExpired drops sessions past their expiry. It satisfies
// cache.Cleaner so the cache manager can sweep it.
func (m *MemoryStore) CleanExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	n := 0
	for id, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}
