package nas

import (
	"context"
	"sync"
	"time"
)

// Session is the shared storage API token.
type Session struct {
	SID       string    `json:"sid"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionStore keeps the one session all server instances share. Get returns
// nil, nil when no session is stored.
type SessionStore interface {
	Get(ctx context.Context) (*Session, error)
	Set(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
}

// MemorySessionStore holds the session in process.
type MemorySessionStore struct {
	mu      sync.RWMutex
	session *Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{}
}

func (m *MemorySessionStore) Get(ctx context.Context) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil, nil
	}
	s := *m.session
	return &s, nil
}

func (m *MemorySessionStore) Set(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.session = &cp
	return nil
}

func (m *MemorySessionStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}
