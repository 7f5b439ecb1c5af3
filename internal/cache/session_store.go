package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"jobflow-backend/internal/nas"
)

// ErrUnavailable is returned by stores when Redis is not connected
var ErrUnavailable = errors.New("redis unavailable")

// DefaultSessionTTL drops a stored NAS session before the NAS forgets it
const DefaultSessionTTL = 12 * time.Hour

// SessionStore keeps the shared NAS session in Redis so every server
// instance reuses one login.
type SessionStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewSessionStore(c *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{client: c, key: NASSessionKey, ttl: ttl}
}

func (s *SessionStore) Get(ctx context.Context) (*nas.Session, error) {
	if s.client == nil {
		return nil, ErrUnavailable
	}
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get nas session: %w", err)
	}

	var session nas.Session
	if err := json.Unmarshal(data, &session); err != nil {
		// Unreadable value counts as no session
		return nil, nil
	}
	return &session, nil
}

func (s *SessionStore) Set(ctx context.Context, session *nas.Session) error {
	if s.client == nil {
		return ErrUnavailable
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode nas session: %w", err)
	}
	return s.client.Set(ctx, s.key, data, s.ttl).Err()
}

func (s *SessionStore) Clear(ctx context.Context) error {
	if s.client == nil {
		return ErrUnavailable
	}
	return s.client.Del(ctx, s.key).Err()
}
