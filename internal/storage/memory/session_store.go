package memory

import (
	"context"
	"sync"

	"market-context-lab/internal/domain"
	"market-context-lab/internal/storage"
)

// SessionStore is an in-memory implementation of storage.SessionStore.
type SessionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Session // keyed by token
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		data: make(map[string]*domain.Session),
	}
}

// Create adds a new session. Returns ErrDuplicateKey if the token exists.
func (s *SessionStore) Create(_ context.Context, sess *domain.Session) error {
	if sess == nil || sess.Token == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sess.Token]; exists {
		return storage.ErrDuplicateKey
	}

	sessionCopy := *sess
	s.data[sess.Token] = &sessionCopy
	return nil
}

// GetByToken retrieves a session by its token. Returns ErrNotFound if not exists.
func (s *SessionStore) GetByToken(_ context.Context, token string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.data[token]
	if !ok {
		return nil, storage.ErrNotFound
	}

	sessionCopy := *sess
	return &sessionCopy, nil
}

// Delete removes a session. Returns ErrNotFound if not exists.
func (s *SessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[token]; !ok {
		return storage.ErrNotFound
	}
	delete(s.data, token)
	return nil
}

// DeleteExpired removes sessions with ExpiresAt <= now and returns the count.
func (s *SessionStore) DeleteExpired(_ context.Context, now int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, sess := range s.data {
		if sess.ExpiresAt <= now {
			delete(s.data, token)
			removed++
		}
	}
	return removed, nil
}

var _ storage.SessionStore = (*SessionStore)(nil)
