package postgres

import (
	"context"

	"market-context-lab/internal/domain"
	"market-context-lab/internal/storage"
)

// SessionStore is a PostgreSQL implementation of storage.SessionStore.
type SessionStore struct {
	pool *Pool
}

// NewSessionStore creates a new PostgreSQL session store.
func NewSessionStore(pool *Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SessionStore = (*SessionStore)(nil)

// Create adds a new session. Returns ErrDuplicateKey if the token exists.
func (s *SessionStore) Create(ctx context.Context, sess *domain.Session) error {
	if sess == nil || sess.Token == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (token, created_at, expires_at)
		VALUES ($1, $2, $3)
	`, sess.Token, sess.CreatedAt, sess.ExpiresAt)

	if isDuplicateKeyError(err) {
		return storage.ErrDuplicateKey
	}
	return err
}

// GetByToken retrieves a session by its token. Returns ErrNotFound if not exists.
func (s *SessionStore) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT token, created_at, expires_at
		FROM sessions
		WHERE token = $1
	`, token)

	var sess domain.Session
	if err := row.Scan(&sess.Token, &sess.CreatedAt, &sess.ExpiresAt); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return &sess, nil
}

// Delete removes a session. Returns ErrNotFound if not exists.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM sessions
		WHERE token = $1
	`, token)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteExpired removes sessions with expires_at <= now and returns the count.
func (s *SessionStore) DeleteExpired(ctx context.Context, now int64) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM sessions
		WHERE expires_at <= $1
	`, now)
	if err != nil {
		return 0, err
	}

	return int(tag.RowsAffected()), nil
}
