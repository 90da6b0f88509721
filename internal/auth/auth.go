package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/mr-tron/base58"

	"market-context-lab/internal/domain"
	"market-context-lab/internal/storage"
)

// Auth errors.
var (
	// ErrInvalidCredentials is returned when the presented password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionExpired is returned when a session exists but is past its TTL.
	ErrSessionExpired = errors.New("session expired")
)

const (
	// DefaultSessionTTL is how long a session stays valid after login.
	DefaultSessionTTL = 24 * time.Hour

	// tokenBytes is the entropy of a session token before encoding.
	tokenBytes = 24
)

// Service gates access behind a single shared password and issues
// base58-encoded bearer tokens backed by a SessionStore.
type Service struct {
	store    storage.SessionStore
	password string
	ttl      time.Duration
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithTTL overrides the session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates an auth service. The password must be non-empty.
func NewService(store storage.SessionStore, password string, opts ...Option) (*Service, error) {
	if password == "" {
		return nil, errors.New("auth password must not be empty")
	}

	s := &Service{
		store:    store,
		password: password,
		ttl:      DefaultSessionTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Login verifies the password and creates a new session.
// The comparison is constant-time so response timing leaks nothing about
// how much of the password matched.
func (s *Service) Login(ctx context.Context, password string) (*domain.Session, error) {
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) != 1 {
		return nil, ErrInvalidCredentials
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	now := s.now().Unix()
	sess := &domain.Session{
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now + int64(s.ttl.Seconds()),
	}

	if err := s.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return sess, nil
}

// Validate checks a bearer token. Expired sessions are deleted on touch.
func (s *Service) Validate(ctx context.Context, token string) (*domain.Session, error) {
	sess, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if sess.Expired(s.now().Unix()) {
		// Best effort removal; the expiry check already rejected the session.
		_ = s.store.Delete(ctx, token)
		return nil, ErrSessionExpired
	}

	return sess, nil
}

// Logout deletes the session for the given token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.Delete(ctx, token)
}

// SweepExpired removes all expired sessions and returns how many were removed.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	return s.store.DeleteExpired(ctx, s.now().Unix())
}

// generateToken returns a base58-encoded random token.
func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base58.Encode(buf), nil
}
