package storage

import (
	"context"

	"market-context-lab/internal/domain"
)

// SnapshotStore holds the single market snapshot under its fixed logical
// key (domain.SnapshotKey). Each save is a full replacement; snapshots are
// never patched or versioned.
type SnapshotStore interface {
	// Save stores the snapshot, replacing any previous one.
	Save(ctx context.Context, s *domain.MarketSnapshot) error

	// Get retrieves the current snapshot. Returns ErrNotFound if none is stored.
	Get(ctx context.Context) (*domain.MarketSnapshot, error)

	// Clear removes the stored snapshot. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// SessionStore provides access to authenticated sessions.
type SessionStore interface {
	// Create adds a new session. Returns ErrDuplicateKey if the token exists.
	Create(ctx context.Context, s *domain.Session) error

	// GetByToken retrieves a session by its token. Returns ErrNotFound if not exists.
	GetByToken(ctx context.Context, token string) (*domain.Session, error)

	// Delete removes a session. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, token string) error

	// DeleteExpired removes sessions with ExpiresAt <= now (Unix seconds)
	// and returns how many were removed.
	DeleteExpired(ctx context.Context, now int64) (int, error)
}

// PriceSampleStore provides access to the append-only price-sample archive.
type PriceSampleStore interface {
	// InsertBulk adds multiple samples. Fails the entire batch with
	// ErrDuplicateKey on a duplicate (asset, timestamp_ms).
	InsertBulk(ctx context.Context, samples []*domain.PriceSample) error

	// GetLatest retrieves the most recent limit samples for an asset,
	// ordered by timestamp ASC.
	GetLatest(ctx context.Context, asset string, limit int) ([]*domain.PriceSample, error)

	// GetByTimeRange retrieves samples for an asset within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, asset string, start, end int64) ([]*domain.PriceSample, error)
}
