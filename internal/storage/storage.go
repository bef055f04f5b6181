// Package storage persists entity store snapshots per session. The snapshot
// is the only persisted form; the backend is interchangeable.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jwebster45206/encounter-engine/internal/config"
	"github.com/jwebster45206/encounter-engine/pkg/store"
)

// Storage saves and loads store snapshots keyed by session id.
type Storage interface {
	Ping(ctx context.Context) error
	Close() error

	SaveSnapshot(ctx context.Context, session uuid.UUID, snap *store.Snapshot) error
	// LoadSnapshot returns nil, nil when the session has no snapshot.
	LoadSnapshot(ctx context.Context, session uuid.UUID) (*store.Snapshot, error)
	DeleteSnapshot(ctx context.Context, session uuid.UUID) error
	ListSessions(ctx context.Context) ([]uuid.UUID, error)
}

// New opens the backend named by cfg.StorageBackend.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (Storage, error) {
	switch cfg.StorageBackend {
	case config.BackendRedis:
		r, err := NewRedisStorage(cfg.RedisURL, log)
		if err != nil {
			return nil, err
		}
		if err := r.WaitForConnection(ctx); err != nil {
			_ = r.Close()
			return nil, err
		}
		return r, nil
	case config.BackendSQLite:
		s, err := NewSQLiteStorage(cfg.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case config.BackendMemory, "":
		return NewMockStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
