package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/encounter-engine/pkg/store"
)

const (
	snapshotPrefix = "entities:"
	sessionsKey    = "entities:sessions"
)

// RedisStorage keeps the latest snapshot per session as a JSON string.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage accepts either a redis:// URL or a bare host:port.
func NewRedisStorage(redisURL string, logger *slog.Logger) (*RedisStorage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var opt *redis.Options
	if strings.Contains(redisURL, "://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		opt = parsed
	} else {
		opt = &redis.Options{Addr: redisURL}
	}
	return &RedisStorage{
		client: redis.NewClient(opt),
		logger: logger,
	}, nil
}

// WithTTL expires snapshots after d. Zero keeps them forever.
func (r *RedisStorage) WithTTL(d time.Duration) *RedisStorage {
	r.ttl = d
	return r
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

func (r *RedisStorage) SaveSnapshot(ctx context.Context, session uuid.UUID, snap *store.Snapshot) error {
	if snap == nil {
		return errors.New("snapshot cannot be nil")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, snapshotPrefix+session.String(), data, r.ttl)
	pipe.SAdd(ctx, sessionsKey, session.String())
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to save snapshot", "session", session, "error", err)
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	r.logger.Debug("Saved snapshot", "session", session, "version", snap.Version, "entities", len(snap.Entities))
	return nil
}

func (r *RedisStorage) LoadSnapshot(ctx context.Context, session uuid.UUID) (*store.Snapshot, error) {
	data, err := r.client.Get(ctx, snapshotPrefix+session.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		r.logger.Error("Failed to load snapshot", "session", session, "error", err)
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var snap store.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

func (r *RedisStorage) DeleteSnapshot(ctx context.Context, session uuid.UUID) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, snapshotPrefix+session.String())
	pipe.SRem(ctx, sessionsKey, session.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

func (r *RedisStorage) ListSessions(ctx context.Context) ([]uuid.UUID, error) {
	members, err := r.client.SMembers(ctx, sessionsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return parseSessions(r.logger, members), nil
}

func parseSessions(log *slog.Logger, ids []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, s := range ids {
		id, err := uuid.Parse(s)
		if err != nil {
			log.Warn("Skipping malformed session id", "id", s)
			continue
		}
		out = append(out, id)
	}
	return out
}
