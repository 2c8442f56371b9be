package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/mailseat/internal/domain"
	"github.com/yourorg/mailseat/internal/infrastructure/redis"
)

const (
	snapshotKey     = "directory:snapshot"
	snapshotMetaKey = "directory:snapshot:meta"
)

// directorySnapshot is the wire form stored in Redis.
type directorySnapshot struct {
	SavedAt time.Time           `json:"savedAt"`
	Users   []*domain.EmailUser `json:"users"`
}

// RedisSnapshotStore implements domain.SnapshotStore using Redis.
// The whole directory is stored as a single JSON document so a restore
// is always internally consistent.
type RedisSnapshotStore struct {
	redis  *redis.Client
	logger *slog.Logger
}

// NewRedisSnapshotStore creates a new snapshot store
func NewRedisSnapshotStore(client *redis.Client, logger *slog.Logger) *RedisSnapshotStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisSnapshotStore{
		redis:  client,
		logger: logger,
	}
}

// SaveAll persists the full directory contents, replacing any previous snapshot.
func (s *RedisSnapshotStore) SaveAll(ctx context.Context, users []*domain.EmailUser) error {
	snap := directorySnapshot{
		SavedAt: time.Now().UTC(),
		Users:   users,
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := s.redis.Set(ctx, snapshotKey, data, 0); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}

	if err := s.redis.HSet(ctx, snapshotMetaKey,
		"saved_at", snap.SavedAt.Format(time.RFC3339),
		"user_count", len(users),
	); err != nil {
		s.logger.Warn("failed to update snapshot metadata", slog.String("error", err.Error()))
	}

	s.logger.Debug("directory snapshot saved", slog.Int("users", len(users)))
	return nil
}

// LoadAll returns the most recent snapshot, or nil when none exists.
func (s *RedisSnapshotStore) LoadAll(ctx context.Context) ([]*domain.EmailUser, error) {
	data, err := s.redis.Get(ctx, snapshotKey)
	if err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snap directorySnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return snap.Users, nil
}
