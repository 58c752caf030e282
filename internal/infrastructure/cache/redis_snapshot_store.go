package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dirsync/james-connector/internal/domain/directory"
)

// DefaultKeyPrefix prefixes every snapshot key
const DefaultKeyPrefix = "connector:pivots:"

// RedisSnapshotStore implements directory.SnapshotStore using Redis.
// Each task's pivot map is stored as one JSON value.
type RedisSnapshotStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisSnapshotStore connects to Redis and checks the connection
func NewRedisSnapshotStore(ctx context.Context, cfg RedisConfig) (*RedisSnapshotStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSnapshotStoreWithClient(client, ""), nil
}

// NewRedisSnapshotStoreWithClient creates a store with an existing Redis client
func NewRedisSnapshotStoreWithClient(client *redis.Client, keyPrefix string) *RedisSnapshotStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisSnapshotStore{client: client, keyPrefix: keyPrefix}
}

// Save stores the pivots of task. A zero ttl keeps the snapshot until replaced.
func (s *RedisSnapshotStore) Save(ctx context.Context, task string, pivots directory.PivotMap, ttl time.Duration) error {
	data, err := json.Marshal(pivots)
	if err != nil {
		return fmt.Errorf("failed to encode pivot snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.keyPrefix+task, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save pivot snapshot: %w", err)
	}
	return nil
}

// Load returns the last snapshot of task, if any
func (s *RedisSnapshotStore) Load(ctx context.Context, task string) (directory.PivotMap, bool, error) {
	data, err := s.client.Get(ctx, s.keyPrefix+task).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load pivot snapshot: %w", err)
	}

	var pivots directory.PivotMap
	if err := json.Unmarshal(data, &pivots); err != nil {
		return nil, false, fmt.Errorf("failed to decode pivot snapshot: %w", err)
	}
	if pivots == nil {
		pivots = directory.PivotMap{}
	}
	return pivots, true, nil
}

// Close closes the Redis client
func (s *RedisSnapshotStore) Close() error {
	return s.client.Close()
}

var _ directory.SnapshotStore = (*RedisSnapshotStore)(nil)
