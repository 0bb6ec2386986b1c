package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rkbridge/backend/internal/domain/pos"
)

// RedisLicenseSequenceStore implements pos.LicenseSequenceStore using Redis.
// INCR is atomic on the server, so concurrent workers never hand out the
// same sequence number.
type RedisLicenseSequenceStore struct {
	client *redis.Client
}

// NewRedisLicenseSequenceStore connects to Redis and verifies the connection
func NewRedisLicenseSequenceStore(cfg RedisConfig) (*RedisLicenseSequenceStore, error) {
	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return &RedisLicenseSequenceStore{client: client}, nil
}

// NewRedisLicenseSequenceStoreWithClient creates a store with an existing Redis client
func NewRedisLicenseSequenceStoreWithClient(client *redis.Client) *RedisLicenseSequenceStore {
	return &RedisLicenseSequenceStore{client: client}
}

// Get returns the stored value and whether the key exists
func (s *RedisLicenseSequenceStore) Get(ctx context.Context, key string) (int64, bool, error) {
	v, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read sequence %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores the value without expiry
func (s *RedisLicenseSequenceStore) Set(ctx context.Context, key string, value int64) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set sequence %s: %w", key, err)
	}
	return nil
}

// SetIfAbsent stores the value with SET NX
func (s *RedisLicenseSequenceStore) SetIfAbsent(ctx context.Context, key string, value int64) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to initialize sequence %s: %w", key, err)
	}
	return ok, nil
}

// Delete removes the key
func (s *RedisLicenseSequenceStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete sequence %s: %w", key, err)
	}
	return nil
}

// Increment atomically adds one; a missing key becomes 1
func (s *RedisLicenseSequenceStore) Increment(ctx context.Context, key string) (int64, error) {
	v, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence %s: %w", key, err)
	}
	return v, nil
}

// Ping checks the Redis connection
func (s *RedisLicenseSequenceStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisLicenseSequenceStore) Close() error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client
func (s *RedisLicenseSequenceStore) GetClient() *redis.Client {
	return s.client
}

// Ensure RedisLicenseSequenceStore implements pos.LicenseSequenceStore
var _ pos.LicenseSequenceStore = (*RedisLicenseSequenceStore)(nil)
