package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rkbridge/backend/internal/domain/pos"
)

// unlockScript deletes the key only while it still holds our token, so an
// expired lock taken over by another worker is left alone.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSubmissionLock implements pos.SubmissionLock with SET NX PX.
// Each instance owns a random token, so workers never release each
// other's locks.
type RedisSubmissionLock struct {
	client *redis.Client
	token  string
}

// NewRedisSubmissionLock creates a lock on an existing client
func NewRedisSubmissionLock(client *redis.Client) *RedisSubmissionLock {
	return &RedisSubmissionLock{client: client, token: uuid.NewString()}
}

// TryLock sets key if absent with the given ttl
func (l *RedisSubmissionLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, key, l.token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to lock %s: %w", key, err)
	}
	return ok, nil
}

// Unlock releases key if this instance still holds it
func (l *RedisSubmissionLock) Unlock(ctx context.Context, key string) error {
	if err := unlockScript.Run(ctx, l.client, []string{key}, l.token).Err(); err != nil {
		return fmt.Errorf("failed to unlock %s: %w", key, err)
	}
	return nil
}

var _ pos.SubmissionLock = (*RedisSubmissionLock)(nil)
