package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rkbridge/backend/internal/infrastructure/config"
)

func TestInMemoryLicenseSequenceStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryLicenseSequenceStore()
	key := "rkeeper:license_seq:G"

	_, found, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	t.Run("increment of missing key yields 1", func(t *testing.T) {
		v, err := store.Increment(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, key, 7))
		v, found, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, int64(7), v)
	})

	t.Run("set if absent keeps an existing value", func(t *testing.T) {
		created, err := store.SetIfAbsent(ctx, key, 0)
		require.NoError(t, err)
		assert.False(t, created)
		v, _, _ := store.Get(ctx, key)
		assert.Equal(t, int64(7), v)

		created, err = store.SetIfAbsent(ctx, "rkeeper:license_seq:N", 0)
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("delete returns to unknown", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, key))
		_, found, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestInMemoryLicenseSequenceStore_ConcurrentIncrement(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryLicenseSequenceStore()
	key := "rkeeper:license_seq:C"

	const workers = 50
	seen := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := store.Increment(ctx, key)
			assert.NoError(t, err)
			seen <- v
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool)
	for v := range seen {
		unique[v] = true
	}
	assert.Len(t, unique, workers, "every increment must return a distinct value")

	v, _, _ := store.Get(ctx, key)
	assert.Equal(t, int64(workers), v)
}

func TestStoreFactory(t *testing.T) {
	unreachable := config.RedisConfig{Host: "127.0.0.1", Port: 1}

	t.Run("falls back to memory when allowed", func(t *testing.T) {
		factory := NewStoreFactory(unreachable,
			WithLogger(zap.NewNop()),
			WithInMemoryFallback(true),
		)
		stores, err := factory.CreateStores()
		require.NoError(t, err)
		defer stores.Close()

		assert.IsType(t, &InMemoryLicenseSequenceStore{}, stores.Sequence)
		assert.IsType(t, &InMemorySubmissionLock{}, stores.Locks)
		assert.False(t, stores.Distributed())
		assert.NoError(t, stores.Ping(context.Background()))
	})

	t.Run("fails without fallback", func(t *testing.T) {
		factory := NewStoreFactory(unreachable)
		_, err := factory.CreateStores()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Redis required")
	})
}

func TestRedisLicenseSequenceStore_WithClient(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	store := NewRedisLicenseSequenceStoreWithClient(client)
	defer store.Close()

	assert.Same(t, client, store.GetClient())

	_, err := store.Increment(context.Background(), "rkeeper:license_seq:X")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to increment sequence")

	_, err = store.SetIfAbsent(context.Background(), "rkeeper:license_seq:X", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize sequence")
}
