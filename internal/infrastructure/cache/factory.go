package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rkbridge/backend/internal/domain/pos"
	"github.com/rkbridge/backend/internal/infrastructure/config"
)

// Stores are the coordination stores of one process. Both share a Redis
// client when Redis is in use.
type Stores struct {
	Sequence pos.LicenseSequenceStore
	Locks    pos.SubmissionLock

	client *redis.Client
	locks  *InMemorySubmissionLock
}

// Distributed reports whether the stores are shared between processes
func (s *Stores) Distributed() bool {
	return s.client != nil
}

// Ping checks the Redis connection; in-memory stores are always up
func (s *Stores) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

// Close releases the Redis client or stops the in-memory cleanup loop
func (s *Stores) Close() error {
	var errs []error
	if s.client != nil {
		errs = append(errs, s.client.Close())
	}
	if s.locks != nil {
		errs = append(errs, s.locks.Close())
	}
	return errors.Join(errs...)
}

// StoreFactory creates the coordination stores based on configuration
type StoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores
// when Redis is unavailable. Default is false: the sequence must be shared
// between workers.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(cfg config.RedisConfig, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		redisConfig: cfg,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStores tries Redis first and falls back to memory when allowed
func (f *StoreFactory) CreateStores() (*Stores, error) {
	client, err := newRedisClient(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.logger.Info("Using Redis coordination stores",
			zap.String("host", f.redisConfig.Host),
			zap.Int("port", f.redisConfig.Port),
		)
		return &Stores{
			Sequence: NewRedisLicenseSequenceStoreWithClient(client),
			Locks:    NewRedisSubmissionLock(client),
			client:   client,
		}, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for license sequence but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory stores. "+
		"Concurrent workers will not share sequence numbers or submission locks.",
		zap.Error(err),
	)
	locks := NewInMemorySubmissionLock()
	return &Stores{
		Sequence: NewInMemoryLicenseSequenceStore(),
		Locks:    locks,
		locks:    locks,
	}, nil
}
