package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rkbridge/backend/internal/domain/pos"
)

// InMemorySubmissionLock implements pos.SubmissionLock within one process.
// A background loop drops expired entries until Close.
type InMemorySubmissionLock struct {
	mu        sync.Mutex
	expiry    map[string]time.Time
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemorySubmissionLock creates the lock and starts its cleanup loop
func NewInMemorySubmissionLock() *InMemorySubmissionLock {
	l := &InMemorySubmissionLock{
		expiry:   make(map[string]time.Time),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	l.wg.Add(1)
	go l.cleanupLoop(time.Minute)
	return l
}

// TryLock takes key unless an unexpired holder exists
func (l *InMemorySubmissionLock) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if until, held := l.expiry[key]; held && now.Before(until) {
		return false, nil
	}
	l.expiry[key] = now.Add(ttl)
	return true, nil
}

// Unlock releases key
func (l *InMemorySubmissionLock) Unlock(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.expiry, key)
	return nil
}

func (l *InMemorySubmissionLock) cleanupLoop(every time.Duration) {
	defer l.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *InMemorySubmissionLock) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, until := range l.expiry {
		if !now.Before(until) {
			delete(l.expiry, key)
		}
	}
}

// Size returns the number of held locks
func (l *InMemorySubmissionLock) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.expiry)
}

// Close stops the cleanup loop. Safe to call more than once.
func (l *InMemorySubmissionLock) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
	})
	return nil
}

var _ pos.SubmissionLock = (*InMemorySubmissionLock)(nil)
