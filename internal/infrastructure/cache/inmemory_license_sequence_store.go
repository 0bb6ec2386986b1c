package cache

import (
	"context"
	"sync"

	"github.com/rkbridge/backend/internal/domain/pos"
)

// InMemoryLicenseSequenceStore implements pos.LicenseSequenceStore with a
// mutex-guarded map. State is not shared across processes, so it is only
// suitable for single-instance deployments and tests.
type InMemoryLicenseSequenceStore struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewInMemoryLicenseSequenceStore creates an empty store
func NewInMemoryLicenseSequenceStore() *InMemoryLicenseSequenceStore {
	return &InMemoryLicenseSequenceStore{values: make(map[string]int64)}
}

// Get returns the stored value and whether the key exists
func (s *InMemoryLicenseSequenceStore) Get(_ context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// Set stores the value
func (s *InMemoryLicenseSequenceStore) Set(_ context.Context, key string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// SetIfAbsent stores the value when the key is missing
func (s *InMemoryLicenseSequenceStore) SetIfAbsent(_ context.Context, key string, value int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value
	return true, nil
}

// Delete removes the key
func (s *InMemoryLicenseSequenceStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Increment adds one; a missing key becomes 1
func (s *InMemoryLicenseSequenceStore) Increment(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key]++
	return s.values[key], nil
}

// Ensure InMemoryLicenseSequenceStore implements pos.LicenseSequenceStore
var _ pos.LicenseSequenceStore = (*InMemoryLicenseSequenceStore)(nil)
