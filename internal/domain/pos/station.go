package pos

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rkbridge/backend/internal/domain/shared"
)

// DefaultStationCode is used when an order cannot be mapped to a station.
const DefaultStationCode = 15002

// Station is a POS sales point.
type Station struct {
	ID uuid.UUID
	// Name is the operator-facing display name
	Name string
	// Code is the numeric station code used in protocol requests
	Code *int
	// RKeeperID is the POS-side reference identifier, also stored on orders
	RKeeperID string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewStation creates an active station
func NewStation(name, rkeeperID string, code *int) (*Station, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_STATION_NAME", "Station name cannot be empty")
	}
	if code != nil && *code <= 0 {
		return nil, shared.NewDomainError("INVALID_STATION_CODE", "Station code must be positive")
	}
	now := time.Now()
	return &Station{
		ID:        uuid.New(),
		Name:      name,
		Code:      code,
		RKeeperID: strings.TrimSpace(rkeeperID),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// SyncCode returns the station code required for synchronization.
func (s *Station) SyncCode() (int, error) {
	if s.Code == nil {
		return 0, ErrStationCodeMissing
	}
	return *s.Code, nil
}

// MatchesAny reports whether the station name contains any of the filters,
// case-insensitively. An empty filter list matches every station.
func (s *Station) MatchesAny(filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	name := strings.ToLower(s.Name)
	for _, f := range filters {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" && strings.Contains(name, f) {
			return true
		}
	}
	return false
}

// Deactivate excludes the station from future sync runs
func (s *Station) Deactivate() {
	s.IsActive = false
	s.UpdatedAt = time.Now()
}
