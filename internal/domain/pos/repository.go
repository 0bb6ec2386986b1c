package pos

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RemovalPolicy decides what happens to local menu items missing from a
// fresh POS snapshot.
type RemovalPolicy string

const (
	// RemovalPolicySoft marks vanished items unavailable
	RemovalPolicySoft RemovalPolicy = "soft"
	// RemovalPolicyHard deletes vanished items that no order line references
	RemovalPolicyHard RemovalPolicy = "hard"
)

// IsValid returns true if the policy is known
func (p RemovalPolicy) IsValid() bool {
	return p == RemovalPolicySoft || p == RemovalPolicyHard
}

// String returns the string representation of RemovalPolicy
func (p RemovalPolicy) String() string {
	return string(p)
}

// StationRepository defines the interface for station persistence
type StationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Station, error)
	// FindByRKeeperID finds a station by its POS reference id
	FindByRKeeperID(ctx context.Context, rkeeperID string) (*Station, error)
	// FindActive returns active stations ordered by name
	FindActive(ctx context.Context) ([]Station, error)
	Save(ctx context.Context, station *Station) error
}

// CategoryRepository defines the interface for category persistence
type CategoryRepository interface {
	// GetOrCreate returns the category for (name, station), creating it when
	// absent. The bool result is true when a row was created.
	GetOrCreate(ctx context.Context, name string, stationID *uuid.UUID) (*Category, bool, error)
	FindByStation(ctx context.Context, stationID uuid.UUID) ([]Category, error)
	// DeleteUnused deletes categories that no menu item belongs to
	DeleteUnused(ctx context.Context) (int64, error)
}

// MenuItemRepository defines the interface for menu item persistence
type MenuItemRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*MenuItem, error)
	// FindByRKeeperID finds the item for (POS id, station)
	FindByRKeeperID(ctx context.Context, stationID uuid.UUID, rkeeperID string) (*MenuItem, error)
	FindByStation(ctx context.Context, stationID uuid.UUID) ([]MenuItem, error)
	Save(ctx context.Context, item *MenuItem) error
	// MarkUnavailableExcept flags available station items whose POS id is not in keep
	MarkUnavailableExcept(ctx context.Context, stationID uuid.UUID, keep []string) (int64, error)
	// DeleteUnreferencedExcept deletes station items whose POS id is not in
	// keep and that no order line references
	DeleteUnreferencedExcept(ctx context.Context, stationID uuid.UUID, keep []string) (int64, error)
	// DeleteAllUnreferenced deletes items of every station that no order
	// line references
	DeleteAllUnreferenced(ctx context.Context) (int64, error)
	// MarkAllUnavailable flags every available item as unavailable
	MarkAllUnavailable(ctx context.Context) (int64, error)
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// FindByID loads the order with items, menu items, table and waiter
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// Create stores a new order with its items
	Create(ctx context.Context, order *Order) error
	// UpdatePOSOrderID stores the POS order GUID
	UpdatePOSOrderID(ctx context.Context, id uuid.UUID, posOrderID string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status OrderStatus) error
}

// StaffRepository defines the interface for waiter and table persistence
type StaffRepository interface {
	SaveWaiter(ctx context.Context, waiter *Waiter) error
	FindWaiterByCode(ctx context.Context, code string) (*Waiter, error)
	SaveTable(ctx context.Context, table *Table) error
	FindTableByNumber(ctx context.Context, number int) (*Table, error)
}

// SubmissionLock serializes submissions of one order across workers.
// TryLock returns false when another holder owns key; the lock expires
// after ttl even if never released.
type SubmissionLock interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}
