package pos

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnlimitedQuantity marks a menu item the POS reports without a stock limit.
const UnlimitedQuantity int64 = math.MaxInt32

// Fallback labels used when the dish reference table has no entry.
const (
	UncategorizedName = "Uncategorized"
	UnnamedDish       = "Unnamed"
	UnknownDishCode   = "N/A"
)

// CategoryRefPrefix prefixes the POS reference id of categories created during sync.
const CategoryRefPrefix = "CAT_"

// Category groups menu items of one station. StationID is nil for the
// general category.
type Category struct {
	ID        uuid.UUID
	Name      string
	StationID *uuid.UUID
	RKeeperID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCategory creates a category as discovered during sync
func NewCategory(name string, stationID *uuid.UUID) *Category {
	now := time.Now()
	return &Category{
		ID:        uuid.New(),
		Name:      name,
		StationID: stationID,
		RKeeperID: CategoryRefPrefix + name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MenuItem is a sellable item mirrored from a station's order menu.
type MenuItem struct {
	ID                   uuid.UUID
	Name                 string
	NameSecondary        string
	Description          string
	DescriptionSecondary string
	Price                decimal.Decimal
	Quantity             int64
	RKeeperID            string
	StationID            uuid.UUID
	CategoryID           *uuid.UUID
	IsAvailable          bool
	LastSyncedAt         *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// MenuSnapshot holds the values a sync cycle writes onto a menu item.
type MenuSnapshot struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int64
	CategoryID  *uuid.UUID
}

// NewMenuItem creates a menu item from a POS snapshot
func NewMenuItem(rkeeperID string, stationID uuid.UUID, snap MenuSnapshot, syncedAt time.Time) *MenuItem {
	item := &MenuItem{
		ID:        uuid.New(),
		RKeeperID: rkeeperID,
		StationID: stationID,
		CreatedAt: syncedAt,
	}
	item.ApplySnapshot(snap, syncedAt)
	return item
}

// ApplySnapshot overwrites the synced fields and marks the item available.
// It reports whether anything other than the sync timestamp changed.
func (m *MenuItem) ApplySnapshot(snap MenuSnapshot, syncedAt time.Time) bool {
	changed := m.Name != snap.Name ||
		m.Description != snap.Description ||
		!m.Price.Equal(snap.Price) ||
		m.Quantity != snap.Quantity ||
		!sameID(m.CategoryID, snap.CategoryID) ||
		!m.IsAvailable

	m.Name = snap.Name
	m.Description = snap.Description
	m.Price = snap.Price
	m.Quantity = snap.Quantity
	m.CategoryID = snap.CategoryID
	m.IsAvailable = true
	m.LastSyncedAt = &syncedAt
	m.UpdatedAt = syncedAt
	return changed
}

// PriceFromMinorUnits converts a POS price (kopecks, cents) to a decimal amount.
func PriceFromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// QuantityFromPOS maps the POS "0 means unlimited" convention.
func QuantityFromPOS(q int64) int64 {
	if q == 0 {
		return UnlimitedQuantity
	}
	return q
}

// CategoryFromPath takes the last segment of a backslash-delimited POS
// category path.
func CategoryFromPath(path string) string {
	path = strings.TrimRight(path, `\`)
	if path == "" {
		return UncategorizedName
	}
	if i := strings.LastIndex(path, `\`); i >= 0 {
		path = path[i+1:]
	}
	if strings.TrimSpace(path) == "" {
		return UncategorizedName
	}
	return path
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
