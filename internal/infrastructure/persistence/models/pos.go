package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/rkbridge/backend/internal/domain/pos"
	"github.com/shopspring/decimal"
)

// StationModel is the persistence model for the Station entity.
type StationModel struct {
	BaseModel
	Name      string `gorm:"type:varchar(100);not null"`
	Code      *int   `gorm:"column:code"`
	RKeeperID string `gorm:"column:rkeeper_id;type:varchar(64);not null;uniqueIndex:idx_pos_station_rkeeper"`
	IsActive  bool   `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (StationModel) TableName() string {
	return "pos_stations"
}

// ToDomain converts the persistence model to a domain Station.
func (m *StationModel) ToDomain() *pos.Station {
	return &pos.Station{
		ID:        m.ID,
		Name:      m.Name,
		Code:      m.Code,
		RKeeperID: m.RKeeperID,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// StationModelFromDomain creates a persistence model from a domain Station.
func StationModelFromDomain(s *pos.Station) *StationModel {
	return &StationModel{
		BaseModel: BaseModel{ID: s.ID, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt},
		Name:      s.Name,
		Code:      s.Code,
		RKeeperID: s.RKeeperID,
		IsActive:  s.IsActive,
	}
}

// CategoryModel is the persistence model for the Category entity.
// Postgres also carries a partial unique index on name for the general
// (station-less) category; see the migration.
type CategoryModel struct {
	BaseModel
	Name      string     `gorm:"type:varchar(200);not null;uniqueIndex:idx_pos_category_name_station,priority:1"`
	StationID *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_pos_category_name_station,priority:2"`
	RKeeperID string     `gorm:"column:rkeeper_id;type:varchar(220)"`
}

// TableName returns the table name for GORM
func (CategoryModel) TableName() string {
	return "pos_categories"
}

// ToDomain converts the persistence model to a domain Category.
func (m *CategoryModel) ToDomain() *pos.Category {
	return &pos.Category{
		ID:        m.ID,
		Name:      m.Name,
		StationID: m.StationID,
		RKeeperID: m.RKeeperID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// CategoryModelFromDomain creates a persistence model from a domain Category.
func CategoryModelFromDomain(c *pos.Category) *CategoryModel {
	return &CategoryModel{
		BaseModel: BaseModel{ID: c.ID, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt},
		Name:      c.Name,
		StationID: c.StationID,
		RKeeperID: c.RKeeperID,
	}
}

// MenuItemModel is the persistence model for the MenuItem entity.
type MenuItemModel struct {
	BaseModel
	Name                 string          `gorm:"type:varchar(200);not null"`
	NameSecondary        string          `gorm:"type:varchar(200)"`
	Description          string          `gorm:"type:text"`
	DescriptionSecondary string          `gorm:"type:text"`
	Price                decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Quantity             int64           `gorm:"not null"`
	RKeeperID            string          `gorm:"column:rkeeper_id;type:varchar(64);not null;uniqueIndex:idx_pos_menu_item_rkeeper_station,priority:1"`
	StationID            uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_pos_menu_item_rkeeper_station,priority:2"`
	CategoryID           *uuid.UUID      `gorm:"type:uuid;index"`
	IsAvailable          bool            `gorm:"not null;default:true"`
	LastSyncedAt         *time.Time
}

// TableName returns the table name for GORM
func (MenuItemModel) TableName() string {
	return "pos_menu_items"
}

// ToDomain converts the persistence model to a domain MenuItem.
func (m *MenuItemModel) ToDomain() *pos.MenuItem {
	return &pos.MenuItem{
		ID:                   m.ID,
		Name:                 m.Name,
		NameSecondary:        m.NameSecondary,
		Description:          m.Description,
		DescriptionSecondary: m.DescriptionSecondary,
		Price:                m.Price,
		Quantity:             m.Quantity,
		RKeeperID:            m.RKeeperID,
		StationID:            m.StationID,
		CategoryID:           m.CategoryID,
		IsAvailable:          m.IsAvailable,
		LastSyncedAt:         m.LastSyncedAt,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

// MenuItemModelFromDomain creates a persistence model from a domain MenuItem.
func MenuItemModelFromDomain(i *pos.MenuItem) *MenuItemModel {
	return &MenuItemModel{
		BaseModel:            BaseModel{ID: i.ID, CreatedAt: i.CreatedAt, UpdatedAt: i.UpdatedAt},
		Name:                 i.Name,
		NameSecondary:        i.NameSecondary,
		Description:          i.Description,
		DescriptionSecondary: i.DescriptionSecondary,
		Price:                i.Price,
		Quantity:             i.Quantity,
		RKeeperID:            i.RKeeperID,
		StationID:            i.StationID,
		CategoryID:           i.CategoryID,
		IsAvailable:          i.IsAvailable,
		LastSyncedAt:         i.LastSyncedAt,
	}
}

// WaiterModel is the persistence model for the Waiter entity.
type WaiterModel struct {
	BaseModel
	Name string `gorm:"type:varchar(100);not null"`
	Code string `gorm:"type:varchar(50);not null;uniqueIndex:idx_pos_waiter_code"`
}

// TableName returns the table name for GORM
func (WaiterModel) TableName() string {
	return "pos_waiters"
}

// ToDomain converts the persistence model to a domain Waiter.
func (m *WaiterModel) ToDomain() *pos.Waiter {
	return &pos.Waiter{ID: m.ID, Name: m.Name, Code: m.Code, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

// WaiterModelFromDomain creates a persistence model from a domain Waiter.
func WaiterModelFromDomain(w *pos.Waiter) *WaiterModel {
	return &WaiterModel{
		BaseModel: BaseModel{ID: w.ID, CreatedAt: w.CreatedAt, UpdatedAt: w.UpdatedAt},
		Name:      w.Name,
		Code:      w.Code,
	}
}

// TableModel is the persistence model for the Table entity.
type TableModel struct {
	BaseModel
	Name     string     `gorm:"type:varchar(100);not null"`
	Number   int        `gorm:"not null;uniqueIndex:idx_pos_table_number"`
	WaiterID *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (TableModel) TableName() string {
	return "pos_tables"
}

// ToDomain converts the persistence model to a domain Table.
func (m *TableModel) ToDomain() *pos.Table {
	return &pos.Table{
		ID:        m.ID,
		Name:      m.Name,
		Number:    m.Number,
		WaiterID:  m.WaiterID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// TableModelFromDomain creates a persistence model from a domain Table.
func TableModelFromDomain(t *pos.Table) *TableModel {
	return &TableModel{
		BaseModel: BaseModel{ID: t.ID, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt},
		Name:      t.Name,
		Number:    t.Number,
		WaiterID:  t.WaiterID,
	}
}

// OrderModel is the persistence model for the Order aggregate.
type OrderModel struct {
	BaseModel
	StationRef string           `gorm:"column:station_ref;type:varchar(64);index"`
	TableID    *uuid.UUID       `gorm:"type:uuid;index"`
	Table      *TableModel      `gorm:"foreignKey:TableID"`
	WaiterID   *uuid.UUID       `gorm:"type:uuid;index"`
	Waiter     *WaiterModel     `gorm:"foreignKey:WaiterID"`
	Total      decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	Status     pos.OrderStatus  `gorm:"type:varchar(20);not null;default:'new';index"`
	POSOrderID string           `gorm:"column:pos_order_id;type:varchar(64);index"`
	PaymentID  string           `gorm:"type:varchar(100)"`
	Comment    string           `gorm:"type:text"`
	Items      []OrderItemModel `gorm:"foreignKey:OrderID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "pos_orders"
}

// ToDomain converts the persistence model to a domain Order with whatever
// associations were preloaded.
func (m *OrderModel) ToDomain() *pos.Order {
	order := &pos.Order{
		ID:         m.ID,
		StationRef: m.StationRef,
		Total:      m.Total,
		Status:     m.Status,
		POSOrderID: m.POSOrderID,
		PaymentID:  m.PaymentID,
		Comment:    m.Comment,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
		Items:      make([]pos.OrderItem, len(m.Items)),
	}
	if m.Table != nil {
		order.Table = m.Table.ToDomain()
	}
	if m.Waiter != nil {
		order.Waiter = m.Waiter.ToDomain()
	}
	for i := range m.Items {
		order.Items[i] = *m.Items[i].ToDomain()
	}
	return order
}

// OrderModelFromDomain creates a persistence model from a domain Order.
// Associations are referenced by id only.
func OrderModelFromDomain(o *pos.Order) *OrderModel {
	m := &OrderModel{
		BaseModel:  BaseModel{ID: o.ID, CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt},
		StationRef: o.StationRef,
		Total:      o.Total,
		Status:     o.Status,
		POSOrderID: o.POSOrderID,
		PaymentID:  o.PaymentID,
		Comment:    o.Comment,
		Items:      make([]OrderItemModel, len(o.Items)),
	}
	if o.Table != nil {
		id := o.Table.ID
		m.TableID = &id
	}
	if o.Waiter != nil {
		id := o.Waiter.ID
		m.WaiterID = &id
	}
	for i := range o.Items {
		m.Items[i] = *OrderItemModelFromDomain(&o.Items[i])
	}
	return m
}

// OrderItemModel is the persistence model for an order line. The menu item
// foreign key is ON DELETE RESTRICT.
type OrderItemModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	MenuItemID uuid.UUID       `gorm:"type:uuid;not null;index"`
	MenuItem   *MenuItemModel  `gorm:"foreignKey:MenuItemID;constraint:OnDelete:RESTRICT"`
	Quantity   int             `gorm:"not null"`
	Price      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Comment    string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "pos_order_items"
}

// ToDomain converts the persistence model to a domain OrderItem.
func (m *OrderItemModel) ToDomain() *pos.OrderItem {
	item := &pos.OrderItem{
		ID:         m.ID,
		OrderID:    m.OrderID,
		MenuItemID: m.MenuItemID,
		Quantity:   m.Quantity,
		Price:      m.Price,
		Total:      m.Total,
		Comment:    m.Comment,
	}
	if m.MenuItem != nil {
		item.MenuItem = m.MenuItem.ToDomain()
	}
	return item
}

// OrderItemModelFromDomain creates a persistence model from a domain OrderItem.
func OrderItemModelFromDomain(i *pos.OrderItem) *OrderItemModel {
	return &OrderItemModel{
		ID:         i.ID,
		OrderID:    i.OrderID,
		MenuItemID: i.MenuItemID,
		Quantity:   i.Quantity,
		Price:      i.Price,
		Total:      i.Total,
		Comment:    i.Comment,
	}
}

// POSModels lists the models of the POS schema in dependency order.
func POSModels() []any {
	return []any{
		&StationModel{},
		&CategoryModel{},
		&MenuItemModel{},
		&WaiterModel{},
		&TableModel{},
		&OrderModel{},
		&OrderItemModel{},
	}
}
