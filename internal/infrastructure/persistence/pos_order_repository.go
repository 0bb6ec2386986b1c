package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rkbridge/backend/internal/domain/pos"
	"github.com/rkbridge/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements pos.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID loads the order with items, menu items, table and waiter
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*pos.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("pos_order_items.id") }).
		Preload("Items.MenuItem").
		Preload("Table").
		Preload("Waiter").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pos.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create stores a new order with its items in one transaction. Menu items,
// tables and waiters must already exist.
func (r *GormOrderRepository) Create(ctx context.Context, order *pos.Order) error {
	model := models.OrderModelFromDomain(order)
	items := model.Items
	model.Items = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Omit(clause.Associations).Create(&items).Error
	})
}

// UpdatePOSOrderID stores the POS order GUID
func (r *GormOrderRepository) UpdatePOSOrderID(ctx context.Context, id uuid.UUID, posOrderID string) error {
	return r.update(ctx, id, map[string]any{"pos_order_id": posOrderID})
}

// UpdateStatus stores the order status
func (r *GormOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status pos.OrderStatus) error {
	if !status.IsValid() {
		return pos.ErrInvalidStatus
	}
	return r.update(ctx, id, map[string]any{"status": status})
}

func (r *GormOrderRepository) update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	fields["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pos.ErrOrderNotFound
	}
	return nil
}

// Ensure GormOrderRepository implements pos.OrderRepository
var _ pos.OrderRepository = (*GormOrderRepository)(nil)
