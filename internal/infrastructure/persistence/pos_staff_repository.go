package persistence

import (
	"context"
	"errors"

	"github.com/rkbridge/backend/internal/domain/pos"
	"github.com/rkbridge/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStaffRepository implements pos.StaffRepository using GORM
type GormStaffRepository struct {
	db *gorm.DB
}

// NewGormStaffRepository creates a new GormStaffRepository
func NewGormStaffRepository(db *gorm.DB) *GormStaffRepository {
	return &GormStaffRepository{db: db}
}

// SaveWaiter creates or updates a waiter
func (r *GormStaffRepository) SaveWaiter(ctx context.Context, waiter *pos.Waiter) error {
	return r.db.WithContext(ctx).Save(models.WaiterModelFromDomain(waiter)).Error
}

// FindWaiterByCode finds a waiter by POS code
func (r *GormStaffRepository) FindWaiterByCode(ctx context.Context, code string) (*pos.Waiter, error) {
	var model models.WaiterModel
	if err := r.db.WithContext(ctx).First(&model, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pos.ErrWaiterNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// SaveTable creates or updates a table
func (r *GormStaffRepository) SaveTable(ctx context.Context, table *pos.Table) error {
	return r.db.WithContext(ctx).Save(models.TableModelFromDomain(table)).Error
}

// FindTableByNumber finds a table by number
func (r *GormStaffRepository) FindTableByNumber(ctx context.Context, number int) (*pos.Table, error) {
	var model models.TableModel
	if err := r.db.WithContext(ctx).First(&model, "number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pos.ErrTableNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormStaffRepository implements pos.StaffRepository
var _ pos.StaffRepository = (*GormStaffRepository)(nil)
