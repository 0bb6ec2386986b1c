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

// GormCategoryRepository implements pos.CategoryRepository using GORM
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// GetOrCreate returns the category for (name, station), inserting it when
// absent. A concurrent insert of the same pair is resolved by re-reading.
func (r *GormCategoryRepository) GetOrCreate(ctx context.Context, name string, stationID *uuid.UUID) (*pos.Category, bool, error) {
	if existing, err := r.find(ctx, name, stationID); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, pos.ErrCategoryNotFound) {
		return nil, false, err
	}

	category := pos.NewCategory(name, stationID)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(models.CategoryModelFromDomain(category))
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 0 {
		existing, err := r.find(ctx, name, stationID)
		return existing, false, err
	}
	return category, true, nil
}

func (r *GormCategoryRepository) find(ctx context.Context, name string, stationID *uuid.UUID) (*pos.Category, error) {
	query := r.db.WithContext(ctx).Where("name = ?", name)
	if stationID == nil {
		query = query.Where("station_id IS NULL")
	} else {
		query = query.Where("station_id = ?", *stationID)
	}

	var model models.CategoryModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pos.ErrCategoryNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByStation returns the categories of a station ordered by name
func (r *GormCategoryRepository) FindByStation(ctx context.Context, stationID uuid.UUID) ([]pos.Category, error) {
	var categoryModels []models.CategoryModel
	if err := r.db.WithContext(ctx).
		Where("station_id = ?", stationID).
		Order("name ASC").
		Find(&categoryModels).Error; err != nil {
		return nil, err
	}

	categories := make([]pos.Category, len(categoryModels))
	for i, model := range categoryModels {
		categories[i] = *model.ToDomain()
	}
	return categories, nil
}

// DeleteUnused deletes categories that no menu item belongs to
func (r *GormCategoryRepository) DeleteUnused(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM pos_menu_items WHERE pos_menu_items.category_id = pos_categories.id)").
		Delete(&models.CategoryModel{})
	return result.RowsAffected, result.Error
}

// unreferencedItem matches menu items no order line points at; the
// RESTRICT foreign key rejects deleting any other.
const unreferencedItem = "NOT EXISTS (SELECT 1 FROM pos_order_items WHERE pos_order_items.menu_item_id = pos_menu_items.id)"

// GormMenuItemRepository implements pos.MenuItemRepository using GORM
type GormMenuItemRepository struct {
	db *gorm.DB
}

// NewGormMenuItemRepository creates a new GormMenuItemRepository
func NewGormMenuItemRepository(db *gorm.DB) *GormMenuItemRepository {
	return &GormMenuItemRepository{db: db}
}

// FindByID finds a menu item by its ID
func (r *GormMenuItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*pos.MenuItem, error) {
	var model models.MenuItemModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pos.ErrMenuItemNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByRKeeperID finds the item for (POS id, station)
func (r *GormMenuItemRepository) FindByRKeeperID(ctx context.Context, stationID uuid.UUID, rkeeperID string) (*pos.MenuItem, error) {
	var model models.MenuItemModel
	if err := r.db.WithContext(ctx).
		Where("station_id = ? AND rkeeper_id = ?", stationID, rkeeperID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pos.ErrMenuItemNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByStation returns every item of a station, available or not
func (r *GormMenuItemRepository) FindByStation(ctx context.Context, stationID uuid.UUID) ([]pos.MenuItem, error) {
	var itemModels []models.MenuItemModel
	if err := r.db.WithContext(ctx).
		Where("station_id = ?", stationID).
		Order("rkeeper_id ASC").
		Find(&itemModels).Error; err != nil {
		return nil, err
	}

	items := make([]pos.MenuItem, len(itemModels))
	for i, model := range itemModels {
		items[i] = *model.ToDomain()
	}
	return items, nil
}

// Save creates or updates a menu item
func (r *GormMenuItemRepository) Save(ctx context.Context, item *pos.MenuItem) error {
	return r.db.WithContext(ctx).Save(models.MenuItemModelFromDomain(item)).Error
}

// MarkUnavailableExcept flags available station items whose POS id is not in keep
func (r *GormMenuItemRepository) MarkUnavailableExcept(ctx context.Context, stationID uuid.UUID, keep []string) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.MenuItemModel{}).
		Where("station_id = ? AND is_available = ?", stationID, true)
	if len(keep) > 0 {
		query = query.Where("rkeeper_id NOT IN ?", keep)
	}

	result := query.Updates(map[string]any{
		"is_available": false,
		"updated_at":   time.Now(),
	})
	return result.RowsAffected, result.Error
}

// DeleteUnreferencedExcept deletes station items whose POS id is not in keep
// and that no order line references. Referenced rows are left for
// MarkUnavailableExcept, so the RESTRICT foreign key never fires.
func (r *GormMenuItemRepository) DeleteUnreferencedExcept(ctx context.Context, stationID uuid.UUID, keep []string) (int64, error) {
	query := r.db.WithContext(ctx).
		Where("station_id = ?", stationID).
		Where(unreferencedItem)
	if len(keep) > 0 {
		query = query.Where("rkeeper_id NOT IN ?", keep)
	}

	result := query.Delete(&models.MenuItemModel{})
	return result.RowsAffected, result.Error
}

// DeleteAllUnreferenced deletes items of every station that no order line
// references
func (r *GormMenuItemRepository) DeleteAllUnreferenced(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where(unreferencedItem).
		Delete(&models.MenuItemModel{})
	return result.RowsAffected, result.Error
}

// MarkAllUnavailable flags every available item as unavailable
func (r *GormMenuItemRepository) MarkAllUnavailable(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.MenuItemModel{}).
		Where("is_available = ?", true).
		Updates(map[string]any{
			"is_available": false,
			"updated_at":   time.Now(),
		})
	return result.RowsAffected, result.Error
}

// Ensure the repositories implement their domain interfaces
var _ pos.CategoryRepository = (*GormCategoryRepository)(nil)
var _ pos.MenuItemRepository = (*GormMenuItemRepository)(nil)
