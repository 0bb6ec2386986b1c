package persistence

import (
	"context"

	apppos "github.com/rkbridge/backend/internal/application/pos"
	"github.com/rkbridge/backend/internal/domain/pos"
	"gorm.io/gorm"
)

// GormMenuTransactionScope implements MenuTransactionScope using GORM transactions.
type GormMenuTransactionScope struct {
	db *gorm.DB
}

// NewGormMenuTransactionScope creates a new GormMenuTransactionScope.
func NewGormMenuTransactionScope(db *gorm.DB) *GormMenuTransactionScope {
	return &GormMenuTransactionScope{db: db}
}

// Execute runs fn in a transaction. An error from fn rolls back every
// category and menu item write made through the provided repositories.
func (s *GormMenuTransactionScope) Execute(ctx context.Context, fn func(repos apppos.MenuRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormMenuRepositories{tx: tx})
	})
}

// gormMenuRepositories provides the menu repositories bound to one transaction.
type gormMenuRepositories struct {
	tx *gorm.DB
}

// Categories returns the category repository scoped to the current transaction.
func (r *gormMenuRepositories) Categories() pos.CategoryRepository {
	return NewGormCategoryRepository(r.tx)
}

// MenuItems returns the menu item repository scoped to the current transaction.
func (r *gormMenuRepositories) MenuItems() pos.MenuItemRepository {
	return NewGormMenuItemRepository(r.tx)
}

var _ apppos.MenuTransactionScope = (*GormMenuTransactionScope)(nil)
var _ apppos.MenuRepositories = (*gormMenuRepositories)(nil)
