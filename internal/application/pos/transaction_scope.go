package pos

import (
	"context"

	"github.com/rkbridge/backend/internal/domain/pos"
)

// MenuTransactionScope runs one station's menu reconciliation atomically.
// If fn returns an error, every category and menu item write is rolled back.
type MenuTransactionScope interface {
	Execute(ctx context.Context, fn func(repos MenuRepositories) error) error
}

// MenuRepositories are the repositories bound to the current transaction.
type MenuRepositories interface {
	Categories() pos.CategoryRepository
	MenuItems() pos.MenuItemRepository
}

// NoOpMenuTransactionScope runs without a transaction. Used in tests.
type NoOpMenuTransactionScope struct {
	categories pos.CategoryRepository
	menuItems  pos.MenuItemRepository
}

// NewNoOpMenuTransactionScope creates a NoOpMenuTransactionScope with the given repositories.
func NewNoOpMenuTransactionScope(categories pos.CategoryRepository, menuItems pos.MenuItemRepository) *NoOpMenuTransactionScope {
	return &NoOpMenuTransactionScope{categories: categories, menuItems: menuItems}
}

// Execute runs the function directly
func (s *NoOpMenuTransactionScope) Execute(_ context.Context, fn func(repos MenuRepositories) error) error {
	return fn(s)
}

// Categories returns the category repository.
func (s *NoOpMenuTransactionScope) Categories() pos.CategoryRepository {
	return s.categories
}

// MenuItems returns the menu item repository.
func (s *NoOpMenuTransactionScope) MenuItems() pos.MenuItemRepository {
	return s.menuItems
}

var _ MenuTransactionScope = (*NoOpMenuTransactionScope)(nil)
var _ MenuRepositories = (*NoOpMenuTransactionScope)(nil)
