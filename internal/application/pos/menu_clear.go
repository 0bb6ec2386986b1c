package pos

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ClearReport counts the rows touched by Clear
type ClearReport struct {
	ItemsDeleted      int64
	ItemsRetained     int64
	CategoriesDeleted int64
}

// Clear empties the local menu in one transaction. Items referenced by
// order lines cannot be deleted; they are kept as unavailable together with
// their categories, and the next sync brings back whatever the POS still
// offers.
func (s *MenuSynchronizer) Clear(ctx context.Context) (ClearReport, error) {
	var report ClearReport
	err := s.scope.Execute(ctx, func(repos MenuRepositories) error {
		var err error
		if report.ItemsDeleted, err = repos.MenuItems().DeleteAllUnreferenced(ctx); err != nil {
			return fmt.Errorf("failed to delete menu items: %w", err)
		}
		if report.ItemsRetained, err = repos.MenuItems().MarkAllUnavailable(ctx); err != nil {
			return fmt.Errorf("failed to retire referenced menu items: %w", err)
		}
		if report.CategoriesDeleted, err = repos.Categories().DeleteUnused(ctx); err != nil {
			return fmt.Errorf("failed to delete categories: %w", err)
		}
		return nil
	})
	if err != nil {
		return ClearReport{}, err
	}

	s.logger.Warn("Local menu cleared",
		zap.Int64("items_deleted", report.ItemsDeleted),
		zap.Int64("items_retained", report.ItemsRetained),
		zap.Int64("categories_deleted", report.CategoriesDeleted),
	)
	return report, nil
}
