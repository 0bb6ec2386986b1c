package pos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rkbridge/backend/internal/domain/pos"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// MenuGateway is the subset of the POS gateway used by menu sync
type MenuGateway interface {
	FetchDishReference(ctx context.Context) (map[string]pos.DishReference, error)
	FetchStationMenu(ctx context.Context, stationCode int) ([]pos.SnapshotItem, error)
}

// StationSyncResult is the outcome of one station's reconciliation
type StationSyncResult struct {
	StationID   uuid.UUID `json:"station_id"`
	StationName string    `json:"station_name"`
	Success     bool      `json:"success"`
	Created     int       `json:"created"`
	Updated     int       `json:"updated"`
	Unchanged   int       `json:"unchanged"`
	Removed     int       `json:"removed"`
	// Err is set when Success is false
	Err error `json:"-"`
	// Error mirrors Err for JSON output
	Error string `json:"error,omitempty"`
}

// SyncReport summarizes a sync run
type SyncReport struct {
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	References int                 `json:"references"`
	Stations   []StationSyncResult `json:"stations"`
}

// Succeeded returns the number of stations synced successfully
func (r *SyncReport) Succeeded() int {
	n := 0
	for _, s := range r.Stations {
		if s.Success {
			n++
		}
	}
	return n
}

// Failed returns the number of stations whose menu was left stale
func (r *SyncReport) Failed() int {
	return len(r.Stations) - r.Succeeded()
}

// MenuSynchronizerConfig contains configuration for MenuSynchronizer
type MenuSynchronizerConfig struct {
	RemovalPolicy pos.RemovalPolicy
}

// DefaultMenuSynchronizerConfig returns default configuration
func DefaultMenuSynchronizerConfig() MenuSynchronizerConfig {
	return MenuSynchronizerConfig{RemovalPolicy: pos.RemovalPolicySoft}
}

// MenuSynchronizer mirrors station order menus into local menu storage.
type MenuSynchronizer struct {
	gateway  MenuGateway
	stations pos.StationRepository
	scope    MenuTransactionScope
	config   MenuSynchronizerConfig
	metrics  Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewMenuSynchronizer creates a new MenuSynchronizer
func NewMenuSynchronizer(
	gateway MenuGateway,
	stations pos.StationRepository,
	scope MenuTransactionScope,
	logger *zap.Logger,
	config MenuSynchronizerConfig,
) *MenuSynchronizer {
	if !config.RemovalPolicy.IsValid() {
		config.RemovalPolicy = pos.RemovalPolicySoft
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MenuSynchronizer{
		gateway:  gateway,
		stations: stations,
		scope:    scope,
		config:   config,
		metrics:  noopMetrics{},
		logger:   logger,
		now:      time.Now,
	}
}

// SetMetrics sets the metrics sink
func (s *MenuSynchronizer) SetMetrics(m Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// SyncAll synchronizes every active station whose name matches one of the
// filters (all active stations when filters is empty).
//
// The dish reference table is fetched once and shared. An empty table aborts
// the run before any station is touched. A failing station is recorded in
// the report and the run continues.
func (s *MenuSynchronizer) SyncAll(ctx context.Context, filters []string) (*SyncReport, error) {
	report := &SyncReport{StartedAt: s.now()}

	refs, err := s.gateway.FetchDishReference(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dish reference: %w", err)
	}
	if len(refs) == 0 {
		return nil, pos.ErrEmptyDishReference
	}
	report.References = len(refs)
	s.logger.Info("Dish reference loaded", zap.Int("dishes", len(refs)))

	stations, err := s.stations.FindActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stations: %w", err)
	}

	for i := range stations {
		station := &stations[i]
		if !station.MatchesAny(filters) {
			continue
		}
		report.Stations = append(report.Stations, s.SyncStation(ctx, station, refs))
	}

	report.FinishedAt = s.now()
	s.logger.Info("Menu sync finished",
		zap.Int("stations", len(report.Stations)),
		zap.Int("succeeded", report.Succeeded()),
		zap.Int("failed", report.Failed()),
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

// SyncStation reconciles one station against its live order menu. Every
// write happens in one transaction; on failure the station keeps its
// previous menu.
func (s *MenuSynchronizer) SyncStation(ctx context.Context, station *pos.Station, refs map[string]pos.DishReference) StationSyncResult {
	result := StationSyncResult{StationID: station.ID, StationName: station.Name}
	logger := s.logger.With(zap.String("station", station.Name), zap.String("station_id", station.ID.String()))

	err := s.syncStation(ctx, station, refs, &result)
	if err != nil {
		result = StationSyncResult{
			StationID:   station.ID,
			StationName: station.Name,
			Err:         err,
			Error:       err.Error(),
		}
		logger.Error("Station menu sync failed, keeping previous menu", zap.Error(err))
	} else {
		result.Success = true
		logger.Info("Station menu synced",
			zap.Int("created", result.Created),
			zap.Int("updated", result.Updated),
			zap.Int("unchanged", result.Unchanged),
			zap.Int("removed", result.Removed),
			zap.String("removal_policy", s.config.RemovalPolicy.String()),
		)
	}

	s.metrics.RecordStationSync(ctx, station.Name, result.Success, result.Created, result.Updated, result.Removed)
	return result
}

func (s *MenuSynchronizer) syncStation(ctx context.Context, station *pos.Station, refs map[string]pos.DishReference, result *StationSyncResult) error {
	code, err := station.SyncCode()
	if err != nil {
		return err
	}

	items, err := s.gateway.FetchStationMenu(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to fetch order menu for station %d: %w", code, err)
	}
	if len(items) == 0 {
		return pos.ErrEmptyStationMenu
	}

	syncedAt := s.now()
	stationID := station.ID

	return s.scope.Execute(ctx, func(repos MenuRepositories) error {
		categories := make(map[string]*pos.Category)
		keep := make([]string, 0, len(items))
		seen := make(map[string]bool, len(items))

		for _, snap := range items {
			if snap.RKeeperID == "" || seen[snap.RKeeperID] {
				continue
			}
			seen[snap.RKeeperID] = true
			keep = append(keep, snap.RKeeperID)

			ref, known := refs[snap.RKeeperID]
			if !known {
				ref = pos.DishReference{Name: pos.UnnamedDish, Code: pos.UnknownDishCode, Category: pos.UncategorizedName}
			}

			name := normalizeCategoryName(ref.Category)
			category, ok := categories[name]
			if !ok {
				category, _, err = repos.Categories().GetOrCreate(ctx, name, &stationID)
				if err != nil {
					return fmt.Errorf("failed to resolve category %q: %w", name, err)
				}
				categories[name] = category
			}
			categoryID := category.ID

			menuSnap := pos.MenuSnapshot{
				Name:        ref.Name,
				Description: ref.Recipe,
				Price:       pos.PriceFromMinorUnits(snap.PriceMinor),
				Quantity:    pos.QuantityFromPOS(snap.Quantity),
				CategoryID:  &categoryID,
			}

			item, err := repos.MenuItems().FindByRKeeperID(ctx, stationID, snap.RKeeperID)
			switch {
			case errors.Is(err, pos.ErrMenuItemNotFound):
				item = pos.NewMenuItem(snap.RKeeperID, stationID, menuSnap, syncedAt)
				result.Created++
			case err != nil:
				return fmt.Errorf("failed to load menu item %s: %w", snap.RKeeperID, err)
			case item.ApplySnapshot(menuSnap, syncedAt):
				result.Updated++
			default:
				result.Unchanged++
			}

			if err := repos.MenuItems().Save(ctx, item); err != nil {
				return fmt.Errorf("failed to save menu item %s: %w", snap.RKeeperID, err)
			}
		}

		removed, err := s.reconcile(ctx, repos.MenuItems(), stationID, keep)
		if err != nil {
			return err
		}
		result.Removed = int(removed)
		return nil
	})
}

// reconcile applies the removal policy to items missing from the snapshot.
// Under the hard policy, items still referenced by order lines cannot be
// deleted and are marked unavailable instead.
func (s *MenuSynchronizer) reconcile(ctx context.Context, items pos.MenuItemRepository, stationID uuid.UUID, keep []string) (int64, error) {
	var removed int64
	if s.config.RemovalPolicy == pos.RemovalPolicyHard {
		deleted, err := items.DeleteUnreferencedExcept(ctx, stationID, keep)
		if err != nil {
			return 0, fmt.Errorf("failed to delete vanished menu items: %w", err)
		}
		removed += deleted
	}
	marked, err := items.MarkUnavailableExcept(ctx, stationID, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to mark vanished menu items unavailable: %w", err)
	}
	return removed + marked, nil
}

// normalizeCategoryName trims and NFC-normalizes a category label so that
// differently composed but identical names map to one category.
func normalizeCategoryName(name string) string {
	name = strings.TrimSpace(norm.NFC.String(name))
	if name == "" {
		return pos.UncategorizedName
	}
	return name
}
