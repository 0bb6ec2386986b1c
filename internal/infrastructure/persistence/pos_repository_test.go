package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	apppos "github.com/rkbridge/backend/internal/application/pos"
	"github.com/rkbridge/backend/internal/domain/pos"
	"github.com/rkbridge/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupPOSTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// one connection, so every query sees the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)
	require.NoError(t, db.AutoMigrate(models.POSModels()...))
	return db
}

func seedStation(t *testing.T, db *gorm.DB, name string, code *int) *pos.Station {
	station, err := pos.NewStation(name, "ST-"+name, code)
	require.NoError(t, err)
	require.NoError(t, NewGormStationRepository(db).Save(context.Background(), station))
	return station
}

func intPtr(v int) *int { return &v }

func TestGormStationRepository(t *testing.T) {
	db := setupPOSTestDB(t)
	repo := NewGormStationRepository(db)
	ctx := context.Background()

	bar := seedStation(t, db, "Bar", intPtr(15002))
	hall := seedStation(t, db, "Hall", nil)
	closed := seedStation(t, db, "Closed", intPtr(3))
	closed.Deactivate()
	require.NoError(t, repo.Save(ctx, closed))

	t.Run("find by rkeeper id", func(t *testing.T) {
		found, err := repo.FindByRKeeperID(ctx, "ST-Bar")
		require.NoError(t, err)
		assert.Equal(t, bar.ID, found.ID)
		require.NotNil(t, found.Code)
		assert.Equal(t, 15002, *found.Code)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.FindByRKeeperID(ctx, "missing")
		assert.ErrorIs(t, err, pos.ErrStationNotFound)
		_, err = repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, pos.ErrStationNotFound)
	})

	t.Run("active stations ordered by name", func(t *testing.T) {
		active, err := repo.FindActive(ctx)
		require.NoError(t, err)
		require.Len(t, active, 2)
		assert.Equal(t, bar.ID, active[0].ID)
		assert.Equal(t, hall.ID, active[1].ID)
		assert.Nil(t, active[1].Code)
	})
}

func TestGormCategoryRepository_GetOrCreate(t *testing.T) {
	db := setupPOSTestDB(t)
	repo := NewGormCategoryRepository(db)
	ctx := context.Background()
	station := seedStation(t, db, "Bar", intPtr(1))
	other := seedStation(t, db, "Hall", intPtr(2))

	first, created, err := repo.GetOrCreate(ctx, "Soups", &station.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "CAT_Soups", first.RKeeperID)

	again, created, err := repo.GetOrCreate(ctx, "Soups", &station.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	elsewhere, created, err := repo.GetOrCreate(ctx, "Soups", &other.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, elsewhere.ID)

	general, created, err := repo.GetOrCreate(ctx, "Soups", nil)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Nil(t, general.StationID)

	generalAgain, created, err := repo.GetOrCreate(ctx, "Soups", nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, general.ID, generalAgain.ID)

	cats, err := repo.FindByStation(ctx, station.ID)
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}

func TestGormMenuItemRepository(t *testing.T) {
	db := setupPOSTestDB(t)
	repo := NewGormMenuItemRepository(db)
	ctx := context.Background()
	station := seedStation(t, db, "Bar", intPtr(1))
	now := time.Now().UTC().Truncate(time.Second)

	snap := pos.MenuSnapshot{Name: "Borscht", Price: decimal.RequireFromString("1500.00"), Quantity: pos.UnlimitedQuantity}
	item := pos.NewMenuItem("1001", station.ID, snap, now)
	require.NoError(t, repo.Save(ctx, item))
	require.NoError(t, repo.Save(ctx, pos.NewMenuItem("1002", station.ID, snap, now)))
	require.NoError(t, repo.Save(ctx, pos.NewMenuItem("1003", station.ID, snap, now)))

	t.Run("find by rkeeper id", func(t *testing.T) {
		found, err := repo.FindByRKeeperID(ctx, station.ID, "1001")
		require.NoError(t, err)
		assert.Equal(t, item.ID, found.ID)
		assert.True(t, found.Price.Equal(decimal.RequireFromString("1500")))
		assert.Equal(t, int64(2147483647), found.Quantity)

		_, err = repo.FindByRKeeperID(ctx, uuid.New(), "1001")
		assert.ErrorIs(t, err, pos.ErrMenuItemNotFound)
	})

	t.Run("unique per station", func(t *testing.T) {
		dup := pos.NewMenuItem("1001", station.ID, snap, now)
		assert.Error(t, repo.Save(ctx, dup))
	})

	t.Run("mark unavailable except", func(t *testing.T) {
		n, err := repo.MarkUnavailableExcept(ctx, station.ID, []string{"1001"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = repo.MarkUnavailableExcept(ctx, station.ID, []string{"1001"})
		require.NoError(t, err)
		assert.Zero(t, n, "already unavailable items are not counted twice")

		items, err := repo.FindByStation(ctx, station.ID)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.True(t, items[0].IsAvailable)
		assert.False(t, items[1].IsAvailable)
		assert.False(t, items[2].IsAvailable)
	})
}

func TestGormMenuItemRepository_DeleteUnreferencedExcept(t *testing.T) {
	db := setupPOSTestDB(t)
	ctx := context.Background()
	items := NewGormMenuItemRepository(db)
	orders := NewGormOrderRepository(db)
	station := seedStation(t, db, "Bar", intPtr(1))
	now := time.Now()

	snap := pos.MenuSnapshot{Name: "Dish", Price: decimal.NewFromInt(10), Quantity: 1}
	kept := pos.NewMenuItem("1001", station.ID, snap, now)
	ordered := pos.NewMenuItem("1002", station.ID, snap, now)
	orphan := pos.NewMenuItem("1003", station.ID, snap, now)
	for _, it := range []*pos.MenuItem{kept, ordered, orphan} {
		require.NoError(t, items.Save(ctx, it))
	}

	order, err := pos.NewOrder(station.RKeeperID, nil, nil, "", []pos.OrderLine{{MenuItem: ordered, Quantity: 1}})
	require.NoError(t, err)
	require.NoError(t, orders.Create(ctx, order))

	n, err := items.DeleteUnreferencedExcept(ctx, station.ID, []string{"1001"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = items.FindByID(ctx, orphan.ID)
	assert.ErrorIs(t, err, pos.ErrMenuItemNotFound)
	_, err = items.FindByID(ctx, ordered.ID)
	assert.NoError(t, err, "referenced item survives")
}

func TestGormOrderRepository(t *testing.T) {
	db := setupPOSTestDB(t)
	ctx := context.Background()
	repo := NewGormOrderRepository(db)
	staff := NewGormStaffRepository(db)
	items := NewGormMenuItemRepository(db)
	station := seedStation(t, db, "Bar", intPtr(1))

	waiter := pos.NewWaiter("Anna", "W7")
	require.NoError(t, staff.SaveWaiter(ctx, waiter))
	table := pos.NewTable("Terrace", 12)
	table.AssignWaiter(waiter)
	require.NoError(t, staff.SaveTable(ctx, table))

	menu := pos.NewMenuItem("1001", station.ID, pos.MenuSnapshot{Name: "Borscht", Price: decimal.RequireFromString("12.50"), Quantity: 1}, time.Now())
	require.NoError(t, items.Save(ctx, menu))

	order, err := pos.NewOrder(station.RKeeperID, table, waiter, "No onions", []pos.OrderLine{
		{MenuItem: menu, Quantity: 2, Comment: "hot"},
	})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, order))

	t.Run("find preloads associations", func(t *testing.T) {
		found, err := repo.FindByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, pos.OrderStatusNew, found.Status)
		assert.True(t, found.Total.Equal(decimal.RequireFromString("25.00")))
		require.NotNil(t, found.Table)
		assert.Equal(t, 12, found.Table.Number)
		require.NotNil(t, found.Waiter)
		assert.Equal(t, "W7", found.Waiter.Code)
		require.Len(t, found.Items, 1)
		require.NotNil(t, found.Items[0].MenuItem)
		assert.Equal(t, "1001", found.Items[0].MenuItem.RKeeperID)
		assert.Equal(t, "hot", found.Items[0].Comment)
	})

	t.Run("updates pos order id and status", func(t *testing.T) {
		require.NoError(t, repo.UpdatePOSOrderID(ctx, order.ID, "{GUID}"))
		require.NoError(t, repo.UpdateStatus(ctx, order.ID, pos.OrderStatusProcessing))

		found, err := repo.FindByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, "{GUID}", found.POSOrderID)
		assert.Equal(t, pos.OrderStatusProcessing, found.Status)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, pos.ErrOrderNotFound)
		assert.ErrorIs(t, repo.UpdateStatus(ctx, uuid.New(), pos.OrderStatusFailed), pos.ErrOrderNotFound)
		assert.ErrorIs(t, repo.UpdateStatus(ctx, order.ID, pos.OrderStatus("bogus")), pos.ErrInvalidStatus)
	})

	t.Run("referenced menu item cannot be deleted", func(t *testing.T) {
		err := db.Delete(&models.MenuItemModel{}, "id = ?", menu.ID).Error
		assert.Error(t, err)
	})

	t.Run("staff lookups", func(t *testing.T) {
		w, err := staff.FindWaiterByCode(ctx, "W7")
		require.NoError(t, err)
		assert.Equal(t, waiter.ID, w.ID)

		tb, err := staff.FindTableByNumber(ctx, 12)
		require.NoError(t, err)
		require.NotNil(t, tb.WaiterID)
		assert.Equal(t, waiter.ID, *tb.WaiterID)

		_, err = staff.FindWaiterByCode(ctx, "nobody")
		assert.ErrorIs(t, err, pos.ErrWaiterNotFound)
		_, err = staff.FindTableByNumber(ctx, 99)
		assert.ErrorIs(t, err, pos.ErrTableNotFound)
	})
}

// stubMenuGateway serves a fixed reference table and per-station snapshots
type stubMenuGateway struct {
	refs  map[string]pos.DishReference
	menus map[int][]pos.SnapshotItem
}

func (g *stubMenuGateway) FetchDishReference(context.Context) (map[string]pos.DishReference, error) {
	return g.refs, nil
}

func (g *stubMenuGateway) FetchStationMenu(_ context.Context, code int) ([]pos.SnapshotItem, error) {
	items, ok := g.menus[code]
	if !ok {
		return nil, errors.New("station offline")
	}
	return items, nil
}

func TestGormMenuTransactionScope_SyncRoundTrip(t *testing.T) {
	db := setupPOSTestDB(t)
	ctx := context.Background()
	bar := seedStation(t, db, "Bar", intPtr(1))
	seedStation(t, db, "Hall", intPtr(2))

	gw := &stubMenuGateway{
		refs: map[string]pos.DishReference{
			"1001": {Name: "Borscht", Category: "Soups"},
			"1002": {Name: "Kompot", Category: "Drinks"},
		},
		menus: map[int][]pos.SnapshotItem{
			1: {{RKeeperID: "1001", PriceMinor: 150000}, {RKeeperID: "1002", PriceMinor: 5000, Quantity: 5}},
		},
	}

	sync := apppos.NewMenuSynchronizer(gw, NewGormStationRepository(db), NewGormMenuTransactionScope(db),
		zap.NewNop(), apppos.MenuSynchronizerConfig{RemovalPolicy: pos.RemovalPolicyHard})

	report, err := sync.SyncAll(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded())
	assert.Equal(t, 1, report.Failed(), "offline station is reported, not fatal")

	items, err := NewGormMenuItemRepository(db).FindByStation(ctx, bar.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[0].Price.Equal(decimal.RequireFromString("1500.00")))
	assert.Equal(t, pos.UnlimitedQuantity, items[0].Quantity)
	assert.Equal(t, int64(5), items[1].Quantity)

	// second run with 1002 gone: hard policy removes it
	gw.menus[1] = []pos.SnapshotItem{{RKeeperID: "1001", PriceMinor: 150000}}
	report, err = sync.SyncAll(ctx, []string{"bar"})
	require.NoError(t, err)
	require.Len(t, report.Stations, 1)
	assert.Equal(t, 1, report.Stations[0].Removed)
	assert.Equal(t, 1, report.Stations[0].Unchanged)

	items, err = NewGormMenuItemRepository(db).FindByStation(ctx, bar.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	cats, err := NewGormCategoryRepository(db).FindByStation(ctx, bar.ID)
	require.NoError(t, err)
	assert.Len(t, cats, 2)
}

func TestGormMenuTransactionScope_ClearMenu(t *testing.T) {
	db := setupPOSTestDB(t)
	ctx := context.Background()
	bar := seedStation(t, db, "Bar", intPtr(1))

	gw := &stubMenuGateway{
		refs: map[string]pos.DishReference{
			"1001": {Name: "Borscht", Category: "Soups"},
			"1002": {Name: "Kompot", Category: "Drinks"},
		},
		menus: map[int][]pos.SnapshotItem{
			1: {{RKeeperID: "1001", PriceMinor: 150000}, {RKeeperID: "1002", PriceMinor: 5000}},
		},
	}
	sync := apppos.NewMenuSynchronizer(gw, NewGormStationRepository(db), NewGormMenuTransactionScope(db),
		zap.NewNop(), apppos.DefaultMenuSynchronizerConfig())
	_, err := sync.SyncAll(ctx, nil)
	require.NoError(t, err)

	items := NewGormMenuItemRepository(db)
	kompot, err := items.FindByRKeeperID(ctx, bar.ID, "1002")
	require.NoError(t, err)
	order, err := pos.NewOrder(bar.RKeeperID, nil, nil, "", []pos.OrderLine{{MenuItem: kompot, Quantity: 1}})
	require.NoError(t, err)
	require.NoError(t, NewGormOrderRepository(db).Create(ctx, order))

	report, err := sync.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.ItemsDeleted)
	assert.Equal(t, int64(1), report.ItemsRetained)
	assert.Equal(t, int64(1), report.CategoriesDeleted)

	left, err := items.FindByStation(ctx, bar.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "1002", left[0].RKeeperID)
	assert.False(t, left[0].IsAvailable)

	cats, err := NewGormCategoryRepository(db).FindByStation(ctx, bar.ID)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Drinks", cats[0].Name)

	// order history still resolves its line
	loaded, err := NewGormOrderRepository(db).FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
}
