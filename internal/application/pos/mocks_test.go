package pos

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rkbridge/backend/internal/domain/pos"
	"github.com/stretchr/testify/mock"
)

// MockGateway is a mock implementation of the POS gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) FetchDishReference(ctx context.Context) (map[string]pos.DishReference, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]pos.DishReference), args.Error(1)
}

func (m *MockGateway) FetchStationMenu(ctx context.Context, stationCode int) ([]pos.SnapshotItem, error) {
	args := m.Called(ctx, stationCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]pos.SnapshotItem), args.Error(1)
}

func (m *MockGateway) CreateOrder(ctx context.Context, cmd pos.CreateOrderCommand) (string, error) {
	args := m.Called(ctx, cmd)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) SaveOrder(ctx context.Context, cmd pos.SaveOrderCommand) (pos.SaveOrderResult, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(pos.SaveOrderResult), args.Error(1)
}

func (m *MockGateway) GetLicenseSeqNumber(ctx context.Context, creds pos.LicenseCredentials) (int64, error) {
	args := m.Called(ctx, creds)
	return args.Get(0).(int64), args.Error(1)
}

var _ pos.Gateway = (*MockGateway)(nil)

// MockStationRepository is a mock implementation of StationRepository
type MockStationRepository struct {
	mock.Mock
}

func (m *MockStationRepository) FindByID(ctx context.Context, id uuid.UUID) (*pos.Station, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pos.Station), args.Error(1)
}

func (m *MockStationRepository) FindByRKeeperID(ctx context.Context, rkeeperID string) (*pos.Station, error) {
	args := m.Called(ctx, rkeeperID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pos.Station), args.Error(1)
}

func (m *MockStationRepository) FindActive(ctx context.Context) ([]pos.Station, error) {
	args := m.Called(ctx)
	return args.Get(0).([]pos.Station), args.Error(1)
}

func (m *MockStationRepository) Save(ctx context.Context, station *pos.Station) error {
	args := m.Called(ctx, station)
	return args.Error(0)
}

// MockOrderRepository is a mock implementation of OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*pos.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pos.Order), args.Error(1)
}

func (m *MockOrderRepository) Create(ctx context.Context, order *pos.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdatePOSOrderID(ctx context.Context, id uuid.UUID, posOrderID string) error {
	args := m.Called(ctx, id, posOrderID)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status pos.OrderStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// MockOrderSaver is a mock implementation of OrderSaver
type MockOrderSaver struct {
	mock.Mock
}

func (m *MockOrderSaver) Save(ctx context.Context, cmd pos.SaveOrderCommand) (pos.SaveOrderResult, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(pos.SaveOrderResult), args.Error(1)
}

// memoryStore is a LicenseSequenceStore backed by a map. Like go-redis it
// fails calls made with a cancelled context.
type memoryStore struct {
	mu     sync.Mutex
	values map[string]int64
	err    error
	// onMiss runs once, outside the lock, the first time Get finds no key
	onMiss func()
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: make(map[string]int64)}
}

func (s *memoryStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.err
}

func (s *memoryStore) Get(ctx context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	if err := s.check(ctx); err != nil {
		s.mu.Unlock()
		return 0, false, err
	}
	v, ok := s.values[key]
	hook := s.onMiss
	if !ok {
		s.onMiss = nil
	}
	s.mu.Unlock()

	if !ok && hook != nil {
		hook()
	}
	return v, ok, nil
}

func (s *memoryStore) Set(ctx context.Context, key string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	s.values[key] = value
	return nil
}

func (s *memoryStore) SetIfAbsent(ctx context.Context, key string, value int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return false, err
	}
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value
	return true, nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	delete(s.values, key)
	return nil
}

func (s *memoryStore) Increment(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	s.values[key]++
	return s.values[key], nil
}

// menuStore keeps categories and menu items in memory and implements both
// menu repositories.
type menuStore struct {
	categories map[string]*pos.Category
	items      map[string]*pos.MenuItem
	referenced map[uuid.UUID]bool
	saves      int
	failSave   error
}

func newMenuStore() *menuStore {
	return &menuStore{
		categories: make(map[string]*pos.Category),
		items:      make(map[string]*pos.MenuItem),
		referenced: make(map[uuid.UUID]bool),
	}
}

func itemKey(stationID uuid.UUID, rkeeperID string) string {
	return stationID.String() + "/" + rkeeperID
}

func (s *menuStore) GetOrCreate(_ context.Context, name string, stationID *uuid.UUID) (*pos.Category, bool, error) {
	key := name
	if stationID != nil {
		key = stationID.String() + "/" + name
	}
	if c, ok := s.categories[key]; ok {
		return c, false, nil
	}
	c := pos.NewCategory(name, stationID)
	s.categories[key] = c
	return c, true, nil
}

func (s *menuStore) FindByStation(_ context.Context, stationID uuid.UUID) ([]pos.Category, error) {
	var out []pos.Category
	for _, c := range s.categories {
		if c.StationID != nil && *c.StationID == stationID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *menuStore) FindByID(_ context.Context, id uuid.UUID) (*pos.MenuItem, error) {
	for _, item := range s.items {
		if item.ID == id {
			cp := *item
			return &cp, nil
		}
	}
	return nil, pos.ErrMenuItemNotFound
}

func (s *menuStore) FindByRKeeperID(_ context.Context, stationID uuid.UUID, rkeeperID string) (*pos.MenuItem, error) {
	item, ok := s.items[itemKey(stationID, rkeeperID)]
	if !ok {
		return nil, pos.ErrMenuItemNotFound
	}
	cp := *item
	return &cp, nil
}

func (s *menuStore) itemsOf(stationID uuid.UUID) []pos.MenuItem {
	var out []pos.MenuItem
	for _, item := range s.items {
		if item.StationID == stationID {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RKeeperID < out[j].RKeeperID })
	return out
}

func (s *menuStore) MenuItemsByStation(_ context.Context, stationID uuid.UUID) ([]pos.MenuItem, error) {
	return s.itemsOf(stationID), nil
}

func (s *menuStore) Save(_ context.Context, item *pos.MenuItem) error {
	if s.failSave != nil {
		return s.failSave
	}
	s.saves++
	cp := *item
	s.items[itemKey(item.StationID, item.RKeeperID)] = &cp
	return nil
}

func contains(keep []string, id string) bool {
	for _, k := range keep {
		if k == id {
			return true
		}
	}
	return false
}

func (s *menuStore) MarkUnavailableExcept(_ context.Context, stationID uuid.UUID, keep []string) (int64, error) {
	var n int64
	for _, item := range s.items {
		if item.StationID == stationID && item.IsAvailable && !contains(keep, item.RKeeperID) {
			item.IsAvailable = false
			n++
		}
	}
	return n, nil
}

func (s *menuStore) DeleteUnreferencedExcept(_ context.Context, stationID uuid.UUID, keep []string) (int64, error) {
	var n int64
	for key, item := range s.items {
		if item.StationID == stationID && !contains(keep, item.RKeeperID) && !s.referenced[item.ID] {
			delete(s.items, key)
			n++
		}
	}
	return n, nil
}

func (s *menuStore) DeleteAllUnreferenced(context.Context) (int64, error) {
	var n int64
	for key, item := range s.items {
		if !s.referenced[item.ID] {
			delete(s.items, key)
			n++
		}
	}
	return n, nil
}

func (s *menuStore) MarkAllUnavailable(context.Context) (int64, error) {
	if s.failSave != nil {
		return 0, s.failSave
	}
	var n int64
	for _, item := range s.items {
		if item.IsAvailable {
			item.IsAvailable = false
			n++
		}
	}
	return n, nil
}

func (s *menuStore) DeleteUnused(context.Context) (int64, error) {
	used := make(map[uuid.UUID]bool)
	for _, item := range s.items {
		if item.CategoryID != nil {
			used[*item.CategoryID] = true
		}
	}
	var n int64
	for key, c := range s.categories {
		if !used[c.ID] {
			delete(s.categories, key)
			n++
		}
	}
	return n, nil
}

// menuItemRepo adapts menuStore to pos.MenuItemRepository, whose
// FindByStation collides with the category method of the same name.
type menuItemRepo struct{ *menuStore }

func (r menuItemRepo) FindByStation(ctx context.Context, stationID uuid.UUID) ([]pos.MenuItem, error) {
	return r.MenuItemsByStation(ctx, stationID)
}

var _ pos.CategoryRepository = (*menuStore)(nil)
var _ pos.MenuItemRepository = menuItemRepo{}

// rollbackScope copies the store before running fn and restores it on error.
type rollbackScope struct {
	store *menuStore
}

func (s *rollbackScope) Execute(_ context.Context, fn func(repos MenuRepositories) error) error {
	itemsBefore := make(map[string]*pos.MenuItem, len(s.store.items))
	for k, v := range s.store.items {
		cp := *v
		itemsBefore[k] = &cp
	}
	catsBefore := make(map[string]*pos.Category, len(s.store.categories))
	for k, v := range s.store.categories {
		catsBefore[k] = v
	}
	err := fn(NewNoOpMenuTransactionScope(s.store, menuItemRepo{s.store}))
	if err != nil {
		s.store.items = itemsBefore
		s.store.categories = catsBefore
	}
	return err
}

// recordingMetrics counts metric calls
type recordingMetrics struct {
	mu          sync.Mutex
	sequence    []string
	submissions []SubmitOutcome
	stations    map[string]bool
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{stations: make(map[string]bool)}
}

func (m *recordingMetrics) RecordSequenceEvent(_ context.Context, event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = append(m.sequence, event)
}

func (m *recordingMetrics) RecordStationSync(_ context.Context, station string, ok bool, _, _, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stations[station] = ok
}

func (m *recordingMetrics) RecordSubmission(_ context.Context, outcome SubmitOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions = append(m.submissions, outcome)
}
