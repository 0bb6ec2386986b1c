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
)

// SubmitOutcome tags the result of an order submission
type SubmitOutcome string

const (
	// OutcomeSubmitted means the POS created the order and accepted its dishes
	OutcomeSubmitted SubmitOutcome = "submitted"
	// OutcomePartiallySubmitted means the POS order exists but the dishes were not saved
	OutcomePartiallySubmitted SubmitOutcome = "partially_submitted"
	// OutcomeFailed means no POS order could be used
	OutcomeFailed SubmitOutcome = "failed"
)

// String returns the string representation of SubmitOutcome
func (o SubmitOutcome) String() string {
	return string(o)
}

// SubmitResult is the tagged result of Submit. POSOrderID is only ever a
// GUID issued by the POS.
type SubmitResult struct {
	OrderID    uuid.UUID
	Outcome    SubmitOutcome
	POSOrderID string
	Err        error
}

// OrderGateway is the subset of the POS gateway used to open orders
type OrderGateway interface {
	CreateOrder(ctx context.Context, cmd pos.CreateOrderCommand) (string, error)
}

// OrderSaver saves dishes onto a POS order. LicenseSequenceCoordinator
// implements it.
type OrderSaver interface {
	Save(ctx context.Context, cmd pos.SaveOrderCommand) (pos.SaveOrderResult, error)
}

// OrderSubmissionConfig contains configuration for OrderSubmissionService
type OrderSubmissionConfig struct {
	DefaultStationCode int
	// LockTTL bounds how long a crashed worker can block an order
	LockTTL time.Duration
}

// DefaultSubmissionLockTTL covers CreateOrder plus the full save retry budget
const DefaultSubmissionLockTTL = 2 * time.Minute

// OrderSubmissionService pushes local orders to the POS.
type OrderSubmissionService struct {
	orders   pos.OrderRepository
	stations pos.StationRepository
	gateway  OrderGateway
	saver    OrderSaver
	lock     pos.SubmissionLock
	config   OrderSubmissionConfig
	metrics  Metrics
	logger   *zap.Logger
}

// NewOrderSubmissionService creates a new OrderSubmissionService
func NewOrderSubmissionService(
	orders pos.OrderRepository,
	stations pos.StationRepository,
	gateway OrderGateway,
	saver OrderSaver,
	logger *zap.Logger,
	config OrderSubmissionConfig,
) *OrderSubmissionService {
	if config.DefaultStationCode <= 0 {
		config.DefaultStationCode = pos.DefaultStationCode
	}
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultSubmissionLockTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderSubmissionService{
		orders:   orders,
		stations: stations,
		gateway:  gateway,
		saver:    saver,
		config:   config,
		metrics:  noopMetrics{},
		logger:   logger,
	}
}

// SetMetrics sets the metrics sink
func (s *OrderSubmissionService) SetMetrics(m Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// Submit creates the order on the POS and saves its dishes.
//
// The POS GUID is stored as soon as CreateOrder returns it, and an order
// that already carries one reuses it instead of opening a second POS order.
// The order moves to processing only when the POS accepted the save; a
// failed CreateOrder moves it to failed; a failed save leaves the status
// unchanged and returns the GUID as partially submitted.
func (s *OrderSubmissionService) Submit(ctx context.Context, orderID uuid.UUID) SubmitResult {
	result := s.submitLocked(ctx, orderID)
	s.metrics.RecordSubmission(ctx, result.Outcome)
	return result
}

// SetLock enables cross-worker submission locking
func (s *OrderSubmissionService) SetLock(l pos.SubmissionLock) {
	s.lock = l
}

// SubmissionLockKey is the lock key of one order
func SubmissionLockKey(orderID uuid.UUID) string {
	return "pos:order:submit:" + orderID.String()
}

func (s *OrderSubmissionService) submitLocked(ctx context.Context, orderID uuid.UUID) SubmitResult {
	if s.lock == nil {
		return s.submit(ctx, orderID)
	}

	key := SubmissionLockKey(orderID)
	acquired, err := s.lock.TryLock(ctx, key, s.config.LockTTL)
	if err != nil {
		return SubmitResult{OrderID: orderID, Outcome: OutcomeFailed, Err: fmt.Errorf("acquire submission lock: %w", err)}
	}
	if !acquired {
		return SubmitResult{OrderID: orderID, Outcome: OutcomeFailed, Err: pos.ErrSubmissionInProgress}
	}
	defer func() {
		if err := s.lock.Unlock(context.WithoutCancel(ctx), key); err != nil {
			s.logger.Warn("Failed to release submission lock", zap.String("order_id", orderID.String()), zap.Error(err))
		}
	}()
	return s.submit(ctx, orderID)
}

func (s *OrderSubmissionService) submit(ctx context.Context, orderID uuid.UUID) SubmitResult {
	logger := s.logger.With(zap.String("order_id", orderID.String()))
	failed := func(err error) SubmitResult {
		return SubmitResult{OrderID: orderID, Outcome: OutcomeFailed, Err: err}
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return failed(err)
	}
	if !order.CanSubmit() {
		return failed(fmt.Errorf("%w: status %s", pos.ErrOrderNotSubmittable, order.Status))
	}

	dishes := s.dishLines(order, logger)
	if len(dishes) == 0 {
		logger.Error("Order has no dishes with a POS id")
		s.markFailed(ctx, order, logger)
		return failed(pos.ErrNoDishLines)
	}

	stationCode := s.resolveStationCode(ctx, order, logger)

	// Once the POS has been called, local bookkeeping must finish even if
	// the caller goes away.
	persistCtx := context.WithoutCancel(ctx)

	guid := order.POSOrderID
	if guid != "" {
		logger.Info("Reusing existing POS order", zap.String("pos_order_id", guid))
	} else {
		guid, err = s.gateway.CreateOrder(ctx, pos.CreateOrderCommand{
			TableCode:   tableNumber(order),
			StationCode: stationCode,
			WaiterCode:  waiterCode(order),
			Comment:     BuildOrderComment(order),
		})
		if err != nil {
			logger.Error("Failed to create POS order", zap.Error(err))
			s.markFailed(persistCtx, order, logger)
			return failed(fmt.Errorf("%w: %w", pos.ErrOrderCreateFailed, err))
		}

		if err := order.AssignPOSOrderID(guid); err != nil {
			return failed(err)
		}
		if err := s.orders.UpdatePOSOrderID(persistCtx, order.ID, guid); err != nil {
			logger.Error("Failed to store POS order id", zap.String("pos_order_id", guid), zap.Error(err))
			return SubmitResult{OrderID: orderID, Outcome: OutcomeFailed, POSOrderID: guid, Err: err}
		}
		logger.Info("POS order created", zap.String("pos_order_id", guid), zap.Int("station_code", stationCode))
	}

	_, err = s.saver.Save(persistCtx, pos.SaveOrderCommand{
		OrderGUID:   guid,
		StationCode: stationCode,
		Dishes:      dishes,
	})
	if err != nil {
		logger.Error("Failed to save dishes to POS order",
			zap.String("pos_order_id", guid),
			zap.Error(err),
		)
		return SubmitResult{OrderID: orderID, Outcome: OutcomePartiallySubmitted, POSOrderID: guid, Err: err}
	}

	submitted := SubmitResult{OrderID: orderID, Outcome: OutcomeSubmitted, POSOrderID: guid}
	if err := order.TransitionTo(pos.OrderStatusProcessing); err != nil {
		submitted.Err = err
		return submitted
	}
	if err := s.orders.UpdateStatus(persistCtx, order.ID, order.Status); err != nil {
		logger.Error("Order saved on POS but status update failed", zap.Error(err))
		submitted.Err = err
		return submitted
	}

	logger.Info("Order submitted to POS",
		zap.String("pos_order_id", guid),
		zap.Int("dishes", len(dishes)),
	)
	return submitted
}

// resolveStationCode maps the order's station reference to a station code,
// falling back to the configured default.
func (s *OrderSubmissionService) resolveStationCode(ctx context.Context, order *pos.Order, logger *zap.Logger) int {
	fallback := func(reason string, err error) int {
		fields := []zap.Field{
			zap.String("station_ref", order.StationRef),
			zap.Int("default_station_code", s.config.DefaultStationCode),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		logger.Warn(reason+", using default station code", fields...)
		return s.config.DefaultStationCode
	}

	if order.StationRef == "" {
		return fallback("Order has no station", nil)
	}
	station, err := s.stations.FindByRKeeperID(ctx, order.StationRef)
	if err != nil {
		if errors.Is(err, pos.ErrStationNotFound) {
			return fallback("Station not found", nil)
		}
		return fallback("Station lookup failed", err)
	}
	code, err := station.SyncCode()
	if err != nil {
		return fallback("Station has no code", nil)
	}
	return code
}

func (s *OrderSubmissionService) dishLines(order *pos.Order, logger *zap.Logger) []pos.DishLine {
	lines := make([]pos.DishLine, 0, len(order.Items))
	for _, item := range order.Items {
		if item.MenuItem == nil || item.MenuItem.RKeeperID == "" {
			name := ""
			if item.MenuItem != nil {
				name = item.MenuItem.Name
			}
			logger.Warn("Skipping order line without POS id",
				zap.String("order_item_id", item.ID.String()),
				zap.String("menu_item", name),
			)
			continue
		}
		lines = append(lines, pos.DishLine{
			RKeeperID: item.MenuItem.RKeeperID,
			Quantity:  item.Quantity,
			Comment:   item.Comment,
		})
	}
	return lines
}

func (s *OrderSubmissionService) markFailed(ctx context.Context, order *pos.Order, logger *zap.Logger) {
	if err := order.TransitionTo(pos.OrderStatusFailed); err != nil {
		logger.Warn("Order status not changed", zap.Error(err))
		return
	}
	if err := s.orders.UpdateStatus(ctx, order.ID, order.Status); err != nil {
		logger.Error("Failed to mark order as failed", zap.Error(err))
	}
}

// BuildOrderComment assembles the POS order comment from table, waiter and
// the customer's comment.
func BuildOrderComment(order *pos.Order) string {
	parts := make([]string, 0, 3)
	if order.Table != nil {
		parts = append(parts, fmt.Sprintf("Web Order - Table: %s-%d", order.Table.Name, tableNumber(order)))
	} else {
		parts = append(parts, fmt.Sprintf("Web Order - Table: %d", tableNumber(order)))
	}
	if order.Waiter != nil {
		parts = append(parts, fmt.Sprintf("Waiter: %s (code: %s)", order.Waiter.Name, order.Waiter.Code))
	}
	if c := strings.TrimSpace(order.Comment); c != "" {
		parts = append(parts, "Comment: "+c)
	}
	return strings.Join(parts, " | ")
}

func tableNumber(order *pos.Order) int {
	if order.Table == nil || order.Table.Number <= 0 {
		return 1
	}
	return order.Table.Number
}

func waiterCode(order *pos.Order) string {
	if order.Waiter == nil {
		return ""
	}
	return order.Waiter.Code
}
