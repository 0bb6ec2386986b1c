package pos

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle status of an order
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "new"
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusFailed     OrderStatus = "failed"
)

// IsValid returns true if the status is known
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusNew, OrderStatusPending, OrderStatusPaid, OrderStatusProcessing,
		OrderStatusCompleted, OrderStatusCancelled, OrderStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for statuses that allow no further transition
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled || s == OrderStatusFailed
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusNew:        {OrderStatusPending, OrderStatusPaid, OrderStatusProcessing, OrderStatusCancelled, OrderStatusFailed},
	OrderStatusPending:    {OrderStatusPaid, OrderStatusProcessing, OrderStatusCancelled, OrderStatusFailed},
	OrderStatusPaid:       {OrderStatusProcessing, OrderStatusCancelled, OrderStatusFailed},
	OrderStatusProcessing: {OrderStatusCompleted, OrderStatusCancelled},
}

// CanTransitionTo reports whether the order lifecycle allows moving to next
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderItem is one line of an order. Price is the unit price captured at
// order time.
type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	// MenuItem is loaded with the order; nil when the row was not preloaded
	MenuItem *MenuItem
	Quantity int
	Price    decimal.Decimal
	Total    decimal.Decimal
	Comment  string
}

// OrderLine is the input for a new order item. A zero Price falls back to
// the menu item price.
type OrderLine struct {
	MenuItem *MenuItem
	Quantity int
	Price    decimal.Decimal
	Comment  string
}

// Order is a customer order pushed to the POS.
type Order struct {
	ID uuid.UUID
	// StationRef is the POS reference id of the station the order was placed at
	StationRef string
	Table      *Table
	Waiter     *Waiter
	Items      []OrderItem
	Total      decimal.Decimal
	Status     OrderStatus
	// POSOrderID is the GUID assigned by CreateOrder, empty until accepted
	POSOrderID string
	PaymentID  string
	Comment    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewOrder creates an order and snapshots unit prices and the total.
func NewOrder(stationRef string, table *Table, waiter *Waiter, comment string, lines []OrderLine) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrOrderHasNoItems
	}
	now := time.Now()
	order := &Order{
		ID:         uuid.New(),
		StationRef: stationRef,
		Table:      table,
		Waiter:     waiter,
		Status:     OrderStatusNew,
		Comment:    comment,
		Total:      decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for i, line := range lines {
		if line.MenuItem == nil {
			return nil, fmt.Errorf("%w: line %d has no menu item", ErrMenuItemNotFound, i+1)
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("pos: line %d quantity must be positive", i+1)
		}
		price := line.Price
		if price.IsZero() {
			price = line.MenuItem.Price
		}
		total := price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		order.Items = append(order.Items, OrderItem{
			ID:         uuid.New(),
			OrderID:    order.ID,
			MenuItemID: line.MenuItem.ID,
			MenuItem:   line.MenuItem,
			Quantity:   line.Quantity,
			Price:      price,
			Total:      total,
			Comment:    line.Comment,
		})
		order.Total = order.Total.Add(total)
	}
	return order, nil
}

// TransitionTo moves the order to the next status
func (o *Order) TransitionTo(next OrderStatus) error {
	if !next.IsValid() || !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatus, o.Status, next)
	}
	o.Status = next
	o.UpdatedAt = time.Now()
	return nil
}

// CanSubmit reports whether the order may be (re)sent to the POS
func (o *Order) CanSubmit() bool {
	switch o.Status {
	case OrderStatusNew, OrderStatusPending, OrderStatusPaid:
		return true
	default:
		return false
	}
}

// AssignPOSOrderID links the order to a POS order. Re-assigning the same id
// is a no-op; a different id is rejected.
func (o *Order) AssignPOSOrderID(guid string) error {
	if o.POSOrderID != "" && o.POSOrderID != guid {
		return fmt.Errorf("%w: have %s, got %s", ErrPOSOrderIDAssigned, o.POSOrderID, guid)
	}
	o.POSOrderID = guid
	o.UpdatedAt = time.Now()
	return nil
}

// ItemsTotal recomputes the sum of line totals
func (o *Order) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.Total)
	}
	return sum
}
