package pos

import (
	"time"

	"github.com/google/uuid"
)

// Waiter is POS staff that can be attached to orders and tables.
type Waiter struct {
	ID        uuid.UUID
	Name      string
	Code      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Table is a dining table. WaiterID is a weak reference to the assigned waiter.
type Table struct {
	ID        uuid.UUID
	Name      string
	Number    int
	WaiterID  *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewWaiter creates a waiter
func NewWaiter(name, code string) *Waiter {
	now := time.Now()
	return &Waiter{ID: uuid.New(), Name: name, Code: code, CreatedAt: now, UpdatedAt: now}
}

// NewTable creates a table
func NewTable(name string, number int) *Table {
	now := time.Now()
	return &Table{ID: uuid.New(), Name: name, Number: number, CreatedAt: now, UpdatedAt: now}
}

// AssignWaiter sets or clears the table's waiter
func (t *Table) AssignWaiter(w *Waiter) {
	if w == nil {
		t.WaiterID = nil
	} else {
		id := w.ID
		t.WaiterID = &id
	}
	t.UpdatedAt = time.Now()
}
