package pos

import (
	"errors"
	"fmt"
)

// Sentinel errors for the POS context
var (
	ErrStationNotFound      = errors.New("pos: station not found")
	ErrStationCodeMissing   = errors.New("pos: station has no POS station code")
	ErrStationInactive      = errors.New("pos: station is not active")
	ErrCategoryNotFound     = errors.New("pos: category not found")
	ErrMenuItemNotFound     = errors.New("pos: menu item not found")
	ErrOrderNotFound        = errors.New("pos: order not found")
	ErrWaiterNotFound       = errors.New("pos: waiter not found")
	ErrTableNotFound        = errors.New("pos: table not found")
	ErrInvalidStatus        = errors.New("pos: invalid order status transition")
	ErrOrderHasNoItems      = errors.New("pos: order has no items")
	ErrOrderNotSubmittable  = errors.New("pos: order cannot be submitted in its current status")
	ErrPOSOrderIDAssigned   = errors.New("pos: order already linked to a different POS order")
	ErrNoDishLines          = errors.New("pos: no order lines reference a POS menu item")
	ErrEmptyDishReference   = errors.New("pos: dish reference table is empty")
	ErrEmptyStationMenu     = errors.New("pos: station menu snapshot is empty")
	ErrOrderCreateFailed    = errors.New("pos: POS order creation failed")
	ErrMissingOrderGUID     = errors.New("pos: POS response carried no order guid")
	ErrSaveRetriesExhausted = errors.New("pos: order save retry budget exhausted")
	ErrSaveRejected         = errors.New("pos: order save rejected by POS")
	ErrLicenseNotConfigured = errors.New("pos: license credentials are not configured")
	ErrSequenceUnavailable  = errors.New("pos: license sequence number unavailable")
	ErrSubmissionInProgress = errors.New("pos: order is already being submitted")

	// Protocol-level error classes. Adapters wrap these so callers can
	// use errors.Is without importing the adapter package.
	ErrTransport      = errors.New("pos: transport failure")
	ErrProtocolStatus = errors.New("pos: POS reported non-Ok status")
	ErrParse          = errors.New("pos: malformed POS response")
)

// ProtocolStatusError reports a response whose Status attribute was not "Ok".
type ProtocolStatusError struct {
	Command string
	Status  string
	Code    string
	Text    string
}

// Error implements the error interface
func (e *ProtocolStatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s returned status %q (RK7ErrorN %s): %s", ErrProtocolStatus.Error(), e.Command, e.Status, e.Code, e.Text)
	}
	return fmt.Sprintf("%s: %s returned status %q: %s", ErrProtocolStatus.Error(), e.Command, e.Status, e.Text)
}

// Unwrap allows errors.Is(err, ErrProtocolStatus)
func (e *ProtocolStatusError) Unwrap() error {
	return ErrProtocolStatus
}
