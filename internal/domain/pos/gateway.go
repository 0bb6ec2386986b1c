package pos

import "context"

// ---------------------------------------------------------------------------
// POS protocol records
// ---------------------------------------------------------------------------

// DishReference is one active entry of the POS dish reference table.
type DishReference struct {
	Name     string
	Code     string
	Recipe   string
	Category string
}

// SnapshotItem is one dish of a station's live order menu.
type SnapshotItem struct {
	RKeeperID string
	// PriceMinor is the price in minor currency units as reported by the POS
	PriceMinor int64
	// Quantity is the raw POS quantity; 0 means unlimited
	Quantity int64
}

// CreateOrderCommand opens an order on a POS station.
type CreateOrderCommand struct {
	TableCode   int
	StationCode int
	// WaiterCode is optional
	WaiterCode string
	Comment    string
}

// DishLine is one dish added to a POS order by SaveOrder.
type DishLine struct {
	RKeeperID string
	Quantity  int
	Comment   string
}

// LicenseTicket is the license block presented on licensed writes.
type LicenseTicket struct {
	LicenseCredentials
	SeqNumber int64
}

// SaveOrderCommand adds dishes to an existing POS order.
type SaveOrderCommand struct {
	OrderGUID   string
	StationCode int
	// License is nil when licensing is not configured
	License *LicenseTicket
	Dishes  []DishLine
}

// StatusOK is the protocol status of a successful response
const StatusOK = "Ok"

// SaveOrderResult is the triage input for the license sequence protocol.
type SaveOrderResult struct {
	Status    string
	ErrorCode string
	ErrorText string
}

// IsOK returns true if the POS accepted the save
func (r SaveOrderResult) IsOK() bool {
	return r.Status == StatusOK
}

// ---------------------------------------------------------------------------
// Gateway port
// ---------------------------------------------------------------------------

// Gateway is the port for the POS XML interface.
//
// FetchStationMenu and CreateOrder return *ProtocolStatusError when the POS
// reports a non-Ok status. SaveOrder returns the status in its result instead,
// since the caller triages protocol codes itself; its error return is reserved
// for transport and parse failures.
type Gateway interface {
	FetchDishReference(ctx context.Context) (map[string]DishReference, error)
	FetchStationMenu(ctx context.Context, stationCode int) ([]SnapshotItem, error)
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (string, error)
	SaveOrder(ctx context.Context, cmd SaveOrderCommand) (SaveOrderResult, error)
	GetLicenseSeqNumber(ctx context.Context, creds LicenseCredentials) (int64, error)
}
