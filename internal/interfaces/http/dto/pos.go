package dto

import (
	"time"

	apppos "github.com/rkbridge/backend/internal/application/pos"
)

// MenuSyncRequest selects stations by case-insensitive name substring.
// An empty list syncs every active station.
type MenuSyncRequest struct {
	Stations []string `json:"stations" binding:"omitempty,max=50,dive,stationfilter"`
}

// MenuSyncResponse summarises a sync run
type MenuSyncResponse struct {
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt time.Time                  `json:"finished_at"`
	References int                        `json:"references"`
	Succeeded  int                        `json:"succeeded"`
	Failed     int                        `json:"failed"`
	Stations   []apppos.StationSyncResult `json:"stations"`
}

// NewMenuSyncResponse converts a report
func NewMenuSyncResponse(r *apppos.SyncReport) MenuSyncResponse {
	stations := r.Stations
	if stations == nil {
		stations = []apppos.StationSyncResult{}
	}
	return MenuSyncResponse{
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		References: r.References,
		Succeeded:  r.Succeeded(),
		Failed:     r.Failed(),
		Stations:   stations,
	}
}

// MenuClearResponse reports what clearing the local menu removed
type MenuClearResponse struct {
	ItemsDeleted      int64 `json:"items_deleted"`
	ItemsRetained     int64 `json:"items_retained"`
	CategoriesDeleted int64 `json:"categories_deleted"`
}

// NewMenuClearResponse converts a clear report
func NewMenuClearResponse(r apppos.ClearReport) MenuClearResponse {
	return MenuClearResponse{
		ItemsDeleted:      r.ItemsDeleted,
		ItemsRetained:     r.ItemsRetained,
		CategoriesDeleted: r.CategoriesDeleted,
	}
}

// OrderIDRequest binds the order id path parameter
type OrderIDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// SubmitOrderResponse reports a submission outcome
type SubmitOrderResponse struct {
	OrderID    string `json:"order_id"`
	Outcome    string `json:"outcome"`
	POSOrderID string `json:"pos_order_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NewSubmitOrderResponse converts a submission result
func NewSubmitOrderResponse(r apppos.SubmitResult) SubmitOrderResponse {
	resp := SubmitOrderResponse{
		OrderID:    r.OrderID.String(),
		Outcome:    r.Outcome.String(),
		POSOrderID: r.POSOrderID,
	}
	if r.Err != nil {
		resp.Error = r.Err.Error()
	}
	return resp
}

// LicenseStatusResponse reports the cached and server sequence numbers
type LicenseStatusResponse struct {
	InstanceGUID string `json:"instance_guid"`
	CacheKey     string `json:"cache_key"`
	Cached       *int64 `json:"cached"`
	Server       *int64 `json:"server"`
	ServerError  string `json:"server_error,omitempty"`
	InSync       bool   `json:"in_sync"`
}

// NewLicenseStatusResponse converts a license status
func NewLicenseStatusResponse(s apppos.LicenseStatus) LicenseStatusResponse {
	resp := LicenseStatusResponse{
		InstanceGUID: s.InstanceGUID,
		CacheKey:     s.CacheKey,
		Cached:       s.Cached,
		Server:       s.Server,
		InSync:       s.InSync(),
	}
	if s.ServerErr != nil {
		resp.ServerError = s.ServerErr.Error()
	}
	return resp
}

// LicenseSyncResponse reports the value written to the cache
type LicenseSyncResponse struct {
	Sequence int64 `json:"sequence"`
}
