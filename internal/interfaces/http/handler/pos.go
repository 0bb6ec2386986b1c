package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apppos "github.com/rkbridge/backend/internal/application/pos"
	"github.com/rkbridge/backend/internal/infrastructure/logger"
	"github.com/rkbridge/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// MenuSyncer runs a menu synchronization
type MenuSyncer interface {
	SyncAll(ctx context.Context, filters []string) (*apppos.SyncReport, error)
}

// OrderSubmitter submits a local order to the POS
type OrderSubmitter interface {
	Submit(ctx context.Context, orderID uuid.UUID) apppos.SubmitResult
}

// LicenseManager exposes the sequence maintenance operations
type LicenseManager interface {
	Status(ctx context.Context) (apppos.LicenseStatus, error)
	Reset(ctx context.Context) error
	Sync(ctx context.Context) (int64, error)
}

// POSHandler serves /api/v1/pos
type POSHandler struct {
	BaseHandler
	menu    MenuSyncer
	orders  OrderSubmitter
	license LicenseManager
}

// NewPOSHandler creates a new POSHandler
func NewPOSHandler(menu MenuSyncer, orders OrderSubmitter, license LicenseManager) *POSHandler {
	return &POSHandler{menu: menu, orders: orders, license: license}
}

// SyncMenu handles POST /menu/sync. Per-station failures are reported in the
// body with status 200; only a failed reference fetch is an error.
func (h *POSHandler) SyncMenu(c *gin.Context) {
	var req dto.MenuSyncRequest
	// an empty body syncs every station
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.BindError(c, err)
		return
	}

	report, err := h.menu.SyncAll(c.Request.Context(), req.Stations)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	logger.L(c.Request.Context()).Info("Menu sync triggered",
		zap.Strings("filters", req.Stations),
		zap.Int("succeeded", report.Succeeded()),
		zap.Int("failed", report.Failed()),
	)
	h.Success(c, dto.NewMenuSyncResponse(report))
}

// SubmitOrder handles POST /orders/:id/submit. A partial submission is 200
// with outcome partially_submitted, because the POS order exists.
func (h *POSHandler) SubmitOrder(c *gin.Context) {
	var req dto.OrderIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BindError(c, err)
		return
	}
	orderID := uuid.MustParse(req.ID)

	result := h.orders.Submit(c.Request.Context(), orderID)
	if result.Outcome == apppos.OutcomeFailed {
		h.HandleError(c, result.Err)
		return
	}
	h.Success(c, dto.NewSubmitOrderResponse(result))
}

// LicenseStatus handles GET /license
func (h *POSHandler) LicenseStatus(c *gin.Context) {
	status, err := h.license.Status(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewLicenseStatusResponse(status))
}

// ResetLicense handles POST /license/reset
func (h *POSHandler) ResetLicense(c *gin.Context) {
	if err := h.license.Reset(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}
	logger.L(c.Request.Context()).Warn("License sequence cache reset by operator")
	c.Status(http.StatusNoContent)
}

// SyncLicense handles POST /license/sync
func (h *POSHandler) SyncLicense(c *gin.Context) {
	seq, err := h.license.Sync(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	logger.L(c.Request.Context()).Info("License sequence synced from server", zap.Int64("sequence", seq))
	h.Success(c, dto.LicenseSyncResponse{Sequence: seq})
}
