package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apppos "github.com/rkbridge/backend/internal/application/pos"
	"github.com/rkbridge/backend/internal/domain/pos"
	"github.com/rkbridge/backend/internal/interfaces/http/dto"
	"github.com/rkbridge/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type MockMenuSyncer struct {
	mock.Mock
}

func (m *MockMenuSyncer) SyncAll(ctx context.Context, filters []string) (*apppos.SyncReport, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apppos.SyncReport), args.Error(1)
}

type MockOrderSubmitter struct {
	mock.Mock
}

func (m *MockOrderSubmitter) Submit(ctx context.Context, orderID uuid.UUID) apppos.SubmitResult {
	args := m.Called(ctx, orderID)
	return args.Get(0).(apppos.SubmitResult)
}

type MockLicenseManager struct {
	mock.Mock
}

func (m *MockLicenseManager) Status(ctx context.Context) (apppos.LicenseStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(apppos.LicenseStatus), args.Error(1)
}

func (m *MockLicenseManager) Reset(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockLicenseManager) Sync(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type posFixture struct {
	menu    *MockMenuSyncer
	orders  *MockOrderSubmitter
	license *MockLicenseManager
	engine  *gin.Engine
}

func newPOSFixture() *posFixture {
	f := &posFixture{
		menu:    new(MockMenuSyncer),
		orders:  new(MockOrderSubmitter),
		license: new(MockLicenseManager),
	}
	h := NewPOSHandler(f.menu, f.orders, f.license)

	f.engine = gin.New()
	g := f.engine.Group("/pos")
	g.POST("/menu/sync", h.SyncMenu)
	g.POST("/orders/:id/submit", h.SubmitOrder)
	g.GET("/license", h.LicenseStatus)
	g.POST("/license/reset", h.ResetLicense)
	g.POST("/license/sync", h.SyncLicense)
	return f
}

func (f *posFixture) do(method, path string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, w)
	errInfo, ok := body["error"].(map[string]any)
	require.True(t, ok, "response has no error object: %s", w.Body.String())
	return errInfo["code"].(string)
}

func TestPOSHandler_SyncMenu(t *testing.T) {
	t.Run("filters forwarded and report returned", func(t *testing.T) {
		f := newPOSFixture()
		report := &apppos.SyncReport{
			StartedAt:  time.Now(),
			FinishedAt: time.Now(),
			References: 4,
			Stations: []apppos.StationSyncResult{
				{StationName: "Main Hall", Success: true, Created: 2},
				{StationName: "Bar", Success: false, Error: "transport failure"},
			},
		}
		f.menu.On("SyncAll", mock.Anything, []string{"hall", "bar"}).Return(report, nil)

		w := f.do(http.MethodPost, "/pos/menu/sync", []byte(`{"stations":["hall","bar"]}`))

		assert.Equal(t, http.StatusOK, w.Code)
		data := decode(t, w)["data"].(map[string]any)
		assert.EqualValues(t, 4, data["references"])
		assert.EqualValues(t, 1, data["succeeded"])
		assert.EqualValues(t, 1, data["failed"])
		assert.Len(t, data["stations"], 2)
		f.menu.AssertExpectations(t)
	})

	t.Run("empty body syncs all stations", func(t *testing.T) {
		f := newPOSFixture()
		f.menu.On("SyncAll", mock.Anything, []string(nil)).Return(&apppos.SyncReport{}, nil)

		w := f.do(http.MethodPost, "/pos/menu/sync", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decode(t, w)["data"].(map[string]any)
		assert.Equal(t, []any{}, data["stations"])
	})

	t.Run("blank filter rejected", func(t *testing.T) {
		f := newPOSFixture()

		w := f.do(http.MethodPost, "/pos/menu/sync", []byte(`{"stations":["  "]}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, errorCode(t, w))
		f.menu.AssertNotCalled(t, "SyncAll", mock.Anything, mock.Anything)
	})

	t.Run("malformed json", func(t *testing.T) {
		f := newPOSFixture()

		w := f.do(http.MethodPost, "/pos/menu/sync", []byte(`{"stations":`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, errorCode(t, w))
	})

	t.Run("reference fetch failure maps to bad gateway", func(t *testing.T) {
		f := newPOSFixture()
		f.menu.On("SyncAll", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("fetch categories: %w", pos.ErrTransport))

		w := f.do(http.MethodPost, "/pos/menu/sync", nil)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, dto.ErrCodePOSUnavailable, errorCode(t, w))
	})
}

func TestPOSHandler_SubmitOrder(t *testing.T) {
	orderID := uuid.New()
	path := "/pos/orders/" + orderID.String() + "/submit"

	tests := []struct {
		name       string
		result     apppos.SubmitResult
		wantStatus int
		wantCode   string
		wantOut    string
	}{
		{
			name:       "submitted",
			result:     apppos.SubmitResult{OrderID: orderID, Outcome: apppos.OutcomeSubmitted, POSOrderID: "{A1B2}"},
			wantStatus: http.StatusOK,
			wantOut:    "submitted",
		},
		{
			name: "partially submitted",
			result: apppos.SubmitResult{
				OrderID: orderID, Outcome: apppos.OutcomePartiallySubmitted,
				POSOrderID: "{A1B2}", Err: pos.ErrSaveRetriesExhausted,
			},
			wantStatus: http.StatusOK,
			wantOut:    "partially_submitted",
		},
		{
			name:       "order not found",
			result:     apppos.SubmitResult{OrderID: orderID, Outcome: apppos.OutcomeFailed, Err: pos.ErrOrderNotFound},
			wantStatus: http.StatusNotFound,
			wantCode:   dto.ErrCodeNotFound,
		},
		{
			name:       "no dish lines",
			result:     apppos.SubmitResult{OrderID: orderID, Outcome: apppos.OutcomeFailed, Err: pos.ErrNoDishLines},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   dto.ErrCodeBusinessRule,
		},
		{
			name: "create failed",
			result: apppos.SubmitResult{
				OrderID: orderID, Outcome: apppos.OutcomeFailed,
				Err: fmt.Errorf("%w: License check", pos.ErrOrderCreateFailed),
			},
			wantStatus: http.StatusBadGateway,
			wantCode:   dto.ErrCodePOSRejected,
		},
		{
			name:       "unexpected error hidden",
			result:     apppos.SubmitResult{OrderID: orderID, Outcome: apppos.OutcomeFailed, Err: errors.New("db exploded")},
			wantStatus: http.StatusInternalServerError,
			wantCode:   dto.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPOSFixture()
			f.orders.On("Submit", mock.Anything, orderID).Return(tt.result)

			w := f.do(http.MethodPost, path, nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, w))
				assert.NotContains(t, w.Body.String(), "db exploded")
				return
			}
			data := decode(t, w)["data"].(map[string]any)
			assert.Equal(t, tt.wantOut, data["outcome"])
			assert.Equal(t, "{A1B2}", data["pos_order_id"])
		})
	}

	t.Run("invalid id", func(t *testing.T) {
		f := newPOSFixture()

		w := f.do(http.MethodPost, "/pos/orders/not-a-uuid/submit", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, errorCode(t, w))
		f.orders.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	})
}

func TestPOSHandler_License(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		f := newPOSFixture()
		cached, server := int64(42), int64(42)
		f.license.On("Status", mock.Anything).Return(apppos.LicenseStatus{
			InstanceGUID: "{GUID}",
			CacheKey:     "rkeeper:license:seq:{GUID}",
			Cached:       &cached,
			Server:       &server,
		}, nil)

		w := f.do(http.MethodGet, "/pos/license", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decode(t, w)["data"].(map[string]any)
		assert.EqualValues(t, 42, data["cached"])
		assert.Equal(t, true, data["in_sync"])
	})

	t.Run("status without license", func(t *testing.T) {
		f := newPOSFixture()
		f.license.On("Status", mock.Anything).Return(apppos.LicenseStatus{}, pos.ErrLicenseNotConfigured)

		w := f.do(http.MethodGet, "/pos/license", nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeLicenseNotConfigured, errorCode(t, w))
	})

	t.Run("reset", func(t *testing.T) {
		f := newPOSFixture()
		f.license.On("Reset", mock.Anything).Return(nil)

		w := f.do(http.MethodPost, "/pos/license/reset", nil)

		assert.Equal(t, http.StatusNoContent, w.Code)
		f.license.AssertExpectations(t)
	})

	t.Run("reset with store down", func(t *testing.T) {
		f := newPOSFixture()
		f.license.On("Reset", mock.Anything).Return(fmt.Errorf("delete key: %w", pos.ErrSequenceUnavailable))

		w := f.do(http.MethodPost, "/pos/license/reset", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, dto.ErrCodeSequenceUnavailable, errorCode(t, w))
	})

	t.Run("sync", func(t *testing.T) {
		f := newPOSFixture()
		f.license.On("Sync", mock.Anything).Return(int64(108), nil)

		w := f.do(http.MethodPost, "/pos/license/sync", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decode(t, w)["data"].(map[string]any)
		assert.EqualValues(t, 108, data["sequence"])
	})
}
