package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apppos "github.com/rkbridge/backend/internal/application/pos"
	"github.com/rkbridge/backend/internal/infrastructure/auth"
	"github.com/rkbridge/backend/internal/infrastructure/config"
	"github.com/rkbridge/backend/internal/interfaces/http/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMount(t *testing.T) {
	engine := gin.New()

	hits := 0
	group := NewGroup("/test", func(c *gin.Context) { hits++; c.Next() }).
		GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") }).
		POST("/items/:id", func(c *gin.Context) { c.String(http.StatusCreated, c.Param("id")) })
	api := Mount(engine, "v2", group)
	assert.Equal(t, "/api/v2", api.BasePath())

	tests := []struct {
		method   string
		path     string
		wantCode int
		wantBody string
	}{
		{http.MethodGet, "/api/v2/test/ping", http.StatusOK, "pong"},
		{http.MethodPost, "/api/v2/test/items/7", http.StatusCreated, "7"},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.wantCode, w.Code)
		assert.Equal(t, tt.wantBody, w.Body.String())
	}
	assert.Equal(t, 2, hits)
	assert.Equal(t, []string{"GET /test/ping", "POST /test/items/:id"}, group.Routes())
}

type stubMenu struct{}

func (stubMenu) SyncAll(context.Context, []string) (*apppos.SyncReport, error) {
	return &apppos.SyncReport{StartedAt: time.Now(), FinishedAt: time.Now()}, nil
}

type stubOrders struct{}

func (stubOrders) Submit(_ context.Context, id uuid.UUID) apppos.SubmitResult {
	return apppos.SubmitResult{OrderID: id, Outcome: apppos.OutcomeSubmitted, POSOrderID: "{X}"}
}

type stubLicense struct{}

func (stubLicense) Status(context.Context) (apppos.LicenseStatus, error) {
	return apppos.LicenseStatus{}, nil
}
func (stubLicense) Reset(context.Context) error         { return nil }
func (stubLicense) Sync(context.Context) (int64, error) { return 1, nil }

func newTestEngine(t *testing.T, secret string) *gin.Engine {
	t.Helper()
	cfg := &config.Config{
		App:  config.AppConfig{Env: "test"},
		JWT:  config.JWTConfig{Secret: secret, Issuer: "rkbridge", AccessTokenExpiration: time.Hour},
		HTTP: config.HTTPConfig{MaxBodySize: 1 << 20},
	}
	engine, err := NewEngine(Dependencies{
		Config: cfg,
		Logger: zap.NewNop(),
		JWT:    auth.NewJWTService(cfg.JWT),
		POS:    handler.NewPOSHandler(stubMenu{}, stubOrders{}, stubLicense{}),
		Health: handler.NewHealthHandler(nil),
	})
	require.NoError(t, err)
	return engine
}

func TestNewEngine_Routes(t *testing.T) {
	secret := "0123456789abcdef0123456789abcdef"
	engine := newTestEngine(t, secret)
	svc := auth.NewJWTService(config.JWTConfig{Secret: secret, Issuer: "rkbridge", AccessTokenExpiration: time.Hour})
	token, _, err := svc.Issue("ops", []string{auth.ScopePOS}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{"health is public", http.MethodGet, "/health", "", http.StatusOK},
		{"pos requires token", http.MethodGet, "/api/v1/pos/license", "", http.StatusUnauthorized},
		{"license status", http.MethodGet, "/api/v1/pos/license", token, http.StatusOK},
		{"license reset", http.MethodPost, "/api/v1/pos/license/reset", token, http.StatusNoContent},
		{"license sync", http.MethodPost, "/api/v1/pos/license/sync", token, http.StatusOK},
		{"menu sync", http.MethodPost, "/api/v1/pos/menu/sync", token, http.StatusOK},
		{"order submit", http.MethodPost, "/api/v1/pos/orders/" + uuid.NewString() + "/submit", token, http.StatusOK},
		{"unknown route", http.MethodGet, "/api/v1/pos/nothing", token, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}
