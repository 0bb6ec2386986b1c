package router

import (
	"github.com/gin-gonic/gin"
	"github.com/rkbridge/backend/internal/infrastructure/auth"
	"github.com/rkbridge/backend/internal/infrastructure/config"
	"github.com/rkbridge/backend/internal/infrastructure/logger"
	"github.com/rkbridge/backend/internal/interfaces/http/handler"
	"github.com/rkbridge/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Dependencies are the collaborators the HTTP surface is built from
type Dependencies struct {
	Config  *config.Config
	Logger  *zap.Logger
	JWT     *auth.JWTService
	POS     *handler.POSHandler
	Health  *handler.HealthHandler
	Tracing bool
	// Profiling labels request samples for the continuous profiler
	Profiling bool
}

// NewEngine builds the gin engine with middleware and all routes
func NewEngine(deps Dependencies) (*gin.Engine, error) {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.SetupValidator(); err != nil {
		return nil, err
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(deps.Config.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(logger.Recovery(deps.Logger))
	engine.Use(middleware.RequestID())
	if deps.Tracing {
		engine.Use(middleware.Tracing(deps.Config.Telemetry.ServiceName))
	}
	if deps.Profiling {
		engine.Use(middleware.Profiling("/health"))
	}
	engine.Use(logger.GinMiddleware(deps.Logger))
	engine.Use(middleware.BodyLimit(deps.Config.HTTP.MaxBodySize))

	engine.GET("/health", deps.Health.Health)

	posRoutes := POSRoutes(deps.POS, middleware.JWTAuth(deps.JWT, auth.ScopePOS, deps.Logger), middleware.EnrichSpan())
	api := Mount(engine, "v1", posRoutes)
	deps.Logger.Debug("API routes registered",
		zap.String("base_path", api.BasePath()),
		zap.Strings("routes", posRoutes.Routes()),
	)

	return engine, nil
}

// POSRoutes returns the /pos group guarded by mw
func POSRoutes(h *handler.POSHandler, mw ...gin.HandlerFunc) *Group {
	return NewGroup("/pos", mw...).
		POST("/menu/sync", h.SyncMenu).
		POST("/orders/:id/submit", h.SubmitOrder).
		GET("/license", h.LicenseStatus).
		POST("/license/reset", h.ResetLicense).
		POST("/license/sync", h.SyncLicense)
}
