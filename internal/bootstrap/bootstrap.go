// Package bootstrap wires configuration, telemetry, storage and the POS
// services shared by the server and the operator CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	apppos "github.com/rkbridge/backend/internal/application/pos"
	"github.com/rkbridge/backend/internal/domain/pos"
	"github.com/rkbridge/backend/internal/infrastructure/cache"
	"github.com/rkbridge/backend/internal/infrastructure/config"
	"github.com/rkbridge/backend/internal/infrastructure/logger"
	"github.com/rkbridge/backend/internal/infrastructure/persistence"
	"github.com/rkbridge/backend/internal/infrastructure/rkeeper"
	"github.com/rkbridge/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds every long-lived component of the process
type App struct {
	Config *config.Config
	Logger *zap.Logger

	DB     *persistence.Database
	Stores *cache.Stores
	POS    *rkeeper.Client

	License *apppos.LicenseSequenceCoordinator
	Menu    *apppos.MenuSynchronizer
	Orders  *apppos.OrderSubmissionService

	Tracing   bool
	Profiling bool

	shutdown []func(context.Context) error
}

// New builds the application. On error everything created so far is
// released.
func New(ctx context.Context, cfg *config.Config) (app *App, err error) {
	app = &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = app.Shutdown(context.Background())
			app = nil
		}
	}()

	logProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init log exporter: %w", err)
	}
	app.onShutdown(logProvider.Shutdown)

	log, err := logger.New(cfg.Log, logProvider.Cores(cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level))...)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	app.Logger = log
	app.onShutdown(func(context.Context) error {
		_ = log.Sync()
		return nil
	})

	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	app.onShutdown(tracerProvider.Shutdown)
	app.Tracing = tracerProvider.IsEnabled()

	profiler, err := telemetry.NewProfiler(cfg.Profiling, log)
	if err != nil {
		return nil, fmt.Errorf("init profiler: %w", err)
	}
	app.onShutdown(func(context.Context) error { return profiler.Stop() })
	app.Profiling = profiler.IsEnabled()
	if app.Profiling && cfg.Profiling.SpanProfiles {
		tracerProvider.EnableSpanProfiles()
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("init meter: %w", err)
	}
	app.onShutdown(meterProvider.Shutdown)

	metrics, err := telemetry.NewPOSMetrics(meterProvider.Meter(telemetry.MeterName))
	if err != nil {
		return nil, fmt.Errorf("init POS metrics: %w", err)
	}

	dbOpts := []persistence.DatabaseOption{
		persistence.WithGormLogger(logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
			logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
			logger.WithSQL(cfg.Telemetry.DBLogFullSQL),
		)),
	}
	if plugin := telemetry.NewDBTracingPlugin(cfg.Telemetry); plugin != nil {
		dbOpts = append(dbOpts, persistence.WithPlugins(plugin))
	}
	db, err := persistence.NewDatabase(&cfg.Database, dbOpts...)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	app.DB = db
	app.onShutdown(func(context.Context) error { return db.Close() })
	log.Info("Database connected", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))

	stores, err := cache.NewStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.RKeeper.AllowInMemorySequence),
	).CreateStores()
	if err != nil {
		return nil, err
	}
	app.Stores = stores
	app.onShutdown(func(context.Context) error { return stores.Close() })

	client, err := rkeeper.NewClient(RKeeperConfig(cfg.RKeeper), log, rkeeper.WithCallObserver(metrics))
	if err != nil {
		return nil, fmt.Errorf("init POS client: %w", err)
	}
	app.POS = client

	app.wireServices(db.DB, metrics)

	log.Info("Application initialized",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.Bool("licensed", cfg.RKeeper.LicenseConfigured()),
		zap.Bool("tracing", app.Tracing),
		zap.Bool("profiling", app.Profiling),
	)
	return app, nil
}

func (a *App) wireServices(db *gorm.DB, metrics apppos.Metrics) {
	cfg := a.Config
	stations := persistence.NewGormStationRepository(db)

	a.License = apppos.NewLicenseSequenceCoordinator(a.POS, a.Stores.Sequence, LicenseCredentials(cfg.RKeeper), a.Logger,
		apppos.WithMaxAttempts(cfg.RKeeper.SaveAttempts),
		apppos.WithCoordinatorMetrics(metrics),
	)

	a.Menu = apppos.NewMenuSynchronizer(a.POS, stations, persistence.NewGormMenuTransactionScope(db), a.Logger,
		apppos.MenuSynchronizerConfig{RemovalPolicy: pos.RemovalPolicy(cfg.Menu.RemovalPolicy)},
	)
	a.Menu.SetMetrics(metrics)

	a.Orders = apppos.NewOrderSubmissionService(persistence.NewGormOrderRepository(db), stations, a.POS, a.License, a.Logger,
		apppos.OrderSubmissionConfig{DefaultStationCode: cfg.RKeeper.DefaultStationCode},
	)
	a.Orders.SetMetrics(metrics)
	a.Orders.SetLock(a.Stores.Locks)
}

// RKeeperConfig converts the loaded settings into client configuration
func RKeeperConfig(c config.RKeeperConfig) *rkeeper.Config {
	rc := rkeeper.NewConfig(c.APIURL)
	rc.LicenseAnchor = c.LicenseAnchor
	rc.LicenseToken = c.LicenseToken
	rc.LicenseInstanceGUID = c.LicenseInstanceGUID
	rc.InsecureTLS = c.InsecureTLS
	if c.DefaultStationCode > 0 {
		rc.DefaultStationCode = c.DefaultStationCode
	}
	if c.ReadTimeout > 0 {
		rc.ReadTimeout = c.ReadTimeout
	}
	if c.WriteTimeout > 0 {
		rc.WriteTimeout = c.WriteTimeout
	}
	if c.MaxRetries >= 0 {
		rc.MaxRetries = c.MaxRetries
	}
	if c.RetryBackoff > 0 {
		rc.RetryBackoff = c.RetryBackoff
	}
	return rc
}

// LicenseCredentials extracts the license instance from the settings
func LicenseCredentials(c config.RKeeperConfig) pos.LicenseCredentials {
	return pos.LicenseCredentials{
		Anchor:       c.LicenseAnchor,
		Token:        c.LicenseToken,
		InstanceGUID: c.LicenseInstanceGUID,
	}
}

func (a *App) onShutdown(fn func(context.Context) error) {
	a.shutdown = append(a.shutdown, fn)
}

// Shutdown releases components in reverse creation order
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		if err := a.shutdown[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.shutdown = nil
	return errors.Join(errs...)
}

// ShutdownTimeout bounds Shutdown in the binaries
const ShutdownTimeout = 30 * time.Second
