package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/rkbridge/backend/internal/bootstrap"
	"github.com/rkbridge/backend/internal/infrastructure/auth"
	"github.com/rkbridge/backend/internal/infrastructure/config"
	"github.com/rkbridge/backend/internal/infrastructure/migration"
	"github.com/rkbridge/backend/internal/interfaces/http/handler"
	"github.com/rkbridge/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}
	log := app.Logger
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), bootstrap.ShutdownTimeout)
		defer cancel()
		if err := app.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
		}
	}()

	if cfg.Database.AutoMigrate {
		if err := migrate(app); err != nil {
			log.Error("Schema migration failed", zap.Error(err))
			return
		}
	}

	engine, err := router.NewEngine(router.Dependencies{
		Config: cfg,
		Logger: log,
		JWT:    auth.NewJWTService(cfg.JWT),
		POS:    handler.NewPOSHandler(app.Menu, app.Orders, app.License),
		Health: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"database": app.DB.Ping,
			"redis":    app.Stores.Ping,
		}),
		Tracing:   app.Tracing,
		Profiling: app.Profiling,
	})
	if err != nil {
		log.Error("Failed to build router", zap.Error(err))
		return
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			log.Error("Server failed", zap.Error(err))
		}
		return
	case <-ctx.Done():
	}
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), bootstrap.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	log.Info("Server exited gracefully")
}

// migrate applies pending migrations on a dedicated connection, since
// closing the migrator closes its database handle.
func migrate(app *bootstrap.App) error {
	db, err := sql.Open("postgres", app.Config.Database.DSN())
	if err != nil {
		return err
	}
	m, err := migration.New(db, app.Logger)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer m.Close()
	return m.Up()
}
