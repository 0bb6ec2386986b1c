package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/rkbridge/backend/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// DBTracingPlugin is a gorm.Plugin that installs otelgorm and annotates its
// spans with row counts, table names and slow query markers.
type DBTracingPlugin struct {
	logFullSQL      bool
	slowQueryThresh time.Duration
	tracerProvider  trace.TracerProvider
}

// NewDBTracingPlugin returns nil when database tracing is off, so callers can
// skip registration.
func NewDBTracingPlugin(cfg config.TelemetryConfig) *DBTracingPlugin {
	if !cfg.Enabled || !cfg.DBTraceEnabled {
		return nil
	}
	return &DBTracingPlugin{
		logFullSQL:      cfg.DBLogFullSQL,
		slowQueryThresh: cfg.DBSlowQueryThresh,
	}
}

// WithTracerProvider overrides the global provider.
func (p *DBTracingPlugin) WithTracerProvider(tp trace.TracerProvider) *DBTracingPlugin {
	p.tracerProvider = tp
	return p
}

// Name implements gorm.Plugin
func (p *DBTracingPlugin) Name() string {
	return "rkbridge:db_tracing"
}

// Initialize implements gorm.Plugin
func (p *DBTracingPlugin) Initialize(db *gorm.DB) error {
	opts := []otelgorm.Option{otelgorm.WithDBName("postgresql")}
	if !p.logFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if p.tracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(p.tracerProvider))
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("rkbridge:start_create", markQueryStart),
		cb.Query().Before("gorm:query").Register("rkbridge:start_query", markQueryStart),
		cb.Update().Before("gorm:update").Register("rkbridge:start_update", markQueryStart),
		cb.Delete().Before("gorm:delete").Register("rkbridge:start_delete", markQueryStart),
		cb.Row().Before("gorm:row").Register("rkbridge:start_row", markQueryStart),
		cb.Raw().Before("gorm:raw").Register("rkbridge:start_raw", markQueryStart),
		cb.Create().After("gorm:create").Before("otel:after_create").Register("rkbridge:annotate_create", p.annotate),
		cb.Query().After("gorm:query").Before("otel:after_query").Register("rkbridge:annotate_query", p.annotate),
		cb.Update().After("gorm:update").Before("otel:after_update").Register("rkbridge:annotate_update", p.annotate),
		cb.Delete().After("gorm:delete").Before("otel:after_delete").Register("rkbridge:annotate_delete", p.annotate),
		cb.Row().After("gorm:row").Before("otel:after_row").Register("rkbridge:annotate_row", p.annotate),
		cb.Raw().After("gorm:raw").Before("otel:after_raw").Register("rkbridge:annotate_raw", p.annotate),
	)
}

type queryStartKey struct{}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (p *DBTracingPlugin) annotate(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}

	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok || p.slowQueryThresh <= 0 {
		return
	}
	if elapsed := time.Since(start); elapsed > p.slowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
}

var _ gorm.Plugin = (*DBTracingPlugin)(nil)
