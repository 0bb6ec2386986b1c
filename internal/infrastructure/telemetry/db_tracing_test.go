package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/rkbridge/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestNewDBTracingPlugin_Disabled(t *testing.T) {
	assert.Nil(t, NewDBTracingPlugin(config.TelemetryConfig{Enabled: false, DBTraceEnabled: true}))
	assert.Nil(t, NewDBTracingPlugin(config.TelemetryConfig{Enabled: true, DBTraceEnabled: false}))
}

func TestDBTracingPlugin_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	plugin := NewDBTracingPlugin(config.TelemetryConfig{
		Enabled:           true,
		DBTraceEnabled:    true,
		DBSlowQueryThresh: time.Hour,
	}).WithTracerProvider(tp)
	require.NotNil(t, plugin)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Use(plugin))

	type station struct {
		ID   uint
		Name string
	}
	require.NoError(t, db.AutoMigrate(&station{}))

	ctx, root := tp.Tracer("test").Start(context.Background(), "menu-sync")
	require.NoError(t, db.WithContext(ctx).Create(&station{Name: "Bar"}).Error)
	var found []station
	require.NoError(t, db.WithContext(ctx).Find(&found).Error)
	root.End()

	var children int
	for _, s := range recorder.Ended() {
		if s.Parent().SpanID() == root.SpanContext().SpanID() {
			children++
		}
	}
	assert.GreaterOrEqual(t, children, 2)
	assert.Len(t, found, 1)
}
